package devserver

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
)

// Snippet returns the script tags injected into served HTML pages.
func Snippet(notify bool) string {
	return fmt.Sprintf(`<script src="%s"></script><script src="%s" data-notify="%t"></script>`, ioClientPath, clientPath, notify)
}

// InjectSnippet inserts snippet before the last closing body tag, or appends
// it when the document has none.
func InjectSnippet(doc []byte, snippet string) []byte {
	idx := bytes.LastIndex(bytes.ToLower(doc), []byte("</body>"))
	if idx < 0 {
		out := make([]byte, 0, len(doc)+len(snippet))
		out = append(out, doc...)
		return append(out, snippet...)
	}
	out := make([]byte, 0, len(doc)+len(snippet))
	out = append(out, doc[:idx]...)
	out = append(out, snippet...)
	return append(out, doc[idx:]...)
}

type staticHandler struct {
	root    http.Dir
	files   http.Handler
	snippet string
}

func newStaticHandler(root, snippet string) http.Handler {
	dir := http.Dir(root)
	return &staticHandler{root: dir, files: http.FileServer(dir), snippet: snippet}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")

	name := path.Clean("/" + r.URL.Path)
	if strings.HasSuffix(r.URL.Path, "/") {
		name = path.Join(name, "index.html")
	}
	if ext := strings.ToLower(path.Ext(name)); ext != ".html" && ext != ".htm" {
		h.files.ServeHTTP(w, r)
		return
	}

	f, err := h.root.Open(name)
	if err != nil {
		h.files.ServeHTTP(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		h.files.ServeHTTP(w, r)
		return
	}
	doc, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, name, info.ModTime(), bytes.NewReader(InjectSnippet(doc, h.snippet)))
}
