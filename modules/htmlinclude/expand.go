package htmlinclude

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultMaxDepth bounds include nesting.
const DefaultMaxDepth = 32

// Expander inlines include directives of the form
//
//	<prefix>include('path')
//	<prefix>include('path', {"key": "value"})
//
// Paths are relative to the including file. Inside included content,
// <prefix>key tokens are replaced from the JSON contexts in scope, the
// innermost first.
type Expander struct {
	Prefix   string
	MaxDepth int
}

// ExpandFile reads and expands the template at path.
func (e *Expander) ExpandFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return e.expand(data, abs, nil, []string{abs})
}

func (e *Expander) maxDepth() int {
	if e.MaxDepth > 0 {
		return e.MaxDepth
	}
	return DefaultMaxDepth
}

func (e *Expander) expand(content []byte, file string, scopes []gjson.Result, stack []string) ([]byte, error) {
	prefix := []byte(e.Prefix)
	directive := []byte(e.Prefix + "include(")
	var out bytes.Buffer

	i := 0
	for {
		j := bytes.Index(content[i:], prefix)
		if j < 0 {
			out.Write(content[i:])
			return out.Bytes(), nil
		}
		start := i + j
		out.Write(content[i:start])

		if bytes.HasPrefix(content[start:], directive) {
			d, err := parseDirective(content, start+len(directive))
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", file, lineOf(content, start), err)
			}
			included, err := e.include(d, file, lineOf(content, start), scopes, stack)
			if err != nil {
				return nil, err
			}
			out.Write(included)
			i = d.end
			continue
		}

		name, n := scanIdent(content[start+len(prefix):])
		if n > 0 {
			if v, ok := lookup(scopes, name); ok {
				out.WriteString(v)
				i = start + len(prefix) + n
				continue
			}
		}
		out.Write(prefix)
		i = start + len(prefix)
	}
}

func (e *Expander) include(d directive, file string, line int, scopes []gjson.Result, stack []string) ([]byte, error) {
	target := d.path
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(file), filepath.FromSlash(target))
	}
	for _, open := range stack {
		if open == target {
			chain := append(append([]string{}, stack...), target)
			for k := range chain {
				chain[k] = filepath.Base(chain[k])
			}
			return nil, fmt.Errorf("%s:%d: include cycle: %s", file, line, strings.Join(chain, " -> "))
		}
	}
	if len(stack) > e.maxDepth() {
		return nil, fmt.Errorf("%s:%d: include depth exceeds %d", file, line, e.maxDepth())
	}

	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s:%d: included file %q not found", file, line, d.path)
		}
		return nil, fmt.Errorf("%s:%d: failed to read included file %q: %w", file, line, d.path, err)
	}

	if d.context != "" {
		scopes = append(append([]gjson.Result{}, scopes...), gjson.Parse(d.context))
	}
	return e.expand(data, target, scopes, append(stack, target))
}

// lookup resolves a dotted key against the scopes, innermost first.
func lookup(scopes []gjson.Result, key string) (string, bool) {
	for k := len(scopes) - 1; k >= 0; k-- {
		r := scopes[k].Get(key)
		if !r.Exists() {
			continue
		}
		if r.Type == gjson.String {
			return r.String(), true
		}
		return r.Raw, true
	}
	return "", false
}

func lineOf(content []byte, offset int) int {
	return bytes.Count(content[:offset], []byte("\n")) + 1
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '-'
}

// scanIdent reads a dotted identifier such as "page.title". A trailing dot
// is not part of it.
func scanIdent(b []byte) (string, int) {
	if len(b) == 0 || !isIdentStart(b[0]) {
		return "", 0
	}
	n := 1
	for n < len(b) {
		if isIdentChar(b[n]) {
			n++
			continue
		}
		if b[n] == '.' && n+1 < len(b) && isIdentChar(b[n+1]) {
			n++
			continue
		}
		break
	}
	return string(b[:n]), n
}
