package devserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/specialistvlad/assetgrid/internal/dag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// startServer runs a dev server on an ephemeral port and returns its base URL.
func startServer(t *testing.T, root string) (*Server, string) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	srv := New()
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, Options{Root: root, Addr: "127.0.0.1:0"})
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("dev server did not shut down")
		}
	})

	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("dev server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("dev server did not bind")
	}
	return srv, fmt.Sprintf("http://%s", srv.Addr())
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestInjectSnippet(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<html><body>hi<s></s></BODY></html>", string(InjectSnippet([]byte("<html><body>hi</BODY></html>"), "<s></s>")))
	assert.Equal(t, "fragment<s></s>", string(InjectSnippet([]byte("fragment"), "<s></s>")))
}

func TestServe_StaticFilesAndInjection(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html><body><h1>Home</h1></body></html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "css", "style.min.css"), []byte("body{color:red}"), 0o644))

	_, base := startServer(t, root)

	// --- Act & Assert ---
	code, body := get(t, base+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<h1>Home</h1>")
	assert.Contains(t, body, clientPath)
	assert.Contains(t, body, ioClientPath)

	code, body = get(t, base+"/css/style.min.css")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "body{color:red}", body)
	assert.NotContains(t, body, clientPath)

	code, body = get(t, base+healthPath)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK\n", body)

	code, body = get(t, base+clientPath)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, EventReload)

	resp, err := http.Get(base + "/socket.io/socket.io.js")
	require.NoError(t, err)
	script, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/javascript; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(script), "global.io = io")

	code, _ = get(t, base+"/missing.html")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServe_BindFailureIsReturned(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = New().Serve(context.Background(), Options{Root: t.TempDir(), Addr: ln.Addr().String()})
	assert.ErrorContains(t, err, "failed to bind dev server")
	assert.ErrorIs(t, err, dag.ErrFatal)
}

func TestServe_PushesEventsToClients(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	srv, base := startServer(t, t.TempDir())

	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))
	manager := socket.NewManager(base, opts)
	client := manager.Socket("/", opts)
	defer client.Disconnect()

	reloads := make(chan any, 1)
	styles := make(chan any, 1)
	client.On(types.EventName(EventReload), func(data ...any) {
		if len(data) > 0 {
			reloads <- data[0]
		}
	})
	client.On(types.EventName(EventCSS), func(data ...any) {
		if len(data) > 0 {
			styles <- data[0]
		}
	})
	client.Connect()

	require.Eventually(t, func() bool { return srv.Clients() > 0 }, 10*time.Second, 20*time.Millisecond)

	// --- Act ---
	srv.InjectCSS(context.Background(), "/css/style.min.css")
	srv.Reload(context.Background(), "/index.html")

	// --- Assert ---
	select {
	case payload := <-styles:
		assert.Equal(t, map[string]any{"paths": []any{"/css/style.min.css"}}, payload)
	case <-time.After(5 * time.Second):
		t.Fatal("style event not received")
	}
	select {
	case payload := <-reloads:
		assert.Equal(t, map[string]any{"paths": []any{"/index.html"}}, payload)
	case <-time.After(5 * time.Second):
		t.Fatal("reload event not received")
	}
}

// TestServe_BrowserClientProtocol speaks the same frames as socketio.js: a
// raw websocket on the engine path, "40" to join the default namespace and
// "42" event packets from the server.
func TestServe_BrowserClientProtocol(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	srv, base := startServer(t, t.TempDir())
	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/socket.io/?EIO=4&transport=websocket"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	readFrame := func() string {
		t.Helper()
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		return string(msg)
	}

	open := readFrame()
	require.True(t, strings.HasPrefix(open, "0{"), "engine open frame, got %q", open)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("40")))
	connected := readFrame()
	require.True(t, strings.HasPrefix(connected, "40"), "namespace connect frame, got %q", connected)
	require.Eventually(t, func() bool { return srv.Clients() > 0 }, 5*time.Second, 20*time.Millisecond)

	// --- Act ---
	srv.Reload(context.Background(), "/index.html")

	// --- Assert ---
	frame := readFrame()
	for strings.HasPrefix(frame, "2") {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("3")))
		frame = readFrame()
	}
	assert.Equal(t, `42["`+EventReload+`",{"paths":["/index.html"]}]`, frame)
}
