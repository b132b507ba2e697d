package devserver

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/dag"
	"github.com/zishang520/socket.io/v2/socket"
)

// Event names pushed to the browser client.
const (
	EventReload = "assetgrid:reload"
	EventCSS    = "assetgrid:css"
)

// Internal endpoints served next to the static tree.
const (
	clientPath   = "/__assetgrid/client.js"
	healthPath   = "/__assetgrid/health"
	socketPath   = "/socket.io/"
	ioClientPath = socketPath + "socket.io.js"
)

const shutdownTimeout = 5 * time.Second

//go:embed client.js
var clientScript []byte

// ioClientScript is served at ioClientPath. The socket.io library only
// serves its bundle from a client-dist directory next to the executable.
//
//go:embed socketio.js
var ioClientScript []byte

// Options configures a single Serve call.
type Options struct {
	// Root is the directory served as the site root.
	Root string
	// Addr is the host:port to bind.
	Addr string
	// Notify enables the in-page toast shown on every reload.
	Notify bool
}

// Server is the process-wide dev server and live-reload hub.
type Server struct {
	io      *socket.Server
	clients atomic.Int32

	mu        sync.Mutex
	addr      net.Addr
	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a dev server. Nothing is bound until Serve is called, but
// events may be emitted at any time.
func New() *Server {
	opts := socket.DefaultServerOptions()
	opts.SetServeClient(false)

	s := &Server{
		io:    socket.NewServer(nil, opts),
		ready: make(chan struct{}),
	}
	s.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.clients.Add(1)
		client.On("disconnect", func(...any) {
			s.clients.Add(-1)
		})
	})
	return s
}

// Ready is closed once Serve has bound its listener.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before Serve has bound.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Clients returns the number of connected live-reload clients.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

// Serve binds opts.Addr and serves until ctx is cancelled. A bind failure is
// returned immediately and is marked dag.ErrFatal, so it ends the whole run.
func (s *Server) Serve(ctx context.Context, opts Options) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring dev server.", "root", opts.Root, "addr", opts.Addr)

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return dag.Fatal(fmt.Errorf("failed to bind dev server to %s: %w", opts.Addr, err))
	}

	mux := http.NewServeMux()
	mux.Handle(socketPath, s.io.ServeHandler(nil))
	mux.HandleFunc(healthPath, func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
	})
	mux.HandleFunc(clientPath, serveScript(clientScript))
	mux.HandleFunc(ioClientPath, serveScript(ioClientScript))
	mux.Handle("/", newStaticHandler(opts.Root, Snippet(opts.Notify)))

	httpServer := &http.Server{Handler: mux}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()
	logger.Info("🌐 Dev server listening", "url", fmt.Sprintf("http://%s/", ln.Addr()), "root", opts.Root)

	select {
	case <-ctx.Done():
		logger.Info("🌐 Shutting down dev server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.io.Close(nil)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Dev server shutdown failed", "error", err)
			return err
		}
		logger.Debug("Dev server shut down gracefully.")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("dev server failed: %w", err)
		}
		return nil
	}
}

func serveScript(body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(body)
	}
}

// Reload asks every connected browser to reload the page.
func (s *Server) Reload(ctx context.Context, paths ...string) {
	ctxlog.FromContext(ctx).Info("🔄 Reloading browsers", "paths", paths, "clients", s.Clients())
	s.io.Emit(EventReload, map[string]any{"paths": paths})
}

// InjectCSS asks every connected browser to swap the given stylesheets in
// place without a page reload.
func (s *Server) InjectCSS(ctx context.Context, paths ...string) {
	ctxlog.FromContext(ctx).Info("🎨 Injecting styles", "paths", paths, "clients", s.Clients())
	s.io.Emit(EventCSS, map[string]any{"paths": paths})
}
