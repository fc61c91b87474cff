// Package fileservice is the device side of filehop: an HTTP server that
// exposes one local directory tree to peers.
//
// Every request path is an absolute slash-separated path ("/photos/a.jpg")
// interpreted relative to the served root; nothing outside the root is
// reachable. Errors are plain text with a matching status code.
package fileservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/filehop/filehop/internal/constants"
	"github.com/filehop/filehop/internal/logging"
	"github.com/filehop/filehop/internal/metrics"
	"github.com/filehop/filehop/internal/models"
)

// Config configures a Server.
type Config struct {
	// Root is the local directory served as "/".
	Root string

	// Name is the device name reported by /api/device/info.
	Name string

	// IP is the reported address. Empty means detect the outbound address.
	IP string

	// Port is the reported port.
	Port int

	// HomeDir is a local directory under Root that clients open first.
	HomeDir string

	Metrics *metrics.Metrics // optional
	Logger  *logging.Logger
}

// Server serves the file API for one root directory.
type Server struct {
	root     string
	device   models.Device
	metrics  *metrics.Metrics
	logger   *logging.Logger
	throttle atomic.Uint64
}

// NewServer validates cfg and creates a server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	port := cfg.Port
	if port == 0 {
		port = constants.DefaultPort
	}
	ip := cfg.IP
	if ip == "" {
		ip = outboundIP()
	}
	name := cfg.Name
	if name == "" {
		name, _ = os.Hostname()
	}

	s := &Server{
		root: root,
		device: models.Device{
			Name:     name,
			IP:       ip,
			Port:     port,
			Platform: models.PlatformFromGOOS(runtime.GOOS),
			HomeDir:  requestPath(root, cfg.HomeDir),
		},
		metrics: cfg.Metrics,
		logger:  logger.Component("fileservice"),
	}
	return s, nil
}

// Root returns the served directory.
func (s *Server) Root() string {
	return s.root
}

// Device returns what the server reports about itself.
func (s *Server) Device() models.Device {
	return s.device
}

// Throttle returns the bandwidth limit last set by a client, 0 for none.
// The value is stored and reported only.
func (s *Server) Throttle() uint64 {
	return s.throttle.Load()
}

// Handler returns the HTTP handler with CORS, logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/device/info", s.handleDeviceInfo)
	mux.HandleFunc("GET /api/files", s.handleList)
	mux.HandleFunc("DELETE /api/files", s.handleDelete)
	mux.HandleFunc("GET /api/files/download", s.handleDownload)
	mux.HandleFunc("POST /api/files/upload", s.handleUpload)
	mux.HandleFunc("PUT /api/files/rename", s.handleRename)
	mux.HandleFunc("POST /api/files/mkdir", s.handleMkdir)
	mux.HandleFunc("PUT /api/settings/throttle", s.handleThrottle)
	mux.HandleFunc("POST /api/logs", s.handleLogs)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var h http.Handler = mux
	if s.metrics != nil {
		h = s.metrics.Middleware(h)
	}
	return corsMiddleware(s.loggingMiddleware(h))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: constants.ServerReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("addr", ln.Addr().String()).
			Str("root", s.root).
			Msg("file service listening")
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("file service shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		httpServer.Close()
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("query", r.URL.RawQuery).
			Str("remote", r.RemoteAddr).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// corsMiddleware allows any origin, so browser clients on other devices
// can call the API directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, HEAD, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		h.Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestPath maps a local directory under root to its request path.
// Directories outside root, or an empty dir, map to "".
func requestPath(root, dir string) string {
	if dir == "" {
		return ""
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	if rel == "." {
		return "/"
	}
	return "/" + filepath.ToSlash(rel)
}

// outboundIP returns the address the host would use to reach the LAN.
// No packet is sent; "unknown" when there is no route.
func outboundIP() string {
	conn, err := net.Dial("udp", "192.0.2.1:80")
	if err != nil {
		return "unknown"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "unknown"
}
