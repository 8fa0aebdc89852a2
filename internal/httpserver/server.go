// Package httpserver serves the MCP endpoints over HTTP next to health,
// metrics and optional product image hosting.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/0x5457/product-concierge/internal/logging"
	"github.com/0x5457/product-concierge/internal/metrics"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	MCPPath     = "/mcp"
	ImagesPath  = "/images"
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

// Options selects the MCP transport and image hosting.
type Options struct {
	Transport   string // http, sse
	ImagesDir   string
	ServeImages bool
}

// Server is the HTTP front of the concierge.
type Server struct {
	mcp    *server.MCPServer
	opts   Options
	logger *zap.Logger
	srv    *http.Server
}

func New(mcpServer *server.MCPServer, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{mcp: mcpServer, opts: opts, logger: logger.Named("http")}
}

// Handler builds the router. Streamable HTTP is mounted at /mcp; SSE at
// /mcp/sse with messages posted to /mcp/message.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(metrics.Middleware())

	r.Get(HealthPath, handleHealth)
	r.Handle(MetricsPath, promhttp.Handler())

	switch s.opts.Transport {
	case "http", "":
		r.Handle(MCPPath, server.NewStreamableHTTPServer(s.mcp))
	case "sse":
		sse := server.NewSSEServer(s.mcp, server.WithStaticBasePath(MCPPath))
		r.Handle(MCPPath+"/sse", sse.SSEHandler())
		r.Handle(MCPPath+"/message", sse.MessageHandler())
	default:
		return nil, fmt.Errorf("unsupported http transport: %s (supported: http, sse)", s.opts.Transport)
	}

	if s.opts.ServeImages && s.opts.ImagesDir != "" {
		files := http.StripPrefix(ImagesPath+"/", http.FileServer(http.Dir(s.opts.ImagesDir)))
		r.Get(ImagesPath+"/*", files.ServeHTTP)
	}
	return r, nil
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	h, err := s.Handler()
	if err != nil {
		return err
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			zap.String("addr", addr),
			zap.String("transport", s.opts.Transport),
			zap.Bool("serve_images", s.opts.ServeImages),
		)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chiMiddleware.GetReqID(r.Context())
		if requestID != "" {
			w.Header().Set("X-Request-ID", requestID)
		}
		reqLogger := s.logger.With(zap.String("request_id", requestID))
		ctx := logging.ContextWithLogger(r.Context(), reqLogger)

		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		reqLogger.Debug("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("response_bytes", ww.BytesWritten()),
		)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
