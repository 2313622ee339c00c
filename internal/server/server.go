// Package server exposes a gateway over the JSON API consumed by
// gateway.Client.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/slmtnm/s4json/internal/gateway"
	"github.com/slmtnm/s4json/internal/logger"
	"github.com/slmtnm/s4json/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// Server serves date buckets, listings and file content over HTTP.
type Server struct {
	gw      gateway.Gateway
	addr    string
	handler http.Handler
}

// New returns a Server for gw listening on addr once Run is called.
func New(gw gateway.Gateway, addr string) *Server {
	s := &Server{gw: gw, addr: addr}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/buckets", s.handleBuckets)
	mux.HandleFunc("GET /api/files/{bucket}", s.handleFiles)
	mux.HandleFunc("GET /api/file/{path...}", s.handleFile)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())

	s.handler = middleware(mux)
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("http_addr", ln.Addr().String()).Msg("Starting HTTP server")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.gw.ListBuckets(r.Context())
	if err != nil {
		s.fail(w, r, "buckets", err)
		return
	}
	writeJSON(w, "buckets", http.StatusOK, buckets)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.gw.ListFiles(r.Context(), r.PathValue("bucket"))
	if err != nil {
		s.fail(w, r, "files", err)
		return
	}
	writeJSON(w, "files", http.StatusOK, files)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	content, err := s.gw.GetContent(r.Context(), r.PathValue("path"))
	if err != nil {
		s.fail(w, r, "file", err)
		return
	}
	writeJSON(w, "file", http.StatusOK, contentResponse{Content: content})
}

type contentResponse struct {
	Content string `json:"content"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, route string, err error) {
	if errors.Is(err, gateway.ErrNotFound) {
		writeJSON(w, route, http.StatusNotFound, errorResponse{Error: "File not found"})
		return
	}
	logger.Ctx(r.Context()).Error().Err(err).Str("route", route).Msg("request failed")
	writeJSON(w, route, http.StatusInternalServerError, errorResponse{
		Error:   "Internal server error",
		Details: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, route string, code int, v any) {
	metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
