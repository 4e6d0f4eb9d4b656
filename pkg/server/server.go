// Package server exposes the vulnerability collection and the remote report
// sources over a JSON HTTP API.
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"github.com/user/vulndash/pkg/engine"
	"github.com/user/vulndash/pkg/ingest"
	"github.com/user/vulndash/pkg/remote"
)

const (
	ShutdownTimeout = 30 * time.Second
	maxBodyBytes    = 10 << 20
)

// SourceFactory opens a report source for the connection settings of a request.
type SourceFactory func(cfg remote.Config) (remote.Source, error)

type Server struct {
	store       *engine.Store
	pipeline    *ingest.Pipeline
	sources     SourceFactory
	remediation *engine.RemediationEngine
	now         func() time.Time
	mux         *http.ServeMux
}

type Option func(*Server)

func WithSourceFactory(f SourceFactory) Option {
	return func(s *Server) { s.sources = f }
}

func WithPipeline(p *ingest.Pipeline) Option {
	return func(s *Server) { s.pipeline = p }
}

func WithRemediation(e *engine.RemediationEngine) Option {
	return func(s *Server) { s.remediation = e }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New builds a server over store. Without a source factory every request is
// served by the simulated host.
func New(store *engine.Store, opts ...Option) *Server {
	s := &Server{
		store:    store,
		pipeline: ingest.New(),
		sources: func(cfg remote.Config) (remote.Source, error) {
			return remote.NewMockSource(cfg), nil
		},
		now: time.Now,
		mux: http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/ssh-test", s.handleSSHTest)
	s.mux.HandleFunc("POST /api/ssh-files", s.handleSSHFiles)
	s.mux.HandleFunc("POST /api/scans", s.handleLoadScan)
	s.mux.HandleFunc("GET /api/scans", s.handleListScans)
	s.mux.HandleFunc("POST /api/webhook", s.handleWebhook)
	s.mux.HandleFunc("GET /api/vulnerabilities", s.handleVulnerabilities)
	s.mux.HandleFunc("GET /api/vulnerabilities/{id}/remediation", s.handleRemediation)
	s.mux.HandleFunc("GET /api/metrics", s.handleMetrics)
	s.mux.HandleFunc("GET /api/websocket", s.handleWebsocket)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
}

// Handler returns the routes wrapped in request id and access log middleware.
func (s *Server) Handler() http.Handler {
	return requestID(accessLog(s.mux))
}

// Serve listens on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "listen on %s", addr)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	server := http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("address", ln.Addr().String()).Msg("start http server")
		serveErr <- server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "http server stopped")
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	server.SetKeepAlivesEnabled(false)
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "could not gracefully shutdown the server")
	}
	log.Info().Msg("shutdown server successfully")
	return nil
}
