package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kompromat/kompromat/pkg/documents"
	"github.com/kompromat/kompromat/pkg/events"
	"github.com/kompromat/kompromat/pkg/governor"
	"github.com/kompromat/kompromat/pkg/log"
	"github.com/kompromat/kompromat/pkg/metrics"
	"github.com/kompromat/kompromat/pkg/vault"
	"github.com/rs/zerolog"
)

// Options configures the HTTP server
type Options struct {
	// StaticDir, when set, is served at / for the web client
	StaticDir string

	// RequestsPerSecond and Burst size the per-client token bucket on /api.
	// A zero rate disables rate limiting.
	RequestsPerSecond float64
	Burst             int

	// Resolver identifies clients. Nil uses the peer address only.
	Resolver *governor.ClientResolver

	// Events, when set, is consumed for audit logging
	Events *events.Broker

	Version string
}

// Server is the vault HTTP API
type Server struct {
	vault    *vault.Vault
	docs     *documents.Service
	resolver *governor.ClientResolver
	limiter  *clientLimiter
	broker   *events.Broker
	router   chi.Router
	http     *http.Server
	opts     Options
	logger   zerolog.Logger
	audit    zerolog.Logger

	mu      sync.Mutex
	sub     events.Subscriber
	auditWG sync.WaitGroup
}

// NewServer creates the API server and its routes
func NewServer(v *vault.Vault, docs *documents.Service, opts Options) (*Server, error) {
	if v == nil || docs == nil {
		return nil, fmt.Errorf("vault and document service are required")
	}

	resolver := opts.Resolver
	if resolver == nil {
		var err error
		resolver, err = governor.NewClientResolver(false, nil)
		if err != nil {
			return nil, err
		}
	}

	s := &Server{
		vault:    v,
		docs:     docs,
		resolver: resolver,
		broker:   opts.Events,
		opts:     opts,
		logger:   log.WithComponent("api"),
		audit:    log.WithComponent("audit"),
	}
	if opts.RequestsPerSecond > 0 {
		s.limiter = newClientLimiter(opts.RequestsPerSecond, opts.Burst)
	}

	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(recoverer(s.logger))
	r.Use(withClientID(s.resolver))
	r.Use(requestLogger(s.logger))
	r.Use(instrument)

	r.Get("/health", s.healthHandler)
	r.Get("/live", metrics.LivenessHandler())
	r.Get("/ready", s.readyHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(rateLimit(s.limiter))
		}
		r.NotFound(notFound)
		r.MethodNotAllowed(notFound)

		r.Get("/vault/status", s.vaultStatus)
		r.Post("/vault/initialize", s.initializeVault)
		r.Post("/authenticate", s.authenticate)

		r.Get("/access-cards", s.listAccessCards)
		r.Post("/access-cards", s.createAccessCard)
		r.Put("/access-cards/{id}", s.renameAccessCard)
		r.Post("/access-cards/{id}/revoke", s.revokeAccessCard)

		r.Get("/authentication-log", s.authenticationLog)

		r.Get("/documents", s.listDocuments)
		r.Get("/documents/archived", s.listArchivedDocuments)
		r.Post("/documents", s.createDocument)
		r.Put("/documents/{id}", s.updateDocument)
		r.Post("/documents/{id}/archive", s.archiveDocument)
		r.Post("/documents/{id}/restore", s.restoreDocument)
		r.Delete("/documents/{id}", s.deleteDocument)
	})

	if s.opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.opts.StaticDir)))
	}
	return r
}

// Start serves on addr until Shutdown. It returns nil after a clean
// shutdown.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis until Shutdown
func (s *Server) Serve(lis net.Listener) error {
	s.mu.Lock()
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv := s.http
	s.mu.Unlock()

	s.startAudit()
	metrics.RegisterComponent(metrics.ComponentAPI, true, "")
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("API listening")

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		metrics.UpdateComponent(metrics.ComponentAPI, false, err.Error())
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	metrics.UpdateComponent(metrics.ComponentAPI, false, "shutting down")

	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	s.stopAudit()
	return err
}

// startAudit subscribes to vault events and writes them to the audit log
func (s *Server) startAudit() {
	if s.broker == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		return
	}
	s.sub = s.broker.Subscribe()

	s.auditWG.Add(1)
	go func(sub events.Subscriber) {
		defer s.auditWG.Done()
		for event := range sub {
			s.recordEvent(event)
		}
	}(s.sub)
}

func (s *Server) stopAudit() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		s.broker.Unsubscribe(sub)
		s.auditWG.Wait()
	}
}

func (s *Server) recordEvent(event *events.Event) {
	metrics.VaultEventsTotal.WithLabelValues(string(event.Type)).Inc()

	entry := s.audit.Info()
	if event.Type == events.EventAuthFailed {
		entry = s.audit.Warn()
	}
	entry = entry.Str("event", string(event.Type)).Time("at", event.Timestamp)
	for k, v := range event.Metadata {
		entry = entry.Str(k, v)
	}
	entry.Msg(event.Message)
}
