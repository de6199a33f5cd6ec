package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cephie-studios/pfcontrol/internal/db"
	"github.com/cephie-studios/pfcontrol/internal/flight"
	"github.com/cephie-studios/pfcontrol/internal/redis"
	"github.com/cephie-studios/pfcontrol/internal/stats"
	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

// Server is the read-side HTTP surface: flight views, pilot profiles,
// share lookups and the manual stats refresh trigger.
type Server struct {
	db        *db.Client
	cache     *redis.Client
	lifecycle *flight.Manager
	stats     *stats.Worker
	agg       *stats.Aggregator
	log       *logger.Logger
	http      *http.Server
}

func NewServer(addr string, dbClient *db.Client, cache *redis.Client, lifecycle *flight.Manager, worker *stats.Worker, agg *stats.Aggregator, log *logger.Logger) *Server {
	s := &Server{
		db:        dbClient,
		cache:     cache,
		lifecycle: lifecycle,
		stats:     worker,
		agg:       agg,
		log:       log.Named("api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/api/health", s.handleHealth)
	r.Route("/api/flights/{flightID}", func(r chi.Router) {
		r.Get("/", s.handleGetFlight)
		r.Delete("/", s.handleDeleteFlight)
		r.Post("/share", s.handleCreateShareToken)
	})
	r.Get("/api/share/{token}", s.handleShareLookup)
	r.Get("/api/pilots/{userID}/profile", s.handlePilotProfile)
	r.Post("/api/users/{userID}/stats/refresh", s.handleStatsRefresh)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start blocks serving requests until Shutdown or a listener error.
func (s *Server) Start() error {
	s.log.Info("HTTP server listening", logger.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
