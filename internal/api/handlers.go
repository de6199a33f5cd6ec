package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cephie-studios/pfcontrol/internal/db"
	"github.com/cephie-studios/pfcontrol/internal/flight"
	"github.com/cephie-studios/pfcontrol/internal/scoring"
	"github.com/cephie-studios/pfcontrol/internal/types"
	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

const recentFlightsLimit = 10

// LiveFlightView is the in-progress representation of a flight: the
// stored plan plus the live snapshot and approximate running metrics.
type LiveFlightView struct {
	Flight          *types.Flight            `json:"flight"`
	Live            *types.ActiveFlightState `json:"live"`
	ElapsedMinutes  int                      `json:"elapsed_minutes"`
	DistanceNM      float64                  `json:"distance_nm"`
	SmoothnessScore *float64                 `json:"smoothness_score,omitempty"`
}

// PilotProfile bundles everything the profile page renders in one
// response.
type PilotProfile struct {
	Stats         *types.PilotStats    `json:"stats"`
	RecentFlights []*types.Flight      `json:"recent_flights"`
	Monthly       []db.MonthlyActivity `json:"monthly_activity"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGetFlight serves either view of a flight: completed flights
// return the stored record, in-progress flights return the live state
// with approximate metrics computed on read.
func (s *Server) handleGetFlight(w http.ResponseWriter, r *http.Request) {
	flightID := chi.URLParam(r, "flightID")

	f, err := s.db.GetFlight(flightID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load flight")
		s.log.Error("Flight lookup failed", logger.String("flight_id", flightID), logger.Error(err))
		return
	}
	if f == nil {
		s.writeError(w, http.StatusNotFound, "flight not found")
		return
	}
	if f.Status.Terminal() {
		s.writeJSON(w, http.StatusOK, f)
		return
	}

	state, err := s.db.GetActiveFlightByFlightID(flightID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load live state")
		s.log.Error("Live state lookup failed", logger.String("flight_id", flightID), logger.Error(err))
		return
	}

	view := &LiveFlightView{Flight: f, Live: state}
	start := f.CreatedAt
	if f.FlightStart != nil {
		start = *f.FlightStart
	}
	view.ElapsedMinutes = int(time.Since(start).Minutes())

	points, err := s.db.LiveTelemetryForFlight(flightID)
	if err != nil {
		s.log.Warn("Live telemetry lookup failed", logger.String("flight_id", flightID), logger.Error(err))
	} else {
		view.DistanceNM = scoring.TotalDistanceNM(points)
		view.SmoothnessScore = scoring.LiveApproximate{}.Score(points)
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteFlight(w http.ResponseWriter, r *http.Request) {
	flightID := chi.URLParam(r, "flightID")
	requesterID := r.Header.Get("X-User-ID")
	isAdmin := r.Header.Get("X-Admin") == "true"

	if requesterID == "" && !isAdmin {
		s.writeError(w, http.StatusUnauthorized, "requester identity required")
		return
	}

	err := s.lifecycle.Delete(r.Context(), flightID, requesterID, isAdmin)
	switch {
	case errors.Is(err, flight.ErrFlightNotFound):
		s.writeError(w, http.StatusNotFound, "flight not found")
	case errors.Is(err, flight.ErrNotOwner):
		s.writeError(w, http.StatusForbidden, "not your flight")
	case errors.Is(err, flight.ErrInvalidStatus):
		s.writeError(w, http.StatusConflict, "only pending flights can be deleted")
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "failed to delete flight")
		s.log.Error("Flight delete failed", logger.String("flight_id", flightID), logger.Error(err))
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleCreateShareToken(w http.ResponseWriter, r *http.Request) {
	flightID := chi.URLParam(r, "flightID")
	requesterID := r.Header.Get("X-User-ID")
	if requesterID == "" {
		s.writeError(w, http.StatusUnauthorized, "requester identity required")
		return
	}

	token, err := s.lifecycle.ShareToken(r.Context(), flightID, requesterID)
	switch {
	case errors.Is(err, flight.ErrFlightNotFound):
		s.writeError(w, http.StatusNotFound, "flight not found")
	case errors.Is(err, flight.ErrNotOwner):
		s.writeError(w, http.StatusForbidden, "not your flight")
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, "failed to create share token")
		s.log.Error("Share token failed", logger.String("flight_id", flightID), logger.Error(err))
	default:
		s.writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// handleShareLookup resolves a share token. The Redis mapping is a
// fast path only; a cache miss falls through to the flights table.
func (s *Server) handleShareLookup(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if flightID, err := s.cache.GetShareToken(r.Context(), token); err == nil && flightID != "" {
		f, err := s.db.GetFlight(flightID)
		if err == nil && f != nil {
			s.writeJSON(w, http.StatusOK, f)
			return
		}
	}

	f, err := s.db.GetFlightByShareToken(token)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to resolve share token")
		s.log.Error("Share lookup failed", logger.Error(err))
		return
	}
	if f == nil {
		s.writeError(w, http.StatusNotFound, "unknown share token")
		return
	}
	s.writeJSON(w, http.StatusOK, f)
}

// handlePilotProfile serves the cached stats plus recent flights and
// the monthly rollup. A user with no cached row gets one computed on
// the spot.
func (s *Server) handlePilotProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	pilotStats, err := s.db.GetPilotStats(userID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load stats")
		s.log.Error("Stats lookup failed", logger.String("user_id", userID), logger.Error(err))
		return
	}
	if pilotStats == nil {
		pilotStats, err = s.agg.Recompute(userID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to compute stats")
			s.log.Error("Stats recompute failed", logger.String("user_id", userID), logger.Error(err))
			return
		}
	}

	recent, err := s.db.RecentCompletedFlights(userID, recentFlightsLimit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load recent flights")
		s.log.Error("Recent flights lookup failed", logger.String("user_id", userID), logger.Error(err))
		return
	}
	monthly, err := s.db.GetMonthlyActivity(userID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load monthly activity")
		s.log.Error("Monthly activity lookup failed", logger.String("user_id", userID), logger.Error(err))
		return
	}

	s.writeJSON(w, http.StatusOK, &PilotProfile{
		Stats:         pilotStats,
		RecentFlights: recent,
		Monthly:       monthly,
	})
}

// handleStatsRefresh queues a recompute and returns immediately.
func (s *Server) handleStatsRefresh(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	s.stats.Enqueue(userID)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("Failed to encode response", logger.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
