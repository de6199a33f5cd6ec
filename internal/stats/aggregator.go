package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/cephie-studios/pfcontrol/internal/db"
	"github.com/cephie-studios/pfcontrol/internal/types"
	"github.com/cephie-studios/pfcontrol/pkg/logger"
)

// Aggregator recomputes a pilot's career statistics from their completed
// flights. Recomputes are full rebuilds, never increments, so a missed
// refresh self-heals on the next one.
type Aggregator struct {
	db  *db.Client
	log *logger.Logger
	now func() time.Time
}

func NewAggregator(dbClient *db.Client, log *logger.Logger) *Aggregator {
	return &Aggregator{
		db:  dbClient,
		log: log.Named("stats"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Recompute rebuilds and stores the cached stats row for one user. A
// user with no completed flights gets a zeroed row rather than none, so
// profile reads never recompute twice.
func (a *Aggregator) Recompute(userID string) (*types.PilotStats, error) {
	flights, err := a.db.CompletedFlights(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed flights: %w", err)
	}

	s := &types.PilotStats{
		UserID:      userID,
		LastUpdated: a.now(),
	}

	aircraftCounts := map[string]int{}
	departureCounts := map[string]int{}
	var landingScoreSum float64
	var landingScoreCount int

	for _, f := range flights {
		s.TotalFlights++
		if f.DurationMinutes != nil && *f.DurationMinutes > 0 {
			s.TotalFlightMinutes += *f.DurationMinutes
		}
		if f.TotalDistanceNM != nil {
			s.TotalDistanceNM += *f.TotalDistanceNM
			if s.LongestFlightNM == nil || *f.TotalDistanceNM > *s.LongestFlightNM {
				s.LongestFlightNM = f.TotalDistanceNM
				id := f.ID
				s.LongestFlightID = &id
			}
		}
		if f.Aircraft != "" {
			aircraftCounts[f.Aircraft]++
			if aircraftCounts[f.Aircraft] > s.FavoriteAircraftCount {
				s.FavoriteAircraftCount = aircraftCounts[f.Aircraft]
				name := f.Aircraft
				s.FavoriteAircraft = &name
			}
		}
		if f.Departure != "" {
			departureCounts[f.Departure]++
			if departureCounts[f.Departure] > s.FavoriteDepartureCount {
				s.FavoriteDepartureCount = departureCounts[f.Departure]
				name := f.Departure
				s.FavoriteDeparture = &name
			}
		}
		if f.LandingRateFPM != nil {
			abs := math.Abs(*f.LandingRateFPM)
			if s.SmoothestLandingRate == nil || abs < math.Abs(*s.SmoothestLandingRate) {
				s.SmoothestLandingRate = f.LandingRateFPM
				id := f.ID
				s.SmoothestLandingFlight = &id
			}
		}
		if f.LandingScore != nil {
			landingScoreSum += *f.LandingScore
			landingScoreCount++
		}
		if f.MaxAltitudeFt != nil && (s.HighestAltitudeFt == nil || *f.MaxAltitudeFt > *s.HighestAltitudeFt) {
			s.HighestAltitudeFt = f.MaxAltitudeFt
		}
	}

	s.TotalHours = math.Round(float64(s.TotalFlightMinutes)/60*100) / 100
	s.TotalDistanceNM = math.Round(s.TotalDistanceNM*100) / 100
	if landingScoreCount > 0 {
		avg := math.Round(landingScoreSum/float64(landingScoreCount)*10) / 10
		s.AverageLandingScore = &avg
	}

	if err := a.db.UpsertPilotStats(s); err != nil {
		return nil, fmt.Errorf("failed to store stats: %w", err)
	}
	a.log.Debug("Stats recomputed",
		logger.String("user_id", userID),
		logger.Int("flights", s.TotalFlights))
	return s, nil
}
