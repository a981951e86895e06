// Package behavior holds the per-agent historical baseline used as the
// comparison point for anomaly detection.
package behavior

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	h3 "github.com/uber/h3-go/v4"
	"go.uber.org/zap"

	"github.com/trackforce/fieldguard/internal/location"
	"github.com/trackforce/fieldguard/pkg/storage"
)

// commonLocationResolution buckets common locations into H3 cells of about
// 460 m edge length, coarse enough to absorb GPS jitter.
const commonLocationResolution = 8

// WorkingHours is the agent's typical activity window (hours of day)
type WorkingHours struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// CommonLocation is a frequently visited place, bucketed by H3 cell
type CommonLocation struct {
	Cell      string  `json:"cell"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Frequency int     `json:"frequency"`
}

// Pattern is the per-agent baseline. It is only ever updated, never deleted.
type Pattern struct {
	AgentID                     string           `json:"agent_id"`
	AverageVisitDurationMinutes float64          `json:"average_visit_duration_minutes"`
	VisitCount                  int              `json:"visit_count"`
	WorkingHours                WorkingHours     `json:"typical_working_hours"`
	CommonLocations             []CommonLocation `json:"common_locations"`
	AverageMovementSpeed        float64          `json:"average_movement_speed"` // m/s
	LastUpdated                 time.Time        `json:"last_updated"`
}

// CellFor returns the H3 cell string for a coordinate, or "" when the
// coordinate cannot be indexed.
func CellFor(latitude, longitude float64) string {
	cell, err := h3.LatLngToCell(h3.NewLatLng(latitude, longitude), commonLocationResolution)
	if err != nil {
		return ""
	}
	return cell.String()
}

// IsCommonLocation reports whether a coordinate falls in one of the agent's
// common-location cells.
func (p *Pattern) IsCommonLocation(latitude, longitude float64) bool {
	cell := CellFor(latitude, longitude)
	if cell == "" {
		return false
	}
	for _, c := range p.CommonLocations {
		if c.Cell == cell {
			return true
		}
	}
	return false
}

// Store loads and updates baselines through the key-value contract
type Store struct {
	store storage.Store
	log   *zap.Logger
}

// NewStore creates a baseline store
func NewStore(store storage.Store, log *zap.Logger) *Store {
	return &Store{store: store, log: log}
}

// Load returns the agent's baseline, or (nil, nil) when none has been
// trained yet. Absence is not an error and never by itself produces a flag.
func (s *Store) Load(ctx context.Context, agentID string) (*Pattern, error) {
	data, err := s.store.Get(ctx, storage.BehaviorPatternKey(agentID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load behavior pattern: %w", err)
	}

	var p Pattern
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode behavior pattern: %w", err)
	}
	return &p, nil
}

// Save persists the baseline
func (s *Store) Save(ctx context.Context, p *Pattern) error {
	p.LastUpdated = time.Now()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode behavior pattern: %w", err)
	}
	if err := s.store.Set(ctx, storage.BehaviorPatternKey(p.AgentID), data); err != nil {
		return fmt.Errorf("save behavior pattern: %w", err)
	}
	return nil
}

// RecordVisit incrementally folds a completed visit into the baseline:
// running average of visit duration and a frequency bump for the visit's
// H3 cell. Creates a fresh baseline on first use.
func (s *Store) RecordVisit(ctx context.Context, agentID string, loc location.Point, durationMinutes float64) (*Pattern, error) {
	p, err := s.Load(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = &Pattern{
			AgentID:      agentID,
			WorkingHours: WorkingHours{Start: 8, End: 17},
		}
	}

	p.AverageVisitDurationMinutes =
		(p.AverageVisitDurationMinutes*float64(p.VisitCount) + durationMinutes) /
			float64(p.VisitCount+1)
	p.VisitCount++

	if cell := CellFor(loc.Latitude, loc.Longitude); cell != "" {
		found := false
		for i := range p.CommonLocations {
			if p.CommonLocations[i].Cell == cell {
				p.CommonLocations[i].Frequency++
				found = true
				break
			}
		}
		if !found {
			p.CommonLocations = append(p.CommonLocations, CommonLocation{
				Cell:      cell,
				Latitude:  loc.Latitude,
				Longitude: loc.Longitude,
				Frequency: 1,
			})
		}
	}

	if err := s.Save(ctx, p); err != nil {
		// Persist failure degrades to in-memory state for this cycle
		s.log.Warn("failed to persist behavior pattern, continuing in-memory",
			zap.String("agent_id", agentID), zap.Error(err))
	}
	return p, nil
}
