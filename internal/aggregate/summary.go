package aggregate

import (
	"errors"

	"github.com/kylixs/flareon/internal/models"
)

// ErrNoAggregation is returned when a summary is requested for a missing aggregation.
var ErrNoAggregation = errors.New("no aggregation")

// BuildSummary projects an aggregation into its summary: the time span and
// the number of events per type.
func BuildSummary(agg *Aggregation) (*models.Summary, error) {
	if agg == nil {
		return nil, ErrNoAggregation
	}

	agg.mu.RLock()
	defer agg.mu.RUnlock()

	s := models.NewSummary()
	s.StartTime = agg.startTime
	s.EndTime = agg.endTime
	s.DurationMs = agg.durationMs
	for typ, bucket := range agg.buckets {
		s.EventStats[typ] = len(bucket)
	}
	return s, nil
}
