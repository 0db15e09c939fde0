package models

import (
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// Summary is the externally visible projection of a parsed trace file.
// Times are in the decoder's native unit (nanoseconds for every bundled decoder).
type Summary struct {
	StartTime  int64          `json:"startTime" msgpack:"startTime"`
	EndTime    int64          `json:"endTime" msgpack:"endTime"`
	DurationMs int64          `json:"durationMs" msgpack:"durationMs"`
	EventStats map[string]int `json:"eventStats" msgpack:"eventStats"`
}

// EventStat is a single event type count.
type EventStat struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// NewSummary creates an empty Summary.
func NewSummary() *Summary {
	return &Summary{
		EventStats: make(map[string]int),
	}
}

// Stats returns the event counts ordered by type name.
func (s *Summary) Stats() []EventStat {
	stats := make([]EventStat, 0, len(s.EventStats))
	for typ, n := range s.EventStats {
		stats = append(stats, EventStat{Type: typ, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Type < stats[j].Type
	})
	return stats
}

// TotalEvents returns the sum of all event counts.
func (s *Summary) TotalEvents() int {
	total := 0
	for _, n := range s.EventStats {
		total += n
	}
	return total
}

var _ msgpack.CustomEncoder = (*Summary)(nil)

// EncodeMsgpack writes the summary as a map with eventStats ordered by type
// name. The library only sorts keys of a few generic map types.
func (s *Summary) EncodeMsgpack(enc *msgpack.Encoder) error {
	if s == nil {
		return enc.EncodeNil()
	}
	if err := enc.EncodeMapLen(4); err != nil {
		return err
	}

	fields := []struct {
		key   string
		value int64
	}{
		{"startTime", s.StartTime},
		{"endTime", s.EndTime},
		{"durationMs", s.DurationMs},
	}
	for _, f := range fields {
		if err := enc.EncodeString(f.key); err != nil {
			return err
		}
		if err := enc.EncodeInt(f.value); err != nil {
			return err
		}
	}

	if err := enc.EncodeString("eventStats"); err != nil {
		return err
	}
	stats := s.Stats()
	if err := enc.EncodeMapLen(len(stats)); err != nil {
		return err
	}
	for _, stat := range stats {
		if err := enc.EncodeString(stat.Type); err != nil {
			return err
		}
		if err := enc.EncodeInt(int64(stat.Count)); err != nil {
			return err
		}
	}
	return nil
}
