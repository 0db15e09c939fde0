// Package models contains domain types for the Flareon trace service.
package models

import "time"

// TraceFile represents a trace file discovered in the trace directory.
type TraceFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"` // Absolute path
	Size       int64     `json:"size"` // Byte length at discovery time
	ModifiedAt time.Time `json:"modifiedAt"`
}
