// Package service adapts the pipeline to the two ingestion paths and keeps
// process-wide counters.
package service

import (
	"sync/atomic"
	"time"
)

// Stats counts pipeline results across both ingestion paths.
type Stats struct {
	startedAt  time.Time
	processed  atomic.Uint64
	duplicates atomic.Uint64
	dropped    atomic.Uint64
	failed     atomic.Uint64
}

// NewStats starts the uptime clock.
func NewStats() *Stats {
	return &Stats{startedAt: time.Now().UTC()}
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	Processed     uint64 `json:"processed"`
	Duplicates    uint64 `json:"duplicates"`
	Dropped       uint64 `json:"dropped"`
	Failed        uint64 `json:"failed"`
}

// Health returns live counters for readiness checks.
func (s *Stats) Health() Snapshot {
	return Snapshot{
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Processed:     s.processed.Load(),
		Duplicates:    s.duplicates.Load(),
		Dropped:       s.dropped.Load(),
		Failed:        s.failed.Load(),
	}
}
