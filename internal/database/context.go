// Package database bounds how long sentry waits on its alert store.
package database

import (
	"context"
	"time"
)

const (
	// DefaultQueryTimeout bounds duplicate lookups and listings.
	DefaultQueryTimeout = 5 * time.Second
	// DefaultWriteTimeout bounds a single alert insert.
	DefaultWriteTimeout = 10 * time.Second
	// DefaultMigrateTimeout bounds connecting and migrating at startup.
	DefaultMigrateTimeout = 60 * time.Second
)

// QueryContext derives a read deadline from parent.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return bounded(parent, DefaultQueryTimeout)
}

// WriteContext derives a write deadline from parent.
func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return bounded(parent, DefaultWriteTimeout)
}

// bounded keeps an earlier parent deadline instead of stacking a new timer.
func bounded(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := parent.Deadline(); ok && time.Until(deadline) <= d {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}
