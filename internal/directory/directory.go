// Package directory tracks which authenticated HTTP sessions currently back
// websocket connections, and for how long they have been idle. It never closes
// connections itself; the liveness supervisor consults IsValid and prunes.
package directory

import (
	"context"
	"sync"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/logger"
)

// Entry is one tracked session.
type Entry struct {
	SessionID    string
	UserID       string
	LastActivity time.Time
	// ExpiresAt is the HTTP session's absolute expiry; zero means none.
	ExpiresAt time.Time
	Valid     bool
}

type Directory struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	maxAge  time.Duration
	now     func() time.Time
}

// New returns a Directory that forgets sessions idle for longer than maxAge.
func New(maxAge time.Duration) *Directory {
	return &Directory{
		entries: make(map[string]*Entry),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Track creates the entry for sessionID, or revalidates and refreshes an
// existing one. Successive connections from one browser session share it.
// Past expiresAt the entry is invalid no matter how active its sockets are.
func (d *Directory) Track(sessionID, userID string, expiresAt time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if e, ok := d.entries[sessionID]; ok {
		e.UserID = userID
		e.LastActivity = now
		e.ExpiresAt = expiresAt
		e.Valid = true
		return
	}
	d.entries[sessionID] = &Entry{
		SessionID:    sessionID,
		UserID:       userID,
		LastActivity: now,
		ExpiresAt:    expiresAt,
		Valid:        true,
	}
}

// RecordActivity refreshes lastActivity. Unknown ids are ignored.
func (d *Directory) RecordActivity(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.entries[sessionID]; ok {
		e.LastActivity = d.now()
	}
}

// Invalidate marks the session invalid. Unknown ids are ignored and repeated
// calls have no further effect.
func (d *Directory) Invalidate(sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.entries[sessionID]; ok {
		e.Valid = false
	}
}

// IsValid reports whether sessionID is tracked, not invalidated, not past
// maxAge and not past the session's absolute expiry.
func (d *Directory) IsValid(sessionID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.entries[sessionID]
	if !ok {
		return false
	}
	return e.Valid && !d.stale(e)
}

// Get returns a copy of the entry.
func (d *Directory) Get(sessionID string) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.entries[sessionID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Sweep deletes invalid, idle and expired entries and returns how many it removed.
func (d *Directory) Sweep() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for id, e := range d.entries {
		if !e.Valid || d.stale(e) {
			delete(d.entries, id)
			removed++
		}
	}
	return removed
}

func (d *Directory) stale(e *Entry) bool {
	now := d.now()
	if !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt) {
		return true
	}
	return now.Sub(e.LastActivity) > d.maxAge
}

// Len returns the number of tracked entries, valid or not.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Clear drops every entry. Used at shutdown.
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = make(map[string]*Entry)
}

// Run sweeps every interval until ctx is cancelled.
func (d *Directory) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := d.Sweep(); n > 0 {
				logger.Debug("session directory swept", map[string]any{
					"removed":   n,
					"remaining": d.Len(),
				})
			}
		case <-ctx.Done():
			return
		}
	}
}
