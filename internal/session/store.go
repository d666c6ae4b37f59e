package session

import (
	"context"
	"time"
)

// Session is the HTTP session record shared by the web application and the
// notification gateway. It stores identity pointers only.
type Session struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Role      string `json:"role"`

	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	// ExpiresAt is the rolling idle expiry, pushed forward on every authenticated request.
	ExpiresAt time.Time `json:"expiresAt"`
	// AbsoluteExpiresAt is never extended.
	AbsoluteExpiresAt time.Time `json:"absoluteExpiresAt"`

	// GeoVerified is set once a request from this session passed the jurisdiction check.
	GeoVerified bool `json:"geoVerified"`
}

// Expired reports whether either expiry has passed at now.
func (s *Session) Expired(now time.Time) bool {
	if now.After(s.ExpiresAt) {
		return true
	}
	return !s.AbsoluteExpiresAt.IsZero() && now.After(s.AbsoluteExpiresAt)
}

// Store defines how sessions are stored and retrieved.
// Get returns (nil, nil) when the session does not exist.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
}
