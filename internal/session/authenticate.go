package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/logger"
)

var (
	ErrNoCookie       = errors.New("session: no session cookie")
	ErrUnknownSession = errors.New("session: unknown session")
	ErrExpired        = errors.New("session: expired")
	ErrIncomplete     = errors.New("session: missing identity fields")

	ErrDuplicateSession = errors.New("session: id already in use")
)

// Authenticator turns a session cookie into a live Session. Every entry point
// that needs an identity (HTTP middleware, websocket upgrade) goes through
// Authenticate so both apply the same rules.
type Authenticator struct {
	store       Store
	idleTTL     time.Duration
	absoluteTTL time.Duration
	now         func() time.Time
	entropy     io.Reader
}

const (
	idBytes = 32

	// a colliding id is retried this many times before Issue gives up
	issueAttempts = 3
)

// newSessionID returns a URL-safe id carrying idBytes of entropy from r.
func newSessionID(r io.Reader) (string, error) {
	b := make([]byte, idBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("session: generate id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func NewAuthenticator(store Store, idleTTL, absoluteTTL time.Duration) *Authenticator {
	return &Authenticator{
		store:       store,
		idleTTL:     idleTTL,
		absoluteTTL: absoluteTTL,
		now:         time.Now,
		entropy:     rand.Reader,
	}
}

// Store exposes the underlying store for logout.
func (a *Authenticator) Store() Store {
	return a.store
}

// Authenticate reads the session cookie from r and loads the session.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) (*Session, error) {
	sessionID, ok := IDFromRequest(r)
	if !ok {
		return nil, ErrNoCookie
	}
	return a.AuthenticateID(ctx, sessionID)
}

// AuthenticateID loads and validates a session by id, then pushes its idle
// expiry forward.
func (a *Authenticator) AuthenticateID(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	if sess == nil {
		return nil, ErrUnknownSession
	}

	now := a.now()
	if sess.Expired(now) {
		_ = a.store.Delete(ctx, sessionID)
		return nil, ErrExpired
	}

	if sess.UserID == "" || sess.Role == "" {
		return nil, ErrIncomplete
	}

	a.touch(ctx, sess, now)
	return sess, nil
}

// touch refreshes the rolling expiry. Failure does not fail the request.
func (a *Authenticator) touch(ctx context.Context, sess *Session, now time.Time) {
	expiresAt := now.Add(a.idleTTL)
	if !sess.AbsoluteExpiresAt.IsZero() && expiresAt.After(sess.AbsoluteExpiresAt) {
		expiresAt = sess.AbsoluteExpiresAt
	}
	sess.LastSeenAt = now
	sess.ExpiresAt = expiresAt

	if err := a.store.Update(ctx, *sess); err != nil {
		logger.Warn("session touch failed", map[string]any{
			"error": err.Error(),
		})
	}
}

// Issue creates and persists a new session for an authenticated user.
func (a *Authenticator) Issue(ctx context.Context, userID, role string) (*Session, error) {
	if userID == "" || role == "" {
		return nil, ErrIncomplete
	}

	for attempt := 0; attempt < issueAttempts; attempt++ {
		sessionID, err := newSessionID(a.entropy)
		if err != nil {
			return nil, err
		}

		now := a.now()
		sess := Session{
			SessionID:         sessionID,
			UserID:            userID,
			Role:              role,
			CreatedAt:         now,
			LastSeenAt:        now,
			ExpiresAt:         now.Add(a.idleTTL),
			AbsoluteExpiresAt: now.Add(a.absoluteTTL),
		}

		err = a.store.Create(ctx, sess)
		if errors.Is(err, ErrDuplicateSession) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("session: create: %w", err)
		}
		return &sess, nil
	}
	return nil, ErrDuplicateSession
}

// MarkGeoVerified persists the sticky jurisdiction exemption on the session.
func (a *Authenticator) MarkGeoVerified(ctx context.Context, sess *Session) error {
	if sess.GeoVerified {
		return nil
	}
	sess.GeoVerified = true
	return a.store.Update(ctx, *sess)
}

// Revoke deletes the session. Unknown ids are not an error.
func (a *Authenticator) Revoke(ctx context.Context, sessionID string) error {
	return a.store.Delete(ctx, sessionID)
}
