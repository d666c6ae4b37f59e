package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/Tenac92/LEXIS-sub001/internal/event"
	"github.com/Tenac92/LEXIS-sub001/internal/geo"
	"github.com/Tenac92/LEXIS-sub001/internal/logger"
	"github.com/Tenac92/LEXIS-sub001/internal/session"
)

// RoleAdmin sees every event; its connections get an empty (unrestricted) scope.
const RoleAdmin = "admin"

// Identity is what a successful session replay yields for one upgrade request.
type Identity struct {
	SessionID   string
	UserID      string
	Role        string
	Scope       event.UnitSet
	GeoVerified bool
	// ExpiresAt is the session's absolute expiry. Sockets are closed once it passes.
	ExpiresAt time.Time

	session *session.Session
}

// ScopeSource lists the organisational units a user is assigned to.
type ScopeSource interface {
	UnitIDs(ctx context.Context, userID string) ([]int64, error)
}

// IdentityResolver authenticates an upgrade request.
type IdentityResolver interface {
	Resolve(ctx context.Context, r *http.Request) (*Identity, error)
	MarkGeoVerified(ctx context.Context, id *Identity) error
}

// AccessGuard is the jurisdiction policy applied before a socket is accepted.
type AccessGuard interface {
	Decide(ctx context.Context, remote, direct net.IP, sessionVerified bool) geo.Decision
}

// SessionResolver replays the HTTP session cookie through the same
// Authenticator the REST middleware uses, then loads the user's unit scope.
type SessionResolver struct {
	auth   *session.Authenticator
	scopes ScopeSource
}

func NewSessionResolver(auth *session.Authenticator, scopes ScopeSource) *SessionResolver {
	return &SessionResolver{auth: auth, scopes: scopes}
}

// Resolve returns ErrUnauthenticated for every failure: missing cookie,
// unknown or expired session, store outage, missing identity fields or a
// non-admin user with no unit assignment. The cause is only logged.
func (s *SessionResolver) Resolve(ctx context.Context, r *http.Request) (*Identity, error) {
	sess, err := s.auth.Authenticate(ctx, r)
	if err != nil {
		if !errors.Is(err, session.ErrNoCookie) {
			logger.Info("websocket session rejected", map[string]any{
				"error": err.Error(),
			})
		}
		return nil, ErrUnauthenticated
	}

	ident := &Identity{
		SessionID:   sess.SessionID,
		UserID:      sess.UserID,
		Role:        sess.Role,
		GeoVerified: sess.GeoVerified,
		ExpiresAt:   sess.AbsoluteExpiresAt,
		session:     sess,
	}

	if sess.Role == RoleAdmin {
		ident.Scope = event.NewUnitSet()
		return ident, nil
	}

	if s.scopes == nil {
		return nil, ErrUnauthenticated
	}
	ids, err := s.scopes.UnitIDs(ctx, sess.UserID)
	if err != nil {
		logger.Error("unit scope lookup failed", map[string]any{
			"user_id": sess.UserID,
			"error":   err.Error(),
		})
		return nil, ErrUnauthenticated
	}
	if len(ids) == 0 {
		logger.Info("websocket rejected: user has no unit assignment", map[string]any{
			"user_id": sess.UserID,
		})
		return nil, ErrUnauthenticated
	}
	ident.Scope = event.NewUnitSet(ids...)
	return ident, nil
}

// MarkGeoVerified records the jurisdiction exemption on the stored session.
func (s *SessionResolver) MarkGeoVerified(ctx context.Context, id *Identity) error {
	if id == nil || id.session == nil {
		return nil
	}
	if err := s.auth.MarkGeoVerified(ctx, id.session); err != nil {
		return err
	}
	id.GeoVerified = true
	return nil
}
