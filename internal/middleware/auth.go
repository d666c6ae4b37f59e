package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Tenac92/LEXIS-sub001/internal/logger"
	"github.com/Tenac92/LEXIS-sub001/internal/session"
)

// unexported, collision-proof context key
type sessionContextKeyType struct{}

var sessionKey = sessionContextKeyType{}

// SessionFromContext returns the session attached by RequireAuth.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*session.Session)
	return s, ok
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return "", false
	}
	return s.UserID, true
}

type AuthMiddleware struct {
	auth *session.Authenticator
}

func NewAuthMiddleware(auth *session.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := a.auth.Authenticate(r.Context(), r)
		if err != nil {
			if !isRoutineAuthFailure(err) {
				logger.Error("session lookup failed", map[string]any{
					"error": err.Error(),
					"path":  r.URL.Path,
				})
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isRoutineAuthFailure(err error) bool {
	return errors.Is(err, session.ErrNoCookie) ||
		errors.Is(err, session.ErrUnknownSession) ||
		errors.Is(err, session.ErrExpired) ||
		errors.Is(err, session.ErrIncomplete)
}
