package session

import (
	"net/http"
	"time"
)

const CookieName = "__Host-session"

// CookiePolicy decides the attributes of the session cookie. The __Host-
// prefix pins it to the issuing host, so Path is always "/" and no Domain is
// ever sent; the same cookie then reaches both /api and the websocket path.
type CookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
}

func NewCookiePolicy(secure bool) CookiePolicy {
	return CookiePolicy{Secure: secure, SameSite: http.SameSiteLaxMode}
}

func (p CookiePolicy) cookie(value string) *http.Cookie {
	sameSite := p.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: sameSite,
	}
}

// Write hands sess to the client. The cookie lives until the absolute expiry;
// idle expiry is enforced server side.
func (p CookiePolicy) Write(w http.ResponseWriter, sess *Session, now time.Time) {
	c := p.cookie(sess.SessionID)
	c.Expires = sess.AbsoluteExpiresAt
	c.MaxAge = int(sess.AbsoluteExpiresAt.Sub(now).Seconds())
	if c.MaxAge <= 0 {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}

func (p CookiePolicy) Clear(w http.ResponseWriter) {
	c := p.cookie("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// IDFromRequest returns the session id carried by the request's session cookie.
// Plain HTTP calls and websocket upgrades carry the same cookie.
func IDFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
