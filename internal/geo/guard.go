package geo

import (
	"context"
	"net"
	"strings"

	"github.com/Tenac92/LEXIS-sub001/internal/logger"
)

// Guard decides whether a connection may proceed based on where it comes from.
type Guard struct {
	lookup  Lookup
	allowed map[string]struct{}
}

// NewGuard returns a Guard permitting the given ISO country codes.
// A nil lookup means enforcement is disabled and every address is allowed.
func NewGuard(lookup Lookup, countries []string) *Guard {
	allowed := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		allowed[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return &Guard{lookup: lookup, allowed: allowed}
}

// Decision records why Allowed returned what it did.
type Decision int

const (
	DeniedLookupFailed Decision = iota
	DeniedJurisdiction
	AllowedDisabled
	AllowedSessionVerified
	AllowedInternal
	AllowedJurisdiction
)

func (d Decision) Allowed() bool {
	return d >= AllowedDisabled
}

func (d Decision) String() string {
	switch d {
	case DeniedLookupFailed:
		return "denied_lookup_failed"
	case DeniedJurisdiction:
		return "denied_jurisdiction"
	case AllowedDisabled:
		return "allowed_disabled"
	case AllowedSessionVerified:
		return "allowed_session_verified"
	case AllowedInternal:
		return "allowed_internal"
	case AllowedJurisdiction:
		return "allowed_jurisdiction"
	default:
		return "unknown"
	}
}

// Allowed applies, in order: session exemption, internal-address exemption,
// then a country lookup that fails closed.
func (g *Guard) Allowed(ctx context.Context, remote, direct net.IP, sessionVerified bool) bool {
	return g.Decide(ctx, remote, direct, sessionVerified).Allowed()
}

// Decide is Allowed with the reason attached.
func (g *Guard) Decide(ctx context.Context, remote, direct net.IP, sessionVerified bool) Decision {
	if g.lookup == nil {
		return AllowedDisabled
	}
	if sessionVerified {
		return AllowedSessionVerified
	}
	if IsInternal(remote) && IsInternal(direct) {
		return AllowedInternal
	}
	if remote == nil {
		return DeniedLookupFailed
	}

	country, err := g.lookup.Country(ctx, remote)
	if err != nil {
		logger.Warn("geo lookup failed, denying", map[string]any{
			"ip":    remote.String(),
			"error": err.Error(),
		})
		return DeniedLookupFailed
	}

	if _, ok := g.allowed[strings.ToUpper(country)]; !ok {
		logger.Info("geo jurisdiction denied", map[string]any{
			"ip":      remote.String(),
			"country": country,
		})
		return DeniedJurisdiction
	}
	return AllowedJurisdiction
}
