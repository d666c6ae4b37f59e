package geo

import (
	"context"
	"errors"
	"net"
	"time"
)

// ErrNoCountry is returned when the lookup source has no country for an address.
var ErrNoCountry = errors.New("geo: no country for address")

// ErrNoSource means neither a MaxMind database nor an HTTP service was configured.
var ErrNoSource = errors.New("geo: no lookup source configured")

// Lookup resolves an address to an ISO 3166-1 alpha-2 country code.
type Lookup interface {
	Country(ctx context.Context, ip net.IP) (string, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, ip net.IP) (string, error)

func (f LookupFunc) Country(ctx context.Context, ip net.IP) (string, error) {
	return f(ctx, ip)
}

// Source selects where country data comes from. A MaxMind database wins
// over the HTTP service when both are set.
type Source struct {
	MaxMindDB string
	HTTPURL   string
	Timeout   time.Duration
}

// Open builds the Lookup for src. The returned close func releases the
// MaxMind reader and is never nil.
func Open(src Source) (Lookup, func() error, error) {
	noop := func() error { return nil }

	switch {
	case src.MaxMindDB != "":
		m, err := OpenMaxMind(src.MaxMindDB)
		if err != nil {
			return nil, noop, err
		}
		return m, m.Close, nil
	case src.HTTPURL != "":
		timeout := src.Timeout
		if timeout <= 0 {
			timeout = 3 * time.Second
		}
		return NewHTTPLookup(src.HTTPURL, timeout), noop, nil
	default:
		return nil, noop, ErrNoSource
	}
}
