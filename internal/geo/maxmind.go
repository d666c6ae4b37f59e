package geo

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// MaxMindLookup reads a local GeoIP2/GeoLite2 country database.
type MaxMindLookup struct {
	db *geoip2.Reader
}

func OpenMaxMind(path string) (*MaxMindLookup, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geo: open maxmind db: %w", err)
	}
	return &MaxMindLookup{db: db}, nil
}

func (m *MaxMindLookup) Country(_ context.Context, ip net.IP) (string, error) {
	rec, err := m.db.Country(ip)
	if err != nil {
		return "", fmt.Errorf("geo: maxmind lookup: %w", err)
	}
	if rec.Country.IsoCode == "" {
		return "", ErrNoCountry
	}
	return rec.Country.IsoCode, nil
}

func (m *MaxMindLookup) Close() error {
	return m.db.Close()
}
