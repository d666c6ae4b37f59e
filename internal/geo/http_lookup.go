package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// HTTPLookup queries an ip-api style JSON service. The URL may contain an
// "{ip}" placeholder; otherwise the address is appended as a path segment.
type HTTPLookup struct {
	url    string
	client *http.Client
}

func NewHTTPLookup(url string, timeout time.Duration) *HTTPLookup {
	return &HTTPLookup{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type httpLookupResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	CountryCode string `json:"countryCode"`
	Country     string `json:"country_code"`
}

func (h *HTTPLookup) endpoint(ip net.IP) string {
	if strings.Contains(h.url, "{ip}") {
		return strings.ReplaceAll(h.url, "{ip}", ip.String())
	}
	return strings.TrimRight(h.url, "/") + "/" + ip.String()
}

func (h *HTTPLookup) Country(ctx context.Context, ip net.IP) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint(ip), nil)
	if err != nil {
		return "", fmt.Errorf("geo: build request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geo: lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo: lookup status %d", resp.StatusCode)
	}

	var body httpLookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return "", fmt.Errorf("geo: decode lookup response: %w", err)
	}

	if body.Status != "" && body.Status != "success" {
		return "", fmt.Errorf("geo: lookup failed: %s", body.Message)
	}

	code := body.CountryCode
	if code == "" {
		code = body.Country
	}
	if code == "" {
		return "", ErrNoCountry
	}
	return strings.ToUpper(code), nil
}
