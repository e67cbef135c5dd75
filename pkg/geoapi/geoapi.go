// Package geoapi adapts external geolocation HTTP APIs to a single
// "country code for this IP" lookup.
//
// Each adapter's only job is to know where a service keeps its country code
// and how it reports failure. Every failure comes back as an error; callers
// decide what an error means.
package geoapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrServiceFailure means the service answered but reported a failure.
	ErrServiceFailure = errors.New("geolocation service reported failure")

	// ErrMissingCountry means the response had no usable country code.
	ErrMissingCountry = errors.New("geolocation response has no country code")

	// ErrUnknownService is returned by New for an unsupported service name.
	ErrUnknownService = errors.New("unknown geolocation service")
)

// Service names accepted by New.
const (
	NameIPAPI   = "ip-api"
	NameIPAPICo = "ipapi.co"
	NameIPInfo  = "ipinfo"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 64 << 10

// DefaultTimeout bounds a single lookup when the caller sets none.
const DefaultTimeout = 2 * time.Second

// Service looks up the ISO country code of an IP address.
type Service interface {
	Name() string
	Lookup(ctx context.Context, ip string) (string, error)
}

// JSONService is a service reached with a templated GET whose response is a
// small JSON object.
type JSONService struct {
	ServiceName string
	URLTemplate string // fmt template with a single %s for the IP
	Client      *http.Client

	// Extract pulls the country code out of a decoded body.
	Extract func(body map[string]any) (string, error)
}

func (s *JSONService) Name() string {
	return s.ServiceName
}

// Lookup performs one request. There are no retries.
func (s *JSONService) Lookup(ctx context.Context, ip string) (string, error) {
	endpoint := fmt.Sprintf(s.URLTemplate, url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", s.ServiceName, err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: request: %w", s.ServiceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%s: %w: status %d", s.ServiceName, ErrServiceFailure, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%s: read body: %w", s.ServiceName, err)
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", fmt.Errorf("%s: decode body: %w", s.ServiceName, err)
	}
	if body == nil {
		return "", fmt.Errorf("%s: %w: empty body", s.ServiceName, ErrServiceFailure)
	}

	code, err := s.Extract(body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.ServiceName, err)
	}
	return code, nil
}

// New creates the named service. token is only used by services that need
// one.
func New(name string, client *http.Client, token string) (Service, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameIPAPI:
		return NewIPAPIService(client), nil
	case NameIPAPICo:
		return NewIPAPICoService(client), nil
	case NameIPInfo:
		return NewIPInfoService(client, token), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}
}

// stringField returns a non-empty string field or ErrMissingCountry.
func stringField(body map[string]any, key string) (string, error) {
	value, ok := body[key].(string)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%w: field %q", ErrMissingCountry, key)
	}
	return strings.TrimSpace(value), nil
}
