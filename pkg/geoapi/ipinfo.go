package geoapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/ipinfo/go/v2/ipinfo"
)

// IPInfoService looks countries up through the ipinfo.io client.
type IPInfoService struct {
	client     *ipinfo.Client
	httpClient *http.Client
}

// NewIPInfoService creates an ipinfo.io adapter. An empty token uses the
// anonymous, heavily rate-limited tier. A nil client gets DefaultTimeout.
func NewIPInfoService(client *http.Client, token string) *IPInfoService {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &IPInfoService{
		client:     ipinfo.NewClient(client, nil, token),
		httpClient: client,
	}
}

func (s *IPInfoService) Name() string {
	return NameIPInfo
}

// Lookup queries ipinfo.io. The client has no context support, so ctx is
// only checked up front; the http.Client timeout bounds the call itself.
func (s *IPInfoService) Lookup(ctx context.Context, ip string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", NameIPInfo, err)
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("%s: invalid ip %q", NameIPInfo, ip)
	}

	core, err := s.client.GetIPInfo(parsed)
	if err != nil {
		return "", fmt.Errorf("%s: request: %w", NameIPInfo, err)
	}

	return countryFromCore(core)
}

func countryFromCore(core *ipinfo.Core) (string, error) {
	if core == nil {
		return "", fmt.Errorf("%s: %w: empty response", NameIPInfo, ErrServiceFailure)
	}
	if core.Bogon {
		return "", fmt.Errorf("%s: %w: bogon address", NameIPInfo, ErrServiceFailure)
	}
	code := strings.TrimSpace(core.Country)
	if code == "" {
		return "", fmt.Errorf("%s: %w", NameIPInfo, ErrMissingCountry)
	}
	return code, nil
}
