package gate

import (
	"context"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/gokaycavdar/go-geogate/pkg/engine"
	"github.com/gokaycavdar/go-geogate/pkg/models"
)

// Validator decides one condition a visitor must meet to see the main page.
type Validator interface {
	Name() string
	Validate(ctx context.Context, visitor models.Visitor) bool
}

// GeoValidator accepts visitors the resolution chain places in the target
// country.
type GeoValidator struct {
	Chain *engine.Chain
}

func (g GeoValidator) Name() string {
	return "geo"
}

func (g GeoValidator) Validate(ctx context.Context, visitor models.Visitor) bool {
	res := g.Chain.Evaluate(ctx, visitor)
	log.Debug("Geo resolution", "ip", visitor.IPAddress, "match", res.Match, "source", res.Source, "cached", res.Cached)
	return res.Match
}

// ReferrerValidator accepts visitors whose Referer host is one of Domains
// or a subdomain of one.
type ReferrerValidator struct {
	Domains []string
}

func (v ReferrerValidator) Name() string {
	return "referrer"
}

func (v ReferrerValidator) Validate(_ context.Context, visitor models.Visitor) bool {
	if visitor.Referer == "" {
		log.Debug("Referrer is empty")
		return false
	}

	u, err := url.Parse(strings.ToLower(strings.TrimSpace(visitor.Referer)))
	if err != nil || u.Hostname() == "" {
		log.Debug("Referrer is not a URL", "referrer", visitor.Referer)
		return false
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	for _, domain := range v.Domains {
		domain = strings.ToLower(domain)
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}

	log.Debug("Referrer host not allowed", "host", host)
	return false
}

// validateAll runs validators in order and stops at the first rejection.
func validateAll(ctx context.Context, visitor models.Visitor, validators []Validator) (bool, string) {
	for _, v := range validators {
		if !v.Validate(ctx, visitor) {
			return false, v.Name()
		}
	}
	return true, ""
}
