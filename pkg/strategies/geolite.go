package strategies

import (
	"context"
	"strings"

	"github.com/gokaycavdar/go-geogate/pkg/models"
)

// CountryLookup is satisfied by geoip.Service.
type CountryLookup interface {
	CountryCode(ip string) (string, error)
}

// GeoLiteResolver answers from a local MaxMind database.
type GeoLiteResolver struct {
	Country string
	Lookup  CountryLookup
}

// NewGeoLiteResolver creates a resolver backed by lookup.
func NewGeoLiteResolver(country string, lookup CountryLookup) *GeoLiteResolver {
	return &GeoLiteResolver{
		Country: normalizeCountry(country),
		Lookup:  lookup,
	}
}

func (g *GeoLiteResolver) Name() string {
	return NameGeoLite
}

// Resolve returns Unknown when the database has no country for the address.
func (g *GeoLiteResolver) Resolve(_ context.Context, visitor models.Visitor) (models.Verdict, error) {
	code, err := g.Lookup.CountryCode(visitor.IPAddress)
	if err != nil {
		return models.Unknown, err
	}
	if strings.TrimSpace(code) == "" {
		return models.Unknown, nil
	}
	return models.VerdictOf(strings.EqualFold(strings.TrimSpace(code), g.Country)), nil
}
