package strategies

import (
	"context"
	"strings"

	"github.com/gokaycavdar/go-geogate/pkg/models"
)

// Strategy is one independent, fallible way of answering "is this visitor in
// the target country".
type Strategy interface {
	// Name is the stable identifier used in configuration, logs and metrics
	// (e.g. "edge_header", "static_range").
	Name() string

	// Resolve returns Match, NoMatch, or Unknown when it cannot decide.
	// A returned error is always treated as Unknown by the chain.
	Resolve(ctx context.Context, visitor models.Visitor) (models.Verdict, error)
}

// CacheSignal is implemented by strategies whose answer depends on request
// data other than the IP. The chain folds the signal into the cache key so
// the same IP seen through a different edge configuration is cached apart.
type CacheSignal interface {
	Signal(visitor models.Visitor) string
}

// Names of the built-in strategies.
const (
	NameEdgeHeader     = "edge_header"
	NamePrivateNetwork = "private_network"
	NameRemoteAPI      = "remote_api"
	NameGeoLite        = "geolite"
	NameStaticRange    = "static_range"
)

// normalizeCountry trims and uppercases a country code.
func normalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// isCountryCode reports whether code is exactly two ASCII letters.
func isCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}
