package strategies

import (
	"context"
	"strings"

	"github.com/gokaycavdar/go-geogate/pkg/models"
)

// DefaultEdgeHeaders are the spellings under which a Cloudflare country
// header may reach the application. Order matters: the first one present
// wins even when a later one disagrees.
var DefaultEdgeHeaders = []string{
	"HTTP_CF_IPCOUNTRY",
	"CF_IPCOUNTRY",
	"cf-ipcountry",
	"CF-IPCountry",
}

// EdgeHeaderResolver reads a country code computed by a trusted reverse
// proxy or CDN. It does not look at the IP address at all.
type EdgeHeaderResolver struct {
	Country string   // Target ISO 3166-1 alpha-2 code, e.g. "TH"
	Headers []string // Header names in precedence order
}

// NewEdgeHeaderResolver creates a resolver for the given target country.
// With no headers the Cloudflare defaults are used.
func NewEdgeHeaderResolver(country string, headers ...string) *EdgeHeaderResolver {
	if len(headers) == 0 {
		headers = DefaultEdgeHeaders
	}
	return &EdgeHeaderResolver{
		Country: normalizeCountry(country),
		Headers: headers,
	}
}

func (e *EdgeHeaderResolver) Name() string {
	return NameEdgeHeader
}

// Resolve returns Unknown when no configured header is present. Anything
// that is not a two-letter code counts as a definitive NoMatch so garbage
// values cannot push the decision to a later strategy.
func (e *EdgeHeaderResolver) Resolve(_ context.Context, visitor models.Visitor) (models.Verdict, error) {
	value, ok := e.lookup(visitor)
	if !ok {
		return models.Unknown, nil
	}

	// Check before case folding: Unicode upper-casing maps some non-ASCII
	// letters onto ASCII ones.
	raw := strings.TrimSpace(value)
	if !isCountryCode(raw) {
		return models.NoMatch, nil
	}

	return models.VerdictOf(strings.ToUpper(raw) == e.Country), nil
}

// Signal returns the normalized header value the resolver would use, or ""
// when no header is present.
func (e *EdgeHeaderResolver) Signal(visitor models.Visitor) string {
	value, ok := e.lookup(visitor)
	if !ok {
		return ""
	}
	raw := strings.TrimSpace(value)
	if !isCountryCode(raw) {
		// Keep malformed values distinct from the code they case-fold to.
		return raw
	}
	return strings.ToUpper(raw)
}

func (e *EdgeHeaderResolver) lookup(visitor models.Visitor) (string, bool) {
	for _, name := range e.Headers {
		if value, ok := visitor.Header(name); ok {
			return value, true
		}
	}
	return "", false
}
