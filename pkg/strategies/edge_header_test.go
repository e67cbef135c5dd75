package strategies

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokaycavdar/go-geogate/pkg/models"
)

func resolveEdge(t *testing.T, e *EdgeHeaderResolver, headers map[string]string) models.Verdict {
	t.Helper()

	verdict, err := e.Resolve(context.Background(), models.Visitor{IPAddress: "8.8.8.8", Headers: headers})
	require.NoError(t, err)
	return verdict
}

func TestEdgeHeaderResolverVerdicts(t *testing.T) {
	t.Parallel()

	e := NewEdgeHeaderResolver("th")

	tests := []struct {
		name    string
		headers map[string]string
		want    models.Verdict
	}{
		{"absent", nil, models.Unknown},
		{"unrelated headers", map[string]string{"X-Forwarded-For": "1.2.3.4"}, models.Unknown},
		{"target", map[string]string{"CF-IPCountry": "TH"}, models.Match},
		{"lowercase value", map[string]string{"CF-IPCountry": " th "}, models.Match},
		{"other country", map[string]string{"CF-IPCountry": "US"}, models.NoMatch},
		{"cgi spelling", map[string]string{"HTTP_CF_IPCOUNTRY": "TH"}, models.Match},
		{"canonicalized name", map[string]string{"Cf-Ipcountry": "TH"}, models.Match},
		{"too long", map[string]string{"CF-IPCountry": "THA"}, models.NoMatch},
		{"tor marker", map[string]string{"CF-IPCountry": "T1"}, models.NoMatch},
		{"empty", map[string]string{"CF-IPCountry": ""}, models.NoMatch},
		{"long s folds to S", map[string]string{"CF-IPCountry": "ſſ"}, models.NoMatch},
		{"dotless i folds to I", map[string]string{"CF-IPCountry": "ıT"}, models.NoMatch},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, resolveEdge(t, e, tt.headers), tt.name)
	}
}

func TestEdgeHeaderResolverRejectsNonASCIILetters(t *testing.T) {
	t.Parallel()

	e := NewEdgeHeaderResolver("SS")
	assert.Equal(t, models.NoMatch, resolveEdge(t, e, map[string]string{"CF-IPCountry": "ſſ"}))
	assert.Equal(t, models.Match, resolveEdge(t, e, map[string]string{"CF-IPCountry": "ss"}))
}

func TestEdgeHeaderResolverFirstHeaderWins(t *testing.T) {
	t.Parallel()

	e := NewEdgeHeaderResolver("TH")

	// HTTP_CF_IPCOUNTRY precedes CF-IPCountry, so its value decides.
	assert.Equal(t, models.Match, resolveEdge(t, e, map[string]string{
		"HTTP_CF_IPCOUNTRY": "TH",
		"CF-IPCountry":      "US",
	}))
	assert.Equal(t, models.NoMatch, resolveEdge(t, e, map[string]string{
		"HTTP_CF_IPCOUNTRY": "US",
		"CF-IPCountry":      "TH",
	}))
}

func TestEdgeHeaderResolverCustomHeaders(t *testing.T) {
	t.Parallel()

	e := NewEdgeHeaderResolver("TH", "CloudFront-Viewer-Country")
	assert.Equal(t, models.Match, resolveEdge(t, e, map[string]string{"cloudfront-viewer-country": "TH"}))
	assert.Equal(t, models.Unknown, resolveEdge(t, e, map[string]string{"CF-IPCountry": "TH"}))
}

func TestEdgeHeaderResolverSignal(t *testing.T) {
	t.Parallel()

	e := NewEdgeHeaderResolver("TH")
	h := http.Header{}
	h.Set("CF-IPCountry", "us")

	assert.Equal(t, "US", e.Signal(models.NewVisitor("1.2.3.4", h)))
	assert.Equal(t, "", e.Signal(models.Visitor{IPAddress: "1.2.3.4"}))

	h.Set("CF-IPCountry", "ſſ")
	assert.Equal(t, "ſſ", e.Signal(models.NewVisitor("1.2.3.4", h)))
}
