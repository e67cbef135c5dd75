package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokaycavdar/go-geogate/pkg/models"
	"github.com/gokaycavdar/go-geogate/pkg/storage"
	"github.com/gokaycavdar/go-geogate/pkg/strategies"
)

// countingStrategy stands in for a remote lookup and counts invocations.
type countingStrategy struct {
	name    string
	verdict models.Verdict
	err     error
	panics  bool
	calls   atomic.Int32
}

func (s *countingStrategy) Name() string { return s.name }

func (s *countingStrategy) Resolve(context.Context, models.Visitor) (models.Verdict, error) {
	s.calls.Add(1)
	if s.panics {
		panic("remote client blew up")
	}
	return s.verdict, s.err
}

// contextStrategy matches unless its context is already done, like a
// remote lookup aborted by a cancelled request.
type contextStrategy struct{}

func (contextStrategy) Name() string { return strategies.NameRemoteAPI }

func (contextStrategy) Resolve(ctx context.Context, _ models.Visitor) (models.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return models.Unknown, err
	}
	return models.Match, nil
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (models.Verdict, error) {
	return models.Unknown, errors.New("backend down")
}

func (failingCache) Put(context.Context, string, bool, time.Duration) error {
	return errors.New("backend down")
}

func newTestChain(list ...strategies.Strategy) *Chain {
	return New(list, WithCache(storage.NewMemoryStore(0)))
}

func TestChainCachesAnswer(t *testing.T) {
	remote := &countingStrategy{name: "remote_api", verdict: models.Match}
	chain := newTestChain(strategies.NewPrivateNetworkDetector(), remote, strategies.DefaultStaticRangeTable())
	ctx := context.Background()

	first := chain.Evaluate(ctx, models.Visitor{IPAddress: "8.8.8.8"})
	second := chain.Evaluate(ctx, models.Visitor{IPAddress: "8.8.8.8"})

	assert.True(t, first.Match)
	assert.Equal(t, "remote_api", first.Source)
	assert.False(t, first.Cached)

	assert.True(t, second.Match)
	assert.True(t, second.Cached)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.CacheKey, second.CacheKey)

	assert.Equal(t, int32(1), remote.calls.Load(), "second call must not reach the remote strategy")
}

func TestChainEdgeHeaderBeatsStaticTable(t *testing.T) {
	chain := newTestChain(
		strategies.NewEdgeHeaderResolver("TH"),
		strategies.NewPrivateNetworkDetector(),
		strategies.DefaultStaticRangeTable(),
	)

	visitor := models.Visitor{
		IPAddress: "1.0.128.1", // inside a Thai block
		Headers:   map[string]string{"CF-IPCountry": "US"},
	}

	res := chain.Evaluate(context.Background(), visitor)
	assert.False(t, res.Match)
	assert.Equal(t, strategies.NameEdgeHeader, res.Source)
	require.Len(t, res.Attempts, 1)

	// Without the header the static table decides.
	assert.True(t, chain.ResolveIP(context.Background(), "1.0.128.1"))
}

func TestChainFallsBackToStaticTable(t *testing.T) {
	unknownA := &countingStrategy{name: "a", verdict: models.Unknown}
	unknownB := &countingStrategy{name: "b", verdict: models.Unknown}
	chain := newTestChain(unknownA, unknownB, strategies.DefaultStaticRangeTable())

	res := chain.Evaluate(context.Background(), models.Visitor{IPAddress: "8.8.8.8"})
	assert.False(t, res.Match)
	assert.Equal(t, strategies.NameStaticRange, res.Source)
	require.Len(t, res.Attempts, 3)
	assert.Equal(t, models.NoMatch, res.Attempts[2].Verdict)
}

func TestChainSurvivesFailingStrategies(t *testing.T) {
	erroring := &countingStrategy{name: "erroring", verdict: models.Match, err: errors.New("timeout")}
	panicking := &countingStrategy{name: "panicking", panics: true}
	chain := newTestChain(erroring, panicking, strategies.DefaultStaticRangeTable())

	var res models.Resolution
	require.NotPanics(t, func() {
		res = chain.Evaluate(context.Background(), models.Visitor{IPAddress: "1.0.128.1"})
	})

	assert.True(t, res.Match)
	assert.Equal(t, strategies.NameStaticRange, res.Source)
	require.Len(t, res.Attempts, 3)
	assert.Equal(t, models.Unknown, res.Attempts[0].Verdict, "an error overrides the returned verdict")
	assert.Error(t, res.Attempts[0].Err)
	assert.Equal(t, models.Unknown, res.Attempts[1].Verdict)
	assert.ErrorContains(t, res.Attempts[1].Err, "panicked")
}

func TestChainDefaultsToFalseAndDoesNotCacheUnknown(t *testing.T) {
	unknown := &countingStrategy{name: "unknown", verdict: models.Unknown}
	chain := newTestChain(unknown, strategies.DefaultStaticRangeTable())

	for i := 0; i < 2; i++ {
		res := chain.Evaluate(context.Background(), models.Visitor{IPAddress: "definitely not an ip"})
		assert.False(t, res.Match)
		assert.Equal(t, SourceDefault, res.Source)
		assert.False(t, res.Cached)
	}
	assert.Equal(t, int32(2), unknown.calls.Load())
}

func TestChainEmptyStrategyList(t *testing.T) {
	chain := newTestChain()
	assert.False(t, chain.ResolveIP(context.Background(), "1.0.128.1"))
}

func TestChainRecomputesAfterTTL(t *testing.T) {
	remote := &countingStrategy{name: "remote_api", verdict: models.Match}
	chain := New([]strategies.Strategy{remote},
		WithCache(storage.NewMemoryStore(0)),
		WithTTL(50*time.Millisecond),
	)
	ctx := context.Background()

	assert.True(t, chain.ResolveIP(ctx, "8.8.8.8"))
	assert.True(t, chain.Evaluate(ctx, models.Visitor{IPAddress: "8.8.8.8"}).Cached)
	assert.Equal(t, int32(1), remote.calls.Load())

	time.Sleep(120 * time.Millisecond)

	res := chain.Evaluate(ctx, models.Visitor{IPAddress: "8.8.8.8"})
	assert.True(t, res.Match)
	assert.False(t, res.Cached)
	assert.Equal(t, int32(2), remote.calls.Load())
}

func TestChainCacheFailureStillResolves(t *testing.T) {
	remote := &countingStrategy{name: "remote_api", verdict: models.NoMatch}
	chain := New([]strategies.Strategy{remote}, WithCache(failingCache{}))

	assert.False(t, chain.ResolveIP(context.Background(), "8.8.8.8"))
	assert.False(t, chain.ResolveIP(context.Background(), "8.8.8.8"))
	assert.Equal(t, int32(2), remote.calls.Load())
}

func TestCacheKey(t *testing.T) {
	chain := newTestChain(strategies.NewEdgeHeaderResolver("TH"), strategies.DefaultStaticRangeTable())

	plain := chain.CacheKey(models.Visitor{IPAddress: "1.2.3.4"})
	assert.Equal(t, plain, chain.CacheKey(models.Visitor{IPAddress: " 1.2.3.4 "}))
	assert.Equal(t, plain, chain.CacheKey(models.Visitor{IPAddress: "::ffff:1.2.3.4"}))
	assert.NotEqual(t, plain, chain.CacheKey(models.Visitor{IPAddress: "1.2.3.5"}))

	withUS := chain.CacheKey(models.Visitor{IPAddress: "1.2.3.4", Headers: map[string]string{"CF-IPCountry": "US"}})
	withTH := chain.CacheKey(models.Visitor{IPAddress: "1.2.3.4", Headers: map[string]string{"CF-IPCountry": "th"}})
	assert.NotEqual(t, plain, withUS)
	assert.NotEqual(t, withUS, withTH)

	// Unrelated headers do not split the cache.
	assert.Equal(t, plain, chain.CacheKey(models.Visitor{IPAddress: "1.2.3.4", Headers: map[string]string{"Accept": "*/*"}}))
}

func TestChainEdgeSignalSeparatesCacheEntries(t *testing.T) {
	chain := newTestChain(strategies.NewEdgeHeaderResolver("TH"), strategies.DefaultStaticRangeTable())
	ctx := context.Background()

	us := models.Visitor{IPAddress: "1.0.128.1", Headers: map[string]string{"CF-IPCountry": "US"}}
	assert.False(t, chain.Resolve(ctx, us))

	// Same IP without the edge header must not reuse the US answer.
	assert.True(t, chain.ResolveIP(ctx, "1.0.128.1"))
}

func TestChainConcurrentResolves(t *testing.T) {
	remote := &countingStrategy{name: "remote_api", verdict: models.Match}
	chain := newTestChain(remote)

	var wg sync.WaitGroup
	results := make([]bool, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = chain.ResolveIP(context.Background(), "8.8.8.8")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.True(t, r)
	}
	assert.GreaterOrEqual(t, remote.calls.Load(), int32(1))
}

func TestArrange(t *testing.T) {
	edge := strategies.NewEdgeHeaderResolver("TH")
	private := strategies.NewPrivateNetworkDetector()
	static := strategies.DefaultStaticRangeTable()

	list, err := Arrange([]string{"static_range", "edge_header"}, edge, private, static)
	require.NoError(t, err)
	chain := New(list)
	assert.Equal(t, []string{"static_range", "edge_header"}, chain.Strategies())

	_, err = Arrange([]string{"edge_header", "edge_header"}, edge)
	assert.ErrorIs(t, err, ErrDuplicateStrategy)

	_, err = Arrange([]string{"geolite"}, edge)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNewCopiesStrategyList(t *testing.T) {
	list := []strategies.Strategy{strategies.DefaultStaticRangeTable()}
	chain := New(list)
	list[0] = strategies.NewPrivateNetworkDetector()

	assert.Equal(t, []string{"static_range"}, chain.Strategies())
}

func TestChainIgnoresCallerCancellation(t *testing.T) {
	chain := newTestChain(contextStrategy{}, strategies.DefaultStaticRangeTable())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gone := chain.Evaluate(ctx, models.Visitor{IPAddress: "8.8.8.8"})
	assert.True(t, gone.Match)
	assert.Equal(t, strategies.NameRemoteAPI, gone.Source)

	next := chain.Evaluate(context.Background(), models.Visitor{IPAddress: "8.8.8.8"})
	assert.True(t, next.Match)
	assert.True(t, next.Cached)
}
