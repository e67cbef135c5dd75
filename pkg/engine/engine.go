package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/gokaycavdar/go-geogate/pkg/cidr"
	"github.com/gokaycavdar/go-geogate/pkg/metrics"
	"github.com/gokaycavdar/go-geogate/pkg/models"
	"github.com/gokaycavdar/go-geogate/pkg/storage"
	"github.com/gokaycavdar/go-geogate/pkg/strategies"
)

// Sources reported in models.Resolution besides strategy names.
const (
	SourceCache   = "cache"
	SourceDefault = "default"
)

// cacheKeyVersion is bumped whenever key derivation changes, so old
// persisted entries are simply never read again.
const cacheKeyVersion = "v1"

// DefaultOrder is the strategy precedence used when none is configured:
// the cheapest and most authoritative source first, the exhaustive static
// table last. Names without a configured strategy are skipped by Arrange
// callers that build from this list.
var DefaultOrder = []string{
	strategies.NameEdgeHeader,
	strategies.NamePrivateNetwork,
	strategies.NameRemoteAPI,
	strategies.NameGeoLite,
	strategies.NameStaticRange,
}

var (
	// ErrUnknownStrategy is returned by Arrange for a name with no strategy.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrDuplicateStrategy is returned by Arrange when a name repeats.
	ErrDuplicateStrategy = errors.New("duplicate strategy")
)

// Chain is the geolocation resolution engine.
//
// Architecture Principles:
//   - The chain owns an ordered, immutable list of strategies fixed at New
//   - Strategies are independent: none knows about the others or the cache
//   - Total: every input, however malformed, yields a boolean
//   - Explainable: Evaluate reports which strategy decided and why
//
// Resolution flow:
//  1. Derive the cache key from the IP and any request signal that can
//     change the answer (see CacheKey)
//  2. Return a cached answer immediately when present
//  3. Ask each strategy in order, stopping at the first Match or NoMatch
//  4. Cache the definitive answer and return it
//
// A strategy that errors or panics is treated as Unknown. When every
// strategy returns Unknown the answer is false and nothing is cached.
//
// Usage:
//
//	chain := engine.New([]strategies.Strategy{
//		strategies.NewEdgeHeaderResolver("TH"),
//		strategies.NewPrivateNetworkDetector(),
//		strategies.DefaultStaticRangeTable(),
//	}, engine.WithCache(storage.NewMemoryStore(time.Hour)))
//	allowed := chain.Resolve(ctx, visitor)
type Chain struct {
	strategies []strategies.Strategy
	cache      storage.Cache
	ttl        time.Duration
	metrics    *metrics.Metrics

	// Concurrent lookups for the same key share one walk of the chain.
	inflight singleflight.Group
}

// Option configures a Chain.
type Option func(*Chain)

// WithCache sets the resolution cache. The default is an in-memory store.
func WithCache(cache storage.Cache) Option {
	return func(c *Chain) {
		c.cache = cache
	}
}

// WithTTL sets how long definitive answers are cached.
func WithTTL(ttl time.Duration) Option {
	return func(c *Chain) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMetrics reports verdicts, cache lookups and durations to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Chain) {
		c.metrics = m
	}
}

// New creates a chain over list, evaluated in the given order. The slice
// is copied; later changes to it have no effect.
func New(list []strategies.Strategy, opts ...Option) *Chain {
	c := &Chain{
		strategies: append([]strategies.Strategy(nil), list...),
		ttl:        storage.DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = storage.NewMemoryStore(time.Hour)
	}
	return c
}

// Arrange orders available strategies by name. Every name in order must
// match exactly one available strategy; available strategies not named in
// order are left out.
func Arrange(order []string, available ...strategies.Strategy) ([]strategies.Strategy, error) {
	byName := make(map[string]strategies.Strategy, len(available))
	for _, s := range available {
		byName[s.Name()] = s
	}

	seen := make(map[string]bool, len(order))
	arranged := make([]strategies.Strategy, 0, len(order))
	for _, name := range order {
		if seen[name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateStrategy, name)
		}
		seen[name] = true

		s, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
		}
		arranged = append(arranged, s)
	}
	return arranged, nil
}

// Strategies returns the strategy names in evaluation order.
func (c *Chain) Strategies() []string {
	names := make([]string, 0, len(c.strategies))
	for _, s := range c.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Resolve reports whether visitor is in the target country. It never
// fails; see Evaluate for the details behind the answer.
func (c *Chain) Resolve(ctx context.Context, visitor models.Visitor) bool {
	return c.Evaluate(ctx, visitor).Match
}

// ResolveIP resolves a bare IP address with no request headers.
func (c *Chain) ResolveIP(ctx context.Context, ip string) bool {
	return c.Resolve(ctx, models.Visitor{IPAddress: ip})
}

// Evaluate runs the full resolution flow and explains the result.
func (c *Chain) Evaluate(ctx context.Context, visitor models.Visitor) models.Resolution {
	start := time.Now()
	key := c.CacheKey(visitor)

	if res, ok := c.lookup(ctx, key); ok {
		c.metrics.ObserveResolution(res, time.Since(start))
		return res
	}

	// The walk is shared with other callers and its answer is cached, so a
	// caller going away must not degrade it. Remote calls keep their own
	// per-call timeouts.
	walkCtx := context.WithoutCancel(ctx)

	v, _, _ := c.inflight.Do(key, func() (any, error) {
		res := c.walk(walkCtx, visitor)
		res.CacheKey = key
		if res.Source != SourceDefault {
			c.store(walkCtx, key, res.Match)
		}
		return res, nil
	})
	res := v.(models.Resolution)

	log.Debug("resolved visitor", "ip", visitor.IPAddress, "match", res.Match, "source", res.Source)
	c.metrics.ObserveResolution(res, time.Since(start))
	return res
}

// CacheKey derives the cache key for visitor: a hash of the canonical IP
// and every signal reported by strategies implementing CacheSignal. The
// same IP behind a different edge country therefore gets its own entry.
func (c *Chain) CacheKey(visitor models.Visitor) string {
	ip := strings.TrimSpace(visitor.IPAddress)
	if addr, err := cidr.ParseAddr(ip); err == nil {
		ip = addr.String()
	}

	var signals []string
	for _, s := range c.strategies {
		source, ok := s.(strategies.CacheSignal)
		if !ok {
			continue
		}
		if signal := source.Signal(visitor); signal != "" {
			signals = append(signals, s.Name()+"="+signal)
		}
	}
	sort.Strings(signals)

	sum := sha256.Sum256([]byte(ip + "|" + strings.Join(signals, "|")))
	return cacheKeyVersion + ":" + hex.EncodeToString(sum[:])
}

func (c *Chain) lookup(ctx context.Context, key string) (models.Resolution, bool) {
	verdict, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn("resolution cache read failed", "key", key, "error", err)
		c.metrics.ObserveCache(metrics.CacheError)
		return models.Resolution{}, false
	}

	match, ok := verdict.Bool()
	if !ok {
		c.metrics.ObserveCache(metrics.CacheMiss)
		return models.Resolution{}, false
	}

	c.metrics.ObserveCache(metrics.CacheHit)
	return models.Resolution{
		Match:    match,
		Source:   SourceCache,
		Cached:   true,
		CacheKey: key,
	}, true
}

func (c *Chain) store(ctx context.Context, key string, match bool) {
	if err := c.cache.Put(ctx, key, match, c.ttl); err != nil {
		log.Warn("resolution cache write failed", "key", key, "error", err)
	}
}

// walk asks each strategy in order until one is definitive.
func (c *Chain) walk(ctx context.Context, visitor models.Visitor) models.Resolution {
	res := models.Resolution{
		Source:   SourceDefault,
		Attempts: make([]models.Attempt, 0, len(c.strategies)),
	}

	for _, s := range c.strategies {
		verdict, err := c.try(ctx, s, visitor)
		res.Attempts = append(res.Attempts, models.Attempt{Strategy: s.Name(), Verdict: verdict, Err: err})
		c.metrics.ObserveVerdict(s.Name(), verdict)

		if err != nil {
			log.Debug("strategy failed", "strategy", s.Name(), "ip", visitor.IPAddress, "error", err)
		}

		if match, ok := verdict.Bool(); ok {
			res.Match = match
			res.Source = s.Name()
			return res
		}
	}

	return res
}

// try runs one strategy behind a recover, so a misbehaving strategy costs
// an Unknown and nothing more.
func (c *Chain) try(ctx context.Context, s strategies.Strategy, visitor models.Visitor) (verdict models.Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("strategy panicked", "strategy", s.Name(), "ip", visitor.IPAddress, "panic", r)
			verdict = models.Unknown
			err = fmt.Errorf("strategy %s panicked: %v", s.Name(), r)
		}
	}()

	verdict, err = s.Resolve(ctx, visitor)
	if err != nil {
		return models.Unknown, err
	}
	return verdict, nil
}
