// Package setup assembles a resolution chain from configuration.
package setup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/gokaycavdar/go-geogate/pkg/config"
	"github.com/gokaycavdar/go-geogate/pkg/engine"
	"github.com/gokaycavdar/go-geogate/pkg/geoapi"
	"github.com/gokaycavdar/go-geogate/pkg/geoip"
	"github.com/gokaycavdar/go-geogate/pkg/metrics"
	"github.com/gokaycavdar/go-geogate/pkg/storage"
	"github.com/gokaycavdar/go-geogate/pkg/strategies"
)

// memoryCleanupInterval is how often the in-memory backend purges expired
// entries.
const memoryCleanupInterval = time.Hour

// Runtime holds the assembled chain and everything that must be closed
// with it.
type Runtime struct {
	Chain   *engine.Chain
	Metrics *metrics.Metrics

	closers []io.Closer
}

// Close releases every resource opened by Build.
func (r *Runtime) Close() error {
	var err error
	for i := len(r.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, r.closers[i].Close())
	}
	r.closers = nil
	return err
}

// Build creates the cache backend, the strategies and the chain described
// by cfg. reg may be nil to run without metrics.
func Build(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*Runtime, error) {
	rt := &Runtime{}
	if reg != nil {
		rt.Metrics = metrics.New(reg)
	}

	cache, err := rt.buildCache(ctx, cfg.Cache)
	if err != nil {
		return nil, multierr.Append(err, rt.Close())
	}

	available, err := rt.buildStrategies(cfg)
	if err != nil {
		return nil, multierr.Append(err, rt.Close())
	}

	order := cfg.Resolution.Order
	if len(order) == 0 {
		order = defaultOrder(cfg)
	}

	list, err := engine.Arrange(order, available...)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("arrange strategies: %w", err), rt.Close())
	}
	if len(list) == 0 || list[len(list)-1].Name() != strategies.NameStaticRange {
		log.Warn("static_range is not the last strategy; some visitors may get the default answer", "order", order)
	}

	rt.Chain = engine.New(list,
		engine.WithCache(cache),
		engine.WithTTL(cfg.Cache.TTL),
		engine.WithMetrics(rt.Metrics),
	)

	log.Info("Resolution chain ready", "country", cfg.Country, "order", rt.Chain.Strategies(), "cache", cfg.Cache.Backend)
	return rt, nil
}

// defaultOrder is engine.DefaultOrder without strategies that are not
// configured.
func defaultOrder(cfg config.Config) []string {
	order := slices.Clone(engine.DefaultOrder)
	if cfg.Resolution.GeoLiteDB == "" {
		order = slices.DeleteFunc(order, func(name string) bool {
			return name == strategies.NameGeoLite
		})
	}
	return order
}

func (rt *Runtime) buildCache(ctx context.Context, cfg config.CacheConfig) (storage.Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return storage.NewMemoryStore(memoryCleanupInterval), nil
	case "lru":
		return storage.NewLRUStore(cfg.LRUSize, cfg.TTL), nil
	case "file":
		store, err := storage.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		client, err := storage.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		store := storage.NewRedisStore(client, "")
		rt.closers = append(rt.closers, store)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func (rt *Runtime) buildStrategies(cfg config.Config) ([]strategies.Strategy, error) {
	list := []strategies.Strategy{
		strategies.NewEdgeHeaderResolver(cfg.Country, cfg.Resolution.EdgeHeaders...),
		strategies.NewPrivateNetworkDetector(),
	}

	remote, err := buildRemote(cfg)
	if err != nil {
		return nil, err
	}
	if rt.Metrics != nil {
		remote.OnOutcome = rt.Metrics.ObserveRemote
	}
	list = append(list, remote)

	if cfg.Resolution.GeoLiteDB != "" {
		service, err := geoip.NewService(cfg.Resolution.GeoLiteDB)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, service)
		list = append(list, strategies.NewGeoLiteResolver(cfg.Country, service))
	}

	static := strategies.DefaultStaticRangeTable()
	if cfg.Resolution.RangeFile != "" {
		static, err = strategies.LoadStaticRangeTable(cfg.Resolution.RangeFile, static.Blocks)
		if err != nil {
			return nil, err
		}
	}
	log.Debug("Static range table loaded", "blocks", static.Count())
	list = append(list, static)

	return list, nil
}

func buildRemote(cfg config.Config) (*strategies.RemoteAPIResolver, error) {
	client := &http.Client{Timeout: cfg.Remote.Timeout}

	services := make([]geoapi.Service, 0, len(cfg.Remote.Services))
	for _, name := range cfg.Remote.Services {
		svc, err := geoapi.New(name, client, cfg.Remote.IPInfoToken)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}

	return strategies.NewRemoteAPIResolver(cfg.Country, cfg.Remote.Timeout, services...), nil
}
