package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gamaccess/gamaccess/internal/gam"
	"github.com/gamaccess/gamaccess/internal/metrics"
	"github.com/gamaccess/gamaccess/internal/model"
)

// DefaultNetworkCacheTTL bounds the staleness of the cached network
// list: 24 hours, matching how rarely network access changes.
const DefaultNetworkCacheTTL = 24 * time.Hour

// NetworkLister lists the networks reachable by the service
// credentials, caching the result in a single owned slot.
//
// The cache is per-process and per-lister, correct for one credential
// set per process. The mutex only protects the slot from torn reads;
// refreshes are not single-flight, so two concurrent misses may both
// call GAM and the last writer wins. Staleness stays bounded by the TTL
// either way.
type NetworkLister struct {
	svc     gam.NetworkService
	ttl     time.Duration
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time

	mu        sync.Mutex
	cached    []model.Network
	fetchedAt time.Time
}

// NewNetworkLister creates a NetworkLister with an empty cache.
// A non-positive ttl falls back to DefaultNetworkCacheTTL.
func NewNetworkLister(svc gam.NetworkService, ttl time.Duration, logger *slog.Logger, recorder metrics.Recorder) *NetworkLister {
	if ttl <= 0 {
		ttl = DefaultNetworkCacheTTL
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &NetworkLister{
		svc:     svc,
		ttl:     ttl,
		logger:  logger.With("component", "service.networks"),
		metrics: recorder,
		now:     time.Now,
	}
}

// List returns the accessible networks. A fresh cached list is returned
// as-is unless forceRefresh is set; otherwise the list is fetched from
// GAM and the cache slot replaced wholesale. A fetch failure leaves the
// cache untouched.
func (l *NetworkLister) List(ctx context.Context, forceRefresh bool) ([]model.Network, error) {
	if !forceRefresh {
		if cached, ok := l.fresh(); ok {
			l.metrics.IncNetworkCacheHit()
			return cached, nil
		}
	}
	l.metrics.IncNetworkCacheMiss()

	networks, err := l.svc.GetAllNetworks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list networks: %w", err)
	}

	now := l.now()
	l.mu.Lock()
	l.cached = networks
	l.fetchedAt = now
	l.mu.Unlock()

	l.logger.Info("network_cache_refreshed",
		"count", len(networks),
		"forced", forceRefresh,
	)
	return networks, nil
}

// fresh returns the cached list when it exists and is younger than the TTL.
func (l *NetworkLister) fresh() ([]model.Network, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached == nil {
		return nil, false
	}
	if l.now().Sub(l.fetchedAt) >= l.ttl {
		return nil, false
	}
	return l.cached, true
}
