package yield

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/0xSardius/tidal-sub000/internal/model"
	"github.com/0xSardius/tidal-sub000/internal/registry"
)

// DefaultTTL bounds how long a fetched pool listing is served before a
// refetch.
const DefaultTTL = 5 * time.Minute

const (
	defaultQueryLimit = 10
	maxQueryLimit     = 20
)

// PoolSource is the upstream listing dependency; satisfied by *Client.
type PoolSource interface {
	FetchPools(ctx context.Context) ([]model.YieldOpportunity, error)
}

// Aggregator serves a risk-scored view of yield opportunities from a
// single-slot TTL cache. The slot swap is atomic; concurrent cache misses may
// each fetch, and the last writer wins without corrupting readers.
type Aggregator struct {
	source PoolSource
	ttl    time.Duration
	now    func() time.Time
	slot   atomic.Pointer[snapshot]
}

type snapshot struct {
	pools     []model.YieldOpportunity
	fetchedAt time.Time
}

func NewAggregator(source PoolSource) *Aggregator {
	return &Aggregator{source: source, ttl: DefaultTTL, now: time.Now}
}

func NewAggregatorWithTTL(source PoolSource, ttl time.Duration) *Aggregator {
	a := NewAggregator(source)
	if ttl > 0 {
		a.ttl = ttl
	}
	return a
}

// Opportunities returns the cached listing, refetching when the slot is empty
// or older than the TTL.
func (a *Aggregator) Opportunities(ctx context.Context) ([]model.YieldOpportunity, error) {
	if snap := a.slot.Load(); snap != nil && a.now().Sub(snap.fetchedAt) < a.ttl {
		return snap.pools, nil
	}
	pools, err := a.source.FetchPools(ctx)
	if err != nil {
		return nil, err
	}
	a.slot.Store(&snapshot{pools: pools, fetchedAt: a.now()})
	return pools, nil
}

// Query restricts the query surface to at least risk level, chain set, token
// substring and limit, preserving the cache-build APY ordering.
type Query struct {
	Token   string
	MaxRisk model.RiskLevel
	Chains  []string
	Limit   int
}

func (a *Aggregator) Query(ctx context.Context, q Query) (model.OpportunityPage, error) {
	pools, err := a.Opportunities(ctx)
	if err != nil {
		return model.OpportunityPage{}, err
	}
	matched := Filter(pools, q)
	return model.OpportunityPage{
		Opportunities: matched,
		Total:         len(matched),
		Chains:        registry.SupportedChainNames(),
	}, nil
}

// Filter applies the query to an already-built listing. No reordering beyond
// the listing's own sort.
func Filter(pools []model.YieldOpportunity, q Query) []model.YieldOpportunity {
	maxRisk := q.MaxRisk
	if !maxRisk.Valid() {
		maxRisk = model.RiskDeep
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	chainSet := map[string]struct{}{}
	for _, chain := range q.Chains {
		norm := strings.TrimSpace(chain)
		if norm == "" {
			continue
		}
		chainSet[strings.ToLower(norm)] = struct{}{}
	}
	token := strings.ToUpper(strings.TrimSpace(q.Token))

	out := make([]model.YieldOpportunity, 0, limit)
	for _, p := range pools {
		if len(chainSet) > 0 {
			if _, ok := chainSet[strings.ToLower(p.Chain)]; !ok {
				continue
			}
		}
		if p.RiskLevel > maxRisk {
			continue
		}
		if token != "" && !strings.Contains(p.Symbol, token) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}
