package yield

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/0xSardius/tidal-sub000/internal/model"
)

type countingSource struct {
	pools   []model.YieldOpportunity
	err     error
	fetches int
}

func (s *countingSource) FetchPools(ctx context.Context) ([]model.YieldOpportunity, error) {
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return s.pools, nil
}

func testPools() []model.YieldOpportunity {
	return []model.YieldOpportunity{
		{PoolID: "a", Chain: "Base", Symbol: "USDC", APY: 9.0, RiskLevel: 3},
		{PoolID: "b", Chain: "Base", Symbol: "USDC", APY: 6.0, RiskLevel: 1},
		{PoolID: "c", Chain: "Ethereum", Symbol: "WETH", APY: 4.0, RiskLevel: 2},
		{PoolID: "d", Chain: "Arbitrum", Symbol: "USDC-WETH", APY: 3.0, RiskLevel: 3},
	}
}

func TestOpportunitiesCachesWithinTTL(t *testing.T) {
	src := &countingSource{pools: testPools()}
	agg := NewAggregator(src)
	now := time.Unix(1_700_000_000, 0)
	agg.now = func() time.Time { return now }

	if _, err := agg.Opportunities(context.Background()); err != nil {
		t.Fatalf("first fetch failed: %v", err)
	}
	now = now.Add(4 * time.Minute)
	if _, err := agg.Opportunities(context.Background()); err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if src.fetches != 1 {
		t.Fatalf("expected 1 upstream fetch within TTL, got %d", src.fetches)
	}

	now = now.Add(2 * time.Minute)
	if _, err := agg.Opportunities(context.Background()); err != nil {
		t.Fatalf("refetch failed: %v", err)
	}
	if src.fetches != 2 {
		t.Fatalf("expected a refetch after TTL expiry, got %d fetches", src.fetches)
	}
}

func TestOpportunitiesKeepsStaleSlotOnFetchError(t *testing.T) {
	src := &countingSource{err: errors.New("upstream down")}
	agg := NewAggregator(src)
	if _, err := agg.Opportunities(context.Background()); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
}

func TestFilterByChainRiskAndToken(t *testing.T) {
	pools := testPools()

	got := Filter(pools, Query{Chains: []string{"base"}})
	if len(got) != 2 || got[0].PoolID != "a" || got[1].PoolID != "b" {
		t.Fatalf("chain filter broke ordering: %+v", got)
	}

	got = Filter(pools, Query{MaxRisk: 1})
	if len(got) != 1 || got[0].PoolID != "b" {
		t.Fatalf("risk filter failed: %+v", got)
	}

	got = Filter(pools, Query{Token: "weth"})
	if len(got) != 2 || got[0].PoolID != "c" || got[1].PoolID != "d" {
		t.Fatalf("token substring filter failed: %+v", got)
	}

	got = Filter(pools, Query{Limit: 2})
	if len(got) != 2 {
		t.Fatalf("limit not applied: %+v", got)
	}
}

func TestFilterCapsLimit(t *testing.T) {
	pools := make([]model.YieldOpportunity, 0, 30)
	for i := 0; i < 30; i++ {
		pools = append(pools, model.YieldOpportunity{PoolID: "p", Chain: "Base", Symbol: "USDC", RiskLevel: 1})
	}
	if got := Filter(pools, Query{Limit: 50}); len(got) != 20 {
		t.Fatalf("limit cap failed: got %d", len(got))
	}
	if got := Filter(pools, Query{}); len(got) != 10 {
		t.Fatalf("default limit failed: got %d", len(got))
	}
}

func TestQueryReportsSupportedChains(t *testing.T) {
	src := &countingSource{pools: testPools()}
	agg := NewAggregator(src)
	page, err := agg.Query(context.Background(), Query{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(page.Chains) != 6 {
		t.Fatalf("expected 6 supported chains, got %v", page.Chains)
	}
	if page.Total != len(page.Opportunities) {
		t.Fatalf("total mismatch: %d vs %d", page.Total, len(page.Opportunities))
	}
}
