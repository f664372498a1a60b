package yield

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/0xSardius/tidal-sub000/internal/httpx"
)

const poolsFixture = `{
	"status": "success",
	"data": [
		{"pool":"p-base-usdc","chain":"Base","project":"aave-v3","symbol":"usdc","apy":6.2,"apyBase":5.0,"apyReward":1.2,"apyMean30d":5.8,"tvlUsd":52000000,"ilRisk":"no","stablecoin":true,"exposure":"single"},
		{"pool":"p-eth-dai","chain":"Ethereum","project":"spark","symbol":"DAI","apy":4.1,"tvlUsd":3000000,"ilRisk":"no","stablecoin":true,"exposure":"single"},
		{"pool":"p-arb-lp","chain":"Arbitrum","project":"camelot","symbol":"USDC-WETH","apy":22.5,"tvlUsd":900000,"ilRisk":"yes","stablecoin":false,"exposure":"multi"},
		{"pool":"p-fantom","chain":"Fantom","project":"aave-v3","symbol":"USDC","apy":9.9,"tvlUsd":20000000,"ilRisk":"no","stablecoin":true,"exposure":"single"},
		{"pool":"p-broken-apy","chain":"Base","project":"degenfarm","symbol":"DEGEN","apy":150.0,"tvlUsd":5000000,"ilRisk":"no","stablecoin":false,"exposure":"single"},
		{"pool":"p-dust","chain":"Base","project":"aave-v3","symbol":"USDC","apy":3.0,"tvlUsd":50000,"ilRisk":"no","stablecoin":true,"exposure":"single"}
	]
}`

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pools", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(poolsFixture))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchPoolsFiltersAndSorts(t *testing.T) {
	srv := newFixtureServer(t)
	c := NewClientWithBase(httpx.New(2*time.Second, 0), srv.URL)

	pools, err := c.FetchPools(context.Background())
	if err != nil {
		t.Fatalf("FetchPools failed: %v", err)
	}
	// Fantom is not a supported chain, 150% APY is broken data, $50k TVL is
	// under the floor.
	if len(pools) != 3 {
		t.Fatalf("expected 3 pools, got %d: %+v", len(pools), pools)
	}
	for i := 1; i < len(pools); i++ {
		if pools[i].APY > pools[i-1].APY {
			t.Fatalf("pools not sorted APY-descending: %+v", pools)
		}
	}
	if pools[0].PoolID != "p-arb-lp" {
		t.Fatalf("expected the LP pool to lead on APY, got %s", pools[0].PoolID)
	}

	byID := map[string]int{}
	for i, p := range pools {
		byID[p.PoolID] = i
	}
	base := pools[byID["p-base-usdc"]]
	if base.RiskLevel != 1 {
		t.Fatalf("blue-chip stable pool scored %v, want 1", base.RiskLevel)
	}
	if base.Symbol != "USDC" {
		t.Fatalf("symbol not normalized: %q", base.Symbol)
	}
	if pools[byID["p-eth-dai"]].RiskLevel != 2 {
		t.Fatalf("mid pool scored %v, want 2", pools[byID["p-eth-dai"]].RiskLevel)
	}
	if pools[byID["p-arb-lp"]].RiskLevel != 3 {
		t.Fatalf("LP pool scored %v, want 3", pools[byID["p-arb-lp"]].RiskLevel)
	}
}

func TestFetchPoolsEmptyListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pools", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":[]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClientWithBase(httpx.New(2*time.Second, 0), srv.URL)
	if _, err := c.FetchPools(context.Background()); err == nil {
		t.Fatal("expected an error for an empty listing")
	}
}
