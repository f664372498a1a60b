package catalog

import (
	"testing"

	"github.com/0xSardius/tidal-sub000/internal/model"
)

func TestTierGating(t *testing.T) {
	shallows, err := TierBySlug("shallows")
	if err != nil {
		t.Fatalf("TierBySlug failed: %v", err)
	}
	for _, s := range EligibleStrategies(shallows) {
		if s.RiskLevel != model.RiskShallows {
			t.Fatalf("shallows admitted risk %v strategy %s", s.RiskLevel, s.ID)
		}
		if s.Type != TypeStablecoinLend {
			t.Fatalf("shallows admitted type %s strategy %s", s.Type, s.ID)
		}
	}

	mid, err := TierBySlug("mid-depth")
	if err != nil {
		t.Fatalf("TierBySlug failed: %v", err)
	}
	var sawVault bool
	for _, s := range EligibleStrategies(mid) {
		if s.RiskLevel > model.RiskMidDepth {
			t.Fatalf("mid-depth admitted risk %v strategy %s", s.RiskLevel, s.ID)
		}
		if s.Type == TypeLP {
			t.Fatalf("mid-depth must not admit LP strategies: %s", s.ID)
		}
		if s.Type == TypeVault {
			sawVault = true
		}
	}
	if !sawVault {
		t.Fatal("mid-depth should admit vault strategies")
	}

	deep, err := TierBySlug("deep-water")
	if err != nil {
		t.Fatalf("TierBySlug failed: %v", err)
	}
	if len(EligibleStrategies(deep)) != len(Strategies()) {
		t.Fatal("deep-water should admit the whole catalog")
	}
}

func TestTierBySlugUnknown(t *testing.T) {
	if _, err := TierBySlug("abyss"); err == nil {
		t.Fatal("expected an error for an unknown tier")
	}
}

func TestStrategyNeedsSwap(t *testing.T) {
	s, ok := StrategyByID("aave-weth")
	if !ok {
		t.Fatal("aave-weth missing from catalog")
	}
	if s.NeedsSwap("WETH") || s.NeedsSwap("ETH") || s.NeedsSwap("eth") {
		t.Fatal("the wrapped pair must not need a swap")
	}
	if !s.NeedsSwap("USDC") {
		t.Fatal("USDC into a WETH venue needs a swap")
	}
}

func TestVaultLookups(t *testing.T) {
	v, ok := VaultBySlug("Moonwell-Flagship-USDC")
	if !ok {
		t.Fatal("slug lookup should be case-insensitive")
	}
	if v.UnderlyingSymbol != "USDC" || v.ChainID != 8453 {
		t.Fatalf("unexpected vault: %+v", v)
	}

	mid, _ := TierBySlug("mid-depth")
	for _, mv := range VaultsForTier(mid) {
		if mv.RiskLevel > model.RiskMidDepth {
			t.Fatalf("mid-depth admitted vault %s at risk %v", mv.Slug, mv.RiskLevel)
		}
	}

	weth := VaultsForToken("weth")
	if len(weth) == 0 {
		t.Fatal("expected WETH vaults")
	}
	for _, mv := range weth {
		if mv.UnderlyingSymbol != "WETH" {
			t.Fatalf("token filter leaked %s", mv.Slug)
		}
	}
}

func TestStrategiesForToken(t *testing.T) {
	for _, s := range StrategiesForToken("dai") {
		if !s.Accepts("DAI") {
			t.Fatalf("strategy %s does not accept DAI", s.ID)
		}
	}
}
