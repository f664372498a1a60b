package yield

import (
	"testing"

	"github.com/0xSardius/tidal-sub000/internal/model"
)

func TestScoreRisk(t *testing.T) {
	cases := []struct {
		name       string
		protocol   string
		exposure   string
		stablecoin bool
		ilRisk     bool
		tvlUSD     float64
		want       model.RiskLevel
	}{
		{"blue chip stable lending", "aave-v3", "single", true, false, 50_000_000, model.RiskShallows},
		{"morpho blue stable lending", "morpho-blue", "single", true, false, 12_000_000, model.RiskShallows},
		{"stable but protocol outside allow-list", "compound-v3", "single", true, false, 5_000_000, model.RiskMidDepth},
		{"blue chip but thin tvl", "aave-v3", "single", true, false, 2_000_000, model.RiskMidDepth},
		{"single non-stable", "lido", "single", false, false, 8_000_000, model.RiskMidDepth},
		{"il risk forces deep water", "aerodrome", "single", true, true, 90_000_000, model.RiskDeep},
		{"multi exposure forces deep water", "curve-dex", "multi", true, false, 90_000_000, model.RiskDeep},
		{"small single pool", "somefarm", "single", false, false, 500_000, model.RiskDeep},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := scoreRisk(tc.protocol, tc.exposure, tc.stablecoin, tc.ilRisk, tc.tvlUSD)
			if got != tc.want {
				t.Fatalf("scoreRisk(%s) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}
