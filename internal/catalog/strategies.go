package catalog

import (
	"strings"

	"github.com/0xSardius/tidal-sub000/internal/model"
	"github.com/0xSardius/tidal-sub000/internal/registry"
)

// Strategy is one catalog entry describing a way to earn yield. AcceptedTokens
// lists every token a user may arrive holding; TargetToken is what the venue
// ultimately holds. When held != target (beyond the wrapped/native pair) a
// swap precedes the deposit.
type Strategy struct {
	ID             string
	Protocol       string
	Type           StrategyType
	RiskLevel      model.RiskLevel
	AcceptedTokens []string
	TargetToken    string
	Description    string
}

// NeedsSwap reports whether depositing heldToken through this strategy
// requires a prior swap. The native asset and its wrapped form are handled by
// the venue itself.
func (s Strategy) NeedsSwap(heldToken string) bool {
	return !registry.WrappedEquivalent(heldToken, s.TargetToken)
}

func (s Strategy) Accepts(token string) bool {
	norm := strings.ToUpper(strings.TrimSpace(token))
	for _, accepted := range s.AcceptedTokens {
		if strings.ToUpper(accepted) == norm {
			return true
		}
	}
	return false
}

var strategies = []Strategy{
	{
		ID:             "aave-usdc",
		Protocol:       "aave-v3",
		Type:           TypeStablecoinLend,
		RiskLevel:      model.RiskShallows,
		AcceptedTokens: []string{"USDC", "DAI", "ETH", "WETH"},
		TargetToken:    "USDC",
		Description:    "Supply USDC to the Aave v3 pool.",
	},
	{
		ID:             "morpho-usdc",
		Protocol:       "morpho-blue",
		Type:           TypeStablecoinLend,
		RiskLevel:      model.RiskShallows,
		AcceptedTokens: []string{"USDC", "DAI", "ETH", "WETH"},
		TargetToken:    "USDC",
		Description:    "Supply USDC through a curated Morpho market.",
	},
	{
		ID:             "aave-dai",
		Protocol:       "aave-v3",
		Type:           TypeStablecoinLend,
		RiskLevel:      model.RiskShallows,
		AcceptedTokens: []string{"DAI", "USDC", "ETH", "WETH"},
		TargetToken:    "DAI",
		Description:    "Supply DAI to the Aave v3 pool.",
	},
	{
		ID:             "aave-weth",
		Protocol:       "aave-v3",
		Type:           TypeETHLend,
		RiskLevel:      model.RiskMidDepth,
		AcceptedTokens: []string{"ETH", "WETH", "USDC"},
		TargetToken:    "WETH",
		Description:    "Supply WETH to the Aave v3 pool.",
	},
	{
		ID:             "moonwell-flagship-usdc",
		Protocol:       "morpho",
		Type:           TypeVault,
		RiskLevel:      model.RiskMidDepth,
		AcceptedTokens: []string{"USDC", "DAI", "ETH", "WETH"},
		TargetToken:    "USDC",
		Description:    "Deposit USDC into the Moonwell Flagship vault.",
	},
	{
		ID:             "moonwell-flagship-eth",
		Protocol:       "morpho",
		Type:           TypeVault,
		RiskLevel:      model.RiskMidDepth,
		AcceptedTokens: []string{"ETH", "WETH", "USDC"},
		TargetToken:    "WETH",
		Description:    "Deposit WETH into the Moonwell Flagship ETH vault.",
	},
	{
		ID:             "aerodrome-usdc-weth",
		Protocol:       "aerodrome",
		Type:           TypeLP,
		RiskLevel:      model.RiskDeep,
		AcceptedTokens: []string{"USDC", "ETH", "WETH"},
		TargetToken:    "WETH",
		Description:    "Provide USDC/WETH liquidity on Aerodrome.",
	},
}

func Strategies() []Strategy {
	out := make([]Strategy, len(strategies))
	copy(out, strategies)
	return out
}

func StrategyByID(id string) (Strategy, bool) {
	norm := strings.ToLower(strings.TrimSpace(id))
	for _, s := range strategies {
		if s.ID == norm {
			return s, true
		}
	}
	return Strategy{}, false
}

// EligibleStrategies returns catalog entries admitted by the tier, in catalog
// order: risk level within bounds and strategy type allowed.
func EligibleStrategies(tier Tier) []Strategy {
	out := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s.RiskLevel > tier.MaxRisk {
			continue
		}
		if !tier.Allows(s.Type) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// StrategiesForToken lists entries accepting the token, in catalog order.
func StrategiesForToken(token string) []Strategy {
	out := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s.Accepts(token) {
			out = append(out, s)
		}
	}
	return out
}
