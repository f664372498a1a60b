package catalog

import (
	"fmt"
	"strings"

	"github.com/0xSardius/tidal-sub000/internal/model"
)

// StrategyType tags what kind of venue a strategy deposits into. Tiers gate
// on these tags in addition to risk level.
type StrategyType string

const (
	TypeStablecoinLend StrategyType = "stablecoin-lend"
	TypeETHLend        StrategyType = "eth-lend"
	TypeVault          StrategyType = "vault"
	TypeLP             StrategyType = "lp"
)

// Tier is one user-selectable risk appetite. Tiers are defined once at
// process start and never mutated.
type Tier struct {
	Slug         string
	Name         string
	Level        model.RiskLevel
	MaxRisk      model.RiskLevel
	AllowedTypes []StrategyType
	Description  string
}

func (t Tier) Allows(st StrategyType) bool {
	for _, allowed := range t.AllowedTypes {
		if allowed == st {
			return true
		}
	}
	return false
}

var tiers = []Tier{
	{
		Slug:         "shallows",
		Name:         "Shallows",
		Level:        model.RiskShallows,
		MaxRisk:      model.RiskShallows,
		AllowedTypes: []StrategyType{TypeStablecoinLend},
		Description:  "Stablecoin lending on blue-chip money markets only.",
	},
	{
		Slug:         "mid-depth",
		Name:         "Mid-Depth",
		Level:        model.RiskMidDepth,
		MaxRisk:      model.RiskMidDepth,
		AllowedTypes: []StrategyType{TypeStablecoinLend, TypeETHLend, TypeVault},
		Description:  "Adds ETH lending and curated ERC-4626 vaults.",
	},
	{
		Slug:         "deep-water",
		Name:         "Deep Water",
		Level:        model.RiskDeep,
		MaxRisk:      model.RiskDeep,
		AllowedTypes: []StrategyType{TypeStablecoinLend, TypeETHLend, TypeVault, TypeLP},
		Description:  "Everything, including LP positions with impermanent-loss risk.",
	},
}

func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

func TierBySlug(slug string) (Tier, error) {
	norm := strings.ToLower(strings.TrimSpace(slug))
	for _, t := range tiers {
		if t.Slug == norm {
			return t, nil
		}
	}
	return Tier{}, fmt.Errorf("unknown risk tier %q (expected shallows|mid-depth|deep-water)", slug)
}
