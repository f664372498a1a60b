package strategy

import (
	"fmt"
	"strings"

	"github.com/0xSardius/tidal-sub000/internal/catalog"
)

// SwapPath names the conversion that must precede a deposit.
type SwapPath struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Request is one resolver invocation. APYByID carries live APY readings keyed
// by strategy ID; when absent the resolver falls back to catalog order.
type Request struct {
	Token   string
	Amount  string
	Tier    string
	APYByID map[string]float64
}

// Recommendation is the resolver's single pick.
type Recommendation struct {
	Strategy  catalog.Strategy `json:"strategy"`
	NeedsSwap bool             `json:"needs_swap"`
	SwapPath  *SwapPath        `json:"swap_path,omitempty"`
	APY       float64          `json:"apy"`
	Reasoning string           `json:"reasoning"`
}

// Recommend maps (held token, risk tier) to exactly one strategy, preferring
// a direct deposit over a swap-then-deposit. It performs no I/O. The second
// return is false when nothing in the tier can take the token: that is
// "nothing available", not an error.
func Recommend(req Request) (Recommendation, bool, error) {
	tier, err := catalog.TierBySlug(req.Tier)
	if err != nil {
		return Recommendation{}, false, err
	}
	held := strings.ToUpper(strings.TrimSpace(req.Token))
	if held == "" {
		return Recommendation{}, false, fmt.Errorf("held token is required")
	}

	eligible := catalog.EligibleStrategies(tier)

	direct := make([]catalog.Strategy, 0, len(eligible))
	swappable := make([]catalog.Strategy, 0, len(eligible))
	for _, s := range eligible {
		if !s.Accepts(held) {
			continue
		}
		if s.NeedsSwap(held) {
			swappable = append(swappable, s)
		} else {
			direct = append(direct, s)
		}
	}

	if len(direct) > 0 {
		best, apy := pickBest(direct, req.APYByID)
		return Recommendation{
			Strategy:  best,
			NeedsSwap: false,
			APY:       apy,
			Reasoning: fmt.Sprintf("Direct deposit of %s into %s (%s tier)%s", held, best.ID, tier.Name, apyNote(apy)),
		}, true, nil
	}

	if len(swappable) > 0 {
		best, apy := pickBest(swappable, req.APYByID)
		return Recommendation{
			Strategy:  best,
			NeedsSwap: true,
			SwapPath:  &SwapPath{From: held, To: best.TargetToken},
			APY:       apy,
			Reasoning: fmt.Sprintf("Swap %s to %s, then deposit into %s (%s tier)%s", held, best.TargetToken, best.ID, tier.Name, apyNote(apy)),
		}, true, nil
	}

	return Recommendation{}, false, nil
}

// pickBest ranks by supplied APY; ties and missing readings fall back to
// catalog order.
func pickBest(candidates []catalog.Strategy, apyByID map[string]float64) (catalog.Strategy, float64) {
	best := candidates[0]
	bestAPY := apyByID[best.ID]
	for _, s := range candidates[1:] {
		if apy := apyByID[s.ID]; apy > bestAPY {
			best = s
			bestAPY = apy
		}
	}
	return best, bestAPY
}

func apyNote(apy float64) string {
	if apy <= 0 {
		return ""
	}
	return fmt.Sprintf(" at %.2f%% APY", apy)
}
