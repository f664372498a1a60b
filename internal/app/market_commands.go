package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xSardius/tidal-sub000/internal/catalog"
	clierr "github.com/0xSardius/tidal-sub000/internal/errors"
	"github.com/0xSardius/tidal-sub000/internal/model"
	"github.com/0xSardius/tidal-sub000/internal/strategy"
	"github.com/0xSardius/tidal-sub000/internal/yield"
)

func (s *runtimeState) newYieldsCommand() *cobra.Command {
	var token string
	var maxRisk string
	var chainsArg string
	var limit int
	cmd := &cobra.Command{
		Use:   "yields",
		Short: "List risk-scored yield opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			risk, err := parseRiskLevel(maxRisk)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), s.settings.Timeout)
			defer cancel()
			page, err := s.aggregator.Query(ctx, yield.Query{
				Token:   token,
				MaxRisk: risk,
				Chains:  splitCSV(chainsArg),
				Limit:   limit,
			})
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), page, nil)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Filter by token symbol substring")
	cmd.Flags().StringVar(&maxRisk, "max-risk", "", "Maximum risk tier (shallows, mid-depth, deep-water)")
	cmd.Flags().StringVar(&chainsArg, "chains", "", "Filter by chain names (comma-separated)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of opportunities to return (max 20)")
	return cmd
}

func (s *runtimeState) newRecommendCommand() *cobra.Command {
	var token string
	var amount string
	var tier string
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend a deposit strategy for a held token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var warnings []string
			ctx, cancel := context.WithTimeout(cmd.Context(), s.settings.Timeout)
			defer cancel()
			apyByID, err := s.apyReadings(ctx)
			if err != nil {
				// Live APY readings are an enhancement; the resolver falls
				// back to catalog order without them.
				warnings = append(warnings, fmt.Sprintf("live APY unavailable: %v", err))
			}

			rec, found, err := strategy.Recommend(strategy.Request{
				Token:   token,
				Amount:  amount,
				Tier:    tier,
				APYByID: apyByID,
			})
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "resolve strategy", err)
			}
			if !found {
				return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{
					"found":   false,
					"message": fmt.Sprintf("No strategy in the %s tier accepts %s", tier, strings.ToUpper(token)),
				}, warnings)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{
				"found":          true,
				"recommendation": rec,
			}, warnings)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Held token symbol")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to deposit (decimal or max)")
	cmd.Flags().StringVar(&tier, "tier", "shallows", "Risk tier (shallows, mid-depth, deep-water)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (s *runtimeState) newStrategiesCommand() *cobra.Command {
	var tierArg string
	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List catalog strategies, optionally narrowed to a tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(tierArg) == "" {
				return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{
					"tiers":      catalog.Tiers(),
					"strategies": catalog.Strategies(),
				}, nil)
			}
			tier, err := catalog.TierBySlug(tierArg)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "parse tier", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{
				"tier":       tier,
				"strategies": catalog.EligibleStrategies(tier),
			}, nil)
		},
	}
	cmd.Flags().StringVar(&tierArg, "tier", "", "Risk tier (shallows, mid-depth, deep-water)")
	return cmd
}

func (s *runtimeState) newVaultsCommand() *cobra.Command {
	var tierArg string
	var token string
	cmd := &cobra.Command{
		Use:   "vaults",
		Short: "List curated ERC-4626 vaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			vaults := catalog.Vaults()
			if strings.TrimSpace(tierArg) != "" {
				tier, err := catalog.TierBySlug(tierArg)
				if err != nil {
					return clierr.Wrap(clierr.CodeUsage, "parse tier", err)
				}
				vaults = catalog.VaultsForTier(tier)
			}
			if strings.TrimSpace(token) != "" {
				filtered := vaults[:0]
				for _, v := range vaults {
					if strings.EqualFold(v.UnderlyingSymbol, strings.TrimSpace(token)) {
						filtered = append(filtered, v)
					}
				}
				vaults = filtered
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{
				"vaults": vaults,
				"total":  len(vaults),
			}, nil)
		},
	}
	cmd.Flags().StringVar(&tierArg, "tier", "", "Risk tier (shallows, mid-depth, deep-water)")
	cmd.Flags().StringVar(&token, "token", "", "Filter by underlying token symbol")
	return cmd
}

// apyReadings maps catalog strategy IDs to live APY figures: the best
// matching listing per strategy, falling back to the vault's published rate
// for vault strategies with no listing.
func (s *runtimeState) apyReadings(ctx context.Context) (map[string]float64, error) {
	pools, err := s.aggregator.Opportunities(ctx)
	if err != nil {
		return s.fallbackAPYReadings(), err
	}
	out := map[string]float64{}
	for _, st := range catalog.Strategies() {
		target := strings.ToUpper(st.TargetToken)
		for _, p := range pools {
			if !strings.EqualFold(p.Protocol, st.Protocol) {
				continue
			}
			if !strings.Contains(p.Symbol, target) {
				continue
			}
			// Listings are APY-descending, so the first hit is the best.
			out[st.ID] = p.APY
			break
		}
	}
	for id, apy := range s.fallbackAPYReadings() {
		if _, ok := out[id]; !ok {
			out[id] = apy
		}
	}
	return out, nil
}

func (s *runtimeState) fallbackAPYReadings() map[string]float64 {
	out := map[string]float64{}
	for _, v := range catalog.Vaults() {
		if _, ok := catalog.StrategyByID(v.Slug); ok {
			out[v.Slug] = v.FallbackAPY
		}
	}
	return out
}

func parseRiskLevel(input string) (model.RiskLevel, error) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" {
		return model.RiskDeep, nil
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		level := model.RiskLevel(n)
		if !level.Valid() {
			return 0, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid risk level %d", n))
		}
		return level, nil
	}
	tier, err := catalog.TierBySlug(trimmed)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeUsage, "parse risk tier", err)
	}
	return tier.MaxRisk, nil
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		norm := strings.TrimSpace(part)
		if norm != "" {
			out = append(out, norm)
		}
	}
	return out
}
