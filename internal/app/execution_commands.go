package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xSardius/tidal-sub000/internal/catalog"
	"github.com/0xSardius/tidal-sub000/internal/chain"
	"github.com/0xSardius/tidal-sub000/internal/chain/signer"
	"github.com/0xSardius/tidal-sub000/internal/engine"
	clierr "github.com/0xSardius/tidal-sub000/internal/errors"
	"github.com/0xSardius/tidal-sub000/internal/execlog"
	"github.com/0xSardius/tidal-sub000/internal/model"
	"github.com/0xSardius/tidal-sub000/internal/registry"
	"github.com/0xSardius/tidal-sub000/internal/strategy"
)

type execContext struct {
	chain  registry.Chain
	engine *engine.Engine
	close  func()
}

func (s *runtimeState) buildExecContext(ctx context.Context) (*execContext, error) {
	selected, err := registry.ParseChain(s.settings.Chain)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "parse chain", err)
	}
	override := s.settings.RPCURL
	if override == "" {
		override = s.settings.RPCOverrides[selected.Slug]
	}
	rpcURL, err := registry.ResolveRPCURL(override, selected.EVMChainID)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "resolve rpc endpoint", err)
	}
	txSigner, err := signer.NewLocalSignerFromEnv()
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeSigner, "load signing key", err)
	}
	evm, err := chain.Dial(ctx, rpcURL, txSigner, chain.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return &execContext{
		chain:  selected,
		engine: engine.New(evm, evm, txSigner.Address()),
		close:  evm.Close,
	}, nil
}

// runExecution owns the shared lifecycle of every transacting command:
// journal record, progress stream, terminal result, exit code.
func (s *runtimeState) runExecution(cmd *cobra.Command, kind, token, target, amount string, run func(ctx context.Context, ec *execContext, sink engine.Sink) model.ExecutionResult) error {
	ctx := cmd.Context()
	ec, err := s.buildExecContext(ctx)
	if err != nil {
		return err
	}
	defer ec.close()

	record := execlog.NewRecord(kind, ec.chain.EVMChainID, ec.engine.Account().Hex(), token, target, amount)
	recorder := &engine.Recorder{}
	sink := func(u engine.Update) {
		recorder.Updates = append(recorder.Updates, u)
		_ = renderJSON(s.runner.stderr, u)
	}

	result := run(ctx, ec, sink)

	record.Updates = recorder.Updates
	record.TxHash = result.TxHash
	record.Error = result.Error
	record.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if result.Success {
		record.Status = string(engine.StatusCompleted)
	} else {
		record.Status = string(engine.StatusFailed)
	}
	s.journalSave(record)

	if !result.Success {
		return clierr.New(clierr.CodeExecution, result.Error)
	}
	return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{
		"execution_id": record.ID,
		"result":       result,
		"updates":      recorder.Updates,
	}, nil)
}

func (s *runtimeState) journalSave(record execlog.Record) {
	if !s.settings.JournalEnabled {
		return
	}
	store, err := execlog.Open(s.settings.JournalPath, s.settings.JournalLockPath)
	if err != nil {
		fmt.Fprintf(s.runner.stderr, "warning: open journal: %v\n", err)
		return
	}
	defer func() { _ = store.Close() }()
	if err := store.Save(record); err != nil {
		fmt.Fprintf(s.runner.stderr, "warning: save journal record: %v\n", err)
	}
}

func (s *runtimeState) parseChainToken(symbol string) (registry.Chain, registry.Token, error) {
	selected, err := registry.ParseChain(s.settings.Chain)
	if err != nil {
		return registry.Chain{}, registry.Token{}, clierr.Wrap(clierr.CodeUsage, "parse chain", err)
	}
	token, err := registry.ParseToken(symbol, selected.EVMChainID)
	if err != nil {
		return registry.Chain{}, registry.Token{}, clierr.Wrap(clierr.CodeUnsupported, "parse token", err)
	}
	return selected, token, nil
}

func (s *runtimeState) slippage() *float64 {
	if s.settings.SlippagePct > 0 {
		v := s.settings.SlippagePct
		return &v
	}
	return nil
}

func (s *runtimeState) newSupplyCommand() *cobra.Command {
	var token string
	var amount string
	cmd := &cobra.Command{
		Use:   "supply",
		Short: "Supply a token to the lending pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, parsed, err := s.parseChainToken(token)
			if err != nil {
				return err
			}
			amt, err := engine.ParseAmount(amount)
			if err != nil {
				return err
			}
			return s.runExecution(cmd, "supply", parsed.Symbol, "aave-v3", amt.String(), func(ctx context.Context, ec *execContext, sink engine.Sink) model.ExecutionResult {
				return ec.engine.Supply(ctx, engine.LendingRequest{
					ChainID: ec.chain.EVMChainID,
					Token:   parsed,
					Amount:  amt,
				}, sink)
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Token symbol to supply")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to supply (decimal or max)")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (s *runtimeState) newWithdrawCommand() *cobra.Command {
	var token string
	var amount string
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw a token from the lending pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, parsed, err := s.parseChainToken(token)
			if err != nil {
				return err
			}
			amt, err := engine.ParseAmount(amount)
			if err != nil {
				return err
			}
			return s.runExecution(cmd, "withdraw", parsed.Symbol, "aave-v3", amt.String(), func(ctx context.Context, ec *execContext, sink engine.Sink) model.ExecutionResult {
				return ec.engine.WithdrawLending(ctx, engine.LendingRequest{
					ChainID: ec.chain.EVMChainID,
					Token:   parsed,
					Amount:  amt,
				}, sink)
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Token symbol to withdraw")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to withdraw (decimal or max)")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (s *runtimeState) resolveVault(slug string) (catalog.Vault, error) {
	vault, ok := catalog.VaultBySlug(slug)
	if !ok {
		return catalog.Vault{}, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("unknown vault %q", slug))
	}
	selected, err := registry.ParseChain(s.settings.Chain)
	if err != nil {
		return catalog.Vault{}, clierr.Wrap(clierr.CodeUsage, "parse chain", err)
	}
	if vault.ChainID != selected.EVMChainID {
		return catalog.Vault{}, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("vault %s lives on chain id %d, not %s", vault.Slug, vault.ChainID, selected.Name))
	}
	return vault, nil
}

func (s *runtimeState) newVaultDepositCommand() *cobra.Command {
	var slug string
	var amount string
	cmd := &cobra.Command{
		Use:   "vault-deposit",
		Short: "Deposit into a curated ERC-4626 vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := s.resolveVault(slug)
			if err != nil {
				return err
			}
			amt, err := engine.ParseAmount(amount)
			if err != nil {
				return err
			}
			return s.runExecution(cmd, "vault-deposit", vault.UnderlyingSymbol, vault.Slug, amt.String(), func(ctx context.Context, ec *execContext, sink engine.Sink) model.ExecutionResult {
				return ec.engine.DepositVault(ctx, engine.VaultRequest{Vault: vault, Amount: amt}, sink)
			})
		},
	}
	cmd.Flags().StringVar(&slug, "vault", "", "Vault slug (see vaults command)")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount of underlying to deposit (decimal or max)")
	_ = cmd.MarkFlagRequired("vault")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (s *runtimeState) newVaultWithdrawCommand() *cobra.Command {
	var slug string
	var amount string
	cmd := &cobra.Command{
		Use:   "vault-withdraw",
		Short: "Withdraw from a curated ERC-4626 vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := s.resolveVault(slug)
			if err != nil {
				return err
			}
			amt, err := engine.ParseAmount(amount)
			if err != nil {
				return err
			}
			return s.runExecution(cmd, "vault-withdraw", vault.UnderlyingSymbol, vault.Slug, amt.String(), func(ctx context.Context, ec *execContext, sink engine.Sink) model.ExecutionResult {
				return ec.engine.WithdrawVault(ctx, engine.VaultRequest{Vault: vault, Amount: amt}, sink)
			})
		},
	}
	cmd.Flags().StringVar(&slug, "vault", "", "Vault slug (see vaults command)")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount of underlying to withdraw (decimal or max)")
	_ = cmd.MarkFlagRequired("vault")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (s *runtimeState) newSwapCommand() *cobra.Command {
	var from string
	var to string
	var amount string
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap one token for another via the aggregator",
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, sellToken, err := s.parseChainToken(from)
			if err != nil {
				return err
			}
			buyToken, err := registry.ParseToken(to, selected.EVMChainID)
			if err != nil {
				return clierr.Wrap(clierr.CodeUnsupported, "parse token", err)
			}
			amt, err := engine.ParseAmount(amount)
			if err != nil {
				return err
			}
			return s.runExecution(cmd, "swap", sellToken.Symbol, buyToken.Symbol, amt.String(), func(ctx context.Context, ec *execContext, sink engine.Sink) model.ExecutionResult {
				return ec.engine.Swap(ctx, s.swapClient, engine.SwapRequest{
					ChainID:     ec.chain.EVMChainID,
					SellToken:   sellToken,
					BuyToken:    buyToken,
					Amount:      amt,
					SlippagePct: s.slippage(),
				}, sink)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Token symbol to sell")
	cmd.Flags().StringVar(&to, "to", "", "Token symbol to buy")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to sell (decimal or max)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (s *runtimeState) newZapCommand() *cobra.Command {
	var token string
	var amount string
	var tier string
	cmd := &cobra.Command{
		Use:   "zap",
		Short: "Resolve the best strategy for a held token and execute it",
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, held, err := s.parseChainToken(token)
			if err != nil {
				return err
			}
			amt, err := engine.ParseAmount(amount)
			if err != nil {
				return err
			}

			apyCtx, cancel := context.WithTimeout(cmd.Context(), s.settings.Timeout)
			apyByID, _ := s.apyReadings(apyCtx)
			cancel()

			rec, found, err := strategy.Recommend(strategy.Request{
				Token:   held.Symbol,
				Amount:  amt.String(),
				Tier:    tier,
				APYByID: apyByID,
			})
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "resolve strategy", err)
			}
			if !found {
				return clierr.New(clierr.CodeUnsupported, fmt.Sprintf("no strategy in the %s tier accepts %s", tier, held.Symbol))
			}
			fmt.Fprintf(s.runner.stderr, "%s\n", rec.Reasoning)

			run, err := s.zapPlan(selected, held, amt, rec)
			if err != nil {
				return err
			}
			return s.runExecution(cmd, "zap", held.Symbol, rec.Strategy.ID, amt.String(), run)
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Held token symbol")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to deposit (decimal or max)")
	cmd.Flags().StringVar(&tier, "tier", "shallows", "Risk tier (shallows, mid-depth, deep-water)")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

// zapPlan maps a resolved recommendation onto a concrete execution.
func (s *runtimeState) zapPlan(selected registry.Chain, held registry.Token, amt engine.Amount, rec strategy.Recommendation) (func(ctx context.Context, ec *execContext, sink engine.Sink) model.ExecutionResult, error) {
	target, err := registry.ParseToken(rec.Strategy.TargetToken, selected.EVMChainID)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnsupported, "parse strategy target token", err)
	}

	switch rec.Strategy.Type {
	case catalog.TypeStablecoinLend, catalog.TypeETHLend:
		if !rec.NeedsSwap {
			return func(ctx context.Context, ec *execContext, sink engine.Sink) model.ExecutionResult {
				return ec.engine.Supply(ctx, engine.LendingRequest{
					ChainID: ec.chain.EVMChainID,
					Token:   target,
					Amount:  amt,
				}, sink)
			}, nil
		}
		return func(ctx context.Context, ec *execContext, sink engine.Sink) model.ExecutionResult {
			return ec.engine.Zap(ctx, s.swapClient, engine.ZapRequest{
				ChainID:     ec.chain.EVMChainID,
				HeldToken:   held,
				TargetToken: target,
				Amount:      amt,
				SlippagePct: s.slippage(),
			}, sink)
		}, nil
	case catalog.TypeVault:
		if rec.NeedsSwap {
			return nil, clierr.New(clierr.CodeUnsupported, "swap-then-deposit into vaults is not supported; swap first, then vault-deposit")
		}
		vault, err := s.resolveVault(rec.Strategy.ID)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, ec *execContext, sink engine.Sink) model.ExecutionResult {
			return ec.engine.DepositVault(ctx, engine.VaultRequest{Vault: vault, Amount: amt}, sink)
		}, nil
	default:
		return nil, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("strategy type %q cannot be executed yet", rec.Strategy.Type))
	}
}

func (s *runtimeState) newHistoryCommand() *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !s.settings.JournalEnabled {
				return clierr.New(clierr.CodeUsage, "the execution journal is disabled")
			}
			store, err := execlog.Open(s.settings.JournalPath, s.settings.JournalLockPath)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "open journal", err)
			}
			defer func() { _ = store.Close() }()

			records, err := store.List(strings.TrimSpace(status), limit)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "list executions", err)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{
				"executions": records,
				"total":      len(records),
			}, nil)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, completed, failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of records to return")
	return cmd
}
