package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/0xSardius/tidal-sub000/internal/config"
	clierr "github.com/0xSardius/tidal-sub000/internal/errors"
	"github.com/0xSardius/tidal-sub000/internal/httpx"
	"github.com/0xSardius/tidal-sub000/internal/model"
	"github.com/0xSardius/tidal-sub000/internal/swapapi"
	"github.com/0xSardius/tidal-sub000/internal/version"
	"github.com/0xSardius/tidal-sub000/internal/yield"
)

// Runner wires the command tree to concrete writers so tests can capture
// output.
type Runner struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner      *Runner
	flags       config.GlobalFlags
	settings    config.Settings
	root        *cobra.Command
	lastCommand string

	aggregator *yield.Aggregator
	swapClient *swapapi.Client
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	err = normalizeRunError(err)
	if err == nil {
		return 0
	}
	state.renderError("", err)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Risk-tiered DeFi yield deposit CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			s.lastCommand = trimRootPath(cmd.CommandPath())

			if s.aggregator == nil {
				httpClient := httpx.New(settings.Timeout, settings.Retries)
				yieldClient := yield.NewClient(httpClient)
				if settings.YieldAPIBase != "" {
					yieldClient = yield.NewClientWithBase(httpClient, settings.YieldAPIBase)
				}
				s.aggregator = yield.NewAggregatorWithTTL(yieldClient, settings.YieldTTL)

				s.swapClient = swapapi.New(httpClient, settings.SwapAPIKey)
				if settings.SwapAPIBase != "" {
					s.swapClient = swapapi.NewWithBase(httpClient, settings.SwapAPIBase, settings.SwapAPIKey)
				}
			}
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})
	// Accept underscored flag spellings (--rpc_url) alongside the dashed ones.
	cmd.SetGlobalNormalizationFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().StringVar(&s.flags.Chain, "chain", "", "Chain to operate on (default base)")
	cmd.PersistentFlags().StringVar(&s.flags.RPCURL, "rpc-url", "", "RPC endpoint override")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "HTTP request timeout")
	cmd.PersistentFlags().IntVar(&s.flags.Retries, "retries", -1, "Retries per HTTP request")
	cmd.PersistentFlags().Float64Var(&s.flags.SlippagePct, "slippage", 0, "Swap slippage tolerance percent")
	cmd.PersistentFlags().BoolVar(&s.flags.NoJournal, "no-journal", false, "Disable the local execution journal")

	cmd.AddCommand(s.newYieldsCommand())
	cmd.AddCommand(s.newRecommendCommand())
	cmd.AddCommand(s.newStrategiesCommand())
	cmd.AddCommand(s.newVaultsCommand())
	cmd.AddCommand(s.newSupplyCommand())
	cmd.AddCommand(s.newWithdrawCommand())
	cmd.AddCommand(s.newVaultDepositCommand())
	cmd.AddCommand(s.newVaultWithdrawCommand())
	cmd.AddCommand(s.newSwapCommand())
	cmd.AddCommand(s.newZapCommand())
	cmd.AddCommand(s.newHistoryCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) emitSuccess(commandPath string, data any, warnings []string) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Error:    nil,
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: uuid.NewString(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
		},
	}
	return renderJSON(s.runner.stdout, env)
}

func (s *runtimeState) renderError(commandPath string, err error) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}
	code := clierr.ExitCode(err)
	typ := "internal_error"
	message := err.Error()
	if cErr, ok := clierr.As(err); ok {
		message = cErr.Message
		if cErr.Cause != nil {
			message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
		switch cErr.Code {
		case clierr.CodeUsage:
			typ = "usage_error"
		case clierr.CodeAuth:
			typ = "auth_error"
		case clierr.CodeRateLimited:
			typ = "rate_limited"
		case clierr.CodeUnavailable:
			typ = "upstream_unavailable"
		case clierr.CodeUnsupported:
			typ = "unsupported"
		case clierr.CodeSigner:
			typ = "signer_error"
		case clierr.CodeExecution:
			typ = "execution_error"
		}
	}

	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Data:    []any{},
		Error: &model.ErrorBody{
			Code:    code,
			Type:    typ,
			Message: message,
		},
		Meta: model.EnvelopeMeta{
			RequestID: uuid.NewString(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
		},
	}
	_ = renderJSON(s.runner.stderr, env)
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
