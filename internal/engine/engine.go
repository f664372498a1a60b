package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xSardius/tidal-sub000/internal/chain"
	clierr "github.com/0xSardius/tidal-sub000/internal/errors"
	"github.com/0xSardius/tidal-sub000/internal/model"
	"github.com/0xSardius/tidal-sub000/internal/registry"
)

// Engine orchestrates multi-step executions against one chain on behalf of
// one account: resolve the amount, settle allowances, submit the action and
// wait for confirmation. All failure paths surface classified messages, never
// raw transport errors.
type Engine struct {
	reader  chain.Reader
	writer  chain.Writer
	account common.Address
}

func New(reader chain.Reader, writer chain.Writer, account common.Address) *Engine {
	return &Engine{reader: reader, writer: writer, account: account}
}

func (e *Engine) Account() common.Address { return e.account }

// resolveAmount turns an Amount into base units. A max amount reads the live
// token balance; a zero balance fails before any transaction is submitted.
func (e *Engine) resolveAmount(ctx context.Context, token registry.Token, amount Amount) (*big.Int, error) {
	if amount.IsAll() {
		balance, err := e.reader.BalanceOf(ctx, common.HexToAddress(token.Address), e.account)
		if err != nil {
			return nil, err
		}
		if balance.Sign() == 0 {
			return nil, clierr.NoBalance(token.Symbol)
		}
		return balance, nil
	}
	units, err := amount.BaseUnits(token.Decimals)
	if err != nil {
		return nil, err
	}
	if units.Sign() == 0 {
		return nil, clierr.New(clierr.CodeUsage, "amount must be greater than zero")
	}
	return units, nil
}

// ensureAllowance approves the spender for exactly the requested amount when
// the current allowance does not already cover it. A sufficient allowance
// skips the approval transaction entirely.
func (e *Engine) ensureAllowance(ctx context.Context, token registry.Token, spender common.Address, amount *big.Int, stage int, emit Sink) error {
	tokenAddr := common.HexToAddress(token.Address)
	current, err := e.reader.Allowance(ctx, tokenAddr, e.account, spender)
	if err != nil {
		return err
	}
	if current.Cmp(amount) >= 0 {
		return nil
	}
	emit.emit(Update{
		Status:  StatusApproving,
		Message: fmt.Sprintf("Approving %s %s", FormatBaseUnits(amount, token.Decimals), token.Symbol),
		Stage:   stage,
	})
	hash, err := e.writer.Approve(ctx, tokenAddr, spender, amount)
	if err != nil {
		return err
	}
	return e.writer.WaitMined(ctx, hash)
}

// fail classifies the error, emits the single terminal failed update and
// builds the matching result.
func fail(err error, stage int, emit Sink) model.ExecutionResult {
	_, message := clierr.Classify(err)
	emit.emit(Update{Status: StatusFailed, Message: message, Stage: stage})
	return model.ExecutionResult{Success: false, Error: message}
}

func complete(hash common.Hash, message string, stage int, emit Sink) model.ExecutionResult {
	emit.emit(Update{Status: StatusCompleted, Message: message, TxHash: hash.Hex(), Stage: stage})
	return model.ExecutionResult{Success: true, TxHash: hash.Hex()}
}
