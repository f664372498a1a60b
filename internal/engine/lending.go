package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	clierr "github.com/0xSardius/tidal-sub000/internal/errors"
	"github.com/0xSardius/tidal-sub000/internal/model"
	"github.com/0xSardius/tidal-sub000/internal/registry"
)

// maxUint256 is the lending pool sentinel for "withdraw everything".
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// LendingRequest targets the chain's Aave v3 pool with one ERC20 asset.
type LendingRequest struct {
	ChainID int64
	Token   registry.Token
	Amount  Amount
}

func (r LendingRequest) pool() (common.Address, error) {
	addr, ok := registry.AavePool(r.ChainID)
	if !ok {
		return common.Address{}, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("no lending pool on chain id %d", r.ChainID))
	}
	return common.HexToAddress(addr), nil
}

func (r LendingRequest) validate() error {
	if r.Token.Native {
		return clierr.New(clierr.CodeUnsupported, fmt.Sprintf("lending requires an ERC20 asset; use W%s", r.Token.Symbol))
	}
	return nil
}

// Supply deposits the asset into the lending pool, approving first only when
// the existing allowance is short.
func (e *Engine) Supply(ctx context.Context, req LendingRequest, emit Sink) model.ExecutionResult {
	hash, err := e.performSupply(ctx, req, 0, emit)
	if err != nil {
		return fail(err, 0, emit)
	}
	return complete(hash, fmt.Sprintf("Supplied %s", req.Token.Symbol), 0, emit)
}

// performSupply runs the supply leg without a terminal update so multi-leg
// flows can share it.
func (e *Engine) performSupply(ctx context.Context, req LendingRequest, stage int, emit Sink) (common.Hash, error) {
	pool, err := req.pool()
	if err != nil {
		return common.Hash{}, err
	}
	if err := req.validate(); err != nil {
		return common.Hash{}, err
	}
	amount, err := e.resolveAmount(ctx, req.Token, req.Amount)
	if err != nil {
		return common.Hash{}, err
	}
	if err := e.ensureAllowance(ctx, req.Token, pool, amount, stage, emit); err != nil {
		return common.Hash{}, err
	}

	emit.emit(Update{
		Status:  StatusSupplying,
		Message: fmt.Sprintf("Supplying %s %s", FormatBaseUnits(amount, req.Token.Decimals), req.Token.Symbol),
		Stage:   stage,
	})
	hash, err := e.writer.Supply(ctx, pool, common.HexToAddress(req.Token.Address), amount, e.account)
	if err != nil {
		return common.Hash{}, err
	}
	if err := e.writer.WaitMined(ctx, hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

// WithdrawLending pulls the asset back out of the pool. A max amount uses the
// pool's uint256 sentinel so accrued interest is included without a prior
// balance read.
func (e *Engine) WithdrawLending(ctx context.Context, req LendingRequest, emit Sink) model.ExecutionResult {
	pool, err := req.pool()
	if err != nil {
		return fail(err, 0, emit)
	}
	if err := req.validate(); err != nil {
		return fail(err, 0, emit)
	}

	var amount *big.Int
	if req.Amount.IsAll() {
		amount = maxUint256
	} else {
		amount, err = req.Amount.BaseUnits(req.Token.Decimals)
		if err != nil {
			return fail(err, 0, emit)
		}
	}

	emit.emit(Update{
		Status:  StatusWithdrawing,
		Message: fmt.Sprintf("Withdrawing %s from the lending pool", req.Token.Symbol),
	})
	hash, err := e.writer.WithdrawLending(ctx, pool, common.HexToAddress(req.Token.Address), amount, e.account)
	if err != nil {
		return fail(err, 0, emit)
	}
	if err := e.writer.WaitMined(ctx, hash); err != nil {
		return fail(err, 0, emit)
	}
	return complete(hash, fmt.Sprintf("Withdrew %s", req.Token.Symbol), 0, emit)
}
