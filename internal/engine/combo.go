package engine

import (
	"context"
	"fmt"

	"github.com/0xSardius/tidal-sub000/internal/model"
	"github.com/0xSardius/tidal-sub000/internal/registry"
)

// ZapRequest is the swap-then-supply flow: sell the held token, then supply
// everything received into the lending pool. The supply leg never runs when
// the swap leg fails.
type ZapRequest struct {
	ChainID     int64
	HeldToken   registry.Token
	TargetToken registry.Token
	Amount      Amount
	SlippagePct *float64
}

const (
	zapStageSwap   = 0
	zapStageSupply = 1
	zapStageDone   = 2
)

// Zap executes the two-leg deposit. Leg progress carries the stage number so
// callers can render "step 1 of 2" style output.
func (e *Engine) Zap(ctx context.Context, quoter Quoter, req ZapRequest, emit Sink) model.ExecutionResult {
	_, err := e.performSwap(ctx, quoter, SwapRequest{
		ChainID:     req.ChainID,
		SellToken:   req.HeldToken,
		BuyToken:    req.TargetToken,
		Amount:      req.Amount,
		SlippagePct: req.SlippagePct,
	}, zapStageSwap, emit)
	if err != nil {
		return fail(err, zapStageSwap, emit)
	}

	// The swap output amount is only known after the leg lands, so the
	// supply leg always takes the full received balance.
	hash, err := e.performSupply(ctx, LendingRequest{
		ChainID: req.ChainID,
		Token:   req.TargetToken,
		Amount:  All(),
	}, zapStageSupply, emit)
	if err != nil {
		return fail(err, zapStageSupply, emit)
	}
	return complete(hash, fmt.Sprintf("Swapped %s and supplied %s", req.HeldToken.Symbol, req.TargetToken.Symbol), zapStageDone, emit)
}
