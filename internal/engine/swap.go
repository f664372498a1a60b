package engine

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	clierr "github.com/0xSardius/tidal-sub000/internal/errors"
	"github.com/0xSardius/tidal-sub000/internal/model"
	"github.com/0xSardius/tidal-sub000/internal/registry"
	"github.com/0xSardius/tidal-sub000/internal/swapapi"
)

// Quoter supplies executable swap quotes. Quotes are fetched fresh for every
// execution and are bound to the swapper address.
type Quoter interface {
	Quote(ctx context.Context, req swapapi.QuoteRequest) (swapapi.Quote, error)
}

// SwapRequest is one exact-input token swap through the aggregator.
type SwapRequest struct {
	ChainID     int64
	SellToken   registry.Token
	BuyToken    registry.Token
	Amount      Amount
	SlippagePct *float64
}

// Swap sells the input token for the output token via the aggregator router.
func (e *Engine) Swap(ctx context.Context, quoter Quoter, req SwapRequest, emit Sink) model.ExecutionResult {
	hash, err := e.performSwap(ctx, quoter, req, 0, emit)
	if err != nil {
		return fail(err, 0, emit)
	}
	return complete(hash, fmt.Sprintf("Swapped %s to %s", req.SellToken.Symbol, req.BuyToken.Symbol), 0, emit)
}

// performSwap runs the swap leg without emitting a terminal update so that
// multi-leg flows can share it.
func (e *Engine) performSwap(ctx context.Context, quoter Quoter, req SwapRequest, stage int, emit Sink) (common.Hash, error) {
	if registry.WrappedEquivalent(req.SellToken.Symbol, req.BuyToken.Symbol) {
		return common.Hash{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s and %s do not require a swap", req.SellToken.Symbol, req.BuyToken.Symbol))
	}

	var sellAmount *big.Int
	var err error
	if req.SellToken.Native {
		if req.Amount.IsAll() {
			return common.Hash{}, clierr.New(clierr.CodeUsage, "selling the native asset requires an exact amount")
		}
		sellAmount, err = req.Amount.BaseUnits(req.SellToken.Decimals)
	} else {
		sellAmount, err = e.resolveAmount(ctx, req.SellToken, req.Amount)
	}
	if err != nil {
		return common.Hash{}, err
	}

	quote, err := quoter.Quote(ctx, swapapi.QuoteRequest{
		ChainID:     req.ChainID,
		Swapper:     e.account.Hex(),
		SellToken:   req.SellToken,
		BuyToken:    req.BuyToken,
		SellAmount:  sellAmount.String(),
		SlippagePct: req.SlippagePct,
	})
	if err != nil {
		return common.Hash{}, err
	}

	if !req.SellToken.Native {
		spender := common.HexToAddress(quote.AllowanceTarget)
		if err := e.ensureAllowance(ctx, req.SellToken, spender, sellAmount, stage, emit); err != nil {
			return common.Hash{}, err
		}
	}

	data, err := hexutil.Decode(quote.Data)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "decode aggregator calldata", err)
	}
	value, err := parseWeiValue(quote.Value)
	if err != nil {
		return common.Hash{}, err
	}

	emit.emit(Update{
		Status:  StatusSwapping,
		Message: fmt.Sprintf("Swapping %s %s to %s", FormatBaseUnits(sellAmount, req.SellToken.Decimals), req.SellToken.Symbol, req.BuyToken.Symbol),
		Stage:   stage,
	})
	hash, err := e.writer.SendCall(ctx, common.HexToAddress(quote.To), data, value)
	if err != nil {
		return common.Hash{}, err
	}
	if err := e.writer.WaitMined(ctx, hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func parseWeiValue(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		value, err := hexutil.DecodeBig(trimmed)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeUnavailable, "decode aggregator value", err)
		}
		return value, nil
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("invalid aggregator value %q", raw))
	}
	return value, nil
}
