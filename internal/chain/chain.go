package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Reader is the read-only chain capability the engine depends on.
type Reader interface {
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	// VaultShares reads the owner's ERC-4626 share balance.
	VaultShares(ctx context.Context, vault, owner common.Address) (*big.Int, error)
	// VaultConvertToAssets values a share count in underlying assets at the
	// vault's current exchange rate.
	VaultConvertToAssets(ctx context.Context, vault common.Address, shares *big.Int) (*big.Int, error)
}

// Writer is the transacting chain capability. Every write returns the
// submitted transaction hash; WaitMined blocks until the receipt lands and
// fails on a revert.
type Writer interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error)
	Supply(ctx context.Context, pool, asset common.Address, amount *big.Int, onBehalfOf common.Address) (common.Hash, error)
	WithdrawLending(ctx context.Context, pool, asset common.Address, amount *big.Int, to common.Address) (common.Hash, error)
	DepositVault(ctx context.Context, vault common.Address, assets *big.Int, receiver common.Address) (common.Hash, error)
	RedeemVault(ctx context.Context, vault common.Address, shares *big.Int, receiver, owner common.Address) (common.Hash, error)
	// SendCall submits pre-built calldata, e.g. an aggregator swap payload.
	SendCall(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error)
	WaitMined(ctx context.Context, hash common.Hash) error
}
