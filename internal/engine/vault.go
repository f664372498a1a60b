package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xSardius/tidal-sub000/internal/catalog"
	clierr "github.com/0xSardius/tidal-sub000/internal/errors"
	"github.com/0xSardius/tidal-sub000/internal/model"
	"github.com/0xSardius/tidal-sub000/internal/registry"
)

// VaultRequest addresses one ERC-4626 venue from the catalog. Amount is in
// the vault's underlying asset for both deposits and withdrawals; share math
// stays internal.
type VaultRequest struct {
	Vault  catalog.Vault
	Amount Amount
}

func (r VaultRequest) underlying() registry.Token {
	return registry.Token{
		Symbol:   r.Vault.UnderlyingSymbol,
		Address:  r.Vault.UnderlyingAddress,
		Decimals: r.Vault.Decimals,
	}
}

// DepositVault moves underlying assets into the vault, settling the vault's
// allowance first when needed.
func (e *Engine) DepositVault(ctx context.Context, req VaultRequest, emit Sink) model.ExecutionResult {
	vaultAddr := common.HexToAddress(req.Vault.Address)
	token := req.underlying()

	amount, err := e.resolveAmount(ctx, token, req.Amount)
	if err != nil {
		return fail(err, 0, emit)
	}
	if err := e.ensureAllowance(ctx, token, vaultAddr, amount, 0, emit); err != nil {
		return fail(err, 0, emit)
	}

	emit.emit(Update{
		Status:  StatusDepositing,
		Message: fmt.Sprintf("Depositing %s %s into %s", FormatBaseUnits(amount, token.Decimals), token.Symbol, req.Vault.Name),
	})
	hash, err := e.writer.DepositVault(ctx, vaultAddr, amount, e.account)
	if err != nil {
		return fail(err, 0, emit)
	}
	if err := e.writer.WaitMined(ctx, hash); err != nil {
		return fail(err, 0, emit)
	}
	return complete(hash, fmt.Sprintf("Deposited into %s", req.Vault.Name), 0, emit)
}

// WithdrawVault redeems shares for underlying assets. A max amount redeems
// the full share balance; a partial amount is converted into shares at the
// vault's current exchange rate.
func (e *Engine) WithdrawVault(ctx context.Context, req VaultRequest, emit Sink) model.ExecutionResult {
	vaultAddr := common.HexToAddress(req.Vault.Address)
	token := req.underlying()

	userShares, err := e.reader.VaultShares(ctx, vaultAddr, e.account)
	if err != nil {
		return fail(err, 0, emit)
	}
	if userShares.Sign() == 0 {
		return fail(clierr.NoPosition(), 0, emit)
	}

	shares := userShares
	if !req.Amount.IsAll() {
		desired, err := req.Amount.BaseUnits(token.Decimals)
		if err != nil {
			return fail(err, 0, emit)
		}
		shares, err = e.sharesForAssets(ctx, vaultAddr, userShares, desired)
		if err != nil {
			return fail(err, 0, emit)
		}
	}

	emit.emit(Update{
		Status:  StatusRedeeming,
		Message: fmt.Sprintf("Redeeming shares from %s", req.Vault.Name),
	})
	hash, err := e.writer.RedeemVault(ctx, vaultAddr, shares, e.account, e.account)
	if err != nil {
		return fail(err, 0, emit)
	}
	if err := e.writer.WaitMined(ctx, hash); err != nil {
		return fail(err, 0, emit)
	}
	return complete(hash, fmt.Sprintf("Withdrew from %s", req.Vault.Name), 0, emit)
}

// sharesForAssets converts a desired asset amount into shares proportionally:
// shares = userShares * desiredAssets / currentAssets. Asking for more than
// the position holds caps at the full share balance.
func (e *Engine) sharesForAssets(ctx context.Context, vault common.Address, userShares, desiredAssets *big.Int) (*big.Int, error) {
	currentAssets, err := e.reader.VaultConvertToAssets(ctx, vault, userShares)
	if err != nil {
		return nil, err
	}
	if currentAssets.Sign() == 0 {
		return nil, clierr.NoPosition()
	}
	if desiredAssets.Cmp(currentAssets) >= 0 {
		return userShares, nil
	}
	shares := new(big.Int).Mul(userShares, desiredAssets)
	shares.Div(shares, currentAssets)
	if shares.Sign() == 0 {
		return nil, clierr.New(clierr.CodeUsage, "amount is too small to redeem any shares")
	}
	return shares, nil
}
