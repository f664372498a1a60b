package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/0xSardius/tidal-sub000/internal/chain/signer"
	clierr "github.com/0xSardius/tidal-sub000/internal/errors"
	"github.com/0xSardius/tidal-sub000/internal/registry"
)

var (
	erc20ABI = mustABI(registry.ERC20MinimalABI)
	poolABI  = mustABI(registry.AavePoolABI)
	vaultABI = mustABI(registry.ERC4626VaultABI)
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse static ABI: %v", err))
	}
	return parsed
}

// Options tune transaction submission and confirmation polling.
type Options struct {
	PollInterval  time.Duration
	StepTimeout   time.Duration
	GasMultiplier float64
}

func DefaultOptions() Options {
	return Options{
		PollInterval:  2 * time.Second,
		StepTimeout:   2 * time.Minute,
		GasMultiplier: 1.2,
	}
}

// EVM implements Reader and Writer over a single ethclient connection. One
// instance serves one chain.
type EVM struct {
	client   *ethclient.Client
	txSigner signer.Signer
	opts     Options
}

func NewEVM(client *ethclient.Client, txSigner signer.Signer, opts Options) *EVM {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 2 * time.Minute
	}
	if opts.GasMultiplier <= 1 {
		opts.GasMultiplier = 1.2
	}
	return &EVM{client: client, txSigner: txSigner, opts: opts}
}

// Dial connects to the chain's RPC endpoint and wraps it in an EVM binding.
func Dial(ctx context.Context, rpcURL string, txSigner signer.Signer, opts Options) (*EVM, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "connect rpc", err)
	}
	return NewEVM(client, txSigner, opts), nil
}

func (e *EVM) Close() {
	if e != nil && e.client != nil {
		e.client.Close()
	}
}

func (e *EVM) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return e.readUint(ctx, erc20ABI, token, "balanceOf", owner)
}

func (e *EVM) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return e.readUint(ctx, erc20ABI, token, "allowance", owner, spender)
}

func (e *EVM) VaultShares(ctx context.Context, vault, owner common.Address) (*big.Int, error) {
	return e.readUint(ctx, vaultABI, vault, "balanceOf", owner)
}

func (e *EVM) VaultConvertToAssets(ctx context.Context, vault common.Address, shares *big.Int) (*big.Int, error) {
	return e.readUint(ctx, vaultABI, vault, "convertToAssets", shares)
}

func (e *EVM) readUint(ctx context.Context, contractABI abi.ABI, target common.Address, method string, args ...any) (*big.Int, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, fmt.Sprintf("pack %s calldata", method), err)
	}
	raw, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &target, Data: data}, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("read %s", method), err)
	}
	decoded, err := contractABI.Unpack(method, raw)
	if err != nil || len(decoded) == 0 {
		return nil, clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("decode %s response", method), err)
	}
	value, ok := decoded[0].(*big.Int)
	if !ok {
		return nil, clierr.New(clierr.CodeUnavailable, fmt.Sprintf("unexpected %s response type", method))
	}
	return value, nil
}

func (e *EVM) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeInternal, "pack approve calldata", err)
	}
	return e.SendCall(ctx, token, data, big.NewInt(0))
}

func (e *EVM) Supply(ctx context.Context, pool, asset common.Address, amount *big.Int, onBehalfOf common.Address) (common.Hash, error) {
	data, err := poolABI.Pack("supply", asset, amount, onBehalfOf, uint16(0))
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeInternal, "pack supply calldata", err)
	}
	return e.SendCall(ctx, pool, data, big.NewInt(0))
}

func (e *EVM) WithdrawLending(ctx context.Context, pool, asset common.Address, amount *big.Int, to common.Address) (common.Hash, error) {
	data, err := poolABI.Pack("withdraw", asset, amount, to)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeInternal, "pack withdraw calldata", err)
	}
	return e.SendCall(ctx, pool, data, big.NewInt(0))
}

func (e *EVM) DepositVault(ctx context.Context, vault common.Address, assets *big.Int, receiver common.Address) (common.Hash, error) {
	data, err := vaultABI.Pack("deposit", assets, receiver)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeInternal, "pack deposit calldata", err)
	}
	return e.SendCall(ctx, vault, data, big.NewInt(0))
}

func (e *EVM) RedeemVault(ctx context.Context, vault common.Address, shares *big.Int, receiver, owner common.Address) (common.Hash, error) {
	data, err := vaultABI.Pack("redeem", shares, receiver, owner)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeInternal, "pack redeem calldata", err)
	}
	return e.SendCall(ctx, vault, data, big.NewInt(0))
}

// SendCall signs and broadcasts one EIP-1559 transaction. Gas limits come
// from node estimation with a safety multiplier; fee caps follow the node's
// tip suggestion over twice the base fee.
func (e *EVM) SendCall(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	if e.txSigner == nil {
		return common.Hash{}, clierr.New(clierr.CodeSigner, "missing signer")
	}
	if value == nil {
		value = big.NewInt(0)
	}
	chainID, err := e.client.ChainID(ctx)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "read chain id", err)
	}
	from := e.txSigner.Address()
	msg := ethereum.CallMsg{From: from, To: &to, Value: value, Data: data}

	gasLimit, err := e.client.EstimateGas(ctx, msg)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeExecution, "estimate gas", err)
	}
	gasLimit = uint64(float64(gasLimit) * e.opts.GasMultiplier)

	tipCap, err := e.client.SuggestGasTipCap(ctx)
	if err != nil {
		tipCap = big.NewInt(2_000_000_000) // 2 gwei fallback
	}
	header, err := e.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "fetch latest header", err)
	}
	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(1_000_000_000)
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(2))
	feeCap.Add(feeCap, tipCap)

	nonce, err := e.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "fetch nonce", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	})
	signed, err := e.txSigner.SignTx(chainID, tx)
	if err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeSigner, "sign transaction", err)
	}
	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, clierr.Wrap(clierr.CodeUnavailable, "broadcast transaction", err)
	}
	return signed.Hash(), nil
}

// WaitMined polls for the receipt until confirmation or step timeout. A
// reverted receipt is an error; transient polling failures are ignored until
// the deadline.
func (e *EVM) WaitMined(ctx context.Context, hash common.Hash) error {
	waitCtx, cancel := context.WithTimeout(ctx, e.opts.StepTimeout)
	defer cancel()
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()
	for {
		receipt, err := e.client.TransactionReceipt(waitCtx, hash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				return nil
			}
			return clierr.New(clierr.CodeExecution, "transaction reverted on-chain")
		}
		select {
		case <-waitCtx.Done():
			return clierr.Wrap(clierr.CodeUnavailable, "timed out waiting for receipt", waitCtx.Err())
		case <-ticker.C:
		}
	}
}
