package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/0xSardius/tidal-sub000/internal/catalog"
	"github.com/0xSardius/tidal-sub000/internal/registry"
	"github.com/0xSardius/tidal-sub000/internal/swapapi"
)

var (
	testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")
	usdcBase    = registry.Token{Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6}
	wethBase    = registry.Token{Symbol: "WETH", Address: "0x4200000000000000000000000000000000000006", Decimals: 18}
	ethBase     = registry.Token{Symbol: "ETH", Decimals: 18, Native: true}
)

type approveCall struct {
	token, spender common.Address
	amount         *big.Int
}

type supplyCall struct {
	pool, asset common.Address
	amount      *big.Int
}

type withdrawCall struct {
	pool, asset common.Address
	amount      *big.Int
}

// fakeChain satisfies chain.Reader and chain.Writer with recorded calls.
type fakeChain struct {
	balances   map[common.Address]*big.Int
	allowances map[string]*big.Int
	shares     *big.Int
	assets     *big.Int

	approvals   []approveCall
	supplies    []supplyCall
	withdrawals []withdrawCall
	deposits    []*big.Int
	redeems     []*big.Int
	sendCalls   int
	sendTo      common.Address
	sendValue   *big.Int

	supplyErr error
	sendErr   error
	waitErr   error

	nextHash byte
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balances:   map[common.Address]*big.Int{},
		allowances: map[string]*big.Int{},
		shares:     big.NewInt(0),
		assets:     big.NewInt(0),
	}
}

func allowanceKey(token, spender common.Address) string {
	return token.Hex() + "|" + spender.Hex()
}

func (f *fakeChain) hash() common.Hash {
	f.nextHash++
	return common.BytesToHash([]byte{f.nextHash})
}

func (f *fakeChain) writes() int {
	return len(f.approvals) + len(f.supplies) + len(f.withdrawals) + len(f.deposits) + len(f.redeems) + f.sendCalls
}

func (f *fakeChain) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	if b, ok := f.balances[token]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChain) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	if a, ok := f.allowances[allowanceKey(token, spender)]; ok {
		return new(big.Int).Set(a), nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChain) VaultShares(ctx context.Context, vault, owner common.Address) (*big.Int, error) {
	return new(big.Int).Set(f.shares), nil
}

func (f *fakeChain) VaultConvertToAssets(ctx context.Context, vault common.Address, shares *big.Int) (*big.Int, error) {
	return new(big.Int).Set(f.assets), nil
}

func (f *fakeChain) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	f.approvals = append(f.approvals, approveCall{token: token, spender: spender, amount: new(big.Int).Set(amount)})
	return f.hash(), nil
}

func (f *fakeChain) Supply(ctx context.Context, pool, asset common.Address, amount *big.Int, onBehalfOf common.Address) (common.Hash, error) {
	if f.supplyErr != nil {
		return common.Hash{}, f.supplyErr
	}
	f.supplies = append(f.supplies, supplyCall{pool: pool, asset: asset, amount: new(big.Int).Set(amount)})
	return f.hash(), nil
}

func (f *fakeChain) WithdrawLending(ctx context.Context, pool, asset common.Address, amount *big.Int, to common.Address) (common.Hash, error) {
	f.withdrawals = append(f.withdrawals, withdrawCall{pool: pool, asset: asset, amount: new(big.Int).Set(amount)})
	return f.hash(), nil
}

func (f *fakeChain) DepositVault(ctx context.Context, vault common.Address, assets *big.Int, receiver common.Address) (common.Hash, error) {
	f.deposits = append(f.deposits, new(big.Int).Set(assets))
	return f.hash(), nil
}

func (f *fakeChain) RedeemVault(ctx context.Context, vault common.Address, shares *big.Int, receiver, owner common.Address) (common.Hash, error) {
	f.redeems = append(f.redeems, new(big.Int).Set(shares))
	return f.hash(), nil
}

func (f *fakeChain) SendCall(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	f.sendCalls++
	f.sendTo = to
	f.sendValue = new(big.Int).Set(value)
	return f.hash(), nil
}

func (f *fakeChain) WaitMined(ctx context.Context, hash common.Hash) error {
	return f.waitErr
}

type fakeQuoter struct {
	quote    swapapi.Quote
	err      error
	requests []swapapi.QuoteRequest
}

func (f *fakeQuoter) Quote(ctx context.Context, req swapapi.QuoteRequest) (swapapi.Quote, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return swapapi.Quote{}, f.err
	}
	return f.quote, nil
}

func goodQuote() swapapi.Quote {
	return swapapi.Quote{
		SellAmount:      "25000000",
		BuyAmount:       "7000000000000000",
		To:              "0x2222222222222222222222222222222222222222",
		Data:            "0xdeadbeef",
		Value:           "0",
		AllowanceTarget: "0x3333333333333333333333333333333333333333",
	}
}

func terminalCount(updates []Update) int {
	n := 0
	for _, u := range updates {
		if u.Status.Terminal() {
			n++
		}
	}
	return n
}

func tokenAddr(t registry.Token) common.Address {
	return common.HexToAddress(t.Address)
}

func basePool() common.Address {
	addr, _ := registry.AavePool(8453)
	return common.HexToAddress(addr)
}

func TestSupplySkipsApprovalWhenAllowanceCovers(t *testing.T) {
	fc := newFakeChain()
	fc.balances[tokenAddr(usdcBase)] = big.NewInt(100_000_000)
	fc.allowances[allowanceKey(tokenAddr(usdcBase), basePool())] = big.NewInt(50_000_000)
	eng := New(fc, fc, testAccount)

	amt, _ := ParseAmount("25")
	rec := &Recorder{}
	result := eng.Supply(context.Background(), LendingRequest{ChainID: 8453, Token: usdcBase, Amount: amt}, rec.Sink())
	if !result.Success {
		t.Fatalf("supply failed: %s", result.Error)
	}
	if len(fc.approvals) != 0 {
		t.Fatalf("sufficient allowance must skip approval: %+v", fc.approvals)
	}
	if fc.writes() != 1 {
		t.Fatalf("expected exactly 1 write, got %d", fc.writes())
	}
	if fc.supplies[0].amount.Cmp(big.NewInt(25_000_000)) != 0 {
		t.Fatalf("wrong supply amount: %s", fc.supplies[0].amount)
	}
	if terminalCount(rec.Updates) != 1 {
		t.Fatalf("expected exactly one terminal update: %+v", rec.Updates)
	}
}

func TestSupplyApprovesExactAmountWhenAllowanceShort(t *testing.T) {
	fc := newFakeChain()
	fc.balances[tokenAddr(usdcBase)] = big.NewInt(100_000_000)
	eng := New(fc, fc, testAccount)

	amt, _ := ParseAmount("25")
	rec := &Recorder{}
	result := eng.Supply(context.Background(), LendingRequest{ChainID: 8453, Token: usdcBase, Amount: amt}, rec.Sink())
	if !result.Success {
		t.Fatalf("supply failed: %s", result.Error)
	}
	if len(fc.approvals) != 1 {
		t.Fatalf("expected 1 approval, got %d", len(fc.approvals))
	}
	if fc.approvals[0].amount.Cmp(big.NewInt(25_000_000)) != 0 {
		t.Fatalf("approval must be the exact amount, got %s", fc.approvals[0].amount)
	}
	if fc.approvals[0].spender != basePool() {
		t.Fatalf("approval spender must be the pool: %s", fc.approvals[0].spender)
	}
	if fc.writes() != 2 {
		t.Fatalf("expected 2 writes (approve + supply), got %d", fc.writes())
	}
	if rec.Updates[0].Status != StatusApproving {
		t.Fatalf("first update should be approving: %+v", rec.Updates)
	}
}

func TestSupplyMaxWithZeroBalanceWritesNothing(t *testing.T) {
	fc := newFakeChain()
	eng := New(fc, fc, testAccount)

	rec := &Recorder{}
	result := eng.Supply(context.Background(), LendingRequest{ChainID: 8453, Token: usdcBase, Amount: All()}, rec.Sink())
	if result.Success {
		t.Fatal("expected failure on zero balance")
	}
	if fc.writes() != 0 {
		t.Fatalf("zero balance must not submit transactions, got %d writes", fc.writes())
	}
	if !strings.Contains(result.Error, "No USDC balance") {
		t.Fatalf("unexpected message: %q", result.Error)
	}
	if terminalCount(rec.Updates) != 1 || rec.Updates[len(rec.Updates)-1].Status != StatusFailed {
		t.Fatalf("expected exactly one failed terminal: %+v", rec.Updates)
	}
}

func TestSupplyMaxUsesFullBalance(t *testing.T) {
	fc := newFakeChain()
	fc.balances[tokenAddr(usdcBase)] = big.NewInt(42_000_000)
	eng := New(fc, fc, testAccount)

	result := eng.Supply(context.Background(), LendingRequest{ChainID: 8453, Token: usdcBase, Amount: All()}, nil)
	if !result.Success {
		t.Fatalf("supply failed: %s", result.Error)
	}
	if fc.supplies[0].amount.Cmp(big.NewInt(42_000_000)) != 0 {
		t.Fatalf("max must supply the full balance, got %s", fc.supplies[0].amount)
	}
}

func TestSupplyRejectsNativeAsset(t *testing.T) {
	fc := newFakeChain()
	eng := New(fc, fc, testAccount)
	result := eng.Supply(context.Background(), LendingRequest{ChainID: 8453, Token: ethBase, Amount: All()}, nil)
	if result.Success || fc.writes() != 0 {
		t.Fatalf("native supply must fail without writes: %+v", result)
	}
}

func TestSupplyClassifiesUserRejection(t *testing.T) {
	fc := newFakeChain()
	fc.balances[tokenAddr(usdcBase)] = big.NewInt(100_000_000)
	fc.allowances[allowanceKey(tokenAddr(usdcBase), basePool())] = big.NewInt(100_000_000)
	fc.supplyErr = errors.New("user rejected the request")
	eng := New(fc, fc, testAccount)

	rec := &Recorder{}
	result := eng.Supply(context.Background(), LendingRequest{ChainID: 8453, Token: usdcBase, Amount: All()}, rec.Sink())
	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(result.Error, "cancelled") {
		t.Fatalf("rejection should surface as a cancellation: %q", result.Error)
	}
	if terminalCount(rec.Updates) != 1 {
		t.Fatalf("expected exactly one terminal update: %+v", rec.Updates)
	}
}

func TestWithdrawLendingMaxUsesUint256Sentinel(t *testing.T) {
	fc := newFakeChain()
	eng := New(fc, fc, testAccount)

	result := eng.WithdrawLending(context.Background(), LendingRequest{ChainID: 8453, Token: usdcBase, Amount: All()}, nil)
	if !result.Success {
		t.Fatalf("withdraw failed: %s", result.Error)
	}
	if fc.withdrawals[0].amount.Cmp(maxUint256) != 0 {
		t.Fatalf("max withdraw must pass the uint256 sentinel, got %s", fc.withdrawals[0].amount)
	}
}

func TestWithdrawLendingExactAmount(t *testing.T) {
	fc := newFakeChain()
	eng := New(fc, fc, testAccount)

	amt, _ := ParseAmount("10.5")
	result := eng.WithdrawLending(context.Background(), LendingRequest{ChainID: 8453, Token: usdcBase, Amount: amt}, nil)
	if !result.Success {
		t.Fatalf("withdraw failed: %s", result.Error)
	}
	if fc.withdrawals[0].amount.Cmp(big.NewInt(10_500_000)) != 0 {
		t.Fatalf("wrong withdraw amount: %s", fc.withdrawals[0].amount)
	}
}

func testVault() catalog.Vault {
	v, ok := catalog.VaultBySlug("moonwell-flagship-usdc")
	if !ok {
		panic("fixture vault missing")
	}
	return v
}

func TestVaultWithdrawAllRedeemsFullShareBalance(t *testing.T) {
	fc := newFakeChain()
	fc.shares = big.NewInt(1_000)
	eng := New(fc, fc, testAccount)

	result := eng.WithdrawVault(context.Background(), VaultRequest{Vault: testVault(), Amount: All()}, nil)
	if !result.Success {
		t.Fatalf("vault withdraw failed: %s", result.Error)
	}
	if fc.redeems[0].Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("max must redeem all shares, got %s", fc.redeems[0])
	}
}

func TestVaultWithdrawPartialConvertsProportionally(t *testing.T) {
	fc := newFakeChain()
	fc.shares = big.NewInt(1_000)
	fc.assets = big.NewInt(2_000_000) // 2 USDC across 1000 shares
	eng := New(fc, fc, testAccount)

	amt, _ := ParseAmount("0.5")
	result := eng.WithdrawVault(context.Background(), VaultRequest{Vault: testVault(), Amount: amt}, nil)
	if !result.Success {
		t.Fatalf("vault withdraw failed: %s", result.Error)
	}
	// 1000 * 500000 / 2000000 = 250 shares.
	if fc.redeems[0].Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("wrong proportional share count: %s", fc.redeems[0])
	}
}

func TestVaultWithdrawOverPositionCapsAtFullBalance(t *testing.T) {
	fc := newFakeChain()
	fc.shares = big.NewInt(1_000)
	fc.assets = big.NewInt(2_000_000)
	eng := New(fc, fc, testAccount)

	amt, _ := ParseAmount("100")
	result := eng.WithdrawVault(context.Background(), VaultRequest{Vault: testVault(), Amount: amt}, nil)
	if !result.Success {
		t.Fatalf("vault withdraw failed: %s", result.Error)
	}
	if fc.redeems[0].Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("oversized request should cap at all shares, got %s", fc.redeems[0])
	}
}

func TestVaultWithdrawNoPosition(t *testing.T) {
	fc := newFakeChain()
	eng := New(fc, fc, testAccount)

	rec := &Recorder{}
	result := eng.WithdrawVault(context.Background(), VaultRequest{Vault: testVault(), Amount: All()}, rec.Sink())
	if result.Success {
		t.Fatal("expected failure with no shares")
	}
	if !strings.Contains(result.Error, "No position") {
		t.Fatalf("unexpected message: %q", result.Error)
	}
	if fc.writes() != 0 {
		t.Fatalf("no position must not submit transactions, got %d writes", fc.writes())
	}
}

func TestVaultDepositApprovesVault(t *testing.T) {
	fc := newFakeChain()
	fc.balances[tokenAddr(usdcBase)] = big.NewInt(9_000_000)
	eng := New(fc, fc, testAccount)

	amt, _ := ParseAmount("5")
	result := eng.DepositVault(context.Background(), VaultRequest{Vault: testVault(), Amount: amt}, nil)
	if !result.Success {
		t.Fatalf("vault deposit failed: %s", result.Error)
	}
	if len(fc.approvals) != 1 || fc.approvals[0].spender != common.HexToAddress(testVault().Address) {
		t.Fatalf("deposit must approve the vault: %+v", fc.approvals)
	}
	if fc.deposits[0].Cmp(big.NewInt(5_000_000)) != 0 {
		t.Fatalf("wrong deposit amount: %s", fc.deposits[0])
	}
}

func TestSwapScopesQuoteToSwapperAndApprovesRouter(t *testing.T) {
	fc := newFakeChain()
	fc.balances[tokenAddr(usdcBase)] = big.NewInt(50_000_000)
	eng := New(fc, fc, testAccount)
	quoter := &fakeQuoter{quote: goodQuote()}

	amt, _ := ParseAmount("25")
	rec := &Recorder{}
	result := eng.Swap(context.Background(), quoter, SwapRequest{
		ChainID:   8453,
		SellToken: usdcBase,
		BuyToken:  wethBase,
		Amount:    amt,
	}, rec.Sink())
	if !result.Success {
		t.Fatalf("swap failed: %s", result.Error)
	}
	if len(quoter.requests) != 1 {
		t.Fatalf("expected one fresh quote, got %d", len(quoter.requests))
	}
	if quoter.requests[0].Swapper != testAccount.Hex() {
		t.Fatalf("quote must be scoped to the swapper: %q", quoter.requests[0].Swapper)
	}
	if quoter.requests[0].SellAmount != "25000000" {
		t.Fatalf("wrong sell amount: %q", quoter.requests[0].SellAmount)
	}
	if len(fc.approvals) != 1 || fc.approvals[0].spender != common.HexToAddress(goodQuote().AllowanceTarget) {
		t.Fatalf("swap must approve the allowance target: %+v", fc.approvals)
	}
	if fc.sendTo != common.HexToAddress(goodQuote().To) {
		t.Fatalf("swap must call the quoted router: %s", fc.sendTo)
	}
	if terminalCount(rec.Updates) != 1 {
		t.Fatalf("expected exactly one terminal update: %+v", rec.Updates)
	}
}

func TestSwapRejectsWrappedPair(t *testing.T) {
	fc := newFakeChain()
	eng := New(fc, fc, testAccount)
	quoter := &fakeQuoter{quote: goodQuote()}

	amt, _ := ParseAmount("1")
	result := eng.Swap(context.Background(), quoter, SwapRequest{
		ChainID:   8453,
		SellToken: ethBase,
		BuyToken:  wethBase,
		Amount:    amt,
	}, nil)
	if result.Success {
		t.Fatal("ETH/WETH must not route through the aggregator")
	}
	if len(quoter.requests) != 0 {
		t.Fatalf("no quote should be fetched for a wrapped pair: %d", len(quoter.requests))
	}
}

func TestSwapNativeSellNeedsExactAmount(t *testing.T) {
	fc := newFakeChain()
	eng := New(fc, fc, testAccount)
	quoter := &fakeQuoter{quote: goodQuote()}

	result := eng.Swap(context.Background(), quoter, SwapRequest{
		ChainID:   8453,
		SellToken: ethBase,
		BuyToken:  usdcBase,
		Amount:    All(),
	}, nil)
	if result.Success {
		t.Fatal("selling native max must fail")
	}
	if fc.writes() != 0 {
		t.Fatalf("expected no writes, got %d", fc.writes())
	}
}

func TestZapRunsSwapThenSuppliesEverything(t *testing.T) {
	fc := newFakeChain()
	fc.balances[tokenAddr(wethBase)] = big.NewInt(3_000_000_000_000_000_000)
	// The swap leg credits USDC; the fake balance stands in for the output.
	fc.balances[tokenAddr(usdcBase)] = big.NewInt(80_000_000)
	eng := New(fc, fc, testAccount)
	quoter := &fakeQuoter{quote: goodQuote()}

	amt, _ := ParseAmount("1")
	rec := &Recorder{}
	result := eng.Zap(context.Background(), quoter, ZapRequest{
		ChainID:     8453,
		HeldToken:   wethBase,
		TargetToken: usdcBase,
		Amount:      amt,
	}, rec.Sink())
	if !result.Success {
		t.Fatalf("zap failed: %s", result.Error)
	}
	if fc.sendCalls != 1 {
		t.Fatalf("expected 1 swap call, got %d", fc.sendCalls)
	}
	if len(fc.supplies) != 1 || fc.supplies[0].amount.Cmp(big.NewInt(80_000_000)) != 0 {
		t.Fatalf("supply leg must take the full received balance: %+v", fc.supplies)
	}
	if terminalCount(rec.Updates) != 1 {
		t.Fatalf("expected exactly one terminal update: %+v", rec.Updates)
	}
	last := rec.Updates[len(rec.Updates)-1]
	if last.Status != StatusCompleted || last.Stage != zapStageDone {
		t.Fatalf("unexpected terminal: %+v", last)
	}
	var sawSwap, sawSupply bool
	for _, u := range rec.Updates {
		if u.Status == StatusSwapping && u.Stage == zapStageSwap {
			sawSwap = true
		}
		if u.Status == StatusSupplying && u.Stage == zapStageSupply {
			sawSupply = true
		}
	}
	if !sawSwap || !sawSupply {
		t.Fatalf("missing staged leg updates: %+v", rec.Updates)
	}
}

func TestZapSkipsSupplyWhenSwapFails(t *testing.T) {
	fc := newFakeChain()
	fc.balances[tokenAddr(wethBase)] = big.NewInt(3_000_000_000_000_000_000)
	fc.sendErr = fmt.Errorf("execution reverted: slippage tolerance exceeded")
	eng := New(fc, fc, testAccount)
	quoter := &fakeQuoter{quote: goodQuote()}

	amt, _ := ParseAmount("1")
	rec := &Recorder{}
	result := eng.Zap(context.Background(), quoter, ZapRequest{
		ChainID:     8453,
		HeldToken:   wethBase,
		TargetToken: usdcBase,
		Amount:      amt,
	}, rec.Sink())
	if result.Success {
		t.Fatal("expected zap failure")
	}
	if len(fc.supplies) != 0 {
		t.Fatalf("supply leg must not run after a failed swap: %+v", fc.supplies)
	}
	if !strings.Contains(result.Error, "slippage") {
		t.Fatalf("unexpected message: %q", result.Error)
	}
	last := rec.Updates[len(rec.Updates)-1]
	if last.Status != StatusFailed || last.Stage != zapStageSwap {
		t.Fatalf("failure should land on the swap stage: %+v", last)
	}
	if terminalCount(rec.Updates) != 1 {
		t.Fatalf("expected exactly one terminal update: %+v", rec.Updates)
	}
}
