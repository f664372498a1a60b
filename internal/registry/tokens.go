package registry

import (
	"fmt"
	"strings"
)

// Token is one ERC20 entry (or the native pseudo-token) on a specific chain.
type Token struct {
	Symbol   string
	Address  string
	Decimals int
	Native   bool
}

// NativeSymbol is the chain gas asset; it has no contract address and is
// bridged into ERC20 flows via its wrapped representation.
const NativeSymbol = "ETH"

var tokensByChain = map[int64]map[string]Token{
	8453: {
		"ETH":   {Symbol: "ETH", Decimals: 18, Native: true},
		"WETH":  {Symbol: "WETH", Address: "0x4200000000000000000000000000000000000006", Decimals: 18},
		"USDC":  {Symbol: "USDC", Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
		"DAI":   {Symbol: "DAI", Address: "0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb", Decimals: 18},
		"CBETH": {Symbol: "cbETH", Address: "0x2Ae3F1Ec7F1F5012CFEab0185bfc7aa3cf0DEc22", Decimals: 18},
	},
	1: {
		"ETH":  {Symbol: "ETH", Decimals: 18, Native: true},
		"WETH": {Symbol: "WETH", Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18},
		"USDC": {Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
		"DAI":  {Symbol: "DAI", Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18},
		"USDT": {Symbol: "USDT", Address: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
	},
	42161: {
		"ETH":  {Symbol: "ETH", Decimals: 18, Native: true},
		"WETH": {Symbol: "WETH", Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", Decimals: 18},
		"USDC": {Symbol: "USDC", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6},
		"DAI":  {Symbol: "DAI", Address: "0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1", Decimals: 18},
	},
}

func ParseToken(symbol string, chainID int64) (Token, error) {
	byChain, ok := tokensByChain[chainID]
	if !ok {
		return Token{}, fmt.Errorf("no token registry for chain id %d", chainID)
	}
	token, ok := byChain[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Token{}, fmt.Errorf("unknown token %q on chain id %d", symbol, chainID)
	}
	return token, nil
}

// WrappedEquivalent reports whether a and b are the native asset and its
// wrapped representation, in either direction. Venues accept these pairs
// transparently; no swap is needed between them.
func WrappedEquivalent(a, b string) bool {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	if a == b {
		return true
	}
	return (a == NativeSymbol && b == "W"+NativeSymbol) || (b == NativeSymbol && a == "W"+NativeSymbol)
}
