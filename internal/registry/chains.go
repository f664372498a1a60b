package registry

import (
	"fmt"
	"strings"
)

// Chain describes one supported EVM network.
type Chain struct {
	Name       string
	Slug       string
	EVMChainID int64
}

var chains = []Chain{
	{Name: "Ethereum", Slug: "ethereum", EVMChainID: 1},
	{Name: "Base", Slug: "base", EVMChainID: 8453},
	{Name: "Arbitrum", Slug: "arbitrum", EVMChainID: 42161},
	{Name: "Optimism", Slug: "optimism", EVMChainID: 10},
	{Name: "Polygon", Slug: "polygon", EVMChainID: 137},
	{Name: "Avalanche", Slug: "avalanche", EVMChainID: 43114},
}

// SupportedChainNames returns the yield ingestion allow-list in registry order.
func SupportedChainNames() []string {
	out := make([]string, 0, len(chains))
	for _, c := range chains {
		out = append(out, c.Name)
	}
	return out
}

func IsSupportedChain(name string) bool {
	_, err := ParseChain(name)
	return err == nil
}

func ParseChain(input string) (Chain, error) {
	norm := strings.ToLower(strings.TrimSpace(input))
	for _, c := range chains {
		if norm == c.Slug || strings.EqualFold(input, c.Name) {
			return c, nil
		}
	}
	return Chain{}, fmt.Errorf("unsupported chain %q", input)
}

var defaultRPCByChainID = map[int64]string{
	1:     "https://eth.llamarpc.com",
	10:    "https://mainnet.optimism.io",
	137:   "https://polygon-rpc.com",
	8453:  "https://mainnet.base.org",
	42161: "https://arb1.arbitrum.io/rpc",
	43114: "https://api.avax.network/ext/bc/C/rpc",
}

func DefaultRPCURL(chainID int64) (string, bool) {
	v, ok := defaultRPCByChainID[chainID]
	return v, ok
}

func ResolveRPCURL(override string, chainID int64) (string, error) {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override), nil
	}
	if v, ok := DefaultRPCURL(chainID); ok {
		return v, nil
	}
	return "", fmt.Errorf("no default rpc configured for chain id %d; provide --rpc-url", chainID)
}
