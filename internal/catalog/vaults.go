package catalog

import (
	"strings"

	"github.com/0xSardius/tidal-sub000/internal/model"
)

// Vault is one ERC-4626 venue. The table is the single source of truth:
// listing a new vault requires only a new entry here.
type Vault struct {
	Slug              string
	Name              string
	Protocol          string
	Curator           string
	Address           string
	UnderlyingSymbol  string
	UnderlyingAddress string
	Decimals          int
	ChainID           int64
	RiskLevel         model.RiskLevel
	FallbackAPY       float64
	Description       string
}

var vaults = []Vault{
	{
		Slug:              "moonwell-flagship-usdc",
		Name:              "Moonwell Flagship USDC",
		Protocol:          "morpho",
		Curator:           "Block Analitica",
		Address:           "0xc1256Ae5FF1cf2719D4937adb3bbCCab2E00A2Ca",
		UnderlyingSymbol:  "USDC",
		UnderlyingAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Decimals:          6,
		ChainID:           8453,
		RiskLevel:         model.RiskMidDepth,
		FallbackAPY:       5.2,
		Description:       "Blue-chip collateral USDC vault on Morpho, curated by Block Analitica.",
	},
	{
		Slug:              "spark-usdc",
		Name:              "Spark USDC Vault",
		Protocol:          "morpho",
		Curator:           "SparkDAO",
		Address:           "0x7BfA7C4f149E7415b73bdeDfe609237e29CBF34A",
		UnderlyingSymbol:  "USDC",
		UnderlyingAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Decimals:          6,
		ChainID:           8453,
		RiskLevel:         model.RiskMidDepth,
		FallbackAPY:       4.8,
		Description:       "USDC vault allocating into Spark-managed markets.",
	},
	{
		Slug:              "seamless-usdc",
		Name:              "Seamless USDC Vault",
		Protocol:          "morpho",
		Curator:           "Gauntlet",
		Address:           "0x616a4E1db48e22028f6bbf20444Cd3b8e3273738",
		UnderlyingSymbol:  "USDC",
		UnderlyingAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Decimals:          6,
		ChainID:           8453,
		RiskLevel:         model.RiskMidDepth,
		FallbackAPY:       5.9,
		Description:       "Gauntlet-curated USDC vault with broader market exposure.",
	},
	{
		Slug:              "moonwell-flagship-eth",
		Name:              "Moonwell Flagship ETH",
		Protocol:          "morpho",
		Curator:           "Block Analitica",
		Address:           "0xa0E430870c4604CcfC7B38Ca7845B1FF653D0ff1",
		UnderlyingSymbol:  "WETH",
		UnderlyingAddress: "0x4200000000000000000000000000000000000006",
		Decimals:          18,
		ChainID:           8453,
		RiskLevel:         model.RiskMidDepth,
		FallbackAPY:       2.4,
		Description:       "WETH vault lending against blue-chip LST collateral.",
	},
	{
		Slug:              "re7-weth",
		Name:              "Re7 WETH Vault",
		Protocol:          "morpho",
		Curator:           "Re7 Labs",
		Address:           "0xA2Cac0023a4797b4729Db94783405189a4203AFc",
		UnderlyingSymbol:  "WETH",
		UnderlyingAddress: "0x4200000000000000000000000000000000000006",
		Decimals:          18,
		ChainID:           8453,
		RiskLevel:         model.RiskDeep,
		FallbackAPY:       3.8,
		Description:       "Higher-yield WETH vault with long-tail collateral exposure.",
	},
}

func Vaults() []Vault {
	out := make([]Vault, len(vaults))
	copy(out, vaults)
	return out
}

func VaultBySlug(slug string) (Vault, bool) {
	norm := strings.ToLower(strings.TrimSpace(slug))
	for _, v := range vaults {
		if v.Slug == norm {
			return v, true
		}
	}
	return Vault{}, false
}

// VaultsForTier lists vaults whose risk level the tier admits.
func VaultsForTier(tier Tier) []Vault {
	out := make([]Vault, 0, len(vaults))
	for _, v := range vaults {
		if v.RiskLevel <= tier.MaxRisk {
			out = append(out, v)
		}
	}
	return out
}

// VaultsForToken lists vaults whose underlying matches the token symbol.
func VaultsForToken(token string) []Vault {
	norm := strings.ToUpper(strings.TrimSpace(token))
	out := make([]Vault, 0, len(vaults))
	for _, v := range vaults {
		if strings.ToUpper(v.UnderlyingSymbol) == norm {
			out = append(out, v)
		}
	}
	return out
}
