package yield

import (
	"strings"

	"github.com/0xSardius/tidal-sub000/internal/model"
)

// Risk policy constants. These are product policy, not derived values; keep
// them in sync with the tier descriptions in the catalog.
const (
	// minPoolTVLUSD is the ingestion floor; pools below it are dropped.
	minPoolTVLUSD = 100_000.0
	// tier1MinTVLUSD gates the most conservative bucket.
	tier1MinTVLUSD = 10_000_000.0
	// tier2MinTVLUSD gates the middle bucket.
	tier2MinTVLUSD = 1_000_000.0

	exposureSingle = "single"
)

// tier1Protocols is the fixed allow-list of blue-chip protocols admitted to
// risk level 1.
var tier1Protocols = map[string]struct{}{
	"aave-v3":     {},
	"morpho-blue": {},
}

// scoreRisk assigns a risk level from pool attributes. The checks are ordered
// and the first match wins; everything that clears neither bar is Deep Water.
func scoreRisk(protocol, exposure string, stablecoin, ilRisk bool, tvlUSD float64) model.RiskLevel {
	exposure = strings.ToLower(strings.TrimSpace(exposure))
	_, blueChip := tier1Protocols[strings.ToLower(strings.TrimSpace(protocol))]

	if stablecoin && exposure == exposureSingle && !ilRisk && tvlUSD > tier1MinTVLUSD && blueChip {
		return model.RiskShallows
	}
	if exposure == exposureSingle && !ilRisk && tvlUSD > tier2MinTVLUSD {
		return model.RiskMidDepth
	}
	return model.RiskDeep
}
