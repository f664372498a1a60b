package model

import "time"

const EnvelopeVersion = "v1"

// Envelope is the uniform CLI output wrapper.
type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
}

// RiskLevel is the ordinal risk scale shared by tiers, strategies, vaults and
// scored opportunities. 1 is the most conservative.
type RiskLevel int

const (
	RiskShallows RiskLevel = 1
	RiskMidDepth RiskLevel = 2
	RiskDeep     RiskLevel = 3
)

func (r RiskLevel) Valid() bool { return r >= RiskShallows && r <= RiskDeep }

func (r RiskLevel) String() string {
	switch r {
	case RiskShallows:
		return "shallows"
	case RiskMidDepth:
		return "mid-depth"
	case RiskDeep:
		return "deep-water"
	default:
		return "unknown"
	}
}

// YieldOpportunity is one third-party pool annotated with a locally computed
// risk level. Records are rebuilt wholesale on cache refresh, never mutated.
type YieldOpportunity struct {
	PoolID       string    `json:"pool_id"`
	Chain        string    `json:"chain"`
	Protocol     string    `json:"protocol"`
	Symbol       string    `json:"symbol"`
	APY          float64   `json:"apy"`
	APYBase      float64   `json:"apy_base"`
	APYReward    float64   `json:"apy_reward"`
	APYMean30d   float64   `json:"apy_mean_30d"`
	TVLUSD       float64   `json:"tvl_usd"`
	Stablecoin   bool      `json:"stablecoin"`
	ILRisk       bool      `json:"il_risk"`
	Exposure     string    `json:"exposure"`
	RiskLevel    RiskLevel `json:"risk_level"`
	SourceURL    string    `json:"source_url,omitempty"`
	FetchedAt    string    `json:"fetched_at"`
}

// OpportunityPage is the yield query surface response shape.
type OpportunityPage struct {
	Opportunities []YieldOpportunity `json:"opportunities"`
	Total         int                `json:"total"`
	Chains        []string           `json:"chains"`
}

// ExecutionResult is the terminal outcome of one orchestrated action. Error is
// always the classified human message, never a raw transport error.
type ExecutionResult struct {
	Success bool   `json:"success"`
	TxHash  string `json:"tx_hash,omitempty"`
	Error   string `json:"error,omitempty"`
}
