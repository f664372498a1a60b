package errors

import (
	"fmt"
	"strings"
)

// Class identifies the user-facing failure category of an execution error.
type Class string

const (
	ClassUserRejected        Class = "user_rejected"
	ClassInsufficientBalance Class = "insufficient_balance"
	ClassSlippageExceeded    Class = "slippage_exceeded"
	ClassNonceConflict       Class = "nonce_conflict"
	ClassNetworkError        Class = "network_error"
	ClassApprovalNeeded      Class = "approval_needed"
	ClassGasEstimation       Class = "gas_estimation_failed"
	ClassUnknown             Class = "unknown"
)

// maxRawErrorLen bounds pass-through messages for unrecognized errors.
const maxRawErrorLen = 180

type classRule struct {
	class   Class
	message string
	any     []string
	all     []string
}

// Rules are ordered; the first match wins.
var classRules = []classRule{
	{
		class:   ClassUserRejected,
		message: "Transaction cancelled in wallet. You can retry whenever you are ready.",
		any:     []string{"user rejected", "user denied", "rejected the request"},
	},
	{
		class:   ClassInsufficientBalance,
		message: "Not enough balance to cover this transaction (token amount or gas).",
		any:     []string{"insufficient funds", "exceeds balance", "insufficient balance", "balance is too low"},
	},
	{
		class:   ClassSlippageExceeded,
		message: "Price moved beyond the allowed slippage. Request a fresh quote and retry.",
		any:     []string{"slippage", "price movement"},
	},
	{
		class:   ClassNonceConflict,
		message: "Another transaction from this wallet is still pending. Wait for it to confirm and retry.",
		any:     []string{"nonce", "replacement"},
	},
	{
		class:   ClassNetworkError,
		message: "Network problem while talking to the chain. Check connectivity and retry.",
		any:     []string{"network", "timeout", "fetch"},
	},
	{
		class:   ClassApprovalNeeded,
		message: "Token approval is required before this action can run.",
		any:     []string{"allowance", "approve"},
	},
	{
		class:   ClassGasEstimation,
		message: "Gas estimation failed; the transaction would likely revert on-chain.",
		all:     []string{"gas", "estimate"},
	},
}

// Classify maps an arbitrary execution failure onto the error taxonomy and
// returns the class plus the human-readable message surfaced to callers.
// Matching is by lower-cased substring, first rule wins.
func Classify(err error) (Class, string) {
	if err == nil {
		return ClassUnknown, ""
	}
	raw := err.Error()
	lower := strings.ToLower(raw)

	for _, rule := range classRules {
		if matchesRule(lower, rule) {
			return rule.class, rule.message
		}
	}
	return ClassUnknown, truncate(raw, maxRawErrorLen)
}

// ClassifyMessage is Classify for callers that only hold the message text.
func ClassifyMessage(raw string) (Class, string) {
	if strings.TrimSpace(raw) == "" {
		return ClassUnknown, ""
	}
	return Classify(fmt.Errorf("%s", raw))
}

func matchesRule(lower string, rule classRule) bool {
	for _, needle := range rule.all {
		if !strings.Contains(lower, needle) {
			return false
		}
	}
	if len(rule.all) > 0 {
		return true
	}
	for _, needle := range rule.any {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

func truncate(v string, max int) string {
	if len(v) <= max {
		return v
	}
	return v[:max] + "…"
}

// NoBalance builds the canonical zero-balance failure. Callers pattern-match
// on this exact wording, so it must not change.
func NoBalance(token string) *Error {
	return New(CodeExecution, fmt.Sprintf("No %s balance", strings.ToUpper(strings.TrimSpace(token))))
}

// NoPosition is the canonical empty-position failure for withdrawals.
func NoPosition() *Error {
	return New(CodeExecution, "No position")
}
