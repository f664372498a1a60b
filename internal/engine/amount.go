package engine

import (
	"fmt"
	"math/big"
	"strings"

	clierr "github.com/0xSardius/tidal-sub000/internal/errors"
)

// Amount is either an exact decimal quantity or the full available balance.
// The zero value is invalid; construct via Exact, All or ParseAmount.
type Amount struct {
	exact string
	all   bool
}

func All() Amount { return Amount{all: true} }

func Exact(value string) (Amount, error) {
	trimmed := strings.TrimSpace(value)
	if err := validateDecimal(trimmed); err != nil {
		return Amount{}, err
	}
	return Amount{exact: trimmed}, nil
}

// ParseAmount accepts a positive decimal or the sentinel "max" / "all" for the
// full balance.
func ParseAmount(raw string) (Amount, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "max" || trimmed == "all" {
		return All(), nil
	}
	return Exact(raw)
}

func (a Amount) IsAll() bool { return a.all }

func (a Amount) String() string {
	if a.all {
		return "max"
	}
	return a.exact
}

// BaseUnits converts the exact decimal into integer base units for a token
// with the given decimals. Calling it on an All amount is a programming error.
func (a Amount) BaseUnits(decimals int) (*big.Int, error) {
	if a.all {
		return nil, clierr.New(clierr.CodeInternal, "cannot convert a max amount to base units without a balance")
	}
	return decimalToBaseUnits(a.exact, decimals)
}

func validateDecimal(v string) error {
	if v == "" {
		return clierr.New(clierr.CodeUsage, "amount is required")
	}
	if strings.HasPrefix(v, "-") {
		return clierr.New(clierr.CodeUsage, "amount must be positive")
	}
	if _, err := decimalToBaseUnits(v, 18); err != nil {
		return err
	}
	return nil
}

func decimalToBaseUnits(v string, decimals int) (*big.Int, error) {
	whole, frac := v, ""
	if idx := strings.IndexByte(v, '.'); idx >= 0 {
		whole, frac = v[:idx], v[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if !digitsOnly(whole) || (frac != "" && !digitsOnly(frac)) {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid amount %q", v))
	}
	if len(frac) > decimals {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("amount %q has more than %d decimal places", v, decimals))
	}
	padded := frac + strings.Repeat("0", decimals-len(frac))
	combined := strings.TrimLeft(whole+padded, "0")
	if combined == "" {
		combined = "0"
	}
	out, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid amount %q", v))
	}
	return out, nil
}

func digitsOnly(v string) bool {
	if v == "" {
		return false
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatBaseUnits renders integer base units back into a trimmed decimal
// string for display.
func FormatBaseUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0"
	}
	s := value.String()
	if decimals == 0 {
		return s
	}
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	cut := len(s) - decimals
	whole, frac := s[:cut], strings.TrimRight(s[cut:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}
