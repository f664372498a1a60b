package engine

import (
	"math/big"
	"testing"
)

func TestParseAmountMaxSentinel(t *testing.T) {
	for _, raw := range []string{"max", "MAX", " all "} {
		amt, err := ParseAmount(raw)
		if err != nil {
			t.Fatalf("ParseAmount(%q) failed: %v", raw, err)
		}
		if !amt.IsAll() {
			t.Fatalf("ParseAmount(%q) should be the full balance", raw)
		}
	}
}

func TestParseAmountRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "-5", "1.2.3", "ten", "1e6"} {
		if _, err := ParseAmount(raw); err == nil {
			t.Fatalf("ParseAmount(%q) should fail", raw)
		}
	}
}

func TestBaseUnitsConversion(t *testing.T) {
	cases := []struct {
		raw      string
		decimals int
		want     string
	}{
		{"1", 6, "1000000"},
		{"0.5", 6, "500000"},
		{"25", 6, "25000000"},
		{"1.000001", 6, "1000001"},
		{"0.000000000000000001", 18, "1"},
		{"2", 18, "2000000000000000000"},
		{"0", 6, "0"},
	}
	for _, tc := range cases {
		amt, err := Exact(tc.raw)
		if err != nil {
			t.Fatalf("Exact(%q) failed: %v", tc.raw, err)
		}
		got, err := amt.BaseUnits(tc.decimals)
		if err != nil {
			t.Fatalf("BaseUnits(%q, %d) failed: %v", tc.raw, tc.decimals, err)
		}
		want, _ := new(big.Int).SetString(tc.want, 10)
		if got.Cmp(want) != 0 {
			t.Fatalf("BaseUnits(%q, %d) = %s, want %s", tc.raw, tc.decimals, got, tc.want)
		}
	}
}

func TestBaseUnitsRejectsExcessPrecision(t *testing.T) {
	amt, err := Exact("1.0000001")
	if err != nil {
		t.Fatalf("Exact failed: %v", err)
	}
	if _, err := amt.BaseUnits(6); err == nil {
		t.Fatal("expected an error for more decimals than the token carries")
	}
}

func TestBaseUnitsOnMaxIsAnError(t *testing.T) {
	if _, err := All().BaseUnits(6); err == nil {
		t.Fatal("max amounts cannot convert without a balance")
	}
}

func TestFormatBaseUnits(t *testing.T) {
	cases := []struct {
		value    string
		decimals int
		want     string
	}{
		{"25000000", 6, "25"},
		{"10500000", 6, "10.5"},
		{"1", 18, "0.000000000000000001"},
		{"0", 6, "0"},
	}
	for _, tc := range cases {
		v, _ := new(big.Int).SetString(tc.value, 10)
		if got := FormatBaseUnits(v, tc.decimals); got != tc.want {
			t.Fatalf("FormatBaseUnits(%s, %d) = %q, want %q", tc.value, tc.decimals, got, tc.want)
		}
	}
}
