package domain

import (
	"fmt"
	"strings"
)

// BaseUnitDecimals is the fixed-point scale shared by the native currency
// and both outcome tokens: 1 whole unit = 10^9 base units.
const BaseUnitDecimals = 9

// baseUnitScale is 10^BaseUnitDecimals.
const baseUnitScale uint64 = 1_000_000_000

// ParseAmount converts a decimal string such as "0.1" or "2.5" into base
// units using integer arithmetic only. Amounts that feed eligibility or
// redemption math must round-trip exactly, so no floating-point
// intermediate is ever used.
func ParseAmount(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("amount %q is malformed", s)
	}
	if len(frac) > BaseUnitDecimals {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", s, BaseUnitDecimals)
	}

	var units uint64
	for _, r := range whole {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("amount %q is not a decimal number", s)
		}
		d := uint64(r - '0')
		if units > (^uint64(0)-d)/10 {
			return 0, fmt.Errorf("amount %q overflows", s)
		}
		units = units*10 + d
	}
	if units > ^uint64(0)/baseUnitScale {
		return 0, fmt.Errorf("amount %q overflows", s)
	}
	units *= baseUnitScale

	scale := baseUnitScale / 10
	for _, r := range frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("amount %q is not a decimal number", s)
		}
		units += uint64(r-'0') * scale
		scale /= 10
	}
	return units, nil
}

// FormatAmount renders base units as a decimal string with trailing zeros
// trimmed, e.g. 3_000_000_000 -> "3", 100_000_000 -> "0.1". The result
// parses back to the identical integer.
func FormatAmount(units uint64) string {
	whole := units / baseUnitScale
	frac := units % baseUnitScale
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	s := fmt.Sprintf("%d.%09d", whole, frac)
	return strings.TrimRight(s, "0")
}
