package wallet

import (
	"fmt"
	"math/big"
	"strings"
)

// ToSmallestUnit converts a decimal amount string to an integer in the
// chain's smallest unit. The conversion is pure string/bigint arithmetic:
// the decimal string is split on '.', the fractional part padded or
// truncated to the chain's decimal count, and both parts combined as an
// arbitrary-precision integer. Floating point is never involved.
func ToSmallestUnit(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("negative amount %q", amount)
	}

	whole, frac := amount, ""
	if idx := strings.IndexByte(amount, '.'); idx >= 0 {
		whole, frac = amount[:idx], amount[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}

	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	combined := whole + frac
	out, ok := new(big.Int).SetString(combined, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", amount)
	}
	return out, nil
}

// FromSmallestUnit renders a smallest-unit integer as a decimal string in
// display units, trimming trailing fractional zeros.
func FromSmallestUnit(amount *big.Int, decimals int) string {
	s := amount.String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	whole := s[:len(s)-decimals]
	frac := strings.TrimRight(s[len(s)-decimals:], "0")

	out := whole
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
