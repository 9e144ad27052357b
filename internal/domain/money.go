package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Amounts are stored in minor currency units (cents).
const (
	MinDonationAmount int64 = 50
	MaxDonationAmount int64 = 100_000 * 100
	MaxGoalAmount     int64 = 10_000_000 * 100

	DefaultCurrency = "USD"
)

var supportedCurrencies = map[string]struct{}{
	"USD": {}, "EUR": {}, "GBP": {}, "CAD": {}, "AUD": {},
}

// NormalizeCurrency validates an ISO-4217 code and returns its canonical
// upper-case form. An empty code yields DefaultCurrency.
func NormalizeCurrency(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultCurrency, nil
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("%w: unknown currency %q", ErrInvalidInput, code)
	}
	canonical := unit.String()
	if _, ok := supportedCurrencies[canonical]; !ok {
		return "", fmt.Errorf("%w: unsupported currency %s", ErrInvalidInput, canonical)
	}
	return canonical, nil
}

// MajorUnits converts a minor-unit amount into a decimal in major units.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FormatMajor renders a minor-unit amount as a fixed two-decimal string.
func FormatMajor(minor int64) string {
	return MajorUnits(minor).StringFixed(2)
}

// ProgressPercentage returns round(current/goal*100) capped at 100.
func ProgressPercentage(current, goal int64) int {
	if goal <= 0 || current <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(current).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(goal)).
		Round(0)
	if pct.GreaterThan(decimal.NewFromInt(100)) {
		return 100
	}
	return int(pct.IntPart())
}
