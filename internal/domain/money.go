package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

var minorExponents = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"BHD": 3,
	"KWD": 3,
}

// MinorExponent returns the number of minor-unit digits for an ISO currency code.
func MinorExponent(currency string) int32 {
	if exp, ok := minorExponents[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return exp
	}
	return 2
}

// FormatMinor renders a minor-unit amount with its currency code, e.g. "INR 27.00".
func FormatMinor(amount int64, currency string) string {
	exp := MinorExponent(currency)
	value := decimal.New(amount, -exp).StringFixed(exp)
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return value
	}
	return currency + " " + value
}

func NormalizeCurrency(raw string) string {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if len(c) != 3 {
		return ""
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return ""
		}
	}
	return c
}
