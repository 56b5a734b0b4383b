package currency

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// RegionalBuckets maps Steam regions that price in USD to the virtual keys
// their quotes are stored under, so they do not collide with plain USD.
var RegionalBuckets = map[string]string{
	"ar": "USD-LATAM",
	"dz": "USD-CIS",
	"np": "USD-SASIA",
	"am": "USD-MENA",
}

var (
	ErrRateMissing = errors.New("conversion rate missing")
	ErrRateInvalid = errors.New("conversion rate not positive")
)

var hundred = decimal.NewFromInt(100)

// LookupCode is the rate-table code for a price key.
func LookupCode(key string) string {
	for _, bucket := range RegionalBuckets {
		if key == bucket {
			return "USD"
		}
	}
	return key
}

// Convert turns minor units priced in the source key into the table's base
// currency: (minor / 100) / rate.
func (t RateTable) Convert(source string, minor int64) (decimal.Decimal, error) {
	code := LookupCode(source)
	rate, ok := t.Rates[code]
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: %s to %s", ErrRateMissing, code, t.BaseCurrency)
	}
	if rate.Sign() <= 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: %s=%s", ErrRateInvalid, code, rate)
	}
	return decimal.NewFromInt(minor).Div(hundred).Div(rate), nil
}
