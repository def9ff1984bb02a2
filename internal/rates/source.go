package rates

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnprocessableFilter is returned when the provider rejects the currency
// filter itself, as opposed to failing to answer.
var ErrUnprocessableFilter = errors.New("currency filter rejected by rate source")

// Rate is the multiplier converting one unit of the account currency into Code.
type Rate struct {
	Code       string
	Multiplier decimal.Decimal
}

// Source looks up conversion rates. The returned slice keeps the provider's
// ordering. An empty filter requests the provider's default currency set.
type Source interface {
	ConversionRates(ctx context.Context, filter string) ([]Rate, error)
}

// StaticSource serves a fixed rate table. Useful in development and tests.
type StaticSource []Rate

// ConversionRates returns the configured rates matching filter, in table order.
func (s StaticSource) ConversionRates(_ context.Context, filter string) ([]Rate, error) {
	if filter == "" {
		return append([]Rate(nil), s...), nil
	}
	wanted := map[string]bool{}
	for _, code := range splitCodes(filter) {
		wanted[code] = true
	}
	var out []Rate
	for _, r := range s {
		if wanted[r.Code] {
			out = append(out, r)
		}
	}
	return out, nil
}

func splitCodes(filter string) []string {
	var codes []string
	for _, code := range strings.Split(filter, ",") {
		if code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}
