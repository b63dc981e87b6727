// Package pricing converts catalog prices between their wire forms and
// integer Chilean pesos, and computes IVA.
package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyPrice    = errors.New("empty price")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrNegativePrice = errors.New("negative price")
)

// IVA is the flat 19% surcharge applied to every subtotal.
var IVA = decimal.New(19, -2)

var groupedThousands = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)

// Parse normalizes a price to whole pesos. Strings may carry the "$" sign,
// a "CLP" suffix and es-CL grouping ("$12.990", "1.299.990 CLP"); a comma is
// read as the decimal separator. Fractions round half away from zero.
func Parse(v any) (int64, error) {
	var d decimal.Decimal
	switch x := v.(type) {
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, ErrInvalidPrice
		}
		d = decimal.NewFromFloat(x)
	case json.Number:
		return Parse(x.String())
	case decimal.Decimal:
		d = x
	case string:
		var err error
		if d, err = parseString(x); err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidPrice, v)
	}
	if d.IsNegative() {
		return 0, ErrNegativePrice
	}
	return d.Round(0).IntPart(), nil
}

func parseString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "CLP")
	s = strings.NewReplacer("$", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyPrice
	}
	neg := strings.HasPrefix(s, "-")
	digits := strings.TrimPrefix(s, "-")
	switch {
	case strings.Contains(digits, ","):
		digits = strings.ReplaceAll(digits, ".", "")
		digits = strings.Replace(digits, ",", ".", 1)
	case groupedThousands.MatchString(digits):
		digits = strings.ReplaceAll(digits, ".", "")
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// Format renders pesos the way es-CL does: "$12.990".
func Format(pesos int64) string {
	if pesos < 0 {
		return "-" + Format(-pesos)
	}
	return "$" + humanize.FormatInteger("#.###,", int(pesos))
}

// FormatAny formats a raw price, falling back to "$0" when it cannot be read.
func FormatAny(v any) string {
	n, err := Parse(v)
	if err != nil {
		return Format(0)
	}
	return Format(n)
}

// Tax is round(subtotal * 19%).
func Tax(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(IVA).Round(0).IntPart()
}

func Total(subtotal int64) int64 {
	return subtotal + Tax(subtotal)
}
