// Package numeric turns spreadsheet cells into canonical prices and
// quantities.
//
// Cells arrive in every shape a spreadsheet can produce: currency
// prefixed strings, thousands separators, non-breaking spaces copied from
// web pages, Excel formula wrappers, raw floats, or nothing at all. Blank
// cells read as zero. Anything else that does not parse, including NaN and
// infinities, fails with errors.ErrInvalidNumericInput.
package numeric

import (
	"encoding/json"
	"math"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/pkg/errors"
)

// numericPattern is the accepted shape once symbols and separators are gone.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var decorations = strings.NewReplacer(
	"£", "",
	"$", "",
	"€", "",
	",", "",
	"\u00a0", "",
	"\u202f", "",
	"\ufeff", "", // BOM
)

// nonFinite lists spellings decimal parsers in other ecosystems accept.
var nonFinite = map[string]bool{
	"nan":       true,
	"snan":      true,
	"inf":       true,
	"infinity":  true,
	"-infinity": true,
}

// Column bounds: prices are NUMERIC(12,2), quantities INTEGER.
const (
	maxPriceDigits    = 10
	maxQuantityDigits = 10
)

var (
	maxPrice    = decimal.New(999999999999, -domain.PriceScale)
	maxQuantity = decimal.NewFromInt(math.MaxInt32)
)

// ZeroPrice is the price of a blank cell.
var ZeroPrice = decimal.New(0, -domain.PriceScale)

// SanitizePrice parses raw into a price rounded half-up to two places.
func SanitizePrice(raw any) (decimal.Decimal, error) {
	d, blank, err := parse(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if blank || d.Sign() == 0 {
		return ZeroPrice, nil
	}
	mag := magnitude(d)
	if mag > maxPriceDigits {
		return decimal.Decimal{}, errors.InvalidNumericInput(raw)
	}
	if mag < -domain.PriceScale {
		// Below half a cent.
		return ZeroPrice, nil
	}
	// Round is half away from zero, which is half-up for prices.
	p := d.Round(domain.PriceScale)
	if p.Abs().GreaterThan(maxPrice) {
		return decimal.Decimal{}, errors.InvalidNumericInput(raw)
	}
	return p, nil
}

// SanitizeQuantity parses raw into a whole number of units.
func SanitizeQuantity(raw any) (int, error) {
	d, blank, err := parse(raw)
	if err != nil {
		return 0, err
	}
	if blank || d.Sign() == 0 {
		return 0, nil
	}
	// Whole numbers have at least one integer digit.
	if mag := magnitude(d); mag > maxQuantityDigits || mag < 1 {
		return 0, errors.InvalidNumericInput(raw)
	}
	if !d.Equal(d.Truncate(0)) || d.Abs().GreaterThan(maxQuantity) {
		return 0, errors.InvalidNumericInput(raw)
	}
	return int(d.IntPart()), nil
}

// FormatPrice renders a price with exactly two decimals.
func FormatPrice(d decimal.Decimal) string {
	return d.StringFixed(domain.PriceScale)
}

// IsBlank reports whether raw would be read as an empty cell.
func IsBlank(raw any) bool {
	_, blank, err := parse(raw)
	return err == nil && blank
}

func parse(raw any) (d decimal.Decimal, blank bool, err error) {
	switch v := raw.(type) {
	case nil:
		return decimal.Decimal{}, true, nil
	case string:
		return parseString(v, raw)
	case json.Number:
		return parseString(string(v), raw)
	case decimal.Decimal:
		return v, false, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Decimal{}, true, nil
		}
		return *v, false, nil
	case int:
		return decimal.NewFromInt(int64(v)), false, nil
	case int8:
		return decimal.NewFromInt(int64(v)), false, nil
	case int16:
		return decimal.NewFromInt(int64(v)), false, nil
	case int32:
		return decimal.NewFromInt(int64(v)), false, nil
	case int64:
		return decimal.NewFromInt(v), false, nil
	case uint:
		return fromUint(uint64(v)), false, nil
	case uint8:
		return fromUint(uint64(v)), false, nil
	case uint16:
		return fromUint(uint64(v)), false, nil
	case uint32:
		return fromUint(uint64(v)), false, nil
	case uint64:
		return fromUint(v), false, nil
	case float32:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Decimal{}, false, errors.InvalidNumericInput(raw)
		}
		return decimal.NewFromFloat32(v), false, nil
	case float64:
		// NewFromFloat panics on these.
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Decimal{}, false, errors.InvalidNumericInput(raw)
		}
		return decimal.NewFromFloat(v), false, nil
	default:
		return decimal.Decimal{}, false, errors.InvalidNumericInput(raw)
	}
}

func parseString(s string, raw any) (decimal.Decimal, bool, error) {
	s = decorations.Replace(CleanCell(s))
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, true, nil
	}

	if nonFinite[strings.ToLower(strings.TrimPrefix(s, "+"))] || !numericPattern.MatchString(s) {
		return decimal.Decimal{}, false, errors.InvalidNumericInput(raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false, errors.InvalidNumericInput(raw)
	}
	return d, false, nil
}

// magnitude is the number of digits left of the decimal point, negative
// for leading fractional zeros: |d| < 10^magnitude(d). It reads the
// coefficient and exponent only, so huge exponents stay cheap.
func magnitude(d decimal.Decimal) int64 {
	c := d.Coefficient()
	return int64(len(c.Abs(c).String())) + int64(d.Exponent())
}

func fromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// CleanCell strips spreadsheet artifacts such as ="..." formula wrappers
// and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
