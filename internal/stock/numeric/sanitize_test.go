package numeric_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/shopstock/stock-backend/internal/stock/numeric"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePrice(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"nil is zero", nil, "0.00"},
		{"empty string is zero", "", "0.00"},
		{"whitespace is zero", "   ", "0.00"},
		{"plain", "12.5", "12.50"},
		{"rounds half up", "12.345", "12.35"},
		{"rounds down", "12.344", "12.34"},
		{"pound sign", "£1,234.50", "1234.50"},
		{"dollar sign", "$3", "3.00"},
		{"euro sign", "€0.99", "0.99"},
		{"non-breaking space", "1\u00a0000.10", "1000.10"},
		{"formula wrapper", `="7.25"`, "7.25"},
		{"leading equals", "=4", "4.00"},
		{"quoted", `"9.99"`, "9.99"},
		{"exponent", "1.5e2", "150.00"},
		{"leading dot", ".5", "0.50"},
		{"negative passes through", "-2.50", "-2.50"},
		{"int", 42, "42.00"},
		{"int64", int64(7), "7.00"},
		{"uint", uint(3), "3.00"},
		{"float64", 19.999, "20.00"},
		{"float32", float32(1.5), "1.50"},
		{"decimal", decimal.RequireFromString("3.14159"), "3.14"},
		{"json number", json.Number("8.1"), "8.10"},
		{"largest column value", "9999999999.99", "9999999999.99"},
		{"below half a cent", "0.004", "0.00"},
		{"tiny exponent", "1e-300000000", "0.00"},
		{"zero with huge exponent", "0e300000000", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := numeric.SanitizePrice(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, numeric.FormatPrice(got))
		})
	}
}

func TestSanitizePrice_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"letters", "abc"},
		{"nan string", "NaN"},
		{"inf string", "inf"},
		{"infinity string", "-Infinity"},
		{"two dots", "1.2.3"},
		{"trailing text", "12 units"},
		{"float nan", math.NaN()},
		{"float inf", math.Inf(1)},
		{"float negative inf", math.Inf(-1)},
		{"bool", true},
		{"slice", []string{"1"}},
		{"wider than the column", "10000000000"},
		{"rounds past the column", "9999999999.995"},
		{"large exponent", "1e15"},
		{"huge exponent", "1e300000000"},
		{"huge negative exponent", "-1E300000000"},
		{"huge float", 1e300},
		{"huge decimal", decimal.New(1, 300000000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := numeric.SanitizePrice(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidNumericInput))
		})
	}
}

func TestSanitizePrice_Idempotent(t *testing.T) {
	inputs := []any{"£12.345", "0", "", 99.995, "1,000", decimal.RequireFromString("0.005")}

	for _, in := range inputs {
		first, err := numeric.SanitizePrice(in)
		require.NoError(t, err)

		second, err := numeric.SanitizePrice(first)
		require.NoError(t, err)
		assert.True(t, first.Equal(second), "sanitizing %v twice changed the value", in)

		third, err := numeric.SanitizePrice(numeric.FormatPrice(first))
		require.NoError(t, err)
		assert.True(t, first.Equal(third))
	}
}

func TestSanitizeQuantity(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    int
		wantErr bool
	}{
		{"blank", "", 0, false},
		{"nil", nil, 0, false},
		{"plain", "12", 12, false},
		{"trailing zero decimals", "5.0", 5, false},
		{"thousands", "1,200", 1200, false},
		{"float whole", 3.0, 3, false},
		{"int", 9, 9, false},
		{"negative", "-4", -4, false},
		{"fraction", "2.5", 0, true},
		{"garbage", "lots", 0, true},
		{"nan", math.NaN(), 0, true},
		{"too large", "99999999999", 0, true},
		{"largest integer", "2147483647", 2147483647, false},
		{"one past the largest integer", "2147483648", 0, true},
		{"exponent", "1e3", 1000, false},
		{"huge exponent", "1e300000000", 0, true},
		{"tiny exponent", "1e-300000000", 0, true},
		{"zero with huge exponent", "0e300000000", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := numeric.SanitizeQuantity(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrInvalidNumericInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanCell(t *testing.T) {
	assert.Equal(t, "ABC-1", numeric.CleanCell(`  ="ABC-1" `))
	assert.Equal(t, "SUM", numeric.CleanCell("=SUM"))
	assert.Equal(t, "plain", numeric.CleanCell("plain"))
	assert.Equal(t, "", numeric.CleanCell(`""`))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, numeric.IsBlank(nil))
	assert.True(t, numeric.IsBlank(" "))
	assert.False(t, numeric.IsBlank("0"))
	assert.False(t, numeric.IsBlank("x"))
}
