package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestApproxEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "50.00", "50.00", true},
		{"within tolerance below", "49.991", "50.00", true},
		{"within tolerance above", "50.009", "50.00", true},
		{"exactly one cent apart", "50.01", "50.00", true},
		{"two cents apart", "50.02", "50.00", false},
		{"order does not matter", "50.00", "50.02", false},
		{"both zero", "0", "0.00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := decimal.RequireFromString(tt.a)
			b := decimal.RequireFromString(tt.b)
			assert.Equal(t, tt.want, ApproxEqual(a, b))
		})
	}
}

func TestRound(t *testing.T) {
	assert.True(t, decimal.RequireFromString("7.50").Equal(Round(decimal.RequireFromString("7.499999"))))
	assert.True(t, decimal.RequireFromString("7.50").Equal(Round(decimal.RequireFromString("7.504"))))
}
