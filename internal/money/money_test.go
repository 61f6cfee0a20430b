// internal/money/money_test.go
package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"cargopay/internal/domain"
)

func codParams() domain.CODParams {
	return domain.CODParams{
		BaseCharge:       decimal.NewFromInt(50),
		PercentageCharge: decimal.NewFromFloat(0.02),
		MinimumCharge:    decimal.NewFromInt(25),
		MaximumCharge:    decimal.NewFromInt(500),
		FreeThreshold:    decimal.NewFromInt(2000),
	}
}

func TestCODCharge(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"base plus percentage", "1800", "86"},      // 50 + 2% of 1800
		{"at the free threshold", "2000", "0"},      // boundary is inclusive
		{"just under the threshold", "1999.99", "90"},
		{"above the free threshold", "5000", "0"},
		{"minimum clamp", "0", "50"},                // base alone exceeds the minimum here
		{"maximum clamp does not trigger below threshold", "1900", "88"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CODCharge(decimal.RequireFromString(tt.value), codParams())
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "CODCharge(%s) = %s, want %s", tt.value, got, tt.want)
		})
	}

	t.Run("minimum charge clamps a small computed charge", func(t *testing.T) {
		p := codParams()
		p.BaseCharge = decimal.NewFromInt(5)
		got := CODCharge(decimal.NewFromInt(100), p) // 5 + 2 = 7, below minimum 25
		assert.True(t, got.Equal(decimal.NewFromInt(25)))
	})

	t.Run("maximum charge caps a large computed charge", func(t *testing.T) {
		p := codParams()
		p.FreeThreshold = decimal.Zero // Disable free COD
		got := CODCharge(decimal.NewFromInt(50000), p) // 50 + 1000, capped at 500
		assert.True(t, got.Equal(decimal.NewFromInt(500)))
	})

	t.Run("zero free threshold disables free COD", func(t *testing.T) {
		p := codParams()
		p.FreeThreshold = decimal.Zero
		got := CODCharge(decimal.NewFromInt(5000), p)
		assert.True(t, got.IsPositive())
	})
}

func TestComputeBreakdown(t *testing.T) {
	cfg := &domain.PaymentConfig{
		TaxRate:            decimal.NewFromFloat(0.18),
		WalletBonusPercent: decimal.NewFromInt(2),
		COD:                codParams(),
	}

	t.Run("COD charge applies only to COD", func(t *testing.T) {
		b := ComputeBreakdown(decimal.NewFromInt(1800), decimal.NewFromInt(100), domain.MethodCOD, cfg)

		assert.True(t, b.CODCharge.Equal(decimal.NewFromInt(86)))
		// Tax on 1800 + 100 + 86 = 1986 at 18% = 357.48
		assert.True(t, b.Tax.Equal(decimal.RequireFromString("357.48")), "got tax %s", b.Tax)
		assert.True(t, b.WalletDiscount.IsZero())
		assert.True(t, b.Total.Equal(decimal.RequireFromString("2343.48")), "got total %s", b.Total)
	})

	t.Run("wallet discount applies only to wallet", func(t *testing.T) {
		b := ComputeBreakdown(decimal.NewFromInt(1000), decimal.NewFromInt(100), domain.MethodWallet, cfg)

		assert.True(t, b.CODCharge.IsZero())
		assert.True(t, b.WalletDiscount.Equal(decimal.NewFromInt(20)))
		assert.True(t, b.Total.Equal(decimal.NewFromInt(1278)), "got total %s", b.Total)
	})

	t.Run("components sum to the total", func(t *testing.T) {
		for _, method := range []domain.PaymentMethod{domain.MethodWallet, domain.MethodCOD, domain.MethodUPI} {
			b := ComputeBreakdown(decimal.RequireFromString("1234.56"), decimal.RequireFromString("78.90"), method, cfg)
			sum := b.Subtotal.Add(b.Shipping).Add(b.CODCharge).Add(b.Tax).Sub(b.WalletDiscount)
			assert.True(t, b.Total.Equal(Round(sum)), "method %s: total %s != sum %s", method, b.Total, sum)
		}
	})
}

func TestSummarize(t *testing.T) {
	b := Breakdown{Total: decimal.NewFromInt(1278)}

	t.Run("wallet fully covers", func(t *testing.T) {
		s := Summarize(b, decimal.NewFromInt(1278))
		assert.True(t, s.CanUseWallet)
		assert.True(t, s.GatewayAmount.IsZero())
	})

	t.Run("residual goes to the gateway", func(t *testing.T) {
		s := Summarize(b, decimal.NewFromInt(1000))
		assert.False(t, s.CanUseWallet)
		assert.True(t, s.GatewayAmount.Equal(decimal.NewFromInt(278)))
	})
}

func TestGatewayFee(t *testing.T) {
	cfg := &domain.PaymentConfig{FeePercentage: decimal.NewFromFloat(0.02)}

	assert.True(t, GatewayFee(decimal.NewFromInt(1000), domain.MethodUPI, cfg).Equal(decimal.NewFromInt(20)))
	assert.True(t, GatewayFee(decimal.NewFromInt(1000), domain.MethodWallet, cfg).IsZero())
	assert.True(t, GatewayFee(decimal.NewFromInt(1000), domain.MethodCOD, cfg).IsZero())
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(102050), ToMinorUnits(decimal.RequireFromString("1020.50")))
	assert.Equal(t, int64(100), ToMinorUnits(decimal.NewFromInt(1)))
	assert.Equal(t, int64(1), ToMinorUnits(decimal.RequireFromString("0.005"))) // Rounds half away from zero
}
