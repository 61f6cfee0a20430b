// internal/money/money.go
package money

import (
	"github.com/shopspring/decimal"

	"cargopay/internal/domain"
)

// MinorUnitPlaces is the minor-unit precision for INR.
const MinorUnitPlaces = 2

// Round rounds an amount to the currency's minor-unit precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnitPlaces)
}

// ToMinorUnits converts an amount to integer minor units (paise for INR),
// the representation the gateway API expects.
func ToMinorUnits(d decimal.Decimal) int64 {
	return Round(d).Mul(decimal.NewFromInt(100)).IntPart()
}

// CODCharge computes the cash-on-delivery charge for a shipment value.
// Deterministic and side-effect free; the same function backs both quoting
// and final breakdown computation so the two can never disagree.
func CODCharge(shipmentValue decimal.Decimal, p domain.CODParams) decimal.Decimal {
	if p.FreeThreshold.IsPositive() && shipmentValue.GreaterThanOrEqual(p.FreeThreshold) {
		return decimal.Zero
	}
	charge := p.BaseCharge.Add(shipmentValue.Mul(p.PercentageCharge))
	if charge.LessThan(p.MinimumCharge) {
		charge = p.MinimumCharge
	}
	if p.MaximumCharge.IsPositive() && charge.GreaterThan(p.MaximumCharge) {
		charge = p.MaximumCharge
	}
	return Round(charge)
}

// Breakdown is the itemized computation that sums to the total owed.
type Breakdown struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Shipping       decimal.Decimal `json:"shipping"`
	CODCharge      decimal.Decimal `json:"cod_charge"`
	Tax            decimal.Decimal `json:"tax"`
	WalletDiscount decimal.Decimal `json:"wallet_discount"`
	Total          decimal.Decimal `json:"total"`
}

// ComputeBreakdown itemizes a payment: COD charge applies only to COD,
// the wallet bonus discount only to wallet payments, and tax to everything
// owed before the discount.
func ComputeBreakdown(subtotal, shipping decimal.Decimal, method domain.PaymentMethod, cfg *domain.PaymentConfig) Breakdown {
	b := Breakdown{
		Subtotal: Round(subtotal),
		Shipping: Round(shipping),
	}
	if method == domain.MethodCOD {
		b.CODCharge = CODCharge(subtotal, cfg.COD)
	}
	b.Tax = Round(subtotal.Add(shipping).Add(b.CODCharge).Mul(cfg.TaxRate))
	if method == domain.MethodWallet {
		b.WalletDiscount = Round(subtotal.Mul(cfg.WalletBonusPercent).Div(decimal.NewFromInt(100)))
	}
	b.Total = Round(b.Subtotal.Add(b.Shipping).Add(b.CODCharge).Add(b.Tax).Sub(b.WalletDiscount))
	return b
}

// Summary extends a breakdown with wallet-coverage information, the basis
// for split payment flows. CanUseWallet and GatewayAmount are informational;
// the actual debit still enforces coverage.
type Summary struct {
	Breakdown
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	CanUseWallet  bool            `json:"can_use_wallet"`
	GatewayAmount decimal.Decimal `json:"gateway_amount"` // Residual to charge through the gateway
}

// Summarize reports whether the wallet balance fully covers the total and,
// if not, the residual gateway amount.
func Summarize(b Breakdown, walletBalance decimal.Decimal) Summary {
	s := Summary{
		Breakdown:     b,
		WalletBalance: walletBalance,
		CanUseWallet:  walletBalance.GreaterThanOrEqual(b.Total),
		GatewayAmount: decimal.Zero,
	}
	if !s.CanUseWallet {
		s.GatewayAmount = Round(b.Total.Sub(walletBalance))
	}
	return s
}

// GatewayFee is the fee charged on top of gateway payments; wallet and COD
// payments carry no fee.
func GatewayFee(amount decimal.Decimal, method domain.PaymentMethod, cfg *domain.PaymentConfig) decimal.Decimal {
	if !method.IsGateway() {
		return decimal.Zero
	}
	return Round(amount.Mul(cfg.FeePercentage))
}
