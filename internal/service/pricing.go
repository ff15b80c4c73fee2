package service

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Pricing computes booking amounts. The fee is a percentage of the base and
// the tax a percentage of the fee, each rounded to cents.
type Pricing struct {
	ServiceFeePercent decimal.Decimal
	TaxPercent        decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		ServiceFeePercent: decimal.NewFromInt(5),
		TaxPercent:        decimal.RequireFromString("7.5"),
	}
}

type Quote struct {
	UnitPrice   decimal.Decimal
	BaseAmount  decimal.Decimal
	PlatformFee decimal.Decimal
	Tax         decimal.Decimal
	FinalAmount decimal.Decimal
}

func (p Pricing) Quote(unitPrice decimal.Decimal, quantity int) Quote {
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	fee := base.Mul(p.ServiceFeePercent).Div(hundred).Round(2)
	tax := fee.Mul(p.TaxPercent).Div(hundred).Round(2)

	return Quote{
		UnitPrice:   unitPrice,
		BaseAmount:  base,
		PlatformFee: fee,
		Tax:         tax,
		FinalAmount: base.Add(fee).Add(tax),
	}
}
