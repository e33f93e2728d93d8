package service

import (
	"github.com/shopspring/decimal"

	"duoleg/internal/domain/model"
)

// Rounding and unit conversion between the two venues. Prices round
// half-up to the venue's scale; quantities always round down. The
// asymmetry is deliberate: a rounded-up quantity could exceed validated
// depth or balance, a rounded price cannot.

// RoundPrice rounds half-up to scale decimal digits.
func RoundPrice(p float64, scale int) float64 {
	f, _ := decimal.NewFromFloat(p).Round(int32(scale)).Float64()
	return f
}

// RoundQtyDown floors to scale decimal digits. Never exceeds the input.
func RoundQtyDown(q float64, scale int) float64 {
	f, _ := decimal.NewFromFloat(q).RoundFloor(int32(scale)).Float64()
	return f
}

// ToContracts converts a base-asset quantity to a contract count: floored
// to the venue's volume precision, then raised to its minimum contract
// count. The floor never exceeds the input; the minimum is a venue rule.
func ToContracts(baseQty float64, fut model.FuturesMeta) float64 {
	cs := fut.ContractSize
	if cs <= 0 {
		cs = 1
	}
	raw := decimal.NewFromFloat(baseQty).Div(decimal.NewFromFloat(cs))
	contracts, _ := raw.RoundFloor(int32(fut.VolPrecision)).Float64()
	minC := fut.MinContracts
	if minC <= 0 {
		minC = 1
	}
	if contracts < minC {
		return minC
	}
	return contracts
}

// ToBase converts a contract count back to base-asset units.
func ToBase(contracts float64, fut model.FuturesMeta) float64 {
	cs := fut.ContractSize
	if cs <= 0 {
		cs = 1
	}
	f, _ := decimal.NewFromFloat(contracts).Mul(decimal.NewFromFloat(cs)).Float64()
	return f
}
