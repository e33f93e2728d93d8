package service

import (
	"math"

	"duoleg/internal/domain/model"
)

// ReasonMinQuoteNotMet blocks execution when the rounded spot notional is
// still below the venue's minimum after sizing.
const ReasonMinQuoteNotMet = "min_quote_not_met"

// SizingInput is everything the dry-run needs: direction, both books, the
// merged metadata and the current position progress.
type SizingInput struct {
	Mode      model.Mode
	SpotBook  model.Book
	FutBook   model.Book
	Meta      model.MarketMeta
	TargetQty float64
	FilledQty float64
}

// Sizing is the executable price/quantity pair both the precheck and the
// orchestrator derive. Prices are rounded half-up to each venue's scale,
// the quantity is rounded down.
type Sizing struct {
	SpotPrice    float64 `json:"spotPrice"`
	FuturesPrice float64 `json:"futuresPrice"`
	BaseQty      float64 `json:"baseQty"`
	Contracts    float64 `json:"contracts"`
	SpotNotional float64 `json:"spotNotional"`
	Blocked      bool    `json:"blocked"`
	Reason       string  `json:"reason,omitempty"`
}

// ComputeSizing derives the maximum tradable size from top-of-book depth,
// the remaining position target and the spot venue's minimum notional.
//
// Open works the spread from both sides: the spot buy is priced below the
// ask and the futures short above the bid, each offset by marginPct, so
// neither resting order is immediately marketable. Close mirrors the sides.
func ComputeSizing(in SizingInput) Sizing {
	meta := in.Meta
	marginPct := meta.Settings.MarginPct

	var spotTouch, futTouch model.Level
	if in.Mode == model.ModeOpen {
		spotTouch, futTouch = in.SpotBook.Ask, in.FutBook.Bid
	} else {
		spotTouch, futTouch = in.SpotBook.Bid, in.FutBook.Ask
	}

	var spotPrice, futPrice float64
	if in.Mode == model.ModeOpen {
		spotPrice = spotTouch.Price * (1 - marginPct/100)
		futPrice = futTouch.Price * (1 + marginPct/100)
	} else {
		spotPrice = spotTouch.Price * (1 + marginPct/100)
		futPrice = futTouch.Price * (1 - marginPct/100)
	}

	// Depth at the touch, whole units only. Futures depth is quoted in
	// contracts and converted through the contract size.
	spotAvail := math.Floor(spotTouch.Size)
	futContractsAvail := math.Floor(futTouch.Size)
	futAvail := ToBase(futContractsAvail, meta.Futures)

	tradable := math.Min(spotAvail, futAvail)
	if in.TargetQty > 0 {
		remaining := math.Max(in.TargetQty-in.FilledQty, 0)
		tradable = math.Min(tradable, remaining)
	}
	contracts := ToContracts(tradable, meta.Futures)

	// Raise to the smallest contract count satisfying the spot minimum
	// notional, then clamp back to available futures depth.
	if meta.Spot.MinQuote > 0 {
		unit := spotPrice * meta.Futures.ContractSize
		if unit > 0 {
			need := math.Ceil(meta.Spot.MinQuote / unit)
			if need > contracts {
				contracts = need
			}
		}
	}
	if contracts > futContractsAvail {
		contracts = futContractsAvail
	}

	out := Sizing{
		SpotPrice:    RoundPrice(spotPrice, meta.Spot.PriceScale),
		FuturesPrice: RoundPrice(futPrice, meta.Futures.PriceScale),
		BaseQty:      RoundQtyDown(ToBase(contracts, meta.Futures), meta.Spot.QtyScale),
		Contracts:    contracts,
	}
	out.SpotNotional = out.BaseQty * out.SpotPrice

	if meta.Spot.MinQuote > 0 && out.SpotNotional < meta.Spot.MinQuote {
		out.Blocked = true
		out.Reason = ReasonMinQuoteNotMet
	}
	return out
}

// RequiredMargin is the capital the futures leg ties up at the given
// contract count: notional divided by leverage.
func RequiredMargin(futPrice float64, contracts float64, meta model.MarketMeta) float64 {
	lev := meta.Settings.Leverage
	if lev <= 0 {
		lev = 1
	}
	return futPrice * meta.Futures.ContractSize * contracts / lev
}
