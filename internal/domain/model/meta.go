package model

import "strings"

// SpotMeta is the spot venue's per-pair trading rules.
type SpotMeta struct {
	PriceScale int     `json:"priceScale"`
	QtyScale   int     `json:"qtyScale"`
	MinQty     float64 `json:"minQty"`
	MinQuote   float64 `json:"minQuote"` // minimum notional in quote units
}

// FuturesMeta is the derivatives venue's per-contract trading rules.
type FuturesMeta struct {
	PriceScale   int     `json:"priceScale"`
	VolPrecision int     `json:"volPrecision"`
	ContractSize float64 `json:"contractSize"` // base units per contract
	MinContracts float64 `json:"minContracts"`
}

// ExecSettings are operator-tunable execution parameters.
type ExecSettings struct {
	MarginPct float64 `json:"marginPct"` // price offset away from the touch, percent
	Leverage  float64 `json:"leverage"`
}

// MarketMeta is the merged per-symbol metadata both legs trade against.
type MarketMeta struct {
	Symbol   string       `json:"symbol"`
	Spot     SpotMeta     `json:"spot"`
	Futures  FuturesMeta  `json:"futures"`
	Settings ExecSettings `json:"settings"`
}

// Discovery fallbacks, used when a venue's metadata endpoint is unreachable.
// Quotes must keep flowing even when discovery degrades.
var (
	DefaultSpotMeta    = SpotMeta{PriceScale: 11, QtyScale: 0, MinQty: 0, MinQuote: 3}
	DefaultFuturesMeta = FuturesMeta{PriceScale: 4, VolPrecision: 0, ContractSize: 10, MinContracts: 1}
)

// ValidSymbol checks the BASE_QUOTE shape.
func ValidSymbol(s string) bool {
	base, quote, ok := strings.Cut(s, "_")
	return ok && base != "" && quote != ""
}

// BaseAsset returns the part before the separator ("WMTX" for "WMTX_USDT").
func BaseAsset(symbol string) string {
	base, _, _ := strings.Cut(symbol, "_")
	return base
}

// QuoteAsset returns the part after the separator.
func QuoteAsset(symbol string) string {
	_, quote, _ := strings.Cut(symbol, "_")
	return quote
}
