package model

// PositionPoint is one snapshot in the position time series.
type PositionPoint struct {
	T         int64   `json:"t"` // unix milliseconds
	FilledQty float64 `json:"filledQty"`
	AvgPrice  float64 `json:"avgPrice"`
	AvgArbPct float64 `json:"avgArbPct"`
}

// PositionState is the running position estimate: a fill target, the
// cumulative filled quantity, and quantity-weighted averages of fill price
// and captured arbitrage margin. Series is append-only.
type PositionState struct {
	TargetQty float64         `json:"targetQty"`
	FilledQty float64         `json:"filledQty"`
	AvgPrice  float64         `json:"avgPrice"`
	AvgArbPct float64         `json:"avgArbPct"`
	Series    []PositionPoint `json:"series"`
}

// Remaining is the unfilled part of the target, never negative.
func (p *PositionState) Remaining() float64 {
	r := p.TargetQty - p.FilledQty
	if r < 0 {
		return 0
	}
	return r
}
