package model

// Level is one order-book level: price and size in the venue's native unit
// (base asset for spot, contracts for futures).
type Level struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// Book is an ephemeral top-of-book snapshot. Not persisted; recomputed on
// demand from the venue's public depth endpoint.
type Book struct {
	Symbol string `json:"symbol"`
	Bid    Level  `json:"bid"`
	Ask    Level  `json:"ask"`
	TsMs   int64  `json:"ts_ms"`
}

// OrderDetail is the normalized order lookup result shared by both venues.
type OrderDetail struct {
	ID        string  `json:"id"`
	Status    string  `json:"status"` // venue status string, lowercased
	Filled    float64 `json:"filled"` // native units
	Total     float64 `json:"total"`
	Remaining float64 `json:"remaining"`
	AvgPrice  float64 `json:"avgPrice"`
}

// terminal venue status codes that mean the order is done.
var filledStatuses = map[string]struct{}{
	"filled": {}, "closed": {}, "done": {}, "finished": {},
	"completed": {}, "success": {}, "3": {}, "7": {},
}

// IsFilled classifies the leg as filled when the venue reports a terminal
// status, the filled quantity reached the total, or nothing remains.
func (d OrderDetail) IsFilled() bool {
	if _, ok := filledStatuses[d.Status]; ok {
		return true
	}
	if d.Total > 0 && d.Filled >= d.Total {
		return true
	}
	return d.Remaining == 0 && d.Total > 0
}

// BalanceStatus is a venue balance read that may legitimately be unknown
// (missing credentials, unparseable response). Callers must branch on
// Unknown rather than treating it as zero.
type BalanceStatus struct {
	Available float64 `json:"available"`
	Unknown   bool    `json:"unknown"`
	Reason    string  `json:"reason,omitempty"`
}

// AssetBalance is a spot venue per-currency balance.
type AssetBalance struct {
	Available float64 `json:"available"`
	Locked    float64 `json:"locked"`
}
