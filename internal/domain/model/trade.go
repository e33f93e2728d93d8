package model

import (
	"strconv"
	"time"
)

// Mode is the trade direction: open builds the hedged position
// (buy spot, open short futures), close unwinds it.
type Mode string

const (
	ModeOpen  Mode = "open"
	ModeClose Mode = "close"
)

// ParseMode maps request input to a Mode, defaulting to open.
func ParseMode(s string) Mode {
	if s == string(ModeClose) {
		return ModeClose
	}
	return ModeOpen
}

// LegStatus is the per-venue order state.
type LegStatus string

const (
	LegCreating  LegStatus = "creating"
	LegOpen      LegStatus = "open"
	LegFilled    LegStatus = "filled"
	LegCancelled LegStatus = "cancelled"
	LegError     LegStatus = "error"
)

// TradeStatus is the aggregate over both legs.
type TradeStatus string

const (
	StatusCreating      TradeStatus = "creating"
	StatusOpen          TradeStatus = "open"
	StatusFilled        TradeStatus = "filled"
	StatusCancelled     TradeStatus = "cancelled"
	StatusError         TradeStatus = "error"
	StatusSpotFilled    TradeStatus = "spot_filled"
	StatusFuturesFilled TradeStatus = "futures_filled"
	StatusSpotError     TradeStatus = "spot_error"
	StatusFuturesError  TradeStatus = "futures_error"
)

// SettleState records whether a trade's fill has been folded into the
// position. A trade settles at most once.
type SettleState string

const (
	SettlePending SettleState = "pending"
	Settled       SettleState = "settled"
)

// unsettledStatuses is the set the reconciliation poller keeps working on.
var unsettledStatuses = map[TradeStatus]struct{}{
	StatusCreating:      {},
	StatusOpen:          {},
	StatusSpotFilled:    {},
	StatusFuturesFilled: {},
	StatusSpotError:     {},
	StatusFuturesError:  {},
}

// Trade is one paired-leg order record. Identity fields are immutable after
// creation; status fields are advanced by the orchestrator, the poller and
// the cancellation path only.
type Trade struct {
	LocalID   string    `json:"localId"`
	CreatedAt time.Time `json:"createdAt"`
	Symbol    string    `json:"symbol"`
	Mode      Mode      `json:"mode"`

	SpotPrice    float64 `json:"spotPrice"`
	FuturesPrice float64 `json:"futuresPrice"`
	Volume       float64 `json:"volume"` // base-asset units
	Contracts    float64 `json:"contracts"`

	SpotOrderID    string `json:"spotOrderId,omitempty"`
	FuturesOrderID string `json:"futuresOrderId,omitempty"`

	SpotStatus    LegStatus   `json:"spotStatus"`
	FuturesStatus LegStatus   `json:"futuresStatus"`
	Status        TradeStatus `json:"status"`
	Settlement    SettleState `json:"settlement"`

	ExecutedAt  *time.Time `json:"executedAt,omitempty"`
	FilledAt    *time.Time `json:"filledAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

// NewTrade creates a trade in the creating state for both legs. The local id
// is time-derived (unix milliseconds), matching the history key format.
func NewTrade(symbol string, mode Mode, spotPrice, futuresPrice, volume, contracts float64, now time.Time) *Trade {
	return &Trade{
		LocalID:       strconv.FormatInt(now.UnixMilli(), 10),
		CreatedAt:     now,
		Symbol:        symbol,
		Mode:          mode,
		SpotPrice:     spotPrice,
		FuturesPrice:  futuresPrice,
		Volume:        volume,
		Contracts:     contracts,
		SpotStatus:    LegCreating,
		FuturesStatus: LegCreating,
		Status:        StatusCreating,
		Settlement:    SettlePending,
	}
}

// SubmitStatus is the truth table over per-leg submission outcomes.
func SubmitStatus(spotOK, futuresOK bool) TradeStatus {
	switch {
	case spotOK && futuresOK:
		return StatusOpen
	case spotOK:
		return StatusFuturesError
	case futuresOK:
		return StatusSpotError
	default:
		return StatusError
	}
}

// RecomputeStatus derives the aggregate from current per-leg fill states.
// Invariant: Status == filled iff both legs are filled.
func (t *Trade) RecomputeStatus() {
	spotFilled := t.SpotStatus == LegFilled
	futFilled := t.FuturesStatus == LegFilled
	switch {
	case spotFilled && futFilled:
		t.Status = StatusFilled
	case spotFilled:
		t.Status = StatusSpotFilled
	case futFilled:
		t.Status = StatusFuturesFilled
	default:
		t.Status = StatusOpen
	}
}

// Unsettled reports whether the poller still has work to do on this trade.
func (t *Trade) Unsettled() bool {
	_, ok := unsettledStatuses[t.Status]
	return ok
}

// Settle transitions pending -> settled. It returns false if the trade has
// already settled, which is the guard that keeps position accounting
// exactly-once across repeated polls and cancel-with-partial-fill.
func (t *Trade) Settle() bool {
	if t.Settlement == Settled {
		return false
	}
	t.Settlement = Settled
	return true
}

// ArbPct is the arbitrage margin captured by this trade's used prices,
// as a percentage of the spot price.
func (t *Trade) ArbPct() float64 {
	if t.SpotPrice == 0 {
		return 0
	}
	return (t.FuturesPrice - t.SpotPrice) / t.SpotPrice * 100
}

// Clone returns a copy safe to hand outside the book lock.
func (t *Trade) Clone() *Trade {
	c := *t
	return &c
}
