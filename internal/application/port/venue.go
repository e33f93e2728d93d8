package port

import (
	"context"

	"duoleg/internal/domain/model"
)

// SpotVenue is the spot leg. One fixed interface; capability is never
// discovered at runtime.
type SpotVenue interface {
	Name() string

	// OrderBook returns the top of book, sizes in base-asset units.
	OrderBook(ctx context.Context, symbol string) (model.Book, error)

	// PairMeta discovers per-pair precision and minimum-size rules.
	PairMeta(ctx context.Context, symbol string) (model.SpotMeta, error)

	// SubmitOrder places a limit order. Price and amount are pre-rounded
	// strings at the venue's scale. Returns the venue order id.
	SubmitOrder(ctx context.Context, symbol, side, price, amount string) (string, error)

	CancelOrder(ctx context.Context, symbol, orderID string) error

	// OrderDetail returns model.ErrOrderNotFound (wrapped) when the venue
	// no longer knows the id.
	OrderDetail(ctx context.Context, symbol, orderID string) (model.OrderDetail, error)

	// Balances returns available/locked per currency for the pair's
	// base, quote and USDT.
	Balances(ctx context.Context, symbol string) (map[string]model.AssetBalance, error)
}

// FuturesOrder is a contract-denominated limit order for the futures leg.
type FuturesOrder struct {
	Symbol    string
	Price     float64
	Contracts float64
	Leverage  float64
	SideCode  int // venue directional code: 3 = open short, 4 = close short
}

// Futures side codes used by the derivatives venue.
const (
	SideOpenShort  = 3
	SideCloseShort = 4
)

// FuturesVenue is the leveraged derivatives leg.
type FuturesVenue interface {
	Name() string

	// Depth returns the top of book, sizes in contracts.
	Depth(ctx context.Context, symbol string) (model.Book, error)

	// ContractMeta discovers the contract's precision and sizing rules.
	ContractMeta(ctx context.Context, symbol string) (model.FuturesMeta, error)

	SubmitOrder(ctx context.Context, order FuturesOrder) (string, error)

	CancelOrder(ctx context.Context, symbol, orderID string) error

	OrderDetail(ctx context.Context, symbol, orderID string) (model.OrderDetail, error)

	// AvailableUSDT reports the free margin balance; Unknown when the
	// venue cannot be queried (missing token, bad response).
	AvailableUSDT(ctx context.Context) model.BalanceStatus
}
