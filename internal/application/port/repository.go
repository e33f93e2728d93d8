package port

import (
	"context"

	"duoleg/internal/domain/model"
)

// Repository persists market-meta overrides and the trade history.
// Writes are at-least-once: re-saving an unchanged record is harmless,
// SaveTrade upserts by LocalID.
type Repository interface {
	UpsertOverride(ctx context.Context, symbol string, override map[string]any) error
	LoadOverrides(ctx context.Context) (map[string]map[string]any, error)

	SaveTrade(ctx context.Context, t *model.Trade) error
	// LoadTrades returns the history most recent first.
	LoadTrades(ctx context.Context) ([]*model.Trade, error)

	Close() error
}

// QuoteCache keeps the last good top-of-book per venue so market data can
// survive brief venue outages. Implementations may expire entries.
type QuoteCache interface {
	PutBook(ctx context.Context, venue string, book model.Book) error
	GetBook(ctx context.Context, venue, symbol string) (model.Book, bool, error)
}
