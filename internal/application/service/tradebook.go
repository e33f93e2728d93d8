package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"duoleg/internal/application/port"
	"duoleg/internal/domain/model"
)

// TradeBook is the in-memory trade history, most recent first, backed by
// the repository. It is the single serialization point for trade
// mutation: the orchestrator, the poller and the cancellation path all go
// through its lock.
type TradeBook struct {
	mu     sync.Mutex
	trades []*model.Trade
	repo   port.Repository
}

func NewTradeBook(repo port.Repository) *TradeBook {
	return &TradeBook{repo: repo}
}

// Load restores the history at startup.
func (b *TradeBook) Load(ctx context.Context) error {
	trades, err := b.repo.LoadTrades(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.trades = trades
	b.mu.Unlock()
	log.Info().Int("trades", len(trades)).Msg("trade history loaded")
	return nil
}

// Add prepends a new trade and persists it before returning, so a crash
// after this point still leaves an inspectable record.
func (b *TradeBook) Add(ctx context.Context, t *model.Trade) error {
	b.mu.Lock()
	b.trades = append([]*model.Trade{t}, b.trades...)
	b.mu.Unlock()
	return b.repo.SaveTrade(ctx, t)
}

// List returns clones, most recent first.
func (b *TradeBook) List() []*model.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*model.Trade, len(b.trades))
	for i, t := range b.trades {
		out[i] = t.Clone()
	}
	return out
}

// Unsettled returns clones of trades the poller still has to reconcile.
func (b *TradeBook) Unsettled() []*model.Trade {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*model.Trade
	for _, t := range b.trades {
		if t.Unsettled() {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Get returns a clone by local id.
func (b *TradeBook) Get(localID string) (*model.Trade, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.trades {
		if t.LocalID == localID {
			return t.Clone(), true
		}
	}
	return nil, false
}

// Update runs fn on the live record under the book lock. fn reports
// whether an observable field changed; only then is the record persisted.
// The settle-once guard lives inside fn calls (Trade.Settle), which this
// lock makes atomic with the status mutation.
func (b *TradeBook) Update(ctx context.Context, localID string, fn func(*model.Trade) bool) (bool, error) {
	b.mu.Lock()
	var target *model.Trade
	for _, t := range b.trades {
		if t.LocalID == localID {
			target = t
			break
		}
	}
	if target == nil {
		b.mu.Unlock()
		return false, model.ErrTradeNotFound
	}
	changed := fn(target)
	var snapshot *model.Trade
	if changed {
		snapshot = target.Clone()
	}
	b.mu.Unlock()

	if !changed {
		return false, nil
	}
	if err := b.repo.SaveTrade(ctx, snapshot); err != nil {
		// The in-memory state already advanced; the next save retries.
		log.Warn().Err(err).Str("local_id", localID).Msg("trade persist failed")
		return true, err
	}
	return true, nil
}
