package service

import (
	"context"
	"sync"

	"duoleg/internal/application/port"
	"duoleg/internal/domain/model"
)

// fakeSpot scripts the spot venue for service tests.
type fakeSpot struct {
	book      model.Book
	bookErr   error
	meta      model.SpotMeta
	metaErr   error
	submitID  string
	submitErr error
	cancelErr error
	detail    model.OrderDetail
	detailErr error
	balances  map[string]model.AssetBalance

	submits     []string // "side price amount" per submission
	cancelled   []string
	detailCalls int
}

func (f *fakeSpot) Name() string { return "gate" }

func (f *fakeSpot) OrderBook(ctx context.Context, symbol string) (model.Book, error) {
	if f.bookErr != nil {
		return model.Book{}, f.bookErr
	}
	return f.book, nil
}

func (f *fakeSpot) PairMeta(ctx context.Context, symbol string) (model.SpotMeta, error) {
	if f.metaErr != nil {
		return model.SpotMeta{}, f.metaErr
	}
	return f.meta, nil
}

func (f *fakeSpot) SubmitOrder(ctx context.Context, symbol, side, price, amount string) (string, error) {
	f.submits = append(f.submits, side+" "+price+" "+amount)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.submitID, nil
}

func (f *fakeSpot) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeSpot) OrderDetail(ctx context.Context, symbol, orderID string) (model.OrderDetail, error) {
	f.detailCalls++
	if f.detailErr != nil {
		return model.OrderDetail{}, f.detailErr
	}
	return f.detail, nil
}

func (f *fakeSpot) Balances(ctx context.Context, symbol string) (map[string]model.AssetBalance, error) {
	return f.balances, nil
}

// fakeFutures scripts the derivatives venue.
type fakeFutures struct {
	book      model.Book
	bookErr   error
	meta      model.FuturesMeta
	metaErr   error
	submitID  string
	submitErr error
	cancelErr error
	detail    model.OrderDetail
	detailErr error
	balance   model.BalanceStatus

	submits   []port.FuturesOrder
	cancelled []string
}

func (f *fakeFutures) Name() string { return "mexc" }

func (f *fakeFutures) Depth(ctx context.Context, symbol string) (model.Book, error) {
	if f.bookErr != nil {
		return model.Book{}, f.bookErr
	}
	return f.book, nil
}

func (f *fakeFutures) ContractMeta(ctx context.Context, symbol string) (model.FuturesMeta, error) {
	if f.metaErr != nil {
		return model.FuturesMeta{}, f.metaErr
	}
	return f.meta, nil
}

func (f *fakeFutures) SubmitOrder(ctx context.Context, order port.FuturesOrder) (string, error) {
	f.submits = append(f.submits, order)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.submitID, nil
}

func (f *fakeFutures) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeFutures) OrderDetail(ctx context.Context, symbol, orderID string) (model.OrderDetail, error) {
	if f.detailErr != nil {
		return model.OrderDetail{}, f.detailErr
	}
	return f.detail, nil
}

func (f *fakeFutures) AvailableUSDT(ctx context.Context) model.BalanceStatus {
	return f.balance
}

// fakeRepo keeps everything in memory.
type fakeRepo struct {
	mu        sync.Mutex
	overrides map[string]map[string]any
	trades    map[string]*model.Trade
	saveErr   error
	saves     int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		overrides: make(map[string]map[string]any),
		trades:    make(map[string]*model.Trade),
	}
}

func (r *fakeRepo) UpsertOverride(ctx context.Context, symbol string, override map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.overrides[symbol] = override
	return nil
}

func (r *fakeRepo) LoadOverrides(ctx context.Context) (map[string]map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]map[string]any, len(r.overrides))
	for k, v := range r.overrides {
		out[k] = v
	}
	return out, nil
}

func (r *fakeRepo) SaveTrade(ctx context.Context, t *model.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.trades[t.LocalID] = t.Clone()
	return nil
}

func (r *fakeRepo) LoadTrades(ctx context.Context) ([]*model.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Trade, 0, len(r.trades))
	for _, t := range r.trades {
		out = append(out, t.Clone())
	}
	return out, nil
}

func (r *fakeRepo) Close() error { return nil }

func (r *fakeRepo) saved(localID string) *model.Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trades[localID]
}

var _ port.SpotVenue = (*fakeSpot)(nil)
var _ port.FuturesVenue = (*fakeFutures)(nil)
var _ port.Repository = (*fakeRepo)(nil)

func testMarketMeta() model.MarketMeta {
	return model.MarketMeta{
		Symbol:   "WMTX_USDT",
		Spot:     model.SpotMeta{PriceScale: 4, QtyScale: 0, MinQuote: 3},
		Futures:  model.FuturesMeta{PriceScale: 4, VolPrecision: 0, ContractSize: 10, MinContracts: 1},
		Settings: model.ExecSettings{MarginPct: 10, Leverage: 1},
	}
}
