package service

import (
	"context"
	"math"
	"strconv"

	"github.com/rs/zerolog/log"

	"duoleg/internal/application/port"
	"duoleg/internal/domain/model"
)

// MarketDataService serves top-of-book snapshots, venue balances and the
// display payload the dashboard polls. When a quote cache is configured,
// every good book is written through and a venue outage is bridged from
// the cache instead of failing the whole payload.
type MarketDataService struct {
	spot    port.SpotVenue
	futures port.FuturesVenue
	meta    *MetaService
	cache   port.QuoteCache // nil when disabled
}

func NewMarketDataService(spot port.SpotVenue, futures port.FuturesVenue, meta *MetaService, cache port.QuoteCache) *MarketDataService {
	return &MarketDataService{spot: spot, futures: futures, meta: meta, cache: cache}
}

// VenueQuote is one venue's half of the display payload. Prices are fixed
// 11-decimal strings, volumes compacted to integer magnitudes, matching
// what the operator UI has always shown.
type VenueQuote struct {
	Ask    string `json:"ask"`
	AskVol string `json:"askVol"`
	Bid    string `json:"bid"`
	BidVol string `json:"bidVol"`
}

// DataPayload is the GET /api/data response.
type DataPayload struct {
	Symbol    string     `json:"symbol"`
	Spot      VenueQuote `json:"spot"`
	Futures   VenueQuote `json:"futures"`
	DiffOpen  string     `json:"diffOpen"`
	DiffClose string     `json:"diffClose"`
}

// Books fetches both top-of-book snapshots, falling back to the cache on
// a venue failure.
func (s *MarketDataService) Books(ctx context.Context, symbol string) (spot, futures model.Book, err error) {
	spot, err = s.fetchBook(ctx, s.spot.Name(), symbol, func() (model.Book, error) {
		return s.spot.OrderBook(ctx, symbol)
	})
	if err != nil {
		return model.Book{}, model.Book{}, err
	}
	futures, err = s.fetchBook(ctx, s.futures.Name(), symbol, func() (model.Book, error) {
		return s.futures.Depth(ctx, symbol)
	})
	if err != nil {
		return model.Book{}, model.Book{}, err
	}
	return spot, futures, nil
}

func (s *MarketDataService) fetchBook(ctx context.Context, venue, symbol string, fetch func() (model.Book, error)) (model.Book, error) {
	book, err := fetch()
	if err == nil {
		if s.cache != nil {
			if cerr := s.cache.PutBook(ctx, venue, book); cerr != nil {
				log.Debug().Err(cerr).Str("venue", venue).Msg("quote cache write failed")
			}
		}
		return book, nil
	}
	if s.cache != nil {
		cached, ok, cerr := s.cache.GetBook(ctx, venue, symbol)
		if cerr == nil && ok {
			log.Warn().Err(err).Str("venue", venue).Msg("serving cached book after venue failure")
			return cached, nil
		}
	}
	return model.Book{}, err
}

// Data builds the display payload: both books plus the open/close spread
// percentages. Futures depth is converted to base units through the
// contract size before compaction.
func (s *MarketDataService) Data(ctx context.Context, symbol string) (DataPayload, error) {
	meta := s.meta.Resolve(ctx, symbol)
	spotBook, futBook, err := s.Books(ctx, symbol)
	if err != nil {
		return DataPayload{}, err
	}

	base := model.BaseAsset(symbol)
	cs := meta.Futures.ContractSize
	if cs <= 0 {
		cs = 1
	}

	payload := DataPayload{
		Symbol: symbol,
		Spot: VenueQuote{
			Ask:    fmt11(spotBook.Ask.Price),
			AskVol: compactVol(spotBook.Ask.Size) + " " + base,
			Bid:    fmt11(spotBook.Bid.Price),
			BidVol: compactVol(spotBook.Bid.Size) + " " + base,
		},
		Futures: VenueQuote{
			Ask:    fmt11(futBook.Ask.Price),
			AskVol: compactVol(math.Floor(futBook.Ask.Size)*cs) + " " + base,
			Bid:    fmt11(futBook.Bid.Price),
			BidVol: compactVol(math.Floor(futBook.Bid.Size)*cs) + " " + base,
		},
	}

	// Open works spot ask vs futures bid; close the opposite pair.
	if spotBook.Ask.Price > 0 {
		payload.DiffOpen = fmt6((futBook.Bid.Price - spotBook.Ask.Price) / spotBook.Ask.Price * 100)
	}
	if spotBook.Bid.Price > 0 {
		payload.DiffClose = fmt6((futBook.Ask.Price - spotBook.Bid.Price) / spotBook.Bid.Price * 100)
	}
	return payload, nil
}

// BalancesPayload is the GET /api/balances response. Each venue's shape
// differs: spot reports per-currency available/locked or an error string,
// futures reports a single figure that may be unknown.
type BalancesPayload struct {
	Spot    map[string]model.AssetBalance `json:"spot,omitempty"`
	SpotErr string                        `json:"spotError,omitempty"`
	Futures model.BalanceStatus           `json:"futures"`
}

func (s *MarketDataService) Balances(ctx context.Context, symbol string) BalancesPayload {
	out := BalancesPayload{Futures: s.futures.AvailableUSDT(ctx)}
	balances, err := s.spot.Balances(ctx, symbol)
	if err != nil {
		out.SpotErr = err.Error()
		return out
	}
	out.Spot = balances
	return out
}

// FuturesBalance reports the available USDT margin on the futures venue.
func (s *MarketDataService) FuturesBalance(ctx context.Context) model.BalanceStatus {
	return s.futures.AvailableUSDT(ctx)
}

func fmt11(v float64) string {
	return strconv.FormatFloat(v, 'f', 11, 64)
}

func fmt6(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// compactVol renders an integer volume with a magnitude suffix: values of
// 7+ digits become M, 10+ B, 13+ T.
func compactVol(v float64) string {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	n := strconv.FormatFloat(math.Floor(v), 'f', 0, 64)
	switch l := len(n); {
	case l >= 13:
		return n + " T"
	case l >= 10:
		return n + " B"
	case l >= 7:
		return n + " M"
	default:
		return n
	}
}
