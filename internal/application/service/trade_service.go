package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"duoleg/internal/application/port"
	"duoleg/internal/domain/model"
	domain "duoleg/internal/domain/service"
	"duoleg/internal/infrastructure/metrics"
)

// ErrMinQuoteNotMet rejects an execution whose spot notional is below the
// venue's minimum order value.
var ErrMinQuoteNotMet = errors.New("spot notional below venue minimum")

// ErrNoDepth rejects an execution when the books offer nothing tradable at
// the selected touch.
var ErrNoDepth = errors.New("no tradable depth at touch")

// ExecuteLeg reports one leg's submission outcome.
type ExecuteLeg struct {
	OrderID string  `json:"orderId,omitempty"`
	Price   float64 `json:"price"`
	Error   string  `json:"error,omitempty"`
}

// ExecuteResult is the immediate outcome of a dual-leg submission. Fill
// confirmation arrives later through the reconciliation poller.
type ExecuteResult struct {
	LocalID   string            `json:"localId"`
	Mode      model.Mode        `json:"mode"`
	Symbol    string            `json:"symbol"`
	BaseQty   float64           `json:"baseQty"`
	Contracts float64           `json:"contracts"`
	Status    model.TradeStatus `json:"status"`
	Spot      ExecuteLeg        `json:"spot"`
	Futures   ExecuteLeg        `json:"futures"`
}

// CancelResult reports the symmetric cancellation outcome, including any
// partial spot fill captured before the order died.
type CancelResult struct {
	LocalID      string            `json:"localId"`
	Status       model.TradeStatus `json:"status"`
	SpotFilled   float64           `json:"spotFilled"`
	SpotAvgPrice float64           `json:"spotAvgPrice,omitempty"`
	SpotError    string            `json:"spotError,omitempty"`
	FuturesError string            `json:"futuresError,omitempty"`
}

// TradeService orchestrates the paired-leg lifecycle: execute both legs,
// cancel both legs, and fold cancel-time partial fills into the position.
type TradeService struct {
	spot     port.SpotVenue
	futures  port.FuturesVenue
	md       *MarketDataService
	meta     *MetaService
	position *PositionService
	book     *TradeBook

	maxDriftPct float64

	mu           sync.Mutex
	lastPrecheck map[string]float64 // mode|symbol -> spot price at precheck
}

func NewTradeService(spot port.SpotVenue, futures port.FuturesVenue, md *MarketDataService, meta *MetaService, position *PositionService, book *TradeBook, maxDriftPct float64) *TradeService {
	return &TradeService{
		spot:         spot,
		futures:      futures,
		md:           md,
		meta:         meta,
		position:     position,
		book:         book,
		maxDriftPct:  maxDriftPct,
		lastPrecheck: make(map[string]float64),
	}
}

// NotePrecheck records the spot price an operator confirmed against, keyed
// by mode and symbol. Execute compares against it when the drift guard is on.
func (s *TradeService) NotePrecheck(mode model.Mode, symbol string, spotPrice float64) {
	s.mu.Lock()
	s.lastPrecheck[string(mode)+"|"+symbol] = spotPrice
	s.mu.Unlock()
}

func (s *TradeService) precheckPrice(mode model.Mode, symbol string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.lastPrecheck[string(mode)+"|"+symbol]
	return p, ok
}

// Execute re-derives sizing from live books, records the trade, then submits
// both legs. The record is persisted before any network submission so a
// crash mid-flight leaves an auditable creating-state row.
func (s *TradeService) Execute(ctx context.Context, mode model.Mode, symbol string) (ExecuteResult, error) {
	meta := s.meta.Resolve(ctx, symbol)
	spotBook, futBook, err := s.md.Books(ctx, symbol)
	if err != nil {
		return ExecuteResult{}, err
	}
	target, filled := s.position.Progress()

	sizing := domain.ComputeSizing(domain.SizingInput{
		Mode:      mode,
		SpotBook:  spotBook,
		FutBook:   futBook,
		Meta:      meta,
		TargetQty: target,
		FilledQty: filled,
	})
	if sizing.Blocked {
		return ExecuteResult{}, fmt.Errorf("%w: notional %.6f < min %.6f",
			ErrMinQuoteNotMet, sizing.SpotNotional, meta.Spot.MinQuote)
	}
	if sizing.BaseQty <= 0 || sizing.Contracts <= 0 {
		return ExecuteResult{}, ErrNoDepth
	}

	if s.maxDriftPct > 0 {
		if base, ok := s.precheckPrice(mode, symbol); ok && base > 0 {
			drift := math.Abs(sizing.SpotPrice-base) / base * 100
			if drift > s.maxDriftPct {
				return ExecuteResult{}, fmt.Errorf("%w: spot moved %.4f%% since precheck", model.ErrStaleBook, drift)
			}
		}
	}

	now := time.Now()
	trade := model.NewTrade(symbol, mode, sizing.SpotPrice, sizing.FuturesPrice, sizing.BaseQty, sizing.Contracts, now)
	if err := s.book.Add(ctx, trade); err != nil {
		return ExecuteResult{}, err
	}

	spotSide := "buy"
	sideCode := port.SideOpenShort
	if mode == model.ModeClose {
		spotSide = "sell"
		sideCode = port.SideCloseShort
	}

	res := ExecuteResult{
		LocalID:   trade.LocalID,
		Mode:      mode,
		Symbol:    symbol,
		BaseQty:   sizing.BaseQty,
		Contracts: sizing.Contracts,
		Spot:      ExecuteLeg{Price: sizing.SpotPrice},
		Futures:   ExecuteLeg{Price: sizing.FuturesPrice},
	}

	price := strconv.FormatFloat(sizing.SpotPrice, 'f', meta.Spot.PriceScale, 64)
	amount := strconv.FormatFloat(sizing.BaseQty, 'f', meta.Spot.QtyScale, 64)
	spotID, spotErr := s.spot.SubmitOrder(ctx, symbol, spotSide, price, amount)
	if spotErr != nil {
		res.Spot.Error = spotErr.Error()
		metrics.VenueErrors.WithLabelValues(s.spot.Name(), string(model.ErrKind(spotErr))).Inc()
		log.Error().Err(spotErr).Str("localId", trade.LocalID).Msg("spot leg submission failed")
	} else {
		res.Spot.OrderID = spotID
	}

	futID, futErr := s.futures.SubmitOrder(ctx, port.FuturesOrder{
		Symbol:    symbol,
		Price:     sizing.FuturesPrice,
		Contracts: sizing.Contracts,
		Leverage:  meta.Settings.Leverage,
		SideCode:  sideCode,
	})
	if futErr != nil {
		res.Futures.Error = futErr.Error()
		metrics.VenueErrors.WithLabelValues(s.futures.Name(), string(model.ErrKind(futErr))).Inc()
		log.Error().Err(futErr).Str("localId", trade.LocalID).Msg("futures leg submission failed")
	} else {
		res.Futures.OrderID = futID
	}

	status := model.SubmitStatus(spotErr == nil, futErr == nil)
	res.Status = status
	executed := time.Now()

	if _, err := s.book.Update(ctx, trade.LocalID, func(t *model.Trade) bool {
		t.SpotOrderID = spotID
		t.FuturesOrderID = futID
		t.SpotStatus = legSubmitStatus(spotErr)
		t.FuturesStatus = legSubmitStatus(futErr)
		t.Status = status
		t.ExecutedAt = &executed
		return true
	}); err != nil {
		log.Warn().Err(err).Str("localId", trade.LocalID).Msg("persist after submission failed")
	}

	metrics.TradesSubmitted.WithLabelValues(string(status)).Inc()
	log.Info().
		Str("localId", trade.LocalID).
		Str("mode", string(mode)).
		Str("symbol", symbol).
		Float64("baseQty", sizing.BaseQty).
		Float64("contracts", sizing.Contracts).
		Str("status", string(status)).
		Msg("trade submitted")
	return res, nil
}

func legSubmitStatus(err error) model.LegStatus {
	if err != nil {
		return model.LegError
	}
	return model.LegOpen
}

// Cancel attempts both legs regardless of individual failures, then captures
// any spot partial fill and folds it into the position exactly once. The
// trade is marked cancelled only when every leg with an order id is down;
// otherwise the call can be retried. A retry skips legs that already
// cancelled, and a not-found answer counts as cancelled since the order is
// already off the book.
func (s *TradeService) Cancel(ctx context.Context, localID string) (CancelResult, error) {
	trade, ok := s.book.Get(localID)
	if !ok {
		return CancelResult{}, model.ErrTradeNotFound
	}

	res := CancelResult{LocalID: localID}

	spotDone := trade.SpotStatus == model.LegCancelled
	futDone := trade.FuturesStatus == model.LegCancelled

	if trade.SpotOrderID != "" && !spotDone {
		if err := s.spot.CancelOrder(ctx, trade.Symbol, trade.SpotOrderID); err != nil {
			if errors.Is(err, model.ErrOrderNotFound) {
				spotDone = true
			} else {
				res.SpotError = err.Error()
				metrics.VenueErrors.WithLabelValues(s.spot.Name(), string(model.ErrKind(err))).Inc()
				log.Error().Err(err).Str("localId", localID).Msg("spot cancel failed")
			}
		} else {
			spotDone = true
		}
	}
	if trade.FuturesOrderID != "" && !futDone {
		if err := s.futures.CancelOrder(ctx, trade.Symbol, trade.FuturesOrderID); err != nil {
			if errors.Is(err, model.ErrOrderNotFound) {
				futDone = true
			} else {
				res.FuturesError = err.Error()
				metrics.VenueErrors.WithLabelValues(s.futures.Name(), string(model.ErrKind(err))).Inc()
				log.Error().Err(err).Str("localId", localID).Msg("futures cancel failed")
			}
		} else {
			futDone = true
		}
	}

	// Post-cancel lookup captures whatever filled before the order died.
	// Runs on retries too: an earlier attempt may have cancelled the spot
	// leg without settling because the futures leg was still up.
	var filledQty, avgPrice float64
	if spotDone && trade.SpotOrderID != "" && trade.Settlement != model.Settled {
		if detail, err := s.spot.OrderDetail(ctx, trade.Symbol, trade.SpotOrderID); err == nil {
			filledQty = detail.Filled
			avgPrice = detail.AvgPrice
			if avgPrice <= 0 {
				avgPrice = trade.SpotPrice
			}
		} else {
			log.Warn().Err(err).Str("localId", localID).Msg("post-cancel detail lookup failed")
		}
	}
	res.SpotFilled = filledQty
	if filledQty > 0 {
		res.SpotAvgPrice = avgPrice
	}

	failed := (trade.SpotOrderID != "" && !spotDone) || (trade.FuturesOrderID != "" && !futDone)
	cancelledAt := time.Now()

	if _, err := s.book.Update(ctx, localID, func(t *model.Trade) bool {
		if spotDone && t.SpotOrderID != "" {
			t.SpotStatus = model.LegCancelled
		}
		if futDone && t.FuturesOrderID != "" {
			t.FuturesStatus = model.LegCancelled
		}
		if !failed {
			t.Status = model.StatusCancelled
			t.CancelledAt = &cancelledAt
			if t.Settle() {
				if filledQty > 0 {
					s.position.Accumulate(filledQty, avgPrice, t.ArbPct())
				}
				metrics.Settlements.Inc()
			}
		}
		return true
	}); err != nil {
		log.Warn().Err(err).Str("localId", localID).Msg("persist after cancel failed")
	}

	updated, _ := s.book.Get(localID)
	if updated != nil {
		res.Status = updated.Status
	}
	log.Info().
		Str("localId", localID).
		Bool("spotCancelled", spotDone).
		Bool("futuresCancelled", futDone).
		Float64("spotFilled", filledQty).
		Msg("trade cancellation processed")
	return res, nil
}
