package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"duoleg/internal/application/port"
	"duoleg/internal/domain/model"
	"duoleg/internal/infrastructure/metrics"
)

// legProbe is one leg's poll outcome for a single pass.
type legProbe struct {
	filled   bool
	fillQty  float64
	avgPrice float64
}

// ReconcileService drives unsettled trades to their terminal state by
// polling both venues for order status. Passes are serialized: a slow
// venue can delay the next pass but never overlap it.
type ReconcileService struct {
	spot     port.SpotVenue
	futures  port.FuturesVenue
	book     *TradeBook
	position *PositionService

	interval       time.Duration
	manualNotFound bool

	mu sync.Mutex
}

func NewReconcileService(spot port.SpotVenue, futures port.FuturesVenue, book *TradeBook, position *PositionService, interval time.Duration, manualNotFound bool) *ReconcileService {
	return &ReconcileService{
		spot:           spot,
		futures:        futures,
		book:           book,
		position:       position,
		interval:       interval,
		manualNotFound: manualNotFound,
	}
}

// Run polls on the configured interval until the context is cancelled.
func (s *ReconcileService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Pass(ctx)
		}
	}
}

// Pass reconciles every unsettled trade once. A venue failure on one trade
// never aborts the rest of the pass; that trade is simply retried next tick.
func (s *ReconcileService) Pass(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.book.Unsettled() {
		if ctx.Err() != nil {
			return
		}
		s.reconcileTrade(ctx, t)
	}
	metrics.PollPasses.Inc()
}

// reconcileTrade probes both legs on a trade snapshot, then applies the
// outcome under the book lock. Venue I/O never happens while the lock is
// held.
func (s *ReconcileService) reconcileTrade(ctx context.Context, t *model.Trade) {
	spot := s.probeSpot(ctx, t)
	fut := s.probeFutures(ctx, t)

	_, err := s.book.Update(ctx, t.LocalID, func(cur *model.Trade) bool {
		before := *cur

		if spot.filled {
			cur.SpotStatus = model.LegFilled
		} else if cur.SpotStatus == model.LegCreating && cur.SpotOrderID != "" {
			cur.SpotStatus = model.LegOpen
		}
		if fut.filled {
			cur.FuturesStatus = model.LegFilled
		} else if cur.FuturesStatus == model.LegCreating && cur.FuturesOrderID != "" {
			cur.FuturesStatus = model.LegOpen
		}
		cur.RecomputeStatus()

		if cur.Status == model.StatusFilled {
			if cur.FilledAt == nil {
				now := time.Now()
				cur.FilledAt = &now
			}
			if cur.Settle() {
				qty := spot.fillQty
				if qty <= 0 {
					qty = cur.Volume
				}
				price := spot.avgPrice
				if price <= 0 {
					price = cur.SpotPrice
				}
				s.position.Accumulate(qty, price, cur.ArbPct())
				metrics.Settlements.Inc()
				log.Info().
					Str("localId", cur.LocalID).
					Float64("qty", qty).
					Float64("avgPrice", price).
					Msg("trade settled into position")
			}
		}

		return before.SpotStatus != cur.SpotStatus ||
			before.FuturesStatus != cur.FuturesStatus ||
			before.Status != cur.Status ||
			before.Settlement != cur.Settlement
	})
	if err != nil {
		log.Warn().Err(err).Str("localId", t.LocalID).Msg("reconcile update failed")
	}
}

func (s *ReconcileService) probeSpot(ctx context.Context, t *model.Trade) legProbe {
	if t.SpotOrderID == "" {
		return legProbe{}
	}
	detail, err := s.spot.OrderDetail(ctx, t.Symbol, t.SpotOrderID)
	if err != nil {
		if errors.Is(err, model.ErrOrderNotFound) {
			if s.manualNotFound {
				log.Warn().
					Str("localId", t.LocalID).
					Str("orderId", t.SpotOrderID).
					Msg("spot order unknown to venue, leaving for manual reconciliation")
				return legProbe{}
			}
			// The venue has forgotten the id; the common cause is a fill
			// that aged out of the open-orders index.
			return legProbe{filled: true, fillQty: t.Volume, avgPrice: t.SpotPrice}
		}
		metrics.VenueErrors.WithLabelValues(s.spot.Name(), string(model.ErrKind(err))).Inc()
		log.Warn().Err(err).Str("localId", t.LocalID).Msg("spot order poll failed")
		return legProbe{}
	}
	if !detail.IsFilled() {
		return legProbe{}
	}
	return legProbe{filled: true, fillQty: detail.Filled, avgPrice: detail.AvgPrice}
}

func (s *ReconcileService) probeFutures(ctx context.Context, t *model.Trade) legProbe {
	if t.FuturesOrderID == "" {
		return legProbe{}
	}
	detail, err := s.futures.OrderDetail(ctx, t.Symbol, t.FuturesOrderID)
	if err != nil {
		metrics.VenueErrors.WithLabelValues(s.futures.Name(), string(model.ErrKind(err))).Inc()
		log.Warn().Err(err).Str("localId", t.LocalID).Msg("futures order poll failed")
		return legProbe{}
	}
	return legProbe{filled: detail.IsFilled()}
}
