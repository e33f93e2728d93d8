package service

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"duoleg/internal/domain/model"
)

// PositionService owns the process-wide position estimate. All mutation
// goes through this lock; callers get copies.
type PositionService struct {
	mu    sync.Mutex
	state model.PositionState
}

func NewPositionService() *PositionService {
	return &PositionService{}
}

// SetTarget sets the running fill target in base units.
func (s *PositionService) SetTarget(qty float64) error {
	if qty < 0 {
		return model.ErrInvalidTarget
	}
	s.mu.Lock()
	s.state.TargetQty = qty
	s.mu.Unlock()
	log.Info().Float64("target_qty", qty).Msg("position target set")
	return nil
}

// Accumulate folds one fill into the weighted averages and appends a
// snapshot. A non-positive quantity is a no-op; the caller's settle-once
// guard is what keeps a trade from arriving here twice.
func (s *PositionService) Accumulate(fillQty, fillPrice, arbPct float64) {
	if fillQty <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prevQty := s.state.FilledQty
	newQty := prevQty + fillQty

	if newQty > 0 {
		s.state.AvgPrice = (s.state.AvgPrice*prevQty + fillPrice*fillQty) / newQty
		s.state.AvgArbPct = (s.state.AvgArbPct*prevQty + arbPct*fillQty) / newQty
	} else {
		s.state.AvgPrice = 0
		s.state.AvgArbPct = 0
	}
	s.state.FilledQty = newQty

	s.state.Series = append(s.state.Series, model.PositionPoint{
		T:         time.Now().UnixMilli(),
		FilledQty: newQty,
		AvgPrice:  s.state.AvgPrice,
		AvgArbPct: s.state.AvgArbPct,
	})

	log.Info().
		Float64("fill_qty", fillQty).
		Float64("fill_price", fillPrice).
		Float64("arb_pct", arbPct).
		Float64("filled_qty", newQty).
		Float64("avg_price", s.state.AvgPrice).
		Msg("position updated")
}

// Progress returns target and filled quantities for sizing.
func (s *PositionService) Progress() (targetQty, filledQty float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.TargetQty, s.state.FilledQty
}

// State returns a copy of the full position, series included.
func (s *PositionService) State() model.PositionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Series = make([]model.PositionPoint, len(s.state.Series))
	copy(out.Series, s.state.Series)
	return out
}
