package service

import (
	"math"
	"testing"

	"duoleg/internal/domain/model"
)

func TestPositionAccumulateWeightedAverage(t *testing.T) {
	p := NewPositionService()
	if err := p.SetTarget(100); err != nil {
		t.Fatalf("SetTarget: %v", err)
	}

	p.Accumulate(10, 1.0, 5)
	p.Accumulate(10, 2.0, 7)

	st := p.State()
	if st.FilledQty != 20 {
		t.Errorf("FilledQty = %v, want 20", st.FilledQty)
	}
	if math.Abs(st.AvgPrice-1.5) > 1e-9 {
		t.Errorf("AvgPrice = %v, want 1.5", st.AvgPrice)
	}
	if math.Abs(st.AvgArbPct-6) > 1e-9 {
		t.Errorf("AvgArbPct = %v, want 6", st.AvgArbPct)
	}
	if len(st.Series) != 2 {
		t.Errorf("Series length = %d, want 2", len(st.Series))
	}
}

func TestPositionAccumulateIgnoresNonPositiveQty(t *testing.T) {
	p := NewPositionService()
	p.Accumulate(0, 1.0, 5)
	p.Accumulate(-3, 1.0, 5)

	st := p.State()
	if st.FilledQty != 0 || len(st.Series) != 0 {
		t.Errorf("non-positive fills must not move the position: %+v", st)
	}
}

func TestPositionSetTargetRejectsNegative(t *testing.T) {
	p := NewPositionService()
	if err := p.SetTarget(-1); err == nil {
		t.Fatal("negative target must be rejected")
	}
	if err := p.SetTarget(0); err != nil {
		t.Fatalf("zero target clears tracking: %v", err)
	}
}

func TestPositionStateIsACopy(t *testing.T) {
	p := NewPositionService()
	p.Accumulate(5, 1.0, 1)

	st := p.State()
	st.Series[0] = model.PositionPoint{}
	st.FilledQty = 999

	again := p.State()
	if again.FilledQty != 5 || again.Series[0].FilledQty == 0 {
		t.Error("State must return an isolated copy")
	}
}
