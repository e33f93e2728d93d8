package service

import (
	"context"

	"duoleg/internal/domain/model"
	domain "duoleg/internal/domain/service"
)

// PrecheckDetails carries the computed figures back to the operator so the
// confirmation is made against the exact numbers execution would use.
type PrecheckDetails struct {
	Mode          model.Mode `json:"mode"`
	Symbol        string     `json:"symbol"`
	SpotPrice     float64    `json:"spotPrice"`
	FuturesPrice  float64    `json:"futuresPrice"`
	Contracts     float64    `json:"contracts"`
	ContractSize  float64    `json:"contractSize"`
	BaseQty       float64    `json:"baseQty"`
	Leverage      float64    `json:"leverage"`
	MarginPct     float64    `json:"marginPct"`
	RequiredUSDT  float64    `json:"requiredUSDT"`
	AvailableUSDT *float64   `json:"availableUSDT,omitempty"`
}

// PrecheckResult is the dry-run outcome. Blocked short-circuits with a
// reason; otherwise NeedConfirm tells the caller whether explicit operator
// confirmation is required before executing.
type PrecheckResult struct {
	OK             bool             `json:"ok"`
	Mode           model.Mode       `json:"mode"`
	Blocked        bool             `json:"blocked,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	MinQuote       float64          `json:"minQuote,omitempty"`
	SpotNotional   float64          `json:"spotNotional,omitempty"`
	NeedConfirm    bool             `json:"needConfirm"`
	UnknownBalance bool             `json:"unknownBalance"`
	Details        *PrecheckDetails `json:"details,omitempty"`
}

// PrecheckService runs the go/no-go dry run: sizing from live depth plus,
// for opens, a margin sufficiency check on the futures venue.
type PrecheckService struct {
	md       *MarketDataService
	meta     *MetaService
	position *PositionService
	trades   *TradeService
}

func NewPrecheckService(md *MarketDataService, meta *MetaService, position *PositionService, trades *TradeService) *PrecheckService {
	return &PrecheckService{md: md, meta: meta, position: position, trades: trades}
}

func (s *PrecheckService) Run(ctx context.Context, mode model.Mode, symbol string) (PrecheckResult, error) {
	meta := s.meta.Resolve(ctx, symbol)
	spotBook, futBook, err := s.md.Books(ctx, symbol)
	if err != nil {
		return PrecheckResult{}, err
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
		return PrecheckResult{
			OK:           true,
			Mode:         mode,
			Blocked:      true,
			Reason:       sizing.Reason,
			MinQuote:     meta.Spot.MinQuote,
			SpotNotional: sizing.SpotNotional,
		}, nil
	}

	// Remember the basis of this confirmation for the execute-time
	// staleness guard.
	s.trades.NotePrecheck(mode, symbol, sizing.SpotPrice)

	details := &PrecheckDetails{
		Mode:         mode,
		Symbol:       symbol,
		SpotPrice:    sizing.SpotPrice,
		FuturesPrice: sizing.FuturesPrice,
		Contracts:    sizing.Contracts,
		ContractSize: meta.Futures.ContractSize,
		BaseQty:      sizing.BaseQty,
		Leverage:     meta.Settings.Leverage,
		MarginPct:    meta.Settings.MarginPct,
	}

	// Close unwinds an existing position; margin is already committed,
	// so there is nothing to verify.
	if mode == model.ModeClose {
		return PrecheckResult{OK: true, Mode: mode, Details: details}, nil
	}

	details.RequiredUSDT = domain.RequiredMargin(sizing.FuturesPrice, sizing.Contracts, meta)
	bal := s.md.FuturesBalance(ctx)
	if bal.Unknown {
		// Cannot verify; proceed silently rather than block.
		return PrecheckResult{OK: true, Mode: mode, UnknownBalance: true, Details: details}, nil
	}
	avail := bal.Available
	details.AvailableUSDT = &avail
	return PrecheckResult{
		OK:          true,
		Mode:        mode,
		NeedConfirm: avail < details.RequiredUSDT,
		Details:     details,
	}, nil
}
