package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"duoleg/internal/application/port"
	"duoleg/internal/domain/model"
	domain "duoleg/internal/domain/service"
)

// MetaService resolves per-symbol market metadata: an auto-discovered
// baseline cached for process lifetime, with persisted operator overrides
// deep-merged on top.
type MetaService struct {
	spot     port.SpotVenue
	futures  port.FuturesVenue
	repo     port.Repository
	settings model.ExecSettings // config-level defaults for the settings leaf

	mu        sync.Mutex
	baseline  map[string]model.MarketMeta
	overrides map[string]map[string]any
}

func NewMetaService(spot port.SpotVenue, futures port.FuturesVenue, repo port.Repository, settings model.ExecSettings) *MetaService {
	return &MetaService{
		spot:      spot,
		futures:   futures,
		repo:      repo,
		settings:  settings,
		baseline:  make(map[string]model.MarketMeta),
		overrides: make(map[string]map[string]any),
	}
}

// LoadOverrides pulls persisted overrides at startup.
func (s *MetaService) LoadOverrides(ctx context.Context) error {
	ovs, err := s.repo.LoadOverrides(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for sym, ov := range ovs {
		s.overrides[strings.ToUpper(sym)] = ov
	}
	log.Info().Int("overrides", len(ovs)).Msg("market-meta overrides loaded")
	return nil
}

// Resolve returns the merged metadata for a symbol, discovering the
// baseline on first reference. Discovery never fails the call: a venue
// that cannot be reached contributes its documented defaults instead, so
// quotes keep flowing while metadata is degraded.
func (s *MetaService) Resolve(ctx context.Context, symbol string) model.MarketMeta {
	symbol = strings.ToUpper(symbol)
	base := s.baselineFor(ctx, symbol)

	s.mu.Lock()
	ov := s.overrides[symbol]
	s.mu.Unlock()

	return applyOverride(base, ov)
}

// Layers exposes baseline, override and merged views for inspection.
func (s *MetaService) Layers(ctx context.Context, symbol string) (auto model.MarketMeta, override map[string]any, merged model.MarketMeta) {
	symbol = strings.ToUpper(symbol)
	auto = s.baselineFor(ctx, symbol)
	s.mu.Lock()
	override = s.overrides[symbol]
	s.mu.Unlock()
	merged = applyOverride(auto, override)
	return auto, override, merged
}

// SetOverride deep-merges a partial override into the stored one and
// persists it before returning. The auto-discovered baseline is left
// untouched.
func (s *MetaService) SetOverride(ctx context.Context, symbol string, partial map[string]any) (model.MarketMeta, error) {
	symbol = strings.ToUpper(symbol)

	s.mu.Lock()
	merged := domain.DeepMerge(s.overrides[symbol], partial)
	s.overrides[symbol] = merged
	s.mu.Unlock()

	// Durable before success.
	if err := s.repo.UpsertOverride(ctx, symbol, merged); err != nil {
		return model.MarketMeta{}, err
	}
	return s.Resolve(ctx, symbol), nil
}

func (s *MetaService) baselineFor(ctx context.Context, symbol string) model.MarketMeta {
	s.mu.Lock()
	if meta, ok := s.baseline[symbol]; ok {
		s.mu.Unlock()
		return meta
	}
	s.mu.Unlock()

	meta := s.discover(ctx, symbol)

	s.mu.Lock()
	defer s.mu.Unlock()
	// A concurrent discovery may have landed first; keep the cached one.
	if cached, ok := s.baseline[symbol]; ok {
		return cached
	}
	s.baseline[symbol] = meta
	return meta
}

func (s *MetaService) discover(ctx context.Context, symbol string) model.MarketMeta {
	meta := model.MarketMeta{
		Symbol:   symbol,
		Spot:     model.DefaultSpotMeta,
		Futures:  model.DefaultFuturesMeta,
		Settings: s.settings,
	}
	if spot, err := s.spot.PairMeta(ctx, symbol); err == nil {
		meta.Spot = spot
	} else {
		log.Warn().Err(err).Str("symbol", symbol).Msg("spot meta discovery failed, using defaults")
	}
	if fut, err := s.futures.ContractMeta(ctx, symbol); err == nil {
		meta.Futures = fut
	} else {
		log.Warn().Err(err).Str("symbol", symbol).Msg("futures meta discovery failed, using defaults")
	}
	return meta
}

// applyOverride layers an override object over the baseline leaf-wise.
// The merge runs on the JSON representation so partial objects behave
// exactly like the persisted form.
func applyOverride(base model.MarketMeta, override map[string]any) model.MarketMeta {
	if len(override) == 0 {
		return base
	}
	raw, err := json.Marshal(base)
	if err != nil {
		return base
	}
	var baseMap map[string]any
	if err := json.Unmarshal(raw, &baseMap); err != nil {
		return base
	}
	mergedMap := domain.DeepMerge(baseMap, override)
	mergedRaw, err := json.Marshal(mergedMap)
	if err != nil {
		return base
	}
	merged := base
	if err := json.Unmarshal(mergedRaw, &merged); err != nil {
		return base
	}
	return merged
}
