package service

import (
	"context"
	"errors"
	"testing"

	"duoleg/internal/domain/model"
)

func TestMetaResolveDiscoversOnce(t *testing.T) {
	spot := &fakeSpot{meta: model.SpotMeta{PriceScale: 6, QtyScale: 2, MinQuote: 5}}
	fut := &fakeFutures{meta: model.FuturesMeta{PriceScale: 3, VolPrecision: 0, ContractSize: 100, MinContracts: 2}}
	ms := NewMetaService(spot, fut, newFakeRepo(), model.ExecSettings{MarginPct: 10, Leverage: 1})

	got := ms.Resolve(context.Background(), "wmtx_usdt")
	if got.Spot.PriceScale != 6 || got.Futures.ContractSize != 100 {
		t.Errorf("discovered meta not used: %+v", got)
	}
	if got.Settings.MarginPct != 10 {
		t.Errorf("settings leaf missing: %+v", got.Settings)
	}

	// Later venue failures must not disturb the cached baseline.
	spot.metaErr = errors.New("down")
	again := ms.Resolve(context.Background(), "WMTX_USDT")
	if again.Spot.PriceScale != 6 {
		t.Errorf("baseline not cached: %+v", again.Spot)
	}
}

func TestMetaResolveFallsBackPerVenue(t *testing.T) {
	spot := &fakeSpot{metaErr: errors.New("spot meta down")}
	fut := &fakeFutures{meta: model.FuturesMeta{PriceScale: 2, VolPrecision: 1, ContractSize: 5, MinContracts: 1}}
	ms := NewMetaService(spot, fut, newFakeRepo(), model.ExecSettings{MarginPct: 10, Leverage: 1})

	got := ms.Resolve(context.Background(), "WMTX_USDT")
	if got.Spot != model.DefaultSpotMeta {
		t.Errorf("spot should fall back to defaults: %+v", got.Spot)
	}
	if got.Futures.ContractSize != 5 {
		t.Errorf("futures discovery should survive spot failure: %+v", got.Futures)
	}
}

func TestMetaSetOverrideMergesAndPersists(t *testing.T) {
	spot := &fakeSpot{meta: model.SpotMeta{PriceScale: 11, QtyScale: 0, MinQuote: 3}}
	fut := &fakeFutures{meta: model.FuturesMeta{PriceScale: 4, VolPrecision: 0, ContractSize: 10, MinContracts: 1}}
	repo := newFakeRepo()
	ms := NewMetaService(spot, fut, repo, model.ExecSettings{MarginPct: 10, Leverage: 1})

	merged, err := ms.SetOverride(context.Background(), "WMTX_USDT", map[string]any{
		"spot": map[string]any{"priceScale": 8.0},
	})
	if err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	if merged.Spot.PriceScale != 8 {
		t.Errorf("merged priceScale = %d, want 8", merged.Spot.PriceScale)
	}
	if merged.Spot.MinQuote != 3 {
		t.Errorf("unrelated leaf erased: %+v", merged.Spot)
	}

	// A second partial override layers on top of the first.
	merged, err = ms.SetOverride(context.Background(), "WMTX_USDT", map[string]any{
		"futures": map[string]any{"minContracts": 5.0},
	})
	if err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	if merged.Spot.PriceScale != 8 || merged.Futures.MinContracts != 5 {
		t.Errorf("override layers lost: %+v", merged)
	}

	// The persisted override carries both layers.
	stored := repo.overrides["WMTX_USDT"]
	if stored == nil || stored["spot"] == nil || stored["futures"] == nil {
		t.Errorf("persisted override incomplete: %v", stored)
	}
}

func TestMetaSetOverridePersistFailureSurfaces(t *testing.T) {
	repo := newFakeRepo()
	repo.saveErr = errors.New("disk full")
	ms := NewMetaService(&fakeSpot{}, &fakeFutures{}, repo, model.ExecSettings{})

	if _, err := ms.SetOverride(context.Background(), "WMTX_USDT", map[string]any{"spot": map[string]any{"priceScale": 8.0}}); err == nil {
		t.Fatal("persist failure must surface")
	}
}

func TestMetaLoadOverridesAtStartup(t *testing.T) {
	repo := newFakeRepo()
	repo.overrides["WMTX_USDT"] = map[string]any{"spot": map[string]any{"minQuote": 7.0}}

	spot := &fakeSpot{meta: model.SpotMeta{PriceScale: 11, MinQuote: 3}}
	fut := &fakeFutures{meta: model.DefaultFuturesMeta}
	ms := NewMetaService(spot, fut, repo, model.ExecSettings{MarginPct: 10, Leverage: 1})
	if err := ms.LoadOverrides(context.Background()); err != nil {
		t.Fatalf("LoadOverrides: %v", err)
	}

	got := ms.Resolve(context.Background(), "WMTX_USDT")
	if got.Spot.MinQuote != 7 {
		t.Errorf("persisted override not applied: %+v", got.Spot)
	}
}
