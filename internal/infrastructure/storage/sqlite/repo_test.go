package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"duoleg/internal/domain/model"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repo failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestOverrideRoundTrip(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	ov := map[string]any{"spot": map[string]any{"priceScale": 8.0}}
	if err := repo.UpsertOverride(ctx, "WMTX_USDT", ov); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	// Upsert replaces, not duplicates.
	ov["spot"].(map[string]any)["priceScale"] = 6.0
	if err := repo.UpsertOverride(ctx, "WMTX_USDT", ov); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := repo.LoadOverrides(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("overrides = %d, want 1", len(got))
	}
	spot := got["WMTX_USDT"]["spot"].(map[string]any)
	if spot["priceScale"] != 6.0 {
		t.Errorf("priceScale = %v, want 6", spot["priceScale"])
	}
}

func TestTradeRoundTripAndOrder(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	older := model.NewTrade("WMTX_USDT", model.ModeOpen, 1.8, 2.31, 150, 15, time.UnixMilli(1000))
	newer := model.NewTrade("ACS_USDT", model.ModeClose, 0.5, 0.52, 30, 3, time.UnixMilli(2000))
	newer.SpotOrderID = "g-9"
	newer.Status = model.StatusOpen

	if err := repo.SaveTrade(ctx, older); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := repo.SaveTrade(ctx, newer); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := repo.LoadTrades(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("trades = %d, want 2", len(got))
	}
	if got[0].LocalID != "2000" || got[1].LocalID != "1000" {
		t.Errorf("order = %s, %s; want newest first", got[0].LocalID, got[1].LocalID)
	}
	if got[0].SpotOrderID != "g-9" || got[0].Mode != model.ModeClose {
		t.Errorf("round trip lost fields: %+v", got[0])
	}
}

func TestSaveTradeUpsertsByLocalID(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	tr := model.NewTrade("WMTX_USDT", model.ModeOpen, 1.8, 2.31, 150, 15, time.UnixMilli(1000))
	if err := repo.SaveTrade(ctx, tr); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	tr.Status = model.StatusFilled
	tr.Settlement = model.Settled
	if err := repo.SaveTrade(ctx, tr); err != nil {
		t.Fatalf("resave failed: %v", err)
	}

	got, err := repo.LoadTrades(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("trades = %d, want 1 after upsert", len(got))
	}
	if got[0].Status != model.StatusFilled || got[0].Settlement != model.Settled {
		t.Errorf("upsert kept stale state: %+v", got[0])
	}
}
