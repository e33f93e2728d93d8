package service

import (
	"context"
	"testing"

	"duoleg/internal/domain/model"
)

func newPrecheckStack(spot *fakeSpot, fut *fakeFutures) (*PrecheckService, *PositionService) {
	repo := newFakeRepo()
	meta := NewMetaService(spot, fut, repo, model.ExecSettings{MarginPct: 10, Leverage: 1})
	md := NewMarketDataService(spot, fut, meta, nil)
	pos := NewPositionService()
	book := NewTradeBook(repo)
	ts := NewTradeService(spot, fut, md, meta, pos, book, 0)
	return NewPrecheckService(md, meta, pos, ts), pos
}

func TestPrecheckOpenSufficientMargin(t *testing.T) {
	spot, fut := scriptedVenues()
	fut.balance = model.BalanceStatus{Available: 1000}
	ps, _ := newPrecheckStack(spot, fut)

	res, err := ps.Run(context.Background(), model.ModeOpen, "WMTX_USDT")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.OK || res.Blocked || res.NeedConfirm || res.UnknownBalance {
		t.Errorf("result = %+v, want clean pass", res)
	}
	if res.Details == nil {
		t.Fatal("details missing")
	}
	// 15 contracts * 10 base * 2.31 at 1x leverage.
	if got := res.Details.RequiredUSDT; got < 346.499 || got > 346.501 {
		t.Errorf("RequiredUSDT = %v, want ~346.5", got)
	}
	if res.Details.AvailableUSDT == nil || *res.Details.AvailableUSDT != 1000 {
		t.Errorf("AvailableUSDT = %v, want 1000", res.Details.AvailableUSDT)
	}
}

func TestPrecheckOpenInsufficientMarginNeedsConfirm(t *testing.T) {
	spot, fut := scriptedVenues()
	fut.balance = model.BalanceStatus{Available: 100}
	ps, _ := newPrecheckStack(spot, fut)

	res, err := ps.Run(context.Background(), model.ModeOpen, "WMTX_USDT")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.NeedConfirm {
		t.Error("insufficient margin must require confirmation")
	}
}

func TestPrecheckOpenUnknownBalanceProceedsFlagged(t *testing.T) {
	spot, fut := scriptedVenues()
	fut.balance = model.BalanceStatus{Unknown: true, Reason: "no_web_token"}
	ps, _ := newPrecheckStack(spot, fut)

	res, err := ps.Run(context.Background(), model.ModeOpen, "WMTX_USDT")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.NeedConfirm {
		t.Error("unknown balance must not demand confirmation")
	}
	if !res.UnknownBalance {
		t.Error("unknown balance must be flagged")
	}
	if res.Details.AvailableUSDT != nil {
		t.Error("no available figure when the venue is unreadable")
	}
}

func TestPrecheckCloseSkipsMarginCheck(t *testing.T) {
	spot, fut := scriptedVenues()
	fut.balance = model.BalanceStatus{Available: 0}
	ps, _ := newPrecheckStack(spot, fut)

	res, err := ps.Run(context.Background(), model.ModeClose, "WMTX_USDT")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.NeedConfirm || res.UnknownBalance {
		t.Errorf("close must not gate on margin: %+v", res)
	}
	if res.Details == nil || res.Details.RequiredUSDT != 0 {
		t.Errorf("close carries no margin requirement: %+v", res.Details)
	}
}

func TestPrecheckBlockedByMinQuote(t *testing.T) {
	spot, fut := scriptedVenues()
	spot.book = model.Book{Ask: model.Level{Price: 0.001, Size: 1.5}}
	fut.book = model.Book{Bid: model.Level{Price: 0.0011, Size: 1.2}}
	ps, _ := newPrecheckStack(spot, fut)

	res, err := ps.Run(context.Background(), model.ModeOpen, "WMTX_USDT")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Blocked {
		t.Fatal("expected min-quote block")
	}
	if res.MinQuote != 3 {
		t.Errorf("MinQuote = %v, want 3", res.MinQuote)
	}
	if res.Details != nil {
		t.Error("blocked result carries no execution details")
	}
}
