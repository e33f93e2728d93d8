package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"duoleg/internal/domain/model"
)

func testCache(t *testing.T, ttl time.Duration) (*QuoteCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewQuoteCache(rdb, "duoleg", ttl), mr
}

func TestQuoteCacheRoundTrip(t *testing.T) {
	cache, _ := testCache(t, 30*time.Second)
	ctx := context.Background()

	book := model.Book{
		Symbol: "WMTX_USDT",
		Ask:    model.Level{Price: 2.0, Size: 150},
		Bid:    model.Level{Price: 1.99, Size: 100},
		TsMs:   1700000000000,
	}
	if err := cache.PutBook(ctx, "gate", book); err != nil {
		t.Fatalf("PutBook: %v", err)
	}

	got, ok, err := cache.GetBook(ctx, "gate", "WMTX_USDT")
	if err != nil || !ok {
		t.Fatalf("GetBook: ok=%v err=%v", ok, err)
	}
	if got != book {
		t.Errorf("got %+v, want %+v", got, book)
	}
}

func TestQuoteCacheMissAndVenueIsolation(t *testing.T) {
	cache, _ := testCache(t, 30*time.Second)
	ctx := context.Background()

	if _, ok, err := cache.GetBook(ctx, "gate", "WMTX_USDT"); err != nil || ok {
		t.Errorf("empty cache: ok=%v err=%v", ok, err)
	}

	cache.PutBook(ctx, "gate", model.Book{Symbol: "WMTX_USDT", Ask: model.Level{Price: 2}})
	if _, ok, _ := cache.GetBook(ctx, "mexc", "WMTX_USDT"); ok {
		t.Error("venues must not share cache fields")
	}
}

func TestQuoteCacheExpires(t *testing.T) {
	cache, mr := testCache(t, 5*time.Second)
	ctx := context.Background()

	cache.PutBook(ctx, "gate", model.Book{Symbol: "WMTX_USDT", Ask: model.Level{Price: 2}})
	mr.FastForward(6 * time.Second)

	if _, ok, _ := cache.GetBook(ctx, "gate", "WMTX_USDT"); ok {
		t.Error("entry should have expired with the hash")
	}
}
