package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"duoleg/internal/application/port"
	"duoleg/internal/domain/model"
)

// QuoteCache keeps the last good top-of-book per venue in a redis hash so
// market data survives short venue outages. Entries expire with the hash.
type QuoteCache struct {
	rdb      *redis.Client
	keyBooks string
	ttl      time.Duration
}

func NewQuoteCache(rdb *redis.Client, prefix string, ttl time.Duration) *QuoteCache {
	return &QuoteCache{
		rdb:      rdb,
		keyBooks: prefix + ":books",
		ttl:      ttl,
	}
}

func (c *QuoteCache) PutBook(ctx context.Context, venue string, book model.Book) error {
	b, err := json.Marshal(book)
	if err != nil {
		return err
	}
	field := fmt.Sprintf("%s:%s", venue, book.Symbol)
	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, c.keyBooks, field, string(b))
	if c.ttl > 0 {
		pipe.Expire(ctx, c.keyBooks, c.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (c *QuoteCache) GetBook(ctx context.Context, venue, symbol string) (model.Book, bool, error) {
	field := fmt.Sprintf("%s:%s", venue, symbol)
	raw, err := c.rdb.HGet(ctx, c.keyBooks, field).Result()
	if err == redis.Nil {
		return model.Book{}, false, nil
	}
	if err != nil {
		return model.Book{}, false, err
	}
	var book model.Book
	if err := json.Unmarshal([]byte(raw), &book); err != nil {
		return model.Book{}, false, err
	}
	return book, true, nil
}

var _ port.QuoteCache = (*QuoteCache)(nil)
