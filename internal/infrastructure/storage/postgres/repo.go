package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"duoleg/internal/application/port"
	"duoleg/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS overrides (
  symbol TEXT PRIMARY KEY,
  override_json TEXT NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS history (
  local_id TEXT PRIMARY KEY,
  created_at_ms BIGINT NOT NULL,
  symbol TEXT NOT NULL,
  mode TEXT NOT NULL,
  status TEXT NOT NULL,
  spot_status TEXT NOT NULL,
  futures_status TEXT NOT NULL,
  settlement TEXT NOT NULL,
  spot_order_id TEXT,
  futures_order_id TEXT,
  raw_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at_ms);
CREATE INDEX IF NOT EXISTS idx_history_status ON history(status);
`)
	return err
}

func (r *Repo) UpsertOverride(ctx context.Context, symbol string, override map[string]any) error {
	raw, err := json.Marshal(override)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO overrides(symbol, override_json, updated_at) VALUES($1, $2, $3)
ON CONFLICT(symbol) DO UPDATE SET
  override_json = EXCLUDED.override_json,
  updated_at = EXCLUDED.updated_at
`, symbol, string(raw), time.Now().UTC())
	return err
}

func (r *Repo) LoadOverrides(ctx context.Context) (map[string]map[string]any, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol, override_json FROM overrides`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]map[string]any)
	for rows.Next() {
		var symbol, raw string
		if err := rows.Scan(&symbol, &raw); err != nil {
			return nil, err
		}
		var ov map[string]any
		if err := json.Unmarshal([]byte(raw), &ov); err != nil {
			continue
		}
		out[symbol] = ov
	}
	return out, rows.Err()
}

func (r *Repo) SaveTrade(ctx context.Context, t *model.Trade) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO history (
  local_id, created_at_ms, symbol, mode, status,
  spot_status, futures_status, settlement,
  spot_order_id, futures_order_id, raw_json
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT(local_id) DO UPDATE SET
  status = EXCLUDED.status,
  spot_status = EXCLUDED.spot_status,
  futures_status = EXCLUDED.futures_status,
  settlement = EXCLUDED.settlement,
  spot_order_id = EXCLUDED.spot_order_id,
  futures_order_id = EXCLUDED.futures_order_id,
  raw_json = EXCLUDED.raw_json
`, t.LocalID, t.CreatedAt.UnixMilli(), t.Symbol, string(t.Mode), string(t.Status),
		string(t.SpotStatus), string(t.FuturesStatus), string(t.Settlement),
		t.SpotOrderID, t.FuturesOrderID, string(raw))
	return err
}

func (r *Repo) LoadTrades(ctx context.Context) ([]*model.Trade, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT raw_json FROM history ORDER BY created_at_ms DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Trade
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var t model.Trade
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			continue
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

var _ port.Repository = (*Repo)(nil)
