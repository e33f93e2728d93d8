package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"duoleg/internal/application/port"
	"duoleg/internal/domain/model"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

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
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS history (
  local_id TEXT PRIMARY KEY,
  created_at_ms INTEGER NOT NULL,
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
CREATE INDEX IF NOT EXISTS idx_history_symbol ON history(symbol);
`)
	return err
}

func (r *Repo) UpsertOverride(ctx context.Context, symbol string, override map[string]any) error {
	raw, err := json.Marshal(override)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO overrides(symbol, override_json, updated_at) VALUES(?, ?, ?)
ON CONFLICT(symbol) DO UPDATE SET
  override_json = excluded.override_json,
  updated_at = excluded.updated_at
`, symbol, string(raw), time.Now().UTC().Format(time.RFC3339))
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

// SaveTrade upserts by local id. The full record rides in raw_json; the
// indexed columns exist for ad-hoc queries only.
func (r *Repo) SaveTrade(ctx context.Context, t *model.Trade) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT OR REPLACE INTO history (
  local_id, created_at_ms, symbol, mode, status,
  spot_status, futures_status, settlement,
  spot_order_id, futures_order_id, raw_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
