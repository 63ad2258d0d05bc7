package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"strategylab/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ ResultStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS backtest_results (
	id                   TEXT PRIMARY KEY,
	user_id              TEXT NOT NULL,
	strategy_name        TEXT NOT NULL,
	strategy             TEXT NOT NULL,
	symbol               TEXT NOT NULL,
	timeframe            TEXT NOT NULL,
	total_return_percent REAL NOT NULL,
	sharpe_ratio         REAL NOT NULL,
	max_drawdown_percent REAL NOT NULL,
	total_trades         INTEGER NOT NULL,
	created_at           INTEGER NOT NULL,
	payload              TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_backtest_results_user ON backtest_results (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_backtest_results_symbol ON backtest_results (symbol, created_at DESC);
`

// SQLiteStore implements ResultStore backed by a SQLite database. Each result
// row carries indexed summary columns and the full result as a JSON payload.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies the
// schema and returns a ready-to-use SQLiteStore. ":memory:" opens a private
// in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection also keeps :memory:
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveResult inserts r. An existing row with the same ID is left untouched.
func (s *SQLiteStore) SaveResult(ctx context.Context, r *domain.BacktestResult) error {
	if r == nil || r.ID == "" {
		return errors.New("saving result: missing id")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding result %s: %w", r.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backtest_results (
			id, user_id, strategy_name, strategy, symbol, timeframe,
			total_return_percent, sharpe_ratio, max_drawdown_percent, total_trades,
			created_at, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		r.ID, r.UserID, r.StrategyName, string(r.StrategyType), r.Symbol, r.Timeframe,
		r.TotalReturnPercent, r.SharpeRatio, r.MaxDrawdownPercent, r.TotalTrades,
		r.CreatedAt.UnixMilli(), string(payload),
	)
	if err != nil {
		return fmt.Errorf("inserting result %s: %w", r.ID, err)
	}
	return nil
}

// GetResult returns the stored result for id.
func (s *SQLiteStore) GetResult(ctx context.Context, id string) (*domain.BacktestResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM backtest_results WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("result %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying result %s: %w", id, err)
	}
	var r domain.BacktestResult
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("decoding result %s: %w", id, err)
	}
	return &r, nil
}

// ListResults returns summaries matching f, newest first.
func (s *SQLiteStore) ListResults(ctx context.Context, f ResultFilter) ([]domain.ResultSummary, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Symbol != "" {
		where = append(where, "symbol = ?")
		args = append(args, strings.ToUpper(f.Symbol))
	}
	if f.Strategy != "" {
		where = append(where, "strategy = ?")
		args = append(args, string(f.Strategy))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	q := `SELECT id, user_id, strategy_name, strategy, symbol, timeframe,
		total_return_percent, sharpe_ratio, max_drawdown_percent, total_trades, created_at
		FROM backtest_results`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()

	out := []domain.ResultSummary{}
	for rows.Next() {
		var (
			sum      domain.ResultSummary
			strategy string
			created  int64
		)
		if err := rows.Scan(
			&sum.ID, &sum.UserID, &sum.StrategyName, &strategy, &sum.Symbol, &sum.Timeframe,
			&sum.TotalReturnPercent, &sum.SharpeRatio, &sum.MaxDrawdownPercent, &sum.TotalTrades, &created,
		); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		sum.StrategyType = domain.StrategyType(strategy)
		sum.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}
