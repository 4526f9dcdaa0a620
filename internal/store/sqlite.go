package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"backlab/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ TradeStore = (*SQLiteStore)(nil)
var _ SignalStore = (*SQLiteStore)(nil)
var _ PositionStore = (*SQLiteStore)(nil)

// SQLiteStore implements TradeStore, SignalStore, and PositionStore backed
// by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol         TEXT NOT NULL,
	strategy       TEXT NOT NULL,
	entry_time     TEXT NOT NULL,
	exit_time      TEXT NOT NULL,
	entry_price    REAL NOT NULL,
	exit_price     REAL NOT NULL,
	quantity       INTEGER NOT NULL,
	profit         REAL NOT NULL,
	profit_percent REAL NOT NULL,
	created_at     TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS signals (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol      TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	signal_type TEXT NOT NULL,
	price       REAL NOT NULL,
	timestamp   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol      TEXT NOT NULL UNIQUE,
	strategy    TEXT NOT NULL,
	entry_price REAL NOT NULL,
	quantity    INTEGER NOT NULL,
	entry_time  TEXT NOT NULL,
	cost        REAL NOT NULL,
	stop_loss   REAL NOT NULL DEFAULT 0,
	target      REAL NOT NULL DEFAULT 0
);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// TradeStore implementation
// ---------------------------------------------------------------------------

// SaveTrade inserts a closed trade.
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *domain.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (symbol, strategy, entry_time, exit_time, entry_price, exit_price, quantity, profit, profit_percent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trade.Symbol,
		trade.Strategy,
		trade.EntryTime.UTC().Format(time.RFC3339),
		trade.ExitTime.UTC().Format(time.RFC3339),
		trade.EntryPrice,
		trade.ExitPrice,
		trade.Quantity,
		trade.Profit,
		trade.ProfitPercent,
	)
	return err
}

// ListTrades returns the most recent trades, newest first. An empty
// strategy matches all strategies; limit <= 0 means no limit.
func (s *SQLiteStore) ListTrades(ctx context.Context, strategy string, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT means unlimited.
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, strategy, entry_time, exit_time, entry_price, exit_price, quantity, profit, profit_percent
		FROM trades
		WHERE (? = '' OR strategy = ?)
		ORDER BY id DESC
		LIMIT ?`,
		strategy, strategy, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var tr domain.Trade
		var entry, exit string
		if err := rows.Scan(&tr.Symbol, &tr.Strategy, &entry, &exit, &tr.EntryPrice, &tr.ExitPrice, &tr.Quantity, &tr.Profit, &tr.ProfitPercent); err != nil {
			return nil, err
		}
		if tr.EntryTime, err = time.Parse(time.RFC3339, entry); err != nil {
			return nil, fmt.Errorf("parsing entry_time %q: %w", entry, err)
		}
		if tr.ExitTime, err = time.Parse(time.RFC3339, exit); err != nil {
			return nil, fmt.Errorf("parsing exit_time %q: %w", exit, err)
		}
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}

// ---------------------------------------------------------------------------
// SignalStore implementation
// ---------------------------------------------------------------------------

// SaveSignal inserts a signal event.
func (s *SQLiteStore) SaveSignal(ctx context.Context, ev *domain.SignalEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (symbol, strategy, signal_type, price, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		ev.Symbol,
		ev.Strategy,
		string(ev.Signal),
		ev.Price,
		ev.Timestamp.UTC().Format(time.RFC3339),
	)
	return err
}

// ListSignals returns the most recent signals, newest first. An empty
// strategy matches all strategies; limit <= 0 means no limit.
func (s *SQLiteStore) ListSignals(ctx context.Context, strategy string, limit int) ([]domain.SignalEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, strategy, signal_type, price, timestamp
		FROM signals
		WHERE (? = '' OR strategy = ?)
		ORDER BY id DESC
		LIMIT ?`,
		strategy, strategy, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.SignalEvent
	for rows.Next() {
		var ev domain.SignalEvent
		var sig, ts string
		if err := rows.Scan(&ev.Symbol, &ev.Strategy, &sig, &ev.Price, &ts); err != nil {
			return nil, err
		}
		ev.Signal = domain.Signal(sig)
		if ev.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("parsing timestamp %q: %w", ts, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// ---------------------------------------------------------------------------
// PositionStore implementation
// ---------------------------------------------------------------------------

// SavePosition inserts or replaces the position for a symbol.
func (s *SQLiteStore) SavePosition(ctx context.Context, pos *domain.Position) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO positions (symbol, strategy, entry_price, quantity, entry_time, cost, stop_loss, target)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pos.Symbol,
		pos.Strategy,
		pos.EntryPrice,
		pos.Quantity,
		pos.EntryTime.UTC().Format(time.RFC3339),
		pos.Cost,
		pos.StopLoss,
		pos.Target,
	)
	return err
}

// GetPosition retrieves the open position for a symbol. It returns
// (nil, nil) when no position exists.
func (s *SQLiteStore) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, strategy, entry_price, quantity, entry_time, cost, stop_loss, target
		FROM positions WHERE symbol = ?`,
		symbol,
	)
	pos, err := scanPosition(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return pos, nil
}

// ListPositions returns all open positions.
func (s *SQLiteStore) ListPositions(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, strategy, entry_price, quantity, entry_time, cost, stop_loss, target
		FROM positions ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows.Scan)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *pos)
	}
	return positions, rows.Err()
}

// DeletePosition removes the position for a symbol.
func (s *SQLiteStore) DeletePosition(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM positions WHERE symbol = ?`, symbol)
	return err
}

func scanPosition(scan func(dest ...any) error) (*domain.Position, error) {
	var pos domain.Position
	var entry string
	if err := scan(&pos.Symbol, &pos.Strategy, &pos.EntryPrice, &pos.Quantity, &entry, &pos.Cost, &pos.StopLoss, &pos.Target); err != nil {
		return nil, err
	}
	var err error
	if pos.EntryTime, err = time.Parse(time.RFC3339, entry); err != nil {
		return nil, fmt.Errorf("parsing entry_time %q: %w", entry, err)
	}
	return &pos, nil
}
