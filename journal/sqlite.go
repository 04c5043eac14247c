package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, side, quantity, entry_price, exit_price, open_time, close_time, pnl, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, t.Side, t.Quantity, t.EntryPrice,
		t.ExitPrice, t.OpenTime, t.CloseTime, t.PnL, t.Outcome,
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (time, balance, peak, drawdown)
		VALUES (?, ?, ?, ?)`,
		e.Time, e.Balance, e.Peak, e.Drawdown,
	)
	return err
}

// ListTrades returns the persisted trades for a symbol, oldest first.
// An empty symbol returns everything.
func (j *SQLiteJournal) ListTrades(symbol string) ([]TradeRecord, error) {
	query := `
		SELECT trade_id, symbol, side, quantity, entry_price, exit_price,
		       open_time, close_time, pnl, outcome
		FROM trades`
	args := []any{}
	if symbol != "" {
		query += " WHERE symbol = ?"
		args = append(args, symbol)
	}
	query += " ORDER BY close_time"

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.TradeID, &t.Symbol, &t.Side, &t.Quantity,
			&t.EntryPrice, &t.ExitPrice, &t.OpenTime, &t.CloseTime,
			&t.PnL, &t.Outcome); err != nil {
			return nil, err
		}
		t.OpenTime = t.OpenTime.UTC()
		t.CloseTime = t.CloseTime.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// EquityCurve returns the persisted equity snapshots in time order.
func (j *SQLiteJournal) EquityCurve() ([]EquitySnapshot, error) {
	rows, err := j.db.Query(`SELECT time, balance, peak, drawdown FROM equity ORDER BY time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		var ts time.Time
		if err := rows.Scan(&ts, &e.Balance, &e.Peak, &e.Drawdown); err != nil {
			return nil, err
		}
		e.Time = ts.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
