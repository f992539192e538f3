package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"meme-market/src/helpers"
	"meme-market/src/interfaces"
	"meme-market/src/logger"
	"meme-market/src/models"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// dialect captures the few differences between SQLite and PostgreSQL.
// -----------------------------------------------------------------------------

type dialect struct {
	name       string
	numbered   bool   // $1, $2 placeholders instead of ?
	forUpdate  string // row lock suffix for SELECT inside a trade
	isConflict func(err error) bool
}

// bind rewrites ? placeholders for dialects that number them.
func (d dialect) bind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// -----------------------------------------------------------------------------
// sqlStore implements interfaces.IStore on top of database/sql.
// -----------------------------------------------------------------------------

type sqlStore struct {
	DB      *sql.DB
	Logger  *logger.Logger
	dialect dialect
}

var _ interfaces.IStore = (*SQLiteDB)(nil)
var _ interfaces.IStore = (*PostgresDB)(nil)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const (
	userColumns        = "external_id, name, money, api_key, created_at"
	stockColumns       = "id, name, price, trend, last_trade_at"
	transactionColumns = "id, user_id, user_name, stock_id, stock_name, side, price, new_price, traded_at"
)

// -----------------------------------------------------------------------------
// Identity store
// -----------------------------------------------------------------------------

func (s *sqlStore) UserByExternalID(ctx context.Context, externalID string) (*models.MUser, error) {
	return s.userWhere(ctx, s.DB, "external_id = ?", externalID, "")
}

func (s *sqlStore) UserByAPIKey(ctx context.Context, apiKey string) (*models.MUser, error) {
	if apiKey == "" {
		return nil, helpers.ErrUserNotFound
	}
	return s.userWhere(ctx, s.DB, "api_key = ?", apiKey, "")
}

func (s *sqlStore) UserByName(ctx context.Context, name string) (*models.MUser, error) {
	return s.userWhere(ctx, s.DB, "name = ? ORDER BY created_at", name, "")
}

// -----------------------------------------------------------------------------

func (s *sqlStore) userWhere(ctx context.Context, q querier, where string, arg interface{}, lock string) (*models.MUser, error) {
	query := s.dialect.bind(fmt.Sprintf("SELECT %s FROM users WHERE %s LIMIT 1%s", userColumns, where, lock))

	var u models.MUser
	var created int64
	err := q.QueryRowContext(ctx, query, arg).Scan(&u.ExternalID, &u.Name, &u.Money, &u.APIKey, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helpers.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = time.Unix(0, created).UTC()

	holdings, err := s.holdings(ctx, q, u.ExternalID)
	if err != nil {
		return nil, err
	}
	u.Holdings = holdings
	return &u, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) holdings(ctx context.Context, q querier, userID string) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, s.dialect.bind("SELECT stock_id, shares FROM holdings WHERE user_id = ?"), userID)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make(map[string]int)
	for rows.Next() {
		var stockID string
		var count int
		if err := rows.Scan(&stockID, &count); err != nil {
			return nil, err
		}
		holdings[stockID] = count
	}
	return holdings, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) CreateUser(ctx context.Context, user *models.MUser) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := s.dialect.bind(fmt.Sprintf("INSERT INTO users (%s) VALUES (?, ?, ?, ?, ?)", userColumns))
	_, err := s.DB.ExecContext(ctx, query, user.ExternalID, user.Name, user.Money, user.APIKey, user.CreatedAt.UnixNano())
	if err != nil {
		if s.dialect.isConflict(err) {
			return helpers.WrapError(helpers.KindConflict, fmt.Errorf("%w: %w", helpers.ErrConflict, err), "user %q", user.ExternalID)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if user.Holdings == nil {
		user.Holdings = make(map[string]int)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// -----------------------------------------------------------------------------
// Market store
// -----------------------------------------------------------------------------

func (s *sqlStore) StockByName(ctx context.Context, name string) (*models.MStock, error) {
	return s.stockWhere(ctx, s.DB, "name = ?", name, "")
}

func (s *sqlStore) StockByID(ctx context.Context, id string) (*models.MStock, error) {
	return s.stockWhere(ctx, s.DB, "id = ?", id, "")
}

// -----------------------------------------------------------------------------

func (s *sqlStore) stockWhere(ctx context.Context, q querier, where string, arg interface{}, lock string) (*models.MStock, error) {
	query := s.dialect.bind(fmt.Sprintf("SELECT %s FROM stocks WHERE %s%s", stockColumns, where, lock))

	stock, err := scanStock(q.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helpers.ErrStockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	return stock, nil
}

// -----------------------------------------------------------------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStock(row rowScanner) (*models.MStock, error) {
	var st models.MStock
	var trend string
	var lastTrade int64
	if err := row.Scan(&st.ID, &st.Name, &st.Price, &trend, &lastTrade); err != nil {
		return nil, err
	}
	st.Trend = models.MTrend(trend)
	if lastTrade > 0 {
		st.LastTradeAt = time.Unix(0, lastTrade).UTC()
	}
	return &st, nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) ListStocks(ctx context.Context) ([]models.MStock, error) {
	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM stocks ORDER BY price DESC, name ASC", stockColumns))
	if err != nil {
		return nil, fmt.Errorf("list stocks: %w", err)
	}
	defer rows.Close()

	stocks := []models.MStock{}
	for rows.Next() {
		st, err := scanStock(rows)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, *st)
	}
	return stocks, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) History(ctx context.Context, stockID string) ([]models.MHistoryEntry, error) {
	rows, err := s.DB.QueryContext(ctx, s.dialect.bind("SELECT traded_at, price FROM stock_history WHERE stock_id = ? ORDER BY id"), stockID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	history := []models.MHistoryEntry{}
	for rows.Next() {
		var ts int64
		var h models.MHistoryEntry
		if err := rows.Scan(&ts, &h.Price); err != nil {
			return nil, err
		}
		h.Time = time.Unix(0, ts).UTC()
		history = append(history, h)
	}
	return history, rows.Err()
}

// -----------------------------------------------------------------------------

func (s *sqlStore) RecentTransactions(ctx context.Context, limit int) ([]models.MTransaction, error) {
	query := s.dialect.bind(fmt.Sprintf("SELECT %s FROM transactions ORDER BY id DESC LIMIT ?", transactionColumns))
	rows, err := s.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var newestFirst []models.MTransaction
	for rows.Next() {
		var t models.MTransaction
		var side string
		var ts int64
		if err := rows.Scan(&t.ID, &t.UserID, &t.UserName, &t.StockID, &t.StockName, &side, &t.Price, &t.NewPrice, &ts); err != nil {
			return nil, err
		}
		t.Side = models.MTradeSide(side)
		t.Time = time.Unix(0, ts).UTC()
		newestFirst = append(newestFirst, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]models.MTransaction, len(newestFirst))
	for i, t := range newestFirst {
		result[len(newestFirst)-1-i] = t
	}
	return result, nil
}

// -----------------------------------------------------------------------------
// Transactions
// -----------------------------------------------------------------------------

func (s *sqlStore) RunInTx(ctx context.Context, fn func(tx interfaces.ITx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{ctx: ctx, tx: tx, store: s}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *sqlStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// sqlTx implements interfaces.ITx
// -----------------------------------------------------------------------------

type sqlTx struct {
	ctx   context.Context
	tx    *sql.Tx
	store *sqlStore
}

func (t *sqlTx) UserForUpdate(externalID string) (*models.MUser, error) {
	return t.store.userWhere(t.ctx, t.tx, "external_id = ?", externalID, t.store.dialect.forUpdate)
}

func (t *sqlTx) StockForUpdate(name string) (*models.MStock, error) {
	return t.store.stockWhere(t.ctx, t.tx, "name = ?", name, t.store.dialect.forUpdate)
}

// -----------------------------------------------------------------------------

func (t *sqlTx) CreateStock(name string) (*models.MStock, error) {
	query := t.store.dialect.bind(fmt.Sprintf(
		"INSERT INTO stocks (%s) VALUES (?, ?, 0, ?, 0) ON CONFLICT (name) DO NOTHING", stockColumns))
	if _, err := t.tx.ExecContext(t.ctx, query, uuid.NewString(), name, string(models.TrendUnknown)); err != nil {
		return nil, fmt.Errorf("insert stock: %w", err)
	}
	return t.StockForUpdate(name)
}

// -----------------------------------------------------------------------------

func (t *sqlTx) UpdateMoney(externalID string, money float64) error {
	return t.execOne("UPDATE users SET money = ? WHERE external_id = ?", money, externalID)
}

func (t *sqlTx) SetHolding(externalID, stockID string, count int) error {
	if count < 0 {
		return helpers.NewError(helpers.KindInternalConsistency, "negative holding %d for %s/%s", count, externalID, stockID)
	}
	query := t.store.dialect.bind(`
		INSERT INTO holdings (user_id, stock_id, shares) VALUES (?, ?, ?)
		ON CONFLICT (user_id, stock_id) DO UPDATE SET shares = excluded.shares
	`)
	if _, err := t.tx.ExecContext(t.ctx, query, externalID, stockID, count); err != nil {
		return fmt.Errorf("upsert holding: %w", err)
	}
	return nil
}

func (t *sqlTx) UpdateStock(stock *models.MStock) error {
	return t.execOne("UPDATE stocks SET price = ?, trend = ?, last_trade_at = ? WHERE id = ?",
		stock.Price, string(stock.Trend), unixNanos(stock.LastTradeAt), stock.ID)
}

func (t *sqlTx) AppendHistory(stockID string, entry models.MHistoryEntry) error {
	query := t.store.dialect.bind("INSERT INTO stock_history (stock_id, traded_at, price) VALUES (?, ?, ?)")
	if _, err := t.tx.ExecContext(t.ctx, query, stockID, entry.Time.UnixNano(), entry.Price); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (t *sqlTx) AppendTransaction(txn *models.MTransaction) error {
	query := t.store.dialect.bind(`
		INSERT INTO transactions (user_id, user_name, stock_id, stock_name, side, price, new_price, traded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id
	`)
	err := t.tx.QueryRowContext(t.ctx, query,
		txn.UserID, txn.UserName, txn.StockID, txn.StockName, string(txn.Side), txn.Price, txn.NewPrice, txn.Time.UnixNano(),
	).Scan(&txn.ID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// unixNanos maps the zero time to 0 instead of an out-of-range value.
func unixNanos(ts time.Time) int64 {
	if ts.IsZero() {
		return 0
	}
	return ts.UnixNano()
}

// -----------------------------------------------------------------------------

func (t *sqlTx) execOne(query string, args ...interface{}) error {
	res, err := t.tx.ExecContext(t.ctx, t.store.dialect.bind(query), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return helpers.NewError(helpers.KindInternalConsistency, "expected 1 row affected, got %d", n)
	}
	return nil
}
