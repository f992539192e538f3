package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"meme-market/src/helpers"
	"meme-market/src/interfaces"
	"meme-market/src/logger"
	"meme-market/src/models"
)

func newTestStore(t *testing.T) *SQLiteDB {
	t.Helper()
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBType: "sqlite", DBPath: ":memory:"}}
	db, err := NewSQLiteDB(cfg, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	if err := db.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *SQLiteDB, id, key string) *models.MUser {
	t.Helper()
	u := &models.MUser{ExternalID: id, Name: "user-" + id, Money: 10, APIKey: key}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestSQLite_UserLookups(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	createUser(t, db, "fb-1", "KeyOne")

	u, err := db.UserByExternalID(ctx, "fb-1")
	if err != nil {
		t.Fatalf("UserByExternalID: %v", err)
	}
	if u.Money != 10 || u.APIKey != "KeyOne" || len(u.Holdings) != 0 {
		t.Errorf("unexpected user: %+v", u)
	}

	if _, err := db.UserByAPIKey(ctx, "KeyOne"); err != nil {
		t.Errorf("UserByAPIKey exact: %v", err)
	}
	if _, err := db.UserByAPIKey(ctx, "keyone"); !errors.Is(err, helpers.ErrUserNotFound) {
		t.Errorf("api key match must be case-sensitive, got %v", err)
	}
	if _, err := db.UserByAPIKey(ctx, ""); !errors.Is(err, helpers.ErrUserNotFound) {
		t.Errorf("empty api key must not match, got %v", err)
	}
	if _, err := db.UserByExternalID(ctx, "nobody"); !errors.Is(err, helpers.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := db.UserByName(ctx, "user-fb-1"); err != nil {
		t.Errorf("UserByName: %v", err)
	}
}

func TestSQLite_CreateUserConflict(t *testing.T) {
	db := newTestStore(t)
	createUser(t, db, "fb-1", "k1")

	err := db.CreateUser(context.Background(), &models.MUser{ExternalID: "fb-1", Name: "dup", Money: 1, APIKey: "k2"})
	if helpers.KindOf(err) != helpers.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !errors.Is(err, helpers.ErrConflict) || errors.Is(err, helpers.ErrUserNotFound) {
		t.Errorf("conflict must match ErrConflict only: %v", err)
	}

	n, err := db.CountUsers(context.Background())
	if err != nil || n != 1 {
		t.Errorf("CountUsers = %d, %v; want 1", n, err)
	}
}

func TestSQLite_TradeTransaction(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	createUser(t, db, "fb-1", "k1")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err := db.RunInTx(ctx, func(tx interfaces.ITx) error {
		st, err := tx.CreateStock("doge")
		if err != nil {
			return err
		}
		if st.Price != 0 || st.Trend != models.TrendUnknown {
			t.Errorf("new stock should start at 0/unknown: %+v", st)
		}
		if err := tx.SetHolding("fb-1", st.ID, 1); err != nil {
			return err
		}
		if err := tx.UpdateMoney("fb-1", 10); err != nil {
			return err
		}
		st.Price = 1
		st.Trend = models.TrendUp
		st.LastTradeAt = now
		if err := tx.UpdateStock(st); err != nil {
			return err
		}
		if err := tx.AppendHistory(st.ID, models.MHistoryEntry{Price: 1, Time: now}); err != nil {
			return err
		}
		txn := &models.MTransaction{UserID: "fb-1", UserName: "u", StockID: st.ID, StockName: "doge", Side: models.SideBuy, NewPrice: 1, Time: now}
		if err := tx.AppendTransaction(txn); err != nil {
			return err
		}
		if txn.ID == 0 {
			t.Error("transaction id not assigned")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}

	st, err := db.StockByName(ctx, "doge")
	if err != nil {
		t.Fatalf("StockByName: %v", err)
	}
	if st.Price != 1 || st.Trend != models.TrendUp || !st.LastTradeAt.Equal(now) {
		t.Errorf("stock not updated: %+v", st)
	}

	u, _ := db.UserByExternalID(ctx, "fb-1")
	if u.Holding(st.ID) != 1 {
		t.Errorf("holding = %d, want 1", u.Holding(st.ID))
	}

	hist, err := db.History(ctx, st.ID)
	if err != nil || len(hist) != 1 || hist[0].Price != 1 || !hist[0].Time.Equal(now) {
		t.Errorf("History = %+v, %v", hist, err)
	}

	recent, err := db.RecentTransactions(ctx, 10)
	if err != nil || len(recent) != 1 || recent[0].StockName != "doge" || recent[0].Side != models.SideBuy {
		t.Errorf("RecentTransactions = %+v, %v", recent, err)
	}
}

func TestSQLite_RollbackOnError(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.RunInTx(ctx, func(tx interfaces.ITx) error {
		if _, err := tx.CreateStock("doge"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := db.StockByName(ctx, "doge"); !errors.Is(err, helpers.ErrStockNotFound) {
		t.Errorf("stock must not survive rollback, got %v", err)
	}
}

func TestSQLite_NegativeHoldingRejected(t *testing.T) {
	db := newTestStore(t)
	createUser(t, db, "fb-1", "k1")

	err := db.RunInTx(context.Background(), func(tx interfaces.ITx) error {
		st, err := tx.CreateStock("doge")
		if err != nil {
			return err
		}
		return tx.SetHolding("fb-1", st.ID, -1)
	})
	if helpers.KindOf(err) != helpers.KindInternalConsistency {
		t.Errorf("expected internal consistency error, got %v", err)
	}
}

func TestSQLite_CreateStockIsIdempotent(t *testing.T) {
	db := newTestStore(t)
	var first, second string

	for _, dst := range []*string{&first, &second} {
		err := db.RunInTx(context.Background(), func(tx interfaces.ITx) error {
			st, err := tx.CreateStock("pepe")
			if err != nil {
				return err
			}
			*dst = st.ID
			return nil
		})
		if err != nil {
			t.Fatalf("RunInTx: %v", err)
		}
	}
	if first == "" || first != second {
		t.Errorf("expected same stock id, got %q and %q", first, second)
	}
}

func TestSQLite_ListStocksOrderedByPrice(t *testing.T) {
	db := newTestStore(t)
	prices := map[string]float64{"low": -2, "mid": 3, "high": 7, "zero": 0}

	err := db.RunInTx(context.Background(), func(tx interfaces.ITx) error {
		for name, price := range prices {
			st, err := tx.CreateStock(name)
			if err != nil {
				return err
			}
			st.Price = price
			if err := tx.UpdateStock(st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}

	stocks, err := db.ListStocks(context.Background())
	if err != nil {
		t.Fatalf("ListStocks: %v", err)
	}
	want := []string{"high", "mid", "zero", "low"}
	if len(stocks) != len(want) {
		t.Fatalf("got %d stocks, want %d", len(stocks), len(want))
	}
	for i, name := range want {
		if stocks[i].Name != name {
			t.Errorf("position %d: got %s, want %s", i, stocks[i].Name, name)
		}
	}
}

func TestSQLite_RecentTransactionsLimit(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()

	err := db.RunInTx(ctx, func(tx interfaces.ITx) error {
		for i := 1; i <= 5; i++ {
			txn := &models.MTransaction{UserID: "u", StockName: "doge", Side: models.SideBuy, NewPrice: float64(i), Time: time.Now()}
			if err := tx.AppendTransaction(txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RunInTx: %v", err)
	}

	recent, err := db.RecentTransactions(ctx, 3)
	if err != nil {
		t.Fatalf("RecentTransactions: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("got %d, want 3", len(recent))
	}
	for i, want := range []float64{3, 4, 5} {
		if recent[i].NewPrice != want {
			t.Errorf("position %d: new price %v, want %v (oldest first)", i, recent[i].NewPrice, want)
		}
	}
}

func TestDialectBind(t *testing.T) {
	pg := dialect{numbered: true}
	got := pg.bind("SELECT * FROM users WHERE a = ? AND b = ?")
	if got != "SELECT * FROM users WHERE a = $1 AND b = $2" {
		t.Errorf("bind = %q", got)
	}
	lite := dialect{}
	if lite.bind("a = ?") != "a = ?" {
		t.Error("sqlite dialect must keep ? placeholders")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	_, err := NewStore(&models.MConfig{Storage: models.MStorageConfig{DBType: "mongo"}}, logger.NewNopLogger())
	if err == nil {
		t.Fatal("expected error for unknown db type")
	}
}
