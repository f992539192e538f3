package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"meme-market/src/helpers"
	"meme-market/src/logger"
	"meme-market/src/models"
	"meme-market/src/storage"
	"meme-market/src/utils"
)

type recordingPublisher struct {
	mu   sync.Mutex
	txns []models.MTransaction
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, txn models.MTransaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txns = append(p.txns, txn)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

// -----------------------------------------------------------------------------

func newTestLedger(t *testing.T) (*Ledger, *storage.SQLiteDB, *recordingPublisher) {
	t.Helper()
	cfg := &models.MConfig{Storage: models.MStorageConfig{DBType: "sqlite", DBPath: ":memory:"}}
	db, err := storage.NewSQLiteDB(cfg, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	if err := db.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	pub := &recordingPublisher{}
	l := NewLedger(db, pub, nil, 10, logger.NewNopLogger())

	clock := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	l.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return l, db, pub
}

func addUser(t *testing.T, db *storage.SQLiteDB, id string, money float64) {
	t.Helper()
	u := &models.MUser{ExternalID: id, Name: "user-" + id, Money: money, APIKey: "key-" + id}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
}

func summary(t *testing.T, l *Ledger, id string) *models.MUserSummary {
	t.Helper()
	u, err := l.Store.UserByExternalID(context.Background(), id)
	if err != nil {
		t.Fatalf("UserByExternalID: %v", err)
	}
	s, err := l.Summary(context.Background(), u)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	return s
}

// -----------------------------------------------------------------------------

func TestLedger_SummaryDanglingHolding(t *testing.T) {
	l, _, _ := newTestLedger(t)
	user := &models.MUser{ExternalID: "x", Holdings: map[string]int{"missing-id": 1}}

	_, err := l.Summary(context.Background(), user)
	if helpers.KindOf(err) != helpers.KindInternalConsistency {
		t.Fatalf("Summary = %v, want internal consistency error", err)
	}
	if !errors.Is(err, helpers.ErrStockNotFound) || helpers.IsBusinessError(err) {
		t.Errorf("unexpected classification: %v", err)
	}
}

// -----------------------------------------------------------------------------

func TestLedger_BuySellScenario(t *testing.T) {
	l, db, pub := newTestLedger(t)
	ctx := context.Background()
	addUser(t, db, "a", 100)

	// first buy creates the stock at price 0
	txn, err := l.Buy(ctx, "a", "doge")
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if txn.Price != 0 || txn.NewPrice != 1 || txn.Side != models.SideBuy {
		t.Errorf("unexpected transaction: %+v", txn)
	}

	if _, err := l.Buy(ctx, "a", "doge"); err != nil {
		t.Fatalf("second Buy: %v", err)
	}

	s := summary(t, l, "a")
	if s.Money != 99 || s.Stocks["doge"] != 2 {
		t.Errorf("after two buys: %+v", s)
	}

	view, err := l.Stock(ctx, "doge")
	if err != nil {
		t.Fatalf("Stock: %v", err)
	}
	if view.Price != 2 || view.Trend != models.TrendUp {
		t.Errorf("unexpected stock view: %+v", view)
	}

	txn, err = l.Sell(ctx, "a", "doge")
	if err != nil {
		t.Fatalf("Sell: %v", err)
	}
	if txn.Price != 2 || txn.NewPrice != 1 {
		t.Errorf("unexpected sell: %+v", txn)
	}

	s = summary(t, l, "a")
	if s.Money != 101 || s.Stocks["doge"] != 1 {
		t.Errorf("after sell: %+v", s)
	}
	view, _ = l.Stock(ctx, "doge")
	if view.Trend != models.TrendDown {
		t.Errorf("trend after sell = %s", view.Trend)
	}

	history, err := l.History(ctx, "doge")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	want := []float64{1, 2, 1}
	if len(history) != len(want) {
		t.Fatalf("history len = %d, want %d", len(history), len(want))
	}
	for i, h := range history {
		if h.Price != want[i] {
			t.Errorf("history[%d].Price = %v, want %v", i, h.Price, want[i])
		}
		if i > 0 && h.Time.Before(history[i-1].Time) {
			t.Errorf("history[%d] goes back in time", i)
		}
	}

	if got := len(l.Recent()); got != 3 {
		t.Errorf("recent feed = %d, want 3", got)
	}
	if len(pub.txns) != 3 {
		t.Errorf("published %d trades, want 3", len(pub.txns))
	}
}

// -----------------------------------------------------------------------------

func TestLedger_Failures(t *testing.T) {
	l, db, pub := newTestLedger(t)
	ctx := context.Background()
	addUser(t, db, "rich", 100)
	addUser(t, db, "poor", 1)

	for i := 0; i < 3; i++ {
		if _, err := l.Buy(ctx, "rich", "pepe"); err != nil {
			t.Fatalf("Buy: %v", err)
		}
	}
	published := len(pub.txns)

	tests := []struct {
		name    string
		run     func() error
		want    error
		notWant error
	}{
		{"buy at price equal or above cash", func() error { _, err := l.Buy(ctx, "poor", "pepe"); return err }, helpers.ErrInsufficientFunds, nil},
		{"sell without holdings", func() error { _, err := l.Sell(ctx, "poor", "pepe"); return err }, helpers.ErrInsufficientHoldings, nil},
		{"sell unknown stock", func() error { _, err := l.Sell(ctx, "rich", "nope"); return err }, helpers.ErrStockNotFound, helpers.ErrUserNotFound},
		{"empty stock name", func() error { _, err := l.Buy(ctx, "rich", ""); return err }, helpers.ErrInvalidStock, nil},
		{"unknown user", func() error { _, err := l.Buy(ctx, "ghost", "pepe"); return err }, helpers.ErrUserNotFound, helpers.ErrStockNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
			if tt.notWant != nil && errors.Is(err, tt.notWant) {
				t.Errorf("%v must not match %v", err, tt.notWant)
			}
		})
	}

	// no failed trade leaves a trace
	if s := summary(t, l, "poor"); s.Money != 1 || len(s.Stocks) != 0 {
		t.Errorf("poor user changed: %+v", s)
	}
	if view, _ := l.Stock(ctx, "pepe"); view.Price != 3 {
		t.Errorf("pepe price = %v, want 3", view.Price)
	}
	if _, err := l.Stock(ctx, "nope"); !errors.Is(err, helpers.ErrStockNotFound) {
		t.Errorf("failed sell must not create the stock: %v", err)
	}
	if len(pub.txns) != published || len(l.Recent()) != published {
		t.Errorf("failed trades must not be published")
	}
}

// -----------------------------------------------------------------------------

func TestLedger_PriceTracksOutstandingShares(t *testing.T) {
	l, db, _ := newTestLedger(t)
	ctx := context.Background()
	addUser(t, db, "a", 50)
	addUser(t, db, "b", 50)

	steps := []struct {
		user string
		side models.MTradeSide
	}{
		{"a", models.SideBuy}, {"b", models.SideBuy}, {"b", models.SideBuy},
		{"a", models.SideSell}, {"b", models.SideSell}, {"a", models.SideBuy},
		{"b", models.SideSell}, {"a", models.SideSell},
	}

	outstanding := 0
	for i, step := range steps {
		var err error
		if step.side == models.SideBuy {
			_, err = l.Buy(ctx, step.user, "shib")
			outstanding++
		} else {
			_, err = l.Sell(ctx, step.user, "shib")
			outstanding--
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		view, _ := l.Stock(ctx, "shib")
		if view.Price != float64(outstanding) {
			t.Fatalf("step %d: price = %v, want %d", i, view.Price, outstanding)
		}
	}

	// total cash is conserved up to what the market absorbed
	sa, sb := summary(t, l, "a"), summary(t, l, "b")
	if sa.Money+sb.Money < 100 {
		t.Errorf("round trips must not lose cash: %v + %v", sa.Money, sb.Money)
	}
	if sa.Stocks["shib"] != 0 || sb.Stocks["shib"] != 0 {
		t.Errorf("holdings not closed: %+v %+v", sa, sb)
	}
}

// -----------------------------------------------------------------------------

func TestLedger_MarketClosed(t *testing.T) {
	l, db, _ := newTestLedger(t)
	addUser(t, db, "a", 10)

	hours, err := utils.NewMarketHours("xnys")
	if err != nil {
		t.Fatalf("NewMarketHours: %v", err)
	}
	l.Hours = hours
	today := time.Now().In(hours.Timezone)
	night := time.Date(today.Year(), today.Month(), today.Day(), 22, 0, 0, 0, hours.Timezone)
	l.now = func() time.Time { return night }

	if _, err := l.Buy(context.Background(), "a", "doge"); !errors.Is(err, helpers.ErrMarketClosed) {
		t.Fatalf("expected market closed, got %v", err)
	}
	if _, err := l.Stock(context.Background(), "doge"); !errors.Is(err, helpers.ErrStockNotFound) {
		t.Errorf("closed market must not create stocks: %v", err)
	}
}

// -----------------------------------------------------------------------------

func TestLedger_HistoryClockStepsBack(t *testing.T) {
	l, db, _ := newTestLedger(t)
	ctx := context.Background()
	addUser(t, db, "a", 10)

	first := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return first }
	l.Buy(ctx, "a", "doge")

	l.now = func() time.Time { return first.Add(-time.Hour) }
	l.Buy(ctx, "a", "doge")

	history, _ := l.History(ctx, "doge")
	if len(history) != 2 {
		t.Fatalf("history len = %d", len(history))
	}
	if history[1].Time.Before(history[0].Time) {
		t.Errorf("history went back in time: %v then %v", history[0].Time, history[1].Time)
	}
}

// -----------------------------------------------------------------------------

func TestLedger_ConcurrentBuys(t *testing.T) {
	l, db, _ := newTestLedger(t)
	ctx := context.Background()
	addUser(t, db, "a", 1000)
	fixed := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Buy(ctx, "a", "doge"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Buy: %v", err)
	}

	// price rose once per buy and each buyer paid the pre-trade price
	view, _ := l.Stock(ctx, "doge")
	if view.Price != n {
		t.Errorf("price = %v, want %d", view.Price, n)
	}
	s := summary(t, l, "a")
	if want := 1000.0 - float64(n*(n-1)/2); s.Money != want || s.Stocks["doge"] != n {
		t.Errorf("summary = %+v, want money %v and %d shares", s, want, n)
	}
}

// -----------------------------------------------------------------------------

func TestLedger_Queries(t *testing.T) {
	l, db, _ := newTestLedger(t)
	ctx := context.Background()
	addUser(t, db, "a", 100)

	for i, name := range []string{"low", "high", "high", "high", "mid", "mid"} {
		if _, err := l.Buy(ctx, "a", name); err != nil {
			t.Fatalf("Buy %d: %v", i, err)
		}
	}

	stocks, err := l.Stocks(ctx)
	if err != nil {
		t.Fatalf("Stocks: %v", err)
	}
	order := []string{"high", "mid", "low"}
	if len(stocks) != len(order) {
		t.Fatalf("got %d stocks", len(stocks))
	}
	for i, s := range stocks {
		if s.Name != order[i] {
			t.Errorf("stocks[%d] = %s, want %s", i, s.Name, order[i])
		}
	}

	stats, err := l.Stats(ctx, "high")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Trades != 3 || stats.Open != 1 || stats.Close != 3 || stats.ChangePercent != 200 {
		t.Errorf("stats = %+v", stats)
	}
	if _, err := l.Stats(ctx, "unknown"); !errors.Is(err, helpers.ErrStockNotFound) {
		t.Errorf("Stats(unknown) = %v", err)
	}

	if h, err := l.History(ctx, "unknown"); err != nil || len(h) != 0 {
		t.Errorf("unknown history = %v, %v; want empty", h, err)
	}
	if got := l.RecentN(2); len(got) != 2 || got[1].StockName != "mid" {
		t.Errorf("RecentN(2) = %+v", got)
	}
}

// -----------------------------------------------------------------------------

func TestLedger_RecentFeedBounded(t *testing.T) {
	l, db, _ := newTestLedger(t)
	ctx := context.Background()
	addUser(t, db, "a", 1000)

	for i := 0; i < 15; i++ {
		if _, err := l.Buy(ctx, "a", fmt.Sprintf("s%d", i)); err != nil {
			t.Fatalf("Buy: %v", err)
		}
	}
	recent := l.Recent()
	if len(recent) != 10 {
		t.Fatalf("recent = %d, want capacity 10", len(recent))
	}
	if recent[0].StockName != "s5" || recent[9].StockName != "s14" {
		t.Errorf("recent window = %s..%s", recent[0].StockName, recent[9].StockName)
	}

	// a restarted ledger reloads the same window from storage
	reloaded := NewLedger(db, nil, nil, 10, logger.NewNopLogger())
	if err := reloaded.LoadRecent(ctx); err != nil {
		t.Fatalf("LoadRecent: %v", err)
	}
	got := reloaded.Recent()
	if len(got) != 10 || got[0].ID != recent[0].ID || got[9].ID != recent[9].ID {
		t.Errorf("reloaded window mismatch: %+v", got)
	}
}

// -----------------------------------------------------------------------------

func TestLedger_PublishFailureDoesNotFailTrade(t *testing.T) {
	l, db, pub := newTestLedger(t)
	addUser(t, db, "a", 10)
	pub.err = errors.New("broker down")

	if _, err := l.Buy(context.Background(), "a", "doge"); err != nil {
		t.Fatalf("Buy must succeed when publishing fails: %v", err)
	}
}

// -----------------------------------------------------------------------------

func TestLedger_DogeScenario(t *testing.T) {
	l, db, _ := newTestLedger(t)
	ctx := context.Background()
	addUser(t, db, "a", 10)

	// each buy pays the pre-trade price: 0, 1, 2, 3
	wantCash := []float64{10, 9, 7, 4}
	for i, cash := range wantCash {
		if _, err := l.Buy(ctx, "a", "doge"); err != nil {
			t.Fatalf("buy %d: %v", i+1, err)
		}
		s := summary(t, l, "a")
		if s.Money != cash || s.Stocks["doge"] != i+1 {
			t.Errorf("after buy %d: %+v, want cash %v", i+1, s, cash)
		}
	}

	// cash 4 is not strictly greater than price 4
	if _, err := l.Buy(ctx, "a", "doge"); !errors.Is(err, helpers.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	s := summary(t, l, "a")
	view, _ := l.Stock(ctx, "doge")
	history, _ := l.History(ctx, "doge")
	if s.Money != 4 || s.Stocks["doge"] != 4 || view.Price != 4 || len(history) != 4 {
		t.Errorf("failed buy changed state: %+v price=%v history=%d", s, view.Price, len(history))
	}
}
