package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meme-market/src/helpers"
	"meme-market/src/interfaces"
	"meme-market/src/logger"
	"meme-market/src/models"
	"meme-market/src/utils"
)

// PriceStep is the fixed amount a single trade moves a stock's price.
const PriceStep = 1.0

// -----------------------------------------------------------------------------
// Ledger executes trades and serves the read-only market projections.
// -----------------------------------------------------------------------------

type Ledger struct {
	Store     interfaces.IStore
	Publisher interfaces.ITradePublisher // optional
	Hours     *utils.MarketHours         // nil = always open
	Logger    *logger.Logger

	recent *utils.RingBuffer[models.MTransaction]
	now    func() time.Time
}

// -----------------------------------------------------------------------------

func NewLedger(store interfaces.IStore, publisher interfaces.ITradePublisher, hours *utils.MarketHours, recentSize int, log *logger.Logger) *Ledger {
	return &Ledger{
		Store:     store,
		Publisher: publisher,
		Hours:     hours,
		Logger:    log,
		recent:    utils.NewRingBuffer[models.MTransaction](recentSize),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// -----------------------------------------------------------------------------

// LoadRecent seeds the in-memory transaction feed from the store.
func (l *Ledger) LoadRecent(ctx context.Context) error {
	txns, err := l.Store.RecentTransactions(ctx, l.recent.Capacity())
	if err != nil {
		return fmt.Errorf("load recent transactions: %w", err)
	}
	for _, t := range txns {
		l.recent.Append(t)
	}
	l.Logger.Info("Loaded %d recent transactions", len(txns))
	return nil
}

// -----------------------------------------------------------------------------
// Trading
// -----------------------------------------------------------------------------

// Buy purchases one share of the named stock, creating the stock at price 0 if
// nobody has referenced it yet. Fails with ErrInsufficientFunds unless the
// user's cash is strictly greater than the current price.
func (l *Ledger) Buy(ctx context.Context, userID, stockName string) (*models.MTransaction, error) {
	return l.execute(ctx, userID, stockName, models.SideBuy)
}

// Sell sells one share. Unknown stocks fail with ErrStockNotFound and
// empty positions with ErrInsufficientHoldings.
func (l *Ledger) Sell(ctx context.Context, userID, stockName string) (*models.MTransaction, error) {
	return l.execute(ctx, userID, stockName, models.SideSell)
}

// -----------------------------------------------------------------------------

func (l *Ledger) execute(ctx context.Context, userID, stockName string, side models.MTradeSide) (*models.MTransaction, error) {
	if stockName == "" {
		return nil, helpers.ErrInvalidStock
	}

	now := l.now()
	if !l.Hours.IsTradingDay(now) {
		return nil, helpers.WrapError(helpers.KindMarketClosed, helpers.ErrMarketClosed, "no session today on %s", l.Hours.MIC)
	}
	if !l.Hours.IsOpen(now) {
		return nil, helpers.WrapError(helpers.KindMarketClosed, helpers.ErrMarketClosed, "outside %s trading hours", l.Hours.MIC)
	}

	var txn models.MTransaction
	err := l.Store.RunInTx(ctx, func(tx interfaces.ITx) error {
		user, err := tx.UserForUpdate(userID)
		if err != nil {
			return err
		}

		stock, err := resolveStock(tx, stockName, side)
		if err != nil {
			return err
		}

		held := user.Holding(stock.ID)
		paid := stock.Price

		switch side {
		case models.SideBuy:
			if !(user.Money > paid) {
				return helpers.WrapError(helpers.KindInsufficientFunds, helpers.ErrInsufficientFunds,
					"cash %.2f does not exceed price %.2f of %q", user.Money, paid, stockName)
			}
			held++
			user.Money -= paid
			stock.Price += PriceStep
			stock.Trend = models.TrendUp
		case models.SideSell:
			if held <= 0 {
				return helpers.WrapError(helpers.KindInsufficientHoldings, helpers.ErrInsufficientHoldings,
					"no shares of %q to sell", stockName)
			}
			held--
			user.Money += paid
			stock.Price -= PriceStep
			stock.Trend = models.TrendDown
		}

		stock.LastTradeAt = tradeTime(now, stock.LastTradeAt)

		if err := tx.SetHolding(user.ExternalID, stock.ID, held); err != nil {
			return err
		}
		if err := tx.UpdateMoney(user.ExternalID, user.Money); err != nil {
			return err
		}
		if err := tx.UpdateStock(stock); err != nil {
			return err
		}
		if err := tx.AppendHistory(stock.ID, models.MHistoryEntry{Price: stock.Price, Time: stock.LastTradeAt}); err != nil {
			return err
		}

		txn = models.MTransaction{
			UserID:    user.ExternalID,
			UserName:  user.Name,
			StockID:   stock.ID,
			StockName: stock.Name,
			Side:      side,
			Price:     paid,
			NewPrice:  stock.Price,
			Time:      stock.LastTradeAt,
		}
		return tx.AppendTransaction(&txn)
	})
	if err != nil {
		return nil, err
	}

	l.Logger.Debug("%s %s: %s at %.2f -> %.2f", txn.UserName, txn.Side, txn.StockName, txn.Price, txn.NewPrice)
	l.recent.Append(txn)
	l.publish(ctx, txn)

	return &txn, nil
}

// -----------------------------------------------------------------------------

// resolveStock locks the stock row; buys create missing stocks, sells do not.
func resolveStock(tx interfaces.ITx, name string, side models.MTradeSide) (*models.MStock, error) {
	stock, err := tx.StockForUpdate(name)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, helpers.ErrStockNotFound) || side == models.SideSell {
		return nil, err
	}
	return tx.CreateStock(name)
}

// tradeTime keeps history timestamps non-decreasing even if the wall clock steps back.
func tradeTime(now, last time.Time) time.Time {
	if now.Before(last) {
		return last
	}
	return now
}

// -----------------------------------------------------------------------------

func (l *Ledger) publish(ctx context.Context, txn models.MTransaction) {
	if l.Publisher == nil {
		return
	}
	if err := l.Publisher.Publish(ctx, txn); err != nil {
		l.Logger.Warning("Failed to publish trade %d: %v", txn.ID, err)
	}
}
