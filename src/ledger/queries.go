package ledger

import (
	"context"
	"errors"

	"meme-market/src/analysis"
	"meme-market/src/helpers"
	"meme-market/src/models"
)

// -----------------------------------------------------------------------------
// Read-only projections
// -----------------------------------------------------------------------------

// Summary projects the user's holdings from stock IDs to stock names.
// A holding that references a missing stock is an internal consistency error.
func (l *Ledger) Summary(ctx context.Context, user *models.MUser) (*models.MUserSummary, error) {
	stocks := make(map[string]int, len(user.Holdings))
	for stockID, count := range user.Holdings {
		stock, err := l.Store.StockByID(ctx, stockID)
		if errors.Is(err, helpers.ErrStockNotFound) {
			return nil, helpers.WrapError(helpers.KindInternalConsistency, err,
				"user %s holds unknown stock %s", user.ExternalID, stockID)
		}
		if err != nil {
			return nil, err
		}
		stocks[stock.Name] = count
	}

	return &models.MUserSummary{
		Money:  user.Money,
		Stocks: stocks,
		APIKey: user.APIKey,
	}, nil
}

// -----------------------------------------------------------------------------

// Stock returns name, price and trend, or ErrStockNotFound.
func (l *Ledger) Stock(ctx context.Context, name string) (*models.MStockView, error) {
	stock, err := l.Store.StockByName(ctx, name)
	if err != nil {
		return nil, err
	}
	view := stock.View()
	return &view, nil
}

// Stocks lists every stock by price descending.
func (l *Ledger) Stocks(ctx context.Context) ([]models.MStockView, error) {
	stocks, err := l.Store.ListStocks(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.MStockView, 0, len(stocks))
	for i := range stocks {
		views = append(views, stocks[i].View())
	}
	return views, nil
}

// -----------------------------------------------------------------------------

// History returns the price snapshots in trade order; unknown stocks yield an empty slice.
func (l *Ledger) History(ctx context.Context, name string) ([]models.MHistoryEntry, error) {
	stock, err := l.Store.StockByName(ctx, name)
	if errors.Is(err, helpers.ErrStockNotFound) {
		return []models.MHistoryEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return l.Store.History(ctx, stock.ID)
}

// -----------------------------------------------------------------------------

// Recent returns the transaction feed, oldest first.
func (l *Ledger) Recent() []models.MTransaction {
	return l.recent.GetAll()
}

// RecentCount is the number of transactions held in the feed.
func (l *Ledger) RecentCount() int {
	return l.recent.Size()
}

// RecentN returns at most n of the latest transactions, oldest first.
func (l *Ledger) RecentN(n int) []models.MTransaction {
	return l.recent.GetLatest(n)
}

// -----------------------------------------------------------------------------

// Stats summarizes a stock's price history, or ErrStockNotFound.
func (l *Ledger) Stats(ctx context.Context, name string) (*models.MHistoryStats, error) {
	stock, err := l.Store.StockByName(ctx, name)
	if err != nil {
		return nil, err
	}
	history, err := l.Store.History(ctx, stock.ID)
	if err != nil {
		return nil, err
	}
	stats := analysis.SummarizeHistory(stock.Name, history)
	return &stats, nil
}
