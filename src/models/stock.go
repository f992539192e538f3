package models

import "time"

// MTrend is the direction of the most recent trade.
type MTrend string

const (
	TrendUnknown MTrend = "unknown"
	TrendUp      MTrend = "up"
	TrendDown    MTrend = "down"
)

// -----------------------------------------------------------------------------

// MStock is a named stock. ID is internal and never used as a lookup key from outside.
type MStock struct {
	ID          string          `json:"-"`
	Name        string          `json:"name"`
	Price       float64         `json:"price"`
	Trend       MTrend          `json:"trend"`
	LastTradeAt time.Time       `json:"-"`
	History     []MHistoryEntry `json:"-"`
}

// MStockView is the public projection of a stock (history omitted).
type MStockView struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Trend MTrend  `json:"trend"`
}

// View returns the public projection.
func (s *MStock) View() MStockView {
	return MStockView{Name: s.Name, Price: s.Price, Trend: s.Trend}
}

// -----------------------------------------------------------------------------

// MHistoryEntry is an immutable post-trade price snapshot.
type MHistoryEntry struct {
	Price float64   `json:"price"`
	Time  time.Time `json:"time"`
}
