package models

import "time"

type MTradeSide string

const (
	SideBuy  MTradeSide = "buy"
	SideSell MTradeSide = "sell"
)

// MTransaction records one executed trade.
// Price is the pre-trade price paid or received, NewPrice the price after the trade.
type MTransaction struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"-"`
	UserName  string     `json:"user"`
	StockID   string     `json:"-"`
	StockName string     `json:"stock"`
	Side      MTradeSide `json:"side"`
	Price     float64    `json:"price"`
	NewPrice  float64    `json:"new_price"`
	Time      time.Time  `json:"time"`
}
