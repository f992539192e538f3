package models

import "time"

// MUser is a trader. Holdings are keyed by stock ID, not by name.
type MUser struct {
	ExternalID string         `json:"external_id"`
	Name       string         `json:"name"`
	Money      float64        `json:"money"`
	Holdings   map[string]int `json:"holdings"`
	APIKey     string         `json:"-"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Holding returns the share count for a stock, zero when absent.
func (u *MUser) Holding(stockID string) int {
	if u.Holdings == nil {
		return 0
	}
	return u.Holdings[stockID]
}

// -----------------------------------------------------------------------------

// MUserSummary is the /api/me projection: holdings keyed by stock name.
type MUserSummary struct {
	Money  float64        `json:"money"`
	Stocks map[string]int `json:"stocks"`
	APIKey string         `json:"api_key"`
}
