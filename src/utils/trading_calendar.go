package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// MarketHours gates trading on an exchange calendar (scmhub/calendar).
// A nil *MarketHours is always open.
type MarketHours struct {
	MIC      string
	Calendar *calendar.Calendar
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// NewMarketHours loads the calendar for an ISO 10383 MIC such as "xnys".
// An empty MIC disables the gate and returns nil.
func NewMarketHours(mic string) (*MarketHours, error) {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		return nil, nil
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil {
		return nil, fmt.Errorf("unknown trading calendar %q", mic)
	}

	return &MarketHours{MIC: mic, Calendar: cal, Timezone: cal.Loc}, nil
}

// -----------------------------------------------------------------------------

// IsTradingDay reports whether the exchange has a session on that date.
func (mh *MarketHours) IsTradingDay(date time.Time) bool {
	if mh == nil {
		return true
	}
	if mh.Timezone != nil {
		date = date.In(mh.Timezone)
	}
	return mh.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpen checks if the market is open at a specific instant.
func (mh *MarketHours) IsOpen(t time.Time) bool {
	if mh == nil {
		return true
	}
	if mh.Timezone != nil {
		t = t.In(mh.Timezone)
	}
	return mh.Calendar.IsOpen(t)
}
