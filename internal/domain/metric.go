package domain

import "time"

// DateLayout is the calendar-day format used on the wire and in storage keys.
const DateLayout = "2006-01-02"

// DailyMetric represents one calendar day of whale activity.
// Corresponds to daily_metrics table in PostgreSQL.
type DailyMetric struct {
	Date            time.Time // calendar day, UTC midnight
	TxCount         int       // whale transactions
	Volume          float64   // transacted volume, base-asset units
	ExchangeInflow  float64   // base-asset units moved onto exchanges
	ExchangeOutflow float64   // base-asset units moved off exchanges
	ReferencePrice  *float64  // close price; nil when unknown
}

// TotalFlow returns inflow + outflow.
func (m DailyMetric) TotalFlow() float64 {
	return m.ExchangeInflow + m.ExchangeOutflow
}

// Netflow returns outflow - inflow. Positive means coins leaving exchanges.
func (m DailyMetric) Netflow() float64 {
	return m.ExchangeOutflow - m.ExchangeInflow
}

// HasPrice reports whether a reference price is known for the day.
func (m DailyMetric) HasPrice() bool {
	return m.ReferencePrice != nil
}

// TruncateDay returns t as UTC midnight of its calendar day.
func TruncateDay(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// Day builds a UTC calendar day.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Float64Ptr returns a pointer to v.
func Float64Ptr(v float64) *float64 {
	return &v
}
