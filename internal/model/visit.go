// Package model defines domain entities for the application.
package model

import "time"

// VisitRecord is one row of the append-only visitor table.
type VisitRecord struct {
	ID        int64     `json:"id"`
	IPAddress string    `json:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty"` // nil when the client sent no User-Agent
	Timestamp time.Time `json:"timestamp"`            // UTC

	// Period fields are derived from Timestamp once, at insert time.
	VisitMonth int `json:"visit_month"`
	VisitYear  int `json:"visit_year"`
}

// Period is a calendar month in UTC.
type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// PeriodOf returns the UTC calendar month and year of t.
func PeriodOf(t time.Time) Period {
	u := t.UTC()
	return Period{Month: int(u.Month()), Year: u.Year()}
}

// NewVisitRecord builds a record whose period fields match at.
func NewVisitRecord(ipAddress string, userAgent *string, at time.Time) *VisitRecord {
	at = at.UTC()
	p := PeriodOf(at)
	return &VisitRecord{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Timestamp:  at,
		VisitMonth: p.Month,
		VisitYear:  p.Year,
	}
}

// MonthlyVisitors is the aggregation response body.
type MonthlyVisitors struct {
	Month          int   `json:"month"`
	Year           int   `json:"year"`
	UniqueVisitors int64 `json:"unique_visitors"`
}
