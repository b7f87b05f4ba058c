package model

import (
	"math"
	"time"
)

// DateLayout is the calendar-date form used for history bucketing.
const DateLayout = "2006-01-02"

// ConfidenceEntry is one dated self-report.
type ConfidenceEntry struct {
	Date  string
	Level float64
}

// ConfidenceRecord holds the baseline and dated history for one scope.
// The baseline is immutable once set; all later reports go to History.
type ConfidenceRecord struct {
	Baseline      *float64
	LastCheckDate string
	History       []ConfidenceEntry
}

// HasBaseline reports whether a baseline was ever recorded.
func (r *ConfidenceRecord) HasBaseline() bool {
	return r != nil && r.Baseline != nil
}

// SetBaseline records the baseline if absent and buckets the same level into
// today's history. Returns false without modification when a baseline exists.
func (r *ConfidenceRecord) SetBaseline(level float64, now time.Time) bool {
	if r.Baseline != nil {
		return false
	}
	v := level
	r.Baseline = &v
	r.UpsertHistory(level, now)
	return true
}

// UpsertHistory records a check-in for the given day. At most one entry exists
// per calendar date; a same-day re-report replaces the earlier value.
func (r *ConfidenceRecord) UpsertHistory(level float64, now time.Time) {
	date := now.Format(DateLayout)
	for i := range r.History {
		if r.History[i].Date == date {
			r.History[i].Level = level
			r.LastCheckDate = date
			return
		}
	}
	r.History = append(r.History, ConfidenceEntry{Date: date, Level: level})
	r.LastCheckDate = date
}

// CheckedToday reports whether a check-in was already recorded for now's date.
func (r *ConfidenceRecord) CheckedToday(now time.Time) bool {
	return r != nil && r.LastCheckDate == now.Format(DateLayout)
}

// ConfidenceSummary is a read-only report over one record.
type ConfidenceSummary struct {
	Baseline *float64
	Today    *float64
	Latest   *float64
	Delta    *float64
}

// Summarize reports baseline, today's level, the latest level and the rounded
// delta between latest and baseline. Delta is nil unless both exist.
func (r *ConfidenceRecord) Summarize(now time.Time) ConfidenceSummary {
	var sum ConfidenceSummary
	if r == nil {
		return sum
	}
	sum.Baseline = r.Baseline

	date := now.Format(DateLayout)
	for i := range r.History {
		if r.History[i].Date == date {
			v := r.History[i].Level
			sum.Today = &v
		}
	}
	if n := len(r.History); n > 0 {
		v := r.History[n-1].Level
		sum.Latest = &v
	}
	if sum.Baseline != nil && sum.Latest != nil {
		d := math.Round((*sum.Latest-*sum.Baseline)*10) / 10
		sum.Delta = &d
	}
	return sum
}

// Clone returns a deep copy of the record.
func (r *ConfidenceRecord) Clone() *ConfidenceRecord {
	if r == nil {
		return nil
	}
	c := &ConfidenceRecord{LastCheckDate: r.LastCheckDate}
	if r.Baseline != nil {
		v := *r.Baseline
		c.Baseline = &v
	}
	if r.History != nil {
		c.History = make([]ConfidenceEntry, len(r.History))
		copy(c.History, r.History)
	}
	return c
}
