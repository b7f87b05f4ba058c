package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/everlift-app/everlift/pkg/domain/model"
)

func TestSetBaseline(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("first report becomes the baseline and today's entry", func(t *testing.T) {
		rec := &model.ConfidenceRecord{}
		gt.Bool(t, rec.SetBaseline(4, day1)).True()
		gt.Value(t, *rec.Baseline).Equal(4.0)
		gt.Array(t, rec.History).Length(1)
		gt.Value(t, rec.History[0].Date).Equal("2026-03-10")
		gt.Value(t, rec.History[0].Level).Equal(4.0)
	})

	t.Run("a second baseline attempt does not modify the record", func(t *testing.T) {
		rec := &model.ConfidenceRecord{}
		gt.Bool(t, rec.SetBaseline(4, day1)).True()
		gt.Bool(t, rec.SetBaseline(9, day1.Add(time.Hour))).False()
		gt.Value(t, *rec.Baseline).Equal(4.0)
		gt.Array(t, rec.History).Length(1)
		gt.Value(t, rec.History[0].Level).Equal(4.0)
	})
}

func TestUpsertHistory(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 22, 0, 0, 0, time.UTC)

	t.Run("same-day re-report replaces the earlier value", func(t *testing.T) {
		rec := &model.ConfidenceRecord{}
		rec.UpsertHistory(5, day1)
		rec.UpsertHistory(7, day1.Add(6*time.Hour))
		gt.Array(t, rec.History).Length(1)
		gt.Value(t, rec.History[0].Level).Equal(7.0)
	})

	t.Run("reports on different days accumulate", func(t *testing.T) {
		rec := &model.ConfidenceRecord{}
		rec.UpsertHistory(5, day1)
		rec.UpsertHistory(7, day2)
		gt.Array(t, rec.History).Length(2)
		gt.Value(t, rec.LastCheckDate).Equal("2026-03-11")
	})

	t.Run("CheckedToday tracks the last report date", func(t *testing.T) {
		rec := &model.ConfidenceRecord{}
		rec.UpsertHistory(5, day1)
		gt.Bool(t, rec.CheckedToday(day1)).True()
		gt.Bool(t, rec.CheckedToday(day2)).False()
	})
}

func TestSummarize(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

	t.Run("nil record yields an empty summary", func(t *testing.T) {
		var rec *model.ConfidenceRecord
		sum := rec.Summarize(day1)
		gt.Value(t, sum.Baseline).Nil()
		gt.Value(t, sum.Latest).Nil()
		gt.Value(t, sum.Delta).Nil()
	})

	t.Run("delta is the rounded latest minus baseline", func(t *testing.T) {
		rec := &model.ConfidenceRecord{}
		rec.SetBaseline(4.5, day1)
		rec.UpsertHistory(7.2, day2)

		sum := rec.Summarize(day2)
		gt.Value(t, *sum.Baseline).Equal(4.5)
		gt.Value(t, *sum.Today).Equal(7.2)
		gt.Value(t, *sum.Latest).Equal(7.2)
		gt.Value(t, *sum.Delta).Equal(2.7)
	})

	t.Run("today is nil when the last report was yesterday", func(t *testing.T) {
		rec := &model.ConfidenceRecord{}
		rec.SetBaseline(4, day1)

		sum := rec.Summarize(day2)
		gt.Value(t, sum.Today).Nil()
		gt.Value(t, *sum.Latest).Equal(4.0)
	})
}

func TestConfidenceClone(t *testing.T) {
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	rec := &model.ConfidenceRecord{}
	rec.SetBaseline(5, day1)

	clone := rec.Clone()
	clone.UpsertHistory(9, day1)
	*clone.Baseline = 1

	gt.Value(t, *rec.Baseline).Equal(5.0)
	gt.Value(t, rec.History[0].Level).Equal(5.0)
}
