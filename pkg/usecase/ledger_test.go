package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/everlift-app/everlift/pkg/domain/model"
	"github.com/everlift-app/everlift/pkg/domain/types"
	"github.com/everlift-app/everlift/pkg/repository/memory"
	"github.com/everlift-app/everlift/pkg/usecase"
)

func testScope(userID string) model.Scope {
	return model.Scope{
		UserID: types.UserID(userID),
		Focus:  "interview",
		Need: model.Need{
			Key:   types.NeedKeyInterview,
			Label: "Interview confidence",
		},
	}
}

func TestLedgerBaseline(t *testing.T) {
	ctx := context.Background()
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("records the first baseline", func(t *testing.T) {
		lg := usecase.NewLedgerUseCase(memory.New()).WithClock(func() time.Time { return day1 })
		scope := testScope("u1")

		level, err := lg.RecordBaseline(ctx, scope, "6/10")
		gt.NoError(t, err).Required()
		gt.Value(t, level).Equal(6.0)

		rec, err := lg.Record(ctx, scope)
		gt.NoError(t, err).Required()
		gt.Value(t, *rec.Baseline).Equal(6.0)
	})

	t.Run("a second baseline keeps the stored value", func(t *testing.T) {
		lg := usecase.NewLedgerUseCase(memory.New()).WithClock(func() time.Time { return day1 })
		scope := testScope("u1")

		_, err := lg.RecordBaseline(ctx, scope, "6")
		gt.NoError(t, err).Required()

		level, err := lg.RecordBaseline(ctx, scope, "9")
		gt.NoError(t, err).Required()
		gt.Value(t, level).Equal(6.0)
	})

	t.Run("rejects out-of-range replies without clamping", func(t *testing.T) {
		lg := usecase.NewLedgerUseCase(memory.New()).WithClock(func() time.Time { return day1 })
		scope := testScope("u1")

		_, err := lg.RecordBaseline(ctx, scope, "11")
		gt.Bool(t, errors.Is(err, usecase.ErrInvalidLevel)).True()

		rec, err := lg.Record(ctx, scope)
		gt.NoError(t, err).Required()
		gt.Value(t, rec).Nil()
	})

	t.Run("scopes are independent", func(t *testing.T) {
		lg := usecase.NewLedgerUseCase(memory.New()).WithClock(func() time.Time { return day1 })
		a := testScope("u1")
		b := testScope("u1")
		b.Need = model.Need{Key: types.NeedKeyWork, Label: "Staying focused"}

		_, err := lg.RecordBaseline(ctx, a, "3")
		gt.NoError(t, err).Required()

		rec, err := lg.Record(ctx, b)
		gt.NoError(t, err).Required()
		gt.Value(t, rec).Nil()
	})
}

func TestLedgerCheckin(t *testing.T) {
	ctx := context.Background()
	day1 := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

	t.Run("check-ins never touch the baseline", func(t *testing.T) {
		now := day1
		lg := usecase.NewLedgerUseCase(memory.New()).WithClock(func() time.Time { return now })
		scope := testScope("u1")

		_, err := lg.RecordBaseline(ctx, scope, "4")
		gt.NoError(t, err).Required()

		now = day2
		_, err = lg.RecordCheckin(ctx, scope, "8")
		gt.NoError(t, err).Required()

		sum, err := lg.Summarize(ctx, scope)
		gt.NoError(t, err).Required()
		gt.Value(t, *sum.Baseline).Equal(4.0)
		gt.Value(t, *sum.Latest).Equal(8.0)
		gt.Value(t, *sum.Delta).Equal(4.0)
	})

	t.Run("due today only until the first check-in", func(t *testing.T) {
		now := day1
		lg := usecase.NewLedgerUseCase(memory.New()).WithClock(func() time.Time { return now })
		scope := testScope("u1")

		due, err := lg.CheckinDueToday(ctx, scope)
		gt.NoError(t, err).Required()
		gt.Bool(t, due).False() // no baseline yet

		_, err = lg.RecordBaseline(ctx, scope, "4")
		gt.NoError(t, err).Required()

		due, err = lg.CheckinDueToday(ctx, scope)
		gt.NoError(t, err).Required()
		gt.Bool(t, due).False() // baseline counts as today's entry

		now = day2
		due, err = lg.CheckinDueToday(ctx, scope)
		gt.NoError(t, err).Required()
		gt.Bool(t, due).True()

		_, err = lg.RecordCheckin(ctx, scope, "6")
		gt.NoError(t, err).Required()

		due, err = lg.CheckinDueToday(ctx, scope)
		gt.NoError(t, err).Required()
		gt.Bool(t, due).False()
	})
}
