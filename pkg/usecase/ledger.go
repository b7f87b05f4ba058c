package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/everlift-app/everlift/pkg/domain/interfaces"
	"github.com/everlift-app/everlift/pkg/domain/model"
)

// LedgerUseCase maintains the per-(user, focus, need) confidence baseline and
// dated check-in history.
type LedgerUseCase struct {
	repo interfaces.Repository
	now  func() time.Time
}

func NewLedgerUseCase(repo interfaces.Repository) *LedgerUseCase {
	return &LedgerUseCase{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Used by tests.
func (uc *LedgerUseCase) WithClock(now func() time.Time) *LedgerUseCase {
	uc.now = now
	return uc
}

// Record returns the current record for the scope, or nil when none exists.
func (uc *LedgerUseCase) Record(ctx context.Context, scope model.Scope) (*model.ConfidenceRecord, error) {
	rec, err := uc.repo.Confidence().Get(ctx, scope)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load confidence record", goerr.V(ScopeKey, scope.Key()))
	}
	return rec, nil
}

// RecordBaseline parses and stores the first self-report for the scope. When a
// baseline already exists the call is a no-op and the stored baseline wins.
func (uc *LedgerUseCase) RecordBaseline(ctx context.Context, scope model.Scope, raw string) (float64, error) {
	level, ok := ParseLevel(raw)
	if !ok {
		return 0, goerr.Wrap(ErrInvalidLevel, "unparseable baseline reply", goerr.V("input", raw))
	}

	rec, err := uc.Record(ctx, scope)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		rec = &model.ConfidenceRecord{}
	}
	if !rec.SetBaseline(level, uc.now()) {
		return *rec.Baseline, nil
	}
	if err := uc.repo.Confidence().Put(ctx, scope, rec); err != nil {
		return 0, goerr.Wrap(err, "failed to store baseline", goerr.V(ScopeKey, scope.Key()))
	}
	return level, nil
}

// RecordCheckin parses and stores a daily check-in: a day-bucketed upsert into
// history that never touches the baseline.
func (uc *LedgerUseCase) RecordCheckin(ctx context.Context, scope model.Scope, raw string) (float64, error) {
	level, ok := ParseLevel(raw)
	if !ok {
		return 0, goerr.Wrap(ErrInvalidLevel, "unparseable check-in reply", goerr.V("input", raw))
	}

	rec, err := uc.Record(ctx, scope)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		rec = &model.ConfidenceRecord{}
	}
	rec.UpsertHistory(level, uc.now())
	if err := uc.repo.Confidence().Put(ctx, scope, rec); err != nil {
		return 0, goerr.Wrap(err, "failed to store check-in", goerr.V(ScopeKey, scope.Key()))
	}
	return level, nil
}

// Summarize reports {baseline, today, latest, delta} for the scope. Reporting
// only; gating decisions read the record directly.
func (uc *LedgerUseCase) Summarize(ctx context.Context, scope model.Scope) (model.ConfidenceSummary, error) {
	rec, err := uc.Record(ctx, scope)
	if err != nil {
		return model.ConfidenceSummary{}, err
	}
	return rec.Summarize(uc.now()), nil
}

// CheckinDueToday reports whether the scope has a baseline but no check-in yet
// for today's date.
func (uc *LedgerUseCase) CheckinDueToday(ctx context.Context, scope model.Scope) (bool, error) {
	rec, err := uc.Record(ctx, scope)
	if err != nil {
		return false, err
	}
	if !rec.HasBaseline() {
		return false, nil
	}
	return !rec.CheckedToday(uc.now()), nil
}
