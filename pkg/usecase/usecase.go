package usecase

import (
	"github.com/everlift-app/everlift/pkg/domain/interfaces"
	"github.com/everlift-app/everlift/pkg/domain/model/config"
	"github.com/everlift-app/everlift/pkg/service/coach"
	"github.com/everlift-app/everlift/pkg/service/needs"
	"github.com/everlift-app/everlift/pkg/service/plan"
)

type UseCases struct {
	repo      interfaces.Repository
	sessions  interfaces.SessionStore
	needsCfg  *config.NeedsConfig
	coachName string

	Ledger  *LedgerUseCase
	Sync    *SyncUseCase
	Session *SessionUseCase

	Registry  *needs.Registry
	Extractor *plan.Extractor
}

type Option func(*UseCases)

func WithNeedsConfig(cfg *config.NeedsConfig) Option {
	return func(uc *UseCases) {
		uc.needsCfg = cfg
	}
}

func WithCoachName(name string) Option {
	return func(uc *UseCases) {
		uc.coachName = name
	}
}

func New(repo interfaces.Repository, sessions interfaces.SessionStore, gateway *coach.Gateway, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:     repo,
		sessions: sessions,
	}

	for _, opt := range opts {
		opt(uc)
	}

	var defs []config.NeedDef
	if uc.needsCfg != nil {
		defs = uc.needsCfg.Needs
	}
	uc.Registry = needs.New(defs)
	uc.Extractor = plan.NewExtractor(uc.needsCfg)
	uc.Ledger = NewLedgerUseCase(repo)
	uc.Sync = NewSyncUseCase(repo, sessions, uc.Extractor)
	uc.Session = NewSessionUseCase(uc.Ledger, uc.Sync, gateway, uc.Registry, uc.Extractor).
		WithCoachName(uc.coachName)

	return uc
}
