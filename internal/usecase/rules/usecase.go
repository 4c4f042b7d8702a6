package rules

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"vsla-ledger/internal/domain/apperr"
	"vsla-ledger/internal/domain/loan"
	domain "vsla-ledger/internal/domain/rules"
	"vsla-ledger/internal/domain/uow"
	"vsla-ledger/internal/log"
	"vsla-ledger/internal/usecase/settings"
	"vsla-ledger/pkg/id"
)

// Cache holds assessed rules per group.
type Cache interface {
	Get(ctx context.Context, groupID string) (*domain.GroupBusinessRules, bool, error)
	Set(ctx context.Context, r *domain.GroupBusinessRules) error
	Invalidate(ctx context.Context, groupID string) error
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*domain.GroupBusinessRules, bool, error) {
	return nil, false, nil
}
func (noCache) Set(context.Context, *domain.GroupBusinessRules) error { return nil }
func (noCache) Invalidate(context.Context, string) error             { return nil }

type Usecase struct {
	repo     domain.Repository
	uow      uow.UnitOfWork
	policies settings.Source
	cache    Cache
	log      *log.Logger
	now      func() time.Time
}

// NewUsecase: cache may be nil.
func NewUsecase(repo domain.Repository, tx uow.UnitOfWork, policies settings.Source, cache Cache, logger *log.Logger) *Usecase {
	if cache == nil {
		cache = noCache{}
	}
	return &Usecase{
		repo:     repo,
		uow:      tx,
		policies: policies,
		cache:    cache,
		log:      log.OrDiscard(logger).WithComponent(log.ComponentRules),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func validateUpsert(in UpsertInput) apperr.Violations {
	var v apperr.Violations
	if !id.Valid(in.GroupID) {
		v = v.Add("group_id", "must be a 32-char hex id")
	}
	if in.InterestMethod != "" && in.InterestMethod != loan.DecliningBalance && in.InterestMethod != loan.Flat {
		v = v.Add("interest_method", "must be DECLINING_BALANCE or FLAT")
	}
	return apperr.Merge(v, in.Facts.Validate())
}

// Upsert stores the group's facts. A stored evaluation stays until the next
// Assess, but the cached copy is dropped.
func (u *Usecase) Upsert(ctx context.Context, in UpsertInput) (*domain.GroupBusinessRules, error) {
	if err := validateUpsert(in).Err(); err != nil {
		return nil, err
	}

	var out *domain.GroupBusinessRules
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		g, err := r.Rules.GetByGroupID(ctx, in.GroupID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			g = &domain.GroupBusinessRules{
				GroupID:            in.GroupID,
				RequiresMemberVote: true,
				InterestMethod:     loan.DecliningBalance,
				ManualAttendance:   true,
			}
		case err != nil:
			return err
		}
		g.Facts = in.Facts
		if in.RequiresMemberVote != nil {
			g.RequiresMemberVote = *in.RequiresMemberVote
		}
		if in.InterestMethod != "" {
			g.InterestMethod = in.InterestMethod
		}
		out = g
		return r.Rules.Upsert(ctx, g)
	})
	if err != nil {
		return nil, err
	}

	u.dropCached(ctx, in.GroupID)
	u.log.InfoContext(ctx, "group facts updated", log.FieldGroupID, in.GroupID)
	return out, nil
}

func (u *Usecase) dropCached(ctx context.Context, groupID string) {
	if err := u.cache.Invalidate(ctx, groupID); err != nil {
		u.log.WarnContext(ctx, "eligibility cache invalidate failed", log.FieldGroupID, groupID, log.FieldError, err)
	}
}

// Assess evaluates the stored facts against the configured policy and
// persists the composite score, gate results and attendance modes.
func (u *Usecase) Assess(ctx context.Context, groupID string) (*domain.GroupBusinessRules, error) {
	p, err := u.policies.Policies(ctx)
	if err != nil {
		return nil, err
	}
	now := u.now()

	var out *domain.GroupBusinessRules
	var ev domain.Evaluation
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		g, err := r.Rules.GetByGroupID(ctx, groupID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		ev = domain.Evaluate(g.Facts, p.Rules)
		gates, err := json.Marshal(ev.Gates)
		if err != nil {
			return err
		}
		g.CompositeScore = ev.Composite
		g.EligibleForEnhancedFeatures = ev.Eligible
		g.GateResults = datatypes.JSON(gates)
		g.ManualAttendance = ev.Modes.Manual
		g.HybridAttendance = ev.Modes.Hybrid
		g.DigitalAttendance = ev.Modes.Digital
		g.LastAssessedAt = &now
		out = g
		return r.Rules.Upsert(ctx, g)
	})
	if err != nil {
		return nil, err
	}

	if err := u.cache.Set(ctx, out); err != nil {
		u.log.WarnContext(ctx, "eligibility cache write failed", log.FieldGroupID, groupID, log.FieldError, err)
	}
	u.log.InfoContext(ctx, "group rules assessed",
		log.FieldGroupID, groupID, "composite", ev.Composite.StringFixed(2), "eligible", ev.Eligible)
	return out, nil
}

// Get returns the group's rules, served from the cache once assessed.
func (u *Usecase) Get(ctx context.Context, groupID string) (*domain.GroupBusinessRules, error) {
	if g, ok, err := u.cache.Get(ctx, groupID); err != nil {
		u.log.WarnContext(ctx, "eligibility cache read failed", log.FieldGroupID, groupID, log.FieldError, err)
	} else if ok {
		return g, nil
	}

	g, err := u.repo.GetByGroupID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if g.LastAssessedAt != nil {
		if err := u.cache.Set(ctx, g); err != nil {
			u.log.WarnContext(ctx, "eligibility cache write failed", log.FieldGroupID, groupID, log.FieldError, err)
		}
	}
	return g, nil
}

// Evaluate scores facts against the current policy without storing anything.
func (u *Usecase) Evaluate(ctx context.Context, f domain.Facts) (domain.Evaluation, error) {
	if err := f.Validate().Err(); err != nil {
		return domain.Evaluation{}, err
	}
	p, err := u.policies.Policies(ctx)
	if err != nil {
		return domain.Evaluation{}, err
	}
	return domain.Evaluate(f, p.Rules), nil
}
