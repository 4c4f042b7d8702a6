package mysql

import (
	"context"
	"errors"

	"vsla-ledger/internal/domain/loan"
	"vsla-ledger/internal/domain/uow"
	"vsla-ledger/internal/domain/vote"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

// Repos builds the repository set over db (a tx or the pool).
func Repos(db *gorm.DB) uow.Repos {
	return uow.Repos{
		Ledger:    &LedgerRepository{db: db},
		Loans:     &LoanRepository{db: db},
		Approvals: &ApprovalRepository{db: db},
		Votes:     &VoteRepository{db: db},
		Rules:     &RulesRepository{db: db},
		Settings:  &SettingsRepository{db: db},
		Members:   &MemberRepository{db: db},
	}
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Repos(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.GroupLoan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := Repos(tx)
		// lock the loan row up-front to prevent races
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return notFound(err, loan.ErrNotFound)
		}
		return fn(r, l)
	})
}

func (u *GormUoW) WithinApplicationTx(ctx context.Context, applicationID string, fn func(r uow.Repos, a *loan.Application) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := Repos(tx)
		a, err := r.Loans.GetApplicationForUpdate(ctx, applicationID)
		if err != nil {
			return notFound(err, loan.ErrApplicationNotFound)
		}
		return fn(r, a)
	})
}

func (u *GormUoW) WithinVoteTx(ctx context.Context, voteID string, fn func(r uow.Repos, v *vote.Vote) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := Repos(tx)
		v, err := r.Votes.GetByVoteIDForUpdate(ctx, voteID)
		if err != nil {
			return notFound(err, vote.ErrNotFound)
		}
		return fn(r, v)
	})
}
