package uowmock

import (
	"context"
	"errors"

	"vsla-ledger/internal/domain/loan"
	"vsla-ledger/internal/domain/uow"
	"vsla-ledger/internal/domain/vote"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn            func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinLoanTxFn        func(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.GroupLoan) error) error
	WithinApplicationTxFn func(ctx context.Context, applicationID string, fn func(r uow.Repos, a *loan.Application) error) error
	WithinVoteTxFn        func(ctx context.Context, voteID string, fn func(r uow.Repos, v *vote.Vote) error) error
}

// Convenience fluent setters
func New() *UoW { return &UoW{} }

// Over returns a UoW that runs every body directly against repos, loading the
// locked row through the same getters the real implementation uses.
func Over(repos uow.Repos) *UoW {
	return &UoW{
		WithinTxFn: func(_ context.Context, fn func(uow.Repos) error) error { return fn(repos) },
		WithinLoanTxFn: func(ctx context.Context, loanID string, fn func(uow.Repos, *loan.GroupLoan) error) error {
			l, err := repos.Loans.GetByLoanIDForUpdate(ctx, loanID)
			if err != nil {
				return err
			}
			return fn(repos, l)
		},
		WithinApplicationTxFn: func(ctx context.Context, applicationID string, fn func(uow.Repos, *loan.Application) error) error {
			a, err := repos.Loans.GetApplicationForUpdate(ctx, applicationID)
			if err != nil {
				return err
			}
			return fn(repos, a)
		},
		WithinVoteTxFn: func(ctx context.Context, voteID string, fn func(uow.Repos, *vote.Vote) error) error {
			v, err := repos.Votes.GetByVoteIDForUpdate(ctx, voteID)
			if err != nil {
				return err
			}
			return fn(repos, v)
		},
	}
}

func (m *UoW) WithWithinTx(fn func(context.Context, func(uow.Repos) error) error) *UoW {
	m.WithinTxFn = fn
	return m
}
func (m *UoW) WithWithinLoanTx(fn func(context.Context, string, func(uow.Repos, *loan.GroupLoan) error) error) *UoW {
	m.WithinLoanTxFn = fn
	return m
}
func (m *UoW) WithWithinApplicationTx(fn func(context.Context, string, func(uow.Repos, *loan.Application) error) error) *UoW {
	m.WithinApplicationTxFn = fn
	return m
}
func (m *UoW) WithWithinVoteTx(fn func(context.Context, string, func(uow.Repos, *vote.Vote) error) error) *UoW {
	m.WithinVoteTxFn = fn
	return m
}
func (m *UoW) Reset() { *m = UoW{} }

// Methods implementing UnitOfWork
func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}
func (m *UoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.GroupLoan) error) error {
	if m.WithinLoanTxFn != nil {
		return m.WithinLoanTxFn(ctx, loanID, fn)
	}
	return errUnimplemented
}
func (m *UoW) WithinApplicationTx(ctx context.Context, applicationID string, fn func(r uow.Repos, a *loan.Application) error) error {
	if m.WithinApplicationTxFn != nil {
		return m.WithinApplicationTxFn(ctx, applicationID, fn)
	}
	return errUnimplemented
}
func (m *UoW) WithinVoteTx(ctx context.Context, voteID string, fn func(r uow.Repos, v *vote.Vote) error) error {
	if m.WithinVoteTxFn != nil {
		return m.WithinVoteTxFn(ctx, voteID, fn)
	}
	return errUnimplemented
}
