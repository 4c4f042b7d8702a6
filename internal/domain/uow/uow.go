package uow

import (
	"context"

	"vsla-ledger/internal/domain/approval"
	"vsla-ledger/internal/domain/ledger"
	"vsla-ledger/internal/domain/loan"
	"vsla-ledger/internal/domain/member"
	"vsla-ledger/internal/domain/rules"
	"vsla-ledger/internal/domain/sysconfig"
	"vsla-ledger/internal/domain/vote"
)

// Repos are bound to one transaction; code running inside WithinTx must use
// only these and never the top-level repositories.
type Repos struct {
	Ledger    ledger.Repository
	Loans     loan.Repository
	Approvals approval.Repository
	Votes     vote.Repository
	Rules     rules.Repository
	Settings  sysconfig.Repository
	Members   member.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.GroupLoan) error) error
	// convenience: lock the application first, then pass it in
	WithinApplicationTx(ctx context.Context, applicationID string, fn func(r Repos, a *loan.Application) error) error
	// convenience: lock the vote first, then pass it in
	WithinVoteTx(ctx context.Context, voteID string, fn func(r Repos, v *vote.Vote) error) error
}
