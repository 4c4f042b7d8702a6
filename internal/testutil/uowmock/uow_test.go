package uowmock

import (
	"context"
	"errors"
	"testing"

	"vsla-ledger/internal/domain/loan"
	"vsla-ledger/internal/domain/uow"
	"vsla-ledger/internal/domain/vote"
	"vsla-ledger/internal/testutil/approvalmock"
	"vsla-ledger/internal/testutil/loanmock"
)

func TestUoW_WithinTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	apprs := &approvalmock.Repo{}
	repos := uow.Repos{Loans: loans, Approvals: apprs}

	innerCalled := false
	m := &UoW{
		WithinTxFn: func(gotCtx context.Context, fn func(r uow.Repos) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinTx: ctx mismatch")
			}
			if fn == nil {
				t.Fatalf("WithinTx: fn is nil")
			}
			// simulate transaction body
			return fn(repos)
		},
	}

	err := m.WithinTx(ctx, func(r uow.Repos) error {
		innerCalled = true
		if r.Loans != loans || r.Approvals != apprs {
			t.Fatalf("WithinTx: repos not forwarded correctly")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinTx: inner fn not called")
	}
}

func TestUoW_WithinTx_PropagatesError(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("boom")

	m := &UoW{
		WithinTxFn: func(context.Context, func(uow.Repos) error) error {
			return sentinel
		},
	}
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_Defaults_Unimplemented(t *testing.T) {
	ctx := context.Background()
	m := &UoW{} // no funcs set
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinTx default: want errUnimplemented, got %v", err)
	}
	if err := m.WithinLoanTx(ctx, "LN-X", func(uow.Repos, *loan.GroupLoan) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinLoanTx default: want errUnimplemented, got %v", err)
	}
	if err := m.WithinApplicationTx(ctx, "AP-X", func(uow.Repos, *loan.Application) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinApplicationTx default: want errUnimplemented, got %v", err)
	}
	if err := m.WithinVoteTx(ctx, "VT-X", func(uow.Repos, *vote.Vote) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinVoteTx default: want errUnimplemented, got %v", err)
	}
}

func TestUoW_WithinLoanTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	repos := uow.Repos{Loans: loans}
	lock := &loan.GroupLoan{ID: 7, LoanID: "LN-7"}

	innerCalled := false
	m := &UoW{
		WithinLoanTxFn: func(gotCtx context.Context, loanID string, fn func(r uow.Repos, l *loan.GroupLoan) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinLoanTx: ctx mismatch")
			}
			if loanID != "LN-7" {
				t.Fatalf("WithinLoanTx: loanID mismatch, got %s", loanID)
			}
			return fn(repos, lock)
		},
	}

	err := m.WithinLoanTx(ctx, "LN-7", func(r uow.Repos, l *loan.GroupLoan) error {
		innerCalled = true
		if r.Loans != loans {
			t.Fatalf("WithinLoanTx: repos not forwarded")
		}
		if l != lock || l.LoanID != "LN-7" {
			t.Fatalf("WithinLoanTx: loan not forwarded correctly: %+v", l)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinLoanTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinLoanTx: inner fn not called")
	}
}

func TestOver_LoadsLockedRows(t *testing.T) {
	ctx := context.Background()
	app := &loan.Application{ApplicationID: "AP-1"}
	loans := &loanmock.Repo{
		GetApplicationForUpdateFn: func(_ context.Context, id string) (*loan.Application, error) {
			if id != "AP-1" {
				return nil, loan.ErrApplicationNotFound
			}
			return app, nil
		},
	}
	m := Over(uow.Repos{Loans: loans})

	var got *loan.Application
	if err := m.WithinApplicationTx(ctx, "AP-1", func(_ uow.Repos, a *loan.Application) error {
		got = a
		return nil
	}); err != nil {
		t.Fatalf("WithinApplicationTx: %v", err)
	}
	if got != app {
		t.Fatalf("WithinApplicationTx: application not forwarded")
	}

	err := m.WithinApplicationTx(ctx, "AP-2", func(uow.Repos, *loan.Application) error {
		t.Fatalf("body must not run when the lock fails")
		return nil
	})
	if !errors.Is(err, loan.ErrApplicationNotFound) {
		t.Fatalf("WithinApplicationTx: want ErrApplicationNotFound, got %v", err)
	}
}

func TestUoW_FluentSetters_And_Reset(t *testing.T) {
	m := New()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil {
		t.Fatalf("New should start with nil funcs")
	}

	// set via fluent setters
	m.WithWithinTx(func(context.Context, func(uow.Repos) error) error { return nil }).
		WithWithinLoanTx(func(context.Context, string, func(uow.Repos, *loan.GroupLoan) error) error { return nil }).
		WithWithinApplicationTx(func(context.Context, string, func(uow.Repos, *loan.Application) error) error { return nil }).
		WithWithinVoteTx(func(context.Context, string, func(uow.Repos, *vote.Vote) error) error { return nil })

	if m.WithinTxFn == nil || m.WithinLoanTxFn == nil || m.WithinApplicationTxFn == nil || m.WithinVoteTxFn == nil {
		t.Fatalf("fluent setters didn't assign funcs")
	}

	// reset clears funcs
	m.Reset()
	if m.WithinTxFn != nil || m.WithinLoanTxFn != nil || m.WithinApplicationTxFn != nil || m.WithinVoteTxFn != nil {
		t.Fatalf("Reset should clear function fields")
	}
}
