package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	loanDomain "vsla-ledger/internal/domain/loan"
	"vsla-ledger/internal/domain/uow"
	voteDomain "vsla-ledger/internal/domain/vote"
	"vsla-ledger/internal/testutil/dbtest"
	"vsla-ledger/pkg/id"

	"gorm.io/gorm"
)

// ----------------------------- Tests -----------------------------

func TestGormUoW_WithinTx_Commit(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	loanRepo := NewLoanRepository(db)
	apprRepo := NewApprovalRepository(db)

	loanID, appID := id.NewID32(), id.NewID32()
	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		l := makeGroupLoan(loanID, id.NewID32(), loanDomain.StatusPending)
		if err := r.Loans.Create(ctx, l); err != nil {
			return err
		}
		if l.ID == 0 {
			t.Fatalf("loan auto ID not set")
		}
		return r.Approvals.Create(ctx, makeOfficerApproval(appID, "CHAIRPERSON", time.Now()))
	})
	if err != nil {
		t.Fatalf("WithinTx commit err: %v", err)
	}

	// Verify post-commit visibility
	if _, err := loanRepo.GetByLoanID(ctx, loanID); err != nil {
		t.Fatalf("loan not visible after commit: %v", err)
	}
	if list, err := apprRepo.ListByApplication(ctx, appID); err != nil || len(list) != 1 {
		t.Fatalf("approval not visible after commit: %v %d", err, len(list))
	}
}

func TestGormUoW_WithinTx_Rollback(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	loanRepo := NewLoanRepository(db)
	apprRepo := NewApprovalRepository(db)

	sentinel := errors.New("boom")
	loanID, appID := id.NewID32(), id.NewID32()

	err := guow.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Loans.Create(ctx, makeGroupLoan(loanID, id.NewID32(), loanDomain.StatusPending)); err != nil {
			return err
		}
		if err := r.Approvals.Create(ctx, makeOfficerApproval(appID, "TREASURER", time.Now())); err != nil {
			return err
		}
		return sentinel // force rollback
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}

	// None should exist after rollback
	if _, err := loanRepo.GetByLoanID(ctx, loanID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected loan not found after rollback, got %v", err)
	}
	if list, _ := apprRepo.ListByApplication(ctx, appID); len(list) != 0 {
		t.Fatalf("expected no approvals after rollback, got %d", len(list))
	}
}

func TestGormUoW_WithinLoanTx(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	guow := NewGormUoW(db)
	loanRepo := NewLoanRepository(db)

	loanID := id.NewID32()
	if err := loanRepo.Create(ctx, makeGroupLoan(loanID, id.NewID32(), loanDomain.StatusPending)); err != nil {
		t.Fatalf("seed loan: %v", err)
	}

	if err := guow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loanDomain.GroupLoan) error {
		if l == nil || l.LoanID != loanID || l.Status != loanDomain.StatusPending {
			t.Fatalf("unexpected loan passed to fn: %+v", l)
		}
		if err := l.TransitionTo(loanDomain.StatusApproved, time.Now().UTC()); err != nil {
			return err
		}
		return r.Loans.Save(ctx, l)
	}); err != nil {
		t.Fatalf("WithinLoanTx commit err: %v", err)
	}

	got, err := loanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		t.Fatalf("GetByLoanID post-commit: %v", err)
	}
	if got.Status != loanDomain.StatusApproved {
		t.Fatalf("loan status not updated, got=%s", got.Status)
	}

	// a rolled-back change leaves the row as it was
	_ = guow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loanDomain.GroupLoan) error {
		l.Status = loanDomain.StatusClosed
		if err := r.Loans.Save(ctx, l); err != nil {
			return err
		}
		return errors.New("stop")
	})
	got, _ = loanRepo.GetByLoanID(ctx, loanID)
	if got.Status != loanDomain.StatusApproved {
		t.Fatalf("rollback did not restore status, got=%s", got.Status)
	}
}

func TestGormUoW_LockHelpersMapNotFound(t *testing.T) {
	guow := NewGormUoW(dbtest.Open(t))
	ctx := context.Background()
	never := func(uow.Repos) { t.Fatalf("fn must not run") }

	err := guow.WithinLoanTx(ctx, id.NewID32(), func(r uow.Repos, _ *loanDomain.GroupLoan) error { never(r); return nil })
	if !errors.Is(err, loanDomain.ErrNotFound) {
		t.Fatalf("want loan.ErrNotFound, got %v", err)
	}
	err = guow.WithinApplicationTx(ctx, id.NewID32(), func(r uow.Repos, _ *loanDomain.Application) error { never(r); return nil })
	if !errors.Is(err, loanDomain.ErrApplicationNotFound) {
		t.Fatalf("want loan.ErrApplicationNotFound, got %v", err)
	}
	err = guow.WithinVoteTx(ctx, id.NewID32(), func(r uow.Repos, _ *voteDomain.Vote) error { never(r); return nil })
	if !errors.Is(err, voteDomain.ErrNotFound) {
		t.Fatalf("want vote.ErrNotFound, got %v", err)
	}
}
