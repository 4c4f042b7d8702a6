package loan

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"vsla-ledger/internal/domain/apperr"
	domain "vsla-ledger/internal/domain/loan"
	"vsla-ledger/internal/domain/uow"
	"vsla-ledger/internal/testutil/loanmock"
	"vsla-ledger/internal/testutil/uowmock"
	"vsla-ledger/internal/usecase/settings"
	"vsla-ledger/pkg/id"
)

// ----- helpers -----

func mockUsecase(repo *loanmock.Repo) *Usecase {
	u := NewUsecase(repo, uowmock.Over(uow.Repos{Loans: repo}), settings.Fixed(settings.Defaults()), nil, nil)
	u.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	return u
}

// ----- tests -----

func TestGet_MapsRecordNotFound(t *testing.T) {
	uc := mockUsecase(&loanmock.Repo{
		GetByLoanIDFn: func(ctx context.Context, loanID string) (*domain.GroupLoan, error) {
			return nil, gorm.ErrRecordNotFound
		},
		GetApplicationFn: func(ctx context.Context, applicationID string) (*domain.Application, error) {
			return nil, gorm.ErrRecordNotFound
		},
	})

	if _, err := uc.Get(context.Background(), id.NewID32()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get: want ErrNotFound, got %v", err)
	}
	if _, err := uc.GetApplication(context.Background(), id.NewID32()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("GetApplication: want ErrNotFound, got %v", err)
	}
}

func TestGet_PassesThroughStorageErrors(t *testing.T) {
	boom := errors.New("connection reset")
	uc := mockUsecase(&loanmock.Repo{
		GetByLoanIDFn: func(ctx context.Context, loanID string) (*domain.GroupLoan, error) { return nil, boom },
	})
	if _, err := uc.Get(context.Background(), id.NewID32()); !errors.Is(err, boom) {
		t.Fatalf("want storage error, got %v", err)
	}
}

func TestSubmit_ValidationTouchesNoStorage(t *testing.T) {
	uc := mockUsecase(&loanmock.Repo{
		CreateApplicationFn: func(ctx context.Context, a *domain.Application) error {
			t.Fatalf("CreateApplication must not be called")
			return nil
		},
	})

	applicant := id.NewID32()
	_, err := uc.Submit(context.Background(), SubmitInput{
		GroupID:     "short",
		ApplicantID: applicant,
		TermMonths:  0,
		Guarantors:  []GuarantorInput{{MemberID: applicant}},
	})
	var v apperr.Violations
	if !errors.As(err, &v) {
		t.Fatalf("want Violations, got %v", err)
	}
	fields := map[string]bool{}
	for _, x := range v {
		fields[x.Field] = true
	}
	for _, f := range []string{"group_id", "requested_amount", "requested_term_months", "guarantors"} {
		if !fields[f] {
			t.Fatalf("missing violation for %s in %v", f, v)
		}
	}
}

func TestApproveLoan_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.Status
		wantErr bool
	}{
		{"pending approves", domain.StatusPending, false},
		{"approved cannot approve again", domain.StatusApproved, true},
		{"closed is terminal", domain.StatusClosed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := false
			uc := mockUsecase(&loanmock.Repo{
				GetByLoanIDForUpdateFn: func(ctx context.Context, loanID string) (*domain.GroupLoan, error) {
					return &domain.GroupLoan{LoanID: loanID, Status: tt.from}, nil
				},
				SaveFn: func(ctx context.Context, l *domain.GroupLoan) error {
					saved = true
					return nil
				},
			})

			l, err := uc.ApproveLoan(context.Background(), id.NewID32())
			if tt.wantErr {
				var te *apperr.TransitionError
				if !errors.As(err, &te) {
					t.Fatalf("want TransitionError, got %v", err)
				}
				if te.From != string(tt.from) || te.To != string(domain.StatusApproved) {
					t.Fatalf("unexpected transition error %+v", te)
				}
				if saved {
					t.Fatalf("Save called on a rejected transition")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApproveLoan err: %v", err)
			}
			if l.Status != domain.StatusApproved || !saved {
				t.Fatalf("loan not approved and saved: %+v saved=%v", l, saved)
			}
		})
	}
}

func TestRepay_RejectsBadInputAndUnrepayableLoans(t *testing.T) {
	uc := mockUsecase(&loanmock.Repo{
		GetByLoanIDForUpdateFn: func(ctx context.Context, loanID string) (*domain.GroupLoan, error) {
			return &domain.GroupLoan{LoanID: loanID, Status: domain.StatusApproved}, nil
		},
		ScheduleFn: func(ctx context.Context, loanID string) ([]domain.Installment, error) {
			t.Fatalf("schedule must not be read for an undisbursed loan")
			return nil, nil
		},
	})
	ctx := context.Background()

	_, err := uc.Repay(ctx, RepayInput{LoanID: id.NewID32()})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("want validation error, got %v", err)
	}

	_, err = uc.Repay(ctx, RepayInput{LoanID: id.NewID32(), Amount: d("100"), PaidAt: time.Now(), CreatedBy: "treasurer"})
	if !errors.Is(err, apperr.ErrIllegalTransition) {
		t.Fatalf("want illegal transition, got %v", err)
	}
}

func TestMarkOverdue_NothingDue(t *testing.T) {
	uc := mockUsecase(&loanmock.Repo{
		DueUnpaidFn: func(ctx context.Context, asOf time.Time) ([]domain.Installment, error) { return nil, nil },
	})
	n, err := uc.MarkOverdue(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("want 0, nil; got %d, %v", n, err)
	}
}

func TestMarkOverdue_CountsOnlyCommittedLoans(t *testing.T) {
	past := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	rows := func(loanID string, n int) []domain.Installment {
		out := make([]domain.Installment, n)
		for i := range out {
			out[i] = domain.Installment{
				LoanID: loanID, Number: i + 1, DueDate: past.AddDate(0, 0, i),
				PrincipalAmount: d("900"), InterestAmount: d("100"), TotalAmount: d("1000"),
				Status: domain.InstallmentPending,
			}
		}
		return out
	}
	repo := &loanmock.Repo{
		DueUnpaidFn: func(ctx context.Context, asOf time.Time) ([]domain.Installment, error) {
			return append(rows("loan-a", 2), rows("loan-b", 3)...), nil
		},
		GetByLoanIDForUpdateFn: func(ctx context.Context, loanID string) (*domain.GroupLoan, error) {
			return &domain.GroupLoan{LoanID: loanID, Status: domain.StatusDisbursed}, nil
		},
		ScheduleFn: func(ctx context.Context, loanID string) ([]domain.Installment, error) {
			if loanID == "loan-a" {
				return rows(loanID, 2), nil
			}
			return rows(loanID, 3), nil
		},
		SaveInstallmentFn: func(ctx context.Context, i *domain.Installment) error { return nil },
	}
	uc := mockUsecase(repo)

	commitFailed := errors.New("commit failed")
	tx := uowmock.Over(uow.Repos{Loans: repo})
	inner := tx.WithinLoanTxFn
	tx.WithWithinLoanTx(func(ctx context.Context, loanID string, fn func(uow.Repos, *domain.GroupLoan) error) error {
		if err := inner(ctx, loanID, fn); err != nil {
			return err
		}
		if loanID == "loan-b" {
			return commitFailed
		}
		return nil
	})
	uc.uow = tx

	n, err := uc.MarkOverdue(context.Background())
	if !errors.Is(err, commitFailed) {
		t.Fatalf("want commit error, got %v", err)
	}
	if n != 2 {
		t.Fatalf("rolled back rows must not be counted: got %d, want 2", n)
	}
}
