package loanmock

import (
	"context"
	"time"

	domain "vsla-ledger/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset getters return context.Canceled; unset writers succeed.
type Repo struct {
	CreateAssessmentFn     func(ctx context.Context, a *domain.Assessment) error
	GetAssessmentFn        func(ctx context.Context, assessmentID string) (*domain.Assessment, error)
	CurrentAssessmentFn    func(ctx context.Context, memberID string) (*domain.Assessment, error)
	SupersedeAssessmentsFn func(ctx context.Context, memberID string) error

	CreateApplicationFn             func(ctx context.Context, a *domain.Application) error
	SaveApplicationFn               func(ctx context.Context, a *domain.Application) error
	GetApplicationFn                func(ctx context.Context, applicationID string) (*domain.Application, error)
	GetApplicationForUpdateFn       func(ctx context.Context, applicationID string) (*domain.Application, error)
	GetApplicationByVoteIDFn        func(ctx context.Context, voteID string) (*domain.Application, error)
	GetOpenApplicationByApplicantFn func(ctx context.Context, applicantID string) (*domain.Application, error)

	CreateFn               func(ctx context.Context, l *domain.GroupLoan) error
	SaveFn                 func(ctx context.Context, l *domain.GroupLoan) error
	GetByLoanIDFn          func(ctx context.Context, loanID string) (*domain.GroupLoan, error)
	GetByLoanIDForUpdateFn func(ctx context.Context, loanID string) (*domain.GroupLoan, error)

	CreateScheduleFn  func(ctx context.Context, rows []domain.Installment) error
	ScheduleFn        func(ctx context.Context, loanID string) ([]domain.Installment, error)
	SaveInstallmentFn func(ctx context.Context, i *domain.Installment) error
	DueUnpaidFn       func(ctx context.Context, asOf time.Time) ([]domain.Installment, error)
}

func (m *Repo) CreateAssessment(ctx context.Context, a *domain.Assessment) error {
	if m.CreateAssessmentFn != nil {
		return m.CreateAssessmentFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetAssessment(ctx context.Context, assessmentID string) (*domain.Assessment, error) {
	if m.GetAssessmentFn != nil {
		return m.GetAssessmentFn(ctx, assessmentID)
	}
	return nil, context.Canceled
}

func (m *Repo) CurrentAssessment(ctx context.Context, memberID string) (*domain.Assessment, error) {
	if m.CurrentAssessmentFn != nil {
		return m.CurrentAssessmentFn(ctx, memberID)
	}
	return nil, context.Canceled
}

func (m *Repo) SupersedeAssessments(ctx context.Context, memberID string) error {
	if m.SupersedeAssessmentsFn != nil {
		return m.SupersedeAssessmentsFn(ctx, memberID)
	}
	return nil
}

func (m *Repo) CreateApplication(ctx context.Context, a *domain.Application) error {
	if m.CreateApplicationFn != nil {
		return m.CreateApplicationFn(ctx, a)
	}
	return nil
}

func (m *Repo) SaveApplication(ctx context.Context, a *domain.Application) error {
	if m.SaveApplicationFn != nil {
		return m.SaveApplicationFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetApplication(ctx context.Context, applicationID string) (*domain.Application, error) {
	if m.GetApplicationFn != nil {
		return m.GetApplicationFn(ctx, applicationID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetApplicationForUpdate(ctx context.Context, applicationID string) (*domain.Application, error) {
	if m.GetApplicationForUpdateFn != nil {
		return m.GetApplicationForUpdateFn(ctx, applicationID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetApplicationByVoteID(ctx context.Context, voteID string) (*domain.Application, error) {
	if m.GetApplicationByVoteIDFn != nil {
		return m.GetApplicationByVoteIDFn(ctx, voteID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetOpenApplicationByApplicant(ctx context.Context, applicantID string) (*domain.Application, error) {
	if m.GetOpenApplicationByApplicantFn != nil {
		return m.GetOpenApplicationByApplicantFn(ctx, applicantID)
	}
	return nil, context.Canceled
}

func (m *Repo) Create(ctx context.Context, l *domain.GroupLoan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, l *domain.GroupLoan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.GroupLoan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled // or errors.New("not implemented")
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.GroupLoan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) CreateSchedule(ctx context.Context, rows []domain.Installment) error {
	if m.CreateScheduleFn != nil {
		return m.CreateScheduleFn(ctx, rows)
	}
	return nil
}

func (m *Repo) Schedule(ctx context.Context, loanID string) ([]domain.Installment, error) {
	if m.ScheduleFn != nil {
		return m.ScheduleFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) SaveInstallment(ctx context.Context, i *domain.Installment) error {
	if m.SaveInstallmentFn != nil {
		return m.SaveInstallmentFn(ctx, i)
	}
	return nil
}

func (m *Repo) DueUnpaid(ctx context.Context, asOf time.Time) ([]domain.Installment, error) {
	if m.DueUnpaidFn != nil {
		return m.DueUnpaidFn(ctx, asOf)
	}
	return nil, context.Canceled
}
