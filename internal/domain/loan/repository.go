package loan

import (
	"context"
	"time"
)

type Repository interface {
	// Assessments
	CreateAssessment(ctx context.Context, a *Assessment) error
	GetAssessment(ctx context.Context, assessmentID string) (*Assessment, error)
	CurrentAssessment(ctx context.Context, memberID string) (*Assessment, error)
	// SupersedeAssessments clears is_current on every assessment of the member.
	SupersedeAssessments(ctx context.Context, memberID string) error

	// Applications
	CreateApplication(ctx context.Context, a *Application) error
	SaveApplication(ctx context.Context, a *Application) error
	GetApplication(ctx context.Context, applicationID string) (*Application, error)
	GetApplicationForUpdate(ctx context.Context, applicationID string) (*Application, error)
	GetApplicationByVoteID(ctx context.Context, voteID string) (*Application, error)
	GetOpenApplicationByApplicant(ctx context.Context, applicantID string) (*Application, error)

	// Loans
	Create(ctx context.Context, l *GroupLoan) error
	Save(ctx context.Context, l *GroupLoan) error
	GetByLoanID(ctx context.Context, loanID string) (*GroupLoan, error)
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*GroupLoan, error)

	// Schedules, ordered by installment number
	CreateSchedule(ctx context.Context, rows []Installment) error
	Schedule(ctx context.Context, loanID string) ([]Installment, error)
	SaveInstallment(ctx context.Context, i *Installment) error
	// DueUnpaid returns unsettled installments of repayable loans due before asOf.
	DueUnpaid(ctx context.Context, asOf time.Time) ([]Installment, error)
}
