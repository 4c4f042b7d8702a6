package mysql

import (
	"context"
	"time"

	loanDomain "vsla-ledger/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

// ----- assessments -----

func (r *LoanRepository) CreateAssessment(ctx context.Context, a *loanDomain.Assessment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *LoanRepository) GetAssessment(ctx context.Context, assessmentID string) (*loanDomain.Assessment, error) {
	var out loanDomain.Assessment
	res := r.db.WithContext(ctx).Where("assessment_id = ?", assessmentID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) CurrentAssessment(ctx context.Context, memberID string) (*loanDomain.Assessment, error) {
	var out loanDomain.Assessment
	res := r.db.WithContext(ctx).
		Where("member_id = ? AND is_current = ?", memberID, true).
		Order("assessed_at DESC, id DESC").
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) SupersedeAssessments(ctx context.Context, memberID string) error {
	return r.db.WithContext(ctx).
		Model(&loanDomain.Assessment{}).
		Where("member_id = ? AND is_current = ?", memberID, true).
		Update("is_current", false).Error
}

// ----- applications -----

func (r *LoanRepository) CreateApplication(ctx context.Context, a *loanDomain.Application) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *LoanRepository) SaveApplication(ctx context.Context, a *loanDomain.Application) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *LoanRepository) GetApplication(ctx context.Context, applicationID string) (*loanDomain.Application, error) {
	var out loanDomain.Application
	res := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetApplicationForUpdate(ctx context.Context, applicationID string) (*loanDomain.Application, error) {
	var out loanDomain.Application
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("application_id = ?", applicationID).
		First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetApplicationByVoteID(ctx context.Context, voteID string) (*loanDomain.Application, error) {
	var out loanDomain.Application
	res := r.db.WithContext(ctx).Where("vote_id = ?", voteID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetOpenApplicationByApplicant(ctx context.Context, applicantID string) (*loanDomain.Application, error) {
	var out loanDomain.Application
	res := r.db.WithContext(ctx).
		Where("applicant_id = ? AND status IN ?", applicantID,
			[]loanDomain.ApplicationStatus{loanDomain.AppSubmitted, loanDomain.AppUnderReview}).
		Order("status_updated_at DESC, id DESC").
		First(&out)
	return &out, res.Error
}

// ----- loans -----

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.GroupLoan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.GroupLoan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.GroupLoan, error) {
	var out loanDomain.GroupLoan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.GroupLoan, error) {
	var out loanDomain.GroupLoan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	return &out, res.Error
}

// ----- schedules -----

func (r *LoanRepository) CreateSchedule(ctx context.Context, rows []loanDomain.Installment) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *LoanRepository) Schedule(ctx context.Context, loanID string) ([]loanDomain.Installment, error) {
	var out []loanDomain.Installment
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("installment_number ASC").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) SaveInstallment(ctx context.Context, i *loanDomain.Installment) error {
	return r.db.WithContext(ctx).Save(i).Error
}

func (r *LoanRepository) DueUnpaid(ctx context.Context, asOf time.Time) ([]loanDomain.Installment, error) {
	db := r.db.WithContext(ctx)
	repayable := db.Model(&loanDomain.GroupLoan{}).
		Select("loan_id").
		Where("status IN ?", []loanDomain.Status{loanDomain.StatusDisbursed, loanDomain.StatusPartiallyRepaid})
	var out []loanDomain.Installment
	res := db.
		Where("due_date < ? AND status <> ? AND loan_id IN (?)", asOf.UTC(), loanDomain.InstallmentPaid, repayable).
		Order("loan_id ASC, installment_number ASC").
		Find(&out)
	return out, res.Error
}
