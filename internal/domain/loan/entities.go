package loan

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vsla-ledger/internal/domain/apperr"
)

var (
	ErrNotFound            = apperr.NotFound("loan")
	ErrApplicationNotFound = apperr.NotFound("loan application")
	ErrAssessmentNotFound  = apperr.NotFound("loan assessment")
	ErrAlreadyApproved     = fmt.Errorf("%w: officer approval already recorded", apperr.ErrConflict)
	ErrOpenApplication     = fmt.Errorf("%w: applicant already has an open application", apperr.ErrConflict)
	ErrApprovalBlocked     = fmt.Errorf("%w: approval conditions not met", apperr.ErrInvariant)
	ErrNotEligible         = fmt.Errorf("%w: applicant is not eligible for this amount", apperr.ErrInvariant)
	ErrUnpaidInstallments  = fmt.Errorf("%w: loan has unpaid installments", apperr.ErrInvariant)
	ErrOverpayment         = fmt.Errorf("%w: payment exceeds the amount still due", apperr.ErrValidation)
)

type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// Table: loan_assessments. Superseded rows stay with IsCurrent=false.
type Assessment struct {
	ID                    uint64          `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	AssessmentID          string          `gorm:"column:assessment_id;size:32;uniqueIndex" json:"assessment_id"`
	GroupID               string          `gorm:"column:group_id;size:32;not null;index" json:"group_id"`
	MemberID              string          `gorm:"column:member_id;size:32;not null;index:idx_assessments_member_current,priority:1" json:"member_id"`
	TotalSavings          decimal.Decimal `gorm:"column:total_savings;type:decimal(18,2);not null" json:"total_savings"`
	MonthsActive          int             `gorm:"column:months_active;not null" json:"months_active"`
	AttendanceRate        decimal.Decimal `gorm:"column:attendance_rate;type:decimal(5,2);not null" json:"attendance_rate"`
	PaymentConsistency    decimal.Decimal `gorm:"column:payment_consistency;type:decimal(5,2);not null" json:"payment_consistency"`
	OutstandingFines      decimal.Decimal `gorm:"column:outstanding_fines;type:decimal(18,2);not null" json:"outstanding_fines"`
	EligibilityScore      decimal.Decimal `gorm:"column:eligibility_score;type:decimal(5,2);not null" json:"eligibility_score"`
	IsEligible            bool            `gorm:"column:is_eligible;not null" json:"is_eligible"`
	MaxLoanAmount         decimal.Decimal `gorm:"column:max_loan_amount;type:decimal(18,2);not null" json:"max_loan_amount"`
	RecommendedTermMonths int             `gorm:"column:recommended_term_months;not null" json:"recommended_term_months"`
	RiskTier              RiskTier        `gorm:"column:risk_tier;size:8;not null" json:"risk_tier"`
	AssessedAt            time.Time       `gorm:"column:assessed_at;not null" json:"assessed_at"`
	ValidUntil            time.Time       `gorm:"column:valid_until;not null" json:"valid_until"`
	IsCurrent             bool            `gorm:"column:is_current;not null;index:idx_assessments_member_current,priority:2" json:"is_current"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Assessment) TableName() string { return "loan_assessments" }

// Usable reports whether the snapshot can still gate a review at now.
func (a *Assessment) Usable(now time.Time) bool {
	return a != nil && a.IsCurrent && now.Before(a.ValidUntil)
}

type ApplicationStatus string

const (
	AppSubmitted   ApplicationStatus = "SUBMITTED"
	AppUnderReview ApplicationStatus = "UNDER_REVIEW"
	AppApproved    ApplicationStatus = "APPROVED"
	AppRejected    ApplicationStatus = "REJECTED"
	AppWithdrawn   ApplicationStatus = "WITHDRAWN"
)

// Table: loan_applications
type Application struct {
	ID                   uint64            `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	ApplicationID        string            `gorm:"column:application_id;size:32;uniqueIndex" json:"application_id"`
	GroupID              string            `gorm:"column:group_id;size:32;not null;index" json:"group_id"`
	ApplicantID          string            `gorm:"column:applicant_id;size:32;not null;index:idx_applications_applicant_status,priority:1" json:"applicant_id"`
	RequestedAmount      decimal.Decimal   `gorm:"column:requested_amount;type:decimal(18,2);not null" json:"requested_amount"`
	RequestedTermMonths  int               `gorm:"column:requested_term_months;not null" json:"requested_term_months"`
	Purpose              string            `gorm:"column:purpose;type:text" json:"purpose"`
	Guarantor1ID         *string           `gorm:"column:guarantor1_id;size:32" json:"guarantor1_id,omitempty"`
	Guarantor1Amount     decimal.Decimal   `gorm:"column:guarantor1_amount;type:decimal(18,2);not null;default:0" json:"guarantor1_amount"`
	Guarantor2ID         *string           `gorm:"column:guarantor2_id;size:32" json:"guarantor2_id,omitempty"`
	Guarantor2Amount     decimal.Decimal   `gorm:"column:guarantor2_amount;type:decimal(18,2);not null;default:0" json:"guarantor2_amount"`
	AssessmentID         *string           `gorm:"column:assessment_id;size:32" json:"assessment_id,omitempty"`
	Status               ApplicationStatus `gorm:"column:status;size:16;not null;index:idx_applications_applicant_status,priority:2" json:"status"`
	ChairpersonApproved  bool              `gorm:"column:chairperson_approved;not null;default:false" json:"chairperson_approved"`
	TreasurerApproved    bool              `gorm:"column:treasurer_approved;not null;default:false" json:"treasurer_approved"`
	CommitteeApproved    bool              `gorm:"column:committee_approved;not null;default:false" json:"committee_approved"`
	VoteID               *string           `gorm:"column:vote_id;size:32" json:"vote_id,omitempty"`
	VotesFor             int               `gorm:"column:votes_for;not null;default:0" json:"votes_for"`
	VotesAgainst         int               `gorm:"column:votes_against;not null;default:0" json:"votes_against"`
	VotesAbstain         int               `gorm:"column:votes_abstain;not null;default:0" json:"votes_abstain"`
	ApprovedAmount       decimal.Decimal   `gorm:"column:approved_amount;type:decimal(18,2);not null;default:0" json:"approved_amount"`
	ApprovedTermMonths   int               `gorm:"column:approved_term_months;not null;default:0" json:"approved_term_months"`
	ApprovedInterestRate decimal.Decimal   `gorm:"column:approved_interest_rate;type:decimal(6,2);not null;default:0" json:"approved_interest_rate"`
	RejectionReason      string            `gorm:"column:rejection_reason;type:text" json:"rejection_reason,omitempty"`
	ReviewedBy           *string           `gorm:"column:reviewed_by;size:32" json:"reviewed_by,omitempty"`
	DecidedAt            *time.Time        `gorm:"column:decided_at" json:"decided_at,omitempty"`
	LoanID               *string           `gorm:"column:loan_id;size:32" json:"loan_id,omitempty"`
	StatusUpdatedAt      time.Time         `gorm:"column:status_updated_at" json:"status_updated_at"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Application) TableName() string { return "loan_applications" }

// Open reports whether the application still awaits a decision.
func (a *Application) Open() bool {
	return a.Status == AppSubmitted || a.Status == AppUnderReview
}

// OfficersApproved is the conjunction of the three officer flags.
func (a *Application) OfficersApproved() bool {
	return a.ChairpersonApproved && a.TreasurerApproved && a.CommitteeApproved
}

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusApproved        Status = "APPROVED"
	StatusDisbursed       Status = "DISBURSED"
	StatusPartiallyRepaid Status = "PARTIALLY_REPAID"
	StatusClosed          Status = "CLOSED"
)

type InterestMethod string

const (
	DecliningBalance InterestMethod = "DECLINING_BALANCE"
	Flat             InterestMethod = "FLAT"
)

// Table: group_loans
type GroupLoan struct {
	ID                  uint64          `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	LoanID              string          `gorm:"column:loan_id;size:32;uniqueIndex" json:"loan_id"`
	GroupID             string          `gorm:"column:group_id;size:32;not null;index" json:"group_id"`
	MemberID            string          `gorm:"column:member_id;size:32;not null;index" json:"member_id"`
	ApplicationID       *string         `gorm:"column:application_id;size:32;uniqueIndex" json:"application_id,omitempty"`
	Principal           decimal.Decimal `gorm:"column:principal;type:decimal(18,2);not null" json:"principal"`
	TermMonths          int             `gorm:"column:term_months;not null" json:"term_months"`
	AnnualRate          decimal.Decimal `gorm:"column:annual_rate;type:decimal(6,2);not null" json:"annual_rate"`
	InterestMethod      InterestMethod  `gorm:"column:interest_method;size:24;not null" json:"interest_method"`
	Status              Status          `gorm:"column:status;size:20;not null;index" json:"status"`
	TotalInterest       decimal.Decimal `gorm:"column:total_interest;type:decimal(18,2);not null;default:0" json:"total_interest"`
	OutstandingBalance  decimal.Decimal `gorm:"column:outstanding_balance;type:decimal(18,2);not null;default:0" json:"outstanding_balance"`
	// TotalRepaid counts principal and interest only; late fees go to LateFeesPaid.
	TotalRepaid         decimal.Decimal `gorm:"column:total_repaid;type:decimal(18,2);not null;default:0" json:"total_repaid"`
	LateFeesPaid        decimal.Decimal `gorm:"column:late_fees_paid;type:decimal(18,2);not null;default:0" json:"late_fees_paid"`
	DisbursementEntryID *string         `gorm:"column:disbursement_entry_id;size:32" json:"disbursement_entry_id,omitempty"`
	DisbursedAt         *time.Time      `gorm:"column:disbursed_at" json:"disbursed_at,omitempty"`
	ClosedAt            *time.Time      `gorm:"column:closed_at" json:"closed_at,omitempty"`
	StateUpdatedAt      time.Time       `gorm:"column:state_updated_at" json:"state_updated_at"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (GroupLoan) TableName() string { return "group_loans" }

// Repayable reports whether installments can still be paid.
func (l *GroupLoan) Repayable() bool {
	return l.Status == StatusDisbursed || l.Status == StatusPartiallyRepaid
}

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "PENDING"
	InstallmentPaid    InstallmentStatus = "PAID"
	InstallmentOverdue InstallmentStatus = "OVERDUE"
	InstallmentPartial InstallmentStatus = "PARTIAL"
)

// Table: loan_repayment_schedules
type Installment struct {
	ID              uint64            `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	LoanID          string            `gorm:"column:loan_id;size:32;not null;uniqueIndex:ux_schedule_loan_number,priority:1" json:"loan_id"`
	Number          int               `gorm:"column:installment_number;not null;uniqueIndex:ux_schedule_loan_number,priority:2" json:"installment_number"`
	DueDate         time.Time         `gorm:"column:due_date;not null" json:"due_date"`
	PrincipalAmount decimal.Decimal   `gorm:"column:principal_amount;type:decimal(18,2);not null" json:"principal_amount"`
	InterestAmount  decimal.Decimal   `gorm:"column:interest_amount;type:decimal(18,2);not null" json:"interest_amount"`
	TotalAmount     decimal.Decimal   `gorm:"column:total_amount;type:decimal(18,2);not null" json:"total_amount"`
	AmountPaid      decimal.Decimal   `gorm:"column:amount_paid;type:decimal(18,2);not null;default:0" json:"amount_paid"`
	Status          InstallmentStatus `gorm:"column:status;size:16;not null" json:"status"`
	DaysOverdue     int               `gorm:"column:days_overdue;not null;default:0" json:"days_overdue"`
	LateFee         decimal.Decimal   `gorm:"column:late_fee;type:decimal(18,2);not null;default:0" json:"late_fee"`
	LateFeePaid     decimal.Decimal   `gorm:"column:late_fee_paid;type:decimal(18,2);not null;default:0" json:"late_fee_paid"`
	PaidAt          *time.Time        `gorm:"column:paid_at" json:"paid_at,omitempty"`
}

func (Installment) TableName() string { return "loan_repayment_schedules" }

// Remaining is principal+interest not yet paid.
func (i *Installment) Remaining() decimal.Decimal {
	r := i.TotalAmount.Sub(i.AmountPaid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// LateFeeDue is the accrued late fee not yet paid.
func (i *Installment) LateFeeDue() decimal.Decimal {
	r := i.LateFee.Sub(i.LateFeePaid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Settled means both the installment and any accrued late fee are paid.
func (i *Installment) Settled() bool {
	return i.Remaining().IsZero() && i.LateFeeDue().IsZero()
}

// InterestPaid is the interest share of AmountPaid; payments cover interest first.
func (i *Installment) InterestPaid() decimal.Decimal {
	return decimal.Min(i.AmountPaid, i.InterestAmount)
}
