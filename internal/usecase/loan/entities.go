package loan

import (
	"time"

	"github.com/shopspring/decimal"

	"vsla-ledger/internal/domain/ledger"
	"vsla-ledger/internal/domain/loan"
)

type GuarantorInput struct {
	MemberID string          `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
}

type SubmitInput struct {
	GroupID         string           `json:"group_id"`
	ApplicantID     string           `json:"applicant_id"`
	RequestedAmount decimal.Decimal  `json:"requested_amount"`
	TermMonths      int              `json:"requested_term_months"`
	Purpose         string           `json:"purpose"`
	Guarantors      []GuarantorInput `json:"guarantors"`
}

type RejectInput struct {
	ApplicationID string `json:"application_id"`
	ReviewerID    string `json:"reviewer_id"`
	Reason        string `json:"reason"`
}

// ApproveInput: zero Amount, TermMonths or InterestRate fall back to the
// requested terms and the configured default rate.
type ApproveInput struct {
	ApplicationID string           `json:"application_id"`
	ReviewerID    string           `json:"reviewer_id"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	TermMonths    int              `json:"term_months,omitempty"`
	InterestRate  *decimal.Decimal `json:"interest_rate,omitempty"`
}

type Approved struct {
	Application *loan.Application `json:"application"`
	Loan        *loan.GroupLoan   `json:"loan"`
}

// CreateLoanInput creates a loan directly, outside the application flow.
type CreateLoanInput struct {
	GroupID        string              `json:"group_id"`
	MemberID       string              `json:"member_id"`
	Principal      decimal.Decimal     `json:"principal"`
	TermMonths     int                 `json:"term_months"`
	AnnualRate     *decimal.Decimal    `json:"annual_rate,omitempty"`
	InterestMethod loan.InterestMethod `json:"interest_method,omitempty"`
}

type DisburseInput struct {
	LoanID      string    `json:"loan_id"`
	DisbursedAt time.Time `json:"disbursed_at"`
	CreatedBy   string    `json:"created_by"`
}

type RepayInput struct {
	LoanID    string          `json:"loan_id"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	CreatedBy string          `json:"created_by"`
}

type Repayment struct {
	Loan       *loan.GroupLoan `json:"loan"`
	Entry      *ledger.Entry   `json:"entry"`
	Allocation loan.Allocation `json:"allocation"`
}
