package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vsla-ledger/internal/domain/apperr"
)

var (
	ErrNotFound          = apperr.NotFound("ledger entry")
	ErrNegativeBalance   = fmt.Errorf("%w: posting would drive a balance negative", apperr.ErrInvariant)
	ErrAlreadyReversed   = fmt.Errorf("%w: entry already reversed", apperr.ErrInvariant)
	ErrNotReversible     = fmt.Errorf("%w: only ACTIVE or CORRECTED entries can be reversed", apperr.ErrInvariant)
	ErrBackdated         = fmt.Errorf("%w: transaction date precedes the latest entry of the group", apperr.ErrValidation)
	ErrConcurrentPosting = fmt.Errorf("%w: ledger head moved during posting", apperr.ErrConflict)
	ErrChainMismatch     = errors.New("stored running balance does not match replay")
)

type EntryType string

const (
	EntryDeposit    EntryType = "DEPOSIT"
	EntryWithdrawal EntryType = "WITHDRAWAL"
	EntryLoan       EntryType = "LOAN"
	EntryFine       EntryType = "FINE"
	EntryInterest   EntryType = "INTEREST"
	EntryTransfer   EntryType = "TRANSFER"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryDeposit, EntryWithdrawal, EntryLoan, EntryFine, EntryInterest, EntryTransfer:
		return true
	}
	return false
}

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusReversed  Status = "REVERSED"
	StatusCorrected Status = "CORRECTED"
)

// Fund identifies one running balance column.
type Fund string

const (
	FundSavings  Fund = "savings"
	FundECD      Fund = "ecd"
	FundSocial   Fund = "social"
	FundTarget   Fund = "target_savings"
	FundFines    Fund = "fines"
	FundLoan     Fund = "loan"
	FundInterest Fund = "interest"
	FundTotal    Fund = "total"
)

// Funds lists every fund in balance-column order (total excluded).
var Funds = []Fund{FundSavings, FundECD, FundSocial, FundTarget, FundFines, FundLoan, FundInterest}

func ParseFund(s string) (Fund, bool) {
	f := Fund(s)
	if f == FundTotal {
		return f, true
	}
	for _, x := range Funds {
		if x == f {
			return f, true
		}
	}
	return "", false
}

// Amounts are the non-negative per-fund figures carried by one entry.
type Amounts struct {
	Savings        decimal.Decimal `gorm:"column:savings_amount;type:decimal(18,2);not null;default:0" json:"savings"`
	ECD            decimal.Decimal `gorm:"column:ecd_amount;type:decimal(18,2);not null;default:0" json:"ecd"`
	Social         decimal.Decimal `gorm:"column:social_amount;type:decimal(18,2);not null;default:0" json:"social"`
	TargetSavings  decimal.Decimal `gorm:"column:target_savings_amount;type:decimal(18,2);not null;default:0" json:"target_savings"`
	Fines          decimal.Decimal `gorm:"column:fines_amount;type:decimal(18,2);not null;default:0" json:"fines"`
	LoanDisbursed  decimal.Decimal `gorm:"column:loan_disbursed;type:decimal(18,2);not null;default:0" json:"loan_disbursed"`
	LoanRepaid     decimal.Decimal `gorm:"column:loan_repaid;type:decimal(18,2);not null;default:0" json:"loan_repaid"`
	InterestEarned decimal.Decimal `gorm:"column:interest_earned;type:decimal(18,2);not null;default:0" json:"interest_earned"`
}

// Balances are the running balances immediately after an entry.
type Balances struct {
	Savings       decimal.Decimal `gorm:"column:savings_balance;type:decimal(18,2);not null;default:0" json:"savings"`
	ECD           decimal.Decimal `gorm:"column:ecd_balance;type:decimal(18,2);not null;default:0" json:"ecd"`
	Social        decimal.Decimal `gorm:"column:social_balance;type:decimal(18,2);not null;default:0" json:"social"`
	TargetSavings decimal.Decimal `gorm:"column:target_savings_balance;type:decimal(18,2);not null;default:0" json:"target_savings"`
	Fines         decimal.Decimal `gorm:"column:fines_balance;type:decimal(18,2);not null;default:0" json:"fines"`
	Loan          decimal.Decimal `gorm:"column:loan_balance;type:decimal(18,2);not null;default:0" json:"loan"`
	Interest      decimal.Decimal `gorm:"column:interest_balance;type:decimal(18,2);not null;default:0" json:"interest"`
	Total         decimal.Decimal `gorm:"column:total_balance;type:decimal(18,2);not null;default:0" json:"total"`
}

// Table: ledger_entries. Rows are append-only.
type Entry struct {
	ID      uint64 `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	EntryID string `gorm:"column:entry_id;size:32;uniqueIndex:ux_ledger_entries_entry_id" json:"entry_id"`
	GroupID string `gorm:"column:group_id;size:32;not null;uniqueIndex:ux_ledger_entries_group_seq,priority:1" json:"group_id"`
	// Seq is the per-group posting ordinal; the balance chain follows it.
	Seq             uint64    `gorm:"column:seq;not null;uniqueIndex:ux_ledger_entries_group_seq,priority:2" json:"seq"`
	MemberID        *string   `gorm:"column:member_id;size:32;index:idx_ledger_entries_member" json:"member_id,omitempty"`
	TransactionDate time.Time `gorm:"column:transaction_date;not null;index" json:"transaction_date"`
	Description     string    `gorm:"column:description;type:text" json:"description"`
	Reference       string    `gorm:"column:reference;size:64" json:"reference,omitempty"`
	EntryType       EntryType `gorm:"column:entry_type;size:16;not null" json:"entry_type"`
	Status          Status    `gorm:"column:status;size:16;not null" json:"status"`
	TransferFrom    *Fund     `gorm:"column:transfer_from;size:16" json:"transfer_from,omitempty"`
	ReversesEntryID *string   `gorm:"column:reverses_entry_id;size:32;index" json:"reverses_entry_id,omitempty"`
	CorrectsEntryID *string   `gorm:"column:corrects_entry_id;size:32;index" json:"corrects_entry_id,omitempty"`
	Amounts         `gorm:"embedded"`
	Balances        Balances  `gorm:"embedded" json:"balances"`
	CreatedBy       string    `gorm:"column:created_by;size:32" json:"created_by"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Entry) TableName() string { return "ledger_entries" }

// Head serialises postings per group: it is locked for the whole
// read-balance/compute/write sequence and advanced with a version check.
type Head struct {
	GroupID     string     `gorm:"primaryKey;column:group_id;size:32"`
	LastSeq     uint64     `gorm:"column:last_seq;not null;default:0"`
	LastEntryID string     `gorm:"column:last_entry_id;size:32"`
	LastDate    *time.Time `gorm:"column:last_date"`
	Version     uint64     `gorm:"column:version;not null;default:0"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Head) TableName() string { return "ledger_heads" }
