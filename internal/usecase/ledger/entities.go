package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	domain "vsla-ledger/internal/domain/ledger"
)

type PostInput struct {
	GroupID         string           `json:"group_id"`
	MemberID        *string          `json:"member_id,omitempty"`
	TransactionDate time.Time        `json:"transaction_date"`
	Description     string           `json:"description"`
	Reference       string           `json:"reference,omitempty"`
	EntryType       domain.EntryType `json:"entry_type"`
	TransferFrom    *domain.Fund     `json:"transfer_from,omitempty"`
	Amounts         domain.Amounts   `json:"amounts"`
	CreatedBy       string           `json:"created_by"`
}

type ReverseInput struct {
	EntryID   string `json:"entry_id"`
	Reason    string `json:"reason"`
	CreatedBy string `json:"created_by"`
	// Date defaults to now; it may not precede the group's latest entry.
	Date *time.Time `json:"date,omitempty"`
}

type CorrectInput struct {
	EntryID      string         `json:"entry_id"`
	Amounts      domain.Amounts `json:"amounts"`
	TransferFrom *domain.Fund   `json:"transfer_from,omitempty"`
	Description  string         `json:"description"`
	CreatedBy    string         `json:"created_by"`
}

// Correction is the reversal and its replacement, posted together.
type Correction struct {
	Reversal    *domain.Entry `json:"reversal"`
	Replacement *domain.Entry `json:"replacement"`
}

type VerifyReport struct {
	GroupID  string          `json:"group_id"`
	Entries  int             `json:"entries"`
	Balances domain.Balances `json:"balances"`
	OK       bool            `json:"ok"`
	// MismatchSeq is the first entry whose stored balances differ from the replay.
	MismatchSeq uint64 `json:"mismatch_seq,omitempty"`
}

type FundTotal struct {
	GroupID  string          `json:"group_id"`
	MemberID string          `json:"member_id"`
	Fund     domain.Fund     `json:"fund"`
	Total    decimal.Decimal `json:"total"`
}
