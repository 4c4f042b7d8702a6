package rules

import (
	"vsla-ledger/internal/domain/loan"
	domain "vsla-ledger/internal/domain/rules"
)

// UpsertInput: nil RequiresMemberVote and empty InterestMethod keep the stored
// values (true and DECLINING_BALANCE for a new group).
type UpsertInput struct {
	GroupID            string              `json:"group_id"`
	Facts              domain.Facts        `json:"facts"`
	RequiresMemberVote *bool               `json:"requires_member_vote,omitempty"`
	InterestMethod     loan.InterestMethod `json:"interest_method,omitempty"`
}
