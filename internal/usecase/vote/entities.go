package vote

import (
	"time"

	domain "vsla-ledger/internal/domain/vote"
)

type OpenInput struct {
	GroupID     string      `json:"group_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	VoteType    domain.Type `json:"vote_type"`
	// Options may be empty for motion types, which default to FOR/AGAINST/ABSTAIN.
	Options              []string   `json:"options"`
	AllowsMultipleChoice bool       `json:"allows_multiple_choice"`
	VotingStart          *time.Time `json:"voting_start,omitempty"`
	VotingEnd            *time.Time `json:"voting_end,omitempty"`
	LoanApplicationID    *string    `json:"loan_application_id,omitempty"`
	SubjectMemberID      *string    `json:"subject_member_id,omitempty"`
	CreatedBy            string     `json:"created_by"`
}

type CastInput struct {
	VoteID   string   `json:"vote_id"`
	MemberID string   `json:"member_id"`
	Choices  []string `json:"choices"`
}
