package vote

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"vsla-ledger/internal/domain/apperr"
)

var (
	ErrNotFound      = apperr.NotFound("vote")
	ErrAlreadyVoted  = fmt.Errorf("%w: member already voted on this ballot", apperr.ErrInvariant)
	ErrWindowClosed  = fmt.Errorf("%w: outside the voting window", apperr.ErrValidation)
	ErrNotEligible   = fmt.Errorf("%w: member is not an eligible voter", apperr.ErrValidation)
	ErrInvalidChoice = fmt.Errorf("%w: invalid option selection", apperr.ErrValidation)
)

type Type string

const (
	TypeLoanApproval       Type = "LOAN_APPROVAL"
	TypeConstitutionChange Type = "CONSTITUTION_CHANGE"
	TypeLeadershipElection Type = "LEADERSHIP_ELECTION"
	TypeMemberDiscipline   Type = "MEMBER_DISCIPLINE"
	TypeGeneral            Type = "GENERAL"
)

func (t Type) Valid() bool {
	switch t {
	case TypeLoanApproval, TypeConstitutionChange, TypeLeadershipElection, TypeMemberDiscipline, TypeGeneral:
		return true
	}
	return false
}

// Motion types decide a yes/no question and default to the standard options.
func (t Type) Motion() bool {
	return t == TypeLoanApproval || t == TypeConstitutionChange || t == TypeMemberDiscipline
}

const (
	OptionFor     = "FOR"
	OptionAgainst = "AGAINST"
	OptionAbstain = "ABSTAIN"
)

var MotionOptions = []string{OptionFor, OptionAgainst, OptionAbstain}

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

// TieBreak resolves equal top counts.
type TieBreak string

const (
	// TieEarliestOption picks the tied option listed first.
	TieEarliestOption TieBreak = "EARLIEST_OPTION"
	// TieNoWinner leaves the ballot without a winner.
	TieNoWinner TieBreak = "NO_WINNER"
)

func (t TieBreak) Valid() bool { return t == TieEarliestOption || t == TieNoWinner }

// Table: group_votes. Policy fields are snapshotted when the ballot opens.
type Vote struct {
	ID                   uint64         `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	VoteID               string         `gorm:"column:vote_id;size:32;uniqueIndex" json:"vote_id"`
	GroupID              string         `gorm:"column:group_id;size:32;not null;index" json:"group_id"`
	Title                string         `gorm:"column:title;size:200;not null" json:"title"`
	Description          string         `gorm:"column:description;type:text" json:"description"`
	VoteType             Type           `gorm:"column:vote_type;size:32;not null" json:"vote_type"`
	Options              datatypes.JSON `gorm:"column:options;not null" json:"options"`
	AllowsMultipleChoice bool           `gorm:"column:allows_multiple_choice;not null;default:false" json:"allows_multiple_choice"`
	PassingOption        string         `gorm:"column:passing_option;size:64" json:"passing_option,omitempty"`
	VotingStart          time.Time      `gorm:"column:voting_start;not null" json:"voting_start"`
	VotingEnd            time.Time      `gorm:"column:voting_end;not null;index" json:"voting_end"`
	Status               Status         `gorm:"column:status;size:16;not null;index" json:"status"`
	TotalEligibleVoters  int            `gorm:"column:total_eligible_voters;not null" json:"total_eligible_voters"`
	VotesCast            int            `gorm:"column:votes_cast;not null;default:0" json:"votes_cast"`
	Results              datatypes.JSON `gorm:"column:results" json:"results,omitempty"`
	WinningOption        *string        `gorm:"column:winning_option;size:64" json:"winning_option,omitempty"`
	QuorumMet            bool           `gorm:"column:quorum_met;not null;default:false" json:"quorum_met"`
	IsPassed             bool           `gorm:"column:is_passed;not null;default:false" json:"is_passed"`
	QuorumPercent        int            `gorm:"column:quorum_percent;not null" json:"quorum_percent"`
	ThresholdPercent     int            `gorm:"column:threshold_percent;not null" json:"threshold_percent"`
	TieBreak             TieBreak       `gorm:"column:tie_break;size:24;not null" json:"tie_break"`
	AutoCloseOnMajority  bool           `gorm:"column:auto_close_on_majority;not null;default:false" json:"auto_close_on_majority"`
	LoanApplicationID    *string        `gorm:"column:loan_application_id;size:32;index" json:"loan_application_id,omitempty"`
	SubjectMemberID      *string        `gorm:"column:subject_member_id;size:32" json:"subject_member_id,omitempty"`
	CreatedBy            string         `gorm:"column:created_by;size:32" json:"created_by"`
	ClosedAt             *time.Time     `gorm:"column:closed_at" json:"closed_at,omitempty"`
	CreatedAt            time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Vote) TableName() string { return "group_votes" }

// OptionList decodes the options column.
func (v *Vote) OptionList() ([]string, error) {
	var out []string
	if len(v.Options) == 0 {
		return out, nil
	}
	err := json.Unmarshal(v.Options, &out)
	return out, err
}

// Counts decodes the results column.
func (v *Vote) Counts() (map[string]int, error) {
	out := map[string]int{}
	if len(v.Results) == 0 {
		return out, nil
	}
	err := json.Unmarshal(v.Results, &out)
	return out, err
}

// InWindow reports whether now is within [start, end).
func (v *Vote) InWindow(now time.Time) bool {
	return !now.Before(v.VotingStart) && now.Before(v.VotingEnd)
}

// Elapsed reports whether an ACTIVE vote is past its window.
func (v *Vote) Elapsed(now time.Time) bool {
	return v.Status == StatusActive && !now.Before(v.VotingEnd)
}

// Table: member_votes
type Ballot struct {
	ID       uint64         `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	VoteID   string         `gorm:"column:vote_id;size:32;not null;uniqueIndex:ux_member_votes_vote_member,priority:1" json:"vote_id"`
	MemberID string         `gorm:"column:member_id;size:32;not null;uniqueIndex:ux_member_votes_vote_member,priority:2" json:"member_id"`
	Choices  datatypes.JSON `gorm:"column:choices;not null" json:"choices"`
	CastAt   time.Time      `gorm:"column:cast_at;not null" json:"cast_at"`
}

func (Ballot) TableName() string { return "member_votes" }

func (b *Ballot) ChoiceList() ([]string, error) {
	var out []string
	err := json.Unmarshal(b.Choices, &out)
	return out, err
}

// Policy is the group-wide voting configuration copied onto each ballot.
type Policy struct {
	QuorumPercent       int
	ThresholdPercent    int
	TieBreak            TieBreak
	DefaultWindow       time.Duration
	AutoCloseOnMajority bool
}

func DefaultPolicy() Policy {
	return Policy{
		QuorumPercent:       60,
		ThresholdPercent:    50,
		TieBreak:            TieEarliestOption,
		DefaultWindow:       72 * time.Hour,
		AutoCloseOnMajority: true,
	}
}
