package vote

import (
	"strings"
	"time"

	"vsla-ledger/internal/domain/apperr"
)

// Count is one option's total, kept in option order.
type Count struct {
	Option string `json:"option"`
	Votes  int    `json:"votes"`
}

type Outcome struct {
	Counts    []Count
	Cast      int
	Winner    *string
	QuorumMet bool
	Passed    bool
}

// AsMap flattens the counts for the results column.
func (o Outcome) AsMap() map[string]int {
	m := make(map[string]int, len(o.Counts))
	for _, c := range o.Counts {
		m[c.Option] = c.Votes
	}
	return m
}

// Rules are the per-ballot parameters of a tally.
type Rules struct {
	Eligible         int
	QuorumPercent    int
	ThresholdPercent int
	TieBreak         TieBreak
	// PassingOption, when set, must win outright for the ballot to pass; a
	// tie-break still names a winner but never carries the motion.
	PassingOption string
}

// RulesOf reads the snapshotted parameters of v.
func RulesOf(v *Vote) Rules {
	return Rules{
		Eligible:         v.TotalEligibleVoters,
		QuorumPercent:    v.QuorumPercent,
		ThresholdPercent: v.ThresholdPercent,
		TieBreak:         v.TieBreak,
		PassingOption:    v.PassingOption,
	}
}

// QuorumMet uses integer math: cast/eligible >= quorum%.
func QuorumMet(cast, eligible, quorumPercent int) bool {
	if eligible <= 0 {
		return false
	}
	return cast*100 >= quorumPercent*eligible
}

// Tally counts ballots (each a list of chosen options) and decides the outcome.
// It is pure: the same ballots always give the same outcome.
func Tally(options []string, ballots [][]string, r Rules) Outcome {
	idx := make(map[string]int, len(options))
	out := Outcome{Counts: make([]Count, len(options)), Cast: len(ballots)}
	for i, o := range options {
		idx[o] = i
		out.Counts[i] = Count{Option: o}
	}
	for _, b := range ballots {
		for _, choice := range b {
			if i, ok := idx[choice]; ok {
				out.Counts[i].Votes++
			}
		}
	}

	best, tied := -1, false
	for i, c := range out.Counts {
		switch {
		case best < 0 || c.Votes > out.Counts[best].Votes:
			best, tied = i, false
		case c.Votes == out.Counts[best].Votes:
			tied = true
		}
	}
	if best >= 0 && out.Counts[best].Votes > 0 && (!tied || r.TieBreak != TieNoWinner) {
		w := out.Counts[best].Option
		out.Winner = &w
	}

	out.QuorumMet = QuorumMet(out.Cast, r.Eligible, r.QuorumPercent)
	if out.Winner != nil && out.QuorumMet && out.Cast > 0 {
		share := out.Counts[best].Votes * 100
		out.Passed = share >= r.ThresholdPercent*out.Cast &&
			(r.PassingOption == "" || (r.PassingOption == *out.Winner && !tied))
	}
	return out
}

// Decisive reports whether the leading option can no longer be overtaken nor fall below the
// threshold share, so closing now yields the same winner as waiting for every eligible voter.
func Decisive(o Outcome, r Rules) bool {
	if !o.QuorumMet || o.Winner == nil {
		return false
	}
	lead, runnerUp := 0, 0
	for _, c := range o.Counts {
		switch {
		case c.Votes > lead:
			lead, runnerUp = c.Votes, lead
		case c.Votes > runnerUp:
			runnerUp = c.Votes
		}
	}
	remaining := r.Eligible - o.Cast
	if remaining < 0 {
		remaining = 0
	}
	return lead-runnerUp > remaining && lead*100 > r.ThresholdPercent*r.Eligible
}

// Draft is the input of Open after defaults are applied.
type Draft struct {
	GroupID              string
	Title                string
	VoteType             Type
	Options              []string
	AllowsMultipleChoice bool
	Start                time.Time
	End                  time.Time
	LoanApplicationID    *string
	SubjectMemberID      *string
}

// ValidateDraft checks a ballot before it is opened.
func ValidateDraft(d Draft) apperr.Violations {
	var v apperr.Violations
	if strings.TrimSpace(d.Title) == "" {
		v = v.Add("title", "required")
	}
	if !d.VoteType.Valid() {
		v = v.Add("vote_type", "unknown vote type "+string(d.VoteType))
	}
	if len(d.Options) < 2 {
		v = v.Add("options", "at least two options")
	}
	seen := map[string]bool{}
	for _, o := range d.Options {
		if strings.TrimSpace(o) == "" {
			v = v.Add("options", "options cannot be blank")
		} else if seen[o] {
			v = v.Add("options", "duplicate option "+o)
		}
		seen[o] = true
	}
	if !d.End.After(d.Start) {
		v = v.Add("voting_end", "must be after voting_start")
	}
	if d.VoteType == TypeLoanApproval && d.LoanApplicationID == nil {
		v = v.Add("loan_application_id", "required for LOAN_APPROVAL")
	}
	if d.VoteType == TypeMemberDiscipline && d.SubjectMemberID == nil {
		v = v.Add("subject_member_id", "required for MEMBER_DISCIPLINE")
	}
	return v
}

// ValidateChoices checks one ballot against the vote's options.
func ValidateChoices(options, choices []string, multiple bool) error {
	if len(choices) == 0 || (!multiple && len(choices) > 1) {
		return ErrInvalidChoice
	}
	seen := map[string]bool{}
	for _, c := range choices {
		if seen[c] {
			return ErrInvalidChoice
		}
		seen[c] = true
		found := false
		for _, o := range options {
			if o == c {
				found = true
				break
			}
		}
		if !found {
			return ErrInvalidChoice
		}
	}
	return nil
}
