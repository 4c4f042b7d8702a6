package vote

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsla-ledger/internal/domain/apperr"
)

func ballots(choices ...string) [][]string {
	out := make([][]string, 0, len(choices))
	for _, c := range choices {
		out = append(out, []string{c})
	}
	return out
}

func repeat(opt string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = opt
	}
	return out
}

func TestQuorumMet(t *testing.T) {
	assert.False(t, QuorumMet(5, 10, 60), "50% turnout")
	assert.True(t, QuorumMet(6, 10, 60), "60% turnout")
	assert.False(t, QuorumMet(0, 0, 60), "no eligible voters")
}

func TestTally(t *testing.T) {
	rules := Rules{Eligible: 10, QuorumPercent: 60, ThresholdPercent: 50, TieBreak: TieEarliestOption, PassingOption: OptionFor}
	tests := []struct {
		name      string
		ballots   [][]string
		rules     Rules
		winner    string
		quorumMet bool
		passed    bool
	}{
		{"below quorum", ballots(repeat(OptionFor, 5)...), rules, OptionFor, false, false},
		{"quorum and majority", ballots(append(repeat(OptionFor, 4), OptionAgainst, OptionAbstain)...), rules, OptionFor, true, true},
		{"against wins", ballots(append(repeat(OptionAgainst, 4), OptionFor, OptionFor)...), rules, OptionAgainst, true, false},
		{"winner under threshold share", ballots(OptionFor, OptionFor, OptionFor, OptionAgainst, OptionAgainst, OptionAbstain, OptionAbstain), Rules{Eligible: 10, QuorumPercent: 60, ThresholdPercent: 50, TieBreak: TieEarliestOption}, OptionFor, true, false},
		{"tie earliest option does not carry a motion", ballots(append(repeat(OptionAgainst, 3), repeat(OptionFor, 3)...)...), rules, OptionFor, true, false},
		{"tie earliest option passes a poll", ballots(append(repeat(OptionAgainst, 3), repeat(OptionFor, 3)...)...), Rules{Eligible: 10, QuorumPercent: 60, ThresholdPercent: 50, TieBreak: TieEarliestOption}, OptionFor, true, true},
		{"tie without winner", ballots(append(repeat(OptionAgainst, 3), repeat(OptionFor, 3)...)...), Rules{Eligible: 10, QuorumPercent: 60, ThresholdPercent: 50, TieBreak: TieNoWinner, PassingOption: OptionFor}, "", true, false},
		{"no ballots", nil, rules, "", false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			o := Tally(MotionOptions, tc.ballots, tc.rules)
			if tc.winner == "" {
				assert.Nil(t, o.Winner)
			} else {
				require.NotNil(t, o.Winner)
				assert.Equal(t, tc.winner, *o.Winner)
			}
			assert.Equal(t, tc.quorumMet, o.QuorumMet)
			assert.Equal(t, tc.passed, o.Passed)
			assert.Equal(t, len(tc.ballots), o.Cast)
		})
	}
}

func TestTally_KeepsOptionOrderAndIgnoresUnknown(t *testing.T) {
	o := Tally([]string{"ann", "bob", "cy"}, [][]string{{"cy"}, {"bob", "cy"}, {"zed"}}, Rules{Eligible: 3, QuorumPercent: 50, ThresholdPercent: 50})
	assert.Equal(t, []Count{{"ann", 0}, {"bob", 1}, {"cy", 2}}, o.Counts)
	assert.Equal(t, map[string]int{"ann": 0, "bob": 1, "cy": 2}, o.AsMap())
	require.NotNil(t, o.Winner)
	assert.Equal(t, "cy", *o.Winner)
}

func TestDecisive(t *testing.T) {
	rules := Rules{Eligible: 10, QuorumPercent: 60, ThresholdPercent: 50, TieBreak: TieEarliestOption, PassingOption: OptionFor}

	o := Tally(MotionOptions, ballots(repeat(OptionFor, 6)...), rules)
	assert.True(t, Decisive(o, rules), "6 of 10 FOR cannot be overtaken")

	o = Tally(MotionOptions, ballots(append(repeat(OptionFor, 5), OptionAgainst)...), rules)
	assert.False(t, Decisive(o, rules), "5 FOR is exactly half of the electorate")

	o = Tally(MotionOptions, ballots(repeat(OptionFor, 5)...), rules)
	assert.False(t, Decisive(o, rules), "quorum not met")
}

func TestValidateDraft(t *testing.T) {
	now := time.Now()
	app := "00000000000000000000000000000001"
	ok := Draft{GroupID: "g", Title: "Loan for Amina", VoteType: TypeLoanApproval, Options: MotionOptions,
		Start: now, End: now.Add(time.Hour), LoanApplicationID: &app}
	assert.Empty(t, ValidateDraft(ok))

	bad := ok
	bad.End = bad.Start
	bad.Options = []string{"YES", "YES"}
	bad.LoanApplicationID = nil
	v := ValidateDraft(bad)
	assert.Len(t, v, 3)
	assert.True(t, errors.Is(v.Err(), apperr.ErrValidation))
}

func TestValidateChoices(t *testing.T) {
	assert.NoError(t, ValidateChoices(MotionOptions, []string{OptionFor}, false))
	assert.ErrorIs(t, ValidateChoices(MotionOptions, []string{OptionFor, OptionAgainst}, false), ErrInvalidChoice)
	assert.NoError(t, ValidateChoices([]string{"a", "b", "c"}, []string{"a", "c"}, true))
	assert.ErrorIs(t, ValidateChoices([]string{"a", "b"}, []string{"a", "a"}, true), ErrInvalidChoice)
	assert.ErrorIs(t, ValidateChoices(MotionOptions, []string{"MAYBE"}, false), ErrInvalidChoice)
	assert.ErrorIs(t, ValidateChoices(MotionOptions, nil, false), ErrInvalidChoice)
}
