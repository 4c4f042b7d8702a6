package loan

import (
	"github.com/shopspring/decimal"

	"vsla-ledger/internal/domain/apperr"
	"vsla-ledger/pkg/id"
)

type Guarantor struct {
	MemberID string
	Amount   decimal.Decimal
}

// Submission is the caller-supplied part of an application.
type Submission struct {
	GroupID         string
	ApplicantID     string
	RequestedAmount decimal.Decimal
	TermMonths      int
	Purpose         string
	Guarantors      []Guarantor
}

// ValidateSubmission checks the input record before any state is touched.
func ValidateSubmission(s Submission, minGuarantors int) apperr.Violations {
	var v apperr.Violations
	if !id.Valid(s.GroupID) {
		v = v.Add("group_id", "must be a 32-char hex id")
	}
	if !id.Valid(s.ApplicantID) {
		v = v.Add("applicant_id", "must be a 32-char hex id")
	}
	if !s.RequestedAmount.IsPositive() {
		v = v.Add("requested_amount", "must be > 0")
	} else if !s.RequestedAmount.Equal(s.RequestedAmount.Round(2)) {
		v = v.Add("requested_amount", "must have at most 2 decimal places")
	}
	if s.TermMonths <= 0 {
		v = v.Add("requested_term_months", "must be > 0")
	}
	if len(s.Guarantors) > 2 {
		v = v.Add("guarantors", "at most two guarantors")
	}
	if len(s.Guarantors) < minGuarantors {
		v = v.Add("guarantors", "not enough guarantors")
	}
	seen := map[string]bool{}
	for _, g := range s.Guarantors {
		switch {
		case !id.Valid(g.MemberID):
			v = v.Add("guarantors", "guarantor id must be a 32-char hex id")
		case g.MemberID == s.ApplicantID:
			v = v.Add("guarantors", "applicant cannot guarantee their own loan")
		case seen[g.MemberID]:
			v = v.Add("guarantors", "guarantors must be distinct")
		}
		seen[g.MemberID] = true
		if g.Amount.IsNegative() {
			v = v.Add("guarantors", "pledged amount must be >= 0")
		}
	}
	return v
}
