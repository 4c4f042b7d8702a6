package loan

import (
	"slices"
	"time"

	"vsla-ledger/internal/domain/apperr"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	AppSubmitted:   {AppUnderReview, AppWithdrawn},
	AppUnderReview: {AppApproved, AppRejected, AppWithdrawn},
}

var loanTransitions = map[Status][]Status{
	StatusPending:         {StatusApproved},
	StatusApproved:        {StatusDisbursed},
	StatusDisbursed:       {StatusPartiallyRepaid, StatusClosed},
	StatusPartiallyRepaid: {StatusClosed},
}

func (s ApplicationStatus) CanTransitionTo(to ApplicationStatus) bool {
	return slices.Contains(applicationTransitions[s], to)
}

func (s Status) CanTransitionTo(to Status) bool {
	return slices.Contains(loanTransitions[s], to)
}

// TransitionTo moves the application to `to` or returns an *apperr.TransitionError.
func (a *Application) TransitionTo(to ApplicationStatus, now time.Time) error {
	if !a.Status.CanTransitionTo(to) {
		return &apperr.TransitionError{Entity: "loan application", From: string(a.Status), To: string(to)}
	}
	a.Status = to
	a.StatusUpdatedAt = now
	return nil
}

// TransitionTo moves the loan to `to` or returns an *apperr.TransitionError.
func (l *GroupLoan) TransitionTo(to Status, now time.Time) error {
	if !l.Status.CanTransitionTo(to) {
		return &apperr.TransitionError{Entity: "loan", From: string(l.Status), To: string(to)}
	}
	l.Status = to
	l.StateUpdatedAt = now
	return nil
}
