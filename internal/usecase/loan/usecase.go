package loan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"vsla-ledger/internal/domain/apperr"
	"vsla-ledger/internal/domain/ledger"
	domain "vsla-ledger/internal/domain/loan"
	"vsla-ledger/internal/domain/uow"
	"vsla-ledger/internal/domain/vote"
	"vsla-ledger/internal/log"
	"vsla-ledger/internal/usecase/assessment"
	ledgeruc "vsla-ledger/internal/usecase/ledger"
	memberuc "vsla-ledger/internal/usecase/member"
	"vsla-ledger/internal/usecase/settings"
	voteuc "vsla-ledger/internal/usecase/vote"
	"vsla-ledger/pkg/id"
)

// sweepParallelism bounds the loans refreshed concurrently by MarkOverdue.
const sweepParallelism = 4

type Usecase struct {
	repo     domain.Repository
	uow      uow.UnitOfWork
	policies settings.Source
	closer   voteuc.Closer
	log      *log.Logger
	now      func() time.Time
}

// NewUsecase: closer schedules the end of approval votes and may be nil.
func NewUsecase(repo domain.Repository, tx uow.UnitOfWork, policies settings.Source, closer voteuc.Closer, logger *log.Logger) *Usecase {
	return &Usecase{
		repo:     repo,
		uow:      tx,
		policies: policies,
		closer:   closer,
		log:      log.OrDiscard(logger).WithComponent(log.ComponentLoan),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (u *Usecase) transitioned(ctx context.Context, key, value string, from, to any) {
	u.log.InfoContext(ctx, "state changed", key, value, log.FieldFromState, from, log.FieldToState, to)
}

// ----- applications -----

func (u *Usecase) Submit(ctx context.Context, in SubmitInput) (*domain.Application, error) {
	p, err := u.policies.Policies(ctx)
	if err != nil {
		return nil, err
	}
	sub := domain.Submission{
		GroupID:         in.GroupID,
		ApplicantID:     in.ApplicantID,
		RequestedAmount: in.RequestedAmount,
		TermMonths:      in.TermMonths,
		Purpose:         in.Purpose,
	}
	for _, g := range in.Guarantors {
		sub.Guarantors = append(sub.Guarantors, domain.Guarantor{MemberID: g.MemberID, Amount: g.Amount})
	}
	if err := domain.ValidateSubmission(sub, p.Lending.MinGuarantors).Err(); err != nil {
		return nil, err
	}

	now := u.now()
	a := &domain.Application{
		ApplicationID:       id.NewID32(),
		GroupID:             in.GroupID,
		ApplicantID:         in.ApplicantID,
		RequestedAmount:     in.RequestedAmount,
		RequestedTermMonths: in.TermMonths,
		Purpose:             in.Purpose,
		Guarantor1Amount:    decimal.Zero,
		Guarantor2Amount:    decimal.Zero,
		Status:              domain.AppSubmitted,
		StatusUpdatedAt:     now,
	}
	for i, g := range sub.Guarantors {
		gid := g.MemberID
		if i == 0 {
			a.Guarantor1ID, a.Guarantor1Amount = &gid, g.Amount
		} else {
			a.Guarantor2ID, a.Guarantor2Amount = &gid, g.Amount
		}
	}

	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if _, err := memberuc.ActiveIn(ctx, r.Members, in.GroupID, in.ApplicantID); err != nil {
			return err
		}
		for _, g := range sub.Guarantors {
			if _, err := memberuc.ActiveIn(ctx, r.Members, in.GroupID, g.MemberID); err != nil {
				return fmt.Errorf("guarantor %s: %w", g.MemberID, err)
			}
		}
		open, err := r.Loans.GetOpenApplicationByApplicant(ctx, in.ApplicantID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: %s", domain.ErrOpenApplication, open.ApplicationID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		return r.Loans.CreateApplication(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	u.log.InfoContext(ctx, "loan application submitted",
		log.FieldGroupID, a.GroupID, log.FieldApplication, a.ApplicationID, log.FieldMemberID, a.ApplicantID)
	return a, nil
}

func groupRules(ctx context.Context, r uow.Repos, groupID string) (requiresVote bool, method domain.InterestMethod, err error) {
	gr, err := r.Rules.GetByGroupID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, domain.DecliningBalance, nil
		}
		return false, "", err
	}
	method = gr.InterestMethod
	if method != domain.Flat {
		method = domain.DecliningBalance
	}
	return gr.RequiresMemberVote, method, nil
}

// BeginReview moves a SUBMITTED application UNDER_REVIEW, assessing the
// applicant first when no usable assessment exists and opening the member
// vote when the group's rules require one.
func (u *Usecase) BeginReview(ctx context.Context, applicationID, reviewerID string) (*domain.Application, error) {
	p, err := u.policies.Policies(ctx)
	if err != nil {
		return nil, err
	}
	now := u.now()
	var out *domain.Application
	var opened *vote.Vote
	err = u.uow.WithinApplicationTx(ctx, applicationID, func(r uow.Repos, a *domain.Application) error {
		if err := a.TransitionTo(domain.AppUnderReview, now); err != nil {
			return err
		}

		cur, err := r.Loans.CurrentAssessment(ctx, a.ApplicantID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if !cur.Usable(now) {
			if cur, err = assessment.Record(ctx, r, a.GroupID, a.ApplicantID, p, now); err != nil {
				return err
			}
		}
		a.AssessmentID = &cur.AssessmentID
		a.ReviewedBy = &reviewerID

		requiresVote, _, err := groupRules(ctx, r, a.GroupID)
		if err != nil {
			return err
		}
		if requiresVote {
			appID := a.ApplicationID
			v, err := voteuc.OpenWithin(ctx, r, voteuc.OpenInput{
				GroupID:           a.GroupID,
				Title:             "Loan application " + a.ApplicationID,
				Description:       a.Purpose,
				VoteType:          vote.TypeLoanApproval,
				LoanApplicationID: &appID,
				CreatedBy:         reviewerID,
			}, p.Voting, now)
			if err != nil {
				return err
			}
			a.VoteID = &v.VoteID
			opened = v
		}
		out = a
		return r.Loans.SaveApplication(ctx, a)
	})
	if err != nil {
		return nil, err
	}

	u.transitioned(ctx, log.FieldApplication, out.ApplicationID, domain.AppSubmitted, domain.AppUnderReview)
	if opened != nil && u.closer != nil {
		if err := u.closer.ScheduleClose(ctx, opened.VoteID, opened.VotingEnd); err != nil {
			u.log.WarnContext(ctx, "could not schedule vote close", log.FieldVoteID, opened.VoteID, log.FieldError, err)
		}
	}
	return out, nil
}

// lockDecision locks an application's vote before the application itself, the
// same order a closing vote uses.
func lockDecision(ctx context.Context, r uow.Repos, applicationID string) (*domain.Application, *vote.Vote, error) {
	peek, err := r.Loans.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrApplicationNotFound
		}
		return nil, nil, err
	}
	var v *vote.Vote
	if peek.VoteID != nil {
		if v, err = r.Votes.GetByVoteIDForUpdate(ctx, *peek.VoteID); err != nil {
			return nil, nil, err
		}
	}
	a, err := r.Loans.GetApplicationForUpdate(ctx, applicationID)
	if err != nil {
		return nil, nil, err
	}
	return a, v, nil
}

// decide runs fn with the application and its vote locked, then saves the application.
func (u *Usecase) decide(ctx context.Context, applicationID string, fn func(r uow.Repos, a *domain.Application, v *vote.Vote) error) (*domain.Application, error) {
	var out *domain.Application
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		a, v, err := lockDecision(ctx, r, applicationID)
		if err != nil {
			return err
		}
		if err := fn(r, a, v); err != nil {
			return err
		}
		out = a
		return r.Loans.SaveApplication(ctx, a)
	})
	return out, err
}

func cancelOpenVote(ctx context.Context, r uow.Repos, v *vote.Vote, now time.Time) error {
	if v == nil || v.Status != vote.StatusActive {
		return nil
	}
	return voteuc.CancelWithin(ctx, r, v, now)
}

// Withdraw is open to the applicant only.
func (u *Usecase) Withdraw(ctx context.Context, applicationID, applicantID string) (*domain.Application, error) {
	now := u.now()
	var from domain.ApplicationStatus
	a, err := u.decide(ctx, applicationID, func(r uow.Repos, a *domain.Application, v *vote.Vote) error {
		if a.ApplicantID != applicantID {
			return apperr.Violations{}.Add("applicant_id", "only the applicant may withdraw")
		}
		from = a.Status
		if err := a.TransitionTo(domain.AppWithdrawn, now); err != nil {
			return err
		}
		a.DecidedAt = &now
		return cancelOpenVote(ctx, r, v, now)
	})
	if err != nil {
		return nil, err
	}
	u.transitioned(ctx, log.FieldApplication, a.ApplicationID, from, a.Status)
	return a, nil
}

func (u *Usecase) Reject(ctx context.Context, in RejectInput) (*domain.Application, error) {
	var v apperr.Violations
	if strings.TrimSpace(in.Reason) == "" {
		v = v.Add("reason", "required")
	}
	if in.ReviewerID == "" {
		v = v.Add("reviewer_id", "required")
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	now := u.now()
	a, err := u.decide(ctx, in.ApplicationID, func(r uow.Repos, a *domain.Application, vt *vote.Vote) error {
		if err := a.TransitionTo(domain.AppRejected, now); err != nil {
			return err
		}
		a.RejectionReason = in.Reason
		a.ReviewedBy = &in.ReviewerID
		a.DecidedAt = &now
		return cancelOpenVote(ctx, r, vt, now)
	})
	if err != nil {
		return nil, err
	}
	u.transitioned(ctx, log.FieldApplication, a.ApplicationID, domain.AppUnderReview, domain.AppRejected)
	return a, nil
}

// blocked lists every unmet approval condition. An application whose only
// problem is the assessment gets ErrNotEligible.
func blocked(reasons []string, onlyEligibility bool) error {
	if onlyEligibility {
		return fmt.Errorf("%w: %s", domain.ErrNotEligible, strings.Join(reasons, "; "))
	}
	return fmt.Errorf("%w: %s", domain.ErrApprovalBlocked, strings.Join(reasons, "; "))
}

// Approve moves an UNDER_REVIEW application to APPROVED and creates its loan.
// Every officer flag, the member vote when required, and the assessment must
// all hold; there is no partial approval.
func (u *Usecase) Approve(ctx context.Context, in ApproveInput) (*Approved, error) {
	p, err := u.policies.Policies(ctx)
	if err != nil {
		return nil, err
	}
	now := u.now()
	var gl *domain.GroupLoan
	a, err := u.decide(ctx, in.ApplicationID, func(r uow.Repos, a *domain.Application, v *vote.Vote) error {
		if !a.Status.CanTransitionTo(domain.AppApproved) {
			return &apperr.TransitionError{Entity: "loan application", From: string(a.Status), To: string(domain.AppApproved)}
		}

		amount := a.RequestedAmount
		if in.Amount != nil {
			amount = *in.Amount
		}
		term := a.RequestedTermMonths
		if in.TermMonths > 0 {
			term = in.TermMonths
		}
		rate := p.Lending.DefaultInterestRate
		if in.InterestRate != nil {
			rate = *in.InterestRate
		}
		var bad apperr.Violations
		if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
			bad = bad.Add("amount", "must be > 0 with at most 2 decimal places")
		}
		if rate.IsNegative() {
			bad = bad.Add("interest_rate", "must be >= 0")
		}
		if err := bad.Err(); err != nil {
			return err
		}

		var reasons []string
		if !a.OfficersApproved() {
			reasons = append(reasons, "chairperson, treasurer and committee approvals are required")
		}

		requiresVote, method, err := groupRules(ctx, r, a.GroupID)
		if err != nil {
			return err
		}
		if v != nil {
			if _, err := voteuc.SettleWithin(ctx, r, v, now); err != nil {
				return err
			}
			if v.Status == vote.StatusClosed {
				counts, err := v.Counts()
				if err != nil {
					return err
				}
				a.VotesFor, a.VotesAgainst, a.VotesAbstain = counts[vote.OptionFor], counts[vote.OptionAgainst], counts[vote.OptionAbstain]
			}
		}
		switch {
		case v == nil && requiresVote:
			reasons = append(reasons, "a member vote is required")
		case v != nil && v.Status == vote.StatusActive:
			reasons = append(reasons, "the member vote is still open")
		case v != nil && !v.IsPassed:
			reasons = append(reasons, "the member vote did not pass")
		}

		gateReasons := len(reasons)
		if a.AssessmentID == nil {
			reasons = append(reasons, "no assessment on file")
		} else {
			as, err := r.Loans.GetAssessment(ctx, *a.AssessmentID)
			if err != nil {
				return err
			}
			if !as.IsEligible {
				reasons = append(reasons, "applicant is not eligible")
			} else if amount.GreaterThan(as.MaxLoanAmount) {
				reasons = append(reasons, "amount exceeds the maximum loan of "+as.MaxLoanAmount.StringFixed(2))
			}
		}
		if len(reasons) > 0 {
			return blocked(reasons, gateReasons == 0)
		}

		if err := a.TransitionTo(domain.AppApproved, now); err != nil {
			return err
		}
		a.ApprovedAmount = amount
		a.ApprovedTermMonths = term
		a.ApprovedInterestRate = rate
		a.ReviewedBy = &in.ReviewerID
		a.DecidedAt = &now

		appID := a.ApplicationID
		gl = &domain.GroupLoan{
			LoanID:         id.NewID32(),
			GroupID:        a.GroupID,
			MemberID:       a.ApplicantID,
			ApplicationID:  &appID,
			Principal:      amount,
			TermMonths:     term,
			AnnualRate:     rate,
			InterestMethod: method,
			Status:         domain.StatusPending,
			TotalRepaid:    decimal.Zero,
			LateFeesPaid:   decimal.Zero,
		}
		if err := gl.TransitionTo(domain.StatusApproved, now); err != nil {
			return err
		}
		if err := r.Loans.Create(ctx, gl); err != nil {
			return err
		}
		a.LoanID = &gl.LoanID
		return nil
	})
	if err != nil {
		u.log.WarnContext(ctx, "loan approval refused", log.FieldApplication, in.ApplicationID, log.FieldError, err)
		return nil, err
	}

	u.transitioned(ctx, log.FieldApplication, a.ApplicationID, domain.AppUnderReview, domain.AppApproved)
	u.log.InfoContext(ctx, "loan created", log.FieldLoanID, gl.LoanID, log.FieldApplication, a.ApplicationID)
	return &Approved{Application: a, Loan: gl}, nil
}

func (u *Usecase) GetApplication(ctx context.Context, applicationID string) (*domain.Application, error) {
	a, err := u.repo.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, err
	}
	return a, nil
}

// ----- loans -----

// CreateLoan records a PENDING loan directly for a member.
func (u *Usecase) CreateLoan(ctx context.Context, in CreateLoanInput) (*domain.GroupLoan, error) {
	p, err := u.policies.Policies(ctx)
	if err != nil {
		return nil, err
	}
	var v apperr.Violations
	if !id.Valid(in.GroupID) {
		v = v.Add("group_id", "must be a 32-char hex id")
	}
	if !id.Valid(in.MemberID) {
		v = v.Add("member_id", "must be a 32-char hex id")
	}
	if !in.Principal.IsPositive() || !in.Principal.Equal(in.Principal.Round(2)) {
		v = v.Add("principal", "must be > 0 with at most 2 decimal places")
	}
	if in.TermMonths <= 0 {
		v = v.Add("term_months", "must be > 0")
	}
	if in.AnnualRate != nil && in.AnnualRate.IsNegative() {
		v = v.Add("annual_rate", "must be >= 0")
	}
	if in.InterestMethod != "" && in.InterestMethod != domain.Flat && in.InterestMethod != domain.DecliningBalance {
		v = v.Add("interest_method", "unknown interest method "+string(in.InterestMethod))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	rate := p.Lending.DefaultInterestRate
	if in.AnnualRate != nil {
		rate = *in.AnnualRate
	}
	l := &domain.GroupLoan{
		LoanID:         id.NewID32(),
		GroupID:        in.GroupID,
		MemberID:       in.MemberID,
		Principal:      in.Principal,
		TermMonths:     in.TermMonths,
		AnnualRate:     rate,
		InterestMethod: in.InterestMethod,
		Status:         domain.StatusPending,
		TotalRepaid:    decimal.Zero,
		LateFeesPaid:   decimal.Zero,
		StateUpdatedAt: u.now(),
	}
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		if _, err := memberuc.ActiveIn(ctx, r.Members, in.GroupID, in.MemberID); err != nil {
			return err
		}
		if l.InterestMethod == "" {
			_, method, err := groupRules(ctx, r, in.GroupID)
			if err != nil {
				return err
			}
			l.InterestMethod = method
		}
		return r.Loans.Create(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	u.log.InfoContext(ctx, "loan created", log.FieldGroupID, l.GroupID, log.FieldLoanID, l.LoanID)
	return l, nil
}

// ApproveLoan moves a PENDING loan to APPROVED.
func (u *Usecase) ApproveLoan(ctx context.Context, loanID string) (*domain.GroupLoan, error) {
	var out *domain.GroupLoan
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.GroupLoan) error {
		if err := l.TransitionTo(domain.StatusApproved, u.now()); err != nil {
			return err
		}
		out = l
		return r.Loans.Save(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	u.transitioned(ctx, log.FieldLoanID, loanID, domain.StatusPending, domain.StatusApproved)
	return out, nil
}

func outstanding(rows []domain.Installment) decimal.Decimal {
	sum := decimal.Zero
	for i := range rows {
		sum = sum.Add(rows[i].Remaining())
	}
	return sum
}

// Disburse pays out an APPROVED loan: it posts the LOAN entry and creates the
// repayment schedule in the same transaction.
func (u *Usecase) Disburse(ctx context.Context, in DisburseInput) (*domain.GroupLoan, error) {
	var bad apperr.Violations
	if in.DisbursedAt.IsZero() {
		bad = bad.Add("disbursed_at", "required")
	}
	if in.CreatedBy == "" {
		bad = bad.Add("created_by", "required")
	}
	if err := bad.Err(); err != nil {
		return nil, err
	}
	at := in.DisbursedAt.UTC()

	var out *domain.GroupLoan
	err := ledgeruc.Retry(ctx, func() error {
		return u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.GroupLoan) error {
			if err := l.TransitionTo(domain.StatusDisbursed, u.now()); err != nil {
				return err
			}
			e := &ledger.Entry{
				GroupID:         l.GroupID,
				MemberID:        &l.MemberID,
				TransactionDate: at,
				Description:     "Loan disbursement",
				Reference:       l.LoanID,
				EntryType:       ledger.EntryLoan,
				Amounts:         ledger.Amounts{LoanDisbursed: l.Principal},
				CreatedBy:       in.CreatedBy,
			}
			if err := ledgeruc.Append(ctx, r.Ledger, e); err != nil {
				return err
			}

			rows := domain.BuildSchedule(l.Principal, l.AnnualRate, l.TermMonths, l.InterestMethod, at)
			for i := range rows {
				rows[i].LoanID = l.LoanID
			}
			if err := r.Loans.CreateSchedule(ctx, rows); err != nil {
				return err
			}

			l.TotalInterest = domain.TotalInterest(rows)
			l.OutstandingBalance = outstanding(rows)
			l.DisbursementEntryID = &e.EntryID
			l.DisbursedAt = &at
			out = l
			return r.Loans.Save(ctx, l)
		})
	})
	if err != nil {
		return nil, err
	}
	u.transitioned(ctx, log.FieldLoanID, out.LoanID, domain.StatusApproved, domain.StatusDisbursed)
	return out, nil
}

func validateRepay(in RepayInput) apperr.Violations {
	var v apperr.Violations
	if !in.Amount.IsPositive() {
		v = v.Add("amount", "must be > 0")
	} else if !in.Amount.Equal(in.Amount.Round(2)) {
		v = v.Add("amount", "must have at most 2 decimal places")
	}
	if in.PaidAt.IsZero() {
		v = v.Add("paid_at", "required")
	}
	if in.CreatedBy == "" {
		v = v.Add("created_by", "required")
	}
	return v
}

// Repay spreads a payment over the schedule (late fee, interest, then
// principal per installment) and posts it to the ledger. The loan closes once
// every installment is PAID.
func (u *Usecase) Repay(ctx context.Context, in RepayInput) (*Repayment, error) {
	if err := validateRepay(in).Err(); err != nil {
		return nil, err
	}
	p, err := u.policies.Policies(ctx)
	if err != nil {
		return nil, err
	}
	paidAt := in.PaidAt.UTC()

	var out *Repayment
	var from domain.Status
	err = ledgeruc.Retry(ctx, func() error {
		return u.uow.WithinLoanTx(ctx, in.LoanID, func(r uow.Repos, l *domain.GroupLoan) error {
			if !l.Repayable() {
				return &apperr.TransitionError{Entity: "loan", From: string(l.Status), To: string(domain.StatusPartiallyRepaid)}
			}
			from = l.Status
			rows, err := r.Loans.Schedule(ctx, l.LoanID)
			if err != nil {
				return err
			}
			dirty := make([]bool, len(rows))
			for i := range rows {
				dirty[i] = rows[i].Refresh(paidAt, p.Lending.LateFeePerDay)
			}
			alloc, err := domain.Allocate(rows, in.Amount, paidAt)
			if err != nil {
				return err
			}
			for _, i := range alloc.Touched {
				dirty[i] = true
			}

			e := &ledger.Entry{
				GroupID:         l.GroupID,
				MemberID:        &l.MemberID,
				TransactionDate: paidAt,
				Description:     "Loan repayment",
				Reference:       l.LoanID,
				EntryType:       ledger.EntryLoan,
				Amounts: ledger.Amounts{
					LoanRepaid:     alloc.Principal,
					InterestEarned: alloc.Interest,
					Fines:          alloc.LateFee,
				},
				CreatedBy: in.CreatedBy,
			}
			if alloc.Principal.Add(alloc.Interest).IsZero() {
				e.EntryType = ledger.EntryFine
				e.Description = "Loan late fee"
			}
			if err := ledgeruc.Append(ctx, r.Ledger, e); err != nil {
				return err
			}

			for i := range rows {
				if !dirty[i] {
					continue
				}
				if err := r.Loans.SaveInstallment(ctx, &rows[i]); err != nil {
					return err
				}
			}

			now := u.now()
			l.TotalRepaid = l.TotalRepaid.Add(alloc.Principal).Add(alloc.Interest)
			l.LateFeesPaid = l.LateFeesPaid.Add(alloc.LateFee)
			l.OutstandingBalance = outstanding(rows)
			switch {
			case domain.AllPaid(rows) && l.OutstandingBalance.IsZero():
				if err := l.TransitionTo(domain.StatusClosed, now); err != nil {
					return err
				}
				l.ClosedAt = &now
			case l.Status == domain.StatusDisbursed:
				if err := l.TransitionTo(domain.StatusPartiallyRepaid, now); err != nil {
					return err
				}
			}
			out = &Repayment{Loan: l, Entry: e, Allocation: alloc}
			return r.Loans.Save(ctx, l)
		})
	})
	if err != nil {
		return nil, err
	}

	u.log.InfoContext(ctx, "loan repayment posted",
		log.FieldLoanID, in.LoanID, log.FieldEntryID, out.Entry.EntryID, "amount", in.Amount.StringFixed(2))
	if from != out.Loan.Status {
		u.transitioned(ctx, log.FieldLoanID, in.LoanID, from, out.Loan.Status)
	}
	return out, nil
}

// MarkOverdue refreshes days overdue, late fees and statuses of every unpaid
// installment due before now. It returns the number of rows changed.
func (u *Usecase) MarkOverdue(ctx context.Context) (int, error) {
	p, err := u.policies.Policies(ctx)
	if err != nil {
		return 0, err
	}
	asOf := u.now()
	due, err := u.repo.DueUnpaid(ctx, asOf)
	if err != nil {
		return 0, err
	}
	var loans []string
	seen := map[string]bool{}
	for _, row := range due {
		if !seen[row.LoanID] {
			seen[row.LoanID] = true
			loans = append(loans, row.LoanID)
		}
	}

	changed := make([]int, len(loans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepParallelism)
	for i, loanID := range loans {
		g.Go(func() error {
			n := 0
			err := u.uow.WithinLoanTx(gctx, loanID, func(r uow.Repos, l *domain.GroupLoan) error {
				n = 0
				if !l.Repayable() {
					return nil
				}
				rows, err := r.Loans.Schedule(gctx, loanID)
				if err != nil {
					return err
				}
				for j := range rows {
					if !rows[j].Refresh(asOf, p.Lending.LateFeePerDay) {
						continue
					}
					if err := r.Loans.SaveInstallment(gctx, &rows[j]); err != nil {
						return err
					}
					n++
				}
				return nil
			})
			if err != nil {
				return err
			}
			changed[i] = n
			return nil
		})
	}
	err = g.Wait()

	n := 0
	for _, c := range changed {
		n += c
	}
	if n > 0 {
		u.log.InfoContext(ctx, "installments refreshed", log.FieldCount, n)
	}
	return n, err
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*domain.GroupLoan, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

// Schedule returns the loan's installments in order.
func (u *Usecase) Schedule(ctx context.Context, loanID string) ([]domain.Installment, error) {
	if _, err := u.Get(ctx, loanID); err != nil {
		return nil, err
	}
	return u.repo.Schedule(ctx, loanID)
}
