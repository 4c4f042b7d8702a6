package loan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vsla-ledger/internal/adapter/repository/mysql"
	"vsla-ledger/internal/domain/apperr"
	"vsla-ledger/internal/domain/ledger"
	domain "vsla-ledger/internal/domain/loan"
	"vsla-ledger/internal/domain/rules"
	"vsla-ledger/internal/domain/uow"
	"vsla-ledger/internal/domain/vote"
	"vsla-ledger/internal/testutil/dbtest"
	ledgeruc "vsla-ledger/internal/usecase/ledger"
	memberuc "vsla-ledger/internal/usecase/member"
	"vsla-ledger/internal/usecase/settings"
	voteuc "vsla-ledger/internal/usecase/vote"
	"vsla-ledger/pkg/id"
)

var now = time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	u       *Usecase
	votes   *voteuc.Usecase
	books   *ledgeruc.Usecase
	members *memberuc.Usecase
	repos   uow.Repos
	group   string
	ids     []string
	clock   *time.Time
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// newFixture seeds a group of five members; member 0 saved 100000 over six
// months and attended nine of ten meetings.
func newFixture(t *testing.T, attended int) fixture {
	t.Helper()
	db := dbtest.Open(t)
	r := mysql.Repos(db)
	tx := mysql.NewGormUoW(db)
	policies := settings.Fixed(settings.Defaults())

	clock := now
	f := fixture{
		u:       NewUsecase(r.Loans, tx, policies, nil, nil),
		votes:   voteuc.NewUsecase(r.Votes, tx, policies, nil, nil),
		books:   ledgeruc.NewUsecase(r.Ledger, tx, nil),
		members: memberuc.NewUsecase(r.Members, tx, nil),
		repos:   r,
		group:   id.NewID32(),
		clock:   &clock,
	}
	f.u.now = func() time.Time { return clock }
	f.votes.WithClock(func() time.Time { return clock })

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		m, err := f.members.Register(ctx, memberuc.RegisterInput{GroupID: f.group, Name: "member", JoinedAt: now.AddDate(0, -6, 0)})
		require.NoError(t, err)
		f.ids = append(f.ids, m.MemberID)
	}
	saver := f.ids[0]
	for i, amt := range []string{"16000", "16000", "16000", "16000", "18000", "18000"} {
		_, err := f.books.Post(ctx, ledgeruc.PostInput{
			GroupID: f.group, MemberID: &saver, EntryType: ledger.EntryDeposit,
			TransactionDate: time.Date(2024, time.Month(i+1), 15, 10, 0, 0, 0, time.UTC),
			Amounts:         ledger.Amounts{Savings: d(amt)}, CreatedBy: "treasurer",
		})
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, f.members.RecordAttendance(ctx, memberuc.AttendanceInput{
			GroupID: f.group, MemberID: saver, MeetingDate: now.AddDate(0, 0, -7*(i+1)), Present: i < attended,
		}))
	}
	return f
}

func (f fixture) submit(t *testing.T, amount string) *domain.Application {
	t.Helper()
	a, err := f.u.Submit(context.Background(), SubmitInput{
		GroupID: f.group, ApplicantID: f.ids[0], RequestedAmount: d(amount), TermMonths: 6, Purpose: "stock for shop",
		Guarantors: []GuarantorInput{{MemberID: f.ids[1], Amount: d("10000")}},
	})
	require.NoError(t, err)
	return a
}

// signOff sets the three officer flags the way recorded approvals do.
func (f fixture) signOff(t *testing.T, applicationID string) {
	t.Helper()
	ctx := context.Background()
	a, err := f.repos.Loans.GetApplication(ctx, applicationID)
	require.NoError(t, err)
	a.ChairpersonApproved, a.TreasurerApproved, a.CommitteeApproved = true, true, true
	require.NoError(t, f.repos.Loans.SaveApplication(ctx, a))
}

func (f fixture) voteFor(t *testing.T, voteID string, voters ...int) {
	t.Helper()
	for _, i := range voters {
		_, err := f.votes.Cast(context.Background(), voteuc.CastInput{VoteID: voteID, MemberID: f.ids[i], Choices: []string{vote.OptionFor}})
		require.NoError(t, err)
	}
}

func (f fixture) balance(t *testing.T, fund ledger.Fund) string {
	t.Helper()
	b, err := f.books.Balance(context.Background(), f.group, fund)
	require.NoError(t, err)
	return b.StringFixed(2)
}

func TestApplicationLifecycle_ApproveDisburseRepayClose(t *testing.T) {
	f := newFixture(t, 9)
	ctx := context.Background()

	app := f.submit(t, "60000")
	assert.Equal(t, domain.AppSubmitted, app.Status)
	_, err := f.u.Submit(ctx, SubmitInput{GroupID: f.group, ApplicantID: f.ids[0], RequestedAmount: d("1000"), TermMonths: 3})
	assert.True(t, errors.Is(err, domain.ErrOpenApplication))

	app, err = f.u.BeginReview(ctx, app.ApplicationID, f.ids[2])
	require.NoError(t, err)
	assert.Equal(t, domain.AppUnderReview, app.Status)
	require.NotNil(t, app.AssessmentID)
	require.NotNil(t, app.VoteID)

	_, err = f.u.Approve(ctx, ApproveInput{ApplicationID: app.ApplicationID, ReviewerID: f.ids[2]})
	assert.True(t, errors.Is(err, domain.ErrApprovalBlocked))

	f.signOff(t, app.ApplicationID)
	f.voteFor(t, *app.VoteID, 1, 2, 3)

	approved, err := f.u.Approve(ctx, ApproveInput{ApplicationID: app.ApplicationID, ReviewerID: f.ids[2]})
	require.NoError(t, err)
	assert.Equal(t, domain.AppApproved, approved.Application.Status)
	assert.Equal(t, 3, approved.Application.VotesFor)
	assert.Equal(t, "18.00", approved.Application.ApprovedInterestRate.StringFixed(2))
	assert.Equal(t, domain.StatusApproved, approved.Loan.Status)
	assert.Equal(t, domain.DecliningBalance, approved.Loan.InterestMethod)
	require.NotNil(t, approved.Application.LoanID)
	assert.Equal(t, approved.Loan.LoanID, *approved.Application.LoanID)

	l, err := f.u.Disburse(ctx, DisburseInput{LoanID: approved.Loan.LoanID, DisbursedAt: now, CreatedBy: "treasurer"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDisbursed, l.Status)
	assert.Equal(t, "3150.00", l.TotalInterest.StringFixed(2))
	assert.Equal(t, "63150.00", l.OutstandingBalance.StringFixed(2))
	assert.Equal(t, "60000.00", f.balance(t, ledger.FundLoan))
	assert.Equal(t, "40000.00", f.balance(t, ledger.FundTotal))

	rows, err := f.u.Schedule(ctx, l.LoanID)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	principal := decimal.Zero
	for _, r := range rows {
		principal = principal.Add(r.PrincipalAmount)
	}
	assert.Equal(t, "60000.00", principal.StringFixed(2))

	for i, row := range rows {
		rep, err := f.u.Repay(ctx, RepayInput{LoanID: l.LoanID, Amount: row.TotalAmount, PaidAt: row.DueDate, CreatedBy: "treasurer"})
		require.NoError(t, err)
		if i < len(rows)-1 {
			assert.Equal(t, domain.StatusPartiallyRepaid, rep.Loan.Status)
		} else {
			assert.Equal(t, domain.StatusClosed, rep.Loan.Status)
			assert.True(t, rep.Loan.OutstandingBalance.IsZero())
			assert.Equal(t, "63150.00", rep.Loan.TotalRepaid.StringFixed(2))
		}
	}
	assert.Equal(t, "0.00", f.balance(t, ledger.FundLoan))
	assert.Equal(t, "3150.00", f.balance(t, ledger.FundInterest))

	_, err = f.u.Repay(ctx, RepayInput{LoanID: l.LoanID, Amount: d("1"), PaidAt: now.AddDate(1, 0, 0), CreatedBy: "treasurer"})
	assert.True(t, errors.Is(err, apperr.ErrIllegalTransition))

	rep, err := f.books.Verify(ctx, f.group)
	require.NoError(t, err)
	assert.True(t, rep.OK)
}

func (f fixture) disbursedLoan(t *testing.T, principal string) *domain.GroupLoan {
	t.Helper()
	ctx := context.Background()
	l, err := f.u.CreateLoan(ctx, CreateLoanInput{GroupID: f.group, MemberID: f.ids[1], Principal: d(principal), TermMonths: 6})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, l.Status)
	_, err = f.u.ApproveLoan(ctx, l.LoanID)
	require.NoError(t, err)
	l, err = f.u.Disburse(ctx, DisburseInput{LoanID: l.LoanID, DisbursedAt: now, CreatedBy: "treasurer"})
	require.NoError(t, err)
	return l
}

func TestRepay_LateFeeFirstAndOverpayment(t *testing.T) {
	f := newFixture(t, 9)
	ctx := context.Background()
	l := f.disbursedLoan(t, "60000")
	rows, err := f.u.Schedule(ctx, l.LoanID)
	require.NoError(t, err)

	late := rows[0].DueDate.AddDate(0, 0, 10)
	rep, err := f.u.Repay(ctx, RepayInput{LoanID: l.LoanID, Amount: d("500"), PaidAt: late, CreatedBy: "treasurer"})
	require.NoError(t, err)
	assert.Equal(t, ledger.EntryFine, rep.Entry.EntryType)
	assert.Equal(t, "500.00", rep.Allocation.LateFee.StringFixed(2))
	assert.Equal(t, "500.00", f.balance(t, ledger.FundFines))

	rows, err = f.u.Schedule(ctx, l.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstallmentOverdue, rows[0].Status)
	assert.Equal(t, 10, rows[0].DaysOverdue)
	assert.True(t, rows[0].AmountPaid.IsZero())

	_, err = f.u.Repay(ctx, RepayInput{LoanID: l.LoanID, Amount: d("100000"), PaidAt: late, CreatedBy: "treasurer"})
	assert.True(t, errors.Is(err, domain.ErrOverpayment))

	rep, err = f.u.Repay(ctx, RepayInput{LoanID: l.LoanID, Amount: d("1000"), PaidAt: late, CreatedBy: "treasurer"})
	require.NoError(t, err)
	assert.Equal(t, ledger.EntryLoan, rep.Entry.EntryType)
	assert.Equal(t, "900.00", rep.Allocation.Interest.StringFixed(2))
	assert.Equal(t, "100.00", rep.Allocation.Principal.StringFixed(2))
	assert.Equal(t, "59900.00", f.balance(t, ledger.FundLoan))

	got, err := f.u.Get(ctx, l.LoanID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", got.TotalRepaid.StringFixed(2), "late fees stay out of total repaid")
	assert.Equal(t, "500.00", got.LateFeesPaid.StringFixed(2))
	want := got.Principal.Add(got.TotalInterest).Sub(got.TotalRepaid)
	assert.Equal(t, want.StringFixed(2), got.OutstandingBalance.StringFixed(2))
}

func TestMarkOverdue_AccruesFees(t *testing.T) {
	f := newFixture(t, 9)
	ctx := context.Background()
	l := f.disbursedLoan(t, "30000")
	rows, err := f.u.Schedule(ctx, l.LoanID)
	require.NoError(t, err)

	*f.clock = rows[1].DueDate.AddDate(0, 0, 3)
	n, err := f.u.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err = f.u.Schedule(ctx, l.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.InstallmentOverdue, rows[0].Status)
	assert.Equal(t, domain.InstallmentOverdue, rows[1].Status)
	assert.Equal(t, "150.00", rows[1].LateFee.StringFixed(2))
	assert.Equal(t, domain.InstallmentPending, rows[2].Status)

	n, err = f.u.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a second sweep at the same instant changes nothing")
}

func TestDisburse_BeyondCashOnHandIsRejected(t *testing.T) {
	f := newFixture(t, 9)
	ctx := context.Background()
	l, err := f.u.CreateLoan(ctx, CreateLoanInput{GroupID: f.group, MemberID: f.ids[1], Principal: d("250000"), TermMonths: 12})
	require.NoError(t, err)
	_, err = f.u.ApproveLoan(ctx, l.LoanID)
	require.NoError(t, err)

	_, err = f.u.Disburse(ctx, DisburseInput{LoanID: l.LoanID, DisbursedAt: now, CreatedBy: "treasurer"})
	assert.True(t, errors.Is(err, ledger.ErrNegativeBalance))

	got, err := f.u.Get(ctx, l.LoanID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status, "failed disbursement leaves no partial state")
	rows, err := f.u.Schedule(ctx, l.LoanID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = f.u.ApproveLoan(ctx, l.LoanID)
	assert.True(t, errors.Is(err, apperr.ErrIllegalTransition))
}

func TestRejectAndWithdraw(t *testing.T) {
	f := newFixture(t, 9)
	ctx := context.Background()
	app := f.submit(t, "20000")
	app, err := f.u.BeginReview(ctx, app.ApplicationID, f.ids[2])
	require.NoError(t, err)

	_, err = f.u.Reject(ctx, RejectInput{ApplicationID: app.ApplicationID, ReviewerID: f.ids[2]})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = f.u.Withdraw(ctx, app.ApplicationID, f.ids[3])
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	rejected, err := f.u.Reject(ctx, RejectInput{ApplicationID: app.ApplicationID, ReviewerID: f.ids[2], Reason: "insufficient collateral"})
	require.NoError(t, err)
	assert.Equal(t, domain.AppRejected, rejected.Status)
	assert.NotNil(t, rejected.DecidedAt)

	v, err := f.votes.Get(ctx, *app.VoteID)
	require.NoError(t, err)
	assert.Equal(t, vote.StatusCancelled, v.Status)

	_, err = f.u.Withdraw(ctx, app.ApplicationID, f.ids[0])
	var te *apperr.TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, string(domain.AppRejected), te.From)

	second := f.submit(t, "5000")
	withdrawn, err := f.u.Withdraw(ctx, second.ApplicationID, f.ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.AppWithdrawn, withdrawn.Status)
}

func TestApprove_BlockedOnlyByAssessment(t *testing.T) {
	cases := []struct {
		name     string
		attended int
		amount   string
	}{
		{"ineligible applicant", 4, "20000"},
		{"amount above max loan", 9, "300000.01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.attended)
			ctx := context.Background()
			require.NoError(t, f.repos.Rules.Upsert(ctx, &rules.GroupBusinessRules{
				GroupID: f.group, Facts: rules.Facts{CycleNumber: 1, TechComfort: rules.ComfortLow},
				RequiresMemberVote: false, InterestMethod: domain.Flat, CompositeScore: decimal.Zero,
			}))

			app := f.submit(t, tc.amount)
			app, err := f.u.BeginReview(ctx, app.ApplicationID, f.ids[2])
			require.NoError(t, err)
			assert.Nil(t, app.VoteID, "no vote when the rules do not require one")
			f.signOff(t, app.ApplicationID)

			_, err = f.u.Approve(ctx, ApproveInput{ApplicationID: app.ApplicationID, ReviewerID: f.ids[2]})
			assert.True(t, errors.Is(err, domain.ErrNotEligible), "%v", err)
			assert.False(t, errors.Is(err, domain.ErrApprovalBlocked))

			got, err := f.u.GetApplication(ctx, app.ApplicationID)
			require.NoError(t, err)
			assert.Equal(t, domain.AppUnderReview, got.Status)
		})
	}
}

func TestApprove_FlatInterestFromGroupRules(t *testing.T) {
	f := newFixture(t, 9)
	ctx := context.Background()
	require.NoError(t, f.repos.Rules.Upsert(ctx, &rules.GroupBusinessRules{
		GroupID: f.group, Facts: rules.Facts{CycleNumber: 1, TechComfort: rules.ComfortLow},
		RequiresMemberVote: false, InterestMethod: domain.Flat, CompositeScore: decimal.Zero,
	}))
	app := f.submit(t, "60000")
	_, err := f.u.BeginReview(ctx, app.ApplicationID, f.ids[2])
	require.NoError(t, err)
	f.signOff(t, app.ApplicationID)

	approved, err := f.u.Approve(ctx, ApproveInput{ApplicationID: app.ApplicationID, ReviewerID: f.ids[2]})
	require.NoError(t, err)
	assert.Equal(t, domain.Flat, approved.Loan.InterestMethod)

	l, err := f.u.Disburse(ctx, DisburseInput{LoanID: approved.Loan.LoanID, DisbursedAt: now, CreatedBy: "treasurer"})
	require.NoError(t, err)
	assert.Equal(t, "5400.00", l.TotalInterest.StringFixed(2))
}
