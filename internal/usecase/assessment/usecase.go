// Package assessment derives a member's loan metrics from the ledger and
// membership records and persists the scored snapshot.
package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vsla-ledger/internal/domain/ledger"
	"vsla-ledger/internal/domain/loan"
	"vsla-ledger/internal/domain/member"
	"vsla-ledger/internal/domain/uow"
	"vsla-ledger/internal/log"
	ledgeruc "vsla-ledger/internal/usecase/ledger"
	memberuc "vsla-ledger/internal/usecase/member"
	"vsla-ledger/internal/usecase/settings"
	"vsla-ledger/pkg/id"
)

type Usecase struct {
	loans    loan.Repository
	uow      uow.UnitOfWork
	policies settings.Source
	log      *log.Logger
	now      func() time.Time
}

func NewUsecase(loans loan.Repository, tx uow.UnitOfWork, policies settings.Source, logger *log.Logger) *Usecase {
	return &Usecase{
		loans:    loans,
		uow:      tx,
		policies: policies,
		log:      log.OrDiscard(logger).WithComponent(log.ComponentAssessment),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Assess scores the member now and makes the result its current assessment.
func (u *Usecase) Assess(ctx context.Context, groupID, memberID string) (*loan.Assessment, error) {
	p, err := u.policies.Policies(ctx)
	if err != nil {
		return nil, err
	}
	var out *loan.Assessment
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		a, err := Record(ctx, r, groupID, memberID, p, u.now())
		out = a
		return err
	})
	if err != nil {
		return nil, err
	}
	u.log.InfoContext(ctx, "member assessed",
		log.FieldGroupID, groupID, log.FieldMemberID, memberID,
		"score", out.EligibilityScore.StringFixed(2), "eligible", out.IsEligible, "risk_tier", out.RiskTier)
	return out, nil
}

// Current returns the member's current assessment, expired or not.
func (u *Usecase) Current(ctx context.Context, memberID string) (*loan.Assessment, error) {
	a, err := u.loans.CurrentAssessment(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, loan.ErrAssessmentNotFound
		}
		return nil, err
	}
	return a, nil
}

// Record computes metrics inside the caller's transaction, supersedes older
// assessments and stores the new one.
func Record(ctx context.Context, r uow.Repos, groupID, memberID string, p settings.Policies, now time.Time) (*loan.Assessment, error) {
	m, err := memberuc.ActiveIn(ctx, r.Members, groupID, memberID)
	if err != nil {
		return nil, err
	}
	metrics, err := Collect(ctx, r, m, now)
	if err != nil {
		return nil, err
	}
	res := loan.Score(metrics, p.Scoring)

	a := &loan.Assessment{
		AssessmentID:          id.NewID32(),
		GroupID:               groupID,
		MemberID:              memberID,
		TotalSavings:          metrics.TotalSavings,
		MonthsActive:          metrics.MonthsActive,
		AttendanceRate:        metrics.AttendanceRate,
		PaymentConsistency:    metrics.PaymentConsistency,
		OutstandingFines:      metrics.OutstandingFines,
		EligibilityScore:      res.Score,
		IsEligible:            res.Eligible,
		MaxLoanAmount:         res.MaxLoan,
		RecommendedTermMonths: res.RecommendedTermMonths,
		RiskTier:              res.RiskTier,
		AssessedAt:            now,
		ValidUntil:            now.Add(p.Lending.AssessmentValidity),
		IsCurrent:             true,
	}
	if err := r.Loans.SupersedeAssessments(ctx, memberID); err != nil {
		return nil, err
	}
	if err := r.Loans.CreateAssessment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Collect gathers the scorer inputs for m as of now.
func Collect(ctx context.Context, r uow.Repos, m *member.Member, now time.Time) (loan.Metrics, error) {
	memberID := m.MemberID
	entries, err := r.Ledger.List(ctx, ledger.HistoryFilter{GroupID: m.GroupID, MemberID: &memberID})
	if err != nil {
		return loan.Metrics{}, err
	}
	present, total, err := r.Members.AttendanceStats(ctx, m.GroupID, memberID)
	if err != nil {
		return loan.Metrics{}, err
	}
	fines, err := r.Members.OutstandingFines(ctx, m.GroupID, memberID)
	if err != nil {
		return loan.Metrics{}, err
	}

	months := m.MonthsActive(now)
	return loan.Metrics{
		TotalSavings:       ledgeruc.SumFund(entries, ledger.FundSavings),
		MonthsActive:       months,
		AttendanceRate:     percent(present, total),
		PaymentConsistency: PaymentConsistency(entries, m.JoinedAt, now, months),
		OutstandingFines:   fines,
	}, nil
}

func percent(part, whole int64) decimal.Decimal {
	if whole <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part * 100).Div(decimal.NewFromInt(whole)).Round(2)
}

// PaymentConsistency is the share of active months (at least one) holding a
// savings deposit that was not later reversed.
func PaymentConsistency(entries []ledger.Entry, joined, now time.Time, monthsActive int) decimal.Decimal {
	reversed := map[string]bool{}
	for _, e := range entries {
		if e.ReversesEntryID != nil {
			reversed[*e.ReversesEntryID] = true
		}
	}
	seen := map[[2]int]bool{}
	for _, e := range entries {
		if e.EntryType != ledger.EntryDeposit || e.Status == ledger.StatusReversed || reversed[e.EntryID] {
			continue
		}
		if !e.Savings.IsPositive() || e.TransactionDate.Before(joined) || e.TransactionDate.After(now) {
			continue
		}
		y, mo, _ := e.TransactionDate.Date()
		seen[[2]int{y, int(mo)}] = true
	}
	months := max(monthsActive, 1)
	hits := min(len(seen), months)
	return percent(int64(hits), int64(months))
}
