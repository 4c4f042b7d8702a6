package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

// Composite weights; they sum to 100.
const (
	weightSavings    = 35
	weightTenure     = 25
	weightAttendance = 20
	weightPayment    = 20
)

// Metrics are the historical facts the scorer reads for one member.
type Metrics struct {
	TotalSavings       decimal.Decimal
	MonthsActive       int
	AttendanceRate     decimal.Decimal // 0..100
	PaymentConsistency decimal.Decimal // 0..100
	OutstandingFines   decimal.Decimal
}

// ScoringPolicy carries every tunable of Score. Build it from configuration, never from globals.
type ScoringPolicy struct {
	EligibilityThreshold int
	MinAttendanceRate    int
	MinMonthsActive      int
	SavingsTarget        decimal.Decimal
	TenureTargetMonths   int
	FinePenaltyUnit      decimal.Decimal
	MaxLoanMultiplier    int
	RiskLowThreshold     int
	RiskMidThreshold     int
}

func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		EligibilityThreshold: 60,
		MinAttendanceRate:    60,
		MinMonthsActive:      3,
		SavingsTarget:        decimal.NewFromInt(100000),
		TenureTargetMonths:   12,
		FinePenaltyUnit:      decimal.NewFromInt(1000),
		MaxLoanMultiplier:    3,
		RiskLowThreshold:     80,
		RiskMidThreshold:     60,
	}
}

// LendingPolicy holds the lifecycle tunables.
type LendingPolicy struct {
	AssessmentValidity  time.Duration
	DefaultInterestRate decimal.Decimal // percent per annum
	LateFeePerDay       decimal.Decimal
	MinGuarantors       int
}

func DefaultLendingPolicy() LendingPolicy {
	return LendingPolicy{
		AssessmentValidity:  30 * 24 * time.Hour,
		DefaultInterestRate: decimal.NewFromInt(18),
		LateFeePerDay:       decimal.NewFromInt(50),
		MinGuarantors:       0,
	}
}

type Result struct {
	Score                 decimal.Decimal
	Eligible              bool
	MaxLoan               decimal.Decimal
	RiskTier              RiskTier
	RecommendedTermMonths int
}

// ratio returns num/den clamped to [0,1]; a non-positive den counts as fully met.
func ratio(num, den decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return decimal.NewFromInt(1)
	}
	r := num.Div(den)
	if r.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(r, decimal.NewFromInt(1))
}

func clampPercent(v decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, decimal.Min(v, hundred))
}

// Score is deterministic and side-effect free.
func Score(m Metrics, p ScoringPolicy) Result {
	savings := ratio(m.TotalSavings, p.SavingsTarget).Mul(decimal.NewFromInt(weightSavings))
	tenure := ratio(decimal.NewFromInt(int64(m.MonthsActive)), decimal.NewFromInt(int64(p.TenureTargetMonths))).
		Mul(decimal.NewFromInt(weightTenure))
	attendance := clampPercent(m.AttendanceRate).Mul(decimal.NewFromInt(weightAttendance)).Div(hundred)
	payment := clampPercent(m.PaymentConsistency).Mul(decimal.NewFromInt(weightPayment)).Div(hundred)

	score := savings.Add(tenure).Add(attendance).Add(payment)
	if m.OutstandingFines.IsPositive() && p.FinePenaltyUnit.IsPositive() {
		score = score.Sub(m.OutstandingFines.Div(p.FinePenaltyUnit))
	}
	score = decimal.Max(decimal.Zero, decimal.Min(score, hundred)).Round(2)

	tier := RiskHigh
	switch {
	case score.GreaterThanOrEqual(decimal.NewFromInt(int64(p.RiskLowThreshold))):
		tier = RiskLow
	case score.GreaterThanOrEqual(decimal.NewFromInt(int64(p.RiskMidThreshold))):
		tier = RiskMedium
	}

	eligible := score.GreaterThanOrEqual(decimal.NewFromInt(int64(p.EligibilityThreshold))) &&
		clampPercent(m.AttendanceRate).GreaterThanOrEqual(decimal.NewFromInt(int64(p.MinAttendanceRate))) &&
		m.MonthsActive >= p.MinMonthsActive &&
		m.TotalSavings.IsPositive()

	res := Result{Score: score, Eligible: eligible, MaxLoan: decimal.Zero, RiskTier: tier}
	switch tier {
	case RiskLow:
		res.RecommendedTermMonths = 12
	case RiskMedium:
		res.RecommendedTermMonths = 6
	default:
		res.RecommendedTermMonths = 3
	}
	if eligible {
		limit := m.TotalSavings.Mul(decimal.NewFromInt(int64(p.MaxLoanMultiplier)))
		switch tier {
		case RiskMedium:
			limit = limit.Div(decimal.NewFromInt(2))
		case RiskHigh:
			limit = limit.Div(decimal.NewFromInt(4))
		}
		res.MaxLoan = limit.Round(2)
	}
	return res
}
