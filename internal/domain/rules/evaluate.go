package rules

import (
	"github.com/shopspring/decimal"
)

// Gates are the conjunctive thresholds for enhanced features.
type Gates struct {
	MinComposite      int `json:"min_composite"`
	MinCycle          int `json:"min_cycle"`
	MinYears          int `json:"min_years"`
	MinLoanAgreement  int `json:"min_loan_agreement"`
	MinInvestmentPlan int `json:"min_investment_plan"`
}

// Policy is the configuration consumed by Evaluate.
type Policy struct {
	Gates                Gates
	HybridMinSmartphone  int
	DigitalMinSmartphone int
	DigitalMinComfort    Comfort
}

func DefaultPolicy() Policy {
	return Policy{
		Gates: Gates{
			MinComposite:      80,
			MinCycle:          2,
			MinYears:          3,
			MinLoanAgreement:  100,
			MinInvestmentPlan: 75,
		},
		HybridMinSmartphone:  50,
		DigitalMinSmartphone: 80,
		DigitalMinComfort:    ComfortMedium,
	}
}

// Breakdown is the point allocation: maturity 40, record keeping 20,
// member agreement 20, training 10, operational 10.
type Breakdown struct {
	Maturity      decimal.Decimal `json:"maturity"`
	RecordKeeping decimal.Decimal `json:"record_keeping"`
	Agreement     decimal.Decimal `json:"agreement"`
	Training      decimal.Decimal `json:"training"`
	Operational   decimal.Decimal `json:"operational"`
}

func (b Breakdown) Sum() decimal.Decimal {
	return b.Maturity.Add(b.RecordKeeping).Add(b.Agreement).Add(b.Training).Add(b.Operational)
}

type GateResult struct {
	Gate   string `json:"gate"`
	Passed bool   `json:"passed"`
}

type AttendanceModes struct {
	Manual  bool `json:"manual"`
	Hybrid  bool `json:"hybrid"`
	Digital bool `json:"digital"`
}

type Evaluation struct {
	Composite decimal.Decimal `json:"composite_score"`
	Breakdown Breakdown       `json:"breakdown"`
	Gates     []GateResult    `json:"gates"`
	Eligible  bool            `json:"eligible_for_enhanced_features"`
	Modes     AttendanceModes `json:"attendance_modes"`
}

func dec(i int) decimal.Decimal { return decimal.NewFromInt(int64(i)) }

func capAt(v decimal.Decimal, limit int) decimal.Decimal {
	return decimal.Max(decimal.Zero, decimal.Min(v, dec(limit)))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Score allocates points from the facts.
func Score(f Facts) Breakdown {
	cycles := capAt(dec(f.CycleNumber*10), 20)
	years := capAt(dec(20*f.YearsTogether).Div(dec(3)), 20)

	record := decimal.Zero
	if f.HasPassbooks {
		record = record.Add(dec(5))
	}
	if f.HasLedger {
		record = record.Add(dec(5))
	}
	record = record.Add(dec(clampInt(f.RecordKeepingScore, 0, 100)).Div(dec(10)))

	agreement := dec(clampInt(f.LoanAgreementPercent, 0, 100)).Div(dec(10)).
		Add(dec(clampInt(f.InvestmentPlanPercent, 0, 100)).Div(dec(10)))

	training := decimal.Zero
	if f.LiteracyComplete {
		training = dec(10)
	}

	ops := dec(clampInt(f.SmartphonePercent, 0, 100) * 3).Div(dec(100))
	if f.InternetAvailable {
		ops = ops.Add(dec(4))
	}
	ops = ops.Add(dec(f.TechComfort.rank()))

	return Breakdown{
		Maturity:      cycles.Add(years).Round(2),
		RecordKeeping: record.Round(2),
		Agreement:     agreement.Round(2),
		Training:      training,
		Operational:   ops.Round(2),
	}
}

// Evaluate scores the facts and applies every hard gate. The composite alone
// never grants enhanced features.
func Evaluate(f Facts, p Policy) Evaluation {
	b := Score(f)
	composite := b.Sum().Round(2)
	g := p.Gates
	gates := []GateResult{
		{"composite", composite.GreaterThanOrEqual(dec(g.MinComposite))},
		{"cycle", f.CycleNumber >= g.MinCycle},
		{"years_together", f.YearsTogether >= g.MinYears},
		{"has_passbooks", f.HasPassbooks},
		{"has_ledger", f.HasLedger},
		{"loan_agreement", f.LoanAgreementPercent >= g.MinLoanAgreement},
		{"investment_plan", f.InvestmentPlanPercent >= g.MinInvestmentPlan},
		{"literacy_complete", f.LiteracyComplete},
	}
	eligible := true
	for _, gr := range gates {
		eligible = eligible && gr.Passed
	}

	modes := AttendanceModes{
		Manual: true,
		Hybrid: f.InternetAvailable || f.SmartphonePercent >= p.HybridMinSmartphone,
		Digital: f.InternetAvailable &&
			f.SmartphonePercent >= p.DigitalMinSmartphone &&
			f.TechComfort.AtLeast(p.DigitalMinComfort) &&
			eligible,
	}
	return Evaluation{Composite: composite, Breakdown: b, Gates: gates, Eligible: eligible, Modes: modes}
}
