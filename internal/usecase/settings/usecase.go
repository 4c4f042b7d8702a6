package settings

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"vsla-ledger/internal/domain/apperr"
	"vsla-ledger/internal/domain/loan"
	"vsla-ledger/internal/domain/rules"
	"vsla-ledger/internal/domain/sysconfig"
	"vsla-ledger/internal/domain/vote"
	"vsla-ledger/internal/log"
)

// Policies are the value objects handed to the pure engine functions.
type Policies struct {
	Scoring  loan.ScoringPolicy
	Lending  loan.LendingPolicy
	Voting   vote.Policy
	Rules    rules.Policy
	Warnings []sysconfig.Warning
}

// Source yields the current policies; usecases depend on this, not on storage.
type Source interface {
	Policies(ctx context.Context) (Policies, error)
}

type fixed Policies

func (f fixed) Policies(context.Context) (Policies, error) { return Policies(f), nil }

// Fixed returns a Source that always yields p.
func Fixed(p Policies) Source { return fixed(p) }

// Defaults are the documented fallbacks of every policy.
func Defaults() Policies {
	return Policies{
		Scoring: loan.DefaultScoringPolicy(),
		Lending: loan.DefaultLendingPolicy(),
		Voting:  vote.DefaultPolicy(),
		Rules:   rules.DefaultPolicy(),
	}
}

type SetInput struct {
	Key         string         `json:"key"`
	ValueType   sysconfig.Type `json:"value_type"`
	Value       string         `json:"value"`
	Description string         `json:"description,omitempty"`
	UpdatedBy   string         `json:"updated_by"`
}

type Usecase struct {
	repo sysconfig.Repository
	log  *log.Logger
}

func NewUsecase(repo sysconfig.Repository, logger *log.Logger) *Usecase {
	return &Usecase{repo: repo, log: log.OrDiscard(logger).WithComponent(log.ComponentSettings)}
}

func documentedType(key string) (sysconfig.Type, bool) {
	for _, s := range sysconfig.Defaults {
		if s.Key == key {
			return s.ValueType, true
		}
	}
	return "", false
}

// ValidateSet rejects values that would not parse, so stored rows are always readable.
func ValidateSet(in SetInput) apperr.Violations {
	var v apperr.Violations
	if strings.TrimSpace(in.Key) == "" {
		v = v.Add("key", "required")
	}
	if !in.ValueType.Valid() {
		return v.Add("value_type", "must be BOOLEAN, INTEGER, STRING or JSON")
	}
	if want, ok := documentedType(in.Key); ok && want != in.ValueType {
		v = v.Add("value_type", "key "+in.Key+" is "+string(want))
	}
	parsed, err := sysconfig.Parse(in.ValueType, in.Value)
	if err != nil {
		return v.Add("value", err.Error())
	}
	if err := sysconfig.CheckBound(in.Key, parsed); err != nil {
		v = v.Add("value", err.Error())
	}
	return v
}

func (u *Usecase) Set(ctx context.Context, in SetInput) (*sysconfig.Setting, error) {
	if err := ValidateSet(in).Err(); err != nil {
		return nil, err
	}
	s := &sysconfig.Setting{
		Key:         in.Key,
		ValueType:   in.ValueType,
		RawValue:    in.Value,
		Description: in.Description,
		UpdatedBy:   in.UpdatedBy,
	}
	if err := u.repo.Upsert(ctx, s); err != nil {
		return nil, err
	}
	u.log.InfoContext(ctx, "configuration updated", log.FieldConfigKey, in.Key)
	return s, nil
}

func (u *Usecase) Get(ctx context.Context, key string) (*sysconfig.Setting, error) {
	s, err := u.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sysconfig.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func (u *Usecase) List(ctx context.Context) ([]sysconfig.Setting, error) {
	return u.repo.List(ctx)
}

// SeedDefaults inserts the documented keys that are missing and leaves the rest alone.
func (u *Usecase) SeedDefaults(ctx context.Context) (int64, error) {
	n, err := u.repo.CreateMissing(ctx, sysconfig.Defaults)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		u.log.InfoContext(ctx, "seeded default configuration", log.FieldCount, n)
	}
	return n, nil
}

// Policies reads the table once and resolves every policy. Missing or
// mistyped keys fall back to defaults and are logged and returned as warnings.
func (u *Usecase) Policies(ctx context.Context) (Policies, error) {
	rows, err := u.repo.List(ctx)
	if err != nil {
		return Policies{}, err
	}
	p := Build(sysconfig.NewSnapshot(rows))
	for _, w := range p.Warnings {
		u.log.WarnContext(ctx, "configuration fallback", log.FieldConfigKey, w.Key, log.FieldError, w.Reason)
	}
	return p, nil
}

// Build resolves policies from a parsed snapshot.
func Build(snap *sysconfig.Snapshot) Policies {
	r := sysconfig.NewReader(snap)
	p := Defaults()

	sc := &p.Scoring
	sc.EligibilityThreshold = r.Percent(sysconfig.KeyEligibilityThreshold, sc.EligibilityThreshold)
	sc.MinAttendanceRate = r.Percent(sysconfig.KeyMinAttendanceRate, sc.MinAttendanceRate)
	sc.MinMonthsActive = r.Int(sysconfig.KeyMinMonthsActive, sc.MinMonthsActive)
	sc.SavingsTarget = r.Decimal(sysconfig.KeySavingsTarget, sc.SavingsTarget)
	sc.TenureTargetMonths = r.Int(sysconfig.KeyTenureTargetMonths, sc.TenureTargetMonths)
	sc.FinePenaltyUnit = r.Decimal(sysconfig.KeyFinePenaltyUnit, sc.FinePenaltyUnit)
	sc.MaxLoanMultiplier = r.Int(sysconfig.KeyMaxLoanMultiplier, sc.MaxLoanMultiplier)
	sc.RiskLowThreshold = r.Percent(sysconfig.KeyRiskLowThreshold, sc.RiskLowThreshold)
	sc.RiskMidThreshold = r.Percent(sysconfig.KeyRiskMidThreshold, sc.RiskMidThreshold)
	if sc.RiskMidThreshold > sc.RiskLowThreshold {
		def := loan.DefaultScoringPolicy()
		sc.RiskLowThreshold, sc.RiskMidThreshold = def.RiskLowThreshold, def.RiskMidThreshold
		r.Fallback(sysconfig.KeyRiskMidThreshold, "above the low-risk threshold, using defaults for both")
	}

	lp := &p.Lending
	days := r.Int(sysconfig.KeyAssessmentValidityDays, int(lp.AssessmentValidity/(24*time.Hour)))
	lp.AssessmentValidity = time.Duration(days) * 24 * time.Hour
	lp.DefaultInterestRate = r.Decimal(sysconfig.KeyDefaultInterestRate, lp.DefaultInterestRate)
	lp.LateFeePerDay = r.Decimal(sysconfig.KeyLateFeePerDay, lp.LateFeePerDay)
	lp.MinGuarantors = r.Int(sysconfig.KeyMinGuarantors, lp.MinGuarantors)

	vp := &p.Voting
	vp.QuorumPercent = r.Percent(sysconfig.KeyQuorumPercent, vp.QuorumPercent)
	vp.ThresholdPercent = r.Percent(sysconfig.KeyThresholdPercent, vp.ThresholdPercent)
	switch tb := vote.TieBreak(r.String(sysconfig.KeyTieBreak, string(vp.TieBreak))); tb {
	case vote.TieEarliestOption, vote.TieNoWinner:
		vp.TieBreak = tb
	default:
		p.Warnings = append(p.Warnings, sysconfig.Warning{Key: sysconfig.KeyTieBreak, Reason: "unknown tie-break " + string(tb) + ", using default"})
	}
	hours := r.Int(sysconfig.KeyDefaultWindowHours, int(vp.DefaultWindow/time.Hour))
	vp.DefaultWindow = time.Duration(hours) * time.Hour
	vp.AutoCloseOnMajority = r.Bool(sysconfig.KeyAutoCloseOnMajority, vp.AutoCloseOnMajority)

	rp := &p.Rules
	gates := rp.Gates
	if r.JSON(sysconfig.KeyHardGates, &gates) {
		rp.Gates = gates
	}
	rp.HybridMinSmartphone = r.Percent(sysconfig.KeyHybridMinSmartphone, rp.HybridMinSmartphone)
	rp.DigitalMinSmartphone = r.Percent(sysconfig.KeyDigitalMinSmartphone, rp.DigitalMinSmartphone)
	if c := rules.Comfort(r.String(sysconfig.KeyDigitalMinComfort, string(rp.DigitalMinComfort))); c.Valid() {
		rp.DigitalMinComfort = c
	} else {
		p.Warnings = append(p.Warnings, sysconfig.Warning{Key: sysconfig.KeyDigitalMinComfort, Reason: "unknown comfort tier " + string(c) + ", using default"})
	}

	p.Warnings = append(r.Warnings(), p.Warnings...)
	return p
}
