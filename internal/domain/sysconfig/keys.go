package sysconfig

import (
	"context"
)

const (
	KeyEligibilityThreshold   = "loan.eligibility_threshold"
	KeyMinAttendanceRate      = "loan.min_attendance_rate"
	KeyMinMonthsActive        = "loan.min_months_active"
	KeySavingsTarget          = "loan.savings_target"
	KeyTenureTargetMonths     = "loan.tenure_target_months"
	KeyFinePenaltyUnit        = "loan.fine_penalty_unit"
	KeyMaxLoanMultiplier      = "loan.max_loan_multiplier"
	KeyRiskLowThreshold       = "loan.risk_low_threshold"
	KeyRiskMidThreshold       = "loan.risk_mid_threshold"
	KeyAssessmentValidityDays = "loan.assessment_validity_days"
	KeyDefaultInterestRate    = "loan.default_interest_rate"
	KeyLateFeePerDay          = "loan.late_fee_per_day"
	KeyMinGuarantors          = "loan.min_guarantors"

	KeyQuorumPercent       = "vote.quorum_percent"
	KeyThresholdPercent    = "vote.threshold_percent"
	KeyTieBreak            = "vote.tie_break"
	KeyDefaultWindowHours  = "vote.default_window_hours"
	KeyAutoCloseOnMajority = "vote.auto_close_on_majority"

	KeyHardGates            = "rules.hard_gates"
	KeyHybridMinSmartphone  = "attendance.hybrid_min_smartphone_percent"
	KeyDigitalMinSmartphone = "attendance.digital_min_smartphone_percent"
	KeyDigitalMinComfort    = "attendance.digital_min_comfort"
)

// Defaults are the documented fallbacks, seeded into an empty table.
var Defaults = []Setting{
	{Key: KeyEligibilityThreshold, ValueType: TypeInteger, RawValue: "60", Description: "minimum composite score for a loan"},
	{Key: KeyMinAttendanceRate, ValueType: TypeInteger, RawValue: "60", Description: "minimum attendance percentage for a loan"},
	{Key: KeyMinMonthsActive, ValueType: TypeInteger, RawValue: "3", Description: "minimum membership months for a loan"},
	{Key: KeySavingsTarget, ValueType: TypeString, RawValue: "100000", Description: "savings that earn the full savings weight"},
	{Key: KeyTenureTargetMonths, ValueType: TypeInteger, RawValue: "12", Description: "months that earn the full tenure weight"},
	{Key: KeyFinePenaltyUnit, ValueType: TypeString, RawValue: "1000", Description: "outstanding fines per score point deducted"},
	{Key: KeyMaxLoanMultiplier, ValueType: TypeInteger, RawValue: "3", Description: "max loan as a multiple of savings"},
	{Key: KeyRiskLowThreshold, ValueType: TypeInteger, RawValue: "80", Description: "score at or above which risk is LOW"},
	{Key: KeyRiskMidThreshold, ValueType: TypeInteger, RawValue: "60", Description: "score at or above which risk is MEDIUM"},
	{Key: KeyAssessmentValidityDays, ValueType: TypeInteger, RawValue: "30", Description: "days an assessment stays usable"},
	{Key: KeyDefaultInterestRate, ValueType: TypeString, RawValue: "18", Description: "annual interest percentage"},
	{Key: KeyLateFeePerDay, ValueType: TypeString, RawValue: "50", Description: "late fee per overdue day"},
	{Key: KeyMinGuarantors, ValueType: TypeInteger, RawValue: "0", Description: "guarantors required on an application"},
	{Key: KeyQuorumPercent, ValueType: TypeInteger, RawValue: "60", Description: "turnout percentage for a binding vote"},
	{Key: KeyThresholdPercent, ValueType: TypeInteger, RawValue: "50", Description: "winning share percentage"},
	{Key: KeyTieBreak, ValueType: TypeString, RawValue: "EARLIEST_OPTION", Description: "EARLIEST_OPTION or NO_WINNER"},
	{Key: KeyDefaultWindowHours, ValueType: TypeInteger, RawValue: "72", Description: "voting window when none is given"},
	{Key: KeyAutoCloseOnMajority, ValueType: TypeBoolean, RawValue: "true", Description: "close early once the result is decided"},
	{Key: KeyHardGates, ValueType: TypeJSON, RawValue: `{"min_composite":80,"min_cycle":2,"min_years":3,"min_loan_agreement":100,"min_investment_plan":75}`, Description: "enhanced feature gates"},
	{Key: KeyHybridMinSmartphone, ValueType: TypeInteger, RawValue: "50", Description: "smartphone percentage for hybrid attendance"},
	{Key: KeyDigitalMinSmartphone, ValueType: TypeInteger, RawValue: "80", Description: "smartphone percentage for digital attendance"},
	{Key: KeyDigitalMinComfort, ValueType: TypeString, RawValue: "MEDIUM", Description: "minimum comfort tier for digital attendance"},
}

type Repository interface {
	List(ctx context.Context) ([]Setting, error)
	Get(ctx context.Context, key string) (*Setting, error)
	// Upsert inserts or updates by key.
	Upsert(ctx context.Context, s *Setting) error
	// CreateMissing inserts rows whose key is absent and returns how many were added.
	CreateMissing(ctx context.Context, rows []Setting) (int64, error)
}
