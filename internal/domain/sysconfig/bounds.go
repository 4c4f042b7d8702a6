package sysconfig

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"vsla-ledger/internal/domain/apperr"
)

// Bound is the inclusive range a documented numeric key accepts.
type Bound struct {
	Min int64
	Max int64
}

func atLeast(n int64) Bound { return Bound{Min: n, Max: math.MaxInt32} }

var percent = Bound{Min: 0, Max: 100}

func (b Bound) Contains(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(decimal.NewFromInt(b.Min)) && d.LessThanOrEqual(decimal.NewFromInt(b.Max))
}

func (b Bound) String() string {
	if b.Max == math.MaxInt32 {
		return fmt.Sprintf("at least %d", b.Min)
	}
	return fmt.Sprintf("%d..%d", b.Min, b.Max)
}

// Bounds covers every documented INTEGER key and every STRING key holding a decimal.
var Bounds = map[string]Bound{
	KeyEligibilityThreshold:   percent,
	KeyMinAttendanceRate:      percent,
	KeyMinMonthsActive:        atLeast(0),
	KeySavingsTarget:          atLeast(1),
	KeyTenureTargetMonths:     atLeast(1),
	KeyFinePenaltyUnit:        atLeast(0),
	KeyMaxLoanMultiplier:      atLeast(1),
	KeyRiskLowThreshold:       percent,
	KeyRiskMidThreshold:       percent,
	KeyAssessmentValidityDays: atLeast(1),
	KeyDefaultInterestRate:    percent,
	KeyLateFeePerDay:          atLeast(0),
	KeyMinGuarantors:          atLeast(0),
	KeyQuorumPercent:          percent,
	KeyThresholdPercent:       percent,
	KeyDefaultWindowHours:     atLeast(1),
	KeyHybridMinSmartphone:    percent,
	KeyDigitalMinSmartphone:   percent,
}

// numeric returns the number carried by v, if any.
func numeric(v Value) (decimal.Decimal, bool) {
	switch v.Type {
	case TypeInteger:
		return decimal.NewFromInt(v.Int), true
	case TypeString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.Str))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

// CheckBound rejects a value of a bounded key that is not a number in range.
// Keys without a bound always pass.
func CheckBound(key string, v Value) error {
	b, ok := Bounds[key]
	if !ok {
		return nil
	}
	d, ok := numeric(v)
	if !ok {
		return fmt.Errorf("%w: %s must be a number", apperr.ErrConfig, key)
	}
	if !b.Contains(d) {
		return fmt.Errorf("%w: %s must be %s", apperr.ErrConfig, key, b)
	}
	return nil
}
