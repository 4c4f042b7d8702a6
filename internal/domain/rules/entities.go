package rules

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"vsla-ledger/internal/domain/apperr"
	"vsla-ledger/internal/domain/loan"
)

var ErrNotFound = apperr.NotFound("group business rules")

// Comfort is the group's technology comfort tier.
type Comfort string

const (
	ComfortLow    Comfort = "LOW"
	ComfortMedium Comfort = "MEDIUM"
	ComfortHigh   Comfort = "HIGH"
)

func (c Comfort) rank() int {
	switch c {
	case ComfortHigh:
		return 3
	case ComfortMedium:
		return 2
	case ComfortLow:
		return 1
	}
	return 0
}

func (c Comfort) Valid() bool { return c.rank() > 0 }

// AtLeast compares tiers; an unknown tier is below LOW.
func (c Comfort) AtLeast(o Comfort) bool { return c.rank() >= o.rank() }

// Facts are the maturity and readiness inputs maintained by the group.
type Facts struct {
	CycleNumber           int     `gorm:"column:cycle_number;not null;default:1" json:"cycle_number"`
	YearsTogether         int     `gorm:"column:years_together;not null;default:0" json:"years_together"`
	HasPassbooks          bool    `gorm:"column:has_passbooks;not null;default:false" json:"has_passbooks"`
	HasLedger             bool    `gorm:"column:has_ledger;not null;default:false" json:"has_ledger"`
	RecordKeepingScore    int     `gorm:"column:record_keeping_score;not null;default:0" json:"record_keeping_score"`
	LoanAgreementPercent  int     `gorm:"column:loan_agreement_percent;not null;default:0" json:"loan_agreement_percent"`
	InvestmentPlanPercent int     `gorm:"column:investment_plan_percent;not null;default:0" json:"investment_plan_percent"`
	LiteracyComplete      bool    `gorm:"column:literacy_complete;not null;default:false" json:"literacy_complete"`
	InternetAvailable     bool    `gorm:"column:internet_available;not null;default:false" json:"internet_available"`
	SmartphonePercent     int     `gorm:"column:smartphone_percent;not null;default:0" json:"smartphone_percent"`
	TechComfort           Comfort `gorm:"column:tech_comfort;size:8;not null;default:'LOW'" json:"tech_comfort"`
}

// Validate checks ranges of the user-maintained facts.
func (f Facts) Validate() apperr.Violations {
	var v apperr.Violations
	if f.CycleNumber < 0 {
		v = v.Add("cycle_number", "must be >= 0")
	}
	if f.YearsTogether < 0 {
		v = v.Add("years_together", "must be >= 0")
	}
	for _, p := range []struct {
		field string
		val   int
	}{
		{"record_keeping_score", f.RecordKeepingScore},
		{"loan_agreement_percent", f.LoanAgreementPercent},
		{"investment_plan_percent", f.InvestmentPlanPercent},
		{"smartphone_percent", f.SmartphonePercent},
	} {
		if p.val < 0 || p.val > 100 {
			v = v.Add(p.field, "must be within 0..100")
		}
	}
	if !f.TechComfort.Valid() {
		v = v.Add("tech_comfort", "must be LOW, MEDIUM or HIGH")
	}
	return v
}

// Table: group_business_rules. One row per group.
type GroupBusinessRules struct {
	ID      uint64 `gorm:"primaryKey;column:id;autoIncrement" json:"-"`
	GroupID string `gorm:"column:group_id;size:32;not null;uniqueIndex" json:"group_id"`
	Facts   `gorm:"embedded"`

	RequiresMemberVote bool                `gorm:"column:requires_member_vote;not null;default:true" json:"requires_member_vote"`
	InterestMethod     loan.InterestMethod `gorm:"column:interest_method;size:24;not null;default:'DECLINING_BALANCE'" json:"interest_method"`

	CompositeScore              decimal.Decimal `gorm:"column:composite_score;type:decimal(5,2);not null;default:0" json:"composite_score"`
	EligibleForEnhancedFeatures bool            `gorm:"column:eligible_for_enhanced_features;not null;default:false" json:"eligible_for_enhanced_features"`
	GateResults                 datatypes.JSON  `gorm:"column:gate_results" json:"gate_results,omitempty"`
	ManualAttendance            bool            `gorm:"column:manual_attendance;not null;default:true" json:"manual_attendance"`
	HybridAttendance            bool            `gorm:"column:hybrid_attendance;not null;default:false" json:"hybrid_attendance"`
	DigitalAttendance           bool            `gorm:"column:digital_attendance;not null;default:false" json:"digital_attendance"`
	LastAssessedAt              *time.Time      `gorm:"column:last_assessed_at" json:"last_assessed_at,omitempty"`
	CreatedAt                   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt                   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (GroupBusinessRules) TableName() string { return "group_business_rules" }
