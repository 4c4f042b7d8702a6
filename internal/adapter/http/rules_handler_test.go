package http

import (
	stdhttp "net/http"
	"testing"

	"github.com/shopspring/decimal"

	domainRules "vsla-ledger/internal/domain/rules"
)

func TestRulesFlow_UpsertAssessGet(t *testing.T) {
	e := newServer(t)
	path := "/groups/" + groupA + "/rules"

	rec := do(t, e, stdhttp.MethodGet, path, nil)
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("get before upsert status = %d, want 404", rec.Code)
	}

	facts := map[string]any{
		"cycle_number":            2,
		"years_together":          3,
		"has_passbooks":           true,
		"has_ledger":              true,
		"record_keeping_score":    100,
		"loan_agreement_percent":  100,
		"investment_plan_percent": 100,
		"literacy_complete":       true,
		"internet_available":      true,
		"smartphone_percent":      0,
		"tech_comfort":            "LOW",
		"requires_member_vote":    false,
	}
	rec = do(t, e, stdhttp.MethodPut, path, facts)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("upsert status = %d; body=%s", rec.Code, rec.Body.String())
	}
	if g := decode[domainRules.GroupBusinessRules](t, rec); g.RequiresMemberVote {
		t.Fatalf("requires_member_vote should be stored as false")
	}

	rec = do(t, e, stdhttp.MethodPost, path+"/assess", nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("assess status = %d; body=%s", rec.Code, rec.Body.String())
	}
	g := decode[domainRules.GroupBusinessRules](t, rec)
	if !g.CompositeScore.Equal(decimal.NewFromInt(95)) || !g.EligibleForEnhancedFeatures {
		t.Fatalf("composite = %s eligible = %v, want 95 and eligible", g.CompositeScore, g.EligibleForEnhancedFeatures)
	}
	if !g.HybridAttendance || g.DigitalAttendance {
		t.Fatalf("attendance modes: hybrid=%v digital=%v", g.HybridAttendance, g.DigitalAttendance)
	}

	rec = do(t, e, stdhttp.MethodGet, path, nil)
	if rec.Code != stdhttp.StatusOK || decode[domainRules.GroupBusinessRules](t, rec).LastAssessedAt == nil {
		t.Fatalf("get after assess: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUpsertFacts_Validation(t *testing.T) {
	e := newServer(t)
	rec := do(t, e, stdhttp.MethodPut, "/groups/"+groupA+"/rules", map[string]any{
		"smartphone_percent": 140,
		"tech_comfort":       "EXPERT",
		"interest_method":    "SIMPLE",
	})
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	er := decode[ErrorResponse](t, rec)
	for _, f := range []string{"SmartphonePercent", "TechComfort", "InterestMethod"} {
		if !containsFieldMsg(er.Details, f, "") {
			t.Fatalf("missing detail for %s: %+v", f, er.Details)
		}
	}
}
