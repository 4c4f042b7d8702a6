package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"vsla-ledger/internal/domain/loan"
	domainRules "vsla-ledger/internal/domain/rules"
	ucRules "vsla-ledger/internal/usecase/rules"
)

type RulesHandler struct{ uc *ucRules.Usecase }

func NewRulesHandler(uc *ucRules.Usecase) *RulesHandler { return &RulesHandler{uc: uc} }

type groupFactsReq struct {
	CycleNumber           int    `json:"cycle_number"            validate:"gte=0"`
	YearsTogether         int    `json:"years_together"          validate:"gte=0"`
	HasPassbooks          bool   `json:"has_passbooks"`
	HasLedger             bool   `json:"has_ledger"`
	RecordKeepingScore    int    `json:"record_keeping_score"    validate:"gte=0,lte=100"`
	LoanAgreementPercent  int    `json:"loan_agreement_percent"  validate:"gte=0,lte=100"`
	InvestmentPlanPercent int    `json:"investment_plan_percent" validate:"gte=0,lte=100"`
	LiteracyComplete      bool   `json:"literacy_complete"`
	InternetAvailable     bool   `json:"internet_available"`
	SmartphonePercent     int    `json:"smartphone_percent"      validate:"gte=0,lte=100"`
	TechComfort           string `json:"tech_comfort"            validate:"required,oneof=LOW MEDIUM HIGH"`

	RequiresMemberVote *bool  `json:"requires_member_vote"`
	InterestMethod     string `json:"interest_method"         validate:"omitempty,oneof=DECLINING_BALANCE FLAT"`
}

func (h *RulesHandler) UpsertFacts(c echo.Context) error {
	groupID, ok, err := requireParam(c, "group_id")
	if !ok {
		return err
	}
	var req groupFactsReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	g, err := h.uc.Upsert(c.Request().Context(), ucRules.UpsertInput{
		GroupID: groupID,
		Facts: domainRules.Facts{
			CycleNumber:           req.CycleNumber,
			YearsTogether:         req.YearsTogether,
			HasPassbooks:          req.HasPassbooks,
			HasLedger:             req.HasLedger,
			RecordKeepingScore:    req.RecordKeepingScore,
			LoanAgreementPercent:  req.LoanAgreementPercent,
			InvestmentPlanPercent: req.InvestmentPlanPercent,
			LiteracyComplete:      req.LiteracyComplete,
			InternetAvailable:     req.InternetAvailable,
			SmartphonePercent:     req.SmartphonePercent,
			TechComfort:           domainRules.Comfort(req.TechComfort),
		},
		RequiresMemberVote: req.RequiresMemberVote,
		InterestMethod:     loan.InterestMethod(req.InterestMethod),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *RulesHandler) Assess(c echo.Context) error {
	groupID, ok, err := requireParam(c, "group_id")
	if !ok {
		return err
	}
	g, err := h.uc.Assess(c.Request().Context(), groupID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *RulesHandler) GetRules(c echo.Context) error {
	groupID, ok, err := requireParam(c, "group_id")
	if !ok {
		return err
	}
	g, err := h.uc.Get(c.Request().Context(), groupID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}
