package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	assessmentuc "vsla-ledger/internal/usecase/assessment"
	"vsla-ledger/internal/usecase/loan"
)

type LoanHandler struct {
	uc      *loan.Usecase
	assess *assessmentuc.Usecase
}

func NewLoanHandler(uc *loan.Usecase, assess *assessmentuc.Usecase) *LoanHandler {
	return &LoanHandler{uc: uc, assess: assess}
}

type guarantorReq struct {
	MemberID string          `json:"member_id" validate:"required,hex32"`
	Amount   decimal.Decimal `json:"amount"    validate:"dec2,gte=0"`
}

type submitApplicationReq struct {
	GroupID         string          `json:"group_id"              validate:"required,hex32"`
	ApplicantID     string          `json:"applicant_id"          validate:"required,hex32"`
	RequestedAmount decimal.Decimal `json:"requested_amount"      validate:"dec2,gt=0"`
	TermMonths      int             `json:"requested_term_months" validate:"gte=1,lte=60"`
	Purpose         string          `json:"purpose"               validate:"required,max=500"`
	Guarantors      []guarantorReq  `json:"guarantors"            validate:"dive"`
}

func (h *LoanHandler) SubmitApplication(c echo.Context) error {
	var req submitApplicationReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	gs := make([]loan.GuarantorInput, 0, len(req.Guarantors))
	for _, g := range req.Guarantors {
		gs = append(gs, loan.GuarantorInput{MemberID: g.MemberID, Amount: g.Amount})
	}
	a, err := h.uc.Submit(c.Request().Context(), loan.SubmitInput{
		GroupID:         req.GroupID,
		ApplicantID:     req.ApplicantID,
		RequestedAmount: req.RequestedAmount,
		TermMonths:      req.TermMonths,
		Purpose:         req.Purpose,
		Guarantors:      gs,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *LoanHandler) GetApplication(c echo.Context) error {
	appID, ok, err := requireParam(c, "application_id")
	if !ok {
		return err
	}
	a, err := h.uc.GetApplication(c.Request().Context(), appID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

type reviewerReq struct {
	ReviewerID string `json:"reviewer_id" validate:"required"`
}

func (h *LoanHandler) BeginReview(c echo.Context) error {
	appID, ok, err := requireParam(c, "application_id")
	if !ok {
		return err
	}
	var req reviewerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	a, err := h.uc.BeginReview(c.Request().Context(), appID, req.ReviewerID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

type approveApplicationReq struct {
	ReviewerID   string           `json:"reviewer_id"   validate:"required"`
	Amount       *decimal.Decimal `json:"amount"        validate:"omitempty,dec2,gt=0"`
	TermMonths   int              `json:"term_months"   validate:"gte=0,lte=60"`
	InterestRate *decimal.Decimal `json:"interest_rate" validate:"omitempty,dec2,gte=0,lte=100"`
}

func (h *LoanHandler) Approve(c echo.Context) error {
	appID, ok, err := requireParam(c, "application_id")
	if !ok {
		return err
	}
	var req approveApplicationReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	out, err := h.uc.Approve(c.Request().Context(), loan.ApproveInput{
		ApplicationID: appID,
		ReviewerID:    req.ReviewerID,
		Amount:        req.Amount,
		TermMonths:    req.TermMonths,
		InterestRate:  req.InterestRate,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type rejectApplicationReq struct {
	ReviewerID string `json:"reviewer_id" validate:"required"`
	Reason     string `json:"reason"      validate:"required,max=500"`
}

func (h *LoanHandler) Reject(c echo.Context) error {
	appID, ok, err := requireParam(c, "application_id")
	if !ok {
		return err
	}
	var req rejectApplicationReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	a, err := h.uc.Reject(c.Request().Context(), loan.RejectInput{
		ApplicationID: appID,
		ReviewerID:    req.ReviewerID,
		Reason:        req.Reason,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

type withdrawReq struct {
	ApplicantID string `json:"applicant_id" validate:"required,hex32"`
}

func (h *LoanHandler) Withdraw(c echo.Context) error {
	appID, ok, err := requireParam(c, "application_id")
	if !ok {
		return err
	}
	var req withdrawReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	a, err := h.uc.Withdraw(c.Request().Context(), appID, req.ApplicantID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// AssessMember snapshots the member's eligibility for the group.
func (h *LoanHandler) AssessMember(c echo.Context) error {
	groupID, ok, err := requireParam(c, "group_id")
	if !ok {
		return err
	}
	memberID, ok, err := requireParam(c, "member_id")
	if !ok {
		return err
	}
	a, err := h.assess.Assess(c.Request().Context(), groupID, memberID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	loanID, ok, err := requireParam(c, "loan_id")
	if !ok {
		return err
	}
	l, err := h.uc.Get(c.Request().Context(), loanID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

func (h *LoanHandler) Schedule(c echo.Context) error {
	loanID, ok, err := requireParam(c, "loan_id")
	if !ok {
		return err
	}
	rows, err := h.uc.Schedule(c.Request().Context(), loanID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"loan_id": loanID, "installments": rows})
}

type disburseReq struct {
	DisbursedAt time.Time `json:"disbursed_at" validate:"required"`
	CreatedBy   string    `json:"created_by"   validate:"required"`
}

func (h *LoanHandler) Disburse(c echo.Context) error {
	loanID, ok, err := requireParam(c, "loan_id")
	if !ok {
		return err
	}
	var req disburseReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	l, err := h.uc.Disburse(c.Request().Context(), loan.DisburseInput{
		LoanID:      loanID,
		DisbursedAt: req.DisbursedAt,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, l)
}

type repayReq struct {
	Amount    decimal.Decimal `json:"amount"     validate:"dec2,gt=0"`
	PaidAt    time.Time       `json:"paid_at"    validate:"required"`
	CreatedBy string          `json:"created_by" validate:"required"`
}

func (h *LoanHandler) Repay(c echo.Context) error {
	loanID, ok, err := requireParam(c, "loan_id")
	if !ok {
		return err
	}
	var req repayReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	out, err := h.uc.Repay(c.Request().Context(), loan.RepayInput{
		LoanID:    loanID,
		Amount:    req.Amount,
		PaidAt:    req.PaidAt,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}
