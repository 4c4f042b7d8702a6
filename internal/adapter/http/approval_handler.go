package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	domainApproval "vsla-ledger/internal/domain/approval"
	ucApproval "vsla-ledger/internal/usecase/approval"
)

type ApprovalHandler struct{ uc *ucApproval.Usecase }

func NewApprovalHandler(uc *ucApproval.Usecase) *ApprovalHandler { return &ApprovalHandler{uc: uc} }

type officerApprovalReq struct {
	OfficerID string `json:"officer_id" validate:"required,hex32"`
	Role      string `json:"role"       validate:"required,oneof=CHAIRPERSON TREASURER COMMITTEE"`
	Note      string `json:"note"       validate:"max=500"`
	// Accept canonical date `YYYY-MM-DD`; empty means now
	ApprovalDate string `json:"approval_date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *ApprovalHandler) RecordApproval(c echo.Context) error {
	// Validate path param
	appID := c.Param("application_id")
	if appID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing application_id path param"})
	}
	var req officerApprovalReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	var at time.Time
	if req.ApprovalDate != "" {
		at, _ = time.Parse(time.DateOnly, req.ApprovalDate)
	}

	dto, err := h.uc.Record(c.Request().Context(), ucApproval.RecordInput{
		ApplicationID: appID,
		OfficerID:     req.OfficerID,
		Role:          domainApproval.Role(req.Role),
		Note:          req.Note,
		ApprovedAt:    at,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *ApprovalHandler) ListApprovals(c echo.Context) error {
	appID, ok, err := requireParam(c, "application_id")
	if !ok {
		return err
	}
	rows, err := h.uc.List(c.Request().Context(), appID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"application_id": appID, "approvals": rows})
}
