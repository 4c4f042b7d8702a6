package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	domainMember "vsla-ledger/internal/domain/member"
	ucMember "vsla-ledger/internal/usecase/member"
)

type MemberHandler struct{ uc *ucMember.Usecase }

func NewMemberHandler(uc *ucMember.Usecase) *MemberHandler { return &MemberHandler{uc: uc} }

type registerMemberReq struct {
	Name     string    `json:"name"      validate:"required,max=120"`
	Role     string    `json:"role"      validate:"omitempty,oneof=MEMBER CHAIRPERSON TREASURER SECRETARY COMMITTEE"`
	JoinedAt time.Time `json:"joined_at" validate:"required"`
}

func (h *MemberHandler) Register(c echo.Context) error {
	groupID, ok, err := requireParam(c, "group_id")
	if !ok {
		return err
	}
	var req registerMemberReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	m, err := h.uc.Register(c.Request().Context(), ucMember.RegisterInput{
		GroupID:  groupID,
		Name:     req.Name,
		Role:     domainMember.Role(req.Role),
		JoinedAt: req.JoinedAt,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

type attendanceReq struct {
	MemberID    string    `json:"member_id"    validate:"required,hex32"`
	MeetingDate time.Time `json:"meeting_date" validate:"required"`
	Present     bool      `json:"present"`
}

func (h *MemberHandler) RecordAttendance(c echo.Context) error {
	groupID, ok, err := requireParam(c, "group_id")
	if !ok {
		return err
	}
	var req attendanceReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	err = h.uc.RecordAttendance(c.Request().Context(), ucMember.AttendanceInput{
		GroupID:     groupID,
		MemberID:    req.MemberID,
		MeetingDate: req.MeetingDate,
		Present:     req.Present,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type issueFineReq struct {
	MemberID string          `json:"member_id" validate:"required,hex32"`
	Amount   decimal.Decimal `json:"amount"    validate:"dec2,gt=0"`
	Reason   string          `json:"reason"    validate:"required,max=255"`
	IssuedAt time.Time       `json:"issued_at"`
}

func (h *MemberHandler) IssueFine(c echo.Context) error {
	groupID, ok, err := requireParam(c, "group_id")
	if !ok {
		return err
	}
	var req issueFineReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	f, err := h.uc.IssueFine(c.Request().Context(), ucMember.FineInput{
		GroupID:  groupID,
		MemberID: req.MemberID,
		Amount:   req.Amount,
		Reason:   req.Reason,
		IssuedAt: req.IssuedAt,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, f)
}

type payFineReq struct {
	PaidAt    time.Time `json:"paid_at"    validate:"required"`
	CreatedBy string    `json:"created_by" validate:"required"`
}

func (h *MemberHandler) PayFine(c echo.Context) error {
	fineID, ok, err := requireParam(c, "fine_id")
	if !ok {
		return err
	}
	var req payFineReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	f, err := h.uc.PayFine(c.Request().Context(), ucMember.PayFineInput{
		FineID:    fineID,
		PaidAt:    req.PaidAt,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, f)
}
