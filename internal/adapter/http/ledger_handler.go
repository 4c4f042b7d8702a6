package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"vsla-ledger/internal/domain/ledger"
	ledgeruc "vsla-ledger/internal/usecase/ledger"
)

type LedgerHandler struct{ uc *ledgeruc.Usecase }

func NewLedgerHandler(uc *ledgeruc.Usecase) *LedgerHandler { return &LedgerHandler{uc: uc} }

type amountsReq struct {
	Savings        decimal.Decimal `json:"savings"         validate:"dec2,gte=0"`
	ECD            decimal.Decimal `json:"ecd"             validate:"dec2,gte=0"`
	Social         decimal.Decimal `json:"social"          validate:"dec2,gte=0"`
	TargetSavings  decimal.Decimal `json:"target_savings"  validate:"dec2,gte=0"`
	Fines          decimal.Decimal `json:"fines"           validate:"dec2,gte=0"`
	LoanDisbursed  decimal.Decimal `json:"loan_disbursed"  validate:"dec2,gte=0"`
	LoanRepaid     decimal.Decimal `json:"loan_repaid"     validate:"dec2,gte=0"`
	InterestEarned decimal.Decimal `json:"interest_earned" validate:"dec2,gte=0"`
}

func (a amountsReq) domain() ledger.Amounts { return ledger.Amounts(a) }

type postEntryReq struct {
	GroupID         string     `json:"group_id"         validate:"required,hex32"`
	MemberID        *string    `json:"member_id"        validate:"omitempty,hex32"`
	TransactionDate time.Time  `json:"transaction_date" validate:"required"`
	Description     string     `json:"description"      validate:"max=500"`
	Reference       string     `json:"reference"        validate:"max=64"`
	EntryType       string     `json:"entry_type"       validate:"required,oneof=DEPOSIT WITHDRAWAL LOAN FINE INTEREST TRANSFER"`
	TransferFrom    *string    `json:"transfer_from"    validate:"omitempty,oneof=savings ecd social target_savings fines loan interest"`
	Amounts         amountsReq `json:"amounts"`
	CreatedBy       string     `json:"created_by"       validate:"required"`
}

func (h *LedgerHandler) PostEntry(c echo.Context) error {
	var req postEntryReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	var from *ledger.Fund
	if req.TransferFrom != nil {
		f := ledger.Fund(*req.TransferFrom)
		from = &f
	}
	e, err := h.uc.Post(c.Request().Context(), ledgeruc.PostInput{
		GroupID:         req.GroupID,
		MemberID:        req.MemberID,
		TransactionDate: req.TransactionDate,
		Description:     req.Description,
		Reference:       req.Reference,
		EntryType:       ledger.EntryType(req.EntryType),
		TransferFrom:    from,
		Amounts:         req.Amounts.domain(),
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

type reverseEntryReq struct {
	Reason    string     `json:"reason"     validate:"required,max=255"`
	CreatedBy string     `json:"created_by" validate:"required"`
	Date      *time.Time `json:"date"`
}

func (h *LedgerHandler) ReverseEntry(c echo.Context) error {
	entryID, ok, err := requireParam(c, "entry_id")
	if !ok {
		return err
	}
	var req reverseEntryReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	e, err := h.uc.Reverse(c.Request().Context(), ledgeruc.ReverseInput{
		EntryID:   entryID,
		Reason:    req.Reason,
		CreatedBy: req.CreatedBy,
		Date:      req.Date,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *LedgerHandler) GetEntry(c echo.Context) error {
	entryID, ok, err := requireParam(c, "entry_id")
	if !ok {
		return err
	}
	e, err := h.uc.GetEntry(c.Request().Context(), entryID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *LedgerHandler) Balances(c echo.Context) error {
	groupID, ok, err := requireParam(c, "group_id")
	if !ok {
		return err
	}
	b, err := h.uc.Balances(c.Request().Context(), groupID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"group_id": groupID, "balances": b})
}

// History lists entries oldest first; member_id, from and to (RFC3339) narrow it.
func (h *LedgerHandler) History(c echo.Context) error {
	groupID, ok, err := requireParam(c, "group_id")
	if !ok {
		return err
	}
	f := ledger.HistoryFilter{GroupID: groupID}
	if m := c.QueryParam("member_id"); m != "" {
		if !reHex32.MatchString(m) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid member_id"})
		}
		f.MemberID = &m
	}
	for _, q := range []struct {
		name string
		dst  **time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		raw := c.QueryParam(q.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + q.name + ": want RFC3339"})
		}
		*q.dst = &t
	}

	entries, err := h.uc.History(c.Request().Context(), f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"group_id": groupID, "entries": entries})
}

func (h *LedgerHandler) Verify(c echo.Context) error {
	groupID, ok, err := requireParam(c, "group_id")
	if !ok {
		return err
	}
	rep, err := h.uc.Verify(c.Request().Context(), groupID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}
