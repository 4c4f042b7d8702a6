package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// Routes are the handlers mounted by Register.
type Routes struct {
	Health   *Handler
	Ledger   *LedgerHandler
	Members  *MemberHandler
	Loans    *LoanHandler
	Approval *ApprovalHandler
	Votes    *VoteHandler
	Rules    *RulesHandler
	Settings *SettingsHandler
}

// Register mounts every route on e. Money-moving POSTs run behind idem, which
// may be nil when no idempotency store is configured.
func Register(e *echo.Echo, r Routes, idem echo.MiddlewareFunc) {
	var guard []echo.MiddlewareFunc
	if idem != nil {
		guard = append(guard, idem)
	}

	e.GET("/health", r.Health.Health)

	e.POST("/ledger/entries", r.Ledger.PostEntry, guard...)
	e.GET("/ledger/entries/:entry_id", r.Ledger.GetEntry)
	e.POST("/ledger/entries/:entry_id/reverse", r.Ledger.ReverseEntry, guard...)
	e.GET("/groups/:group_id/balances", r.Ledger.Balances)
	e.GET("/groups/:group_id/entries", r.Ledger.History)
	e.GET("/groups/:group_id/ledger/verify", r.Ledger.Verify)

	e.POST("/groups/:group_id/members", r.Members.Register)
	e.POST("/groups/:group_id/attendance", r.Members.RecordAttendance)
	e.POST("/groups/:group_id/fines", r.Members.IssueFine)
	e.POST("/fines/:fine_id/pay", r.Members.PayFine, guard...)

	e.POST("/groups/:group_id/members/:member_id/assessments", r.Loans.AssessMember)
	e.POST("/loan-applications", r.Loans.SubmitApplication)
	e.GET("/loan-applications/:application_id", r.Loans.GetApplication)
	e.POST("/loan-applications/:application_id/review", r.Loans.BeginReview)
	e.POST("/loan-applications/:application_id/approve", r.Loans.Approve)
	e.POST("/loan-applications/:application_id/reject", r.Loans.Reject)
	e.POST("/loan-applications/:application_id/withdraw", r.Loans.Withdraw)
	e.POST("/loan-applications/:application_id/officer-approvals", r.Approval.RecordApproval)
	e.GET("/loan-applications/:application_id/officer-approvals", r.Approval.ListApprovals)

	e.GET("/loans/:loan_id", r.Loans.GetLoan)
	e.GET("/loans/:loan_id/schedule", r.Loans.Schedule)
	e.POST("/loans/:loan_id/disburse", r.Loans.Disburse, guard...)
	e.POST("/loans/:loan_id/repayments", r.Loans.Repay, guard...)

	e.POST("/votes", r.Votes.OpenVote)
	e.GET("/votes/:vote_id", r.Votes.GetVote)
	e.GET("/groups/:group_id/votes", r.Votes.ListVotes)
	e.POST("/votes/:vote_id/ballots", r.Votes.CastVote)
	e.GET("/votes/:vote_id/ballots", r.Votes.ListBallots)
	e.POST("/votes/:vote_id/close", r.Votes.CloseVote)
	e.POST("/votes/:vote_id/cancel", r.Votes.CancelVote)

	e.PUT("/groups/:group_id/rules", r.Rules.UpsertFacts)
	e.GET("/groups/:group_id/rules", r.Rules.GetRules)
	e.POST("/groups/:group_id/rules/assess", r.Rules.Assess)

	e.GET("/settings", r.Settings.List)
	e.GET("/settings/:key", r.Settings.Get)
	e.PUT("/settings/:key", r.Settings.Set)
}
