package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	domainVote "vsla-ledger/internal/domain/vote"
	ucVote "vsla-ledger/internal/usecase/vote"
)

type VoteHandler struct{ uc *ucVote.Usecase }

func NewVoteHandler(uc *ucVote.Usecase) *VoteHandler { return &VoteHandler{uc: uc} }

type openVoteReq struct {
	GroupID              string     `json:"group_id"               validate:"required,hex32"`
	Title                string     `json:"title"                  validate:"required,max=200"`
	Description          string     `json:"description"            validate:"max=2000"`
	VoteType             string     `json:"vote_type"              validate:"required,oneof=LOAN_APPROVAL CONSTITUTION_CHANGE LEADERSHIP_ELECTION MEMBER_DISCIPLINE GENERAL"`
	Options              []string   `json:"options"                validate:"dive,required,max=100"`
	AllowsMultipleChoice bool       `json:"allows_multiple_choice"`
	VotingStart          *time.Time `json:"voting_start"`
	VotingEnd            *time.Time `json:"voting_end"`
	LoanApplicationID    *string    `json:"loan_application_id"    validate:"omitempty,hex32"`
	SubjectMemberID      *string    `json:"subject_member_id"      validate:"omitempty,hex32"`
	CreatedBy            string     `json:"created_by"             validate:"required"`
}

func (h *VoteHandler) OpenVote(c echo.Context) error {
	var req openVoteReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	v, err := h.uc.Open(c.Request().Context(), ucVote.OpenInput{
		GroupID:              req.GroupID,
		Title:                req.Title,
		Description:          req.Description,
		VoteType:             domainVote.Type(req.VoteType),
		Options:              req.Options,
		AllowsMultipleChoice: req.AllowsMultipleChoice,
		VotingStart:          req.VotingStart,
		VotingEnd:            req.VotingEnd,
		LoanApplicationID:    req.LoanApplicationID,
		SubjectMemberID:      req.SubjectMemberID,
		CreatedBy:            req.CreatedBy,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

type castVoteReq struct {
	MemberID string   `json:"member_id" validate:"required,hex32"`
	Choices  []string `json:"choices"   validate:"min=1,dive,required"`
}

func (h *VoteHandler) CastVote(c echo.Context) error {
	voteID, ok, err := requireParam(c, "vote_id")
	if !ok {
		return err
	}
	var req castVoteReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	v, err := h.uc.Cast(c.Request().Context(), ucVote.CastInput{
		VoteID:   voteID,
		MemberID: req.MemberID,
		Choices:  req.Choices,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

// GetVote closes an elapsed vote before returning it.
func (h *VoteHandler) GetVote(c echo.Context) error {
	voteID, ok, err := requireParam(c, "vote_id")
	if !ok {
		return err
	}
	v, err := h.uc.Get(c.Request().Context(), voteID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *VoteHandler) CloseVote(c echo.Context) error {
	voteID, ok, err := requireParam(c, "vote_id")
	if !ok {
		return err
	}
	v, err := h.uc.Close(c.Request().Context(), voteID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *VoteHandler) CancelVote(c echo.Context) error {
	voteID, ok, err := requireParam(c, "vote_id")
	if !ok {
		return err
	}
	v, err := h.uc.Cancel(c.Request().Context(), voteID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *VoteHandler) ListVotes(c echo.Context) error {
	groupID, ok, err := requireParam(c, "group_id")
	if !ok {
		return err
	}
	votes, err := h.uc.List(c.Request().Context(), groupID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"votes": votes})
}

func (h *VoteHandler) ListBallots(c echo.Context) error {
	voteID, ok, err := requireParam(c, "vote_id")
	if !ok {
		return err
	}
	ballots, err := h.uc.Ballots(c.Request().Context(), voteID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"ballots": ballots})
}
