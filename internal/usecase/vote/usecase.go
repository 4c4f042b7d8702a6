package vote

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"vsla-ledger/internal/domain/apperr"
	"vsla-ledger/internal/domain/member"
	"vsla-ledger/internal/domain/uow"
	domain "vsla-ledger/internal/domain/vote"
	"vsla-ledger/internal/log"
	memberuc "vsla-ledger/internal/usecase/member"
	"vsla-ledger/internal/usecase/settings"
	"vsla-ledger/pkg/id"
)

// sweepParallelism bounds concurrent closes in CloseDue.
const sweepParallelism = 4

// Closer schedules the close of a vote at its window end.
type Closer interface {
	ScheduleClose(ctx context.Context, voteID string, at time.Time) error
}

type Usecase struct {
	repo     domain.Repository
	uow      uow.UnitOfWork
	policies settings.Source
	closer   Closer
	log      *log.Logger
	now      func() time.Time
}

// NewUsecase: closer may be nil, in which case only lazy closes and sweeps end votes.
func NewUsecase(repo domain.Repository, tx uow.UnitOfWork, policies settings.Source, closer Closer, logger *log.Logger) *Usecase {
	return &Usecase{
		repo:     repo,
		uow:      tx,
		policies: policies,
		closer:   closer,
		log:      log.OrDiscard(logger).WithComponent(log.ComponentVote),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source that decides windows and close times.
func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

func (u *Usecase) Open(ctx context.Context, in OpenInput) (*domain.Vote, error) {
	p, err := u.policies.Policies(ctx)
	if err != nil {
		return nil, err
	}
	var out *domain.Vote
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		v, err := OpenWithin(ctx, r, in, p.Voting, u.now())
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	u.opened(ctx, out)
	return out, nil
}

// opened runs after the opening transaction committed.
func (u *Usecase) opened(ctx context.Context, v *domain.Vote) {
	u.log.InfoContext(ctx, "vote opened",
		log.FieldGroupID, v.GroupID, log.FieldVoteID, v.VoteID, "vote_type", v.VoteType, "eligible", v.TotalEligibleVoters)
	if u.closer == nil {
		return
	}
	if err := u.closer.ScheduleClose(ctx, v.VoteID, v.VotingEnd); err != nil {
		// the periodic sweep still closes it
		u.log.WarnContext(ctx, "could not schedule vote close", log.FieldVoteID, v.VoteID, log.FieldError, err)
	}
}

// Opened lets callers that opened a vote inside their own transaction
// schedule its close once that transaction committed.
func (u *Usecase) Opened(ctx context.Context, v *domain.Vote) { u.opened(ctx, v) }

// OpenWithin validates and stores a new ballot inside the caller's transaction,
// snapshotting the eligible voter count and the voting policy.
func OpenWithin(ctx context.Context, r uow.Repos, in OpenInput, p domain.Policy, now time.Time) (*domain.Vote, error) {
	start := now
	if in.VotingStart != nil {
		start = in.VotingStart.UTC()
	}
	end := start.Add(p.DefaultWindow)
	if in.VotingEnd != nil {
		end = in.VotingEnd.UTC()
	}
	options := in.Options
	passing := ""
	if in.VoteType.Motion() {
		if len(options) == 0 {
			options = domain.MotionOptions
		}
		passing = domain.OptionFor
	}

	draft := domain.Draft{
		GroupID:              in.GroupID,
		Title:                in.Title,
		VoteType:             in.VoteType,
		Options:              options,
		AllowsMultipleChoice: in.AllowsMultipleChoice,
		Start:                start,
		End:                  end,
		LoanApplicationID:    in.LoanApplicationID,
		SubjectMemberID:      in.SubjectMemberID,
	}
	v := domain.ValidateDraft(draft)
	if !id.Valid(in.GroupID) {
		v = v.Add("group_id", "must be a 32-char hex id")
	}
	if passing != "" && !contains(options, passing) {
		v = v.Add("options", "motions must offer "+passing)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	eligible, err := r.Members.CountActive(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if in.SubjectMemberID != nil {
		if _, err := memberuc.ActiveIn(ctx, r.Members, in.GroupID, *in.SubjectMemberID); err == nil {
			eligible--
		} else if !errors.Is(err, member.ErrNotActive) && !errors.Is(err, member.ErrNotFound) {
			return nil, err
		}
	}
	if eligible <= 0 {
		return nil, apperr.Invariant("vote needs at least one eligible voter")
	}

	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return nil, err
	}
	vote := &domain.Vote{
		VoteID:               id.NewID32(),
		GroupID:              in.GroupID,
		Title:                in.Title,
		Description:          in.Description,
		VoteType:             in.VoteType,
		Options:              datatypes.JSON(optionsJSON),
		AllowsMultipleChoice: in.AllowsMultipleChoice,
		PassingOption:        passing,
		VotingStart:          start,
		VotingEnd:            end,
		Status:               domain.StatusActive,
		TotalEligibleVoters:  int(eligible),
		QuorumPercent:        p.QuorumPercent,
		ThresholdPercent:     p.ThresholdPercent,
		TieBreak:             p.TieBreak,
		AutoCloseOnMajority:  p.AutoCloseOnMajority,
		LoanApplicationID:    in.LoanApplicationID,
		SubjectMemberID:      in.SubjectMemberID,
		CreatedBy:            in.CreatedBy,
	}
	if err := r.Votes.Create(ctx, vote); err != nil {
		return nil, err
	}
	return vote, nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Cast records one ballot. A vote found past its window is closed first and
// the ballot is rejected.
func (u *Usecase) Cast(ctx context.Context, in CastInput) (*domain.Vote, error) {
	now := u.now()
	var out *domain.Vote
	lateClose := false
	err := u.uow.WithinVoteTx(ctx, in.VoteID, func(r uow.Repos, v *domain.Vote) error {
		if v.Elapsed(now) {
			lateClose = true
			out = v
			return closeWithin(ctx, r, v, now)
		}
		if v.Status != domain.StatusActive || !v.InWindow(now) {
			return domain.ErrWindowClosed
		}
		if err := u.checkVoter(ctx, r, v, in.MemberID); err != nil {
			return err
		}
		options, err := v.OptionList()
		if err != nil {
			return err
		}
		if err := domain.ValidateChoices(options, in.Choices, v.AllowsMultipleChoice); err != nil {
			return err
		}
		_, err = r.Votes.GetBallot(ctx, v.VoteID, in.MemberID)
		switch {
		case err == nil:
			return domain.ErrAlreadyVoted
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		choices, err := json.Marshal(in.Choices)
		if err != nil {
			return err
		}
		if err := r.Votes.CreateBallot(ctx, &domain.Ballot{
			VoteID:   v.VoteID,
			MemberID: in.MemberID,
			Choices:  datatypes.JSON(choices),
			CastAt:   now,
		}); err != nil {
			return err
		}

		o, err := tally(ctx, r, v)
		if err != nil {
			return err
		}
		if v.AutoCloseOnMajority && domain.Decisive(o, domain.RulesOf(v)) {
			out = v
			return finish(ctx, r, v, o, now)
		}
		v.VotesCast = o.Cast
		v.Results = resultsJSON(o)
		out = v
		return r.Votes.Save(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	if lateClose {
		u.closed(ctx, out)
		return nil, domain.ErrWindowClosed
	}
	if out.Status == domain.StatusClosed {
		u.closed(ctx, out)
	}
	return out, nil
}

func (u *Usecase) checkVoter(ctx context.Context, r uow.Repos, v *domain.Vote, memberID string) error {
	if v.SubjectMemberID != nil && *v.SubjectMemberID == memberID {
		return domain.ErrNotEligible
	}
	m, err := memberuc.ActiveIn(ctx, r.Members, v.GroupID, memberID)
	if err != nil {
		if errors.Is(err, member.ErrNotActive) || errors.Is(err, member.ErrNotFound) {
			return domain.ErrNotEligible
		}
		return err
	}
	// members who joined after the snapshot are not counted as eligible
	if m.CreatedAt.After(v.CreatedAt) {
		return domain.ErrNotEligible
	}
	return nil
}

func tally(ctx context.Context, r uow.Repos, v *domain.Vote) (domain.Outcome, error) {
	options, err := v.OptionList()
	if err != nil {
		return domain.Outcome{}, err
	}
	ballots, err := r.Votes.Ballots(ctx, v.VoteID)
	if err != nil {
		return domain.Outcome{}, err
	}
	choices := make([][]string, 0, len(ballots))
	for i := range ballots {
		c, err := ballots[i].ChoiceList()
		if err != nil {
			return domain.Outcome{}, err
		}
		choices = append(choices, c)
	}
	return domain.Tally(options, choices, domain.RulesOf(v)), nil
}

func resultsJSON(o domain.Outcome) datatypes.JSON {
	b, _ := json.Marshal(o.AsMap())
	return datatypes.JSON(b)
}

func closeWithin(ctx context.Context, r uow.Repos, v *domain.Vote, now time.Time) error {
	o, err := tally(ctx, r, v)
	if err != nil {
		return err
	}
	return finish(ctx, r, v, o, now)
}

// finish stores the final outcome and copies the tallies onto a linked loan application.
func finish(ctx context.Context, r uow.Repos, v *domain.Vote, o domain.Outcome, now time.Time) error {
	if v.Status != domain.StatusActive {
		return &apperr.TransitionError{Entity: "vote", From: string(v.Status), To: string(domain.StatusClosed)}
	}
	v.Status = domain.StatusClosed
	v.VotesCast = o.Cast
	v.Results = resultsJSON(o)
	v.WinningOption = o.Winner
	v.QuorumMet = o.QuorumMet
	v.IsPassed = o.Passed
	v.ClosedAt = &now
	if err := r.Votes.Save(ctx, v); err != nil {
		return err
	}

	if v.LoanApplicationID == nil {
		return nil
	}
	app, err := r.Loans.GetApplicationForUpdate(ctx, *v.LoanApplicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	counts := o.AsMap()
	app.VotesFor = counts[domain.OptionFor]
	app.VotesAgainst = counts[domain.OptionAgainst]
	app.VotesAbstain = counts[domain.OptionAbstain]
	return r.Loans.SaveApplication(ctx, app)
}

// SettleWithin closes v when its window has elapsed, or early when the
// result is decisive and the ballot allows it. It reports whether v closed.
func SettleWithin(ctx context.Context, r uow.Repos, v *domain.Vote, now time.Time) (bool, error) {
	if v.Status != domain.StatusActive {
		return false, nil
	}
	o, err := tally(ctx, r, v)
	if err != nil {
		return false, err
	}
	if v.Elapsed(now) || (v.AutoCloseOnMajority && domain.Decisive(o, domain.RulesOf(v))) {
		return true, finish(ctx, r, v, o, now)
	}
	return false, nil
}

// CancelWithin moves an ACTIVE vote to CANCELLED.
func CancelWithin(ctx context.Context, r uow.Repos, v *domain.Vote, now time.Time) error {
	if v.Status != domain.StatusActive {
		return &apperr.TransitionError{Entity: "vote", From: string(v.Status), To: string(domain.StatusCancelled)}
	}
	v.Status = domain.StatusCancelled
	v.ClosedAt = &now
	return r.Votes.Save(ctx, v)
}

// Close ends an ACTIVE vote now and tallies it.
func (u *Usecase) Close(ctx context.Context, voteID string) (*domain.Vote, error) {
	now := u.now()
	var out *domain.Vote
	err := u.uow.WithinVoteTx(ctx, voteID, func(r uow.Repos, v *domain.Vote) error {
		out = v
		return closeWithin(ctx, r, v, now)
	})
	if err != nil {
		return nil, err
	}
	u.closed(ctx, out)
	return out, nil
}

func (u *Usecase) Cancel(ctx context.Context, voteID string) (*domain.Vote, error) {
	var out *domain.Vote
	err := u.uow.WithinVoteTx(ctx, voteID, func(r uow.Repos, v *domain.Vote) error {
		out = v
		return CancelWithin(ctx, r, v, u.now())
	})
	if err != nil {
		return nil, err
	}
	u.log.InfoContext(ctx, "vote cancelled", log.FieldVoteID, voteID)
	return out, nil
}

func (u *Usecase) closed(ctx context.Context, v *domain.Vote) {
	winner := ""
	if v.WinningOption != nil {
		winner = *v.WinningOption
	}
	u.log.InfoContext(ctx, "vote closed",
		log.FieldGroupID, v.GroupID, log.FieldVoteID, v.VoteID,
		"cast", v.VotesCast, "winner", winner, "quorum_met", v.QuorumMet, "passed", v.IsPassed)
}

// Get returns the vote, closing it first when its window has elapsed.
func (u *Usecase) Get(ctx context.Context, voteID string) (*domain.Vote, error) {
	v, err := u.repo.GetByVoteID(ctx, voteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !v.Elapsed(u.now()) {
		return v, nil
	}
	if _, err := u.CloseIfDue(ctx, voteID); err != nil {
		return nil, err
	}
	return u.repo.GetByVoteID(ctx, voteID)
}

// CloseIfDue settles one vote under its row lock; it is a no-op for votes
// already closed or still open.
func (u *Usecase) CloseIfDue(ctx context.Context, voteID string) (bool, error) {
	now := u.now()
	var closed bool
	var out *domain.Vote
	err := u.uow.WithinVoteTx(ctx, voteID, func(r uow.Repos, v *domain.Vote) error {
		if !v.Elapsed(now) {
			return nil
		}
		out, closed = v, true
		return closeWithin(ctx, r, v, now)
	})
	if err != nil {
		return false, err
	}
	if closed {
		u.closed(ctx, out)
	}
	return closed, nil
}

func (u *Usecase) List(ctx context.Context, groupID string) ([]domain.Vote, error) {
	return u.repo.ListByGroup(ctx, groupID)
}

func (u *Usecase) Ballots(ctx context.Context, voteID string) ([]domain.Ballot, error) {
	return u.repo.Ballots(ctx, voteID)
}

// CloseDue closes every ACTIVE vote whose window ended and returns how many closed.
func (u *Usecase) CloseDue(ctx context.Context) (int, error) {
	due, err := u.repo.ListElapsed(ctx, u.now())
	if err != nil {
		return 0, err
	}
	results := make([]bool, len(due))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepParallelism)
	for i := range due {
		g.Go(func() error {
			closed, err := u.CloseIfDue(gctx, due[i].VoteID)
			results[i] = closed
			return err
		})
	}
	err = g.Wait()
	n := 0
	for _, c := range results {
		if c {
			n++
		}
	}
	if n > 0 {
		u.log.InfoContext(ctx, "closed elapsed votes", log.FieldCount, n)
	}
	return n, err
}
