package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"vsla-ledger/internal/domain/apperr"
	"vsla-ledger/internal/infrastructure/queue"
	"vsla-ledger/internal/log"
)

// VoteCloser is the part of the vote usecase the worker drives.
type VoteCloser interface {
	CloseIfDue(ctx context.Context, voteID string) (bool, error)
	CloseDue(ctx context.Context) (int, error)
}

// OverdueMarker refreshes arrears on disbursed loans.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context) (int, error)
}

type Worker struct {
	votes VoteCloser
	log   *log.Logger
}

func NewWorker(votes VoteCloser, logger *log.Logger) *Worker {
	return &Worker{votes: votes, log: log.OrDiscard(logger).WithComponent(log.ComponentWorker)}
}

// HandleVoteClose settles a vote at its window end. Unknown votes are dropped;
// a vote that is not yet due is left to the periodic sweep.
func (w *Worker) HandleVoteClose(ctx context.Context, t *asynq.Task) error {
	p, err := queue.ParseVoteClose(t)
	if err != nil {
		return err
	}
	closed, err := w.votes.CloseIfDue(ctx, p.VoteID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		w.log.WarnContext(ctx, "vote close for unknown vote", log.FieldVoteID, p.VoteID)
		return fmt.Errorf("vote %s: %v: %w", p.VoteID, err, asynq.SkipRetry)
	case err != nil:
		return err
	}
	if !closed {
		w.log.DebugContext(ctx, "vote not due or already closed", log.FieldVoteID, p.VoteID)
	}
	return nil
}

// Mux routes every task type this worker serves.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeVoteClose, w.HandleVoteClose)
	return mux
}

// NewServer builds the asynq server; the governance queue outranks the default one.
func NewServer(opt asynq.RedisConnOpt, concurrency int, logger *log.Logger) *asynq.Server {
	lg := log.OrDiscard(logger).WithComponent(log.ComponentWorker)
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue.QueueGovernance: 6,
			"default":             3,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, t *asynq.Task, err error) {
			lg.ErrorContext(ctx, "task failed", "task_type", t.Type(), log.FieldError, err)
		}),
	})
}
