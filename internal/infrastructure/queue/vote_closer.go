package queue

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"vsla-ledger/internal/log"
)

// closeMaxRetry bounds redelivery of a failed close; the periodic sweep covers the rest.
const closeMaxRetry = 5

// VoteCloser enqueues one delayed vote:close task per vote.
type VoteCloser struct {
	client *asynq.Client
	log    *log.Logger
}

func NewVoteCloser(client *asynq.Client, logger *log.Logger) *VoteCloser {
	return &VoteCloser{client: client, log: log.OrDiscard(logger).WithComponent(log.ComponentWorker)}
}

// ScheduleClose enqueues the close to run at the window end. Scheduling the
// same vote twice is a no-op.
func (c *VoteCloser) ScheduleClose(ctx context.Context, voteID string, at time.Time) error {
	task, err := NewVoteCloseTask(voteID)
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.TaskID(taskID(voteID)),
		asynq.ProcessAt(at),
		asynq.Queue(QueueGovernance),
		asynq.MaxRetry(closeMaxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		c.log.DebugContext(ctx, "vote close already scheduled", log.FieldVoteID, voteID)
		return nil
	}
	if err != nil {
		return err
	}
	c.log.InfoContext(ctx, "vote close scheduled", log.FieldVoteID, voteID, "task_id", info.ID, "process_at", at.UTC())
	return nil
}

func taskID(voteID string) string { return TypeVoteClose + ":" + voteID }
