package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task types
const (
	TypeVoteClose = "vote:close"
)

// QueueGovernance carries the time-sensitive governance tasks.
const QueueGovernance = "governance"

type VoteClosePayload struct {
	VoteID string `json:"vote_id"`
}

func NewVoteCloseTask(voteID string) (*asynq.Task, error) {
	data, err := json.Marshal(VoteClosePayload{VoteID: voteID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeVoteClose, data), nil
}

// ParseVoteClose decodes a vote:close payload. A malformed payload is never retried.
func ParseVoteClose(t *asynq.Task) (VoteClosePayload, error) {
	var p VoteClosePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if p.VoteID == "" {
		return p, fmt.Errorf("empty vote_id: %w", asynq.SkipRetry)
	}
	return p, nil
}
