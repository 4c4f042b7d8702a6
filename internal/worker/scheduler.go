package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"vsla-ledger/internal/log"
)

// sweepTimeout bounds one sweep run.
const sweepTimeout = 2 * time.Minute

// Scheduler runs the periodic sweeps: closing elapsed votes and marking overdue installments.
type Scheduler struct {
	cron    *cron.Cron
	votes   VoteCloser
	overdue OverdueMarker
	log     *log.Logger
}

func NewScheduler(votes VoteCloser, overdue OverdueMarker, logger *log.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		votes:   votes,
		overdue: overdue,
		log:     log.OrDiscard(logger).WithComponent(log.ComponentWorker),
	}
}

// Register adds both sweeps. An empty spec disables its sweep.
func (s *Scheduler) Register(voteSpec, overdueSpec string) error {
	if voteSpec != "" {
		if _, err := s.cron.AddFunc(voteSpec, func() { s.SweepVotes(context.Background()) }); err != nil {
			return err
		}
	}
	if overdueSpec != "" {
		if _, err := s.cron.AddFunc(overdueSpec, func() { s.SweepOverdue(context.Background()) }); err != nil {
			return err
		}
	}
	return nil
}

// Entries reports the number of registered sweeps.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

// Run starts the cron loop and blocks until ctx is done, then waits for running sweeps.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.log.Info("sweep scheduler started", log.FieldCount, s.Entries())
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info("sweep scheduler stopped")
	return nil
}

func (s *Scheduler) SweepVotes(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	n, err := s.votes.CloseDue(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "vote sweep failed", log.FieldOperation, "close_due", log.FieldCount, n, log.FieldError, err)
	}
	return n
}

func (s *Scheduler) SweepOverdue(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()
	n, err := s.overdue.MarkOverdue(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "overdue sweep failed", log.FieldOperation, "mark_overdue", log.FieldCount, n, log.FieldError, err)
	}
	return n
}
