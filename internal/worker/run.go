package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

// Run serves queued tasks and the sweep scheduler until ctx is cancelled or
// either side fails.
func Run(ctx context.Context, srv *asynq.Server, w *Worker, s *Scheduler) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(w.Mux()); err != nil {
			return err
		}
		<-gctx.Done()
		srv.Shutdown()
		return nil
	})
	g.Go(func() error { return s.Run(gctx) })
	return g.Wait()
}
