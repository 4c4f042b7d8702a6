package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"vsla-ledger/internal/adapter/repository/mysql"
	"vsla-ledger/internal/config"
	"vsla-ledger/internal/infrastructure/db"
	"vsla-ledger/internal/infrastructure/queue"
	"vsla-ledger/internal/log"
	loanuc "vsla-ledger/internal/usecase/loan"
	"vsla-ledger/internal/usecase/settings"
	voteuc "vsla-ledger/internal/usecase/vote"
	"vsla-ledger/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic(err)
	}
	cfg := config.Load()
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), Component: log.ComponentWorker})
	log.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", log.FieldError, err)
		os.Exit(1)
	}

	gdb, err := db.OpenGorm(cfg.DBDriver, cfg.DSN())
	if err != nil {
		logger.Error("db open failed", log.FieldError, err)
		os.Exit(1)
	}

	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
	tasks := asynq.NewClient(redisOpt)
	defer tasks.Close()
	closer := queue.NewVoteCloser(tasks, logger)

	r := mysql.Repos(gdb)
	tx := mysql.NewGormUoW(gdb)
	policies := settings.NewUsecase(r.Settings, logger)
	votes := voteuc.NewUsecase(r.Votes, tx, policies, closer, logger)
	loans := loanuc.NewUsecase(r.Loans, tx, policies, closer, logger)

	sched := worker.NewScheduler(votes, loans, logger)
	if err := sched.Register(cfg.VoteSweepCron, cfg.OverdueSweepCron); err != nil {
		logger.Error("invalid sweep schedule", log.FieldError, err)
		os.Exit(1)
	}
	srv := worker.NewServer(redisOpt, cfg.WorkerConcurrency, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting worker", "concurrency", cfg.WorkerConcurrency)
	if err := worker.Run(ctx, srv, worker.NewWorker(votes, logger), sched); err != nil {
		logger.Error("worker stopped", log.FieldError, err)
		os.Exit(1)
	}
}
