package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpadp "vsla-ledger/internal/adapter/http"
	idem "vsla-ledger/internal/adapter/middleware"
	"vsla-ledger/internal/adapter/repository/mysql"
	"vsla-ledger/internal/config"
	"vsla-ledger/internal/infrastructure/cache"
	"vsla-ledger/internal/infrastructure/db"
	"vsla-ledger/internal/infrastructure/queue"
	"vsla-ledger/internal/log"
	approvaluc "vsla-ledger/internal/usecase/approval"
	assessmentuc "vsla-ledger/internal/usecase/assessment"
	ledgeruc "vsla-ledger/internal/usecase/ledger"
	loanuc "vsla-ledger/internal/usecase/loan"
	memberuc "vsla-ledger/internal/usecase/member"
	rulesuc "vsla-ledger/internal/usecase/rules"
	"vsla-ledger/internal/usecase/settings"
	voteuc "vsla-ledger/internal/usecase/vote"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		// a broken .env is worth failing on; a missing one is not
		panic(err)
	}
	cfg := config.Load()
	logger := log.New(log.Config{Level: log.ParseLevel(cfg.LogLevel), Component: log.ComponentApp})
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
	if err := db.Migrate(gdb); err != nil {
		logger.Error("migrate failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := mysql.Repos(gdb)
	tx := mysql.NewGormUoW(gdb)
	policies := settings.NewUsecase(r.Settings, logger)
	if _, err := policies.SeedDefaults(ctx); err != nil {
		logger.Error("seeding configuration failed", log.FieldError, err)
		os.Exit(1)
	}

	rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Error("redis unavailable", log.FieldError, err)
		os.Exit(1)
	}
	defer rdb.Close()

	tasks := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer tasks.Close()
	closer := queue.NewVoteCloser(tasks, logger)

	routes := httpadp.Routes{
		Health:   httpadp.NewHandler(),
		Ledger:   httpadp.NewLedgerHandler(ledgeruc.NewUsecase(r.Ledger, tx, logger)),
		Members:  httpadp.NewMemberHandler(memberuc.NewUsecase(r.Members, tx, logger)),
		Loans:    httpadp.NewLoanHandler(loanuc.NewUsecase(r.Loans, tx, policies, closer, logger), assessmentuc.NewUsecase(r.Loans, tx, policies, logger)),
		Approval: httpadp.NewApprovalHandler(approvaluc.NewUsecase(r.Loans, r.Approvals, tx, logger)),
		Votes:    httpadp.NewVoteHandler(voteuc.NewUsecase(r.Votes, tx, policies, closer, logger)),
		Rules:    httpadp.NewRulesHandler(rulesuc.NewUsecase(r.Rules, tx, policies, cache.NewEligibilityCache(rdb, cfg.RulesCacheTTL()), logger)),
		Settings: httpadp.NewSettingsHandler(policies),
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = httpadp.NewValidator()
	httpLog := logger.WithComponent(log.ComponentHTTP)
	e.Use(
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}),
		middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogStatus:    true,
			LogURI:       true,
			LogMethod:    true,
			LogRequestID: true,
			LogError:     true,
			HandleError:  true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				args := []any{log.FieldMethod, v.Method, log.FieldPath, v.URI, log.FieldStatusCode, v.Status, log.FieldRequestID, v.RequestID}
				if v.Error != nil {
					httpLog.ErrorContext(c.Request().Context(), "request failed", append(args, log.FieldError, v.Error)...)
					return nil
				}
				httpLog.InfoContext(c.Request().Context(), "request", args...)
				return nil
			},
		}),
		middleware.Recover(),
	)
	httpadp.Register(e, routes, idem.Idempotency(rdb, cfg.IdempotencyTTL(), logger))

	go func() {
		addr := ":" + cfg.AppPort
		logger.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", log.FieldError, err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", log.FieldError, err)
	}
}
