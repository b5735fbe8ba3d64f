package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isnaaziz/working-permit-dc-sub000/internal/access"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/approval"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/auth"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/config"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/events"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/httpapi"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/permit"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/reporting"
	"github.com/isnaaziz/working-permit-dc-sub000/pkg/logger"
	"github.com/isnaaziz/working-permit-dc-sub000/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Core wiring: postgres-backed stores, redis event publisher.
	publisher := events.NewRedisPublisher(rdb, cfg.Permit.EventChannel, log)
	permitStore := permit.NewPostgresStore(db)
	ledger := approval.NewLedger(approval.NewPostgresRepo(db))
	permitSvc := permit.NewService(permitStore, ledger, publisher, log)
	gateSvc := access.NewService(permitStore, access.NewPostgresLog(db), publisher, log)
	reportSvc := reporting.NewService(reporting.NewPostgresRepo(db))

	sweeper := permit.NewSweeper(permitSvc, cfg.Permit.SweepInterval, log)
	sweeper.Start(rootCtx)
	defer sweeper.Stop()

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Auth:      authManager,
		Permits:   permitSvc,
		Approvals: ledger,
		Gate:      gateSvc,
		Reports:   reportSvc,
	}
	scans := httpapi.ScanLimiter{
		RDB:    rdb,
		Limit:  cfg.Permit.GateScanLimit,
		Window: cfg.Permit.GateScanWindow,
	}
	registerRoutes(r, h, auth.RequireAccessToken(authManager), scans)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
