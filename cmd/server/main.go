package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blues/escrow/internal/config"
	"github.com/blues/escrow/internal/custody"
	"github.com/blues/escrow/internal/database"
	"github.com/blues/escrow/internal/escrow"
	"github.com/blues/escrow/internal/logger"
	"github.com/blues/escrow/internal/notify"
	"github.com/blues/escrow/internal/repository"
	"github.com/blues/escrow/internal/router"
	"github.com/blues/escrow/internal/task"
	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}
	if err := logger.Setup(cfg.Log); err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	store, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	opts := escrow.Options{
		Clock:               escrow.SystemClock{},
		AllowEarlyDonations: cfg.Ledger.AllowEarlyDonations,
	}

	var vault escrow.Custody
	switch cfg.Custody.Driver {
	case "erc20":
		erc20, err := custody.DialERC20(ctx, cfg.Custody)
		if err != nil {
			logger.Fatal("Failed to initialize erc20 custody: %v", err)
		}
		defer erc20.Close()
		if balance, err := erc20.BalanceOf(ctx, erc20.EscrowAddress()); err != nil {
			logger.Warn("Failed to read escrow token balance: %v", err)
		} else {
			logger.Info("Escrow %s holds %s tokens", erc20.EscrowAddress(), balance)
		}
		vault = erc20
		opts.ValidAccount = custody.ValidAccount
	default:
		logger.Warn("Using in-memory custody and ledger, state is lost on restart")
		token := custody.NewMemoryToken("escrow")
		for account, amount := range cfg.Custody.Faucet {
			token.Mint(account, amount)
			token.Approve(account, amount)
		}
		vault = token
	}

	if cfg.Events.RedisAddr != "" {
		rdb, err := notify.DialRedis(ctx, cfg.Events)
		if err != nil {
			logger.Fatal("Failed to initialize event sink: %v", err)
		}
		defer rdb.Close()
		opts.Sink = notify.NewRedisSink(rdb, cfg.Events.RedisKey)
	}

	engine, err := escrow.Open(ctx, store, vault, opts)
	if err != nil {
		logger.Fatal("Failed to open escrow ledger: %v", err)
	}

	// 启动定时任务
	tasks, err := task.NewManager(engine, opts.Clock, cfg.Task)
	if err != nil {
		logger.Fatal("Failed to create task manager: %v", err)
	}
	tasks.Start()
	defer tasks.Stop()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Setup(engine, opts.Clock),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
}

func openStore(cfg config.DatabaseConfig) (escrow.Store, error) {
	if cfg.Driver == "memory" {
		return repository.NewMemoryStore(), nil
	}
	db, err := database.Init(cfg)
	if err != nil {
		return nil, err
	}
	return repository.NewEscrowStore(db), nil
}
