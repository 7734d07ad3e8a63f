// Command gatewayd runs the healthcare claims analytics gateway: an HTTP
// service that turns natural-language questions into governed, read-only
// warehouse queries and narrated answers.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/tarsy/pkg/api"
	"github.com/codeready-toolchain/tarsy/pkg/catalog"
	"github.com/codeready-toolchain/tarsy/pkg/classifier"
	"github.com/codeready-toolchain/tarsy/pkg/config"
	"github.com/codeready-toolchain/tarsy/pkg/conversation"
	"github.com/codeready-toolchain/tarsy/pkg/executor"
	"github.com/codeready-toolchain/tarsy/pkg/insight"
	"github.com/codeready-toolchain/tarsy/pkg/llmoracle"
	"github.com/codeready-toolchain/tarsy/pkg/masking"
	"github.com/codeready-toolchain/tarsy/pkg/pipeline"
	"github.com/codeready-toolchain/tarsy/pkg/rewriter"
	"github.com/codeready-toolchain/tarsy/pkg/router"
	"github.com/codeready-toolchain/tarsy/pkg/safety"
	"github.com/codeready-toolchain/tarsy/pkg/sanitizer"
	"github.com/codeready-toolchain/tarsy/pkg/sqlgen"
	"github.com/codeready-toolchain/tarsy/pkg/store"
	"github.com/codeready-toolchain/tarsy/pkg/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("gatewayd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Initialize(ctx)
	if err != nil {
		return err
	}

	slog.Info("starting gatewayd", "version", version.Full())

	poolCfg, err := pgxpool.ParseConfig(cfg.Warehouse.DSN)
	if err != nil {
		return err
	}
	if cfg.Warehouse.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Warehouse.MaxConns
	}
	if cfg.Warehouse.StatementTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.Warehouse.StatementTimeout.Milliseconds(), 10)
	}
	warehousePool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return err
	}
	defer warehousePool.Close()

	cat, err := catalog.Load(ctx, warehousePool)
	if err != nil {
		return err
	}

	var oracle *llmoracle.Client
	if cfg.LLM.BaseURL != "" {
		oracle = llmoracle.New(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout, cfg.LLM.MaxRetries)
	}

	var appStore *store.Store
	if cfg.AppDB.Enabled() {
		appStore, err = store.Open(ctx, cfg.AppDB.DSN)
		if err != nil {
			return err
		}
		defer appStore.Close()
	}

	convoStore := conversation.NewStore(cfg.Conversation.HistoryCap, cfg.Conversation.TTL)
	go convoStore.Reap(ctx, cfg.Conversation.ReapInterval)

	exec := executor.New(warehousePool, cfg.Execution.RowCap, cfg.Execution.QueryTimeout)
	san := sanitizer.New(cfg.Sanitizer, masking.NewService())

	orchestrator := pipeline.New(
		router.NewIntentRouter(oracle),
		router.NewDomainRouter(cat),
		classifier.New(),
		sqlgen.New(oracle, cfg.Warehouse.Dialect),
		safety.New(),
		rewriter.New(),
		exec,
		san,
		insight.New(oracle),
		convoStore,
		oracle,
		cat,
	)

	server := api.NewServer(cfg, orchestrator, appStore)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.Server.Addr)
		if err := server.Start(cfg.Server.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
