package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vista-bridge/internal/admin"
	"vista-bridge/internal/bridge/config"
	"vista-bridge/internal/bridge/store"
	"vista-bridge/internal/bridge/supervisor"
	"vista-bridge/internal/ledger/destination"
	"vista-bridge/internal/ledger/source"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{Use: "vista-bridge"}
	rootCmd.AddCommand(runCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	useFake := false
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the bridge relay service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(useFake)
		},
	}
	cmd.Flags().BoolVar(&useFake, "fake-adapters", false, "use in-memory source/destination adapters instead of the production clients")
	return cmd
}

func run(useFake bool) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	var sourceAdapter source.Adapter
	var destAdapter destination.Adapter
	if useFake {
		logger.Warn("running with in-memory fake ledger adapters")
		sourceAdapter = source.NewFake()
		destAdapter = destination.NewFake()
	} else {
		sourceAdapter = source.NewClient(cfg.SourceNetworkName, cfg.SourceUTxORPCURL, cfg.SourceUTxORPCAPIKey, logger)
		destAdapter = destination.NewClient(cfg.DestNetworkName, cfg.DestLucidProvider, logger)
	}

	sup := supervisor.New(cfg, st, sourceAdapter, destAdapter, logger)

	adminSrv := &http.Server{
		Addr:    cfg.AdminAddr,
		Handler: admin.NewRouter(sup.Relayer),
	}
	go func() {
		logger.Info("admin server listening", zap.String("addr", cfg.AdminAddr))
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server exited", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := sup.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = adminSrv.Shutdown(shutdownCtx)

	if err := sup.Shutdown(); err != nil {
		logger.Error("shutdown persist/close failed", zap.Error(err))
	}

	return runErr
}
