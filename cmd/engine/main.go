package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantedge/thv-engine/api"
	"github.com/quantedge/thv-engine/internal/config"
	"github.com/quantedge/thv-engine/internal/feed"
	"github.com/quantedge/thv-engine/pkg/engine"
	"github.com/quantedge/thv-engine/pkg/margin"
	"github.com/quantedge/thv-engine/pkg/stats"
	"github.com/quantedge/thv-engine/pkg/valuation"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	logger  *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "thv-engine",
		Short: "Theoretical-value pricing and contract-selection engine",
		Long:  `Prices cash, futures and options contracts across two venues, ranks them against their theoretical fair value and recommends the optimal venue/contract for a target quantity`,
		Run:   runEngine,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runEngine(cmd *cobra.Command, args []string) {
	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithError(err).Error("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Assemble the engine: shared volume tracker, valuation state, the
	// comparison layer on top and the margin estimator beside it.
	volumes := stats.NewVolumeTracker()
	model := valuation.NewModel(volumes, logger)
	model.SetRiskFreeRate(cfg.Engine.RiskFreeRate)

	comparisons := engine.NewComparisonEngine(model, volumes, logger)
	estimator := margin.NewEstimator(cfg.Engine.MarginReferencePrice)

	if cfg.Feed.Enabled {
		generator := feed.NewGenerator(model, cfg.Feed.SnapshotsPerSecond, logger)
		if err := generator.SeedCatalog(); err != nil {
			logger.WithError(err).Fatal("Failed to seed contract catalog")
		}
		go generator.Run(ctx)
	}

	// Configured volatilities win over any feed-seeded defaults.
	for underlying, vol := range cfg.Engine.ImpliedVolatilities {
		model.SetImpliedVolatility(underlying, vol)
	}

	apiServer := api.NewServer(
		model,
		comparisons,
		estimator,
		logger,
		fmt.Sprintf("%d", cfg.Server.Port),
		time.Duration(cfg.Server.StreamIntervalS)*time.Second,
	)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start API server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Pricing engine is running. Press Ctrl+C to stop.")

	<-sigChan
	logger.Info("Received shutdown signal")

	cancel()

	logger.Info("Pricing engine stopped")
}
