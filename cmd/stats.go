package cmd

import (
	"context"
	"log"

	"github.com/hireloop/talent-matcher/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report pool sizes for the configured profile store",
	Run: func(_ *cobra.Command, _ []string) {
		runStats()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	stack, err := buildStack(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the matching stack", zap.Error(err))
	}
	defer stack.close()

	stats, err := stack.orchestrator.Stats(ctx)
	if err != nil {
		logger.Fatal("collecting stats", zap.Error(err))
	}

	logger.Info("matching universe",
		zap.Int("candidates", stats.Candidates),
		zap.Int("jobs", stats.Jobs),
		zap.Int("potential_pairs", stats.PotentialPairs),
	)
}
