package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/outreach-composer/internal/ai"
	"github.com/spigell/outreach-composer/internal/ai/gemini"
	"github.com/spigell/outreach-composer/internal/logger"
	"github.com/spigell/outreach-composer/internal/portfolio"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the portfolio index",
}

var indexLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Embed the portfolio table into the index (no-op when already loaded)",
	Run: func(cmd *cobra.Command, _ []string) {
		withIndex(cmd, true, func(ctx context.Context, index *portfolio.Index, config *Config, logger *zap.Logger) error {
			force, _ := cmd.Flags().GetBool("force")
			if err := loadPortfolio(ctx, index, config.Portfolio, force, logger); err != nil {
				return err
			}
			return printCount(ctx, cmd, index)
		})
	},
}

var indexCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of indexed portfolio entries",
	Run: func(cmd *cobra.Command, _ []string) {
		withIndex(cmd, false, func(ctx context.Context, index *portfolio.Index, _ *Config, _ *zap.Logger) error {
			return printCount(ctx, cmd, index)
		})
	},
}

var indexResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every indexed portfolio entry",
	Run: func(cmd *cobra.Command, _ []string) {
		withIndex(cmd, false, func(ctx context.Context, index *portfolio.Index, _ *Config, logger *zap.Logger) error {
			if err := index.Reset(ctx); err != nil {
				return err
			}
			logger.Info("portfolio index reset")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexLoadCmd, indexCountCmd, indexResetCmd)

	indexLoadCmd.Flags().Bool("force", false, "reset the index before loading")
}

// withIndex opens the configured store and hands an index to fn. Embedding is only wired
// when needEmbedder is set, so count and reset work without an api key.
func withIndex(cmd *cobra.Command, needEmbedder bool, fn func(ctx context.Context, index *portfolio.Index, config *Config, logger *zap.Logger) error) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	var embedder ai.Embedder
	if needEmbedder {
		var generator *gemini.Generator
		if config.Embedding.Provider != "hashing" {
			generator, err = newGenerator(ctx, config.AI, logger)
			if err != nil {
				logger.Fatal("building gemini client", zap.Error(err))
			}
		}
		embedder, err = newEmbedder(config.Embedding, generator)
		if err != nil {
			logger.Fatal("building embedder", zap.Error(err))
		}
	}

	store, err := openStore(ctx, config.Index)
	if err != nil {
		logger.Fatal("opening vector store", zap.Error(err))
	}
	defer store.Close()

	index := portfolio.NewIndex(store, embedder, config.Index.TopK, logger)
	if err := fn(ctx, index, config, logger); err != nil {
		logger.Fatal(cmd.CommandPath(), zap.Error(err))
	}
}

func printCount(ctx context.Context, cmd *cobra.Command, index *portfolio.Index) error {
	count, err := index.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", count)
	return nil
}
