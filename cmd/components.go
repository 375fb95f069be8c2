package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/outreach-composer/internal/ai"
	"github.com/spigell/outreach-composer/internal/ai/gemini"
	"github.com/spigell/outreach-composer/internal/embedding"
	"github.com/spigell/outreach-composer/internal/portfolio"
	"github.com/spigell/outreach-composer/internal/secrets"
	"github.com/spigell/outreach-composer/internal/vectorstore"
)

func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (*gemini.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.Gemini.APIKeyFile,
		Value: cfg.Gemini.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or GEMINI_API_KEY)", err)
	}

	return gemini.NewGenerator(ctx, gemini.Options{
		APIKey:            apiKey,
		Model:             cfg.Gemini.Model,
		EmbeddingModel:    cfg.Gemini.EmbeddingModel,
		MaxRetries:        cfg.Gemini.MaxRetries,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
		Logger:            logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries)),
	})
}

// newEmbedder returns the configured embedding backend. The generator is only required for
// the gemini provider and may be nil otherwise.
func newEmbedder(cfg *EmbeddingConfig, generator *gemini.Generator) (ai.Embedder, error) {
	switch cfg.Provider {
	case "hashing":
		return embedding.NewHashing(cfg.Dimensions), nil
	case "gemini", "":
		if generator == nil {
			return nil, errors.New("gemini embedding provider requires a configured gemini client")
		}
		return generator, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

func openStore(ctx context.Context, cfg *IndexConfig) (vectorstore.Store, error) {
	switch cfg.Backend {
	case "memory":
		return vectorstore.NewMemory(), nil
	case "sqlite", "":
		return vectorstore.OpenSQLite(ctx, cfg.Path, cfg.Collection)
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", cfg.Backend)
	}
}

// loadPortfolio reads the portfolio table and loads it into index. Loading is a no-op when the
// index already holds entries unless force is set. The table is read and validated before a
// forced reset, so a broken file leaves the stored index untouched.
func loadPortfolio(ctx context.Context, index *portfolio.Index, cfg *PortfolioConfig, force bool, logger *zap.Logger) error {
	entries, err := portfolio.ReadCSV(cfg.File)
	if err != nil {
		return err
	}

	logger.Info("portfolio read", zap.String("file", cfg.File), zap.Int("entries", len(entries)))

	if force {
		if err := index.Reset(ctx); err != nil {
			return err
		}
		logger.Info("portfolio index reset")
	}

	return index.Load(ctx, entries)
}
