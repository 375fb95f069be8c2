package cmd

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "outreach"
)

type Config struct {
	AI        *AIConfig        `mapstructure:"ai" validate:"required"`
	Embedding *EmbeddingConfig `mapstructure:"embedding" validate:"required"`
	Index     *IndexConfig     `mapstructure:"index" validate:"required"`
	Portfolio *PortfolioConfig `mapstructure:"portfolio" validate:"required"`
	Sender    *SenderConfig    `mapstructure:"sender"`
	Pipeline  *PipelineConfig  `mapstructure:"pipeline" validate:"required"`
	UserAgent string           `mapstructure:"user-agent"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider" validate:"oneof=gemini"`
	Gemini   *GeminiConfig `mapstructure:"gemini" validate:"required"`
}

type GeminiConfig struct {
	APIKeyFile        string `mapstructure:"api-key-file" json:"-"`
	APIKey            string `mapstructure:"api-key" json:"-"`
	Model             string `mapstructure:"model" validate:"required"`
	EmbeddingModel    string `mapstructure:"embedding-model" validate:"required"`
	MaxRetries        int    `mapstructure:"max-retries" validate:"gte=1,lte=10"`
	RequestsPerMinute int    `mapstructure:"requests-per-minute" validate:"gte=0"`
	MaxLogLength      int    `mapstructure:"max-log-length" validate:"gte=0"`
}

type EmbeddingConfig struct {
	// Provider is gemini for the remote embedding model or hashing for the local one.
	Provider   string `mapstructure:"provider" validate:"oneof=gemini hashing"`
	Dimensions int    `mapstructure:"dimensions" validate:"gte=16,lte=8192"`
}

type IndexConfig struct {
	Backend    string `mapstructure:"backend" validate:"oneof=sqlite memory"`
	Path       string `mapstructure:"path" validate:"required_if=Backend sqlite"`
	Collection string `mapstructure:"collection" validate:"required"`
	TopK       int    `mapstructure:"top-k" validate:"gte=1,lte=20"`
}

type PortfolioConfig struct {
	File string `mapstructure:"file" validate:"required"`
}

type SenderConfig struct {
	Name    string `mapstructure:"name"`
	Company string `mapstructure:"company"`
	Focus   string `mapstructure:"focus"`
}

type PipelineConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gte=1,lte=16"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "outreach turns a job posting into cold outreach messages backed by your portfolio",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is outreach.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.gemini.embedding-model", "text-embedding-004")
	v.SetDefault("ai.gemini.max-retries", 2)
	v.SetDefault("ai.gemini.requests-per-minute", 0)
	v.SetDefault("ai.gemini.max-log-length", 200)
	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.dimensions", 512)
	v.SetDefault("index.backend", "sqlite")
	v.SetDefault("index.path", "vectorstore")
	v.SetDefault("index.collection", "portfolio")
	v.SetDefault("index.top-k", 2)
	v.SetDefault("portfolio.file", "portfolio.csv")
	v.SetDefault("pipeline.concurrency", 1)
}

func initConfig() {
	// Config is not needed to print the version.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Defaults and environment are enough when there is no config file in the current directory.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(config); err != nil {
		return nil, err
	}

	return config, nil
}
