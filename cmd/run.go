package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/outreach-composer/internal/composer"
	"github.com/spigell/outreach-composer/internal/extractor"
	"github.com/spigell/outreach-composer/internal/fetch"
	"github.com/spigell/outreach-composer/internal/logger"
	"github.com/spigell/outreach-composer/internal/pipeline"
	"github.com/spigell/outreach-composer/internal/portfolio"
)

const (
	PromptPrintMessages = "Print messages"
	PromptReportByRole  = "Report by role"
	PromptDumpJSON      = "Dump result to JSON file"
	PromptDumpYAML      = "Dump result to YAML file"
	PromptExit          = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptPrintMessages, PromptReportByRole, PromptDumpJSON, PromptDumpYAML, PromptExit},
}

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	refColor     = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed, color.Bold)
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compose outreach messages for the jobs found in a posting",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("url", "u", "", "url of the job posting page")
	runCmd.Flags().StringP("file", "f", "", "read the job posting from a file ('-' for stdin)")
	runCmd.Flags().BoolP("yes", "y", false, "print the messages and exit without the interactive menu")
	runCmd.MarkFlagsMutuallyExclusive("url", "file")
	runCmd.MarkFlagsOneRequired("url", "file")
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the outreach composer", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building gemini client", zap.Error(err))
	}

	embedder, err := newEmbedder(config.Embedding, generator)
	if err != nil {
		logger.Fatal("building embedder", zap.Error(err))
	}

	store, err := openStore(ctx, config.Index)
	if err != nil {
		logger.Fatal("opening vector store", zap.Error(err))
	}
	defer store.Close()

	index := portfolio.NewIndex(store, embedder, config.Index.TopK, logger)
	if err := loadPortfolio(ctx, index, config.Portfolio, false, logger); err != nil {
		logger.Fatal("loading portfolio", zap.Error(err))
	}

	raw, err := readPosting(ctx, cmd, config, logger)
	if err != nil {
		logger.Fatal("reading job posting", zap.Error(err))
	}

	ext, err := extractor.New(generator, config.AI.Gemini.MaxLogLength, logger)
	if err != nil {
		logger.Fatal("building extractor", zap.Error(err))
	}

	comp, err := composer.New(generator, newPersona(config.Sender), config.AI.Gemini.MaxLogLength, logger)
	if err != nil {
		logger.Fatal("building composer", zap.Error(err))
	}

	p, err := pipeline.New(ext, index, comp, pipeline.Options{
		TopK:        config.Index.TopK,
		Concurrency: config.Pipeline.Concurrency,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal("building pipeline", zap.Error(err))
	}

	result, err := p.Run(ctx, raw)
	if err != nil {
		failureColor.Fprintf(os.Stderr, "%v\n", err)
		logger.Fatal("exiting", zap.Error(err))
	}

	printResult(os.Stdout, result)

	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, os.Stdout, logger, result); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, out io.Writer, logger *zap.Logger, result *pipeline.Result) error {
	switch action {
	case PromptPrintMessages:
		printResult(out, result)
		return nil
	case PromptReportByRole:
		pretty, _ := json.MarshalIndent(result.ReportByRole(), "", "  ")
		logger.Info(string(pretty),
			zap.Int("messages count", len(result.Messages)),
			zap.Int("failures count", len(result.Failures)),
		)
		return nil
	case PromptDumpJSON, PromptDumpYAML:
		format := "json"
		if action == PromptDumpYAML {
			format = "yaml"
		}
		filename, err := result.DumpToTmpFile(format)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func readPosting(ctx context.Context, cmd *cobra.Command, config *Config, logger *zap.Logger) (string, error) {
	if url, _ := cmd.Flags().GetString("url"); url != "" {
		client := fetch.New(logger)
		if config.UserAgent != "" {
			client.UserAgent = config.UserAgent
		}
		return client.Fetch(ctx, url)
	}

	file, _ := cmd.Flags().GetString("file")
	if file == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func newPersona(cfg *SenderConfig) composer.Persona {
	if cfg == nil {
		return composer.Persona{}
	}
	return composer.Persona{
		Name:    cfg.Name,
		Company: cfg.Company,
		Focus:   cfg.Focus,
	}
}

// printResult writes every composed message followed by the per-job failures.
func printResult(out io.Writer, result *pipeline.Result) {
	for _, msg := range result.Messages {
		headerColor.Fprintf(out, "=== Job %d: %s ===\n", msg.Index+1, msg.Job.Role)
		if len(msg.References) > 0 {
			refColor.Fprintf(out, "References: %s\n", strings.Join(msg.References, ", "))
		}
		fmt.Fprintf(out, "%s\n\n", strings.TrimRight(msg.Message, "\n"))
	}

	for _, failure := range result.Failures {
		failureColor.Fprintf(out, "Job %d (%s) failed at %s: %s\n", failure.Index+1, failure.Job.Role, failure.Stage, failure.Reason)
	}
}
