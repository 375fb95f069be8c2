package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/outreach-composer/internal/ai"
	"github.com/spigell/outreach-composer/internal/pipeline"
)

func newTestViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(yaml)); err != nil {
		t.Fatalf("read config: %v", err)
	}
	return v
}

func TestDecodeConfigDefaults(t *testing.T) {
	config, err := decodeConfig(newTestViper(t, "sender:\n  name: Jane\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.AI.Gemini.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected model %q", config.AI.Gemini.Model)
	}
	if config.AI.Gemini.MaxRetries != 2 {
		t.Fatalf("expected 2 attempts, got %d", config.AI.Gemini.MaxRetries)
	}
	if config.Index.TopK != 2 || config.Index.Backend != "sqlite" || config.Index.Collection != "portfolio" {
		t.Fatalf("unexpected index config %+v", config.Index)
	}
	if config.Pipeline.Concurrency != 1 {
		t.Fatalf("unexpected concurrency %d", config.Pipeline.Concurrency)
	}
	if config.Sender == nil || config.Sender.Name != "Jane" {
		t.Fatalf("unexpected sender %+v", config.Sender)
	}
}

func TestDecodeConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "embedding provider", yaml: "embedding:\n  provider: openai\n", want: "Provider"},
		{name: "index backend", yaml: "index:\n  backend: chroma\n", want: "Backend"},
		{name: "top k", yaml: "index:\n  top-k: 0\n", want: "TopK"},
		{name: "sqlite path", yaml: "index:\n  path: \"\"\n", want: "Path"},
		{name: "concurrency", yaml: "pipeline:\n  concurrency: 100\n", want: "Concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeConfig(newTestViper(t, tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestNewEmbedder(t *testing.T) {
	embedder, err := newEmbedder(&EmbeddingConfig{Provider: "hashing", Dimensions: 64}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embedder == nil {
		t.Fatal("expected hashing embedder")
	}

	if _, err := newEmbedder(&EmbeddingConfig{Provider: "gemini"}, nil); err == nil {
		t.Fatal("expected error without gemini client")
	}
}

func TestHandleAction(t *testing.T) {
	result := &pipeline.Result{
		Messages: []pipeline.Composed{{
			Index:      0,
			Job:        ai.ExtractedJob{Role: "Data Scientist", Skills: []string{"Python"}},
			References: []string{"http://a"},
			Message:    "Hello there",
		}},
		Failures: []pipeline.JobFailure{{
			Index:  1,
			Job:    ai.ExtractedJob{Role: "Backend Engineer"},
			Stage:  pipeline.StageMatched,
			Reason: "store down",
		}},
	}

	var out bytes.Buffer
	if err := handleAction(PromptPrintMessages, &out, zap.NewNop(), result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Job 1: Data Scientist", "http://a", "Hello there", "Job 2 (Backend Engineer) failed at matched: store down"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out.String())
		}
	}

	if err := handleAction(PromptExit, &out, zap.NewNop(), result); !errors.Is(err, errExit) {
		t.Fatalf("expected exit, got %v", err)
	}
	if err := handleAction("unknown", &out, zap.NewNop(), result); err == nil {
		t.Fatal("expected error for unknown action")
	}
}
