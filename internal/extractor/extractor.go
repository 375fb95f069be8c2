// Package extractor turns cleaned job posting text into validated job records.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/spigell/outreach-composer/internal/ai"
	"github.com/spigell/outreach-composer/internal/util"
)

//go:embed prompt.md
var promptTemplate string

//go:embed job.schema.json
var jobSchema string

const defaultMaxLogLength = 200

var schemaLoader = gojsonschema.NewStringLoader(jobSchema)

// Extractor asks the completion service for job records and validates the answer.
type Extractor struct {
	completer ai.Completer
	logger    *zap.Logger
	maxLogLen int
	schema    *gojsonschema.Schema
}

func New(completer ai.Completer, maxLogLength int, logger *zap.Logger) (*Extractor, error) {
	if completer == nil {
		return nil, errors.New("completion service is required")
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	schema, err := gojsonschema.NewSchema(schemaLoader)
	if err != nil {
		return nil, fmt.Errorf("load job schema: %w", err)
	}

	return &Extractor{
		completer: completer,
		logger:    logger,
		maxLogLen: maxLogLength,
		schema:    schema,
	}, nil
}

// Extract issues exactly one completion request and returns at least one job record.
// Every failure is an *ai.ExtractionError: ParseFailure for unusable output or oversized
// input, TransportFailure when the service could not be reached.
func (e *Extractor) Extract(ctx context.Context, text string) ([]ai.ExtractedJob, error) {
	prompt := buildPrompt(text)

	e.logger.Debug("extract jobs request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, e.maxLogLen)),
	)

	raw, err := e.completer.GenerateContent(ctx, prompt)
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrInputTooLarge):
			return nil, ai.NewError(ai.ParseFailure, "content too big, unable to parse jobs", err)
		case errors.Is(err, ai.ErrEmptyResponse):
			return nil, ai.NewError(ai.ParseFailure, "completion service returned no jobs", err)
		default:
			return nil, ai.NewError(ai.TransportFailure, "request job extraction", err)
		}
	}

	e.logger.Debug("extract jobs response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, e.maxLogLen)),
	)

	jobs, err := e.parseResponse(raw)
	if err != nil {
		return nil, err
	}

	e.logger.Info("jobs extracted", zap.Int("count", len(jobs)))
	return jobs, nil
}

func buildPrompt(text string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Extract job records as JSON with keys role, experience, skills and description.\n{{PAGE_DATA}}"
	}
	return strings.ReplaceAll(template, "{{PAGE_DATA}}", text)
}

func (e *Extractor) parseResponse(raw string) ([]ai.ExtractedJob, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, ai.NewError(ai.ParseFailure, "response is empty", nil)
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	var decoded any
	if err := decoder.Decode(&decoded); err != nil {
		return nil, ai.NewError(ai.ParseFailure, "response is not valid json", err)
	}
	if decoder.More() {
		return nil, ai.NewError(ai.ParseFailure, "response contains trailing content after json", nil)
	}

	var records []any
	switch value := decoded.(type) {
	case map[string]any:
		records = []any{value}
	case []any:
		records = value
	default:
		return nil, ai.NewError(ai.ParseFailure, fmt.Sprintf("unexpected json shape %T, want object or array", decoded), nil)
	}

	if len(records) == 0 {
		return nil, ai.NewError(ai.ParseFailure, "response contains no jobs", nil)
	}

	jobs := make([]ai.ExtractedJob, 0, len(records))
	for n, record := range records {
		job, err := e.decodeRecord(record)
		if err != nil {
			return nil, ai.NewError(ai.ParseFailure, fmt.Sprintf("job %d", n), err)
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (e *Extractor) decodeRecord(record any) (ai.ExtractedJob, error) {
	var job ai.ExtractedJob

	result, err := e.schema.Validate(gojsonschema.NewGoLoader(record))
	if err != nil {
		return job, fmt.Errorf("validate record: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			problems = append(problems, fmt.Sprintf("%s: %s", field, desc.Description()))
		}
		return job, fmt.Errorf("invalid record: %s", strings.Join(problems, "; "))
	}

	if err := mapstructure.Decode(record, &job); err != nil {
		return job, fmt.Errorf("decode record: %w", err)
	}
	if job.Skills == nil {
		job.Skills = []string{}
	}

	return job, nil
}

// extractJSON strips Markdown code fences that models tend to wrap JSON in.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
