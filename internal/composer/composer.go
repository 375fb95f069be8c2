// Package composer writes outreach messages for extracted jobs.
package composer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/outreach-composer/internal/ai"
	"github.com/spigell/outreach-composer/internal/util"
)

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	maxPersonaRunes     = 120

	defaultSenderName    = "Khan"
	defaultSenderCompany = "ABC Consulting"
	defaultSenderFocus   = "Data Science and AI"
)

// Persona describes who the message is written on behalf of.
type Persona struct {
	Name    string
	Company string
	Focus   string
}

// Composer asks the completion service for one outreach message per job.
type Composer struct {
	completer ai.Completer
	persona   Persona
	logger    *zap.Logger
	maxLogLen int
}

func New(completer ai.Completer, persona Persona, maxLogLength int, logger *zap.Logger) (*Composer, error) {
	if completer == nil {
		return nil, errors.New("completion service is required")
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Composer{
		completer: completer,
		persona:   sanitizePersona(persona),
		logger:    logger,
		maxLogLen: maxLogLength,
	}, nil
}

// Compose returns the raw completion text for job. An empty answer is a CompositionFailure,
// any other service error a TransportFailure.
func (c *Composer) Compose(ctx context.Context, job ai.ExtractedJob, references []string) (string, error) {
	prompt, err := c.buildPrompt(job, references)
	if err != nil {
		return "", ai.NewError(ai.CompositionFailure, "build prompt", err)
	}

	c.logger.Debug("compose message request",
		zap.String("role", job.Role),
		zap.Int("references", len(references)),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", util.TruncateForLog(prompt, c.maxLogLen)),
	)

	message, err := c.completer.GenerateContent(ctx, prompt)
	if err != nil {
		if errors.Is(err, ai.ErrEmptyResponse) {
			return "", ai.NewError(ai.CompositionFailure, "completion service returned no message", err)
		}
		return "", ai.NewError(ai.TransportFailure, "request message composition", err)
	}
	if strings.TrimSpace(message) == "" {
		return "", ai.NewError(ai.CompositionFailure, "completion service returned no message", nil)
	}

	c.logger.Debug("compose message response",
		zap.String("role", job.Role),
		zap.Int("response_length", utf8.RuneCountInString(message)),
		zap.String("response_preview", util.TruncateForLog(message, c.maxLogLen)),
	)

	return message, nil
}

func (c *Composer) buildPrompt(job ai.ExtractedJob, references []string) (string, error) {
	if job.Skills == nil {
		job.Skills = []string{}
	}

	jobJSON, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	urls := make([]string, 0, len(references))
	for _, ref := range references {
		if ref = strings.TrimSpace(ref); ref != "" {
			urls = append(urls, "- "+ref)
		}
	}
	portfolio := "none"
	if len(urls) > 0 {
		portfolio = strings.Join(urls, "\n")
	}

	replacer := strings.NewReplacer(
		"{{SENDER_NAME}}", c.persona.Name,
		"{{SENDER_COMPANY}}", c.persona.Company,
		"{{SENDER_FOCUS}}", c.persona.Focus,
		"{{JOB_DESCRIPTION}}", string(jobJSON),
		"{{PORTFOLIO_URLS}}", portfolio,
	)

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Write a cold email from {{SENDER_NAME}} at {{SENDER_COMPANY}}.\nJOB DESCRIPTION:\n{{JOB_DESCRIPTION}}\nPORTFOLIO URLS:\n{{PORTFOLIO_URLS}}"
	}

	return replacer.Replace(template), nil
}

func sanitizePersona(p Persona) Persona {
	return Persona{
		Name:    sanitizeSingleLine(p.Name, defaultSenderName),
		Company: sanitizeSingleLine(p.Company, defaultSenderCompany),
		Focus:   sanitizeSingleLine(p.Focus, defaultSenderFocus),
	}
}

// sanitizeSingleLine keeps persona values on one line, neutralizes bracketed role markers
// and template braces, and caps the length.
func sanitizeSingleLine(value, fallback string) string {
	value = util.SingleLine(value)
	value = strings.NewReplacer("[", "(", "]", ")", "{", "(", "}", ")").Replace(value)
	if runes := []rune(value); len(runes) > maxPersonaRunes {
		value = strings.TrimSpace(string(runes[:maxPersonaRunes]))
	}
	if value == "" {
		return fallback
	}
	return value
}
