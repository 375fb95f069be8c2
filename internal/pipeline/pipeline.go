// Package pipeline turns a raw job posting into outreach messages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/outreach-composer/internal/ai"
	"github.com/spigell/outreach-composer/internal/logger"
	"github.com/spigell/outreach-composer/internal/portfolio"
	"github.com/spigell/outreach-composer/internal/textnorm"
)

// Stage names a step of a run.
type Stage string

const (
	StageReceived   Stage = "received"
	StageNormalized Stage = "normalized"
	StageExtracted  Stage = "extracted"
	StageMatched    Stage = "matched"
	StageComposed   Stage = "composed"
	StageDone       Stage = "done"
	StageAborted    Stage = "aborted"
)

// Extractor turns normalized page text into job records.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]ai.ExtractedJob, error)
}

// Matcher finds portfolio references for a skill set.
type Matcher interface {
	Query(ctx context.Context, skills []string, k int) ([]portfolio.Match, error)
}

// Composer writes one message for a job.
type Composer interface {
	Compose(ctx context.Context, job ai.ExtractedJob, references []string) (string, error)
}

// Options tunes a Pipeline.
type Options struct {
	// TopK is the number of references requested per job. Non-positive uses portfolio.DefaultTopK.
	TopK int
	// Concurrency bounds how many jobs are matched and composed at once. Values below 1 mean sequential.
	Concurrency int
	Logger      *zap.Logger
}

// Pipeline wires the extractor, matcher and composer together.
type Pipeline struct {
	extractor   Extractor
	matcher     Matcher
	composer    Composer
	topK        int
	concurrency int
	logger      *zap.Logger
}

// AbortError reports a run that stopped before any job was processed.
type AbortError struct {
	// Stage is the step that could not be completed.
	Stage Stage
	Err   error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("run aborted at %s stage: %v", e.Stage, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

func New(extractor Extractor, matcher Matcher, composer Composer, opts Options) (*Pipeline, error) {
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if matcher == nil {
		return nil, errors.New("matcher is required")
	}
	if composer == nil {
		return nil, errors.New("composer is required")
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = portfolio.DefaultTopK
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		extractor:   extractor,
		matcher:     matcher,
		composer:    composer,
		topK:        topK,
		concurrency: concurrency,
		logger:      log,
	}, nil
}

// Run processes one document. Extraction failures abort the run with an *AbortError;
// failures while matching or composing a single job are recorded in Result.Failures and
// never stop the remaining jobs.
func (p *Pipeline) Run(ctx context.Context, raw string) (*Result, error) {
	started := time.Now()
	p.logger.Info("pipeline stage", zap.String(logger.FieldStage, string(StageReceived)), zap.Int("raw_length", len(raw)))

	text := textnorm.Normalize(raw)
	p.logger.Info("pipeline stage", zap.String(logger.FieldStage, string(StageNormalized)), zap.Int("text_length", len(text)))

	jobs, err := p.extractor.Extract(ctx, text)
	if err == nil && len(jobs) == 0 {
		err = ai.NewError(ai.ParseFailure, "no jobs extracted", nil)
	}
	if err != nil {
		p.logger.Error("pipeline stage",
			zap.String(logger.FieldStage, string(StageAborted)),
			zap.String("failed_stage", string(StageExtracted)),
			zap.Error(err),
		)
		return nil, &AbortError{Stage: StageExtracted, Err: err}
	}
	p.logger.Info("pipeline stage", zap.String(logger.FieldStage, string(StageExtracted)), zap.Int("jobs", len(jobs)))

	outcomes := make([]outcome, len(jobs))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for idx, job := range jobs {
		g.Go(func() error {
			outcomes[idx] = p.processJob(ctx, idx, job)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{
		Messages: make([]Composed, 0, len(jobs)),
		Failures: make([]JobFailure, 0),
	}
	for _, out := range outcomes {
		if out.failure != nil {
			result.Failures = append(result.Failures, *out.failure)
			continue
		}
		result.Messages = append(result.Messages, *out.composed)
	}

	p.logger.Info("pipeline stage",
		zap.String(logger.FieldStage, string(StageDone)),
		zap.Int("messages", len(result.Messages)),
		zap.Int("failures", len(result.Failures)),
		zap.Duration("took", time.Since(started)),
	)

	return result, nil
}

type outcome struct {
	composed *Composed
	failure  *JobFailure
}

func (p *Pipeline) processJob(ctx context.Context, idx int, job ai.ExtractedJob) outcome {
	log := logger.WithFields(p.logger, logger.JobFields(idx, job.Role)...)

	matches, err := p.matcher.Query(ctx, job.Skills, p.topK)
	if err != nil {
		log.Warn("job failed", zap.String(logger.FieldStage, string(StageMatched)), zap.Error(err))
		return outcome{failure: newFailure(idx, job, StageMatched, err)}
	}
	references := portfolio.References(matches)
	log.Debug("job stage", zap.String(logger.FieldStage, string(StageMatched)), zap.Strings("references", references))

	message, err := p.composer.Compose(ctx, job, references)
	if err != nil {
		log.Warn("job failed", zap.String(logger.FieldStage, string(StageComposed)), zap.Error(err))
		return outcome{failure: newFailure(idx, job, StageComposed, err)}
	}
	log.Info("job stage", zap.String(logger.FieldStage, string(StageComposed)), zap.Int("message_length", len(message)))

	return outcome{composed: &Composed{
		Index:      idx,
		Job:        job,
		References: references,
		Message:    message,
	}}
}

func newFailure(idx int, job ai.ExtractedJob, stage Stage, err error) *JobFailure {
	failure := &JobFailure{
		Index:  idx,
		Job:    job,
		Stage:  stage,
		Reason: err.Error(),
		Err:    err,
	}
	if kind, ok := ai.KindOf(err); ok {
		failure.Kind = kind
	}
	return failure
}
