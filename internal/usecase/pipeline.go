package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"QuestionScanner/internal/domain"
	"QuestionScanner/internal/logging"
	"QuestionScanner/internal/ports"
)

var tracer = otel.Tracer("questionscanner/usecase")

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Selector   ports.TargetSelector
	Source     ports.QuestionSource
	Repository ports.QuestionRepository
	Notifier   ports.Notifier
	Logger     *slog.Logger
	// Limit is the default number of candidates taken from a page.
	Limit int

	NewRunID func() string
	Now      func() time.Time
}

// RunOptions tunes a single run. Zero values fall back to the pipeline defaults.
type RunOptions struct {
	Topic string
	URL   string
	Limit int
}

// Pipeline implements the question-ingestion workflow.
type Pipeline struct {
	selector   ports.TargetSelector
	source     ports.QuestionSource
	repository ports.QuestionRepository
	notifier   ports.Notifier
	logger     *slog.Logger
	limit      int
	newRunID   func() string
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		selector:   deps.Selector,
		source:     deps.Source,
		repository: deps.Repository,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		limit:      deps.Limit,
		newRunID:   deps.NewRunID,
		now:        deps.Now,
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.newRunID == nil {
		p.newRunID = uuid.NewString
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run selects a listing page, fetches and extracts it, and ingests the result.
// Only a failure to obtain the page aborts the run; per-item failures are
// counted in the report.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (domain.RunReport, error) {
	report := domain.RunReport{RunID: p.newRunID(), StartedAt: p.now()}
	logger := p.logger.With("run_id", report.RunID)

	if p.source == nil || p.repository == nil {
		report.FinishedAt = p.now()
		return report, errors.New("pipeline is not configured")
	}

	ctx, span := tracer.Start(ctx, "Pipeline.Run")
	defer span.End()
	span.SetAttributes(attribute.String("run.id", report.RunID))

	target, err := p.target(opts)
	if err != nil {
		report.FinishedAt = p.now()
		span.RecordError(err)
		span.SetStatus(codes.Error, "select target")
		return report, fmt.Errorf("select target: %w", err)
	}
	report.Topic = target.Topic
	report.URL = target.URL
	span.SetAttributes(attribute.String("run.topic", target.Topic), attribute.String("run.url", target.URL))

	limit := p.limitFor(opts)

	logger.Info("ingestion started", "topic", target.Topic, "url", target.URL, "limit", limit)

	page, err := p.source.FetchPage(ctx, target, limit)
	if err != nil {
		report.FinishedAt = p.now()
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch page")
		logger.Error("ingestion aborted", "url", target.URL, "error", err)
		return report, fmt.Errorf("fetch page %s: %w", target.URL, err)
	}

	counts := p.Ingest(ctx, logger, page)
	counts.RunID, counts.Topic, counts.URL, counts.StartedAt = report.RunID, report.Topic, report.URL, report.StartedAt
	report = counts
	report.FinishedAt = p.now()

	logger.Info("ingestion finished",
		"candidates", report.Candidates,
		"created", report.Created,
		"duplicates", report.Duplicates,
		"skipped", report.Skipped(),
		"tags", report.TagsResolved,
		"edges", report.EdgesCreated,
		"duration", report.Duration(),
	)

	p.notify(ctx, logger, report)
	return report, nil
}

// Preview fetches and extracts the page a run with opts would ingest,
// without touching the repository.
func (p *Pipeline) Preview(ctx context.Context, opts RunOptions) (domain.Target, domain.ExtractedPage, error) {
	if p.source == nil {
		return domain.Target{}, domain.ExtractedPage{}, errors.New("pipeline has no question source")
	}

	ctx, span := tracer.Start(ctx, "Pipeline.Preview")
	defer span.End()

	target, err := p.target(opts)
	if err != nil {
		span.RecordError(err)
		return domain.Target{}, domain.ExtractedPage{}, fmt.Errorf("select target: %w", err)
	}
	span.SetAttributes(attribute.String("run.topic", target.Topic), attribute.String("run.url", target.URL))

	page, err := p.source.FetchPage(ctx, target, p.limitFor(opts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch page")
		return target, domain.ExtractedPage{}, fmt.Errorf("fetch page %s: %w", target.URL, err)
	}
	p.logger.Debug("preview extracted", "url", target.URL, "candidates", len(page.Questions), "skipped", page.Skipped)
	return target, page, nil
}

// Ingest persists one extracted page: each candidate is inserted or skipped as
// a duplicate, and only newly created questions get their tags resolved and
// linked. Failures are contained to the candidate or edge they concern.
func (p *Pipeline) Ingest(ctx context.Context, logger *slog.Logger, page domain.ExtractedPage) domain.RunReport {
	if logger == nil {
		logger = p.logger
	}

	report := domain.RunReport{
		Candidates:    len(page.Questions),
		SkippedBlocks: page.Skipped,
	}
	if p.repository == nil {
		report.FailedQuestions = len(page.Questions)
		return report
	}

	budget := newTagBudget(page)
	resolver := NewTagResolver(p.repository)

	for _, candidate := range page.Questions {
		if err := ctx.Err(); err != nil {
			logger.Warn("ingestion interrupted", "error", err)
			break
		}
		p.ingestQuestion(ctx, logger, candidate, budget, resolver, &report)
	}

	report.TagsResolved = resolver.Len()
	return report
}

func (p *Pipeline) ingestQuestion(ctx context.Context, logger *slog.Logger, candidate domain.CandidateQuestion, budget tagBudget, resolver *TagResolver, report *domain.RunReport) {
	ctx, span := tracer.Start(ctx, "Pipeline.ingestQuestion")
	defer span.End()
	span.SetAttributes(attribute.Int64("question.source_id", candidate.SourceID))

	log := logger.With("source_id", candidate.SourceID)

	questionID, created, err := p.repository.CreateQuestionOrSkip(ctx, candidate)
	if err != nil {
		report.FailedQuestions++
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist question")
		log.Warn("persist question failed", "error", err)
		return
	}
	if !created {
		report.Duplicates++
		log.Debug("question already ingested")
		return
	}
	report.Created++

	for _, tag := range domain.TagSet(candidate.Tags) {
		if !budget.take(tag) {
			report.EdgesSkippedBudget++
			log.Debug("tag budget exhausted", "tag", tag)
			continue
		}

		tagID, err := resolver.Resolve(ctx, tag)
		if err != nil {
			report.TagsFailed++
			span.RecordError(err)
			log.Warn("resolve tag failed", "tag", tag, "error", err)
			continue
		}

		added, err := p.repository.CreateEdge(ctx, questionID, tagID)
		if err != nil {
			report.EdgesFailed++
			span.RecordError(err)
			log.Warn("link tag failed", "tag", tag, "tag_id", tagID, "error", err)
			continue
		}
		if added {
			report.EdgesCreated++
		} else {
			report.EdgesExisting++
		}
	}
}

func (p *Pipeline) target(opts RunOptions) (domain.Target, error) {
	if opts.URL != "" {
		return domain.Target{Topic: opts.Topic, URL: opts.URL}, nil
	}
	if p.selector == nil {
		return domain.Target{}, errors.New("no target selector configured")
	}
	if opts.Topic != "" {
		return p.selector.TargetFor(opts.Topic)
	}
	return p.selector.Pick(), nil
}

func (p *Pipeline) limitFor(opts RunOptions) int {
	if opts.Limit > 0 {
		return opts.Limit
	}
	return p.limit
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, report domain.RunReport) {
	if p.notifier == nil || report.Created == 0 {
		return
	}
	if err := p.notifier.PublishDigest(ctx, buildDigestMessage(report)); err != nil {
		logger.Warn("publish run digest failed", "error", err)
	}
}

func buildDigestMessage(report domain.RunReport) string {
	var b strings.Builder
	topic := report.Topic
	if topic == "" {
		topic = report.URL
	}
	fmt.Fprintf(&b, "Ingestion run %s (%s)\n", report.RunID, topic)
	fmt.Fprintf(&b, "Questions: %d new, %d known, %d failed of %d candidates\n",
		report.Created, report.Duplicates, report.FailedQuestions, report.Candidates)
	fmt.Fprintf(&b, "Tags: %d resolved, %d failed\n", report.TagsResolved, report.TagsFailed)
	fmt.Fprintf(&b, "Edges: %d new, %d existing, %d failed\n", report.EdgesCreated, report.EdgesExisting, report.EdgesFailed)
	if report.SkippedBlocks > 0 {
		fmt.Fprintf(&b, "Malformed blocks skipped: %d\n", report.SkippedBlocks)
	}
	return b.String()
}
