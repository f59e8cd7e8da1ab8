package app

import (
	"context"
	"fmt"
	"log/slog"

	"QuestionScanner/internal/config"
	"QuestionScanner/internal/domain"
	"QuestionScanner/internal/infrastructure/fetcher"
	"QuestionScanner/internal/infrastructure/parser"
	"QuestionScanner/internal/infrastructure/scheduler"
	"QuestionScanner/internal/infrastructure/storage"
	"QuestionScanner/internal/infrastructure/telegram"
	"QuestionScanner/internal/logging"
	"QuestionScanner/internal/ports"
	"QuestionScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	repository *storage.SQLRepository
	pipeline   *usecase.Pipeline
}

// New opens storage and builds the ingestion pipeline.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	repo, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	selector, source, err := newSource(cfg, baseLogger)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		tg, err := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
		if err != nil {
			baseLogger.Warn("telegram notifications disabled", "error", err)
		} else {
			notifier = tg
		}
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Selector:   selector,
		Source:     source,
		Repository: repo,
		Notifier:   notifier,
		Logger:     baseLogger.With("component", "pipeline"),
		Limit:      cfg.Source.MaxQuestions,
	})

	return &Application{cfg: cfg, logger: baseLogger, repository: repo, pipeline: pipeline}, nil
}

// Preview fetches and extracts one listing page without opening storage.
func Preview(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts usecase.RunOptions) (domain.Target, domain.ExtractedPage, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	selector, source, err := newSource(cfg, baseLogger)
	if err != nil {
		return domain.Target{}, domain.ExtractedPage{}, err
	}
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Selector: selector,
		Source:   source,
		Logger:   baseLogger.With("component", "preview"),
		Limit:    cfg.Source.MaxQuestions,
	})
	return pipeline.Preview(ctx, opts)
}

func newSource(cfg config.Config, logger *slog.Logger) (*parser.TopicSelector, *parser.TopicSource, error) {
	selector, err := parser.NewTopicSelector(cfg.Source.BaseURL, cfg.Source.Tab, cfg.Source.Topics)
	if err != nil {
		return nil, nil, err
	}
	extractor, err := parser.NewQuestionScanner(cfg.Source.BaseURL)
	if err != nil {
		return nil, nil, err
	}
	pageFetcher := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.Source.UserAgent,
		Timeout:      cfg.Source.FetchTimeout.Duration,
		MaxBodyBytes: cfg.Source.MaxBodyBytes,
	})
	return selector, parser.NewTopicSource(pageFetcher, extractor, logger.With("component", "source")), nil
}

// RunSummary is a run report plus the store totals after the run.
type RunSummary struct {
	domain.RunReport
	Totals storage.Stats
}

// RunOnce performs a single ingestion run.
func (a *Application) RunOnce(ctx context.Context, opts usecase.RunOptions) (RunSummary, error) {
	report, err := a.pipeline.Run(ctx, opts)
	if err != nil {
		return RunSummary{RunReport: report}, err
	}
	stats, err := a.repository.Stats(ctx)
	if err != nil {
		a.logger.Warn("read store stats failed", "error", err)
	}
	return RunSummary{RunReport: report, Totals: stats}, nil
}

// Schedule runs ingestion on the configured cron expression until ctx is done.
func (a *Application) Schedule(ctx context.Context, opts usecase.RunOptions) error {
	driver := scheduler.NewCronScheduler(scheduler.Options{
		Spec:       a.cfg.Scheduler.CronExpression,
		Location:   a.cfg.Scheduler.Location(),
		RunOnStart: true,
		Logger:     a.logger.With("component", "scheduler"),
	})
	sched := usecase.NewScheduler(driver, a.pipeline, opts, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Location().String())

	<-ctx.Done()
	return sched.Stop(context.Background())
}

// Close releases the storage connection.
func (a *Application) Close() error {
	if a == nil || a.repository == nil {
		return nil
	}
	return a.repository.Close()
}
