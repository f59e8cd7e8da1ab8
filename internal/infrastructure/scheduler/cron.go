package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"QuestionScanner/internal/logging"
	"QuestionScanner/internal/ports"
)

// Options configures a CronScheduler.
type Options struct {
	Spec       string
	Location   *time.Location
	RunOnStart bool
	Logger     *slog.Logger
}

// CronScheduler triggers a job on a cron expression. Overlapping triggers are
// skipped while a previous run is still in progress.
type CronScheduler struct {
	opts Options
	log  cronLogger

	mu   sync.Mutex
	cron *cron.Cron
	stop chan struct{}
	// runs tracks the RunOnStart invocation, which cron itself does not wait for.
	runs sync.WaitGroup
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler; location defaults to UTC.
func NewCronScheduler(opts Options) *CronScheduler {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &CronScheduler{opts: opts, log: cronLogger{logger: opts.Logger}}
}

// Start registers job and begins ticking until Stop is called or ctx is done.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	loc := c.opts.Location
	cr := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(c.log),
		cron.WithChain(cron.Recover(c.log), cron.SkipIfStillRunning(c.log)),
	)
	id, err := cr.AddFunc(c.opts.Spec, func() { job(time.Now().In(loc)) })
	if err != nil {
		return fmt.Errorf("schedule %q: %w", c.opts.Spec, err)
	}

	cr.Start()
	c.cron = cr
	c.stop = make(chan struct{})

	if c.opts.RunOnStart {
		wrapped := cr.Entry(id).WrappedJob
		c.runs.Add(1)
		go func() {
			defer c.runs.Done()
			wrapped.Run()
		}()
	}

	stop := c.stop
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Stop(context.Background())
		case <-stop:
		}
	}()

	return nil
}

// Stop halts the scheduler and waits for running jobs, including the start-up
// run, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.cron == nil {
		c.mu.Unlock()
		return nil
	}
	done := c.cron.Stop()
	close(c.stop)
	c.cron = nil
	c.stop = nil
	c.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		<-done.Done()
		c.runs.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next reports the next activation time, or zero when not running.
func (c *CronScheduler) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron == nil {
		return time.Time{}
	}
	entries := c.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
