package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsPipelineOnTrigger(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	source := &stubSource{page: pageOf(question(1, "go"))}
	driver := &manualDriver{}
	s := NewScheduler(driver, newTestPipeline(repo, source, nil), RunOptions{Topic: "go", Limit: 5}, nil)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	require.NotNil(t, driver.job)

	driver.job(time.Now())
	driver.job(time.Now())

	require.Len(t, source.targets, 2)
	require.Equal(t, "go", source.targets[0].Topic)
	require.Equal(t, []int{5, 5}, source.limits)
	require.Len(t, repo.questions, 1)

	require.NoError(t, s.Stop(ctx))
	require.True(t, driver.stopped)
}

func TestSchedulerSkipsTriggerAfterCancel(t *testing.T) {
	t.Parallel()

	source := &stubSource{}
	driver := &manualDriver{}
	s := NewScheduler(driver, newTestPipeline(newMemoryRepository(), source, nil), RunOptions{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	driver.job(time.Now())
	require.Empty(t, source.targets)
}

func TestSchedulerWithoutDriver(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil, nil, RunOptions{}, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}
