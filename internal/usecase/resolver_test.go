package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"QuestionScanner/internal/domain"
)

func TestTagResolverCachesPerRun(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	resolver := NewTagResolver(repo)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "Rust")
	require.NoError(t, err)
	second, err := resolver.Resolve(ctx, " rust ")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.tagCalls["rust"])
	require.Equal(t, 1, resolver.Len())

	// A fresh resolver still agrees with the store.
	next := NewTagResolver(repo)
	again, err := next.Resolve(ctx, "rust")
	require.NoError(t, err)
	require.Equal(t, first, again)
}

func TestTagResolverErrors(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepository()
	repo.failTag["broken"] = true
	resolver := NewTagResolver(repo)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "   ")
	require.Equal(t, domain.KindResolution, domain.KindOf(err))

	_, err = resolver.Resolve(ctx, "broken")
	require.Equal(t, domain.KindResolution, domain.KindOf(err))
	require.Zero(t, resolver.Len(), "failed lookups must not be cached")

	_, err = NewTagResolver(nil).Resolve(ctx, "go")
	require.Error(t, err)
}

func TestTagBudget(t *testing.T) {
	t.Parallel()

	budget := newTagBudget(domain.ExtractedPage{TagFrequency: map[string]int{"Go": 1, "sql": 2}})
	require.True(t, budget.take("go"))
	require.False(t, budget.take("go"))
	require.True(t, budget.take("sql"))
	require.True(t, budget.take(" SQL"))
	require.False(t, budget.take("sql"))
	require.False(t, budget.take("unknown"))
}
