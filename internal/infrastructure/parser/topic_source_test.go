package parser

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"QuestionScanner/internal/domain"
	"QuestionScanner/internal/logging"
)

type stubFetcher struct {
	body []byte
	err  error
	urls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.body, f.err
}

type failingExtractor struct{}

func (failingExtractor) Extract(io.Reader, int) (domain.ExtractedPage, error) {
	return domain.ExtractedPage{}, errors.New("unreadable document")
}

func TestTopicSourceFetchPage(t *testing.T) {
	t.Parallel()

	broken := goodBlock(3)
	broken.stats = nil
	fetcher := &stubFetcher{body: []byte(listing(goodBlock(1), broken, goodBlock(2)))}
	source := NewTopicSource(fetcher, newScanner(t), logging.Discard())

	target := domain.Target{Topic: "rust", URL: "https://stackoverflow.com/questions/tagged/rust?tab=Votes"}
	page, err := source.FetchPage(context.Background(), target, 10)
	require.NoError(t, err)
	require.Equal(t, []string{target.URL}, fetcher.urls)
	require.Len(t, page.Questions, 2)
	require.Equal(t, 1, page.Skipped)
	require.Equal(t, 2, page.TagFrequency["rust"])
}

func TestTopicSourcePropagatesFetchErrors(t *testing.T) {
	t.Parallel()

	fetchErr := domain.NewError(domain.KindFetch, "fetch x", errors.New("connection refused"))
	source := NewTopicSource(&stubFetcher{err: fetchErr}, newScanner(t), nil)

	_, err := source.FetchPage(context.Background(), domain.Target{URL: "x"}, 10)
	require.ErrorIs(t, err, fetchErr)
	require.Equal(t, domain.KindFetch, domain.KindOf(err))
}

func TestTopicSourceWrapsExtractorFailure(t *testing.T) {
	t.Parallel()

	source := NewTopicSource(&stubFetcher{body: []byte("<html>")}, failingExtractor{}, nil)

	_, err := source.FetchPage(context.Background(), domain.Target{URL: "https://example.com"}, 10)
	require.Error(t, err)
	require.Equal(t, domain.KindFetch, domain.KindOf(err))
}

func TestTopicSourceRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewTopicSource(nil, nil, nil).FetchPage(context.Background(), domain.Target{}, 10)
	require.Error(t, err)
}
