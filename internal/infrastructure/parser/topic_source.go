package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"QuestionScanner/internal/domain"
	"QuestionScanner/internal/ports"
)

// TopicSource implements QuestionSource by fetching a listing page and extracting it.
type TopicSource struct {
	fetcher   ports.PageFetcher
	extractor ports.Extractor
	logger    *slog.Logger
}

var _ ports.QuestionSource = (*TopicSource)(nil)

// NewTopicSource wires a page fetcher with an extractor.
func NewTopicSource(fetcher ports.PageFetcher, extractor ports.Extractor, log *slog.Logger) *TopicSource {
	return &TopicSource{
		fetcher:   fetcher,
		extractor: extractor,
		logger:    log,
	}
}

// FetchPage downloads the target listing and extracts up to limit candidates.
// Fetch failures are returned as KindFetch errors; malformed blocks are only reported.
func (s *TopicSource) FetchPage(ctx context.Context, target domain.Target, limit int) (domain.ExtractedPage, error) {
	if s.fetcher == nil || s.extractor == nil {
		return domain.ExtractedPage{}, fmt.Errorf("topic source is not configured")
	}

	s.debug("fetch listing", "topic", target.Topic, "url", target.URL, "limit", limit)

	raw, err := s.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		return domain.ExtractedPage{}, err
	}

	page, err := s.extractor.Extract(bytes.NewReader(raw), limit)
	if err != nil {
		return domain.ExtractedPage{}, domain.NewError(domain.KindFetch, "extract "+target.URL, err)
	}

	for _, reason := range page.SkipReasons {
		s.warn("skipped listing block", "topic", target.Topic, "error", reason)
	}
	s.debug("listing extracted", "topic", target.Topic, "candidates", len(page.Questions), "skipped", page.Skipped, "tags", len(page.TagFrequency))
	return page, nil
}

func (s *TopicSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *TopicSource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
