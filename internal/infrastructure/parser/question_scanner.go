package parser

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"QuestionScanner/internal/domain"
	"QuestionScanner/internal/ports"
)

const (
	defaultLimit = 10

	summarySelector  = ".s-post-summary"
	titleSelector    = ".s-post-summary--content-title a"
	excerptSelector  = ".s-post-summary--content-excerpt"
	statSelector     = ".s-post-summary--stats-item-number"
	tagSelector      = ".post-tag"
	sourceIDAttr     = "data-post-id"
	expectedStatsLen = 3
)

var (
	innerWhitespace = regexp.MustCompile(`\s+`)
	plainCount      = regexp.MustCompile(`^\d+$`)
	scaledCount     = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// QuestionScanner extracts question summaries from a tagged listing page.
type QuestionScanner struct {
	base *url.URL
}

var _ ports.Extractor = (*QuestionScanner)(nil)

// NewQuestionScanner resolves relative question links against baseURL.
func NewQuestionScanner(baseURL string) (*QuestionScanner, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %s: %w", baseURL, err)
	}
	return &QuestionScanner{base: base}, nil
}

// Extract returns up to limit well-formed candidates in page order. Malformed
// blocks are skipped and reported; they do not count towards limit.
func (s *QuestionScanner) Extract(r io.Reader, limit int) (domain.ExtractedPage, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return domain.ExtractedPage{}, fmt.Errorf("parse document: %w", err)
	}

	page := domain.ExtractedPage{TagFrequency: map[string]int{}}
	seen := map[int64]struct{}{}

	doc.Find(summarySelector).EachWithBreak(func(i int, block *goquery.Selection) bool {
		question, err := parseSummary(block, s.base)
		if err == nil {
			if _, dup := seen[question.SourceID]; dup {
				err = fmt.Errorf("source id %d repeated on page", question.SourceID)
			}
		}
		if err != nil {
			page.Skipped++
			page.SkipReasons = append(page.SkipReasons,
				domain.NewError(domain.KindExtraction, fmt.Sprintf("block %d", i), err))
			return true
		}

		seen[question.SourceID] = struct{}{}
		page.Questions = append(page.Questions, question)
		for _, tag := range question.Tags {
			page.TagFrequency[tag]++
		}
		return len(page.Questions) < limit
	})

	return page, nil
}

func parseSummary(block *goquery.Selection, base *url.URL) (domain.CandidateQuestion, error) {
	var q domain.CandidateQuestion

	rawID, ok := block.Attr(sourceIDAttr)
	if !ok {
		return q, errors.New("missing source id")
	}
	sourceID, err := strconv.ParseInt(strings.TrimSpace(rawID), 10, 64)
	if err != nil || sourceID <= 0 {
		return q, fmt.Errorf("invalid source id %q", rawID)
	}

	anchor := block.Find(titleSelector).First()
	title := collapse(anchor.Text())
	if anchor.Length() == 0 || title == "" {
		return q, errors.New("missing title")
	}
	href, ok := anchor.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return q, errors.New("missing question link")
	}
	link, err := resolveLink(base, href)
	if err != nil {
		return q, err
	}

	excerpt := block.Find(excerptSelector).First()
	if excerpt.Length() == 0 {
		return q, errors.New("missing description")
	}

	stats := block.Find(statSelector)
	if stats.Length() < expectedStatsLen {
		return q, fmt.Errorf("expected %d stats, found %d", expectedStatsLen, stats.Length())
	}
	votes, err := ParseCount(stats.Eq(0).Text())
	if err != nil {
		return q, fmt.Errorf("votes: %w", err)
	}
	answers, err := ParseCount(stats.Eq(1).Text())
	if err != nil {
		return q, fmt.Errorf("answers: %w", err)
	}
	views, err := ParseCount(stats.Eq(2).Text())
	if err != nil {
		return q, fmt.Errorf("views: %w", err)
	}

	tags := block.Find(tagSelector).Map(func(_ int, tag *goquery.Selection) string {
		return tag.Text()
	})

	q = domain.CandidateQuestion{
		SourceID:    sourceID,
		Title:       title,
		Description: collapse(excerpt.Text()),
		Link:        link,
		Votes:       votes,
		Answers:     answers,
		Views:       views,
		Tags:        domain.TagSet(tags),
	}
	return q, nil
}

// ParseCount converts a listing statistic such as "42", "1,234", "12k" or
// "1.2m" into an integer. Negative, overflowing and unparsable values are rejected.
func ParseCount(text string) (int64, error) {
	raw := strings.ToLower(strings.TrimSpace(text))
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return 0, errors.New("empty count")
	}

	multiplier := 1.0
	switch raw[len(raw)-1] {
	case 'k':
		multiplier = 1e3
	case 'm':
		multiplier = 1e6
	case 'b':
		multiplier = 1e9
	}
	if multiplier != 1 {
		raw = raw[:len(raw)-1]
	}

	if strings.HasPrefix(raw, "-") {
		return 0, fmt.Errorf("negative count %q", text)
	}

	if multiplier == 1 {
		if !plainCount.MatchString(raw) {
			return 0, fmt.Errorf("invalid count %q", text)
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("count %q out of range", text)
		}
		return n, nil
	}

	if !scaledCount.MatchString(raw) {
		return 0, fmt.Errorf("invalid count %q", text)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid count %q", text)
	}
	scaled := math.Round(f * multiplier)
	// float64(MaxInt64) rounds up to 2^63, which itself does not fit.
	if scaled >= math.MaxInt64 {
		return 0, fmt.Errorf("count %q out of range", text)
	}
	return int64(scaled), nil
}

func resolveLink(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("invalid question link %q: %w", href, err)
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}

func collapse(s string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}
