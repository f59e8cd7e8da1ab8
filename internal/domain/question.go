package domain

import (
	"sort"
	"strings"
)

// QuestionID is the storage-assigned surrogate identifier of a question.
type QuestionID int64

// TagID is the storage-assigned surrogate identifier of a tag.
type TagID int64

// CandidateQuestion is a question freshly extracted from a listing page.
type CandidateQuestion struct {
	SourceID    int64
	Title       string
	Description string
	Link        string
	Votes       int64
	Answers     int64
	Views       int64
	Tags        []string
}

// ExtractedPage is the outcome of one extraction pass over a listing page.
type ExtractedPage struct {
	Questions []CandidateQuestion
	// TagFrequency maps each normalized tag to the number of candidates referencing it.
	TagFrequency map[string]int
	Skipped      int
	SkipReasons  []error
}

// Question is a persisted question row.
type Question struct {
	ID          QuestionID
	SourceID    int64
	Title       string
	Description string
	Link        string
	Votes       int64
	Answers     int64
	Views       int64
}

// Tag is a persisted tag row.
type Tag struct {
	ID    TagID
	Title string
}

// TaggedQuestion is a question joined with one of its tags.
type TaggedQuestion struct {
	Question Question
	Tag      Tag
}

// NormalizeTag returns the canonical form of a tag; empty means no tag.
func NormalizeTag(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// TagSet normalizes and de-duplicates tags, returning them sorted.
func TagSet(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, raw := range tags {
		tag := NormalizeTag(raw)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
