package ports

import (
	"context"
	"io"
	"time"

	"QuestionScanner/internal/domain"
)

// PageFetcher downloads raw listing markup.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns listing markup into candidate questions.
type Extractor interface {
	Extract(r io.Reader, limit int) (domain.ExtractedPage, error)
}

// TargetSelector picks which listing page a run ingests.
type TargetSelector interface {
	Pick() domain.Target
	TargetFor(topic string) (domain.Target, error)
}

// QuestionSource fetches and extracts one listing page.
type QuestionSource interface {
	FetchPage(ctx context.Context, target domain.Target, limit int) (domain.ExtractedPage, error)
}

// QuestionRepository is the write contract the ingestion core needs from storage.
type QuestionRepository interface {
	// CreateQuestionOrSkip inserts the question unless its source id is already known.
	// The boolean is false when the question was skipped as a duplicate.
	CreateQuestionOrSkip(ctx context.Context, q domain.CandidateQuestion) (domain.QuestionID, bool, error)
	// GetOrCreateTag atomically returns the id of the tag with this exact title, creating it if absent.
	GetOrCreateTag(ctx context.Context, title string) (domain.TagID, error)
	// CreateEdge links a question and a tag unless the link already exists.
	CreateEdge(ctx context.Context, questionID domain.QuestionID, tagID domain.TagID) (bool, error)
}

// QuestionReader serves the read and maintenance side of the store.
type QuestionReader interface {
	ListTags(ctx context.Context, limit uint64) ([]domain.Tag, error)
	ListQuestions(ctx context.Context, limit uint64) ([]domain.Question, error)
	QuestionsByTag(ctx context.Context, tagID domain.TagID) ([]domain.TaggedQuestion, error)
	RenameTag(ctx context.Context, tagID domain.TagID, title string) error
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
