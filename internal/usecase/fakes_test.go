package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"QuestionScanner/internal/domain"
)

type edge struct {
	question domain.QuestionID
	tag      domain.TagID
}

// memoryRepository is an in-memory QuestionRepository with failure injection.
type memoryRepository struct {
	mu sync.Mutex

	questions map[int64]domain.QuestionID
	tags      map[string]domain.TagID
	edges     map[edge]struct{}

	tagCalls map[string]int

	failQuestion map[int64]bool
	failTag      map[string]bool
	failEdge     map[domain.TagID]bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		questions:    map[int64]domain.QuestionID{},
		tags:         map[string]domain.TagID{},
		edges:        map[edge]struct{}{},
		tagCalls:     map[string]int{},
		failQuestion: map[int64]bool{},
		failTag:      map[string]bool{},
		failEdge:     map[domain.TagID]bool{},
	}
}

func (r *memoryRepository) CreateQuestionOrSkip(_ context.Context, q domain.CandidateQuestion) (domain.QuestionID, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failQuestion[q.SourceID] {
		return 0, false, domain.NewError(domain.KindPersistence, "insert question", errors.New("disk full"))
	}
	if _, ok := r.questions[q.SourceID]; ok {
		return 0, false, nil
	}
	id := domain.QuestionID(len(r.questions) + 1)
	r.questions[q.SourceID] = id
	return id, true, nil
}

func (r *memoryRepository) GetOrCreateTag(_ context.Context, title string) (domain.TagID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tagCalls[title]++
	if r.failTag[title] {
		return 0, domain.NewError(domain.KindPersistence, "upsert tag", errors.New("timeout"))
	}
	if id, ok := r.tags[title]; ok {
		return id, nil
	}
	id := domain.TagID(len(r.tags) + 1)
	r.tags[title] = id
	return id, nil
}

func (r *memoryRepository) CreateEdge(_ context.Context, q domain.QuestionID, t domain.TagID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failEdge[t] {
		return false, domain.NewError(domain.KindPersistence, "insert edge", errors.New("constraint"))
	}
	e := edge{question: q, tag: t}
	if _, ok := r.edges[e]; ok {
		return false, nil
	}
	r.edges[e] = struct{}{}
	return true, nil
}

func (r *memoryRepository) edgesFor(tag string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.tags[tag]
	if !ok {
		return 0
	}
	n := 0
	for e := range r.edges {
		if e.tag == id {
			n++
		}
	}
	return n
}

type stubSource struct {
	page    domain.ExtractedPage
	err     error
	targets []domain.Target
	limits  []int
}

func (s *stubSource) FetchPage(_ context.Context, target domain.Target, limit int) (domain.ExtractedPage, error) {
	s.targets = append(s.targets, target)
	s.limits = append(s.limits, limit)
	return s.page, s.err
}

type stubSelector struct {
	picked domain.Target
}

func (s stubSelector) Pick() domain.Target { return s.picked }

func (s stubSelector) TargetFor(topic string) (domain.Target, error) {
	if topic == "" {
		return domain.Target{}, errors.New("topic is empty")
	}
	return domain.Target{Topic: topic, URL: "https://example.com/questions/tagged/" + topic}, nil
}

type recordingNotifier struct {
	messages []string
	err      error
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.messages = append(n.messages, digest)
	return n.err
}

func fixedClock() func() time.Time {
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}
