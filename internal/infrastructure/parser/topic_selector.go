package parser

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"

	"QuestionScanner/internal/domain"
	"QuestionScanner/internal/ports"
)

const defaultTab = "Votes"

// TopicSelector picks a topic from a fixed catalog and builds its listing URL.
type TopicSelector struct {
	baseURL string
	tab     string
	topics  []string
	intn    func(n int) int
}

var _ ports.TargetSelector = (*TopicSelector)(nil)

// NewTopicSelector validates the catalog; tab defaults to "Votes".
func NewTopicSelector(baseURL, tab string, topics []string) (*TopicSelector, error) {
	if len(topics) == 0 {
		return nil, errors.New("topic catalog is empty")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base url %s: %w", baseURL, err)
	}
	if tab == "" {
		tab = defaultTab
	}
	return &TopicSelector{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tab:     tab,
		topics:  append([]string(nil), topics...),
		intn:    rand.IntN,
	}, nil
}

// Pick returns a uniformly random topic of the catalog with its listing URL.
func (s *TopicSelector) Pick() domain.Target {
	topic := s.topics[s.intn(len(s.topics))]
	return domain.Target{Topic: topic, URL: s.listingURL(topic)}
}

// TargetFor builds the listing target for an explicit topic.
func (s *TopicSelector) TargetFor(topic string) (domain.Target, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.Target{}, errors.New("topic is empty")
	}
	return domain.Target{Topic: topic, URL: s.listingURL(topic)}, nil
}

func (s *TopicSelector) listingURL(topic string) string {
	query := url.Values{}
	query.Set("tab", s.tab)
	return fmt.Sprintf("%s/questions/tagged/%s?%s", s.baseURL, url.PathEscape(topic), query.Encode())
}
