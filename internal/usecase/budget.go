package usecase

import "QuestionScanner/internal/domain"

// tagBudget caps how many edges a tag may receive during one run. It is seeded
// with the page-wide tag frequency and is owned by a single run.
type tagBudget map[string]int

func newTagBudget(page domain.ExtractedPage) tagBudget {
	budget := tagBudget{}
	if page.TagFrequency != nil {
		for tag, n := range page.TagFrequency {
			budget[domain.NormalizeTag(tag)] += n
		}
		return budget
	}
	for _, q := range page.Questions {
		for _, tag := range domain.TagSet(q.Tags) {
			budget[tag]++
		}
	}
	return budget
}

// take consumes one occurrence of tag and reports whether any was left.
func (b tagBudget) take(tag string) bool {
	tag = domain.NormalizeTag(tag)
	if b[tag] <= 0 {
		return false
	}
	b[tag]--
	return true
}
