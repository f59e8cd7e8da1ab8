package domain

import "time"

// RunReport accumulates what happened during one ingestion run.
type RunReport struct {
	RunID      string
	Topic      string
	URL        string
	StartedAt  time.Time
	FinishedAt time.Time

	Candidates      int
	SkippedBlocks   int
	Created         int
	Duplicates      int
	FailedQuestions int

	TagsResolved       int
	TagsFailed         int
	EdgesCreated       int
	EdgesExisting      int
	EdgesSkippedBudget int
	EdgesFailed        int
}

// Duration reports how long the run took.
func (r RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Skipped is the total number of items dropped for any reason.
func (r RunReport) Skipped() int {
	return r.SkippedBlocks + r.FailedQuestions + r.TagsFailed + r.EdgesFailed + r.EdgesSkippedBudget
}
