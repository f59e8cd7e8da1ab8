package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"QuestionScanner/internal/app"
	"QuestionScanner/internal/domain"
)

const maxTitleWidth = 60

func renderTags(w io.Writer, tags []domain.Tag) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Tag"})
	for _, tag := range tags {
		t.AppendRow(table.Row{int64(tag.ID), tag.Title})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d tags", len(tags))})
	t.Render()
}

func renderQuestions(w io.Writer, questions []domain.Question) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Source", "Title", "Votes", "Answers", "Views"})
	for _, q := range questions {
		t.AppendRow(table.Row{
			int64(q.ID),
			q.SourceID,
			truncate(q.Title, maxTitleWidth),
			humanize.Comma(q.Votes),
			humanize.Comma(q.Answers),
			humanize.Comma(q.Views),
		})
	}
	t.Render()
}

func renderCandidates(w io.Writer, target domain.Target, page domain.ExtractedPage) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("%s", target.URL)
	t.AppendHeader(table.Row{"Source", "Title", "Votes", "Answers", "Views", "Tags"})
	for _, q := range page.Questions {
		t.AppendRow(table.Row{
			q.SourceID,
			truncate(q.Title, maxTitleWidth),
			humanize.Comma(q.Votes),
			humanize.Comma(q.Answers),
			humanize.Comma(q.Views),
			strings.Join(q.Tags, ", "),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d candidates, %d skipped", len(page.Questions), page.Skipped)})
	t.Render()
}

func renderSummary(w io.Writer, s app.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("run %s", s.RunID)
	t.AppendRows([]table.Row{
		{"topic", s.Topic},
		{"url", s.URL},
		{"candidates", s.Candidates},
		{"malformed blocks", s.SkippedBlocks},
		{"questions created", s.Created},
		{"questions known", s.Duplicates},
		{"questions failed", s.FailedQuestions},
		{"tags resolved", s.TagsResolved},
		{"edges created", s.EdgesCreated},
		{"edges existing", s.EdgesExisting},
		{"edges failed", s.EdgesFailed + s.TagsFailed},
		{"duration", s.Duration().Round(time.Millisecond).String()},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"store", fmt.Sprintf("%s questions, %s tags, %s edges",
		humanize.Comma(int64(s.Totals.Questions)),
		humanize.Comma(int64(s.Totals.Tags)),
		humanize.Comma(int64(s.Totals.Edges)),
	)})
	t.Render()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
