// Package report renders analysis reports for humans: a Markdown
// document per target and a flattened row form for batch summaries.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/use-agent/agentlens/models"
)

// MarkdownWriter renders one Report as a standalone Markdown document.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that writes to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders the full report and returns the rendered length.
func (w *MarkdownWriter) Write(r *models.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, r)
	w.writeScore(md, r)
	w.writeRuns(md, r)
	w.writeFindings(md, r)
	w.writeRecommendations(md, r)
	w.writePreview(md, r)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, r *models.Report) {
	md.H1("Agent Accessibility Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Target", "`" + r.Target.URL + "`"},
			{"Mode", string(r.Target.Mode)},
			{"Generated", r.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Engines", strconv.Itoa(len(r.Runs))},
			{"Status", statusText(r)},
		},
	})
	md.PlainText("")
}

func statusText(r *models.Report) string {
	if r.Error != nil {
		return "❌ Failed - " + r.Error.Message
	}
	for _, run := range r.Runs {
		if !run.Countable() {
			return "⚠️ Partial (some engines did not complete)"
		}
	}
	return "✅ Complete"
}

func (w *MarkdownWriter) writeScore(md *markdown.Markdown, r *models.Report) {
	md.H2("Accessibility Score")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Score", fmt.Sprintf("**%.0f / 100**", r.Score.Value)},
			{"Confidence", fmt.Sprintf("%.0f%%", r.Score.Confidence)},
			{"Cross-engine consistency", string(r.Score.Consistency)},
		},
	})
	md.PlainText("")

	switch {
	case r.Score.Error != nil:
		md.Cautionf("No engine produced an analyzable run; the score is an explicit failure marker, not a measurement.")
	case r.Score.Value < 30:
		md.Cautionf("Score %.0f: the page is effectively invisible to script-less agents.", r.Score.Value)
	case r.Score.Value < 70:
		md.Warningf("Score %.0f: significant content only exists after script execution.", r.Score.Value)
	default:
		md.Tip("The page serves most of its content without script execution.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeRuns(md *markdown.Markdown, r *models.Report) {
	md.H2("Engine Runs")
	md.PlainText("")

	rows := make([][]string, 0, len(r.Runs))
	for _, run := range r.Runs {
		rows = append(rows, []string{
			run.EngineID,
			string(run.Status),
			strconv.Itoa(run.RawLength),
			strconv.Itoa(run.SettledLength),
			fmt.Sprintf("%+.1f%%", run.DiffPercent),
			strconv.Itoa(run.StructuralDistance),
			fmt.Sprintf("%dms", run.Performance.TotalMillis),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Engine", "Status", "Raw chars", "Settled chars", "Content diff", "DOM distance", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, run := range r.Runs {
		if run.Error != nil {
			md.PlainTextf("- `%s`: %s — %s", run.EngineID, run.Error.Code, run.Error.Message)
		}
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, r *models.Report) {
	md.H2("Content Findings")
	md.PlainText("")

	rows := make([][]string, 0, len(models.Categories))
	for _, cat := range models.Categories {
		f := r.Findings.Get(cat)
		if f.Total == 0 {
			continue
		}
		example := "-"
		if len(f.Examples) > 0 {
			example = truncate(f.Examples[0], 50)
		}
		rows = append(rows, []string{
			string(cat),
			strconv.Itoa(f.Total),
			strconv.Itoa(f.Missing),
			example,
		})
	}
	if len(rows) == 0 {
		md.PlainText("No classifiable content units were found on the settled page.")
		md.PlainText("")
		return
	}

	md.Table(markdown.TableSet{
		Header: []string{"Category", "Total", "Missing pre-execution", "Example"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeSignals(md, r)
}

func (w *MarkdownWriter) writeSignals(md *markdown.Markdown, r *models.Report) {
	var notes []string
	s := r.Signals

	if s.Pricing.Currency != "" {
		notes = append(notes, fmt.Sprintf("Prices from %s%.2f to %s%.2f",
			s.Pricing.Currency, s.Pricing.MinPrice, s.Pricing.Currency, s.Pricing.MaxPrice))
	}
	if s.Reviews.RatingCount > 0 {
		notes = append(notes, fmt.Sprintf("%d rating(s), average %.1f/5",
			s.Reviews.RatingCount, s.Reviews.AverageRating))
	}
	if s.PurchaseControlMissing {
		notes = append(notes, "Purchase controls exist only after script execution")
	}
	if len(s.Frameworks) > 0 {
		notes = append(notes, "Frameworks: "+strings.Join(s.Frameworks, ", "))
	}
	if len(notes) == 0 {
		return
	}

	md.H3("Signals")
	md.PlainText("")
	md.BulletList(notes...)
	md.PlainText("")
}

func (w *MarkdownWriter) writeRecommendations(md *markdown.Markdown, r *models.Report) {
	md.H2("Recommendations")
	md.PlainText("")

	if len(r.Recommendations) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(r.Recommendations))
	for _, rec := range r.Recommendations {
		rows = append(rows, []string{
			severityBadge(rec.Severity),
			rec.Message,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Recommendation"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writePreview(md *markdown.Markdown, r *models.Report) {
	if r.Preview == nil {
		return
	}

	md.H2("Pre-Execution Content Preview")
	md.PlainText("")
	if !r.Preview.Extracted {
		md.PlainText("Readability could not locate main content in the pre-execution document; this is what a script-less agent is left with.")
		md.PlainText("")
	}
	md.Details(
		fmt.Sprintf("Agent view (%d chars of text)", r.Preview.TextLength),
		"\n"+truncate(r.Preview.Markdown, 4000)+"\n",
	)
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by agentlens*")
}

func severityBadge(s models.Severity) string {
	switch s {
	case models.SeverityCritical:
		return "🔴 critical"
	case models.SeverityHigh:
		return "🟠 high"
	case models.SeverityMedium:
		return "🟡 medium"
	case models.SeverityLow:
		return "🔵 low"
	default:
		return "⚪ info"
	}
}

// truncate cuts on rune boundaries so multibyte content never yields
// invalid UTF-8 in the rendered report.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
