package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"github.com/use-agent/agentlens/models"
)

// Row is the flattened, scalar-only form of a report, one line per
// target, for spreadsheets and batch summaries. Multi-engine values are
// averaged over countable runs.
type Row struct {
	URL                string
	Status             string
	Score              float64
	Confidence         float64
	Consistency        string
	AvgRawLength       int
	AvgSettledLength   int
	AvgDiffPercent     float64
	MissingCategories  []string
	PurchaseBroken     bool
	Frameworks         []string
	TopRecommendation  string
}

// BuildRow flattens a report. Failed reports still produce a row with
// the error in Status, so batch output always has one line per target.
func BuildRow(r *models.Report) Row {
	row := Row{
		URL:         r.Target.URL,
		Status:      "ok",
		Score:       r.Score.Value,
		Confidence:  r.Score.Confidence,
		Consistency: string(r.Score.Consistency),
		Frameworks:  r.Signals.Frameworks,
	}

	if r.Error != nil {
		row.Status = r.Error.Code
	} else if r.Score.Error != nil {
		row.Status = r.Score.Error.Code
	}

	var rawSum, settledSum int
	var diffSum float64
	var n int
	for _, run := range r.Runs {
		if !run.Countable() {
			continue
		}
		rawSum += run.RawLength
		settledSum += run.SettledLength
		diffSum += run.DiffPercent
		n++
	}
	if n > 0 {
		row.AvgRawLength = rawSum / n
		row.AvgSettledLength = settledSum / n
		row.AvgDiffPercent = diffSum / float64(n)
	}

	for _, cat := range models.Categories {
		if r.Findings.Get(cat).Missing > 0 {
			row.MissingCategories = append(row.MissingCategories, string(cat))
		}
	}
	row.PurchaseBroken = r.Signals.PurchaseControlMissing

	for _, rec := range r.Recommendations {
		row.TopRecommendation = rec.Message
		break
	}
	return row
}

// RowHeader is the column order shared by every tabular output of Row.
var RowHeader = []string{
	"URL", "Status", "Score", "Confidence", "Consistency",
	"Raw chars", "Settled chars", "Diff %", "Missing categories",
	"Purchase broken", "Frameworks", "Top recommendation",
}

// Strings renders the row in RowHeader order.
func (r Row) Strings() []string {
	return []string{
		r.URL,
		r.Status,
		fmt.Sprintf("%.0f", r.Score),
		fmt.Sprintf("%.0f", r.Confidence),
		r.Consistency,
		strconv.Itoa(r.AvgRawLength),
		strconv.Itoa(r.AvgSettledLength),
		fmt.Sprintf("%+.1f", r.AvgDiffPercent),
		orDash(strings.Join(r.MissingCategories, ", ")),
		strconv.FormatBool(r.PurchaseBroken),
		orDash(strings.Join(r.Frameworks, ", ")),
		orDash(truncate(r.TopRecommendation, 80)),
	}
}

// WriteBatchSummary renders one summary table over all rows.
func WriteBatchSummary(output io.Writer, rows []Row) error {
	md := markdown.NewMarkdown(output)
	md.H1("Batch Analysis Summary")
	md.PlainText("")
	md.PlainTextf("%d target(s) analyzed.", len(rows))
	md.PlainText("")

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		table = append(table, r.Strings())
	}
	md.Table(markdown.TableSet{Header: RowHeader, Rows: table})
	md.PlainText("")
	return md.Build()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
