// Package preview renders the pre-execution snapshot the way a
// script-less agent would consume it: main-content extraction via the
// Mozilla Readability algorithm, then Markdown conversion. The preview
// makes the score tangible by showing exactly what an agent can read
// before any script runs.
package preview

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/agentlens/models"
)

// minContentLength is the minimum extracted text length (in characters)
// for readability output to be considered valid. Below this the
// algorithm likely failed to locate main content and the raw markup is
// used instead.
const minContentLength = 50

// Builder converts raw snapshots into agent-view previews. The Markdown
// converter is created once and reused; it is goroutine-safe.
type Builder struct {
	conv *converter.Converter
}

// NewBuilder configures the Markdown converter:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta,
//     link, input, textarea, and HTML comments.
//   - commonmark plugin: standard Markdown rendering.
//   - table plugin with minimal cell padding, so tabular data survives
//     conversion without column-alignment bloat.
func NewBuilder() *Builder {
	return &Builder{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Build extracts main content from the raw snapshot and converts it to
// Markdown. It never fails: when readability cannot find an article, or
// Markdown conversion errors, the preview degrades to the closest
// usable form and Extracted reports false.
func (b *Builder) Build(rawMarkup, sourceURL string) models.RawPreview {
	article, extracted := extract(rawMarkup, sourceURL)

	md, err := b.conv.ConvertString(article.Content, converter.WithDomain(sourceURL))
	if err != nil {
		slog.Warn("preview: markdown conversion failed, using plain text",
			"url", sourceURL, "error", err,
		)
		md = strings.TrimSpace(article.TextContent)
	}

	return models.RawPreview{
		Title:      article.Title,
		Markdown:   md,
		TextLength: len(strings.TrimSpace(article.TextContent)),
		Extracted:  extracted,
	}
}

// extract runs readability over the raw snapshot. Fallbacks mirror the
// never-fail contract: invalid URL, extraction error, or too little
// extracted text all yield the raw markup wrapped as an article.
func extract(rawMarkup, sourceURL string) (readability.Article, bool) {
	parsed, err := nurl.Parse(sourceURL)
	if err != nil {
		slog.Warn("preview: invalid source URL, using raw markup",
			"url", sourceURL, "error", err,
		)
		return rawArticle(rawMarkup), false
	}

	article, err := readability.FromReader(strings.NewReader(rawMarkup), parsed)
	if err != nil {
		slog.Warn("preview: readability extraction failed, using raw markup",
			"url", sourceURL, "error", err,
		)
		return rawArticle(rawMarkup), false
	}

	if len(strings.TrimSpace(article.TextContent)) < minContentLength {
		// A shell page legitimately lands here: there is simply nothing
		// to extract before script execution.
		return rawArticle(rawMarkup), false
	}

	return article, true
}

func rawArticle(rawMarkup string) readability.Article {
	return readability.Article{
		Content:     rawMarkup,
		TextContent: rawMarkup,
	}
}
