// internal/render/render.go
package render

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"hosting-assessment/internal/models"
	"hosting-assessment/internal/scoring"
	"hosting-assessment/pkg/catalog"
)

// Renderer turns scoring results and records into reports. Question prompts come from
// the catalog the result was scored against.
type Renderer struct {
	catalog  *catalog.Catalog
	markdown goldmark.Markdown
}

func New(cat *catalog.Catalog) *Renderer {
	return &Renderer{
		catalog:  cat,
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

var (
	defaultOnce     sync.Once
	defaultRenderer *Renderer
)

// Default renders against the embedded catalog.
func Default() *Renderer {
	defaultOnce.Do(func() {
		defaultRenderer = New(catalog.Default())
	})
	return defaultRenderer
}

func Text(result *scoring.Result) string          { return Default().Text(result) }
func Markdown(result *scoring.Result) string      { return Default().Markdown(result) }
func HTML(result *scoring.Result) (string, error) { return Default().HTML(result) }

func RecordHTML(record *models.Assessment) (string, error) {
	return Default().RecordHTML(record)
}

// Text is the plain report a user saves to a file.
func (r *Renderer) Text(result *scoring.Result) string {
	var b strings.Builder
	b.WriteString("Hosting Recommendation Report\n\n")

	b.WriteString("Summary of your answers:\n")
	for _, q := range r.catalog.Questions(catalog.GroupRequirements) {
		fmt.Fprintf(&b, "- %s %s\n", q.Prompt, answerFor(result, q.Key))
	}

	if result.MigrationSource == scoring.MigrationDerived {
		b.WriteString("\nMigration Complexity Factors:\n")
		for _, q := range r.catalog.Questions(catalog.GroupMigrationFactors) {
			fmt.Fprintf(&b, "- %s %s\n", q.Prompt, result.Answers[q.Key])
		}
	}

	b.WriteString("\nCloud Readiness Questions:\n")
	for _, q := range r.catalog.Questions(catalog.GroupReadiness) {
		fmt.Fprintf(&b, "- %s %s\n", q.Prompt, result.Answers[q.Key])
	}
	fmt.Fprintf(&b, "\nApplication Age: %s\n", result.AppAge)

	fmt.Fprintf(&b, "\nScores: %s\n", ScoreLine(result.Scores))
	fmt.Fprintf(&b, "\nSystem Recommendation: %s\n", result.Recommendation.Label())

	if len(result.Explanations) > 0 {
		b.WriteString("\nReasoning for recommendation:\n")
		for _, reason := range result.Explanations {
			fmt.Fprintf(&b, "- %s\n", reason)
		}
	}

	fmt.Fprintf(&b, "\nFinal Recommendation: %s\n", result.Recommendation.Label())
	return b.String()
}

// ScoreLine formats scores in canonical platform order, e.g. "aws=3, on_prem_cloud=8, physical=3".
func ScoreLine(scores scoring.ScoreVector) string {
	parts := make([]string, 0, len(scoring.Platforms))
	for _, p := range scoring.Platforms {
		parts = append(parts, fmt.Sprintf("%s=%d", p, scores.Get(p)))
	}
	return strings.Join(parts, ", ")
}

func (r *Renderer) Markdown(result *scoring.Result) string {
	var b strings.Builder
	r.writeResultMarkdown(&b, result, "#")
	return b.String()
}

// HTML converts the markdown report into an HTML fragment. Raw HTML in answers is
// escaped, not passed through.
func (r *Renderer) HTML(result *scoring.Result) (string, error) {
	return r.toHTML(r.Markdown(result))
}

// RecordHTML renders the review page for a stored assessment.
func (r *Renderer) RecordHTML(record *models.Assessment) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Assessment %s\n\n", escape(record.ID))

	b.WriteString("| Field | Value |\n|---|---|\n")
	row := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&b, "| %s | %s |\n", k, escape(v))
		}
	}
	row("Status", strings.ToUpper(string(record.Status)))
	row("Agency", record.AgencyInfo.AgencyName)
	row("Contact", record.AgencyInfo.ContactName)
	row("Email", record.AgencyInfo.ContactEmail)
	row("Department", record.AgencyInfo.Department)
	row("Submitted", record.SubmittedAt.UTC().Format(time.RFC3339))
	if record.ReviewedAt != nil {
		row("Reviewed", record.ReviewedAt.UTC().Format(time.RFC3339))
	}
	b.WriteString("\n")

	if record.ReviewNotes != "" {
		fmt.Fprintf(&b, "## Review Notes\n\n%s\n\n", escape(record.ReviewNotes))
	}
	if record.ScoringResult != nil {
		r.writeResultMarkdown(&b, record.ScoringResult, "##")
	}
	return r.toHTML(b.String())
}

func (r *Renderer) writeResultMarkdown(b *strings.Builder, result *scoring.Result, heading string) {
	fmt.Fprintf(b, "%s Hosting Recommendation: %s\n\n", heading, result.Recommendation.Title())

	b.WriteString("| Platform | Score |\n|---|---|\n")
	for _, p := range scoring.Platforms {
		fmt.Fprintf(b, "| %s | %d |\n", p.Title(), result.Scores.Get(p))
	}
	b.WriteString("\n")

	if len(result.Explanations) > 0 {
		fmt.Fprintf(b, "%s# Reasoning\n\n", heading)
		for _, reason := range result.Explanations {
			fmt.Fprintf(b, "- %s\n", escape(reason))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "%s# Answers\n\n", heading)
	b.WriteString("| Question | Answer |\n|---|---|\n")
	for _, q := range r.catalog.All() {
		v := answerFor(result, q.Key)
		if v == "" {
			continue
		}
		fmt.Fprintf(b, "| %s | %s |\n", escape(q.Prompt), escape(v))
	}
	fmt.Fprintf(b, "| Application Age | %s |\n\n", escape(result.AppAge))
}

func (r *Renderer) toHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// answerFor shows the derived migration level when the user answered the factors instead.
func answerFor(result *scoring.Result, key string) string {
	if key == scoring.KeyMigration && result.MigrationSource == scoring.MigrationDerived {
		return result.Migration + " (derived)"
	}
	return result.Answers[key]
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "|", `\|`, "#", `\#`, "\n", " ",
)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
