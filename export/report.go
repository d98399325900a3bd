package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"
	"time"

	"civicsync/analytics"
	"civicsync/models"
)

// ReportContentType is the MIME type of the narrative report.
const ReportContentType = "text/plain"

var (
	// ErrAPIKeyRequired means no credential is configured for the text
	// generation service. It is raised before any network call.
	ErrAPIKeyRequired = errors.New("report generation API key not configured")

	// ErrNoReportData is returned for an empty snapshot.
	ErrNoReportData = errors.New("no data available for report generation")
)

// TextGenerator turns a prompt into generated text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFactory builds a TextGenerator from the current configuration.
type GeneratorFactory func() (TextGenerator, error)

// Reporter produces the narrative policy report.
type Reporter struct {
	newGenerator GeneratorFactory
}

// NewReporter returns a Reporter that obtains its generator from factory on
// every call, so credential changes are picked up without a restart.
func NewReporter(factory GeneratorFactory) *Reporter {
	return &Reporter{newGenerator: factory}
}

// ReportFilename names the report after the UTC date of now.
func ReportFilename(now time.Time) string {
	return "civic-issue-report-" + now.UTC().Format("2006-01-02") + ".txt"
}

// Generate builds the prompt for summary and returns the generated report.
// Failures from the generator are returned wrapped, never retried.
func (r *Reporter) Generate(ctx context.Context, summary analytics.Summary, issues []models.Issue) (string, error) {
	if len(issues) == 0 || summary.Total == 0 {
		return "", ErrNoReportData
	}

	gen, err := r.newGenerator()
	if err != nil {
		return "", err
	}

	prompt, err := BuildPrompt(summary)
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}

	report, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}
	return report, nil
}

type promptData struct {
	Total             int
	ResolutionRate    string
	AvgResolutionTime int
	ByStatus          string
	ByCategory        string
	Recurring         []analytics.RecurringIssue
}

var promptTemplate = template.Must(template.New("report").Parse(reportPromptTemplate))

// BuildPrompt renders the report prompt for a summary.
func BuildPrompt(summary analytics.Summary) (string, error) {
	byStatus, err := json.MarshalIndent(summary.ByStatus, "", "  ")
	if err != nil {
		return "", err
	}
	byCategory, err := json.MarshalIndent(summary.ByCategory, "", "  ")
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = promptTemplate.Execute(&buf, promptData{
		Total:             summary.Total,
		ResolutionRate:    summary.ResolutionRate,
		AvgResolutionTime: summary.AvgResolutionTime,
		ByStatus:          string(byStatus),
		ByCategory:        string(byCategory),
		Recurring:         summary.RecurringIssues,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportPromptTemplate = `Analyze the following civic issue data and generate a comprehensive policy intelligence report:

Total Issues: {{.Total}}
Resolution Rate: {{.ResolutionRate}}%
Average Resolution Time: {{.AvgResolutionTime}} days

Status Breakdown:
{{.ByStatus}}

Category Breakdown:
{{.ByCategory}}

Top Recurring Issues:
{{range .Recurring}}{{.Key}}: {{.Count}} times
{{end}}
Generate a report with:
1. Executive Summary
2. Key Findings
3. Top Problem Areas
4. Recommendations for Policy Makers
5. Trends and Patterns`
