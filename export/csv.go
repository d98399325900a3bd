//go:generate mockgen -destination=mocks/mock_generator.go -package=mocks civicsync/export TextGenerator

// Package export renders issue snapshots into downloadable artifacts: a CSV
// table and a generated narrative report.
package export

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"civicsync/models"
)

// CSVContentType is the MIME type of the tabular export.
const CSVContentType = "text/csv"

// ErrNothingToExport is returned for an empty snapshot. No bytes are written.
var ErrNothingToExport = errors.New("no data to export")

var csvHeader = []string{
	"ID",
	"Title",
	"Category",
	"Location",
	"Status",
	"Upvotes",
	"Created At",
	"Resolved At",
}

// CSVFilename names the export after the UTC date of now.
func CSVFilename(now time.Time) string {
	return "civic-issues-" + now.UTC().Format("2006-01-02") + ".csv"
}

// WriteCSV writes one header row and one row per issue, in input order. Every
// field is quoted and embedded quotes are doubled.
func WriteCSV(w io.Writer, issues []models.Issue) error {
	if len(issues) == 0 {
		return ErrNothingToExport
	}

	bw := bufio.NewWriter(w)
	if err := writeRow(bw, csvHeader); err != nil {
		return err
	}
	for _, issue := range issues {
		if err := writeRow(bw, csvRow(issue)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func csvRow(issue models.Issue) []string {
	var category, location, status, resolvedAt string
	if issue.Category != nil {
		category = string(*issue.Category)
	}
	if issue.Location != nil {
		location = *issue.Location
	}
	if issue.Status != nil {
		status = string(*issue.Status)
	}
	if issue.Response != nil {
		resolvedAt = issue.Response.RespondedAt
	}

	id := ""
	if !issue.ID.IsZero() {
		id = issue.ID.Hex()
	}

	return []string{
		id,
		issue.Title,
		category,
		location,
		status,
		strconv.Itoa(issue.Upvotes),
		issue.CreatedAt.ISOString(),
		resolvedAt,
	}
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quote(field)); err != nil {
			return err
		}
	}
	_, err := w.WriteString("\n")
	return err
}

func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
