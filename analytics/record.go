package analytics

import (
	"time"

	"civicsync/models"
)

// absentPart stands in for a missing field inside a recurrence key. Issues
// with a missing location or category land in their own bucket instead of
// being merged with the defaulted values.
const absentPart = "undefined"

// Record is an issue with every default substituted, ready for aggregation.
type Record struct {
	Status        string
	Category      string
	Location      string
	RecurrenceKey string

	CreatedAt   time.Time
	HasResponse bool
	// RespondedAt is zero when the response has no usable timestamp.
	RespondedAt time.Time
}

// Normalize applies the default substitutions to a raw issue.
func Normalize(issue models.Issue) Record {
	r := Record{
		Status:        string(issue.StatusOrDefault()),
		Category:      string(issue.CategoryOrDefault()),
		Location:      issue.LocationOrDefault(),
		RecurrenceKey: RecurrenceKey(issue),
		CreatedAt:     issue.CreatedAt.ToTime(),
		HasResponse:   issue.Response != nil,
	}
	if issue.Response != nil && issue.Response.RespondedAt != "" {
		if t, err := models.ParseTime(issue.Response.RespondedAt); err == nil {
			r.RespondedAt = t
		}
	}
	return r
}

// NormalizeAll normalizes a snapshot, preserving order.
func NormalizeAll(issues []models.Issue) []Record {
	out := make([]Record, len(issues))
	for i, issue := range issues {
		out[i] = Normalize(issue)
	}
	return out
}

// RecurrenceKey joins the raw location and category with an underscore.
func RecurrenceKey(issue models.Issue) string {
	loc := absentPart
	if issue.Location != nil {
		loc = *issue.Location
	}
	cat := absentPart
	if issue.Category != nil {
		cat = string(*issue.Category)
	}
	return loc + "_" + cat
}
