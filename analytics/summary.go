// Package analytics turns issue snapshots into dashboard summaries.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"civicsync/models"
)

const (
	maxRecurring = 10
	msPerDay     = float64(24 * time.Hour / time.Millisecond)
)

// RecurringIssue is a location/category pair reported more than once.
type RecurringIssue struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summary is the aggregate view of one snapshot. It is rebuilt from scratch
// for every snapshot and never patched.
type Summary struct {
	Total             int              `json:"total"`
	ByStatus          map[string]int   `json:"byStatus"`
	ByCategory        map[string]int   `json:"byCategory"`
	ByLocation        map[string]int   `json:"byLocation"`
	AvgResolutionTime int              `json:"avgResolutionTime"`
	ResolutionRate    string           `json:"resolutionRate"`
	RecurringIssues   []RecurringIssue `json:"recurringIssues"`
}

// Summarize aggregates a snapshot. now stands in for a missing response
// timestamp.
func Summarize(issues []models.Issue, now time.Time) Summary {
	return SummarizeRecords(NormalizeAll(issues), now)
}

// SummarizeRecords aggregates already-normalized records in a single pass.
func SummarizeRecords(records []Record, now time.Time) Summary {
	s := Summary{
		Total:           len(records),
		ByStatus:        make(map[string]int),
		ByCategory:      make(map[string]int),
		ByLocation:      make(map[string]int),
		RecurringIssues: []RecurringIssue{},
	}

	var (
		resolutionDays []int
		recurring      = make(map[string]int)
		keyOrder       []string
	)

	for _, r := range records {
		s.ByStatus[r.Status]++
		s.ByCategory[r.Category]++
		s.ByLocation[r.Location]++

		if r.HasResponse && !r.CreatedAt.IsZero() {
			responded := r.RespondedAt
			if responded.IsZero() {
				responded = now
			}
			resolutionDays = append(resolutionDays, daysBetween(r.CreatedAt, responded))
		}

		if _, seen := recurring[r.RecurrenceKey]; !seen {
			keyOrder = append(keyOrder, r.RecurrenceKey)
		}
		recurring[r.RecurrenceKey]++
	}

	s.AvgResolutionTime = roundedMean(resolutionDays)
	s.ResolutionRate = resolutionRate(s.ByStatus[string(models.Resolved)], s.Total)
	s.RecurringIssues = topRecurring(recurring, keyOrder)
	return s
}

func daysBetween(from, to time.Time) int {
	ms := float64(to.Sub(from).Milliseconds())
	return int(math.Floor(ms / msPerDay))
}

// roundedMean rounds half up, matching the dashboard's historical numbers.
func roundedMean(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(math.Floor(float64(sum)/float64(len(values)) + 0.5))
}

// resolutionRate is a percentage with one decimal, or "0" for an empty snapshot.
func resolutionRate(resolved, total int) string {
	if total == 0 {
		return "0"
	}
	return decimal.NewFromInt(int64(resolved)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		StringFixed(1)
}

func topRecurring(counts map[string]int, order []string) []RecurringIssue {
	out := []RecurringIssue{}
	for _, key := range order {
		if n := counts[key]; n > 1 {
			out = append(out, RecurringIssue{Key: key, Count: n})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > maxRecurring {
		out = out[:maxRecurring]
	}
	return out
}
