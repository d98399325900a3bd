package analytics

import (
	"sync/atomic"
	"time"

	"github.com/apex/log"

	"civicsync/metrics"
	"civicsync/models"
)

// Publisher receives every freshly built summary.
type Publisher interface {
	Publish(summary Summary)
}

// State is one snapshot together with the summary derived from it.
type State struct {
	Issues    []models.Issue
	Summary   Summary
	UpdatedAt time.Time
}

// Dashboard keeps the latest snapshot and its summary. OnSnapshot replaces
// both at once, so readers always see a matching pair.
type Dashboard struct {
	state     atomic.Pointer[State]
	publisher Publisher
	now       func() time.Time
}

// DashboardOption configures a Dashboard.
type DashboardOption func(*Dashboard)

// WithClock overrides the wall clock used for missing response timestamps.
func WithClock(now func() time.Time) DashboardOption {
	return func(d *Dashboard) { d.now = now }
}

// WithPublisher sets where rebuilt summaries are pushed.
func WithPublisher(p Publisher) DashboardOption {
	return func(d *Dashboard) { d.publisher = p }
}

// NewDashboard creates a dashboard holding an empty snapshot.
func NewDashboard(opts ...DashboardOption) *Dashboard {
	d := &Dashboard{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	empty := d.build(nil)
	d.state.Store(empty)
	return d
}

// OnSnapshot rebuilds the summary for a full snapshot and publishes it.
func (d *Dashboard) OnSnapshot(issues []models.Issue) {
	st := d.build(issues)
	d.state.Store(st)

	log.WithFields(log.Fields{
		"total":          st.Summary.Total,
		"resolutionRate": st.Summary.ResolutionRate,
		"recurring":      len(st.Summary.RecurringIssues),
	}).Debug("analytics summary rebuilt")

	if d.publisher != nil {
		d.publisher.Publish(st.Summary)
	}
}

// Current returns the latest state. It is never nil.
func (d *Dashboard) Current() *State {
	return d.state.Load()
}

func (d *Dashboard) build(issues []models.Issue) *State {
	start := time.Now()
	now := d.now()
	snapshot := make([]models.Issue, len(issues))
	copy(snapshot, issues)

	st := &State{
		Issues:    snapshot,
		Summary:   Summarize(snapshot, now),
		UpdatedAt: now,
	}

	metrics.SummaryRecomputations.Inc()
	metrics.SummaryDurationSeconds.Observe(time.Since(start).Seconds())
	metrics.SnapshotIssues.Set(float64(len(snapshot)))
	return st
}
