package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"civicsync/analytics"
	"civicsync/export"
	"civicsync/metrics"
	"civicsync/middlewares"
	"civicsync/models"
)

// SnapshotReader is implemented by analytics.Dashboard.
type SnapshotReader interface {
	Current() *analytics.State
}

// ReportGenerator is implemented by export.Reporter.
type ReportGenerator interface {
	Generate(ctx context.Context, summary analytics.Summary, issues []models.Issue) (string, error)
}

// StreamRegistrar is implemented by realtime.Hub.
type StreamRegistrar interface {
	Register(conn *websocket.Conn, userID string)
}

// AnalyticsController serves the policy dashboard.
type AnalyticsController struct {
	dashboard SnapshotReader
	reporter  ReportGenerator
	streams   StreamRegistrar
	upgrader  websocket.Upgrader
	now       func() time.Time
}

// NewAnalyticsController wires the dashboard handlers. Websocket upgrades are
// accepted from allowedOrigins only; an empty list allows any origin.
func NewAnalyticsController(dashboard SnapshotReader, reporter ReportGenerator, streams StreamRegistrar, allowedOrigins []string) *AnalyticsController {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &AnalyticsController{
		dashboard: dashboard,
		reporter:  reporter,
		streams:   streams,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		now: time.Now,
	}
}

// GetSummary returns the summary of the latest snapshot.
func (ac *AnalyticsController) GetSummary(c *gin.Context) {
	state := ac.dashboard.Current()
	c.JSON(http.StatusOK, gin.H{
		"summary":   state.Summary,
		"updatedAt": state.UpdatedAt,
	})
}

// ExportCSV downloads the latest snapshot as CSV.
func (ac *AnalyticsController) ExportCSV(c *gin.Context) {
	state := ac.dashboard.Current()

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, state.Issues); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			metrics.ExportsTotal.WithLabelValues("csv", "empty").Inc()
			c.Status(http.StatusNoContent)
			return
		}
		metrics.ExportsTotal.WithLabelValues("csv", "error").Inc()
		log.WithError(err).Error("csv export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export issues"})
		return
	}

	metrics.ExportsTotal.WithLabelValues("csv", "ok").Inc()
	attachment(c, export.CSVFilename(ac.now()))
	c.Data(http.StatusOK, export.CSVContentType, buf.Bytes())
}

// GenerateReport asks the text generation service for a narrative report on
// the latest snapshot.
func (ac *AnalyticsController) GenerateReport(c *gin.Context) {
	state := ac.dashboard.Current()

	report, err := ac.reporter.Generate(c.Request.Context(), state.Summary, state.Issues)
	switch {
	case err == nil:
	case errors.Is(err, export.ErrNoReportData):
		metrics.ExportsTotal.WithLabelValues("report", "empty").Inc()
		c.Status(http.StatusNoContent)
		return
	case errors.Is(err, export.ErrAPIKeyRequired):
		metrics.ExportsTotal.WithLabelValues("report", "unconfigured").Inc()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	default:
		metrics.ExportsTotal.WithLabelValues("report", "error").Inc()
		log.WithError(err).Error("report generation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	metrics.ExportsTotal.WithLabelValues("report", "ok").Inc()
	attachment(c, export.ReportFilename(ac.now()))
	c.Data(http.StatusOK, export.ReportContentType+"; charset=utf-8", []byte(report))
}

// Stream upgrades to a websocket that receives every new summary.
func (ac *AnalyticsController) Stream(c *gin.Context) {
	conn, err := ac.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	ac.streams.Register(conn, c.GetString(middlewares.UserIDKey))
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
}
