package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"civicsync/analytics"
	"civicsync/config"
	"civicsync/export"
	"civicsync/feed"
	"civicsync/models"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write analytics artifacts from the current issue data",
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Export every issue as a CSV table",
	RunE: func(cmd *cobra.Command, args []string) error {
		issues, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		return writeCSVArtifact(exportOut, issues, time.Now())
	},
}

var exportReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a narrative policy report from the current issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		issues, err := loadSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		reporter := export.NewReporter(export.ClaudeFactory(
			func() string { return cfg.AnthropicAPIKey },
			cfg.ReportModel,
		))
		return writeReportArtifact(cmd.Context(), reporter, exportOut, issues, time.Now())
	},
}

func init() {
	exportCmd.PersistentFlags().StringVarP(&exportOut, "out", "o", ".", "Directory to write the artifact to")
	exportCmd.AddCommand(exportCSVCmd)
	exportCmd.AddCommand(exportReportCmd)
}

func loadSnapshot(ctx context.Context) ([]models.Issue, error) {
	db, err := config.ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	defer config.DisconnectDB(context.Background())

	return feed.NewMongoSource(db.Collection("issues"), cfg.FeedPollInterval).Snapshot(ctx)
}

func writeCSVArtifact(dir string, issues []models.Issue, now time.Time) error {
	var buf bytes.Buffer
	err := export.WriteCSV(&buf, issues)
	if errors.Is(err, export.ErrNothingToExport) {
		log.Warn("no issues to export")
		return nil
	}
	if err != nil {
		return err
	}

	path := filepath.Join(dir, export.CSVFilename(now))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	log.WithField("path", path).Infof("exported %d issues", len(issues))
	return nil
}

type reportGenerator interface {
	Generate(ctx context.Context, summary analytics.Summary, issues []models.Issue) (string, error)
}

func writeReportArtifact(ctx context.Context, reporter reportGenerator, dir string, issues []models.Issue, now time.Time) error {
	report, err := reporter.Generate(ctx, analytics.Summarize(issues, now), issues)
	if errors.Is(err, export.ErrNoReportData) {
		log.Warn("no issues to report on")
		return nil
	}
	if err != nil {
		return err
	}

	path := filepath.Join(dir, export.ReportFilename(now))
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.WithField("path", path).Info("report written")
	return nil
}
