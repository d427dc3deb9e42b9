package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// RunReport is the durable summary of one completed pipeline run.
type RunReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Indexed    int       `json:"indexed"`
	Created    int       `json:"links_created"`
	Filtered   int       `json:"links_filtered"`
	Skipped    int       `json:"skipped"`
	Warnings   int       `json:"warnings"`
}

// RunRepository records completed runs; the latest row doubles as the
// durable "last run" timestamp.
type RunRepository interface {
	Record(ctx context.Context, report RunReport) error
	Latest(ctx context.Context) (*RunReport, error)
}

// ReportUploader pushes a rendered run report to external storage.
type ReportUploader interface {
	UploadReport(ctx context.Context, key string, body []byte) error
}

// Reporter persists run summaries and optionally exports them. Export
// failures are operator-visible but never fail the run.
type Reporter struct {
	runs     RunRepository
	uploader ReportUploader
}

// NewReporter creates a Reporter; uploader may be nil.
func NewReporter(runs RunRepository, uploader ReportUploader) *Reporter {
	return &Reporter{runs: runs, uploader: uploader}
}

// Complete records the run and exports the report when an uploader is
// configured.
func (r *Reporter) Complete(ctx context.Context, report RunReport) error {
	if err := r.runs.Record(ctx, report); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	if r.uploader == nil {
		return nil
	}
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	key := fmt.Sprintf("runs/%s/%s.json", report.FinishedAt.UTC().Format("2006-01-02"), report.RunID)
	if err := r.uploader.UploadReport(ctx, key, body); err != nil {
		log.Printf("reporter: report upload failed (run is still recorded): %v", err)
	}
	return nil
}
