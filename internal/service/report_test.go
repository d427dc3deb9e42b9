package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleReport() RunReport {
	return RunReport{
		RunID:      "a6f0b7ce-0000-4000-8000-000000000001",
		StartedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 3, 1, 10, 45, 0, 0, time.UTC),
		Indexed:    120,
		Created:    34,
		Filtered:   5,
		Skipped:    11,
		Warnings:   1,
	}
}

func TestReporter_Complete_RecordsWithoutUploader(t *testing.T) {
	runs := new(MockRunRepository)
	runs.On("Record", mock.Anything, sampleReport()).Return(nil)

	r := NewReporter(runs, nil)
	require.NoError(t, r.Complete(context.Background(), sampleReport()))
	runs.AssertExpectations(t)
}

func TestReporter_Complete_UploadsDatedKey(t *testing.T) {
	runs := new(MockRunRepository)
	uploader := new(MockReportUploader)
	report := sampleReport()

	runs.On("Record", mock.Anything, report).Return(nil)
	uploader.On("UploadReport", mock.Anything,
		"runs/2026-03-01/"+report.RunID+".json",
		mock.MatchedBy(func(body []byte) bool {
			var decoded RunReport
			return json.Unmarshal(body, &decoded) == nil && decoded.Created == 34
		})).Return(nil)

	r := NewReporter(runs, uploader)
	require.NoError(t, r.Complete(context.Background(), report))
	uploader.AssertExpectations(t)
}

func TestReporter_Complete_UploadFailureDoesNotFailRun(t *testing.T) {
	runs := new(MockRunRepository)
	uploader := new(MockReportUploader)

	runs.On("Record", mock.Anything, mock.Anything).Return(nil)
	uploader.On("UploadReport", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	r := NewReporter(runs, uploader)
	assert.NoError(t, r.Complete(context.Background(), sampleReport()))
}

func TestReporter_Complete_RecordFailureFailsRun(t *testing.T) {
	runs := new(MockRunRepository)
	uploader := new(MockReportUploader)

	runs.On("Record", mock.Anything, mock.Anything).Return(assert.AnError)

	r := NewReporter(runs, uploader)
	assert.Error(t, r.Complete(context.Background(), sampleReport()))
	uploader.AssertNotCalled(t, "UploadReport", mock.Anything, mock.Anything, mock.Anything)
}
