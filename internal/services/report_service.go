package services

import (
	"context"
	"errors"
	"fmt"

	"triptally/internal/core"
	"triptally/internal/ingest"
	"triptally/internal/report"
	"triptally/internal/store"
)

// ErrNoData is returned when a workbook is requested with no stored files.
var ErrNoData = errors.New("no stored files to report on")

// Summary is the cumulative aggregation over the current store contents.
type Summary struct {
	Files   []string
	Pickup  core.Pivot
	Sending core.Pivot
	HasData bool
}

// ReportService recomputes the report from whatever files currently exist
// in the store. Every call is a full re-run; there is no incremental state.
type ReportService struct {
	store  store.Store
	loader *ingest.Loader
}

func NewReportService(s store.Store, l *ingest.Loader) *ReportService {
	return &ReportService{store: s, loader: l}
}

// Summary loads all stored files and builds both pivot tables. An empty
// store yields an empty summary rather than an error. A missing required
// column surfaces as *ingest.MissingColumnsError.
func (s *ReportService) Summary(ctx context.Context) (Summary, error) {
	files, err := s.store.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list stored files: %w", err)
	}
	if len(files) == 0 {
		return Summary{Files: files}, nil
	}

	raw, err := s.loader.Load(ctx)
	if err != nil {
		return Summary{}, err
	}
	trips := core.Normalize(raw)
	return Summary{
		Files:   files,
		Pickup:  core.BuildPivot(trips, core.Pickup),
		Sending: core.BuildPivot(trips, core.Sending),
		HasData: true,
	}, nil
}

// Workbook builds the downloadable artifact for the current store contents
// and returns its bytes together with the fixed download file name.
func (s *ReportService) Workbook(ctx context.Context) ([]byte, string, error) {
	summary, err := s.Summary(ctx)
	if err != nil {
		return nil, "", err
	}
	if !summary.HasData {
		return nil, "", ErrNoData
	}
	artifact, err := report.Build(summary.Pickup, summary.Sending)
	if err != nil {
		return nil, "", fmt.Errorf("build workbook: %w", err)
	}
	return artifact, report.DownloadFileName, nil
}
