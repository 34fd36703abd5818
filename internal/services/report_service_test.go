package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"triptally/internal/core"
	"triptally/internal/ingest"
	"triptally/internal/report"
	"triptally/internal/store"
)

func newService(t *testing.T) (*ReportService, store.Store) {
	t.Helper()
	st, err := store.NewDir(t.TempDir())
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	return NewReportService(st, ingest.NewLoader(st, nil)), st
}

func tripsWorkbook(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	headers := []string{"Departure Date", "Departure Time", "Service"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			t.Fatalf("set header: %v", err)
		}
	}
	for ri, row := range rows {
		for ci, v := range row {
			cell, _ := excelize.CoordinatesToCellName(ci+1, ri+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return buf.Bytes()
}

func TestSummaryEmptyStore(t *testing.T) {
	svc, _ := newService(t)
	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.HasData || len(summary.Files) != 0 {
		t.Fatalf("empty store summary: %+v", summary)
	}

	if _, _, err := svc.Workbook(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("Workbook err=%v, want ErrNoData", err)
	}
}

func TestSummaryAggregatesStoredFiles(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	if err := st.Write(ctx, "jan.xlsx", tripsWorkbook(t, [][]string{
		{"2024-01-05", "08:15", "P"},
		{"2024-01-20", "08:40", "P"},
		{"2024-01-21", "19:10", "S"},
		{"2024-01-22", "09:00", "X"}, // dropped
	})); err != nil {
		t.Fatalf("seed jan: %v", err)
	}
	if err := st.Write(ctx, "feb.xlsx", tripsWorkbook(t, [][]string{
		{"2024-02-02", "08:05", "P"},
	})); err != nil {
		t.Fatalf("seed feb: %v", err)
	}

	summary, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if !summary.HasData || len(summary.Files) != 2 {
		t.Fatalf("summary=%+v", summary)
	}
	if summary.Pickup.TotalCount() != 3 {
		t.Fatalf("pickup total=%d, want 3", summary.Pickup.TotalCount())
	}
	if summary.Sending.TotalCount() != 1 {
		t.Fatalf("sending total=%d, want 1", summary.Sending.TotalCount())
	}
	if summary.Pickup.PeakHour() != "08:00" {
		t.Fatalf("pickup peak=%q, want 08:00", summary.Pickup.PeakHour())
	}

	// Same store contents, same result.
	again, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary rerun: %v", err)
	}
	if again.Pickup.TotalCount() != summary.Pickup.TotalCount() ||
		again.Sending.TotalCount() != summary.Sending.TotalCount() {
		t.Fatalf("rerun differs: %+v vs %+v", again, summary)
	}
}

func TestSummaryMissingColumns(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetCellValue(sheet, "A1", "Departure Date")
	_ = f.SetCellValue(sheet, "B1", "Departure Time")
	_ = f.SetCellValue(sheet, "A2", "2024-01-05")
	_ = f.SetCellValue(sheet, "B2", "08:15")
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	f.Close()
	if err := st.Write(ctx, "bad.xlsx", buf.Bytes()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err = svc.Summary(ctx)
	var missing *ingest.MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("err=%v, want MissingColumnsError", err)
	}
	if len(missing.Columns) != 1 || missing.Columns[0] != ingest.ColService {
		t.Fatalf("missing=%v, want [%s]", missing.Columns, ingest.ColService)
	}
}

func TestWorkbookArtifact(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t)
	if err := st.Write(ctx, "jan.xlsx", tripsWorkbook(t, [][]string{
		{"2024-01-05", "08:15", "P"},
	})); err != nil {
		t.Fatalf("seed: %v", err)
	}

	artifact, name, err := svc.Workbook(ctx)
	if err != nil {
		t.Fatalf("Workbook: %v", err)
	}
	if name != report.DownloadFileName {
		t.Fatalf("name=%q, want %q", name, report.DownloadFileName)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(artifact))
	if err != nil {
		t.Fatalf("open artifact: %v", err)
	}
	defer wb.Close()
	if got, _ := wb.GetCellValue(report.SheetPickup, "A2"); got != "2024-01" {
		t.Fatalf("A2=%q, want 2024-01", got)
	}
	if got, _ := wb.GetCellValue(report.SheetPickup, "A3"); got != core.GrandTotalLabel {
		t.Fatalf("A3=%q, want %q", got, core.GrandTotalLabel)
	}
}
