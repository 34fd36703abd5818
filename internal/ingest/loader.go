package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"triptally/internal/core"
	applog "triptally/internal/log"
	"triptally/internal/store"
)

// Canonical required column names. Headers are matched case-insensitively
// with underscores treated as spaces, so "departure_date" works too.
const (
	ColDepartureDate = "Departure Date"
	ColDepartureTime = "Departure Time"
	ColService       = "Service"
)

var requiredColumns = []string{ColDepartureDate, ColDepartureTime, ColService}

// MissingColumnsError reports which required columns were absent from the
// concatenated upload set. It halts the report attempt without output.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Columns, ", ")
}

// Loader reads every stored workbook into one concatenated row set.
type Loader struct {
	store store.Store
	log   *applog.Logger
}

func NewLoader(s store.Store, logger *applog.Logger) *Loader {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent("ingest")
	}
	return &Loader{store: s, log: logger}
}

// Load reads all stored files in list order, tags each row with its source
// file, and returns the concatenated raw rows. Extra columns are ignored.
// If the required columns are not all present across the set, it returns a
// MissingColumnsError and no rows.
func (l *Loader) Load(ctx context.Context) ([]core.RawTrip, error) {
	names, err := l.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var rows []core.RawTrip
	found := make(map[string]bool, len(requiredColumns))

	for _, name := range names {
		data, err := l.store.Read(ctx, name)
		if err != nil {
			return nil, err
		}
		fileRows, fileCols, err := readWorkbook(data, name)
		if err != nil {
			return nil, fmt.Errorf("read workbook %s: %w", name, err)
		}
		for col := range fileCols {
			found[col] = true
		}
		rows = append(rows, fileRows...)
		l.log.Debug("Loaded workbook", "file", name, "rows", len(fileRows))
	}

	var missing []string
	for _, col := range requiredColumns {
		if !found[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	l.log.Info("Loaded stored workbooks", "files", len(names), "rows", len(rows))
	return rows, nil
}

// readWorkbook parses the first sheet of one .xlsx file. The first row is
// the header; the returned set records which required columns it carries.
func readWorkbook(data []byte, source string) ([]core.RawTrip, map[string]bool, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}
	if len(all) == 0 {
		return nil, map[string]bool{}, nil
	}

	dateIdx, timeIdx, svcIdx := -1, -1, -1
	cols := make(map[string]bool, 3)
	for i, h := range all[0] {
		switch canonicalHeader(h) {
		case ColDepartureDate:
			if dateIdx == -1 {
				dateIdx = i
				cols[ColDepartureDate] = true
			}
		case ColDepartureTime:
			if timeIdx == -1 {
				timeIdx = i
				cols[ColDepartureTime] = true
			}
		case ColService:
			if svcIdx == -1 {
				svcIdx = i
				cols[ColService] = true
			}
		}
	}

	rows := make([]core.RawTrip, 0, len(all)-1)
	for _, r := range all[1:] {
		rows = append(rows, core.RawTrip{
			Date:    cell(r, dateIdx),
			Time:    cell(r, timeIdx),
			Service: cell(r, svcIdx),
			Source:  source,
		})
	}
	return rows, cols, nil
}

// canonicalHeader normalizes a header cell for matching: trimmed, spaces
// for underscores, title-cased per required-column spelling.
func canonicalHeader(h string) string {
	n := strings.ToLower(strings.TrimSpace(h))
	n = strings.ReplaceAll(n, "_", " ")
	n = strings.Join(strings.Fields(n), " ")
	for _, col := range requiredColumns {
		if n == strings.ToLower(col) {
			return col
		}
	}
	return n
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
