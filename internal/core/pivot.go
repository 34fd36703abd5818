package core

import "sort"

// GrandTotalLabel labels the summary row. It can never collide with a real
// "YYYY-MM" row key.
const GrandTotalLabel = "Grand Total"

// TotalColumnLabel labels the per-row sum column.
const TotalColumnLabel = "Total Count"

type (
	// PivotRow is one year-month of counts across the 24 hour columns.
	PivotRow struct {
		YearMonth string
		Hours     [24]int
		Total     int
	}

	// Pivot is the cumulative count table for one service: data rows in
	// year-month descending order plus a grand-total row that is the
	// column-wise sum of all data rows.
	Pivot struct {
		Service Service
		Rows    []PivotRow
		Grand   PivotRow
	}
)

// BuildPivot groups trips of the given service by year-month and hour.
// Unused year-month/hour combinations stay zero-filled.
func BuildPivot(trips []Trip, svc Service) Pivot {
	byMonth := make(map[string]*PivotRow)
	for _, t := range trips {
		if t.Service != svc {
			continue
		}
		row, ok := byMonth[t.YearMonth]
		if !ok {
			row = &PivotRow{YearMonth: t.YearMonth}
			byMonth[t.YearMonth] = row
		}
		row.Hours[t.Hour]++
		row.Total++
	}

	rows := make([]PivotRow, 0, len(byMonth))
	for _, row := range byMonth {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].YearMonth > rows[j].YearMonth
	})

	grand := PivotRow{YearMonth: GrandTotalLabel}
	for _, row := range rows {
		for h, n := range row.Hours {
			grand.Hours[h] += n
		}
		grand.Total += row.Total
	}

	return Pivot{Service: svc, Rows: rows, Grand: grand}
}

// PeakHour is the hour label with the maximum grand-total count. Ties
// resolve to the earliest hour; an all-zero table reports "00:00".
func (p Pivot) PeakHour() string {
	peak := 0
	for h := 1; h < len(p.Grand.Hours); h++ {
		if p.Grand.Hours[h] > p.Grand.Hours[peak] {
			peak = h
		}
	}
	return HourLabels[peak]
}

// TotalCount is the overall number of trips in the table.
func (p Pivot) TotalCount() int {
	return p.Grand.Total
}
