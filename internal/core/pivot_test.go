package core

import (
	"reflect"
	"testing"
)

func TestBuildPivotScenario(t *testing.T) {
	raw := []RawTrip{
		{Date: "2024-01-05", Time: "08:15", Service: "P", Source: "jan.xlsx"},
		{Date: "2024-01-20", Time: "08:40", Service: "P", Source: "jan.xlsx"},
	}
	pivot := BuildPivot(Normalize(raw), Pickup)

	if len(pivot.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(pivot.Rows))
	}
	row := pivot.Rows[0]
	if row.YearMonth != "2024-01" {
		t.Fatalf("row key=%q, want 2024-01", row.YearMonth)
	}
	for h, n := range row.Hours {
		want := 0
		if h == 8 {
			want = 2
		}
		if n != want {
			t.Fatalf("hour %d count=%d, want %d", h, n, want)
		}
	}
	if row.Total != 2 {
		t.Fatalf("row total=%d, want 2", row.Total)
	}
	if pivot.Grand.Hours != row.Hours || pivot.Grand.Total != row.Total {
		t.Fatalf("grand total row %+v differs from single data row %+v", pivot.Grand, row)
	}
	if pivot.PeakHour() != "08:00" {
		t.Fatalf("peak=%q, want 08:00", pivot.PeakHour())
	}
}

func TestBuildPivotSeparatesServices(t *testing.T) {
	raw := []RawTrip{
		{Date: "2024-01-05", Time: "08:15", Service: "P"},
		{Date: "2024-01-05", Time: "09:15", Service: "S"},
		{Date: "2024-01-05", Time: "10:15", Service: "X"},
	}
	trips := Normalize(raw)
	pickup := BuildPivot(trips, Pickup)
	sending := BuildPivot(trips, Sending)

	if pickup.TotalCount() != 1 || pickup.Grand.Hours[8] != 1 {
		t.Fatalf("pickup pivot wrong: %+v", pickup.Grand)
	}
	if sending.TotalCount() != 1 || sending.Grand.Hours[9] != 1 {
		t.Fatalf("sending pivot wrong: %+v", sending.Grand)
	}
	// The "X" row at hour 10 must appear in neither table.
	if pickup.Grand.Hours[10] != 0 || sending.Grand.Hours[10] != 0 {
		t.Fatalf("unknown service code leaked into a pivot")
	}
}

func TestBuildPivotTotalsConsistent(t *testing.T) {
	raw := []RawTrip{
		{Date: "2024-03-01", Time: "07:00", Service: "P"},
		{Date: "2024-03-02", Time: "07:30", Service: "P"},
		{Date: "2024-03-03", Time: "18:10", Service: "P"},
		{Date: "2024-04-11", Time: "07:45", Service: "P"},
		{Date: "2023-12-31", Time: "23:59", Service: "P"},
	}
	pivot := BuildPivot(Normalize(raw), Pickup)

	// Rows sorted year-month descending.
	want := []string{"2024-04", "2024-03", "2023-12"}
	for i, row := range pivot.Rows {
		if row.YearMonth != want[i] {
			t.Fatalf("row %d key=%q, want %q", i, row.YearMonth, want[i])
		}
	}

	grandTotal := 0
	for _, row := range pivot.Rows {
		sum := 0
		for _, n := range row.Hours {
			sum += n
		}
		if sum != row.Total {
			t.Fatalf("row %s total=%d, hour sum=%d", row.YearMonth, row.Total, sum)
		}
		grandTotal += row.Total
	}
	if pivot.Grand.Total != grandTotal {
		t.Fatalf("grand total=%d, want %d", pivot.Grand.Total, grandTotal)
	}
	for h := range HourLabels {
		colSum := 0
		for _, row := range pivot.Rows {
			colSum += row.Hours[h]
		}
		if pivot.Grand.Hours[h] != colSum {
			t.Fatalf("grand hour %d=%d, want column sum %d", h, pivot.Grand.Hours[h], colSum)
		}
	}
}

func TestBuildPivotDeterministic(t *testing.T) {
	raw := []RawTrip{
		{Date: "2024-01-05", Time: "08:15", Service: "P"},
		{Date: "2024-02-05", Time: "09:15", Service: "P"},
		{Date: "2024-02-06", Time: "09:45", Service: "P"},
	}
	trips := Normalize(raw)
	a := BuildPivot(trips, Pickup)
	b := BuildPivot(trips, Pickup)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same input produced different pivots:\n%+v\n%+v", a, b)
	}
}

func TestPeakHourTieBreaksAscending(t *testing.T) {
	raw := []RawTrip{
		{Date: "2024-01-05", Time: "14:00", Service: "P"},
		{Date: "2024-01-06", Time: "06:00", Service: "P"},
	}
	pivot := BuildPivot(Normalize(raw), Pickup)
	if got := pivot.PeakHour(); got != "06:00" {
		t.Fatalf("peak=%q, want earliest tied hour 06:00", got)
	}

	empty := BuildPivot(nil, Pickup)
	if got := empty.PeakHour(); got != "00:00" {
		t.Fatalf("empty pivot peak=%q, want 00:00", got)
	}
}
