package core

import (
	"strconv"
	"strings"
	"time"
)

type (
	// Service distinguishes the two trip kinds we aggregate.
	Service string

	// RawTrip is one row as read from an uploaded file, before any
	// parsing. All fields are free text.
	RawTrip struct {
		Date    string
		Time    string
		Service string
		Source  string
	}

	// Trip is a normalized record ready for aggregation.
	Trip struct {
		YearMonth string // "YYYY-MM"
		Hour      int    // 0-23
		Service   Service
		Source    string
	}
)

const (
	Pickup  Service = "Pickup"
	Sending Service = "Sending"
)

// HourLabels is the fixed ordered set of pivot columns. Every pivot table
// carries exactly these 24 columns regardless of input sparsity.
var HourLabels = [24]string{
	"00:00", "01:00", "02:00", "03:00", "04:00", "05:00",
	"06:00", "07:00", "08:00", "09:00", "10:00", "11:00",
	"12:00", "13:00", "14:00", "15:00", "16:00", "17:00",
	"18:00", "19:00", "20:00", "21:00", "22:00", "23:00",
}

// ServiceFromCode maps a single-character service code to its label.
// Unknown codes report ok=false and the row is dropped upstream.
func ServiceFromCode(code string) (Service, bool) {
	switch strings.TrimSpace(code) {
	case "P":
		return Pickup, true
	case "S":
		return Sending, true
	}
	return "", false
}

// ParseHour extracts the hour from a free-text time value such as "13:45".
// Empty values, values without a colon, and values whose prefix is not an
// integer report ok=false. The returned hour is not range-checked here;
// Normalize drops anything outside 0-23.
func ParseHour(value string) (int, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, false
	}
	idx := strings.IndexByte(v, ':')
	if idx < 0 {
		return 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(v[:idx]))
	if err != nil {
		return 0, false
	}
	return h, true
}

// dateLayouts are tried in order when parsing departure dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"01/02/06",
	"01-02-06",
	"02-Jan-06",
}

// ParseDate parses a departure date cell. Spreadsheet cells may surface as
// ISO text, slash dates, or raw Excel serial day numbers depending on the
// cell format; anything unparseable reports ok=false.
func ParseDate(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	// Excel serial date: days since 1899-12-30.
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if serial > 0 && serial < 300000 {
			epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
			return epoch.AddDate(0, 0, int(serial)), true
		}
	}
	return time.Time{}, false
}

// Normalize derives Trips from raw rows. Rows with an unparseable date,
// unparseable or out-of-range hour, or unrecognized service code are
// dropped; that is a filtering policy, not an error.
func Normalize(raw []RawTrip) []Trip {
	trips := make([]Trip, 0, len(raw))
	for _, r := range raw {
		date, ok := ParseDate(r.Date)
		if !ok {
			continue
		}
		hour, ok := ParseHour(r.Time)
		if !ok || hour < 0 || hour > 23 {
			continue
		}
		svc, ok := ServiceFromCode(r.Service)
		if !ok {
			continue
		}
		trips = append(trips, Trip{
			YearMonth: date.Format("2006-01"),
			Hour:      hour,
			Service:   svc,
			Source:    r.Source,
		})
	}
	return trips
}
