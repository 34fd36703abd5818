package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"triptally/internal/core"
)

const (
	SheetPickup    = "Pickup"
	SheetSending   = "Sending"
	SheetDashboard = "Dashboard"

	// DownloadFileName is the fixed name offered for the generated artifact.
	DownloadFileName = "pickup_sending_monthly_hourly_totals.xlsx"

	// ContentType is the MIME type for .xlsx downloads.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Pivot sheet geometry: column A holds the year-month key, B..Y the 24 hour
// columns, Z the total-count column.
const (
	firstHourCol = 2
	lastHourCol  = firstHourCol + len(core.HourLabels) - 1
	totalCol     = lastHourCol + 1
)

// builder writes the report workbook: one sheet per service pivot plus a
// dashboard sheet with KPI tiles and hourly bar charts.
type builder struct {
	wb *excelize.File

	boldStyle     int
	bgStyle       int
	kpiTitleStyle int
	kpiValueStyle int
	bannerStyle   int
}

// Build renders the two pivot tables into a styled workbook and returns its
// bytes. It has no side effects beyond the returned artifact.
func Build(pickup, sending core.Pivot) ([]byte, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	b := &builder{wb: wb}
	if err := b.initStyles(); err != nil {
		return nil, fmt.Errorf("init styles: %w", err)
	}

	if err := wb.SetSheetName(wb.GetSheetName(0), SheetPickup); err != nil {
		return nil, err
	}
	if _, err := wb.NewSheet(SheetSending); err != nil {
		return nil, err
	}
	if _, err := wb.NewSheet(SheetDashboard); err != nil {
		return nil, err
	}

	if err := b.writePivotSheet(SheetPickup, pickup); err != nil {
		return nil, fmt.Errorf("write %s sheet: %w", SheetPickup, err)
	}
	if err := b.writePivotSheet(SheetSending, sending); err != nil {
		return nil, fmt.Errorf("write %s sheet: %w", SheetSending, err)
	}
	if err := b.writeDashboard(pickup, sending); err != nil {
		return nil, fmt.Errorf("write %s sheet: %w", SheetDashboard, err)
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *builder) initStyles() error {
	var err error
	if b.boldStyle, err = b.wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	}); err != nil {
		return err
	}
	if b.bgStyle, err = b.wb.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"EEEEEE"}, Pattern: 1},
	}); err != nil {
		return err
	}
	if b.kpiTitleStyle, err = b.wb.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	}); err != nil {
		return err
	}
	if b.kpiValueStyle, err = b.wb.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFFFFF"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	}); err != nil {
		return err
	}
	if b.bannerStyle, err = b.wb.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 22},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder(),
	}); err != nil {
		return err
	}
	return nil
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

// writePivotSheet lays out one pivot: header row of hour labels plus the
// total column, data rows year-month descending, then the bolded
// grand-total row.
func (b *builder) writePivotSheet(sheet string, p core.Pivot) error {
	for i, label := range core.HourLabels {
		if err := b.setCell(sheet, firstHourCol+i, 1, label); err != nil {
			return err
		}
	}
	if err := b.setCell(sheet, totalCol, 1, core.TotalColumnLabel); err != nil {
		return err
	}

	rows := append(append([]core.PivotRow{}, p.Rows...), p.Grand)
	for ri, row := range rows {
		excelRow := ri + 2
		if err := b.setCell(sheet, 1, excelRow, row.YearMonth); err != nil {
			return err
		}
		for h, n := range row.Hours {
			if err := b.setCell(sheet, firstHourCol+h, excelRow, n); err != nil {
				return err
			}
		}
		if err := b.setCell(sheet, totalCol, excelRow, row.Total); err != nil {
			return err
		}
	}

	grandRow := len(rows) + 1
	start, err := excelize.CoordinatesToCellName(1, grandRow)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(totalCol, grandRow)
	if err != nil {
		return err
	}
	if err := b.wb.SetCellStyle(sheet, start, end, b.boldStyle); err != nil {
		return err
	}

	if err := b.wb.SetColWidth(sheet, "A", "A", 12); err != nil {
		return err
	}
	if err := b.wb.SetColWidth(sheet, "B", "Y", 7); err != nil {
		return err
	}
	return b.wb.SetColWidth(sheet, "Z", "Z", 12)
}

func (b *builder) writeDashboard(pickup, sending core.Pivot) error {
	// Light grey canvas behind the whole dashboard area.
	if err := b.wb.SetCellStyle(SheetDashboard, "A1", "AN80", b.bgStyle); err != nil {
		return err
	}

	tiles := []struct {
		titleArea, valueArea, title string
		value                       any
	}{
		{"B2:D2", "B3:D4", "Total Pickups", pickup.TotalCount()},
		{"F2:H2", "F3:H4", "Total Sendings", sending.TotalCount()},
		{"J2:L2", "J3:L4", "Pickup Peak Hour", pickup.PeakHour()},
		{"N2:P2", "N3:P4", "Sending Peak Hour", sending.PeakHour()},
	}
	for _, tile := range tiles {
		if err := b.writeKPI(tile.titleArea, tile.valueArea, tile.title, tile.value); err != nil {
			return err
		}
	}

	if err := b.writeBanner("B6:P6", "Pickups by Hour"); err != nil {
		return err
	}
	if err := b.addHourChart(SheetPickup, pickup, "B8"); err != nil {
		return err
	}

	if err := b.writeBanner("B30:P30", "Sendings by Hour"); err != nil {
		return err
	}
	return b.addHourChart(SheetSending, sending, "B33")
}

// writeKPI renders one tile: a merged title box above a merged value box.
func (b *builder) writeKPI(titleArea, valueArea, title string, value any) error {
	for _, area := range []string{titleArea, valueArea} {
		start, end, err := splitArea(area)
		if err != nil {
			return err
		}
		if err := b.wb.MergeCell(SheetDashboard, start, end); err != nil {
			return err
		}
	}
	titleStart, titleEnd, err := splitArea(titleArea)
	if err != nil {
		return err
	}
	valueStart, valueEnd, err := splitArea(valueArea)
	if err != nil {
		return err
	}
	if err := b.wb.SetCellValue(SheetDashboard, titleStart, title); err != nil {
		return err
	}
	if err := b.wb.SetCellValue(SheetDashboard, valueStart, value); err != nil {
		return err
	}
	if err := b.wb.SetCellStyle(SheetDashboard, titleStart, titleEnd, b.kpiTitleStyle); err != nil {
		return err
	}
	return b.wb.SetCellStyle(SheetDashboard, valueStart, valueEnd, b.kpiValueStyle)
}

func (b *builder) writeBanner(area, text string) error {
	start, end, err := splitArea(area)
	if err != nil {
		return err
	}
	if err := b.wb.MergeCell(SheetDashboard, start, end); err != nil {
		return err
	}
	if err := b.wb.SetCellValue(SheetDashboard, start, text); err != nil {
		return err
	}
	return b.wb.SetCellStyle(SheetDashboard, start, end, b.bannerStyle)
}

// addHourChart plots the 24 grand-total hour values of one pivot sheet as a
// bar chart: value labels above each bar, no legend, no series name.
func (b *builder) addHourChart(dataSheet string, p core.Pivot, anchor string) error {
	grandRow := len(p.Rows) + 2
	return b.wb.AddChart(SheetDashboard, anchor, &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Categories:        hourRangeRef(dataSheet, 1),
			Values:            hourRangeRef(dataSheet, grandRow),
			DataLabelPosition: excelize.ChartDataLabelsPositionOutsideEnd,
		}},
		Legend:    excelize.ChartLegend{Position: "none"},
		PlotArea:  excelize.ChartPlotArea{ShowVal: true},
		Dimension: excelize.ChartDimension{Width: 1060, Height: 450},
	})
}

// hourRangeRef builds an absolute reference to the 24 hour cells of one row,
// e.g. "Pickup!$B$27:$Y$27".
func hourRangeRef(sheet string, row int) string {
	start, _ := excelize.CoordinatesToCellName(firstHourCol, row, true)
	end, _ := excelize.CoordinatesToCellName(lastHourCol, row, true)
	return sheet + "!" + start + ":" + end
}

func (b *builder) setCell(sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return b.wb.SetCellValue(sheet, cell, value)
}

// splitArea splits "B2:D2" into its corner cells.
func splitArea(area string) (string, string, error) {
	for i := 0; i < len(area); i++ {
		if area[i] == ':' {
			return area[:i], area[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("invalid cell area %q", area)
}
