package planner

import "time"

// Column positions of the day axis.
const (
	PositionBefore = "before"
	PositionStart  = "start"
	PositionEnd    = "end"
	PositionAfter  = "after"
)

// Column is one day column of a month view, including the out-of-month
// lead and trail columns.
type Column struct {
	Key      string `json:"key"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Day      int    `json:"day"`
	InMonth  bool   `json:"inMonth"`
	Position string `json:"position,omitempty"`
	Weekday  int    `json:"weekday"`
}

// DateKey formats a date as YYYY-MM-DD. month is 0-based.
func DateKey(year, month, day int) string {
	return time.Date(year, time.Month(month+1), day, 12, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// DayColumns returns the last day of the previous month, every day of the
// month and the first day of the next month.
func DayColumns(year, month int) []Column {
	days := DaysInMonth(year, month)
	cols := make([]Column, 0, days+2)
	add := func(t time.Time, inMonth bool, position string) {
		cols = append(cols, Column{
			Key:      t.Format("2006-01-02"),
			Year:     t.Year(),
			Month:    int(t.Month()) - 1,
			Day:      t.Day(),
			InMonth:  inMonth,
			Position: position,
			Weekday:  int(t.Weekday()),
		})
	}
	first := time.Date(year, time.Month(month+1), 1, 12, 0, 0, 0, time.UTC)
	add(first.AddDate(0, 0, -1), false, PositionBefore)
	for day := 1; day <= days; day++ {
		position := ""
		switch day {
		case 1:
			position = PositionStart
		case days:
			position = PositionEnd
		}
		add(first.AddDate(0, 0, day-1), true, position)
	}
	add(first.AddDate(0, 0, days), false, PositionAfter)
	return cols
}

// SplitColumns partitions a lead + in-month + trail sequence into segments
// of at most maxColumns columns. The first segment starts with the lead
// column and the last one ends with the trail column; middle segments
// carry in-month columns only.
func SplitColumns[T any](cols []T, maxColumns int) [][]T {
	if len(cols) <= maxColumns || len(cols) < 3 {
		return [][]T{cols}
	}
	if maxColumns < 2 {
		maxColumns = 2
	}
	lead, trail := cols[0], cols[len(cols)-1]
	inMonth := cols[1 : len(cols)-1]

	firstChunk := min(max(1, maxColumns-1), max(1, len(inMonth)-1))
	first := make([]T, 0, firstChunk+1)
	first = append(first, lead)
	first = append(first, inMonth[:firstChunk]...)
	segments := [][]T{first}

	for start := firstChunk; start < len(inMonth); {
		remaining := len(inMonth) - start
		if remaining <= maxColumns-1 {
			last := make([]T, 0, remaining+1)
			last = append(last, inMonth[start:]...)
			segments = append(segments, append(last, trail))
			break
		}
		// Leave at least one in-month column for the trail segment.
		chunk := maxColumns
		if remaining == maxColumns {
			chunk = maxColumns - 1
		}
		segments = append(segments, inMonth[start:start+chunk:start+chunk])
		start += chunk
	}
	return segments
}

// Grid geometry in pixels.
const (
	MemberColumnWidth    = 180
	MinDayCellWidth      = 34
	CellHorizontalExtra  = 8 + 2
	minRenderedCellWidth = 24
)

// MetricColumnWidths are the widths of the allowance and counter columns.
var MetricColumnWidths = []int{52, 26, 26, 26, 26, 26, 26}

// TableLayout is the result of Layout.
type TableLayout struct {
	MaxColumns int `json:"maxColumnsPerTable"`
	CellWidth  int `json:"dayCellWidth"`
}

// Layout derives how many day columns fit next to the member and metric
// columns in containerWidth, and how wide each day cell is drawn.
func Layout(containerWidth int) TableLayout {
	metric := 0
	for _, w := range MetricColumnWidths {
		metric += w
	}
	available := max(0, containerWidth-MemberColumnWidth-metric)
	maxCols := available / (MinDayCellWidth + CellHorizontalExtra)
	if maxCols == 0 {
		maxCols = 1
	}
	maxCols = max(2, maxCols)
	usable := max(0, available-maxCols*CellHorizontalExtra)
	return TableLayout{
		MaxColumns: maxCols,
		CellWidth:  max(minRenderedCellWidth, usable/maxCols),
	}
}
