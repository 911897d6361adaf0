package models

import (
	"math"
	"sort"
	"time"
)

// Series is a single named daily time series. Dates are calendar days (UTC
// midnight) in ascending order; Values[i] belongs to Dates[i].
type Series struct {
	Label  string
	Dates  []time.Time
	Values []float64
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Dates) }

// TimeSeriesPanel is a table keyed by calendar date with one numeric column
// per instrument. The date index is ascending and unique. Gaps are NaN until
// FillForwardBackward runs.
type TimeSeriesPanel struct {
	Dates   []time.Time
	Labels  []string
	Columns map[string][]float64
}

// EmptyPanel returns a panel with no rows and no columns.
func EmptyPanel() *TimeSeriesPanel {
	return &TimeSeriesPanel{Columns: map[string][]float64{}}
}

// IsEmpty reports whether the panel has no rows.
func (p *TimeSeriesPanel) IsEmpty() bool {
	return p == nil || len(p.Dates) == 0
}

// Rows returns the number of dates in the panel.
func (p *TimeSeriesPanel) Rows() int {
	if p == nil {
		return 0
	}
	return len(p.Dates)
}

// Column returns the values for a label, or nil if absent.
func (p *TimeSeriesPanel) Column(label string) []float64 {
	if p == nil {
		return nil
	}
	return p.Columns[label]
}

// HasColumn reports whether the panel carries the given label.
func (p *TimeSeriesPanel) HasColumn(label string) bool {
	_, ok := p.Columns[label]
	return ok
}

// DayFloor truncates t to UTC midnight. All panel dates go through this so
// that observations from sources with different intraday stamps land on the
// same calendar row.
func DayFloor(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Concat aligns the given series onto the union of their observed dates and
// returns a panel sorted by date ascending. Missing observations are NaN.
// Column order follows the order of the input slice; a duplicate label keeps
// the last series seen.
func Concat(series []Series) *TimeSeriesPanel {
	dateSet := make(map[int64]time.Time)
	for _, s := range series {
		for _, d := range s.Dates {
			fd := DayFloor(d)
			dateSet[fd.Unix()] = fd
		}
	}
	if len(dateSet) == 0 {
		return EmptyPanel()
	}

	keys := make([]int64, 0, len(dateSet))
	for k := range dateSet {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	dates := make([]time.Time, len(keys))
	rowOf := make(map[int64]int, len(keys))
	for i, k := range keys {
		dates[i] = dateSet[k]
		rowOf[k] = i
	}

	p := &TimeSeriesPanel{
		Dates:   dates,
		Columns: make(map[string][]float64, len(series)),
	}
	for _, s := range series {
		col, seen := p.Columns[s.Label]
		if !seen {
			col = nanColumn(len(dates))
			p.Labels = append(p.Labels, s.Label)
		}
		for i, d := range s.Dates {
			if i >= len(s.Values) {
				break
			}
			col[rowOf[DayFloor(d).Unix()]] = s.Values[i]
		}
		p.Columns[s.Label] = col
	}
	return p
}

// FillForwardBackward propagates the last known value forward through
// interior gaps, then the earliest known value backward through any remaining
// leading gap. Columns with no observations at all stay NaN. The operation is
// idempotent.
func (p *TimeSeriesPanel) FillForwardBackward() {
	if p.IsEmpty() {
		return
	}
	for _, label := range p.Labels {
		col := p.Columns[label]
		last := math.NaN()
		for i := range col {
			if !math.IsNaN(col[i]) {
				last = col[i]
			} else if !math.IsNaN(last) {
				col[i] = last
			}
		}
		next := math.NaN()
		for i := len(col) - 1; i >= 0; i-- {
			if !math.IsNaN(col[i]) {
				next = col[i]
			} else if !math.IsNaN(next) {
				col[i] = next
			}
		}
	}
}

// DropGapRows removes every row that still contains a NaN in any column.
// Columns that are entirely NaN (a series the sources never delivered) are
// removed first so one dead instrument cannot wipe out the whole panel.
func (p *TimeSeriesPanel) DropGapRows() *TimeSeriesPanel {
	if p.IsEmpty() {
		return EmptyPanel()
	}

	labels := make([]string, 0, len(p.Labels))
	for _, label := range p.Labels {
		if !allNaN(p.Columns[label]) {
			labels = append(labels, label)
		}
	}

	keep := make([]int, 0, len(p.Dates))
	for i := range p.Dates {
		ok := true
		for _, label := range labels {
			if math.IsNaN(p.Columns[label][i]) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, i)
		}
	}

	out := &TimeSeriesPanel{
		Dates:   make([]time.Time, len(keep)),
		Labels:  labels,
		Columns: make(map[string][]float64, len(labels)),
	}
	for _, label := range labels {
		out.Columns[label] = make([]float64, len(keep))
	}
	for j, i := range keep {
		out.Dates[j] = p.Dates[i]
		for _, label := range labels {
			out.Columns[label][j] = p.Columns[label][i]
		}
	}
	return out
}

// Subset returns a panel restricted to the given labels, keeping only labels
// the panel actually has. Row set is unchanged.
func (p *TimeSeriesPanel) Subset(labels []string) *TimeSeriesPanel {
	if p.IsEmpty() {
		return EmptyPanel()
	}
	out := &TimeSeriesPanel{
		Dates:   p.Dates,
		Columns: make(map[string][]float64),
	}
	for _, label := range labels {
		if col, ok := p.Columns[label]; ok {
			out.Labels = append(out.Labels, label)
			out.Columns[label] = col
		}
	}
	return out
}

func nanColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}

func allNaN(col []float64) bool {
	for _, v := range col {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
