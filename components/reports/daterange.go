package reports

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Preset names a relative or explicit date range.
type Preset string

const (
	PresetNone       Preset = ""
	PresetLast7Days  Preset = "last_7_days"
	PresetLast30Days Preset = "last_30_days"
	PresetCustom     Preset = "custom"
)

// Relative reports whether the preset is resolved against the current date.
func (p Preset) Relative() bool {
	return p == PresetLast7Days || p == PresetLast30Days
}

func (p Preset) days() int {
	switch p {
	case PresetLast7Days:
		return 7
	case PresetLast30Days:
		return 30
	}
	return 0
}

// CompareMode selects the comparison window of a query.
type CompareMode string

const (
	ComparePreviousPeriod CompareMode = "previous_period"
	ComparePreviousYear   CompareMode = "previous_year"
)

// DateRange is the wire form of a query date range.
type DateRange struct {
	Preset Preset `json:"preset,omitempty" yaml:"preset,omitempty"`
	Start  string `json:"start,omitempty" yaml:"start,omitempty"`
	End    string `json:"end,omitempty" yaml:"end,omitempty"`
}

// Bounds are concrete, inclusive calendar bounds at UTC midnight.
type Bounds struct {
	Start time.Time
	End   time.Time
}

// Days returns the inclusive number of calendar days covered.
func (b Bounds) Days() int {
	return int(b.End.Sub(b.Start).Hours()/24) + 1
}

// MarshalJSON renders bounds as YYYY-MM-DD strings.
func (b Bounds) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"start": b.Start.Format(time.DateOnly),
		"end":   b.End.Format(time.DateOnly),
	})
}

func (b Bounds) String() string {
	return b.Start.Format(time.DateOnly) + ".." + b.End.Format(time.DateOnly)
}

// ParseCalendarDate parses YYYY-MM-DD or an RFC 3339 timestamp into a UTC calendar date.
func ParseCalendarDate(field, value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if t, err := time.Parse(time.DateOnly, trimmed); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return truncateDay(t), nil
	}
	return time.Time{}, &InvalidDateError{Field: field, Value: value}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResolveDateRange turns explicit start/end into bounds. A relative preset with no
// explicit dates is informational only and yields ErrPresetNotExpanded.
func ResolveDateRange(r DateRange) (Bounds, error) {
	if r.Start == "" && r.End == "" && r.Preset.Relative() {
		return Bounds{}, ErrPresetNotExpanded
	}
	start, err := ParseCalendarDate("start", r.Start)
	if err != nil {
		return Bounds{}, err
	}
	end, err := ParseCalendarDate("end", r.End)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{Start: start, End: end}, nil
}

// ComparisonRange computes the window a query is compared against.
func ComparisonRange(b Bounds, mode CompareMode) (Bounds, error) {
	switch mode {
	case ComparePreviousPeriod:
		span := b.Days()
		return Bounds{
			Start: b.Start.AddDate(0, 0, -span),
			End:   b.Start.AddDate(0, 0, -1),
		}, nil
	case ComparePreviousYear:
		return Bounds{
			Start: b.Start.AddDate(-1, 0, 0),
			End:   b.End.AddDate(-1, 0, 0),
		}, nil
	}
	return Bounds{}, fmt.Errorf("reports: unsupported compare mode %q", mode)
}

// DateRangeResolver expands relative presets the way the serving backend does.
type DateRangeResolver struct {
	Now func() time.Time
}

// Resolve returns concrete bounds, expanding last_N_days presets relative to today
// when no explicit dates were supplied.
func (r DateRangeResolver) Resolve(dr DateRange) (Bounds, error) {
	if dr.Start != "" || dr.End != "" || !dr.Preset.Relative() {
		return ResolveDateRange(dr)
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	today := truncateDay(now().UTC())
	return Bounds{
		Start: today.AddDate(0, 0, -(dr.Preset.days() - 1)),
		End:   today,
	}, nil
}
