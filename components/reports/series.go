package reports

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	// DefaultOthersLabel labels the catch-all slice.
	DefaultOthersLabel = "Outros"
	// MissingLabel replaces empty dimension values.
	MissingLabel = "Sem rotulo"

	defaultPieTopN = 8
	minPieTopN     = 3
	maxPieTopN     = 20
)

// PieSeriesOptions controls top-N bucketing of pie and donut series.
type PieSeriesOptions struct {
	TopN        int    `json:"topN"`
	ShowOthers  bool   `json:"showOthers"`
	OthersLabel string `json:"othersLabel"`
}

// DefaultPieSeriesOptions returns topN=8, showOthers=true, othersLabel="Outros".
func DefaultPieSeriesOptions() PieSeriesOptions {
	return PieSeriesOptions{TopN: defaultPieTopN, ShowOthers: true, OthersLabel: DefaultOthersLabel}
}

// UnmarshalJSON starts from DefaultPieSeriesOptions so omitted keys keep their defaults.
func (o *PieSeriesOptions) UnmarshalJSON(data []byte) error {
	type plain PieSeriesOptions
	decoded := plain(DefaultPieSeriesOptions())
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*o = PieSeriesOptions(decoded)
	return nil
}

// normalized fills unset fields. The zero value means the defaults.
func (o PieSeriesOptions) normalized() PieSeriesOptions {
	if o == (PieSeriesOptions{}) {
		return DefaultPieSeriesOptions()
	}
	if o.TopN == 0 {
		o.TopN = defaultPieTopN
	}
	o.TopN = clampInt(o.TopN, minPieTopN, maxPieTopN)
	if strings.TrimSpace(o.OthersLabel) == "" {
		o.OthersLabel = DefaultOthersLabel
	}
	return o
}

// PieOptionsFromViz reads viz.pie.{topN,showOthers,othersLabel} from widget display
// options, falling back to the defaults for anything missing.
func PieOptionsFromViz(viz map[string]any) PieSeriesOptions {
	opts := DefaultPieSeriesOptions()
	pie, ok := viz["pie"].(map[string]any)
	if !ok {
		return opts
	}
	if v, ok := numberValue(pie["topN"]); ok {
		opts.TopN = int(v)
	}
	if v, ok := pie["showOthers"].(bool); ok {
		opts.ShowOthers = v
	}
	opts.OthersLabel = stringOr(pie["othersLabel"], opts.OthersLabel)
	return opts.normalized()
}

// PieSlice is one bucket of an aggregated pie or donut series.
type PieSlice struct {
	Label   string  `json:"label"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
	Others  bool    `json:"others,omitempty"`
}

// AggregatePieSeries groups rows by dimension, sums metric, keeps the topN largest
// groups and optionally folds the rest into one others slice. An empty result means
// there is no data to plot.
func AggregatePieSeries(rows []Row, dimension, metric string, opts PieSeriesOptions) []PieSlice {
	opts = opts.normalized()

	index := map[string]int{}
	var groups []PieSlice
	for _, row := range rows {
		value, ok := numberValue(row[metric])
		if !ok || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
			continue
		}
		label := dimensionLabel(row[dimension])
		if i, seen := index[label]; seen {
			groups[i].Value += value
			continue
		}
		index[label] = len(groups)
		groups = append(groups, PieSlice{Label: label, Value: value})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Value > groups[j].Value
	})

	series := groups
	if len(groups) > opts.TopN {
		series = append([]PieSlice(nil), groups[:opts.TopN]...)
		if opts.ShowOthers {
			rest := 0.0
			for _, g := range groups[opts.TopN:] {
				rest += g.Value
			}
			if rest > 0 {
				series = append(series, PieSlice{Label: opts.OthersLabel, Value: rest, Others: true})
			}
		}
	}

	total := 0.0
	for _, s := range series {
		total += s.Value
	}
	if total <= 0 {
		return []PieSlice{}
	}
	for i := range series {
		series[i].Percent = series[i].Value / total
	}
	return series
}

func dimensionLabel(v any) string {
	var label string
	switch val := v.(type) {
	case nil:
	case string:
		label = val
	case json.Number:
		label = val.String()
	case float64:
		label = strconv.FormatFloat(val, 'f', -1, 64)
	default:
		label = fmt.Sprint(val)
	}
	if strings.TrimSpace(label) == "" {
		return MissingLabel
	}
	return label
}

func numberValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	}
	return 0, false
}
