package reports

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "360px"

// PieChartRenderer renders aggregated slices into echarts HTML.
type PieChartRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
}

// PieRendererOption customizes a PieChartRenderer.
type PieRendererOption func(*PieChartRenderer)

// WithRenderCache injects a render cache. Nil disables caching.
func WithRenderCache(cache RenderCache) PieRendererOption {
	return func(r *PieChartRenderer) { r.cache = cache }
}

// WithChartTheme sets the echarts theme (defaults to Westeros).
func WithChartTheme(theme string) PieRendererOption {
	return func(r *PieChartRenderer) {
		if theme != "" {
			r.theme = theme
		}
	}
}

// WithChartAssetsHost rewrites the assets host so the echarts script loads from a CDN.
func WithChartAssetsHost(host string) PieRendererOption {
	return func(r *PieChartRenderer) { r.assetsHost = host }
}

// NewPieChartRenderer builds a renderer.
func NewPieChartRenderer(opts ...PieRendererOption) *PieChartRenderer {
	r := &PieChartRenderer{theme: types.ThemeWesteros}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns chart HTML for slices, reusing a cached render for identical input.
func (r *PieChartRenderer) Render(widget Widget, slices []PieSlice) (string, error) {
	if len(slices) == 0 {
		return "", fmt.Errorf("reports: no data to plot for widget %s", widget.ID)
	}
	renderFn := func() (string, error) {
		return r.render(widget, slices)
	}
	if r.cache == nil {
		return renderFn()
	}
	key := fmt.Sprintf("%s:%s:%s", widget.ID, widget.Type, configHash(map[string]any{
		"title":  widget.Title,
		"slices": slices,
	}))
	return r.cache.GetOrRender(key, renderFn)
}

func (r *PieChartRenderer) render(widget Widget, slices []PieSlice) (string, error) {
	initOpts := opts.Initialization{
		Theme:  r.theme,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: widget.Title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(showLegend(widget.Viz))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Formatter: "{b}: {c} ({d}%)"}),
	)

	seriesOpts := []charts.SeriesOpts{
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}"}),
	}
	if widget.Type == WidgetDonut {
		seriesOpts = append(seriesOpts, charts.WithPieChartOpts(opts.PieChart{Radius: []string{"40%", "70%"}}))
	}
	name := widget.Title
	if name == "" {
		name = widget.ID
	}
	pie.AddSeries(name, toPieData(slices), seriesOpts...)
	return renderChart(pie)
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toPieData(slices []PieSlice) []opts.PieData {
	data := make([]opts.PieData, len(slices))
	for i, s := range slices {
		data[i] = opts.PieData{Name: s.Label, Value: s.Value}
	}
	return data
}

func showLegend(viz map[string]any) bool {
	if v, ok := viz["legend"].(bool); ok {
		return v
	}
	return true
}
