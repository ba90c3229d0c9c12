package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-reports/components/reports"
	"github.com/goliatone/go-reports/pkg/config"
)

type cli struct {
	Output string `enum:"yaml,json" default:"yaml" help:"Output format (yaml or json)."`

	Validate validateCmd `cmd:"" help:"Validate a metrics query JSON file and print the normalized query."`
	Health   healthCmd   `cmd:"" help:"Evaluate the health of a dashboard document."`
	Pie      pieCmd      `cmd:"" help:"Aggregate JSON rows into top-N pie slices."`
	Range    rangeCmd    `cmd:"" help:"Resolve a date preset or explicit range into concrete bounds."`
	Layout   layoutCmd   `cmd:"" help:"Apply layout edits to a dashboard document and print the result."`
}

type runEnv struct {
	out    io.Writer
	in     io.Reader
	now    func() time.Time
	format string
}

var errBlocked = errors.New("reportctl: dashboard is blocked")

func main() {
	var root cli
	ctx := kong.Parse(&root,
		kong.Name("reportctl"),
		kong.Description("Query validation and dashboard health utility for go-reports."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&runEnv{out: os.Stdout, in: os.Stdin, now: time.Now, format: root.Output})
	ctx.FatalIfErrorf(err)
}

type validateCmd struct {
	File string `arg:"" optional:"" default:"-" help:"Query JSON file ('-' reads stdin)."`
}

func (cmd *validateCmd) Run(env *runEnv) error {
	data, err := readInput(env, cmd.File)
	if err != nil {
		return err
	}
	query, errs := reports.NewQueryValidator().ValidateJSON(data)
	if len(errs) > 0 {
		if err := env.print(map[string]any{"valid": false, "errors": errs}); err != nil {
			return err
		}
		return fmt.Errorf("reportctl: %d validation error(s)", len(errs))
	}
	return env.print(map[string]any{"valid": true, "query": query})
}

type healthCmd struct {
	Document      string `arg:"" type:"existingfile" help:"Dashboard document (YAML or JSON)."`
	FailOnBlocked bool   `name:"fail-on-blocked" help:"Exit non-zero when the dashboard is BLOCKED."`
}

func (cmd *healthCmd) Run(env *runEnv) error {
	doc, err := reports.ReadDashboardDocument(cmd.Document)
	if err != nil {
		return err
	}
	result := reports.EvaluateHealth(doc.Dashboard(), doc.Connections)
	if err := env.print(result); err != nil {
		return err
	}
	if cmd.FailOnBlocked && result.Blocked() {
		return errBlocked
	}
	return nil
}

type pieCmd struct {
	Rows        string `arg:"" optional:"" default:"-" help:"JSON array of row objects ('-' reads stdin)."`
	Dimension   string `required:"" help:"Row key used as the slice label."`
	Metric      string `required:"" help:"Row key summed into slice values."`
	TopN        int    `name:"top-n" default:"8" help:"Number of slices kept before grouping (3-20)."`
	NoOthers    bool   `name:"no-others" help:"Drop the remainder instead of grouping it."`
	OthersLabel string `name:"others-label" default:"Outros" help:"Label of the grouped remainder slice."`
}

func (cmd *pieCmd) Run(env *runEnv) error {
	data, err := readInput(env, cmd.Rows)
	if err != nil {
		return err
	}
	var rows []reports.Row
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		return fmt.Errorf("reportctl: parse rows: %w", err)
	}
	slices := reports.AggregatePieSeries(rows, cmd.Dimension, cmd.Metric, reports.PieSeriesOptions{
		TopN:        cmd.TopN,
		ShowOthers:  !cmd.NoOthers,
		OthersLabel: cmd.OthersLabel,
	})
	return env.print(map[string]any{"slices": slices})
}

type rangeCmd struct {
	Preset  string `default:"custom" help:"Date preset (last_7_days, last-30-days, custom)."`
	Start   string `help:"Explicit start date (YYYY-MM-DD)."`
	End     string `help:"Explicit end date (YYYY-MM-DD)."`
	Compare string `help:"Comparison mode (previous_period, previous-year)."`
}

func (cmd *rangeCmd) Run(env *runEnv) error {
	resolver := reports.DateRangeResolver{Now: env.now}
	bounds, err := resolver.Resolve(reports.DateRange{
		Preset: reports.Preset(normalizeEnum(cmd.Preset)),
		Start:  cmd.Start,
		End:    cmd.End,
	})
	if err != nil {
		return err
	}
	out := map[string]any{"range": bounds, "days": bounds.Days()}
	if cmd.Compare != "" {
		cmp, err := reports.ComparisonRange(bounds, reports.CompareMode(normalizeEnum(cmd.Compare)))
		if err != nil {
			return err
		}
		out["comparisonRange"] = cmp
	}
	return env.print(out)
}

type layoutCmd struct {
	Document string   `arg:"" type:"existingfile" help:"Dashboard document (YAML or JSON)."`
	Move     []string `sep:"none" help:"Move a widget: id=x,y (repeatable)."`
	Resize   []string `sep:"none" help:"Resize a widget: id=w,h (repeatable)."`
	Undo     int      `help:"Undo the last N edits."`
	Limit    int      `help:"Undo history depth (0 uses the configured history limit)."`
}

func (cmd *layoutCmd) Run(env *runEnv) error {
	doc, err := reports.ReadDashboardDocument(cmd.Document)
	if err != nil {
		return err
	}
	limit := cmd.Limit
	if limit == 0 {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		limit = cfg.HistoryLimit
	}
	editor := reports.NewLayoutEditor(doc.Dashboard().Published.Tree.Flatten(),
		reports.WithLimit[[]reports.Widget](limit),
	)
	for _, edit := range cmd.Move {
		id, x, y, err := parseEdit(edit)
		if err != nil {
			return err
		}
		if err := editor.Move(id, x, y); err != nil {
			return err
		}
	}
	for _, edit := range cmd.Resize {
		id, w, h, err := parseEdit(edit)
		if err != nil {
			return err
		}
		if err := editor.Resize(id, w, h); err != nil {
			return err
		}
	}
	for i := 0; i < cmd.Undo; i++ {
		if !editor.Undo() {
			break
		}
	}
	return env.print(map[string]any{
		"widgets": editor.Widgets(),
		"canUndo": editor.History().CanUndo(),
		"canRedo": editor.History().CanRedo(),
	})
}

// parseEdit splits "id=a,b" into its parts.
func parseEdit(edit string) (string, int, int, error) {
	id, coords, ok := strings.Cut(edit, "=")
	if !ok || strings.TrimSpace(id) == "" {
		return "", 0, 0, fmt.Errorf("reportctl: edit %q must look like id=a,b", edit)
	}
	first, second, ok := strings.Cut(coords, ",")
	if !ok {
		return "", 0, 0, fmt.Errorf("reportctl: edit %q must look like id=a,b", edit)
	}
	a, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return "", 0, 0, fmt.Errorf("reportctl: edit %q: %w", edit, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(second))
	if err != nil {
		return "", 0, 0, fmt.Errorf("reportctl: edit %q: %w", edit, err)
	}
	return strings.TrimSpace(id), a, b, nil
}

// normalizeEnum accepts kebab or camel spellings of snake_case enum values.
func normalizeEnum(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return strcase.ToSnake(value)
}

func readInput(env *runEnv, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(env.in)
		if err != nil {
			return nil, fmt.Errorf("reportctl: read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reportctl: read %s: %w", path, err)
	}
	return data, nil
}

// print renders v through JSON first so yaml output uses the wire field names.
func (env *runEnv) print(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("reportctl: encode output: %w", err)
	}
	if env.format == "json" {
		_, err := fmt.Fprintln(env.out, string(raw))
		return err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("reportctl: encode output: %w", err)
	}
	encoder := yaml.NewEncoder(env.out)
	encoder.SetIndent(2)
	defer encoder.Close()
	if err := encoder.Encode(generic); err != nil {
		return fmt.Errorf("reportctl: write output: %w", err)
	}
	return nil
}
