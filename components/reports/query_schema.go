package reports

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const metricsQuerySchemaName = "metrics_query.json"

// MetricsQuerySchema returns the strict JSON schema for the query wire shape.
// It covers structure only (types, enums, unknown keys); semantic rules live in
// QueryValidator.
func MetricsQuerySchema() map[string]any {
	str := map[string]any{"type": "string"}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"brandId":  str,
			"widgetId": str,
			"dateRange": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"preset": map[string]any{"enum": []any{nil, string(PresetLast7Days), string(PresetLast30Days), string(PresetCustom)}},
					"start":  map[string]any{"type": []string{"string", "null"}},
					"end":    map[string]any{"type": []string{"string", "null"}},
				},
			},
			"dimensions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"enum": []string{string(DimensionDate), string(DimensionPlatform), string(DimensionAccountID), string(DimensionCampaignID)},
				},
			},
			"metrics": map[string]any{
				"type":  "array",
				"items": str,
			},
			"filters": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"field": map[string]any{"enum": []string{string(FilterPlatform), string(FilterCampaignID), string(FilterAccountID)}},
						"op":    map[string]any{"enum": []string{string(OpEq), string(OpIn)}},
						"value": map[string]any{
							"type":  []string{"string", "array"},
							"items": str,
						},
					},
				},
			},
			"compareTo": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"mode": map[string]any{"enum": []string{string(ComparePreviousPeriod), string(ComparePreviousYear)}},
				},
			},
			"pagination": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"limit":  map[string]any{"type": "integer"},
					"offset": map[string]any{"type": "integer"},
				},
			},
			"sort": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"field":     str,
					"direction": map[string]any{"enum": []string{"asc", "desc"}},
				},
			},
		},
	}
}

type compiledSchema struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

func (c *compiledSchema) get() (*jsonschema.Schema, error) {
	c.once.Do(func() {
		data, err := json.Marshal(MetricsQuerySchema())
		if err != nil {
			c.err = fmt.Errorf("reports: marshal query schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(metricsQuerySchemaName, bytes.NewReader(data)); err != nil {
			c.err = fmt.Errorf("reports: load query schema: %w", err)
			return
		}
		c.schema, c.err = compiler.Compile(metricsQuerySchemaName)
		if c.err != nil {
			c.err = fmt.Errorf("reports: compile query schema: %w", c.err)
		}
	})
	return c.schema, c.err
}

// schemaViolations flattens a jsonschema error tree into leaf field errors.
func schemaViolations(schema *jsonschema.Schema, doc any) FieldErrors {
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return FieldErrors{{Path: "", Message: err.Error()}}
	}
	var out FieldErrors
	collectLeaves(verr, &out)
	return out
}

func collectLeaves(verr *jsonschema.ValidationError, out *FieldErrors) {
	if len(verr.Causes) == 0 {
		*out = append(*out, FieldError{
			Path:    pointerToPath(verr.InstanceLocation),
			Message: verr.Message,
		})
		return
	}
	for _, cause := range verr.Causes {
		collectLeaves(cause, out)
	}
}

func pointerToPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "#")
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return ""
	}
	parts := strings.Split(pointer, "/")
	for i, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		parts[i] = strings.ReplaceAll(part, "~0", "~")
	}
	return strings.Join(parts, ".")
}
