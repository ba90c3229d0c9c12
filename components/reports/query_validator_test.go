package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBrandID = "3f2b8c9a-1d4e-4b7a-9c2f-5e6d7a8b9c0d"

func validPayload() map[string]any {
	return map[string]any{
		"brandId": testBrandID,
		"dateRange": map[string]any{
			"preset": "custom",
			"start":  "2024-01-01",
			"end":    "2024-01-31",
		},
		"dimensions": []any{"platform", "date"},
		"metrics":    []any{"spend", "clicks"},
		"filters": []any{
			map[string]any{"field": "platform", "op": "in", "value": []any{"META_ADS", "GOOGLE_ADS"}},
		},
	}
}

func paths(errs FieldErrors) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Path)
	}
	return out
}

func TestValidateMetricsQueryNormalizes(t *testing.T) {
	query, errs := ValidateMetricsQuery(validPayload())
	require.Empty(t, errs)

	assert.Equal(t, testBrandID, query.BrandID)
	assert.Equal(t, []Dimension{DimensionPlatform, DimensionDate}, query.Dimensions)
	assert.Equal(t, []string{"spend", "clicks"}, query.Metrics)
	require.Len(t, query.Filters, 1)
	assert.Equal(t, []string{"META_ADS", "GOOGLE_ADS"}, query.Filters[0].Value.Values())
	require.NotNil(t, query.Pagination)
	assert.Equal(t, Pagination{Limit: 25, Offset: 0}, *query.Pagination)
	assert.Nil(t, query.Sort)
	assert.Nil(t, query.CompareTo)
}

func TestValidateKeepsDuplicateDimensionsInOrder(t *testing.T) {
	payload := validPayload()
	payload["dimensions"] = []any{"date", "platform", "date"}

	query, errs := ValidateMetricsQuery(payload)
	require.Empty(t, errs)
	assert.Equal(t, []Dimension{DimensionDate, DimensionPlatform, DimensionDate}, query.Dimensions)
}

func TestValidateCustomMissingStartReportsStartOnly(t *testing.T) {
	payload := validPayload()
	payload["dateRange"] = map[string]any{"preset": "custom", "end": "2024-01-31"}

	_, errs := ValidateMetricsQuery(payload)
	require.Len(t, errs, 1)
	assert.Equal(t, "dateRange.start", errs[0].Path)
}

func TestValidateCustomMissingBothDates(t *testing.T) {
	payload := validPayload()
	payload["dateRange"] = map[string]any{"preset": "custom"}

	_, errs := ValidateMetricsQuery(payload)
	require.Len(t, errs, 1)
	assert.Equal(t, "dateRange", errs[0].Path)
	assert.Equal(t, "start and end are required", errs[0].Message)
}

func TestValidateLegacyExplicitModeRequiresDates(t *testing.T) {
	payload := validPayload()
	payload["dateRange"] = map[string]any{"start": "2024-01-01"}

	_, errs := ValidateMetricsQuery(payload)
	require.Len(t, errs, 1)
	assert.Equal(t, "dateRange.end", errs[0].Path)
}

func TestValidateRelativePresetWithoutDates(t *testing.T) {
	payload := validPayload()
	payload["dateRange"] = map[string]any{"preset": "last_7_days"}

	query, errs := ValidateMetricsQuery(payload)
	require.Empty(t, errs)
	assert.Equal(t, PresetLast7Days, query.DateRange.Preset)
}

func TestValidateRelativePresetRequiresBothDatesTogether(t *testing.T) {
	payload := validPayload()
	payload["dateRange"] = map[string]any{"preset": "last_30_days", "start": "2024-01-01"}

	_, errs := ValidateMetricsQuery(payload)
	require.Len(t, errs, 1)
	assert.Equal(t, "dateRange.end", errs[0].Path)
}

func TestValidateUnparsableDateIsPerField(t *testing.T) {
	payload := validPayload()
	payload["dateRange"] = map[string]any{"preset": "custom", "start": "2024-13-01", "end": "2024-01-31"}

	_, errs := ValidateMetricsQuery(payload)
	require.Len(t, errs, 1)
	assert.Equal(t, "dateRange.start", errs[0].Path)
	assert.Equal(t, "invalid date", errs[0].Message)
}

func TestValidateStartAfterEnd(t *testing.T) {
	payload := validPayload()
	payload["dateRange"] = map[string]any{"preset": "custom", "start": "2024-02-01", "end": "2024-01-31"}

	_, errs := ValidateMetricsQuery(payload)
	require.Len(t, errs, 1)
	assert.Equal(t, "dateRange", errs[0].Path)
}

func TestValidateBrandID(t *testing.T) {
	payload := validPayload()
	delete(payload, "brandId")
	_, errs := ValidateMetricsQuery(payload)
	assert.Equal(t, []string{"brandId"}, paths(errs))

	payload["brandId"] = "acme"
	_, errs = ValidateMetricsQuery(payload)
	require.Len(t, errs, 1)
	assert.Equal(t, "brandId must be a UUID", errs[0].Message)
}

func TestValidateMetrics(t *testing.T) {
	payload := validPayload()
	payload["metrics"] = []any{}
	_, errs := ValidateMetricsQuery(payload)
	assert.Equal(t, []string{"metrics"}, paths(errs))

	payload["metrics"] = []any{"spend", " "}
	_, errs = ValidateMetricsQuery(payload)
	assert.Equal(t, []string{"metrics.1"}, paths(errs))
}

func TestValidateUnknownDimension(t *testing.T) {
	payload := validPayload()
	payload["dimensions"] = []any{"country"}

	_, errs := ValidateMetricsQuery(payload)
	assert.Equal(t, []string{"dimensions.0"}, paths(errs))
}

func TestValidateFilterValueShape(t *testing.T) {
	cases := map[string]map[string]any{
		"eq with list":       {"field": "platform", "op": "eq", "value": []any{"META_ADS"}},
		"in with scalar":     {"field": "platform", "op": "in", "value": "META_ADS"},
		"in with empty list": {"field": "platform", "op": "in", "value": []any{}},
		"missing value":      {"field": "platform", "op": "eq"},
	}
	for name, filter := range cases {
		t.Run(name, func(t *testing.T) {
			payload := validPayload()
			payload["filters"] = []any{filter}
			_, errs := ValidateMetricsQuery(payload)
			assert.Equal(t, []string{"filters.0.value"}, paths(errs))
		})
	}
}

func TestValidateEqFilterScalar(t *testing.T) {
	payload := validPayload()
	payload["filters"] = []any{map[string]any{"field": "account_id", "op": "eq", "value": "act_1"}}

	query, errs := ValidateMetricsQuery(payload)
	require.Empty(t, errs)
	assert.False(t, query.Filters[0].Value.IsList)
	assert.Equal(t, "act_1", query.Filters[0].Value.Scalar)
}

func TestValidatePaginationClampsLimit(t *testing.T) {
	payload := validPayload()
	payload["pagination"] = map[string]any{"limit": 900, "offset": 10}
	query, errs := ValidateMetricsQuery(payload)
	require.Empty(t, errs)
	assert.Equal(t, Pagination{Limit: 500, Offset: 10}, *query.Pagination)

	payload["pagination"] = map[string]any{"limit": 0}
	query, errs = ValidateMetricsQuery(payload)
	require.Empty(t, errs)
	assert.Equal(t, 1, query.Pagination.Limit)

	payload["pagination"] = map[string]any{"offset": -1}
	_, errs = ValidateMetricsQuery(payload)
	assert.Equal(t, []string{"pagination.offset"}, paths(errs))
}

func TestValidateSortDefaultsDirection(t *testing.T) {
	payload := validPayload()
	payload["sort"] = map[string]any{"field": "spend"}

	query, errs := ValidateMetricsQuery(payload)
	require.Empty(t, errs)
	assert.Equal(t, Sort{Field: "spend", Direction: "desc"}, *query.Sort)

	payload["sort"] = map[string]any{"direction": "asc"}
	_, errs = ValidateMetricsQuery(payload)
	assert.Equal(t, []string{"sort.field"}, paths(errs))
}

func TestValidateCompareMode(t *testing.T) {
	payload := validPayload()
	payload["compareTo"] = map[string]any{"mode": "previous_year"}
	query, errs := ValidateMetricsQuery(payload)
	require.Empty(t, errs)
	assert.Equal(t, ComparePreviousYear, query.CompareTo.Mode)

	payload["compareTo"] = map[string]any{"mode": "last_week"}
	_, errs = ValidateMetricsQuery(payload)
	assert.Equal(t, []string{"compareTo.mode"}, paths(errs))
}

func TestValidateRejectsUnknownKeys(t *testing.T) {
	payload := validPayload()
	payload["metricz"] = []any{"spend"}
	_, errs := ValidateMetricsQuery(payload)
	require.Len(t, errs, 1)
	assert.Equal(t, "", errs[0].Path)
	assert.Contains(t, errs[0].Message, "metricz")

	payload = validPayload()
	payload["dateRange"] = map[string]any{"preset": "custom", "start": "2024-01-01", "end": "2024-01-31", "tz": "UTC"}
	_, errs = ValidateMetricsQuery(payload)
	require.Len(t, errs, 1)
	assert.Equal(t, "dateRange", errs[0].Path)
	assert.Contains(t, errs[0].Message, "tz")
}

func TestValidateCollectsAllViolationsInPrecedenceOrder(t *testing.T) {
	payload := map[string]any{
		"dateRange": map[string]any{"preset": "custom", "start": "nope", "end": "2024-01-31"},
		"metrics":   []any{},
		"filters": []any{
			map[string]any{"field": "platform", "op": "in", "value": []any{}},
		},
		"pagination": map[string]any{"offset": -5},
	}

	_, errs := ValidateMetricsQuery(payload)
	assert.Equal(t, []string{
		"brandId",
		"dateRange.start",
		"metrics",
		"filters.0.value",
		"pagination.offset",
	}, paths(errs))
	assert.Contains(t, errs.Error(), "brandId: brandId is required")
}

func TestValidateJSONRejectsNonObjects(t *testing.T) {
	v := NewQueryValidator()
	_, errs := v.ValidateJSON([]byte(`[1,2]`))
	require.Len(t, errs, 1)

	_, errs = v.ValidateJSON([]byte(`{`))
	require.Len(t, errs, 1)
}

func TestValidateQueryRoundTripsTypedQueries(t *testing.T) {
	query, errs := ValidateMetricsQuery(validPayload())
	require.Empty(t, errs)

	again, errs := NewQueryValidator().ValidateQuery(query)
	require.Empty(t, errs)
	assert.Equal(t, query, again)
}

func TestValidateQueryDefaultsUnsetLimit(t *testing.T) {
	query, errs := ValidateMetricsQuery(validPayload())
	require.Empty(t, errs)
	query.Pagination = &Pagination{Offset: 10}

	typed, errs := NewQueryValidator().ValidateQuery(query)
	require.Empty(t, errs)
	assert.Equal(t, Pagination{Limit: 25, Offset: 10}, *typed.Pagination)

	payload := validPayload()
	payload["pagination"] = map[string]any{"offset": 10}
	raw, errs := ValidateMetricsQuery(payload)
	require.Empty(t, errs)
	assert.Equal(t, *raw.Pagination, *typed.Pagination)
}

func TestValidateOrdersIndexedPathsNumerically(t *testing.T) {
	metrics := make([]any, 12)
	for i := range metrics {
		metrics[i] = "spend"
	}
	metrics[2] = ""
	metrics[10] = ""
	payload := validPayload()
	payload["metrics"] = metrics

	_, errs := ValidateMetricsQuery(payload)
	require.Len(t, errs, 2)
	assert.Equal(t, []string{"metrics.2", "metrics.10"}, paths(errs))
}

func TestComparePaths(t *testing.T) {
	assert.Negative(t, comparePaths("filters.2.value", "filters.10.field"))
	assert.Negative(t, comparePaths("metrics", "metrics.0"))
	assert.Positive(t, comparePaths("sort.field", "sort.direction"))
	assert.Zero(t, comparePaths("dateRange.start", "dateRange.start"))
}

func TestFieldErrorsPrefixed(t *testing.T) {
	errs := FieldErrors{{Path: "metrics", Message: "x"}, {Path: "", Message: "y"}}
	prefixed := errs.Prefixed("widgets.w1")
	assert.Equal(t, []string{"widgets.w1.metrics", "widgets.w1"}, paths(prefixed))
	assert.True(t, prefixed.HasPath("widgets.w1.metrics"))

	got, ok := AsFieldErrors(error(prefixed))
	require.True(t, ok)
	assert.Len(t, got, 2)
}
