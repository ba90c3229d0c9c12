package reports

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// fieldRank orders errors by rule precedence of their top-level field.
var fieldRank = map[string]int{
	"brandId":    0,
	"dateRange":  1,
	"metrics":    2,
	"dimensions": 3,
	"filters":    4,
	"pagination": 5,
	"sort":       6,
	"compareTo":  7,
	"widgetId":   8,
}

// QueryValidator validates raw analytics queries. The zero value is not usable;
// build one with NewQueryValidator. Safe for concurrent use.
type QueryValidator struct {
	schema *compiledSchema
}

// NewQueryValidator builds a validator with a lazily compiled schema.
func NewQueryValidator() *QueryValidator {
	return &QueryValidator{schema: &compiledSchema{}}
}

var defaultQueryValidator = NewQueryValidator()

// ValidateMetricsQuery validates payload with the package default validator.
func ValidateMetricsQuery(payload map[string]any) (MetricsQuery, FieldErrors) {
	return defaultQueryValidator.Validate(payload)
}

// ValidateJSON decodes and validates a JSON request body.
func (v *QueryValidator) ValidateJSON(data []byte) (MetricsQuery, FieldErrors) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return MetricsQuery{}, FieldErrors{{Path: "", Message: "body is not valid JSON: " + err.Error()}}
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return MetricsQuery{}, FieldErrors{{Path: "", Message: "query must be a JSON object"}}
	}
	return v.validateDocument(obj)
}

// ValidateQuery re-validates a typed query, e.g. a widget query loaded from storage.
func (v *QueryValidator) ValidateQuery(q MetricsQuery) (MetricsQuery, FieldErrors) {
	if q.Dimensions == nil {
		q.Dimensions = []Dimension{}
	}
	if q.Metrics == nil {
		q.Metrics = []string{}
	}
	if q.Filters == nil {
		q.Filters = []Filter{}
	}
	data, err := json.Marshal(q)
	if err != nil {
		return MetricsQuery{}, FieldErrors{{Path: "", Message: err.Error()}}
	}
	return v.ValidateJSON(data)
}

// Validate checks payload against the strict schema and every semantic rule,
// returning either the normalized query or all violations at once.
func (v *QueryValidator) Validate(payload map[string]any) (MetricsQuery, FieldErrors) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return MetricsQuery{}, FieldErrors{{Path: "", Message: fmt.Sprintf("query is not serializable: %v", err)}}
	}
	return v.ValidateJSON(data)
}

func (v *QueryValidator) validateDocument(doc map[string]any) (MetricsQuery, FieldErrors) {
	schema, err := v.schema.get()
	if err != nil {
		return MetricsQuery{}, FieldErrors{{Path: "", Message: err.Error()}}
	}
	errs := schemaViolations(schema, doc)
	errs = append(errs, semanticViolations(doc)...)
	if len(errs) > 0 {
		sortFieldErrors(errs)
		return MetricsQuery{}, errs
	}
	query, err := decodeQuery(doc)
	if err != nil {
		return MetricsQuery{}, FieldErrors{{Path: "", Message: err.Error()}}
	}
	return query, nil
}

func sortFieldErrors(errs FieldErrors) {
	rank := func(path string) int {
		top := path
		if idx := strings.Index(path, "."); idx >= 0 {
			top = path[:idx]
		}
		if r, ok := fieldRank[top]; ok {
			return r
		}
		return len(fieldRank)
	}
	sort.SliceStable(errs, func(i, j int) bool {
		ri, rj := rank(errs[i].Path), rank(errs[j].Path)
		if ri != rj {
			return ri < rj
		}
		return comparePaths(errs[i].Path, errs[j].Path) < 0
	})
}

// comparePaths orders dotted paths segment by segment, numeric segments by value.
func comparePaths(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}
		ai, aErr := strconv.Atoi(as[i])
		bi, bErr := strconv.Atoi(bs[i])
		switch {
		case aErr == nil && bErr == nil:
			return cmp.Compare(ai, bi)
		case aErr == nil:
			return -1
		case bErr == nil:
			return 1
		}
		return strings.Compare(as[i], bs[i])
	}
	return cmp.Compare(len(as), len(bs))
}

func semanticViolations(doc map[string]any) FieldErrors {
	var errs FieldErrors
	errs = append(errs, checkBrand(doc)...)
	errs = append(errs, checkDateRange(doc)...)
	errs = append(errs, checkMetrics(doc)...)
	errs = append(errs, checkFilters(doc)...)
	errs = append(errs, checkPagination(doc)...)
	errs = append(errs, checkSort(doc)...)
	errs = append(errs, checkCompare(doc)...)
	return errs
}

func checkBrand(doc map[string]any) FieldErrors {
	raw, present := doc["brandId"]
	if !present || raw == nil {
		return FieldErrors{{Path: "brandId", Message: "brandId is required"}}
	}
	id, ok := raw.(string)
	if !ok {
		return nil
	}
	if strings.TrimSpace(id) == "" {
		return FieldErrors{{Path: "brandId", Message: "brandId is required"}}
	}
	if _, err := uuid.Parse(id); err != nil {
		return FieldErrors{{Path: "brandId", Message: "brandId must be a UUID"}}
	}
	return nil
}

func checkDateRange(doc map[string]any) FieldErrors {
	raw, present := doc["dateRange"]
	if !present || raw == nil {
		return FieldErrors{{Path: "dateRange", Message: "dateRange is required"}}
	}
	dr, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	var errs FieldErrors
	preset := Preset("")
	if p, ok := dr["preset"].(string); ok {
		preset = Preset(p)
	}
	hasStart := hasValue(dr["start"])
	hasEnd := hasValue(dr["end"])

	switch {
	case preset == PresetNone || preset == PresetCustom:
		switch {
		case !hasStart && !hasEnd:
			errs = append(errs, FieldError{Path: "dateRange", Message: "start and end are required"})
		case !hasStart:
			errs = append(errs, FieldError{Path: "dateRange.start", Message: "start is required"})
		case !hasEnd:
			errs = append(errs, FieldError{Path: "dateRange.end", Message: "end is required"})
		}
	case preset.Relative():
		if hasStart != hasEnd {
			missing := "dateRange.start"
			if hasStart {
				missing = "dateRange.end"
			}
			errs = append(errs, FieldError{Path: missing, Message: "start and end must be supplied together"})
		}
	}

	start, startOK := parseDateField(dr, "start", &errs)
	end, endOK := parseDateField(dr, "end", &errs)
	if startOK && endOK && start.After(end) {
		errs = append(errs, FieldError{Path: "dateRange", Message: "start must be on or before end"})
	}
	return errs
}

func hasValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	}
	return true
}

func parseDateField(dr map[string]any, field string, errs *FieldErrors) (time.Time, bool) {
	s, isString := dr[field].(string)
	if !isString || strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	parsed, err := ParseCalendarDate(field, s)
	if err != nil {
		*errs = append(*errs, FieldError{Path: "dateRange." + field, Message: "invalid date"})
		return time.Time{}, false
	}
	return parsed, true
}

func checkMetrics(doc map[string]any) FieldErrors {
	raw, present := doc["metrics"]
	if !present || raw == nil {
		return FieldErrors{{Path: "metrics", Message: "at least one metric is required"}}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	if len(list) == 0 {
		return FieldErrors{{Path: "metrics", Message: "at least one metric is required"}}
	}
	var errs FieldErrors
	for i, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) == "" {
			errs = append(errs, FieldError{Path: fmt.Sprintf("metrics.%d", i), Message: "metric must be a non-empty string"})
		}
	}
	return errs
}

func checkFilters(doc map[string]any) FieldErrors {
	list, ok := doc["filters"].([]any)
	if !ok {
		return nil
	}
	var errs FieldErrors
	for i, item := range list {
		filter, ok := item.(map[string]any)
		if !ok {
			continue
		}
		base := fmt.Sprintf("filters.%d", i)
		if !hasValue(filter["field"]) {
			errs = append(errs, FieldError{Path: base + ".field", Message: "field is required"})
		}
		if !hasValue(filter["op"]) {
			errs = append(errs, FieldError{Path: base + ".op", Message: "op is required"})
		}
		value, hasVal := filter["value"]
		if !hasVal || value == nil {
			errs = append(errs, FieldError{Path: base + ".value", Message: "value is required"})
			continue
		}
		switch FilterOp(stringOr(filter["op"], "")) {
		case OpEq:
			if _, isList := value.([]any); isList {
				errs = append(errs, FieldError{Path: base + ".value", Message: "eq filter requires a single string value"})
			}
		case OpIn:
			values, isList := value.([]any)
			if !isList || len(values) == 0 {
				errs = append(errs, FieldError{Path: base + ".value", Message: "in filter requires a non-empty array of strings"})
			}
		}
	}
	return errs
}

func checkPagination(doc map[string]any) FieldErrors {
	page, ok := doc["pagination"].(map[string]any)
	if !ok {
		return nil
	}
	num, ok := page["offset"].(json.Number)
	if !ok {
		return nil
	}
	if offset, err := num.Int64(); err == nil && offset < 0 {
		return FieldErrors{{Path: "pagination.offset", Message: "offset must be >= 0"}}
	}
	return nil
}

func checkSort(doc map[string]any) FieldErrors {
	s, ok := doc["sort"].(map[string]any)
	if !ok {
		return nil
	}
	if !hasValue(s["field"]) {
		return FieldErrors{{Path: "sort.field", Message: "sort field is required"}}
	}
	return nil
}

func checkCompare(doc map[string]any) FieldErrors {
	c, ok := doc["compareTo"].(map[string]any)
	if !ok {
		return nil
	}
	if !hasValue(c["mode"]) {
		return FieldErrors{{Path: "compareTo.mode", Message: "compare mode is required"}}
	}
	return nil
}

func decodeQuery(doc map[string]any) (MetricsQuery, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return MetricsQuery{}, fmt.Errorf("reports: encode query: %w", err)
	}
	var q MetricsQuery
	if err := json.Unmarshal(data, &q); err != nil {
		return MetricsQuery{}, fmt.Errorf("reports: decode query: %w", err)
	}
	if q.Dimensions == nil {
		q.Dimensions = []Dimension{}
	}
	if q.Filters == nil {
		q.Filters = []Filter{}
	}
	q.Pagination = normalizePagination(q.Pagination, doc)
	if q.Sort != nil && q.Sort.Direction == "" {
		q.Sort.Direction = "desc"
	}
	return q, nil
}

func normalizePagination(p *Pagination, doc map[string]any) *Pagination {
	out := &Pagination{Limit: defaultPageLimit}
	if p == nil {
		return out
	}
	out.Offset = p.Offset
	if raw, ok := doc["pagination"].(map[string]any); ok {
		if _, set := raw["limit"]; set {
			out.Limit = clampInt(p.Limit, minPageLimit, maxPageLimit)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func stringOr(value any, fallback string) string {
	if v, ok := value.(string); ok && v != "" {
		return v
	}
	return fallback
}
