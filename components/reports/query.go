package reports

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Dimension is a grouping key supported by the analytics backend.
type Dimension string

const (
	DimensionDate       Dimension = "date"
	DimensionPlatform   Dimension = "platform"
	DimensionAccountID  Dimension = "account_id"
	DimensionCampaignID Dimension = "campaign_id"
)

// FilterField names a filterable column.
type FilterField string

const (
	FilterPlatform   FilterField = "platform"
	FilterCampaignID FilterField = "campaign_id"
	FilterAccountID  FilterField = "account_id"
)

// FilterOp is a filter comparison operator.
type FilterOp string

const (
	OpEq FilterOp = "eq"
	OpIn FilterOp = "in"
)

const (
	defaultPageLimit = 25
	minPageLimit     = 1
	maxPageLimit     = 500
)

// FilterValue holds either a scalar string (eq) or a string list (in).
type FilterValue struct {
	Scalar string
	List   []string
	IsList bool
}

// StringValue builds a scalar filter value.
func StringValue(v string) FilterValue { return FilterValue{Scalar: v} }

// ListValue builds a list filter value.
func ListValue(v ...string) FilterValue { return FilterValue{List: v, IsList: true} }

// Values returns the value as a list regardless of its form.
func (v FilterValue) Values() []string {
	if v.IsList {
		return v.List
	}
	if v.Scalar == "" {
		return nil
	}
	return []string{v.Scalar}
}

func (v FilterValue) MarshalJSON() ([]byte, error) {
	if v.IsList {
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return json.Marshal(v.Scalar)
}

func (v *FilterValue) UnmarshalJSON(data []byte) error {
	var scalar string
	if err := json.Unmarshal(data, &scalar); err == nil {
		*v = FilterValue{Scalar: scalar}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("reports: filter value must be a string or string array")
	}
	*v = FilterValue{List: list, IsList: true}
	return nil
}

func (v FilterValue) MarshalYAML() (any, error) {
	if v.IsList {
		return v.List, nil
	}
	return v.Scalar, nil
}

func (v *FilterValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = FilterValue{Scalar: node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*v = FilterValue{List: list, IsList: true}
		return nil
	}
	return fmt.Errorf("reports: filter value must be a string or string list (line %d)", node.Line)
}

// Filter restricts query rows.
type Filter struct {
	Field FilterField `json:"field" yaml:"field"`
	Op    FilterOp    `json:"op" yaml:"op"`
	Value FilterValue `json:"value" yaml:"value"`
}

// CompareTo requests a comparison window.
type CompareTo struct {
	Mode CompareMode `json:"mode" yaml:"mode"`
}

// Pagination bounds the returned rows.
// A zero Limit means unset and takes the default.
type Pagination struct {
	Limit  int `json:"limit,omitempty" yaml:"limit"`
	Offset int `json:"offset" yaml:"offset"`
}

// Sort orders the returned rows.
type Sort struct {
	Field     string `json:"field" yaml:"field"`
	Direction string `json:"direction" yaml:"direction"`
}

// MetricsQuery is a validated analytics request. Build a new one per render;
// do not mutate after validation.
type MetricsQuery struct {
	BrandID    string      `json:"brandId" yaml:"brandId"`
	WidgetID   string      `json:"widgetId,omitempty" yaml:"widgetId,omitempty"`
	DateRange  DateRange   `json:"dateRange" yaml:"dateRange"`
	Dimensions []Dimension `json:"dimensions" yaml:"dimensions"`
	Metrics    []string    `json:"metrics" yaml:"metrics"`
	Filters    []Filter    `json:"filters" yaml:"filters"`
	CompareTo  *CompareTo  `json:"compareTo,omitempty" yaml:"compareTo,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty" yaml:"pagination,omitempty"`
	Sort       *Sort       `json:"sort,omitempty" yaml:"sort,omitempty"`
}

// Platforms returns the platform values referenced by eq/in filters, in filter order.
func (q MetricsQuery) Platforms() []string {
	var out []string
	for _, f := range q.Filters {
		if f.Field != FilterPlatform {
			continue
		}
		if f.Op != OpEq && f.Op != OpIn {
			continue
		}
		out = append(out, f.Value.Values()...)
	}
	return out
}
