package reports

import "strings"

// HealthStatus is the verdict of a dashboard health evaluation.
type HealthStatus string

const (
	HealthBlocked HealthStatus = "BLOCKED"
	HealthWarn    HealthStatus = "WARN"
	HealthOK      HealthStatus = "OK"
)

// HealthReason classifies one widget issue.
type HealthReason string

const (
	ReasonInvalidQuery      HealthReason = "INVALID_QUERY"
	ReasonMissingConnection HealthReason = "MISSING_CONNECTION"
)

// WidgetIssue is one itemized problem of a published widget.
type WidgetIssue struct {
	WidgetID string       `json:"widgetId"`
	Reason   HealthReason `json:"reason"`
	Platform string       `json:"platform,omitempty"`
}

// HealthResult is the outcome of EvaluateHealth.
type HealthResult struct {
	Status           HealthStatus  `json:"status"`
	MissingPlatforms []string      `json:"missingPlatforms"`
	InvalidWidgets   []WidgetIssue `json:"invalidWidgets"`
}

// Blocked reports whether the dashboard cannot serve live data.
func (r HealthResult) Blocked() bool { return r.Status == HealthBlocked }

// EvaluateHealth inspects the published version of dashboard against the tenant
// connections. It never fails: a dashboard without a published version, or one
// whose widgets reference no platform, yields WARN.
func EvaluateHealth(dashboard Dashboard, connections []Connection) HealthResult {
	result := HealthResult{
		Status:           HealthOK,
		MissingPlatforms: []string{},
		InvalidWidgets:   []WidgetIssue{},
	}
	if dashboard.Published == nil {
		result.Status = HealthWarn
		return result
	}
	widgets := dashboard.Published.Tree.Flatten()

	for _, w := range widgets {
		if invalidWidgetQuery(w) {
			result.InvalidWidgets = append(result.InvalidWidgets, WidgetIssue{WidgetID: w.ID, Reason: ReasonInvalidQuery})
		}
	}

	connected := map[string]bool{}
	for _, c := range connections {
		if c.Status == ConnectionConnected {
			connected[normalizePlatform(c.Platform)] = true
		}
	}

	required := requiredPlatforms(widgets)
	missing := map[string]bool{}
	for _, platform := range required {
		if connected[platform.name] {
			continue
		}
		if !missing[platform.name] {
			missing[platform.name] = true
			result.MissingPlatforms = append(result.MissingPlatforms, platform.name)
		}
		for _, id := range platform.widgets {
			result.InvalidWidgets = append(result.InvalidWidgets, WidgetIssue{
				WidgetID: id,
				Reason:   ReasonMissingConnection,
				Platform: platform.name,
			})
		}
	}

	switch {
	case len(result.MissingPlatforms) > 0:
		result.Status = HealthBlocked
	case len(result.InvalidWidgets) > 0, len(required) == 0:
		result.Status = HealthWarn
	}
	return result
}

func invalidWidgetQuery(w Widget) bool {
	if w.Query == nil || !w.Type.RequiresDimension() {
		return false
	}
	return len(w.Query.Dimensions) == 0 && len(w.Query.Metrics) > 0
}

type platformRequirement struct {
	name    string
	widgets []string
}

// requiredPlatforms collects platform filter values in first-seen order, with the
// widgets that reference each one.
func requiredPlatforms(widgets []Widget) []platformRequirement {
	index := map[string]int{}
	var out []platformRequirement
	for _, w := range widgets {
		if w.Query == nil {
			continue
		}
		seen := map[string]bool{}
		for _, raw := range w.Query.Platforms() {
			name := normalizePlatform(raw)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			i, ok := index[name]
			if !ok {
				i = len(out)
				index[name] = i
				out = append(out, platformRequirement{name: name})
			}
			out[i].widgets = append(out[i].widgets, w.ID)
		}
	}
	return out
}

func normalizePlatform(p string) string {
	return strings.ToUpper(strings.TrimSpace(p))
}
