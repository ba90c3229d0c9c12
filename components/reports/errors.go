package reports

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPresetNotExpanded signals a relative preset without explicit dates; the
	// serving backend owns the expansion.
	ErrPresetNotExpanded = errors.New("reports: relative preset is resolved by the backend")
	// ErrDashboardNotFound is returned by stores when the dashboard does not exist for the tenant.
	ErrDashboardNotFound = errors.New("reports: dashboard not found")
	// ErrVersionNotFound is returned when publishing an unknown version.
	ErrVersionNotFound = errors.New("reports: dashboard version not found")

	errMissingDashboardStore  = errors.New("reports: dashboard store not configured")
	errMissingConnectionStore = errors.New("reports: connection store not configured")
	errMissingRowsRepository  = errors.New("reports: rows repository not configured")
)

// InvalidDateError reports a date string that could not be parsed.
type InvalidDateError struct {
	Field string
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("reports: invalid date %q for %s", e.Value, e.Field)
}

// FieldError is one violated constraint, tagged with the offending field path.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// FieldErrors collects every violation of a validation pass.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "reports: validation passed"
	}
	parts := make([]string, 0, len(e))
	for _, fe := range e {
		path := fe.Path
		if path == "" {
			path = "(root)"
		}
		parts = append(parts, path+": "+fe.Message)
	}
	return "reports: invalid query: " + strings.Join(parts, "; ")
}

// HasPath reports whether any error references the given path.
func (e FieldErrors) HasPath(path string) bool {
	for _, fe := range e {
		if fe.Path == path {
			return true
		}
	}
	return false
}

// Prefixed returns a copy with prefix prepended to every path.
func (e FieldErrors) Prefixed(prefix string) FieldErrors {
	if len(e) == 0 {
		return nil
	}
	out := make(FieldErrors, len(e))
	for i, fe := range e {
		out[i] = fe
		if fe.Path == "" {
			out[i].Path = prefix
		} else {
			out[i].Path = prefix + "." + fe.Path
		}
	}
	return out
}

// AsFieldErrors extracts FieldErrors from an error chain.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
