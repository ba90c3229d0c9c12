package reports

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	documentVersionV1 = "1"
	// DocumentVersion exposes the current dashboard document format version for tooling.
	DocumentVersion = documentVersionV1
)

// DashboardDocument models a YAML/JSON file describing a published dashboard and
// the tenant connections it is checked against.
type DashboardDocument struct {
	Version     string       `json:"version" yaml:"version"`
	ID          string       `json:"id" yaml:"id"`
	TenantID    string       `json:"tenantId" yaml:"tenantId"`
	BrandID     string       `json:"brandId,omitempty" yaml:"brandId,omitempty"`
	Name        string       `json:"name,omitempty" yaml:"name,omitempty"`
	Pages       []Page       `json:"pages,omitempty" yaml:"pages,omitempty"`
	Widgets     []Widget     `json:"widgets,omitempty" yaml:"widgets,omitempty"`
	Connections []Connection `json:"connections,omitempty" yaml:"connections,omitempty"`
	Source      string       `json:"-" yaml:"-"`
}

// Dashboard returns the document as a dashboard whose published version holds its widgets.
func (doc *DashboardDocument) Dashboard() Dashboard {
	versionID := doc.ID + "@document"
	return Dashboard{
		ID:                 doc.ID,
		TenantID:           doc.TenantID,
		BrandID:            doc.BrandID,
		Name:               doc.Name,
		PublishedVersionID: versionID,
		Published: &DashboardVersion{
			ID:          versionID,
			DashboardID: doc.ID,
			TenantID:    doc.TenantID,
			Number:      1,
			Tree:        WidgetTree{Pages: doc.Pages, Widgets: doc.Widgets},
		},
	}
}

// ReadDashboardDocument loads a dashboard document from disk.
func ReadDashboardDocument(path string) (*DashboardDocument, error) {
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reports: open dashboard document %s: %w", path, err)
	}
	defer f.Close()
	doc, err := DecodeDashboardDocument(f)
	if err != nil {
		return nil, fmt.Errorf("reports: decode dashboard document %s: %w", path, err)
	}
	doc.Source = path
	return doc, nil
}

// DecodeDashboardDocument reads a dashboard document from any reader. Unknown keys
// are rejected.
func DecodeDashboardDocument(r io.Reader) (*DashboardDocument, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	var doc DashboardDocument
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reports: dashboard document is empty")
		}
		return nil, fmt.Errorf("reports: parse dashboard document: %w", err)
	}
	if doc.Version == "" {
		doc.Version = documentVersionV1
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate ensures the document satisfies required fields.
func (doc *DashboardDocument) Validate() error {
	if doc.Version != documentVersionV1 {
		return fmt.Errorf("reports: unsupported dashboard document version %q", doc.Version)
	}
	if doc.ID == "" {
		return fmt.Errorf("reports: dashboard document is missing id")
	}
	seen := map[string]struct{}{}
	for idx, w := range (WidgetTree{Pages: doc.Pages, Widgets: doc.Widgets}).Flatten() {
		if w.ID == "" {
			return fmt.Errorf("reports: dashboard document widget at index %d is missing id", idx)
		}
		if _, exists := seen[w.ID]; exists {
			return fmt.Errorf("reports: dashboard document duplicates widget id %s", w.ID)
		}
		seen[w.ID] = struct{}{}
	}
	return nil
}
