package reports

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `
version: 1
id: monthly
tenantId: acme
brandId: 3f2b8c9a-1d4e-4b7a-9c2f-5e6d7a8b9c0d
name: Monthly performance
pages:
  - id: overview
    widgets:
      - id: split
        type: donut
        title: Spend split
        layout: {x: 0, y: 0, w: 6, h: 4}
        viz:
          pie:
            topN: 5
            othersLabel: Resto
        query:
          brandId: 3f2b8c9a-1d4e-4b7a-9c2f-5e6d7a8b9c0d
          dateRange: {preset: last_30_days}
          dimensions: [platform]
          metrics: [spend]
          filters:
            - {field: platform, op: in, value: [META_ADS, GOOGLE_ADS]}
widgets:
  - id: notes
    type: text
connections:
  - {platform: META_ADS, status: CONNECTED}
`

func TestDecodeDashboardDocument(t *testing.T) {
	doc, err := DecodeDashboardDocument(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, DocumentVersion, doc.Version)
	dashboard := doc.Dashboard()
	require.NotNil(t, dashboard.Published)
	widgets := dashboard.Published.Tree.Flatten()
	require.Len(t, widgets, 2)

	split := widgets[0]
	assert.Equal(t, WidgetDonut, split.Type)
	require.NotNil(t, split.Query)
	assert.Equal(t, []string{"META_ADS", "GOOGLE_ADS"}, split.Query.Platforms())
	assert.Equal(t, PieSeriesOptions{TopN: 5, ShowOthers: true, OthersLabel: "Resto"}, PieOptionsFromViz(split.Viz))

	result := EvaluateHealth(dashboard, doc.Connections)
	assert.Equal(t, HealthBlocked, result.Status)
	assert.Equal(t, []string{"GOOGLE_ADS"}, result.MissingPlatforms)
}

func TestDecodeDashboardDocumentRejectsUnknownFields(t *testing.T) {
	_, err := DecodeDashboardDocument(strings.NewReader("id: x\nlayoutz: []\n"))
	assert.Error(t, err)
}

func TestDecodeDashboardDocumentValidation(t *testing.T) {
	_, err := DecodeDashboardDocument(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty")

	_, err = DecodeDashboardDocument(strings.NewReader("version: 2\nid: x\n"))
	assert.ErrorContains(t, err, "unsupported")

	_, err = DecodeDashboardDocument(strings.NewReader("widgets:\n  - id: a\n"))
	assert.ErrorContains(t, err, "missing id")

	_, err = DecodeDashboardDocument(strings.NewReader("id: x\nwidgets:\n  - id: a\n  - id: a\n"))
	assert.ErrorContains(t, err, "duplicates")
}

func TestReadDashboardDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0o600))

	doc, err := ReadDashboardDocument(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Source)
	assert.Equal(t, "monthly", doc.ID)

	_, err = ReadDashboardDocument(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
