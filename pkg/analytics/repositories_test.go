package analytics

import (
	"context"
	"testing"

	"github.com/goliatone/go-reports/components/reports"
)

func TestRepositoriesDelegateToClient(t *testing.T) {
	mock := NewMockClient(MockData{
		Rows: []reports.Row{
			{"platform": "META_ADS", "spend": 10},
			{"platform": "GOOGLE_ADS", "spend": 5},
			{"date": "2024-01-02", "spend": 1},
		},
		Connections: map[string][]reports.Connection{
			"acme": {{Platform: "META_ADS", Status: reports.ConnectionConnected}},
		},
	})

	repo := NewRowsRepository(mock)
	rows, err := repo.FetchRows(context.Background(), reports.MetricsQuery{
		Filters: []reports.Filter{{Field: reports.FilterPlatform, Op: reports.OpEq, Value: reports.StringValue("meta_ads")}},
	}, testBounds())
	if err != nil {
		t.Fatalf("fetch rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected matching row plus unfiltered row, got %#v", rows)
	}

	store := NewConnectionStore(mock)
	conns, err := store.Connections(context.Background(), "acme")
	if err != nil || len(conns) != 1 {
		t.Fatalf("connection store returned %v, %v", conns, err)
	}
	if conns, _ := store.Connections(context.Background(), "other"); len(conns) != 0 {
		t.Fatalf("expected no connections for unknown tenant, got %v", conns)
	}
}

func TestMockClientReturnsCopies(t *testing.T) {
	mock := NewMockClient(MockData{Rows: []reports.Row{{"platform": "GA4", "spend": 1}}})
	rows, _ := mock.FetchMetrics(context.Background(), reports.MetricsQuery{}, testBounds())
	rows[0]["spend"] = 99

	again, _ := mock.FetchMetrics(context.Background(), reports.MetricsQuery{}, testBounds())
	if again[0]["spend"] != 1 {
		t.Fatalf("mock rows mutated: %#v", again)
	}

	mock.SetRows(nil)
	empty, _ := mock.FetchMetrics(context.Background(), reports.MetricsQuery{}, testBounds())
	if len(empty) != 0 {
		t.Fatalf("expected no rows, got %#v", empty)
	}
}
