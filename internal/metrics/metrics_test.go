package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"voxelpath/internal/pathfinding"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestProfilerExportsSearchAggregates(t *testing.T) {
	m := New()
	var p pathfinding.NavigatorProfiler = m.Profiler("walk")
	p.RecordCacheHit()
	p.RecordCacheHit()
	p.RecordCacheMiss()
	p.RecordChunkLoad(2 * time.Millisecond)
	p.RecordTerrainFailure()
	p.RecordNodeExpanded()
	p.RecordSearch(pathfinding.SearchStats{Visited: 40, Nodes: 6, Reached: true, Duration: time.Millisecond})
	m.ObserveOutcome("walk", "ok")

	body := scrape(t, m)
	for _, want := range []string{
		`voxelpath_classification_cache_lookups_total{result="hit"} 2`,
		`voxelpath_classification_cache_lookups_total{result="miss"} 1`,
		`voxelpath_chunk_loads_total 1`,
		`voxelpath_terrain_failures_total 1`,
		`voxelpath_searches_total{mobility="walk",status="ok"} 1`,
		`voxelpath_search_nodes_visited_sum{mobility="walk"} 40`,
		`voxelpath_path_nodes_sum{mobility="walk"} 6`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
}

func TestInstancesDoNotShareRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveOutcome("fly", "partial")
	if strings.Contains(scrape(t, b), `status="partial"`) {
		t.Fatalf("second instance saw the first instance's counters")
	}
}
