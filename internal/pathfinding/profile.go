package pathfinding

import (
	"context"
	"sync/atomic"
	"time"
)

// NavigatorProfiler captures instrumentation hooks for path searches.
type NavigatorProfiler interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordChunkLoad(duration time.Duration)
	RecordTerrainFailure()
	RecordHeuristicEvaluation()
	RecordNodeExpanded()
	RecordNeighborGeneration(count int)
	RecordSearch(stats SearchStats)
}

// SearchStats summarises one Finder.Find call.
type SearchStats struct {
	Visited  int
	Reached  bool
	NoStart  bool
	Nodes    int
	Duration time.Duration
}

// NavigatorMetrics accumulates profiling counters across searches.
type NavigatorMetrics struct {
	cacheHits            atomic.Int64
	cacheMisses          atomic.Int64
	chunkLoads           atomic.Int64
	chunkLoadTime        atomic.Int64
	terrainFailures      atomic.Int64
	heuristicEvaluations atomic.Int64
	nodesExpanded        atomic.Int64
	neighborGenerations  atomic.Int64
	neighborCount        atomic.Int64
	searches             atomic.Int64
	searchesReached      atomic.Int64
	searchesNoStart      atomic.Int64
	searchTime           atomic.Int64
}

// MetricsSnapshot captures a point-in-time copy of navigator metrics.
type MetricsSnapshot struct {
	CacheHits            int64
	CacheMisses          int64
	ChunkLoads           int64
	ChunkLoadTime        time.Duration
	TerrainFailures      int64
	HeuristicEvaluations int64
	NodesExpanded        int64
	NeighborGenerations  int64
	NeighborCount        int64
	Searches             int64
	SearchesReached      int64
	SearchesNoStart      int64
	SearchTime           time.Duration
}

// Profiler returns a NavigatorProfiler implementation backed by this metric set.
func (m *NavigatorMetrics) Profiler() NavigatorProfiler {
	if m == nil {
		return nil
	}
	return (*metricsProfiler)(m)
}

// Reset zeroes all counters in the metrics set.
func (m *NavigatorMetrics) Reset() {
	if m == nil {
		return
	}
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.chunkLoads.Store(0)
	m.chunkLoadTime.Store(0)
	m.terrainFailures.Store(0)
	m.heuristicEvaluations.Store(0)
	m.nodesExpanded.Store(0)
	m.neighborGenerations.Store(0)
	m.neighborCount.Store(0)
	m.searches.Store(0)
	m.searchesReached.Store(0)
	m.searchesNoStart.Store(0)
	m.searchTime.Store(0)
}

// Snapshot captures the current counter values.
func (m *NavigatorMetrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		CacheHits:            m.cacheHits.Load(),
		CacheMisses:          m.cacheMisses.Load(),
		ChunkLoads:           m.chunkLoads.Load(),
		ChunkLoadTime:        time.Duration(m.chunkLoadTime.Load()),
		TerrainFailures:      m.terrainFailures.Load(),
		HeuristicEvaluations: m.heuristicEvaluations.Load(),
		NodesExpanded:        m.nodesExpanded.Load(),
		NeighborGenerations:  m.neighborGenerations.Load(),
		NeighborCount:        m.neighborCount.Load(),
		Searches:             m.searches.Load(),
		SearchesReached:      m.searchesReached.Load(),
		SearchesNoStart:      m.searchesNoStart.Load(),
		SearchTime:           time.Duration(m.searchTime.Load()),
	}
}

// metricsProfiler implements NavigatorProfiler by mutating the backing metrics set.
type metricsProfiler NavigatorMetrics

func (m *metricsProfiler) RecordCacheHit() {
	(*NavigatorMetrics)(m).cacheHits.Add(1)
}

func (m *metricsProfiler) RecordCacheMiss() {
	(*NavigatorMetrics)(m).cacheMisses.Add(1)
}

func (m *metricsProfiler) RecordChunkLoad(duration time.Duration) {
	metrics := (*NavigatorMetrics)(m)
	metrics.chunkLoads.Add(1)
	metrics.chunkLoadTime.Add(duration.Nanoseconds())
}

func (m *metricsProfiler) RecordTerrainFailure() {
	(*NavigatorMetrics)(m).terrainFailures.Add(1)
}

func (m *metricsProfiler) RecordHeuristicEvaluation() {
	(*NavigatorMetrics)(m).heuristicEvaluations.Add(1)
}

func (m *metricsProfiler) RecordNodeExpanded() {
	(*NavigatorMetrics)(m).nodesExpanded.Add(1)
}

func (m *metricsProfiler) RecordNeighborGeneration(count int) {
	metrics := (*NavigatorMetrics)(m)
	metrics.neighborGenerations.Add(1)
	metrics.neighborCount.Add(int64(count))
}

func (m *metricsProfiler) RecordSearch(stats SearchStats) {
	metrics := (*NavigatorMetrics)(m)
	metrics.searches.Add(1)
	if stats.Reached {
		metrics.searchesReached.Add(1)
	}
	if stats.NoStart {
		metrics.searchesNoStart.Add(1)
	}
	metrics.searchTime.Add(stats.Duration.Nanoseconds())
}

// MultiProfiler fans every hook out to each profiler in order.
type MultiProfiler []NavigatorProfiler

func (p MultiProfiler) RecordCacheHit() {
	for _, inner := range p {
		inner.RecordCacheHit()
	}
}

func (p MultiProfiler) RecordCacheMiss() {
	for _, inner := range p {
		inner.RecordCacheMiss()
	}
}

func (p MultiProfiler) RecordChunkLoad(duration time.Duration) {
	for _, inner := range p {
		inner.RecordChunkLoad(duration)
	}
}

func (p MultiProfiler) RecordTerrainFailure() {
	for _, inner := range p {
		inner.RecordTerrainFailure()
	}
}

func (p MultiProfiler) RecordHeuristicEvaluation() {
	for _, inner := range p {
		inner.RecordHeuristicEvaluation()
	}
}

func (p MultiProfiler) RecordNodeExpanded() {
	for _, inner := range p {
		inner.RecordNodeExpanded()
	}
}

func (p MultiProfiler) RecordNeighborGeneration(count int) {
	for _, inner := range p {
		inner.RecordNeighborGeneration(count)
	}
}

func (p MultiProfiler) RecordSearch(stats SearchStats) {
	for _, inner := range p {
		inner.RecordSearch(stats)
	}
}

type profilerContextKey struct{}

// ContextWithProfiler returns a context that will report the provided profiler during
// pathfinding operations.
func ContextWithProfiler(ctx context.Context, profiler NavigatorProfiler) context.Context {
	if profiler == nil {
		return ctx
	}
	return context.WithValue(ctx, profilerContextKey{}, profiler)
}

func profilerFromContext(ctx context.Context) NavigatorProfiler {
	if ctx == nil {
		return nil
	}
	if profiler, ok := ctx.Value(profilerContextKey{}).(NavigatorProfiler); ok {
		return profiler
	}
	return nil
}
