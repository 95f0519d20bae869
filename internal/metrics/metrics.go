package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"voxelpath/internal/pathfinding"
)

// Metrics holds the Prometheus collectors for the path service. Each instance
// owns its registry so tests and multiple services do not collide.
type Metrics struct {
	registry *prometheus.Registry

	Searches          *prometheus.CounterVec
	SearchDuration    *prometheus.HistogramVec
	NodesVisited      *prometheus.HistogramVec
	PathLength        *prometheus.HistogramVec
	CacheLookups      *prometheus.CounterVec
	ChunkLoads        prometheus.Counter
	ChunkLoadDuration prometheus.Histogram
	TerrainFailures   prometheus.Counter
	CacheClears       prometheus.Counter
	QueueDepth        prometheus.Gauge
	BlockUpdates      prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Searches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voxelpath_searches_total",
				Help: "Path requests handled, labelled by mobility and outcome",
			},
			[]string{"mobility", "status"},
		),
		SearchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voxelpath_search_duration_seconds",
				Help:    "Wall time spent inside a single search",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"mobility"},
		),
		NodesVisited: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voxelpath_search_nodes_visited",
				Help:    "Nodes popped from the open set per search",
				Buckets: prometheus.ExponentialBuckets(8, 2, 10),
			},
			[]string{"mobility"},
		),
		PathLength: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voxelpath_path_nodes",
				Help:    "Waypoints in returned paths",
				Buckets: prometheus.LinearBuckets(0, 8, 12),
			},
			[]string{"mobility"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voxelpath_classification_cache_lookups_total",
				Help: "Classification cache lookups by result",
			},
			[]string{"result"},
		),
		ChunkLoads: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxelpath_chunk_loads_total",
			Help: "Chunks resolved by search terrain adapters",
		}),
		ChunkLoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voxelpath_chunk_load_duration_seconds",
			Help:    "Time to resolve or generate a chunk",
			Buckets: prometheus.DefBuckets,
		}),
		TerrainFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxelpath_terrain_failures_total",
			Help: "Block reads that fell back to an impassable barrier",
		}),
		CacheClears: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxelpath_cache_clears_total",
			Help: "Worker caches dropped wholesale after invalidation overflow",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voxelpath_queue_depth",
			Help: "Path requests waiting for a worker",
		}),
		BlockUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "voxelpath_block_updates_total",
			Help: "Block changes applied to the world",
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOutcome counts a finished request.
func (m *Metrics) ObserveOutcome(mobility, status string) {
	m.Searches.WithLabelValues(mobility, status).Inc()
}

// Profiler returns a search profiler that reports into these collectors.
// Per-node hooks are ignored; only per-search aggregates are exported.
func (m *Metrics) Profiler(mobility string) pathfinding.NavigatorProfiler {
	return &profiler{
		metrics:  m,
		hits:     m.CacheLookups.WithLabelValues("hit"),
		misses:   m.CacheLookups.WithLabelValues("miss"),
		duration: m.SearchDuration.WithLabelValues(mobility),
		visited:  m.NodesVisited.WithLabelValues(mobility),
		length:   m.PathLength.WithLabelValues(mobility),
	}
}

type profiler struct {
	metrics  *Metrics
	hits     prometheus.Counter
	misses   prometheus.Counter
	duration prometheus.Observer
	visited  prometheus.Observer
	length   prometheus.Observer
}

func (p *profiler) RecordCacheHit()  { p.hits.Inc() }
func (p *profiler) RecordCacheMiss() { p.misses.Inc() }

func (p *profiler) RecordChunkLoad(duration time.Duration) {
	p.metrics.ChunkLoads.Inc()
	p.metrics.ChunkLoadDuration.Observe(duration.Seconds())
}

func (p *profiler) RecordTerrainFailure() { p.metrics.TerrainFailures.Inc() }

func (p *profiler) RecordHeuristicEvaluation()   {}
func (p *profiler) RecordNodeExpanded()          {}
func (p *profiler) RecordNeighborGeneration(int) {}

func (p *profiler) RecordSearch(stats pathfinding.SearchStats) {
	p.duration.Observe(stats.Duration.Seconds())
	p.visited.Observe(float64(stats.Visited))
	if !stats.NoStart {
		p.length.Observe(float64(stats.Nodes))
	}
}

// Serve runs an HTTP server exposing /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, m *Metrics, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	if logger != nil {
		logger.Printf("metrics listening on %s", addr)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
