package server

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"voxelpath/internal/metrics"
	"voxelpath/internal/pathfinding"
	"voxelpath/internal/world"
)

const invalidationBacklog = 256

type searchJob struct {
	ctx           context.Context
	mobility      string
	agent         *pathfinding.Agent
	goals         []world.BlockCoord
	maxPathLength float32
	reachRange    int
	multiplier    float32
	reply         chan searchResult
}

type searchResult struct {
	path *pathfinding.Path
	err  error
}

// searchWorker owns everything a search mutates: finders, the terrain
// adapter and the classification cache. Only its own goroutine touches them.
type searchWorker struct {
	id       int
	finders  map[string]*pathfinding.Finder
	terrain  *pathfinding.WorldTerrain
	cache    *pathfinding.ClassificationCache
	metrics  *metrics.Metrics
	profiler *pathfinding.NavigatorMetrics

	invalidations chan world.BlockCoord
	overflow      atomic.Bool
}

func newSearchWorker(id int, manager *world.Manager, opts workerOptions) *searchWorker {
	w := &searchWorker{
		id:            id,
		finders:       make(map[string]*pathfinding.Finder, len(mobilities)),
		terrain:       pathfinding.NewWorldTerrain(manager),
		cache:         pathfinding.NewClassificationCache(opts.cacheSlots),
		metrics:       opts.metrics,
		profiler:      opts.navMetrics,
		invalidations: make(chan world.BlockCoord, opts.backlog),
	}
	for _, name := range mobilities {
		model, _ := newMobility(name)
		w.finders[name] = pathfinding.NewFinder(model, opts.maxVisitedNodes, opts.finderOptions...)
	}
	return w
}

// notify queues a changed block. When the backlog is full the worker drops
// its whole cache before the next search instead.
func (w *searchWorker) notify(coord world.BlockCoord) {
	select {
	case w.invalidations <- coord:
	default:
		w.overflow.Store(true)
	}
}

func (w *searchWorker) syncCache() {
	if w.overflow.Swap(false) {
		w.cache.Clear()
		if w.metrics != nil {
			w.metrics.CacheClears.Inc()
		}
		for {
			select {
			case <-w.invalidations:
			default:
				return
			}
		}
	}
	for {
		select {
		case coord := <-w.invalidations:
			w.cache.InvalidateAround(coord)
		default:
			return
		}
	}
}

func (w *searchWorker) search(job searchJob) searchResult {
	w.syncCache()
	w.terrain.Reset()

	finder, ok := w.finders[job.mobility]
	if !ok {
		return searchResult{err: errUnknownMobility}
	}

	var profilers pathfinding.MultiProfiler
	if w.metrics != nil {
		profilers = append(profilers, w.metrics.Profiler(job.mobility))
	}
	if w.profiler != nil {
		profilers = append(profilers, w.profiler.Profiler())
	}
	ctx := job.ctx
	if len(profilers) > 0 {
		ctx = pathfinding.ContextWithProfiler(ctx, profilers)
	}

	sc := pathfinding.NewSearchContext(ctx, w.terrain, w.cache, job.agent)
	path, err := finder.Find(sc, job.agent, job.goals, job.maxPathLength, job.reachRange, job.multiplier)
	return searchResult{path: path, err: err}
}

type workerOptions struct {
	cacheSlots      int
	maxVisitedNodes int
	backlog         int
	finderOptions   []pathfinding.FinderOption
	metrics         *metrics.Metrics
	navMetrics      *pathfinding.NavigatorMetrics
}

// searchPool fans jobs out to a fixed set of workers.
type searchPool struct {
	workers []*searchWorker
	jobs    chan searchJob
	metrics *metrics.Metrics
	logger  *log.Logger
	wg      sync.WaitGroup
}

func newSearchPool(manager *world.Manager, count int, opts workerOptions, logger *log.Logger) *searchPool {
	if count <= 0 {
		count = 1
	}
	if opts.backlog <= 0 {
		opts.backlog = invalidationBacklog
	}
	p := &searchPool{
		jobs:    make(chan searchJob, count*4),
		metrics: opts.metrics,
		logger:  logger,
	}
	for i := 0; i < count; i++ {
		p.workers = append(p.workers, newSearchWorker(i, manager, opts))
	}
	return p
}

func (p *searchPool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go p.run(ctx, w)
	}
}

func (p *searchPool) run(ctx context.Context, w *searchWorker) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			if p.metrics != nil {
				p.metrics.QueueDepth.Dec()
			}
			if job.ctx.Err() != nil {
				job.reply <- searchResult{err: job.ctx.Err()}
				continue
			}
			job.reply <- w.search(job)
		}
	}
}

// Submit hands job to the next free worker and waits for its result.
func (p *searchPool) Submit(ctx context.Context, job searchJob) searchResult {
	job.ctx = ctx
	job.reply = make(chan searchResult, 1)
	if p.metrics != nil {
		p.metrics.QueueDepth.Inc()
	}
	select {
	case p.jobs <- job:
	case <-ctx.Done():
		if p.metrics != nil {
			p.metrics.QueueDepth.Dec()
		}
		return searchResult{err: ctx.Err()}
	}
	select {
	case res := <-job.reply:
		return res
	case <-ctx.Done():
		return searchResult{err: ctx.Err()}
	}
}

// Invalidate forwards a block change to every worker.
func (p *searchPool) Invalidate(coord world.BlockCoord, _ world.Block) {
	for _, w := range p.workers {
		w.notify(coord)
	}
}

func (p *searchPool) Wait() {
	p.wg.Wait()
}
