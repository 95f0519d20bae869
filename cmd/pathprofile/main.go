package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"voxelpath/internal/config"
	"voxelpath/internal/pathfinding"
	"voxelpath/internal/terrain"
	"voxelpath/internal/world"
)

type pathJob struct {
	start world.BlockCoord
	goal  world.BlockCoord
}

// searchRecorder keeps the per-search aggregates of one worker.
type searchRecorder struct {
	durations []float64
	visited   []float64
	lengths   []float64
	reached   int
	noStart   int
}

func (r *searchRecorder) RecordCacheHit()               {}
func (r *searchRecorder) RecordCacheMiss()              {}
func (r *searchRecorder) RecordChunkLoad(time.Duration) {}
func (r *searchRecorder) RecordTerrainFailure()         {}
func (r *searchRecorder) RecordHeuristicEvaluation()    {}
func (r *searchRecorder) RecordNodeExpanded()           {}
func (r *searchRecorder) RecordNeighborGeneration(int)  {}

func (r *searchRecorder) RecordSearch(stats pathfinding.SearchStats) {
	r.durations = append(r.durations, float64(stats.Duration)/float64(time.Microsecond))
	if stats.NoStart {
		r.noStart++
		return
	}
	r.visited = append(r.visited, float64(stats.Visited))
	r.lengths = append(r.lengths, float64(stats.Nodes))
	if stats.Reached {
		r.reached++
	}
}

func main() {
	var (
		cfgPath       = flag.String("config", "", "configuration file supplying terrain and pathfinding settings")
		totalRequests = flag.Int("requests", 2000, "number of searches to run")
		concurrency   = flag.Int("concurrency", runtime.NumCPU(), "number of concurrent finders")
		chunksPerAxis = flag.Int("chunks", 2, "chunks per axis to include in the region")
		agentName     = flag.String("agent", "villager", "agent preset to profile")
		radius        = flag.Int("radius", 24, "maximum horizontal distance between start and goal")
		useCache      = flag.Bool("cache", true, "give every finder a classification cache")
		seed          = flag.Int64("seed", 1337, "random seed for start/goal selection")
	)
	flag.Parse()

	if *totalRequests <= 0 || *concurrency <= 0 || *chunksPerAxis <= 0 {
		fmt.Fprintln(os.Stderr, "requests, concurrency and chunks must be positive")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.World.ChunksPerAxis = *chunksPerAxis
	preset, ok := cfg.Agents[*agentName]
	if !ok {
		log.Fatalf("unknown agent preset %q", *agentName)
	}

	quiet := log.New(io.Discard, "", 0)
	region := world.NewServerRegion(cfg)
	manager := world.NewManager(region, terrain.NewNoiseGenerator(cfg.Terrain, cfg.World.SeaLevel, quiet))

	generateStart := time.Now()
	candidates, err := collectSurfaceCoordinates(context.Background(), manager, region)
	if err != nil {
		log.Fatalf("collect candidates: %v", err)
	}
	if len(candidates) < 2 {
		log.Fatalf("not enough surface coordinates to profile")
	}
	generateDuration := time.Since(generateStart)

	jobs := make(chan pathJob)
	go func() {
		defer close(jobs)
		rng := rand.New(rand.NewSource(*seed))
		for i := 0; i < *totalRequests; i++ {
			start := candidates[rng.Intn(len(candidates))]
			goal := start
			for goal == start {
				goal = candidates[rng.Intn(len(candidates))]
				if abs(goal.X-start.X) > *radius || abs(goal.Y-start.Y) > *radius {
					goal = start
				}
			}
			jobs <- pathJob{start: start, goal: goal}
		}
	}()

	var (
		wg        sync.WaitGroup
		totals    pathfinding.NavigatorMetrics
		recorders = make([]*searchRecorder, *concurrency)
	)
	pf := cfg.Pathfinding

	worker := func(rec *searchRecorder) {
		defer wg.Done()
		model, err := mobilityFor(preset.Mobility)
		if err != nil {
			log.Fatalf("agent %s: %v", *agentName, err)
		}
		finder := pathfinding.NewFinder(model, pf.MaxVisitedNodes)
		worldTerrain := pathfinding.NewWorldTerrain(manager)
		var cache *pathfinding.ClassificationCache
		if *useCache {
			cache = pathfinding.NewClassificationCache(pf.CacheSlots)
		}
		ctx := pathfinding.ContextWithProfiler(context.Background(), pathfinding.MultiProfiler{totals.Profiler(), rec})

		for job := range jobs {
			agent := agentFor(preset, job.start)
			worldTerrain.Reset()
			sc := pathfinding.NewSearchContext(ctx, worldTerrain, cache, agent)
			if _, err := finder.Find(sc, agent, []world.BlockCoord{job.goal}, float32(pf.MaxPathLength), pf.ReachRange, float32(pf.NodeBudgetMultiplier)); err != nil {
				log.Printf("search from %v to %v: %v", job.start, job.goal, err)
			}
		}
	}

	wg.Add(*concurrency)
	for i := range recorders {
		recorders[i] = &searchRecorder{}
		go worker(recorders[i])
	}

	startWall := time.Now()
	wg.Wait()
	wallDuration := time.Since(startWall)

	merged := &searchRecorder{}
	for _, rec := range recorders {
		merged.durations = append(merged.durations, rec.durations...)
		merged.visited = append(merged.visited, rec.visited...)
		merged.lengths = append(merged.lengths, rec.lengths...)
		merged.reached += rec.reached
		merged.noStart += rec.noStart
	}
	snap := totals.Snapshot()

	hitRatio := 0.0
	if lookups := snap.CacheHits + snap.CacheMisses; lookups > 0 {
		hitRatio = float64(snap.CacheHits) / float64(lookups) * 100
	}

	fmt.Println("== Voxel Pathfinding Profile ==")
	fmt.Printf("Chunks per axis: %d\n", *chunksPerAxis)
	fmt.Printf("Chunk dimensions: %dx%dx%d\n", region.ChunkDimension.Width, region.ChunkDimension.Depth, region.ChunkDimension.Height)
	fmt.Printf("Terrain generation: %s\n", generateDuration)
	fmt.Printf("Agent: %s (%s)\n", *agentName, preset.Mobility)
	fmt.Printf("Requests: %d, Concurrency: %d, Cache: %v\n", *totalRequests, *concurrency, *useCache)
	fmt.Printf("Reached: %d, Partial: %d, No start: %d\n", merged.reached, len(merged.visited)-merged.reached, merged.noStart)
	fmt.Printf("Wall clock duration: %s\n", wallDuration)
	report("Search time (us)", merged.durations)
	report("Nodes visited", merged.visited)
	report("Path nodes", merged.lengths)
	fmt.Printf("Cache hit ratio: %.2f%% (%d hits, %d misses)\n", hitRatio, snap.CacheHits, snap.CacheMisses)
	fmt.Printf("Chunk loads: %d (%s), terrain failures: %d\n", snap.ChunkLoads, snap.ChunkLoadTime, snap.TerrainFailures)
}

func report(label string, values []float64) {
	if len(values) == 0 {
		fmt.Printf("%s: no samples\n", label)
		return
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mean, std := stat.MeanStdDev(sorted, nil)
	fmt.Printf("%s: mean=%.2f std=%.2f p50=%.2f p90=%.2f p99=%.2f max=%.2f\n",
		label, mean, std,
		stat.Quantile(0.5, stat.Empirical, sorted, nil),
		stat.Quantile(0.9, stat.Empirical, sorted, nil),
		stat.Quantile(0.99, stat.Empirical, sorted, nil),
		sorted[len(sorted)-1])
}

func mobilityFor(name string) (pathfinding.Mobility, error) {
	switch name {
	case config.MobilityWalk:
		return pathfinding.NewWalker(), nil
	case config.MobilitySwim:
		return pathfinding.NewSwimmer(), nil
	case config.MobilityFly:
		return pathfinding.NewFlyer(), nil
	case config.MobilityAmphibious:
		return pathfinding.NewAmphibian(), nil
	default:
		return nil, fmt.Errorf("unknown mobility %q", name)
	}
}

func agentFor(preset config.AgentConfig, start world.BlockCoord) *pathfinding.Agent {
	agent := &pathfinding.Agent{
		X:                      float64(start.X) + 0.5,
		Y:                      float64(start.Y) + 0.5,
		Z:                      float64(start.Z),
		Width:                  preset.Width,
		Height:                 preset.Height,
		OnGround:               true,
		MaxUpStep:              preset.MaxUpStep,
		MaxFallDistance:        preset.MaxFallDistance,
		CanOpenDoors:           preset.CanOpenDoors,
		CanPassDoors:           preset.CanPassDoors,
		CanFloat:               preset.CanFloat,
		CanWalkOverFences:      preset.CanWalkOverFences,
		AllowBreaching:         preset.AllowBreaching,
		PrefersShallowSwimming: preset.PrefersShallowSwimming,
	}
	for name, malus := range preset.Malus {
		if t, err := pathfinding.ParsePathType(name); err == nil {
			agent.SetPathfindingMalus(t, malus)
		}
	}
	return agent
}

// collectSurfaceCoordinates returns the air cell above every column's
// highest solid block.
func collectSurfaceCoordinates(ctx context.Context, manager *world.Manager, region world.ServerRegion) ([]world.BlockCoord, error) {
	dims := region.ChunkDimension
	coords := make([]world.BlockCoord, 0, dims.Width*dims.Depth*region.ChunksPerAxis*region.ChunksPerAxis)
	for x := 0; x < region.ChunksPerAxis; x++ {
		for y := 0; y < region.ChunksPerAxis; y++ {
			chunkCoord := world.ChunkCoord{X: region.Origin.X + x, Y: region.Origin.Y + y}
			chunk, err := manager.Chunk(ctx, chunkCoord)
			if err != nil {
				return nil, err
			}
			bounds := chunk.Bounds
			for localX := 0; localX < dims.Width; localX++ {
				for localY := 0; localY < dims.Depth; localY++ {
					top := chunk.TopSolid(localX, localY)
					if top < 0 || top+1 >= dims.Height {
						continue
					}
					coords = append(coords, world.BlockCoord{
						X: bounds.Min.X + localX,
						Y: bounds.Min.Y + localY,
						Z: bounds.Min.Z + top + 1,
					})
				}
			}
		}
	}
	return coords, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
