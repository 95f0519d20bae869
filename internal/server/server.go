package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"voxelpath/internal/config"
	"voxelpath/internal/metrics"
	"voxelpath/internal/network"
	"voxelpath/internal/pathfinding"
	"voxelpath/internal/terrain"
	"voxelpath/internal/world"
)

// keepAliveInterval is how often Run logs search counters.
const keepAliveInterval = time.Minute

var (
	errUnknownAgent    = errors.New("unknown agent preset")
	errUnknownMobility = errors.New("unknown mobility")
)

// Server answers path requests over UDP using a pool of search workers that
// share one world.
type Server struct {
	cfg        *config.Config
	world      *world.Manager
	net        *network.Server
	logger     *log.Logger
	metrics    *metrics.Metrics
	navMetrics *pathfinding.NavigatorMetrics
	presets    map[string]preset
	limiter    *rate.Limiter
	pool       *searchPool

	unsubscribe func()
}

type Option func(*options)

type options struct {
	generator world.Generator
	logger    *log.Logger
}

// WithGenerator replaces the noise terrain generator.
func WithGenerator(gen world.Generator) Option {
	return func(o *options) {
		o.generator = gen
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = log.New(log.Writer(), "pathd ", log.LstdFlags|log.Lmicroseconds)
	}

	presets, err := buildPresets(cfg.Agents)
	if err != nil {
		return nil, err
	}

	region := world.NewServerRegion(cfg)
	gen := o.generator
	if gen == nil {
		gen = terrain.NewNoiseGenerator(cfg.Terrain, cfg.World.SeaLevel, logger)
	}
	worldManager := world.NewManager(region, gen)

	netSrv, err := network.Listen(cfg.Network.ListenUDP, logger, cfg.Network.MaxDatagramSizeBytes)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:        cfg,
		world:      worldManager,
		net:        netSrv,
		logger:     logger,
		metrics:    metrics.New(),
		navMetrics: &pathfinding.NavigatorMetrics{},
		presets:    presets,
	}
	if pf := cfg.Pathfinding; pf.ThrottlePerSecond > 0 {
		burst := pf.ThrottleBurst
		if burst <= 0 {
			burst = 1
		}
		srv.limiter = rate.NewLimiter(rate.Limit(pf.ThrottlePerSecond), burst)
	}

	finderOpts := []pathfinding.FinderOption{pathfinding.WithLogger(logger)}
	if cfg.Pathfinding.CaptureDebug {
		finderOpts = append(finderOpts, pathfinding.WithDebugCapture())
	}
	srv.pool = newSearchPool(worldManager, cfg.Pathfinding.Workers, workerOptions{
		cacheSlots:      cfg.Pathfinding.CacheSlots,
		maxVisitedNodes: cfg.Pathfinding.MaxVisitedNodes,
		finderOptions:   finderOpts,
		metrics:         srv.metrics,
		navMetrics:      srv.navMetrics,
	}, logger)
	srv.unsubscribe = worldManager.Subscribe(srv.pool.Invalidate)

	srv.registerHandlers()
	return srv, nil
}

func (s *Server) registerHandlers() {
	s.net.Register(network.MessageHello, s.onHello)
	s.net.Register(network.MessagePathRequest, s.onPathRequest)
	s.net.Register(network.MessageBlockUpdate, s.onBlockUpdate)
}

// Addr is the UDP address the server listens on.
func (s *Server) Addr() *net.UDPAddr {
	return s.net.LocalAddr()
}

func (s *Server) World() *world.Manager {
	return s.world
}

func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Profile returns the counters accumulated across all searches.
func (s *Server) Profile() pathfinding.MetricsSnapshot {
	return s.navMetrics.Snapshot()
}

func (s *Server) Run(ctx context.Context) error {
	defer s.net.Close()
	defer s.unsubscribe()

	ctx, cancel := context.WithCancel(ctx)

	s.pool.Start(ctx)
	defer func() {
		cancel()
		s.pool.Wait()
	}()

	go func() {
		if err := s.net.Serve(ctx); err != nil && ctx.Err() == nil {
			s.logger.Printf("network server stopped: %v", err)
			cancel()
		}
	}()

	if addr := s.cfg.Network.MetricsListen; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, s.metrics, s.logger); err != nil && ctx.Err() == nil {
				s.logger.Printf("metrics server stopped: %v", err)
			}
		}()
	}

	s.logger.Printf("server %s listening on %s with %d workers", s.cfg.Server.ID, s.Addr(), len(s.pool.workers))

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			snap := s.navMetrics.Snapshot()
			s.logger.Printf("searches=%d reached=%d no_start=%d nodes_expanded=%d cache_hits=%d cache_misses=%d",
				snap.Searches, snap.SearchesReached, snap.SearchesNoStart, snap.NodesExpanded, snap.CacheHits, snap.CacheMisses)
		}
	}
}

// FindPath resolves a request into a response. It never fails; problems are
// reported through the response status.
func (s *Server) FindPath(ctx context.Context, req network.PathRequest) network.PathResponse {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	resp := network.PathResponse{RequestID: req.RequestID, EntityID: req.EntityID}

	p, ok := s.presets[req.Agent]
	if !ok {
		return s.fail(resp, req.Mobility, fmt.Errorf("%w %q", errUnknownAgent, req.Agent))
	}
	mobility := p.mobility
	if req.Mobility != "" {
		mobility = req.Mobility
	}
	if !knownMobility(mobility) {
		return s.fail(resp, mobility, fmt.Errorf("%w %q", errUnknownMobility, mobility))
	}

	if s.limiter != nil {
		waitCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout := s.cfg.Pathfinding.QueueTimeout.Duration(); timeout > 0 {
			waitCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		err := s.limiter.Wait(waitCtx)
		cancel()
		if err != nil {
			resp.Status = network.StatusThrottled
			s.metrics.ObserveOutcome(mobility, resp.Status)
			return resp
		}
	}

	job := s.jobFor(req, p)
	job.mobility = mobility
	res := s.pool.Submit(ctx, job)
	if res.err != nil {
		return s.fail(resp, mobility, res.err)
	}
	if res.path == nil {
		resp.Status = network.StatusNoStart
		s.metrics.ObserveOutcome(mobility, resp.Status)
		return resp
	}

	data, err := res.path.MarshalBinary()
	if err != nil {
		return s.fail(resp, mobility, fmt.Errorf("encode path: %w", err))
	}
	resp.Path = data
	resp.Reached = res.path.Reached()
	resp.DistanceToTarget = res.path.DistanceToTarget()
	for _, coord := range res.path.Coords() {
		resp.Route = append(resp.Route, network.BlockStep{X: coord.X, Y: coord.Y, Z: coord.Z})
	}
	resp.Status = network.StatusPartial
	if resp.Reached {
		resp.Status = network.StatusOK
	}
	s.metrics.ObserveOutcome(mobility, resp.Status)
	return resp
}

func (s *Server) jobFor(req network.PathRequest, p preset) searchJob {
	agent := p.instantiate()
	agent.X, agent.Y, agent.Z = req.X, req.Y, req.Z
	agent.OnGround = req.OnGround
	agent.InWater = req.InWater
	if req.Width > 0 {
		agent.Width = req.Width
	}
	if req.Height > 0 {
		agent.Height = req.Height
	}

	pf := s.cfg.Pathfinding
	job := searchJob{
		agent:         agent,
		maxPathLength: float32(pf.MaxPathLength),
		reachRange:    pf.ReachRange,
		multiplier:    float32(pf.NodeBudgetMultiplier),
	}
	if req.MaxPathLength > 0 {
		job.maxPathLength = float32(req.MaxPathLength)
	}
	if req.ReachRange != nil {
		job.reachRange = *req.ReachRange
	}
	if req.Multiplier > 0 {
		job.multiplier = float32(req.Multiplier)
	}
	for _, g := range req.Goals {
		job.goals = append(job.goals, world.BlockCoord{X: g.X, Y: g.Y, Z: g.Z})
	}
	return job
}

func (s *Server) fail(resp network.PathResponse, mobility string, err error) network.PathResponse {
	s.logger.Printf("path request %s for %s: %v", resp.RequestID, resp.EntityID, err)
	resp.Status = network.StatusError
	resp.Error = err.Error()
	if mobility == "" {
		mobility = "unknown"
	}
	s.metrics.ObserveOutcome(mobility, resp.Status)
	return resp
}

// ApplyBlockUpdate writes a block into the world. Workers pick the change up
// through the world subscription before their next search.
func (s *Server) ApplyBlockUpdate(ctx context.Context, update network.BlockUpdate) error {
	material, err := world.ParseMaterial(update.Material)
	if err != nil {
		return fmt.Errorf("block update: %w", err)
	}
	coord := world.BlockCoord{X: update.X, Y: update.Y, Z: update.Z}
	block := world.Block{Material: material, Open: update.Open, Waterlogged: update.Waterlogged}
	if err := s.world.SetBlock(ctx, coord, block); err != nil {
		return fmt.Errorf("block update: %w", err)
	}
	s.metrics.BlockUpdates.Inc()
	return nil
}

func (s *Server) onHello(ctx context.Context, addr *net.UDPAddr, env network.Envelope) {
	region := s.world.Region()
	payload := network.Hello{
		ServerID: s.cfg.Server.ID,
		Agents:   presetNames(s.presets),
	}
	payload.Region.OriginX = region.Origin.X
	payload.Region.OriginY = region.Origin.Y
	payload.Region.Size = region.ChunksPerAxis
	if err := s.net.Reply(addr, network.MessageHello, payload); err != nil {
		s.logger.Printf("hello reply to %s: %v", addr, err)
	}
}

func (s *Server) onPathRequest(ctx context.Context, addr *net.UDPAddr, env network.Envelope) {
	var req network.PathRequest
	if err := json.Unmarshal(env.Payload, &req); err != nil {
		s.logger.Printf("path request decode: %v", err)
		return
	}

	resp := s.FindPath(ctx, req)
	if err := s.net.Reply(addr, network.MessagePathResponse, resp); err != nil {
		s.logger.Printf("path response send: %v", err)
	}
}

func (s *Server) onBlockUpdate(ctx context.Context, addr *net.UDPAddr, env network.Envelope) {
	var update network.BlockUpdate
	if err := json.Unmarshal(env.Payload, &update); err != nil {
		s.logger.Printf("block update decode: %v", err)
		return
	}
	if err := s.ApplyBlockUpdate(ctx, update); err != nil {
		s.logger.Printf("block update from %s: %v", addr, err)
	}
}
