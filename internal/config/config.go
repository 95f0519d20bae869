package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a JSON and YAML friendly wrapper around time.Duration that
// accepts human readable strings such as "150ms" in configuration files while
// still allowing numeric representations when necessary.
type Duration time.Duration

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// MarshalJSON encodes the duration using the canonical string representation.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON decodes a duration from either a string (e.g. "250ms") or a
// numeric value representing nanoseconds. Empty strings and null values decode
// to zero.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("duration: empty value")
	}
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("duration: decode string: %w", err)
		}
		return d.parse(s)
	}
	var n int64
	if err := json.Unmarshal(b, &n); err == nil {
		*d = Duration(time.Duration(n))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*d = Duration(time.Duration(f))
		return nil
	}
	return fmt.Errorf("duration: invalid value %s", string(b))
}

// MarshalYAML mirrors MarshalJSON.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar, got kind %d", node.Kind)
	}
	if node.Tag == "!!int" {
		var n int64
		if err := node.Decode(&n); err != nil {
			return fmt.Errorf("duration: decode int: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	if node.Tag == "!!null" {
		*d = 0
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Mobility names accepted by agent presets.
const (
	MobilityWalk       = "walk"
	MobilitySwim       = "swim"
	MobilityFly        = "fly"
	MobilityAmphibious = "amphibious"
)

// Config captures the tunable parameters needed to bootstrap a path server.
type Config struct {
	Server      ServerConfig           `json:"server" yaml:"server"`
	World       WorldConfig            `json:"world" yaml:"world"`
	Network     NetworkConfig          `json:"network" yaml:"network"`
	Pathfinding PathfindingConfig      `json:"pathfinding" yaml:"pathfinding"`
	Terrain     TerrainConfig          `json:"terrain" yaml:"terrain"`
	Agents      map[string]AgentConfig `json:"agents" yaml:"agents"`
}

type ServerConfig struct {
	ID          string `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
}

type WorldConfig struct {
	Width         int        `json:"width" yaml:"width"`
	Depth         int        `json:"depth" yaml:"depth"`
	Height        int        `json:"height" yaml:"height"`
	ChunksPerAxis int        `json:"chunksPerAxis" yaml:"chunksPerAxis"`
	ChunkOrigin   ChunkIndex `json:"chunkOrigin" yaml:"chunkOrigin"`
	SeaLevel      int        `json:"seaLevel" yaml:"seaLevel"`
}

type NetworkConfig struct {
	ListenUDP            string `json:"listenUdp" yaml:"listenUdp"`                       // ":19100"
	MaxDatagramSizeBytes int    `json:"maxDatagramSizeBytes" yaml:"maxDatagramSizeBytes"` // default to 64 KiB - UDP practical limit
	MetricsListen        string `json:"metricsListen" yaml:"metricsListen"`               // empty disables /metrics
}

type PathfindingConfig struct {
	MaxVisitedNodes      int      `json:"maxVisitedNodes" yaml:"maxVisitedNodes"`
	MaxPathLength        float64  `json:"maxPathLength" yaml:"maxPathLength"`
	ReachRange           int      `json:"reachRange" yaml:"reachRange"`
	NodeBudgetMultiplier float64  `json:"nodeBudgetMultiplier" yaml:"nodeBudgetMultiplier"`
	CacheSlots           int      `json:"cacheSlots" yaml:"cacheSlots"`
	Workers              int      `json:"workers" yaml:"workers"`
	ThrottlePerSecond    float64  `json:"throttlePerSecond" yaml:"throttlePerSecond"` // zero disables throttling
	ThrottleBurst        int      `json:"throttleBurst" yaml:"throttleBurst"`
	QueueTimeout         Duration `json:"queueTimeout" yaml:"queueTimeout"`
	CaptureDebug         bool     `json:"captureDebug" yaml:"captureDebug"`
}

type TerrainConfig struct {
	Seed           int64   `json:"seed" yaml:"seed"`
	Frequency      float64 `json:"frequency" yaml:"frequency"`
	Amplitude      float64 `json:"amplitude" yaml:"amplitude"`
	Octaves        int     `json:"octaves" yaml:"octaves"`
	Persistence    float64 `json:"persistence" yaml:"persistence"`
	Lacunarity     float64 `json:"lacunarity" yaml:"lacunarity"`
	SurfaceLevel   int     `json:"surfaceLevel" yaml:"surfaceLevel"`
	TreeDensity    float64 `json:"treeDensity" yaml:"treeDensity"`
	LavaPoolChance float64 `json:"lavaPoolChance" yaml:"lavaPoolChance"`
	FenceDensity   float64 `json:"fenceDensity" yaml:"fenceDensity"`
}

// AgentConfig is a named preset describing an agent's shape and abilities.
type AgentConfig struct {
	Mobility               string             `json:"mobility" yaml:"mobility"`
	Width                  float64            `json:"width" yaml:"width"`
	Height                 float64            `json:"height" yaml:"height"`
	MaxUpStep              float64            `json:"maxUpStep" yaml:"maxUpStep"`
	MaxFallDistance        int                `json:"maxFallDistance" yaml:"maxFallDistance"`
	CanOpenDoors           bool               `json:"canOpenDoors" yaml:"canOpenDoors"`
	CanPassDoors           bool               `json:"canPassDoors" yaml:"canPassDoors"`
	CanFloat               bool               `json:"canFloat" yaml:"canFloat"`
	CanWalkOverFences      bool               `json:"canWalkOverFences" yaml:"canWalkOverFences"`
	AllowBreaching         bool               `json:"allowBreaching" yaml:"allowBreaching"`
	PrefersShallowSwimming bool               `json:"prefersShallowSwimming" yaml:"prefersShallowSwimming"`
	FluidWalker            string             `json:"fluidWalker,omitempty" yaml:"fluidWalker,omitempty"` // "lava" or "water"
	Malus                  map[string]float32 `json:"malus,omitempty" yaml:"malus,omitempty"`             // keyed by path type name
}

type ChunkIndex struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Load reads configuration from a JSON or YAML file if provided. The format is
// picked from the file extension. An empty path returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ID:          "pathd-0",
			Description: "local development path server",
		},
		World: WorldConfig{
			Width:         64,
			Depth:         64,
			Height:        128,
			ChunksPerAxis: 8,
			ChunkOrigin:   ChunkIndex{X: 0, Y: 0},
			SeaLevel:      48,
		},
		Network: NetworkConfig{
			ListenUDP:            ":19100",
			MaxDatagramSizeBytes: 1 << 16,
			MetricsListen:        ":19101",
		},
		Pathfinding: PathfindingConfig{
			MaxVisitedNodes:      560,
			MaxPathLength:        64,
			ReachRange:           1,
			NodeBudgetMultiplier: 1.0,
			CacheSlots:           4096,
			Workers:              4,
			ThrottlePerSecond:    240,
			ThrottleBurst:        64,
			QueueTimeout:         Duration(250 * time.Millisecond),
		},
		Terrain: TerrainConfig{
			Seed:           1337,
			Frequency:      0.02,
			Amplitude:      12,
			Octaves:        4,
			Persistence:    0.45,
			Lacunarity:     2.0,
			SurfaceLevel:   50,
			TreeDensity:    0.01,
			LavaPoolChance: 0.002,
			FenceDensity:   0.004,
		},
		Agents: map[string]AgentConfig{
			"villager": {
				Mobility:        MobilityWalk,
				Width:           0.6,
				Height:          1.95,
				MaxUpStep:       0.6,
				MaxFallDistance: 3,
				CanOpenDoors:    true,
				CanPassDoors:    true,
				CanFloat:        true,
			},
			"zombie": {
				Mobility:        MobilityWalk,
				Width:           0.6,
				Height:          1.95,
				MaxUpStep:       0.6,
				MaxFallDistance: 3,
				CanPassDoors:    true,
				CanFloat:        true,
			},
			"strider": {
				Mobility:        MobilityWalk,
				Width:           0.9,
				Height:          1.7,
				MaxUpStep:       1,
				MaxFallDistance: 3,
				FluidWalker:     "lava",
				Malus:           map[string]float32{"lava": 0, "danger_fire": 0, "damage_fire": 0, "water": -1},
			},
			"dolphin": {
				Mobility:       MobilitySwim,
				Width:          0.9,
				Height:         0.6,
				AllowBreaching: true,
			},
			"bee": {
				Mobility:     MobilityFly,
				Width:        0.7,
				Height:       0.6,
				CanPassDoors: true,
				CanFloat:     true,
				Malus:        map[string]float32{"water": -1, "danger_fire": -1, "cocoa": -1, "fence": -1},
			},
			"axolotl": {
				Mobility:               MobilityAmphibious,
				Width:                  0.75,
				Height:                 0.42,
				MaxUpStep:              1,
				MaxFallDistance:        3,
				PrefersShallowSwimming: true,
			},
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.ID == "" {
		return errors.New("server.id must be set")
	}
	if c.World.Width <= 0 || c.World.Depth <= 0 || c.World.Height <= 0 {
		return errors.New("world dimensions must be positive")
	}
	if c.World.ChunksPerAxis <= 0 {
		return errors.New("world.chunksPerAxis must be positive")
	}
	if c.World.SeaLevel < 0 || c.World.SeaLevel >= c.World.Height {
		return errors.New("world.seaLevel must lie within the world height")
	}
	if c.Network.ListenUDP == "" {
		return errors.New("network.listenUdp must be set")
	}
	if c.Pathfinding.MaxVisitedNodes <= 0 {
		return errors.New("pathfinding.maxVisitedNodes must be positive")
	}
	if c.Pathfinding.MaxPathLength <= 0 {
		return errors.New("pathfinding.maxPathLength must be positive")
	}
	if c.Pathfinding.ReachRange < 0 {
		return errors.New("pathfinding.reachRange cannot be negative")
	}
	if c.Pathfinding.NodeBudgetMultiplier <= 0 {
		return errors.New("pathfinding.nodeBudgetMultiplier must be positive")
	}
	if c.Pathfinding.Workers <= 0 {
		return errors.New("pathfinding.workers must be positive")
	}
	if c.Pathfinding.ThrottlePerSecond < 0 {
		return errors.New("pathfinding.throttlePerSecond cannot be negative")
	}
	if c.Terrain.Octaves < 0 {
		return errors.New("terrain.octaves cannot be negative")
	}
	for name, agent := range c.Agents {
		if err := agent.validate(); err != nil {
			return fmt.Errorf("agents.%s: %w", name, err)
		}
	}
	return nil
}

func (a AgentConfig) validate() error {
	switch a.Mobility {
	case MobilityWalk, MobilitySwim, MobilityFly, MobilityAmphibious:
	default:
		return fmt.Errorf("unknown mobility %q", a.Mobility)
	}
	if a.Width <= 0 || a.Height <= 0 {
		return errors.New("width and height must be positive")
	}
	if a.MaxUpStep < 0 {
		return errors.New("maxUpStep cannot be negative")
	}
	if a.MaxFallDistance < 0 {
		return errors.New("maxFallDistance cannot be negative")
	}
	switch a.FluidWalker {
	case "", "lava", "water":
	default:
		return fmt.Errorf("unknown fluidWalker %q", a.FluidWalker)
	}
	return nil
}
