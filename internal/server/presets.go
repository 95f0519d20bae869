package server

import (
	"fmt"
	"sort"

	"voxelpath/internal/config"
	"voxelpath/internal/pathfinding"
	"voxelpath/internal/world"
)

type preset struct {
	mobility string
	agent    pathfinding.Agent
}

func buildPresets(agents map[string]config.AgentConfig) (map[string]preset, error) {
	presets := make(map[string]preset, len(agents))
	for name, cfg := range agents {
		p, err := newPreset(cfg)
		if err != nil {
			return nil, fmt.Errorf("agent preset %s: %w", name, err)
		}
		presets[name] = p
	}
	return presets, nil
}

func newPreset(cfg config.AgentConfig) (preset, error) {
	agent := pathfinding.Agent{
		Width:                  cfg.Width,
		Height:                 cfg.Height,
		MaxUpStep:              cfg.MaxUpStep,
		MaxFallDistance:        cfg.MaxFallDistance,
		CanOpenDoors:           cfg.CanOpenDoors,
		CanPassDoors:           cfg.CanPassDoors,
		CanFloat:               cfg.CanFloat,
		CanWalkOverFences:      cfg.CanWalkOverFences,
		AllowBreaching:         cfg.AllowBreaching,
		PrefersShallowSwimming: cfg.PrefersShallowSwimming,
		Malus:                  pathfinding.NewMalusTable(),
	}
	switch cfg.FluidWalker {
	case "lava":
		agent.FluidWalker = world.FluidLava
	case "water":
		agent.FluidWalker = world.FluidWater
	}
	for name, malus := range cfg.Malus {
		t, err := pathfinding.ParsePathType(name)
		if err != nil {
			return preset{}, err
		}
		agent.Malus.Set(t, malus)
	}
	return preset{mobility: cfg.Mobility, agent: agent}, nil
}

// instantiate returns a fresh agent for one request. The malus table is
// copied because mobility models override entries while searching.
func (p preset) instantiate() *pathfinding.Agent {
	agent := p.agent
	agent.Malus = p.agent.Malus.Clone()
	return &agent
}

func presetNames(presets map[string]preset) []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newMobility(name string) (pathfinding.Mobility, bool) {
	switch name {
	case config.MobilityWalk:
		return pathfinding.NewWalker(), true
	case config.MobilitySwim:
		return pathfinding.NewSwimmer(), true
	case config.MobilityFly:
		return pathfinding.NewFlyer(), true
	case config.MobilityAmphibious:
		return pathfinding.NewAmphibian(), true
	default:
		return nil, false
	}
}

func knownMobility(name string) bool {
	for _, m := range mobilities {
		if m == name {
			return true
		}
	}
	return false
}

var mobilities = []string{
	config.MobilityWalk,
	config.MobilitySwim,
	config.MobilityFly,
	config.MobilityAmphibious,
}
