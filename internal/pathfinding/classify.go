package pathfinding

import "voxelpath/internal/world"

// rawPathType classifies a single block on its own.
func rawPathType(b world.Block) PathType {
	if b.IsAir() {
		return PathOpen
	}
	switch b.Material {
	case world.MaterialTrapdoor, world.MaterialLilyPad:
		return PathTrapdoor
	case world.MaterialPowderSnow:
		return PathPowderSnow
	case world.MaterialCactus, world.MaterialBerryBush:
		return PathDamageOther
	case world.MaterialHoney:
		return PathStickyHoney
	case world.MaterialCocoa:
		return PathCocoa
	case world.MaterialWitherRose, world.MaterialDripstone:
		return PathDamageCautious
	}

	fluid := b.Fluid()
	if fluid == world.FluidLava {
		return PathLava
	}
	if b.Burning() {
		return PathDamageFire
	}
	if b.Material.IsDoor() {
		switch {
		case b.Open:
			return PathDoorOpen
		case b.Material == world.MaterialWoodDoor:
			return PathDoorWoodClosed
		default:
			return PathDoorIronClosed
		}
	}
	switch b.Material {
	case world.MaterialRail:
		return PathRail
	case world.MaterialLeaves:
		return PathLeaves
	case world.MaterialFence, world.MaterialWall:
		return PathFence
	case world.MaterialFenceGate:
		if !b.Open {
			return PathFence
		}
	}
	if !b.LandPathfindable() {
		return PathBlocked
	}
	if fluid == world.FluidWater {
		return PathWater
	}
	return PathOpen
}

// staticPathType refines the raw classification of an open cell using the
// block it would stand on and the blocks around it.
func staticPathType(sc *SearchContext, x, y, z int) PathType {
	t := sc.rawType(x, y, z)
	if t != PathOpen || z < sc.minZ+1 {
		return t
	}
	switch sc.rawType(x, y, z-1) {
	case PathOpen, PathWater, PathLava, PathWalkable:
		return PathOpen
	case PathDamageFire:
		return PathDamageFire
	case PathDamageOther:
		return PathDamageOther
	case PathStickyHoney:
		return PathStickyHoney
	case PathPowderSnow:
		return PathDangerPowderSnow
	case PathDamageCautious:
		return PathDamageCautious
	default:
		return neighbourDanger(sc, x, y, z, PathWalkable)
	}
}

// neighbourDanger downgrades fallback when any of the 26 surrounding cells
// hurts or holds water.
func neighbourDanger(sc *SearchContext, x, y, z int, fallback PathType) PathType {
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				switch sc.rawType(x+dx, y+dy, z+dz) {
				case PathDamageOther:
					return PathDangerOther
				case PathDamageFire, PathLava:
					return PathDangerFire
				case PathWater:
					return PathWaterBorder
				case PathDamageCautious:
					return PathDamageCautious
				}
			}
		}
	}
	return fallback
}

// evaluateDoorsAndRails adjusts a classification for the agent's door
// handling and for rails, which are only usable when already on a rail.
func evaluateDoorsAndRails(sc *SearchContext, agent *Agent, t PathType) PathType {
	switch t {
	case PathDoorWoodClosed:
		if agent.CanOpenDoors && agent.CanPassDoors {
			return PathWalkableDoor
		}
	case PathDoorOpen:
		if !agent.CanPassDoors {
			return PathBlocked
		}
	case PathRail:
		anchor := sc.Anchor()
		if sc.rawType(anchor.X, anchor.Y, anchor.Z) != PathRail && sc.rawType(anchor.X, anchor.Y, anchor.Z-1) != PathRail {
			return PathUnpassableRail
		}
	}
	return t
}

// footprintPathType scans every cell the agent would occupy with its origin
// at (x, y, z) and returns the classification that governs the move. Anything
// forbidden in the footprint wins; otherwise the costliest type does.
func footprintPathType(sc *SearchContext, agent *Agent, x, y, z int, cellType func(x, y, z int) PathType) PathType {
	width, height, depth := agent.footprint()
	var seen [pathTypeCount]bool
	for i := 0; i < width; i++ {
		for j := 0; j < depth; j++ {
			for k := 0; k < height; k++ {
				t := evaluateDoorsAndRails(sc, agent, cellType(x+i, y+j, z+k))
				seen[t] = true
			}
		}
	}

	if seen[PathFence] {
		return PathFence
	}
	if seen[PathUnpassableRail] {
		return PathUnpassableRail
	}

	result := PathBlocked
	for t := PathType(0); t < pathTypeCount; t++ {
		if !seen[t] {
			continue
		}
		malus := agent.PathfindingMalus(t)
		if malus < 0 {
			return t
		}
		if malus >= agent.PathfindingMalus(result) {
			result = t
		}
	}

	if width <= 1 && result != PathOpen && agent.PathfindingMalus(result) == 0 && cellType(x, y, z) == PathOpen {
		return PathOpen
	}
	return result
}
