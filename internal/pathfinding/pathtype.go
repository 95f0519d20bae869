package pathfinding

import (
	"fmt"
	"strings"
)

// PathType classifies what occupies a cell from a pathfinding point of view.
// The numeric values are part of the path wire format and must not be reordered.
type PathType uint8

const (
	PathBlocked PathType = iota
	PathOpen
	PathWalkable
	PathWalkableDoor
	PathTrapdoor
	PathPowderSnow
	PathDangerPowderSnow
	PathFence
	PathLava
	PathWater
	PathWaterBorder
	PathRail
	PathUnpassableRail
	PathDangerFire
	PathDamageFire
	PathDangerOther
	PathDamageOther
	PathDoorOpen
	PathDoorWoodClosed
	PathDoorIronClosed
	PathBreach
	PathLeaves
	PathStickyHoney
	PathCocoa
	PathDamageCautious

	pathTypeCount
)

var pathTypeInfo = [pathTypeCount]struct {
	name  string
	malus float32
}{
	PathBlocked:          {"blocked", -1},
	PathOpen:             {"open", 0},
	PathWalkable:         {"walkable", 0},
	PathWalkableDoor:     {"walkable_door", 0},
	PathTrapdoor:         {"trapdoor", 0},
	PathPowderSnow:       {"powder_snow", -1},
	PathDangerPowderSnow: {"danger_powder_snow", 0},
	PathFence:            {"fence", -1},
	PathLava:             {"lava", -1},
	PathWater:            {"water", 8},
	PathWaterBorder:      {"water_border", 8},
	PathRail:             {"rail", 0},
	PathUnpassableRail:   {"unpassable_rail", -1},
	PathDangerFire:       {"danger_fire", 8},
	PathDamageFire:       {"damage_fire", 16},
	PathDangerOther:      {"danger_other", 8},
	PathDamageOther:      {"damage_other", -1},
	PathDoorOpen:         {"door_open", 0},
	PathDoorWoodClosed:   {"door_wood_closed", -1},
	PathDoorIronClosed:   {"door_iron_closed", -1},
	PathBreach:           {"breach", 4},
	PathLeaves:           {"leaves", -1},
	PathStickyHoney:      {"sticky_honey", 8},
	PathCocoa:            {"cocoa", 0},
	PathDamageCautious:   {"damage_cautious", 0},
}

// Valid reports whether t is a known classification.
func (t PathType) Valid() bool {
	return t < pathTypeCount
}

// DefaultMalus is the cost penalty used when an agent has no override.
// Negative values forbid the classification.
func (t PathType) DefaultMalus() float32 {
	if !t.Valid() {
		return -1
	}
	return pathTypeInfo[t].malus
}

func (t PathType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("path_type(%d)", uint8(t))
	}
	return pathTypeInfo[t].name
}

// ParsePathType resolves a snake_case classification name.
func ParsePathType(name string) (PathType, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for t := PathType(0); t < pathTypeCount; t++ {
		if pathTypeInfo[t].name == needle {
			return t, nil
		}
	}
	return PathBlocked, fmt.Errorf("unknown path type %q", name)
}

// hasPartialCollision reports classifications that block movement without
// filling their cell.
func (t PathType) hasPartialCollision() bool {
	return t == PathFence || t == PathDoorWoodClosed || t == PathDoorIronClosed
}
