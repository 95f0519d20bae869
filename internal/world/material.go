package world

import (
	"fmt"
	"strings"
)

// Material identifies what a block is made of. The zero value is air.
type Material uint8

const (
	MaterialAir Material = iota
	MaterialStone
	MaterialDirt
	MaterialGrass
	MaterialSand
	MaterialPlanks
	MaterialLog
	MaterialGlass
	MaterialBarrier
	MaterialLeaves
	MaterialWater
	MaterialLava
	MaterialFence
	MaterialWall
	MaterialFenceGate
	MaterialWoodDoor
	MaterialIronDoor
	MaterialTrapdoor
	MaterialRail
	MaterialCarpet
	MaterialSlab
	MaterialFire
	MaterialMagma
	MaterialCampfire
	MaterialCactus
	MaterialBerryBush
	MaterialPowderSnow
	MaterialHoney
	MaterialCocoa
	MaterialLilyPad
	MaterialWitherRose
	MaterialDripstone
	MaterialTallGrass
	MaterialSeagrass

	materialCount
)

// Fluid describes the liquid occupying a block, if any.
type Fluid uint8

const (
	FluidNone Fluid = iota
	FluidWater
	FluidLava
)

type materialInfo struct {
	name string
	// collision is the height of the collision box measured from the bottom of
	// the cell. Values above 1 (fences, walls) poke into the cell above.
	collision float64
	// pathfindable reports whether land agents may occupy the cell when the
	// block is in its default (closed) state.
	pathfindable bool
	burning      bool
	// openable blocks switch collision and pathfindability with Block.Open.
	openable bool
}

var materials = [materialCount]materialInfo{
	MaterialAir:        {name: "air", pathfindable: true},
	MaterialStone:      {name: "stone", collision: 1},
	MaterialDirt:       {name: "dirt", collision: 1},
	MaterialGrass:      {name: "grass", collision: 1},
	MaterialSand:       {name: "sand", collision: 1},
	MaterialPlanks:     {name: "planks", collision: 1},
	MaterialLog:        {name: "log", collision: 1},
	MaterialGlass:      {name: "glass", collision: 1},
	MaterialBarrier:    {name: "barrier", collision: 1},
	MaterialLeaves:     {name: "leaves", collision: 1},
	MaterialWater:      {name: "water", pathfindable: true},
	MaterialLava:       {name: "lava", burning: true},
	MaterialFence:      {name: "fence", collision: 1.5},
	MaterialWall:       {name: "wall", collision: 1.5},
	MaterialFenceGate:  {name: "fence_gate", collision: 1.5, openable: true},
	MaterialWoodDoor:   {name: "wood_door", collision: 1, openable: true},
	MaterialIronDoor:   {name: "iron_door", collision: 1, openable: true},
	MaterialTrapdoor:   {name: "trapdoor", collision: 0.1875, openable: true},
	MaterialRail:       {name: "rail", pathfindable: true},
	MaterialCarpet:     {name: "carpet", collision: 0.0625, pathfindable: true},
	MaterialSlab:       {name: "slab", collision: 0.5},
	MaterialFire:       {name: "fire", pathfindable: true, burning: true},
	MaterialMagma:      {name: "magma", collision: 1, burning: true},
	MaterialCampfire:   {name: "campfire", collision: 0.4375, burning: true},
	MaterialCactus:     {name: "cactus", collision: 0.9375},
	MaterialBerryBush:  {name: "berry_bush", pathfindable: true},
	MaterialPowderSnow: {name: "powder_snow", pathfindable: true},
	MaterialHoney:      {name: "honey", collision: 0.9375},
	MaterialCocoa:      {name: "cocoa", collision: 0.5},
	MaterialLilyPad:    {name: "lily_pad", collision: 0.09375, pathfindable: true},
	MaterialWitherRose: {name: "wither_rose", pathfindable: true},
	MaterialDripstone:  {name: "dripstone", collision: 1},
	MaterialTallGrass:  {name: "tall_grass", pathfindable: true},
	MaterialSeagrass:   {name: "seagrass", pathfindable: true},
}

func (m Material) info() materialInfo {
	if m >= materialCount {
		return materials[MaterialBarrier]
	}
	return materials[m]
}

func (m Material) String() string {
	if m >= materialCount {
		return fmt.Sprintf("material(%d)", uint8(m))
	}
	return materials[m].name
}

// ParseMaterial resolves a material by its lower-case name.
func ParseMaterial(name string) (Material, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for i := Material(0); i < materialCount; i++ {
		if materials[i].name == needle {
			return i, nil
		}
	}
	return MaterialAir, fmt.Errorf("unknown material %q", name)
}

// IsDoor reports whether the material is a hinged door.
func (m Material) IsDoor() bool {
	return m == MaterialWoodDoor || m == MaterialIronDoor
}

// IsFenceLike reports whether the material is a fence, wall or gate.
func (m Material) IsFenceLike() bool {
	return m == MaterialFence || m == MaterialWall || m == MaterialFenceGate
}
