package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"voxelpath/internal/network"
	"voxelpath/internal/pathfinding"
)

func main() {
	server := flag.String("server", "127.0.0.1:19100", "path server UDP address")
	agent := flag.String("agent", "villager", "agent preset configured on the server")
	mobility := flag.String("mobility", "", "override the preset mobility (walk|swim|fly|amphibious)")
	fromX := flag.Float64("fromx", 0.5, "agent X")
	fromY := flag.Float64("fromy", 0.5, "agent Y")
	fromZ := flag.Float64("fromz", 0, "agent Z (feet)")
	onGround := flag.Bool("onground", true, "agent stands on the ground")
	inWater := flag.Bool("inwater", false, "agent is submerged")
	toX := flag.Int("tox", 0, "goal block X")
	toY := flag.Int("toy", 0, "goal block Y")
	toZ := flag.Int("toz", 0, "goal block Z")
	reach := flag.Int("reach", -1, "accepted Manhattan distance to the goal (-1 uses server default)")
	maxLength := flag.Float64("maxlength", 0, "maximum walked distance (0 uses server default)")
	timeout := flag.Duration("timeout", 3*time.Second, "response timeout")
	flag.Parse()

	req := network.PathRequest{
		RequestID:     uuid.NewString(),
		EntityID:      "pathclient",
		Agent:         *agent,
		Mobility:      *mobility,
		X:             *fromX,
		Y:             *fromY,
		Z:             *fromZ,
		OnGround:      *onGround,
		InWater:       *inWater,
		Goals:         []network.BlockStep{{X: *toX, Y: *toY, Z: *toZ}},
		MaxPathLength: *maxLength,
	}
	if *reach >= 0 {
		req.ReachRange = reach
	}

	client, err := network.Dial(*server, 0)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer client.Close()

	resp, err := client.RequestPath(context.Background(), req, *timeout)
	if err != nil {
		log.Fatalf("request: %v", err)
	}

	fmt.Printf("Request %s: status=%s reached=%v distance=%d\n", resp.RequestID, resp.Status, resp.Reached, resp.DistanceToTarget)
	if resp.Error != "" {
		fmt.Printf("Error: %s\n", resp.Error)
	}
	if len(resp.Path) == 0 {
		return
	}

	var path pathfinding.Path
	if err := path.UnmarshalBinary(resp.Path); err != nil {
		log.Fatalf("decode path: %v", err)
	}
	fmt.Printf("Route towards (%d,%d,%d):\n", path.Goal().X, path.Goal().Y, path.Goal().Z)
	for i := 0; i < path.Len(); i++ {
		wp := path.At(i)
		fmt.Printf(" %d: (%d,%d,%d) %-14s walked=%.2f malus=%.1f\n", i, wp.X, wp.Y, wp.Z, wp.Type, wp.WalkedDistance, wp.CostMalus)
	}
}
