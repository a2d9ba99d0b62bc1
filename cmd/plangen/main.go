// plangen generates a mission .plan file from a scenario JSON file,
// standing in for the GUI's save-dialog collaborator.
//
// Usage:
//
//	plangen -scenario mission.json -out mission.plan
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"skyplan/internal/config"
	"skyplan/internal/model"
	"skyplan/internal/plan"
	"skyplan/internal/service/mission"
	"skyplan/internal/service/terrain"
)

func main() {
	scenarioPath := flag.String("scenario", "", "path to scenario JSON file")
	outPath := flag.String("out", "mission.plan", "output .plan file path")
	cacheDir := flag.String("cache-dir", "", "terrain tile cache directory (empty disables the tile cache)")
	flag.Parse()

	if *scenarioPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	data, err := os.ReadFile(*scenarioPath)
	if err != nil {
		log.Fatalf("Failed to read scenario: %v", err)
	}
	var sc model.Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		log.Fatalf("Failed to parse scenario: %v", err)
	}

	var store terrain.TileStore
	if *cacheDir != "" {
		diskStore, err := terrain.NewDiskTileStore(*cacheDir)
		if err != nil {
			log.Printf("Tile cache dir unusable, running network-only: %v", err)
		} else {
			store = diskStore
		}
	}

	terrainService := terrain.New(terrain.Options{
		APIURL: cfg.ElevationAPIUrl,
		Store:  store,
	})
	assembler := mission.NewAssembler(terrainService)

	res, err := assembler.Generate(context.Background(), &sc)
	if err != nil {
		log.Fatalf("Plan generation failed: %v", err)
	}

	for _, w := range res.Warnings {
		log.Printf("warning [%s]: %s", w.Kind, w.Message)
	}
	if res.TerrainIncomplete {
		log.Printf("warning: terrain data incomplete, re-verify clearance before flying")
	}

	doc, err := plan.Marshal(res.Plan)
	if err != nil {
		log.Fatalf("Failed to serialize plan: %v", err)
	}
	if err := os.WriteFile(*outPath, doc, 0o644); err != nil {
		log.Fatalf("Failed to write plan file: %v", err)
	}

	// Persist fresh terrain samples for the next run.
	if store != nil {
		terrainService.FlushDirtySamples()
	}

	fmt.Printf("Wrote %s: %d mission items, %d geofence vertices\n",
		*outPath, len(res.Plan.Mission.Items), fenceVertexCount(res.Plan))
}

func fenceVertexCount(d *plan.Document) int {
	n := 0
	for _, p := range d.GeoFence.Polygons {
		n += len(p.Polygon)
	}
	return n
}
