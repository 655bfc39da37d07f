package main

import (
	"flag"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/world_streamer/config"
	"github.com/mogaika/world_streamer/stream"
	"github.com/mogaika/world_streamer/utils"
	"github.com/mogaika/world_streamer/world/drivers/gendriver"
)

// streambench drives the engine along a straight path through a generated
// world and reports per-tick timings, the cheap way to spot budget
// regressions without the web server in the loop.

func main() {
	var seed int64
	var ticks, prewarm int
	var speed float64
	flag.Int64Var(&seed, "seed", 1, "World seed")
	flag.IntVar(&ticks, "ticks", 3600, "Ticks to simulate")
	flag.IntVar(&prewarm, "prewarm", 8, "Instances to pre-warm per asset")
	flag.Float64Var(&speed, "speed", 20, "Viewer speed in units per second")
	flag.Parse()

	cfg := config.Default()
	src := gendriver.NewGen(seed, cfg.CellSize)

	engine, err := stream.NewEngine(cfg, src)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	if prewarm > 0 {
		for _, name := range src.AssetNames() {
			if err := engine.Pool().PreWarm(name, prewarm); err != nil {
				log.Fatalf("Pre-warm %q: %v", name, err)
			}
		}
	}

	const dt = 16 * time.Millisecond
	budget := cfg.LoadBudget()

	var worst, total time.Duration
	over := 0
	for i := 0; i < ticks; i++ {
		d := float32(speed) * float32(i) * float32(dt.Seconds())
		engine.SetViewpoint(mgl32.Vec3{d, 0, d * 0.5})

		start := time.Now()
		engine.Tick(dt, budget)
		took := time.Since(start)

		total += took
		if took > worst {
			worst = took
		}
		if took > budget*2 {
			over++
		}
	}

	log.Printf("[bench] %v ticks, avg %v, worst %v, %v ticks over 2x budget",
		ticks, total/time.Duration(ticks), worst, over)
	utils.LogDump(engine.Stats())
}
