package main

import (
	"flag"
	"log"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/world_streamer/config"
	"github.com/mogaika/world_streamer/status"
	"github.com/mogaika/world_streamer/stream"
	"github.com/mogaika/world_streamer/web"
	"github.com/mogaika/world_streamer/world"

	"github.com/mogaika/world_streamer/world/drivers/dirdriver"
	"github.com/mogaika/world_streamer/world/drivers/gendriver"
)

func main() {
	var addr, dir, cfgPath string
	var gen, fly bool
	var seed int64
	flag.StringVar(&addr, "i", ":8000", "Address of diagnostics server")
	flag.StringVar(&dir, "dir", "", "Path to unpacked cell/asset directory")
	flag.BoolVar(&gen, "gen", false, "Stream a generated synthetic world")
	flag.Int64Var(&seed, "seed", 1, "Seed of the generated world")
	flag.StringVar(&cfgPath, "cfg", "", "Path to yaml engine config")
	flag.BoolVar(&fly, "fly", false, "Orbit the viewpoint through the world")
	flag.Parse()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.LoadFile(cfgPath); err != nil {
			log.Fatal(err)
		}
	}

	var src world.Source
	var err error
	if dir != "" {
		src, err = dirdriver.NewDriverFromDirectory(dir)
	} else if gen {
		src = gendriver.NewGen(seed, cfg.CellSize)
	} else {
		flag.PrintDefaults()
		return
	}
	if err != nil {
		log.Fatal(err)
	}

	engine, err := stream.NewEngine(cfg, src)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	hub := status.NewHub()
	go func() {
		log.Fatal(web.StartServer(addr, engine, hub, "web"))
	}()

	runFrameLoop(engine, hub, cfg, fly)
}

// runFrameLoop is the stand-in host loop: fixed timestep, one scheduler
// tick per frame, stats published once a second.
func runFrameLoop(engine *stream.Engine, hub *status.Hub, cfg *config.Config, fly bool) {
	const frameRate = 60

	ticker := time.NewTicker(time.Second / frameRate)
	defer ticker.Stop()

	pos := mgl32.Vec3{cfg.CellSize / 2, 10, cfg.CellSize / 2}
	engine.SetViewpoint(pos)

	var elapsed float64
	lastStats := time.Now()
	last := time.Now()

	for range ticker.C {
		now := time.Now()
		dt := now.Sub(last)
		last = now

		if fly {
			elapsed += dt.Seconds()
			radius := float64(cfg.CellSize) * 3
			pos = mgl32.Vec3{
				float32(radius * math.Cos(elapsed*0.05)),
				10,
				float32(radius * math.Sin(elapsed*0.05)),
			}
		}

		engine.SetViewpoint(pos)
		engine.Tick(dt, cfg.LoadBudget())

		if now.Sub(lastStats) >= time.Second {
			lastStats = now
			hub.Publish(engine.Stats())
		}
	}
}
