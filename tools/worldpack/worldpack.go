package main

import (
	"flag"
	"io"
	"log"

	"github.com/mogaika/world_streamer/world"
	"github.com/mogaika/world_streamer/world/drivers/dirdriver"
	"github.com/mogaika/world_streamer/world/drivers/gendriver"
)

// worldpack bakes a generated world into the directory layout the dir
// driver reads, so the demo server can run against packed content.

func main() {
	var out string
	var seed int64
	var radius int
	var cellSize float64
	flag.StringVar(&out, "o", "", "Output content directory")
	flag.Int64Var(&seed, "seed", 1, "World seed")
	flag.IntVar(&radius, "radius", 4, "Cell radius around origin to pack")
	flag.Float64Var(&cellSize, "cellsize", 64, "Cell edge length in world units")
	flag.Parse()

	if out == "" {
		flag.PrintDefaults()
		return
	}

	gen := gendriver.NewGen(seed, float32(cellSize))

	cells := 0
	for z := -radius; z <= radius; z++ {
		for x := -radius; x <= radius; x++ {
			key := world.ExteriorKey(x, z)
			cell, err := gen.ParseCell(key)
			if err != nil {
				log.Fatalf("Cell %v: %v", key, err)
			}
			if err := dirdriver.WriteCell(out, cell); err != nil {
				log.Fatalf("Cell %v: %v", key, err)
			}
			cells++
		}
	}

	textures := map[string]bool{}
	for _, name := range gen.AssetNames() {
		spec, err := gen.ParseAsset(name)
		if err != nil {
			log.Fatalf("Asset %q: %v", name, err)
		}
		if err := dirdriver.WriteAsset(out, name, spec); err != nil {
			log.Fatalf("Asset %q: %v", name, err)
		}
		for _, mat := range spec.Materials {
			if mat.Texture != "" {
				textures[mat.Texture] = true
			}
		}
	}

	for name := range textures {
		rc, err := gen.OpenTexture(name + ".png")
		if err != nil {
			log.Fatalf("Texture %q: %v", name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			log.Fatalf("Texture %q: %v", name, err)
		}
		if err := dirdriver.WriteTexture(out, name+".png", data); err != nil {
			log.Fatalf("Texture %q: %v", name, err)
		}
	}

	log.Printf("[worldpack] packed %v cells, %v assets, %v textures into %q",
		cells, len(gen.AssetNames()), len(textures), out)
}
