// Package dirdriver reads preprocessed cell and asset records from a plain
// directory tree, the unpacked form content tooling emits:
//
//	<root>/cells/<x>_<z>.cell   exterior cells
//	<root>/cells/<name>.cell    interior cells
//	<root>/assets/<id>.asset    converted assets
//	<root>/textures/...         encoded images
package dirdriver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/world_streamer/utils"
	"github.com/mogaika/world_streamer/world"
)

const (
	cellMagic  = 0x4C4C4543 // "CELL"
	assetMagic = 0x54455341 // "ASET"
)

var _ world.Source = (*Driver)(nil)

type Driver struct {
	root string
}

func NewDriverFromDirectory(root string) (*Driver, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open content directory %q", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("Content root %q is not a directory", root)
	}
	return &Driver{root: root}, nil
}

func (d *Driver) cellPath(key world.CellKey) string {
	if key.IsInterior() {
		return filepath.Join(d.root, "cells", key.Interior+".cell")
	}
	return filepath.Join(d.root, "cells", fmt.Sprintf("%d_%d.cell", key.X, key.Z))
}

func (d *Driver) readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(world.ErrNotFound, "%q", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read %q", path)
	}
	return data, nil
}

type cellHeader struct {
	Magic       uint32
	ObjectCount uint32
	TerrainSide uint32
}

type objectRecord struct {
	Name     [32]byte
	Position [3]float32
	Rotation [3]float32
	Scale    float32
}

const objectRecordSize = 32 + 7*4

func (d *Driver) ParseCell(key world.CellKey) (*world.Cell, error) {
	data, err := d.readFile(d.cellPath(key))
	if err != nil {
		return nil, err
	}
	if len(data) < 12 {
		return nil, errors.Errorf("Cell %v truncated header", key)
	}

	var hdr cellHeader
	utils.ReadBytes(&hdr, data[:12])
	if hdr.Magic != cellMagic {
		return nil, errors.Errorf("Cell %v wrong magic %.8x", key, hdr.Magic)
	}

	cell := &world.Cell{Key: key}
	offset := 12

	if hdr.TerrainSide != 0 {
		side := int(hdr.TerrainSide)
		heights := make([]float32, side*side)
		need := len(heights) * 4
		if len(data) < offset+need {
			return nil, errors.Errorf("Cell %v truncated terrain", key)
		}
		utils.ReadBytes(heights, data[offset:offset+need])
		cell.Terrain = &world.Terrain{Size: side, Heights: heights}
		offset += need
	}

	for i := uint32(0); i < hdr.ObjectCount; i++ {
		if len(data) < offset+objectRecordSize {
			return nil, errors.Errorf("Cell %v truncated object %d", key, i)
		}
		var rec objectRecord
		utils.ReadBytes(&rec, data[offset:offset+objectRecordSize])
		offset += objectRecordSize

		cell.Objects = append(cell.Objects, world.ObjectRef{
			Asset:    utils.BytesToString(rec.Name[:]),
			Position: mgl32.Vec3(rec.Position),
			Rotation: mgl32.Vec3(rec.Rotation),
			Scale:    rec.Scale,
		})
	}

	return cell, nil
}

type assetHeader struct {
	Magic         uint32
	Radius        float32
	MaterialCount uint32
	VertexCount   uint32
	IndexCount    uint32
}

type materialRecord struct {
	Texture      [32]byte
	Transparency uint8
	Cull         uint8
	VertexColor  uint8
	_            uint8
	Emission     [4]float32
	Tint         [4]float32
}

const materialRecordSize = 32 + 4 + 8*4

func (d *Driver) ParseAsset(id string) (*world.AssetSpec, error) {
	data, err := d.readFile(filepath.Join(d.root, "assets", id+".asset"))
	if err != nil {
		return nil, err
	}
	if len(data) < 20 {
		return nil, errors.Errorf("Asset %q truncated header", id)
	}

	var hdr assetHeader
	utils.ReadBytes(&hdr, data[:20])
	if hdr.Magic != assetMagic {
		return nil, errors.Errorf("Asset %q wrong magic %.8x", id, hdr.Magic)
	}

	spec := &world.AssetSpec{Name: id, Radius: hdr.Radius}
	offset := 20

	for i := uint32(0); i < hdr.MaterialCount; i++ {
		if len(data) < offset+materialRecordSize {
			return nil, errors.Errorf("Asset %q truncated material %d", id, i)
		}
		var rec materialRecord
		utils.ReadBytes(&rec, data[offset:offset+materialRecordSize])
		offset += materialRecordSize

		spec.Materials = append(spec.Materials, world.MaterialSpec{
			Texture:          utils.BytesToString(rec.Texture[:]),
			Transparency:     world.TransparencyMode(rec.Transparency),
			Cull:             world.CullMode(rec.Cull),
			VertexColor:      rec.VertexColor != 0,
			EmissionColor:    [3]float32{rec.Emission[0], rec.Emission[1], rec.Emission[2]},
			EmissionStrength: rec.Emission[3],
			Tint:             rec.Tint,
		})
	}

	// Counts come from the file; bound them against the actual payload
	// before sizing any slice, in 64-bit so nothing wraps.
	need := int64(hdr.VertexCount)*(3+3+2)*4 + int64(hdr.IndexCount)*2
	if need > int64(len(data)-offset) {
		return nil, errors.Errorf("Asset %q geometry counts %v/%v exceed file size",
			id, hdr.VertexCount, hdr.IndexCount)
	}
	geom := &world.Geometry{
		Positions: make([]float32, hdr.VertexCount*3),
		Normals:   make([]float32, hdr.VertexCount*3),
		UVs:       make([]float32, hdr.VertexCount*2),
		Indices:   make([]uint16, hdr.IndexCount),
	}
	utils.ReadBytes(geom.Positions, data[offset:offset+len(geom.Positions)*4])
	offset += len(geom.Positions) * 4
	utils.ReadBytes(geom.Normals, data[offset:offset+len(geom.Normals)*4])
	offset += len(geom.Normals) * 4
	utils.ReadBytes(geom.UVs, data[offset:offset+len(geom.UVs)*4])
	offset += len(geom.UVs) * 4
	utils.ReadBytes(geom.Indices, data[offset:offset+len(geom.Indices)*2])
	spec.Geometry = geom

	return spec, nil
}

func (d *Driver) OpenTexture(path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.root, filepath.FromSlash(path)))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(world.ErrNotFound, "%q", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open texture %q", path)
	}
	return f, nil
}
