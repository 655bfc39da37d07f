package dirdriver

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/mogaika/world_streamer/utils"
	"github.com/mogaika/world_streamer/world"
)

// WriteCell serializes one parsed cell into the directory layout, the
// inverse of ParseCell. Used by the world packing tool.
func WriteCell(root string, cell *world.Cell) error {
	var buf bytes.Buffer

	hdr := cellHeader{
		Magic:       cellMagic,
		ObjectCount: uint32(len(cell.Objects)),
	}
	if cell.Terrain != nil {
		hdr.TerrainSide = uint32(cell.Terrain.Size)
	}
	buf.Write(utils.AsBytes(hdr))

	if cell.Terrain != nil {
		buf.Write(utils.AsBytes(cell.Terrain.Heights))
	}

	for i := range cell.Objects {
		obj := &cell.Objects[i]
		rec := objectRecord{
			Position: [3]float32(obj.Position),
			Rotation: [3]float32(obj.Rotation),
			Scale:    obj.Scale,
		}
		copy(rec.Name[:], utils.StringToBytesBuffer(obj.Asset, len(rec.Name), true))
		buf.Write(utils.AsBytes(rec))
	}

	path := (&Driver{root: root}).cellPath(cell.Key)
	return writeFileAtomic(path, buf.Bytes())
}

// WriteAsset serializes one parsed asset, the inverse of ParseAsset.
func WriteAsset(root, id string, spec *world.AssetSpec) error {
	geom := spec.Geometry
	if geom == nil {
		geom = &world.Geometry{}
	}

	var buf bytes.Buffer
	buf.Write(utils.AsBytes(assetHeader{
		Magic:         assetMagic,
		Radius:        spec.Radius,
		MaterialCount: uint32(len(spec.Materials)),
		VertexCount:   uint32(geom.VertexCount()),
		IndexCount:    uint32(len(geom.Indices)),
	}))

	for i := range spec.Materials {
		mat := &spec.Materials[i]
		rec := materialRecord{
			Transparency: uint8(mat.Transparency),
			Cull:         uint8(mat.Cull),
			Emission: [4]float32{
				mat.EmissionColor[0], mat.EmissionColor[1], mat.EmissionColor[2],
				mat.EmissionStrength,
			},
			Tint: mat.Tint,
		}
		if mat.VertexColor {
			rec.VertexColor = 1
		}
		copy(rec.Texture[:], utils.StringToBytesBuffer(mat.Texture, len(rec.Texture), true))
		buf.Write(utils.AsBytes(rec))
	}

	buf.Write(utils.AsBytes(geom.Positions))
	buf.Write(utils.AsBytes(geom.Normals))
	buf.Write(utils.AsBytes(geom.UVs))
	buf.Write(utils.AsBytes(geom.Indices))

	return writeFileAtomic(filepath.Join(root, "assets", id+".asset"), buf.Bytes())
}

// WriteTexture stores encoded image bytes under the texture root.
func WriteTexture(root, name string, data []byte) error {
	return writeFileAtomic(filepath.Join(root, "textures", filepath.FromSlash(name)), data)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "Failed to create %q", filepath.Dir(path))
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "Failed to write %q", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "Failed to rename %q", tmp)
	}
	return nil
}
