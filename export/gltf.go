// Package export turns a loaded cell into a glTF document for offline
// inspection of what the streamer actually built.
package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/world_streamer/cache"
	"github.com/mogaika/world_streamer/pool"
	"github.com/mogaika/world_streamer/stream"
	"github.com/mogaika/world_streamer/utils"
	"github.com/mogaika/world_streamer/world"
)

type exporter struct {
	doc       *gltf.Document
	meshes    map[string]uint32 // asset id -> mesh index
	materials map[string]uint32 // material key -> material index
	textures  map[string]uint32 // texture key -> texture index
}

// CellToGLTF snapshots one loaded cell under the engine lock.
func CellToGLTF(e *stream.Engine, key world.CellKey) (*gltf.Document, error) {
	var doc *gltf.Document
	var err error
	e.View(func() {
		doc, err = buildCellDocument(e, key)
	})
	return doc, err
}

func buildCellDocument(e *stream.Engine, key world.CellKey) (*gltf.Document, error) {
	insts := e.CellInstances(key)
	if insts == nil {
		return nil, errors.Errorf("Cell %v is not loaded", key)
	}

	ex := &exporter{
		doc:       gltf.NewDocument(),
		meshes:    make(map[string]uint32),
		materials: make(map[string]uint32),
		textures:  make(map[string]uint32),
	}
	ex.doc.Scenes[0].Name = "cell:" + key.String()

	for _, inst := range insts {
		proto := inst.Prototype()
		if proto.Geometry == nil {
			continue
		}

		meshIndex, err := ex.mesh(proto)
		if err != nil {
			return nil, err
		}

		node := &gltf.Node{
			Name: e.Graph().Name(inst.Node),
			Mesh: gltf.Index(meshIndex),
		}
		applyTransform(node, e.Graph().Transform(inst.Node))

		ex.doc.Scenes[0].Nodes = append(ex.doc.Scenes[0].Nodes, uint32(len(ex.doc.Nodes)))
		ex.doc.Nodes = append(ex.doc.Nodes, node)
	}

	return ex.doc, nil
}

func (ex *exporter) mesh(proto *pool.Prototype) (uint32, error) {
	if index, ok := ex.meshes[proto.AssetID]; ok {
		return index, nil
	}

	geom := proto.Geometry
	verticesCount := geom.VertexCount()

	positions := make([][3]float32, verticesCount)
	for i := range positions {
		positions[i] = [3]float32{geom.Positions[i*3], geom.Positions[i*3+1], geom.Positions[i*3+2]}
	}

	attributes := map[string]uint32{
		"POSITION": modeler.WritePosition(ex.doc, positions),
	}

	if len(geom.Normals) == verticesCount*3 {
		normals := make([][3]float32, verticesCount)
		for i := range normals {
			normals[i] = [3]float32{geom.Normals[i*3], geom.Normals[i*3+1], geom.Normals[i*3+2]}
		}
		attributes["NORMAL"] = modeler.WriteNormal(ex.doc, normals)
	}

	if len(geom.UVs) == verticesCount*2 {
		uvs := make([][2]float32, verticesCount)
		for i := range uvs {
			uvs[i] = [2]float32{geom.UVs[i*2], geom.UVs[i*2+1]}
		}
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(ex.doc, uvs)
	}

	indices := make([]uint32, len(geom.Indices))
	for i, index := range geom.Indices {
		indices[i] = uint32(index)
	}
	indicesAccessor := modeler.WriteIndices(ex.doc, indices)

	primitive := &gltf.Primitive{
		Indices:    &indicesAccessor,
		Attributes: attributes,
	}
	if len(proto.Materials) != 0 {
		materialIndex, err := ex.material(proto.Materials[0])
		if err != nil {
			return 0, err
		}
		primitive.Material = gltf.Index(materialIndex)
	}

	index := uint32(len(ex.doc.Meshes))
	ex.doc.Meshes = append(ex.doc.Meshes, &gltf.Mesh{
		Name:       proto.AssetID,
		Primitives: []*gltf.Primitive{primitive},
	})
	ex.meshes[proto.AssetID] = index
	return index, nil
}

func (ex *exporter) material(mat *cache.Material) (uint32, error) {
	if index, ok := ex.materials[mat.Key]; ok {
		return index, nil
	}

	color := new([4]float32)
	*color = mat.Spec.Tint
	if *color == ([4]float32{}) {
		*color = [4]float32{1, 1, 1, 1}
	}

	gltfMaterial := &gltf.Material{
		Name:        mat.Key,
		DoubleSided: mat.Spec.Cull == world.CullNone,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: color,
		},
	}
	if mat.Spec.Transparency != world.TransparencyOpaque {
		gltfMaterial.AlphaMode = gltf.AlphaBlend
	}

	if mat.Texture != nil {
		textureIndex, err := ex.texture(mat.Texture)
		if err != nil {
			return 0, err
		}
		gltfMaterial.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
			Index: textureIndex,
		}
	}

	index := uint32(len(ex.doc.Materials))
	ex.doc.Materials = append(ex.doc.Materials, gltfMaterial)
	ex.materials[mat.Key] = index
	return index, nil
}

func (ex *exporter) texture(tex *cache.Texture) (uint32, error) {
	if index, ok := ex.textures[tex.Key]; ok {
		return index, nil
	}

	img := &image.RGBA{
		Pix:    tex.Pixels,
		Stride: tex.Width * 4,
		Rect:   image.Rect(0, 0, tex.Width, tex.Height),
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return 0, errors.Wrapf(err, "Failed to encode texture %q", tex.Key)
	}

	imageIndex, err := modeler.WriteImage(ex.doc, tex.Key, "image/png", &buf)
	if err != nil {
		return 0, errors.Wrapf(err, "Failed to embed texture %q", tex.Key)
	}

	index := uint32(len(ex.doc.Textures))
	ex.doc.Textures = append(ex.doc.Textures, &gltf.Texture{
		Name:   tex.Key,
		Source: gltf.Index(imageIndex),
	})
	ex.textures[tex.Key] = index
	return index, nil
}

func applyTransform(node *gltf.Node, m mgl32.Mat4) {
	translation := utils.TranslationOf(m)

	scale := mgl32.Vec3{
		m.Col(0).Vec3().Len(),
		m.Col(1).Vec3().Len(),
		m.Col(2).Vec3().Len(),
	}

	rot := mgl32.Mat3FromCols(
		m.Col(0).Vec3().Mul(1/nonZero(scale.X())),
		m.Col(1).Vec3().Mul(1/nonZero(scale.Y())),
		m.Col(2).Vec3().Mul(1/nonZero(scale.Z())),
	)
	q := mgl32.Mat4ToQuat(rot.Mat4())

	node.Translation = translation
	node.Rotation = q.V.Vec4(q.W)
	node.Scale = scale
}

func nonZero(v float32) float32 {
	if v == 0 {
		return 1
	}
	return v
}

// DocumentName builds the download file name for a cell export.
func DocumentName(key world.CellKey) string {
	return fmt.Sprintf("cell_%s.gltf", key.String())
}
