// Package scene mirrors the host scene graph. Nodes are addressed by
// generation-checked handles: a freed slot bumps its generation, so a stale
// handle fails Alive instead of touching reused memory.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

type Handle struct {
	index uint32
	gen   uint32
}

// InvalidHandle never resolves; generation 0 is never handed out.
var InvalidHandle = Handle{}

func (h Handle) Valid() bool {
	return h.gen != 0
}

type node struct {
	gen       uint32
	alive     bool
	parent    Handle
	children  []Handle
	name      string
	transform mgl32.Mat4
	visible   bool
	shadows   bool
	collision bool
	payload   interface{}
}

type Graph struct {
	nodes []node
	free  []uint32
	root  Handle
	alive int
}

func NewGraph() *Graph {
	g := &Graph{}
	g.root = g.Insert(InvalidHandle, "root")
	return g
}

func (g *Graph) Root() Handle {
	return g.root
}

func (g *Graph) Insert(parent Handle, name string) Handle {
	var idx uint32
	if n := len(g.free); n != 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		idx = uint32(len(g.nodes))
		g.nodes = append(g.nodes, node{})
	}

	n := &g.nodes[idx]
	n.gen++
	n.alive = true
	n.parent = parent
	n.children = n.children[:0]
	n.name = name
	n.transform = mgl32.Ident4()
	n.visible = true
	n.shadows = true
	n.collision = true
	n.payload = nil

	h := Handle{index: idx, gen: n.gen}
	if p := g.resolve(parent); p != nil {
		p.children = append(p.children, h)
	}
	g.alive++
	return h
}

// Remove frees the node and its whole subtree. Stale handles are a no-op.
func (g *Graph) Remove(h Handle) {
	n := g.resolve(h)
	if n == nil {
		return
	}
	if p := g.resolve(n.parent); p != nil {
		p.children = removeChild(p.children, h)
	}
	g.removeSubtree(h)
}

func (g *Graph) removeSubtree(h Handle) {
	n := g.resolve(h)
	if n == nil {
		return
	}
	for _, c := range n.children {
		g.removeSubtree(c)
	}
	n.alive = false
	n.payload = nil
	n.children = n.children[:0]
	g.free = append(g.free, h.index)
	g.alive--
}

// Reparent detaches the node from its current parent and attaches it under
// another one. Used when pooled instances move between a cell root and the
// pool's hidden store.
func (g *Graph) Reparent(h, newParent Handle) {
	n := g.resolve(h)
	if n == nil {
		return
	}
	if p := g.resolve(n.parent); p != nil {
		p.children = removeChild(p.children, h)
	}
	n.parent = newParent
	if p := g.resolve(newParent); p != nil {
		p.children = append(p.children, h)
	}
}

func (g *Graph) Alive(h Handle) bool {
	return g.resolve(h) != nil
}

func (g *Graph) NodeCount() int {
	return g.alive
}

func (g *Graph) Name(h Handle) string {
	if n := g.resolve(h); n != nil {
		return n.name
	}
	return ""
}

func (g *Graph) Parent(h Handle) Handle {
	if n := g.resolve(h); n != nil {
		return n.parent
	}
	return InvalidHandle
}

// Children returns a copy; callers may remove nodes while iterating it.
func (g *Graph) Children(h Handle) []Handle {
	n := g.resolve(h)
	if n == nil {
		return nil
	}
	out := make([]Handle, len(n.children))
	copy(out, n.children)
	return out
}

func (g *Graph) SetTransform(h Handle, m mgl32.Mat4) {
	if n := g.resolve(h); n != nil {
		n.transform = m
	}
}

func (g *Graph) Transform(h Handle) mgl32.Mat4 {
	if n := g.resolve(h); n != nil {
		return n.transform
	}
	return mgl32.Ident4()
}

func (g *Graph) SetVisible(h Handle, v bool) {
	if n := g.resolve(h); n != nil {
		n.visible = v
	}
}

func (g *Graph) Visible(h Handle) bool {
	if n := g.resolve(h); n != nil {
		return n.visible
	}
	return false
}

func (g *Graph) SetShadows(h Handle, v bool) {
	if n := g.resolve(h); n != nil {
		n.shadows = v
	}
}

func (g *Graph) Shadows(h Handle) bool {
	if n := g.resolve(h); n != nil {
		return n.shadows
	}
	return false
}

func (g *Graph) SetCollision(h Handle, v bool) {
	if n := g.resolve(h); n != nil {
		n.collision = v
	}
}

func (g *Graph) Collision(h Handle) bool {
	if n := g.resolve(h); n != nil {
		return n.collision
	}
	return false
}

func (g *Graph) SetPayload(h Handle, v interface{}) {
	if n := g.resolve(h); n != nil {
		n.payload = v
	}
}

func (g *Graph) Payload(h Handle) interface{} {
	if n := g.resolve(h); n != nil {
		return n.payload
	}
	return nil
}

func (g *Graph) resolve(h Handle) *node {
	if !h.Valid() || int(h.index) >= len(g.nodes) {
		return nil
	}
	n := &g.nodes[h.index]
	if !n.alive || n.gen != h.gen {
		return nil
	}
	return n
}

func removeChild(children []Handle, h Handle) []Handle {
	for i, c := range children {
		if c == h {
			last := len(children) - 1
			children[i] = children[last]
			return children[:last]
		}
	}
	return children
}
