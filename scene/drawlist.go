package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// DrawID addresses one direct-render draw instance, generation-checked the
// same way node handles are.
type DrawID struct {
	index uint32
	gen   uint32
}

var InvalidDrawID = DrawID{}

func (id DrawID) Valid() bool {
	return id.gen != 0
}

// DrawInstance is a renderable submitted through the low-level API, outside
// the scene graph. Billboard impostors are the only in-engine user.
type DrawInstance struct {
	TextureKey string
	Transform  mgl32.Mat4
}

type drawSlot struct {
	gen      uint32
	alive    bool
	instance DrawInstance
}

// DrawList owns every live direct-render instance. The host renderer walks
// it once per frame without touching the scene graph.
type DrawList struct {
	slots []drawSlot
	free  []uint32
	alive int
}

func NewDrawList() *DrawList {
	return &DrawList{}
}

func (l *DrawList) Add(inst DrawInstance) DrawID {
	var idx uint32
	if n := len(l.free); n != 0 {
		idx = l.free[n-1]
		l.free = l.free[:n-1]
	} else {
		idx = uint32(len(l.slots))
		l.slots = append(l.slots, drawSlot{})
	}
	s := &l.slots[idx]
	s.gen++
	s.alive = true
	s.instance = inst
	l.alive++
	return DrawID{index: idx, gen: s.gen}
}

func (l *DrawList) Remove(id DrawID) {
	if s := l.resolve(id); s != nil {
		s.alive = false
		l.free = append(l.free, id.index)
		l.alive--
	}
}

func (l *DrawList) SetTransform(id DrawID, m mgl32.Mat4) {
	if s := l.resolve(id); s != nil {
		s.instance.Transform = m
	}
}

func (l *DrawList) Get(id DrawID) (DrawInstance, bool) {
	if s := l.resolve(id); s != nil {
		return s.instance, true
	}
	return DrawInstance{}, false
}

func (l *DrawList) Len() int {
	return l.alive
}

func (l *DrawList) ForEach(fn func(id DrawID, inst DrawInstance)) {
	for i := range l.slots {
		if l.slots[i].alive {
			fn(DrawID{index: uint32(i), gen: l.slots[i].gen}, l.slots[i].instance)
		}
	}
}

func (l *DrawList) resolve(id DrawID) *drawSlot {
	if !id.Valid() || int(id.index) >= len(l.slots) {
		return nil
	}
	s := &l.slots[id.index]
	if !s.alive || s.gen != id.gen {
		return nil
	}
	return s
}
