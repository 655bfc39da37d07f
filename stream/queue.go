package stream

import (
	"container/heap"
	"sort"

	"github.com/mogaika/world_streamer/world"
)

// loadRequest is one queued cell load. Lower priority value loads first;
// seq breaks ties in enqueue order so equidistant cells stay deterministic.
type loadRequest struct {
	key      world.CellKey
	priority int64
	seq      uint64
}

type loadQueueInner struct {
	q []loadRequest
}

func (t *loadQueueInner) Len() int {
	return len(t.q)
}

func (t *loadQueueInner) Less(i int, j int) bool {
	if t.q[i].priority != t.q[j].priority {
		return t.q[i].priority < t.q[j].priority
	}
	return t.q[i].seq < t.q[j].seq
}

func (t *loadQueueInner) Swap(i int, j int) {
	t.q[i], t.q[j] = t.q[j], t.q[i]
}

func (t *loadQueueInner) Push(x interface{}) {
	t.q = append(t.q, x.(loadRequest))
}

func (t *loadQueueInner) Pop() (v interface{}) {
	last := len(t.q) - 1
	v, t.q = t.q[last], t.q[:last]
	return v
}

type loadQueue struct {
	inner loadQueueInner
}

func (t *loadQueue) Push(req loadRequest) {
	heap.Push(&t.inner, req)
}

func (t *loadQueue) Pop() loadRequest {
	return heap.Pop(&t.inner).(loadRequest)
}

func (t *loadQueue) Len() int {
	return t.inner.Len()
}

func (t *loadQueue) Clear() {
	t.inner.q = t.inner.q[:0]
}

// snapshot returns the queue contents in pop order without draining it.
func (t *loadQueue) snapshot() []loadRequest {
	out := make([]loadRequest, len(t.inner.q))
	copy(out, t.inner.q)
	sort.Slice(out, func(i, j int) bool {
		if out[i].priority != out[j].priority {
			return out[i].priority < out[j].priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}
