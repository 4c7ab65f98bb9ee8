package analytics

import (
	"container/heap"
	"math"

	"github.com/chmielvu/Forge-Text/pkg/common"
)

type pathItem struct {
	node int
	cost float64
}

type priorityQueue []pathItem

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].cost < pq[j].cost }
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)        { *pq = append(*pq, x.(pathItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	item := old[len(old)-1]
	*pq = old[:len(old)-1]
	return item
}

func (pq priorityQueue) peek() float64 {
	if len(pq) == 0 {
		return math.Inf(1)
	}
	return pq[0].cost
}

// search is one direction of the bidirectional Dijkstra.
type search struct {
	arcs [][]arc
	dist map[int]float64
	prev map[int]int
	done map[int]bool
	pq   *priorityQueue
}

func newSearch(arcs [][]arc, start int) *search {
	s := &search{
		arcs: arcs,
		dist: map[int]float64{start: 0},
		prev: map[int]int{},
		done: map[int]bool{},
		pq:   &priorityQueue{},
	}
	heap.Push(s.pq, pathItem{node: start})
	return s
}

// step settles one node and relaxes its arcs. It updates best/meet when a
// path through the other search becomes shorter.
func (s *search) step(other *search, best *float64, meet *int) {
	item := heap.Pop(s.pq).(pathItem)
	u := item.node
	if s.done[u] || item.cost > s.dist[u] {
		return
	}
	s.done[u] = true

	for _, a := range s.arcs[u] {
		cost := s.dist[u] + resistance(a.weight)
		if cur, ok := s.dist[a.to]; ok && cost >= cur {
			continue
		}
		s.dist[a.to] = cost
		s.prev[a.to] = u
		heap.Push(s.pq, pathItem{node: a.to, cost: cost})

		if d, ok := other.dist[a.to]; ok && cost+d < *best {
			*best = cost + d
			*meet = a.to
		}
	}
}

func resistance(weight float64) float64 {
	return math.Max(0, 1-weight)
}

// DominancePath returns the directed path from source to target that
// minimises the summed resistance 1-weight, i.e. the chain of strongest
// relations. It reports false when either node is missing or no path
// exists.
func DominancePath(snap common.Snapshot, source, target string) ([]string, bool) {
	v := newView(snap)
	s, ok := v.index[source]
	if !ok {
		return nil, false
	}
	t, ok := v.index[target]
	if !ok {
		return nil, false
	}
	if s == t {
		return []string{source}, true
	}

	fwd := newSearch(v.out, s)
	bwd := newSearch(v.in, t)
	best, meet := math.Inf(1), -1

	for fwd.pq.Len() > 0 && bwd.pq.Len() > 0 {
		if fwd.pq.peek()+bwd.pq.peek() >= best {
			break
		}
		if fwd.pq.peek() <= bwd.pq.peek() {
			fwd.step(bwd, &best, &meet)
		} else {
			bwd.step(fwd, &best, &meet)
		}
	}
	if meet < 0 {
		return nil, false
	}

	var head []int
	for n := meet; ; {
		head = append(head, n)
		p, ok := fwd.prev[n]
		if !ok {
			break
		}
		n = p
	}
	path := make([]string, 0, len(head))
	for i := len(head) - 1; i >= 0; i-- {
		path = append(path, v.ids[head[i]])
	}
	for n := meet; ; {
		p, ok := bwd.prev[n]
		if !ok {
			break
		}
		path = append(path, v.ids[p])
		n = p
	}
	return path, true
}
