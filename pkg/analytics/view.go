// Package analytics computes structural metrics over a graph snapshot:
// centrality, communities, dominance paths and importance-weighted pruning.
//
// Every algorithm runs on a common.Snapshot so it never holds the store
// lock while it works. Results are written back through graph.Store.
package analytics

import (
	"fmt"
	"slices"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/logger"
)

type arc struct {
	to     int
	weight float64
	key    string
}

// view is an index-based adjacency form of a snapshot. Node indexes follow
// lexical id order so every algorithm is deterministic.
type view struct {
	ids   []string
	index map[string]int
	out   [][]arc
	in    [][]arc
}

func newView(snap common.Snapshot) *view {
	ids := snap.SortedNodeIDs()
	v := &view{
		ids:   ids,
		index: make(map[string]int, len(ids)),
		out:   make([][]arc, len(ids)),
		in:    make([][]arc, len(ids)),
	}
	for i, id := range ids {
		v.index[id] = i
	}
	for _, e := range snap.Edges {
		s, ok := v.index[e.Source]
		if !ok {
			continue
		}
		t, ok := v.index[e.Target]
		if !ok {
			continue
		}
		v.out[s] = append(v.out[s], arc{to: t, weight: e.Weight, key: e.Key})
		v.in[t] = append(v.in[t], arc{to: s, weight: e.Weight, key: e.Key})
	}
	return v
}

func (v *view) order() int {
	return len(v.ids)
}

// byID maps index-aligned scores back onto node ids.
func (v *view) byID(scores []float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for i, s := range scores {
		out[v.ids[i]] = s
	}
	return out
}

// safely runs fn and converts a panic into an error tagged with name.
func safely(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn()
}

func sortedCommunityIDs(groups map[int][]string) []int {
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func logFailure(name string, err error) {
	logger.Error("[Analytics] "+name+" failed", "err", err)
}
