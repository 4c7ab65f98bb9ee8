package layout

import (
	"hash/fnv"
	"math"
	"slices"
)

const (
	initialRadius = 100.0
	minDistance   = 0.01
)

// Position is a 2D coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Settings tune the force-directed placement.
type Settings struct {
	Iterations int `json:"iterations"`
	// Gravity pulls every node toward the origin, scaled by its degree.
	Gravity float64 `json:"gravity"`
	// ScalingRatio scales the repulsion between every node pair.
	ScalingRatio float64 `json:"scaling_ratio"`
	// MaxDisplacement caps how far a node moves in one iteration.
	MaxDisplacement float64 `json:"max_displacement"`
}

func DefaultSettings() Settings {
	return Settings{Iterations: 50, Gravity: 1.0, ScalingRatio: 2.0, MaxDisplacement: 10}
}

// Compute runs a ForceAtlas2-style layout over the payload: edges attract
// their endpoints proportionally to distance and weight, every pair repels
// with (deg+1)(deg+1)/d, and gravity pulls toward the origin. Nodes start
// from their stored x/y, or from a deterministic spot on a circle. The
// result is deterministic for a given payload.
func Compute(p Payload) map[string]Position {
	ids := make([]string, 0, len(p.Nodes))
	for id := range p.Nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	n := len(ids)
	if n == 0 {
		return map[string]Position{}
	}

	index := make(map[string]int, n)
	for i, id := range ids {
		index[id] = i
	}

	type link struct {
		a, b   int
		weight float64
	}
	var links []link
	degree := make([]float64, n)
	for _, e := range p.Edges {
		a, okA := index[e.Source]
		b, okB := index[e.Target]
		if !okA || !okB || a == b {
			continue
		}
		links = append(links, link{a: a, b: b, weight: e.Weight})
		degree[a]++
		degree[b]++
	}

	pos := make([]Position, n)
	for i, id := range ids {
		attrs := p.Nodes[id].Attributes
		if attrs.X != nil && attrs.Y != nil && finite(*attrs.X) && finite(*attrs.Y) {
			pos[i] = Position{X: *attrs.X, Y: *attrs.Y}
			continue
		}
		pos[i] = seedPosition(id, i, n)
	}

	s := p.Settings
	force := make([]Position, n)
	for range s.Iterations {
		clear(force)

		for i := range n {
			for j := i + 1; j < n; j++ {
				dx, dy := pos[i].X-pos[j].X, pos[i].Y-pos[j].Y
				d := math.Max(math.Hypot(dx, dy), minDistance)
				f := s.ScalingRatio * (degree[i] + 1) * (degree[j] + 1) / d
				force[i].X += dx / d * f
				force[i].Y += dy / d * f
				force[j].X -= dx / d * f
				force[j].Y -= dy / d * f
			}
		}

		for _, l := range links {
			dx, dy := pos[l.a].X-pos[l.b].X, pos[l.a].Y-pos[l.b].Y
			force[l.a].X -= dx * l.weight
			force[l.a].Y -= dy * l.weight
			force[l.b].X += dx * l.weight
			force[l.b].Y += dy * l.weight
		}

		for i := range n {
			d := math.Hypot(pos[i].X, pos[i].Y)
			if d > minDistance {
				g := s.Gravity * (degree[i] + 1)
				force[i].X -= pos[i].X / d * g
				force[i].Y -= pos[i].Y / d * g
			}

			mag := math.Hypot(force[i].X, force[i].Y)
			if mag == 0 || !finite(mag) {
				continue
			}
			step := math.Min(1, s.MaxDisplacement/mag)
			pos[i].X += force[i].X * step
			pos[i].Y += force[i].Y * step
		}
	}

	out := make(map[string]Position, n)
	for i, id := range ids {
		out[id] = pos[i]
	}
	return out
}

// seedPosition spreads nodes on a circle, nudged by a hash of the id so
// that equal angles never coincide.
func seedPosition(id string, i, n int) Position {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	jitter := float64(h.Sum32()%1000) / 1000
	angle := 2 * math.Pi * (float64(i) + jitter*0.5) / float64(n)
	r := initialRadius * (0.75 + jitter*0.5)
	return Position{X: r * math.Cos(angle), Y: r * math.Sin(angle)}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
