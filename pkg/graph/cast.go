package graph

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/chmielvu/Forge-Text/pkg/common"

	"gopkg.in/yaml.v3"
)

//go:embed cast.yaml
var castYAML []byte

type castFile struct {
	Global common.GlobalState `yaml:"global"`
	Nodes  []castNode         `yaml:"nodes"`
	Edges  []castEdge         `yaml:"edges"`
}

type castNode struct {
	ID         string         `yaml:"id"`
	Type       string         `yaml:"type"`
	Label      string         `yaml:"label"`
	Attributes map[string]any `yaml:"attributes"`
}

type castEdge struct {
	Source  string  `yaml:"source"`
	Target  string  `yaml:"target"`
	Type    string  `yaml:"type"`
	Label   string  `yaml:"label"`
	Tension float64 `yaml:"tension"`
}

var loadCast = sync.OnceValues(func() (common.Snapshot, error) {
	return ParseCast(castYAML)
})

// CanonicalCast returns a fresh copy of the built-in starting world.
func CanonicalCast() (common.Snapshot, error) {
	snap, err := loadCast()
	if err != nil {
		return common.Snapshot{}, err
	}
	return snap.Clone(), nil
}

// ParseCast decodes a cast definition. Edge tension is authored on a
// 0-10 scale and stored as weight tension/10.
func ParseCast(data []byte) (common.Snapshot, error) {
	var file castFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return common.Snapshot{}, fmt.Errorf("decode cast: %w", err)
	}

	snap := common.Snapshot{
		Nodes:  make(map[string]common.Node, len(file.Nodes)),
		Edges:  make([]common.Edge, 0, len(file.Edges)),
		Global: file.Global,
	}
	if snap.Global.NarrativePhase == "" {
		snap.Global.NarrativePhase = common.PhaseAct1
	}

	for _, n := range file.Nodes {
		attrs, err := common.AttributesFromMap(n.Attributes)
		if err != nil {
			return common.Snapshot{}, fmt.Errorf("cast node %s: %w", n.ID, err)
		}
		snap.Nodes[n.ID] = common.Node{
			ID:         n.ID,
			Type:       common.NodeType(n.Type),
			Label:      n.Label,
			Attributes: attrs,
		}
	}

	for _, e := range file.Edges {
		typ := common.EdgeType(e.Type)
		snap.Edges = append(snap.Edges, common.Edge{
			Key:    common.EdgeKey(e.Source, e.Target, typ),
			Source: e.Source,
			Target: e.Target,
			Type:   typ,
			Label:  e.Label,
			Weight: common.Clamp(e.Tension/10, 0, 1),
			Meta:   map[string]any{"tension": e.Tension},
		})
	}

	return snap, nil
}
