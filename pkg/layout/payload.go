package layout

import (
	"encoding/json"
	"fmt"

	"github.com/chmielvu/Forge-Text/pkg/common"
)

// Payload is what crosses the executor boundary: the full node and edge
// records, not just positions, plus the settings to run with.
type Payload struct {
	Nodes    map[string]common.Node `json:"nodes"`
	Edges    []common.Edge          `json:"edges"`
	Settings Settings               `json:"settings"`
}

func EncodePayload(snap common.Snapshot, settings Settings) ([]byte, error) {
	data, err := json.Marshal(Payload{Nodes: snap.Nodes, Edges: snap.Edges, Settings: settings})
	if err != nil {
		return nil, fmt.Errorf("encode layout payload: %w", err)
	}
	return data, nil
}

func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode layout payload: %w", err)
	}
	return p, nil
}
