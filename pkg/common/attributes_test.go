package common

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributesJSONKeepsUnknownKeys(t *testing.T) {
	input := `{
		"grudges": {"B": 40},
		"pagerank": 0.12,
		"val": 18,
		"prefectDNA": {"loyalty": 0.7, "tags": ["a", "b"]}
	}`

	var attrs Attributes
	require.NoError(t, json.Unmarshal([]byte(input), &attrs))

	assert.Equal(t, 40.0, attrs.Grudges["B"])
	require.NotNil(t, attrs.PageRank)
	assert.InDelta(t, 0.12, *attrs.PageRank, 1e-9)
	assert.Equal(t, 18.0, attrs.Extra["val"])
	assert.NotContains(t, attrs.Extra, "grudges")

	out, err := json.Marshal(attrs)
	require.NoError(t, err)

	var roundTrip map[string]any
	require.NoError(t, json.Unmarshal(out, &roundTrip))
	assert.Contains(t, roundTrip, "prefectDNA")
	assert.Contains(t, roundTrip, "grudges")
	assert.Equal(t, 18.0, roundTrip["val"])
}

func TestAttributesMergeIsDeep(t *testing.T) {
	attrs := Attributes{
		Grudges:   map[string]float64{"A": 10},
		Emotional: &EmotionalState{Paranoia: 0.2, Fear: 0.4},
		Extra:     map[string]any{"mood": map[string]any{"calm": 1.0, "tired": 0.5}},
	}

	err := attrs.Merge(map[string]any{
		"grudges":               map[string]any{"B": 20.0},
		"currentEmotionalState": map[string]any{"paranoia": 0.9},
		"mood":                  map[string]any{"calm": 0.0},
		"injuries":              []any{"bruise"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"A": 10, "B": 20}, attrs.Grudges)
	require.NotNil(t, attrs.Emotional)
	assert.Equal(t, 0.9, attrs.Emotional.Paranoia)
	assert.Equal(t, 0.4, attrs.Emotional.Fear)
	assert.Equal(t, []string{"bruise"}, attrs.Injuries)
	assert.Equal(t, map[string]any{"calm": 0.0, "tired": 0.5}, attrs.Extra["mood"])
}

func TestAttributesCloneIsIndependent(t *testing.T) {
	orig := Attributes{
		Grudges:  map[string]float64{"A": 10},
		Memories: []Memory{{ID: "m1", Involved: []string{"A"}}},
		Ledger:   &Ledger{HopeLevel: 50},
		X:        Float(1),
		Extra:    map[string]any{"nested": map[string]any{"k": "v"}},
	}

	cp := orig.Clone()
	cp.Grudges["A"] = 99
	cp.Memories[0].Involved[0] = "Z"
	cp.Ledger.HopeLevel = 0
	*cp.X = 5
	cp.Extra["nested"].(map[string]any)["k"] = "changed"

	assert.Equal(t, 10.0, orig.Grudges["A"])
	assert.Equal(t, "A", orig.Memories[0].Involved[0])
	assert.Equal(t, 50.0, orig.Ledger.HopeLevel)
	assert.Equal(t, 1.0, *orig.X)
	assert.Equal(t, "v", orig.Extra["nested"].(map[string]any)["k"])
}

func TestSnapshotCompactStripsLayout(t *testing.T) {
	snap := Snapshot{
		Nodes: map[string]Node{
			"a": {ID: "a", Attributes: Attributes{X: Float(1), Y: Float(2), VX: Float(0.1), VY: Float(0.2), PageRank: Float(0.5)}},
		},
	}

	compact := snap.Compact()
	attrs := compact.Nodes["a"].Attributes
	assert.Nil(t, attrs.X)
	assert.Nil(t, attrs.Y)
	assert.Nil(t, attrs.VX)
	assert.Nil(t, attrs.VY)
	assert.NotNil(t, attrs.PageRank)
	assert.NotNil(t, snap.Nodes["a"].Attributes.X, "original must be untouched")
}

func TestLedgerApplyClamps(t *testing.T) {
	l := Ledger{HopeLevel: 95, TraumaLevel: 3}

	assert.True(t, l.Apply("hope_level", 20))
	assert.True(t, l.Apply("trauma_level", -10))
	assert.False(t, l.Apply("unknown", 1))

	assert.Equal(t, 100.0, l.HopeLevel)
	assert.Equal(t, 0.0, l.TraumaLevel)
}

func TestEdgeKeyDefaultsType(t *testing.T) {
	assert.Equal(t, "a_b_RELATIONSHIP", EdgeKey("a", "b", ""))
	assert.Equal(t, "a_b_GRUDGE", EdgeKey("a", "b", EdgeGrudge))
}

func TestPhaseForTurn(t *testing.T) {
	assert.Equal(t, PhaseAct1, PhaseForTurn(0))
	assert.Equal(t, PhaseAct1, PhaseForTurn(ActLength-1))
	assert.Equal(t, PhaseAct2, PhaseForTurn(ActLength))
	assert.Equal(t, PhaseAct2, PhaseForTurn(2*ActLength-1))
	assert.Equal(t, PhaseAct3, PhaseForTurn(2*ActLength))
	assert.Equal(t, PhaseAct3, PhaseForTurn(500))
}
