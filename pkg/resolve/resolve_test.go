package resolve

import (
	"testing"

	"github.com/chmielvu/Forge-Text/pkg/common"
	"github.com/chmielvu/Forge-Text/pkg/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAgainstCanonicalCast(t *testing.T) {
	g := graph.New(common.Snapshot{})
	r := New()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "exact id", input: "Subject_84", want: "Subject_84"},
		{name: "alias", input: "Kaelen", want: "PREFECT_OBSESSIVE"},
		{name: "alias with whitespace", input: "  Player ", want: "Subject_84"},
		{name: "label substring", input: "Lysand", want: "FACULTY_LOGICIAN"},
		{name: "archetype", input: "the nurse", want: "PREFECT_NURSE"},
		{name: "typo in token", input: "Dr Lysandar", want: "FACULTY_LOGICIAN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(g, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUnknownReportsNotFound(t *testing.T) {
	g := graph.New(common.Snapshot{})

	_, err := New().Resolve(g, "xylophone quartet")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = New().Resolve(g, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExactIDBeatsFuzzyMatch(t *testing.T) {
	g := graph.New(common.Snapshot{Nodes: map[string]common.Node{
		"theo":         {ID: "theo", Label: "Somebody Else"},
		"Subject_Theo": {ID: "Subject_Theo", Label: "theo"},
	}})

	got, err := New().Resolve(g, "theo")
	require.NoError(t, err)
	assert.Equal(t, "theo", got)
}

func TestAliasBeatsGraphScan(t *testing.T) {
	g := graph.New(common.Snapshot{Nodes: map[string]common.Node{
		"impostor":       {ID: "impostor", Label: "selene"},
		"FACULTY_SELENE": {ID: "FACULTY_SELENE", Label: "The Provost"},
	}})

	got, err := New().Resolve(g, "Selene")
	require.NoError(t, err)
	assert.Equal(t, "FACULTY_SELENE", got)
}

func TestCustomAliasesAndThreshold(t *testing.T) {
	g := graph.New(common.Snapshot{Nodes: map[string]common.Node{
		"n1": {ID: "n1", Label: "Harbour Master"},
	}})

	r := New(WithAliases(map[string]string{"Boss": "n1"}), WithThreshold(0.95))

	got, err := r.Resolve(g, "boss")
	require.NoError(t, err)
	assert.Equal(t, "n1", got)

	_, err = r.Resolve(g, "harbour")
	assert.ErrorIs(t, err, ErrNotFound, "0.8 substring score stays below a 0.95 threshold")
}

func TestResolveOrFallsBackToInput(t *testing.T) {
	g := graph.New(common.Snapshot{})
	assert.Equal(t, "nobody-known", New().ResolveOr(g, "nobody-known"))
	assert.Equal(t, "FACULTY_PETRA", New().ResolveOr(g, "petra"))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("anya", "Anya"))
	assert.Equal(t, 0.8, Similarity("nya", "Anya"))
	assert.InDelta(t, 0.9, Similarity("selene magistra", "Magistra Selene"), 1e-9)
	assert.InDelta(t, 0.7, Similarity("magistra zzzzzzzz", "Magistra Selene"), 1e-9)
	assert.Equal(t, 0.0, Similarity("", "anything"))
}

func TestCanonicalSkipsFuzzyMatching(t *testing.T) {
	g := graph.New(common.Snapshot{})
	r := New()

	assert.Equal(t, "Subject_Nico", r.Canonical(g, "Nico"))
	assert.Equal(t, "Theo's Diary", r.Canonical(g, "Theo's Diary"))
	assert.Equal(t, "loc_infirmary", r.Canonical(g, "loc_infirmary"))
}
