package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Operation string  `json:"operation"`
	Source    string  `json:"source,omitempty"`
	Delta     float64 `json:"delta,omitempty"`
}

func TestUnmarshalFlexibleObjectVariants(t *testing.T) {
	want := record{Operation: "update_grudge"}

	tests := []struct {
		name  string
		input string
	}{
		{name: "valid json object", input: `{"operation":"update_grudge"}`},
		{name: "unquoted key and single quotes", input: `{operation: 'update_grudge'}`},
		{name: "trailing comma", input: `{"operation":"update_grudge",}`},
		{name: "missing end bracket", input: `{"operation":"update_grudge`},
		{name: "stringified invalid object", input: `"{operation: 'update_grudge'}"`},
		{name: "duplicate leading brace", input: "{\n{\n  \"operation\": \"update_grudge\"\n}\n"},
		{name: "duplicate leading brace no newlines", input: `{ { "operation": "update_grudge" }`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got record
			require.NoError(t, UnmarshalFlexible(tc.input, &got))
			assert.Equal(t, want, got)
		})
	}
}

func TestUnmarshalFlexibleArray(t *testing.T) {
	var got []record
	require.NoError(t, UnmarshalFlexible(`[{operation:'add_node'},{operation:'remove_node',}]`, &got))

	require.Len(t, got, 2)
	assert.Equal(t, "add_node", got[0].Operation)
	assert.Equal(t, "remove_node", got[1].Operation)
}

func TestUnmarshalFlexibleStringifiedWithNumbers(t *testing.T) {
	var got record
	input := `"{ \"operation\": \"update_grudge\", \"source\": \"Subject_Darius\", \"delta\": 30 }"`
	require.NoError(t, UnmarshalFlexible(input, &got))
	assert.Equal(t, record{Operation: "update_grudge", Source: "Subject_Darius", Delta: 30}, got)
}

func TestUnmarshalFlexibleCodeFence(t *testing.T) {
	for _, input := range []string{
		"```json\n[{\"operation\":\"add_node\"}]\n```",
		"```\n[{operation:'add_node'}]\n```",
		"```[{\"operation\":\"add_node\"}]```",
	} {
		var got []record
		require.NoError(t, UnmarshalFlexible(input, &got), input)
		require.Len(t, got, 1)
		assert.Equal(t, "add_node", got[0].Operation)
	}
}

func TestUnmarshalFlexibleUnrecoverable(t *testing.T) {
	var got record
	err := UnmarshalFlexible("hello", &got)
	assert.ErrorIs(t, err, ErrUnrepairable)
}

func TestGenerateSchemaDescribesStruct(t *testing.T) {
	schema := GenerateSchema(&record{})
	require.NotNil(t, schema)
	assert.Contains(t, mustJSON(t, schema), `"operation"`)
}
