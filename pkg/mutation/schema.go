package mutation

import "github.com/chmielvu/Forge-Text/pkg/ai"

// Batch is the envelope generators are asked to emit.
type Batch struct {
	Mutations []Record `json:"mutations" jsonschema:"required"`
}

// Schema returns the JSON schema of a single mutation record.
func Schema() any {
	return ai.GenerateSchema(&Record{})
}

// BatchSchema describes the {"mutations": [...]} envelope.
func BatchSchema() any {
	return ai.GenerateSchema(&Batch{})
}
