package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/chmielvu/Forge-Text/internal/util"

	"github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonrepair"
)

// ErrUnrepairable is returned by UnmarshalFlexible when no cleanup step
// produces JSON that decodes into the target.
var ErrUnrepairable = errors.New("unrepairable model output")

// GenerateSchema reflects a closed, inlined JSON schema for the type of
// value, the form structured-output endpoints and mutation generators expect.
func GenerateSchema(value any) any {
	t := reflect.TypeOf(value)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(reflect.New(t).Interface())
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// stripDuplicateLeadingBrace turns "{ {..." into "{...".
func stripDuplicateLeadingBrace(s string) string {
	if rest, ok := strings.CutPrefix(s, "{"); ok {
		if rest = strings.TrimSpace(rest); strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}

// unquote unwraps output that was JSON-encoded a second time as a string.
func unquote(s string) (string, bool) {
	var inner string
	if err := json.Unmarshal([]byte(s), &inner); err != nil {
		return s, false
	}
	return strings.TrimSpace(inner), true
}

// UnmarshalFlexible decodes model output into out, trying progressively
// more invasive cleanups: plain JSON, a double-encoded string, a markdown
// code fence, a duplicated opening brace, and finally jsonrepair.
//
//	UnmarshalFlexible(`[{"operation":"add_node"}]`, &raws)      // plain
//	UnmarshalFlexible(`"[{\"operation\":\"add_node\"}]"`, &raws) // double-encoded
//	UnmarshalFlexible("```json\n[{operation:'add_node'}]\n```", &raws)
func UnmarshalFlexible(input string, out any) error {
	input = strings.TrimSpace(input)
	if json.Unmarshal([]byte(input), out) == nil {
		return nil
	}

	if inner, ok := unquote(input); ok {
		if json.Unmarshal([]byte(inner), out) == nil {
			return nil
		}
		input = inner
	}

	input = stripDuplicateLeadingBrace(stripCodeFence(input))
	if json.Unmarshal([]byte(input), out) == nil {
		return nil
	}

	excerpt := util.Truncate(input, 200, "...")
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("%w: %v (input: %s)", ErrUnrepairable, err, excerpt)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("%w: %v (input: %s)", ErrUnrepairable, err, excerpt)
	}
	return nil
}
