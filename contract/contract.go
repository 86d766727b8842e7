package contract

import "sort"

// DataContract is the mapping from key name to structural schema that a
// node declares for the keys it consumes or produces.
type DataContract map[string]Schema

// Violation is one input key's aggregated schema failures.
type Violation struct {
	Key    string  `json:"key"`
	Errors []Issue `json:"errors"`
}

// Validate evaluates every key in dc against the value `read` returns for
// that key, aggregating every failing key into the returned slice —
// validation never stops at the first failure (SPEC_FULL.md §4.3 step 4).
// A nil return means every key satisfied its schema.
func Validate(dc DataContract, read func(key string) (any, bool)) []Violation {
	var violations []Violation
	for key, s := range dc {
		value, present := read(key)
		if !present {
			value = nil
		}
		result := s.SafeParse(value)
		if !result.OK() {
			violations = append(violations, Violation{Key: key, Errors: result.Issues})
		}
	}
	sort.Slice(violations, func(i, j int) bool { return violations[i].Key < violations[j].Key })
	return violations
}

// RenderDoc renders dc as a single JSON Schema object document, the same
// shape Object() builds internally. The registry's Describe uses this to
// advertise a node type's input/output contracts alongside its reflected
// config schema.
func RenderDoc(dc DataContract) map[string]any {
	fields := make(map[string]Schema, len(dc))
	for k, v := range dc {
		fields[k] = v
	}
	return Object(fields).Doc()
}
