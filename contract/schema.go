// Package contract implements the structural Data Contract schemas that
// gate a node's declared inputs and outputs: string/number/boolean/object/
// array-of/optional-of, each evaluated at runtime through safeParse-style
// aggregated, path-annotated validation.
package contract

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Issue is one structural validation failure, annotated with the dotted
// path it occurred at.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result is the outcome of SafeParse: either the parsed value with no
// issues, or a non-empty list of issues and a zero Value.
type Result struct {
	Value  any     `json:"value,omitempty"`
	Issues []Issue `json:"issues,omitempty"`
}

// OK reports whether parsing succeeded (no issues).
func (r Result) OK() bool { return len(r.Issues) == 0 }

// Schema is a structural schema over a single value.
type Schema interface {
	// SafeParse validates value against the schema, returning either a
	// success Result (Value set, no Issues) or a list of issues.
	SafeParse(value any) Result

	// Doc renders the schema as a JSON Schema fragment (map[string]any),
	// used both internally for validation and externally by the registry
	// to advertise input/output contracts to the UI.
	Doc() map[string]any
}

// schema is the shared implementation behind every constructor in this
// package. Representing every kind with one struct (rather than a type per
// kind) keeps Object/ArrayOf/OptionalOf composition simple: they just
// nest other schema.doc fragments.
type schema struct {
	doc      map[string]any
	optional bool
}

func (s *schema) Doc() map[string]any {
	out := make(map[string]any, len(s.doc))
	for k, v := range s.doc {
		out[k] = v
	}
	return out
}

func (s *schema) SafeParse(value any) Result {
	if value == nil {
		if s.optional {
			return Result{Value: nil}
		}
		return Result{Issues: []Issue{{Path: "", Message: "value is required"}}}
	}

	schemaLoader := gojsonschema.NewGoLoader(s.doc)
	docLoader := gojsonschema.NewGoLoader(value)

	validation, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return Result{Issues: []Issue{{Path: "", Message: fmt.Sprintf("schema evaluation failed: %v", err)}}}
	}
	if validation.Valid() {
		return Result{Value: value}
	}

	issues := make([]Issue, 0, len(validation.Errors()))
	for _, e := range validation.Errors() {
		issues = append(issues, Issue{Path: e.Field(), Message: e.Description()})
	}
	return Result{Issues: issues}
}

// String is a schema matching JSON string values.
func String() Schema { return &schema{doc: map[string]any{"type": "string"}} }

// Number is a schema matching JSON numeric values.
func Number() Schema { return &schema{doc: map[string]any{"type": "number"}} }

// Bool is a schema matching JSON boolean values.
func Bool() Schema { return &schema{doc: map[string]any{"type": "boolean"}} }

// Object is a schema matching a JSON object with the given named fields.
// A field wrapped in OptionalOf is omitted from the rendered "required"
// list; every other field is required.
func Object(fields map[string]Schema) Schema {
	properties := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for name, f := range fields {
		properties[name] = f.Doc()
		if inner, ok := f.(*schema); !ok || !inner.optional {
			required = append(required, name)
		}
	}
	doc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return &schema{doc: doc}
}

// ArrayOf is a schema matching a JSON array whose every element satisfies
// item.
func ArrayOf(item Schema) Schema {
	return &schema{doc: map[string]any{
		"type":  "array",
		"items": item.Doc(),
	}}
}

// OptionalOf wraps s so that an absent (nil) value is accepted without
// delegating to s; a present value is still validated against s.
func OptionalOf(s Schema) Schema {
	inner, ok := s.(*schema)
	if !ok {
		// Defensive: only this package's schema type reaches here today.
		return &schema{doc: s.Doc(), optional: true}
	}
	doc := make(map[string]any, len(inner.doc))
	for k, v := range inner.doc {
		doc[k] = v
	}
	return &schema{doc: doc, optional: true}
}

// Describe attaches docs-only metadata ("description") to s; it does not
// change validation behavior.
func Describe(s Schema, doc string) Schema {
	inner, ok := s.(*schema)
	if !ok {
		return s
	}
	merged := make(map[string]any, len(inner.doc)+1)
	for k, v := range inner.doc {
		merged[k] = v
	}
	merged["description"] = doc
	return &schema{doc: merged, optional: inner.optional}
}
