package serialize

import "fmt"

// ValidationError reports a structurally invalid FlowConfig document —
// missing version, no nodes, a duplicate id, and the like. Distinct from
// SerializationError, which covers documents that are structurally valid
// but reference something the current process doesn't have (an unknown
// type, a mismatched version, a missing edge endpoint).
type ValidationError struct {
	Message string
	Code    string
}

func (e *ValidationError) Error() string { return "serialize: validation: " + e.Message }

// SerializationError covers load/export failures that aren't about
// document shape: unsupported version, unknown node type, dangling edge
// endpoint, mapping conflict, circular subflow reference, depth exceeded.
type SerializationError struct {
	Message string
	Code    string
}

func (e *SerializationError) Error() string { return "serialize: " + e.Message }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Code: "VALIDATION_FAILED", Message: fmt.Sprintf(format, args...)}
}

func serializationf(format string, args ...any) *SerializationError {
	return &SerializationError{Code: "SERIALIZATION_FAILED", Message: fmt.Sprintf(format, args...)}
}
