package node

import (
	"fmt"
	"strings"

	"github.com/backpackflow/backpackflow-go/contract"
)

// ContractValidationError aggregates every input-contract violation found
// for one node invocation. It is raised once per Run call (step 4 of the
// lifecycle algorithm), never per key — validation never stops at the
// first failing key.
type ContractValidationError struct {
	Code       string
	NodeID     string
	Violations []contract.Violation
}

func (e *ContractValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Key)
	}
	return fmt.Sprintf("node %q: input contract violated for keys [%s]", e.NodeID, strings.Join(parts, ", "))
}

// Phase identifies which lifecycle phase was executing when a node's Run
// raised an error.
type Phase string

const (
	PhasePrep Phase = "prep"
	PhaseExec Phase = "exec"
	PhasePost Phase = "post"
)

// LifecycleError wraps the error raised during one of a node's phases,
// carrying the information needed for the ERROR event.
type LifecycleError struct {
	Code   string
	NodeID string
	Phase  Phase
	Cause  error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("node %q: %s phase failed: %v", e.NodeID, e.Phase, e.Cause)
}

func (e *LifecycleError) Unwrap() error { return e.Cause }
