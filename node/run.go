package node

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/backpackflow/backpackflow-go/backpack"
	"github.com/backpackflow/backpackflow-go/contract"
	"github.com/backpackflow/backpackflow-go/emit"
	"github.com/backpackflow/backpackflow-go/telemetry"
)

// RunContext bundles the shared collaborators one node invocation needs:
// the state store every node reads and writes through, the optional
// event stream lifecycle events are published to, optional metrics, and
// the run this invocation belongs to.
type RunContext struct {
	Store    *backpack.Store
	Streamer *emit.Streamer // nil disables event emission
	Metrics  *telemetry.Metrics
	RunID    string
}

func (rc RunContext) emit(eventType emit.EventType, payload map[string]any, n Node) {
	if rc.Streamer == nil {
		return
	}
	rc.Streamer.Emit(eventType, payload, emit.Context{
		NodeID:    n.ID(),
		NodeName:  n.ID(),
		Namespace: n.Namespace(),
		RunID:     rc.RunID,
	})
}

// Run drives n through its full lifecycle: scoped store binding,
// provenance injection, input-contract validation, Prep/Exec/Post, and
// lifecycle event emission. It implements the nine-step algorithm from
// SPEC_FULL.md §4.3. Any error raised during steps 4-7 is reported as an
// ERROR event before being returned to the caller — there is no internal
// retry.
func Run(ctx context.Context, n Node, rc RunContext) (action string, err error) {
	start := time.Now()
	scoped := backpack.NewScopedStore(rc.Store, n.ID(), n.ID(), n.Namespace(), rc.RunID, rc.Streamer)

	phase := PhasePrep
	defer func() {
		if err != nil {
			rc.Metrics.RecordNodeError(n.ID())
			rc.emit(emit.ErrorEvent, map[string]any{
				"phase":                phase,
				"errorMessage":         err.Error(),
				"stack":                string(debug.Stack()),
				"backpackStateAtError": rc.Store.PeekAll(),
			}, n)
		}
	}()

	rc.emit(emit.NodeStart, map[string]any{
		"nodeName":         n.ID(),
		"nodeId":           n.ID(),
		"namespace":        n.Namespace(),
		"params":           n.Params(),
		"backpackSnapshot": rc.Store.PeekAll(),
	}, n)

	if dc := n.InputContract(); dc != nil {
		violations := contract.Validate(dc, func(key string) (any, bool) {
			value, ok, _ := scoped.Unpack(key)
			return value, ok
		})
		if len(violations) > 0 {
			err = &ContractValidationError{Code: "CONTRACT_VIOLATION", NodeID: n.ID(), Violations: violations}
			return "", err
		}
	}

	prepStart := time.Now()
	prepResult, prepErr := n.Prep(ctx, scoped)
	rc.Metrics.ObserveNodePhase(n.ID(), "prep", msSince(prepStart))
	if prepErr != nil {
		err = &LifecycleError{Code: "PREP_FAILED", NodeID: n.ID(), Phase: PhasePrep, Cause: prepErr}
		return "", err
	}
	rc.emit(emit.PrepComplete, map[string]any{
		"prepResult": prepResult,
		"reads":      scoped.Reads(),
	}, n)

	phase = PhaseExec
	execStart := time.Now()
	execResult, execErr := n.Exec(ctx, prepResult)
	execDuration := msSince(execStart)
	rc.Metrics.ObserveNodePhase(n.ID(), "exec", execDuration)
	if execErr != nil {
		err = &LifecycleError{Code: "EXEC_FAILED", NodeID: n.ID(), Phase: PhaseExec, Cause: execErr}
		return "", err
	}
	rc.emit(emit.ExecComplete, map[string]any{
		"execResult": execResult,
		"attempts":   1,
		"durationMs": execDuration,
	}, n)

	phase = PhasePost
	postStart := time.Now()
	postAction, postErr := n.Post(ctx, scoped, prepResult, execResult)
	rc.Metrics.ObserveNodePhase(n.ID(), "post", msSince(postStart))
	if postErr != nil {
		err = &LifecycleError{Code: "POST_FAILED", NodeID: n.ID(), Phase: PhasePost, Cause: postErr}
		return "", err
	}

	rc.emit(emit.NodeEnd, map[string]any{
		"action":          postAction,
		"writes":          scoped.Writes(),
		"totalDurationMs": msSince(start),
	}, n)

	return postAction, nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
