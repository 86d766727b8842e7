package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRecordPackIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordPack("sales.chat")
	m.RecordPack("sales.chat")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var got float64
	for _, f := range families {
		if f.GetName() != "backpackflow_pack_total" {
			continue
		}
		for _, metric := range f.Metric {
			for _, l := range metric.Label {
				if l.GetName() == "namespace" && l.GetValue() == "sales.chat" {
					got = metric.GetCounter().GetValue()
				}
			}
		}
	}
	if got != 2 {
		t.Fatalf("pack_total = %v, want 2", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordPack("x")
	m.RecordUnpack("x")
	m.RecordAccessDenied("read")
	m.ObserveNodePhase("n", "exec", 1.0)
	m.RecordNodeError("n")
	m.RecordEvent("NODE_START")
}
