package serialize

import "github.com/backpackflow/backpackflow-go/registry"

// ValidateConfig checks cfg for structural and referential correctness
// without instantiating a single node — the validation endpoint
// (SPEC_FULL.md §6) runs this so a caller can check a document before
// committing to LoadFlow's side effects.
func ValidateConfig(cfg FlowConfig, reg *registry.Registry) error {
	if cfg.Version == "" {
		return validationf("document is missing a \"version\" field")
	}
	if cfg.Version != SupportedVersion {
		return serializationf("unsupported schema version %q, expected %q", cfg.Version, SupportedVersion)
	}
	return validateLevel(cfg, reg)
}

func validateLevel(cfg FlowConfig, reg *registry.Registry) error {
	if len(cfg.Nodes) == 0 {
		return validationf("flow %q declares no nodes", cfg.Namespace)
	}

	seen := make(map[string]bool, len(cfg.Nodes))
	for _, nc := range cfg.Nodes {
		if nc.ID == "" {
			return validationf("flow %q has a node with no id", cfg.Namespace)
		}
		if seen[nc.ID] {
			return validationf("flow %q has duplicate node id %q", cfg.Namespace, nc.ID)
		}
		seen[nc.ID] = true

		if _, ok := reg.Lookup(nc.Type); !ok {
			return serializationf("node %q declares unregistered type %q", nc.ID, nc.Type)
		}

		if nc.Flow != nil {
			if err := validateLevel(*nc.Flow, reg); err != nil {
				return err
			}
		}
	}

	for _, e := range cfg.Edges {
		if e.Condition == "" {
			return validationf("flow %q has an edge from %q with an empty condition", cfg.Namespace, e.From)
		}
		if !seen[e.From] {
			return serializationf("edge references unknown source node %q in flow %q", e.From, cfg.Namespace)
		}
		if !seen[e.To] {
			return serializationf("edge references unknown target node %q in flow %q", e.To, cfg.Namespace)
		}
	}

	return nil
}
