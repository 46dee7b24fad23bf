package engine

import "fmt"

// Step is one configured processor invocation within a pipeline.
type Step struct {
	// Type identifies the processor in the registry.
	Type string `json:"type"`
	// Label is unique within the pipeline and keys the step's output.
	Label string `json:"label"`
	// Config is the step configuration; string values may contain deferred
	// references to earlier steps' outputs in <label.field> form.
	Config map[string]any `json:"config,omitempty"`
}

// Pipeline is an ordered list of steps. Workflow instances hold an
// immutable snapshot of a campaign's pipeline taken at submission.
type Pipeline []Step

// Validate checks pipeline invariants against the registry: non-empty,
// labels unique, every type registered, and every deferred reference
// pointing at a strictly earlier step. Violations are configuration errors
// caught at campaign save or submission, never mid-run.
func (p Pipeline) Validate(reg *Registry) error {
	if len(p) == 0 {
		return ErrEmptyPipeline
	}

	seen := make(map[string]struct{}, len(p))
	for _, step := range p {
		if step.Label == "" {
			return fmt.Errorf("step of type %q: label must not be empty", step.Type)
		}
		if _, dup := seen[step.Label]; dup {
			return ConfigError(step.Label, ErrDuplicateLabel)
		}

		if _, ok := reg.Lookup(step.Type); !ok {
			return ConfigError(step.Label, fmt.Errorf("%w: %s", ErrUnknownStepType, step.Type))
		}

		for _, ref := range References(step.Config) {
			if _, earlier := seen[ref.Label]; !earlier {
				return ConfigError(step.Label, fmt.Errorf("%w: <%s.%s>", ErrForwardReference, ref.Label, ref.Field))
			}
		}

		seen[step.Label] = struct{}{}
	}

	return nil
}
