// Package processors contains the built-in step processors that ship with
// the platform. Vendor integrations register their own types through the
// same registry; these cover the pipeline plumbing every deployment needs.
package processors

import (
	"github.com/inkwellhq/inkwell/internal/engine"
)

// RegisterBuiltins adds the built-in processors to the registry.
func RegisterBuiltins(reg *engine.Registry) error {
	builtins := map[string]engine.Processor{
		"metadata": &Metadata{},
		"approval": &Approval{},
		"archive":  &Archive{},
	}

	for name, proc := range builtins {
		if err := reg.Register(name, proc); err != nil {
			return err
		}
	}

	return nil
}
