package engine

import (
	"fmt"
	"regexp"
)

// refPattern matches deferred references of the form <stepLabel.outputField>.
var refPattern = regexp.MustCompile(`<([A-Za-z0-9_-]+)\.([A-Za-z0-9_-]+)>`)

// Ref identifies a deferred reference to an earlier step's output field.
type Ref struct {
	Label string
	Field string
}

// References collects every deferred reference in a step configuration,
// recursing through nested maps and slices.
func References(config map[string]any) []Ref {
	var refs []Ref
	walkValues(config, func(s string) {
		for _, m := range refPattern.FindAllStringSubmatch(s, -1) {
			refs = append(refs, Ref{Label: m[1], Field: m[2]})
		}
	})
	return refs
}

// ResolveRefs returns a copy of config with every deferred reference
// replaced by the referenced output value. A string that is exactly one
// reference keeps the referenced value's type; references embedded in a
// larger string are interpolated as text. An unresolvable reference is a
// configuration error.
func ResolveRefs(config map[string]any, outputs map[string]map[string]any) (map[string]any, error) {
	resolved, err := resolveValue(config, outputs)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return map[string]any{}, nil
	}
	return resolved.(map[string]any), nil
}

func resolveValue(value any, outputs map[string]map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return resolveString(v, outputs)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			r, err := resolveValue(inner, outputs)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			r, err := resolveValue(inner, outputs)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return value, nil
	}
}

func resolveString(s string, outputs map[string]map[string]any) (any, error) {
	// Whole-value reference: preserve the referenced type.
	if m := refPattern.FindStringSubmatch(s); m != nil && m[0] == s {
		return lookupRef(Ref{Label: m[1], Field: m[2]}, outputs)
	}

	var resolveErr error
	result := refPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := refPattern.FindStringSubmatch(match)
		val, err := lookupRef(Ref{Label: m[1], Field: m[2]}, outputs)
		if err != nil {
			resolveErr = err
			return match
		}
		return fmt.Sprint(val)
	})
	if resolveErr != nil {
		return nil, resolveErr
	}

	return result, nil
}

func lookupRef(ref Ref, outputs map[string]map[string]any) (any, error) {
	out, ok := outputs[ref.Label]
	if !ok {
		return nil, fmt.Errorf("%w: <%s.%s>", ErrUnresolvedReference, ref.Label, ref.Field)
	}

	val, ok := out[ref.Field]
	if !ok {
		return nil, fmt.Errorf("%w: <%s.%s>", ErrUnresolvedReference, ref.Label, ref.Field)
	}

	return val, nil
}

func walkValues(value any, fn func(string)) {
	switch v := value.(type) {
	case string:
		fn(v)
	case map[string]any:
		for _, inner := range v {
			walkValues(inner, fn)
		}
	case []any:
		for _, inner := range v {
			walkValues(inner, fn)
		}
	}
}
