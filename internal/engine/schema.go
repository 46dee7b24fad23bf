package engine

import "fmt"

// FieldType enumerates the primitive types an output schema can require.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldObject  FieldType = "object"
	FieldArray   FieldType = "array"
	FieldAny     FieldType = "any"
)

// Field declares one output field.
type Field struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
}

// Schema declares the shape of a processor's successful output. Fields not
// declared in the schema pass through unchecked.
type Schema struct {
	Fields []Field `json:"fields"`
}

// Validate checks output against the schema: required fields present, typed
// fields carrying the declared primitive type. A violation fails the step
// rather than passing malformed output downstream.
func (s Schema) Validate(output map[string]any) error {
	for _, f := range s.Fields {
		val, present := output[f.Name]
		if !present {
			if f.Required {
				return fmt.Errorf("%w: missing required field %q", ErrSchemaViolation, f.Name)
			}
			continue
		}

		if !typeMatches(f.Type, val) {
			return fmt.Errorf(
				"%w: field %q is not of type %s",
				ErrSchemaViolation, f.Name, f.Type,
			)
		}
	}

	return nil
}

func typeMatches(t FieldType, val any) bool {
	if val == nil {
		return true
	}

	switch t {
	case FieldString:
		_, ok := val.(string)
		return ok
	case FieldNumber:
		switch val.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case FieldBoolean:
		_, ok := val.(bool)
		return ok
	case FieldObject:
		_, ok := val.(map[string]any)
		return ok
	case FieldArray:
		_, ok := val.([]any)
		return ok
	case FieldAny:
		return true
	default:
		return false
	}
}
