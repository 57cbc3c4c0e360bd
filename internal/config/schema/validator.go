package schema

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Validator checks decoded configuration maps against a schema.
type Validator struct {
	schema    *Schema
	strict    bool
	maxErrors int
}

// NewValidator creates a validator. A nil schema accepts everything.
func NewValidator(schema *Schema) *Validator {
	return &Validator{schema: schema, maxErrors: 100}
}

// WithStrictMode rejects keys the schema does not list, even where
// additionalProperties is not set.
func (v *Validator) WithStrictMode(strict bool) *Validator {
	v.strict = strict
	return v
}

// Validate returns a *ValidationErrors listing every violation in data.
func (v *Validator) Validate(data map[string]any) error {
	if v.schema == nil {
		return nil
	}
	errs := &ValidationErrors{}
	v.validateValue("", data, v.schema, errs)
	return errs.AsError()
}

func (v *Validator) validateValue(path string, value any, s *Schema, errs *ValidationErrors) {
	if s == nil || (v.maxErrors > 0 && errs.Len() >= v.maxErrors) {
		return
	}
	if len(s.Enum) > 0 && !inEnum(value, s.Enum) {
		errs.Add(path, fmt.Sprintf("must be one of %s", enumList(s.Enum)), value)
		return
	}
	if s.Type.IsEmpty() {
		return
	}
	for _, typ := range s.Type.Types {
		if !matchesType(value, typ) {
			continue
		}
		switch typ {
		case "string":
			v.validateString(path, value.(string), s, errs)
		case "number", "integer":
			v.validateNumber(path, toFloat64(value), s, errs)
		case "array":
			v.validateArray(path, value.([]any), s, errs)
		case "object":
			v.validateObject(path, value.(map[string]any), s, errs)
		}
		return
	}
	errs.AddError(typeError(path, s.Type, value))
}

func (v *Validator) validateString(path, value string, s *Schema, errs *ValidationErrors) {
	if s.Format == "color" && value != "" && !isHexColor(value) {
		errs.Add(path, "must be a hex color (#rgb, #rrggbb or #rrggbbaa)", value)
	}
}

func (v *Validator) validateNumber(path string, value float64, s *Schema, errs *ValidationErrors) {
	if s.Minimum != nil && value < *s.Minimum {
		errs.Add(path, fmt.Sprintf("must be >= %v", *s.Minimum), value)
	}
	if s.Maximum != nil && value > *s.Maximum {
		errs.Add(path, fmt.Sprintf("must be <= %v", *s.Maximum), value)
	}
}

func (v *Validator) validateArray(path string, items []any, s *Schema, errs *ValidationErrors) {
	if s.MinItems != nil && len(items) < *s.MinItems {
		errs.Add(path, fmt.Sprintf("needs at least %d items", *s.MinItems), len(items))
	}
	if s.Items == nil {
		return
	}
	for i, item := range items {
		v.validateValue(fmt.Sprintf("%s[%d]", path, i), item, s.Items, errs)
	}
}

func (v *Validator) validateObject(path string, obj map[string]any, s *Schema, errs *ValidationErrors) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		child := joinPath(path, k)
		prop, ok := s.Properties[k]
		if !ok {
			if v.strict || !s.AllowsAdditionalProperties() {
				errs.Add(child, "unknown key", obj[k])
			}
			continue
		}
		v.validateValue(child, obj[k], prop, errs)
	}
}

func matchesType(value any, typ string) bool {
	switch typ {
	case "null":
		return value == nil
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		if !isNumber(value) {
			return false
		}
		f := toFloat64(value)
		return f == math.Trunc(f) && !math.IsInf(f, 0)
	case "number":
		return isNumber(value)
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	}
	return math.NaN()
}

func inEnum(value any, allowed []any) bool {
	for _, a := range allowed {
		if isNumber(value) && isNumber(a) {
			if toFloat64(value) == toFloat64(a) {
				return true
			}
			continue
		}
		switch value.(type) {
		case string, bool:
			if value == a {
				return true
			}
		}
	}
	return false
}

func enumList(allowed []any) string {
	parts := make([]string, len(allowed))
	for i, a := range allowed {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return strings.Join(parts, ", ")
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func isHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	hex := s[1:]
	switch len(hex) {
	case 3, 6, 8:
	default:
		return false
	}
	for _, c := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
