package services

import "github.com/getkin/kin-openapi/openapi3"

// Schema-building shorthand for tool input declarations. Every tool input is
// an object schema with additionalProperties left open so callers can pass
// extractor-specific parameters through.

func objectSchema(required []string, props map[string]*openapi3.Schema) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	s.Required = required
	for name, p := range props {
		s.WithProperty(name, p)
	}
	return s
}

func stringProp(description string) *openapi3.Schema {
	s := openapi3.NewStringSchema()
	s.Description = description
	return s
}

func enumProp(description string, values ...string) *openapi3.Schema {
	s := openapi3.NewStringSchema()
	s.Description = description
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}
	return s
}

func intProp(description string, def int) *openapi3.Schema {
	s := openapi3.NewIntegerSchema().WithDefault(def)
	s.Description = description
	return s
}

func boolProp(description string, def bool) *openapi3.Schema {
	s := openapi3.NewBoolSchema().WithDefault(def)
	s.Description = description
	return s
}

func stringArrayProp(description string) *openapi3.Schema {
	s := openapi3.NewArraySchema()
	s.Description = description
	s.Items = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	return s
}

// Typed readers over validated input maps. Validation has already run when
// these are called, so they only normalize JSON's number/float looseness.

func inputString(input map[string]any, key, def string) string {
	if v, ok := input[key].(string); ok && v != "" {
		return v
	}
	return def
}

func inputInt(input map[string]any, key string, def int) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

func inputBool(input map[string]any, key string, def bool) bool {
	if v, ok := input[key].(bool); ok {
		return v
	}
	return def
}

func inputStringSlice(input map[string]any, key string) []string {
	raw, ok := input[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func inputMap(input map[string]any, key string) map[string]any {
	if v, ok := input[key].(map[string]any); ok {
		return v
	}
	return nil
}
