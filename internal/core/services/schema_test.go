package services

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaHelpers(t *testing.T) {
	s := stringProp("a string")
	assert.Equal(t, "a string", s.Description)
	assert.True(t, s.Type.Is("string"))

	e := enumProp("a choice", "json", "csv")
	assert.Equal(t, "a choice", e.Description)
	assert.Equal(t, []any{"json", "csv"}, e.Enum)

	i := intProp("a count", 50)
	assert.Equal(t, "a count", i.Description)
	assert.Equal(t, 50, i.Default)
	assert.True(t, i.Type.Is("integer"))

	b := boolProp("a flag", true)
	assert.Equal(t, "a flag", b.Description)
	assert.Equal(t, true, b.Default)

	arr := stringArrayProp("some strings")
	assert.Equal(t, "some strings", arr.Description)
	require.NotNil(t, arr.Items)
	assert.True(t, arr.Items.Value.Type.Is("string"))

	obj := objectSchema([]string{"x"}, map[string]*openapi3.Schema{"x": stringProp("")})
	assert.Equal(t, []string{"x"}, obj.Required)
	require.Contains(t, obj.Properties, "x")
}
