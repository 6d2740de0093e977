package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vine-io/formflow/api"
)

func names(descriptors []*api.ProcessParameter) []string {
	out := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, d.Name)
	}
	return out
}

func strPtr(s string) *string { return &s }

func sample() []*api.ProcessParameter {
	return []*api.ProcessParameter{
		{Name: "amount", ParameterDirection: api.DirectionCodeIn},
		{Name: "comment", ParameterDirection: api.DirectionCodeOptional},
		{Name: "result", ParameterDirection: api.DirectionCodeOut},
		{Name: "sysUser", ParameterDirection: api.DirectionCodeIn, IsSystemParameter: true},
		{Name: "stage", ParameterDirection: api.DirectionCodeIn, IsVariable: true},
		{Name: "counter", ParameterDirection: api.DirectionCodeOut, IsVariable: true},
		{Name: "sysVar", ParameterDirection: api.DirectionCodeIn, IsVariable: true, IsSystemParameter: true},
		nil,
	}
}

func TestFilterForStart(t *testing.T) {
	assert.Equal(t, []string{"amount", "comment"}, names(FilterForStart(sample())))
	assert.Empty(t, FilterForStart(nil))
}

func TestFilterForContinue(t *testing.T) {
	assert.Equal(t, []string{"amount", "comment", "stage", "counter"}, names(FilterForContinue(sample())))
}

func TestFiltersDisjointOnVariables(t *testing.T) {
	for _, d := range FilterForStart(sample()) {
		assert.False(t, d.IsVariable, d.Name)
		assert.False(t, d.IsSystemParameter, d.Name)
		assert.NotEqual(t, api.DirectionCodeOut, d.ParameterDirection, d.Name)
	}

	for _, d := range FilterForContinue(sample()) {
		assert.False(t, d.IsSystemParameter, d.Name)
		if !d.IsVariable {
			assert.NotEqual(t, api.DirectionCodeOut, d.ParameterDirection, d.Name)
		}
	}

	// the non-variable part of continue is exactly start
	var plain []*api.ProcessParameter
	for _, d := range FilterForContinue(sample()) {
		if !d.IsVariable {
			plain = append(plain, d)
		}
	}
	assert.Equal(t, names(FilterForStart(sample())), names(plain))
}

func TestIsRequired(t *testing.T) {
	assert.True(t, IsRequired(&api.ProcessParameter{ParameterDirection: api.DirectionCodeIn}))
	assert.False(t, IsRequired(&api.ProcessParameter{ParameterDirection: api.DirectionCodeOptional}))
	assert.False(t, IsRequired(&api.ProcessParameter{ParameterDirection: api.DirectionCodeOut}))
	assert.False(t, IsRequired(nil))
}

func TestLabels(t *testing.T) {
	desc := &api.ProcessParameter{ParameterDirection: api.DirectionCodeOptional, ParameterType: api.ParameterTypeXml}
	assert.Equal(t, "Optional", DirectionLabel(desc))
	assert.Equal(t, "Xml", TypeLabel(desc))

	desc = &api.ProcessParameter{ParameterDirection: api.DirectionCodeIn, ParameterType: api.ParameterTypeSingleValue}
	assert.Equal(t, "Input", DirectionLabel(desc))
	assert.Equal(t, "SingleValue", TypeLabel(desc))
	assert.Equal(t, "Output", DirectionLabel(&api.ProcessParameter{ParameterDirection: api.DirectionCodeOut}))
}

func TestParseFieldType(t *testing.T) {
	tests := map[string]FieldType{
		"int":            FieldNumber,
		"Integer":        FieldNumber,
		"System.Decimal": FieldNumber,
		"double":         FieldNumber,
		"bool":           FieldBoolean,
		"Boolean":        FieldBoolean,
		"date":           FieldDate,
		"DateTime":       FieldDateTime,
		"timestamp":      FieldDateTime,
		"string":         FieldText,
		"":               FieldText,
		"Guid":           FieldText,
	}
	for hint, want := range tests {
		assert.Equal(t, want, ParseFieldType(hint), hint)
	}
}

func TestFieldFor(t *testing.T) {
	field := FieldFor(&api.ProcessParameter{
		Name:               "amount",
		Type:               "decimal",
		ParameterType:      api.ParameterTypeSingleValue,
		ParameterDirection: api.DirectionCodeIn,
		Value:              strPtr("1500.5"),
	})
	assert.Equal(t, &Field{Name: "amount", Type: FieldNumber, Required: true, Direction: api.DirectionIn, Default: 1500.5}, field)

	field = FieldFor(&api.ProcessParameter{
		Name:               "deudor",
		Type:               "string",
		ParameterType:      api.ParameterTypeXml,
		ParameterDirection: api.DirectionCodeOptional,
		Value:              strPtr("<Deudor><ID>1</ID></Deudor>"),
	})
	assert.Equal(t, FieldXml, field.Type)
	assert.Equal(t, api.DirectionInOut, field.Direction)
	assert.False(t, field.Required)
	assert.Equal(t, map[string]any{"deudor": map[string]any{"id": "1"}}, field.Default)

	field = FieldFor(&api.ProcessParameter{Name: "broken", ParameterType: api.ParameterTypeXml, Value: strPtr("<open>")})
	assert.Equal(t, "<open>", field.Default)

	field = FieldFor(&api.ProcessParameter{Name: "none", ParameterDirection: api.DirectionCodeOut})
	assert.Nil(t, field.Default)

	assert.Len(t, FieldsFor([]*api.ProcessParameter{{Name: "a"}, nil, {Name: "b"}}), 2)
}

func TestFieldTypeJSON(t *testing.T) {
	data, err := FieldNumber.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, `"number"`, string(data))

	var ft FieldType
	assert.NoError(t, ft.UnmarshalJSON([]byte(`"boolean"`)))
	assert.Equal(t, FieldBoolean, ft)
}
