package params

import (
	"mime/multipart"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/vine-io/formflow/api"
)

func TestToParameters(t *testing.T) {
	var missing *string
	data := FormData{
		"priority":    "high",
		"amount":      1500.5,
		"approved":    true,
		"departments": []string{"sales", "support"},
		"preferences": map[string]any{"theme": "dark"},
		"startDate":   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		"comment":     "",
		"nothing":     nil,
		"missing":     missing,
		"attachment":  &multipart.FileHeader{Filename: "a.pdf"},
	}

	want := []*api.Parameter{
		{Name: "amount", Value: "1500.5", Kind: api.KindSingleValue, Direction: api.DirectionIn},
		{Name: "approved", Value: "true", Kind: api.KindSingleValue, Direction: api.DirectionIn},
		{Name: "departments", Value: `["sales","support"]`, Kind: api.KindSingleValue, Direction: api.DirectionIn},
		{Name: "preferences", Value: `{"theme":"dark"}`, Kind: api.KindComplexObject, Direction: api.DirectionIn},
		{Name: "priority", Value: "high", Kind: api.KindSingleValue, Direction: api.DirectionIn},
		{Name: "startDate", Value: "2024-01-02T03:04:05.000Z", Kind: api.KindSingleValue, Direction: api.DirectionIn},
	}

	got := ToParameters(data)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ToParameters mismatch (-want +got):\n%s", diff)
	}

	// deterministic
	assert.Equal(t, got, ToParameters(data))
	assert.Empty(t, ToParameters(nil))
}

func TestToFormData(t *testing.T) {
	parsed := map[string]any{"deudor": map[string]any{"id": "1"}}
	parameters := []*api.Parameter{
		{Name: "amount", Value: "1500.5"},
		{Name: "approved", Value: "false"},
		{Name: "departments", Value: `["sales"]`},
		{Name: "name", Value: "Juan"},
		{Name: "empty", Value: ""},
		{Name: "null", Value: nil},
		{Name: "deudor", Value: parsed, Kind: api.KindParsedXml},
		nil,
	}

	want := FormData{
		"amount":      1500.5,
		"approved":    false,
		"departments": []any{"sales"},
		"name":        "Juan",
		"deudor":      parsed,
	}

	got := ToFormData(parameters)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ToFormData mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge(t *testing.T) {
	mapped := []*api.Parameter{
		{Name: "amount", Value: "100", Kind: api.KindSingleValue, Direction: api.DirectionIn},
		{Name: "note", Value: "first", Kind: api.KindSingleValue, Direction: api.DirectionIn},
	}
	audit := []*api.Parameter{
		{Name: "note", Value: "second", Kind: api.KindComplexObject, Direction: api.DirectionInOut, IsVariable: true},
		{Name: "by", Value: "admin", Kind: api.KindSingleValue, Direction: api.DirectionIn},
	}

	got := Merge(mapped, audit, nil)
	want := []*api.Parameter{
		{Name: "amount", Value: "100", Kind: api.KindSingleValue, Direction: api.DirectionIn},
		{Name: "by", Value: "admin", Kind: api.KindSingleValue, Direction: api.DirectionIn},
		{Name: "note", Value: "second", Kind: api.KindComplexObject, Direction: api.DirectionInOut, IsVariable: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Merge mismatch (-want +got):\n%s", diff)
	}

	// inputs are not shared with the result
	got[0].Value = "changed"
	assert.Equal(t, "100", mapped[0].Value)
}

func TestMergeUniqueNames(t *testing.T) {
	a := []*api.Parameter{{Name: "x"}, {Name: "y"}}
	b := []*api.Parameter{{Name: "y"}, {Name: "z"}}
	c := []*api.Parameter{{Name: "x"}}

	seen := map[string]int{}
	for _, p := range Merge(a, b, c) {
		seen[p.Name]++
	}
	assert.Equal(t, map[string]int{"x": 1, "y": 1, "z": 1}, seen)
}

func TestNewParameter(t *testing.T) {
	p := NewParameter("note", "plain")
	assert.Equal(t, &api.Parameter{Name: "note", Value: "plain", Kind: api.KindSingleValue, Direction: api.DirectionIn}, p)

	p = NewParameter("flag", true)
	assert.Equal(t, "true", p.Value)

	p = NewParameter("count", 7, WithDirection(api.DirectionOut))
	assert.Equal(t, "7", p.Value)
	assert.Equal(t, api.DirectionOut, p.Direction)

	// no date inference: times are rendered by JSON
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p = NewParameter("when", when)
	assert.Equal(t, `"2024-01-02T03:04:05Z"`, p.Value)

	p = NewParameter("payload", map[string]int{"a": 1}, WithKind(api.KindComplexObject), AsVariable())
	assert.Equal(t, `{"a":1}`, p.Value)
	assert.Equal(t, api.KindComplexObject, p.Kind)
	assert.True(t, p.IsVariable)

	p = NewParameter("empty", nil)
	assert.Nil(t, p.Value)
}

func TestNewParameters(t *testing.T) {
	got := NewParameters(
		Spec{Name: "submittedBy", Value: "admin"},
		Spec{Name: "doc", Value: "<A/>", Kind: api.KindXml, Direction: api.DirectionInOut, Variable: true},
	)

	want := []*api.Parameter{
		{Name: "submittedBy", Value: "admin", Kind: api.KindSingleValue, Direction: api.DirectionIn},
		{Name: "doc", Value: "<A/>", Kind: api.KindXml, Direction: api.DirectionInOut, IsVariable: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("NewParameters mismatch (-want +got):\n%s", diff)
	}
}
