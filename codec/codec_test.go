package codec

import (
	"bytes"
	"mime/multipart"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/vine-io/formflow/api"
)

type testFile struct{ name string }

func (f testFile) Filename() string { return f.name }

func TestEncode(t *testing.T) {
	when := time.Date(2024, 3, 5, 14, 30, 0, 250*int(time.Millisecond), time.UTC)
	amount := 12.5

	tests := []struct {
		name  string
		value any
		text  string
		kind  api.ParameterKind
	}{
		{"string", "high", "high", api.KindSingleValue},
		{"int", 42, "42", api.KindSingleValue},
		{"float", 1500.5, "1500.5", api.KindSingleValue},
		{"float integral", 1500.0, "1500", api.KindSingleValue},
		{"pointer", &amount, "12.5", api.KindSingleValue},
		{"decimal", decimal.RequireFromString("1500.50"), "1500.5", api.KindSingleValue},
		{"bool true", true, "true", api.KindSingleValue},
		{"bool false", false, "false", api.KindSingleValue},
		{"time", when, "2024-03-05T14:30:00.250Z", api.KindSingleValue},
		{"strings", []string{"sales", "support"}, `["sales","support"]`, api.KindSingleValue},
		{"empty list", []int{}, `[]`, api.KindSingleValue},
		{"object", map[string]any{"theme": "dark", "a": 1}, `{"a":1,"theme":"dark"}`, api.KindComplexObject},
		{"struct", struct {
			City string `json:"city"`
		}{"NY"}, `{"city":"NY"}`, api.KindComplexObject},
		{"html kept", map[string]string{"t": "<b>&</b>"}, `{"t":"<b>&</b>"}`, api.KindComplexObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, kind, ok := Encode(tt.value)
			assert.True(t, ok)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestEncodeOmitted(t *testing.T) {
	var nilPtr *string
	var nilMap map[string]any
	var nilList []string
	header := &multipart.FileHeader{Filename: "a.pdf"}

	tests := []any{
		nil,
		"",
		nilPtr,
		nilMap,
		nilList,
		testFile{"a.pdf"},
		[]testFile{{"a.pdf"}, {"b.pdf"}},
		header,
		[]*multipart.FileHeader{header},
		[]byte("raw"),
		bytes.NewBufferString("stream"),
		[]any{testFile{"a.pdf"}, "text"},
	}

	for i, value := range tests {
		_, _, ok := Encode(value)
		assert.False(t, ok, "#%d: %T must be omitted", i, value)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want any
	}{
		{"array", `["sales","support"]`, []any{"sales", "support"}},
		{"object", `{"a":1,"b":{"c":true}}`, map[string]any{"a": float64(1), "b": map[string]any{"c": true}}},
		{"bool", "true", true},
		{"bool false", "false", false},
		{"number", "1500.5", 1500.5},
		{"negative", "-3", float64(-3)},
		{"exponent", "1e3", float64(1000)},
		{"text", "high", "high"},
		{"broken json", `{"a":`, `{"a":`},
		{"infinity", "Infinity", "Infinity"},
		{"nan", "NaN", "NaN"},
		{"spaced number", " 12 ", " 12 "},
		{"capital bool", "True", "True"},
		{"json scalar string", `"quoted"`, `"quoted"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Decode(tt.text)
			assert.True(t, ok)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("Decode(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}

	_, ok := Decode("")
	assert.False(t, ok)
}

func TestDecodeDates(t *testing.T) {
	got, ok := Decode("2024-03-05T14:30:00.250Z")
	assert.True(t, ok)
	assert.True(t, time.Date(2024, 3, 5, 14, 30, 0, 250*int(time.Millisecond), time.UTC).Equal(got.(time.Time)))

	got, ok = Decode("2024-03-05T14:30:00Z")
	assert.True(t, ok)
	assert.True(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC).Equal(got.(time.Time)))

	got, ok = Decode("2024-03-05T14:30:00")
	assert.True(t, ok)
	assert.True(t, time.Date(2024, 3, 5, 14, 30, 0, 0, time.Local).Equal(got.(time.Time)))

	// date only is not the wire pattern
	got, _ = Decode("2024-03-05")
	assert.Equal(t, "2024-03-05", got)
}

func TestRoundTrip(t *testing.T) {
	when := time.Date(2023, 12, 31, 23, 59, 59, 999*int(time.Millisecond), time.UTC)

	tests := []struct {
		name  string
		value any
	}{
		{"number", 1500.5},
		{"integer", float64(75)},
		{"bool", true},
		{"false", false},
		{"plain string", "Juan Perez"},
		{"array of primitives", []any{"a", float64(2), true}},
		{"object", map[string]any{"theme": "dark"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, _, ok := Encode(tt.value)
			assert.True(t, ok)
			got, ok := Decode(text)
			assert.True(t, ok)
			if diff := cmp.Diff(tt.value, got); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}

	text, _, _ := Encode(when)
	got, _ := Decode(text)
	assert.True(t, when.Equal(got.(time.Time)))
}

func TestRoundTripLossy(t *testing.T) {
	// look-alike strings come back typed
	for text, want := range map[string]any{"true": true, "42": float64(42)} {
		encoded, _, _ := Encode(text)
		got, _ := Decode(encoded)
		assert.Equal(t, want, got)
	}
}
