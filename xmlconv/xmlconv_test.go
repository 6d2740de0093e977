package xmlconv

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ID", "id"},
		{"IDPersonal", "idPersonal"},
		{"IOError", "ioError"},
		{"Nombre", "nombre"},
		{"DatosPersonales", "datosPersonales"},
		{"datosPersonales", "datosPersonales"},
		{"Datosgestion", "datosgestion"},
		{"A1", "a1"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTag(tt.in), "NormalizeTag(%q)", tt.in)
	}
}

func TestToObjectSimple(t *testing.T) {
	got := ToObject("<Root><Name>John</Name></Root>")
	want := map[string]any{"root": map[string]any{"name": "John"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestToObjectRepeatedSiblings(t *testing.T) {
	xml := `<Deudor><Contactos><Contacto><ID>1</ID></Contacto><Contacto><ID>2</ID></Contacto></Contactos></Deudor>`
	want := map[string]any{
		"deudor": map[string]any{
			"contactos": map[string]any{
				"contacto": []any{
					map[string]any{"id": "1"},
					map[string]any{"id": "2"},
				},
			},
		},
	}

	got := ToObject(xml)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestToObjectNestedGroups(t *testing.T) {
	xml := `
		<Datosgestion>
			<DatosPersonales>
				<IDPersonal>12345</IDPersonal>
				<Nombre>Juan Perez</Nombre>
			</DatosPersonales>
			<Detalles>
				<Detalle>
					<IDDeuda>1</IDDeuda>
					<Pago><Monto>10</Monto></Pago>
					<Pago><Monto>20</Monto></Pago>
				</Detalle>
				<Detalle>
					<IDDeuda>2</IDDeuda>
					<Pago><Monto>30</Monto></Pago>
				</Detalle>
				<Detalle>
					<IDDeuda>3</IDDeuda>
				</Detalle>
			</Detalles>
		</Datosgestion>`

	want := map[string]any{
		"datosgestion": map[string]any{
			"datosPersonales": map[string]any{
				"idPersonal": "12345",
				"nombre":     "Juan Perez",
			},
			"detalles": map[string]any{
				"detalle": []any{
					map[string]any{
						"idDeuda": "1",
						"pago": []any{
							map[string]any{"monto": "10"},
							map[string]any{"monto": "20"},
						},
					},
					map[string]any{
						"idDeuda": "2",
						"pago":    map[string]any{"monto": "30"},
					},
					map[string]any{"idDeuda": "3"},
				},
			},
		},
	}

	got := ToObject(xml)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestToObjectGroupLengthFollowsDocument(t *testing.T) {
	got := ToObject(`<List><Item>a</Item><Other>x</Other><Item>b</Item><Item>c</Item></List>`)
	if !assert.NotNil(t, got) {
		return
	}

	list := got["list"].(map[string]any)
	assert.Equal(t, []any{"a", "b", "c"}, list["item"])
	assert.Equal(t, "x", list["other"])
}

func TestToObjectText(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want map[string]any
	}{
		{"empty leaf", "<Root><Empty></Empty></Root>", map[string]any{"root": map[string]any{"empty": ""}}},
		{"self closing leaf", "<Root><Empty/></Root>", map[string]any{"root": map[string]any{"empty": ""}}},
		{"trimmed", "<Root><Name>  John Doe  </Name></Root>", map[string]any{"root": map[string]any{"name": "John Doe"}}},
		{"entities", "<Root><Text>&lt;Hello&gt; &amp; &quot;World&quot;</Text></Root>", map[string]any{"root": map[string]any{"text": `<Hello> & "World"`}}},
		{"cdata", "<Root><Text><![CDATA[a < b]]></Text></Root>", map[string]any{"root": map[string]any{"text": "a < b"}}},
		{"comment skipped", "<Root><Text>a<!-- note -->b</Text></Root>", map[string]any{"root": map[string]any{"text": "ab"}}},
		{"root leaf", "<Root>plain</Root>", map[string]any{"root": "plain"}},
		{"root text ignored", "<Root>noise<Name>x</Name></Root>", map[string]any{"root": map[string]any{"name": "x"}}},
		{"declaration", `<?xml version="1.0" encoding="UTF-8"?><Root><A>1</A></Root>`, map[string]any{"root": map[string]any{"a": "1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToObject(tt.xml)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestToObjectInvalid(t *testing.T) {
	tests := []string{
		"",
		"   ",
		"<Invalid><Unclosed>",
		"plain text",
		"<A>1</A><B>2</B>",
		"junk<a>1</a>",
		"<a>1</a>trailing",
	}

	for _, text := range tests {
		assert.Nil(t, ToObject(text), "ToObject(%q)", text)
	}

	_, err := Parse("<A>1</A><B>2</B>")
	assert.ErrorIs(t, err, ErrMultiple)
	_, err = Parse("")
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = Parse("<a>1</a>trailing")
	assert.ErrorIs(t, err, ErrStrayText)

	// whitespace and comments around the root are fine
	assert.NotNil(t, ToObject("\n  <!-- c --><a>1</a>\n"))
}

func TestToObjectDeterministic(t *testing.T) {
	xml := `<Deudor><DatosPersonales><ID>75</ID><Nombre>John</Nombre></DatosPersonales><Direccion><Calle>Main</Calle></Direccion></Deudor>`
	first := ToObject(xml)
	second := ToObject(xml)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("results differ:\n%s", diff)
	}
}
