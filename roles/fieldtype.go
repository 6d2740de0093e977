package roles

import (
	"strings"

	json "github.com/json-iterator/go"

	"github.com/vine-io/formflow/api"
	"github.com/vine-io/formflow/codec"
	"github.com/vine-io/formflow/xmlconv"
)

// FieldType is the widget family a parameter renders as.
type FieldType int32

const (
	FieldText FieldType = iota
	FieldNumber
	FieldBoolean
	FieldDate
	FieldDateTime
	FieldXml
)

func (m FieldType) Readably() string {
	switch m {
	case FieldNumber:
		return "number"
	case FieldBoolean:
		return "boolean"
	case FieldDate:
		return "date"
	case FieldDateTime:
		return "datetime"
	case FieldXml:
		return "xml"
	default:
		return "text"
	}
}

func (m FieldType) String() string {
	return m.Readably()
}

func (m FieldType) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Readably())
}

func (m *FieldType) UnmarshalJSON(data []byte) error {
	*m = ParseFieldType(strings.Trim(string(data), `"`))
	return nil
}

// typeHints maps backend type names, lower case, to field types. Names not
// listed render as text.
var typeHints = map[string]FieldType{
	"string":    FieldText,
	"text":      FieldText,
	"char":      FieldText,
	"int":       FieldNumber,
	"int32":     FieldNumber,
	"int64":     FieldNumber,
	"integer":   FieldNumber,
	"long":      FieldNumber,
	"number":    FieldNumber,
	"decimal":   FieldNumber,
	"double":    FieldNumber,
	"float":     FieldNumber,
	"bool":      FieldBoolean,
	"boolean":   FieldBoolean,
	"date":      FieldDate,
	"datetime":  FieldDateTime,
	"timestamp": FieldDateTime,
	"xml":       FieldXml,
}

// ParseFieldType resolves a backend type hint such as "Int32" or
// "System.Decimal".
func ParseFieldType(hint string) FieldType {
	hint = strings.ToLower(strings.TrimSpace(hint))
	hint = strings.TrimPrefix(hint, "system.")
	if t, ok := typeHints[hint]; ok {
		return t
	}
	return FieldText
}

// Field is what a rendering layer needs to build one form control.
type Field struct {
	Name      string        `json:"name"`
	Type      FieldType     `json:"fieldType"`
	Required  bool          `json:"required"`
	Variable  bool          `json:"variable,omitempty"`
	Direction api.Direction `json:"direction"`
	Default   any           `json:"default,omitempty"`
}

// FieldFor describes the control for a parameter. Xml parameters always
// render as xml; their default is the parsed document when it parses.
func FieldFor(desc *api.ProcessParameter) *Field {
	field := &Field{
		Name:      desc.Name,
		Type:      ParseFieldType(desc.Type),
		Required:  IsRequired(desc),
		Variable:  desc.IsVariable,
		Direction: desc.ParameterDirection.Direction(),
	}
	if desc.ParameterType == api.ParameterTypeXml {
		field.Type = FieldXml
	}

	raw, ok := desc.RawValue()
	if !ok || raw == "" {
		return field
	}

	if field.Type == FieldXml {
		if obj := xmlconv.ToObject(raw); obj != nil {
			field.Default = obj
		} else {
			field.Default = raw
		}
		return field
	}
	if v, ok := codec.Decode(raw); ok {
		field.Default = v
	}
	return field
}

// FieldsFor describes the controls of several parameters, in order.
func FieldsFor(descriptors []*api.ProcessParameter) []*Field {
	out := make([]*Field, 0, len(descriptors))
	for _, desc := range descriptors {
		if desc == nil {
			continue
		}
		out = append(out, FieldFor(desc))
	}
	return out
}
