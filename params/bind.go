package params

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	json "github.com/json-iterator/go"

	"github.com/vine-io/formflow/codec"
)

// Tag is the parsed form of a `param` struct tag:
//
//	Amount float64 `param:"amount"`
//	Owner  string  `param:"owner;variable"`
type Tag struct {
	Name     string
	Variable bool
	Skip     bool
}

func parseTag(field reflect.StructField) *Tag {
	text, ok := field.Tag.Lookup("param")
	if !ok {
		return &Tag{Name: field.Name}
	}

	tag := &Tag{}
	for i, part := range strings.Split(text, ";") {
		part = strings.Trim(part, " ")
		if i == 0 {
			if part == "-" {
				tag.Skip = true
			}
			tag.Name = part
			continue
		}
		if part == "variable" {
			tag.Variable = true
		}
	}
	if tag.Name == "" {
		tag.Name = field.Name
	}
	return tag
}

func structOf(v any) (reflect.Type, reflect.Value, error) {
	typ := reflect.TypeOf(v)
	vle := reflect.ValueOf(v)
	if typ == nil {
		return nil, reflect.Value{}, fmt.Errorf("params: nil value")
	}
	if typ.Kind() == reflect.Ptr {
		if vle.IsNil() {
			return nil, reflect.Value{}, fmt.Errorf("params: nil %s", typ)
		}
		typ = typ.Elem()
		vle = vle.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, reflect.Value{}, fmt.Errorf("params: %s is not a struct", typ)
	}
	return typ, vle, nil
}

// Variables returns the field names tagged as process variables.
func Variables(v any) []string {
	typ, _, err := structOf(v)
	if err != nil {
		return nil
	}

	items := make([]string, 0)
	for i := 0; i < typ.NumField(); i++ {
		tField := typ.Field(i)
		if !tField.IsExported() {
			continue
		}
		tag := parseTag(tField)
		if !tag.Skip && tag.Variable {
			items = append(items, tag.Name)
		}
	}
	return items
}

// FromStruct collects the exported fields of a struct into form data, keyed by
// their `param` tag name or the field name. Fields tagged "-" are skipped.
func FromStruct(v any) (FormData, error) {
	typ, vle, err := structOf(v)
	if err != nil {
		return nil, err
	}

	out := FormData{}
	for i := 0; i < typ.NumField(); i++ {
		tField := typ.Field(i)
		if !tField.IsExported() {
			continue
		}
		tag := parseTag(tField)
		if tag.Skip {
			continue
		}
		out[tag.Name] = vle.Field(i).Interface()
	}
	return out, nil
}

// Bind fills the struct pointed to by dst from form data, converting decoded
// values onto the field types. Fields without a matching entry keep their
// value.
func Bind(data FormData, dst any) error {
	if reflect.TypeOf(dst) == nil || reflect.TypeOf(dst).Kind() != reflect.Ptr {
		return fmt.Errorf("params: Bind needs a struct pointer, got %T", dst)
	}
	typ, vle, err := structOf(dst)
	if err != nil {
		return err
	}

	for i := 0; i < typ.NumField(); i++ {
		tField := typ.Field(i)
		if !tField.IsExported() {
			continue
		}
		tag := parseTag(tField)
		if tag.Skip {
			continue
		}
		value, ok := data[tag.Name]
		if !ok || value == nil {
			continue
		}

		if err = setField(vle.Field(i), value); err != nil {
			return fmt.Errorf("bind field '%s': %v", tField.Name, err)
		}
	}

	return nil
}

var timeType = reflect.TypeOf(time.Time{})

func setField(vField reflect.Value, value any) error {
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(vField.Type()) {
		vField.Set(rv)
		return nil
	}

	if vField.Type() == timeType {
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("cannot use %T as time", value)
		}
		t, err := codec.ParseTime(s)
		if err != nil {
			return err
		}
		vField.Set(reflect.ValueOf(t))
		return nil
	}

	switch vField.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := toFloat(value)
		if err != nil {
			return err
		}
		if v != float64(int64(v)) {
			return fmt.Errorf("%v is not an integer", value)
		}
		if vField.OverflowInt(int64(v)) {
			return fmt.Errorf("%v overflows %s", value, vField.Type())
		}
		vField.SetInt(int64(v))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := toFloat(value)
		if err != nil {
			return err
		}
		if v < 0 || v != float64(uint64(v)) {
			return fmt.Errorf("%v is not an unsigned integer", value)
		}
		if vField.OverflowUint(uint64(v)) {
			return fmt.Errorf("%v overflows %s", value, vField.Type())
		}
		vField.SetUint(uint64(v))
	case reflect.Float32, reflect.Float64:
		v, err := toFloat(value)
		if err != nil {
			return err
		}
		if vField.OverflowFloat(v) {
			return fmt.Errorf("%v overflows %s", value, vField.Type())
		}
		vField.SetFloat(v)
	case reflect.Bool:
		switch v := value.(type) {
		case bool:
			vField.SetBool(v)
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			vField.SetBool(b)
		default:
			return fmt.Errorf("cannot use %T as bool", value)
		}
	case reflect.String:
		if t, ok := value.(time.Time); ok {
			vField.SetString(codec.FormatTime(t))
			return nil
		}
		text, _, ok := codec.Encode(value)
		if !ok {
			return nil
		}
		vField.SetString(text)
	case reflect.Ptr:
		v := reflect.New(vField.Type().Elem())
		if err := setField(v.Elem(), value); err != nil {
			return err
		}
		vField.Set(v)
	case reflect.Struct, reflect.Map, reflect.Slice, reflect.Array:
		// decoded JSON objects and lists: go through JSON again
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		v := reflect.New(vField.Type())
		if err = json.Unmarshal(data, v.Interface()); err != nil {
			return err
		}
		vField.Set(v.Elem())
	default:
		return fmt.Errorf("unsupported field kind %s", vField.Kind())
	}

	return nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(v, 64)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.Float32:
		return rv.Float(), nil
	}
	return 0, fmt.Errorf("cannot use %T as number", value)
}
