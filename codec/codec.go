// Package codec converts single form values to and from the string form the
// process backend stores.
//
// The backend keeps every parameter as text, so Decode infers types back from
// the text alone. This is a heuristic, not a guarantee: a field whose real
// value is the string "true" or "42" comes back as a bool or a number after a
// round trip. Numbers, ISO-8601 dates, arrays of primitives, booleans and
// plain strings that look like none of those survive unchanged.
package codec

import (
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/vine-io/formflow/api"
)

// TimeLayout is the wire layout of dates: UTC with milliseconds.
const TimeLayout = "2006-01-02T15:04:05.000Z"

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d{3})?Z?$`)

// json keeps map keys sorted so encoded objects are stable, and leaves HTML
// characters alone the way browsers serialize them.
var json = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Blob is implemented by file-like values. Files never travel as parameters.
type Blob interface {
	Filename() string
}

// Encode converts a value to its wire text and kind. ok is false when the
// value must not produce a parameter at all: nil, empty strings and files.
func Encode(value any) (text string, kind api.ParameterKind, ok bool) {
	if IsOmitted(value) || IsFile(value) {
		return "", api.KindUnknown, false
	}

	switch v := value.(type) {
	case string:
		return v, api.KindSingleValue, true
	case time.Time:
		return FormatTime(v), api.KindSingleValue, true
	case decimal.Decimal:
		return v.String(), api.KindSingleValue, true
	case bool:
		return strconv.FormatBool(v), api.KindSingleValue, true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		return Encode(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		return marshal(value), api.KindSingleValue, true
	case reflect.Map, reflect.Struct:
		return marshal(value), api.KindComplexObject, true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), api.KindSingleValue, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), api.KindSingleValue, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), api.KindSingleValue, true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), api.KindSingleValue, true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), api.KindSingleValue, true
	case reflect.String:
		// named string types such as json.Number
		s := rv.String()
		if s == "" {
			return "", api.KindUnknown, false
		}
		return s, api.KindSingleValue, true
	}

	return fmt.Sprint(value), api.KindSingleValue, true
}

// Decode infers a typed value from wire text, trying in order: JSON array or
// object, ISO-8601 date, boolean literal, finite number, plain string. ok is
// false for empty text, which must not produce a form field.
func Decode(text string) (value any, ok bool) {
	if text == "" {
		return nil, false
	}

	if v, ok := decodeJSON(text); ok {
		return v, true
	}

	if isoDate.MatchString(text) {
		if t, err := ParseTime(text); err == nil {
			return t, true
		}
	}

	switch text {
	case "true":
		return true, true
	case "false":
		return false, true
	}

	if f, err := strconv.ParseFloat(text, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f, true
	}

	return text, true
}

// FormatTime renders t in the wire layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses wire dates. Values without the trailing Z are local time.
func ParseTime(text string) (time.Time, error) {
	if strings.HasSuffix(text, "Z") {
		return time.Parse(time.RFC3339, text)
	}
	return time.ParseInLocation("2006-01-02T15:04:05", text, time.Local)
}

// Marshal renders v as JSON with the codec settings. Values that cannot be
// rendered fall back to their fmt form.
func Marshal(v any) string {
	return marshal(v)
}

// IsOmitted reports whether value is absent: nil, a nil reference or "".
func IsOmitted(value any) bool {
	if value == nil {
		return true
	}
	if s, ok := value.(string); ok {
		return s == ""
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// IsFile reports whether value is file-like, or a list whose first element is.
func IsFile(value any) bool {
	switch value.(type) {
	case Blob, *multipart.FileHeader, []byte, io.Reader:
		return true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return false
		}
		first := rv.Index(0)
		if !first.CanInterface() {
			return false
		}
		return isFileElem(first.Interface())
	}
	return false
}

func isFileElem(value any) bool {
	switch value.(type) {
	case Blob, *multipart.FileHeader, []byte, io.Reader:
		return true
	}
	return false
}

func decodeJSON(text string) (any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || (trimmed[0] != '[' && trimmed[0] != '{') {
		return nil, false
	}

	var v any
	if err := json.UnmarshalFromString(trimmed, &v); err != nil {
		return nil, false
	}
	return v, true
}

func marshal(v any) string {
	s, err := json.MarshalToString(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}
