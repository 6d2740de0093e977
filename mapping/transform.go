package mapping

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vine-io/formflow/codec"
)

// Transform converts a raw form value before it is encoded. A nil result
// sends no parameter. The built-in conversions return nil for nil and ""
// so an empty optional field does not fail the build.
type Transform func(value any) (any, error)

// TransformFactory builds a Transform from the argument that follows the
// colon of a transform name, as in "fixed:2". arg is "" when there is none.
type TransformFactory func(arg string) (Transform, error)

type TransformSet struct {
	sync.RWMutex
	entities map[string]TransformFactory
}

func NewTransformSet() *TransformSet {
	return &TransformSet{entities: map[string]TransformFactory{}}
}

func (s *TransformSet) Add(name string, factory TransformFactory) {
	s.Lock()
	defer s.Unlock()
	s.entities[name] = factory
}

func (s *TransformSet) Contains(name string) bool {
	s.RLock()
	defer s.RUnlock()
	_, ok := s.entities[name]
	return ok
}

// Lookup resolves a transform name such as "trim" or "fixed:2".
func (s *TransformSet) Lookup(name string) (Transform, error) {
	key, arg, _ := strings.Cut(strings.TrimSpace(name), ":")

	s.RLock()
	factory, ok := s.entities[key]
	s.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown transform '%s'", name)
	}
	return factory(arg)
}

func (s *TransformSet) List() []string {
	s.RLock()
	defer s.RUnlock()
	out := make([]string, 0, len(s.entities))
	for name := range s.entities {
		out = append(out, name)
	}
	return out
}

var transforms = NewTransformSet()

// RegisterTransform makes a named transform available to mapping files.
func RegisterTransform(name string, factory TransformFactory) {
	transforms.Add(name, factory)
}

// LookupTransform resolves a registered transform by name.
func LookupTransform(name string) (Transform, error) {
	return transforms.Lookup(name)
}

func plain(fn Transform) TransformFactory {
	return func(arg string) (Transform, error) {
		if arg != "" {
			return nil, fmt.Errorf("transform takes no argument, got '%s'", arg)
		}
		return fn, nil
	}
}

func init() {
	RegisterTransform("float", plain(ToFloat))
	RegisterTransform("int", plain(ToInt))
	RegisterTransform("bool", plain(ToBool))
	RegisterTransform("string", plain(ToString))
	RegisterTransform("trim", plain(stringFn(strings.TrimSpace)))
	RegisterTransform("upper", plain(stringFn(strings.ToUpper)))
	RegisterTransform("lower", plain(stringFn(strings.ToLower)))
	RegisterTransform("date", plain(ToDate))
	RegisterTransform("fixed", func(arg string) (Transform, error) {
		places, err := strconv.ParseInt(arg, 10, 32)
		if err != nil || places < 0 {
			return nil, fmt.Errorf("fixed needs a number of places, got '%s'", arg)
		}
		return Fixed(int32(places)), nil
	})
}

func stringFn(fn func(string) string) Transform {
	return func(value any) (any, error) {
		s, ok := value.(string)
		if !ok {
			return value, nil
		}
		return fn(s), nil
	}
}

func number(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case bool:
		if v {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return decimal.NewFromInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return decimal.NewFromString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return decimal.Zero, fmt.Errorf("%v is not a finite number", f)
		}
		return decimal.NewFromFloat(f), nil
	}
	return decimal.Zero, fmt.Errorf("cannot use %T as a number", value)
}

// ToFloat parses the value as a float64.
func ToFloat(value any) (any, error) {
	if codec.IsOmitted(value) {
		return nil, nil
	}
	if s, ok := value.(string); ok {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	d, err := number(value)
	if err != nil {
		return nil, err
	}
	f, _ := d.Float64()
	return f, nil
}

// ToInt parses the value as an int64, truncating any fraction.
func ToInt(value any) (any, error) {
	if codec.IsOmitted(value) {
		return nil, nil
	}
	d, err := number(value)
	if err != nil {
		return nil, err
	}
	return d.IntPart(), nil
}

// ToBool parses the value as a boolean.
func ToBool(value any) (any, error) {
	if codec.IsOmitted(value) {
		return nil, nil
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	}
	d, err := number(value)
	if err != nil {
		return nil, err
	}
	return !d.IsZero(), nil
}

// ToString renders the value the way the codec would.
func ToString(value any) (any, error) {
	text, _, ok := codec.Encode(value)
	if !ok {
		return "", nil
	}
	return text, nil
}

// ToDate parses "2006-01-02" or the wire date layout into a time.Time.
func ToDate(value any) (any, error) {
	if codec.IsOmitted(value) {
		return nil, nil
	}
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		v = strings.TrimSpace(v)
		if t, err := time.ParseInLocation("2006-01-02", v, time.Local); err == nil {
			return t, nil
		}
		return codec.ParseTime(v)
	}
	return nil, fmt.Errorf("cannot use %T as a date", value)
}

// Fixed rounds the value to places decimals and keeps trailing zeros, so 1500.5
// becomes "1500.50" with two places.
func Fixed(places int32) Transform {
	return func(value any) (any, error) {
		if codec.IsOmitted(value) {
			return nil, nil
		}
		d, err := number(value)
		if err != nil {
			return nil, err
		}
		return d.StringFixed(places), nil
	}
}
