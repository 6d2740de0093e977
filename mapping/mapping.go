// Package mapping builds backend parameters from a chosen subset of form
// fields. Fields that are not mapped are never sent.
package mapping

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	json "github.com/json-iterator/go"
	"github.com/tidwall/btree"
	log "github.com/vine-io/vine/lib/logger"

	"github.com/vine-io/formflow/api"
	"github.com/vine-io/formflow/codec"
	"github.com/vine-io/formflow/params"
	"github.com/vine-io/formflow/roles"
)

// Field describes where one form field goes.
type Field struct {
	// Target is the backend parameter name.
	Target string `json:"target" yaml:"target"`
	// IsVariable marks the parameter as a process variable.
	IsVariable bool `json:"isVariable,omitempty" yaml:"isVariable,omitempty"`
	// Transform converts the raw value before encoding.
	Transform Transform `json:"-" yaml:"-"`
	// TransformName names a registered transform. Resolve sets Transform
	// from it.
	TransformName string `json:"transform,omitempty" yaml:"transform,omitempty"`
	// Kind overrides the inferred wire kind.
	Kind api.ParameterKind `json:"type,omitempty" yaml:"-"`
	// Direction defaults to In.
	Direction api.Direction `json:"direction,omitempty" yaml:"-"`
}

// To maps a form field onto a parameter with the given name and nothing else.
func To(target string) Field {
	return Field{Target: target}
}

func (m *Field) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.Target, validation.Required),
	)
}

// Resolve sets Transform from TransformName when it is not set yet.
func (m *Field) Resolve() error {
	if m.Transform != nil || m.TransformName == "" {
		return nil
	}
	fn, err := LookupTransform(m.TransformName)
	if err != nil {
		return err
	}
	m.Transform = fn
	return nil
}

// Mapping maps form field names to parameter targets.
type Mapping map[string]Field

func (m Mapping) Validate() error {
	errs := validation.Errors{}
	for name, field := range m {
		field := field
		if err := field.Validate(); err != nil {
			errs[name] = err
		}
	}
	return errs.Filter()
}

// Resolve resolves every named transform.
func (m Mapping) Resolve() error {
	for name, field := range m {
		if err := field.Resolve(); err != nil {
			return fmt.Errorf("field '%s': %w", name, err)
		}
		m[name] = field
	}
	return nil
}

// Keys returns the mapped form field names in sorted order.
func (m Mapping) Keys() []string {
	tree := &btree.Map[string, struct{}]{}
	for k := range m {
		tree.Set(k, struct{}{})
	}
	out := make([]string, 0, len(m))
	tree.Scan(func(key string, _ struct{}) bool {
		out = append(out, key)
		return true
	})
	return out
}

// Strictness says what a build does when a required target has no value.
type Strictness int32

const (
	// Ignore skips the field silently.
	Ignore Strictness = iota
	// Warn skips the field and logs it.
	Warn
	// Fail aborts the build with a *MissingFieldsError.
	Fail
)

func (m Strictness) Readably() string {
	switch m {
	case Warn:
		return "warn"
	case Fail:
		return "fail"
	default:
		return "ignore"
	}
}

func (m Strictness) String() string {
	return m.Readably()
}

func (m Strictness) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Readably())
}

func (m *Strictness) UnmarshalJSON(data []byte) error {
	v, err := ParseStrictness(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func ParseStrictness(text string) (Strictness, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "", "ignore":
		return Ignore, nil
	case "warn":
		return Warn, nil
	case "fail":
		return Fail, nil
	}
	return Ignore, fmt.Errorf("unknown strictness '%s'", text)
}

// MissingFieldsError lists required targets whose form fields had no value.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Unwrap() error {
	return api.BadRequest("missing required fields: %s", strings.Join(e.Fields, ", "))
}

type Options struct {
	Strictness  Strictness
	Descriptors []*api.ProcessParameter
}

func NewOptions(opts ...Option) Options {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type Option func(*Options)

func WithStrictness(strictness Strictness) Option {
	return func(o *Options) {
		o.Strictness = strictness
	}
}

// WithDescriptors supplies the process metadata used to tell which targets
// are required. Without descriptors nothing is required.
func WithDescriptors(descriptors []*api.ProcessParameter) Option {
	return func(o *Options) {
		o.Descriptors = descriptors
	}
}

type Builder struct {
	mapping Mapping
	options Options
}

func NewBuilder(m Mapping, opts ...Option) *Builder {
	return &Builder{mapping: m, options: NewOptions(opts...)}
}

// BuildParameters builds parameters with the default options: missing fields
// are skipped silently.
func BuildParameters(m Mapping, data params.FormData) ([]*api.Parameter, error) {
	return NewBuilder(m).Build(data)
}

// Build emits one parameter per mapped field present in data, in sorted field
// order. Absent fields are skipped, as are nil or empty values that have no
// transform. A transform error aborts the build.
func (b *Builder) Build(data params.FormData) ([]*api.Parameter, error) {
	if err := b.mapping.Validate(); err != nil {
		return nil, api.BadRequest("invalid mapping: %v", err)
	}

	required := map[string]bool{}
	for _, desc := range b.options.Descriptors {
		if roles.IsRequired(desc) {
			required[desc.Name] = true
		}
	}

	out := make([]*api.Parameter, 0, len(b.mapping))
	missing := make([]string, 0)
	for _, name := range b.mapping.Keys() {
		field := b.mapping[name]
		if err := field.Resolve(); err != nil {
			return nil, api.BadRequest("field '%s': %v", name, err)
		}

		p, err := buildOne(name, field, data)
		if err != nil {
			return nil, err
		}
		if p == nil {
			if required[field.Target] {
				missing = append(missing, name)
			}
			continue
		}
		out = append(out, p)
	}

	if len(missing) > 0 {
		switch b.options.Strictness {
		case Warn:
			log.Warnf("mapped fields without value for required parameters: %s", strings.Join(missing, ", "))
		case Fail:
			return nil, &MissingFieldsError{Fields: missing}
		}
	}

	return out, nil
}

func buildOne(name string, field Field, data params.FormData) (*api.Parameter, error) {
	value, ok := data[name]
	if !ok {
		return nil, nil
	}
	if codec.IsOmitted(value) && field.Transform == nil {
		return nil, nil
	}

	if field.Transform != nil {
		var err error
		value, err = field.Transform(value)
		if err != nil {
			return nil, api.BadRequest("transform field '%s': %v", name, err)
		}
	}

	text, kind, ok := codec.Encode(value)
	if !ok {
		return nil, nil
	}
	if field.Kind != api.KindUnknown {
		kind = field.Kind
	}
	direction := field.Direction
	if direction == api.DirectionUnknown {
		direction = api.DirectionIn
	}

	return &api.Parameter{
		Name:       field.Target,
		Value:      text,
		Kind:       kind,
		Direction:  direction,
		IsVariable: field.IsVariable,
	}, nil
}
