// Package params converts between flat form data and backend parameter lists.
package params

import (
	"github.com/tidwall/btree"

	"github.com/vine-io/formflow/api"
	"github.com/vine-io/formflow/codec"
)

// FormData is a form's field values keyed by field name.
type FormData map[string]any

// Clone returns a shallow copy of d.
func (d FormData) Clone() FormData {
	out := make(FormData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Keys returns the field names in sorted order.
func (d FormData) Keys() []string {
	keys := &btree.Map[string, struct{}]{}
	for k := range d {
		keys.Set(k, struct{}{})
	}

	out := make([]string, 0, len(d))
	keys.Scan(func(key string, _ struct{}) bool {
		out = append(out, key)
		return true
	})
	return out
}

// ToParameters encodes every field of data as an input parameter, in field
// name order. Nil, empty and file-like values produce no parameter.
func ToParameters(data FormData) []*api.Parameter {
	out := make([]*api.Parameter, 0, len(data))
	for _, name := range data.Keys() {
		text, kind, ok := codec.Encode(data[name])
		if !ok {
			continue
		}
		out = append(out, &api.Parameter{
			Name:      name,
			Value:     text,
			Kind:      kind,
			Direction: api.DirectionIn,
		})
	}
	return out
}

// ToFormData decodes parameter values back into typed form values. Empty
// parameters are skipped; values that are already structured, such as parsed
// XML, are kept as they are.
func ToFormData(parameters []*api.Parameter) FormData {
	out := make(FormData, len(parameters))
	for _, p := range parameters {
		if p == nil || p.IsEmpty() {
			continue
		}

		s, ok := p.StringValue()
		if !ok {
			out[p.Name] = p.Value
			continue
		}
		if v, ok := codec.Decode(s); ok {
			out[p.Name] = v
		}
	}
	return out
}

// Merge combines parameter lists by name. When a name appears in more than one
// list, the entry of the later list replaces the earlier one entirely. The
// result is ordered by name.
func Merge(lists ...[]*api.Parameter) []*api.Parameter {
	merged := &btree.Map[string, *api.Parameter]{}
	for _, list := range lists {
		for _, p := range list {
			if p == nil {
				continue
			}
			merged.Set(p.Name, p)
		}
	}

	out := make([]*api.Parameter, 0, merged.Len())
	merged.Scan(func(_ string, p *api.Parameter) bool {
		out = append(out, p.DeepCopy())
		return true
	})
	return out
}

// Option customizes a parameter built by NewParameter.
type Option func(*api.Parameter)

// WithKind sets the wire kind.
func WithKind(kind api.ParameterKind) Option {
	return func(p *api.Parameter) {
		p.Kind = kind
	}
}

// WithDirection sets the wire direction.
func WithDirection(direction api.Direction) Option {
	return func(p *api.Parameter) {
		p.Direction = direction
	}
}

// AsVariable marks the parameter as a process variable.
func AsVariable() Option {
	return func(p *api.Parameter) {
		p.IsVariable = true
	}
}

// NewParameter builds a parameter for a caller that already knows its wire
// kind. Strings are kept as they are and any other value is rendered as JSON,
// with no date or boolean inference. The defaults are SingleValue and In.
func NewParameter(name string, value any, opts ...Option) *api.Parameter {
	p := &api.Parameter{
		Name:      name,
		Kind:      api.KindSingleValue,
		Direction: api.DirectionIn,
	}

	switch v := value.(type) {
	case nil:
	case string:
		p.Value = v
	case *string:
		if v != nil {
			p.Value = *v
		}
	default:
		p.Value = codec.Marshal(v)
	}

	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Spec describes one parameter for NewParameters.
type Spec struct {
	Name      string
	Value     any
	Kind      api.ParameterKind
	Direction api.Direction
	Variable  bool
}

// NewParameters builds a parameter per Spec. Zero Kind and Direction take the
// NewParameter defaults.
func NewParameters(specs ...Spec) []*api.Parameter {
	out := make([]*api.Parameter, 0, len(specs))
	for _, s := range specs {
		opts := make([]Option, 0, 3)
		if s.Kind != api.KindUnknown {
			opts = append(opts, WithKind(s.Kind))
		}
		if s.Direction != api.DirectionUnknown {
			opts = append(opts, WithDirection(s.Direction))
		}
		if s.Variable {
			opts = append(opts, AsVariable())
		}
		out = append(out, NewParameter(s.Name, s.Value, opts...))
	}
	return out
}
