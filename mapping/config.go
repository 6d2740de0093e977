package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/vine-io/formflow/api"
)

// fieldEntry is the object form of a field in a mapping file.
type fieldEntry struct {
	Target     string `yaml:"target"`
	IsVariable bool   `yaml:"isVariable,omitempty"`
	Transform  string `yaml:"transform,omitempty"`
	Type       string `yaml:"type,omitempty"`
	Direction  string `yaml:"direction,omitempty"`
}

// UnmarshalYAML accepts either a bare target name or an object:
//
//	amountStr:
//	  target: amount
//	  transform: float
//	comments: observaciones
func (m *Field) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var target string
	if err := unmarshal(&target); err == nil {
		*m = To(target)
		return nil
	}

	var entry fieldEntry
	if err := unmarshal(&entry); err != nil {
		return err
	}

	field := Field{
		Target:        entry.Target,
		IsVariable:    entry.IsVariable,
		TransformName: entry.Transform,
	}
	if entry.Type != "" {
		field.Kind = api.ParseParameterKind(entry.Type)
		if field.Kind == api.KindUnknown {
			return fmt.Errorf("unknown parameter type '%s'", entry.Type)
		}
	}
	if entry.Direction != "" {
		field.Direction = api.ParseDirection(entry.Direction)
		if field.Direction == api.DirectionUnknown {
			return fmt.Errorf("unknown direction '%s'", entry.Direction)
		}
	}

	*m = field
	return nil
}

func (m Field) MarshalYAML() (interface{}, error) {
	if !m.IsVariable && m.TransformName == "" && m.Kind == api.KindUnknown && m.Direction == api.DirectionUnknown {
		return m.Target, nil
	}

	entry := fieldEntry{
		Target:     m.Target,
		IsVariable: m.IsVariable,
		Transform:  m.TransformName,
	}
	if m.Kind != api.KindUnknown {
		entry.Type = m.Kind.Readably()
	}
	if m.Direction != api.DirectionUnknown {
		entry.Direction = m.Direction.Readably()
	}
	return entry, nil
}

// Parse reads a mapping file body, validates it and resolves its transforms.
func Parse(data []byte) (Mapping, error) {
	m := Mapping{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mapping: %w", err)
	}
	if err := m.Resolve(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads a mapping file.
func Load(path string) (Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
