package formflow

import (
	"github.com/vine-io/formflow/api"
	"github.com/vine-io/formflow/xmlconv"
)

// ConvertXMLParameters returns a copy of parameters where every Xml parameter
// with a non-empty string value carries the parsed document instead, marked
// ParsedXml. Values that do not parse are kept as they are.
func ConvertXMLParameters(parameters []*api.Parameter) []*api.Parameter {
	out := make([]*api.Parameter, 0, len(parameters))
	for _, p := range parameters {
		if p == nil {
			continue
		}
		p = p.DeepCopy()
		if p.Kind == api.KindXml {
			if s, ok := p.StringValue(); ok && s != "" {
				if obj := xmlconv.ToObject(s); obj != nil {
					p.Value = obj
					p.Kind = api.KindParsedXml
				}
			}
		}
		out = append(out, p)
	}
	return out
}

// ConvertXMLDescriptors parses the raw values of Xml descriptors. The result
// is keyed by parameter name and only holds the values that parsed.
func ConvertXMLDescriptors(descriptors []*api.ProcessParameter) map[string]any {
	out := map[string]any{}
	for _, desc := range descriptors {
		if desc == nil || desc.ParameterType != api.ParameterTypeXml {
			continue
		}
		raw, ok := desc.RawValue()
		if !ok || raw == "" {
			continue
		}
		if obj := xmlconv.ToObject(raw); obj != nil {
			out[desc.Name] = obj
		}
	}
	return out
}

// descriptorParameters turns descriptors carrying a value into parameters,
// with Xml values already parsed.
func descriptorParameters(descriptors []*api.ProcessParameter) []*api.Parameter {
	out := make([]*api.Parameter, 0, len(descriptors))
	for _, desc := range descriptors {
		if desc == nil || desc.Value == nil {
			continue
		}
		out = append(out, desc.ToParameter())
	}
	return ConvertXMLParameters(out)
}
