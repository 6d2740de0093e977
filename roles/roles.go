// Package roles decides which backend parameters a form shows.
package roles

import (
	"github.com/vine-io/formflow/api"
)

func editable(desc *api.ProcessParameter) bool {
	switch desc.ParameterDirection {
	case api.DirectionCodeIn, api.DirectionCodeOptional:
		return true
	}
	return false
}

// FilterForStart keeps the parameters a start form exposes: input or
// optional parameters that are neither system owned nor process variables.
func FilterForStart(descriptors []*api.ProcessParameter) []*api.ProcessParameter {
	out := make([]*api.ProcessParameter, 0, len(descriptors))
	for _, desc := range descriptors {
		if desc == nil || desc.IsSystemParameter || desc.IsVariable {
			continue
		}
		if editable(desc) {
			out = append(out, desc)
		}
	}
	return out
}

// FilterForContinue keeps the parameters a continue form exposes. Unlike
// FilterForStart it also keeps process variables.
func FilterForContinue(descriptors []*api.ProcessParameter) []*api.ProcessParameter {
	out := make([]*api.ProcessParameter, 0, len(descriptors))
	for _, desc := range descriptors {
		if desc == nil || desc.IsSystemParameter {
			continue
		}
		if desc.IsVariable || editable(desc) {
			out = append(out, desc)
		}
	}
	return out
}

// IsRequired reports whether a form should mark the parameter as required.
// Only input parameters are; the backend does not enforce it.
func IsRequired(desc *api.ProcessParameter) bool {
	return desc != nil && desc.ParameterDirection == api.DirectionCodeIn
}

// DirectionLabel returns "Input", "Output" or "Optional".
func DirectionLabel(desc *api.ProcessParameter) string {
	return desc.ParameterDirection.Readably()
}

// TypeLabel returns "SingleValue" or "Xml".
func TypeLabel(desc *api.ProcessParameter) string {
	return desc.ParameterType.Readably()
}
