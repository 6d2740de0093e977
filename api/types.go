// MIT License
//
// Copyright (c) 2023 Lack
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Parameter is the backend's atomic unit of data exchange.
//
// Value is a string, nil, or a structured object once a Xml value has been
// converted. Parameters are treated as values: conversions return new ones.
type Parameter struct {
	Name       string        `json:"name"`
	Value      any           `json:"value"`
	Kind       ParameterKind `json:"type"`
	Direction  Direction     `json:"direction"`
	IsVariable bool          `json:"isVariable,omitempty"`
}

func (m *Parameter) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.Name, validation.Required),
	)
}

// StringValue returns the value when it is a plain string.
func (m *Parameter) StringValue() (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m.Value.(string)
	return s, ok
}

// IsEmpty reports whether the parameter carries no value.
func (m *Parameter) IsEmpty() bool {
	if m == nil || m.Value == nil {
		return true
	}
	if s, ok := m.Value.(string); ok {
		return s == ""
	}
	return false
}

func (m *Parameter) DeepCopy() *Parameter {
	if m == nil {
		return nil
	}
	out := *m
	out.Value = deepCopyValue(m.Value)
	return &out
}

// deepCopyValue copies the maps and slices a parsed XML or decoded JSON value
// is made of. Other values are shared.
func deepCopyValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, item := range vv {
			out[k] = deepCopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

// ProcessParameter is the parameter metadata published by the backend for a
// process or an activity. It is read-only to this module.
type ProcessParameter struct {
	Name               string        `json:"name"`
	ParameterType      ParameterType `json:"parameterType"`
	ParameterDirection DirectionCode `json:"parameterDirection"`
	Type               string        `json:"type"`
	Schema             string        `json:"schema"`
	Value              *string       `json:"value"`
	IsSystemParameter  bool          `json:"isSystemParameter"`
	IsVariable         bool          `json:"isVariable"`
}

// RawValue returns the raw value and whether the backend sent one.
func (m *ProcessParameter) RawValue() (string, bool) {
	if m == nil || m.Value == nil {
		return "", false
	}
	return *m.Value, true
}

// ToParameter converts metadata into a wire Parameter carrying its raw value.
func (m *ProcessParameter) ToParameter() *Parameter {
	p := &Parameter{
		Name:       m.Name,
		Kind:       m.ParameterType.Kind(),
		Direction:  m.ParameterDirection.Direction(),
		IsVariable: m.IsVariable,
	}
	if v, ok := m.RawValue(); ok {
		p.Value = v
	}
	return p
}

func (m *ProcessParameter) DeepCopy() *ProcessParameter {
	if m == nil {
		return nil
	}
	out := *m
	if m.Value != nil {
		v := *m.Value
		out.Value = &v
	}
	return &out
}

// LockRequest asks for a pessimistic lock on a process instance activity.
type LockRequest struct {
	InstanceID   string `json:"instanceId"`
	ActivityName string `json:"activityName"`
	// Operation is the backend lock operation, 1 is Edit.
	Operation   int32  `json:"operation"`
	ProcessName string `json:"processName"`
}

func (m *LockRequest) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.InstanceID, validation.Required),
		validation.Field(&m.ActivityName, validation.Required),
		validation.Field(&m.ProcessName, validation.Required),
		validation.Field(&m.Operation, validation.Min(int32(0))),
	)
}

// UnlockRequest releases a lock. An empty SessionToken is a forced release.
type UnlockRequest struct {
	InstanceID   string `json:"instanceId"`
	ActivityName string `json:"activityName"`
	SessionToken string `json:"sessionToken,omitempty"`
}

func (m *UnlockRequest) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.InstanceID, validation.Required),
		validation.Field(&m.ActivityName, validation.Required),
	)
}

// LockStatus is the backend answer to lock, unlock and status calls.
type LockStatus struct {
	Available    bool   `json:"available"`
	SessionToken string `json:"sessionToken,omitempty"`
	User         string `json:"user,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// InitializeRequest loads the parameters of a new or existing instance.
type InitializeRequest struct {
	ProcessName      string `json:"processName"`
	ActivityName     string `json:"activityName,omitempty"`
	Version          string `json:"version,omitempty"`
	InstanceID       string `json:"instanceId,omitempty"`
	UserName         string `json:"userName,omitempty"`
	FormID           int64  `json:"formId,omitempty"`
	FormDraftID      int64  `json:"formDraftId,omitempty"`
	ChildProcessName string `json:"childProcessName,omitempty"`
}

func (m *InitializeRequest) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.ProcessName, validation.Required),
	)
}

// ProcessData is the parameter metadata and current values of a process.
type ProcessData struct {
	ProcessName string              `json:"processName"`
	Version     string              `json:"version,omitempty"`
	InstanceID  string              `json:"instanceId,omitempty"`
	Parameters  []*ProcessParameter `json:"parameters"`
}

// RaiseEventRequest starts a process or continues an instance.
type RaiseEventRequest struct {
	EventName        string       `json:"eventName"`
	InstanceID       string       `json:"instanceId,omitempty"`
	EventVersion     string       `json:"eventVersion,omitempty"`
	Parameters       []*Parameter `json:"parameters"`
	CloseOnSuccess   *bool        `json:"closeOnSuccess,omitempty"`
	DeletedDocuments []string     `json:"deletedDocuments,omitempty"`
}

func (m *RaiseEventRequest) Validate() error {
	return validation.ValidateStruct(m,
		validation.Field(&m.EventName, validation.Required),
		validation.Field(&m.Parameters),
	)
}

// ProcessResult is the backend answer to a raised event.
type ProcessResult struct {
	InstanceID   string        `json:"instanceId"`
	Status       ProcessStatus `json:"status"`
	Parameters   []*Parameter  `json:"parameters"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}
