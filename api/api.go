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
	"strings"

	json "github.com/json-iterator/go"
)

// ParameterKind is the wire kind of a Parameter value.
type ParameterKind int32

const (
	KindUnknown ParameterKind = iota
	KindSingleValue
	KindXml
	KindComplexObject
	// KindParsedXml marks a Xml parameter whose value was already converted
	// to an object, so it must not be parsed again.
	KindParsedXml
)

func (m ParameterKind) Readably() string {
	switch m {
	case KindSingleValue:
		return "SingleValue"
	case KindXml:
		return "Xml"
	case KindComplexObject:
		return "ComplexObject"
	case KindParsedXml:
		return "ParsedXml"
	default:
		return "Unknown"
	}
}

func (m ParameterKind) String() string {
	return m.Readably()
}

func (m ParameterKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Readably())
}

func (m *ParameterKind) UnmarshalJSON(data []byte) error {
	*m = ParseParameterKind(strings.Trim(string(data), `"`))
	return nil
}

// ParseParameterKind returns the kind named by text, KindUnknown otherwise.
func ParseParameterKind(text string) ParameterKind {
	switch text {
	case "SingleValue":
		return KindSingleValue
	case "Xml":
		return KindXml
	case "ComplexObject":
		return KindComplexObject
	case "ParsedXml":
		return KindParsedXml
	default:
		return KindUnknown
	}
}

// Direction is the wire direction of a Parameter.
type Direction int32

const (
	DirectionUnknown Direction = iota
	DirectionIn
	DirectionOut
	DirectionInOut
)

func (m Direction) Readably() string {
	switch m {
	case DirectionIn:
		return "In"
	case DirectionOut:
		return "Out"
	case DirectionInOut:
		return "InOut"
	default:
		return "Unknown"
	}
}

func (m Direction) String() string {
	return m.Readably()
}

func (m Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Readably())
}

func (m *Direction) UnmarshalJSON(data []byte) error {
	*m = ParseDirection(strings.Trim(string(data), `"`))
	return nil
}

// ParseDirection returns the direction named by text. Optional is read as
// InOut.
func ParseDirection(text string) Direction {
	switch text {
	case "In":
		return DirectionIn
	case "Out":
		return DirectionOut
	case "InOut", "Optional":
		return DirectionInOut
	default:
		return DirectionUnknown
	}
}

// DirectionCode is the numeric direction carried by process parameter metadata.
type DirectionCode int32

const (
	DirectionCodeIn       DirectionCode = 1
	DirectionCodeOut      DirectionCode = 2
	DirectionCodeOptional DirectionCode = 3
)

// Readably returns the human label of the code.
func (m DirectionCode) Readably() string {
	switch m {
	case DirectionCodeIn:
		return "Input"
	case DirectionCodeOut:
		return "Output"
	case DirectionCodeOptional:
		return "Optional"
	default:
		return "Unknown"
	}
}

// Direction maps the metadata code onto the wire direction. Optional
// parameters travel as InOut.
func (m DirectionCode) Direction() Direction {
	switch m {
	case DirectionCodeIn:
		return DirectionIn
	case DirectionCodeOut:
		return DirectionOut
	case DirectionCodeOptional:
		return DirectionInOut
	default:
		return DirectionIn
	}
}

// ParameterType is the numeric value type carried by process parameter metadata.
type ParameterType int32

const (
	ParameterTypeSingleValue ParameterType = 1
	ParameterTypeXml         ParameterType = 2
)

func (m ParameterType) Readably() string {
	switch m {
	case ParameterTypeSingleValue:
		return "SingleValue"
	case ParameterTypeXml:
		return "Xml"
	default:
		return "Unknown"
	}
}

// Kind maps the metadata type onto the wire kind.
func (m ParameterType) Kind() ParameterKind {
	if m == ParameterTypeXml {
		return KindXml
	}
	return KindSingleValue
}

// ProcessStatus is the state reported by the backend after raising an event.
type ProcessStatus string

const (
	ProcessCompleted ProcessStatus = "Completed"
	ProcessWaiting   ProcessStatus = "Waiting"
	ProcessRunning   ProcessStatus = "Running"
	ProcessError     ProcessStatus = "Error"
)
