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
	"context"
	"errors"
	"fmt"
	"net/http"

	json "github.com/json-iterator/go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error is the error shape shared by every package of the module. It mirrors
// the status codes the process backend answers with.
type Error struct {
	Code   int32  `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
	Status string `json:"status,omitempty"`
}

type StatusCode int32

func (c StatusCode) String() string {
	return http.StatusText(int(c))
}

const (
	StatusBadRequest          StatusCode = 400
	StatusUnauthorized        StatusCode = 401
	StatusForbidden           StatusCode = 403
	StatusNotFound            StatusCode = 404
	StatusCancel              StatusCode = 408
	StatusConflict            StatusCode = 409
	StatusPreconditionFiled   StatusCode = 412
	StatusInternalServerError StatusCode = 500
	StatusNotImplemented      StatusCode = 501
	StatusBadGateway          StatusCode = 502
	StatusServiceUnavailable  StatusCode = 503
	StatusGatewayTimeout      StatusCode = 504
)

// New generates a custom error.
func New(detail string, code StatusCode) *Error {
	e := &Error{
		Code:   int32(code),
		Detail: detail,
		Status: code.String(),
	}
	return e
}

func (e *Error) WithCode(code StatusCode) *Error {
	e.Code = int32(code)
	e.Status = code.String()
	return e
}

func (e Error) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Is matches errors with the same status code, so errors.Is(err, api.Conflict(""))
// holds for every conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

// Parse tries to parse a JSON string into an error. If that
// fails, it will set the given string as the error detail.
func Parse(err string) *Error {
	e := new(Error)
	errr := json.Unmarshal([]byte(err), e)
	if errr != nil {
		e.Detail = err
	}
	return e
}

// BadRequest generates a 400 error.
func BadRequest(format string, a ...interface{}) *Error {
	return New(fmt.Sprintf(format, a...), StatusBadRequest)
}

// Unauthorized generates a 401 error.
func Unauthorized(format string, a ...interface{}) *Error {
	return New(fmt.Sprintf(format, a...), StatusUnauthorized)
}

// Forbidden generates a 403 error.
func Forbidden(format string, a ...interface{}) *Error {
	return New(fmt.Sprintf(format, a...), StatusForbidden)
}

// NotFound generates a 404 error.
func NotFound(format string, a ...interface{}) *Error {
	return New(fmt.Sprintf(format, a...), StatusNotFound)
}

// Cancel generates a 408 error.
func Cancel(format string, a ...interface{}) *Error {
	return New(fmt.Sprintf(format, a...), StatusCancel)
}

// Conflict generates a 409 error.
func Conflict(format string, a ...interface{}) *Error {
	return New(fmt.Sprintf(format, a...), StatusConflict)
}

// PreconditionFailed generates a 412 error.
func PreconditionFailed(format string, a ...interface{}) *Error {
	return New(fmt.Sprintf(format, a...), StatusPreconditionFiled)
}

// InternalServerError generates a 500 error.
func InternalServerError(format string, a ...interface{}) *Error {
	return New(fmt.Sprintf(format, a...), StatusInternalServerError)
}

// NotImplemented generates a 501 error
func NotImplemented(format string, a ...interface{}) *Error {
	return New(fmt.Sprintf(format, a...), StatusNotImplemented)
}

// BadGateway generates a 502 error
func BadGateway(format string, a ...interface{}) *Error {
	return New(fmt.Sprintf(format, a...), StatusBadGateway)
}

// ServiceUnavailable generates a 503 error
func ServiceUnavailable(format string, a ...interface{}) *Error {
	return New(fmt.Sprintf(format, a...), StatusServiceUnavailable)
}

// GatewayTimeout generates a 504 error
func GatewayTimeout(format string, a ...interface{}) *Error {
	return New(fmt.Sprintf(format, a...), StatusGatewayTimeout)
}

// FromErr try to convert go error go *Error. Errors of the etcd client and of
// gRPC transports map by status code; anything else without a code is an
// internal error.
func FromErr(err error) *Error {
	if err == nil {
		return nil
	}

	var verr *Error
	if errors.As(err, &verr) && verr != nil {
		return verr
	}

	switch {
	case errors.Is(err, context.Canceled):
		return Cancel("%v", err)
	case errors.Is(err, context.DeadlineExceeded):
		return GatewayTimeout("%v", err)
	}

	if code, msg, ok := statusOf(err); ok {
		switch code {
		case codes.Canceled:
			return Cancel("%s", msg)
		case codes.InvalidArgument, codes.OutOfRange:
			return BadRequest("%s", msg)
		case codes.DeadlineExceeded:
			return GatewayTimeout("%s", msg)
		case codes.NotFound:
			return NotFound("%s", msg)
		case codes.AlreadyExists, codes.Aborted:
			return Conflict("%s", msg)
		case codes.PermissionDenied:
			return Forbidden("%s", msg)
		case codes.FailedPrecondition:
			return PreconditionFailed("%s", msg)
		case codes.Unimplemented:
			return NotImplemented("%s", msg)
		case codes.Unavailable:
			return ServiceUnavailable("%s", msg)
		case codes.Unauthenticated:
			return Unauthorized("%s", msg)
		case codes.Unknown:
			return BadGateway("%s", msg)
		}
		return InternalServerError("%s", msg)
	}

	e := Parse(err.Error())
	if e.Code == 0 {
		e.WithCode(StatusInternalServerError)
	}
	return e
}

// statusOf reads the gRPC code of err. gRPC transports expose GRPCStatus,
// etcd server errors only a Code method.
func statusOf(err error) (codes.Code, string, bool) {
	var se interface{ GRPCStatus() *status.Status }
	if errors.As(err, &se) {
		s := se.GRPCStatus()
		return s.Code(), s.Message(), true
	}
	var ce interface{ Code() codes.Code }
	if errors.As(err, &ce) {
		return ce.Code(), err.Error(), true
	}
	return codes.OK, "", false
}
