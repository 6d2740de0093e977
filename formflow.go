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

// Package formflow connects forms to a business process backend. It prepares
// the data a start or continue form renders, turns submitted form data into
// backend parameters and holds the edit lock of an instance while it is
// being continued.
package formflow

import (
	"context"
	"errors"

	log "github.com/vine-io/vine/lib/logger"
	"golang.org/x/oauth2"

	"github.com/vine-io/formflow/api"
	"github.com/vine-io/formflow/lock"
	"github.com/vine-io/formflow/mapping"
	"github.com/vine-io/formflow/params"
	"github.com/vine-io/formflow/roles"
)

// Backend is the process backend as seen from this package. Transport,
// signing and authentication live in the implementation.
type Backend interface {
	// Initialize returns the parameter metadata of a process.
	Initialize(ctx context.Context, req *api.InitializeRequest, token *oauth2.Token) (*api.ProcessData, error)
	// InstanceData returns the parameters of a running instance.
	InstanceData(ctx context.Context, instanceID string, token *oauth2.Token) (*api.ProcessData, error)
	// RaiseEvent starts a process.
	RaiseEvent(ctx context.Context, req *api.RaiseEventRequest, token *oauth2.Token) (*api.ProcessResult, error)
	// Continue raises an event on a running instance.
	Continue(ctx context.Context, req *api.RaiseEventRequest, token *oauth2.Token) (*api.ProcessResult, error)
}

// DefaultLockOperation is the lock operation used for edits.
const DefaultLockOperation int32 = 1

type Options struct {
	Strictness    mapping.Strictness
	LockOperation int32
}

type Option func(*Options)

// Strictness sets what submissions do when a mapped required field is
// missing.
func Strictness(strictness mapping.Strictness) Option {
	return func(o *Options) {
		o.Strictness = strictness
	}
}

func LockOperation(operation int32) Option {
	return func(o *Options) {
		o.LockOperation = operation
	}
}

type FormService struct {
	backend Backend
	locks   *lock.Manager
	options Options
}

func NewFormService(backend Backend, locker lock.Locker, opts ...Option) *FormService {
	options := Options{LockOperation: DefaultLockOperation}
	for _, opt := range opts {
		opt(&options)
	}

	return &FormService{
		backend: backend,
		locks:   lock.NewManager(locker),
		options: options,
	}
}

// Locks returns the lock manager the service uses.
func (s *FormService) Locks() *lock.Manager {
	return s.locks
}

// Form is what a rendering layer needs to show a form.
type Form struct {
	// Descriptors are the parameters the form exposes.
	Descriptors []*api.ProcessParameter
	Fields      []*roles.Field
	// Data holds the current values of every parameter, decoded.
	Data params.FormData
	// Lock is set when a continue form asked for the lock.
	Lock *LockInfo
	// Instance is the raw instance data of a continue form.
	Instance *api.ProcessData
}

// LockInfo is the outcome of taking the lock for a continue form. A lock
// that could not be taken is reported here, not as an error.
type LockInfo struct {
	Locked       bool   `json:"isLocked"`
	SessionToken string `json:"sessionToken,omitempty"`
	LockedBy     string `json:"lockedBy,omitempty"`
	Reason       string `json:"lockFailReason,omitempty"`
}

func credentials(creds oauth2.TokenSource) (*oauth2.Token, error) {
	if creds == nil {
		return nil, nil
	}
	t, err := creds.Token()
	if err != nil {
		return nil, api.Unauthorized("get credentials: %v", err)
	}
	return t, nil
}

func formData(descriptors []*api.ProcessParameter) params.FormData {
	return params.ToFormData(descriptorParameters(descriptors))
}

// PrepareStartForm loads the parameters of a process and keeps the ones a
// start form shows, with their default values decoded.
func (s *FormService) PrepareStartForm(ctx context.Context, req *api.InitializeRequest, creds oauth2.TokenSource) (*Form, error) {
	if err := req.Validate(); err != nil {
		return nil, api.BadRequest("%v", err)
	}
	token, err := credentials(creds)
	if err != nil {
		return nil, err
	}

	data, err := s.backend.Initialize(ctx, req, token)
	if err != nil {
		return nil, api.FromErr(err)
	}
	if data == nil {
		return nil, api.InternalServerError("no parameters for process %s", req.ProcessName)
	}

	descriptors := roles.FilterForStart(data.Parameters)
	return &Form{
		Descriptors: descriptors,
		Fields:      roles.FieldsFor(descriptors),
		Data:        formData(data.Parameters),
	}, nil
}

// ContinueRequest asks for the form of a running instance.
type ContinueRequest struct {
	InstanceID   string
	ProcessName  string
	ActivityName string
	// AutoLock takes the edit lock of the activity. ActivityName and
	// ProcessName are required then.
	AutoLock bool
}

// PrepareContinueForm loads the parameters of an instance and keeps the ones
// a continue form shows. With AutoLock it also tries to take the edit lock.
func (s *FormService) PrepareContinueForm(ctx context.Context, req *ContinueRequest, creds oauth2.TokenSource) (*Form, error) {
	if req.InstanceID == "" {
		return nil, api.BadRequest("instance id is required")
	}
	if req.AutoLock && (req.ActivityName == "" || req.ProcessName == "") {
		return nil, api.BadRequest("activity name and process name are required to lock")
	}
	token, err := credentials(creds)
	if err != nil {
		return nil, err
	}

	data, err := s.backend.InstanceData(ctx, req.InstanceID, token)
	if err != nil {
		return nil, api.FromErr(err)
	}
	if data == nil {
		return nil, api.InternalServerError("no data for instance %s", req.InstanceID)
	}

	descriptors := roles.FilterForContinue(data.Parameters)
	form := &Form{
		Descriptors: descriptors,
		Fields:      roles.FieldsFor(descriptors),
		Data:        formData(data.Parameters),
		Instance:    data,
	}

	if req.AutoLock {
		form.Lock = s.autoLock(ctx, req, creds)
	}

	return form, nil
}

func (s *FormService) autoLock(ctx context.Context, req *ContinueRequest, creds oauth2.TokenSource) *LockInfo {
	sessionToken, err := s.locks.Acquire(ctx, &api.LockRequest{
		InstanceID:   req.InstanceID,
		ActivityName: req.ActivityName,
		Operation:    s.options.LockOperation,
		ProcessName:  req.ProcessName,
	}, creds)
	if err == nil {
		return &LockInfo{Locked: true, SessionToken: sessionToken}
	}

	var held *lock.HeldError
	if errors.As(err, &held) {
		return &LockInfo{Locked: false, LockedBy: held.User, Reason: held.Reason}
	}

	log.Warnf("lock instance %s: %v", req.InstanceID, err)
	return &LockInfo{Locked: false, Reason: err.Error()}
}

// SubmitRequest carries a submitted form.
type SubmitRequest struct {
	ProcessName string
	// InstanceID is required to continue an instance.
	InstanceID   string
	EventVersion string
	Data         params.FormData
	// Mapping selects and renames the fields to send. Without it every field
	// is sent under its own name.
	Mapping mapping.Mapping
	// Descriptors mark which mapped targets are required, usually the
	// Descriptors of the prepared Form. The service strictness only applies
	// when they are set.
	Descriptors []*api.ProcessParameter
	// Additional parameters are sent as well and win over form fields with
	// the same name.
	Additional       []*api.Parameter
	CloseOnSuccess   *bool
	DeletedDocuments []string
}

// Parameters builds the parameters of a submission.
func (s *FormService) Parameters(req *SubmitRequest) ([]*api.Parameter, error) {
	var fields []*api.Parameter
	if req.Mapping != nil {
		var err error
		fields, err = mapping.NewBuilder(req.Mapping,
			mapping.WithStrictness(s.options.Strictness),
			mapping.WithDescriptors(req.Descriptors),
		).Build(req.Data)
		if err != nil {
			return nil, err
		}
	} else {
		fields = params.ToParameters(req.Data)
	}

	return params.Merge(fields, req.Additional), nil
}

func (s *FormService) raiseEvent(req *SubmitRequest) (*api.RaiseEventRequest, error) {
	parameters, err := s.Parameters(req)
	if err != nil {
		return nil, err
	}

	in := &api.RaiseEventRequest{
		EventName:        req.ProcessName,
		InstanceID:       req.InstanceID,
		EventVersion:     req.EventVersion,
		Parameters:       parameters,
		CloseOnSuccess:   req.CloseOnSuccess,
		DeletedDocuments: req.DeletedDocuments,
	}
	if err = in.Validate(); err != nil {
		return nil, api.BadRequest("%v", err)
	}
	return in, nil
}

func convertResult(result *api.ProcessResult) *api.ProcessResult {
	if result == nil {
		return nil
	}
	out := *result
	out.Parameters = ConvertXMLParameters(result.Parameters)
	return &out
}

// StartProcess starts a process with the submitted form.
func (s *FormService) StartProcess(ctx context.Context, req *SubmitRequest, creds oauth2.TokenSource) (*api.ProcessResult, error) {
	in, err := s.raiseEvent(req)
	if err != nil {
		return nil, err
	}
	token, err := credentials(creds)
	if err != nil {
		return nil, err
	}

	result, err := s.backend.RaiseEvent(ctx, in, token)
	if err != nil {
		return nil, api.FromErr(err)
	}
	return convertResult(result), nil
}

// ContinueProcess continues an instance with the submitted form.
func (s *FormService) ContinueProcess(ctx context.Context, req *SubmitRequest, creds oauth2.TokenSource) (*api.ProcessResult, error) {
	if req.InstanceID == "" {
		return nil, api.BadRequest("instance id is required")
	}
	in, err := s.raiseEvent(req)
	if err != nil {
		return nil, err
	}
	token, err := credentials(creds)
	if err != nil {
		return nil, err
	}

	result, err := s.backend.Continue(ctx, in, token)
	if err != nil {
		return nil, api.FromErr(err)
	}
	return convertResult(result), nil
}

// ReleaseLock gives back a lock taken by PrepareContinueForm. Failures are
// logged: the lock expires on the backend eventually.
func (s *FormService) ReleaseLock(ctx context.Context, instanceID, activityName, sessionToken string, creds oauth2.TokenSource) {
	if err := s.locks.Release(ctx, instanceID, activityName, sessionToken, creds); err != nil {
		log.Warnf("release lock of instance %s activity %s: %v", instanceID, activityName, err)
	}
}
