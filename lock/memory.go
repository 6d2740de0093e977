package lock

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/oauth2"

	"github.com/vine-io/formflow/api"
)

type memoryRecord struct {
	user         string
	sessionToken string
	operation    int32
	processName  string
	lockedAt     time.Time
}

// MemoryLocker keeps lock records in process memory. It stands in for the
// backend in development and tests.
type MemoryLocker struct {
	mu      sync.Mutex
	seq     *atomic.Uint64
	records map[string]*memoryRecord
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		seq:     atomic.NewUint64(0),
		records: map[string]*memoryRecord{},
	}
}

func memoryKey(instanceID, activityName string) string {
	return url.PathEscape(instanceID) + "/" + url.PathEscape(activityName)
}

func (s *MemoryLocker) Lock(ctx context.Context, req *api.LockRequest, token *oauth2.Token) (*api.LockStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey(req.InstanceID, req.ActivityName)
	if r, ok := s.records[key]; ok {
		return &api.LockStatus{Available: false, User: r.user, Reason: HeldReason(r.processName, r.lockedAt)}, nil
	}

	r := &memoryRecord{
		user:         User(token),
		sessionToken: fmt.Sprintf("mem-%d", s.seq.Inc()),
		operation:    req.Operation,
		processName:  req.ProcessName,
		lockedAt:     time.Now(),
	}
	s.records[key] = r
	return &api.LockStatus{Available: true, SessionToken: r.sessionToken, User: r.user}, nil
}

func (s *MemoryLocker) Unlock(ctx context.Context, req *api.UnlockRequest, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey(req.InstanceID, req.ActivityName)
	r, ok := s.records[key]
	if !ok {
		return nil
	}
	if req.SessionToken != "" && req.SessionToken != r.sessionToken {
		return api.PreconditionFailed("session token does not own the lock of instance %s", req.InstanceID)
	}
	delete(s.records, key)
	return nil
}

func (s *MemoryLocker) Status(ctx context.Context, instanceID, activityName string, token *oauth2.Token) (*api.LockStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[memoryKey(instanceID, activityName)]
	if !ok {
		return &api.LockStatus{Available: true}, nil
	}
	return &api.LockStatus{Available: false, User: r.user, Reason: HeldReason(r.processName, r.lockedAt)}, nil
}

// HeldReason is the reason reported to a user who finds the lock taken.
func HeldReason(processName string, lockedAt time.Time) string {
	return fmt.Sprintf("editing %s since %s", processName, lockedAt.UTC().Format(time.RFC3339))
}
