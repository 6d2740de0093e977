// Package etcd keeps edit lock records in etcd.
//
// A lock is one key, <prefix>/locks/<instance>/<activity> with both ids path
// escaped, holding a JSON Record. It is taken with a transaction that only
// writes when the key does not exist, so two sessions never both see
// Available.
package etcd

import (
	"context"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	log "github.com/vine-io/vine/lib/logger"
	clientv3 "go.etcd.io/etcd/client/v3"
	"golang.org/x/oauth2"

	"github.com/vine-io/formflow/api"
	"github.com/vine-io/formflow/lock"
)

// DefaultPrefix is the key prefix used when none is given.
const DefaultPrefix = "/formflow"

// Record is the value stored under a lock key.
type Record struct {
	User         string    `json:"user"`
	SessionToken string    `json:"sessionToken"`
	Operation    int32     `json:"operation"`
	ProcessName  string    `json:"processName"`
	LockedAt     time.Time `json:"lockedAt"`
}

type Options struct {
	Prefix string
	// LeaseTTL expires locks nobody released. Zero keeps them until they
	// are released or forced.
	LeaseTTL time.Duration
}

type Option func(*Options)

func Prefix(prefix string) Option {
	return func(o *Options) {
		o.Prefix = prefix
	}
}

func LeaseTTL(ttl time.Duration) Option {
	return func(o *Options) {
		o.LeaseTTL = ttl
	}
}

type Locker struct {
	client  *clientv3.Client
	options Options
}

var _ lock.Locker = (*Locker)(nil)

func New(client *clientv3.Client, opts ...Option) *Locker {
	options := Options{Prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(&options)
	}
	return &Locker{client: client, options: options}
}

// key escapes both segments, so ids holding "/" cannot collide.
func (l *Locker) key(instanceID, activityName string) string {
	return path.Join(l.options.Prefix, "locks", url.PathEscape(instanceID), url.PathEscape(activityName))
}

func (l *Locker) Lock(ctx context.Context, req *api.LockRequest, token *oauth2.Token) (*api.LockStatus, error) {
	key := l.key(req.InstanceID, req.ActivityName)
	record := &Record{
		User:         lock.User(token),
		SessionToken: uuid.NewString(),
		Operation:    req.Operation,
		ProcessName:  req.ProcessName,
		LockedAt:     time.Now(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, api.InternalServerError("%v", err)
	}

	options := []clientv3.OpOption{}
	var leaseID clientv3.LeaseID
	if ttl := int64(l.options.LeaseTTL / time.Second); ttl > 0 {
		lease, err := l.client.Grant(ctx, ttl)
		if err != nil {
			return nil, api.FromErr(err)
		}
		leaseID = lease.ID
		options = append(options, clientv3.WithLease(leaseID))
	}

	rsp, err := l.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, string(data), options...)).
		Else(clientv3.OpGet(key)).
		Commit()
	if err != nil {
		l.revoke(leaseID)
		return nil, api.FromErr(err)
	}

	if rsp.Succeeded {
		return &api.LockStatus{Available: true, SessionToken: record.SessionToken, User: record.User}, nil
	}

	l.revoke(leaseID)
	status := &api.LockStatus{Available: false}
	if rr := rsp.Responses[0].GetResponseRange(); rr != nil && len(rr.Kvs) > 0 {
		held := Record{}
		if e := json.Unmarshal(rr.Kvs[0].Value, &held); e == nil {
			status.User = held.User
			status.Reason = lock.HeldReason(held.ProcessName, held.LockedAt)
		}
	}
	return status, nil
}

func (l *Locker) Unlock(ctx context.Context, req *api.UnlockRequest, token *oauth2.Token) error {
	key := l.key(req.InstanceID, req.ActivityName)
	rsp, err := l.client.Get(ctx, key)
	if err != nil {
		return api.FromErr(err)
	}
	if len(rsp.Kvs) == 0 {
		return nil
	}
	kv := rsp.Kvs[0]

	if req.SessionToken != "" {
		record := Record{}
		if err = json.Unmarshal(kv.Value, &record); err != nil {
			return api.InternalServerError("decode lock record %s: %v", key, err)
		}
		if record.SessionToken != req.SessionToken {
			return api.PreconditionFailed("session token does not own the lock of instance %s", req.InstanceID)
		}
	}

	txn, err := l.client.Txn(ctx).
		If(clientv3.Compare(clientv3.ModRevision(key), "=", kv.ModRevision)).
		Then(clientv3.OpDelete(key)).
		Commit()
	if err != nil {
		return api.FromErr(err)
	}
	if !txn.Succeeded {
		return api.Conflict("lock of instance %s changed while releasing", req.InstanceID)
	}

	l.revoke(clientv3.LeaseID(kv.Lease))
	return nil
}

func (l *Locker) Status(ctx context.Context, instanceID, activityName string, token *oauth2.Token) (*api.LockStatus, error) {
	rsp, err := l.client.Get(ctx, l.key(instanceID, activityName))
	if err != nil {
		return nil, api.FromErr(err)
	}
	if len(rsp.Kvs) == 0 {
		return &api.LockStatus{Available: true}, nil
	}

	record := Record{}
	if err = json.Unmarshal(rsp.Kvs[0].Value, &record); err != nil {
		return nil, api.InternalServerError("decode lock record: %v", err)
	}
	return &api.LockStatus{
		Available: false,
		User:      record.User,
		Reason:    lock.HeldReason(record.ProcessName, record.LockedAt),
	}, nil
}

// List returns every lock record under the prefix, keyed by etcd key.
func (l *Locker) List(ctx context.Context) (map[string]*Record, error) {
	rsp, err := l.client.Get(ctx, path.Join(l.options.Prefix, "locks")+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, api.FromErr(err)
	}

	out := make(map[string]*Record, len(rsp.Kvs))
	for _, kv := range rsp.Kvs {
		record := Record{}
		if e := json.Unmarshal(kv.Value, &record); e == nil {
			out[string(kv.Key)] = &record
		}
	}
	return out, nil
}

func (l *Locker) revoke(id clientv3.LeaseID) {
	if id == clientv3.NoLease {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()
	if _, err := l.client.Revoke(ctx, id); err != nil {
		log.Debugf("revoke lease %d: %v", id, err)
	}
}
