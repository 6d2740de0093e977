package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/vine-io/pkg/xname"
	log "github.com/vine-io/vine/lib/logger"
	clientv3 "go.etcd.io/etcd/client/v3"
	"golang.org/x/oauth2"

	"github.com/vine-io/formflow/api"
	"github.com/vine-io/formflow/lock"
	"github.com/vine-io/formflow/lock/etcd"
)

type lockFlags struct {
	instanceID   string
	activityName string
	user         string
}

func (f *lockFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.instanceID, "instance", "i", "", "process instance id")
	flags.StringVarP(&f.activityName, "activity", "a", "", "activity name")
	flags.StringVarP(&f.user, "user", "u", "", "lock owner, defaults to $USER")
	_ = cmd.MarkFlagRequired("instance")
	_ = cmd.MarkFlagRequired("activity")
}

func (f *lockFlags) credentials() oauth2.TokenSource {
	user := f.user
	if user == "" {
		user = os.Getenv("USER")
	}
	if user == "" {
		user = "formflow-" + xname.Gen6()
	}
	return lock.Credentials("", user)
}

// lockManager connects to etcd and returns the manager with a function that
// closes the connection.
func (a *app) lockManager() (*lock.Manager, func(), error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Etcd.Endpoints,
		DialTimeout: cfg.Etcd.DialTimeout,
	})
	if err != nil {
		return nil, nil, api.ServiceUnavailable("connect to etcd: %v", err)
	}

	locker := etcd.New(client, etcd.Prefix(cfg.Etcd.Prefix), etcd.LeaseTTL(cfg.Etcd.LeaseTTL))
	closeFn := func() {
		if e := client.Close(); e != nil {
			log.Debugf("close etcd client: %v", e)
		}
	}
	return lock.NewManager(locker), closeFn, nil
}

func newLockCmd(a *app) *cobra.Command {
	f := &lockFlags{}
	var (
		processName string
		operation   int32
	)

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Take the edit lock of an instance activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := a.lockManager()
			if err != nil {
				return err
			}
			defer closeFn()

			sessionToken, err := m.Acquire(cmd.Context(), &api.LockRequest{
				InstanceID:   f.instanceID,
				ActivityName: f.activityName,
				Operation:    operation,
				ProcessName:  processName,
			}, f.credentials())

			var held *lock.HeldError
			if errors.As(err, &held) {
				_ = writeJSON(cmd.OutOrStdout(), &api.LockStatus{Available: false, User: held.User, Reason: held.Reason})
				return err
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), &api.LockStatus{Available: true, SessionToken: sessionToken})
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVarP(&processName, "process", "p", "", "process name")
	cmd.Flags().Int32Var(&operation, "operation", 1, "lock operation")
	_ = cmd.MarkFlagRequired("process")

	return cmd
}

func newUnlockCmd(a *app) *cobra.Command {
	f := &lockFlags{}
	var sessionToken string

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Release an edit lock, without --token the release is forced",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := a.lockManager()
			if err != nil {
				return err
			}
			defer closeFn()

			if sessionToken == "" {
				log.Infof("forcing release of instance %s activity %s", f.instanceID, f.activityName)
				return m.ForceUnlock(cmd.Context(), f.instanceID, f.activityName, f.credentials())
			}
			return m.Release(cmd.Context(), f.instanceID, f.activityName, sessionToken, f.credentials())
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVarP(&sessionToken, "token", "t", "", "session token returned by lock")

	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	f := &lockFlags{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show who holds the edit lock of an instance activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeFn, err := a.lockManager()
			if err != nil {
				return err
			}
			defer closeFn()

			status, err := m.Status(cmd.Context(), f.instanceID, f.activityName, f.credentials())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	}
	f.bind(cmd)

	return cmd
}
