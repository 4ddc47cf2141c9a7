package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"zabbix-sync/core/zabbix"
)

// Connector opens a fresh connection to the target's monitoring server.
// The release func returns the connection's resources.
type Connector func(ctx context.Context) (zabbix.API, func(), error)

// Executor runs syncers with duplicate recovery. Two workers racing to
// create the same entity produce an "already exists" failure on the loser;
// the executor then retries exactly once over a fresh connection, adopting
// the winner's record by natural key. Any other failure, and any failure of
// the recovery itself, is final.
//
// The executor also owns status bookkeeping: every run stamps the local row
// with its outcome, and a status write failure is logged, never fatal.
type Executor struct {
	api     zabbix.API
	connect Connector
	logger  *zap.Logger
}

// NewExecutor creates an executor over the pass-scoped connection. connect
// is only exercised during duplicate recovery.
func NewExecutor(api zabbix.API, connect Connector, logger *zap.Logger) *Executor {
	return &Executor{api: api, connect: connect, logger: logger}
}

// Run builds a syncer over the executor's connection and reconciles it.
func (e *Executor) Run(ctx context.Context, build func(api zabbix.API) Syncer) error {
	s := build(e.api)
	err := s.Sync(ctx)

	if err != nil && isAlreadyExists(err) {
		e.logger.Info("Creation raced an existing record, recovering",
			zap.String("entity", s.EntityKind()))
		s, err = e.recover(ctx, build)
	}

	message := "Sync completed"
	if err != nil {
		message = err.Error()
	} else if note := s.Message(); note != "" {
		message = note
	}
	if serr := s.RecordStatus(ctx, err == nil, message); serr != nil {
		e.logger.Warn("Could not record sync status",
			zap.String("entity", s.EntityKind()), zap.Error(serr))
	}
	return err
}

// recover performs the single duplicate-recovery attempt over a fresh
// connection.
func (e *Executor) recover(ctx context.Context, build func(api zabbix.API) Syncer) (Syncer, error) {
	api, release, err := e.connect(ctx)
	if err != nil {
		s := build(e.api)
		return s, newError(s.EntityKind(), fmt.Errorf("reconnect for duplicate recovery: %w", err))
	}
	defer release()

	s := build(api)
	// A freshly built syncer has not assembled its payload; without this the
	// recovery update would push an empty one.
	if p, ok := s.(preparer); ok {
		if err := p.prepare(ctx); err != nil {
			return s, err
		}
	}
	return s, adoptExisting(ctx, s)
}
