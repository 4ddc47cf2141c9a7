package sync

import (
	"context"

	"go.uber.org/zap"

	"zabbix-sync/core/policy"
	"zabbix-sync/core/zabbix"
	"zabbix-sync/feature/inventory"
)

// Service drives reconciliation passes against configured targets, either
// synchronously (SyncTarget) or as a queued run (EnqueueTarget).
type Service struct {
	store   *inventory.Store
	policy  *policy.Config
	logger  *zap.Logger
	workers int

	runs *runRegistry
}

// NewService creates the sync service. workers bounds the parallelism of
// queued runs.
func NewService(store *inventory.Store, cfg *policy.Config, logger *zap.Logger, workers int) *Service {
	if workers < 1 {
		workers = 4
	}
	return &Service{
		store:   store,
		policy:  cfg,
		logger:  logger,
		workers: workers,
		runs:    newRunRegistry(),
	}
}

// connector builds the per-target connection factory.
func (s *Service) connector(target *inventory.Target) Connector {
	return func(ctx context.Context) (zabbix.API, func(), error) {
		client, err := zabbix.Connect(ctx, zabbix.Config{
			URL:                target.URL,
			Token:              target.Token,
			InsecureSkipVerify: target.SkipTLSVerify,
			TimeoutSeconds:     target.TimeoutSeconds,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	}
}

// SyncTarget runs one full reconciliation pass for a target and blocks
// until it finishes. progress may be nil.
func (s *Service) SyncTarget(ctx context.Context, targetID uint, progress Progress) error {
	target, err := s.store.TargetByID(ctx, targetID)
	if err != nil {
		return err
	}
	return s.syncTarget(ctx, target, progress)
}

// SyncTargetByName is SyncTarget addressed by the target's unique name.
func (s *Service) SyncTargetByName(ctx context.Context, name string, progress Progress) error {
	target, err := s.store.TargetByName(ctx, name)
	if err != nil {
		return err
	}
	return s.syncTarget(ctx, target, progress)
}

func (s *Service) syncTarget(ctx context.Context, target *inventory.Target, progress Progress) error {
	connect := s.connector(target)
	api, release, err := connect(ctx)
	if err != nil {
		return err
	}
	defer release()

	exec := NewExecutor(api, connect, s.logger)
	pipeline := NewPipeline(s.store, exec, api, s.policy, target, s.logger, progress)
	return pipeline.Run(ctx)
}
