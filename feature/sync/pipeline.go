package sync

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"zabbix-sync/core/policy"
	"zabbix-sync/core/zabbix"
	"zabbix-sync/feature/inventory"
)

// Progress receives per-stage completion counts. Implementations must be
// cheap; the pipeline calls them inline.
type Progress interface {
	StageStarted(stage string, total int)
	ItemDone(stage string)
}

// NopProgress discards progress reports.
type NopProgress struct{}

func (NopProgress) StageStarted(string, int) {}
func (NopProgress) ItemDone(string)          {}

// Counter is a Progress that keeps running totals, safe for concurrent
// readers polling a long pass.
type Counter struct {
	done  atomic.Int64
	total atomic.Int64
}

func (c *Counter) StageStarted(_ string, total int) {
	c.total.Add(int64(total))
}

func (c *Counter) ItemDone(string) {
	c.done.Add(1)
}

// Snapshot returns the items completed and the items seen so far. The total
// grows as stages open, so early ratios undercount the full pass.
func (c *Counter) Snapshot() (done, total int) {
	return int(c.done.Load()), int(c.total.Load())
}

// hostItem pairs an assignment with its attribute bundle for the two host
// phases.
type hostItem struct {
	assignment *inventory.HostAssignment
	bundle     *inventory.Bundle
}

// Pipeline reconciles one target in dependency order: hosts are created or
// adopted first with templates skipped, then the infrastructure they hang
// off (proxy groups before the proxies that join them, host groups), then
// their interfaces, and finally the hosts again with the full template link
// set so interface-bound templates attach cleanly. The template catalog is
// refreshed last, best effort, so the next pass links against fresh rows.
//
// A failing item is logged and skipped; the rest of its stage proceeds. A
// failing stage load aborts the pass, since every later stage would be
// working from wrong premises.
type Pipeline struct {
	store    *inventory.Store
	exec     *Executor
	api      zabbix.API
	policy   *policy.Config
	target   *inventory.Target
	logger   *zap.Logger
	progress Progress

	hosts []hostItem
}

// NewPipeline assembles a pipeline for one target over a pass-scoped
// connection. progress may be nil.
func NewPipeline(store *inventory.Store, exec *Executor, api zabbix.API, cfg *policy.Config, target *inventory.Target, logger *zap.Logger, progress Progress) *Pipeline {
	if progress == nil {
		progress = NopProgress{}
	}
	return &Pipeline{
		store:    store,
		exec:     exec,
		api:      api,
		policy:   cfg,
		target:   target,
		logger:   logger.With(zap.String("target", target.Name)),
		progress: progress,
	}
}

func (p *Pipeline) baseFor(api zabbix.API) base {
	return base{
		api:    api,
		store:  p.store,
		policy: p.policy,
		target: p.target,
		logger: p.logger,
	}
}

// Run executes the full pass.
func (p *Pipeline) Run(ctx context.Context) error {
	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"hosts", p.syncHosts},
		{"proxy-groups", p.syncProxyGroups},
		{"proxies", p.syncProxies},
		{"host-groups", p.syncHostGroups},
		{"interfaces", p.syncHostInterfaces},
		{"host-templates", p.attachTemplates},
		{"template-catalog", p.refreshTemplates},
	}

	for _, stage := range stages {
		p.logger.Info("Stage started", zap.String("stage", stage.name))
		if err := stage.run(ctx); err != nil {
			return fmt.Errorf("stage %s: %w", stage.name, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) syncProxyGroups(ctx context.Context) error {
	groups, err := p.store.ProxyGroupsForTarget(ctx, p.target.ID)
	if err != nil {
		return err
	}
	p.progress.StageStarted("proxy-groups", len(groups))
	for i := range groups {
		group := &groups[i]
		err := p.exec.Run(ctx, func(api zabbix.API) Syncer {
			return newProxyGroupSyncer(p.baseFor(api), group)
		})
		if err != nil {
			p.logger.Error("Proxy group sync failed",
				zap.String("proxy_group", group.Name), zap.Error(err))
		}
		p.progress.ItemDone("proxy-groups")
	}
	return nil
}

func (p *Pipeline) syncProxies(ctx context.Context) error {
	proxies, err := p.store.ProxiesForTarget(ctx, p.target.ID)
	if err != nil {
		return err
	}
	p.progress.StageStarted("proxies", len(proxies))
	for i := range proxies {
		proxy := &proxies[i]
		err := p.exec.Run(ctx, func(api zabbix.API) Syncer {
			return newProxySyncer(p.baseFor(api), proxy)
		})
		if err != nil {
			p.logger.Error("Proxy sync failed",
				zap.String("proxy", proxy.Name), zap.Error(err))
		}
		p.progress.ItemDone("proxies")
	}
	return nil
}

func (p *Pipeline) syncHostGroups(ctx context.Context) error {
	groups, err := p.store.HostGroupsForTarget(ctx, p.target.ID)
	if err != nil {
		return err
	}
	p.progress.StageStarted("host-groups", len(groups))
	for i := range groups {
		group := &groups[i]
		err := p.exec.Run(ctx, func(api zabbix.API) Syncer {
			return newHostGroupSyncer(p.baseFor(api), group)
		})
		if err != nil {
			p.logger.Error("Host group sync failed",
				zap.String("host_group", group.Name), zap.Error(err))
		}
		p.progress.ItemDone("host-groups")
	}
	return nil
}

func (p *Pipeline) refreshTemplates(ctx context.Context) error {
	p.progress.StageStarted("template-catalog", 1)
	defer p.progress.ItemDone("template-catalog")
	catalog := NewCatalog(p.api, p.store, p.target, p.logger)
	if err := catalog.Refresh(ctx); err != nil {
		// A dead catalog degrades template linking but not host sync.
		p.logger.Error("Template catalog refresh failed", zap.Error(err))
	}
	return nil
}

// syncHosts is the first host phase: each host is pushed with templates
// skipped so it exists before anything references it. The loaded items are
// kept for the interface and template stages, a failed push included; a
// later stage may still succeed once the infrastructure around the host is
// in place.
func (p *Pipeline) syncHosts(ctx context.Context) error {
	assignments, err := p.store.AssignmentsForTarget(ctx, p.target.ID)
	if err != nil {
		return err
	}

	p.hosts = p.hosts[:0]
	p.progress.StageStarted("hosts", len(assignments))

	for i := range assignments {
		assignment := &assignments[i]
		if assignment.Device == nil {
			p.logger.Error("Assignment has no device loaded", zap.Uint("assignment", assignment.ID))
			p.progress.ItemDone("hosts")
			continue
		}

		bundle, err := p.store.LoadBundle(ctx, assignment.DeviceID, p.target.ID)
		if err != nil {
			p.logger.Error("Could not load device attributes",
				zap.String("device", assignment.Device.Name), zap.Error(err))
			p.progress.ItemDone("hosts")
			continue
		}

		err = p.exec.Run(ctx, func(api zabbix.API) Syncer {
			return newHostSyncer(p.baseFor(api), assignment, bundle, true)
		})
		if err != nil {
			p.logger.Error("Host sync failed",
				zap.String("device", assignment.Device.Name), zap.Error(err))
		}

		p.hosts = append(p.hosts, hostItem{assignment: assignment, bundle: bundle})
		p.progress.ItemDone("hosts")
	}
	return nil
}

// syncHostInterfaces reconciles the interfaces of every loaded host.
func (p *Pipeline) syncHostInterfaces(ctx context.Context) error {
	p.progress.StageStarted("interfaces", len(p.hosts))
	for _, item := range p.hosts {
		p.syncInterfaces(ctx, item.assignment, item.bundle)
		p.progress.ItemDone("interfaces")
	}
	return nil
}

func (p *Pipeline) syncInterfaces(ctx context.Context, assignment *inventory.HostAssignment, bundle *inventory.Bundle) {
	for i := range bundle.Interfaces {
		iface := &bundle.Interfaces[i]
		err := p.exec.Run(ctx, func(api zabbix.API) Syncer {
			return newHostInterfaceSyncer(p.baseFor(api), iface, assignment)
		})
		if err != nil {
			p.logger.Error("Interface sync failed",
				zap.String("device", assignment.Device.Name),
				zap.Uint("interface", iface.ID), zap.Error(err))
		}
	}
}

// SyncAssignment reconciles one host assignment end to end: the host with
// templates skipped, its interfaces, then the full host payload. Queued
// runs fan out one unit per assignment over this entry point.
func (p *Pipeline) SyncAssignment(ctx context.Context, assignment *inventory.HostAssignment) error {
	if assignment.Device == nil {
		return fmt.Errorf("assignment %d has no device loaded", assignment.ID)
	}
	bundle, err := p.store.LoadBundle(ctx, assignment.DeviceID, p.target.ID)
	if err != nil {
		return fmt.Errorf("load device attributes: %w", err)
	}

	err = p.exec.Run(ctx, func(api zabbix.API) Syncer {
		return newHostSyncer(p.baseFor(api), assignment, bundle, true)
	})
	if err != nil {
		return err
	}

	p.syncInterfaces(ctx, assignment, bundle)

	return p.exec.Run(ctx, func(api zabbix.API) Syncer {
		return newHostSyncer(p.baseFor(api), assignment, bundle, false)
	})
}

// attachTemplates is the second host phase: the full payload including the
// template link set, now that every interface exists.
func (p *Pipeline) attachTemplates(ctx context.Context) error {
	p.progress.StageStarted("host-templates", len(p.hosts))
	for _, item := range p.hosts {
		err := p.exec.Run(ctx, func(api zabbix.API) Syncer {
			return newHostSyncer(p.baseFor(api), item.assignment, item.bundle, false)
		})
		if err != nil {
			p.logger.Error("Host template attach failed",
				zap.String("device", item.assignment.Device.Name), zap.Error(err))
		}
		p.progress.ItemDone("host-templates")
	}
	return nil
}
