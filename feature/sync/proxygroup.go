package sync

import (
	"context"
	"strconv"

	"zabbix-sync/core/policy"
	"zabbix-sync/core/utils"
	"zabbix-sync/core/zabbix"
	"zabbix-sync/feature/inventory"
)

// proxyGroupSyncer reconciles one proxy group.
type proxyGroupSyncer struct {
	base
	group *inventory.ProxyGroup
}

func newProxyGroupSyncer(b base, group *inventory.ProxyGroup) *proxyGroupSyncer {
	return &proxyGroupSyncer{base: b, group: group}
}

func (s *proxyGroupSyncer) EntityKind() string { return "proxygroup" }
func (s *proxyGroupSyncer) IDField() string { return "proxy_groupid" }

func (s *proxyGroupSyncer) Object() zabbix.Object {
	return zabbix.NewObject(s.api, "proxygroup")
}

func (s *proxyGroupSyncer) RemoteID() string { return s.group.ProxyGroupID }

func (s *proxyGroupSyncer) SetRemoteID(ctx context.Context, id string) error {
	s.group.ProxyGroupID = id
	return s.store.SaveFields(ctx, s.group, "proxy_group_id")
}

func (s *proxyGroupSyncer) FindByNaturalKey(ctx context.Context) ([]zabbix.Result, error) {
	return s.Object().Get(ctx, zabbix.Params{
		"filter": zabbix.Params{"name": []string{s.group.Name}},
		"output": "extend",
	})
}

func (s *proxyGroupSyncer) params() zabbix.Params {
	return zabbix.Params{
		"name":           s.group.Name,
		"failover_delay": s.group.FailoverDelay,
		"min_online":     strconv.Itoa(s.group.MinOnline),
	}
}

func (s *proxyGroupSyncer) CreateParams() zabbix.Params { return s.params() }
func (s *proxyGroupSyncer) UpdateParams() zabbix.Params { return s.params() }

func (s *proxyGroupSyncer) ApplyRemoteState(ctx context.Context, rec zabbix.Result) error {
	s.group.Name = utils.ToString(rec["name"])
	s.group.FailoverDelay = utils.ToString(rec["failover_delay"])
	s.group.MinOnline = utils.ToInt(rec["min_online"])
	return s.store.SaveFields(ctx, s.group, "name", "failover_delay", "min_online")
}

func (s *proxyGroupSyncer) SourceOfTruth() policy.SourceOfTruth {
	return s.policy.SOT.ProxyGroup
}

func (s *proxyGroupSyncer) RecordStatus(ctx context.Context, success bool, message string) error {
	return s.store.RecordSyncStatus(ctx, s.group, success, message)
}

func (s *proxyGroupSyncer) Sync(ctx context.Context) error {
	return run(ctx, s)
}
