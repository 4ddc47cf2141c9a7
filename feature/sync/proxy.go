package sync

import (
	"context"
	"strconv"

	"zabbix-sync/core/policy"
	"zabbix-sync/core/utils"
	"zabbix-sync/core/zabbix"
	"zabbix-sync/feature/inventory"
)

// proxySyncer reconciles one proxy. A proxy whose group has not been synced
// yet is pushed without the membership; the next pass attaches it.
type proxySyncer struct {
	base
	proxy *inventory.Proxy
}

func newProxySyncer(b base, proxy *inventory.Proxy) *proxySyncer {
	return &proxySyncer{base: b, proxy: proxy}
}

func (s *proxySyncer) EntityKind() string { return "proxy" }
func (s *proxySyncer) IDField() string { return "proxyid" }

func (s *proxySyncer) Object() zabbix.Object {
	return zabbix.NewObject(s.api, "proxy")
}

func (s *proxySyncer) RemoteID() string { return s.proxy.ProxyID }

func (s *proxySyncer) SetRemoteID(ctx context.Context, id string) error {
	s.proxy.ProxyID = id
	return s.store.SaveFields(ctx, s.proxy, "proxy_id")
}

func (s *proxySyncer) FindByNaturalKey(ctx context.Context) ([]zabbix.Result, error) {
	return s.Object().Get(ctx, zabbix.Params{
		"filter": zabbix.Params{"name": []string{s.proxy.Name}},
		"output": "extend",
	})
}

func (s *proxySyncer) params() zabbix.Params {
	params := zabbix.Params{
		"name":           s.proxy.Name,
		"operating_mode": strconv.Itoa(s.proxy.OperatingMode),
	}
	if s.proxy.ProxyGroup != nil && s.proxy.ProxyGroup.ProxyGroupID != "" {
		params["proxy_groupid"] = s.proxy.ProxyGroup.ProxyGroupID
		params["local_address"] = s.proxy.LocalAddress
		params["local_port"] = s.proxy.LocalPort
	}
	return params
}

func (s *proxySyncer) CreateParams() zabbix.Params { return s.params() }
func (s *proxySyncer) UpdateParams() zabbix.Params { return s.params() }

func (s *proxySyncer) ApplyRemoteState(ctx context.Context, rec zabbix.Result) error {
	s.proxy.Name = utils.ToString(rec["name"])
	s.proxy.OperatingMode = utils.ToInt(rec["operating_mode"])
	s.proxy.LocalAddress = utils.ToString(rec["local_address"])
	s.proxy.LocalPort = utils.ToString(rec["local_port"])
	return s.store.SaveFields(ctx, s.proxy,
		"name", "operating_mode", "local_address", "local_port")
}

func (s *proxySyncer) SourceOfTruth() policy.SourceOfTruth {
	return s.policy.SOT.Proxy
}

func (s *proxySyncer) RecordStatus(ctx context.Context, success bool, message string) error {
	return s.store.RecordSyncStatus(ctx, s.proxy, success, message)
}

func (s *proxySyncer) Sync(ctx context.Context) error {
	return run(ctx, s)
}
