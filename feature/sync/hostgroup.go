package sync

import (
	"context"

	"zabbix-sync/core/policy"
	"zabbix-sync/core/utils"
	"zabbix-sync/core/zabbix"
	"zabbix-sync/feature/inventory"
)

// hostGroupSyncer reconciles one host group.
type hostGroupSyncer struct {
	base
	group *inventory.HostGroup
}

func newHostGroupSyncer(b base, group *inventory.HostGroup) *hostGroupSyncer {
	return &hostGroupSyncer{base: b, group: group}
}

func (s *hostGroupSyncer) EntityKind() string { return "hostgroup" }
func (s *hostGroupSyncer) IDField() string { return "groupid" }

func (s *hostGroupSyncer) Object() zabbix.Object {
	return zabbix.NewObject(s.api, "hostgroup")
}

func (s *hostGroupSyncer) RemoteID() string { return s.group.GroupID }

// SetRemoteID persists the remote group id. When another local row already
// tracks the same remote group for this target, the unique constraint fires
// and this syncer adopts the existing row instead of duplicating it.
func (s *hostGroupSyncer) SetRemoteID(ctx context.Context, id string) error {
	previous := s.group.GroupID
	s.group.GroupID = id
	err := s.store.SaveFields(ctx, s.group, "group_id")
	if err == nil {
		return nil
	}
	if !inventory.IsDuplicateEntry(err) {
		s.group.GroupID = previous
		return err
	}
	existing, ferr := s.store.HostGroupByRemoteID(ctx, s.target.ID, id)
	if ferr != nil || existing == nil {
		s.group.GroupID = previous
		return err
	}
	*s.group = *existing
	return nil
}

func (s *hostGroupSyncer) FindByNaturalKey(ctx context.Context) ([]zabbix.Result, error) {
	return s.Object().Get(ctx, zabbix.Params{
		"filter": zabbix.Params{"name": []string{s.group.Name}},
		"output": "extend",
	})
}

func (s *hostGroupSyncer) CreateParams() zabbix.Params {
	return zabbix.Params{"name": s.group.Name}
}

func (s *hostGroupSyncer) UpdateParams() zabbix.Params {
	return zabbix.Params{"name": s.group.Name}
}

func (s *hostGroupSyncer) ApplyRemoteState(ctx context.Context, rec zabbix.Result) error {
	s.group.Name = utils.ToString(rec["name"])
	return s.store.SaveFields(ctx, s.group, "name")
}

func (s *hostGroupSyncer) SourceOfTruth() policy.SourceOfTruth {
	return s.policy.SOT.HostGroup
}

func (s *hostGroupSyncer) RecordStatus(ctx context.Context, success bool, message string) error {
	return s.store.RecordSyncStatus(ctx, s.group, success, message)
}

func (s *hostGroupSyncer) Sync(ctx context.Context) error {
	return run(ctx, s)
}
