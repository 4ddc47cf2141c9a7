package sync

import (
	"context"
	"errors"
	"strconv"

	"zabbix-sync/core/policy"
	"zabbix-sync/core/utils"
	"zabbix-sync/core/zabbix"
	"zabbix-sync/feature/inventory"
)

// errHostNotSynced means an interface was asked to sync before its host
// assignment carried a remote host id.
var errHostNotSynced = errors.New("host has no remote id yet")

// hostInterfaceSyncer reconciles one host interface. Its flow diverges from
// run() in two ways: a stored id that no longer resolves remotely is
// silently cleared and the interface recreated (self-heal), and an update
// rejected because the interface belongs to another host is answered by
// recreating the interface under the correct host.
type hostInterfaceSyncer struct {
	base
	iface      *inventory.HostInterface
	assignment *inventory.HostAssignment

	payload zabbix.Params
}

func newHostInterfaceSyncer(b base, iface *inventory.HostInterface, assignment *inventory.HostAssignment) *hostInterfaceSyncer {
	return &hostInterfaceSyncer{base: b, iface: iface, assignment: assignment}
}

func (s *hostInterfaceSyncer) EntityKind() string { return "hostinterface" }
func (s *hostInterfaceSyncer) IDField() string { return "interfaceid" }

func (s *hostInterfaceSyncer) Object() zabbix.Object {
	return zabbix.NewObject(s.api, "hostinterface")
}

func (s *hostInterfaceSyncer) RemoteID() string { return s.iface.InterfaceID }

func (s *hostInterfaceSyncer) SetRemoteID(ctx context.Context, id string) error {
	s.iface.InterfaceID = id
	return s.store.SaveFields(ctx, s.iface, "interface_id")
}

// FindByNaturalKey identifies the interface by host, type, main flag and
// port. It backs duplicate recovery; interfaces carry no name.
func (s *hostInterfaceSyncer) FindByNaturalKey(ctx context.Context) ([]zabbix.Result, error) {
	return s.Object().Get(ctx, zabbix.Params{
		"hostids": []string{s.assignment.HostID},
		"filter": zabbix.Params{
			"type": strconv.Itoa(s.iface.Type),
			"main": boolFlag(s.iface.Primary),
			"port": s.iface.Port,
		},
		"output": "extend",
	})
}

// prepare assembles the outbound payload. An interface cannot exist before
// its host does, so a missing host id fails here.
func (s *hostInterfaceSyncer) prepare(ctx context.Context) error {
	if s.assignment.HostID == "" {
		return newError(s.EntityKind(), errHostNotSynced)
	}
	params := zabbix.Params{
		"hostid": s.assignment.HostID,
		"type":   strconv.Itoa(s.iface.Type),
		"main":   boolFlag(s.iface.Primary),
		"useip":  boolFlag(s.iface.UseIP),
		"ip":     s.store.IPAddressLiteral(ctx, s.iface.IPAddressID),
		"dns":    s.iface.DNS,
		"port":   s.iface.Port,
	}
	if s.iface.Type == inventory.InterfaceSNMP {
		params["details"] = s.snmpDetails()
	}
	s.payload = params
	return nil
}

// snmpDetails builds the SNMP sub-object. A v1/v2 community is inlined when
// the interface carries a literal one, otherwise the community macro is
// referenced; v3 passphrases always reference the user macros the host
// syncer populates from the same interface rows.
func (s *hostInterfaceSyncer) snmpDetails() zabbix.Params {
	details := zabbix.Params{
		"version": strconv.Itoa(s.iface.SNMPVersion),
		"bulk":    boolFlag(s.iface.SNMPUseBulk),
	}
	if s.iface.SNMPVersion == inventory.SNMPV3 {
		details["contextname"] = s.iface.SNMPV3ContextName
		details["securityname"] = s.iface.SNMPV3SecurityName
		details["securitylevel"] = strconv.Itoa(s.iface.SNMPV3SecurityLevel)
		if s.iface.SNMPV3SecurityLevel >= inventory.SNMPSecurityAuthNoPriv {
			details["authprotocol"] = strconv.Itoa(s.iface.SNMPV3AuthProtocol)
			details["authpassphrase"] = s.policy.SNMP.AuthPassMacro
		}
		if s.iface.SNMPV3SecurityLevel == inventory.SNMPSecurityAuthPriv {
			details["privprotocol"] = strconv.Itoa(s.iface.SNMPV3PrivProtocol)
			details["privpassphrase"] = s.policy.SNMP.PrivPassMacro
		}
	} else {
		community := s.iface.SNMPCommunity
		if community == "" {
			community = s.policy.SNMP.CommunityMacro
		}
		details["community"] = community
	}
	return details
}

func (s *hostInterfaceSyncer) CreateParams() zabbix.Params {
	return s.payload
}

// UpdateParams copies the payload so the caller can attach the identifier
// without mutating it.
func (s *hostInterfaceSyncer) UpdateParams() zabbix.Params {
	params := make(zabbix.Params, len(s.payload)+1)
	for k, v := range s.payload {
		params[k] = v
	}
	return params
}

func (s *hostInterfaceSyncer) ApplyRemoteState(ctx context.Context, rec zabbix.Result) error {
	s.iface.UseIP = utils.ToBool(rec["useip"])
	s.iface.DNS = utils.ToString(rec["dns"])
	s.iface.Port = utils.ToString(rec["port"])
	return s.store.SaveFields(ctx, s.iface, "use_ip", "dns", "port")
}

func (s *hostInterfaceSyncer) SourceOfTruth() policy.SourceOfTruth {
	return s.policy.SOT.HostInterface
}

func (s *hostInterfaceSyncer) RecordStatus(ctx context.Context, success bool, message string) error {
	return s.store.RecordSyncStatus(ctx, s.iface, success, message)
}

func (s *hostInterfaceSyncer) Sync(ctx context.Context) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}

	if id := s.iface.InterfaceID; id != "" {
		recs, err := s.Object().Get(ctx, zabbix.Params{
			"interfaceids": []string{id},
			"output":       "extend",
		})
		if err != nil {
			return newError(s.EntityKind(), err)
		}
		if len(recs) == 0 {
			// Deleted behind our back; forget the id and recreate.
			if err := s.SetRemoteID(ctx, ""); err != nil {
				return newError(s.EntityKind(), err)
			}
		} else if s.SourceOfTruth().IsRemote() {
			if err := s.ApplyRemoteState(ctx, recs[0]); err != nil {
				return newError(s.EntityKind(), err)
			}
			return nil
		} else {
			return s.update(ctx, id)
		}
	}

	return s.create(ctx)
}

func (s *hostInterfaceSyncer) update(ctx context.Context, id string) error {
	params := s.UpdateParams()
	params["interfaceid"] = id
	_, err := s.Object().Update(ctx, params)
	if err == nil {
		return nil
	}
	if !isCannotSwitchHost(err) {
		return newError(s.EntityKind(), err)
	}
	// The interface id belongs to a host we no longer own; abandon it and
	// recreate under the current host.
	if err := s.SetRemoteID(ctx, ""); err != nil {
		return newError(s.EntityKind(), err)
	}
	if err := s.create(ctx); err != nil {
		return err
	}
	s.note = "Recreated interface"
	return nil
}

func (s *hostInterfaceSyncer) create(ctx context.Context) error {
	res, err := s.Object().Create(ctx, s.CreateParams())
	if err != nil {
		return newError(s.EntityKind(), err)
	}
	id := res.FirstID("interfaceids")
	if id == "" {
		return newError(s.EntityKind(), ErrNoIdentifier)
	}
	if err := s.SetRemoteID(ctx, id); err != nil {
		return newError(s.EntityKind(), err)
	}
	return nil
}

// boolFlag renders a bool as the API's "0"/"1" convention.
func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
