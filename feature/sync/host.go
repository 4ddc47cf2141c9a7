package sync

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"go.uber.org/zap"

	"zabbix-sync/core/policy"
	"zabbix-sync/core/utils"
	"zabbix-sync/core/zabbix"
	"zabbix-sync/feature/inventory"
)

// hostNameForbidden matches every character the monitoring server rejects
// in a technical host name.
var hostNameForbidden = regexp.MustCompile(`[^0-9a-zA-Z_. \-]`)

// maxHostNameLength is the server-side limit on the technical host name.
const maxHostNameLength = 64

// sanitizeHostName derives the technical host name from a display name:
// forbidden characters become underscores and the result is capped at the
// server's length limit.
func sanitizeHostName(name string) string {
	sanitized := hostNameForbidden.ReplaceAllString(name, "_")
	if len(sanitized) > maxHostNameLength {
		sanitized = sanitized[:maxHostNameLength]
	}
	return sanitized
}

// errNoHostGroups means a host cannot be pushed because the server requires
// at least one group membership.
var errNoHostGroups = errors.New("host requires at least one host group")

// hostSyncer reconciles one host assignment. The outbound payload is
// assembled once in prepare() from the device, its attribute bundle and a
// snapshot of the current remote host; CreateParams and UpdateParams only
// clone it. The two-phase pipeline syncs each host twice: first with
// templates skipped, so interfaces exist before any template that needs
// them, then fully.
type hostSyncer struct {
	base
	assignment    *inventory.HostAssignment
	bundle        *inventory.Bundle
	skipTemplates bool

	payload     zabbix.Params
	groupIDs    []string
	templateIDs []string
	clearIDs    []string
}

func newHostSyncer(b base, assignment *inventory.HostAssignment, bundle *inventory.Bundle, skipTemplates bool) *hostSyncer {
	return &hostSyncer{base: b, assignment: assignment, bundle: bundle, skipTemplates: skipTemplates}
}

func (s *hostSyncer) EntityKind() string { return "host" }
func (s *hostSyncer) IDField() string { return "hostid" }

func (s *hostSyncer) Object() zabbix.Object {
	return zabbix.NewObject(s.api, "host")
}

func (s *hostSyncer) RemoteID() string { return s.assignment.HostID }

func (s *hostSyncer) SetRemoteID(ctx context.Context, id string) error {
	s.assignment.HostID = id
	return s.store.SaveFields(ctx, s.assignment, "host_id")
}

// FindByNaturalKey matches on the exact technical host name. The exact
// filter keeps e.g. "Core-1" from resolving against "Core-10".
func (s *hostSyncer) FindByNaturalKey(ctx context.Context) ([]zabbix.Result, error) {
	return s.Object().Get(ctx, zabbix.Params{
		"filter": zabbix.Params{"host": []string{sanitizeHostName(s.assignment.Device.Name)}},
		"output": "extend",
	})
}

func (s *hostSyncer) CreateParams() zabbix.Params {
	params := s.clonePayload()
	params["groups"] = idRefs("groupid", s.groupIDs)
	if !s.skipTemplates {
		params["templates"] = idRefs("templateid", s.templateIDs)
	}
	return params
}

func (s *hostSyncer) UpdateParams() zabbix.Params {
	params := s.clonePayload()
	params["groups"] = idRefs("groupid", s.groupIDs)
	if !s.skipTemplates {
		params["templates"] = idRefs("templateid", s.templateIDs)
		params["templates_clear"] = idRefs("templateid", s.clearIDs)
	}
	return params
}

// clonePayload copies the prepared payload so callers can attach call
// specific keys without mutating the shared map.
func (s *hostSyncer) clonePayload() zabbix.Params {
	params := make(zabbix.Params, len(s.payload)+4)
	for k, v := range s.payload {
		params[k] = v
	}
	return params
}

func (s *hostSyncer) ApplyRemoteState(ctx context.Context, rec zabbix.Result) error {
	device := s.assignment.Device
	device.Name = utils.ToString(rec["name"])
	return s.store.SaveFields(ctx, device, "name")
}

func (s *hostSyncer) SourceOfTruth() policy.SourceOfTruth {
	return s.policy.SOT.Host
}

func (s *hostSyncer) RecordStatus(ctx context.Context, success bool, message string) error {
	return s.store.RecordSyncStatus(ctx, s.assignment, success, message)
}

func (s *hostSyncer) Sync(ctx context.Context) error {
	if err := s.prepare(ctx); err != nil {
		return err
	}
	return run(ctx, s)
}

// remoteSnapshot is the current remote host state the payload assembly
// merges against. A host that does not exist yet, and a snapshot fetch that
// fails, both degrade to empty baselines.
type remoteSnapshot struct {
	templateIDs []string
	tags        []zabbix.Result
	macros      []zabbix.Result
}

// prepare assembles the outbound payload. Group memberships are
// bootstrapped on the spot: a group without a remote id is synced before
// the host references it.
func (s *hostSyncer) prepare(ctx context.Context) error {
	device := s.assignment.Device
	if device == nil {
		return newError("host", errors.New("assignment has no device loaded"))
	}

	if err := s.ensureRemoteGroups(ctx); err != nil {
		return err
	}
	if len(s.groupIDs) == 0 {
		return newError("host", errNoHostGroups)
	}

	snapshot := s.fetchSnapshot(ctx)
	status := policy.StatusFor(device.ObjectType, device.Status)

	payload := zabbix.Params{
		"host": sanitizeHostName(device.Name),
		"name": device.Name,
	}
	if status == policy.StatusDisabled {
		payload["status"] = "1"
	} else {
		payload["status"] = "0"
	}

	s.applyMonitoredBy(payload)
	payload["tags"] = s.mergeTags(snapshot, status)
	payload["macros"] = s.mergeMacros(snapshot)
	s.applyInterfaceSettings(payload)
	s.applyInventory(payload, device)
	s.resolveTemplates(snapshot)

	s.payload = payload
	return nil
}

// ensureRemoteGroups collects the remote group ids the host references,
// syncing any group that has none yet. A duplicate race during bootstrap is
// recovered inline so it is never mistaken for a host-level duplicate.
func (s *hostSyncer) ensureRemoteGroups(ctx context.Context) error {
	seen := make(map[string]struct{}, len(s.bundle.Groups))
	for i := range s.bundle.Groups {
		group := s.bundle.Groups[i].HostGroup
		if group == nil {
			continue
		}
		if group.GroupID == "" {
			gs := newHostGroupSyncer(s.base, group)
			err := gs.Sync(ctx)
			if err != nil && isAlreadyExists(err) {
				err = adoptExisting(ctx, gs)
			}
			if err != nil {
				return newError("host", fmt.Errorf("bootstrap group %q: %w", group.Name, err))
			}
		}
		if group.GroupID == "" {
			return newError("host", fmt.Errorf("group %q has no remote id after bootstrap", group.Name))
		}
		if _, ok := seen[group.GroupID]; ok {
			continue
		}
		seen[group.GroupID] = struct{}{}
		s.groupIDs = append(s.groupIDs, group.GroupID)
	}
	return nil
}

// fetchSnapshot reads the remote host's templates, tags and macros. Any
// failure degrades to empty baselines; the sync proceeds as if the remote
// carried nothing.
func (s *hostSyncer) fetchSnapshot(ctx context.Context) remoteSnapshot {
	var snapshot remoteSnapshot
	if s.assignment.HostID == "" {
		return snapshot
	}

	recs, err := s.Object().Get(ctx, zabbix.Params{
		"hostids":               []string{s.assignment.HostID},
		"output":                "extend",
		"selectParentTemplates": []string{"templateid"},
		"selectTags":            "extend",
		"selectMacros":          "extend",
	})
	if err != nil || len(recs) == 0 {
		if err != nil {
			s.logger.Warn("Could not snapshot remote host, merging against empty baselines",
				zap.String("host_id", s.assignment.HostID), zap.Error(err))
		}
		return snapshot
	}

	rec := recs[0]
	if raw, ok := rec["parentTemplates"].([]any); ok {
		for _, entry := range raw {
			if m, ok := entry.(map[string]any); ok {
				if id := utils.ToString(m["templateid"]); id != "" {
					snapshot.templateIDs = append(snapshot.templateIDs, id)
				}
			}
		}
	}
	snapshot.tags = subObjects(rec["tags"])
	snapshot.macros = subObjects(rec["macros"])
	return snapshot
}

// applyMonitoredBy sets the monitoring source discriminator: directly by
// the server, through one proxy, or through a proxy group.
func (s *hostSyncer) applyMonitoredBy(payload zabbix.Params) {
	switch {
	case s.assignment.ProxyGroup != nil && s.assignment.ProxyGroup.ProxyGroupID != "":
		payload["monitored_by"] = strconv.Itoa(inventory.MonitoredByProxyGroup)
		payload["proxy_groupid"] = s.assignment.ProxyGroup.ProxyGroupID
	case s.assignment.Proxy != nil && s.assignment.Proxy.ProxyID != "":
		payload["monitored_by"] = strconv.Itoa(inventory.MonitoredByProxy)
		payload["proxyid"] = s.assignment.Proxy.ProxyID
	default:
		payload["monitored_by"] = strconv.Itoa(inventory.MonitoredByServer)
	}
}

// mergeTags merges local tags over the remote baseline. A local tag wins
// over a remote tag of the same name; remote-only tags survive. A host that
// is monitored but must not alert carries the synthetic no-alerting tag.
func (s *hostSyncer) mergeTags(snapshot remoteSnapshot, status policy.HostStatus) []zabbix.Params {
	localNames := make(map[string]struct{}, len(s.bundle.Tags)+1)
	var merged []zabbix.Params

	for i := range s.bundle.Tags {
		tag := &s.bundle.Tags[i]
		value, err := tag.Render(s.assignment.Device)
		if err != nil {
			s.logger.Warn("Skipping tag, value template failed",
				zap.String("tag", tag.Tag), zap.Error(err))
			continue
		}
		localNames[tag.Tag] = struct{}{}
		merged = append(merged, zabbix.Params{"tag": tag.Tag, "value": value})
	}

	if status == policy.StatusEnabledNoAlerting {
		localNames[s.policy.NoAlertingTag] = struct{}{}
		merged = append(merged, zabbix.Params{
			"tag":   s.policy.NoAlertingTag,
			"value": s.policy.NoAlertingTagValue,
		})
	}

	for _, remote := range snapshot.tags {
		name := utils.ToString(remote["tag"])
		if _, taken := localNames[name]; taken {
			continue
		}
		merged = append(merged, zabbix.Params{
			"tag":   name,
			"value": utils.ToString(remote["value"]),
		})
	}

	if merged == nil {
		merged = []zabbix.Params{}
	}
	return merged
}

// mergeMacros merges, in ascending precedence, the remote baseline (pulled
// down only when the server is authoritative for macros), the macros derived
// from SNMP interface credentials, and the local macro assignments.
// Precedence is per macro name.
func (s *hostSyncer) mergeMacros(snapshot remoteSnapshot) []zabbix.Params {
	order := make([]string, 0, len(snapshot.macros)+len(s.bundle.Macros)+3)
	byName := make(map[string]zabbix.Params)

	set := func(entry zabbix.Params) {
		name := utils.ToString(entry["macro"])
		if name == "" {
			return
		}
		if _, ok := byName[name]; !ok {
			order = append(order, name)
		}
		byName[name] = entry
	}

	if s.policy.SOT.HostMacro.IsRemote() {
		for _, remote := range snapshot.macros {
			set(zabbix.Params{
				"macro":       utils.ToString(remote["macro"]),
				"value":       utils.ToString(remote["value"]),
				"description": utils.ToString(remote["description"]),
				"type":        utils.ToString(remote["type"]),
			})
		}
	}
	for _, derived := range s.snmpMacros() {
		set(derived)
	}
	for i := range s.bundle.Macros {
		macro := &s.bundle.Macros[i]
		set(zabbix.Params{
			"macro":       macro.Macro,
			"value":       macro.Value,
			"description": macro.Description,
			"type":        strconv.Itoa(macro.MacroType),
		})
	}

	merged := make([]zabbix.Params, 0, len(order))
	for _, name := range order {
		merged = append(merged, byName[name])
	}
	return merged
}

// snmpMacros derives the credential macros the SNMP interface details refer
// to. Identical values collapse; a conflicting value for a macro already
// derived is dropped with a warning, the first value wins.
func (s *hostSyncer) snmpMacros() []zabbix.Params {
	order := make([]string, 0, 3)
	values := make(map[string]zabbix.Params)

	derive := func(name, value string, secret bool) {
		if value == "" {
			return
		}
		if existing, ok := values[name]; ok {
			if utils.ToString(existing["value"]) != value {
				s.logger.Warn("Conflicting SNMP credential for macro, keeping first",
					zap.String("macro", name))
			}
			return
		}
		macroType := "0"
		if secret {
			macroType = "1"
		}
		order = append(order, name)
		values[name] = zabbix.Params{"macro": name, "value": value, "type": macroType}
	}

	for i := range s.bundle.Interfaces {
		iface := &s.bundle.Interfaces[i]
		if iface.Type != inventory.InterfaceSNMP {
			continue
		}
		if iface.SNMPVersion == inventory.SNMPV3 {
			derive(s.policy.SNMP.AuthPassMacro, iface.SNMPV3AuthPass, true)
			derive(s.policy.SNMP.PrivPassMacro, iface.SNMPV3PrivPass, true)
		} else {
			derive(s.policy.SNMP.CommunityMacro, iface.SNMPCommunity, true)
		}
	}

	macros := make([]zabbix.Params, 0, len(order))
	for _, name := range order {
		macros = append(macros, values[name])
	}
	return macros
}

// applyInterfaceSettings folds interface-level TLS and IPMI settings up to
// the host, which is where the server keeps them. With several interfaces
// of the same class the last one wins.
func (s *hostSyncer) applyInterfaceSettings(payload zabbix.Params) {
	for i := range s.bundle.Interfaces {
		iface := &s.bundle.Interfaces[i]
		switch iface.Type {
		case inventory.InterfaceAgent:
			payload["tls_connect"] = strconv.Itoa(iface.TLSConnect)
			payload["tls_accept"] = strconv.Itoa(sumBits(iface.TLSAccept))
			payload["tls_issuer"] = iface.TLSIssuer
			payload["tls_subject"] = iface.TLSSubject
			payload["tls_psk_identity"] = iface.TLSPSKIdentity
			payload["tls_psk"] = iface.TLSPSK
		case inventory.InterfaceIPMI:
			payload["ipmi_authtype"] = strconv.Itoa(iface.IPMIAuthType)
			payload["ipmi_privilege"] = strconv.Itoa(iface.IPMIPrivilege)
			payload["ipmi_username"] = iface.IPMIUsername
			payload["ipmi_password"] = iface.IPMIPassword
		}
	}
}

// applyInventory sets the inventory mode and the rendered fields. Only
// fields that render successfully to a non-empty value are sent.
func (s *hostSyncer) applyInventory(payload zabbix.Params, device *inventory.Device) {
	inv := s.bundle.Inventory
	if inv == nil {
		return
	}
	payload["inventory_mode"] = strconv.Itoa(inv.Mode)
	if inv.Mode < 0 {
		return
	}

	fields := zabbix.Params{}
	for name, rendered := range inv.RenderFields(device) {
		if !rendered.OK || rendered.Value == "" {
			continue
		}
		fields[name] = rendered.Value
	}
	if len(fields) > 0 {
		payload["inventory"] = fields
	}
}

// resolveTemplates computes the template link set. A template takes part
// only when it has a remote id and the host's interfaces satisfy its
// requirements. When the inventory is authoritative, remote-only links are
// scheduled for clearing; when the server is authoritative, they are folded
// into the link set instead.
func (s *hostSyncer) resolveTemplates(snapshot remoteSnapshot) {
	types := s.bundle.InterfaceTypes()
	intended := make(map[string]struct{})
	s.templateIDs = s.templateIDs[:0]
	s.clearIDs = s.clearIDs[:0]

	for i := range s.bundle.Templates {
		tmpl := s.bundle.Templates[i].Template
		if tmpl == nil || tmpl.TemplateID == "" {
			continue
		}
		if !requirementsMet(tmpl.InterfaceRequirements, types) {
			continue
		}
		if _, ok := intended[tmpl.TemplateID]; ok {
			continue
		}
		intended[tmpl.TemplateID] = struct{}{}
		s.templateIDs = append(s.templateIDs, tmpl.TemplateID)
	}

	if s.policy.SOT.HostTemplate.IsRemote() {
		for _, id := range snapshot.templateIDs {
			if _, ok := intended[id]; !ok {
				intended[id] = struct{}{}
				s.templateIDs = append(s.templateIDs, id)
			}
		}
		return
	}

	for _, id := range snapshot.templateIDs {
		if _, ok := intended[id]; !ok {
			s.clearIDs = append(s.clearIDs, id)
		}
	}
}

// requirementsMet reports whether a host's interface types satisfy a
// template's requirements. Every listed requirement must hold: ReqNone
// always holds, ReqAny needs any interface, a concrete type needs an
// interface of that type. An empty list requires nothing.
func requirementsMet(requirements []int, types map[int]struct{}) bool {
	for _, req := range requirements {
		switch req {
		case inventory.ReqNone:
		case inventory.ReqAny:
			if len(types) == 0 {
				return false
			}
		default:
			if _, ok := types[req]; !ok {
				return false
			}
		}
	}
	return true
}

// idRefs renders an id list as the API's object-reference form.
func idRefs(field string, ids []string) []zabbix.Params {
	refs := make([]zabbix.Params, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, zabbix.Params{field: id})
	}
	return refs
}

// sumBits folds a set of accepted connection modes into the server's
// bitmask form.
func sumBits(bits []int) int {
	sum := 0
	for _, b := range bits {
		sum += b
	}
	if sum == 0 {
		sum = 1
	}
	return sum
}

// subObjects normalizes a sub-object array from a remote record.
func subObjects(raw any) []zabbix.Result {
	arr, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]zabbix.Result, 0, len(arr))
	for _, entry := range arr {
		if m, ok := entry.(map[string]any); ok {
			out = append(out, zabbix.Result(m))
		}
	}
	return out
}
