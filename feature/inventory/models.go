package inventory

import (
	"time"
)

// Host interface types as defined by the monitoring server.
const (
	InterfaceAgent = 1
	InterfaceSNMP  = 2
	InterfaceIPMI  = 3
	InterfaceJMX   = 4
)

// SNMP versions.
const (
	SNMPV1 = 1
	SNMPV2 = 2
	SNMPV3 = 3
)

// SNMPv3 security levels.
const (
	SNMPSecurityNoAuthNoPriv = 0
	SNMPSecurityAuthNoPriv   = 1
	SNMPSecurityAuthPriv     = 2
)

// Template interface requirements. A template lists the interface types a
// host must carry before the template applies; ReqNone means no interface is
// needed, ReqAny means at least one of any type.
const (
	ReqNone = 0
	ReqAny  = -1
)

// Host monitored_by discriminator values.
const (
	MonitoredByServer     = 0
	MonitoredByProxy      = 1
	MonitoredByProxyGroup = 2
)

// SyncStatus records the outcome of the last reconciliation attempt for a
// row. It is mutated only by the sync engine.
type SyncStatus struct {
	LastSync        *time.Time `gorm:"column:last_sync" json:"last_sync"`
	LastSyncSuccess bool       `gorm:"column:last_sync_success;type:tinyint(1);default:0" json:"last_sync_success"`
	LastSyncMessage string     `gorm:"column:last_sync_message;type:varchar(512)" json:"last_sync_message"`
}

// SetSyncInfo stamps the row with the outcome of a sync attempt.
func (s *SyncStatus) SetSyncInfo(success bool, message string) {
	now := time.Now()
	s.LastSync = &now
	s.LastSyncSuccess = success
	s.LastSyncMessage = message
}

// SyncStatusFields are the column names persisted by RecordSyncStatus.
var SyncStatusFields = []string{"last_sync", "last_sync_success", "last_sync_message"}

// Target is a configured monitoring server connection. Each target owns its
// own namespace of remote identifiers; ids are never assumed equivalent
// across targets.
type Target struct {
	ID             uint   `gorm:"primaryKey;column:id"`
	Name           string `gorm:"column:name;type:varchar(100);uniqueIndex"`
	URL            string `gorm:"column:url;type:varchar(255)"`
	Token          string `gorm:"column:token;type:varchar(128)"`
	SkipTLSVerify  bool   `gorm:"column:skip_tls_verify;type:tinyint(1);default:0"`
	TimeoutSeconds int    `gorm:"column:timeout_seconds;default:30"`
}

func (Target) TableName() string { return "targets" }

// Device is the local business object a host assignment points at.
type Device struct {
	ID uint `gorm:"primaryKey;column:id"`
	// Name is the display name; it becomes both the technical host name
	// (sanitized) and the visible name on the monitoring server.
	Name string `gorm:"column:name;type:varchar(128)"`
	// ObjectType selects the status mapping table (device, virtualmachine).
	ObjectType string `gorm:"column:object_type;type:varchar(32);default:device"`
	// Status is the local lifecycle slug (active, offline, ...).
	Status string `gorm:"column:status;type:varchar(32);default:active"`
}

func (Device) TableName() string { return "devices" }

// IPAddress is a locally managed address referenced by host interfaces.
type IPAddress struct {
	ID      uint   `gorm:"primaryKey;column:id"`
	Address string `gorm:"column:address;type:varchar(64)"`
}

func (IPAddress) TableName() string { return "ip_addresses" }

// HostAssignment links one Device to one Target and carries the remote host
// identifier. One device syncs to at most one host per target.
type HostAssignment struct {
	ID       uint    `gorm:"primaryKey;column:id"`
	DeviceID uint    `gorm:"column:device_id;uniqueIndex:uniq_device_target"`
	Device   *Device `gorm:"foreignKey:DeviceID"`
	TargetID uint    `gorm:"column:target_id;uniqueIndex:uniq_device_target"`
	Target   *Target `gorm:"foreignKey:TargetID"`
	// HostID is the remote host identifier; empty means never synced or
	// invalidated.
	HostID string `gorm:"column:host_id;type:varchar(32)"`
	// At most one of ProxyID / ProxyGroupID may be set; presence selects
	// the monitored_by discriminator on the remote host.
	ProxyID      *uint       `gorm:"column:proxy_fk"`
	Proxy        *Proxy      `gorm:"foreignKey:ProxyID"`
	ProxyGroupID *uint       `gorm:"column:proxy_group_fk"`
	ProxyGroup   *ProxyGroup `gorm:"foreignKey:ProxyGroupID"`
	SyncStatus
}

func (HostAssignment) TableName() string { return "host_assignments" }

// HostGroup is a per-target host group.
type HostGroup struct {
	ID       uint    `gorm:"primaryKey;column:id"`
	TargetID uint    `gorm:"column:target_id;uniqueIndex:uniq_group_name_target"`
	Target   *Target `gorm:"foreignKey:TargetID"`
	Name     string  `gorm:"column:name;type:varchar(255);uniqueIndex:uniq_group_name_target"`
	GroupID  string  `gorm:"column:group_id;type:varchar(32)"`
	SyncStatus
}

func (HostGroup) TableName() string { return "host_groups" }

// HostGroupAssignment links a Device to a HostGroup.
type HostGroupAssignment struct {
	ID          uint       `gorm:"primaryKey;column:id"`
	DeviceID    uint       `gorm:"column:device_id;uniqueIndex:uniq_device_group"`
	HostGroupID uint       `gorm:"column:host_group_id;uniqueIndex:uniq_device_group"`
	HostGroup   *HostGroup `gorm:"foreignKey:HostGroupID"`
}

func (HostGroupAssignment) TableName() string { return "host_group_assignments" }

// ProxyGroup is a per-target proxy group.
type ProxyGroup struct {
	ID           uint    `gorm:"primaryKey;column:id"`
	TargetID     uint    `gorm:"column:target_id"`
	Target       *Target `gorm:"foreignKey:TargetID"`
	Name         string  `gorm:"column:name;type:varchar(255)"`
	ProxyGroupID string  `gorm:"column:proxy_group_id;type:varchar(32)"`
	// FailoverDelay is the time after which a proxy is considered offline.
	FailoverDelay string `gorm:"column:failover_delay;type:varchar(16);default:1m"`
	// MinOnline is the minimum number of online proxies for the group to
	// stay healthy.
	MinOnline int `gorm:"column:min_online;default:1"`
	SyncStatus
}

func (ProxyGroup) TableName() string { return "proxy_groups" }

// Proxy is a per-target proxy, optionally a member of a proxy group.
type Proxy struct {
	ID           uint        `gorm:"primaryKey;column:id"`
	TargetID     uint        `gorm:"column:target_id"`
	Target       *Target     `gorm:"foreignKey:TargetID"`
	Name         string      `gorm:"column:name;type:varchar(255)"`
	ProxyID      string      `gorm:"column:proxy_id;type:varchar(32)"`
	ProxyGroupID *uint       `gorm:"column:proxy_group_fk"`
	ProxyGroup   *ProxyGroup `gorm:"foreignKey:ProxyGroupID"`
	// OperatingMode is 0 for active, 1 for passive.
	OperatingMode int    `gorm:"column:operating_mode;default:0"`
	LocalAddress  string `gorm:"column:local_address;type:varchar(255)"`
	LocalPort     string `gorm:"column:local_port;type:varchar(8);default:10051"`
	SyncStatus
}

func (Proxy) TableName() string { return "proxies" }

// HostInterface is a device's monitoring interface for one target.
// Agent interfaces additionally carry TLS settings, SNMP interfaces carry
// version-specific credentials, IPMI interfaces carry IPMI credentials.
type HostInterface struct {
	ID       uint    `gorm:"primaryKey;column:id"`
	DeviceID uint    `gorm:"column:device_id"`
	Device   *Device `gorm:"foreignKey:DeviceID"`
	TargetID uint    `gorm:"column:target_id"`
	// InterfaceID is the remote identifier; empty means never synced or
	// invalidated.
	InterfaceID string `gorm:"column:interface_id;type:varchar(32)"`
	Type        int    `gorm:"column:type;default:1"`
	// Primary marks the default interface of its type.
	Primary     bool   `gorm:"column:is_primary;type:tinyint(1);default:1"`
	UseIP       bool   `gorm:"column:use_ip;type:tinyint(1);default:1"`
	DNS         string `gorm:"column:dns;type:varchar(255)"`
	Port        string `gorm:"column:port;type:varchar(8);default:10050"`
	IPAddressID *uint  `gorm:"column:ip_address_id"`

	// SNMP settings.
	SNMPVersion         int    `gorm:"column:snmp_version;default:2"`
	SNMPUseBulk         bool   `gorm:"column:snmp_use_bulk;type:tinyint(1);default:1"`
	SNMPCommunity       string `gorm:"column:snmp_community;type:varchar(128)"`
	SNMPV3ContextName   string `gorm:"column:snmpv3_context_name;type:varchar(128)"`
	SNMPV3SecurityName  string `gorm:"column:snmpv3_security_name;type:varchar(128)"`
	SNMPV3SecurityLevel int    `gorm:"column:snmpv3_security_level;default:0"`
	SNMPV3AuthProtocol  int    `gorm:"column:snmpv3_auth_protocol;default:0"`
	SNMPV3AuthPass      string `gorm:"column:snmpv3_auth_pass;type:varchar(128)"`
	SNMPV3PrivProtocol  int    `gorm:"column:snmpv3_priv_protocol;default:0"`
	SNMPV3PrivPass      string `gorm:"column:snmpv3_priv_pass;type:varchar(128)"`

	// TLS settings, meaningful for agent interfaces.
	TLSConnect     int    `gorm:"column:tls_connect;default:1"`
	TLSAccept      []int  `gorm:"column:tls_accept;serializer:json"`
	TLSIssuer      string `gorm:"column:tls_issuer;type:varchar(255)"`
	TLSSubject     string `gorm:"column:tls_subject;type:varchar(255)"`
	TLSPSKIdentity string `gorm:"column:tls_psk_identity;type:varchar(128)"`
	TLSPSK         string `gorm:"column:tls_psk;type:varchar(512)"`

	// IPMI settings, meaningful for IPMI interfaces.
	IPMIAuthType  int    `gorm:"column:ipmi_auth_type;default:-1"`
	IPMIPrivilege int    `gorm:"column:ipmi_privilege;default:2"`
	IPMIUsername  string `gorm:"column:ipmi_username;type:varchar(64)"`
	IPMIPassword  string `gorm:"column:ipmi_password;type:varchar(64)"`

	SyncStatus
}

func (HostInterface) TableName() string { return "host_interfaces" }

// Template is a per-target monitoring template known locally.
type Template struct {
	ID         uint    `gorm:"primaryKey;column:id"`
	TargetID   uint    `gorm:"column:target_id;uniqueIndex:uniq_template_name_target"`
	Target     *Target `gorm:"foreignKey:TargetID"`
	Name       string  `gorm:"column:name;type:varchar(255);uniqueIndex:uniq_template_name_target"`
	TemplateID string  `gorm:"column:template_id;type:varchar(32)"`
	// InterfaceRequirements lists the interface types a host must have for
	// this template to apply (ReqNone, ReqAny or concrete types).
	InterfaceRequirements []int `gorm:"column:interface_requirements;serializer:json"`
	SyncStatus
}

func (Template) TableName() string { return "templates" }

// TemplateAssignment links a Device to a Template.
type TemplateAssignment struct {
	ID         uint      `gorm:"primaryKey;column:id"`
	DeviceID   uint      `gorm:"column:device_id;uniqueIndex:uniq_device_template"`
	TemplateID uint      `gorm:"column:template_fk;uniqueIndex:uniq_device_template"`
	Template   *Template `gorm:"foreignKey:TemplateID"`
}

func (TemplateAssignment) TableName() string { return "template_assignments" }

// MacroAssignment is a device-scoped user macro.
type MacroAssignment struct {
	ID          uint   `gorm:"primaryKey;column:id"`
	DeviceID    uint   `gorm:"column:device_id"`
	Macro       string `gorm:"column:macro;type:varchar(255)"`
	Value       string `gorm:"column:value;type:varchar(2048)"`
	Description string `gorm:"column:description;type:varchar(255)"`
	// MacroType is 0 for text, 1 for secret.
	MacroType int `gorm:"column:macro_type;default:0"`
}

func (MacroAssignment) TableName() string { return "macro_assignments" }
