package policy

// SourceOfTruth selects which side is authoritative for a field group.
// Local means inventory values overwrite the monitoring server on every sync;
// Remote means server values are pulled down into the inventory record.
type SourceOfTruth string

const (
	// SourceLocal makes the inventory database authoritative.
	SourceLocal SourceOfTruth = "local"
	// SourceRemote makes the monitoring server authoritative.
	SourceRemote SourceOfTruth = "remote"
)

// IsRemote reports whether the monitoring server wins on conflict.
func (s SourceOfTruth) IsRemote() bool {
	return s == SourceRemote
}

// Config holds the reconciliation policy: per field-group source of truth,
// SNMP macro placeholders, and the synthetic no-alerting tag.
type Config struct {
	// SOT holds the per field-group source-of-truth switches.
	SOT SOTConfig `mapstructure:"sot"`
	// SNMP holds the macro placeholders injected for SNMP credentials.
	SNMP SNMPConfig `mapstructure:"snmp"`
	// NoAlertingTag is the tag name attached to hosts that are monitored
	// but must not alert.
	NoAlertingTag string `mapstructure:"no_alerting_tag" default:"NO_ALERTING"`
	// NoAlertingTagValue is the value of the no-alerting tag.
	NoAlertingTagValue string `mapstructure:"no_alerting_tag_value" default:"1"`
}

// SOTConfig selects the authoritative side per field group.
type SOTConfig struct {
	Host          SourceOfTruth `mapstructure:"host" default:"local"`
	HostGroup     SourceOfTruth `mapstructure:"hostgroup" default:"local"`
	HostInterface SourceOfTruth `mapstructure:"hostinterface" default:"local"`
	Proxy         SourceOfTruth `mapstructure:"proxy" default:"local"`
	ProxyGroup    SourceOfTruth `mapstructure:"proxygroup" default:"local"`
	HostTemplate  SourceOfTruth `mapstructure:"hosttemplate" default:"local"`
	HostMacro     SourceOfTruth `mapstructure:"hostmacro" default:"local"`
	HostInventory SourceOfTruth `mapstructure:"hostinventory" default:"local"`
}

// SNMPConfig holds the user-macro placeholders used when an interface carries
// no literal SNMP credential. The placeholders refer to host macros that the
// host syncer populates from interface data.
type SNMPConfig struct {
	CommunityMacro string `mapstructure:"community_macro" default:"{$SNMP_COMMUNITY}"`
	AuthPassMacro  string `mapstructure:"authpass_macro" default:"{$SNMPV3_AUTHPASS}"`
	PrivPassMacro  string `mapstructure:"privpass_macro" default:"{$SNMPV3_PRIVPASS}"`
}

// HostStatus is the tri-state monitoring status derived from the local
// device status.
type HostStatus int

const (
	// StatusEnabled monitors and alerts normally.
	StatusEnabled HostStatus = iota
	// StatusDisabled stops monitoring entirely.
	StatusDisabled
	// StatusEnabledNoAlerting monitors but suppresses alerting via the
	// synthetic no-alerting tag.
	StatusEnabledNoAlerting
)

// StatusMap maps a local status slug to the derived host status.
type StatusMap map[string]HostStatus

// statusMaps holds the per object-type status mapping tables.
var statusMaps = map[string]StatusMap{
	"device": {
		"active":          StatusEnabled,
		"staged":          StatusEnabledNoAlerting,
		"planned":         StatusDisabled,
		"offline":         StatusDisabled,
		"failed":          StatusEnabled,
		"inventory":       StatusDisabled,
		"decommissioning": StatusDisabled,
	},
	"virtualmachine": {
		"active":          StatusEnabled,
		"staged":          StatusEnabledNoAlerting,
		"planned":         StatusDisabled,
		"offline":         StatusDisabled,
		"failed":          StatusEnabled,
		"decommissioning": StatusDisabled,
	},
}

// StatusFor resolves the host status for a local object type and status slug.
// Unknown types or slugs resolve to StatusEnabled.
func StatusFor(objectType, status string) HostStatus {
	m, ok := statusMaps[objectType]
	if !ok {
		return StatusEnabled
	}
	st, ok := m[status]
	if !ok {
		return StatusEnabled
	}
	return st
}
