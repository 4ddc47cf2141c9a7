package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zabbix-sync/core/policy"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Server.Workers)
	assert.Equal(t, policy.SourceLocal, cfg.Sync.SOT.Host)
	assert.Equal(t, "NO_ALERTING", cfg.Sync.NoAlertingTag)
	assert.Equal(t, "1", cfg.Sync.NoAlertingTagValue)
	assert.Equal(t, "{$SNMP_COMMUNITY}", cfg.Sync.SNMP.CommunityMacro)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SYNC_SOT_HOST", "remote")
	t.Setenv("SERVER_WORKERS", "8")
	t.Setenv("SYNC_NO_ALERTING_TAG", "MUTED")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, policy.SourceRemote, cfg.Sync.SOT.Host)
	assert.True(t, cfg.Sync.SOT.Host.IsRemote())
	assert.Equal(t, 8, cfg.Server.Workers)
	assert.Equal(t, "MUTED", cfg.Sync.NoAlertingTag)
}
