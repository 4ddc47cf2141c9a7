package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagRender(t *testing.T) {
	dev := &Device{Name: "core-sw-1", Status: "active"}

	tests := []struct {
		name     string
		template string
		want     string
		wantErr  bool
	}{
		{"literal value", "production", "production", false},
		{"device field", "{{ .Name }}", "core-sw-1", false},
		{"composed value", "site-{{ .Status }}", "site-active", false},
		{"unknown field fails", "{{ .Rack }}", "", true},
		{"broken syntax fails", "{{ .Name", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag := &TagAssignment{Tag: "env", ValueTemplate: tt.template}
			got, err := tag.Render(dev)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderFieldsDropsBrokenTemplates(t *testing.T) {
	dev := &Device{Name: "core-sw-1"}
	inv := &Inventory{
		Mode: 0,
		Fields: map[string]string{
			"name":     "{{ .Name }}",
			"location": "rack {{ .Missing }}",
			"notes":    "managed",
		},
	}

	rendered := inv.RenderFields(dev)

	require.Len(t, rendered, 3)
	assert.True(t, rendered["name"].OK)
	assert.Equal(t, "core-sw-1", rendered["name"].Value)
	assert.False(t, rendered["location"].OK, "broken field is flagged, not fatal")
	assert.True(t, rendered["notes"].OK)
	assert.Equal(t, "managed", rendered["notes"].Value)
}
