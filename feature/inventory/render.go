package inventory

import (
	"bytes"
	"fmt"
	"text/template"
)

// TagAssignment is a device-scoped tag whose value is a template rendered
// against the device at sync time. Rendering may fail per tag without
// affecting its siblings.
type TagAssignment struct {
	ID       uint    `gorm:"primaryKey;column:id"`
	DeviceID uint    `gorm:"column:device_id"`
	Device   *Device `gorm:"foreignKey:DeviceID"`
	Tag      string  `gorm:"column:tag;type:varchar(255)"`
	// ValueTemplate is a text/template body with the device as dot,
	// e.g. "{{ .Name }}" or a literal string.
	ValueTemplate string `gorm:"column:value_template;type:varchar(512)"`
}

func (TagAssignment) TableName() string { return "tag_assignments" }

// Render produces the tag value for the given device.
func (t *TagAssignment) Render(dev *Device) (string, error) {
	return renderTemplate(t.ValueTemplate, dev)
}

// Inventory holds a device's inventory mode and field templates.
type Inventory struct {
	ID       uint `gorm:"primaryKey;column:id"`
	DeviceID uint `gorm:"column:device_id;uniqueIndex"`
	// Mode is the remote inventory mode: -1 disabled, 0 manual, 1 automatic.
	Mode int `gorm:"column:mode;default:0"`
	// Fields maps remote inventory field names to template bodies.
	Fields map[string]string `gorm:"column:fields;serializer:json"`
}

func (Inventory) TableName() string { return "inventories" }

// RenderedField is one inventory field after rendering. OK reports whether
// the renderer produced a usable value; fields that fail to render are
// dropped, never fatal.
type RenderedField struct {
	Value string
	OK    bool
}

// RenderFields renders every inventory field against the device.
func (i *Inventory) RenderFields(dev *Device) map[string]RenderedField {
	out := make(map[string]RenderedField, len(i.Fields))
	for name, body := range i.Fields {
		value, err := renderTemplate(body, dev)
		out[name] = RenderedField{Value: value, OK: err == nil}
	}
	return out
}

func renderTemplate(body string, dev *Device) (string, error) {
	tmpl, err := template.New("value").Option("missingkey=error").Parse(body)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, dev); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return buf.String(), nil
}
