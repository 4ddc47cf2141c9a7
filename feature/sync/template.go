package sync

import (
	"context"

	"go.uber.org/zap"

	"zabbix-sync/core/utils"
	"zabbix-sync/core/zabbix"
	"zabbix-sync/feature/inventory"
)

// Catalog keeps the local template catalog aligned with the server.
// Templates are authored on the monitoring server; locally they are only
// referenced, so the catalog is pull-only: ids are refreshed, templates
// that appeared remotely are inserted, and local entries the server no
// longer knows are flagged on their sync status, never deleted.
type Catalog struct {
	api    zabbix.API
	store  *inventory.Store
	target *inventory.Target
	logger *zap.Logger
}

// NewCatalog creates a catalog refresher for one target.
func NewCatalog(api zabbix.API, store *inventory.Store, target *inventory.Target, logger *zap.Logger) *Catalog {
	return &Catalog{api: api, store: store, target: target, logger: logger}
}

// Refresh pulls the server's template list and reconciles the local catalog
// against it.
func (c *Catalog) Refresh(ctx context.Context) error {
	recs, err := zabbix.NewObject(c.api, "template").Get(ctx, zabbix.Params{
		"output": []string{"templateid", "host", "name"},
	})
	if err != nil {
		return newError("template", err)
	}

	remote := make(map[string]string, len(recs))
	for _, rec := range recs {
		name := utils.ToString(rec["host"])
		if name == "" {
			continue
		}
		remote[name] = utils.ToString(rec["templateid"])
	}

	local, err := c.store.TemplatesForTarget(ctx, c.target.ID)
	if err != nil {
		return newError("template", err)
	}

	known := make(map[string]struct{}, len(local))
	for i := range local {
		tmpl := &local[i]
		known[tmpl.Name] = struct{}{}

		id, ok := remote[tmpl.Name]
		if !ok {
			c.recordStatus(ctx, tmpl, false, "Template not present on server")
			continue
		}
		if tmpl.TemplateID != id {
			tmpl.TemplateID = id
			if err := c.store.SaveFields(ctx, tmpl, "template_id"); err != nil {
				return newError("template", err)
			}
		}
		c.recordStatus(ctx, tmpl, true, "Sync completed")
	}

	for name, id := range remote {
		if _, ok := known[name]; ok {
			continue
		}
		tmpl := &inventory.Template{
			TargetID:   c.target.ID,
			Name:       name,
			TemplateID: id,
		}
		if err := c.store.Create(ctx, tmpl); err != nil {
			if inventory.IsDuplicateEntry(err) {
				continue
			}
			return newError("template", err)
		}
		c.recordStatus(ctx, tmpl, true, "Imported from server")
	}

	return nil
}

func (c *Catalog) recordStatus(ctx context.Context, tmpl *inventory.Template, success bool, message string) {
	if err := c.store.RecordSyncStatus(ctx, tmpl, success, message); err != nil {
		c.logger.Warn("Could not record template sync status",
			zap.String("template", tmpl.Name), zap.Error(err))
	}
}
