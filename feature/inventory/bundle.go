package inventory

import (
	"context"
)

// Bundle is the per-device snapshot of every collection the host syncer
// needs: groups, interfaces, templates, tags, macros and inventory. It is
// gathered once per sync pass and passed by reference to every reconciler;
// it is never persisted and must be treated as read-only for the duration of
// the pass.
type Bundle struct {
	Groups     []HostGroupAssignment
	Interfaces []HostInterface
	Templates  []TemplateAssignment
	Tags       []TagAssignment
	Macros     []MacroAssignment
	Inventory  *Inventory
}

// InterfaceTypes returns the set of interface types present in the bundle.
func (b *Bundle) InterfaceTypes() map[int]struct{} {
	types := make(map[int]struct{}, len(b.Interfaces))
	for _, iface := range b.Interfaces {
		types[iface.Type] = struct{}{}
	}
	return types
}

// LoadBundle gathers the attribute bundle for one device and target. It is a
// pure query; nothing is written.
func (s *Store) LoadBundle(ctx context.Context, deviceID, targetID uint) (*Bundle, error) {
	bundle := &Bundle{}

	// Group assignments, restricted to groups owned by the same target.
	err := s.db.WithContext(ctx).
		Preload("HostGroup").
		Joins("JOIN host_groups ON host_groups.id = host_group_assignments.host_group_id").
		Where("host_group_assignments.device_id = ? AND host_groups.target_id = ?", deviceID, targetID).
		Find(&bundle.Groups).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Where("device_id = ? AND target_id = ?", deviceID, targetID).
		Find(&bundle.Interfaces).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).
		Preload("Template").
		Joins("JOIN templates ON templates.id = template_assignments.template_fk").
		Where("template_assignments.device_id = ? AND templates.target_id = ?", deviceID, targetID).
		Find(&bundle.Templates).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Where("device_id = ?", deviceID).Find(&bundle.Tags).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Where("device_id = ?", deviceID).Find(&bundle.Macros).Error
	if err != nil {
		return nil, err
	}

	var inv Inventory
	res := s.db.WithContext(ctx).Where("device_id = ?", deviceID).Limit(1).Find(&inv)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		bundle.Inventory = &inv
	}

	return bundle, nil
}
