package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// Store wraps the inventory database with the persistence operations the
// sync engine needs: field-level saves, duplicate-key detection and the
// collection loaders behind the per-device attribute bundle.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store over an open GORM connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for migrations.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// SaveFields persists only the named fields of value. When the field-level
// update is not supported for the value (e.g. no primary key loaded), it
// falls back to a full-record save.
func (s *Store) SaveFields(ctx context.Context, value any, fields ...string) error {
	err := s.db.WithContext(ctx).Model(value).Select(fields).Updates(value).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrMissingWhereClause) || errors.Is(err, gorm.ErrPrimaryKeyRequired) {
		return s.Save(ctx, value)
	}
	return err
}

// Save persists the full record.
func (s *Store) Save(ctx context.Context, value any) error {
	return s.db.WithContext(ctx).Save(value).Error
}

// Create inserts a new record.
func (s *Store) Create(ctx context.Context, value any) error {
	return s.db.WithContext(ctx).Create(value).Error
}

// IsDuplicateEntry reports whether err is a unique-constraint violation, so
// callers can fall back to reusing the existing row instead of failing.
func IsDuplicateEntry(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// RecordSyncStatus stamps and persists the sync outcome on a row embedding
// SyncStatus. Persistence failures here are returned but callers typically
// log them rather than abort: a status write must never fail a pipeline.
func (s *Store) RecordSyncStatus(ctx context.Context, rec SyncStatusHolder, success bool, message string) error {
	rec.SetSyncInfo(success, message)
	return s.SaveFields(ctx, rec, SyncStatusFields...)
}

// SyncStatusHolder is any record embedding SyncStatus.
type SyncStatusHolder interface {
	SetSyncInfo(success bool, message string)
}

// Targets loads every configured target.
func (s *Store) Targets(ctx context.Context) ([]Target, error) {
	var targets []Target
	err := s.db.WithContext(ctx).Find(&targets).Error
	return targets, err
}

// TargetByID loads one target.
func (s *Store) TargetByID(ctx context.Context, id uint) (*Target, error) {
	var target Target
	if err := s.db.WithContext(ctx).First(&target, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("target %d not found", id)
		}
		return nil, err
	}
	return &target, nil
}

// TargetByName loads one target by its unique name.
func (s *Store) TargetByName(ctx context.Context, name string) (*Target, error) {
	var target Target
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("target %q not found", name)
		}
		return nil, err
	}
	return &target, nil
}

// AssignmentsForTarget loads every host assignment of a target with its
// device attached.
func (s *Store) AssignmentsForTarget(ctx context.Context, targetID uint) ([]HostAssignment, error) {
	var assignments []HostAssignment
	err := s.db.WithContext(ctx).
		Preload("Device").
		Preload("Proxy").
		Preload("ProxyGroup").
		Where("target_id = ?", targetID).
		Find(&assignments).Error
	return assignments, err
}

// ReloadAssignment re-reads one assignment row, used between the host and
// interface stages to pick up a freshly written host id.
func (s *Store) ReloadAssignment(ctx context.Context, a *HostAssignment) error {
	return s.db.WithContext(ctx).Preload("Device").First(a, a.ID).Error
}

// HostGroupsForTarget loads a target's host groups.
func (s *Store) HostGroupsForTarget(ctx context.Context, targetID uint) ([]HostGroup, error) {
	var groups []HostGroup
	err := s.db.WithContext(ctx).Where("target_id = ?", targetID).Find(&groups).Error
	return groups, err
}

// ProxyGroupsForTarget loads a target's proxy groups.
func (s *Store) ProxyGroupsForTarget(ctx context.Context, targetID uint) ([]ProxyGroup, error) {
	var groups []ProxyGroup
	err := s.db.WithContext(ctx).Where("target_id = ?", targetID).Find(&groups).Error
	return groups, err
}

// ProxiesForTarget loads a target's proxies with their proxy group attached.
func (s *Store) ProxiesForTarget(ctx context.Context, targetID uint) ([]Proxy, error) {
	var proxies []Proxy
	err := s.db.WithContext(ctx).
		Preload("ProxyGroup").
		Where("target_id = ?", targetID).
		Find(&proxies).Error
	return proxies, err
}

// TemplatesForTarget loads a target's template catalog.
func (s *Store) TemplatesForTarget(ctx context.Context, targetID uint) ([]Template, error) {
	var templates []Template
	err := s.db.WithContext(ctx).Where("target_id = ?", targetID).Find(&templates).Error
	return templates, err
}

// TemplateByName finds one template of a target by name.
func (s *Store) TemplateByName(ctx context.Context, targetID uint, name string) (*Template, error) {
	var tmpl Template
	err := s.db.WithContext(ctx).
		Where("target_id = ? AND name = ?", targetID, name).
		First(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// HostGroupByRemoteID finds the host group row already holding the given
// remote id for a target, used to reuse an existing row after a
// unique-constraint conflict.
func (s *Store) HostGroupByRemoteID(ctx context.Context, targetID uint, groupID string) (*HostGroup, error) {
	var group HostGroup
	err := s.db.WithContext(ctx).
		Where("target_id = ? AND group_id = ?", targetID, groupID).
		First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// IPAddressLiteral resolves an interface's address reference to its literal
// string. Absence yields "", never an error.
func (s *Store) IPAddressLiteral(ctx context.Context, id *uint) string {
	if id == nil {
		return ""
	}
	var addr IPAddress
	if err := s.db.WithContext(ctx).First(&addr, *id).Error; err != nil {
		return ""
	}
	return addr.Address
}

// AssignmentForDevice finds the host assignment linking a device to a target.
func (s *Store) AssignmentForDevice(ctx context.Context, deviceID, targetID uint) (*HostAssignment, error) {
	var assignment HostAssignment
	err := s.db.WithContext(ctx).
		Where("device_id = ? AND target_id = ?", deviceID, targetID).
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}
