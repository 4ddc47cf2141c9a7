package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := gormmysql.New(gormmysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return NewStore(gormDB), mock
}

func TestIsDuplicateEntry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"mysql duplicate key", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"wrapped mysql duplicate key", errors.Join(errors.New("create"), &mysql.MySQLError{Number: 1062}), true},
		{"gorm duplicate key", gorm.ErrDuplicatedKey, true},
		{"other mysql error", &mysql.MySQLError{Number: 1452, Message: "foreign key"}, false},
		{"plain error", errors.New("duplicate entry"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicateEntry(tt.err))
		})
	}
}

func TestSaveFieldsUpdatesOnlyNamedColumns(t *testing.T) {
	store, dbMock := newTestStore(t)

	dbMock.ExpectBegin()
	dbMock.ExpectExec("UPDATE `host_groups` SET `group_id`=").
		WithArgs("7", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()

	group := &HostGroup{ID: 3, TargetID: 1, Name: "Switches", GroupID: "7"}
	err := store.SaveFields(context.Background(), group, "group_id")

	require.NoError(t, err)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestRecordSyncStatusStampsRow(t *testing.T) {
	store, dbMock := newTestStore(t)

	dbMock.ExpectBegin()
	dbMock.ExpectExec("UPDATE `host_groups` SET `last_sync`=.*`last_sync_success`=.*`last_sync_message`=").
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()

	group := &HostGroup{ID: 3, TargetID: 1, Name: "Switches"}
	err := store.RecordSyncStatus(context.Background(), group, true, "Sync completed")

	require.NoError(t, err)
	assert.True(t, group.LastSyncSuccess)
	assert.Equal(t, "Sync completed", group.LastSyncMessage)
	require.NotNil(t, group.LastSync)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestTargetByIDNotFound(t *testing.T) {
	store, dbMock := newTestStore(t)

	dbMock.ExpectQuery("SELECT \\* FROM `targets`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := store.TargetByID(context.Background(), 42)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "target 42 not found")
}

func TestTemplateByNameAbsentIsNotAnError(t *testing.T) {
	store, dbMock := newTestStore(t)

	dbMock.ExpectQuery("SELECT \\* FROM `templates`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "target_id", "name"}))

	tmpl, err := store.TemplateByName(context.Background(), 1, "Linux by SNMP")

	require.NoError(t, err)
	assert.Nil(t, tmpl)
}

func TestIPAddressLiteralAbsenceYieldsEmpty(t *testing.T) {
	store, dbMock := newTestStore(t)

	assert.Equal(t, "", store.IPAddressLiteral(context.Background(), nil))

	dbMock.ExpectQuery("SELECT \\* FROM `ip_addresses`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "address"}))
	id := uint(9)
	assert.Equal(t, "", store.IPAddressLiteral(context.Background(), &id))

	dbMock.ExpectQuery("SELECT \\* FROM `ip_addresses`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "address"}).AddRow(9, "192.0.2.10/24"))
	assert.Equal(t, "192.0.2.10/24", store.IPAddressLiteral(context.Background(), &id))
}
