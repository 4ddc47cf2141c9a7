package sync

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"zabbix-sync/core/zabbix"
	"zabbix-sync/core/zabbix/mocks"
	"zabbix-sync/feature/inventory"
)

func setupMockStore(t *testing.T) (*inventory.Store, sqlmock.Sqlmock) {
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

	return inventory.NewStore(gormDB), mock
}

// expectInterfaceIDSave expects the field-level persist of interface_id.
func expectInterfaceIDSave(dbMock sqlmock.Sqlmock) {
	dbMock.ExpectBegin()
	dbMock.ExpectExec("UPDATE `host_interfaces`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectCommit()
}

func testInterfaceSyncer(api zabbix.API, store *inventory.Store, iface *inventory.HostInterface, assignment *inventory.HostAssignment) *hostInterfaceSyncer {
	return newHostInterfaceSyncer(base{
		api:    api,
		store:  store,
		policy: testPolicy(),
		target: &inventory.Target{ID: 1, Name: "test"},
		logger: zap.NewNop(),
	}, iface, assignment)
}

func TestInterfaceSyncRequiresSyncedHost(t *testing.T) {
	s := testInterfaceSyncer(nil, nil, &inventory.HostInterface{}, &inventory.HostAssignment{})

	err := s.Sync(context.Background())

	assert.ErrorIs(t, err, errHostNotSynced)
}

func TestInterfaceSelfHealsInvalidatedID(t *testing.T) {
	store, dbMock := setupMockStore(t)
	api := &mocks.API{}

	// The stored id no longer resolves.
	api.On("Query", mock.Anything, "hostinterface.get", mock.MatchedBy(func(p zabbix.Params) bool {
		ids, _ := p["interfaceids"].([]string)
		return len(ids) == 1 && ids[0] == "5"
	})).Return([]zabbix.Result{}, nil)
	api.On("Exec", mock.Anything, "hostinterface.create", mock.Anything).
		Return(zabbix.Result{"interfaceids": []any{"9"}}, nil)

	expectInterfaceIDSave(dbMock) // clear
	expectInterfaceIDSave(dbMock) // new id

	iface := &inventory.HostInterface{ID: 3, InterfaceID: "5", Type: inventory.InterfaceAgent, Port: "10050"}
	s := testInterfaceSyncer(api, store, iface, &inventory.HostAssignment{HostID: "100"})

	err := s.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "9", iface.InterfaceID)
	assert.NoError(t, dbMock.ExpectationsWereMet())
	api.AssertExpectations(t)
}

func TestInterfaceRecreatedWhenHostSwitchRejected(t *testing.T) {
	store, dbMock := setupMockStore(t)
	api := &mocks.API{}

	api.On("Query", mock.Anything, "hostinterface.get", mock.Anything).
		Return([]zabbix.Result{{"interfaceid": "5"}}, nil)
	api.On("Exec", mock.Anything, "hostinterface.update", mock.Anything).
		Return(nil, &zabbix.APIError{Data: "Cannot switch host for interface."})
	api.On("Exec", mock.Anything, "hostinterface.create", mock.Anything).
		Return(zabbix.Result{"interfaceids": []any{"8"}}, nil)

	expectInterfaceIDSave(dbMock) // clear
	expectInterfaceIDSave(dbMock) // new id

	iface := &inventory.HostInterface{ID: 3, InterfaceID: "5", Type: inventory.InterfaceAgent, Port: "10050"}
	s := testInterfaceSyncer(api, store, iface, &inventory.HostAssignment{HostID: "100"})

	err := s.Sync(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "8", iface.InterfaceID)
	assert.Equal(t, "Recreated interface", s.Message())
	assert.NoError(t, dbMock.ExpectationsWereMet())
	api.AssertExpectations(t)
}

func TestInterfaceUpdateFailurePropagates(t *testing.T) {
	store, _ := setupMockStore(t)
	api := &mocks.API{}

	api.On("Query", mock.Anything, "hostinterface.get", mock.Anything).
		Return([]zabbix.Result{{"interfaceid": "5"}}, nil)
	api.On("Exec", mock.Anything, "hostinterface.update", mock.Anything).
		Return(nil, &zabbix.APIError{Code: -32500, Message: "Application error."})

	iface := &inventory.HostInterface{ID: 3, InterfaceID: "5", Type: inventory.InterfaceAgent}
	s := testInterfaceSyncer(api, store, iface, &inventory.HostAssignment{HostID: "100"})

	err := s.Sync(context.Background())

	assert.Error(t, err)
	assert.Equal(t, "5", iface.InterfaceID, "id survives a plain update failure")
	api.AssertNotCalled(t, "Exec", mock.Anything, "hostinterface.create", mock.Anything)
}

func TestSNMPDetailsV2Community(t *testing.T) {
	t.Run("literal community is inlined", func(t *testing.T) {
		iface := &inventory.HostInterface{
			Type:          inventory.InterfaceSNMP,
			SNMPVersion:   inventory.SNMPV2,
			SNMPUseBulk:   true,
			SNMPCommunity: "public",
		}
		s := testInterfaceSyncer(nil, nil, iface, &inventory.HostAssignment{HostID: "100"})

		details := s.snmpDetails()

		assert.Equal(t, "2", details["version"])
		assert.Equal(t, "1", details["bulk"])
		assert.Equal(t, "public", details["community"])
	})

	t.Run("empty community falls back to the macro", func(t *testing.T) {
		iface := &inventory.HostInterface{
			Type:        inventory.InterfaceSNMP,
			SNMPVersion: inventory.SNMPV2,
		}
		s := testInterfaceSyncer(nil, nil, iface, &inventory.HostAssignment{HostID: "100"})

		details := s.snmpDetails()

		assert.Equal(t, "{$SNMP_COMMUNITY}", details["community"])
	})
}

func TestInterfaceDuplicateRecoveryPushesPayload(t *testing.T) {
	store, dbMock := setupMockStore(t)

	iface := &inventory.HostInterface{ID: 3, Type: inventory.InterfaceAgent, Port: "10050"}
	assignment := &inventory.HostAssignment{HostID: "100"}

	// The racing create loses against an interface another worker just made.
	loserAPI := &mocks.API{}
	loserAPI.On("Exec", mock.Anything, "hostinterface.create", mock.Anything).
		Return(nil, &zabbix.APIError{Data: "Interface already exists."})

	// Recovery adopts the winner's record and pushes the assembled payload.
	winnerAPI := &mocks.API{}
	winnerAPI.On("Query", mock.Anything, "hostinterface.get", mock.Anything).
		Return([]zabbix.Result{{"interfaceid": "12"}}, nil)
	winnerAPI.On("Exec", mock.Anything, "hostinterface.update", mock.MatchedBy(func(p zabbix.Params) bool {
		return p["interfaceid"] == "12" &&
			p["hostid"] == "100" &&
			p["port"] == "10050"
	})).Return(zabbix.Result{}, nil).Once()

	connect := func(context.Context) (zabbix.API, func(), error) {
		return winnerAPI, func() {}, nil
	}

	expectInterfaceIDSave(dbMock) // adopted id
	expectInterfaceIDSave(dbMock) // sync status

	exec := NewExecutor(loserAPI, connect, zap.NewNop())
	err := exec.Run(context.Background(), func(api zabbix.API) Syncer {
		return testInterfaceSyncer(api, store, iface, assignment)
	})

	require.NoError(t, err)
	assert.Equal(t, "12", iface.InterfaceID)
	assert.NoError(t, dbMock.ExpectationsWereMet())
	loserAPI.AssertExpectations(t)
	winnerAPI.AssertExpectations(t)
}

func TestSNMPDetailsV3ByCredentialLevel(t *testing.T) {
	iface := &inventory.HostInterface{
		Type:                inventory.InterfaceSNMP,
		SNMPVersion:         inventory.SNMPV3,
		SNMPV3SecurityName:  "observer",
		SNMPV3SecurityLevel: inventory.SNMPSecurityAuthPriv,
		SNMPV3AuthProtocol:  1,
		SNMPV3PrivProtocol:  1,
	}
	s := testInterfaceSyncer(nil, nil, iface, &inventory.HostAssignment{HostID: "100"})

	details := s.snmpDetails()

	assert.Equal(t, "3", details["version"])
	assert.Equal(t, "observer", details["securityname"])
	assert.Equal(t, "{$SNMPV3_AUTHPASS}", details["authpassphrase"])
	assert.Equal(t, "{$SNMPV3_PRIVPASS}", details["privpassphrase"])

	iface.SNMPV3SecurityLevel = inventory.SNMPSecurityNoAuthNoPriv
	details = s.snmpDetails()
	assert.NotContains(t, details, "authpassphrase")
	assert.NotContains(t, details, "privpassphrase")
}
