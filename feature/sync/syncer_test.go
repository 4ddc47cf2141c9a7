package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"zabbix-sync/core/policy"
	"zabbix-sync/core/zabbix"
	"zabbix-sync/core/zabbix/mocks"
)

// recordedStatus captures a RecordStatus call.
type recordedStatus struct {
	success bool
	message string
}

// fakeSyncer scripts the per-kind answers so the shared flow can be tested
// without a database.
type fakeSyncer struct {
	api      zabbix.API
	remoteID string
	idLog    []string
	setIDErr error

	found   []zabbix.Result
	findErr error

	sot      policy.SourceOfTruth
	applied  []zabbix.Result
	statuses []recordedStatus
	note     string

	syncErr error
}

func (f *fakeSyncer) EntityKind() string { return "widget" }

func (f *fakeSyncer) IDField() string { return "widgetid" }

func (f *fakeSyncer) Object() zabbix.Object { return zabbix.NewObject(f.api, "widget") }

func (f *fakeSyncer) RemoteID() string { return f.remoteID }

func (f *fakeSyncer) Message() string { return f.note }

func (f *fakeSyncer) SetRemoteID(_ context.Context, id string) error {
	if f.setIDErr != nil {
		return f.setIDErr
	}
	f.remoteID = id
	f.idLog = append(f.idLog, id)
	return nil
}

func (f *fakeSyncer) FindByNaturalKey(context.Context) ([]zabbix.Result, error) {
	return f.found, f.findErr
}

func (f *fakeSyncer) CreateParams() zabbix.Params { return zabbix.Params{"name": "w"} }
func (f *fakeSyncer) UpdateParams() zabbix.Params { return zabbix.Params{"name": "w"} }

func (f *fakeSyncer) ApplyRemoteState(_ context.Context, rec zabbix.Result) error {
	f.applied = append(f.applied, rec)
	return nil
}

func (f *fakeSyncer) SourceOfTruth() policy.SourceOfTruth { return f.sot }

func (f *fakeSyncer) RecordStatus(_ context.Context, success bool, message string) error {
	f.statuses = append(f.statuses, recordedStatus{success: success, message: message})
	return nil
}

func (f *fakeSyncer) Sync(ctx context.Context) error {
	if f.syncErr != nil {
		return f.syncErr
	}
	return run(ctx, f)
}

func TestRunCreatesWhenNaturalKeyUnknown(t *testing.T) {
	api := &mocks.API{}
	api.On("Exec", mock.Anything, "widget.create", mock.Anything).
		Return(zabbix.Result{"widgetids": []any{"42"}}, nil)

	f := &fakeSyncer{api: api}
	err := run(context.Background(), f)

	assert.NoError(t, err)
	assert.Equal(t, "42", f.remoteID)
	api.AssertExpectations(t)
}

func TestRunAdoptsSingleNaturalKeyMatch(t *testing.T) {
	api := &mocks.API{}
	api.On("Exec", mock.Anything, "widget.update", mock.MatchedBy(func(p zabbix.Params) bool {
		return p["widgetid"] == "7"
	})).Return(zabbix.Result{"widgetids": []any{"7"}}, nil)

	f := &fakeSyncer{api: api, found: []zabbix.Result{{"widgetid": "7"}}}
	err := run(context.Background(), f)

	assert.NoError(t, err)
	assert.Equal(t, "7", f.remoteID)
	api.AssertExpectations(t)
}

func TestRunFailsOnAmbiguousNaturalKey(t *testing.T) {
	api := &mocks.API{}

	f := &fakeSyncer{api: api, found: []zabbix.Result{{"widgetid": "1"}, {"widgetid": "2"}}}
	err := run(context.Background(), f)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected one")
	assert.Empty(t, f.remoteID)
	api.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunClearsStaleRemoteID(t *testing.T) {
	api := &mocks.API{}
	api.On("Query", mock.Anything, "widget.get", mock.MatchedBy(func(p zabbix.Params) bool {
		ids, _ := p["widgetids"].([]string)
		return len(ids) == 1 && ids[0] == "9"
	})).Return([]zabbix.Result{}, nil)
	api.On("Exec", mock.Anything, "widget.create", mock.Anything).
		Return(zabbix.Result{"widgetids": []any{"42"}}, nil)

	f := &fakeSyncer{api: api, remoteID: "9"}
	err := run(context.Background(), f)

	assert.NoError(t, err)
	// The stale id is invalidated before the new one is stored.
	assert.Equal(t, []string{"", "42"}, f.idLog)
	api.AssertExpectations(t)
}

func TestRunUpdatesVerifiedRemoteID(t *testing.T) {
	api := &mocks.API{}
	api.On("Query", mock.Anything, "widget.get", mock.Anything).
		Return([]zabbix.Result{{"widgetid": "9", "name": "remote"}}, nil)
	api.On("Exec", mock.Anything, "widget.update", mock.MatchedBy(func(p zabbix.Params) bool {
		return p["widgetid"] == "9"
	})).Return(zabbix.Result{"widgetids": []any{"9"}}, nil)

	f := &fakeSyncer{api: api, remoteID: "9"}
	err := run(context.Background(), f)

	assert.NoError(t, err)
	api.AssertExpectations(t)
}

func TestRunPullsRemoteStateWhenRemoteAuthoritative(t *testing.T) {
	api := &mocks.API{}
	api.On("Query", mock.Anything, "widget.get", mock.Anything).
		Return([]zabbix.Result{{"widgetid": "9", "name": "remote"}}, nil)

	f := &fakeSyncer{api: api, remoteID: "9", sot: policy.SourceRemote}
	err := run(context.Background(), f)

	assert.NoError(t, err)
	assert.Len(t, f.applied, 1)
	assert.Equal(t, "remote", f.applied[0]["name"])
	api.AssertNotCalled(t, "Exec", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunFailsWhenCreateReturnsNoIdentifier(t *testing.T) {
	api := &mocks.API{}
	api.On("Exec", mock.Anything, "widget.create", mock.Anything).
		Return(zabbix.Result{}, nil)

	f := &fakeSyncer{api: api}
	err := run(context.Background(), f)

	assert.ErrorIs(t, err, ErrNoIdentifier)
	assert.Empty(t, f.remoteID)
}

func TestErrorWrapsEntityAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := newError("host", cause)

	assert.Equal(t, "error syncing host: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}
