package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"zabbix-sync/core/zabbix"
	"zabbix-sync/core/zabbix/mocks"
)

func duplicateErr() error {
	return newError("widget", &zabbix.APIError{
		Code:    -32602,
		Message: "Invalid params.",
		Data:    `Host group "net" already exists.`,
	})
}

// buildSequence returns a build func handing out the given syncers in order.
func buildSequence(syncers ...Syncer) func(zabbix.API) Syncer {
	i := 0
	return func(zabbix.API) Syncer {
		s := syncers[i%len(syncers)]
		i++
		return s
	}
}

func TestExecutorRecoversFromDuplicateOnce(t *testing.T) {
	api := &mocks.API{}
	api.On("Exec", mock.Anything, "widget.update", mock.MatchedBy(func(p zabbix.Params) bool {
		return p["widgetid"] == "7"
	})).Return(zabbix.Result{"widgetids": []any{"7"}}, nil).Once()

	released := false
	connect := func(context.Context) (zabbix.API, func(), error) {
		return api, func() { released = true }, nil
	}

	loser := &fakeSyncer{api: api, syncErr: duplicateErr()}
	winnerLookup := &fakeSyncer{api: api, found: []zabbix.Result{{"widgetid": "7"}}}

	exec := NewExecutor(api, connect, zap.NewNop())
	err := exec.Run(context.Background(), buildSequence(loser, winnerLookup))

	assert.NoError(t, err)
	assert.Equal(t, "7", winnerLookup.remoteID)
	assert.True(t, released)
	// Status lands on the recovery syncer.
	assert.Equal(t, []recordedStatus{{success: true, message: "Sync completed"}}, winnerLookup.statuses)
	api.AssertExpectations(t)
}

func TestExecutorRecoveryRequiresExactlyOneMatch(t *testing.T) {
	api := &mocks.API{}
	connect := func(context.Context) (zabbix.API, func(), error) {
		return api, func() {}, nil
	}

	loser := &fakeSyncer{api: api, syncErr: duplicateErr()}
	ambiguous := &fakeSyncer{api: api, found: []zabbix.Result{{"widgetid": "1"}, {"widgetid": "2"}}}

	exec := NewExecutor(api, connect, zap.NewNop())
	err := exec.Run(context.Background(), buildSequence(loser, ambiguous))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected one")
	assert.Len(t, ambiguous.statuses, 1)
	assert.False(t, ambiguous.statuses[0].success)
}

func TestExecutorDoesNotRecoverOtherFailures(t *testing.T) {
	api := &mocks.API{}
	connected := false
	connect := func(context.Context) (zabbix.API, func(), error) {
		connected = true
		return api, func() {}, nil
	}

	failure := newError("widget", errors.New("connection reset"))
	f := &fakeSyncer{api: api, syncErr: failure}

	exec := NewExecutor(api, connect, zap.NewNop())
	err := exec.Run(context.Background(), buildSequence(f))

	assert.ErrorIs(t, err, failure)
	assert.False(t, connected)
	assert.Equal(t, []recordedStatus{{success: false, message: failure.Error()}}, f.statuses)
}

func TestExecutorFailsWhenReconnectFails(t *testing.T) {
	api := &mocks.API{}
	connect := func(context.Context) (zabbix.API, func(), error) {
		return nil, nil, errors.New("server unreachable")
	}

	loser := &fakeSyncer{api: api, syncErr: duplicateErr()}
	fallback := &fakeSyncer{api: api}

	exec := NewExecutor(api, connect, zap.NewNop())
	err := exec.Run(context.Background(), buildSequence(loser, fallback))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reconnect for duplicate recovery")
}

func TestExecutorReportsSyncerNote(t *testing.T) {
	api := &mocks.API{}
	connect := func(context.Context) (zabbix.API, func(), error) {
		return api, func() {}, nil
	}

	f := &fakeSyncer{api: api, note: "Recreated interface"}
	f.syncErr = nil
	f.found = nil
	// Succeed via create.
	api.On("Exec", mock.Anything, "widget.create", mock.Anything).
		Return(zabbix.Result{"widgetids": []any{"3"}}, nil)

	exec := NewExecutor(api, connect, zap.NewNop())
	err := exec.Run(context.Background(), buildSequence(f))

	assert.NoError(t, err)
	assert.Equal(t, []recordedStatus{{success: true, message: "Recreated interface"}}, f.statuses)
}

func TestIsAlreadyExistsMatchesMessageAndData(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"in data", &zabbix.APIError{Data: `Host "sw1" already exists.`}, true},
		{"in message", &zabbix.APIError{Message: "Already exists"}, true},
		{"wrapped", newError("host", &zabbix.APIError{Data: "already exists"}), true},
		{"other api error", &zabbix.APIError{Data: "No permissions."}, false},
		{"plain error", errors.New("host already exists"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAlreadyExists(tt.err))
		})
	}
}

func TestIsCannotSwitchHost(t *testing.T) {
	err := &zabbix.APIError{Data: "Cannot switch host for interface."}
	assert.True(t, isCannotSwitchHost(err))
	assert.False(t, isCannotSwitchHost(errors.New("cannot switch host for interface")))
}
