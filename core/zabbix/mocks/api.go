package mocks

import (
	"context"

	"zabbix-sync/core/zabbix"

	"github.com/stretchr/testify/mock"
)

// API is a mock implementation of zabbix.API.
type API struct {
	mock.Mock
}

func (m *API) Query(ctx context.Context, method string, params zabbix.Params) ([]zabbix.Result, error) {
	args := m.Called(ctx, method, params)
	if res, ok := args.Get(0).([]zabbix.Result); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *API) Exec(ctx context.Context, method string, params zabbix.Params) (zabbix.Result, error) {
	args := m.Called(ctx, method, params)
	if res, ok := args.Get(0).(zabbix.Result); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}
