package zabbix

import "context"

// Object exposes the get/create/update surface of one remote entity kind.
type Object struct {
	api  API
	kind string
}

// NewObject binds an entity kind ("host", "hostgroup", ...) to an API.
func NewObject(api API, kind string) Object {
	return Object{api: api, kind: kind}
}

// Kind returns the remote entity kind this object addresses.
func (o Object) Kind() string {
	return o.kind
}

// Get performs <kind>.get and returns the matching records.
func (o Object) Get(ctx context.Context, params Params) ([]Result, error) {
	return o.api.Query(ctx, o.kind+".get", params)
}

// Create performs <kind>.create and returns the result payload holding the
// new identifier array.
func (o Object) Create(ctx context.Context, params Params) (Result, error) {
	return o.api.Exec(ctx, o.kind+".create", params)
}

// Update performs <kind>.update.
func (o Object) Update(ctx context.Context, params Params) (Result, error) {
	return o.api.Exec(ctx, o.kind+".update", params)
}
