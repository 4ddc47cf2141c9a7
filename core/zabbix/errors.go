package zabbix

import (
	"errors"
	"fmt"
)

var errUnexpectedStatusCode = errors.New("unexpected status code")

// APIError is an application-level error returned by the monitoring server.
// Code, Message and Data mirror the JSON-RPC error object; Data carries the
// human-readable detail ("Host with the same name ... already exists").
type APIError struct {
	Code    int
	Message string
	Data    string
}

func (e *APIError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("api error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
}

// AsAPIError unwraps err into an *APIError when the failure originated from
// the remote API rather than transport or local resolution.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
