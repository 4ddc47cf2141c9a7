// Package utils contains small shared helpers, mainly loose-typed value
// coercion for JSON-RPC payloads where the wire type of a field is not
// guaranteed.
package utils
