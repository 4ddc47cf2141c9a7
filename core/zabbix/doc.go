// Package zabbix implements a JSON-RPC 2.0 client for the Zabbix server API.
//
// The API is an object-style RPC surface: each entity kind exposes get,
// create and update methods parameterized by a mapping and returning either
// an array of records (get) or a mapping with an array of new identifiers
// under a known key (create/update). The Object type wraps one entity kind;
// the API interface is what the sync engine consumes, so tests substitute a
// fake without touching HTTP.
//
// Application-level failures surface as *APIError with the remote code,
// message and data payload intact, which the sync engine inspects to detect
// duplicate-creation races.
package zabbix
