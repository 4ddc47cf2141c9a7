// Package policy defines the reconciliation policy knobs: which side of the
// sync is authoritative per field group, how local statuses map onto the
// monitoring server's tri-state host status, and which macro placeholders
// stand in for SNMP credentials.
//
// Conflicts between the inventory and the monitoring server are never
// resolved by timestamps or merging; each field group has a static source of
// truth and the losing side is overwritten (or, for additive groups like
// macros, supplemented).
package policy
