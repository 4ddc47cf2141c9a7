// Package database provides the GORM-backed connection to the local
// inventory database.
//
// The inventory database is the long-lived record of intent: devices,
// interfaces, host groups, templates, tags, macros and inventory facts live
// here, together with the remote identifiers the sync engine writes back.
package database
