// Package inventory holds the GORM models of the local inventory database
// and the Store, the persistence surface the sync engine consumes.
//
// Every row that participates in sync embeds SyncStatus and carries a remote
// identifier column; both are mutated only by the sync engine. Deleting a
// local row never deletes anything on the monitoring server.
package inventory
