// Package sync implements reconciliation of the local inventory against the
// monitoring servers configured as targets.
//
// Each remote entity kind (host group, proxy group, proxy, host, host
// interface) implements the Syncer contract; the shared flow in run()
// verifies a stored remote id, resolves by natural key, and creates or
// updates as needed, honoring the per-kind source-of-truth policy.
//
// # Duplicate safety
//
// The Executor runs every syncer and recovers exactly once from a creation
// that raced another worker: over a fresh connection it looks the entity up
// by its natural key, adopts the winner's identifier and pushes the local
// state. Anything but exactly one natural-key match fails the sync.
//
// # Orchestration
//
// The Pipeline reconciles a target in dependency order across six stages,
// isolating per-item failures. Queued runs express the same ordering as a
// unit graph: the infrastructure stages head the graph and every host
// assignment fans out into its own unit, so independent hosts reconcile in
// parallel.
//
// # Components
//
//   - Service: Entry points for direct and queued passes.
//   - Handler: Exposes HTTP endpoints for triggering and polling runs.
//   - Loader: Registers the feature with the application.
//
// # HTTP Endpoints
//
//   - POST /sync/targets/:id : Trigger a pass (queued by default, mode=direct blocks).
//   - GET /sync/runs/:id : Poll a queued run.
package sync
