package sync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"zabbix-sync/core/policy"
	"zabbix-sync/core/utils"
	"zabbix-sync/core/zabbix"
	"zabbix-sync/feature/inventory"
)

// Syncer is the contract one entity kind implements to take part in
// reconciliation. The flow shared by every kind lives in run(); a syncer
// only answers the per-kind questions: how to address the remote object,
// how to recognize it by natural key, what a create or update payload looks
// like, and where the remote identifier is stored locally.
type Syncer interface {
	// EntityKind names the kind in errors and logs ("host", "hostgroup", ...).
	EntityKind() string
	// Object returns the remote RPC surface for this kind.
	Object() zabbix.Object
	// IDField is the identifier field name inside a remote record
	// ("hostid", "groupid", ...). The plural form keys id arrays.
	IDField() string

	// RemoteID returns the locally stored remote identifier, "" when the
	// record was never synced or its identifier was invalidated.
	RemoteID() string
	// SetRemoteID persists a new remote identifier locally. An empty id
	// invalidates the stored one.
	SetRemoteID(ctx context.Context, id string) error

	// FindByNaturalKey looks the entity up by its natural key with an exact
	// filter. Substring searches would conflate e.g. "Core-1" and "Core-10".
	FindByNaturalKey(ctx context.Context) ([]zabbix.Result, error)

	// CreateParams and UpdateParams build the outbound payloads. UpdateParams
	// excludes the identifier; run() attaches it.
	CreateParams() zabbix.Params
	UpdateParams() zabbix.Params

	// ApplyRemoteState folds a remote record into the local row, used when
	// the monitoring server is the source of truth for this kind.
	ApplyRemoteState(ctx context.Context, rec zabbix.Result) error
	// SourceOfTruth returns the authoritative side for this kind.
	SourceOfTruth() policy.SourceOfTruth

	// RecordStatus persists the sync outcome on the local row.
	RecordStatus(ctx context.Context, success bool, message string) error
	// Message returns an outcome note set during Sync, "" for the default.
	Message() string

	// Sync reconciles the entity. Most kinds delegate to run().
	Sync(ctx context.Context) error
}

// preparer is implemented by syncers that assemble their outbound payload
// in a separate step before the shared flow runs. Duplicate recovery must
// prepare the fresh instance it builds, or its update would carry nothing.
type preparer interface {
	prepare(ctx context.Context) error
}

// base carries the collaborators every syncer shares.
type base struct {
	api    zabbix.API
	store  *inventory.Store
	policy *policy.Config
	target *inventory.Target
	logger *zap.Logger
	note   string
}

func (b *base) Message() string { return b.note }

// run is the shared reconciliation flow:
//
//  1. A stored remote id is verified. A verified id resolves by source of
//     truth (push local state, or pull remote state). A stale id is cleared
//     and the flow falls through to the lookup path.
//  2. Without an id, the natural key decides: no match creates, exactly one
//     match is adopted and resolved, several matches are ambiguous and fail.
//
// Every failure is wrapped in *Error with the entity kind attached.
func run(ctx context.Context, s Syncer) error {
	kind := s.EntityKind()

	if id := s.RemoteID(); id != "" {
		recs, err := s.Object().Get(ctx, zabbix.Params{
			s.IDField() + "s": []string{id},
			"output":          "extend",
		})
		if err != nil {
			return newError(kind, err)
		}
		if len(recs) > 0 {
			return resolveFound(ctx, s, recs[0], id)
		}
		// The stored id no longer exists remotely; invalidate and recreate.
		if err := s.SetRemoteID(ctx, ""); err != nil {
			return newError(kind, err)
		}
	}

	recs, err := s.FindByNaturalKey(ctx)
	if err != nil {
		return newError(kind, err)
	}
	switch len(recs) {
	case 0:
		return createRemote(ctx, s)
	case 1:
		id := utils.ToString(recs[0][s.IDField()])
		if id == "" {
			return newError(kind, fmt.Errorf("lookup record carries no %s", s.IDField()))
		}
		if err := s.SetRemoteID(ctx, id); err != nil {
			return newError(kind, err)
		}
		return resolveFound(ctx, s, recs[0], id)
	default:
		return newError(kind, fmt.Errorf("natural key matches %d remote records, expected one", len(recs)))
	}
}

// resolveFound reconciles an entity whose remote counterpart is known.
func resolveFound(ctx context.Context, s Syncer, rec zabbix.Result, id string) error {
	if s.SourceOfTruth().IsRemote() {
		if err := s.ApplyRemoteState(ctx, rec); err != nil {
			return newError(s.EntityKind(), err)
		}
		return nil
	}
	return pushUpdate(ctx, s, id)
}

// pushUpdate sends the local state to the remote record.
func pushUpdate(ctx context.Context, s Syncer, id string) error {
	params := s.UpdateParams()
	params[s.IDField()] = id
	if _, err := s.Object().Update(ctx, params); err != nil {
		return newError(s.EntityKind(), err)
	}
	return nil
}

// adoptExisting resolves an entity against a remote record that is known to
// exist: an exact natural-key lookup that must yield exactly one record,
// adoption of its identifier, then resolution by source of truth. It backs
// duplicate recovery.
func adoptExisting(ctx context.Context, s Syncer) error {
	kind := s.EntityKind()

	recs, err := s.FindByNaturalKey(ctx)
	if err != nil {
		return newError(kind, err)
	}
	if len(recs) != 1 {
		return newError(kind, fmt.Errorf("duplicate recovery found %d records by natural key, expected one", len(recs)))
	}

	id := utils.ToString(recs[0][s.IDField()])
	if id == "" {
		return newError(kind, fmt.Errorf("recovery record carries no %s", s.IDField()))
	}
	if err := s.SetRemoteID(ctx, id); err != nil {
		return newError(kind, err)
	}
	return resolveFound(ctx, s, recs[0], id)
}

// createRemote creates the remote record and stores the returned identifier.
func createRemote(ctx context.Context, s Syncer) error {
	kind := s.EntityKind()
	res, err := s.Object().Create(ctx, s.CreateParams())
	if err != nil {
		return newError(kind, err)
	}
	id := res.FirstID(s.IDField() + "s")
	if id == "" {
		return newError(kind, ErrNoIdentifier)
	}
	if err := s.SetRemoteID(ctx, id); err != nil {
		return newError(kind, err)
	}
	return nil
}
