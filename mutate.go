package syncview

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Mutation lifecycle: Idle -> Applying -> (Committing | RollingBack) -> Settled.
type mutationState int8

const (
	stateIdle mutationState = iota
	stateApplying
	stateCommitting
	stateRollingBack
	stateSettled
)

// DependentsFunc reports which key prefixes logically depend on an entity
// and must refetch after a committed mutation. before is nil on create,
// after is nil on delete.
type DependentsFunc[E Entity] func(before, after *E) []Key

// InvalidateFunc fans dependent prefixes out to every store that may hold a
// matching entry (task lists, board summaries, ...). Supplied by the
// composition root because dependents cross store boundaries.
type InvalidateFunc func(ctx context.Context, prefixes []Key)

type ExecutorOptions[E Entity] struct {
	// Lists holds every list-shaped view of E. Required.
	Lists *Store[[]E]

	// Singles holds per-entity entries, keyed by SingleKey. Optional.
	Singles   *Store[E]
	SingleKey func(id string) Key

	Dependents DependentsFunc[E]
	Invalidate InvalidateFunc
	Logger     Logger
	Hooks      Hooks
}

// Executor runs optimistic mutations. Before the remote write is issued it
// locates every cache entry whose data contains the target entity (a content
// scan across all list views plus the single entry), snapshots each one, and
// writes the patch synchronously, so the rendering layer observes the change
// immediately. When the remote call settles the executor either supersedes
// the patch with the authoritative entity and invalidates dependents, or
// restores every snapshot verbatim and re-raises the failure.
//
// Patching bumps each touched key's version, so a read that was in flight
// when the patch landed resolves into a no-op instead of overwriting the
// patch with older data.
type Executor[E Entity] struct {
	lists     *Store[[]E]
	singles   *Store[E]
	singleKey func(id string) Key

	deps       DependentsFunc[E]
	invalidate InvalidateFunc
	log        Logger
	hooks      Hooks

	pendingMu sync.Mutex
	pending   map[string]struct{} // entity ids with an unsettled mutation
}

func NewExecutor[E Entity](opts ExecutorOptions[E]) (*Executor[E], error) {
	if opts.Lists == nil {
		return nil, fmt.Errorf("syncview: executor requires a list store")
	}
	if opts.Singles != nil && opts.SingleKey == nil {
		return nil, fmt.Errorf("syncview: executor requires SingleKey with a singles store")
	}
	return &Executor[E]{
		lists:      opts.Lists,
		singles:    opts.Singles,
		singleKey:  opts.SingleKey,
		deps:       opts.Dependents,
		invalidate: opts.Invalidate,
		log:        coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:      coalesce[Hooks](opts.Hooks, NopHooks{}),
		pending:    make(map[string]struct{}),
	}, nil
}

// record is the transient per-mutation state: snapshots of every touched
// entry, discarded on settlement (commit drops them, failure restores them).
type record struct {
	id       string
	entityID string
	state    mutationState

	listSnaps  []entrySnapshot
	singleSnap *entrySnapshot
}

// Update applies patch optimistically to every cached view containing id,
// then issues write. Returns the authoritative entity on success; on failure
// every touched entry is restored and the error is re-raised untouched.
func (x *Executor[E]) Update(ctx context.Context, id string, patch func(E) E, write func(context.Context) (E, error)) (E, error) {
	var zero E
	if err := x.begin(id); err != nil {
		return zero, err
	}
	defer x.settle(id)

	rec := &record{id: uuid.NewString(), entityID: id, state: stateApplying}
	var before *E

	touched := 0
	for _, k := range x.lists.Keys(nil) {
		items, _, ok, err := x.lists.Get(ctx, k)
		if err != nil || !ok {
			continue
		}
		i := indexByID(items, id)
		if i < 0 {
			continue
		}
		snap, ok, err := x.lists.snapshotRaw(ctx, k)
		if err != nil || !ok {
			continue
		}
		if before == nil {
			b := items[i]
			before = &b
		}
		patched := make([]E, len(items))
		copy(patched, items)
		patched[i] = patch(items[i])
		if err := x.lists.setPatched(ctx, k, patched); err != nil {
			x.log.Warn("optimistic patch write failed", Fields{"key": k.String(), "err": err})
			continue
		}
		rec.listSnaps = append(rec.listSnaps, snap)
		touched++
	}

	if x.singles != nil {
		k := x.singleKey(id)
		if v, _, ok, _ := x.singles.Get(ctx, k); ok {
			if snap, ok, _ := x.singles.snapshotRaw(ctx, k); ok {
				if before == nil {
					b := v
					before = &b
				}
				if err := x.singles.setPatched(ctx, k, patch(v)); err == nil {
					rec.singleSnap = &snap
					touched++
				}
			}
		}
	}

	x.hooks.OptimisticApplied(rec.id, id, touched)
	x.log.Debug("optimistic patch applied", Fields{"mutation": rec.id, "entity": id, "touched": touched})

	auth, err := write(ctx)
	if err != nil {
		x.rollback(ctx, rec, err)
		return zero, err
	}

	rec.state = stateCommitting
	x.supersede(ctx, rec, id, auth)
	x.invalidateDependents(ctx, before, &auth)
	x.hooks.MutationCommitted(rec.id, id)
	rec.state = stateSettled
	return auth, nil
}

// Create appends optimistic to every already-cached target view, then issues
// write. optimistic must carry a client-generated temp id (see TempID); the
// authoritative entity replaces it on commit.
func (x *Executor[E]) Create(ctx context.Context, optimistic E, targets []Key, write func(context.Context) (E, error)) (E, error) {
	var zero E
	tempID := optimistic.EntityID()
	if err := x.begin(tempID); err != nil {
		return zero, err
	}
	defer x.settle(tempID)

	rec := &record{id: uuid.NewString(), entityID: tempID, state: stateApplying}

	touched := 0
	for _, k := range targets {
		items, _, ok, err := x.lists.Get(ctx, k)
		if err != nil || !ok {
			continue // only patch views that are already materialized
		}
		snap, ok, err := x.lists.snapshotRaw(ctx, k)
		if err != nil || !ok {
			continue
		}
		appended := make([]E, 0, len(items)+1)
		appended = append(appended, items...)
		appended = append(appended, optimistic)
		if err := x.lists.setPatched(ctx, k, appended); err != nil {
			continue
		}
		rec.listSnaps = append(rec.listSnaps, snap)
		touched++
	}

	x.hooks.OptimisticApplied(rec.id, tempID, touched)

	auth, err := write(ctx)
	if err != nil {
		x.rollback(ctx, rec, err)
		return zero, err
	}

	rec.state = stateCommitting
	x.supersede(ctx, rec, tempID, auth)
	x.invalidateDependents(ctx, nil, &auth)
	x.hooks.MutationCommitted(rec.id, auth.EntityID())
	rec.state = stateSettled
	return auth, nil
}

// Delete removes id optimistically from every cached view, then issues
// write. On failure the removed entries reappear exactly as they were.
func (x *Executor[E]) Delete(ctx context.Context, id string, write func(context.Context) error) error {
	if err := x.begin(id); err != nil {
		return err
	}
	defer x.settle(id)

	rec := &record{id: uuid.NewString(), entityID: id, state: stateApplying}
	var before *E

	touched := 0
	for _, k := range x.lists.Keys(nil) {
		items, _, ok, err := x.lists.Get(ctx, k)
		if err != nil || !ok {
			continue
		}
		i := indexByID(items, id)
		if i < 0 {
			continue
		}
		snap, ok, err := x.lists.snapshotRaw(ctx, k)
		if err != nil || !ok {
			continue
		}
		if before == nil {
			b := items[i]
			before = &b
		}
		remaining := make([]E, 0, len(items)-1)
		remaining = append(remaining, items[:i]...)
		remaining = append(remaining, items[i+1:]...)
		if err := x.lists.setPatched(ctx, k, remaining); err != nil {
			continue
		}
		rec.listSnaps = append(rec.listSnaps, snap)
		touched++
	}

	if x.singles != nil {
		k := x.singleKey(id)
		if v, _, ok, _ := x.singles.Get(ctx, k); ok {
			if snap, ok, _ := x.singles.snapshotRaw(ctx, k); ok {
				if before == nil {
					b := v
					before = &b
				}
				x.singles.Remove(ctx, k)
				rec.singleSnap = &snap
				touched++
			}
		}
	}

	x.hooks.OptimisticApplied(rec.id, id, touched)

	if err := write(ctx); err != nil {
		x.rollback(ctx, rec, err)
		return err
	}

	rec.state = stateCommitting
	x.invalidateDependents(ctx, before, nil)
	x.hooks.MutationCommitted(rec.id, id)
	rec.state = stateSettled
	return nil
}

// supersede replaces the optimistic value with the authoritative entity in
// every entry this mutation touched.
func (x *Executor[E]) supersede(ctx context.Context, rec *record, oldID string, auth E) {
	for _, snap := range rec.listSnaps {
		items, _, ok, err := x.lists.Get(ctx, snap.key)
		if err != nil || !ok {
			continue
		}
		i := indexByID(items, oldID)
		if i < 0 {
			continue
		}
		updated := make([]E, len(items))
		copy(updated, items)
		updated[i] = auth
		_ = x.lists.setPatched(ctx, snap.key, updated)
	}
	if rec.singleSnap != nil && x.singles != nil {
		_ = x.singles.setPatched(ctx, x.singleKey(oldID), auth)
	}
}

// rollback restores every snapshot verbatim and re-raises nothing itself;
// the caller propagates the original failure.
func (x *Executor[E]) rollback(ctx context.Context, rec *record, cause error) {
	rec.state = stateRollingBack
	for _, snap := range rec.listSnaps {
		if err := x.lists.restoreRaw(ctx, snap); err != nil {
			x.log.Error("rollback restore failed", Fields{"key": snap.key.String(), "err": err})
		}
	}
	if rec.singleSnap != nil && x.singles != nil {
		if err := x.singles.restoreRaw(ctx, *rec.singleSnap); err != nil {
			x.log.Error("rollback restore failed", Fields{"key": rec.singleSnap.key.String(), "err": err})
		}
	}
	x.hooks.MutationRolledBack(rec.id, rec.entityID, cause)
	x.log.Warn("mutation rolled back", Fields{"mutation": rec.id, "entity": rec.entityID, "err": cause})
	rec.state = stateSettled
}

func (x *Executor[E]) invalidateDependents(ctx context.Context, before, after *E) {
	if x.deps == nil {
		return
	}
	prefixes := x.deps(before, after)
	if len(prefixes) == 0 {
		return
	}
	if x.invalidate != nil {
		x.invalidate(ctx, prefixes)
		return
	}
	for _, p := range prefixes {
		x.lists.Invalidate(ctx, p)
	}
}

// begin marks the entity pending; a second mutation on the same entity
// before settlement is refused.
func (x *Executor[E]) begin(id string) error {
	x.pendingMu.Lock()
	defer x.pendingMu.Unlock()
	if _, busy := x.pending[id]; busy {
		return ErrMutationPending
	}
	x.pending[id] = struct{}{}
	return nil
}

func (x *Executor[E]) settle(id string) {
	x.pendingMu.Lock()
	delete(x.pending, id)
	x.pendingMu.Unlock()
}

// TempID returns a client-side placeholder id for an optimistic create.
func TempID() string { return "tmp-" + uuid.NewString() }

func indexByID[E Entity](items []E, id string) int {
	for i, it := range items {
		if it.EntityID() == id {
			return i
		}
	}
	return -1
}
