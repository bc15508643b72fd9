// Package syncview implements the client-side data-synchronization layer of a
// personal productivity app: a reactive cache of remote entities (boards,
// tasks, sections) with optimistic mutation and rollback, cross-view
// invalidation, and group-aware pagination.
//
// Components:
//   - Key: hierarchical query keys; invalidating a prefix invalidates every
//     key extending it.
//   - Store[V]: keyed cache of encoded entries on a pluggable Provider
//     (e.g. Ristretto, BigCache, Redis), with per-query staleness windows,
//     forced staleness on invalidation, and version guards that cancel
//     in-flight read resolutions.
//   - Executor[E]: optimistic mutations. Patches every cached view that
//     contains the target entity before the remote write is issued, and
//     either commits (invalidate dependents) or restores the pre-patch
//     snapshots byte for byte.
//   - Paginate: splits an ordered collection into page windows without ever
//     bisecting a logical group.
//   - Client: the named query/mutation surface the rendering layer consumes.
//
// Entry lifecycle:
//
//	fresh (now < staleAt) -> stale but shown (until retainUntil) -> evicted
//
// Read-resolution guard:
//
//	obs := store.Version(k)          // before the remote read
//	v   := remote fetch
//	_    = store.SetResolved(ctx, k, v, obs) // write iff version unchanged
package syncview
