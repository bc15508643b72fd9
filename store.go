package syncview

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/planwheel/syncview/internal/wire"
)

const defaultSweep = time.Minute

// Policy is the freshness window of one logical query type. An entry is
// fresh until StaleAfter, stale but still served until RetainFor, and
// evicted after that.
type Policy struct {
	StaleAfter time.Duration
	RetainFor  time.Duration
}

// PolicyFunc maps a query key to its freshness policy. Fast-moving views
// (e.g. today's tasks) get near-zero StaleAfter; slow views several minutes.
type PolicyFunc func(Key) Policy

// DefaultPolicy is used when StoreOptions.Policy is nil.
func DefaultPolicy(Key) Policy {
	return Policy{StaleAfter: time.Minute, RetainFor: 30 * time.Minute}
}

// EntryInfo describes the freshness of a returned entry.
type EntryInfo struct {
	FetchedAt time.Time
	StaleAt   time.Time
	Stale     bool
}

type indexEntry struct {
	key         Key
	version     uint64
	fetchedAt   time.Time
	staleAt     time.Time
	retainUntil time.Time
	forcedStale bool
}

// entrySnapshot is a verbatim copy of one entry (payload bytes + freshness
// metadata) taken before an optimistic patch, and restored on rollback.
type entrySnapshot struct {
	key         Key
	payload     []byte
	fetchedAt   time.Time
	staleAt     time.Time
	retainUntil time.Time
	forcedStale bool
}

type StoreOptions[V any] struct {
	// Required
	Namespace string // logical namespace, e.g. "tasks", "boards"
	Provider  Provider
	Codec     Codec[V]

	Logger        Logger        // nil => NopLogger
	Hooks         Hooks         // nil => NopHooks
	Policy        PolicyFunc    // nil => DefaultPolicy
	SweepInterval time.Duration // 0 => 1m
}

// Store is a keyed cache of encoded entries for one value shape. Entries
// live as wire-framed bytes in the Provider; the store keeps an index of
// live keys with freshness metadata and a per-key version counter.
//
// The version counter is the in-flight read guard: a reader snapshots
// Version(k) before issuing the remote call and resolves through
// SetResolved, which silently drops the write when the version has moved
// (an optimistic patch or invalidation landed in between). Logical recency
// wins over network arrival order.
//
// Values returned by Get are decoded copies; consumers must treat them as
// immutable snapshots. The store never fails on its own operations;
// failures belong to the reads and writes that populate it.
type Store[V any] struct {
	ns       string
	provider Provider
	codec    Codec[V]
	log      Logger
	hooks    Hooks
	policy   PolicyFunc

	mu    sync.RWMutex
	index map[string]*indexEntry // storage key -> metadata

	sweepInterval time.Duration
	ticker        *time.Ticker
	stopCh        chan struct{}
	closeWg       sync.WaitGroup
	closeOnce     sync.Once
}

func NewStore[V any](opts StoreOptions[V]) (*Store[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("syncview: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("syncview: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("syncview: namespace is required")
	}

	s := &Store[V]{
		ns:       opts.Namespace,
		provider: opts.Provider,
		codec:    opts.Codec,
		index:    make(map[string]*indexEntry),
	}

	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.sweepInterval = coalesce[time.Duration](opts.SweepInterval, defaultSweep)
	if opts.Policy != nil {
		s.policy = opts.Policy
	} else {
		s.policy = DefaultPolicy
	}

	s.ticker = time.NewTicker(s.sweepInterval)
	s.stopCh = make(chan struct{})
	s.closeWg.Add(1)
	go s.sweepLoop()

	return s, nil
}

// Close stops the background sweep. The Provider is shared across stores and
// is closed by whoever owns it, not here.
func (s *Store[V]) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.closeWg.Wait()
		s.ticker.Stop()
	})
}

// Get returns the cached value for key, if any. A stale entry is still
// returned (info.Stale=true) so the previous value stays visible while a
// refetch is in flight. No side effects beyond self-healing bad entries.
func (s *Store[V]) Get(ctx context.Context, key Key) (V, EntryInfo, bool, error) {
	var zero V
	sk := s.storageKey(key)
	now := time.Now()

	s.mu.RLock()
	e, ok := s.index[sk]
	var meta indexEntry
	if ok {
		meta = *e
	}
	s.mu.RUnlock()
	if !ok {
		return zero, EntryInfo{}, false, nil
	}
	if now.After(meta.retainUntil) {
		s.evict(ctx, sk)
		return zero, EntryInfo{}, false, nil
	}

	raw, hit, err := s.provider.Get(ctx, sk)
	if err != nil {
		return zero, EntryInfo{}, false, err
	}
	if !hit {
		// provider evicted under us; prune the index
		s.evict(ctx, sk)
		return zero, EntryInfo{}, false, nil
	}

	ver, fetchedAt, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		s.selfHeal(ctx, sk, "corrupt")
		return zero, EntryInfo{}, false, nil
	}
	if ver != meta.version {
		s.selfHeal(ctx, sk, "version_mismatch")
		return zero, EntryInfo{}, false, nil
	}
	v, err := s.codec.Decode(payload)
	if err != nil {
		s.selfHeal(ctx, sk, "value_decode")
		return zero, EntryInfo{}, false, nil
	}

	info := EntryInfo{
		FetchedAt: fetchedAt,
		StaleAt:   meta.staleAt,
		Stale:     meta.forcedStale || !now.Before(meta.staleAt),
	}
	return v, info, true, nil
}

// Set replaces or creates the entry for key at its current version, stamping
// fetchedAt=now and recomputing the freshness windows from the key's policy.
func (s *Store[V]) Set(ctx context.Context, key Key, v V) error {
	now := time.Now()
	pol := s.policy(key)

	s.mu.Lock()
	e := s.ensureLocked(key)
	e.fetchedAt = now
	e.staleAt = now.Add(pol.StaleAfter)
	e.retainUntil = now.Add(pol.RetainFor)
	e.forcedStale = false
	ver := e.version
	s.mu.Unlock()

	return s.write(ctx, key, v, ver, now, pol.RetainFor)
}

// SetResolved writes a resolved remote read, but only if the key's version
// still equals the one observed when the read was issued. A moved version
// means an optimistic patch (or cancellation) landed while the read was in
// flight; the older data is dropped.
func (s *Store[V]) SetResolved(ctx context.Context, key Key, v V, observed uint64) error {
	if s.Version(key) != observed {
		s.hooks.ReadSuperseded(s.storageKey(key))
		s.log.Debug("read resolution superseded", Fields{"key": key.String(), "observed": observed})
		return nil
	}
	return s.Set(ctx, key, v)
}

// Version returns the current version counter for key; missing => 0.
func (s *Store[V]) Version(key Key) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.index[s.storageKey(key)]; ok {
		return e.version
	}
	return 0
}

// Invalidate marks every entry matching the key prefix stale immediately.
// Entries are not deleted: the previously fetched value remains visible
// until the refetch resolves, so views never flash empty.
func (s *Store[V]) Invalidate(ctx context.Context, prefix Key) {
	_ = ctx
	n := 0
	s.mu.Lock()
	for _, e := range s.index {
		if e.key.HasPrefix(prefix) {
			e.forcedStale = true
			n++
		}
	}
	s.mu.Unlock()
	if n > 0 {
		s.log.Debug("invalidated prefix", Fields{"prefix": prefix.String(), "entries": n})
	}
}

// CancelInFlight bumps the version of every entry matching the key prefix,
// so any read issued before now resolves into a no-op (see SetResolved).
// Only pending resolutions are suppressed: each entry's frame is rewritten
// under its new version so the cached value stays readable.
func (s *Store[V]) CancelInFlight(ctx context.Context, prefix Key) {
	type bumped struct {
		sk  string
		ver uint64
		ttl time.Duration
	}
	var hit []bumped

	s.mu.Lock()
	for sk, e := range s.index {
		if e.key.HasPrefix(prefix) {
			e.version++
			hit = append(hit, bumped{sk: sk, ver: e.version, ttl: time.Until(e.retainUntil)})
		}
	}
	s.mu.Unlock()

	for _, h := range hit {
		raw, ok, err := s.provider.Get(ctx, h.sk)
		if err != nil || !ok {
			continue
		}
		_, fetchedAt, payload, err := wire.DecodeEntry(raw)
		if err != nil {
			s.selfHeal(ctx, h.sk, "corrupt")
			continue
		}

		// skip if another writer moved the version again in the meantime
		s.mu.RLock()
		e, live := s.index[h.sk]
		current := live && e.version == h.ver
		s.mu.RUnlock()
		if !current {
			continue
		}

		frame := wire.EncodeEntry(h.ver, fetchedAt, payload)
		if ok, err := s.provider.Set(ctx, h.sk, frame, int64(len(frame)), h.ttl); err == nil && !ok {
			s.hooks.ProviderSetRejected(h.sk)
		}
	}
}

// Keys returns the live keys matching the prefix, in deterministic order.
// A nil prefix matches everything.
func (s *Store[V]) Keys(prefix Key) []Key {
	s.mu.RLock()
	out := make([]Key, 0, len(s.index))
	for _, e := range s.index {
		if e.key.HasPrefix(prefix) {
			out = append(out, e.key.Clone())
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Remove deletes the entry outright (optimistic delete of a single entity).
func (s *Store[V]) Remove(ctx context.Context, key Key) {
	s.evict(ctx, s.storageKey(key))
}

// snapshotRaw captures the entry's payload bytes and freshness metadata
// verbatim. The executor takes one per touched entry before patching.
func (s *Store[V]) snapshotRaw(ctx context.Context, key Key) (entrySnapshot, bool, error) {
	sk := s.storageKey(key)

	s.mu.RLock()
	e, ok := s.index[sk]
	var meta indexEntry
	if ok {
		meta = *e
	}
	s.mu.RUnlock()
	if !ok {
		return entrySnapshot{}, false, nil
	}

	raw, hit, err := s.provider.Get(ctx, sk)
	if err != nil || !hit {
		return entrySnapshot{}, false, err
	}
	_, _, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		s.selfHeal(ctx, sk, "corrupt")
		return entrySnapshot{}, false, nil
	}

	cp := make([]byte, len(payload))
	copy(cp, payload)
	return entrySnapshot{
		key:         key.Clone(),
		payload:     cp,
		fetchedAt:   meta.fetchedAt,
		staleAt:     meta.staleAt,
		retainUntil: meta.retainUntil,
		forcedStale: meta.forcedStale,
	}, true, nil
}

// restoreRaw writes a snapshot back, payload bytes verbatim, under the key's
// current version (the version keeps moving forward so that reads issued
// during the failed mutation still resolve into no-ops).
func (s *Store[V]) restoreRaw(ctx context.Context, snap entrySnapshot) error {
	sk := s.storageKey(snap.key)

	s.mu.Lock()
	e := s.ensureLocked(snap.key)
	e.fetchedAt = snap.fetchedAt
	e.staleAt = snap.staleAt
	e.retainUntil = snap.retainUntil
	e.forcedStale = snap.forcedStale
	ver := e.version
	s.mu.Unlock()

	frame := wire.EncodeEntry(ver, snap.fetchedAt, snap.payload)
	ok, err := s.provider.Set(ctx, sk, frame, int64(len(frame)), time.Until(snap.retainUntil))
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.ProviderSetRejected(sk)
	}
	return nil
}

// setPatched writes an optimistic patch: bumps the version (cancelling
// competing in-flight reads for this key) and replaces the value while
// keeping the entry's freshness windows untouched: the patch is a local
// rewrite, not a fetch.
func (s *Store[V]) setPatched(ctx context.Context, key Key, v V) error {
	s.mu.Lock()
	e := s.ensureLocked(key)
	e.version++
	ver := e.version
	fetchedAt := e.fetchedAt
	retainUntil := e.retainUntil
	s.mu.Unlock()

	return s.write(ctx, key, v, ver, fetchedAt, time.Until(retainUntil))
}

func (s *Store[V]) write(ctx context.Context, key Key, v V, ver uint64, fetchedAt time.Time, ttl time.Duration) error {
	payload, err := s.codec.Encode(v)
	if err != nil {
		return err
	}
	sk := s.storageKey(key)
	frame := wire.EncodeEntry(ver, fetchedAt, payload)
	ok, err := s.provider.Set(ctx, sk, frame, int64(len(frame)), ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.ProviderSetRejected(sk)
		s.log.Debug("set rejected by provider (pressure)", Fields{"key": key.String()})
	}
	return nil
}

// ensureLocked returns the index entry for key, creating it at version 0.
// Caller holds s.mu.
func (s *Store[V]) ensureLocked(key Key) *indexEntry {
	sk := s.storageKey(key)
	e, ok := s.index[sk]
	if !ok {
		e = &indexEntry{key: key.Clone()}
		s.index[sk] = e
	}
	return e
}

func (s *Store[V]) evict(ctx context.Context, sk string) {
	s.mu.Lock()
	delete(s.index, sk)
	s.mu.Unlock()
	_ = s.provider.Del(ctx, sk)
}

func (s *Store[V]) selfHeal(ctx context.Context, sk, reason string) {
	s.evict(ctx, sk)
	s.hooks.SelfHeal(sk, reason)
	s.log.Warn("self-healed bad entry", Fields{"key": sk, "reason": reason})
}

func (s *Store[V]) storageKey(key Key) string {
	return "view:" + s.ns + ":" + key.String()
}

func (s *Store[V]) sweepLoop() {
	defer s.closeWg.Done()
	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep prunes index entries past their retention window. Provider deletes
// are best effort; most providers expire the bytes on their own TTL.
func (s *Store[V]) sweep() {
	cutoff := time.Now()
	var expired []string

	s.mu.RLock()
	for sk, e := range s.index {
		if cutoff.After(e.retainUntil) {
			expired = append(expired, sk)
		}
	}
	s.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	s.mu.Lock()
	for _, sk := range expired {
		if e, ok := s.index[sk]; ok && cutoff.After(e.retainUntil) {
			delete(s.index, sk)
		}
	}
	s.mu.Unlock()

	ctx := context.Background()
	for _, sk := range expired {
		_ = s.provider.Del(ctx, sk)
	}
	s.log.Debug("sweep removed expired entries", Fields{"removed": len(expired)})
}
