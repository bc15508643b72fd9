package syncview

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; the store and executor
// call them on hot paths. Wrap with hooks/async to move work off-path.
type Hooks interface {
	// An optimistic patch was written into `touched` cache entries,
	// synchronously, before the remote write was issued.
	OptimisticApplied(mutationID, entityID string, touched int)

	// The remote write succeeded; dependents are being invalidated.
	MutationCommitted(mutationID, entityID string)

	// The remote write failed; every touched entry was restored.
	MutationRolledBack(mutationID, entityID string, err error)

	// A resolved remote read was discarded because the key's version moved
	// while the read was in flight (optimistic patch landed first).
	ReadSuperseded(storageKey string)

	// An entry was deleted by the store on read.
	// reason ∈ {"corrupt", "version_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) OptimisticApplied(string, string, int)     {}
func (NopHooks) MutationCommitted(string, string)          {}
func (NopHooks) MutationRolledBack(string, string, error)  {}
func (NopHooks) ReadSuperseded(string)                     {}
func (NopHooks) SelfHeal(string, string)                   {}
func (NopHooks) ProviderSetRejected(string)                {}
