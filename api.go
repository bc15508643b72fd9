package syncview

import (
	"time"

	c "github.com/planwheel/syncview/codec"
	pr "github.com/planwheel/syncview/provider"
)

// Provider is the byte store entries live in (see provider/ for Ristretto,
// BigCache and Redis implementations).
type Provider = pr.Provider

// Codec serializes values into cache entries (see codec/).
type Codec[V any] = c.Codec[V]

// Result is what a named query hands the rendering layer. Data may be a
// stale snapshot (Stale=true) while a refetch error is surfaced alongside;
// Loading is true only when neither cache nor remote produced data.
type Result[V any] struct {
	Data    V
	Loading bool
	Stale   bool
}

// RetryPolicy bounds the retry of transient read failures. Writes are never
// retried: a mutation is not re-issued mid-flight by this layer.
type RetryPolicy struct {
	MaxTries        uint          // 0 => 3
	InitialInterval time.Duration // 0 => 50ms
	MaxInterval     time.Duration // 0 => 1s
}

// Options tune the client. Only Remote is required.
type Options struct {
	// Required
	Remote Remote

	Provider      Provider       // nil => in-process ristretto store
	Logger        Logger         // nil => NopLogger
	Hooks         Hooks          // nil => NopHooks
	Policy        PolicyFunc     // nil => per-view defaults (see ViewPolicy)
	Retry         RetryPolicy    // zero => defaults
	Location      *time.Location // day boundary for the today view; nil => time.Local
	SweepInterval time.Duration  // 0 => 1m
}

// New builds the query/mutation surface over the remote service. The
// returned client owns its cache lifecycle: create one at application start
// and Close it on logout; tests instantiate isolated clients freely.
func New(opts Options) (*Client, error) {
	return newClient(opts)
}

// ViewPolicy is the default freshness policy per named view. Fast-moving
// views (today) are stale immediately and refetch on every access while
// still showing the last-known value; slow views keep for minutes.
func ViewPolicy(k Key) Policy {
	if len(k) == 0 {
		return DefaultPolicy(k)
	}
	switch k[0] {
	case "boards", "board-summaries", "sections":
		return Policy{StaleAfter: 5 * time.Minute, RetainFor: 30 * time.Minute}
	case "tasks":
		if k.HasPrefix(TodayTasksKey()) {
			return Policy{StaleAfter: 0, RetainFor: 10 * time.Minute}
		}
		return Policy{StaleAfter: 30 * time.Second, RetainFor: 30 * time.Minute}
	case "task", "board":
		return Policy{StaleAfter: time.Minute, RetainFor: 30 * time.Minute}
	default:
		return DefaultPolicy(k)
	}
}
