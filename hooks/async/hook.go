// Package asynchook moves hook callbacks off the store's hot path.
//
// usage:
//
//	raw := myHooks{} // your syncview.Hooks implementation
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	client, _ := syncview.New(syncview.Options{
//	    Remote: remote,
//	    Hooks:  hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/planwheel/syncview"
)

type Hooks struct {
	inner syncview.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ syncview.Hooks = (*Hooks)(nil)

func New(inner syncview.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) OptimisticApplied(m, e string, n int) {
	h.try(func() { h.inner.OptimisticApplied(m, e, n) })
}
func (h *Hooks) MutationCommitted(m, e string) {
	h.try(func() { h.inner.MutationCommitted(m, e) })
}
func (h *Hooks) MutationRolledBack(m, e string, err error) {
	h.try(func() { h.inner.MutationRolledBack(m, e, err) })
}
func (h *Hooks) ReadSuperseded(k string)   { h.try(func() { h.inner.ReadSuperseded(k) }) }
func (h *Hooks) SelfHeal(k, reason string) { h.try(func() { h.inner.SelfHeal(k, reason) }) }
func (h *Hooks) ProviderSetRejected(k string) {
	h.try(func() { h.inner.ProviderSetRejected(k) })
}
