// Package asynchook decouples hook sinks from the store's hot path.
// Events are queued and delivered by background workers; when the queue is
// full, events are dropped rather than blocking a request.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    AuthRejectedEvery: 10, // sample: ~every 10th rejection
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	store, _ := kvgate.New(kvgate.Options{
//	    Backend: backend,
//	    Hooks:   hooks, // or `raw` if your sink never blocks
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/kvgate"
)

type Hooks struct {
	inner kvgate.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ kvgate.Hooks = (*Hooks)(nil)

func New(inner kvgate.Hooks, workers, qlen int) *Hooks {
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

func (h *Hooks) AuthRejected(op string)            { h.try(func() { h.inner.AuthRejected(op) }) }
func (h *Hooks) BackendFault(op string, err error) { h.try(func() { h.inner.BackendFault(op, err) }) }
func (h *Hooks) ScanSkipped(backendKey string)     { h.try(func() { h.inner.ScanSkipped(backendKey) }) }
