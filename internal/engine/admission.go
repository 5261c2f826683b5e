package engine

import (
	"context"
	"sync"
)

// admit reserves an inbound queue slot, waits (context-aware) for an
// execution permit from the gate, then frees the slot. The queue is purely a
// waiting room for requests that have not yet acquired a permit, so its depth
// never caps how many requests execute concurrently. A full queue rejects
// immediately instead of growing unbounded. The returned release func is
// idempotent and must be deferred so the permit is returned on every exit
// path, including panics.
func (e *Engine) admit(ctx context.Context) (func(), error) {
	select {
	case e.queueCh <- struct{}{}:
		queuedGauge.Inc()
	default:
		admissionRejectedTotal.Inc()
		return nil, ErrAdmissionRejected()
	}

	err := e.gate.Acquire(ctx, 1)
	<-e.queueCh
	queuedGauge.Dec()
	if err != nil {
		return nil, err
	}
	executingGauge.Inc()

	var once sync.Once
	release := func() {
		once.Do(func() {
			e.gate.Release(1)
			executingGauge.Dec()
		})
	}
	return release, nil
}
