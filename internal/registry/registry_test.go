package registry

import (
	"sync"
	"testing"

	"inferd/internal/runtime"
)

// closeTracker records whether Close ran.
type closeTracker struct {
	mu     sync.Mutex
	closed bool
}

func (c *closeTracker) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *closeTracker) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestAcquireUnknown(t *testing.T) {
	r := New()
	if _, ok := r.Acquire(runtime.ModalityText, "missing"); ok {
		t.Fatal("acquire of unregistered name succeeded")
	}
}

func TestPutAcquireRelease(t *testing.T) {
	r := New()
	rt := &closeTracker{}
	r.Put(runtime.ModalityText, "m1", rt)

	h, ok := r.Acquire(runtime.ModalityText, "m1")
	if !ok {
		t.Fatal("acquire failed")
	}
	if h.Name() != "m1" || h.Modality() != runtime.ModalityText {
		t.Fatalf("handle: %s/%s", h.Name(), h.Modality())
	}
	h.Release()
	if rt.isClosed() {
		t.Fatal("release of a live handle closed the runtime")
	}
}

func TestRemoveClosesWhenIdle(t *testing.T) {
	r := New()
	rt := &closeTracker{}
	r.Put(runtime.ModalityText, "m1", rt)
	if !r.Remove(runtime.ModalityText, "m1") {
		t.Fatal("remove failed")
	}
	if !rt.isClosed() {
		t.Fatal("idle handle not closed on remove")
	}
	if r.Remove(runtime.ModalityText, "m1") {
		t.Fatal("second remove succeeded")
	}
}

func TestRemoveDefersCloseToLastHolder(t *testing.T) {
	r := New()
	rt := &closeTracker{}
	r.Put(runtime.ModalityText, "m1", rt)

	h, _ := r.Acquire(runtime.ModalityText, "m1")
	if !r.Remove(runtime.ModalityText, "m1") {
		t.Fatal("remove failed")
	}
	if rt.isClosed() {
		t.Fatal("runtime closed while a reference is held")
	}
	h.Release()
	if !rt.isClosed() {
		t.Fatal("runtime not closed after last release")
	}
}

func TestHotSwapKeepsOldHandleValid(t *testing.T) {
	r := New()
	oldRT := &closeTracker{}
	newRT := &closeTracker{}
	r.Put(runtime.ModalityText, "m1", oldRT)

	h, _ := r.Acquire(runtime.ModalityText, "m1")
	r.Put(runtime.ModalityText, "m1", newRT)

	// In-flight holder still works against the old runtime.
	if rt, ok := h.Runtime().(*closeTracker); !ok || rt != oldRT {
		t.Fatal("old handle rebound")
	}
	if oldRT.isClosed() {
		t.Fatal("old runtime closed while held")
	}

	// New dispatches resolve the replacement.
	h2, _ := r.Acquire(runtime.ModalityText, "m1")
	if rt, ok := h2.Runtime().(*closeTracker); !ok || rt != newRT {
		t.Fatal("new acquire did not see replacement")
	}
	h2.Release()

	h.Release()
	if !oldRT.isClosed() {
		t.Fatal("old runtime not closed after last holder released")
	}
	if newRT.isClosed() {
		t.Fatal("replacement closed")
	}
}

func TestListSortedSnapshot(t *testing.T) {
	r := New()
	r.Put(runtime.ModalityText, "zeta", &closeTracker{})
	r.Put(runtime.ModalityText, "alpha", &closeTracker{})
	r.Put(runtime.ModalityEmbedding, "emb", &closeTracker{})

	names := r.List(runtime.ModalityText)
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("names=%v", names)
	}
	if r.Len(runtime.ModalityEmbedding) != 1 {
		t.Fatalf("embedding len=%d", r.Len(runtime.ModalityEmbedding))
	}
	if got := r.List(runtime.ModalityImage); len(got) != 0 {
		t.Fatalf("image names=%v", got)
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	r := New()
	rt := &closeTracker{}
	r.Put(runtime.ModalityText, "m1", rt)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h, ok := r.Acquire(runtime.ModalityText, "m1")
				if !ok {
					t.Error("acquire failed")
					return
				}
				h.Release()
			}
		}()
	}
	wg.Wait()
	if rt.isClosed() {
		t.Fatal("runtime closed while still registered")
	}
}
