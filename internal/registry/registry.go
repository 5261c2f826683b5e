// Package registry maintains the per-modality mapping from model name to
// live backend handle. Reads are concurrent and never wait on inference;
// writes hold the map lock only for the mutation itself. Handles are
// reference counted so a hot-swap or unload never invalidates a handle a
// request already resolved: the backing runtime is closed when the last
// holder releases it.
package registry

import (
	"sort"
	"sync"

	"inferd/internal/runtime"
)

// Handle is a named, capability-tagged backend instance. Callers obtain one
// via Acquire and must call Release exactly once when the request reaches a
// terminal state (use defer).
type Handle struct {
	name     string
	modality runtime.Modality
	rt       runtime.Runtime

	mu      sync.Mutex
	refs    int
	retired bool
	closed  bool
}

// Name returns the registered model name.
func (h *Handle) Name() string { return h.name }

// Modality returns the handle's capability class.
func (h *Handle) Modality() runtime.Modality { return h.modality }

// Runtime returns the backend instance behind the handle.
func (h *Handle) Runtime() runtime.Runtime { return h.rt }

// Release drops one reference. Once the handle has been retired from the
// registry and the last reference is gone, the backing runtime is closed.
func (h *Handle) Release() {
	h.mu.Lock()
	if h.refs > 0 {
		h.refs--
	}
	shouldClose := h.retired && h.refs == 0 && !h.closed
	if shouldClose {
		h.closed = true
	}
	h.mu.Unlock()
	if shouldClose {
		_ = h.rt.Close()
	}
}

// acquire increments the reference count. Called with the registry read
// lock held, which excludes concurrent retirement.
func (h *Handle) acquire() {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
}

// retire marks the handle as removed from the registry. If nothing holds a
// reference anymore, the runtime is closed immediately; otherwise the last
// Release closes it.
func (h *Handle) retire() {
	h.mu.Lock()
	shouldClose := h.refs == 0 && !h.closed
	h.retired = true
	if shouldClose {
		h.closed = true
	}
	h.mu.Unlock()
	if shouldClose {
		_ = h.rt.Close()
	}
}

// Registry is the shared mutable name → handle map, one namespace per
// modality. At most one handle exists per (modality, name) at any instant.
type Registry struct {
	mu      sync.RWMutex
	handles map[runtime.Modality]map[string]*Handle
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{handles: make(map[runtime.Modality]map[string]*Handle)}
}

// Acquire resolves a handle for dispatch and takes a reference on it.
// The second return is false when no handle is registered under the name.
func (r *Registry) Acquire(mod runtime.Modality, name string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[mod][name]
	if !ok {
		return nil, false
	}
	h.acquire()
	return h, true
}

// Put inserts or hot-swaps the handle for (mod, name). A replaced handle is
// retired: in-flight holders keep using it; new dispatches see the new one.
func (r *Registry) Put(mod runtime.Modality, name string, rt runtime.Runtime) {
	h := &Handle{name: name, modality: mod, rt: rt}
	r.mu.Lock()
	byName, ok := r.handles[mod]
	if !ok {
		byName = make(map[string]*Handle)
		r.handles[mod] = byName
	}
	old := byName[name]
	byName[name] = h
	r.mu.Unlock()
	if old != nil {
		old.retire()
	}
}

// Remove deletes the mapping for (mod, name) and retires the handle. It
// returns false when the name was not registered. In-flight holders of the
// removed handle are unaffected.
func (r *Registry) Remove(mod runtime.Modality, name string) bool {
	r.mu.Lock()
	h, ok := r.handles[mod][name]
	if ok {
		delete(r.handles[mod], name)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	h.retire()
	return true
}

// List returns a sorted snapshot of the names registered for a modality.
func (r *Registry) List(mod runtime.Modality) []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.handles[mod]))
	for name := range r.handles[mod] {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len reports the number of handles registered for a modality.
func (r *Registry) Len(mod runtime.Modality) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles[mod])
}
