// Package handle implements the process-global handle table described in
// spec.md §3 ("Handles instead of pointers") and §9 ("Share-id"). Every
// cross-component reference — chip, file, i2c, spi, serial, notify,
// script — is resolved through here instead of being passed around as a
// pointer, which is what keeps the wire protocol (internal/daemon)
// trivially representable and keeps stale-handle reuse detectable.
//
// The allocator/lookup pattern (a sync.RWMutex-guarded slice of entries
// with a free list of released slots) is the same shape as the teacher's
// registry.RegisterBuilder / Lookup; here the table holds live resources
// instead of builders, and entries are released instead of being permanent.
package handle

import (
	"sync"

	"github.com/sbcgo/rgpiod/internal/gpioerr"
)

// Kind identifies which resource table a handle belongs to.
type Kind uint8

const (
	KindChip Kind = iota
	KindFile
	KindI2C
	KindSPI
	KindSerial
	KindNotify
	KindScript
)

// Handle is the 32-bit token (kind:4 | generation:4 | index:24) from
// spec.md §3. The generation nibble detects stale use: a released slot's
// generation is bumped before reuse, so a caller holding an old Handle
// value gets BadHandle instead of silently touching the new occupant.
type Handle uint32

const (
	indexBits      = 24
	indexMask      = 1<<indexBits - 1
	generationBits = 4
	generationMask = 1<<generationBits - 1
)

func pack(k Kind, generation uint8, index uint32) Handle {
	return Handle(uint32(k&0xF)<<28 | uint32(generation&generationMask)<<24 | (index & indexMask))
}

func (h Handle) Kind() Kind       { return Kind((h >> 28) & 0xF) }
func (h Handle) Generation() uint8 { return uint8((h >> 24) & generationMask) }
func (h Handle) Index() uint32    { return uint32(h) & indexMask }

// entry wraps a live resource with the generation it was allocated under.
type entry struct {
	generation uint8
	shareID    string
	owner      string // opaque session/owner tag, for diagnostics
	res        any
}

// Registry is the process-global (or, in the daemon, per-process but
// share-id-partitioned) handle table for one resource Kind.
type Registry struct {
	mu      sync.RWMutex
	kind    Kind
	entries []*entry // index -> entry; nil slots are free
	gens    []uint8  // index -> generation of the slot's latest occupant
	free    []uint32
}

func NewRegistry(k Kind) *Registry {
	return &Registry{kind: k}
}

// Alloc installs res and returns a fresh Handle. shareID groups the handle
// into a second-level namespace (spec.md §9); owner is the session or
// process tag that created it, matched by OwnedBy.
func (r *Registry) Alloc(res any, shareID, owner string) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx uint32
	var gen uint8
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
		gen = (r.gens[idx] + 1) & generationMask
	} else {
		idx = uint32(len(r.entries))
		r.entries = append(r.entries, nil)
		r.gens = append(r.gens, 0)
		gen = 0
	}
	r.gens[idx] = gen
	r.entries[idx] = &entry{generation: gen, shareID: shareID, owner: owner, res: res}
	return pack(r.kind, gen, idx)
}

// Resolve returns the live resource for h, or BadHandle if h is stale,
// out of range, or belongs to another Kind.
func (r *Registry) Resolve(h Handle) (any, error) {
	if h.Kind() != r.kind {
		return nil, gpioerr.BadHandle
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := h.Index()
	if int(idx) >= len(r.entries) {
		return nil, gpioerr.BadHandle
	}
	e := r.entries[idx]
	if e == nil || e.generation != h.Generation() {
		return nil, gpioerr.BadHandle
	}
	return e.res, nil
}

// Release frees h's slot for reuse. It is a no-op (returns BadHandle) if h
// is already stale.
func (r *Registry) Release(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := h.Index()
	if h.Kind() != r.kind || int(idx) >= len(r.entries) {
		return gpioerr.BadHandle
	}
	e := r.entries[idx]
	if e == nil || e.generation != h.Generation() {
		return gpioerr.BadHandle
	}
	r.entries[idx] = nil
	r.free = append(r.free, idx)
	return nil
}

// OwnedBy returns every live handle allocated under owner OR under
// shareID. The daemon's disconnect cleanup does not call it; it walks the
// session's own handle set instead.
func (r *Registry) OwnedBy(owner, shareID string) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Handle
	for idx, e := range r.entries {
		if e == nil {
			continue
		}
		if e.owner == owner || (shareID != "" && e.shareID == shareID) {
			out = append(out, pack(r.kind, e.generation, uint32(idx)))
		}
	}
	return out
}

// Count returns the number of live handles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.entries {
		if e != nil {
			n++
		}
	}
	return n
}
