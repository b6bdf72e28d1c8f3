package thumbnail

import (
	"sync"

	"github.com/hazyhaar/tabview/idgen"
)

// Registry holds thumbnail images in memory behind opaque handles, the
// way a page holds object URLs. Handles are what view state carries.
type Registry struct {
	mu    sync.RWMutex
	blobs map[string]Image
	newID idgen.Generator
}

// NewRegistry creates an empty registry. A nil gen uses "blob:" + UUIDv7.
func NewRegistry(gen idgen.Generator) *Registry {
	if gen == nil {
		gen = idgen.Prefixed("blob:", idgen.Default)
	}
	return &Registry{blobs: make(map[string]Image), newID: gen}
}

// Put stores img and returns its handle.
func (r *Registry) Put(img Image) string {
	h := r.newID()
	r.mu.Lock()
	r.blobs[h] = img
	r.mu.Unlock()
	return h
}

// Get returns the image behind handle.
func (r *Registry) Get(handle string) (Image, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.blobs[handle]
	return img, ok
}

// Revoke releases handle. Unknown handles are ignored.
func (r *Registry) Revoke(handle string) {
	if handle == "" {
		return
	}
	r.mu.Lock()
	delete(r.blobs, handle)
	r.mu.Unlock()
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}
