package shell

import (
	"github.com/hazyhaar/tabview/dbopen"
	"github.com/hazyhaar/tabview/shell/internal/store"
)

// Store is the tabview SQLite store. Re-exported from internal.
type Store = store.Store

// Diagnostic is one recorded surface report.
type Diagnostic = store.Diagnostic

// OpenStore opens (or creates) the tabview database at path.
func OpenStore(path string, opts ...dbopen.Option) (*Store, error) {
	return store.Open(path, opts...)
}
