// CLAUDE:SUMMARY Image type, sentinel errors, and origin key derivation for thumbnail lookup.
package thumbnail

import (
	"context"
	"errors"

	"github.com/hazyhaar/tabview/theme"
)

var (
	// ErrCancelled is returned when the view navigated away before a
	// thumbnail was ready.
	ErrCancelled = errors.New("thumbnail: cancelled by navigation")

	// ErrNotFound is returned by a Lookup that has no image for an origin.
	ErrNotFound = errors.New("thumbnail: not found")

	// ErrNoURI is returned for views without a location.
	ErrNoURI = errors.New("thumbnail: view has no uri")
)

// Image is encoded image data.
type Image struct {
	Data []byte `json:"-"`
	MIME string `json:"mime"`
}

// Lookup reads persisted thumbnails keyed by origin.
type Lookup interface {
	Lookup(ctx context.Context, origin string) (Image, error)
}

// Capturer takes a live screenshot of the content, sized in device pixels.
type Capturer interface {
	Capture(ctx context.Context, width, height int) (Image, error)
}

// Origin returns the persisted-store key for uri: its registrable domain,
// or the host when there is none. Empty for host-less URIs.
func Origin(uri string) string {
	return theme.Domain(uri)
}
