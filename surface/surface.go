// CLAUDE:SUMMARY Content-surface boundary: event kinds and payloads emitted by a web view, and the command interface it accepts.
// Package surface defines the boundary between a view's state and the
// engine that renders its content. A Surface emits Events and accepts
// navigation commands; everything else about it is opaque.
package surface

import (
	"context"

	"github.com/hazyhaar/tabview/thumbnail"
	"github.com/hazyhaar/tabview/viewstate"
)

// Kind names a surface event.
type Kind string

const (
	CanGoBackChange    Kind = "canGoBackChange"
	CanGoForwardChange Kind = "canGoForwardChange"
	Blur               Kind = "blur"
	Focus              Kind = "focus"
	LoadStart          Kind = "loadStart"
	LoadEnd            Kind = "loadEnd"
	MetaChange         Kind = "metaChange"
	IconChange         Kind = "iconChange"
	LocationChange     Kind = "locationChange"
	SecurityChange     Kind = "securityChange"
	TitleChange        Kind = "titleChange"
	ScrollAreaChange   Kind = "scrollAreaChange"
	LoadProgressChange Kind = "loadProgressChange"

	// Tab management requests, forwarded to the window.
	Close      Kind = "close"
	OpenWindow Kind = "openWindow"
	OpenTab    Kind = "openTab"

	// Diagnostics, forwarded to the diagnostics log.
	Error       Kind = "error"
	AuthPrompt  Kind = "authPrompt"
	ContextMenu Kind = "contextMenu"
)

// IsDiagnostic reports whether k carries a report rather than a state change.
func (k Kind) IsDiagnostic() bool {
	return k == Error || k == AuthPrompt || k == ContextMenu
}

// ScrollArea is the payload of ScrollAreaChange.
type ScrollArea struct {
	ContentHeight  float64 `json:"content_height"`
	ViewportHeight float64 `json:"viewport_height"`
}

// Overflows reports whether the content is taller than the viewport.
func (a ScrollArea) Overflows() bool {
	return a.ContentHeight > a.ViewportHeight
}

// Event is one signal from the surface. Only the payload field matching
// Kind is meaningful.
type Event struct {
	Kind Kind `json:"kind"`

	// Flag carries CanGoBackChange / CanGoForwardChange.
	Flag bool `json:"flag,omitempty"`

	// Text carries LocationChange, TitleChange, OpenTab / OpenWindow
	// (target URL) and diagnostic messages.
	Text string `json:"text,omitempty"`

	Icon     viewstate.Icon     `json:"icon,omitzero"`
	Security viewstate.Security `json:"security,omitzero"`
	Meta     viewstate.Meta     `json:"meta,omitempty"`
	Scroll   ScrollArea         `json:"scroll,omitzero"`
}

// Surface is one embedded content view.
type Surface interface {
	thumbnail.Capturer

	// Events returns the event stream. It is closed when the surface is
	// closed or its engine goes away.
	Events() <-chan Event

	Navigate(ctx context.Context, uri string) error
	Reload(ctx context.Context) error
	Stop(ctx context.Context) error
	GoBack(ctx context.Context) error
	GoForward(ctx context.Context) error
	SetZoom(ctx context.Context, zoom float64) error

	Close() error
}

// Factory opens a new surface at uri (may be empty for a blank view).
type Factory func(ctx context.Context, uri string) (Surface, error)
