// CLAUDE:SUMMARY Immutable ViewState record for one tab: navigation, loading, security, visual metadata.
// Package viewstate is the immutable record describing one web view (a tab)
// and the pure transitions that move it between states.
//
// A State is a value. Every transition takes a State and returns a new one;
// nothing mutates in place, and maps are cloned before they are written so
// a value held by a caller never changes under it. Transitions are total:
// they never fail and never block.
package viewstate

import (
	"maps"

	"github.com/hazyhaar/tabview/idgen"
)

// ReadyState is a status/command tag: the last navigation directive issued
// (reload, stop, goBack, goForward) or the last load phase observed
// (loading, loaded). It is last-write-wins, not a guarded state machine.
type ReadyState string

const (
	ReadyNone      ReadyState = "none"
	ReadyLoading   ReadyState = "loading"
	ReadyLoaded    ReadyState = "loaded"
	ReadyStop      ReadyState = "stop"
	ReadyReload    ReadyState = "reload"
	ReadyGoBack    ReadyState = "goBack"
	ReadyGoForward ReadyState = "goForward"
)

// IsCommand reports whether r is a one-shot directive for the surface.
func (r ReadyState) IsCommand() bool {
	switch r {
	case ReadyStop, ReadyReload, ReadyGoBack, ReadyGoForward:
		return true
	}
	return false
}

// SecurityState is the page's transport security classification.
type SecurityState string

const (
	SecurityInsecure SecurityState = "insecure"
	SecurityBroken   SecurityState = "broken"
	SecuritySecure   SecurityState = "secure"
)

// Security is the payload of a securityChange event.
type Security struct {
	State              SecurityState `json:"state"`
	ExtendedValidation bool          `json:"extended_validation"`
}

// Icon describes one favicon advertised by the page.
type Icon struct {
	Href  string `json:"href"`
	Rel   string `json:"rel,omitempty"`
	Sizes string `json:"sizes,omitempty"`
	Type  string `json:"type,omitempty"`
}

// Meta is the page metadata blob (name/property → content). It is opaque
// to this package and always replaced wholesale.
type Meta map[string]string

// Zoom bounds.
const (
	MinZoom     = 0.5
	MaxZoom     = 2.0
	DefaultZoom = 1.0
	ZoomStep    = 0.1
)

// Unset marks a timestamp that has not been recorded in the current load.
const Unset int64 = -1

// State describes one view. Timestamps are milliseconds on a monotonic
// clock supplied by the caller; Unset when not recorded.
type State struct {
	ID        string     `json:"id"`
	UserInput string     `json:"user_input,omitempty"`
	Zoom      float64    `json:"zoom"`
	Ready     ReadyState `json:"ready_state"`

	IsLoading        bool `json:"is_loading"`
	IsConnecting     bool `json:"is_connecting"`
	IsFocused        bool `json:"is_focused"`
	IsActive         bool `json:"is_active"`
	IsSelected       bool `json:"is_selected"`
	IsPinned         bool `json:"is_pinned"`
	ContentOverflows bool `json:"content_overflows"`

	StartLoadingTime int64 `json:"start_loading_time"`
	ConnectedTime    int64 `json:"connected_time"`
	EndLoadingTime   int64 `json:"end_loading_time"`

	URI             string `json:"uri,omitempty"`
	Title           string `json:"title,omitempty"`
	BackgroundColor string `json:"background_color,omitempty"`
	ForegroundColor string `json:"foreground_color,omitempty"`
	IsDark          bool   `json:"is_dark"`

	// Thumbnail is a transient handle into the in-memory blob registry,
	// never a persisted value.
	Thumbnail string `json:"thumbnail,omitempty"`

	Icons map[string]Icon `json:"icons,omitempty"`
	Meta  Meta            `json:"meta,omitempty"`

	SecurityState              SecurityState `json:"security_state,omitempty"`
	SecurityExtendedValidation bool          `json:"security_extended_validation"`

	CanGoBack    bool `json:"can_go_back"`
	CanGoForward bool `json:"can_go_forward"`
}

// Option sets an initial field in Open.
type Option func(*State)

// WithURI sets the initial location. The address field shows it too.
func WithURI(uri string) Option {
	return func(s *State) {
		s.URI = uri
		s.UserInput = uri
	}
}

// WithTitle sets the initial title.
func WithTitle(title string) Option { return func(s *State) { s.Title = title } }

// WithZoom sets the initial zoom, clamped to [MinZoom, MaxZoom].
func WithZoom(z float64) Option { return func(s *State) { s.Zoom = clampZoom(z) } }

// WithPinned marks the view pinned.
func WithPinned(p bool) Option { return func(s *State) { s.IsPinned = p } }

// WithSelected marks the view selected.
func WithSelected(sel bool) Option { return func(s *State) { s.IsSelected = sel } }

// WithActive marks the view active.
func WithActive(a bool) Option { return func(s *State) { s.IsActive = a } }

// Open creates a new view with a fresh id from newID and the caller's
// fields merged over the defaults.
func Open(newID idgen.Generator, opts ...Option) State {
	s := defaults()
	for _, o := range opts {
		o(&s)
	}
	s.ID = newID()
	if s.URI != "" {
		s = withColors(s, s.URI)
	}
	return s
}

func defaults() State {
	return State{
		Zoom:             DefaultZoom,
		Ready:            ReadyNone,
		StartLoadingTime: Unset,
		ConnectedTime:    Unset,
		EndLoadingTime:   Unset,
	}
}

// Renderable reports whether the view has a location worth mounting.
// A view without a URI is never rendered and never gets a thumbnail.
func (s State) Renderable() bool {
	return s.URI != ""
}

// clone returns s with its maps detached from the receiver's.
func (s State) clone() State {
	s.Icons = maps.Clone(s.Icons)
	s.Meta = maps.Clone(s.Meta)
	return s
}
