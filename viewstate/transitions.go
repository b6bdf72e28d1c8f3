package viewstate

import (
	"maps"
	"math"

	"github.com/hazyhaar/tabview/theme"
)

// --- Navigation commands ---
// The surface boundary reads these tags as one-shot directives; the load
// events it emits afterwards move the tag on.

// Reload requests a reload of the current page.
func Reload(s State) State { s.Ready = ReadyReload; return s }

// Stop requests the current load be stopped.
func Stop(s State) State { s.Ready = ReadyStop; return s }

// GoBack requests a history step back.
func GoBack(s State) State { s.Ready = ReadyGoBack; return s }

// GoForward requests a history step forward.
func GoForward(s State) State { s.Ready = ReadyGoForward; return s }

// --- Zoom ---

// ZoomIn raises zoom by one step, capped at MaxZoom.
func ZoomIn(s State) State { s.Zoom = clampZoom(s.Zoom + ZoomStep); return s }

// ZoomOut lowers zoom by one step, floored at MinZoom.
func ZoomOut(s State) State { s.Zoom = clampZoom(s.Zoom - ZoomStep); return s }

// ZoomReset drops any zoom override.
func ZoomReset(s State) State { s.Zoom = DefaultZoom; return s }

// clampZoom rounds to one decimal so repeated steps never drift, then
// clamps to [MinZoom, MaxZoom].
func clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return DefaultZoom
	}
	z = math.Round(z*10) / 10
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

// --- Load lifecycle ---

// StartLoad enters a new load cycle at now. Everything describing the
// previous page (icons, thumbnail, title, security, history flags) is
// stale and cleared.
func StartLoad(s State, now int64) State {
	s.IsLoading = true
	s.IsConnecting = true
	s.Ready = ReadyLoading
	s.StartLoadingTime = now
	s.Icons = nil
	s.Thumbnail = ""
	s.Title = ""
	s.SecurityState = ""
	s.SecurityExtendedValidation = false
	s.CanGoBack = false
	s.CanGoForward = false
	return s
}

// EndLoad closes the load cycle at now.
func EndLoad(s State, now int64) State {
	s.IsLoading = false
	s.IsConnecting = false
	s.Ready = ReadyLoaded
	s.EndLoadingTime = now
	return s
}

// ChangeProgress records the first-byte milestone. Only the first progress
// signal of a load counts; afterwards IsConnecting is false and the state
// is returned unchanged.
func ChangeProgress(s State, now int64) State {
	if !s.IsConnecting {
		return s
	}
	s.IsConnecting = false
	s.ConnectedTime = now
	return s
}

// ChangeLocation records a committed navigation to uri and merges the
// colors derived for it.
func ChangeLocation(s State, uri string) State {
	s.URI = uri
	s.UserInput = uri
	if s.IsLoading {
		s.Ready = ReadyLoading
	} else {
		s.Ready = ReadyLoaded
	}
	return withColors(s, uri)
}

func withColors(s State, uri string) State {
	c := theme.Derive(uri)
	s.BackgroundColor = c.Background
	s.ForegroundColor = c.Foreground
	s.IsDark = c.IsDark
	return s
}

// --- Page metadata ---

// ChangeIcon upserts icon keyed by its href.
func ChangeIcon(s State, icon Icon) State {
	icons := maps.Clone(s.Icons)
	if icons == nil {
		icons = make(map[string]Icon, 1)
	}
	icons[icon.Href] = icon
	s.Icons = icons
	return s
}

// ChangeSecurity replaces the security classification.
func ChangeSecurity(s State, sec Security) State {
	s.SecurityState = sec.State
	s.SecurityExtendedValidation = sec.ExtendedValidation
	return s
}

// SetContentOverflows records whether the content is taller than the viewport.
func SetContentOverflows(s State, v bool) State { s.ContentOverflows = v; return s }

// SetTitle replaces the page title.
func SetTitle(s State, title string) State { s.Title = title; return s }

// SetCanGoBack records back-history availability.
func SetCanGoBack(s State, v bool) State { s.CanGoBack = v; return s }

// SetCanGoForward records forward-history availability.
func SetCanGoForward(s State, v bool) State { s.CanGoForward = v; return s }

// SetMetaData replaces the metadata blob wholesale.
func SetMetaData(s State, m Meta) State { s.Meta = maps.Clone(m); return s }

// OnThumbnailReady attaches a thumbnail handle.
func OnThumbnailReady(s State, handle string) State { s.Thumbnail = handle; return s }

// --- Focus, selection, pinning ---

// Focus marks the content surface focused.
func Focus(s State) State { s.IsFocused = true; return s }

// Blur marks the content surface unfocused.
func Blur(s State) State { s.IsFocused = false; return s }

// SetUserInput records text typed in the address field.
func SetUserInput(s State, input string) State { s.UserInput = input; return s }

// Select marks the view as the selected tab.
func Select(s State) State { s.IsSelected = true; return s }

// Deselect clears the selected flag.
func Deselect(s State) State { s.IsSelected = false; return s }

// Activate marks the view as shown.
func Activate(s State) State { s.IsActive = true; return s }

// Deactivate marks the view as hidden.
func Deactivate(s State) State { s.IsActive = false; return s }

// Pin pins the tab.
func Pin(s State) State { s.IsPinned = true; return s }

// Unpin unpins the tab.
func Unpin(s State) State { s.IsPinned = false; return s }
