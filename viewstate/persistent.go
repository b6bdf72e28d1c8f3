package viewstate

// ToPersistent projects s onto the fields that are safe to keep across
// sessions. Transient and session-only fields are reset: thumbnail,
// ready state, loading flags, timestamps, colors, title, security and
// history availability. Applying it twice yields the same value.
func ToPersistent(s State) State {
	p := s.clone()
	p.Thumbnail = ""
	p.Ready = ReadyNone
	p.IsLoading = false
	p.IsConnecting = false
	p.StartLoadingTime = Unset
	p.ConnectedTime = Unset
	p.EndLoadingTime = Unset
	p.BackgroundColor = ""
	p.ForegroundColor = ""
	p.IsDark = false
	p.Title = ""
	p.SecurityState = ""
	p.SecurityExtendedValidation = false
	p.CanGoBack = false
	p.CanGoForward = false
	p.Zoom = clampZoom(p.Zoom)
	return p
}

// Restore rebuilds a live state from a persisted projection. The id is
// kept; derived colors are recomputed from the restored URI.
func Restore(p State) State {
	s := ToPersistent(p)
	if s.URI != "" {
		s = withColors(s, s.URI)
	}
	return s
}
