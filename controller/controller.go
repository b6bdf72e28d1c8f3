// CLAUDE:SUMMARY Per-view controller: maps surface events to state transitions, issues surface commands, runs thumbnail acquisitions.
// Package controller binds one content surface to one view state.
//
// Each surface event becomes exactly one viewstate transition (see the
// table in handle). Location changes additionally start a thumbnail
// acquisition, superseding the previous one; load completion releases the
// acquisition's capture step. Commands flow the other way: a command
// transition (reload, stop, goBack, goForward) is applied to the state and
// then issued once to the surface.
//
// The controller's mutex is the view's event loop: transitions, the
// acquisition bookkeeping, and applying an acquisition result all happen
// under it, so an acquisition that was superseded can never attach its
// image after the navigation that superseded it.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/tabview/surface"
	"github.com/hazyhaar/tabview/thumbnail"
	"github.com/hazyhaar/tabview/viewstate"
)

// Host owns the view state. Apply runs fn on the view with id and stores
// the result, returning the state before and after. ok is false when the
// view no longer exists.
type Host interface {
	Apply(id string, fn func(viewstate.State) viewstate.State) (prev, next viewstate.State, ok bool)
}

// TabManager receives the tab management requests a surface emits.
type TabManager interface {
	CloseView(ctx context.Context, id string) error
	OpenTab(ctx context.Context, uri, openerID string) error
	OpenWindow(ctx context.Context, uri, openerID string) error
}

// Diagnostics receives page errors, auth prompts and context menus. They
// never affect view state.
type Diagnostics interface {
	Report(ctx context.Context, viewID string, ev surface.Event)
}

// Saver persists attached thumbnails by origin so later acquisitions for
// the same site hit the cached path.
type Saver interface {
	Save(ctx context.Context, origin string, img thumbnail.Image) error
}

// Config wires a Controller.
type Config struct {
	ID       string
	Surface  surface.Surface
	Host     Host
	Tabs     TabManager
	Diag     Diagnostics
	Acquirer *thumbnail.Acquirer
	Blobs    *thumbnail.Registry
	Saver    Saver

	// Now returns the monotonic clock in milliseconds. Default: time since
	// the controller was created.
	Now func() int64

	Logger *slog.Logger
}

// Controller drives one view.
type Controller struct {
	id       string
	surf     surface.Surface
	host     Host
	tabs     TabManager
	diag     Diagnostics
	acquirer *thumbnail.Acquirer
	blobs    *thumbnail.Registry
	saver    Saver
	now      func() int64
	logger   *slog.Logger

	mu  sync.Mutex
	acq *acquisition

	wg sync.WaitGroup
}

// New creates a Controller. Call Run to start consuming events.
func New(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		epoch := time.Now()
		cfg.Now = func() int64 { return time.Since(epoch).Milliseconds() }
	}
	if cfg.Acquirer == nil {
		cfg.Acquirer = thumbnail.New(thumbnail.Config{Logger: cfg.Logger})
	}
	if cfg.Blobs == nil {
		cfg.Blobs = thumbnail.NewRegistry(nil)
	}
	return &Controller{
		id:       cfg.ID,
		surf:     cfg.Surface,
		host:     cfg.Host,
		tabs:     cfg.Tabs,
		diag:     cfg.Diag,
		acquirer: cfg.Acquirer,
		blobs:    cfg.Blobs,
		saver:    cfg.Saver,
		now:      cfg.Now,
		logger:   cfg.Logger.With("view", cfg.ID),
	}
}

// ID returns the view id.
func (c *Controller) ID() string { return c.id }

// Surface returns the controlled surface.
func (c *Controller) Surface() surface.Surface { return c.surf }

// Run consumes surface events until the stream closes or ctx is done.
// Pending acquisitions are superseded on return.
func (c *Controller) Run(ctx context.Context) error {
	defer c.supersede()
	events := c.surf.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				c.logger.Debug("controller: surface closed")
				return nil
			}
			c.handle(ctx, ev)
		}
	}
}

// Wait blocks until every acquisition goroutine has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close supersedes any running acquisition and closes the surface.
func (c *Controller) Close() error {
	c.supersede()
	return c.surf.Close()
}

// handle maps one surface event onto the view.
//
//	canGoBackChange     setCanGoBack(flag)
//	canGoForwardChange  setCanGoForward(flag)
//	blur / focus        blur / focus
//	loadStart           startLoad(now)
//	loadEnd             endLoad(now), release capture
//	metaChange          setMetaData(meta)
//	iconChange          changeIcon(icon)
//	locationChange      changeLocation(uri), start acquisition (already
//	                    loaded when no load cycle is running)
//	securityChange      changeSecurity(sec)
//	titleChange         setTitle(text)
//	scrollAreaChange    setContentOverflows(content > viewport)
//	loadProgressChange  changeProgress(now)
//	close/openTab/openWindow  forwarded to TabManager
//	error/authPrompt/contextMenu  forwarded to Diagnostics
func (c *Controller) handle(ctx context.Context, ev surface.Event) {
	switch ev.Kind {
	case surface.Close:
		c.forward(ctx, ev, func() error { return c.tabs.CloseView(ctx, c.id) })
		return
	case surface.OpenTab:
		c.forward(ctx, ev, func() error { return c.tabs.OpenTab(ctx, ev.Text, c.id) })
		return
	case surface.OpenWindow:
		c.forward(ctx, ev, func() error { return c.tabs.OpenWindow(ctx, ev.Text, c.id) })
		return
	}
	if ev.Kind.IsDiagnostic() {
		if c.diag != nil {
			c.diag.Report(ctx, c.id, ev)
		}
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case surface.CanGoBackChange:
		c.apply(func(s viewstate.State) viewstate.State { return viewstate.SetCanGoBack(s, ev.Flag) })
	case surface.CanGoForwardChange:
		c.apply(func(s viewstate.State) viewstate.State { return viewstate.SetCanGoForward(s, ev.Flag) })
	case surface.Blur:
		c.apply(viewstate.Blur)
	case surface.Focus:
		c.apply(viewstate.Focus)
	case surface.LoadStart:
		now := c.now()
		c.apply(func(s viewstate.State) viewstate.State { return viewstate.StartLoad(s, now) })
	case surface.LoadEnd:
		now := c.now()
		next, ok := c.apply(func(s viewstate.State) viewstate.State { return viewstate.EndLoad(s, now) })
		if ok {
			c.loadedLocked(ctx, next)
		}
	case surface.MetaChange:
		c.apply(func(s viewstate.State) viewstate.State { return viewstate.SetMetaData(s, ev.Meta) })
	case surface.IconChange:
		c.apply(func(s viewstate.State) viewstate.State { return viewstate.ChangeIcon(s, ev.Icon) })
	case surface.LocationChange:
		next, ok := c.apply(func(s viewstate.State) viewstate.State { return viewstate.ChangeLocation(s, ev.Text) })
		if ok {
			// Same-document navigations arrive outside a load cycle; no
			// loadEnd follows them.
			c.acquireLocked(ctx, next.URI, !next.IsLoading)
		}
	case surface.SecurityChange:
		c.apply(func(s viewstate.State) viewstate.State { return viewstate.ChangeSecurity(s, ev.Security) })
	case surface.TitleChange:
		c.apply(func(s viewstate.State) viewstate.State { return viewstate.SetTitle(s, ev.Text) })
	case surface.ScrollAreaChange:
		over := ev.Scroll.Overflows()
		c.apply(func(s viewstate.State) viewstate.State { return viewstate.SetContentOverflows(s, over) })
	case surface.LoadProgressChange:
		now := c.now()
		c.apply(func(s viewstate.State) viewstate.State { return viewstate.ChangeProgress(s, now) })
	default:
		c.logger.Debug("controller: unknown event", "kind", ev.Kind)
	}
}

func (c *Controller) forward(ctx context.Context, ev surface.Event, fn func() error) {
	if c.tabs == nil {
		c.logger.Debug("controller: no tab manager", "kind", ev.Kind)
		return
	}
	if err := fn(); err != nil {
		c.logger.Warn("controller: tab request failed", "kind", ev.Kind, "uri", ev.Text, "error", err)
	}
}

// apply runs fn through the host. A thumbnail handle the transition
// dropped is revoked from the blob registry. Must hold c.mu.
func (c *Controller) apply(fn func(viewstate.State) viewstate.State) (viewstate.State, bool) {
	_, next, ok := c.applyPrev(fn)
	return next, ok
}

// applyPrev is apply that also returns the state before fn. Must hold c.mu.
func (c *Controller) applyPrev(fn func(viewstate.State) viewstate.State) (prev, next viewstate.State, ok bool) {
	prev, next, ok = c.host.Apply(c.id, fn)
	if !ok {
		return prev, next, false
	}
	if prev.Thumbnail != "" && prev.Thumbnail != next.Thumbnail {
		c.blobs.Revoke(prev.Thumbnail)
	}
	return prev, next, true
}

// --- Commands ---

// ErrNotCommand is returned by Command for a tag that is not a directive.
var ErrNotCommand = errors.New("controller: not a command")

// Command applies a navigation directive (reload, stop, goBack, goForward)
// and issues it to the surface once.
func (c *Controller) Command(ctx context.Context, tag viewstate.ReadyState) error {
	var fn func(viewstate.State) viewstate.State
	var issue func(context.Context) error
	switch tag {
	case viewstate.ReadyReload:
		fn, issue = viewstate.Reload, c.surf.Reload
	case viewstate.ReadyStop:
		fn, issue = viewstate.Stop, c.surf.Stop
	case viewstate.ReadyGoBack:
		fn, issue = viewstate.GoBack, c.surf.GoBack
	case viewstate.ReadyGoForward:
		fn, issue = viewstate.GoForward, c.surf.GoForward
	default:
		return fmt.Errorf("%w: %q", ErrNotCommand, tag)
	}

	c.mu.Lock()
	_, ok := c.apply(fn)
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("controller: view %s gone", c.id)
	}

	if err := issue(ctx); err != nil {
		return fmt.Errorf("controller: %s: %w", tag, err)
	}
	return nil
}

// Apply runs a non-command transition (zoom, pinning, selection, address
// input) and pushes a zoom change to the surface.
func (c *Controller) Apply(ctx context.Context, fn func(viewstate.State) viewstate.State) (viewstate.State, error) {
	c.mu.Lock()
	prev, next, ok := c.applyPrev(fn)
	c.mu.Unlock()
	if !ok {
		return next, fmt.Errorf("controller: view %s gone", c.id)
	}
	if next.Zoom != prev.Zoom {
		if err := c.surf.SetZoom(ctx, next.Zoom); err != nil {
			return next, fmt.Errorf("controller: set zoom: %w", err)
		}
	}
	return next, nil
}

// Navigate records uri as the address input and asks the surface to load
// it. The location itself changes when the surface reports it.
func (c *Controller) Navigate(ctx context.Context, uri string) error {
	if _, err := c.Apply(ctx, func(s viewstate.State) viewstate.State {
		return viewstate.SetUserInput(s, uri)
	}); err != nil {
		return err
	}
	if err := c.surf.Navigate(ctx, uri); err != nil {
		return fmt.Errorf("controller: navigate: %w", err)
	}
	return nil
}
