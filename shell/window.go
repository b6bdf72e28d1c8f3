// CLAUDE:SUMMARY Window orchestrator: owns the deck of views, one controller per view, session save/restore and remount.
// Package shell is the tab shell: one Window holding an ordered deck of
// views, a controller per view wired to its content surface, the
// thumbnail registry and the SQLite store. It exposes the window over
// HTTP (Routes) and MCP (RegisterMCP).
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/tabview/controller"
	"github.com/hazyhaar/tabview/deck"
	"github.com/hazyhaar/tabview/idgen"
	"github.com/hazyhaar/tabview/shell/internal/store"
	"github.com/hazyhaar/tabview/surface"
	"github.com/hazyhaar/tabview/thumbnail"
	"github.com/hazyhaar/tabview/viewstate"
)

// ErrNotFound is returned for an unknown view id.
var ErrNotFound = errors.New("shell: view not found")

// ErrUnknownCommand is returned by Command for a name it does not handle.
var ErrUnknownCommand = errors.New("shell: unknown command")

// Options wires a Window.
type Options struct {
	// Factory opens content surfaces. Required.
	Factory surface.Factory

	// Store persists thumbnails, sessions and diagnostics. Nil runs the
	// window without persistence.
	Store *store.Store

	// Acquirer runs thumbnail acquisitions. Default: one backed by Store.
	Acquirer *thumbnail.Acquirer

	// NewID mints view ids. Default: idgen.Default.
	NewID idgen.Generator

	// SaveOnClose saves the session when the window closes.
	SaveOnClose bool

	Logger *slog.Logger
}

// Window owns the views of one shell window.
type Window struct {
	opts   Options
	logger *slog.Logger
	blobs  *thumbnail.Registry
	diag   controller.Diagnostics
	epoch  time.Time

	mu    sync.Mutex
	deck  deck.Deck
	ctrls map[string]*controller.Controller

	runCtx context.Context
	wg     sync.WaitGroup
}

// New creates a Window. Controllers run under ctx until the window closes.
func New(ctx context.Context, opts Options) *Window {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NewID == nil {
		opts.NewID = idgen.Default
	}
	if opts.Acquirer == nil {
		var lookup thumbnail.Lookup
		if opts.Store != nil {
			lookup = opts.Store
		}
		opts.Acquirer = thumbnail.New(thumbnail.Config{Store: lookup, Logger: opts.Logger})
	}
	w := &Window{
		opts:   opts,
		logger: opts.Logger,
		blobs:  thumbnail.NewRegistry(nil),
		epoch:  time.Now(),
		deck:   deck.New(true),
		ctrls:  make(map[string]*controller.Controller),
		runCtx: ctx,
	}
	if opts.Store != nil {
		w.diag = opts.Store.Diagnostics(store.WithDiagnosticsLogger(opts.Logger))
	}
	return w
}

// now is the window's monotonic clock in milliseconds.
func (w *Window) now() int64 {
	return time.Since(w.epoch).Milliseconds()
}

// Apply implements controller.Host.
func (w *Window) Apply(id string, fn func(viewstate.State) viewstate.State) (prev, next viewstate.State, ok bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev, ok = w.deck.Get(id)
	if !ok {
		return prev, prev, false
	}
	w.deck, _ = w.deck.Update(id, fn)
	next, _ = w.deck.Get(id)
	return prev, next, true
}

// Open creates a view at uri. A view without a uri stays in the deck with
// no surface until its first Navigate.
func (w *Window) Open(ctx context.Context, uri string, opts ...viewstate.Option) (viewstate.State, error) {
	if uri != "" {
		opts = append([]viewstate.Option{viewstate.WithURI(uri)}, opts...)
	}
	s := viewstate.Open(w.opts.NewID, opts...)
	if err := w.insert(s); err != nil {
		return viewstate.State{}, err
	}
	if s.Renderable() {
		if err := w.attach(ctx, s.ID, s.URI); err != nil {
			w.mu.Lock()
			w.deck = w.deck.Remove(s.ID)
			w.mu.Unlock()
			return viewstate.State{}, err
		}
	}
	w.logger.Info("shell: view opened", "view", s.ID, "uri", s.URI)
	return s, nil
}

func (w *Window) insert(s viewstate.State) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, err := w.deck.Insert(s)
	if err != nil {
		return fmt.Errorf("shell: insert %s: %w", s.ID, err)
	}
	w.deck = d
	return nil
}

// attach opens a surface at uri for the view and starts its controller.
// It is a no-op for a view that already has one.
func (w *Window) attach(ctx context.Context, id, uri string) error {
	surf, err := w.opts.Factory(ctx, uri)
	if err != nil {
		return fmt.Errorf("shell: open surface: %w", err)
	}
	c := w.newController(id, surf)

	w.mu.Lock()
	s, ok := w.deck.Get(id)
	_, mounted := w.ctrls[id]
	if !ok || mounted {
		w.mu.Unlock()
		surf.Close()
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	}
	w.ctrls[id] = c
	w.mu.Unlock()

	if s.Zoom != viewstate.DefaultZoom {
		if err := surf.SetZoom(ctx, s.Zoom); err != nil {
			w.logger.Warn("shell: restore zoom", "view", id, "error", err)
		}
	}
	w.run(c)
	return nil
}

// byID sorts views into surface mount order.
func byID(views []viewstate.State) {
	slices.SortStableFunc(views, func(a, b viewstate.State) int { return strings.Compare(a.ID, b.ID) })
}

func (w *Window) newController(id string, surf surface.Surface) *controller.Controller {
	cfg := controller.Config{
		ID:       id,
		Surface:  surf,
		Host:     w,
		Tabs:     w,
		Diag:     w.diag,
		Acquirer: w.opts.Acquirer,
		Blobs:    w.blobs,
		Now:      w.now,
		Logger:   w.logger,
	}
	if w.opts.Store != nil {
		cfg.Saver = w.opts.Store
	}
	return controller.New(cfg)
}

func (w *Window) run(c *controller.Controller) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := c.Run(w.runCtx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Warn("shell: controller stopped", "view", c.ID(), "error", err)
		}
		c.Wait()
	}()
}

// controller returns the view's controller, nil while the view has no
// surface yet.
func (w *Window) controller(id string) (*controller.Controller, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.deck.Get(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return w.ctrls[id], nil
}

// --- controller.TabManager ---

// OpenTab opens uri in a new view. openerID is only logged.
func (w *Window) OpenTab(ctx context.Context, uri, openerID string) error {
	s, err := w.Open(ctx, uri)
	if err != nil {
		return err
	}
	w.logger.Debug("shell: tab opened by page", "view", s.ID, "opener", openerID)
	return nil
}

// OpenWindow opens uri as a tab: the shell has a single window.
func (w *Window) OpenWindow(ctx context.Context, uri, openerID string) error {
	w.logger.Info("shell: window request opened as tab", "uri", uri, "opener", openerID)
	return w.OpenTab(ctx, uri, openerID)
}

// CloseView removes the view and closes its surface.
func (w *Window) CloseView(_ context.Context, id string) error {
	w.mu.Lock()
	s, ok := w.deck.Get(id)
	c := w.ctrls[id]
	if ok {
		w.deck = w.deck.Remove(id)
		delete(w.ctrls, id)
	}
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	w.blobs.Revoke(s.Thumbnail)
	if c != nil {
		if err := c.Close(); err != nil {
			w.logger.Warn("shell: close surface", "view", id, "error", err)
		}
	}
	w.logger.Info("shell: view closed", "view", id)
	return nil
}

// --- Queries ---

// View returns the view with id.
func (w *Window) View(id string) (viewstate.State, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deck.Get(id)
}

// Views returns the views in display order.
func (w *Window) Views() []viewstate.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deck.Items()
}

// RenderOrder returns the views in surface mount order (sorted by id).
func (w *Window) RenderOrder() []viewstate.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deck.RenderOrder()
}

// Thumbnail returns the image behind the view's thumbnail handle.
func (w *Window) Thumbnail(id string) (thumbnail.Image, bool) {
	s, ok := w.View(id)
	if !ok || s.Thumbnail == "" {
		return thumbnail.Image{}, false
	}
	return w.blobs.Get(s.Thumbnail)
}

// Session returns the persistent projection of every view.
func (w *Window) Session() []viewstate.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.deck.Persistent()
}

// Move places the view at display position to. Render order is unchanged.
func (w *Window) Move(id string, to int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.deck.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	w.deck = w.deck.Move(id, to)
	return nil
}

// --- Commands ---

// Navigate loads uri in the view, mounting its surface on first use.
func (w *Window) Navigate(ctx context.Context, id, uri string) error {
	c, err := w.controller(id)
	if err != nil {
		return err
	}
	if c != nil {
		return c.Navigate(ctx, uri)
	}
	if _, _, ok := w.Apply(id, func(s viewstate.State) viewstate.State {
		return viewstate.SetUserInput(s, uri)
	}); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := w.attach(ctx, id, uri); err != nil {
		return err
	}
	w.logger.Debug("shell: view mounted", "view", id, "uri", uri)
	return nil
}

// Command names accepted by Command.
var Commands = []string{
	"reload", "stop", "back", "forward",
	"zoom-in", "zoom-out", "zoom-reset",
	"select", "pin", "unpin",
}

// Command runs a named command on the view and returns its new state.
func (w *Window) Command(ctx context.Context, id, name string) (viewstate.State, error) {
	if name == "select" {
		return w.Select(id)
	}
	c, err := w.controller(id)
	if err != nil {
		return viewstate.State{}, err
	}

	var tag viewstate.ReadyState
	var fn func(viewstate.State) viewstate.State
	switch name {
	case "reload":
		tag, fn = viewstate.ReadyReload, viewstate.Reload
	case "stop":
		tag, fn = viewstate.ReadyStop, viewstate.Stop
	case "back":
		tag, fn = viewstate.ReadyGoBack, viewstate.GoBack
	case "forward":
		tag, fn = viewstate.ReadyGoForward, viewstate.GoForward
	case "zoom-in":
		fn = viewstate.ZoomIn
	case "zoom-out":
		fn = viewstate.ZoomOut
	case "zoom-reset":
		fn = viewstate.ZoomReset
	case "pin":
		fn = viewstate.Pin
	case "unpin":
		fn = viewstate.Unpin
	default:
		return viewstate.State{}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	// No surface yet: only the state changes.
	if c == nil {
		_, next, ok := w.Apply(id, fn)
		if !ok {
			return viewstate.State{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return next, nil
	}
	if tag != "" {
		if err := c.Command(ctx, tag); err != nil {
			return viewstate.State{}, err
		}
		s, _ := w.View(id)
		return s, nil
	}
	return c.Apply(ctx, fn)
}

// Select makes id the only selected view.
func (w *Window) Select(id string) (viewstate.State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.deck.Get(id); !ok {
		return viewstate.State{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	w.deck = w.deck.Select(id)
	s, _ := w.deck.Get(id)
	return s, nil
}

// --- Session ---

// SaveSession writes the persistent projection of every view.
func (w *Window) SaveSession(ctx context.Context) (int, error) {
	if w.opts.Store == nil {
		return 0, fmt.Errorf("shell: save session: no store")
	}
	views := w.Views()
	if err := w.opts.Store.SaveSession(ctx, views); err != nil {
		return 0, err
	}
	w.logger.Info("shell: session saved", "views", len(views))
	return len(views), nil
}

// RestoreSession reinserts every saved view in its saved display order,
// keeping its id, then opens surfaces for them in id order. Views whose id
// is already open are skipped.
func (w *Window) RestoreSession(ctx context.Context) (int, error) {
	if w.opts.Store == nil {
		return 0, fmt.Errorf("shell: restore session: no store")
	}
	saved, err := w.opts.Store.LoadSession(ctx)
	if err != nil {
		return 0, err
	}
	var added []viewstate.State
	for _, p := range saved {
		if _, open := w.View(p.ID); open {
			continue
		}
		s := viewstate.Restore(p)
		if err := w.insert(s); err != nil {
			w.logger.Warn("shell: restore view", "view", p.ID, "uri", p.URI, "error", err)
			continue
		}
		added = append(added, s)
	}

	byID(added)
	n := len(added)
	for _, s := range added {
		if !s.Renderable() {
			continue
		}
		if err := w.attach(ctx, s.ID, s.URI); err != nil {
			w.logger.Warn("shell: restore surface", "view", s.ID, "uri", s.URI, "error", err)
			w.mu.Lock()
			w.deck = w.deck.Remove(s.ID)
			w.mu.Unlock()
			n--
		}
	}
	w.logger.Info("shell: session restored", "views", n, "saved", len(saved))
	return n, nil
}

// Remount gives every mounted view a fresh surface at its current
// location, in id order, keeping ids and display order. Used after the
// engine restarts.
func (w *Window) Remount(ctx context.Context) {
	w.mu.Lock()
	views := w.deck.RenderOrder()
	old := w.ctrls
	w.ctrls = make(map[string]*controller.Controller, len(views))
	w.mu.Unlock()

	for _, c := range old {
		c.Close()
	}
	n := 0
	for _, s := range views {
		uri := s.URI
		if _, had := old[s.ID]; had && uri == "" {
			uri = s.UserInput
		}
		if uri == "" {
			continue
		}
		if err := w.attach(ctx, s.ID, uri); err != nil {
			w.logger.Warn("shell: remount", "view", s.ID, "error", err)
			continue
		}
		n++
	}
	w.logger.Info("shell: views remounted", "views", n)
}

// Close saves the session when configured, closes every surface and waits
// for the controllers to stop.
func (w *Window) Close(ctx context.Context) error {
	var saveErr error
	if w.opts.SaveOnClose && w.opts.Store != nil {
		_, saveErr = w.SaveSession(ctx)
	}

	w.mu.Lock()
	ctrls := w.ctrls
	w.ctrls = make(map[string]*controller.Controller)
	w.mu.Unlock()

	for id, c := range ctrls {
		if err := c.Close(); err != nil {
			w.logger.Warn("shell: close surface", "view", id, "error", err)
		}
	}
	w.wg.Wait()
	return saveErr
}
