// CLAUDE:SUMMARY Rod page adapter implementing surface.Surface: CDP events to surface events, commands, screenshot capture.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/tabview/surface"
	"github.com/hazyhaar/tabview/thumbnail"
	"github.com/hazyhaar/tabview/viewstate"
)

const navigateTimeout = 30 * time.Second

// Tab is one Chrome page acting as a content surface.
type Tab struct {
	page      *rod.Page
	mainFrame proto.PageFrameID
	router    *rod.HijackRouter
	cfg       Config
	logger    *slog.Logger

	// raw is fed by the CDP callbacks; pump is its only reader and the only
	// writer of events.
	raw    chan pending
	events chan surface.Event

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// Touched only from the CDP callback goroutine.
	probe probeState
	san   sanitizer
}

// pending is either an event to emit or CDP work to run off the callback
// goroutine.
type pending struct {
	ev surface.Event
	do func()
}

// Factory returns a surface.Factory opening pages on this manager.
func (m *Manager) Factory() surface.Factory {
	return func(ctx context.Context, uri string) (surface.Surface, error) {
		t, err := m.Open(ctx, uri)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// Open creates a page with stealth applied, installs the probe, starts
// event translation and navigates to uri when it is not empty.
func (m *Manager) Open(ctx context.Context, uri string) (*Tab, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	t := &Tab{
		page:      page,
		mainFrame: proto.PageFrameID(page.TargetID),
		cfg:       m.cfg,
		logger:    m.cfg.Logger.With("target", page.TargetID),
		raw:       make(chan pending, 256),
		events:    make(chan surface.Event, 256),
		san:       newSanitizer(),
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())

	if err := t.setup(); err != nil {
		t.cancel()
		page.Close()
		return nil, err
	}

	if uri != "" {
		if err := t.Navigate(ctx, uri); err != nil {
			t.Close()
			return nil, err
		}
	}
	return t, nil
}

func (t *Tab) setup() error {
	if err := t.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             t.cfg.ViewportWidth,
		Height:            t.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("browser: viewport: %w", err)
	}

	if len(t.cfg.ResourceBlocking) > 0 {
		t.router = applyResourceBlocking(t.page, t.cfg.ResourceBlocking)
	}

	enable := []struct {
		name string
		call func() error
	}{
		{"page", func() error { return proto.PageEnable{}.Call(t.page) }},
		{"network", func() error { return proto.NetworkEnable{}.Call(t.page) }},
		{"runtime", func() error { return proto.RuntimeEnable{}.Call(t.page) }},
		{"security", func() error { return proto.SecurityEnable{}.Call(t.page) }},
		{"binding", func() error { return proto.RuntimeAddBinding{Name: bindingName}.Call(t.page) }},
	}
	for _, e := range enable {
		if err := e.call(); err != nil {
			return fmt.Errorf("browser: enable %s: %w", e.name, err)
		}
	}
	if _, err := t.page.EvalOnNewDocument(probeJS); err != nil {
		return fmt.Errorf("browser: install probe: %w", err)
	}

	// EachEvent subscribes now; wait delivers until t.ctx is cancelled.
	wait := t.page.Context(t.ctx).EachEvent(
		func(e *proto.PageFrameStartedLoading) {
			if e.FrameID != t.mainFrame {
				return
			}
			t.probe.reset()
			t.push(surface.Event{Kind: surface.LoadStart})
		},
		func(e *proto.PageFrameStoppedLoading) {
			if e.FrameID == t.mainFrame {
				t.push(surface.Event{Kind: surface.LoadEnd})
			}
		},
		func(e *proto.NetworkResponseReceived) {
			if e.Type != proto.NetworkResourceTypeDocument || e.FrameID != t.mainFrame {
				return
			}
			t.push(surface.Event{Kind: surface.LoadProgressChange})
			if e.Response != nil && e.Response.Status == 401 {
				t.push(surface.Event{Kind: surface.AuthPrompt, Text: e.Response.URL})
			}
		},
		func(e *proto.PageFrameNavigated) {
			if e.Frame == nil || e.Frame.ParentID != "" {
				return
			}
			t.push(surface.Event{Kind: surface.LocationChange, Text: e.Frame.URL})
		},
		func(e *proto.PageNavigatedWithinDocument) {
			if e.FrameID == t.mainFrame {
				t.push(surface.Event{Kind: surface.LocationChange, Text: e.URL})
			}
		},
		func(e *proto.SecurityVisibleSecurityStateChanged) {
			if e.VisibleSecurityState == nil {
				return
			}
			t.push(surface.Event{
				Kind:     surface.SecurityChange,
				Security: viewstate.Security{State: securityState(string(e.VisibleSecurityState.SecurityState))},
			})
		},
		func(e *proto.RuntimeExceptionThrown) {
			if e.ExceptionDetails == nil {
				return
			}
			msg := e.ExceptionDetails.Text
			if ex := e.ExceptionDetails.Exception; ex != nil && ex.Description != "" {
				msg = ex.Description
			}
			t.push(surface.Event{Kind: surface.Error, Text: msg})
		},
		func(e *proto.PageWindowOpen) {
			kind := surface.OpenTab
			if len(e.WindowFeatures) > 0 {
				kind = surface.OpenWindow
			}
			t.push(surface.Event{Kind: kind, Text: e.URL})
		},
		func(e *proto.PageJavascriptDialogOpening) {
			t.logger.Debug("browser: dismissing dialog", "type", e.Type, "message", e.Message)
			t.pushWork(func() {
				if err := (proto.PageHandleJavaScriptDialog{Accept: false}).Call(t.page); err != nil {
					t.logger.Debug("browser: dismiss dialog", "error", err)
				}
			})
		},
		func(e *proto.RuntimeBindingCalled) {
			if e.Name != bindingName {
				return
			}
			events, err := t.probe.decode(e.Payload, t.san)
			if err != nil {
				t.logger.Warn("browser: probe", "error", err)
				return
			}
			for _, ev := range events {
				t.push(ev)
			}
		},
	)

	go func() {
		wait()
		close(t.raw)
	}()
	go t.pump()
	return nil
}

func (t *Tab) push(ev surface.Event) {
	select {
	case t.raw <- pending{ev: ev}:
	case <-t.ctx.Done():
	}
}

func (t *Tab) pushWork(fn func()) {
	select {
	case t.raw <- pending{do: fn}:
	case <-t.ctx.Done():
	}
}

// pump forwards translated events in order. A location change is followed
// by the history flags read from the page.
func (t *Tab) pump() {
	defer close(t.events)
	for p := range t.raw {
		if p.do != nil {
			p.do()
			continue
		}
		t.emit(p.ev)
		if p.ev.Kind == surface.LocationChange {
			t.emitHistory()
		}
	}
}

func (t *Tab) emit(ev surface.Event) {
	select {
	case t.events <- ev:
	case <-t.ctx.Done():
	}
}

func (t *Tab) emitHistory() {
	res, err := proto.PageGetNavigationHistory{}.Call(t.page.Context(t.ctx))
	if err != nil {
		t.logger.Debug("browser: navigation history", "error", err)
		return
	}
	t.emit(surface.Event{Kind: surface.CanGoBackChange, Flag: res.CurrentIndex > 0})
	t.emit(surface.Event{Kind: surface.CanGoForwardChange, Flag: res.CurrentIndex < len(res.Entries)-1})
}

func securityState(s string) viewstate.SecurityState {
	switch s {
	case "secure":
		return viewstate.SecuritySecure
	case "insecure-broken":
		return viewstate.SecurityBroken
	default:
		return viewstate.SecurityInsecure
	}
}

// --- surface.Surface ---

func (t *Tab) Events() <-chan surface.Event { return t.events }

func (t *Tab) Navigate(ctx context.Context, uri string) error {
	navCtx, cancel := context.WithTimeout(ctx, navigateTimeout)
	defer cancel()
	if err := t.page.Context(navCtx).Navigate(uri); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", uri, err)
	}
	return nil
}

func (t *Tab) Reload(ctx context.Context) error {
	if err := t.page.Context(ctx).Reload(); err != nil {
		return fmt.Errorf("browser: reload: %w", err)
	}
	return nil
}

func (t *Tab) Stop(ctx context.Context) error {
	if err := (proto.PageStopLoading{}).Call(t.page.Context(ctx)); err != nil {
		return fmt.Errorf("browser: stop: %w", err)
	}
	return nil
}

func (t *Tab) GoBack(ctx context.Context) error {
	if err := t.page.Context(ctx).NavigateBack(); err != nil {
		return fmt.Errorf("browser: back: %w", err)
	}
	return nil
}

func (t *Tab) GoForward(ctx context.Context) error {
	if err := t.page.Context(ctx).NavigateForward(); err != nil {
		return fmt.Errorf("browser: forward: %w", err)
	}
	return nil
}

func (t *Tab) SetZoom(ctx context.Context, zoom float64) error {
	if err := (proto.EmulationSetPageScaleFactor{PageScaleFactor: zoom}).Call(t.page.Context(ctx)); err != nil {
		return fmt.Errorf("browser: zoom: %w", err)
	}
	return nil
}

// Capture screenshots the top of the viewport at the thumbnail's aspect
// ratio and scales it to width×height device pixels.
func (t *Tab) Capture(ctx context.Context, width, height int) (thumbnail.Image, error) {
	if width <= 0 || height <= 0 {
		return thumbnail.Image{}, fmt.Errorf("browser: capture: bad size %dx%d", width, height)
	}
	cw, ch := captureClip(t.cfg.ViewportWidth, t.cfg.ViewportHeight, width, height)
	shot, err := t.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip:   &proto.PageViewport{X: 0, Y: 0, Width: cw, Height: ch, Scale: 1},
	})
	if err != nil {
		return thumbnail.Image{}, fmt.Errorf("browser: screenshot: %w", err)
	}
	return scaleImage(shot, width, height, t.cfg.CaptureFormat)
}

// Close stops event translation and closes the page.
func (t *Tab) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.cancel()
		if t.router != nil {
			if stopErr := t.router.Stop(); stopErr != nil {
				t.logger.Debug("browser: stop hijack router", "error", stopErr)
			}
		}
		err = t.page.Close()
	})
	return err
}

var _ surface.Surface = (*Tab)(nil)
