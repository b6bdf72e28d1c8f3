// Package surfacetest provides a scriptable Surface for tests.
package surfacetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/hazyhaar/tabview/surface"
	"github.com/hazyhaar/tabview/thumbnail"
)

// Fake is an in-memory Surface. Tests push events with Emit and inspect
// the commands the controller issued with Commands.
type Fake struct {
	// CaptureFunc answers Capture. Nil returns a 1-byte PNG stand-in.
	CaptureFunc func(ctx context.Context, w, h int) (thumbnail.Image, error)

	mu       sync.Mutex
	commands []string
	captures int

	// emitMu guards events and closed so Emit never races Close, without
	// holding mu while blocked on a full stream.
	emitMu sync.Mutex
	events chan surface.Event
	closed bool
}

// New creates a Fake with a buffered event stream.
func New() *Fake {
	return &Fake{events: make(chan surface.Event, 64)}
}

// Factory returns a surface.Factory handing out fakes, recording each in
// the returned slice accessor.
func Factory() (surface.Factory, func() []*Fake) {
	var mu sync.Mutex
	var made []*Fake
	f := func(ctx context.Context, uri string) (surface.Surface, error) {
		s := New()
		if uri != "" {
			s.record("navigate:" + uri)
		}
		mu.Lock()
		made = append(made, s)
		mu.Unlock()
		return s, nil
	}
	return f, func() []*Fake {
		mu.Lock()
		defer mu.Unlock()
		return append([]*Fake(nil), made...)
	}
}

// Emit pushes ev onto the event stream. It is a no-op once closed.
func (f *Fake) Emit(ev surface.Event) {
	f.emitMu.Lock()
	defer f.emitMu.Unlock()
	if f.closed {
		return
	}
	f.events <- ev
}

// Commands returns the commands issued so far, e.g. "reload",
// "navigate:https://...", "zoom:1.1".
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// Captures returns how many times Capture was called.
func (f *Fake) Captures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captures
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.emitMu.Lock()
	defer f.emitMu.Unlock()
	return f.closed
}

func (f *Fake) record(cmd string) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.mu.Unlock()
}

func (f *Fake) Events() <-chan surface.Event { return f.events }

func (f *Fake) Navigate(_ context.Context, uri string) error {
	f.record("navigate:" + uri)
	return nil
}

func (f *Fake) Reload(context.Context) error    { f.record("reload"); return nil }
func (f *Fake) Stop(context.Context) error      { f.record("stop"); return nil }
func (f *Fake) GoBack(context.Context) error    { f.record("goBack"); return nil }
func (f *Fake) GoForward(context.Context) error { f.record("goForward"); return nil }

func (f *Fake) SetZoom(_ context.Context, zoom float64) error {
	f.record(fmt.Sprintf("zoom:%.1f", zoom))
	return nil
}

func (f *Fake) Capture(ctx context.Context, w, h int) (thumbnail.Image, error) {
	f.mu.Lock()
	f.captures++
	fn := f.CaptureFunc
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, w, h)
	}
	return thumbnail.Image{Data: []byte{0x89}, MIME: "image/png"}, nil
}

func (f *Fake) Close() error {
	f.emitMu.Lock()
	defer f.emitMu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

var _ surface.Surface = (*Fake)(nil)
