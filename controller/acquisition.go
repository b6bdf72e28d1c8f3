package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/hazyhaar/tabview/thumbnail"
	"github.com/hazyhaar/tabview/viewstate"
)

// acquisition is one in-flight thumbnail lookup for one location. Its
// signals are latched: closed at most once, observed by every later reader.
type acquisition struct {
	uri string

	abort      chan struct{}
	abortOnce  sync.Once
	loaded     chan struct{}
	loadedOnce sync.Once
	done       chan struct{}
}

func newAcquisition(uri string) *acquisition {
	return &acquisition{
		uri:    uri,
		abort:  make(chan struct{}),
		loaded: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (a *acquisition) cancel()    { a.abortOnce.Do(func() { close(a.abort) }) }
func (a *acquisition) markLoaded() { a.loadedOnce.Do(func() { close(a.loaded) }) }

func (a *acquisition) aborted() bool {
	select {
	case <-a.abort:
		return true
	default:
		return false
	}
}

func (a *acquisition) finished() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// acquireLocked supersedes the current acquisition and starts one for uri.
// An empty uri only supersedes. Must hold c.mu.
func (c *Controller) acquireLocked(ctx context.Context, uri string, loaded bool) {
	if c.acq != nil {
		c.acq.cancel()
		c.acq = nil
	}
	if uri == "" {
		return
	}
	a := newAcquisition(uri)
	if loaded {
		a.markLoaded()
	}
	c.acq = a

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(a.done)
		img, err := c.acquirer.Acquire(ctx, uri, thumbnail.Signals{Abort: a.abort, Loaded: a.loaded}, c.surf)
		if err != nil {
			c.logAcquireError(uri, err)
			return
		}
		if !c.attach(a, img) || c.saver == nil {
			return
		}
		origin := thumbnail.Origin(uri)
		if origin == "" {
			return
		}
		if err := c.saver.Save(ctx, origin, img); err != nil {
			c.logger.Warn("controller: save thumbnail", "origin", origin, "error", err)
		}
	}()
}

// loadedLocked releases the capture step of the current acquisition. When
// no acquisition covers the loaded page and it still has no thumbnail, a
// new one starts with the load already observed. Must hold c.mu.
func (c *Controller) loadedLocked(ctx context.Context, s viewstate.State) {
	if c.acq != nil && c.acq.uri == s.URI && !c.acq.finished() {
		c.acq.markLoaded()
		return
	}
	if s.URI == "" || s.Thumbnail != "" {
		return
	}
	c.acquireLocked(ctx, s.URI, true)
}

// attach stores img and points the view at it, unless a later location
// change superseded a while it ran. Reports whether img was attached.
func (c *Controller) attach(a *acquisition, img thumbnail.Image) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a.aborted() {
		c.logger.Debug("controller: discarding superseded thumbnail", "uri", a.uri)
		return false
	}
	handle := c.blobs.Put(img)
	if _, ok := c.apply(func(s viewstate.State) viewstate.State {
		return viewstate.OnThumbnailReady(s, handle)
	}); !ok {
		c.blobs.Revoke(handle)
		return false
	}
	c.logger.Debug("controller: thumbnail ready", "uri", a.uri, "handle", handle, "bytes", len(img.Data))
	return true
}

// supersede cancels the current acquisition, if any.
func (c *Controller) supersede() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acq != nil {
		c.acq.cancel()
		c.acq = nil
	}
}

func (c *Controller) logAcquireError(uri string, err error) {
	switch {
	case errors.Is(err, thumbnail.ErrCancelled),
		errors.Is(err, thumbnail.ErrNoURI),
		errors.Is(err, context.Canceled):
		c.logger.Debug("controller: thumbnail acquisition ended", "uri", uri, "reason", err)
	default:
		c.logger.Warn("controller: thumbnail acquisition failed", "uri", uri, "error", err)
	}
}
