// CLAUDE:SUMMARY Thumbnail acquisition protocol: persisted lookup raced against navigation, live capture after load as fallback.
// Package thumbnail produces preview images for tab switchers.
//
// An acquisition reconciles three signals started together: a lookup in
// the persisted store by origin, the page's load completion, and the
// page's next navigation. Navigation always wins: once the view has moved
// on, nothing is returned for the URI the acquisition was started under.
//
//	cached hit            → cached image, no capture
//	cached miss, loaded   → live capture at Width×Height × PixelRatio
//	navigation, any time  → ErrCancelled
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Config configures an Acquirer.
type Config struct {
	// Store is the persisted-thumbnail lookup. Nil disables the cached path.
	Store Lookup

	// Width and Height are the capture size in CSS pixels. Default: 200×150.
	Width  int
	Height int

	// PixelRatio scales the capture size to device pixels. Default: 1.
	PixelRatio float64

	// CaptureTimeout bounds the live capture step. Default: 10s.
	CaptureTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Width <= 0 {
		c.Width = 200
	}
	if c.Height <= 0 {
		c.Height = 150
	}
	if c.PixelRatio <= 0 {
		c.PixelRatio = 1
	}
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Signals are the latched navigation events an acquisition races against.
// Each channel is closed exactly once by the owner of the view; a closed
// channel stays observable, so an event that fired before the acquisition
// reached the matching step is not lost.
type Signals struct {
	// Abort is closed on the next locationChange of the view.
	Abort <-chan struct{}
	// Loaded is closed on loadEnd.
	Loaded <-chan struct{}
}

// Acquirer runs the acquisition protocol. Safe for concurrent use; each
// Acquire call is independent.
type Acquirer struct {
	cfg Config
}

// New creates an Acquirer.
func New(cfg Config) *Acquirer {
	cfg.defaults()
	return &Acquirer{cfg: cfg}
}

// CaptureSize returns the capture size in device pixels.
func (a *Acquirer) CaptureSize() (int, int) {
	w := int(math.Round(float64(a.cfg.Width) * a.cfg.PixelRatio))
	h := int(math.Round(float64(a.cfg.Height) * a.cfg.PixelRatio))
	return w, h
}

// Acquire produces a thumbnail for uri. It returns ErrNoURI for an empty
// uri, ErrCancelled when sig.Abort fires first, and a wrapped error when
// the capture fails or times out. The caller applies the image; Acquire
// never touches view state.
func (a *Acquirer) Acquire(ctx context.Context, uri string, sig Signals, capt Capturer) (Image, error) {
	if uri == "" {
		return Image{}, ErrNoURI
	}
	log := a.cfg.Logger.With("uri", uri)

	img, err := a.cached(ctx, uri, sig.Abort)
	if err == nil {
		log.Debug("thumbnail: cached hit")
		return img, nil
	}
	if errors.Is(err, ErrCancelled) || ctx.Err() != nil {
		return Image{}, err
	}
	log.Debug("thumbnail: cached miss", "error", err)

	// Wait for load completion unless navigation comes first.
	_, err = Race(ctx, sig.Abort, func(ctx context.Context) (struct{}, error) {
		select {
		case <-sig.Loaded:
			return struct{}{}, nil
		case <-ctx.Done():
			return struct{}{}, ctx.Err()
		}
	})
	if err != nil {
		return Image{}, err
	}

	w, h := a.CaptureSize()
	captureCtx, cancel := context.WithTimeout(ctx, a.cfg.CaptureTimeout)
	defer cancel()

	img, err = Race(captureCtx, sig.Abort, func(ctx context.Context) (Image, error) {
		return capt.Capture(ctx, w, h)
	})
	if errors.Is(err, ErrCancelled) {
		return Image{}, err
	}
	if err != nil {
		return Image{}, fmt.Errorf("thumbnail: capture: %w", err)
	}
	log.Debug("thumbnail: captured", "width", w, "height", h, "bytes", len(img.Data))
	return img, nil
}

// cached races the persisted lookup against abort. A host-less uri or a
// missing store is a miss.
func (a *Acquirer) cached(ctx context.Context, uri string, abort <-chan struct{}) (Image, error) {
	origin := Origin(uri)
	if a.cfg.Store == nil || origin == "" {
		return Image{}, ErrNotFound
	}
	return Race(ctx, abort, func(ctx context.Context) (Image, error) {
		img, err := a.cfg.Store.Lookup(ctx, origin)
		if err == nil && len(img.Data) == 0 {
			return Image{}, ErrNotFound
		}
		return img, err
	})
}
