package thumbnail

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeStore struct {
	img     Image
	err     error
	block   <-chan struct{}
	calls   atomic.Int32
	origins chan string
}

func (f *fakeStore) Lookup(ctx context.Context, origin string) (Image, error) {
	f.calls.Add(1)
	if f.origins != nil {
		f.origins <- origin
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return Image{}, ctx.Err()
		}
	}
	return f.img, f.err
}

type fakeCapturer struct {
	img   Image
	err   error
	block <-chan struct{}
	calls atomic.Int32
	w, h  atomic.Int32
}

func (f *fakeCapturer) Capture(ctx context.Context, w, h int) (Image, error) {
	f.calls.Add(1)
	f.w.Store(int32(w))
	f.h.Store(int32(h))
	if f.block != nil {
		<-f.block
	}
	return f.img, f.err
}

type blockingCapturer struct{}

func (blockingCapturer) Capture(ctx context.Context, _, _ int) (Image, error) {
	<-ctx.Done()
	return Image{}, ctx.Err()
}

func signals() (abort, loaded chan struct{}, sig Signals) {
	abort = make(chan struct{})
	loaded = make(chan struct{})
	return abort, loaded, Signals{Abort: abort, Loaded: loaded}
}

func TestAcquire_CachedHit(t *testing.T) {
	store := &fakeStore{img: Image{Data: []byte("B"), MIME: "image/png"}, origins: make(chan string, 1)}
	capt := &fakeCapturer{img: Image{Data: []byte("C")}}
	a := New(Config{Store: store})
	_, _, sig := signals()

	img, err := a.Acquire(context.Background(), "https://www.example.com/page", sig, capt)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if string(img.Data) != "B" {
		t.Errorf("Data: got %q, want %q", img.Data, "B")
	}
	if n := capt.calls.Load(); n != 0 {
		t.Errorf("capture calls: got %d, want 0", n)
	}
	if o := <-store.origins; o != "example.com" {
		t.Errorf("lookup origin: got %q, want %q", o, "example.com")
	}
}

func TestAcquire_MissThenLoadThenCapture(t *testing.T) {
	store := &fakeStore{err: ErrNotFound}
	capt := &fakeCapturer{img: Image{Data: []byte("C"), MIME: "image/jpeg"}}
	a := New(Config{Store: store, Width: 100, Height: 50, PixelRatio: 2})
	_, loaded, sig := signals()

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(loaded)
	}()

	img, err := a.Acquire(context.Background(), "https://example.com/", sig, capt)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if string(img.Data) != "C" {
		t.Errorf("Data: got %q, want %q", img.Data, "C")
	}
	if w, h := capt.w.Load(), capt.h.Load(); w != 200 || h != 100 {
		t.Errorf("capture size: got %dx%d, want 200x100", w, h)
	}
}

func TestAcquire_LoadBeforeMiss(t *testing.T) {
	release := make(chan struct{})
	store := &fakeStore{err: errors.New("disk on fire"), block: release}
	capt := &fakeCapturer{img: Image{Data: []byte("C")}}
	a := New(Config{Store: store})
	_, loaded, sig := signals()

	close(loaded)
	close(release)

	img, err := a.Acquire(context.Background(), "https://example.com/", sig, capt)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if string(img.Data) != "C" {
		t.Errorf("Data: got %q, want %q", img.Data, "C")
	}
}

func TestAcquire_AbortFirst(t *testing.T) {
	store := &fakeStore{block: make(chan struct{})}
	capt := &fakeCapturer{img: Image{Data: []byte("C")}}
	a := New(Config{Store: store})
	abort, _, sig := signals()

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(abort)
	}()

	_, err := a.Acquire(context.Background(), "https://example.com/", sig, capt)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Acquire: got %v, want ErrCancelled", err)
	}
	if n := capt.calls.Load(); n != 0 {
		t.Errorf("capture calls: got %d, want 0", n)
	}
}

func TestAcquire_AbortBeatsReadyHit(t *testing.T) {
	store := &fakeStore{img: Image{Data: []byte("B")}}
	a := New(Config{Store: store})
	abort, loaded, sig := signals()
	close(abort)
	close(loaded)

	_, err := a.Acquire(context.Background(), "https://example.com/", sig, &fakeCapturer{})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Acquire: got %v, want ErrCancelled", err)
	}
}

func TestAcquire_AbortWhileWaitingForLoad(t *testing.T) {
	store := &fakeStore{err: ErrNotFound}
	capt := &fakeCapturer{}
	a := New(Config{Store: store})
	abort, _, sig := signals()

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(abort)
	}()

	_, err := a.Acquire(context.Background(), "https://example.com/", sig, capt)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Acquire: got %v, want ErrCancelled", err)
	}
	if n := capt.calls.Load(); n != 0 {
		t.Errorf("capture calls: got %d, want 0", n)
	}
}

func TestAcquire_AbortDuringCaptureDiscardsResult(t *testing.T) {
	release := make(chan struct{})
	capt := &fakeCapturer{img: Image{Data: []byte("stale")}, block: release}
	a := New(Config{})
	abort, loaded, sig := signals()
	close(loaded)

	go func() {
		for capt.calls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		close(abort)
		close(release)
	}()

	_, err := a.Acquire(context.Background(), "https://example.com/", sig, capt)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Acquire: got %v, want ErrCancelled", err)
	}
}

func TestAcquire_CaptureTimeout(t *testing.T) {
	a := New(Config{CaptureTimeout: 20 * time.Millisecond})
	_, loaded, sig := signals()
	close(loaded)

	_, err := a.Acquire(context.Background(), "https://example.com/", sig, blockingCapturer{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire: got %v, want DeadlineExceeded", err)
	}
}

func TestAcquire_CaptureError(t *testing.T) {
	boom := errors.New("boom")
	a := New(Config{})
	_, loaded, sig := signals()
	close(loaded)

	_, err := a.Acquire(context.Background(), "https://example.com/", sig, &fakeCapturer{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("Acquire: got %v, want wrapped boom", err)
	}
}

func TestAcquire_NoURI(t *testing.T) {
	store := &fakeStore{img: Image{Data: []byte("B")}}
	a := New(Config{Store: store})
	_, _, sig := signals()

	_, err := a.Acquire(context.Background(), "", sig, &fakeCapturer{})
	if !errors.Is(err, ErrNoURI) {
		t.Fatalf("Acquire: got %v, want ErrNoURI", err)
	}
	if n := store.calls.Load(); n != 0 {
		t.Errorf("lookup calls: got %d, want 0", n)
	}
}

func TestAcquire_EmptyHitIsMiss(t *testing.T) {
	store := &fakeStore{img: Image{}}
	capt := &fakeCapturer{img: Image{Data: []byte("C")}}
	a := New(Config{Store: store})
	_, loaded, sig := signals()
	close(loaded)

	img, err := a.Acquire(context.Background(), "https://example.com/", sig, capt)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if string(img.Data) != "C" {
		t.Errorf("Data: got %q, want %q", img.Data, "C")
	}
}
