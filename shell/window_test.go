package shell

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/hazyhaar/tabview/dbopen"
	"github.com/hazyhaar/tabview/idgen"
	"github.com/hazyhaar/tabview/shell/internal/store"
	"github.com/hazyhaar/tabview/surface"
	"github.com/hazyhaar/tabview/surface/surfacetest"
	"github.com/hazyhaar/tabview/thumbnail"
	"github.com/hazyhaar/tabview/viewstate"

	_ "modernc.org/sqlite"
)

var thumbnailFixture = thumbnail.Image{Data: []byte{0xff, 0xd8, 0xff}, MIME: "image/jpeg"}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if _, err := db.Exec(store.Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return &store.Store{DB: db}
}

// testWindow creates a Window over fake surfaces. Views are named v1, v2, ...
func testWindow(t *testing.T, st *store.Store) (*Window, func() []*surfacetest.Fake) {
	t.Helper()
	factory, fakes := surfacetest.Factory()
	win := New(context.Background(), Options{
		Factory: factory,
		Store:   st,
		NewID:   idgen.Sequence("v"),
		Logger:  slog.Default(),
	})
	t.Cleanup(func() { win.Close(context.Background()) })
	return win, fakes
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func ids(views []viewstate.State) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.ID
	}
	return out
}

func TestOpen_MountsSurface(t *testing.T) {
	win, fakes := testWindow(t, nil)

	s, err := win.Open(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.ID != "v1" || s.URI != "https://example.com/" {
		t.Errorf("view = %s %q", s.ID, s.URI)
	}
	if got := fakes()[0].Commands(); !slices.Equal(got, []string{"navigate:https://example.com/"}) {
		t.Errorf("surface commands = %v", got)
	}
	if _, ok := win.View("v1"); !ok {
		t.Error("view not in window")
	}
}

func TestCloseEvent_RemovesView(t *testing.T) {
	win, fakes := testWindow(t, nil)
	win.Open(context.Background(), "https://a.example/")
	win.Open(context.Background(), "https://b.example/")

	fakes()[0].Emit(surface.Event{Kind: surface.Close})

	waitFor(t, "view removed", func() bool { _, ok := win.View("v1"); return !ok })
	if !fakes()[0].Closed() {
		t.Error("surface not closed")
	}
	if got := ids(win.Views()); !slices.Equal(got, []string{"v2"}) {
		t.Errorf("views = %v", got)
	}
}

func TestOpenTabEvent_OpensView(t *testing.T) {
	win, fakes := testWindow(t, nil)
	win.Open(context.Background(), "https://a.example/")

	fakes()[0].Emit(surface.Event{Kind: surface.OpenTab, Text: "https://popup.example/"})
	fakes()[0].Emit(surface.Event{Kind: surface.OpenWindow, Text: "https://window.example/"})

	waitFor(t, "two more views", func() bool { return len(win.Views()) == 3 })
	s, _ := win.View("v2")
	if s.URI != "https://popup.example/" {
		t.Errorf("v2 uri = %q", s.URI)
	}
}

func TestCommand(t *testing.T) {
	win, fakes := testWindow(t, nil)
	ctx := context.Background()
	win.Open(ctx, "https://a.example/")

	s, err := win.Command(ctx, "v1", "reload")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if s.Ready != viewstate.ReadyReload {
		t.Errorf("ready = %q", s.Ready)
	}

	s, err = win.Command(ctx, "v1", "zoom-in")
	if err != nil {
		t.Fatalf("zoom-in: %v", err)
	}
	if s.Zoom != 1.1 {
		t.Errorf("zoom = %v", s.Zoom)
	}

	if _, err := win.Command(ctx, "v1", "pin"); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if s, _ := win.View("v1"); !s.IsPinned {
		t.Error("not pinned")
	}

	want := []string{"navigate:https://a.example/", "reload", "zoom:1.1"}
	if got := fakes()[0].Commands(); !slices.Equal(got, want) {
		t.Errorf("surface commands = %v, want %v", got, want)
	}

	if _, err := win.Command(ctx, "v1", "explode"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("unknown command err = %v", err)
	}
	if _, err := win.Command(ctx, "nope", "reload"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing view err = %v", err)
	}
}

func TestNavigate_SetsUserInput(t *testing.T) {
	win, fakes := testWindow(t, nil)
	ctx := context.Background()
	win.Open(ctx, "")

	if err := win.Navigate(ctx, "v1", "https://b.example/"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	s, _ := win.View("v1")
	if s.UserInput != "https://b.example/" {
		t.Errorf("user input = %q", s.UserInput)
	}
	if got := fakes()[0].Commands(); !slices.Equal(got, []string{"navigate:https://b.example/"}) {
		t.Errorf("surface commands = %v", got)
	}
}

func TestOpen_BlankViewHasNoSurface(t *testing.T) {
	win, fakes := testWindow(t, nil)
	ctx := context.Background()

	s, err := win.Open(ctx, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if n := len(fakes()); n != 0 {
		t.Fatalf("surfaces = %d, want 0", n)
	}
	if _, ok := win.View(s.ID); !ok {
		t.Fatal("blank view not in window")
	}

	s, err = win.Command(ctx, s.ID, "zoom-in")
	if err != nil {
		t.Fatalf("zoom-in: %v", err)
	}
	if s.Zoom != 1.1 {
		t.Errorf("zoom = %v", s.Zoom)
	}
	if s, err = win.Command(ctx, s.ID, "reload"); err != nil || s.Ready != viewstate.ReadyReload {
		t.Errorf("reload = %q, %v", s.Ready, err)
	}
	if n := len(fakes()); n != 0 {
		t.Errorf("commands opened %d surfaces", n)
	}
}

func TestNavigate_MountsBlankView(t *testing.T) {
	win, fakes := testWindow(t, nil)
	ctx := context.Background()
	win.Open(ctx, "")
	win.Command(ctx, "v1", "zoom-in")

	if err := win.Navigate(ctx, "v1", "https://b.example/"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	all := fakes()
	if len(all) != 1 {
		t.Fatalf("surfaces = %d, want 1", len(all))
	}
	if got := all[0].Commands(); !slices.Equal(got, []string{"navigate:https://b.example/", "zoom:1.1"}) {
		t.Errorf("surface commands = %v", got)
	}

	// Later navigations reuse the mounted surface.
	if err := win.Navigate(ctx, "v1", "https://c.example/"); err != nil {
		t.Fatalf("second Navigate: %v", err)
	}
	if n := len(fakes()); n != 1 {
		t.Errorf("surfaces = %d, want 1", n)
	}
	if err := win.Navigate(ctx, "nope", "https://c.example/"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing view err = %v", err)
	}
}

func TestSelect_Exclusive(t *testing.T) {
	win, _ := testWindow(t, nil)
	ctx := context.Background()
	for range 3 {
		win.Open(ctx, "")
	}

	win.Command(ctx, "v1", "select")
	win.Command(ctx, "v3", "select")

	var selected []string
	for _, s := range win.Views() {
		if s.IsSelected {
			selected = append(selected, s.ID)
		}
	}
	if !slices.Equal(selected, []string{"v3"}) {
		t.Errorf("selected = %v", selected)
	}
}

func TestMove_RenderOrderStable(t *testing.T) {
	win, _ := testWindow(t, nil)
	ctx := context.Background()
	for range 3 {
		win.Open(ctx, "")
	}

	if err := win.Move("v3", 0); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if got := ids(win.Views()); !slices.Equal(got, []string{"v3", "v1", "v2"}) {
		t.Errorf("display order = %v", got)
	}
	if got := ids(win.RenderOrder()); !slices.Equal(got, []string{"v1", "v2", "v3"}) {
		t.Errorf("render order = %v", got)
	}
	if err := win.Move("nope", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing view err = %v", err)
	}
}

func TestThumbnail_AttachedAndSaved(t *testing.T) {
	st := testStore(t)
	win, fakes := testWindow(t, st)
	ctx := context.Background()
	win.Open(ctx, "https://shop.example.com/cart")

	f := fakes()[0]
	f.Emit(surface.Event{Kind: surface.LocationChange, Text: "https://shop.example.com/cart"})
	f.Emit(surface.Event{Kind: surface.LoadEnd})

	waitFor(t, "thumbnail", func() bool { _, ok := win.Thumbnail("v1"); return ok })
	waitFor(t, "thumbnail saved", func() bool {
		n, _ := st.CountThumbnails(ctx)
		return n == 1
	})

	img, err := st.Lookup(ctx, "example.com")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if img.MIME != "image/png" {
		t.Errorf("mime = %q", img.MIME)
	}
}

func TestThumbnail_CachedOriginSkipsCapture(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	if err := st.Save(ctx, "example.com", thumbnailFixture); err != nil {
		t.Fatalf("Save: %v", err)
	}
	win, fakes := testWindow(t, st)
	win.Open(ctx, "https://example.com/")

	f := fakes()[0]
	f.Emit(surface.Event{Kind: surface.LocationChange, Text: "https://example.com/"})

	waitFor(t, "thumbnail", func() bool { _, ok := win.Thumbnail("v1"); return ok })
	if n := f.Captures(); n != 0 {
		t.Errorf("captures = %d, want 0", n)
	}
}

func TestDiagnostics_Recorded(t *testing.T) {
	st := testStore(t)
	win, fakes := testWindow(t, st)
	win.Open(context.Background(), "https://a.example/")

	fakes()[0].Emit(surface.Event{Kind: surface.Error, Text: "ReferenceError: x is not defined"})

	waitFor(t, "diagnostic", func() bool {
		d, _ := st.Diagnostics().Recent(context.Background(), "v1", 10)
		return len(d) == 1
	})
	if s, _ := win.View("v1"); s.Title != "" || s.IsLoading {
		t.Errorf("diagnostic changed state: %+v", s)
	}
}

func TestSession_SaveRestore(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	win, _ := testWindow(t, st)
	win.Open(ctx, "https://a.example/")
	win.Open(ctx, "https://b.example/")
	win.Command(ctx, "v2", "pin")
	win.Command(ctx, "v2", "zoom-in")
	win.Move("v2", 0)

	n, err := win.SaveSession(ctx)
	if err != nil || n != 2 {
		t.Fatalf("SaveSession = %d, %v", n, err)
	}

	restored, fakes := testWindow(t, st)
	n, err = restored.RestoreSession(ctx)
	if err != nil || n != 2 {
		t.Fatalf("RestoreSession = %d, %v", n, err)
	}
	if got := ids(restored.Views()); !slices.Equal(got, []string{"v2", "v1"}) {
		t.Errorf("restored order = %v", got)
	}
	s, _ := restored.View("v2")
	if !s.IsPinned || s.Zoom != 1.1 || s.URI != "https://b.example/" {
		t.Errorf("restored v2 = %+v", s)
	}
	// Surfaces open in id order: v1 first even though v2 is displayed first.
	if got := fakes()[1].Commands(); !slices.Equal(got, []string{"navigate:https://b.example/", "zoom:1.1"}) {
		t.Errorf("restored surface commands = %v", got)
	}

	// Restoring again skips views already open.
	if n, _ := restored.RestoreSession(ctx); n != 0 {
		t.Errorf("second restore mounted %d", n)
	}
}

func TestSession_RestoreMountsInIDOrder(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	var saved []viewstate.State
	for _, v := range []struct{ id, uri string }{
		{"b", "https://b.example/"},
		{"a", "https://a.example/"},
		{"c", "https://c.example/"},
		{"d", ""},
	} {
		id := v.id
		saved = append(saved, viewstate.Open(func() string { return id }, viewstate.WithURI(v.uri)))
	}
	if err := st.SaveSession(ctx, saved); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	win, fakes := testWindow(t, st)
	n, err := win.RestoreSession(ctx)
	if err != nil || n != 4 {
		t.Fatalf("RestoreSession = %d, %v", n, err)
	}
	if got := ids(win.Views()); !slices.Equal(got, []string{"b", "a", "c", "d"}) {
		t.Errorf("display order = %v", got)
	}

	var mounted []string
	for _, f := range fakes() {
		mounted = append(mounted, f.Commands()[0])
	}
	want := []string{"navigate:https://a.example/", "navigate:https://b.example/", "navigate:https://c.example/"}
	if !slices.Equal(mounted, want) {
		t.Errorf("mount order = %v, want %v", mounted, want)
	}
}

func TestSession_NoStore(t *testing.T) {
	win, _ := testWindow(t, nil)
	if _, err := win.SaveSession(context.Background()); err == nil {
		t.Error("expected error without a store")
	}
}

func TestRemount_FreshSurfaces(t *testing.T) {
	win, fakes := testWindow(t, nil)
	ctx := context.Background()
	win.Open(ctx, "https://a.example/")
	win.Open(ctx, "https://b.example/")

	win.Remount(ctx)

	all := fakes()
	if len(all) != 4 {
		t.Fatalf("surfaces = %d, want 4", len(all))
	}
	if !all[0].Closed() || !all[1].Closed() {
		t.Error("old surfaces not closed")
	}
	if got := ids(win.Views()); !slices.Equal(got, []string{"v1", "v2"}) {
		t.Errorf("views = %v", got)
	}
	if _, err := win.Command(ctx, "v1", "reload"); err != nil {
		t.Fatalf("reload after remount: %v", err)
	}
	if got := all[2].Commands(); !slices.Contains(got, "reload") {
		t.Errorf("new surface commands = %v", got)
	}
}

func TestRemount_IDOrder(t *testing.T) {
	win, fakes := testWindow(t, nil)
	ctx := context.Background()
	win.Open(ctx, "https://a.example/")
	win.Open(ctx, "https://b.example/")
	win.Open(ctx, "")
	win.Move("v2", 0)

	win.Remount(ctx)

	all := fakes()
	if len(all) != 4 {
		t.Fatalf("surfaces = %d, want 4", len(all))
	}
	if got := all[2].Commands(); !slices.Equal(got, []string{"navigate:https://a.example/"}) {
		t.Errorf("first remounted surface = %v", got)
	}
	if got := all[3].Commands(); !slices.Equal(got, []string{"navigate:https://b.example/"}) {
		t.Errorf("second remounted surface = %v", got)
	}
	if got := ids(win.Views()); !slices.Equal(got, []string{"v2", "v1", "v3"}) {
		t.Errorf("views = %v", got)
	}
}
