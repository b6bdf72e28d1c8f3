package deck

import (
	"errors"
	"testing"

	"github.com/hazyhaar/tabview/viewstate"
)

func view(id string) viewstate.State {
	return viewstate.Open(func() string { return id }, viewstate.WithURI("https://"+id+".example/"))
}

func ids(states []viewstate.State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRenderOrder_ByID(t *testing.T) {
	d := New(true, view("b"), view("a"), view("c"))

	if got := ids(d.RenderOrder()); !equal(got, []string{"a", "b", "c"}) {
		t.Errorf("RenderOrder: got %v, want [a b c]", got)
	}
	if got := ids(d.Items()); !equal(got, []string{"b", "a", "c"}) {
		t.Errorf("Items: got %v, want [b a c]", got)
	}

	moved := d.Move("c", 0)
	if got := ids(moved.Items()); !equal(got, []string{"c", "b", "a"}) {
		t.Errorf("Items after move: got %v, want [c b a]", got)
	}
	if got := ids(moved.RenderOrder()); !equal(got, []string{"a", "b", "c"}) {
		t.Errorf("RenderOrder after move: got %v, want [a b c]", got)
	}
}

func TestInsert_Duplicate(t *testing.T) {
	d := New(false, view("a"))
	d2, err := d.Insert(view("a"))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Insert: got %v, want ErrDuplicateID", err)
	}
	if d2.Len() != 1 {
		t.Errorf("Len: got %d, want 1", d2.Len())
	}
}

func TestNew_DropsDuplicates(t *testing.T) {
	d := New(false, view("a"), view("a"), view("b"))
	if d.Len() != 2 {
		t.Errorf("Len: got %d, want 2", d.Len())
	}
}

func TestInsert_DoesNotAliasParent(t *testing.T) {
	base := New(false, view("a"))
	x, _ := base.Insert(view("x"))
	y, _ := base.Insert(view("y"))
	if got := ids(x.Items()); !equal(got, []string{"a", "x"}) {
		t.Errorf("x: got %v", got)
	}
	if got := ids(y.Items()); !equal(got, []string{"a", "y"}) {
		t.Errorf("y: got %v", got)
	}
}

func TestUpdate_Scoped(t *testing.T) {
	d := New(true, view("a"), view("b"))
	d2, ok := d.Update("b", func(s viewstate.State) viewstate.State {
		s = viewstate.SetTitle(s, "B")
		s.ID = "hijack"
		return s
	})
	if !ok {
		t.Fatal("Update: not found")
	}
	b, _ := d2.Get("b")
	if b.Title != "B" {
		t.Errorf("Title: got %q, want %q", b.Title, "B")
	}
	if old, _ := d.Get("b"); old.Title != "" {
		t.Errorf("original deck changed: %q", old.Title)
	}
	if a, _ := d2.Get("a"); a.Title != "" {
		t.Errorf("sibling changed: %q", a.Title)
	}

	if _, ok := d.Update("zzz", viewstate.Reload); ok {
		t.Error("Update on unknown id reported found")
	}
}

func TestRemove(t *testing.T) {
	d := New(true, view("a"), view("b"), view("c"))
	d2 := d.Remove("b")
	if got := ids(d2.Items()); !equal(got, []string{"a", "c"}) {
		t.Errorf("Remove: got %v", got)
	}
	if d.Len() != 3 {
		t.Errorf("original Len: got %d, want 3", d.Len())
	}
	if d3 := d2.Remove("nope"); d3.Len() != 2 {
		t.Errorf("Remove unknown: got %d", d3.Len())
	}
}

func TestSelect(t *testing.T) {
	d := New(true, view("a"), view("b")).Select("a").Select("b")
	sel, ok := d.Selected()
	if !ok || sel.ID != "b" {
		t.Fatalf("Selected: got %q ok=%v", sel.ID, ok)
	}
	if a, _ := d.Get("a"); a.IsSelected {
		t.Error("a still selected")
	}
}

func TestActive(t *testing.T) {
	d := New(false)
	if d.IsActive() {
		t.Fatal("IsActive: got true")
	}
	if !d.SetActive(true).IsActive() {
		t.Error("SetActive(true) not applied")
	}
	if d.IsActive() {
		t.Error("SetActive mutated receiver")
	}
}

func TestPersistent(t *testing.T) {
	s := viewstate.OnThumbnailReady(view("a"), "blob:1")
	p := New(true, s).Persistent()
	if len(p) != 1 || p[0].Thumbnail != "" || p[0].URI == "" {
		t.Errorf("Persistent: got %+v", p)
	}
}
