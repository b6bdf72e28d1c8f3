// CLAUDE:SUMMARY Immutable ordered collection of view states with id-sorted render order and scoped per-item update.
// Package deck is the ordered collection of views shown in one window.
//
// Two orders coexist. Display order (Items) is the tab strip order and is
// owned by whoever arranges tabs. Render order (RenderOrder) is the order
// content surfaces are mounted in; it is a pure function of view ids so
// reordering tabs never remounts a surface and never discards its
// in-flight content.
//
// A Deck is a value: every method that changes it returns a new Deck.
package deck

import (
	"errors"
	"slices"
	"strings"

	"github.com/hazyhaar/tabview/viewstate"
)

// ErrDuplicateID is returned when inserting a view whose id is already present.
var ErrDuplicateID = errors.New("deck: duplicate view id")

// Deck is an ordered set of views plus whether the deck itself is the one
// currently displayed.
type Deck struct {
	items  []viewstate.State
	active bool
}

// New builds a deck. Items with an id already seen are dropped.
func New(active bool, items ...viewstate.State) Deck {
	d := Deck{active: active}
	for _, s := range items {
		if _, ok := d.index(s.ID); ok {
			continue
		}
		d.items = append(d.items, s)
	}
	return d
}

// Len returns the number of views.
func (d Deck) Len() int { return len(d.items) }

// IsActive reports whether this deck is the displayed one.
func (d Deck) IsActive() bool { return d.active }

// SetActive returns d with the deck-level active flag set.
func (d Deck) SetActive(active bool) Deck {
	d.active = active
	return d
}

// Items returns the views in display order.
func (d Deck) Items() []viewstate.State {
	return slices.Clone(d.items)
}

// RenderOrder returns the views sorted by id. Display order has no effect.
func (d Deck) RenderOrder() []viewstate.State {
	out := slices.Clone(d.items)
	slices.SortStableFunc(out, func(a, b viewstate.State) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Get returns the view with id.
func (d Deck) Get(id string) (viewstate.State, bool) {
	i, ok := d.index(id)
	if !ok {
		return viewstate.State{}, false
	}
	return d.items[i], true
}

// Insert appends s to the display order.
func (d Deck) Insert(s viewstate.State) (Deck, error) {
	if _, ok := d.index(s.ID); ok {
		return d, ErrDuplicateID
	}
	d.items = append(slices.Clip(d.items), s)
	return d, nil
}

// Remove drops the view with id. Removing an unknown id is a no-op.
func (d Deck) Remove(id string) Deck {
	i, ok := d.index(id)
	if !ok {
		return d
	}
	d.items = slices.Delete(slices.Clone(d.items), i, i+1)
	return d
}

// Update replaces the view with id by fn(view). The id is preserved even
// if fn changes it. Reports whether the view was found.
func (d Deck) Update(id string, fn func(viewstate.State) viewstate.State) (Deck, bool) {
	i, ok := d.index(id)
	if !ok {
		return d, false
	}
	next := fn(d.items[i])
	next.ID = id
	items := slices.Clone(d.items)
	items[i] = next
	d.items = items
	return d, true
}

// Move places the view with id at display position to (clamped). Render
// order is unaffected.
func (d Deck) Move(id string, to int) Deck {
	i, ok := d.index(id)
	if !ok {
		return d
	}
	s := d.items[i]
	items := slices.Delete(slices.Clone(d.items), i, i+1)
	to = max(0, min(to, len(items)))
	d.items = slices.Insert(items, to, s)
	return d
}

// Select marks id as the only selected view. Unknown ids leave d unchanged.
func (d Deck) Select(id string) Deck {
	if _, ok := d.index(id); !ok {
		return d
	}
	items := slices.Clone(d.items)
	for i, s := range items {
		if s.ID == id {
			items[i] = viewstate.Select(s)
		} else if s.IsSelected {
			items[i] = viewstate.Deselect(s)
		}
	}
	d.items = items
	return d
}

// Selected returns the selected view, if any.
func (d Deck) Selected() (viewstate.State, bool) {
	for _, s := range d.items {
		if s.IsSelected {
			return s, true
		}
	}
	return viewstate.State{}, false
}

// Persistent returns the session-safe projection of every view, in
// display order.
func (d Deck) Persistent() []viewstate.State {
	out := make([]viewstate.State, len(d.items))
	for i, s := range d.items {
		out[i] = viewstate.ToPersistent(s)
	}
	return out
}

func (d Deck) index(id string) (int, bool) {
	i := slices.IndexFunc(d.items, func(s viewstate.State) bool { return s.ID == id })
	return i, i >= 0
}
