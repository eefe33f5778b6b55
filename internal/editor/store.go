/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor implements the interactive annotation engine: the canonical
// rectangle store, the draw gesture state machine and the transform
// controller. Controllers only propose changes; every mutation of the
// rectangle list goes through the Store.
package editor

import (
	"errors"
	"sync"

	"markbox/internal/domain"
)

// ErrBadDocument is reported when ReplaceAll is handed anything that is not
// a list of well-formed rectangle records. The store is left untouched.
var ErrBadDocument = errors.New("document is not a list of well-formed rectangles")

// Patch carries a partial attribute update; nil fields are left unchanged.
type Patch struct {
	X      *float64
	Y      *float64
	Width  *float64
	Height *float64
	Color  *string
}

// Float returns a pointer for use in a Patch.
func Float(v float64) *float64 { return &v }

// Str returns a pointer for use in a Patch.
func Str(v string) *string { return &v }

// Store owns the ordered rectangle list and the single selection reference.
// It is safe for concurrent use; the auto-save debounce fires on a timer
// goroutine and reads the list through it.
type Store struct {
	mu        sync.Mutex
	rects     []domain.Rectangle
	selected  string
	listeners []func()
}

func NewStore() *Store { return &Store{} }

// OnChange registers fn to run after every successful list mutation
// (commit, update, remove, clear, replaceAll). Selection changes do not
// fire it; they restart no auto-save window.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Commit appends r iff both dimensions exceed the minimum size threshold.
// The threshold is exclusive: a 5x5 rectangle is discarded. Returns whether
// the rectangle was stored.
func (s *Store) Commit(r domain.Rectangle) bool {
	if r.Width <= domain.MinRectSize || r.Height <= domain.MinRectSize {
		return false
	}
	s.mu.Lock()
	s.rects = append(s.rects, r)
	s.mu.Unlock()
	s.notify()
	return true
}

// Update replaces the attributes carried by patch on the rectangle matching
// id. A stale id is a valid transient condition, not an error: no-op.
func (s *Store) Update(id string, patch Patch) {
	s.mu.Lock()
	hit := false
	for i := range s.rects {
		if s.rects[i].ID != id {
			continue
		}
		r := &s.rects[i]
		if patch.X != nil {
			r.X = *patch.X
		}
		if patch.Y != nil {
			r.Y = *patch.Y
		}
		if patch.Width != nil {
			r.Width = *patch.Width
		}
		if patch.Height != nil {
			r.Height = *patch.Height
		}
		if patch.Color != nil {
			r.Color = *patch.Color
		}
		hit = true
		break
	}
	s.mu.Unlock()
	if hit {
		s.notify()
	}
}

// Remove deletes the rectangle matching id and clears the selection if it
// pointed at it. Stale ids are ignored.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	hit := false
	for i := range s.rects {
		if s.rects[i].ID == id {
			s.rects = append(s.rects[:i], s.rects[i+1:]...)
			if s.selected == id {
				s.selected = ""
			}
			hit = true
			break
		}
	}
	s.mu.Unlock()
	if hit {
		s.notify()
	}
}

// Clear empties the list and clears the selection.
func (s *Store) Clear() {
	s.mu.Lock()
	s.rects = nil
	s.selected = ""
	s.mu.Unlock()
	s.notify()
}

// ReplaceAll swaps in newList wholesale. This is the sole validation point
// for untrusted input: if any record is malformed the state is left
// unchanged and ErrBadDocument is returned. Selection is cleared on success
// since ids from a foreign document need not match the old ones.
func (s *Store) ReplaceAll(newList []domain.Rectangle) error {
	for _, r := range newList {
		if !r.Valid() {
			return ErrBadDocument
		}
	}
	s.mu.Lock()
	s.rects = append([]domain.Rectangle{}, newList...)
	s.selected = ""
	s.mu.Unlock()
	s.notify()
	return nil
}

// Rectangles returns a copy of the current list in order.
func (s *Store) Rectangles() []domain.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Rectangle{}, s.rects...)
}

// Len returns the number of stored rectangles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rects)
}

// Get returns the rectangle matching id.
func (s *Store) Get(id string) (domain.Rectangle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rects {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Rectangle{}, false
}

// Select marks id as the single selected rectangle, replacing any prior
// selection. Selecting an id that is not in the list is ignored.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rects {
		if r.ID == id {
			s.selected = id
			return
		}
	}
}

// ClearSelection drops the selection without touching the list.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	s.selected = ""
	s.mu.Unlock()
}

// SelectedID returns the selected rectangle id, if any.
func (s *Store) SelectedID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

// Selected returns the selected rectangle, if any.
func (s *Store) Selected() (domain.Rectangle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return domain.Rectangle{}, false
	}
	for _, r := range s.rects {
		if r.ID == s.selected {
			return r, true
		}
	}
	return domain.Rectangle{}, false
}
