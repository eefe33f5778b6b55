/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"math/rand"
	"sync"

	"markbox/internal/domain"
)

// DrawState is the gesture state of the draw controller.
type DrawState int

const (
	// StateIdle: drawing mode off, no gesture.
	StateIdle DrawState = iota
	// StateArmed: drawing mode on, waiting for a pointer-down on the
	// canvas background.
	StateArmed
	// StateTracking: pointer is down and dragging out a provisional
	// rectangle.
	StateTracking
)

func (s DrawState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateTracking:
		return "tracking"
	}
	return "unknown"
}

// DrawController turns pointer events into a provisional rectangle and, on
// pointer-up, commits its normalized form into the store. The provisional
// rectangle keeps signed width/height while tracking so the drag direction
// survives until normalization.
type DrawController struct {
	store *Store

	mu             sync.Mutex
	state          DrawState
	startX, startY float64
	prov           *domain.Rectangle
}

func NewDrawController(store *Store) *DrawController {
	return &DrawController{store: store, state: StateIdle}
}

// SetMode toggles drawing mode. Turning it off while a gesture is tracking
// finishes that gesture by the normal pointer-up rule first, then drops to
// idle.
func (d *DrawController) SetMode(on bool) {
	d.mu.Lock()
	if on {
		if d.state == StateIdle {
			d.state = StateArmed
		}
		d.mu.Unlock()
		return
	}
	if d.state == StateTracking {
		d.finishLocked()
	}
	d.state = StateIdle
	d.mu.Unlock()
}

// Mode reports whether drawing mode is on.
func (d *DrawController) Mode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state != StateIdle
}

// State returns the current gesture state.
func (d *DrawController) State() DrawState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Provisional returns the in-progress rectangle, if a gesture is tracking.
func (d *DrawController) Provisional() (domain.Rectangle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.prov == nil {
		return domain.Rectangle{}, false
	}
	return *d.prov, true
}

// PointerDown starts a gesture when drawing mode is on and the event hit the
// canvas background rather than an existing shape.
func (d *DrawController) PointerDown(x, y float64, onShape bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateArmed || onShape {
		return
	}
	d.startX, d.startY = x, y
	d.prov = &domain.Rectangle{
		ID:    domain.NewRectangleID(),
		X:     x,
		Y:     y,
		Color: randomHexColor(),
	}
	d.state = StateTracking
}

// PointerMove recomputes the provisional signed size from the drag vector.
func (d *DrawController) PointerMove(x, y float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateTracking {
		return
	}
	d.prov.Width = x - d.startX
	d.prov.Height = y - d.startY
}

// PointerUp ends the gesture: the provisional rectangle is normalized and
// offered to the store, then discarded regardless of the commit outcome.
func (d *DrawController) PointerUp() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateTracking {
		return
	}
	d.finishLocked()
	d.state = StateArmed
}

func (d *DrawController) finishLocked() {
	r := d.prov.Normalized()
	d.prov = nil
	// Commit applies the minimum-size threshold; the normalized magnitudes
	// equal the raw signed deltas, so the pre-normalization check holds.
	d.store.Commit(r)
}

func randomHexColor() string {
	return fmt.Sprintf("#%06x", rand.Intn(0x1000000))
}
