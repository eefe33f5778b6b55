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

import "markbox/internal/domain"

// TransformController applies drag and resize gesture results to the
// selected rectangle. The rendering layer reports resize as scale factors
// relative to the last committed size; they are translated into absolute
// width/height exactly once and never stored, so scale cannot compound
// across edits.
type TransformController struct {
	store *Store
}

func NewTransformController(store *Store) *TransformController {
	return &TransformController{store: store}
}

// DragEnd moves the selected rectangle to its final rendered position.
// Gestures on anything but the selected rectangle are ignored.
func (t *TransformController) DragEnd(id string, x, y float64) {
	if sel, ok := t.store.SelectedID(); !ok || sel != id {
		return
	}
	t.store.Update(id, Patch{X: Float(x), Y: Float(y)})
}

// ResizeEnd folds the reported scale factors into absolute dimensions,
// enforcing the minimum size floor, and records the new position. The
// caller must reset the rendered scale to 1 after this returns.
func (t *TransformController) ResizeEnd(id string, x, y, scaleX, scaleY float64) {
	if sel, ok := t.store.SelectedID(); !ok || sel != id {
		return
	}
	r, ok := t.store.Get(id)
	if !ok {
		return
	}
	w := r.Width * scaleX
	if w < domain.MinRectSize {
		w = domain.MinRectSize
	}
	h := r.Height * scaleY
	if h < domain.MinRectSize {
		h = domain.MinRectSize
	}
	t.store.Update(id, Patch{X: Float(x), Y: Float(y), Width: Float(w), Height: Float(h)})
}

// ClampBounds is the interactive resize-handle guard: when the proposed
// bounding box would shrink below the minimum on either axis, the previous
// box is kept unchanged.
func ClampBounds(prev, proposed domain.Rectangle) domain.Rectangle {
	if proposed.Width < domain.MinRectSize || proposed.Height < domain.MinRectSize {
		return prev
	}
	return proposed
}
