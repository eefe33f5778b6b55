/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain defines the core data model for Markbox: rectangle
// annotations, the persisted annotation set, and the accounts they belong to.
// The JSON shape of Rectangle is the interchange format shared by the file
// exporter/importer and the annotation service.
package domain

import (
	"math"

	"github.com/google/uuid"
)

// Canvas dimensions in canvas units. The board is fixed-size; pointer
// coordinates and rectangle geometry share this space.
const (
	CanvasWidth  = 800.0
	CanvasHeight = 600.0
)

// MinRectSize is the exclusive lower bound for committed rectangle
// dimensions, in canvas units. A gesture whose absolute width or height does
// not exceed it never produces a stored rectangle, and resize operations
// clamp to it.
const MinRectSize = 5.0

// Rectangle is a single axis-aligned rectangle annotation.
// X/Y reference the top-left corner after normalization; Width/Height are
// non-negative once a rectangle has been committed.
type Rectangle struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  string  `json:"color"` // hex RGB, e.g. "#a3f04b"
}

// NewRectangleID returns a fresh opaque rectangle id.
func NewRectangleID() string { return uuid.NewString() }

// Normalized returns the rectangle in canonical top-left-origin form:
// negative width/height (a gesture dragged up or left) is resolved by
// shifting X/Y and taking absolute magnitudes.
func (r Rectangle) Normalized() Rectangle {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// Valid reports whether the rectangle is a well-formed record: non-empty id,
// finite non-negative dimensions, finite position and a hex RGB color. This
// is the record-level check behind the store's ReplaceAll validation point.
func (r Rectangle) Valid() bool {
	if r.ID == "" {
		return false
	}
	for _, v := range [...]float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	if r.Width < 0 || r.Height < 0 {
		return false
	}
	return ValidHexColor(r.Color)
}

// ValidHexColor reports whether s is a "#rrggbb" hex RGB color.
func ValidHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// AnnotationSet is the persisted collection of rectangles for a user
// session. ID is absent until the annotation service assigns one on first
// successful save; all later saves update that id.
type AnnotationSet struct {
	ID         string      `json:"_id,omitempty"`
	Rectangles []Rectangle `json:"rectangles"`
}

// Persisted reports whether the set has been saved at least once.
func (s AnnotationSet) Persisted() bool { return s.ID != "" }

// User is the account a set belongs to, as returned by the auth endpoints.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
