/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transfer

import (
	"bytes"
	"fmt"
	"io"

	"markbox/internal/domain"
)

// SVGOptions controls SVG rendering of an annotation set.
type SVGOptions struct {
	// Width/Height of the drawing in canvas units; zero values use the
	// fixed board size.
	Width, Height float64
	// StrokeWidth for rectangle outlines; zero uses 1.
	StrokeWidth float64
	// Opacity of rectangle fills in [0,1]; zero uses 0.35 so overlapping
	// annotations stay readable.
	Opacity float64
}

func (o *SVGOptions) defaults() {
	if o.Width <= 0 {
		o.Width = domain.CanvasWidth
	}
	if o.Height <= 0 {
		o.Height = domain.CanvasHeight
	}
	if o.StrokeWidth <= 0 {
		o.StrokeWidth = 1
	}
	if o.Opacity <= 0 {
		o.Opacity = 0.35
	}
}

// ExportSVG renders the rectangle list as a standalone SVG document.
func ExportSVG(w io.Writer, rects []domain.Rectangle, opt SVGOptions) error {
	opt.defaults()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<?xml version="1.0" encoding="UTF-8"?>`+"\n")
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g">`+"\n",
		opt.Width, opt.Height, opt.Width, opt.Height)
	for _, r := range rects {
		fmt.Fprintf(&buf,
			`  <rect id=%q x="%g" y="%g" width="%g" height="%g" fill="%s" fill-opacity="%g" stroke="%s" stroke-width="%g"/>`+"\n",
			r.ID, r.X, r.Y, r.Width, r.Height, r.Color, opt.Opacity, r.Color, opt.StrokeWidth)
	}
	buf.WriteString("</svg>\n")
	_, err := w.Write(buf.Bytes())
	return err
}
