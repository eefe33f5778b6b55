/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transfer

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"markbox/internal/domain"
)

// PDFOptions controls PDF rendering. Units are points for a 1:1 mapping
// from canvas units.
type PDFOptions struct {
	Width, Height float64 // page size; zero uses the fixed board size
	Title         string
}

// ExportPDF renders the rectangle list onto a single-page PDF. Fills use
// each rectangle's color; a hairline outline keeps pale colors visible.
func ExportPDF(w io.Writer, rects []domain.Rectangle, opt PDFOptions) error {
	if opt.Width <= 0 {
		opt.Width = domain.CanvasWidth
	}
	if opt.Height <= 0 {
		opt.Height = domain.CanvasHeight
	}
	if opt.Title == "" {
		opt.Title = "Markbox annotations"
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: opt.Width, Ht: opt.Height},
		OrientationStr: "",
	})
	pdf.SetTitle(opt.Title, false)
	pdf.AddPage()

	pdf.SetLineWidth(0.5)
	for _, r := range rects {
		cr, cg, cb, err := ParseHexColor(r.Color)
		if err != nil {
			return err
		}
		pdf.SetFillColor(int(cr), int(cg), int(cb))
		pdf.SetDrawColor(int(cr)/2, int(cg)/2, int(cb)/2)
		pdf.Rect(r.X, r.Y, r.Width, r.Height, "FD")
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ParseHexColor splits a "#rrggbb" color into channels.
func ParseHexColor(s string) (r, g, b uint8, err error) {
	if !domain.ValidHexColor(s) {
		return 0, 0, 0, fmt.Errorf("invalid color %q", s)
	}
	var rv, gv, bv int
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &rv, &gv, &bv); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return uint8(rv), uint8(gv), uint8(bv), nil
}
