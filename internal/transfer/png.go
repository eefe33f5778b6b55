/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transfer

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"

	"markbox/internal/domain"
)

// PNGOptions controls raster rendering.
type PNGOptions struct {
	// Scale multiplies the board size for the output raster; zero uses 1.
	Scale float64
}

// ExportPNG renders the rectangle list into a raster of the fixed board
// size and writes it as PNG. The board is drawn at model resolution and
// rescaled with a bilinear kernel when Scale differs from 1.
func ExportPNG(w io.Writer, rects []domain.Rectangle, opt PNGOptions) error {
	if opt.Scale <= 0 {
		opt.Scale = 1
	}

	base := image.NewRGBA(image.Rect(0, 0, int(domain.CanvasWidth), int(domain.CanvasHeight)))
	fill(base, base.Bounds(), color.White)

	for _, r := range rects {
		cr, cg, cb, err := ParseHexColor(r.Color)
		if err != nil {
			return err
		}
		rect := image.Rect(
			int(math.Round(r.X)),
			int(math.Round(r.Y)),
			int(math.Round(r.X+r.Width)),
			int(math.Round(r.Y+r.Height)),
		).Intersect(base.Bounds())
		if rect.Empty() {
			continue
		}
		body := color.RGBA{R: cr, G: cg, B: cb, A: 90}
		edge := color.RGBA{R: cr, G: cg, B: cb, A: 255}
		blend(base, rect, body)
		outline(base, rect, edge)
	}

	out := base
	if opt.Scale != 1 {
		dst := image.NewRGBA(image.Rect(0, 0,
			int(math.Round(domain.CanvasWidth*opt.Scale)),
			int(math.Round(domain.CanvasHeight*opt.Scale))))
		xdraw.BiLinear.Scale(dst, dst.Bounds(), base, base.Bounds(), xdraw.Over, nil)
		out = dst
	}
	return png.Encode(w, out)
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

func blend(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, y, over(img.RGBAAt(x, y), c))
		}
	}
}

func outline(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, c)
		img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}

func over(dst color.RGBA, src color.RGBA) color.RGBA {
	a := uint32(src.A)
	ia := 255 - a
	return color.RGBA{
		R: uint8((uint32(src.R)*a + uint32(dst.R)*ia) / 255),
		G: uint8((uint32(src.G)*a + uint32(dst.G)*ia) / 255),
		B: uint8((uint32(src.B)*a + uint32(dst.B)*ia) / 255),
		A: 255,
	}
}
