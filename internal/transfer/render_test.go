/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package transfer

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"markbox/internal/domain"
)

func TestExportSVGContainsRects(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportSVG(&buf, sampleRects(), SVGOptions{}); err != nil {
		t.Fatalf("svg: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<svg") || !strings.Contains(out, "</svg>") {
		t.Fatalf("not an svg document: %s", out)
	}
	if strings.Count(out, "<rect") != len(sampleRects()) {
		t.Fatalf("expected %d rect elements:\n%s", len(sampleRects()), out)
	}
	if !strings.Contains(out, `fill="#a3f04b"`) {
		t.Fatalf("rectangle color missing:\n%s", out)
	}
}

func TestExportPDFProducesDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportPDF(&buf, sampleRects(), PDFOptions{}); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Fatalf("output is not a PDF (len=%d)", buf.Len())
	}
}

func TestExportPDFRejectsBadColor(t *testing.T) {
	var buf bytes.Buffer
	bad := []domain.Rectangle{{ID: "a", Width: 10, Height: 10, Color: "red"}}
	if err := ExportPDF(&buf, bad, PDFOptions{}); err == nil {
		t.Fatalf("expected error on invalid color")
	}
}

func TestExportPNGDecodes(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportPNG(&buf, sampleRects(), PNGOptions{}); err != nil {
		t.Fatalf("png: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != int(domain.CanvasWidth) || b.Dy() != int(domain.CanvasHeight) {
		t.Fatalf("unexpected raster size %v", b)
	}
}

func TestExportPNGScaled(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportPNG(&buf, sampleRects(), PNGOptions{Scale: 0.5}); err != nil {
		t.Fatalf("png: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != int(domain.CanvasWidth/2) {
		t.Fatalf("scale not applied: %v", img.Bounds())
	}
}

func TestParseHexColor(t *testing.T) {
	r, g, b, err := ParseHexColor("#a3f04b")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if r != 0xa3 || g != 0xf0 || b != 0x4b {
		t.Fatalf("wrong channels: %d %d %d", r, g, b)
	}
	if _, _, _, err := ParseHexColor("fff"); err == nil {
		t.Fatalf("expected error for short color")
	}
}
