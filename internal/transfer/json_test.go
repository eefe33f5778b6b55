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
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"markbox/internal/domain"
	"markbox/internal/editor"
)

func sampleRects() []domain.Rectangle {
	return []domain.Rectangle{
		{ID: "r1", X: 40, Y: 60, Width: 60, Height: 40, Color: "#a3f04b"},
		{ID: "r2", X: 10.5, Y: 20.25, Width: 100, Height: 80, Color: "#0033ff"},
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, sampleRects()); err != nil {
		t.Fatalf("export: %v", err)
	}
	store := editor.NewStore()
	if err := Import(store, buf.Bytes()); err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := store.Rectangles(); !reflect.DeepEqual(got, sampleRects()) {
		t.Fatalf("round trip diverged:\n got %+v\nwant %+v", got, sampleRects())
	}
}

func TestExportIsIndented(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, sampleRects()); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  {") {
		t.Fatalf("expected indented document, got: %s", buf.String())
	}
}

func TestExportEmptyList(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, nil); err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("empty export must be an empty array, got %q", buf.String())
	}
	store := editor.NewStore()
	if err := Import(store, buf.Bytes()); err != nil {
		t.Fatalf("import of empty array: %v", err)
	}
}

func TestImportRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":       `{{{`,
		"object root":    `{"rectangles": []}`,
		"string root":    `"hello"`,
		"missing field":  `[{"id":"a","x":1,"y":2,"width":3,"color":"#000000"}]`,
		"bad color":      `[{"id":"a","x":1,"y":2,"width":3,"height":4,"color":"red"}]`,
		"negative size":  `[{"id":"a","x":1,"y":2,"width":-3,"height":4,"color":"#000000"}]`,
		"empty id":       `[{"id":"","x":1,"y":2,"width":3,"height":4,"color":"#000000"}]`,
		"non-number dim": `[{"id":"a","x":1,"y":2,"width":"3","height":4,"color":"#000000"}]`,
	}
	for name, doc := range cases {
		store := editor.NewStore()
		store.Commit(domain.Rectangle{ID: "keep", Width: 10, Height: 10, Color: "#111111"})
		err := Import(store, []byte(doc))
		if !errors.Is(err, ErrBadFormat) {
			t.Fatalf("%s: expected ErrBadFormat, got %v", name, err)
		}
		if store.Len() != 1 {
			t.Fatalf("%s: store touched on rejected import", name)
		}
		if _, ok := store.Get("keep"); !ok {
			t.Fatalf("%s: existing rectangle lost", name)
		}
	}
}

func TestImportClearsSelection(t *testing.T) {
	store := editor.NewStore()
	store.Commit(domain.Rectangle{ID: "old", Width: 10, Height: 10, Color: "#111111"})
	store.Select("old")
	var buf bytes.Buffer
	_ = Export(&buf, sampleRects())
	if err := Import(store, buf.Bytes()); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, ok := store.SelectedID(); ok {
		t.Fatalf("selection must be cleared after import")
	}
}

func TestFileName(t *testing.T) {
	ts := time.Date(2026, 8, 26, 13, 4, 5, 0, time.UTC)
	if got := FileName(ts); got != "annotations-20260826-130405.json" {
		t.Fatalf("unexpected file name %q", got)
	}
}

func TestExportFileAndImportFile(t *testing.T) {
	dir := t.TempDir()
	path, err := ExportFile(dir, sampleRects())
	if err != nil {
		t.Fatalf("export file: %v", err)
	}
	if !strings.HasPrefix(path, dir) || !strings.HasSuffix(path, ".json") {
		t.Fatalf("unexpected export path %q", path)
	}
	store := editor.NewStore()
	if err := ImportFile(store, path); err != nil {
		t.Fatalf("import file: %v", err)
	}
	if store.Len() != len(sampleRects()) {
		t.Fatalf("expected %d rectangles, got %d", len(sampleRects()), store.Len())
	}
}
