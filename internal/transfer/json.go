/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package transfer moves annotation documents in and out of the editor:
// JSON export/import (the canonical interchange format, schema-validated on
// the way in), SVG/PDF/PNG renderings for sharing, and a drop-folder
// watcher that imports documents placed on disk.
package transfer

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"markbox/internal/domain"
	"markbox/internal/editor"
)

//go:embed schema.json
var schemaBytes []byte

// ErrBadFormat is reported when an imported document is not valid JSON or
// does not match the annotation document schema. The store is left
// untouched.
var ErrBadFormat = errors.New("annotation document is malformed")

// Export writes the rectangle list as an indented JSON array. The output is
// round-trip compatible with Import.
func Export(w io.Writer, rects []domain.Rectangle) error {
	if rects == nil {
		rects = []domain.Rectangle{}
	}
	data, err := json.MarshalIndent(rects, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal annotations: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// FileName returns the download file name for an export generated at t.
func FileName(t time.Time) string {
	return "annotations-" + t.Format("20060102-150405") + ".json"
}

// ExportFile writes the export document into dir under a timestamped name
// and returns the full path.
func ExportFile(dir string, rects []domain.Rectangle) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(time.Now()))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := Export(f, rects); err != nil {
		return "", err
	}
	return path, nil
}

// Import parses and validates an annotation document and replaces the store
// contents with it. Any failure (unparseable input, a non-array root, or a
// record that misses the schema) reports ErrBadFormat and leaves the store
// untouched. Selection is cleared on success.
func Import(store *editor.Store, data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if !result.Valid() {
		if errs := result.Errors(); len(errs) > 0 {
			return fmt.Errorf("%w: %s", ErrBadFormat, errs[0])
		}
		return ErrBadFormat
	}
	var rects []domain.Rectangle
	if err := json.Unmarshal(data, &rects); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if err := store.ReplaceAll(rects); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	return nil
}

// ImportFile reads path and imports its contents.
func ImportFile(store *editor.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read annotation document: %w", err)
	}
	return Import(store, data)
}
