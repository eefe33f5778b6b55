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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"markbox/internal/editor"
)

func TestWatchDirImportsDroppedDocument(t *testing.T) {
	dir := t.TempDir()
	store := editor.NewStore()
	notice := &editor.Notice{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = WatchDir(ctx, dir, store, notice)
	}()
	// give the watcher a moment to register
	time.Sleep(100 * time.Millisecond)

	var buf bytes.Buffer
	if err := Export(&buf, sampleRects()); err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "drop.json"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for store.Len() != len(sampleRects()) {
		if time.Now().After(deadline) {
			t.Fatalf("dropped document was not imported (len=%d)", store.Len())
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop on context cancel")
	}
}

func TestWatchDirRejectsMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	store := editor.NewStore()
	store.Commit(sampleRects()[0])
	notice := &editor.Notice{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = WatchDir(ctx, dir, store, notice) }()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"nope":true}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, ok := notice.Get(); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("malformed drop did not surface a notice")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if store.Len() != 1 {
		t.Fatalf("store touched by malformed drop")
	}
}
