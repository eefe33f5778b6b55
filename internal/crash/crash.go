/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns an unrecovered panic into a report file plus an
// emergency snapshot of the current rectangle list, so a crash costs at
// most the last gesture.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"markbox/internal/editor"
	applog "markbox/internal/log"
	"markbox/internal/telemetry"
	"markbox/internal/transfer"
	"markbox/internal/version"
)

// exitFn is swapped in tests so Recover does not kill the test process.
var exitFn = os.Exit

// ReportDir is where crash reports and emergency snapshots land.
// MB_CRASH_DIR overrides; otherwise <user cache>/markbox/crash, falling
// back to the temp dir.
func ReportDir() string {
	if dir := os.Getenv("MB_CRASH_DIR"); dir != "" {
		return dir
	}
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "markbox", "crash")
	}
	return filepath.Join(os.TempDir(), "markbox-crash")
}

// Recover captures a panic, logs it with the stack, writes a report
// file, snapshots the store's rectangles as a JSON document and exits
// non-zero.
//
// Usage: defer crash.Recover(store)
func Recover(store *editor.Store) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	dir := ReportDir()
	_ = os.MkdirAll(dir, 0o755)

	reportPath, err := writeReport(dir, r, stack)
	if err != nil {
		l.Error("crash report failed", slog.Any("err", err))
	}
	if store != nil && store.Len() > 0 {
		if path, err := transfer.ExportFile(dir, store.Rectangles()); err != nil {
			l.Error("emergency snapshot failed", slog.Any("err", err))
		} else {
			l.Info("emergency snapshot written", slog.String("path", path))
		}
	}

	fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func writeReport(dir string, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "markbox crash report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
