/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package transfer

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"markbox/internal/editor"
	applog "markbox/internal/log"
)

// WatchDir imports any .json annotation document created or rewritten in
// dir into the store, through the same validated Import path as a manual
// import. Events are handled one at a time; a malformed document surfaces
// on the notice and leaves the store untouched. Blocks until ctx is done.
func WatchDir(ctx context.Context, dir string, store *editor.Store, notice *editor.Notice) error {
	l := applog.WithComponent("transfer").With(slog.String("dir", dir))

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	l.Info("watching drop folder")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(ev.Name), ".json") {
				continue
			}
			if err := ImportFile(store, ev.Name); err != nil {
				l.Warn("drop-folder import rejected", slog.String("file", ev.Name), slog.Any("err", err))
				if notice != nil {
					notice.Set("could not import " + filepath.Base(ev.Name))
				}
				continue
			}
			l.Info("drop-folder import applied", slog.String("file", ev.Name), slog.Int("rects", store.Len()))
			if notice != nil {
				notice.Clear()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Warn("watcher error", slog.Any("err", err))
		}
	}
}
