/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package sync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"markbox/internal/editor"
	applog "markbox/internal/log"
)

// DefaultDebounce is the quiet period after the last list mutation before an
// auto-save fires.
const DefaultDebounce = 2 * time.Second

var (
	// ErrLoadFailed marks a recoverable startup load failure; the editor
	// continues with an empty set.
	ErrLoadFailed = errors.New("loading annotations failed")
	// ErrSaveFailed marks a failed save; edits remain in memory only.
	ErrSaveFailed = errors.New("saving annotations failed")
)

// Syncer ties a Store to the annotation service. It tracks the active set
// id (absent until the first successful save) and schedules trailing
// debounced auto-saves on store mutations.
//
// Saves are not serialized against each other: a save triggered while a
// prior one is in flight may complete out of order, and the last response
// to land wins the stored id. The rectangles sent with each save are a
// snapshot taken at call time.
type Syncer struct {
	store  *editor.Store
	client *Client
	notice *editor.Notice
	log    *slog.Logger

	mu       sync.Mutex
	setID    string
	auto     bool
	timer    *time.Timer
	debounce time.Duration
}

// NewSyncer wires the syncer into the store's change feed. notice may be
// nil when no user-visible surface exists (headless import tooling).
func NewSyncer(store *editor.Store, client *Client, notice *editor.Notice) *Syncer {
	y := &Syncer{
		store:    store,
		client:   client,
		notice:   notice,
		log:      applog.WithComponent("sync"),
		debounce: DefaultDebounce,
	}
	store.OnChange(y.onMutation)
	return y
}

// SetDebounce overrides the auto-save quiet period. Tests use short windows.
func (y *Syncer) SetDebounce(d time.Duration) {
	y.mu.Lock()
	y.debounce = d
	y.mu.Unlock()
}

// SetID returns the active annotation set id ("" until first save).
func (y *Syncer) SetID() string {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.setID
}

// Load fetches the user's saved sets and adopts the most recently created
// one (last in server order) as the active set. With no saved sets, or on
// failure, the editor continues with an empty set and absent id; failures
// surface on the notice and as a wrapped ErrLoadFailed.
func (y *Syncer) Load(ctx context.Context) error {
	sets, err := y.client.ListSets(ctx)
	if err != nil {
		y.log.Warn("load failed", slog.Any("err", err))
		y.fail("could not load annotations")
		return errors.Join(ErrLoadFailed, err)
	}
	if len(sets) == 0 {
		y.mu.Lock()
		y.setID = ""
		y.mu.Unlock()
		y.store.Clear()
		y.ok()
		return nil
	}
	latest := sets[len(sets)-1]
	if err := y.store.ReplaceAll(latest.Rectangles); err != nil {
		y.log.Warn("load returned malformed rectangles", slog.Any("err", err))
		y.fail("could not load annotations")
		return errors.Join(ErrLoadFailed, err)
	}
	y.mu.Lock()
	y.setID = latest.ID
	y.mu.Unlock()
	y.ok()
	y.log.Info("annotations loaded", slog.String("set", latest.ID), slog.Int("rects", len(latest.Rectangles)))
	return nil
}

// Save persists the current rectangle list: an update when the active set
// already has an id, a create otherwise. On a successful create the
// returned id is adopted for all future saves.
func (y *Syncer) Save(ctx context.Context) error {
	rects := y.store.Rectangles()
	y.mu.Lock()
	id := y.setID
	y.mu.Unlock()

	if id != "" {
		if _, err := y.client.UpdateSet(ctx, id, rects); err != nil {
			y.log.Warn("save failed", slog.String("set", id), slog.Any("err", err))
			y.fail("could not save annotations")
			return errors.Join(ErrSaveFailed, err)
		}
		y.ok()
		y.log.Info("annotations saved", slog.String("set", id), slog.Int("rects", len(rects)))
		return nil
	}

	set, err := y.client.CreateSet(ctx, rects)
	if err != nil {
		y.log.Warn("save failed", slog.Any("err", err))
		y.fail("could not save annotations")
		return errors.Join(ErrSaveFailed, err)
	}
	y.mu.Lock()
	y.setID = set.ID
	y.mu.Unlock()
	y.ok()
	y.log.Info("annotations saved", slog.String("set", set.ID), slog.Int("rects", len(rects)))
	return nil
}

// SetAutoSave toggles auto-save. Disabling cancels any pending scheduled
// save.
func (y *Syncer) SetAutoSave(on bool) {
	y.mu.Lock()
	y.auto = on
	if !on && y.timer != nil {
		y.timer.Stop()
		y.timer = nil
	}
	y.mu.Unlock()
}

// AutoSave reports whether auto-save is enabled.
func (y *Syncer) AutoSave() bool {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.auto
}

// onMutation restarts the trailing debounce window. Only one timer is ever
// pending; a mutation inside the window replaces it. An empty list never
// schedules (clearing the canvas does not push an empty save).
func (y *Syncer) onMutation() {
	if y.store.Len() == 0 {
		return
	}
	y.mu.Lock()
	defer y.mu.Unlock()
	if !y.auto {
		return
	}
	if y.timer != nil {
		y.timer.Stop()
	}
	y.timer = time.AfterFunc(y.debounce, func() {
		y.mu.Lock()
		y.timer = nil
		enabled := y.auto
		y.mu.Unlock()
		if !enabled {
			return
		}
		_ = y.Save(context.Background())
	})
}

func (y *Syncer) fail(msg string) {
	if y.notice != nil {
		y.notice.Set(msg)
	}
}

func (y *Syncer) ok() {
	if y.notice != nil {
		y.notice.Clear()
	}
}
