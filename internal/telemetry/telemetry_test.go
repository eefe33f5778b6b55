/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDisabledByDefault(t *testing.T) {
	c := New(Config{})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("telemetry enabled with zero config")
	}
	// must be a silent no-op
	c.Event("editor_started", nil)
}

func TestEventDelivery(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got.Store(body)
	}))
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("expected enabled client")
	}
	c.Event("rect_committed", map[string]any{"count": 3})
	c.Flush(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for got.Load() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("event never delivered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	var ev event
	if err := json.Unmarshal(got.Load().([]byte), &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Name != "rect_committed" || ev.Version == "" || ev.OS == "" {
		t.Fatalf("incomplete event: %+v", ev)
	}
}

func TestUploadCrashRespectsOptIn(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	off := New(Config{OptIn: false, CrashURL: srv.URL, Timeout: time.Second})
	defer off.Close()
	off.UploadCrash([]byte("report"))
	time.Sleep(100 * time.Millisecond)
	if hits.Load() != 0 {
		t.Fatalf("crash uploaded without opt-in")
	}

	on := New(Config{OptIn: true, CrashURL: srv.URL, Timeout: time.Second})
	defer on.Close()
	on.UploadCrash([]byte("report"))
	deadline := time.Now().Add(2 * time.Second)
	for hits.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("crash upload never arrived")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MB_TELEMETRY_OPT_IN", "yes")
	t.Setenv("MB_TELEMETRY_URL", "http://example.invalid/events")
	t.Setenv("MB_TELEMETRY_TIMEOUT_MS", "250")
	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL != "http://example.invalid/events" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("timeout not applied: %v", cfg.Timeout)
	}
}
