/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"testing"
)

// memStore is an in-memory TokenStore for tests.
type memStore struct{ m map[string]string }

func (s *memStore) Get(service, key string) (string, error) {
	v, ok := s.m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (s *memStore) Set(service, key, value string) error {
	s.m[service+"/"+key] = value
	return nil
}
func (s *memStore) Delete(service, key string) error {
	delete(s.m, service+"/"+key)
	return nil
}

func withMemStore(t *testing.T) *memStore {
	t.Helper()
	ms := &memStore{m: map[string]string{}}
	prev := SetTokenStore(ms)
	t.Cleanup(func() { SetTokenStore(prev) })
	return ms
}

func TestTokenRoundTrip(t *testing.T) {
	withMemStore(t)
	if tok := Token(); tok != "" {
		t.Fatalf("expected empty token, got %q", tok)
	}
	if err := StoreToken("t-123"); err != nil {
		t.Fatalf("store: %v", err)
	}
	if tok := Token(); tok != "t-123" {
		t.Fatalf("expected stored token, got %q", tok)
	}
	if err := StoreToken(""); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if tok := Token(); tok != "" {
		t.Fatalf("expected token cleared, got %q", tok)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.BaseURL == "" || cfg.Server.TimeoutMs <= 0 {
		t.Fatalf("bad server defaults: %+v", cfg.Server)
	}
	if !cfg.Editor.AutoSave {
		t.Fatalf("auto-save should default on")
	}
	if cfg.Service.RetainSets <= 0 {
		t.Fatalf("retention default must be positive")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvServerURL, "http://example.test:9999")
	t.Setenv(EnvServerTimeoutMs, "2500")
	t.Setenv(EnvAutoSave, "off")
	t.Setenv(EnvRetainSets, "7")
	cfg := Defaults()
	applyEnvOverrides(&cfg)
	if cfg.Server.BaseURL != "http://example.test:9999" {
		t.Fatalf("base url override missing: %q", cfg.Server.BaseURL)
	}
	if cfg.Server.TimeoutMs != 2500 {
		t.Fatalf("timeout override missing: %d", cfg.Server.TimeoutMs)
	}
	if cfg.Editor.AutoSave {
		t.Fatalf("auto-save override missing")
	}
	if cfg.Service.RetainSets != 7 {
		t.Fatalf("retention override missing: %d", cfg.Service.RetainSets)
	}
}

func TestMergeInto(t *testing.T) {
	dst := Defaults()
	src := AppConfig{
		Server:  ServerConfig{BaseURL: "http://file.test"},
		Editor:  EditorConfig{AutoSave: false, WatchDir: "/tmp/drop"},
		Logging: LoggingConfig{Level: "DEBUG"},
	}
	mergeInto(&dst, &src)
	if dst.Server.BaseURL != "http://file.test" {
		t.Fatalf("base url not merged: %q", dst.Server.BaseURL)
	}
	if dst.Editor.AutoSave {
		t.Fatalf("auto-save preference not merged")
	}
	if dst.Editor.WatchDir != "/tmp/drop" {
		t.Fatalf("watch dir not merged: %q", dst.Editor.WatchDir)
	}
	if dst.Logging.Level != "debug" {
		t.Fatalf("log level not normalized: %q", dst.Logging.Level)
	}
	// zero-value src fields leave defaults alone
	if dst.Server.TimeoutMs != Defaults().Server.TimeoutMs {
		t.Fatalf("timeout clobbered: %d", dst.Server.TimeoutMs)
	}
}
