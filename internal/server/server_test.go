/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"markbox/internal/domain"
	appsync "markbox/internal/sync"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewService(repo, Options{RetainSets: 3})
}

func request(t *testing.T, s *Service, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(appsync.HeaderAuthToken, token)
	}
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	resp.Body.Close()
	return resp, data
}

func registerUser(t *testing.T, s *Service, username string) string {
	t.Helper()
	resp, body := request(t, s, http.MethodPost, "/api/auth/register", "",
		map[string]string{"username": username, "password": "secret"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status %d: %s", resp.StatusCode, body)
	}
	var auth struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	if err := json.Unmarshal(body, &auth); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if auth.Token == "" || auth.User.ID == "" {
		t.Fatalf("incomplete register response: %s", body)
	}
	return auth.Token
}

func TestRegisterLoginFlow(t *testing.T) {
	s := newTestService(t)
	registerUser(t, s, "alice")

	resp, _ := request(t, s, http.MethodPost, "/api/auth/register", "",
		map[string]string{"username": "alice", "password": "other"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status %d", resp.StatusCode)
	}

	resp, _ = request(t, s, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "alice", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password status %d", resp.StatusCode)
	}

	resp, body := request(t, s, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "alice", "password": "secret"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", resp.StatusCode, body)
	}
	var auth struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &auth); err != nil || auth.Token == "" {
		t.Fatalf("login token missing: %s", body)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	s := newTestService(t)
	resp, _ := request(t, s, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "ghost", "password": "x"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown user status %d", resp.StatusCode)
	}
}

func TestAnnotationsRequireToken(t *testing.T) {
	s := newTestService(t)
	for _, c := range []struct{ method, path string }{
		{http.MethodGet, "/api/annotations"},
		{http.MethodPost, "/api/annotations"},
		{http.MethodPut, "/api/annotations/x"},
		{http.MethodDelete, "/api/annotations/x"},
	} {
		resp, _ := request(t, s, c.method, c.path, "", map[string]any{"rectangles": []domain.Rectangle{}})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s without token: status %d", c.method, c.path, resp.StatusCode)
		}
	}
}

func TestAnnotationSetLifecycle(t *testing.T) {
	s := newTestService(t)
	token := registerUser(t, s, "bob")

	rects := []domain.Rectangle{{ID: "r1", X: 10, Y: 20, Width: 30, Height: 40, Color: "#ff0000"}}
	resp, body := request(t, s, http.MethodPost, "/api/annotations", token,
		map[string]any{"rectangles": rects})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", resp.StatusCode, body)
	}
	var created domain.AnnotationSet
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode created set: %v", err)
	}
	if created.ID == "" || len(created.Rectangles) != 1 {
		t.Fatalf("incomplete created set: %s", body)
	}

	resp, body = request(t, s, http.MethodGet, "/api/annotations", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", resp.StatusCode)
	}
	var sets []domain.AnnotationSet
	if err := json.Unmarshal(body, &sets); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(sets) != 1 || sets[0].ID != created.ID || sets[0].Rectangles[0].Color != "#ff0000" {
		t.Fatalf("unexpected list: %s", body)
	}

	rects[0].Color = "#00ff00"
	resp, body = request(t, s, http.MethodPut, "/api/annotations/"+created.ID, token,
		map[string]any{"rectangles": rects})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status %d: %s", resp.StatusCode, body)
	}
	_, body = request(t, s, http.MethodGet, "/api/annotations", token, nil)
	if err := json.Unmarshal(body, &sets); err != nil || sets[0].Rectangles[0].Color != "#00ff00" {
		t.Fatalf("update not persisted: %s", body)
	}

	resp, _ = request(t, s, http.MethodPut, "/api/annotations/nope", token,
		map[string]any{"rectangles": rects})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("update missing set status %d", resp.StatusCode)
	}

	resp, _ = request(t, s, http.MethodDelete, "/api/annotations/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	resp, _ = request(t, s, http.MethodDelete, "/api/annotations/"+created.ID, token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status %d", resp.StatusCode)
	}

	_, body = request(t, s, http.MethodGet, "/api/annotations", token, nil)
	if string(bytes.TrimSpace(body)) != "[]" {
		t.Fatalf("expected empty list, got %s", body)
	}
}

func TestCreateRejectsInvalidRectangle(t *testing.T) {
	s := newTestService(t)
	token := registerUser(t, s, "carol")

	bad := []domain.Rectangle{{ID: "r1", Width: 10, Height: 10, Color: "red"}}
	resp, _ := request(t, s, http.MethodPost, "/api/annotations", token,
		map[string]any{"rectangles": bad})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid rectangle status %d", resp.StatusCode)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	s := newTestService(t)
	tokenA := registerUser(t, s, "usera")
	tokenB := registerUser(t, s, "userb")

	rects := []domain.Rectangle{{ID: "r1", Width: 10, Height: 10, Color: "#123456"}}
	_, body := request(t, s, http.MethodPost, "/api/annotations", tokenA,
		map[string]any{"rectangles": rects})
	var created domain.AnnotationSet
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode created set: %v", err)
	}

	resp, _ := request(t, s, http.MethodPut, "/api/annotations/"+created.ID, tokenB,
		map[string]any{"rectangles": rects})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("cross-user update status %d", resp.StatusCode)
	}
	_, body = request(t, s, http.MethodGet, "/api/annotations", tokenB, nil)
	if string(bytes.TrimSpace(body)) != "[]" {
		t.Fatalf("user b sees foreign sets: %s", body)
	}
}

func TestRetentionTrimsOldestSets(t *testing.T) {
	s := newTestService(t)
	token := registerUser(t, s, "dave")

	var ids []string
	for i := 0; i < 5; i++ {
		rects := []domain.Rectangle{{ID: fmt.Sprintf("r%d", i), Width: 10, Height: 10, Color: "#000000"}}
		_, body := request(t, s, http.MethodPost, "/api/annotations", token,
			map[string]any{"rectangles": rects})
		var set domain.AnnotationSet
		if err := json.Unmarshal(body, &set); err != nil {
			t.Fatalf("decode created set: %v", err)
		}
		ids = append(ids, set.ID)
	}

	s.TrimAll()

	_, body := request(t, s, http.MethodGet, "/api/annotations", token, nil)
	var sets []domain.AnnotationSet
	if err := json.Unmarshal(body, &sets); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(sets) != 3 {
		t.Fatalf("expected 3 surviving sets, got %d", len(sets))
	}
	for i, want := range ids[2:] {
		if sets[i].ID != want {
			t.Fatalf("wrong survivor at %d: got %s want %s", i, sets[i].ID, want)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestService(t)
	resp, body := request(t, s, http.MethodGet, "/health/live", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", resp.StatusCode)
	}
	if !bytes.Contains(body, []byte("alive")) {
		t.Fatalf("unexpected health body: %s", body)
	}
}

func TestPasswordHashing(t *testing.T) {
	h := hashPassword("secret", newSalt())
	if !verifyPassword("secret", h) {
		t.Fatalf("correct password rejected")
	}
	if verifyPassword("wrong", h) {
		t.Fatalf("wrong password accepted")
	}
	if verifyPassword("secret", "garbage") {
		t.Fatalf("malformed hash accepted")
	}
	if h2 := hashPassword("secret", newSalt()); h2 == h {
		t.Fatalf("salts not applied")
	}
}
