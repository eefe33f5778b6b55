/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package sync keeps the in-memory rectangle store and the remote
// annotation service in agreement: initial load on startup, explicit saves,
// and a debounced auto-save while editing.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"markbox/internal/domain"
)

// HeaderAuthToken is the custom header carrying the session token on every
// annotation request.
const HeaderAuthToken = "X-Auth-Token"

// Credentials is the auth service response for login and register.
type Credentials struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Client is a minimal HTTP client for the annotation and auth API.
type Client struct {
	BaseURL string
	Token   string
	client  *http.Client
}

// NewClient creates a client for the service at baseURL. A trailing slash is
// normalized away. A zero timeout falls back to 10 seconds.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetToken swaps the session token used on subsequent requests.
func (c *Client) SetToken(token string) { c.Token = token }

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set(HeaderAuthToken, c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("server %s %s: %s", method, u.Path, resp.Status)
	}
	if dest == nil {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	return dec.Decode(dest)
}

// Login exchanges username/password for a session token.
func (c *Client) Login(ctx context.Context, username, password string) (Credentials, error) {
	var creds Credentials
	body := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &creds); err != nil {
		return Credentials{}, fmt.Errorf("login: %w", err)
	}
	return creds, nil
}

// Register creates an account and returns a session token for it.
func (c *Client) Register(ctx context.Context, username, password string) (Credentials, error) {
	var creds Credentials
	body := map[string]string{"username": username, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", body, &creds); err != nil {
		return Credentials{}, fmt.Errorf("register: %w", err)
	}
	return creds, nil
}

// ListSets returns all annotation sets for the authenticated user in server
// order; the last element is the most recently created.
func (c *Client) ListSets(ctx context.Context) ([]domain.AnnotationSet, error) {
	var sets []domain.AnnotationSet
	if err := c.doJSON(ctx, http.MethodGet, "/api/annotations", nil, &sets); err != nil {
		return nil, fmt.Errorf("list annotation sets: %w", err)
	}
	return sets, nil
}

// CreateSet saves a brand-new annotation set and returns it with its
// server-assigned id.
func (c *Client) CreateSet(ctx context.Context, rects []domain.Rectangle) (domain.AnnotationSet, error) {
	var set domain.AnnotationSet
	body := map[string]any{"rectangles": rects}
	if err := c.doJSON(ctx, http.MethodPost, "/api/annotations", body, &set); err != nil {
		return domain.AnnotationSet{}, fmt.Errorf("create annotation set: %w", err)
	}
	return set, nil
}

// UpdateSet overwrites the rectangles of an existing set.
func (c *Client) UpdateSet(ctx context.Context, id string, rects []domain.Rectangle) (domain.AnnotationSet, error) {
	var set domain.AnnotationSet
	body := map[string]any{"rectangles": rects}
	if err := c.doJSON(ctx, http.MethodPut, "/api/annotations/"+url.PathEscape(id), body, &set); err != nil {
		return domain.AnnotationSet{}, fmt.Errorf("update annotation set %s: %w", id, err)
	}
	return set, nil
}

// DeleteSet removes a saved set.
func (c *Client) DeleteSet(ctx context.Context, id string) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/api/annotations/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete annotation set %s: %w", id, err)
	}
	return nil
}
