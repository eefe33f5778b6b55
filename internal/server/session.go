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
	"sync"

	"github.com/google/uuid"
)

// SessionManager maps opaque session tokens to user ids. Tokens live
// for the process lifetime; a restart logs everyone out.
type SessionManager struct {
	mu     sync.Mutex
	tokens map[string]string
}

func NewSessionManager() *SessionManager {
	return &SessionManager{tokens: make(map[string]string)}
}

// Issue mints a fresh token for userID.
func (m *SessionManager) Issue(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := uuid.NewString()
	m.tokens[token] = userID
	return token
}

// Resolve returns the user id a token was issued for.
func (m *SessionManager) Resolve(token string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.tokens[token]
	return userID, ok
}

// Revoke drops a token; resolving it afterwards fails.
func (m *SessionManager) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
}
