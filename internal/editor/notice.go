/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import "sync"

// Notice is the single transient user-visible message surface. Load, save
// and import failures write to it; the next successful operation clears it.
// None of these failures end the editing session.
type Notice struct {
	mu  sync.Mutex
	msg string
}

// Set replaces the current message.
func (n *Notice) Set(msg string) {
	n.mu.Lock()
	n.msg = msg
	n.mu.Unlock()
}

// Clear removes the message.
func (n *Notice) Clear() {
	n.mu.Lock()
	n.msg = ""
	n.mu.Unlock()
}

// Get returns the current message, if any.
func (n *Notice) Get() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.msg, n.msg != ""
}
