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
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v3"

	"markbox/internal/domain"
	appsync "markbox/internal/sync"
)

type Handler struct {
	repo     Repository
	sessions *SessionManager
	log      *slog.Logger
}

func NewHandler(repo Repository, sessions *SessionManager, log *slog.Logger) *Handler {
	return &Handler{repo: repo, sessions: sessions, log: log}
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type setRequest struct {
	Rectangles []domain.Rectangle `json:"rectangles"`
}

// Register creates an account and logs it straight in.
func (h *Handler) Register(c fiber.Ctx) error {
	req, err := parseAuth(c)
	if err != nil {
		return err
	}
	user, err := h.repo.CreateUser(context.Background(), req.Username, hashPassword(req.Password, newSalt()))
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return c.Status(http.StatusConflict).JSON(fiber.Map{"error": "username taken"})
		}
		h.log.Error("register failed", slog.Any("err", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "registration failed"})
	}
	return c.Status(http.StatusCreated).JSON(authResponse{
		Token: h.sessions.Issue(user.ID),
		User:  user,
	})
}

// Login exchanges username/password for a session token.
func (h *Handler) Login(c fiber.Ctx) error {
	req, err := parseAuth(c)
	if err != nil {
		return err
	}
	user, hash, err := h.repo.UserByUsername(context.Background(), req.Username)
	if err != nil || !verifyPassword(req.Password, hash) {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}
	return c.JSON(authResponse{
		Token: h.sessions.Issue(user.ID),
		User:  user,
	})
}

// ListSets returns the caller's annotation sets, oldest first.
func (h *Handler) ListSets(c fiber.Ctx) error {
	userID, ok := h.authorize(c)
	if !ok {
		return unauthorized(c)
	}
	sets, err := h.repo.ListSets(context.Background(), userID)
	if err != nil {
		h.log.Error("list sets failed", slog.Any("err", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "list failed"})
	}
	return c.JSON(sets)
}

// CreateSet stores a new set and returns it with its assigned id.
func (h *Handler) CreateSet(c fiber.Ctx) error {
	userID, ok := h.authorize(c)
	if !ok {
		return unauthorized(c)
	}
	req, err := parseSet(c)
	if err != nil {
		return err
	}
	set, err := h.repo.CreateSet(context.Background(), userID, req.Rectangles)
	if err != nil {
		h.log.Error("create set failed", slog.Any("err", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "create failed"})
	}
	return c.Status(http.StatusCreated).JSON(set)
}

// UpdateSet overwrites the rectangles of one of the caller's sets.
func (h *Handler) UpdateSet(c fiber.Ctx) error {
	userID, ok := h.authorize(c)
	if !ok {
		return unauthorized(c)
	}
	id := c.Params("id")
	req, err := parseSet(c)
	if err != nil {
		return err
	}
	set, err := h.repo.UpdateSet(context.Background(), userID, id, req.Rectangles)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "set not found"})
		}
		h.log.Error("update set failed", slog.String("set", id), slog.Any("err", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "update failed"})
	}
	return c.JSON(set)
}

// DeleteSet removes one of the caller's sets.
func (h *Handler) DeleteSet(c fiber.Ctx) error {
	userID, ok := h.authorize(c)
	if !ok {
		return unauthorized(c)
	}
	id := c.Params("id")
	if err := h.repo.DeleteSet(context.Background(), userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "set not found"})
		}
		h.log.Error("delete set failed", slog.String("set", id), slog.Any("err", err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "delete failed"})
	}
	return c.SendStatus(http.StatusNoContent)
}

func (h *Handler) authorize(c fiber.Ctx) (string, bool) {
	token := c.Get(appsync.HeaderAuthToken)
	if token == "" {
		return "", false
	}
	return h.sessions.Resolve(token)
}

func unauthorized(c fiber.Ctx) error {
	return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
}

func parseAuth(c fiber.Ctx) (authRequest, error) {
	var req authRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return req, fiber.NewError(http.StatusBadRequest, "invalid json")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return req, fiber.NewError(http.StatusBadRequest, "username and password required")
	}
	return req, nil
}

func parseSet(c fiber.Ctx) (setRequest, error) {
	var req setRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return req, fiber.NewError(http.StatusBadRequest, "invalid json")
	}
	for _, r := range req.Rectangles {
		if !r.Valid() {
			return req, fiber.NewError(http.StatusBadRequest, "invalid rectangle "+r.ID)
		}
	}
	return req, nil
}

func newSalt() []byte {
	salt := make([]byte, 16)
	rand.Read(salt)
	return salt
}

// hashPassword is hex(salt):hex(sha256(salt || password)).
func hashPassword(password string, salt []byte) string {
	sum := sha256.Sum256(append(append([]byte{}, salt...), password...))
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(sum[:])
}

func verifyPassword(password, stored string) bool {
	saltHex, _, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hashPassword(password, salt)), []byte(stored)) == 1
}
