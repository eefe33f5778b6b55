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
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/robfig/cron/v3"

	applog "markbox/internal/log"
	"markbox/internal/version"
)

// Options tunes the service beyond its repository.
type Options struct {
	// RetainSets is how many sets each user keeps; older ones are trimmed
	// hourly. Zero or negative disables retention.
	RetainSets int
}

// Service bundles the HTTP app, its repository, the session table and
// the retention schedule.
type Service struct {
	app      *fiber.App
	repo     Repository
	sessions *SessionManager
	sched    *cron.Cron
	retain   int
	log      *slog.Logger
}

// NewService assembles the annotation service on top of repo.
func NewService(repo Repository, opt Options) *Service {
	l := applog.WithComponent("server")
	s := &Service{
		repo:     repo,
		sessions: NewSessionManager(),
		retain:   opt.RetainSets,
		log:      l,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		AppName:      "markbox annotation service " + version.String(),
	})
	app.Use(recover.New())
	app.Use(s.requestLogger())

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive", "version": version.String()})
	})

	h := NewHandler(repo, s.sessions, l)
	app.Post("/api/auth/register", h.Register)
	app.Post("/api/auth/login", h.Login)
	app.Get("/api/annotations", h.ListSets)
	app.Post("/api/annotations", h.CreateSet)
	app.Put("/api/annotations/:id", h.UpdateSet)
	app.Delete("/api/annotations/:id", h.DeleteSet)

	s.app = app
	return s
}

// App exposes the fiber app, mainly for in-process tests.
func (s *Service) App() *fiber.App { return s.app }

// Listen starts the retention schedule and serves until the listener
// fails or Shutdown is called.
func (s *Service) Listen(addr string) error {
	if s.retain > 0 {
		c := cron.New()
		if _, err := c.AddFunc("@hourly", s.TrimAll); err != nil {
			return err
		}
		c.Start()
		s.sched = c
		s.log.Info("retention scheduled", slog.Int("keep", s.retain))
	}
	s.log.Info("listening", slog.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops the schedule and drains the server.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.sched != nil {
		s.sched.Stop()
		s.sched = nil
	}
	return s.app.ShutdownWithContext(ctx)
}

// TrimAll applies the retention limit to every user.
func (s *Service) TrimAll() {
	if s.retain <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ids, err := s.repo.UserIDs(ctx)
	if err != nil {
		s.log.Warn("retention: list users failed", slog.Any("err", err))
		return
	}
	var trimmed int64
	for _, id := range ids {
		n, err := s.repo.TrimSets(ctx, id, s.retain)
		if err != nil {
			s.log.Warn("retention: trim failed", slog.String("user", id), slog.Any("err", err))
			continue
		}
		trimmed += n
	}
	if trimmed > 0 {
		s.log.Info("retention: trimmed old sets", slog.Int64("sets", trimmed))
	}
}

func (s *Service) requestLogger() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		s.log.Info("request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("took", time.Since(start)),
		)
		return err
	}
}
