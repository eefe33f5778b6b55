/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// markboxd serves the annotation and auth API the editor syncs against.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"markbox/internal/config"
	applog "markbox/internal/log"
	"markbox/internal/server"
	"markbox/internal/version"
)

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("markboxd")

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Println("markboxd — annotation service")
			fmt.Println(version.String())
			return
		}
	}

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}
	dsn := cfg.Service.DSN
	if dsn == "" {
		dsn = "markbox.db"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	repo, err := server.Open(ctx, dsn)
	cancel()
	if err != nil {
		l.Error("database open failed", slog.String("dsn", dsn), slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	defer repo.Close()

	svc := server.NewService(repo, server.Options{RetainSets: cfg.Service.RetainSets})

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		l.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := svc.Shutdown(ctx); err != nil {
			l.Error("shutdown failed", slog.Any("err", err))
		}
	}()

	l.Info("starting", slog.String("addr", cfg.Service.Addr), slog.String("version", version.String()))
	if err := svc.Listen(cfg.Service.Addr); err != nil {
		l.Error("server stopped", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
