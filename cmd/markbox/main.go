/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"markbox/internal/config"
	"markbox/internal/crash"
	"markbox/internal/editor"
	applog "markbox/internal/log"
	appsync "markbox/internal/sync"
	"markbox/internal/transfer"
	"markbox/internal/ui"
	"markbox/internal/version"
)

func usage() {
	fmt.Println("markbox — rectangle annotation editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  markbox version|-v|--version              Show version")
	fmt.Println("  markbox ui                                Launch desktop UI (build with -tags fyne for full UI)")
	fmt.Println("  markbox register <username> <password>    Create an account and store its token")
	fmt.Println("  markbox login <username> <password>       Log in and store the token")
	fmt.Println("  markbox load <out.json>                   Fetch the latest annotation set into a file")
	fmt.Println("  markbox save <in.json>                    Push a JSON annotation document to the service")
	fmt.Println("  markbox export <in.json> <out.{svg,pdf,png}>  Render a JSON document")
	fmt.Println("  markbox watch <dir>                       Auto-import .json drops and sync them")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")

	store := editor.NewStore()
	defer crash.Recover(store)

	args := os.Args
	if len(args) < 2 {
		usage()
		return
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("markbox — rectangle annotation editor")
		fmt.Println(version.String())

	case "ui":
		if err := ui.Run(); err != nil {
			fatal(l, err)
		}

	case "register", "login":
		if len(args) < 4 {
			fmt.Printf("%s requires <username> and <password>\n", args[1])
			usage()
			os.Exit(2)
		}
		client := newClient()
		ctx, cancel := timeoutCtx()
		defer cancel()
		var creds appsync.Credentials
		var err error
		if args[1] == "register" {
			creds, err = client.Register(ctx, args[2], args[3])
		} else {
			creds, err = client.Login(ctx, args[2], args[3])
		}
		if err != nil {
			fatal(l, err)
		}
		if err := config.StoreToken(creds.Token); err != nil {
			l.Warn("token could not be stored in the keyring", slog.Any("err", err))
			fmt.Println("Warning: token not stored; set it via MB_SERVER_URL session only.")
		}
		fmt.Printf("Logged in as %s\n", creds.User.Username)

	case "load":
		if len(args) < 3 {
			fmt.Println("load requires <out.json>")
			usage()
			os.Exit(2)
		}
		syncer, notice := newSyncer(store)
		ctx, cancel := timeoutCtx()
		defer cancel()
		if err := syncer.Load(ctx); err != nil {
			fatalNotice(l, notice, err)
		}
		out, err := os.Create(args[2])
		if err != nil {
			fatal(l, err)
		}
		defer out.Close()
		if err := transfer.Export(out, store.Rectangles()); err != nil {
			fatal(l, err)
		}
		fmt.Printf("Wrote %d rectangles to %s\n", store.Len(), args[2])

	case "save":
		if len(args) < 3 {
			fmt.Println("save requires <in.json>")
			usage()
			os.Exit(2)
		}
		if err := transfer.ImportFile(store, args[2]); err != nil {
			fatal(l, err)
		}
		syncer, notice := newSyncer(store)
		ctx, cancel := timeoutCtx()
		defer cancel()
		if err := syncer.Save(ctx); err != nil {
			fatalNotice(l, notice, err)
		}
		fmt.Printf("Saved %d rectangles as set %s\n", store.Len(), syncer.SetID())

	case "export":
		if len(args) < 4 {
			fmt.Println("export requires <in.json> and <out.{svg,pdf,png}>")
			usage()
			os.Exit(2)
		}
		if err := transfer.ImportFile(store, args[2]); err != nil {
			fatal(l, err)
		}
		if err := render(store, args[3]); err != nil {
			fatal(l, err)
		}
		fmt.Println("Wrote", args[3])

	case "watch":
		if len(args) < 3 {
			fmt.Println("watch requires <dir>")
			usage()
			os.Exit(2)
		}
		syncer, notice := newSyncer(store)
		ctx, cancel := timeoutCtx()
		if err := syncer.Load(ctx); err != nil {
			l.Warn("initial load failed, starting empty", slog.Any("err", err))
		}
		cancel()
		abs, _ := filepath.Abs(args[2])
		fmt.Println("Watching", abs)
		if err := transfer.WatchDir(context.Background(), abs, store, notice); err != nil && err != context.Canceled {
			fatal(l, err)
		}

	default:
		usage()
	}
}

func newClient() *appsync.Client {
	cfg, token, err := config.Load()
	if err != nil {
		cfg = config.Defaults()
	}
	return appsync.NewClient(cfg.Server.BaseURL, token, time.Duration(cfg.Server.TimeoutMs)*time.Millisecond)
}

func newSyncer(store *editor.Store) (*appsync.Syncer, *editor.Notice) {
	notice := &editor.Notice{}
	syncer := appsync.NewSyncer(store, newClient(), notice)
	syncer.SetAutoSave(true)
	return syncer, notice
}

func render(store *editor.Store, out string) error {
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(out)) {
	case ".svg":
		return transfer.ExportSVG(f, store.Rectangles(), transfer.SVGOptions{})
	case ".pdf":
		return transfer.ExportPDF(f, store.Rectangles(), transfer.PDFOptions{})
	case ".png":
		return transfer.ExportPNG(f, store.Rectangles(), transfer.PNGOptions{})
	case ".json":
		return transfer.Export(f, store.Rectangles())
	default:
		return fmt.Errorf("unsupported export format %q", filepath.Ext(out))
	}
}

func timeoutCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func fatal(l *slog.Logger, err error) {
	l.Error("command failed", slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func fatalNotice(l *slog.Logger, notice *editor.Notice, err error) {
	if msg, ok := notice.Get(); ok {
		fmt.Println(msg)
	}
	fatal(l, err)
}
