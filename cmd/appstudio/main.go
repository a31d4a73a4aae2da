/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"appstudio/internal/bundle"
	"appstudio/internal/crash"
	"appstudio/internal/domain"
	"appstudio/internal/export"
	applog "appstudio/internal/log"
	"appstudio/internal/project"
	"appstudio/internal/scaffold"
	"appstudio/internal/storage"
	"appstudio/internal/ui"
	"appstudio/internal/version"
	"appstudio/internal/watcher"
)

func usage() {
	fmt.Println("App Studio — visual app builder")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  appstudio version|-v|--version                Show version")
	fmt.Println("  appstudio new <dir> <name> [package]          Create a project in the catalog at <dir>")
	fmt.Println("  appstudio open <dir>                          Open the catalog at <dir> and print a summary")
	fmt.Println("  appstudio export <dir> <png|svg|pdf> [out]    Export the active project")
	fmt.Println("  appstudio bundle <dir> [out.zip]              Pack the active project's app payload")
	fmt.Println("  appstudio import <dir> <bundle.zip>           Apply a bundle to the active project")
	fmt.Println("  appstudio search <dir> <query...>             Full-text search over indexed project files")
	fmt.Println("  appstudio sync <dir> [mirror]                 Mirror the active project for external editing")
	fmt.Println("  appstudio ui [<dir>]                          Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var (
		root string
		cat  *storage.Catalog
	)
	defer func() { crash.Handle(root, cat, recover()) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("App Studio — visual app builder")
			fmt.Println(version.String())
			return
		case "new":
			if len(args) < 4 {
				fmt.Println("new requires <dir> and <name>")
				usage()
				os.Exit(2)
			}
			root, _ = filepath.Abs(args[2])
			name := args[3]
			pkg := defaultPackageName(name)
			if len(args) >= 5 {
				pkg = args[4]
			}
			l.Info("new project", slog.String("root", root), slog.String("name", name))
			c, err := storage.Load(root)
			if err != nil {
				l.Error("catalog load failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			cat = c
			p := project.Initialize(name, pkg, scaffold.InitialFiles(name, pkg))
			cat.Put(p)
			if err := storage.Save(root, cat); err != nil {
				l.Error("catalog save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Created project %q (%s) at %s\n", name, pkg, root)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			root, _ = filepath.Abs(args[2])
			l.Info("open catalog", slog.String("root", root))
			c, err := storage.Load(root)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			cat = c
			p := cat.Active()
			if p == nil {
				fmt.Println("Catalog is empty. Create a project with: appstudio new", root, "<name>")
				return
			}
			fmt.Printf("Project: %s (v%d)\n", p.Name, p.Version)
			fmt.Printf("Screens: %d\n", len(p.HTMLFiles()))
			fmt.Printf("Files: %d\n", len(p.Files))
			fmt.Printf("Connections: %d\n", len(p.Connections))
			fmt.Println("Root:", root)
			return
		case "export":
			if len(args) < 4 {
				fmt.Println("export requires <dir> and a format (png, svg or pdf)")
				usage()
				os.Exit(2)
			}
			root, _ = filepath.Abs(args[2])
			format := args[3]
			c, err := storage.Load(root)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			cat = c
			p := cat.Active()
			if p == nil {
				fmt.Println("Catalog is empty, nothing to export.")
				os.Exit(1)
			}
			out := filepath.Join(root, "exports", p.Name+"-overview."+format)
			if len(args) >= 5 {
				out = args[4]
			}
			switch format {
			case "png":
				err = export.WriteOverviewPNG(out, p, export.PNGOptions{})
			case "svg":
				err = export.WriteOverviewSVG(out, p, "")
			case "pdf":
				if len(args) < 5 {
					out = filepath.Join(root, "exports", p.Name+"-report.pdf")
				}
				err = export.WriteProjectPDF(out, p, export.PDFOptions{IncludeFileListing: true})
			default:
				fmt.Println("Unknown format:", format)
				os.Exit(2)
			}
			if err != nil {
				l.Error("export failed", slog.String("format", format), slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Wrote", out)
			return
		case "bundle":
			if len(args) < 3 {
				fmt.Println("bundle requires <dir>")
				usage()
				os.Exit(2)
			}
			root, _ = filepath.Abs(args[2])
			c, err := storage.Load(root)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			cat = c
			p := cat.Active()
			if p == nil {
				fmt.Println("Catalog is empty, nothing to bundle.")
				os.Exit(1)
			}
			out := filepath.Join(root, "exports", p.Name+"-bundle.zip")
			if len(args) >= 4 {
				out = args[3]
			}
			if err := bundle.Export(p, out); err != nil {
				l.Error("bundle export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Wrote", out)
			return
		case "import":
			if len(args) < 4 {
				fmt.Println("import requires <dir> and <bundle.zip>")
				usage()
				os.Exit(2)
			}
			root, _ = filepath.Abs(args[2])
			c, err := storage.Load(root)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			cat = c
			p := cat.Active()
			if p == nil {
				fmt.Println("Catalog is empty. Create a project first with: appstudio new", root, "<name>")
				os.Exit(1)
			}
			store := project.New(p)
			n, err := bundle.Import(store, args[3])
			if err != nil {
				l.Error("bundle import failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			cat.Put(store.Current())
			if err := storage.Save(root, cat); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Applied %d files from %s (now v%d)\n", n, args[3], store.Current().Version)
			return
		case "search":
			if len(args) < 4 {
				fmt.Println("search requires <dir> and <query>")
				usage()
				os.Exit(2)
			}
			root, _ = filepath.Abs(args[2])
			q := storage.SearchQuery{Text: strings.Join(args[3:], " "), Limit: 20}
			var (
				results []storage.SearchResult
				err     error
			)
			if dsn := os.Getenv("STUDIO_SEARCH_PG_DSN"); dsn != "" {
				var db *sql.DB
				db, err = storage.OpenPG(dsn)
				if err == nil {
					defer db.Close()
					results, err = storage.SearchPG(context.Background(), db, q)
				}
			} else {
				results, err = storage.Search(context.Background(), root, q)
			}
			if err != nil {
				l.Error("search failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if len(results) == 0 {
				fmt.Println("No matches.")
				return
			}
			for _, r := range results {
				fmt.Printf("%s (%s): %s\n", r.Path, r.Language, r.Snippet)
			}
			return
		case "sync":
			if len(args) < 3 {
				fmt.Println("sync requires <dir>")
				usage()
				os.Exit(2)
			}
			root, _ = filepath.Abs(args[2])
			c, err := storage.Load(root)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			cat = c
			p := cat.Active()
			if p == nil {
				fmt.Println("Catalog is empty. Create a project first with: appstudio new", root, "<name>")
				os.Exit(1)
			}
			store := project.New(p)
			mirror := filepath.Join(root, "workspace")
			if len(args) >= 4 {
				mirror = args[3]
			}
			w, err := watcher.New(mirror, store)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			store.Subscribe(func(cur *domain.Project) {
				cat.Put(cur)
				if err := storage.Save(root, cat); err != nil {
					l.Error("catalog save failed", slog.Any("err", err))
				}
				if err := w.Sync(); err != nil {
					l.Error("mirror sync failed", slog.Any("err", err))
				}
			})
			if err := w.Sync(); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if err := w.Start(); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Mirroring", p.Name, "at", w.Root(), "(Ctrl-C to stop)")
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			w.Stop()
			cat.Put(store.Current())
			if err := storage.Save(root, cat); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Stopped. %s is at v%d.\n", p.Name, store.Current().Version)
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

// defaultPackageName derives a reverse-DNS application id from the project
// name, e.g. "Trail Buddy" becomes "com.appstudio.trailbuddy".
func defaultPackageName(name string) string {
	slug := strings.ToLower(name)
	slug = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, slug)
	if slug == "" {
		slug = "app"
	}
	return "com.appstudio." + slug
}
