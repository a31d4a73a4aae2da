//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"appstudio/internal/amateur"
	"appstudio/internal/backend"
	"appstudio/internal/buildsim"
	appcanvas "appstudio/internal/canvas"
	"appstudio/internal/config"
	"appstudio/internal/crash"
	"appstudio/internal/domain"
	"appstudio/internal/export"
	applog "appstudio/internal/log"
	"appstudio/internal/navgraph"
	"appstudio/internal/orchestrator"
	"appstudio/internal/preview"
	"appstudio/internal/project"
	"appstudio/internal/scaffold"
	"appstudio/internal/storage"
	"appstudio/internal/telemetry"
	"appstudio/internal/undo"
)

// historyMirrorKeep bounds the per-project history rows kept in the search
// index; the catalog itself keeps the full history.
const historyMirrorKeep = 50

// Run starts the studio shell over the catalog at dataDir. An empty dataDir
// falls back to the configured workspace directory.
func Run(dataDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	cfg, apiKey, err := config.Load()
	if err != nil {
		return err
	}
	root, err := resolveRoot(dataDir, cfg)
	if err != nil {
		return err
	}

	var cat *storage.Catalog
	defer func() { crash.Handle(root, cat, recover()) }()

	cat, err = storage.Load(root)
	if err != nil {
		return err
	}
	active := cat.Active()
	if active == nil {
		active = project.Initialize("My App", "com.appstudio.myapp",
			scaffold.InitialFiles("My App", "com.appstudio.myapp"))
		cat.Put(active)
		if err := storage.Save(root, cat); err != nil {
			return err
		}
	}

	indexDB, err := storage.InitOrOpenIndex(root)
	if err != nil {
		l.Warn("search index unavailable", slog.Any("err", err))
	} else {
		defer indexDB.Close()
	}

	store := project.New(active)
	store.Subscribe(func(p *domain.Project) {
		cat.Put(p)
		if err := storage.Save(root, cat); err != nil {
			l.Error("autosave failed", slog.Any("err", err))
		}
		if indexDB != nil {
			ctx := context.Background()
			if err := storage.IndexProject(ctx, indexDB, p); err != nil {
				l.Warn("index refresh failed", slog.Any("err", err))
			}
			if _, err := storage.PruneHistory(ctx, indexDB, p.ID, historyMirrorKeep); err != nil {
				l.Warn("history prune failed", slog.Any("err", err))
			}
			cachePreviewDocs(ctx, indexDB, p, l)
		}
	})

	if apiKey == "" {
		l.Warn("no orchestrator key in keyring, model commands will fail until one is saved")
	}
	session := orchestrator.NewSession(store, orchestrator.NewClient(cfg.Orchestrator, apiKey), telemetry.EventRecorder{})

	fyneApp := app.NewWithID("appstudio")
	w := fyneApp.NewWindow("App Studio")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1280)
	winH := prefs.IntWithFallback("window.height", 820)
	if winW < 900 {
		winW = 900
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	engine := appcanvas.NewEngine(store)
	shell := &studioShell{
		win:       w,
		root:      root,
		store:     store,
		engine:    engine,
		sandboxes: newSandboxSet(store, engine),
		session:   session,
		history:   newEditHistory(store),
		builder:   buildsim.NewRunner(),
		backend:   backend.NewProvisioner(store, remoteBackend()),
		status:    widget.NewLabel("Ready"),
		logger:    l,
	}
	shell.canvas = NewStudioCanvas(shell)

	side := container.NewAppTabs(
		container.NewTabItem("Screens", shell.screensPanel()),
		container.NewTabItem("Logic", shell.logicPanel()),
		container.NewTabItem("Connections", shell.connectionsPanel()),
		container.NewTabItem("Versions", shell.versionsPanel()),
		container.NewTabItem("Build", shell.buildPanel()),
		container.NewTabItem("Backend", shell.backendPanel()),
	)
	side.SetTabLocation(container.TabLocationTop)

	right := container.NewVSplit(side, shell.chatPane())
	right.SetOffset(0.55)
	split := container.NewHSplit(shell.canvas, right)
	split.SetOffset(0.72)

	w.SetMainMenu(shell.mainMenu())
	w.SetContent(container.NewBorder(nil, shell.status, nil, nil, split))

	store.Subscribe(func(p *domain.Project) {
		fyne.Do(func() {
			shell.refreshAll()
			shell.status.SetText(fmt.Sprintf("%s  v%d", p.Name, p.Version))
		})
	})
	shell.refreshAll()
	shell.status.SetText(fmt.Sprintf("%s  v%d", active.Name, active.Version))

	w.SetOnClosed(func() {
		prefs.SetInt("window.width", int(w.Canvas().Size().Width))
		prefs.SetInt("window.height", int(w.Canvas().Size().Height))
	})

	w.ShowAndRun()
	return nil
}

func resolveRoot(dataDir string, cfg config.AppConfig) (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	if cfg.General.WorkspaceDir != "" {
		return cfg.General.WorkspaceDir, nil
	}
	path, err := config.ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(path), "projects"), nil
}

// cachePreviewDocs stores each screen's composed sandbox document in the
// index preview cache, so reopening the catalog can render without
// recomposing every screen first.
func cachePreviewDocs(ctx context.Context, db *sql.DB, p *domain.Project, l *slog.Logger) {
	for _, screen := range p.HTMLFiles() {
		doc, _ := preview.ComposeDocument(p.Files[screen].Content, screenScript(p, screen))
		if err := storage.PutPreview(ctx, db, p.ID, screen, storage.PreviewKindDoc, p.Version, []byte(doc)); err != nil {
			l.Warn("preview cache write failed", slog.String("screen", screen), slog.Any("err", err))
			return
		}
	}
}

// remoteBackend provides a live provisioning client when a service URL is
// configured; otherwise provisioning runs simulated.
func remoteBackend() *backend.Client {
	url := os.Getenv("STUDIO_BACKEND_URL")
	if url == "" {
		return nil
	}
	return backend.NewClient(url, os.Getenv("STUDIO_BACKEND_TOKEN"))
}

// studioShell groups the live pieces the panels close over.
type studioShell struct {
	win       fyne.Window
	root      string
	store     *project.Store
	engine    *appcanvas.Engine
	sandboxes *sandboxSet
	canvas    *StudioCanvas
	session   *orchestrator.Session
	history   *editHistory
	builder   *buildsim.Runner
	backend   *backend.Provisioner
	status    *widget.Label
	logger    *slog.Logger

	refreshFns []func()
}

func (s *studioShell) onRefresh(fn func()) { s.refreshFns = append(s.refreshFns, fn) }

func (s *studioShell) refreshAll() {
	s.sandboxes.rebuild()
	s.history.capture()
	for _, fn := range s.refreshFns {
		fn()
	}
	if s.canvas != nil {
		s.canvas.Refresh()
	}
}

// --- sandbox hosting ----------------------------------------------------

// sandboxSet owns one preview sandbox per screen, torn down and recreated
// whenever the committed version changes.
type sandboxSet struct {
	store   *project.Store
	engine  *appcanvas.Engine
	version int
	byPath  map[string]*preview.Sandbox
}

func newSandboxSet(store *project.Store, engine *appcanvas.Engine) *sandboxSet {
	return &sandboxSet{store: store, engine: engine, byPath: map[string]*preview.Sandbox{}}
}

func (ss *sandboxSet) rebuild() {
	p := ss.store.Current()
	if p.Version == ss.version && len(ss.byPath) == len(p.HTMLFiles()) {
		return
	}
	ss.version = p.Version
	ss.byPath = map[string]*preview.Sandbox{}
	for _, screen := range p.HTMLFiles() {
		screen := screen
		markup := p.Files[screen].Content
		sb := preview.New(markup, screenScript(p, screen), p.Version, func(ref domain.UIElementRef) {
			ss.engine.ElementInteracted(screen, ref)
		})
		sb.Dispatch(preview.Message{Type: preview.SetMode, Mode: ss.engine.Mode()})
		ss.byPath[screen] = sb
	}
}

func (ss *sandboxSet) get(screen string) *preview.Sandbox { return ss.byPath[screen] }

// screenScript concatenates the shared app script with the screen's
// navigation glue, the same payload a device build would load.
func screenScript(p *domain.Project, screen string) string {
	script := ""
	if f, ok := p.Files["app.js"]; ok {
		script = f.Content
	}
	if f, ok := p.Files[navgraph.GluePath(screen)]; ok {
		script += "\n" + f.Content
	}
	return script
}

// --- undo wiring --------------------------------------------------------

// editHistory feeds the per-file undo stacks from commit deltas and applies
// popped snapshots back through direct edits.
type editHistory struct {
	store    *project.Store
	mgr      *undo.Manager
	seen     map[string]string
	applying bool
}

func newEditHistory(store *project.Store) *editHistory {
	return &editHistory{
		store: store,
		mgr: undo.NewManager(undo.Config{
			MaxBytes:    16 * 1024 * 1024,
			MaxPerFile:  20,
			MinInterval: 250 * time.Millisecond,
		}),
		seen: map[string]string{},
	}
}

// capture records the previous content of every file changed by the latest
// commit. The first sighting of a file is baseline only.
func (h *editHistory) capture() {
	p := h.store.Current()
	now := time.Now()
	for path, f := range p.Files {
		prev, known := h.seen[path]
		if known && prev != f.Content && !h.applying {
			h.mgr.PushSnapshot(undo.Snapshot{Path: path, Blob: []byte(prev), TS: now})
		}
		h.seen[path] = f.Content
	}
	for path := range h.seen {
		if _, ok := p.Files[path]; !ok {
			delete(h.seen, path)
			h.mgr.ClearFile(path)
		}
	}
}

func (h *editHistory) undo(path string) bool {
	s, ok := h.mgr.Undo(path)
	if !ok {
		return false
	}
	h.apply(path, s.Blob)
	return true
}

func (h *editHistory) redo(path string) bool {
	s, ok := h.mgr.Redo(path)
	if !ok {
		return false
	}
	h.apply(path, s.Blob)
	return true
}

func (h *editHistory) apply(path string, blob []byte) {
	h.applying = true
	defer func() { h.applying = false }()
	h.store.DirectEdit(path, string(blob))
}

// --- menus --------------------------------------------------------------

func (s *studioShell) mainMenu() *fyne.MainMenu {
	exportPNG := fyne.NewMenuItem("Canvas as PNG", func() {
		path := filepath.Join(s.root, "exports", s.store.Current().Name+"-overview.png")
		err := export.WriteOverviewPNG(path, s.store.Current(), export.PNGOptions{ActiveScreen: s.engine.ActiveFile()})
		s.reportExport(path, err)
	})
	exportSVG := fyne.NewMenuItem("Canvas as SVG", func() {
		path := filepath.Join(s.root, "exports", s.store.Current().Name+"-overview.svg")
		err := export.WriteOverviewSVG(path, s.store.Current(), s.engine.ActiveFile())
		s.reportExport(path, err)
	})
	exportPDF := fyne.NewMenuItem("Project Report (PDF)", func() {
		path := filepath.Join(s.root, "exports", s.store.Current().Name+"-report.pdf")
		err := export.WriteProjectPDF(path, s.store.Current(), export.PDFOptions{IncludeFileListing: true})
		s.reportExport(path, err)
	})
	file := fyne.NewMenu("File", exportPNG, exportSVG, exportPDF)

	undoItem := fyne.NewMenuItem("Undo Edit", func() {
		if !s.history.undo(s.engine.ActiveFile()) {
			s.status.SetText("Nothing to undo")
		}
	})
	redoItem := fyne.NewMenuItem("Redo Edit", func() {
		if !s.history.redo(s.engine.ActiveFile()) {
			s.status.SetText("Nothing to redo")
		}
	})
	edit := fyne.NewMenu("Edit", undoItem, redoItem)

	resetView := fyne.NewMenuItem("Reset View", func() {
		s.engine.ResetView()
		s.canvas.Refresh()
	})
	zoomIn := fyne.NewMenuItem("Zoom In", func() {
		s.engine.Wheel(0, -1, appcanvas.Modifiers{Ctrl: true})
		s.canvas.Refresh()
	})
	zoomOut := fyne.NewMenuItem("Zoom Out", func() {
		s.engine.Wheel(0, 1, appcanvas.Modifiers{Ctrl: true})
		s.canvas.Refresh()
	})
	modeBuild := fyne.NewMenuItem("Build Mode", func() { s.setMode(preview.ModeBuild) })
	modeTest := fyne.NewMenuItem("Test Mode", func() { s.setMode(preview.ModeTest) })
	view := fyne.NewMenu("View", resetView, zoomIn, zoomOut, fyne.NewMenuItemSeparator(), modeBuild, modeTest)

	return fyne.NewMainMenu(file, edit, view)
}

func (s *studioShell) setMode(m preview.Mode) {
	s.engine.SetMode(m)
	for _, screen := range s.store.Current().HTMLFiles() {
		if sb := s.sandboxes.get(screen); sb != nil {
			sb.Dispatch(preview.Message{Type: preview.SetMode, Mode: m})
		}
	}
	s.status.SetText(fmt.Sprintf("Mode: %s", m))
	s.canvas.Refresh()
}

func (s *studioShell) reportExport(path string, err error) {
	if err != nil {
		dialog.ShowError(err, s.win)
		return
	}
	s.status.SetText("Exported " + path)
}

// --- screens panel ------------------------------------------------------

func (s *studioShell) screensPanel() fyne.CanvasObject {
	var screens []string
	list := widget.NewList(
		func() int { return len(screens) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if int(i) < len(screens) {
				o.(*widget.Label).SetText(screens[i])
			}
		},
	)
	list.OnSelected = func(id widget.ListItemID) {
		if int(id) < len(screens) {
			s.engine.SelectScreen(screens[id])
			s.canvas.Refresh()
		}
	}
	addBtn := widget.NewButton("Add Screen", func() {
		path, err := s.store.AddScreen(scaffold.ScreenTemplate)
		if err != nil {
			dialog.ShowError(err, s.win)
			return
		}
		telemetry.ScreenAdded(len(s.store.Current().HTMLFiles()))
		s.engine.SelectScreen(path)
	})
	s.onRefresh(func() {
		screens = s.store.Current().HTMLFiles()
		list.Refresh()
	})
	return container.NewBorder(widget.NewLabel("Screens"), addBtn, nil, nil, list)
}

// --- logic panel --------------------------------------------------------

func (s *studioShell) logicPanel() fyne.CanvasObject {
	var nodes []amateur.Node
	search := widget.NewEntry()
	search.SetPlaceHolder("Filter logic")

	reload := func() {
		p := s.store.Current()
		f, ok := p.Files[s.engine.ActiveFile()]
		if !ok {
			nodes = nil
			return
		}
		all := amateur.Scan(f)
		if q := search.Text; q != "" {
			kept := all[:0]
			for _, n := range all {
				if amateur.Matches(n, q) {
					kept = append(kept, n)
				}
			}
			all = kept
		}
		nodes = all
	}

	list := widget.NewList(
		func() int { return len(nodes) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if int(i) < len(nodes) {
				o.(*widget.Label).SetText(amateur.Sentence(nodes[i]))
			}
		},
	)
	list.OnSelected = func(id widget.ListItemID) {
		if int(id) >= len(nodes) {
			return
		}
		s.editLogicValue(nodes[id])
		list.UnselectAll()
	}
	search.OnChanged = func(string) { reload(); list.Refresh() }
	s.onRefresh(func() { reload(); list.Refresh() })
	return container.NewBorder(search, nil, nil, nil, list)
}

func (s *studioShell) editLogicValue(n amateur.Node) {
	entry := widget.NewEntry()
	entry.SetText(n.Value)
	items := []*widget.FormItem{widget.NewFormItem(n.Label, entry)}
	dialog.ShowForm("Edit Value", "Apply", "Cancel", items, func(ok bool) {
		if !ok || entry.Text == n.Value {
			return
		}
		path := s.engine.ActiveFile()
		err := amateur.UpdateValue(s.store, path, n.Value, entry.Text, func(command string) error {
			go s.runCommand(command, orchestrator.ScopePrecise, nil)
			return nil
		})
		if err != nil {
			dialog.ShowError(err, s.win)
		}
	}, s.win)
}

// --- connections panel --------------------------------------------------

func (s *studioShell) connectionsPanel() fyne.CanvasObject {
	var conns []domain.NavigationConnection
	list := widget.NewList(
		func() int { return len(conns) },
		func() fyne.CanvasObject {
			return container.NewBorder(nil, nil, nil, widget.NewButton("Remove", nil), widget.NewLabel(""))
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if int(i) >= len(conns) {
				return
			}
			c := conns[i]
			row := o.(*fyne.Container)
			label := row.Objects[0].(*widget.Label)
			btn := row.Objects[1].(*widget.Button)
			label.SetText(fmt.Sprintf("%s (%s) -> %s", c.FromElementLabel, c.FromScreen, c.ToScreen))
			btn.OnTapped = func() {
				if err := s.store.RemoveConnection(c.ID); err != nil {
					dialog.ShowError(err, s.win)
					return
				}
				telemetry.ConnectionRemoved(len(s.store.Current().Connections))
			}
		},
	)
	s.onRefresh(func() {
		conns = append([]domain.NavigationConnection(nil), s.store.Current().Connections...)
		list.Refresh()
	})
	hint := widget.NewLabel("Right-click an element on the canvas to start a connection.")
	hint.Wrapping = fyne.TextWrapWord
	return container.NewBorder(hint, nil, nil, nil, list)
}

// --- versions panel -----------------------------------------------------

func (s *studioShell) versionsPanel() fyne.CanvasObject {
	var entries []domain.HistoryEntry
	list := widget.NewList(
		func() int { return len(entries) },
		func() fyne.CanvasObject {
			return container.NewBorder(nil, nil, nil, widget.NewButton("Restore", nil), widget.NewLabel(""))
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if int(i) >= len(entries) {
				return
			}
			h := entries[i]
			row := o.(*fyne.Container)
			label := row.Objects[0].(*widget.Label)
			btn := row.Objects[1].(*widget.Button)
			ts := time.UnixMilli(h.Timestamp).Format("15:04:05")
			label.SetText(fmt.Sprintf("[%s] %s: %s", ts, h.Author, h.Description))
			label.Truncation = fyne.TextTruncateEllipsis
			btn.OnTapped = func() { s.confirmRollback(h, int(i)) }
		},
	)
	s.onRefresh(func() {
		entries = append([]domain.HistoryEntry(nil), s.store.Current().History...)
		list.Refresh()
	})
	return container.NewBorder(widget.NewLabel("History"), nil, nil, nil, list)
}

func (s *studioShell) confirmRollback(h domain.HistoryEntry, versionsBack int) {
	dialog.ShowConfirm("Restore Version",
		fmt.Sprintf("Restore the project to %q? The restore is recorded as a new version.", h.Description),
		func(ok bool) {
			if !ok {
				return
			}
			if err := s.store.Rollback(h, true); err != nil {
				dialog.ShowError(err, s.win)
				return
			}
			telemetry.Rollback(versionsBack)
		}, s.win)
}

// --- build panel --------------------------------------------------------

func (s *studioShell) buildPanel() fyne.CanvasObject {
	var keystore buildsim.Keystore
	keyLabel := widget.NewLabel("No keystore generated")
	genBtn := widget.NewButton("Generate Production Key", nil)
	genBtn.OnTapped = func() {
		keystore = buildsim.GenerateKeystore(s.store.Current().Name)
		keyLabel.SetText(fmt.Sprintf("Keystore active (alias %s, %d years)", keystore.Alias, keystore.ValidityYears))
	}

	flavor := widget.NewRadioGroup([]string{string(buildsim.FlavorAPK), string(buildsim.FlavorAAB)}, nil)
	flavor.SetSelected(string(buildsim.FlavorAPK))
	flavor.Horizontal = true

	progress := widget.NewProgressBar()
	stage := widget.NewLabel(string(buildsim.StatusIdle))

	startBtn := widget.NewButton("Compile Native Package", nil)
	startBtn.OnTapped = func() {
		name := s.store.Current().Name
		fl := buildsim.Flavor(flavor.Selected)
		_, err := s.builder.Start(context.Background(), name, fl, keystore, func(p buildsim.Progress) {
			fyne.Do(func() {
				stage.SetText(string(p.Status))
				progress.SetValue(float64(p.Percent) / 100)
				if p.Status == buildsim.StatusSuccess {
					s.status.SetText("Build ready: " + p.Artifact)
					telemetry.BuildFinished(string(fl), true)
				}
				if p.Status == buildsim.StatusFailed {
					telemetry.BuildFinished(string(fl), false)
				}
			})
		})
		if err != nil {
			dialog.ShowError(err, s.win)
		}
	}

	return container.NewVBox(
		widget.NewLabel("Android Keystore"), keyLabel, genBtn,
		widget.NewSeparator(),
		widget.NewLabel("Output"), flavor,
		startBtn, stage, progress,
	)
}

// --- backend panel ------------------------------------------------------

func (s *studioShell) backendPanel() fyne.CanvasObject {
	statusLabel := widget.NewLabel("disconnected")
	var cols []domain.BackendCollection
	list := widget.NewList(
		func() int { return len(cols) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if int(i) < len(cols) {
				c := cols[i]
				o.(*widget.Label).SetText(fmt.Sprintf("/ %s  (%d fields, %d records)", c.Name, len(c.Schema), c.RecordCount))
			}
		},
	)
	connectBtn := widget.NewButton("Provision Cloud Resources", nil)
	connectBtn.OnTapped = func() {
		go func() {
			if err := s.backend.Connect(context.Background()); err != nil {
				fyne.Do(func() { dialog.ShowError(err, s.win) })
			}
		}()
	}
	disconnectBtn := widget.NewButton("Disconnect", func() { s.backend.Disconnect() })
	s.onRefresh(func() {
		b := s.store.Current().Backend
		if b == nil {
			statusLabel.SetText("disconnected")
			cols = nil
		} else {
			statusLabel.SetText(string(b.Status))
			cols = append([]domain.BackendCollection(nil), b.Collections...)
		}
		list.Refresh()
	})
	head := container.NewVBox(statusLabel, container.NewGridWithColumns(2, connectBtn, disconnectBtn), widget.NewSeparator())
	return container.NewBorder(head, nil, nil, nil, list)
}

// --- chat pane ----------------------------------------------------------

func (s *studioShell) chatPane() fyne.CanvasObject {
	var msgs []domain.ChatMessage
	list := widget.NewList(
		func() int { return len(msgs) },
		func() fyne.CanvasObject {
			l := widget.NewLabel("")
			l.Wrapping = fyne.TextWrapWord
			return l
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if int(i) < len(msgs) {
				m := msgs[i]
				o.(*widget.Label).SetText(fmt.Sprintf("%s: %s", m.Role, m.Content))
			}
		},
	)
	reload := func() {
		msgs = s.session.Messages()
		list.Refresh()
		if n := len(msgs); n > 0 {
			list.ScrollTo(n - 1)
		}
	}
	s.onRefresh(reload)

	scopes := []string{
		string(orchestrator.ScopePrecise),
		string(orchestrator.ScopeGeneral),
		string(orchestrator.ScopeWide),
		string(orchestrator.ScopeFullApp),
	}
	scope := widget.NewSelect(scopes, nil)
	scope.SetSelected(string(orchestrator.ScopeGeneral))

	input := widget.NewMultiLineEntry()
	input.SetPlaceHolder("Describe a change")
	input.Wrapping = fyne.TextWrapWord

	send := widget.NewButton("Send", nil)
	send.OnTapped = func() {
		text := input.Text
		if text == "" || s.session.Busy() {
			return
		}
		input.SetText("")
		go s.runCommand(text, orchestrator.Scope(scope.Selected), reload)
	}

	bottom := container.NewBorder(nil, nil, scope, send, input)
	return container.NewBorder(nil, bottom, nil, nil, list)
}

// runCommand runs one orchestrator round trip, repainting the transcript as
// streamed deltas land when reload is non-nil.
func (s *studioShell) runCommand(command string, scope orchestrator.Scope, reload func()) {
	done := make(chan struct{})
	if reload != nil {
		go func() {
			tick := time.NewTicker(200 * time.Millisecond)
			defer tick.Stop()
			for {
				select {
				case <-done:
					fyne.Do(reload)
					return
				case <-tick.C:
					fyne.Do(reload)
				}
			}
		}()
	}
	err := s.session.Run(context.Background(), command, scope)
	close(done)
	if err != nil && !errors.Is(err, orchestrator.ErrBusy) {
		s.logger.Error("orchestrator command failed", slog.Any("err", err))
	}
}
