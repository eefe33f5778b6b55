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
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"markbox/internal/config"
	"markbox/internal/crash"
	"markbox/internal/domain"
	"markbox/internal/editor"
	applog "markbox/internal/log"
	appsync "markbox/internal/sync"
	"markbox/internal/telemetry"
	"markbox/internal/transfer"
	"markbox/internal/version"
)

// Run starts the Fyne-based annotation editor.
func Run() error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	store := editor.NewStore()
	defer crash.Recover(store)

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}

	notice := &editor.Notice{}
	drawCtl := editor.NewDrawController(store)
	xformCtl := editor.NewTransformController(store)
	client := appsync.NewClient(cfg.Server.BaseURL, config.Token(), time.Duration(cfg.Server.TimeoutMs)*time.Millisecond)
	syncer := appsync.NewSyncer(store, client, notice)
	syncer.SetAutoSave(cfg.Editor.AutoSave)

	fyneApp := app.NewWithID("markbox")
	w := fyneApp.NewWindow("markbox")
	w.Resize(fyne.NewSize(float32(domain.CanvasWidth)+260, float32(domain.CanvasHeight)+80))

	status := widget.NewLabel("Ready")
	setStatus := func(msg string) {
		fyne.Do(func() { status.SetText(msg) })
	}
	showNotice := func() {
		if msg, ok := notice.Get(); ok {
			setStatus(msg)
		} else {
			setStatus("Ready")
		}
	}

	board := NewBoardCanvas(store, drawCtl, xformCtl)

	// Selection panel: one row per rectangle, newest last.
	rows := []domain.Rectangle{}
	list := widget.NewList(
		func() int { return len(rows) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i < 0 || int(i) >= len(rows) {
				return
			}
			r := rows[i]
			o.(*widget.Label).SetText(fmt.Sprintf("%s  %.0f,%.0f  %.0f×%.0f", shortID(r.ID), r.X, r.Y, r.Width, r.Height))
		},
	)
	list.OnSelected = func(i widget.ListItemID) {
		if i >= 0 && int(i) < len(rows) {
			store.Select(rows[i].ID)
			board.Refresh()
		}
	}

	refreshAll := func() {
		rows = store.Rectangles()
		list.Refresh()
		board.Refresh()
		showNotice()
	}
	store.OnChange(func() {
		fyne.Do(refreshAll)
	})

	drawCheck := widget.NewCheck("Draw", func(on bool) {
		drawCtl.SetMode(on)
		l.Info("draw mode toggled", slog.Bool("on", on))
	})
	autoCheck := widget.NewCheck("Auto-save", func(on bool) {
		syncer.SetAutoSave(on)
	})
	autoCheck.SetChecked(cfg.Editor.AutoSave)

	deleteBtn := widget.NewButton("Delete", func() {
		if id, ok := store.SelectedID(); ok {
			store.Remove(id)
			telemetry.Event("rect_deleted", nil)
		}
	})
	saveBtn := widget.NewButton("Save", func() {
		go func() {
			if err := syncer.Save(context.Background()); err != nil {
				l.Warn("save failed", slog.Any("err", err))
			}
			fyne.Do(showNotice)
		}()
	})
	exportBtn := widget.NewButton("Export", func() {
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			path, err := transfer.ExportFile(uri.Path(), store.Rectangles())
			if err != nil {
				setStatus("export failed")
				return
			}
			setStatus("exported " + path)
			telemetry.Event("export_json", nil)
		}, w)
	})
	importBtn := widget.NewButton("Import", func() {
		dialog.ShowFileOpen(func(rd fyne.URIReadCloser, err error) {
			if err != nil || rd == nil {
				return
			}
			defer rd.Close()
			if err := transfer.ImportFile(store, rd.URI().Path()); err != nil {
				setStatus("import failed: not a rectangle document")
				return
			}
			setStatus("imported " + rd.URI().Name())
			telemetry.Event("import_json", nil)
		}, w)
	})

	toolbar := container.NewHBox(drawCheck, widget.NewSeparator(), deleteBtn, saveBtn, widget.NewSeparator(), importBtn, exportBtn, widget.NewSeparator(), autoCheck)
	right := container.NewBorder(widget.NewLabel("Rectangles"), nil, nil, nil, list)
	w.SetContent(container.NewBorder(toolbar, status, nil, right, board))

	// Initial load from the annotation service.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := syncer.Load(ctx); err != nil {
			l.Warn("initial load failed", slog.Any("err", err))
		}
		fyne.Do(refreshAll)
	}()

	w.ShowAndRun()

	if err := config.Save(cfg, client.Token); err != nil && !os.IsPermission(err) {
		l.Warn("config save failed", slog.Any("err", err))
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type dragKind int

const (
	dragNone dragKind = iota
	dragDraw
	dragMove
	dragResize
)

const handleSize float32 = 8

// BoardCanvas renders the fixed annotation board and maps pointer
// gestures onto the draw and transform controllers. The board occupies
// the widget's top-left corner at 1:1 scale.
type BoardCanvas struct {
	widget.BaseWidget
	store *editor.Store
	draw  *editor.DrawController
	xform *editor.TransformController

	drag    dragKind
	corner  int // resize handle index: 0 NW, 1 NE, 2 SW, 3 SE
	orig    domain.Rectangle
	startX  float64
	startY  float64
	curX    float64
	curY    float64
	preview domain.Rectangle
}

func NewBoardCanvas(store *editor.Store, draw *editor.DrawController, xform *editor.TransformController) *BoardCanvas {
	b := &BoardCanvas{store: store, draw: draw, xform: xform}
	b.ExtendBaseWidget(b)
	return b
}

func (b *BoardCanvas) MinSize() fyne.Size {
	return fyne.NewSize(float32(domain.CanvasWidth), float32(domain.CanvasHeight))
}

// Tapped selects the top-most rectangle under the cursor. A background
// tap keeps the current selection; deselection happens through the list
// or by deleting.
func (b *BoardCanvas) Tapped(e *fyne.PointEvent) {
	if b.draw.Mode() {
		return
	}
	x, y := float64(e.Position.X), float64(e.Position.Y)
	if r, ok := b.hitTest(x, y); ok {
		b.store.Select(r.ID)
		b.Refresh()
	}
}

func (b *BoardCanvas) Dragged(e *fyne.DragEvent) {
	x, y := float64(e.Position.X), float64(e.Position.Y)
	if b.drag == dragNone {
		b.beginDrag(x, y)
	}
	b.curX, b.curY = x, y

	switch b.drag {
	case dragDraw:
		b.draw.PointerMove(x, y)
	case dragMove:
		b.preview.X = b.orig.X + (x - b.startX)
		b.preview.Y = b.orig.Y + (y - b.startY)
	case dragResize:
		b.preview = b.resizedPreview(x, y)
	}
	b.Refresh()
}

func (b *BoardCanvas) beginDrag(x, y float64) {
	b.startX, b.startY = x, y
	if b.draw.Mode() {
		_, onShape := b.hitTest(x, y)
		b.draw.PointerDown(x, y, onShape)
		b.drag = dragDraw
		return
	}
	sel, ok := b.store.Selected()
	if !ok {
		return
	}
	if c, ok := b.hitHandle(sel, x, y); ok {
		b.drag = dragResize
		b.corner = c
		b.orig = sel
		b.preview = sel
		return
	}
	if inRect(sel, x, y) {
		b.drag = dragMove
		b.orig = sel
		b.preview = sel
	}
}

func (b *BoardCanvas) DragEnd() {
	switch b.drag {
	case dragDraw:
		b.draw.PointerUp()
	case dragMove:
		b.xform.DragEnd(b.orig.ID, b.preview.X, b.preview.Y)
	case dragResize:
		sx, sy := b.scaleFactors(b.curX, b.curY)
		b.xform.ResizeEnd(b.orig.ID, b.preview.X, b.preview.Y, sx, sy)
	}
	b.drag = dragNone
	b.Refresh()
}

// scaleFactors relates the pointer's distance from the anchor corner to
// the original distance on each axis.
func (b *BoardCanvas) scaleFactors(x, y float64) (float64, float64) {
	ax, ay := b.anchor()
	dx0, dy0 := b.startX-ax, b.startY-ay
	sx, sy := 1.0, 1.0
	if dx0 != 0 {
		sx = (x - ax) / dx0
	}
	if dy0 != 0 {
		sy = (y - ay) / dy0
	}
	if sx <= 0 {
		sx = 0.001
	}
	if sy <= 0 {
		sy = 0.001
	}
	return sx, sy
}

// anchor is the corner opposite the grabbed handle.
func (b *BoardCanvas) anchor() (float64, float64) {
	switch b.corner {
	case 0: // NW
		return b.orig.X + b.orig.Width, b.orig.Y + b.orig.Height
	case 1: // NE
		return b.orig.X, b.orig.Y + b.orig.Height
	case 2: // SW
		return b.orig.X + b.orig.Width, b.orig.Y
	default: // SE
		return b.orig.X, b.orig.Y
	}
}

func (b *BoardCanvas) resizedPreview(x, y float64) domain.Rectangle {
	ax, ay := b.anchor()
	sx, sy := b.scaleFactors(x, y)
	r := b.orig
	r.Width = b.orig.Width * sx
	r.Height = b.orig.Height * sy
	if x < ax {
		r.X = ax - r.Width
	} else {
		r.X = ax
	}
	if y < ay {
		r.Y = ay - r.Height
	} else {
		r.Y = ay
	}
	return editor.ClampBounds(b.orig, r)
}

func (b *BoardCanvas) hitTest(x, y float64) (domain.Rectangle, bool) {
	rects := b.store.Rectangles()
	for i := len(rects) - 1; i >= 0; i-- {
		if inRect(rects[i], x, y) {
			return rects[i], true
		}
	}
	return domain.Rectangle{}, false
}

func (b *BoardCanvas) hitHandle(r domain.Rectangle, x, y float64) (int, bool) {
	h := float64(handleSize)
	corners := [4][2]float64{
		{r.X, r.Y},
		{r.X + r.Width, r.Y},
		{r.X, r.Y + r.Height},
		{r.X + r.Width, r.Y + r.Height},
	}
	for i, c := range corners {
		if x >= c[0]-h/2 && x <= c[0]+h/2 && y >= c[1]-h/2 && y <= c[1]+h/2 {
			return i, true
		}
	}
	return 0, false
}

func inRect(r domain.Rectangle, x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

func (b *BoardCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.White)
	bg.StrokeColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	bg.StrokeWidth = 2
	return &boardRenderer{bc: b, bg: bg}
}

type boardRenderer struct {
	bc      *BoardCanvas
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *boardRenderer) Destroy()                     {}
func (r *boardRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *boardRenderer) MinSize() fyne.Size           { return r.bc.MinSize() }

func (r *boardRenderer) Layout(fyne.Size) {
	r.bg.Resize(r.bc.MinSize())
	r.bg.Move(fyne.NewPos(0, 0))
}

// Refresh rebuilds the object list from the store on every change; the
// board carries at most a few dozen rectangles so this stays cheap.
func (r *boardRenderer) Refresh() {
	objs := []fyne.CanvasObject{r.bg}
	selID, _ := r.bc.store.SelectedID()

	for _, rect := range r.bc.store.Rectangles() {
		draw := rect
		if r.bc.drag == dragMove || r.bc.drag == dragResize {
			if rect.ID == r.bc.orig.ID {
				draw = r.bc.preview
			}
		}
		objs = append(objs, r.rectObjects(draw, rect.ID == selID)...)
	}
	if prov, ok := r.bc.draw.Provisional(); ok {
		n := prov.Normalized()
		objs = append(objs, r.outlineObject(n))
	}

	r.objects = objs
	r.Layout(r.bc.Size())
	canvas.Refresh(r.bc)
}

func (r *boardRenderer) rectObjects(d domain.Rectangle, selected bool) []fyne.CanvasObject {
	cr, cg, cb, err := transfer.ParseHexColor(d.Color)
	if err != nil {
		cr, cg, cb = 128, 128, 128
	}
	body := canvas.NewRectangle(color.RGBA{R: cr, G: cg, B: cb, A: 90})
	body.StrokeColor = color.RGBA{R: cr, G: cg, B: cb, A: 255}
	body.StrokeWidth = 1
	body.Resize(fyne.NewSize(float32(d.Width), float32(d.Height)))
	body.Move(fyne.NewPos(float32(d.X), float32(d.Y)))
	objs := []fyne.CanvasObject{body}

	if selected {
		sel := r.outlineObject(d)
		objs = append(objs, sel)
		for _, c := range [4][2]float64{
			{d.X, d.Y},
			{d.X + d.Width, d.Y},
			{d.X, d.Y + d.Height},
			{d.X + d.Width, d.Y + d.Height},
		} {
			h := canvas.NewRectangle(color.RGBA{R: 0, G: 170, B: 255, A: 255})
			h.Resize(fyne.NewSize(handleSize, handleSize))
			h.Move(fyne.NewPos(float32(c[0])-handleSize/2, float32(c[1])-handleSize/2))
			objs = append(objs, h)
		}
	}
	return objs
}

func (r *boardRenderer) outlineObject(d domain.Rectangle) fyne.CanvasObject {
	o := canvas.NewRectangle(color.RGBA{})
	o.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	o.StrokeWidth = 2
	o.Resize(fyne.NewSize(float32(d.Width), float32(d.Height)))
	o.Move(fyne.NewPos(float32(d.X), float32(d.Y)))
	return o
}
