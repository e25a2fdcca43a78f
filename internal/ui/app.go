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
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"comicpanel/internal/config"
	"comicpanel/internal/crash"
	"comicpanel/internal/domain"
	"comicpanel/internal/host"
	applog "comicpanel/internal/log"
	"comicpanel/internal/version"
)

// stateRef lets the crash handler read the list once the stack exists.
type stateRef struct{ sess *host.Session }

func (r *stateRef) Elements() []domain.Element {
	if r.sess == nil {
		return nil
	}
	return r.sess.Elements()
}

// Run starts the desktop editor. path optionally names an element list to open.
func Run(path string) error {
	ref := &stateRef{}
	defer crash.Recover(ref)

	cfg, token, err := config.Load()
	if err != nil {
		return err
	}
	applog.Init(applog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, AddSource: cfg.Logging.Source, File: cfg.Logging.File})
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	fyneApp := app.NewWithID("comicpanel")
	w := fyneApp.NewWindow("Comic Panel")
	prefs := fyneApp.Preferences()
	w.Resize(fyne.NewSize(
		float32(max(800, prefs.IntWithFallback("window.width", 1200))),
		float32(max(600, prefs.IntWithFallback("window.height", 800))),
	))

	status := widget.NewLabel("Ready.")
	var sc *SceneCanvas
	refresh := func() {
		fyne.Do(func() {
			if sc != nil {
				sc.Refresh()
			}
		})
	}
	var selLabel *widget.Label
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stack, err := host.NewStack(ctx, cfg, token, host.Hooks{
		OnChange: func(list []domain.Element, selected *domain.Element) {
			fyne.Do(func() {
				if selLabel == nil {
					return
				}
				if selected == nil {
					selLabel.SetText(fmt.Sprintf("%d elements", len(list)))
				} else {
					selLabel.SetText(fmt.Sprintf("%d elements | %s (%s)", len(list), selected.ID, selected.Kind))
				}
			})
			refresh()
		},
		OnNodeAdded: refresh,
		OnLoadFailed: func(id string, err error) {
			fyne.Do(func() { status.SetText(fmt.Sprintf("Image for %s failed to load: %v", id, err)) })
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stack.Close(); cerr != nil {
			l.Warn("close failed", slog.Any("err", cerr))
		}
	}()
	ref.sess = stack.Session
	sess := stack.Session

	sc = NewSceneCanvas(stack.Adapter, cfg.Canvas.ZoomStep)
	sc.OnError = func(err error) { status.SetText(err.Error()) }
	selLabel = widget.NewLabel("0 elements")

	showErr := func(op string, err error) {
		l.Error(op+" failed", slog.Any("err", err))
		dialog.ShowError(err, w)
	}

	if strings.TrimSpace(path) != "" {
		if err := openFile(sess, path, status); err != nil {
			showErr("open", err)
			path = ""
		}
	}

	kinds := make([]string, 0, len(domain.Kinds))
	for _, k := range domain.Kinds {
		if k.IsImage() {
			kinds = append(kinds, string(k))
		}
	}
	kindSelect := widget.NewSelect(kinds, nil)
	kindSelect.SetSelected(string(domain.KindCharacterBody))
	descEntry := widget.NewEntry()
	descEntry.SetPlaceHolder("Describe the element…")
	var genBtn *widget.Button
	genBtn = widget.NewButton("Generate", func() {
		kind, desc := domain.Kind(kindSelect.Selected), descEntry.Text
		genBtn.Disable()
		status.SetText("Generating " + string(kind) + "…")
		go func() {
			el, err := sess.AddGenerated(ctx, kind, desc)
			fyne.Do(func() {
				genBtn.Enable()
				if err != nil {
					showErr("generate", err)
					status.SetText("Generation failed.")
					return
				}
				descEntry.SetText("")
				status.SetText("Added " + el.ID)
			})
		}()
	})

	textEntry := widget.NewEntry()
	textEntry.SetPlaceHolder("Label text")
	addTextBtn := widget.NewButton("Add Text", func() {
		if _, err := sess.AddText(textEntry.Text); err != nil {
			showErr("add text", err)
			return
		}
		textEntry.SetText("")
	})
	deleteBtn := widget.NewButton("Delete", func() {
		if _, err := sess.DeleteSelected(); err != nil {
			status.SetText(err.Error())
		}
	})
	lockBtn := widget.NewButton("Lock/Unlock", func() {
		locked, err := sess.ToggleLockSelected()
		if err != nil {
			status.SetText(err.Error())
			return
		}
		status.SetText(map[bool]string{true: "Locked.", false: "Unlocked."}[locked])
	})
	exprBtn := widget.NewButton("Expressions…", func() {
		status.SetText("Generating expressions…")
		go func() {
			exprs, err := sess.GenerateExpressions(ctx)
			fyne.Do(func() {
				if err != nil {
					showErr("expressions", err)
					return
				}
				names := make([]string, len(exprs))
				for i, e := range exprs {
					names[i] = e.Expression
				}
				pick := widget.NewRadioGroup(names, nil)
				dialog.NewCustomConfirm("Change Expression", "Apply", "Cancel", pick, func(ok bool) {
					if !ok || pick.Selected == "" {
						return
					}
					for _, e := range exprs {
						if e.Expression == pick.Selected {
							if err := sess.ChangeExpression(e.ImageURL); err != nil {
								showErr("change expression", err)
							}
							return
						}
					}
				}, w).Show()
				status.SetText(fmt.Sprintf("%d expressions ready.", len(exprs)))
			})
		}()
	})
	zoomLabel := widget.NewLabel("100%")
	zoom := func(f float64) {
		z, err := stack.Adapter.ZoomBy(f)
		if err != nil {
			return
		}
		zoomLabel.SetText(fmt.Sprintf("%.0f%%", z*100))
		sc.Refresh()
	}
	zoomIn := widget.NewButton("+", func() { zoom(zoomFactor(cfg.Canvas.ZoomStep, 1)) })
	zoomOut := widget.NewButton("-", func() { zoom(zoomFactor(cfg.Canvas.ZoomStep, -1)) })

	setPath := func(p string) {
		path = p
		if p == "" {
			w.SetTitle("Comic Panel")
		} else {
			w.SetTitle("Comic Panel - " + filepath.Base(p))
		}
	}
	setPath(path)
	openItem := fyne.NewMenuItem("Open…", func() {
		fd := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil || rc == nil {
				return
			}
			_ = rc.Close()
			if err := openFile(sess, rc.URI().Path(), status); err != nil {
				showErr("open", err)
				return
			}
			setPath(rc.URI().Path())
		}, w)
		fd.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
		fd.Show()
	})
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}
	w.SetMainMenu(fyne.NewMainMenu(fyne.NewMenu("File", openItem)))
	w.Canvas().AddShortcut(openItem.Shortcut, func(fyne.Shortcut) { openItem.Action() })

	toolbar := container.NewVBox(
		container.NewBorder(nil, nil, kindSelect, genBtn, descEntry),
		container.NewBorder(nil, nil, nil, addTextBtn, textEntry),
		container.NewHBox(deleteBtn, lockBtn, exprBtn, widget.NewSeparator(), zoomOut, zoomLabel, zoomIn),
	)
	footer := container.NewBorder(nil, nil, nil, selLabel, status)
	w.SetContent(container.NewBorder(toolbar, footer, nil, nil, sc))

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})
	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}

func openFile(sess *host.Session, path string, status *widget.Label) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	list, err := domain.DecodeElements(data)
	if err != nil {
		return err
	}
	if err := sess.Replace(list); err != nil {
		return err
	}
	status.SetText("Opened " + filepath.Base(path))
	return nil
}
