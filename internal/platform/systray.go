package platform

import (
	"fyne.io/systray"
	"github.com/desertthunder/ytmd/internal/menu"
)

// systrayBackend realizes menus through fyne.io/systray, which renders a
// status item on darwin and a tray icon elsewhere.
type systrayBackend struct {
	end func()
}

var _ Backend = (*systrayBackend)(nil)

func newSystrayBackend() *systrayBackend {
	return &systrayBackend{}
}

func (b *systrayBackend) Start(onReady func()) error {
	start, end := systray.RunWithExternalLoop(onReady, func() {})
	b.end = end
	start()
	return nil
}

func (b *systrayBackend) SetIcon(icon []byte) {
	systray.SetIcon(icon)
}

func (b *systrayBackend) SetTooltip(tooltip string) {
	systray.SetTooltip(tooltip)
}

func (b *systrayBackend) ResetMenu() {
	systray.ResetMenu()
}

func (b *systrayBackend) AddItem(label, tooltip string, kind menu.ItemType, checked, disabled bool) Handle {
	var item *systray.MenuItem
	switch kind {
	case menu.Checkbox, menu.Radio:
		// systray has no native radio type; checkbox marks render the
		// mutually exclusive repeat entries.
		item = systray.AddMenuItemCheckbox(label, tooltip, checked)
	default:
		item = systray.AddMenuItem(label, tooltip)
	}
	if disabled {
		item.Disable()
	}
	return systrayHandle{item: item}
}

func (b *systrayBackend) AddSeparator() {
	systray.AddSeparator()
}

func (b *systrayBackend) Quit() {
	if b.end != nil {
		b.end()
		b.end = nil
	}
}

type systrayHandle struct {
	item *systray.MenuItem
}

func (h systrayHandle) AddSubItem(label string, kind menu.ItemType, checked, disabled bool) Handle {
	var sub *systray.MenuItem
	switch kind {
	case menu.Checkbox, menu.Radio:
		sub = h.item.AddSubMenuItemCheckbox(label, label, checked)
	default:
		sub = h.item.AddSubMenuItem(label, label)
	}
	if disabled {
		sub.Disable()
	}
	return systrayHandle{item: sub}
}

func (h systrayHandle) Clicked() <-chan struct{} {
	return h.item.ClickedCh
}
