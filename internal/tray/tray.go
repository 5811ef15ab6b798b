// Package tray provides system tray functionality using getlantern/systray.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// MenuItem represents a menu item
type MenuItem struct {
	ID       int
	Title    string
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the system tray icon, a status line and the menu
type Tray struct {
	title   string
	tooltip string
	items   []*MenuItem
	quitCh  chan struct{}

	mu         sync.Mutex
	status     string
	statusItem *systray.MenuItem
}

// New creates a new system tray
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		items:   make([]*MenuItem, 0),
		quitCh:  make(chan struct{}),
		status:  "Starting...",
	}
}

// AddMenuItem adds a menu item below the status line. Items must be added before Run.
func (t *Tray) AddMenuItem(title string, callback func()) int {
	id := len(t.items)
	t.items = append(t.items, &MenuItem{
		ID:       id,
		Title:    title,
		Callback: callback,
	})
	return id
}

// AddSeparator adds a separator to the menu
func (t *Tray) AddSeparator() {
	t.items = append(t.items, nil) // nil indicates separator
}

// SetStatus updates the status line and tooltip. It may be called from any
// goroutine, before or after the tray is ready.
func (t *Tray) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	if t.statusItem != nil {
		t.statusItem.SetTitle(status)
		systray.SetTooltip(t.tooltip + " - " + status)
	}
}

// Run starts the tray event loop (blocks)
func (t *Tray) Run() {
	systray.Run(t.setupMenu, t.onExit)
}

func (t *Tray) onExit() {
	close(t.quitCh)
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	systray.SetTitle(t.title)
	systray.SetIcon(getIcon())

	t.mu.Lock()
	t.statusItem = systray.AddMenuItem(t.status, "Connection status")
	t.statusItem.Disable()
	systray.SetTooltip(t.tooltip + " - " + t.status)
	t.mu.Unlock()

	for _, menuItem := range t.items {
		if menuItem == nil {
			systray.AddSeparator()
			continue
		}
		menuItem.item = systray.AddMenuItem(menuItem.Title, "")

		// Handle clicks in goroutine
		if menuItem.Callback != nil {
			go func(mi *MenuItem) {
				for {
					select {
					case <-mi.item.ClickedCh:
						mi.Callback()
					case <-t.quitCh:
						return
					}
				}
			}(menuItem)
		}
	}
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}

// getIcon returns a placeholder icon (valid 16x16 ICO)
func getIcon() []byte {
	icon := make([]byte, 1118)
	// ICO Header
	copy(icon[0:6], []byte{0x00, 0x00, 0x01, 0x00, 0x01, 0x00})
	// Icon Directory
	copy(icon[6:22], []byte{
		0x10, 0x10, 0x00, 0x00, 0x01, 0x00, 0x20, 0x00,
		0x48, 0x04, 0x00, 0x00, // Size: 1024 (pixels) + 40 (header) + 32 (mask)
		0x16, 0x00, 0x00, 0x00, // Offset
	})
	// DIB Header
	copy(icon[22:62], []byte{
		0x28, 0x00, 0x00, 0x00, // Size
		0x10, 0x00, 0x00, 0x00, // Width
		0x20, 0x00, 0x00, 0x00, // Height (16 * 2 for icon)
		0x01, 0x00, // Planes
		0x20, 0x00, // BPP
		0x00, 0x00, 0x00, 0x00, // Compression
		0x00, 0x04, 0x00, 0x00, // Image Size
	})
	return icon
}

// StatusText renders a one-line connection summary for the tray.
func StatusText(connected bool, remote string) string {
	if remote == "" {
		return "Receiver disabled"
	}
	if connected {
		return "Connected to " + remote
	}
	return "Waiting for " + remote
}
