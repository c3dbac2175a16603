// Package tray provides the system tray control surface for handwheel.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu: mirror on/off, a status line, open viewer
// and quit.
type Tray struct {
	onMirror func(on bool)
	onOpen   func()
	onQuit   func()
	mirror   bool
	status   string
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuMirrorOn  *systray.MenuItem
	menuMirrorOff *systray.MenuItem
	menuStatus    *systray.MenuItem
}

// New creates a Tray showing the given initial mirror mode.
func New(mirror bool) *Tray {
	return &Tray{
		mirror: mirror,
		status: "Starting",
	}
}

// OnMirror sets the callback for the mirror menu items.
func (t *Tray) OnMirror(fn func(on bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMirror = fn
}

// OnOpen sets the callback for the open viewer item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Handwheel")
	systray.SetTooltip("Handwheel two-hand steering")

	t.mu.Lock()
	t.menuMirrorOn = systray.AddMenuItemCheckbox("Mirror on", "Mirror the camera image", t.mirror)
	t.menuMirrorOff = systray.AddMenuItemCheckbox("Mirror off", "Show the camera image unmirrored", !t.mirror)
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(statusTitle(t.status), "Current status")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Viewer...", "Open the viewer in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Handwheel")

	go func() {
		for {
			select {
			case <-t.menuMirrorOn.ClickedCh:
				t.selectMirror(true)
			case <-t.menuMirrorOff.ClickedCh:
				t.selectMirror(false)
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// selectMirror handles a click on either mirror item.
func (t *Tray) selectMirror(on bool) {
	t.SetMirror(on)

	t.mu.RLock()
	callback := t.onMirror
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(on)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetMirror updates the mirror items without firing the callback.
func (t *Tray) SetMirror(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.mirror = on
	if t.menuMirrorOn == nil {
		return
	}
	if on {
		t.menuMirrorOn.Check()
		t.menuMirrorOff.Uncheck()
	} else {
		t.menuMirrorOn.Uncheck()
		t.menuMirrorOff.Check()
	}
}

// SetStatus updates the status line.
func (t *Tray) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = status
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusTitle(status))
	}
}

// Mirror returns the mirror mode the menu shows.
func (t *Tray) Mirror() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mirror
}

// Status returns the status line text.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

func statusTitle(status string) string {
	if status == "" {
		return "Status: idle"
	}
	return "Status: " + status
}
