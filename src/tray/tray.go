// Package tray runs the system tray icon for the resident translator.
package tray

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/getlantern/systray"
)

const defaultTooltip = "Subtitle Translator"

var (
	ready   atomic.Bool
	mu      sync.Mutex
	pending string
)

// Callbacks connect menu actions to the event loop.
type Callbacks struct {
	OnTranslate func()
	OnQuit      func()
}

// Run starts the systray loop. Blocks until Quit; must run on the main
// goroutine on platforms where the tray needs the main thread.
func Run(cb Callbacks) {
	systray.Run(func() { onReady(cb) }, onExit)
}

// Quit tears the tray down and unblocks Run.
func Quit() {
	systray.Quit()
}

func onReady(cb Callbacks) {
	systray.SetIcon(iconBytes())
	systray.SetTitle("Subtitle Translator")
	systray.SetTooltip(defaultTooltip)

	mTranslate := systray.AddMenuItem("Translate now", "Capture the subtitle region and translate it")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit the translator")

	ready.Store(true)
	mu.Lock()
	if pending != "" {
		systray.SetTooltip(pending)
		pending = ""
	}
	mu.Unlock()

	go func() {
		for {
			select {
			case <-mTranslate.ClickedCh:
				log.Printf("Tray: translate requested")
				if cb.OnTranslate != nil {
					cb.OnTranslate()
				}
			case <-mQuit.ClickedCh:
				log.Printf("Tray: quit requested")
				if cb.OnQuit != nil {
					cb.OnQuit()
				}
				systray.Quit()
				return
			}
		}
	}()
}

func onExit() {
	ready.Store(false)
}

// UpdateTooltip sets the tray tooltip, buffering the value if the tray is
// not up yet.
func UpdateTooltip(text string) {
	if text == "" {
		text = defaultTooltip
	}
	if !ready.Load() {
		mu.Lock()
		pending = text
		mu.Unlock()
		return
	}
	systray.SetTooltip(text)
}
