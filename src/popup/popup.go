// Package popup delivers normalized translation records to the user.
// Rendering happens in a separate popup binary so the GUI main loop never
// competes with the resident hotkey/event loop; this package only manages
// subprocess lifetime, debouncing and cleanup.
package popup

import (
	"log"

	"subtitle-translator-llm/src/validation"
)

var launcher *Launcher

// Init wires the package-level launcher used by Show.
func Init(l *Launcher) {
	launcher = l
}

// Show displays a translation record. Returns without error when the show
// was debounced; rendering problems are the popup binary's to log.
func Show(rec validation.Translation) error {
	if launcher == nil {
		log.Printf("Popup launcher not initialized; translation: %s", rec.Translation)
		return nil
	}
	return launcher.Show(rec)
}

// Shutdown terminates any popups still on screen.
func Shutdown() {
	if launcher != nil {
		launcher.CloseAll()
	}
}
