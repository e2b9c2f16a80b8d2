// Package hotkey registers a global keyboard combination via gohook and
// fires a callback whenever the whole combination is held down.
package hotkey

import (
	"log"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// Listen registers the hotkey and invokes callback on every activation.
// The callback must not block; the event loop owns the actual workflow.
func Listen(hotkeyConfig string, callback func()) {
	keys := parseHotkey(hotkeyConfig)
	log.Printf("Parsed hotkey configuration: %v", keys)

	var keyStates []keyState
	for _, keyName := range keys {
		rawcodes := keyNameToRawcodes(keyName)
		if len(rawcodes) == 0 {
			log.Printf("ERROR: Cannot map key '%s' to rawcodes, hotkey may not work correctly", keyName)
			continue
		}
		keyStates = append(keyStates, keyState{name: keyName, rawcodes: rawcodes})
	}

	if len(keyStates) == 0 {
		log.Printf("ERROR: No valid keys in hotkey configuration '%s'", hotkeyConfig)
		return
	}

	log.Printf("Hotkey listener configured for: %s", hotkeyConfig)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("ERROR: gohook.Start() returned nil channel")
			return
		}

		var mu sync.Mutex
		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown:
				mu.Lock()
				markPressed(keyStates, ev.Rawcode, true)
				if allPressed(keyStates) {
					log.Printf("Hotkey activated: %s", hotkeyConfig)
					for i := range keyStates {
						keyStates[i].pressed = false
					}
					mu.Unlock()
					if callback != nil {
						callback()
					}
					continue
				}
				mu.Unlock()
			case gohook.KeyUp:
				mu.Lock()
				markPressed(keyStates, ev.Rawcode, false)
				mu.Unlock()
			}
		}
		log.Printf("Hotkey event channel closed")
	}()
}

func markPressed(states []keyState, rawcode uint16, pressed bool) {
	for i := range states {
		for _, rc := range states[i].rawcodes {
			if rc == rawcode {
				states[i].pressed = pressed
				break
			}
		}
	}
}

func allPressed(states []keyState) bool {
	for i := range states {
		if !states[i].pressed {
			return false
		}
	}
	return true
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+t" to normalized key names.
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch part {
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}

	return keys
}

// keyNameToRawcodes maps a key name to its virtual key code rawcodes.
// Modifiers return both left and right variants.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	switch keyName {
	case "ctrl":
		return []uint16{162, 163} // VK_LCONTROL, VK_RCONTROL
	case "alt":
		return []uint16{164, 165} // VK_LMENU, VK_RMENU
	case "shift":
		return []uint16{160, 161} // VK_LSHIFT, VK_RSHIFT
	case "win", "cmd", "super":
		return []uint16{91, 92} // VK_LWIN, VK_RWIN
	case "space":
		return []uint16{32}
	case "enter", "return":
		return []uint16{13}
	case "esc", "escape":
		return []uint16{27}
	case "tab":
		return []uint16{9}
	case "backspace":
		return []uint16{8}
	case "delete", "del":
		return []uint16{46}
	case "insert", "ins":
		return []uint16{45}
	case "home":
		return []uint16{36}
	case "end":
		return []uint16{35}
	case "pageup", "pgup":
		return []uint16{33}
	case "pagedown", "pgdn":
		return []uint16{34}
	case "left":
		return []uint16{37}
	case "up":
		return []uint16{38}
	case "right":
		return []uint16{39}
	case "down":
		return []uint16{40}
	}

	// Letters a-z: VK 0x41-0x5A
	if len(keyName) == 1 && keyName[0] >= 'a' && keyName[0] <= 'z' {
		return []uint16{uint16(keyName[0] - 'a' + 65)}
	}
	// Digits 0-9: VK 0x30-0x39
	if len(keyName) == 1 && keyName[0] >= '0' && keyName[0] <= '9' {
		return []uint16{uint16(keyName[0] - '0' + 48)}
	}
	// Function keys f1-f24: VK 0x70-0x87
	if strings.HasPrefix(keyName, "f") && len(keyName) > 1 {
		n := 0
		for _, r := range keyName[1:] {
			if r < '0' || r > '9' {
				n = 0
				break
			}
			n = n*10 + int(r-'0')
		}
		if n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)}
		}
	}

	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}
