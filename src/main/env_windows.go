//go:build windows

package main

import (
	"log"
	"syscall"
)

// enableDPIAwareness opts into per-monitor DPI awareness so the configured
// subtitle region maps to physical pixels instead of scaled coordinates.
func enableDPIAwareness() {
	shcore := syscall.NewLazyDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	const processPerMonitorDPIAware = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		if ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware)); ret != 0 {
			log.Printf("DPI: SetProcessDpiAwareness returned %d", ret)
		}
		return
	}

	// Pre-8.1 fallback.
	user32 := syscall.NewLazyDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err == nil {
		if ret, _, _ := setProcessDPIAware.Call(); ret == 0 {
			log.Printf("DPI: SetProcessDPIAware failed")
		}
	}
}
