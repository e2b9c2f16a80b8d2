package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"subtitle-translator-llm/src/clipboard"
	"subtitle-translator-llm/src/config"
	"subtitle-translator-llm/src/eventloop"
	"subtitle-translator-llm/src/imagestore"
	"subtitle-translator-llm/src/llm"
	"subtitle-translator-llm/src/logutil"
	"subtitle-translator-llm/src/ocr"
	"subtitle-translator-llm/src/popup"
	"subtitle-translator-llm/src/screenshot"
	"subtitle-translator-llm/src/session"
	"subtitle-translator-llm/src/tray"
)

// normalizeFlagDashes maps GNU-style --translate-once to Go's -translate-once
func normalizeFlagDashes() {
	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch {
		case arg == "--translate-once":
			os.Args[i] = "-translate-once"
		case strings.HasPrefix(arg, "--translate-once="):
			os.Args[i] = "-translate-once" + arg[len("--translate-once"):]
		}
	}
}

func main() {
	// Region capture is in physical pixels; opt out of DPI scaling first.
	enableDPIAwareness()

	// The tray needs the main thread on macOS and some Linux desktops.
	runtime.LockOSThread()

	translateOnce := flag.Bool("translate-once", false, "Capture the subtitle region, translate it, print the result and exit")
	normalizeFlagDashes()
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logutil.Setup(cfg.EnableFileLogging)

	if cfg.APIKey == "" {
		fmt.Fprintf(os.Stderr, "OpenRouter API key is required. Set OPENROUTER_API_KEY or provide a key file.\n")
		os.Exit(1)
	}
	if cfg.Model == "" {
		fmt.Fprintf(os.Stderr, "MODEL is required. Please set it in your .env file.\n")
		os.Exit(1)
	}

	llm.Init(&llm.Config{
		APIKey:              cfg.APIKey,
		Model:               cfg.Model,
		Providers:           cfg.Providers,
		ExplanationLanguage: cfg.ExplanationLanguage,
		MaxTokens:           cfg.MaxTokens,
		Temperature:         cfg.Temperature,
	})
	if err := llm.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "LLM startup check failed: %v\n", err)
		os.Exit(1)
	}
	log.Printf("LLM ready (model %s, key %s)", cfg.Model, logutil.RedactKey(cfg.APIKey))

	ocr.Init(cfg)

	if *translateOnce {
		runTranslateOnce(cfg)
		return
	}

	if err := clipboard.Init(); err != nil {
		log.Fatalf("Failed to initialize clipboard: %v", err)
	}

	popup.Init(popup.NewLauncher(popup.Options{
		Binary:      cfg.PopupBinary,
		MinInterval: time.Duration(cfg.PopupMinIntervalSec) * time.Second,
		Timeout:     time.Duration(cfg.PopupTimeoutSec) * time.Second,
	}))

	log.Printf("Subtitle Translator initialized")
	log.Printf("Region: %+v, engine: %s, hotkey: %s", cfg.SubtitlesRegion, cfg.OCREngine, cfg.Hotkey)

	loop := eventloop.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
		tray.Quit()
	}()

	loop.StartHotkey(cfg.Hotkey)

	go func() {
		if err := loop.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Event loop stopped: %v", err)
		}
		tray.Quit()
	}()

	// Blocks until quit.
	tray.Run(tray.Callbacks{
		OnTranslate: func() { loop.Trigger("tray") },
		OnQuit:      cancel,
	})

	popup.Shutdown()
	log.Printf("Subtitle Translator exiting")
}

// runTranslateOnce captures and translates a single frame, printing the
// rendered record to stdout.
func runTranslateOnce(cfg *config.Config) {
	var store session.FrameStore
	if cfg.SaveCaptures {
		store = imagestore.New(cfg.CapturesDir)
	}

	res, err := session.Execute(context.Background(), session.Options{
		Region: screenshot.Region{
			X:      cfg.SubtitlesRegion.X,
			Y:      cfg.SubtitlesRegion.Y,
			Width:  cfg.SubtitlesRegion.Width,
			Height: cfg.SubtitlesRegion.Height,
		},
		Deadline: time.Duration(cfg.TranslateDeadline) * time.Second,
		Store:    store,
		Target:   session.StdoutTarget{},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Translation failed: %v\n", err)
		os.Exit(1)
	}
	log.Printf("Translate-once completed (%d chars recognized)", len(res.Text))
}
