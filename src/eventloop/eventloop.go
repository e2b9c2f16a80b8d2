// Package eventloop is the single-threaded coordinator for the resident
// translator: hotkey presses and the optional capture ticker trigger
// translation jobs; results come back through one channel so the busy
// flag never needs a lock.
package eventloop

import (
	"context"
	"log"
	"time"

	"subtitle-translator-llm/src/config"
	"subtitle-translator-llm/src/hotkey"
	"subtitle-translator-llm/src/imagestore"
	"subtitle-translator-llm/src/screenshot"
	"subtitle-translator-llm/src/session"
	"subtitle-translator-llm/src/tray"
	"subtitle-translator-llm/src/validation"
	"subtitle-translator-llm/src/worker"
)

type Loop struct {
	pool           *worker.Pool
	results        chan result
	triggerCh      chan string
	busy           bool
	region         screenshot.Region
	deadline       time.Duration
	interval       time.Duration
	store          session.FrameStore
	defaultTooltip string
}

type result struct {
	rec validation.Translation
	err error
}

// New creates the loop from config. A nil config gets safe defaults.
func New(cfg *config.Config) *Loop {
	deadlineSec := 45
	intervalSec := 0
	region := screenshot.Region{X: 150, Y: 750, Width: 1520, Height: 330}
	var store session.FrameStore

	if cfg != nil {
		if cfg.TranslateDeadline > 0 {
			deadlineSec = cfg.TranslateDeadline
		}
		intervalSec = cfg.CaptureIntervalSec
		region = screenshot.Region{
			X:      cfg.SubtitlesRegion.X,
			Y:      cfg.SubtitlesRegion.Y,
			Width:  cfg.SubtitlesRegion.Width,
			Height: cfg.SubtitlesRegion.Height,
		}
		if cfg.SaveCaptures {
			store = imagestore.New(cfg.CapturesDir)
		}
	}

	return &Loop{
		pool:           worker.New(0),
		results:        make(chan result, 1),
		triggerCh:      make(chan string, 4),
		region:         region,
		deadline:       time.Duration(deadlineSec) * time.Second,
		interval:       time.Duration(intervalSec) * time.Second,
		store:          store,
		defaultTooltip: "Subtitle Translator",
	}
}

// StartHotkey registers the global hotkey and posts events into the loop.
func (l *Loop) StartHotkey(combo string) {
	if combo == "" {
		return
	}
	hotkey.Listen(combo, func() {
		l.Trigger("hotkey")
	})
}

// Trigger requests one translation cycle. Non-blocking; bursts beyond the
// small channel buffer are dropped.
func (l *Loop) Trigger(source string) {
	select {
	case l.triggerCh <- source:
	default:
		log.Printf("Trigger from %s dropped (loop saturated)", source)
	}
}

// Run processes triggers until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if l.interval > 0 {
		ticker := time.NewTicker(l.interval)
		defer ticker.Stop()
		tick = ticker.C
		log.Printf("Periodic capture every %s", l.interval)
	}

	log.Printf("Event loop running (region %dx%d at %d,%d)",
		l.region.Width, l.region.Height, l.region.X, l.region.Y)

	for {
		select {
		case <-ctx.Done():
			l.pool.Close()
			return ctx.Err()

		case source := <-l.triggerCh:
			l.startJob(ctx, source)

		case <-tick:
			l.startJob(ctx, "ticker")

		case r := <-l.results:
			l.setBusy(false)
			if r.err != nil {
				log.Printf("Translation cycle failed: %v", r.err)
				tray.UpdateTooltip("Subtitle Translator: error")
				continue
			}
			log.Printf("Translation cycle done: %q -> %q (%d grammar items)",
				truncate(r.rec.Original, 40), truncate(r.rec.Translation, 40), len(r.rec.GrammarJSON))
		}
	}
}

func (l *Loop) startJob(ctx context.Context, source string) {
	if l.busy {
		log.Printf("Ignoring %s trigger: translation in flight", source)
		return
	}

	job := func(jobCtx context.Context) (validation.Translation, error) {
		res, err := session.Execute(jobCtx, session.Options{
			Region:   l.region,
			Deadline: l.deadline,
			Store:    l.store,
			Target:   session.PopupTarget{},
		})
		return res.Record, err
	}

	submitted := l.pool.Submit(ctx, job, func(rec validation.Translation, err error) {
		l.results <- result{rec: rec, err: err}
	})
	if !submitted {
		log.Printf("Worker pool rejected %s trigger", source)
		return
	}
	l.setBusy(true)
}

func (l *Loop) setBusy(b bool) {
	l.busy = b
	if b {
		tray.UpdateTooltip("Subtitle Translator: translating...")
	} else {
		tray.UpdateTooltip(l.defaultTooltip)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
