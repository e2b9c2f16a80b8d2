// Package session runs one complete translation workflow: capture the
// subtitle region, archive the frame, OCR it, translate, normalize and
// deliver the record to a target.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"time"

	"subtitle-translator-llm/src/clipboard"
	"subtitle-translator-llm/src/llm"
	"subtitle-translator-llm/src/ocr"
	"subtitle-translator-llm/src/popup"
	"subtitle-translator-llm/src/screenshot"
	"subtitle-translator-llm/src/validation"
)

var ErrNoText = errors.New("no subtitle text detected")

type CaptureFunc func(region screenshot.Region) (*image.RGBA, error)

type RecognizeFunc func(ctx context.Context, img image.Image) (string, error)

type TranslateFunc func(ctx context.Context, text string) (string, error)

// FrameStore archives captured frames. Failures are logged, never fatal.
type FrameStore interface {
	Save(img image.Image) (string, error)
}

type ResultTarget interface {
	OnSuccess(rec validation.Translation) error
	OnFailure(err error) error
}

type Options struct {
	Region    screenshot.Region
	Deadline  time.Duration
	Capture   CaptureFunc
	Recognize RecognizeFunc
	Translate TranslateFunc
	Store     FrameStore
	Target    ResultTarget
}

type Result struct {
	Text   string
	Record validation.Translation
}

// Execute runs the pipeline once. Stage failures are reported to the
// target and returned; the normalization stage itself cannot fail.
func Execute(ctx context.Context, opts Options) (Result, error) {
	if opts.Target == nil {
		return Result{}, errors.New("Target is required")
	}

	capture := opts.Capture
	if capture == nil {
		capture = screenshot.CaptureRegion
	}
	recognize := opts.Recognize
	if recognize == nil {
		recognize = ocr.RecognizeImage
	}
	translate := opts.Translate
	if translate == nil {
		translate = llm.QueryTranslation
	}

	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = 45 * time.Second
	}

	img, err := capture(opts.Region)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return Result{}, err
	}

	if opts.Store != nil {
		if path, err := opts.Store.Save(img); err != nil {
			log.Printf("Failed to archive capture: %v", err)
		} else {
			log.Printf("Capture archived to %s", path)
		}
	}

	jobCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	text, err := recognize(jobCtx, img)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return Result{}, err
	}
	if text == "" {
		_ = opts.Target.OnFailure(ErrNoText)
		return Result{}, ErrNoText
	}

	raw, err := translate(jobCtx, text)
	if err != nil {
		_ = opts.Target.OnFailure(err)
		return Result{}, err
	}

	// Total by contract: garbage in, empty-but-valid record out.
	rec := validation.Normalize(raw)

	if err := opts.Target.OnSuccess(rec); err != nil {
		_ = opts.Target.OnFailure(err)
		return Result{}, err
	}

	return Result{Text: text, Record: rec}, nil
}

// PopupTarget shows the record in a popup and copies the translation to
// the clipboard. Delivery is best-effort on both channels; only a failure
// of both is an error.
type PopupTarget struct{}

func (PopupTarget) OnSuccess(rec validation.Translation) error {
	popupErr := popup.Show(rec)
	clipErr := clipboard.WriteTranslation(rec)
	if popupErr != nil && clipErr != nil {
		return fmt.Errorf("popup: %v; clipboard: %v", popupErr, clipErr)
	}
	if popupErr != nil {
		log.Printf("Popup delivery failed (clipboard ok): %v", popupErr)
	}
	if clipErr != nil {
		log.Printf("Clipboard delivery failed (popup ok): %v", clipErr)
	}
	return nil
}

func (PopupTarget) OnFailure(err error) error {
	log.Printf("Translation failed: %v", err)
	return nil
}

// StdoutTarget prints the rendered record, used by translate-once mode.
type StdoutTarget struct {
	Writer io.Writer
}

func (t StdoutTarget) OnSuccess(rec validation.Translation) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprint(w, RenderText(rec))
	return err
}

func (t StdoutTarget) OnFailure(err error) error {
	return nil
}

// RenderText formats a record for plain-text consumers.
func RenderText(rec validation.Translation) string {
	out := rec.Original + "\n\n" + rec.Translation + "\n"
	if rec.Grammar != "" {
		out += "\n" + rec.Grammar + "\n"
	}
	return out
}
