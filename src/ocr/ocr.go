// Package ocr extracts subtitle text from captured screen regions.
// Two engines are supported: local tesseract (default) and a remote
// vision model through the llm package.
package ocr

import (
	"context"
	"fmt"
	"image"
	"log"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"subtitle-translator-llm/src/config"
	"subtitle-translator-llm/src/llm"
	"subtitle-translator-llm/src/screenshot"
)

// Engine turns PNG image bytes into plain text.
type Engine interface {
	Recognize(ctx context.Context, png []byte) (string, error)
	Name() string
}

var (
	engine    Engine
	threshold = 200
)

// Init selects the OCR engine from config.
func Init(cfg *config.Config) {
	threshold = cfg.ImageThreshold
	switch cfg.OCREngine {
	case config.EngineVision:
		engine = VisionEngine{}
	default:
		engine = TesseractEngine{Language: cfg.OCRLanguage}
	}
	log.Printf("OCR engine: %s", engine.Name())
}

// Recognize captures the region, preprocesses it and runs the configured
// engine. An empty result is reported as an error.
func Recognize(ctx context.Context, region screenshot.Region) (string, error) {
	img, err := screenshot.CaptureRegion(region)
	if err != nil {
		return "", err
	}
	return RecognizeImage(ctx, img)
}

// RecognizeImage runs OCR on an already-captured image.
func RecognizeImage(ctx context.Context, img image.Image) (string, error) {
	if engine == nil {
		return "", fmt.Errorf("OCR engine not initialized")
	}

	// Tesseract benefits from binarization; vision models want the
	// original pixels.
	input := img
	if _, ok := engine.(TesseractEngine); ok {
		input = Binarize(img, threshold)
	}

	data, err := screenshot.EncodePNG(input)
	if err != nil {
		return "", err
	}

	text, err := engine.Recognize(ctx, data)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("no text detected in image")
	}
	return text, nil
}

// TesseractEngine runs a local tesseract process via gosseract.
type TesseractEngine struct {
	Language string
}

func (e TesseractEngine) Name() string { return config.EngineTesseract }

func (e TesseractEngine) Recognize(ctx context.Context, png []byte) (string, error) {
	client := gosseract.NewClient()

	lang := e.Language
	if lang == "" {
		lang = "ita"
	}
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return "", fmt.Errorf("failed to set OCR language %q: %w", lang, err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		client.Close()
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	// gosseract has no context support; honor cancellation around the call.
	// The client is closed by the goroutine so a timed-out recognition can
	// finish in the background without touching freed state.
	type outcome struct {
		text string
		err  error
	}
	resCh := make(chan outcome, 1)
	go func() {
		defer client.Close()
		text, err := client.Text()
		resCh <- outcome{text: text, err: err}
	}()

	select {
	case r := <-resCh:
		if r.err != nil {
			return "", fmt.Errorf("tesseract failed: %w", r.err)
		}
		return r.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// VisionEngine delegates OCR to the configured vision model.
type VisionEngine struct{}

func (VisionEngine) Name() string { return config.EngineVision }

func (VisionEngine) Recognize(ctx context.Context, png []byte) (string, error) {
	return llm.QueryVision(ctx, png)
}
