package session

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"subtitle-translator-llm/src/screenshot"
	"subtitle-translator-llm/src/validation"
)

type recordingTarget struct {
	record   *validation.Translation
	failures []error
}

func (t *recordingTarget) OnSuccess(rec validation.Translation) error {
	t.record = &rec
	return nil
}

func (t *recordingTarget) OnFailure(err error) error {
	t.failures = append(t.failures, err)
	return nil
}

type fakeStore struct {
	saved int
	err   error
}

func (s *fakeStore) Save(img image.Image) (string, error) {
	s.saved++
	return "capturas_subtitulos/sub_test.png", s.err
}

func stubCapture(region screenshot.Region) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 10, 10)), nil
}

func stubRecognize(text string, err error) RecognizeFunc {
	return func(ctx context.Context, img image.Image) (string, error) {
		return text, err
	}
}

func stubTranslate(raw string, err error) TranslateFunc {
	return func(ctx context.Context, text string) (string, error) {
		return raw, err
	}
}

func TestExecuteFullPipeline(t *testing.T) {
	target := &recordingTarget{}
	store := &fakeStore{}

	result, err := Execute(context.Background(), Options{
		Region:    screenshot.Region{X: 0, Y: 0, Width: 10, Height: 10},
		Capture:   stubCapture,
		Recognize: stubRecognize("Andiamo a casa", nil),
		Translate: stubTranslate(`{"original": "Andiamo a casa", "translation": "Vamos a casa", "grammar": [{"word": "andiamo", "explanation": "vamos", "function": "verbo"}]}`, nil),
		Store:     store,
		Target:    target,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if result.Text != "Andiamo a casa" {
		t.Errorf("Unexpected OCR text: %q", result.Text)
	}
	if target.record == nil {
		t.Fatal("Target never received a record")
	}
	if target.record.Translation != "Vamos a casa" {
		t.Errorf("Unexpected translation: %q", target.record.Translation)
	}
	if target.record.Grammar != "- andiamo: vamos (verbo)" {
		t.Errorf("Unexpected grammar text: %q", target.record.Grammar)
	}
	if store.saved != 1 {
		t.Errorf("Expected frame archived once, got %d", store.saved)
	}
}

func TestExecuteMalformedCompletionStillDelivers(t *testing.T) {
	target := &recordingTarget{}

	_, err := Execute(context.Background(), Options{
		Capture:   stubCapture,
		Recognize: stubRecognize("Ciao", nil),
		Translate: stubTranslate("the model rambled instead of returning JSON", nil),
		Target:    target,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if target.record == nil {
		t.Fatal("Target should receive an (empty) record for malformed completions")
	}
	if target.record.Original != "" || len(target.record.GrammarJSON) != 0 {
		t.Errorf("Expected defaults, got %+v", target.record)
	}
}

func TestExecuteNoTextDetected(t *testing.T) {
	target := &recordingTarget{}

	_, err := Execute(context.Background(), Options{
		Capture:   stubCapture,
		Recognize: stubRecognize("", nil),
		Translate: stubTranslate("", nil),
		Target:    target,
	})
	if !errors.Is(err, ErrNoText) {
		t.Errorf("Expected ErrNoText, got %v", err)
	}
	if len(target.failures) != 1 {
		t.Errorf("Expected failure reported to target, got %v", target.failures)
	}
}

func TestExecuteCaptureFailure(t *testing.T) {
	target := &recordingTarget{}
	captureErr := errors.New("capture exploded")

	_, err := Execute(context.Background(), Options{
		Capture: func(region screenshot.Region) (*image.RGBA, error) {
			return nil, captureErr
		},
		Recognize: stubRecognize("x", nil),
		Translate: stubTranslate("{}", nil),
		Target:    target,
	})
	if !errors.Is(err, captureErr) {
		t.Errorf("Expected capture error surfaced, got %v", err)
	}
	if target.record != nil {
		t.Error("Target must not receive a record on capture failure")
	}
}

func TestExecuteStoreFailureIsNotFatal(t *testing.T) {
	target := &recordingTarget{}
	store := &fakeStore{err: errors.New("disk full")}

	_, err := Execute(context.Background(), Options{
		Capture:   stubCapture,
		Recognize: stubRecognize("Ciao", nil),
		Translate: stubTranslate(`{"original":"Ciao","translation":"Hola","grammar":[]}`, nil),
		Store:     store,
		Target:    target,
	})
	if err != nil {
		t.Fatalf("Archive failure must not abort the pipeline: %v", err)
	}
	if target.record == nil {
		t.Fatal("Target never received a record")
	}
}

func TestExecuteRequiresTarget(t *testing.T) {
	if _, err := Execute(context.Background(), Options{}); err == nil {
		t.Error("Expected error without a target")
	}
}

func TestRenderText(t *testing.T) {
	rec := validation.Normalize(`{"original":"Ciao","translation":"Hola","grammar":[{"word":"ciao","explanation":"hola"}]}`)

	out := RenderText(rec)
	if !strings.Contains(out, "Ciao") || !strings.Contains(out, "Hola") {
		t.Errorf("Rendered text missing fields: %q", out)
	}
	if !strings.Contains(out, "- ciao: hola") {
		t.Errorf("Rendered text missing grammar list: %q", out)
	}
}
