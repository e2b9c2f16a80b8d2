// subtitle-popup renders one normalized translation record, fed as JSON on
// stdin, and exits when dismissed or after -timeout seconds. Running the
// GUI in its own process keeps the fyne main loop away from the resident
// hotkey/event loop.
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"subtitle-translator-llm/src/validation"
)

func main() {
	timeoutSec := flag.Int("timeout", 25, "seconds before the popup closes itself (0 = stay open)")
	flag.Parse()

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Printf("Failed to read record from stdin: %v", err)
	}
	// Normalize tolerates anything, so a broken pipe still shows a window
	// instead of dying silently.
	rec := validation.Normalize(raw)

	a := app.New()
	w := a.NewWindow("Traducción")
	w.SetContent(buildContent(rec, w))
	w.Resize(fyne.NewSize(560, 440))
	w.CenterOnScreen()

	if *timeoutSec > 0 {
		go func() {
			time.Sleep(time.Duration(*timeoutSec) * time.Second)
			fyne.Do(func() { a.Quit() })
		}()
	}

	w.ShowAndRun()
}

func buildContent(rec validation.Translation, w fyne.Window) fyne.CanvasObject {
	originalText := rec.Original
	if originalText == "" {
		originalText = "(sin texto original)"
	}
	original := widget.NewLabelWithStyle(originalText, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	original.Wrapping = fyne.TextWrapWord

	translationText := rec.Translation
	if translationText == "" {
		translationText = "(sin traducción)"
	}
	translation := widget.NewLabel(translationText)
	translation.Wrapping = fyne.TextWrapWord

	grammar := container.NewVBox()
	switch {
	case len(rec.GrammarJSON) > 0:
		for _, item := range rec.GrammarJSON {
			grammar.Add(grammarCard(item))
		}
	case rec.Grammar != "":
		// Fallback bullet-list rendering when no structured cards exist.
		fallback := widget.NewLabel(rec.Grammar)
		fallback.Wrapping = fyne.TextWrapWord
		grammar.Add(fallback)
	default:
		grammar.Add(widget.NewLabel("Sin notas de gramática."))
	}

	closeButton := widget.NewButton("Cerrar", func() { w.Close() })

	header := container.NewVBox(
		original,
		widget.NewSeparator(),
		translation,
		widget.NewSeparator(),
	)

	return container.NewBorder(header, closeButton, nil, nil, container.NewVScroll(grammar))
}

func grammarCard(item validation.GrammarItem) fyne.CanvasObject {
	explanation := widget.NewLabel(item.Explanation)
	explanation.Wrapping = fyne.TextWrapWord

	body := container.NewVBox(explanation)
	if item.AdditionalInfo != "" {
		info := widget.NewLabel(item.AdditionalInfo)
		info.Wrapping = fyne.TextWrapWord
		body.Add(info)
	}
	if item.Examples != "" {
		examples := widget.NewLabelWithStyle(item.Examples, fyne.TextAlignLeading, fyne.TextStyle{Italic: true})
		examples.Wrapping = fyne.TextWrapWord
		body.Add(examples)
	}

	subtitle := item.Function
	if item.Difficulty != "" {
		if subtitle != "" {
			subtitle += " · "
		}
		subtitle += item.Difficulty
	}

	return widget.NewCard(item.Word, subtitle, body)
}
