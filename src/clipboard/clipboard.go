package clipboard

import (
	"sync"

	"golang.design/x/clipboard"

	"subtitle-translator-llm/src/validation"
)

var writeMu sync.Mutex

func Init() error {
	return clipboard.Init()
}

// Write performs a mutex-guarded clipboard write to prevent corruption
// under parallel writes.
func Write(text string) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// WriteTranslation copies the translation text, falling back to the
// original when the model produced no translation.
func WriteTranslation(rec validation.Translation) error {
	text := rec.Translation
	if text == "" {
		text = rec.Original
	}
	if text == "" {
		return nil
	}
	return Write(text)
}
