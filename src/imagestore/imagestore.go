// Package imagestore archives captured subtitle frames for later review.
package imagestore

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Store writes timestamped PNGs into a capture directory.
type Store struct {
	Dir string
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func New(dir string) *Store {
	return &Store{Dir: dir}
}

// Save writes the image as <dir>/sub_YYYYMMDD_HHMMSS.png, creating the
// directory if needed. Clashing timestamps get a numeric suffix.
func (s *Store) Save(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nil image")
	}
	dir := s.Dir
	if dir == "" {
		dir = "capturas_subtitulos"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create capture dir: %w", err)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	stamp := now().Format("20060102_150405")

	path := filepath.Join(dir, fmt.Sprintf("sub_%s.png", stamp))
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(dir, fmt.Sprintf("sub_%s_%d.png", stamp, n))
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create capture file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("failed to encode capture: %w", err)
	}
	return path, nil
}
