package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIKeyPath = "/run/secrets/api_keys/openrouter"
	APIKeyPathEnvVar  = "OPENROUTER_API_KEY_FILE"

	EngineTesseract = "tesseract"
	EngineVision    = "vision"

	defaultRegion = "150,750,1520,330"
)

// Region is the fixed subtitle area captured on every trigger.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

type Config struct {
	APIKey              string
	APIKeyPath          string
	Model               string
	Providers           []string
	SubtitlesRegion     Region
	OCREngine           string
	OCRLanguage         string
	ExplanationLanguage string
	ImageThreshold      int
	MaxTokens           int
	Temperature         float64
	Hotkey              string
	CaptureIntervalSec  int
	TranslateDeadline   int
	SaveCaptures        bool
	CapturesDir         string
	PopupBinary         string
	PopupMinIntervalSec int
	PopupTimeoutSec     int
	EnableFileLogging   bool
}

// Load reads configuration from a .env file next to the executable (or the
// path in SUBTITLE_TRANSLATOR_ENV) merged with process environment variables.
func Load() (*Config, error) {
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	region, err := parseRegion(getEnvWithDefault("SUBTITLES_REGION", defaultRegion))
	if err != nil {
		return nil, fmt.Errorf("invalid SUBTITLES_REGION: %w", err)
	}

	var providers []string
	if providersStr := os.Getenv("PROVIDERS"); providersStr != "" {
		for _, provider := range strings.Split(providersStr, ",") {
			if trimmed := strings.TrimSpace(provider); trimmed != "" {
				providers = append(providers, trimmed)
			}
		}
	}

	apiKeyPath := resolveAPIKeyPath(dotenvValues)

	cfg := &Config{
		APIKey:              resolveAPIKey(apiKeyPath),
		APIKeyPath:          apiKeyPath,
		Model:               os.Getenv("MODEL"),
		Providers:           providers,
		SubtitlesRegion:     region,
		OCREngine:           resolveEngine(os.Getenv("OCR_ENGINE")),
		OCRLanguage:         getEnvWithDefault("OCR_LANGUAGE", "ita"),
		ExplanationLanguage: getEnvWithDefault("EXPLANATION_LANGUAGE", "spanish"),
		ImageThreshold:      envInt("IMAGE_THRESHOLD", 200, 0, 255),
		MaxTokens:           envInt("MAX_TOKENS", 900, 1, 1<<20),
		Temperature:         envFloat("TEMPERATURE", 0.3),
		Hotkey:              getEnvWithDefault("HOTKEY", "Ctrl+Alt+T"),
		CaptureIntervalSec:  envInt("CAPTURE_INTERVAL_SEC", 0, 0, 86400),
		TranslateDeadline:   envInt("TRANSLATE_DEADLINE_SEC", 45, 1, 600),
		SaveCaptures:        strings.ToLower(getEnvWithDefault("SAVE_CAPTURES", "true")) == "true",
		CapturesDir:         getEnvWithDefault("CAPTURES_DIR", "capturas_subtitulos"),
		PopupBinary:         resolvePopupBinary(),
		PopupMinIntervalSec: envInt("POPUP_MIN_INTERVAL_SEC", 2, 0, 3600),
		PopupTimeoutSec:     envInt("POPUP_TIMEOUT_SEC", 25, 1, 3600),
		EnableFileLogging:   strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
	}

	return cfg, nil
}

// parseRegion parses "x,y,w,h". Width and height must be positive.
func parseRegion(s string) (Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Region{}, fmt.Errorf("expected x,y,w,h, got %q", s)
	}
	vals := make([]int, 4)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Region{}, fmt.Errorf("component %d of %q: %w", i, s, err)
		}
		if n < 0 {
			return Region{}, fmt.Errorf("component %d of %q is negative", i, s)
		}
		vals[i] = n
	}
	if vals[2] == 0 || vals[3] == 0 {
		return Region{}, fmt.Errorf("region %q has zero width or height", s)
	}
	return Region{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

func resolveEngine(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case EngineVision:
		return EngineVision
	default:
		return EngineTesseract
	}
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv("SUBTITLE_TRANSLATOR_ENV"); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	return keyPath
}

func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return os.Getenv("OPENROUTER_API_KEY")
}

// resolvePopupBinary prefers POPUP_BINARY, falling back to a subtitle-popup
// binary sitting next to the main executable.
func resolvePopupBinary() string {
	if v := strings.TrimSpace(os.Getenv("POPUP_BINARY")); v != "" {
		return v
	}
	execPath, err := os.Executable()
	if err != nil {
		return "subtitle-popup"
	}
	name := "subtitle-popup"
	if strings.HasSuffix(strings.ToLower(execPath), ".exe") {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(execPath), name)
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, def, min, max int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < min || n > max {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}
