// Package llm is the OpenRouter chat-completions client. It produces the
// raw completion strings that the validation package normalizes; it makes
// no attempt to parse or repair model output itself.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	APIKey              string
	Model               string
	Providers           []string
	ExplanationLanguage string
	MaxTokens           int
	Temperature         float64
	// Endpoint overrides the OpenRouter URL (tests).
	Endpoint string
}

var config *Config

func Init(cfg *Config) {
	config = cfg
}

// Ping verifies the client is initialized with the minimum viable config.
func Ping() error {
	if config == nil {
		return fmt.Errorf("LLM client not initialized")
	}
	if config.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if config.Model == "" {
		return fmt.Errorf("model is required")
	}
	return nil
}

// OpenRouter API structures
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ProviderPreferences struct {
	Order          []string `json:"order,omitempty"`
	Quantizations  []string `json:"quantizations,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
}

type ChatRequest struct {
	Model       string               `json:"model"`
	Messages    []Message            `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Provider    *ProviderPreferences `json:"provider,omitempty"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message ResponseMessage `json:"message"`
}

type ResponseMessage struct {
	Content string `json:"content"`
}

type APIError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"` // Can be string or number
}

const (
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	maxRetries    = 3
	initialDelay  = 1 * time.Second
)

// getProviderPreferences returns provider preferences based on config
func getProviderPreferences() *ProviderPreferences {
	if config == nil || len(config.Providers) == 0 {
		// No providers specified, use default OpenRouter routing
		return nil
	}

	// Use the providers exactly as specified by the user
	allowFallbacks := false
	return &ProviderPreferences{
		Order:          config.Providers,
		AllowFallbacks: &allowFallbacks,
	}
}

func targetLanguage() string {
	lang := "spanish"
	if config != nil && strings.TrimSpace(config.ExplanationLanguage) != "" {
		lang = strings.ToLower(strings.TrimSpace(config.ExplanationLanguage))
	}
	if lang == "spanish" {
		return "español"
	}
	return lang
}

// translationSystemPrompt instructs the model to act as an Italian teacher
// and answer with a single strict JSON object the normalizer understands.
func translationSystemPrompt() string {
	lang := targetLanguage()
	return "Eres un profesor de italiano para principiantes. Recibes frases en italiano " +
		"extraídas de subtítulos. Tu tarea es traducirlas y explicar su gramática en " + lang + ".\n" +
		"Responde ÚNICAMENTE con un objeto JSON, sin texto adicional y sin marcas markdown:\n" +
		"{\n" +
		"  \"original\": \"la frase italiana exactamente como fue recibida\",\n" +
		"  \"translation\": \"traducción clara y natural en " + lang + "\",\n" +
		"  \"grammar\": [\n" +
		"    {\"word\": \"palabra\", \"explanation\": \"significado en " + lang + "\", " +
		"\"function\": \"función gramatical (verbo, sustantivo, preposición...)\", " +
		"\"additional_info\": \"notas sobre contracciones o conjugaciones\", " +
		"\"examples\": \"un ejemplo breve\", \"difficulty\": \"básico|intermedio|avanzado\"}\n" +
		"  ]\n" +
		"}\n" +
		"Incluye una entrada de grammar por cada palabra importante. " +
		"Sé claro, paciente y directo. TODA LA EXPLICACIÓN DEBE SER EN " + strings.ToUpper(lang) + "."
}

// QueryTranslation sends OCR'd subtitle text for translation and grammar
// explanation. The returned string is the raw completion content; callers
// pass it through validation.Normalize.
func QueryTranslation(ctx context.Context, text string) (string, error) {
	if err := Ping(); err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text to translate")
	}

	request := ChatRequest{
		Model: config.Model,
		Messages: []Message{
			{
				Role:    "system",
				Content: []Content{{Type: "text", Text: translationSystemPrompt()}},
			},
			{
				Role:    "user",
				Content: []Content{{Type: "text", Text: "Texto a traducir: " + text}},
			},
		},
		Temperature: temperature(),
		MaxTokens:   maxTokens(),
		Provider:    getProviderPreferences(),
	}

	return queryWithRetry(ctx, request)
}

// QueryVision sends an image to a vision model for OCR. Used by the
// vision OCR engine as an alternative to local tesseract.
func QueryVision(ctx context.Context, imageData []byte) (string, error) {
	if err := Ping(); err != nil {
		return "", err
	}

	base64Image := base64.StdEncoding.EncodeToString(imageData)
	imageURL := fmt.Sprintf("data:image/png;base64,%s", base64Image)

	request := ChatRequest{
		Model: config.Model,
		Messages: []Message{
			{
				Role: "user",
				Content: []Content{
					{
						Type: "text",
						Text: "Perform OCR on this image. Return ONLY the raw extracted text with:\n" +
							"- No formatting\n" +
							"- No XML/HTML tags\n" +
							"- No markdown\n" +
							"- No explanations\n" +
							"- Preserve line breaks accurately from the visual layout.\n" +
							"If no text found, return 'NO_TEXT_FOUND'",
					},
					{
						Type: "image_url",
						ImageURL: &ImageURL{
							URL: imageURL,
						},
					},
				},
			},
		},
		Temperature: 0.1,
		MaxTokens:   2000,
		Provider:    getProviderPreferences(),
	}

	text, err := queryWithRetry(ctx, request)
	if err != nil {
		return "", err
	}
	if text == "" || text == "NO_TEXT_FOUND" {
		return "", fmt.Errorf("no text detected in image")
	}
	return cleanExtractedText(text), nil
}

// queryWithRetry runs the request with exponential backoff, honoring ctx
// between attempts.
func queryWithRetry(ctx context.Context, request ChatRequest) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(initialDelay) * (1.5 * float64(attempt)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		response, err := makeAPIRequest(ctx, request)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			continue
		}

		if len(response.Choices) == 0 {
			lastErr = fmt.Errorf("no choices in API response")
			continue
		}

		return strings.TrimSpace(response.Choices[0].Message.Content), nil
	}

	return "", fmt.Errorf("failed after %d attempts: %v", maxRetries, lastErr)
}

func endpoint() string {
	if config != nil && config.Endpoint != "" {
		return config.Endpoint
	}
	return openRouterURL
}

func maxTokens() int {
	if config != nil && config.MaxTokens > 0 {
		return config.MaxTokens
	}
	return 900
}

func temperature() float64 {
	if config != nil && config.Temperature > 0 {
		return config.Temperature
	}
	return 0.3
}

func makeAPIRequest(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint(), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", config.APIKey))
	req.Header.Set("X-Title", "Subtitle Translator")

	client := &http.Client{Timeout: 45 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %v", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s (type: %s, code: %v)", response.Error.Message, response.Error.Type, response.Error.Code)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	return &response, nil
}

func cleanExtractedText(text string) string {
	// Vision models occasionally echo image tags back
	if text == "</image>" {
		return ""
	}
	text = strings.TrimSuffix(text, "</image>")
	return strings.TrimSpace(text)
}
