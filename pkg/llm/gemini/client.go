package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"knowthepast/pkg/config"
	"knowthepast/pkg/llm"
	"knowthepast/pkg/model"
	"knowthepast/pkg/tracker"
)

const providerName = "gemini"

// Client implements llm.Provider for Google Gemini.
type Client struct {
	genaiClient *genai.Client
	apiKey      string
	modelName   string
	imageModel  string
	profiles    map[string]string // Map intent -> modelName
	temperature float32
	tracker     *tracker.Tracker
	logPath     string
	baseURL     string // overrides the API endpoint; empty uses the SDK default

	mu sync.RWMutex
}

// NewClient creates a new Gemini client.
func NewClient(cfg config.LLMConfig, logPath string, t *tracker.Tracker) (*Client, error) {
	c := &Client{tracker: t, logPath: logPath}
	if err := c.Configure(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Configure updates the client with new settings.
func (c *Client) Configure(cfg config.LLMConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.apiKey = cfg.Key
	c.modelName = cfg.Model
	c.imageModel = cfg.ImageModel
	c.profiles = cfg.Profiles
	c.temperature = cfg.Temperature

	if c.modelName == "" {
		c.modelName = "gemini-2.5-flash"
	}
	if c.imageModel == "" {
		c.imageModel = "gemini-2.5-flash-image"
	}

	if c.apiKey == "" {
		c.genaiClient = nil
		return nil
	}

	cc := &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return fmt.Errorf("failed to create genai client: %w", err)
	}
	c.genaiClient = client

	// Startup proceeds on validation failure; generation calls surface real errors.
	if os.Getenv("TEST_MODE") != "true" {
		vctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.validateModel(vctx); err != nil {
			slog.Warn("Gemini model validation failed (proceeding anyway)", "error", err)
		}
	}

	return nil
}

// Close cleans up resources.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genaiClient = nil
}

// HasProfile checks if the client has a specific profile configured.
func (c *Client) HasProfile(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.profiles[name]
	return ok
}

// HealthCheck verifies that the key is present and the configured model resolves.
func (c *Client) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	client := c.genaiClient
	name := c.modelName
	c.mu.RUnlock()

	if client == nil {
		return &model.ConfigurationError{Setting: "llm.key", Err: model.ErrMissingField}
	}
	if os.Getenv("TEST_MODE") == "true" {
		return nil
	}
	if _, err := client.Models.Get(ctx, qualify(name), nil); err != nil {
		return fmt.Errorf("gemini model %s unavailable: %w", name, err)
	}
	return nil
}

// GenerateJSON sends a prompt and unmarshals the response into the target struct.
func (c *Client) GenerateJSON(ctx context.Context, name, prompt string, schema *llm.Schema, target any) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	modelName, cfg := c.resolveModel(name)
	cfg.ResponseMIMEType = "application/json"
	cfg.ResponseSchema = toGenaiSchema(schema)

	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), cfg)
	if err != nil {
		c.logPrompt(name, prompt, fmt.Sprintf("ERROR: %v", err))
		c.trackFailure()
		return fmt.Errorf("generate json error: %w", err)
	}

	text, err := getResponseText(resp)
	if err != nil {
		c.logPrompt(name, prompt, fmt.Sprintf("TEXT_PARSE_ERROR: %v", err))
		c.trackFailure()
		return err
	}

	cleaned := llm.CleanJSONBlock(text)
	c.logPrompt(name, prompt, cleaned)

	if err := json.Unmarshal([]byte(cleaned), target); err != nil {
		c.trackFailure()
		return fmt.Errorf("failed to unmarshal JSON response: %w. Response: %s", err, llm.Truncate(cleaned, 200))
	}

	c.trackSuccess()
	return nil
}

// GenerateImage asks the image model for a picture and returns the first inline image part.
func (c *Client) GenerateImage(ctx context.Context, name, prompt string) (model.Image, error) {
	client, err := c.client()
	if err != nil {
		return model.Image{}, err
	}

	c.mu.RLock()
	modelName := c.imageModel
	if p, ok := c.profiles[name]; ok && p != "" {
		modelName = p
	}
	c.mu.RUnlock()

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), cfg)
	if err != nil {
		c.logPrompt(name, prompt, fmt.Sprintf("ERROR: %v", err))
		c.trackFailure()
		return model.Image{}, fmt.Errorf("generate image error: %w", err)
	}

	img, ok := firstInlineImage(resp)
	if !ok {
		c.logPrompt(name, prompt, "NO_IMAGE")
		if c.tracker != nil {
			c.tracker.TrackAPIZero(providerName)
		}
		return model.Image{}, model.ErrNoImage
	}

	c.logPrompt(name, prompt, fmt.Sprintf("IMAGE %s (%d bytes)", img.MIMEType, len(img.Data)))
	c.trackSuccess()
	return img, nil
}

func (c *Client) client() (*genai.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.genaiClient == nil {
		return nil, fmt.Errorf("gemini client not configured")
	}
	return c.genaiClient, nil
}

// resolveModel returns the target model name and configuration for the given intent.
func (c *Client) resolveModel(intent string) (string, *genai.GenerateContentConfig) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	target := c.modelName
	if p, ok := c.profiles[intent]; ok && p != "" {
		target = p
	}

	cfg := &genai.GenerateContentConfig{}
	if c.temperature > 0 {
		cfg.Temperature = genai.Ptr(c.temperature)
	}
	return target, cfg
}

func (c *Client) trackSuccess() {
	if c.tracker != nil {
		c.tracker.TrackAPISuccess(providerName)
	}
}

func (c *Client) trackFailure() {
	if c.tracker != nil {
		c.tracker.TrackAPIFailure(providerName)
	}
}

func (c *Client) logPrompt(name, prompt, response string) {
	if c.logPath == "" {
		return
	}

	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return
	}

	f, err := os.OpenFile(c.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	entry := fmt.Sprintf("[%s] PROMPT: %s\nPROMPT_TEXT:\n%s\n\nRESPONSE:\n%s\n%s\n",
		timestamp, name, prompt, llm.WordWrap(response, 80), strings.Repeat("-", 80))

	_, _ = f.WriteString(entry)
}

func getResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no candidates returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response text")
	}
	return sb.String(), nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) (model.Image, bool) {
	if resp == nil {
		return model.Image{}, false
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if !strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				continue
			}
			return model.Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}, true
		}
	}
	return model.Image{}, false
}

func qualify(name string) string {
	if strings.HasPrefix(name, "models/") {
		return name
	}
	return "models/" + name
}

// validateModel checks if the configured model is available for the API key.
func (c *Client) validateModel(ctx context.Context) error {
	_, err := c.genaiClient.Models.Get(ctx, qualify(c.modelName), nil)
	if err == nil {
		slog.Debug("Gemini model validation success", "model", c.modelName)
		return nil
	}

	slog.Warn("Gemini model validation failed, fetching available models...", "model", c.modelName, "error", err)

	page, listErr := c.genaiClient.Models.List(ctx, nil)
	if listErr != nil {
		slog.Warn("Failed to list models for recovery", "error", listErr)
		return nil
	}

	var available []string
	for {
		for _, m := range page.Items {
			if m != nil && strings.Contains(strings.ToLower(m.Name), "gemini") {
				available = append(available, m.Name)
			}
		}
		next, nextErr := page.Next(ctx)
		if errors.Is(nextErr, iterator.Done) {
			break
		}
		if nextErr != nil {
			slog.Warn("Failed to page model list", "error", nextErr)
			break
		}
		page = next
	}

	slog.Error("Configured model not found", "configured", c.modelName, "available", available)
	return nil
}
