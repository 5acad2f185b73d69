// Package imagegen renders slide images through the configured image model.
package imagegen

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"knowthepast/pkg/config"
	"knowthepast/pkg/imagegen/imageutil"
	"knowthepast/pkg/llm"
	"knowthepast/pkg/model"
)

// Renderer produces one image for a text prompt.
type Renderer interface {
	RenderImage(ctx context.Context, prompt string) (model.Image, error)
}

// Client renders images via an llm.Provider. It never retries.
type Client struct {
	llm         llm.Provider
	timeout     time.Duration
	styleSuffix string
	maxW, maxH  int
}

// NewClient creates an image client from the images config section.
func NewClient(p llm.Provider, cfg config.ImagesConfig) *Client {
	return &Client{
		llm:         p,
		timeout:     cfg.Timeout.Std(),
		styleSuffix: strings.TrimSpace(cfg.StyleSuffix),
		maxW:        cfg.MaxWidth,
		maxH:        cfg.MaxHeight,
	}
}

// RenderImage returns a normalised image for prompt or a *model.RenderError.
func (c *Client) RenderImage(ctx context.Context, prompt string) (model.Image, error) {
	if strings.TrimSpace(prompt) == "" {
		return model.Image{}, &model.RenderError{Prompt: prompt, Err: model.ErrMissingField}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	img, err := c.llm.GenerateImage(ctx, "image", c.decorate(prompt))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(model.ErrTimeout, err)
		}
		return model.Image{}, &model.RenderError{Prompt: prompt, Err: err}
	}
	if img.Empty() {
		return model.Image{}, &model.RenderError{Prompt: prompt, Err: model.ErrNoImage}
	}

	out := imageutil.Normalize(img, c.maxW, c.maxH)
	slog.Debug("Image rendered",
		"prompt", llm.Truncate(prompt, 60),
		"bytes", len(out.Data),
		"duration", time.Since(start).Round(time.Millisecond))
	return out, nil
}

func (c *Client) decorate(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if c.styleSuffix == "" {
		return prompt
	}
	return strings.TrimRight(prompt, ". ") + ". " + c.styleSuffix
}
