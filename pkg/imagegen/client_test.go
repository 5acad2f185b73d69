package imagegen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"knowthepast/pkg/config"
	"knowthepast/pkg/llm"
	"knowthepast/pkg/model"
)

type fakeProvider struct {
	img     model.Image
	err     error
	delay   time.Duration
	prompts []string
}

func (f *fakeProvider) GenerateJSON(ctx context.Context, name, prompt string, schema *llm.Schema, target any) error {
	return errors.New("not used")
}

func (f *fakeProvider) GenerateImage(ctx context.Context, name, prompt string) (model.Image, error) {
	f.prompts = append(f.prompts, prompt)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return model.Image{}, ctx.Err()
		}
	}
	return f.img, f.err
}

func (f *fakeProvider) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeProvider) HasProfile(name string) bool           { return false }

func pngBytes(w, h int) []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)))
	return buf.Bytes()
}

func newClient(p llm.Provider, timeout time.Duration) *Client {
	return NewClient(p, config.ImagesConfig{
		Timeout:     config.Duration(timeout),
		StyleSuffix: "photorealistic",
		MaxWidth:    1280,
		MaxHeight:   720,
	})
}

func TestRenderImage(t *testing.T) {
	tests := []struct {
		name    string
		fake    *fakeProvider
		timeout time.Duration
		prompt  string
		wantErr error
	}{
		{
			name:   "Success",
			fake:   &fakeProvider{img: model.Image{Data: pngBytes(64, 32), MIMEType: "image/png"}},
			prompt: "A stone bridge at dawn.",
		},
		{
			name:    "No image part",
			fake:    &fakeProvider{err: model.ErrNoImage},
			prompt:  "A stone bridge",
			wantErr: model.ErrNoImage,
		},
		{
			name:    "Empty payload",
			fake:    &fakeProvider{img: model.Image{MIMEType: "image/png"}},
			prompt:  "A stone bridge",
			wantErr: model.ErrNoImage,
		},
		{
			name:    "Timeout",
			fake:    &fakeProvider{delay: time.Second},
			timeout: 10 * time.Millisecond,
			prompt:  "A stone bridge",
			wantErr: model.ErrTimeout,
		},
		{
			name:    "Empty prompt",
			fake:    &fakeProvider{},
			prompt:  "  ",
			wantErr: model.ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(tt.fake, tt.timeout)
			img, err := c.RenderImage(context.Background(), tt.prompt)

			if tt.wantErr != nil {
				var renderErr *model.RenderError
				assert.True(t, errors.As(err, &renderErr), "expected RenderError, got %v", err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, "image/jpeg", img.MIMEType)
			assert.NotEmpty(t, img.Data)
			assert.Equal(t, []string{"A stone bridge at dawn. photorealistic"}, tt.fake.prompts)
		})
	}
}

func TestRenderImage_NoRetry(t *testing.T) {
	fake := &fakeProvider{err: errors.New("upstream 500")}
	_, err := newClient(fake, 0).RenderImage(context.Background(), "x")
	assert.Error(t, err)
	assert.Len(t, fake.prompts, 1)
}

func TestDecorate_NoSuffix(t *testing.T) {
	c := NewClient(&fakeProvider{}, config.ImagesConfig{})
	assert.Equal(t, "A quiet harbour", c.decorate("  A quiet harbour "))
}
