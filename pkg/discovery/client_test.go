package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowthepast/pkg/config"
	"knowthepast/pkg/llm"
	"knowthepast/pkg/llm/prompts"
	"knowthepast/pkg/model"
)

// scriptedLLM answers GenerateJSON with canned JSON bodies in order.
type scriptedLLM struct {
	responses []string
	err       error
	delay     time.Duration
	prompts   []string
	schemas   []*llm.Schema
}

func (s *scriptedLLM) GenerateJSON(ctx context.Context, name, prompt string, schema *llm.Schema, target any) error {
	s.prompts = append(s.prompts, prompt)
	s.schemas = append(s.schemas, schema)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return fmt.Errorf("generate json error: %w", ctx.Err())
		}
	}
	if s.err != nil {
		return s.err
	}
	body := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	if err := json.Unmarshal([]byte(body), target); err != nil {
		return fmt.Errorf("failed to unmarshal JSON response: %w", err)
	}
	return nil
}

func (s *scriptedLLM) GenerateImage(ctx context.Context, name, prompt string) (model.Image, error) {
	return model.Image{}, errors.New("not used")
}
func (s *scriptedLLM) HealthCheck(ctx context.Context) error { return nil }
func (s *scriptedLLM) HasProfile(name string) bool           { return true }

func placeJSON(mutate func(m map[string]any)) string {
	m := map[string]any{
		"name":         "Ani",
		"description":  "A ruined medieval city on the Armenian border.",
		"latitude":     40.5072,
		"longitude":    43.5725,
		"zoomLevel":    17,
		"locationType": "point",
		"placeId":      "",
		"category":     "time",
		"details": []map[string]string{
			{"label": "Founded", "value": "5th century", "icon": "calendar"},
			{"label": "Style", "value": "Armenian", "icon": "architecture"},
		},
		"country": "Turkey",
	}
	if mutate != nil {
		mutate(m)
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func newTestClient(t *testing.T, l llm.Provider) *Client {
	t.Helper()
	pm, err := prompts.Default()
	require.NoError(t, err)
	return NewClient(l, pm, config.DefaultCategories(), time.Second, 3)
}

func TestDiscoverPlace_CategoryAlwaysCallers(t *testing.T) {
	for _, cat := range []string{"ancient", "nature", "growth", "time", "volcanoes"} {
		t.Run(cat, func(t *testing.T) {
			c := newTestClient(t, &scriptedLLM{responses: []string{placeJSON(nil)}})
			p, err := c.DiscoverPlace(context.Background(), cat)
			require.NoError(t, err)
			assert.Equal(t, cat, p.Category)
			assert.NotEmpty(t, p.ID)
			assert.False(t, p.DiscoveredAt.IsZero())
		})
	}
}

func TestDiscoverPlace_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m map[string]any)
		wantErr error
		check   func(t *testing.T, p model.Place)
	}{
		{
			name:  "Valid point",
			check: func(t *testing.T, p model.Place) { assert.Equal(t, model.LocationPoint, p.LocationType) },
		},
		{
			name:    "Missing name",
			mutate:  func(m map[string]any) { delete(m, "name") },
			wantErr: model.ErrMissingField,
		},
		{
			name:    "Blank description",
			mutate:  func(m map[string]any) { m["description"] = "  " },
			wantErr: model.ErrMissingField,
		},
		{
			name:    "Missing latitude",
			mutate:  func(m map[string]any) { delete(m, "latitude") },
			wantErr: model.ErrMissingField,
		},
		{
			name:    "Missing placeId",
			mutate:  func(m map[string]any) { delete(m, "placeId") },
			wantErr: model.ErrMissingField,
		},
		{
			name:    "Missing details",
			mutate:  func(m map[string]any) { delete(m, "details") },
			wantErr: model.ErrMissingField,
		},
		{
			name:    "Out of range latitude",
			mutate:  func(m map[string]any) { m["latitude"] = 123.0 },
			wantErr: model.ErrInvalidField,
		},
		{
			name:    "Unknown location type",
			mutate:  func(m map[string]any) { m["locationType"] = "region" },
			wantErr: model.ErrInvalidField,
		},
		{
			name: "Too few details",
			mutate: func(m map[string]any) {
				m["details"] = []map[string]string{{"label": "Only", "value": "one", "icon": "globe"}}
			},
			wantErr: model.ErrInvalidField,
		},
		{
			name: "Too many details truncated, unknown icon defaulted",
			mutate: func(m map[string]any) {
				m["details"] = []map[string]string{
					{"label": "A", "value": "1", "icon": "castle"},
					{"label": "B", "value": "2", "icon": "GLOBE"},
					{"label": "C", "value": "3", "icon": "time"},
					{"label": "D", "value": "4", "icon": "growth"},
					{"label": "E", "value": "5", "icon": "geology"},
				}
			},
			check: func(t *testing.T, p model.Place) {
				require.Len(t, p.Details, model.MaxDetails)
				assert.Equal(t, model.IconSparkles, p.Details[0].Icon)
				assert.Equal(t, model.IconGlobe, p.Details[1].Icon)
				assert.Equal(t, "D", p.Details[3].Label)
			},
		},
		{
			name:   "Zoom clamped high",
			mutate: func(m map[string]any) { m["zoomLevel"] = 30 },
			check:  func(t *testing.T, p model.Place) { assert.Equal(t, model.MaxZoom, p.ZoomLevel) },
		},
		{
			name:   "Zoom clamped low",
			mutate: func(m map[string]any) { m["zoomLevel"] = 3 },
			check:  func(t *testing.T, p model.Place) { assert.Equal(t, model.MinZoom, p.ZoomLevel) },
		},
		{
			name: "Area keeps placeId",
			mutate: func(m map[string]any) {
				m["locationType"] = "AREA"
				m["placeId"] = "ChIJ123"
			},
			check: func(t *testing.T, p model.Place) {
				assert.Equal(t, model.LocationArea, p.LocationType)
				assert.Equal(t, "ChIJ123", p.PlaceID)
			},
		},
		{
			name:   "Area without placeId downgraded",
			mutate: func(m map[string]any) { m["locationType"] = "area" },
			check:  func(t *testing.T, p model.Place) { assert.Equal(t, model.LocationPoint, p.LocationType) },
		},
		{
			name: "Optional context trimmed and kept",
			mutate: func(m map[string]any) {
				m["visualImpact"] = "  Red sandstone walls at dusk "
				m["bestViewingTime"] = "Late afternoon in autumn"
				m["historicalContext"] = "Capital of the Bagratid kingdom."
			},
			check: func(t *testing.T, p model.Place) {
				assert.Equal(t, "Red sandstone walls at dusk", p.VisualImpact)
				assert.Equal(t, "Late afternoon in autumn", p.BestViewingTime)
				assert.Equal(t, "Capital of the Bagratid kingdom.", p.HistoricalContext)
				assert.Equal(t, "Turkey", p.Country)
			},
		},
		{
			name:  "Optional context may be absent",
			check: func(t *testing.T, p model.Place) { assert.Empty(t, p.VisualImpact) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &scriptedLLM{responses: []string{placeJSON(tt.mutate)}})
			p, err := c.DiscoverPlace(context.Background(), "nature")

			if tt.wantErr != nil {
				var genErr *model.GenerationError
				require.True(t, errors.As(err, &genErr), "expected GenerationError, got %v", err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "nature", p.Category)
			if tt.check != nil {
				tt.check(t, p)
			}
		})
	}
}

func TestDiscoverPlace_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		fake    *scriptedLLM
		wantErr error
	}{
		{"Upstream error", &scriptedLLM{err: errors.New("503 unavailable")}, nil},
		{"Unparsable JSON", &scriptedLLM{responses: []string{`{"name": 12`}}, nil},
		{"Mistyped field", &scriptedLLM{responses: []string{`{"name": "x", "latitude": "north"}`}}, nil},
		{"Timeout", &scriptedLLM{delay: time.Second, responses: []string{placeJSON(nil)}}, model.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, err := prompts.Default()
			require.NoError(t, err)
			c := NewClient(tt.fake, pm, config.DefaultCategories(), 20*time.Millisecond, 3)

			_, err = c.DiscoverPlace(context.Background(), "ancient")
			var genErr *model.GenerationError
			require.True(t, errors.As(err, &genErr), "expected GenerationError, got %v", err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, c.Recent(), "failed discoveries must not be remembered")
		})
	}
}

func TestDiscoverPlace_AvoidList(t *testing.T) {
	names := []string{"Ani", "Hegra", "Ani", "Sigiriya", "Nan Madol"}
	var responses []string
	for _, n := range names {
		responses = append(responses, placeJSON(func(m map[string]any) { m["name"] = n }))
	}
	fake := &scriptedLLM{responses: responses}
	c := newTestClient(t, fake)

	for range names {
		_, err := c.DiscoverPlace(context.Background(), "ancient")
		require.NoError(t, err)
	}

	// The limit is 3, so the oldest entries have been dropped
	assert.Equal(t, []string{"Ani", "Sigiriya", "Nan Madol"}, c.Recent())

	second := fake.prompts[1]
	assert.Contains(t, second, "Machu Picchu")
	assert.Contains(t, second, "Ani")

	// Fourth call sees [Ani Hegra Ani]
	fourth := fake.prompts[3]
	assert.Equal(t, 1, strings.Count(fourth, "Ani"), "duplicates should be collapsed in the avoid list")
	assert.Contains(t, fourth, "Hegra")
}

func TestDiscoverPlace_PromptAndSchema(t *testing.T) {
	fake := &scriptedLLM{responses: []string{placeJSON(nil)}}
	c := newTestClient(t, fake)

	_, err := c.DiscoverPlace(context.Background(), "volcanoes")
	require.NoError(t, err)

	prompt := fake.prompts[0]
	assert.Contains(t, prompt, "volcanoes")
	assert.Contains(t, prompt, "rich history", "unknown categories use the generic guidance")

	schema := fake.schemas[0]
	assert.ElementsMatch(t,
		[]string{"name", "description", "latitude", "longitude", "zoomLevel", "locationType", "placeId", "details"},
		schema.Required)
	assert.Equal(t, model.MinDetails, schema.Properties["details"].MinItems)
	assert.Equal(t, model.MaxDetails, schema.Properties["details"].MaxItems)
	for _, optional := range []string{"visualImpact", "bestViewingTime", "historicalContext"} {
		assert.Contains(t, schema.Properties, optional)
		assert.NotContains(t, schema.Required, optional)
	}
}

func TestDiscoverPlace_EmptyCategory(t *testing.T) {
	fake := &scriptedLLM{responses: []string{placeJSON(nil)}}
	c := newTestClient(t, fake)
	_, err := c.DiscoverPlace(context.Background(), " ")
	assert.ErrorIs(t, err, model.ErrMissingField)
	assert.Empty(t, fake.prompts)
}
