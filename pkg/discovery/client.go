// Package discovery asks the content model for a place matching a category.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"knowthepast/pkg/config"
	"knowthepast/pkg/llm"
	"knowthepast/pkg/llm/prompts"
	"knowthepast/pkg/model"
)

const opDiscover = "discover place"

// Discoverer produces a Place for a category.
type Discoverer interface {
	DiscoverPlace(ctx context.Context, category string) (model.Place, error)
}

// Client implements Discoverer on top of an llm.Provider.
type Client struct {
	llm        llm.Provider
	prompts    *prompts.Manager
	categories *config.CategoriesConfig
	timeout    time.Duration
	limit      int

	mu     sync.Mutex
	recent []string

	now func() time.Time
}

// NewClient creates a discovery client.
func NewClient(p llm.Provider, pm *prompts.Manager, cats *config.CategoriesConfig, timeout time.Duration, recentLimit int) *Client {
	if cats == nil {
		cats = config.DefaultCategories()
	}
	return &Client{
		llm:        p,
		prompts:    pm,
		categories: cats,
		timeout:    timeout,
		limit:      recentLimit,
		now:        time.Now,
	}
}

// DiscoverPlace returns a new Place whose Category equals category, or a *model.GenerationError.
func (c *Client) DiscoverPlace(ctx context.Context, category string) (model.Place, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return model.Place{}, &model.GenerationError{Op: opDiscover, Err: fmt.Errorf("%w: category", model.ErrMissingField)}
	}

	prompt, err := c.prompts.Render("discovery.tmpl", c.promptData(category))
	if err != nil {
		return model.Place{}, &model.GenerationError{Op: opDiscover, Err: fmt.Errorf("render prompt: %w", err)}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	var raw rawPlace
	if err := c.llm.GenerateJSON(ctx, "discovery", prompt, placeSchema, &raw); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(model.ErrTimeout, err)
		}
		return model.Place{}, &model.GenerationError{Op: opDiscover, Err: err}
	}

	place, err := raw.toPlace()
	if err != nil {
		return model.Place{}, &model.GenerationError{Op: opDiscover, Err: err}
	}

	place.Category = category
	place.ID = uuid.NewString()
	place.DiscoveredAt = c.now()
	c.remember(place.Name)

	slog.Info("Place discovered",
		"category", category,
		"name", place.Name,
		"type", place.LocationType,
		"duration", time.Since(start).Round(time.Millisecond))
	return place, nil
}

// Recent returns the names discovered so far, oldest first.
func (c *Client) Recent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.recent...)
}

func (c *Client) remember(name string) {
	if c.limit <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recent = append(c.recent, name)
	if len(c.recent) > c.limit {
		c.recent = c.recent[len(c.recent)-c.limit:]
	}
}

func (c *Client) avoidList() []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range append(append([]string(nil), c.categories.Avoid...), c.Recent()...) {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(name))
	}
	return out
}

func (c *Client) promptData(category string) map[string]any {
	cat, ok := c.categories.Lookup(category)
	if !ok {
		cat = model.Category{Key: strings.ToLower(category), Name: category}
	}

	icons := make([]string, len(model.Icons))
	for i, ic := range model.Icons {
		icons[i] = string(ic)
	}

	return map[string]any{
		"Category": cat,
		"Avoid":    c.avoidList(),
		"MinZoom":  model.MinZoom,
		"MaxZoom":  model.MaxZoom,
		"Icons":    icons,
	}
}

// rawPlace mirrors the response schema. Pointers distinguish omitted fields from zero values.
type rawPlace struct {
	Name              *string     `json:"name" validate:"required"`
	Description       *string     `json:"description" validate:"required"`
	Latitude          *float64    `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude         *float64    `json:"longitude" validate:"required,gte=-180,lte=180"`
	ZoomLevel         *float64    `json:"zoomLevel" validate:"required"`
	LocationType      *string     `json:"locationType" validate:"required"`
	PlaceID           *string     `json:"placeId" validate:"required"`
	Details           []rawDetail `json:"details" validate:"required"`
	Category          string      `json:"category"`
	HistoricalPeriod  string      `json:"historicalPeriod"`
	Country           string      `json:"country"`
	Significance      string      `json:"significance"`
	VisualImpact      string      `json:"visualImpact"`
	BestViewingTime   string      `json:"bestViewingTime"`
	HistoricalContext string      `json:"historicalContext"`
}

type rawDetail struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Icon  string `json:"icon"`
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", model.ErrMissingField, field)
}

func invalid(field string, v any) error {
	return fmt.Errorf("%w: %s=%v", model.ErrInvalidField, field, v)
}

func text(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// check runs the struct tags and maps the first failure onto the model's field errors.
func (r rawPlace) check() error {
	err := validate.Struct(r)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	if fe.Tag() == "required" {
		return missing(fe.Field())
	}
	return invalid(fe.Field(), fe.Value())
}

func (r rawPlace) toPlace() (model.Place, error) {
	if err := r.check(); err != nil {
		return model.Place{}, err
	}

	p := model.Place{
		Name:              text(r.Name),
		Description:       text(r.Description),
		HistoricalPeriod:  strings.TrimSpace(r.HistoricalPeriod),
		Country:           strings.TrimSpace(r.Country),
		Significance:      strings.TrimSpace(r.Significance),
		VisualImpact:      strings.TrimSpace(r.VisualImpact),
		BestViewingTime:   strings.TrimSpace(r.BestViewingTime),
		HistoricalContext: strings.TrimSpace(r.HistoricalContext),
	}

	// Blank after trimming counts as missing
	switch {
	case p.Name == "":
		return model.Place{}, missing("name")
	case p.Description == "":
		return model.Place{}, missing("description")
	}
	p.Latitude, p.Longitude = *r.Latitude, *r.Longitude

	if math.IsNaN(*r.ZoomLevel) {
		return model.Place{}, invalid("zoomLevel", *r.ZoomLevel)
	}
	raw := int(math.Round(*r.ZoomLevel))
	p.ZoomLevel = model.ClampZoom(raw)
	if p.ZoomLevel != raw {
		slog.Debug("Zoom level clamped", "place", p.Name, "from", raw, "to", p.ZoomLevel)
	}

	lt, ok := model.ParseLocationType(*r.LocationType)
	if !ok {
		return model.Place{}, invalid("locationType", *r.LocationType)
	}
	p.LocationType = lt
	p.PlaceID = strings.TrimSpace(*r.PlaceID)
	if p.LocationType == model.LocationArea && p.PlaceID == "" {
		slog.Warn("Area place without placeId, treating as point", "place", p.Name)
		p.LocationType = model.LocationPoint
	}

	for _, d := range r.Details {
		label, value := strings.TrimSpace(d.Label), strings.TrimSpace(d.Value)
		if label == "" || value == "" {
			continue
		}
		p.Details = append(p.Details, model.PlaceDetail{Label: label, Value: value, Icon: model.ParseIcon(d.Icon)})
	}
	if len(p.Details) < model.MinDetails {
		return model.Place{}, invalid("details", fmt.Sprintf("%d usable, need %d", len(p.Details), model.MinDetails))
	}
	if len(p.Details) > model.MaxDetails {
		p.Details = p.Details[:model.MaxDetails]
	}

	return p, nil
}
