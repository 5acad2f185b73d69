// Package story builds and holds the visual story for the selected place.
package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"knowthepast/pkg/config"
	"knowthepast/pkg/imagecache"
	"knowthepast/pkg/imagegen"
	"knowthepast/pkg/llm"
	"knowthepast/pkg/llm/prompts"
	"knowthepast/pkg/model"
)

const opStory = "build story"

// Builder fetches slide lists and resolves slide images. It owns the image cache.
type Builder struct {
	llm        llm.Provider
	prompts    *prompts.Manager
	categories *config.CategoriesConfig
	renderer   imagegen.Renderer
	cache      *imagecache.Cache
	limiter    *rate.Limiter
	timeout    time.Duration
	workers    int

	mu       sync.RWMutex
	epoch    uint64
	place    *model.Place
	slides   []model.Slide
	statuses []model.ImageStatus
	index    int
	loading  bool
	errMsg   string
	cancel   context.CancelFunc
	onChange []func()

	wg sync.WaitGroup
}

// Options configures a Builder.
type Options struct {
	Timeout     time.Duration // slide-list call
	Concurrency int           // simultaneous image renders
	Interval    time.Duration // minimum spacing between image renders; 0 disables pacing
}

// NewBuilder creates a story builder. A nil cache gets a fresh one.
func NewBuilder(p llm.Provider, pm *prompts.Manager, cats *config.CategoriesConfig, r imagegen.Renderer, cache *imagecache.Cache, opts Options) *Builder {
	if cache == nil {
		cache = imagecache.New()
	}
	if cats == nil {
		cats = config.DefaultCategories()
	}
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	return &Builder{
		llm:        p,
		prompts:    pm,
		categories: cats,
		renderer:   r,
		cache:      cache,
		limiter:    rate.NewLimiter(limit, 1),
		timeout:    opts.Timeout,
		workers:    max(opts.Concurrency, 1),
	}
}

// OnChange registers fn to be called after every observable state change.
func (b *Builder) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = append(b.onChange, fn)
}

func (b *Builder) notify() {
	b.mu.RLock()
	fns := append([]func(){}, b.onChange...)
	b.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// BuildStory asks the content model for the slides of place.
// A well-formed response without usable slides yields an empty slice and no error.
func (b *Builder) BuildStory(ctx context.Context, place model.Place) ([]model.Slide, error) {
	prompt, err := b.prompts.Render("story.tmpl", b.promptData(place))
	if err != nil {
		return nil, &model.GenerationError{Op: opStory, Err: fmt.Errorf("render prompt: %w", err)}
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	var raw rawStory
	if err := b.llm.GenerateJSON(ctx, "story", prompt, storySchema, &raw); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = errors.Join(model.ErrTimeout, err)
		}
		return nil, &model.GenerationError{Op: opStory, Err: err}
	}
	if raw.Slides == nil {
		return nil, &model.GenerationError{Op: opStory, Err: fmt.Errorf("%w: slides", model.ErrMissingField)}
	}

	return normalizeSlides(place.Name, raw.Slides), nil
}

// Start discards any previous story and begins building one for place in the background.
// Slides, statuses, index and cache are reset together before anything else can observe them.
func (b *Builder) Start(ctx context.Context, place model.Place) uint64 {
	runCtx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.epoch++
	epoch := b.epoch
	p := place
	b.place = &p
	b.slides = nil
	b.statuses = nil
	b.index = 0
	b.loading = true
	b.errMsg = ""
	b.cancel = cancel
	b.cache.Clear()
	b.mu.Unlock()

	b.notify()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.run(runCtx, epoch, place)
	}()
	return epoch
}

func (b *Builder) run(ctx context.Context, epoch uint64, place model.Place) {
	slides, err := b.BuildStory(ctx, place)

	b.mu.Lock()
	if b.epoch != epoch {
		b.mu.Unlock()
		slog.Debug("Dropping stale story", "place", place.Name, "epoch", epoch)
		return
	}
	b.loading = false
	if err != nil {
		b.errMsg = "Failed to create the visual story. " + err.Error()
		b.mu.Unlock()
		slog.Error("Story generation failed", "place", place.Name, "error", err)
		b.notify()
		return
	}
	b.slides = slides
	b.statuses = make([]model.ImageStatus, len(slides))
	for i := range b.statuses {
		b.statuses[i] = model.ImageLoading
	}
	b.mu.Unlock()

	slog.Info("Story ready", "place", place.Name, "slides", len(slides))
	b.notify()

	b.resolveImages(ctx, epoch, slides)
}

// resolveImages renders every slide image; one slide's failure never affects the others.
func (b *Builder) resolveImages(ctx context.Context, epoch uint64, slides []model.Slide) {
	var g errgroup.Group
	g.SetLimit(b.workers)

	for i, s := range slides {
		g.Go(func() error {
			if _, ok := b.cache.Get(s.ImagePrompt); !ok {
				if err := b.limiter.Wait(ctx); err != nil {
					b.commit(epoch, i, err)
					return nil
				}
			}
			_, hit, err := b.cache.Resolve(ctx, s.ImagePrompt, b.renderer.RenderImage)
			if err != nil {
				slog.Warn("Slide image failed", "slide", i, "type", s.SlideType, "error", err)
			} else {
				slog.Debug("Slide image ready", "slide", i, "cached", hit)
			}
			b.commit(epoch, i, err)
			return nil
		})
	}
	_ = g.Wait()
}

// commit records one slide's image status if epoch is still current.
func (b *Builder) commit(epoch uint64, i int, err error) {
	b.mu.Lock()
	if b.epoch != epoch || i >= len(b.statuses) {
		b.mu.Unlock()
		return
	}
	if err != nil {
		b.statuses[i] = model.ImageError
	} else {
		b.statuses[i] = model.ImageLoaded
	}
	b.mu.Unlock()
	b.notify()
}

// Loading reports whether the slide-list fetch is in flight. Image resolution does not count.
func (b *Builder) Loading() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loading
}

// Next advances the current slide, wrapping to the first. No-op without slides.
func (b *Builder) Next() int {
	return b.step(1)
}

// Previous moves back one slide, wrapping to the last. No-op without slides.
func (b *Builder) Previous() int {
	return b.step(-1)
}

func (b *Builder) step(delta int) int {
	b.mu.Lock()
	n := len(b.slides)
	if n == 0 {
		b.mu.Unlock()
		return 0
	}
	b.index = ((b.index+delta)%n + n) % n
	idx := b.index
	b.mu.Unlock()
	b.notify()
	return idx
}

// Reset cancels in-flight work and clears the story and the image cache.
func (b *Builder) Reset() {
	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.epoch++
	b.place = nil
	b.slides = nil
	b.statuses = nil
	b.index = 0
	b.loading = false
	b.errMsg = ""
	b.cache.Clear()
	b.mu.Unlock()
	b.notify()
}

// Wait blocks until all background work started so far has finished.
func (b *Builder) Wait() {
	b.wg.Wait()
}

// PlaceID returns the id of the place the current story belongs to, or "".
func (b *Builder) PlaceID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.place == nil {
		return ""
	}
	return b.place.ID
}

// Image returns the rendered image of slide i once it has loaded.
func (b *Builder) Image(i int) (model.Image, model.ImageStatus, error) {
	b.mu.RLock()
	if i < 0 || i >= len(b.slides) {
		b.mu.RUnlock()
		return model.Image{}, "", fmt.Errorf("slide %d out of range", i)
	}
	prompt := b.slides[i].ImagePrompt
	status := b.statuses[i]
	b.mu.RUnlock()

	if status != model.ImageLoaded {
		return model.Image{}, status, nil
	}
	img, ok := b.cache.Get(prompt)
	if !ok {
		return model.Image{}, model.ImageLoading, nil
	}
	return img, status, nil
}

func (b *Builder) promptData(place model.Place) map[string]any {
	cat, ok := b.categories.Lookup(place.Category)
	if !ok {
		cat = model.Category{Key: strings.ToLower(place.Category), Name: place.Category}
	}
	types := make([]string, len(model.SlideTypes))
	for i, t := range model.SlideTypes {
		types[i] = string(t)
	}
	return map[string]any{
		"Place":      place,
		"Category":   cat,
		"SlideTypes": types,
		"MaxSlides":  model.MaxSlides,
	}
}
