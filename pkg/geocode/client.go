// Package geocode resolves map place ids to viewport bounds via the Google Geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/paulmach/orb"

	"knowthepast/pkg/cache"
	"knowthepast/pkg/model"
	"knowthepast/pkg/request"
	"knowthepast/pkg/tracker"
)

const provider = "maps"

// Resolver turns a place id into a geographic boundary.
type Resolver interface {
	ResolveBoundary(ctx context.Context, placeID string) (orb.Bound, error)
}

// Client implements Resolver.
type Client struct {
	rc      *request.Client
	cache   cache.Cacher
	tracker *tracker.Tracker
	key     string
	baseURL string
}

// NewClient creates a geocoding client. Successful lookups are kept in c.
func NewClient(rc *request.Client, c cache.Cacher, t *tracker.Tracker, key, baseURL string) *Client {
	return &Client{rc: rc, cache: c, tracker: t, key: key, baseURL: baseURL}
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type box struct {
	Northeast *latLng `json:"northeast"`
	Southwest *latLng `json:"southwest"`
}

type response struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID  string `json:"place_id"`
		Geometry struct {
			Bounds   *box `json:"bounds"`
			Viewport *box `json:"viewport"`
		} `json:"geometry"`
	} `json:"results"`
}

// ResolveBoundary returns the bounds of placeID, or a *model.BoundaryResolutionError.
func (c *Client) ResolveBoundary(ctx context.Context, placeID string) (orb.Bound, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return orb.Bound{}, &model.BoundaryResolutionError{PlaceID: placeID, Err: model.ErrMissingField}
	}

	cacheKey := "geocode:" + placeID
	if c.cache != nil {
		if raw, ok := c.cache.GetCache(ctx, cacheKey); ok {
			var v [4]float64
			if err := json.Unmarshal(raw, &v); err == nil {
				if c.tracker != nil {
					c.tracker.TrackCacheHit(provider)
				}
				return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
			}
		}
	}

	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("key", c.key)

	body, err := c.rc.Get(ctx, c.baseURL+"?"+q.Encode(), "")
	if err != nil {
		return orb.Bound{}, &model.BoundaryResolutionError{PlaceID: placeID, Err: err}
	}

	bound, err := parse(body)
	if err != nil {
		var bre *model.BoundaryResolutionError
		if errors.As(err, &bre) {
			bre.PlaceID = placeID
			return orb.Bound{}, bre
		}
		return orb.Bound{}, &model.BoundaryResolutionError{PlaceID: placeID, Err: err}
	}

	if c.cache != nil {
		v := [4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}
		if raw, err := json.Marshal(v); err == nil {
			if err := c.cache.SetCache(ctx, cacheKey, raw); err != nil {
				slog.Warn("Failed to cache boundary", "place_id", placeID, "error", err)
			}
		}
	}
	return bound, nil
}

func parse(body []byte) (orb.Bound, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return orb.Bound{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if resp.Status != "OK" {
		e := &model.BoundaryResolutionError{Status: resp.Status}
		if resp.ErrorMessage != "" {
			e.Err = fmt.Errorf("%s: %s", resp.Status, resp.ErrorMessage)
		}
		return orb.Bound{}, e
	}
	if len(resp.Results) == 0 {
		return orb.Bound{}, &model.BoundaryResolutionError{Status: "ZERO_RESULTS"}
	}

	g := resp.Results[0].Geometry
	b := g.Bounds
	if b == nil || b.Northeast == nil || b.Southwest == nil {
		b = g.Viewport
	}
	if b == nil || b.Northeast == nil || b.Southwest == nil {
		return orb.Bound{}, &model.BoundaryResolutionError{Status: resp.Status, Err: fmt.Errorf("%w: viewport", model.ErrMissingField)}
	}

	bound := orb.Bound{
		Min: orb.Point{b.Southwest.Lng, b.Southwest.Lat},
		Max: orb.Point{b.Northeast.Lng, b.Northeast.Lat},
	}
	if !model.ValidCoordinates(bound.Min.Lat(), bound.Min.Lon()) || !model.ValidCoordinates(bound.Max.Lat(), bound.Max.Lon()) {
		return orb.Bound{}, &model.BoundaryResolutionError{Status: resp.Status, Err: fmt.Errorf("%w: viewport", model.ErrInvalidField)}
	}
	return bound, nil
}

// CheckKey verifies that a maps credential is configured.
func (c *Client) CheckKey(ctx context.Context) error {
	if strings.TrimSpace(c.key) == "" {
		return &model.ConfigurationError{Setting: "maps.key", Err: model.ErrMissingField}
	}
	return nil
}
