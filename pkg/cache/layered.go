package cache

import (
	"context"
	"errors"
)

// Layered reads through its layers in order and backfills the faster ones on a hit.
// Writes go to every layer.
type Layered struct {
	layers []Cacher
}

// NewLayered stacks the given caches, fastest first. Nil layers are skipped.
func NewLayered(layers ...Cacher) *Layered {
	l := &Layered{}
	for _, c := range layers {
		if c != nil {
			l.layers = append(l.layers, c)
		}
	}
	return l
}

func (l *Layered) GetCache(ctx context.Context, key string) ([]byte, bool) {
	for i, c := range l.layers {
		val, ok := c.GetCache(ctx, key)
		if !ok {
			continue
		}
		for _, faster := range l.layers[:i] {
			_ = faster.SetCache(ctx, key, val)
		}
		return val, true
	}
	return nil, false
}

func (l *Layered) SetCache(ctx context.Context, key string, val []byte) error {
	var errs []error
	for _, c := range l.layers {
		if err := c.SetCache(ctx, key, val); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
