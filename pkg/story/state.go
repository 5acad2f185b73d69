package story

import "knowthepast/pkg/model"

// SlideView is one slide with its image status, as shown to the client.
type SlideView struct {
	model.Slide
	Index       int               `json:"index"`
	ImageStatus model.ImageStatus `json:"imageStatus"`
}

// State is an immutable snapshot of the story.
type State struct {
	Epoch   uint64      `json:"epoch"`
	PlaceID string      `json:"placeId,omitempty"`
	Loading bool        `json:"loading"`
	Error   string      `json:"error,omitempty"`
	Empty   bool        `json:"empty"` // loaded, but no slides were warranted
	Index   int         `json:"index"`
	Slides  []SlideView `json:"slides"`
}

// State returns a consistent snapshot of the current story.
func (b *Builder) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := State{
		Epoch:   b.epoch,
		Loading: b.loading,
		Error:   b.errMsg,
		Index:   b.index,
		Slides:  make([]SlideView, len(b.slides)),
	}
	if b.place != nil {
		s.PlaceID = b.place.ID
		s.Empty = !b.loading && b.errMsg == "" && len(b.slides) == 0
	}
	for i, sl := range b.slides {
		s.Slides[i] = SlideView{Slide: sl, Index: i, ImageStatus: b.statuses[i]}
	}
	return s
}
