package models

import "time"

// Block is a configured video block as saved by the authoring form.
type Block struct {
	ID        string    `json:"id"`
	SourceURL string    `json:"sourceUrl"`
	MaxWidth  int       `json:"maxWidth"`
	MaxHeight int       `json:"maxHeight"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WatchState counts how many times a viewer finished a block's video.
type WatchState struct {
	BlockID      string `json:"blockId"`
	ViewerID     string `json:"viewerId"`
	WatchedCount int    `json:"watchedCount"`
}
