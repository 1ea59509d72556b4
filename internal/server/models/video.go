package models

import "time"

// VideoOwner is the subset of the owner's profile shown next to a video.
type VideoOwner struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// WatchHistoryItem is a watched video joined with its owner.
type WatchHistoryItem struct {
	ID          string     `json:"_id"`
	VideoFile   string     `json:"videoFile"`
	Thumbnail   string     `json:"thumbnail"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Duration    float64    `json:"duration"`
	Views       int64      `json:"views"`
	IsPublished bool       `json:"isPublished"`
	Owner       VideoOwner `json:"owner"`
	WatchedAt   time.Time  `json:"watchedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}
