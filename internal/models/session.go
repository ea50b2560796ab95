package models

import "time"

// ViewingSession is the retained "where was I" record for one user/video pair.
// IDs are opaque caller-generated strings so records survive round-trips
// through either storage medium unchanged.
type ViewingSession struct {
	ID           string    `json:"id"`
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Progress     int       `json:"progress"`
	Duration     int       `json:"duration"`
	LastWatched  time.Time `json:"last_watched"`
	UserID       string    `json:"user_id"`
}

type SaveSessionRequest struct {
	ID           string `json:"id"`
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	Progress     int    `json:"progress"`
	Duration     int    `json:"duration"`
}

type VideoMetadata struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Author       string `json:"author"`
	ThumbnailURL string `json:"thumbnail_url"`
	Duration     int    `json:"duration"`
}
