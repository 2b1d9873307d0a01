package models

import "time"

// CharacterImage is a stored upload. Object keys and the content hash
// stay server-side; responses carry resolved URLs instead.
type CharacterImage struct {
	ID          int       `json:"id"`
	CharacterID int       `json:"character_id"`
	ObjectKey   string    `json:"-"`
	ThumbKey    string    `json:"-"`
	ContentHash string    `json:"-"`
	ContentType string    `json:"content_type"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`

	URL      *string `json:"url,omitempty"`
	ThumbURL *string `json:"thumb_url,omitempty"`
}
