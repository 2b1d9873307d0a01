package models

import "time"

// Character is one library entry. Group and Tags are loaded separately
// and attached for responses.
type Character struct {
	ID          int       `json:"id" db:"id"`
	OwnerID     int       `json:"owner_id" db:"owner_id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	GroupID     *int      `json:"group_id,omitempty" db:"group_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	Group  *Group           `json:"group,omitempty" db:"-"`
	Tags   []Tag            `json:"tags,omitempty" db:"-"`
	Images []CharacterImage `json:"images,omitempty" db:"-"`
}
