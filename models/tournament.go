package models

import "time"

// TournamentStatus mirrors the ENUM in the database.
type TournamentStatus string

const (
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
)

type Tournament struct {
	ID        int              `json:"id" db:"id"`
	OwnerID   int              `json:"owner_id" db:"owner_id"`
	Name      string           `json:"name" db:"name"`
	Format    string           `json:"format" db:"format"`
	Status    TournamentStatus `json:"status" db:"status"`
	WinnerID  *int             `json:"winner_id,omitempty" db:"winner_id"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`

	// Подгружается отдельно для списков.
	Winner *Character `json:"winner,omitempty" db:"-"`
}
