package models

import "time"

// TournamentMatch is one persisted bracket cell. The full set of rows
// for a tournament is replaced wholesale after every decision.
type TournamentMatch struct {
	ID           int        `json:"id"`
	TournamentID int        `json:"tournament_id"`
	Section      string     `json:"section"`
	Round        int        `json:"round"`
	MatchIndex   int        `json:"match_index"`
	Entrant1ID   *int       `json:"entrant1_id,omitempty"`
	Entrant2ID   *int       `json:"entrant2_id,omitempty"`
	WinnerID     *int       `json:"winner_id,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
