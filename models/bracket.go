package models

import "time"

// CharacterRef is the slim character shape embedded in bracket views.
type CharacterRef struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	ThumbURL *string `json:"thumb_url,omitempty"`
}

type BracketMatchView struct {
	Section   string        `json:"section"`
	Round     int           `json:"round"`
	Index     int           `json:"index"`
	Slot1     *CharacterRef `json:"slot1"`
	Slot2     *CharacterRef `json:"slot2"`
	Winner    *CharacterRef `json:"winner,omitempty"`
	Bye       bool          `json:"bye,omitempty"`
	Dead      bool          `json:"dead,omitempty"`
	Decidable bool          `json:"decidable,omitempty"`
	DecidedAt *time.Time    `json:"decided_at,omitempty"`
}

type BracketView struct {
	Format     string               `json:"format"`
	Complete   bool                 `json:"complete"`
	Champion   *CharacterRef        `json:"champion,omitempty"`
	Current    *BracketMatchView    `json:"current,omitempty"`
	Winners    [][]BracketMatchView `json:"winners"`
	Losers     [][]BracketMatchView `json:"losers,omitempty"`
	GrandFinal *BracketMatchView    `json:"grand_final,omitempty"`
}

type TournamentDetail struct {
	Tournament Tournament  `json:"tournament"`
	Bracket    BracketView `json:"bracket"`
}

type Standing struct {
	Place     int          `json:"place"`
	Character CharacterRef `json:"character"`
}
