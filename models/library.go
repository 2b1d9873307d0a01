package models

import "time"

type LibraryStats struct {
	Characters           int          `json:"characters"`
	Tags                 int          `json:"tags"`
	Groups               int          `json:"groups"`
	Images               int          `json:"images"`
	ActiveTournaments    int          `json:"active_tournaments"`
	CompletedTournaments int          `json:"completed_tournaments"`
	RecentCharacters     []Character  `json:"recent_characters,omitempty"`
	RecentTournaments    []Tournament `json:"recent_tournaments,omitempty"`
}

type WordFrequency struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// The Export* types define the library archive's manifest format. They
// are decoupled from the API models so the archive stays stable.

const LibraryExportVersion = 1

type LibraryExport struct {
	Version     int                `json:"version"`
	ExportedAt  time.Time          `json:"exported_at"`
	Characters  []ExportCharacter  `json:"characters"`
	Tags        []ExportTag        `json:"tags"`
	Groups      []ExportGroup      `json:"groups"`
	Images      []ExportImage      `json:"images"`
	Tournaments []ExportTournament `json:"tournaments"`
}

type ExportCharacter struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	GroupID     *int    `json:"group_id,omitempty"`
	TagIDs      []int   `json:"tag_ids,omitempty"`
}

type ExportTag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ExportGroup struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type ExportImage struct {
	ID          int    `json:"id"`
	CharacterID int    `json:"character_id"`
	ObjectKey   string `json:"object_key"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	SizeBytes   int64  `json:"size_bytes"`
}

type ExportTournament struct {
	ID        int               `json:"id"`
	Name      string            `json:"name"`
	Format    string            `json:"format"`
	Status    TournamentStatus  `json:"status"`
	WinnerID  *int              `json:"winner_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Matches   []TournamentMatch `json:"matches"`
}

type ImportSummary struct {
	Characters    int `json:"characters"`
	Tags          int `json:"tags"`
	Groups        int `json:"groups"`
	Images        int `json:"images"`
	SkippedImages int `json:"skipped_images"`
	Tournaments   int `json:"tournaments"`
}
