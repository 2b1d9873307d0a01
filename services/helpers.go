// File: charabracket/services/helpers.go
package services

import (
	"fmt"
	"strings"

	"github.com/charabracket/charabracket/brackets"
	"github.com/charabracket/charabracket/models"
	"github.com/charabracket/charabracket/storage"
)

// --- Общие хелперы ---

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

const maxNameLength = 120

func trimmedName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrNameRequired
	}
	if len([]rune(trimmed)) > maxNameLength {
		return "", ErrNameTooLong
	}
	return trimmed, nil
}

// --- Хелперы для заполнения публичных URL изображений ---

func populateImageURLs(image *models.CharacterImage, uploader storage.FileUploader) {
	if image == nil || uploader == nil {
		return
	}
	if image.ObjectKey != "" {
		if url := uploader.GetPublicURL(image.ObjectKey); url != "" {
			image.URL = &url
		}
	}
	if image.ThumbKey != "" {
		if url := uploader.GetPublicURL(image.ThumbKey); url != "" {
			image.ThumbURL = &url
		}
	}
}

func populateImageListURLs(images []models.CharacterImage, uploader storage.FileUploader) {
	for i := range images {
		populateImageURLs(&images[i], uploader)
	}
}

// characterThumbURL возвращает URL миниатюры первого изображения персонажа.
func characterThumbURL(images []models.CharacterImage, uploader storage.FileUploader) *string {
	if len(images) == 0 || uploader == nil {
		return nil
	}
	if url := uploader.GetPublicURL(images[0].ThumbKey); url != "" {
		return &url
	}
	return nil
}

func characterRef(c *models.Character, thumb *string) models.CharacterRef {
	return models.CharacterRef{
		ID:       c.ID,
		Name:     c.Name,
		ThumbURL: thumb,
	}
}

// extensionForContentType отображает поддерживаемые типы загрузок в расширения файлов.
func extensionForContentType(contentType string) (string, error) {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrImageUnsupportedType, contentType)
	}
}

// --- Преобразования между строками матчей и записями движка ---

func matchesFromRecords(tournamentID int, records []brackets.Record) []models.TournamentMatch {
	matches := make([]models.TournamentMatch, len(records))
	for i, rec := range records {
		matches[i] = models.TournamentMatch{
			TournamentID: tournamentID,
			Section:      string(rec.Section),
			Round:        rec.Round,
			MatchIndex:   rec.Index,
			Entrant1ID:   rec.Entrant1ID,
			Entrant2ID:   rec.Entrant2ID,
			WinnerID:     rec.WinnerID,
			CompletedAt:  rec.CompletedAt,
		}
	}
	return matches
}

func recordsFromMatches(matches []models.TournamentMatch) []brackets.Record {
	records := make([]brackets.Record, len(matches))
	for i, m := range matches {
		records[i] = brackets.Record{
			Section:     brackets.Section(m.Section),
			Round:       m.Round,
			Index:       m.MatchIndex,
			Entrant1ID:  m.Entrant1ID,
			Entrant2ID:  m.Entrant2ID,
			WinnerID:    m.WinnerID,
			CompletedAt: m.CompletedAt,
		}
	}
	return records
}

// --- Построение отображения сетки ---

func buildBracketView(b *brackets.Bracket, refs map[int]models.CharacterRef) *models.BracketView {
	view := &models.BracketView{
		Format:   string(b.Format),
		Complete: b.Complete,
		Winners:  matchViewRounds(b.Winners, refs),
	}
	if len(b.Losers) > 0 {
		view.Losers = matchViewRounds(b.Losers, refs)
	}
	if b.GrandFinal != nil {
		gf := matchView(b.GrandFinal, refs)
		view.GrandFinal = &gf
	}
	view.Champion = entrantRef(b.Champion, refs)
	if current := b.CurrentMatch(); current != nil {
		cv := matchView(current, refs)
		view.Current = &cv
	}
	return view
}

func matchViewRounds(rounds [][]*brackets.Match, refs map[int]models.CharacterRef) [][]models.BracketMatchView {
	out := make([][]models.BracketMatchView, len(rounds))
	for r, round := range rounds {
		out[r] = make([]models.BracketMatchView, len(round))
		for i, m := range round {
			out[r][i] = matchView(m, refs)
		}
	}
	return out
}

func matchView(m *brackets.Match, refs map[int]models.CharacterRef) models.BracketMatchView {
	return models.BracketMatchView{
		Section:   string(m.Section),
		Round:     m.Round,
		Index:     m.Index,
		Slot1:     entrantRef(m.Slot1, refs),
		Slot2:     entrantRef(m.Slot2, refs),
		Winner:    entrantRef(m.Winner, refs),
		Bye:       m.Bye,
		Dead:      m.Dead,
		Decidable: m.Decidable(),
		DecidedAt: m.DecidedAt,
	}
}

// entrantRef отображает участника движка в ссылку на персонажа. Для
// персонажа, уже удалённого из библиотеки, остаётся имя из движка.
func entrantRef(e *brackets.Entrant, refs map[int]models.CharacterRef) *models.CharacterRef {
	if e == nil {
		return nil
	}
	if ref, ok := refs[e.ID]; ok {
		return &ref
	}
	return &models.CharacterRef{ID: e.ID, Name: e.Name}
}
