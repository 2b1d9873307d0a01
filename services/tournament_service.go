// File: charabracket/services/tournament_service.go
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charabracket/charabracket/brackets"
	"github.com/charabracket/charabracket/models"
	"github.com/charabracket/charabracket/repositories"
	"github.com/charabracket/charabracket/storage"
	"golang.org/x/sync/errgroup"
)

type TournamentService interface {
	CreateTournament(ctx context.Context, ownerID int, input CreateTournamentInput) (*models.TournamentDetail, error)
	GetTournamentByID(ctx context.Context, ownerID, id int) (*models.TournamentDetail, error)
	ListTournaments(ctx context.Context, ownerID int, filter TournamentListFilter) ([]models.Tournament, error)
	AdvanceTournament(ctx context.Context, ownerID, id int, input AdvanceInput) (*models.TournamentDetail, error)
	GetStandings(ctx context.Context, ownerID, id int) ([]models.Standing, error)
	DeleteTournament(ctx context.Context, ownerID, id int) error
}

type CreateTournamentInput struct {
	Name         string `json:"name"`
	Format       string `json:"format"`
	CharacterIDs []int  `json:"character_ids"`
	Shuffle      bool   `json:"shuffle"`
}

type TournamentListFilter struct {
	Status *string
	Format *string
	Limit  int
	Offset int
}

// AdvanceInput указывает ячейку сетки и победителя решаемого матча.
type AdvanceInput struct {
	Section  string `json:"section"`
	Round    int    `json:"round"`
	Index    int    `json:"index"`
	WinnerID int    `json:"winner_id"`
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	characterRepo  repositories.CharacterRepository
	imageRepo      repositories.CharacterImageRepository
	hub            *brackets.Hub
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	characterRepo repositories.CharacterRepository,
	imageRepo repositories.CharacterImageRepository,
	hub *brackets.Hub,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		characterRepo:  characterRepo,
		imageRepo:      imageRepo,
		hub:            hub,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, ownerID int, input CreateTournamentInput) (*models.TournamentDetail, error) {
	name, err := trimmedName(input.Name)
	if err != nil {
		return nil, err
	}

	format := brackets.Format(input.Format)
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, input.Format)
	}

	if len(input.CharacterIDs) < 2 {
		return nil, ErrNotEnoughCharacters
	}
	seen := make(map[int]struct{}, len(input.CharacterIDs))
	for _, id := range input.CharacterIDs {
		if _, ok := seen[id]; ok {
			return nil, fmt.Errorf("%w: character %d", ErrDuplicateCharacters, id)
		}
		seen[id] = struct{}{}
	}

	characters, err := s.characterRepo.GetByIDs(ctx, input.CharacterIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load characters: %w", err)
	}
	byID := make(map[int]models.Character, len(characters))
	for _, c := range characters {
		byID[c.ID] = c
	}

	entrants := make([]brackets.Entrant, len(input.CharacterIDs))
	for i, id := range input.CharacterIDs {
		c, ok := byID[id]
		if !ok || c.OwnerID != ownerID {
			return nil, fmt.Errorf("%w: character %d", ErrCharacterNotFound, id)
		}
		entrants[i] = brackets.Entrant{ID: c.ID, Name: c.Name}
	}

	bracket, err := brackets.New(entrants, format, input.Shuffle)
	if err != nil {
		if errors.Is(err, brackets.ErrInsufficientEntrants) {
			return nil, ErrNotEnoughCharacters
		}
		return nil, fmt.Errorf("failed to build bracket: %w", err)
	}

	tournament := &models.Tournament{
		OwnerID: ownerID,
		Name:    name,
		Format:  string(format),
		Status:  models.TournamentActive,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = s.tournamentRepo.Create(ctx, tx, tournament); txErr != nil {
		return nil, s.translateTournamentWriteError(txErr)
	}
	if txErr = s.matchRepo.ReplaceForTournament(ctx, tx, tournament.ID, matchesFromRecords(tournament.ID, bracket.Records())); txErr != nil {
		return nil, s.translateTournamentWriteError(txErr)
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", txErr)
	}

	refs, err := s.characterRefsByID(ctx, bracket.EntrantIDs())
	if err != nil {
		return nil, err
	}

	return &models.TournamentDetail{
		Tournament: *tournament,
		Bracket:    *buildBracketView(bracket, refs),
	}, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, ownerID, id int) (*models.TournamentDetail, error) {
	tournament, err := s.getOwnedTournament(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	bracket, refs, err := s.loadBracket(ctx, tournament)
	if err != nil {
		return nil, err
	}

	return &models.TournamentDetail{
		Tournament: *tournament,
		Bracket:    *buildBracketView(bracket, refs),
	}, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, ownerID int, filter TournamentListFilter) ([]models.Tournament, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	} else if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	repoFilter := repositories.ListTournamentsFilter{
		OwnerID: ownerID,
		Limit:   limit,
		Offset:  offset,
	}
	if filter.Status != nil {
		status := models.TournamentStatus(*filter.Status)
		if status != models.TournamentActive && status != models.TournamentCompleted {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, *filter.Status)
		}
		repoFilter.Status = &status
	}
	if filter.Format != nil {
		if !brackets.Format(*filter.Format).Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, *filter.Format)
		}
		repoFilter.Format = filter.Format
	}

	tournaments, err := s.tournamentRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}

	if err := s.populateWinners(ctx, tournaments); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (s *tournamentService) AdvanceTournament(ctx context.Context, ownerID, id int, input AdvanceInput) (*models.TournamentDetail, error) {
	tournament, err := s.getOwnedTournament(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentActive {
		return nil, ErrTournamentNotActive
	}

	bracket, refs, err := s.loadBracket(ctx, tournament)
	if err != nil {
		return nil, err
	}

	at := brackets.Coord{
		Section: brackets.Section(input.Section),
		Round:   input.Round,
		Index:   input.Index,
	}
	next, err := bracket.Advance(at, brackets.Entrant{ID: input.WinnerID})
	if err != nil {
		if errors.Is(err, brackets.ErrInvalidAdvancement) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDecision, err)
		}
		return nil, fmt.Errorf("failed to advance bracket: %w", err)
	}

	status := models.TournamentActive
	var winnerID *int
	if next.Complete && next.Champion != nil {
		status = models.TournamentCompleted
		championID := next.Champion.ID
		winnerID = &championID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = s.matchRepo.ReplaceForTournament(ctx, tx, tournament.ID, matchesFromRecords(tournament.ID, next.Records())); txErr != nil {
		return nil, s.translateTournamentWriteError(txErr)
	}
	if txErr = s.tournamentRepo.UpdateStatusAndWinner(ctx, tx, tournament.ID, status, winnerID); txErr != nil {
		return nil, s.translateTournamentWriteError(txErr)
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", txErr)
	}

	tournament.Status = status
	tournament.WinnerID = winnerID

	detail := &models.TournamentDetail{
		Tournament: *tournament,
		Bracket:    *buildBracketView(next, refs),
	}

	if s.hub != nil {
		room := brackets.TournamentRoom(tournament.ID)
		s.hub.BroadcastToRoom(room, brackets.WebSocketMessage{
			Type:    brackets.MessageBracketUpdated,
			Payload: detail,
			RoomID:  room,
		})
	}

	return detail, nil
}

func (s *tournamentService) GetStandings(ctx context.Context, ownerID, id int) ([]models.Standing, error) {
	tournament, err := s.getOwnedTournament(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentCompleted {
		return nil, ErrTournamentNotComplete
	}

	bracket, refs, err := s.loadBracket(ctx, tournament)
	if err != nil {
		return nil, err
	}

	entrants, err := bracket.Standings()
	if err != nil {
		if errors.Is(err, brackets.ErrNotComplete) {
			return nil, ErrTournamentNotComplete
		}
		return nil, fmt.Errorf("failed to derive standings: %w", err)
	}

	standings := make([]models.Standing, len(entrants))
	for i, e := range entrants {
		// Чемпион и финалист занимают первые два места,
		// проигравшие полуфиналов делят третье.
		place := i + 1
		if place > 3 {
			place = 3
		}
		ref := entrantRef(&e, refs)
		standings[i] = models.Standing{Place: place, Character: *ref}
	}
	return standings, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, ownerID, id int) error {
	if _, err := s.getOwnedTournament(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to delete tournament %d: %w", id, err)
	}

	if s.hub != nil {
		room := brackets.TournamentRoom(id)
		s.hub.BroadcastToRoom(room, brackets.WebSocketMessage{
			Type:    brackets.MessageTournamentDeleted,
			Payload: map[string]int{"tournament_id": id},
			RoomID:  room,
		})
	}
	return nil
}

// loadBracket восстанавливает сетку турнира из сохранённых строк матчей.
// Если часть персонажей уже удалена, возвращается частично восстановленная
// сетка, а расхождение попадает в лог.
func (s *tournamentService) loadBracket(ctx context.Context, tournament *models.Tournament) (*brackets.Bracket, map[int]models.CharacterRef, error) {
	matches, err := s.matchRepo.ListByTournament(ctx, tournament.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournament.ID, err)
	}

	entrantIDs := collectEntrantIDs(matches)
	refs, err := s.characterRefsByID(ctx, entrantIDs)
	if err != nil {
		return nil, nil, err
	}

	lookup := make(map[int]brackets.Entrant, len(refs))
	for id, ref := range refs {
		lookup[id] = brackets.Entrant{ID: id, Name: ref.Name}
	}

	bracket, err := brackets.Rehydrate(recordsFromMatches(matches), lookup, brackets.Format(tournament.Format))
	if err != nil {
		if bracket != nil && errors.Is(err, brackets.ErrRehydrationMismatch) {
			if s.logger != nil {
				s.logger.WarnContext(ctx, "Serving partially recovered bracket",
					slog.Int("tournament_id", tournament.ID),
					slog.Any("error", err))
			}
			return bracket, refs, nil
		}
		return nil, nil, fmt.Errorf("failed to rehydrate bracket for tournament %d: %w", tournament.ID, err)
	}
	return bracket, refs, nil
}

// characterRefsByID загружает персонажей и их миниатюры параллельно и
// собирает карту ссылок для отображения сетки.
func (s *tournamentService) characterRefsByID(ctx context.Context, ids []int) (map[int]models.CharacterRef, error) {
	refs := make(map[int]models.CharacterRef, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}

	var (
		characters        []models.Character
		imagesByCharacter map[int][]models.CharacterImage
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var charsErr error
		characters, charsErr = s.characterRepo.GetByIDs(gCtx, ids)
		if charsErr != nil {
			return fmt.Errorf("failed to load characters: %w", charsErr)
		}
		return nil
	})

	g.Go(func() error {
		var imagesErr error
		imagesByCharacter, imagesErr = s.imageRepo.MapByCharacterIDs(gCtx, ids)
		if imagesErr != nil {
			return fmt.Errorf("failed to load character images: %w", imagesErr)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range characters {
		c := &characters[i]
		thumb := characterThumbURL(imagesByCharacter[c.ID], s.uploader)
		refs[c.ID] = characterRef(c, thumb)
	}
	return refs, nil
}

func (s *tournamentService) populateWinners(ctx context.Context, tournaments []models.Tournament) error {
	winnerIDs := make([]int, 0, len(tournaments))
	seen := make(map[int]struct{})
	for _, t := range tournaments {
		if t.WinnerID == nil {
			continue
		}
		if _, ok := seen[*t.WinnerID]; ok {
			continue
		}
		seen[*t.WinnerID] = struct{}{}
		winnerIDs = append(winnerIDs, *t.WinnerID)
	}
	if len(winnerIDs) == 0 {
		return nil
	}

	winners, err := s.characterRepo.GetByIDs(ctx, winnerIDs)
	if err != nil {
		return fmt.Errorf("failed to load tournament winners: %w", err)
	}
	byID := make(map[int]models.Character, len(winners))
	for _, c := range winners {
		byID[c.ID] = c
	}

	for i := range tournaments {
		t := &tournaments[i]
		if t.WinnerID == nil {
			continue
		}
		if winner, ok := byID[*t.WinnerID]; ok {
			w := winner
			t.Winner = &w
		}
	}
	return nil
}

func (s *tournamentService) getOwnedTournament(ctx context.Context, ownerID, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	if tournament.OwnerID != ownerID {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}

func (s *tournamentService) translateTournamentWriteError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrMatchInvalidEntrant):
		return ErrCharacterNotFound
	case errors.Is(err, repositories.ErrTournamentInvalidWinner):
		return ErrCharacterNotFound
	}
	return fmt.Errorf("failed to save tournament: %w", err)
}

func collectEntrantIDs(matches []models.TournamentMatch) []int {
	seen := make(map[int]struct{})
	var ids []int
	for _, m := range matches {
		for _, id := range []*int{m.Entrant1ID, m.Entrant2ID, m.WinnerID} {
			if id == nil {
				continue
			}
			if _, ok := seen[*id]; !ok {
				seen[*id] = struct{}{}
				ids = append(ids, *id)
			}
		}
	}
	return ids
}
