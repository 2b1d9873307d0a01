package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charabracket/charabracket/models"
	"github.com/charabracket/charabracket/repositories"
	"github.com/charabracket/charabracket/storage"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100

	defaultWordFrequencyLimit = 50
	maxWordFrequencyLimit     = 200
)

type CharacterService interface {
	CreateCharacter(ctx context.Context, ownerID int, input CharacterInput) (*models.Character, error)
	GetCharacterByID(ctx context.Context, ownerID, id int) (*models.Character, error)
	ListCharacters(ctx context.Context, ownerID int, filter CharacterListFilter) ([]models.Character, error)
	UpdateCharacter(ctx context.Context, ownerID, id int, input CharacterInput) (*models.Character, error)
	DeleteCharacter(ctx context.Context, ownerID, id int) error
	WordFrequencies(ctx context.Context, ownerID, limit int) ([]models.WordFrequency, error)
}

type CharacterInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	GroupID     *int    `json:"group_id"`
	TagIDs      []int   `json:"tag_ids"`
}

type CharacterListFilter struct {
	Search  *string
	TagID   *int
	GroupID *int
	Limit   int
	Offset  int
}

type characterService struct {
	db               *sql.DB
	characterRepo    repositories.CharacterRepository
	characterTagRepo repositories.CharacterTagRepository
	tagRepo          repositories.TagRepository
	groupRepo        repositories.GroupRepository
	imageRepo        repositories.CharacterImageRepository
	uploader         storage.FileUploader
	logger           *slog.Logger
}

func NewCharacterService(
	db *sql.DB,
	characterRepo repositories.CharacterRepository,
	characterTagRepo repositories.CharacterTagRepository,
	tagRepo repositories.TagRepository,
	groupRepo repositories.GroupRepository,
	imageRepo repositories.CharacterImageRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) CharacterService {
	return &characterService{
		db:               db,
		characterRepo:    characterRepo,
		characterTagRepo: characterTagRepo,
		tagRepo:          tagRepo,
		groupRepo:        groupRepo,
		imageRepo:        imageRepo,
		uploader:         uploader,
		logger:           logger,
	}
}

func (s *characterService) CreateCharacter(ctx context.Context, ownerID int, input CharacterInput) (*models.Character, error) {
	name, err := trimmedName(input.Name)
	if err != nil {
		return nil, err
	}

	group, err := s.resolveOwnedGroup(ctx, ownerID, input.GroupID)
	if err != nil {
		return nil, err
	}

	tagIDs, tags, err := s.resolveOwnedTags(ctx, ownerID, input.TagIDs)
	if err != nil {
		return nil, err
	}

	character := &models.Character{
		OwnerID:     ownerID,
		Name:        name,
		Description: input.Description,
		GroupID:     input.GroupID,
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

	if txErr = s.characterRepo.Create(ctx, tx, character); txErr != nil {
		return nil, s.translateCharacterWriteError(txErr)
	}
	if txErr = s.characterTagRepo.Set(ctx, tx, character.ID, tagIDs); txErr != nil {
		return nil, s.translateCharacterWriteError(txErr)
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", txErr)
	}

	character.Group = group
	character.Tags = tags
	return character, nil
}

func (s *characterService) GetCharacterByID(ctx context.Context, ownerID, id int) (*models.Character, error) {
	character, err := s.getOwnedCharacter(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		tags, tagsErr := s.characterTagRepo.ListByCharacter(gCtx, id)
		if tagsErr != nil {
			return fmt.Errorf("failed to list tags for character %d: %w", id, tagsErr)
		}
		character.Tags = tags
		return nil
	})

	g.Go(func() error {
		images, imagesErr := s.imageRepo.ListByCharacter(gCtx, id)
		if imagesErr != nil {
			return fmt.Errorf("failed to list images for character %d: %w", id, imagesErr)
		}
		populateImageListURLs(images, s.uploader)
		character.Images = images
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return character, nil
}

func (s *characterService) ListCharacters(ctx context.Context, ownerID int, filter CharacterListFilter) ([]models.Character, error) {
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

	characters, err := s.characterRepo.List(ctx, repositories.ListCharactersFilter{
		OwnerID: ownerID,
		GroupID: filter.GroupID,
		TagID:   filter.TagID,
		Search:  filter.Search,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	if len(characters) == 0 {
		return characters, nil
	}

	ids := make([]int, len(characters))
	for i, c := range characters {
		ids[i] = c.ID
	}

	var (
		tagsByCharacter   map[int][]models.Tag
		imagesByCharacter map[int][]models.CharacterImage
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var tagsErr error
		tagsByCharacter, tagsErr = s.characterTagRepo.MapByCharacterIDs(gCtx, ids)
		if tagsErr != nil {
			return fmt.Errorf("failed to load character tags: %w", tagsErr)
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
		c.Tags = tagsByCharacter[c.ID]
		images := imagesByCharacter[c.ID]
		populateImageListURLs(images, s.uploader)
		c.Images = images
	}

	return characters, nil
}

func (s *characterService) UpdateCharacter(ctx context.Context, ownerID, id int, input CharacterInput) (*models.Character, error) {
	character, err := s.getOwnedCharacter(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	name, err := trimmedName(input.Name)
	if err != nil {
		return nil, err
	}

	group, err := s.resolveOwnedGroup(ctx, ownerID, input.GroupID)
	if err != nil {
		return nil, err
	}

	tagIDs, tags, err := s.resolveOwnedTags(ctx, ownerID, input.TagIDs)
	if err != nil {
		return nil, err
	}

	character.Name = name
	character.Description = input.Description
	character.GroupID = input.GroupID

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

	if txErr = s.characterRepo.Update(ctx, tx, character); txErr != nil {
		return nil, s.translateCharacterWriteError(txErr)
	}
	if txErr = s.characterTagRepo.Set(ctx, tx, character.ID, tagIDs); txErr != nil {
		return nil, s.translateCharacterWriteError(txErr)
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", txErr)
	}

	character.Group = group
	character.Tags = tags
	return character, nil
}

func (s *characterService) DeleteCharacter(ctx context.Context, ownerID, id int) error {
	if _, err := s.getOwnedCharacter(ctx, ownerID, id); err != nil {
		return err
	}

	// Ключи объектов собираются до удаления: строки изображений уходят каскадом.
	images, err := s.imageRepo.ListByCharacter(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list images for character %d: %w", id, err)
	}

	if err := s.characterRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrCharacterNotFound):
			return ErrCharacterNotFound
		case errors.Is(err, repositories.ErrCharacterInUse):
			return ErrCharacterInTournament
		}
		return fmt.Errorf("failed to delete character %d: %w", id, err)
	}

	s.removeImageObjects(ctx, images)
	return nil
}

func (s *characterService) WordFrequencies(ctx context.Context, ownerID, limit int) ([]models.WordFrequency, error) {
	if limit <= 0 {
		limit = defaultWordFrequencyLimit
	} else if limit > maxWordFrequencyLimit {
		limit = maxWordFrequencyLimit
	}

	characters, err := s.characterRepo.List(ctx, repositories.ListCharactersFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}

	texts := make([]string, 0, len(characters))
	for _, c := range characters {
		if c.Description != nil {
			texts = append(texts, *c.Description)
		}
	}

	return topWords(countWords(texts), limit), nil
}

// removeImageObjects удаляет файлы из хранилища best-effort:
// строки в БД уже удалены, поэтому ошибка здесь только логируется.
func (s *characterService) removeImageObjects(ctx context.Context, images []models.CharacterImage) {
	for _, image := range images {
		for _, key := range []string{image.ObjectKey, image.ThumbKey} {
			if key == "" {
				continue
			}
			if err := s.uploader.Delete(ctx, key); err != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "Failed to delete image object",
					slog.Int("image_id", image.ID),
					slog.String("key", key),
					slog.Any("error", err))
			}
		}
	}
}

func (s *characterService) getOwnedCharacter(ctx context.Context, ownerID, id int) (*models.Character, error) {
	character, err := s.characterRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrCharacterNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("failed to get character %d: %w", id, err)
	}
	if character.OwnerID != ownerID {
		return nil, ErrForbiddenOperation
	}
	return character, nil
}

// resolveOwnedGroup проверяет, что группа существует и принадлежит владельцу.
// Чужая группа неотличима от несуществующей.
func (s *characterService) resolveOwnedGroup(ctx context.Context, ownerID int, groupID *int) (*models.Group, error) {
	if groupID == nil {
		return nil, nil
	}
	group, err := s.groupRepo.GetByID(ctx, *groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group %d: %w", *groupID, err)
	}
	if group.OwnerID != ownerID {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// resolveOwnedTags убирает дубликаты из tagIDs и проверяет, что каждый тег
// принадлежит владельцу. Возвращает выбранные теги в порядке имён.
func (s *characterService) resolveOwnedTags(ctx context.Context, ownerID int, tagIDs []int) ([]int, []models.Tag, error) {
	if len(tagIDs) == 0 {
		return []int{}, []models.Tag{}, nil
	}

	owned, err := s.tagRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list tags: %w", err)
	}
	ownedIDs := make(map[int]struct{}, len(owned))
	for _, tag := range owned {
		ownedIDs[tag.ID] = struct{}{}
	}

	unique := make([]int, 0, len(tagIDs))
	seen := make(map[int]struct{}, len(tagIDs))
	for _, tagID := range tagIDs {
		if _, ok := seen[tagID]; ok {
			continue
		}
		seen[tagID] = struct{}{}
		if _, ok := ownedIDs[tagID]; !ok {
			return nil, nil, fmt.Errorf("%w: tag %d", ErrTagNotFound, tagID)
		}
		unique = append(unique, tagID)
	}

	// Список владельца уже отсортирован по имени, порядок сохраняется.
	selected := make([]models.Tag, 0, len(unique))
	for _, tag := range owned {
		if _, ok := seen[tag.ID]; ok {
			selected = append(selected, tag)
		}
	}

	return unique, selected, nil
}

func (s *characterService) translateCharacterWriteError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrCharacterNotFound):
		return ErrCharacterNotFound
	case errors.Is(err, repositories.ErrCharacterNameConflict):
		return ErrCharacterNameConflict
	case errors.Is(err, repositories.ErrCharacterInvalidGroup):
		return ErrGroupNotFound
	case errors.Is(err, repositories.ErrTagNotFound):
		return ErrTagNotFound
	}
	return fmt.Errorf("failed to save character: %w", err)
}
