package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/charabracket/charabracket/models"
	"github.com/charabracket/charabracket/repositories"
)

type TagService interface {
	CreateTag(ctx context.Context, ownerID int, input TagInput) (*models.Tag, error)
	ListTags(ctx context.Context, ownerID int) ([]models.Tag, error)
	UpdateTag(ctx context.Context, ownerID, id int, input TagInput) (*models.Tag, error)
	DeleteTag(ctx context.Context, ownerID, id int) error
}

type TagInput struct {
	Name string `json:"name"`
}

type tagService struct {
	tagRepo repositories.TagRepository
}

func NewTagService(tagRepo repositories.TagRepository) TagService {
	return &tagService{
		tagRepo: tagRepo,
	}
}

func (s *tagService) CreateTag(ctx context.Context, ownerID int, input TagInput) (*models.Tag, error) {
	name, err := trimmedName(input.Name)
	if err != nil {
		return nil, err
	}

	tag := &models.Tag{
		OwnerID: ownerID,
		Name:    name,
	}

	if err := s.tagRepo.Create(ctx, nil, tag); err != nil {
		if errors.Is(err, repositories.ErrTagNameConflict) {
			return nil, ErrTagNameConflict
		}
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	return tag, nil
}

func (s *tagService) ListTags(ctx context.Context, ownerID int) ([]models.Tag, error) {
	tags, err := s.tagRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

func (s *tagService) UpdateTag(ctx context.Context, ownerID, id int, input TagInput) (*models.Tag, error) {
	tag, err := s.getOwnedTag(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	name, err := trimmedName(input.Name)
	if err != nil {
		return nil, err
	}
	tag.Name = name

	if err := s.tagRepo.Update(ctx, tag); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTagNotFound):
			return nil, ErrTagNotFound
		case errors.Is(err, repositories.ErrTagNameConflict):
			return nil, ErrTagNameConflict
		}
		return nil, fmt.Errorf("failed to update tag %d: %w", id, err)
	}

	return tag, nil
}

func (s *tagService) DeleteTag(ctx context.Context, ownerID, id int) error {
	if _, err := s.getOwnedTag(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.tagRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrTagNotFound) {
			return ErrTagNotFound
		}
		return fmt.Errorf("failed to delete tag %d: %w", id, err)
	}
	return nil
}

func (s *tagService) getOwnedTag(ctx context.Context, ownerID, id int) (*models.Tag, error) {
	tag, err := s.tagRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTagNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, fmt.Errorf("failed to get tag %d: %w", id, err)
	}
	if tag.OwnerID != ownerID {
		return nil, ErrForbiddenOperation
	}
	return tag, nil
}
