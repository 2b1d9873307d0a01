package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/charabracket/charabracket/models"
	"github.com/charabracket/charabracket/repositories"
)

type GroupService interface {
	CreateGroup(ctx context.Context, ownerID int, input GroupInput) (*models.Group, error)
	GetGroupByID(ctx context.Context, ownerID, id int) (*models.Group, error)
	ListGroups(ctx context.Context, ownerID int) ([]models.Group, error)
	UpdateGroup(ctx context.Context, ownerID, id int, input GroupInput) (*models.Group, error)
	DeleteGroup(ctx context.Context, ownerID, id int) error
}

type GroupInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type groupService struct {
	groupRepo repositories.GroupRepository
}

func NewGroupService(groupRepo repositories.GroupRepository) GroupService {
	return &groupService{
		groupRepo: groupRepo,
	}
}

func (s *groupService) CreateGroup(ctx context.Context, ownerID int, input GroupInput) (*models.Group, error) {
	name, err := trimmedName(input.Name)
	if err != nil {
		return nil, err
	}

	group := &models.Group{
		OwnerID:     ownerID,
		Name:        name,
		Description: input.Description,
	}

	if err := s.groupRepo.Create(ctx, nil, group); err != nil {
		if errors.Is(err, repositories.ErrGroupNameConflict) {
			return nil, ErrGroupNameConflict
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	return group, nil
}

func (s *groupService) GetGroupByID(ctx context.Context, ownerID, id int) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group %d: %w", id, err)
	}
	if group.OwnerID != ownerID {
		return nil, ErrForbiddenOperation
	}
	return group, nil
}

func (s *groupService) ListGroups(ctx context.Context, ownerID int) ([]models.Group, error) {
	groups, err := s.groupRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

func (s *groupService) UpdateGroup(ctx context.Context, ownerID, id int, input GroupInput) (*models.Group, error) {
	group, err := s.GetGroupByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	name, err := trimmedName(input.Name)
	if err != nil {
		return nil, err
	}

	group.Name = name
	group.Description = input.Description

	if err := s.groupRepo.Update(ctx, group); err != nil {
		switch {
		case errors.Is(err, repositories.ErrGroupNotFound):
			return nil, ErrGroupNotFound
		case errors.Is(err, repositories.ErrGroupNameConflict):
			return nil, ErrGroupNameConflict
		}
		return nil, fmt.Errorf("failed to update group %d: %w", id, err)
	}

	return group, nil
}

func (s *groupService) DeleteGroup(ctx context.Context, ownerID, id int) error {
	if _, err := s.GetGroupByID(ctx, ownerID, id); err != nil {
		return err
	}

	if err := s.groupRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return ErrGroupNotFound
		}
		return fmt.Errorf("failed to delete group %d: %w", id, err)
	}
	return nil
}
