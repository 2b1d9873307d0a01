package services

import (
	"context"
	"fmt"

	"github.com/charabracket/charabracket/models"
	"github.com/charabracket/charabracket/repositories"
	"golang.org/x/sync/errgroup"
)

// recentLimit - сколько последних персонажей и турниров попадает в сводку.
const recentLimit = 5

type StatsService interface {
	GetLibraryStats(ctx context.Context, ownerID int) (*models.LibraryStats, error)
}

type statsService struct {
	characterRepo  repositories.CharacterRepository
	tagRepo        repositories.TagRepository
	groupRepo      repositories.GroupRepository
	imageRepo      repositories.CharacterImageRepository
	tournamentRepo repositories.TournamentRepository
}

func NewStatsService(
	characterRepo repositories.CharacterRepository,
	tagRepo repositories.TagRepository,
	groupRepo repositories.GroupRepository,
	imageRepo repositories.CharacterImageRepository,
	tournamentRepo repositories.TournamentRepository,
) StatsService {
	return &statsService{
		characterRepo:  characterRepo,
		tagRepo:        tagRepo,
		groupRepo:      groupRepo,
		imageRepo:      imageRepo,
		tournamentRepo: tournamentRepo,
	}
}

func (s *statsService) GetLibraryStats(ctx context.Context, ownerID int) (*models.LibraryStats, error) {
	stats := &models.LibraryStats{}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		count, err := s.characterRepo.CountByOwner(gCtx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to count characters: %w", err)
		}
		stats.Characters = count
		return nil
	})
	g.Go(func() error {
		count, err := s.tagRepo.CountByOwner(gCtx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to count tags: %w", err)
		}
		stats.Tags = count
		return nil
	})
	g.Go(func() error {
		count, err := s.groupRepo.CountByOwner(gCtx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to count groups: %w", err)
		}
		stats.Groups = count
		return nil
	})
	g.Go(func() error {
		count, err := s.imageRepo.CountByOwner(gCtx, ownerID)
		if err != nil {
			return fmt.Errorf("failed to count images: %w", err)
		}
		stats.Images = count
		return nil
	})
	g.Go(func() error {
		count, err := s.tournamentRepo.CountByOwnerAndStatus(gCtx, ownerID, models.TournamentActive)
		if err != nil {
			return fmt.Errorf("failed to count active tournaments: %w", err)
		}
		stats.ActiveTournaments = count
		return nil
	})
	g.Go(func() error {
		count, err := s.tournamentRepo.CountByOwnerAndStatus(gCtx, ownerID, models.TournamentCompleted)
		if err != nil {
			return fmt.Errorf("failed to count completed tournaments: %w", err)
		}
		stats.CompletedTournaments = count
		return nil
	})
	g.Go(func() error {
		recent, err := s.characterRepo.ListRecentByOwner(gCtx, ownerID, recentLimit)
		if err != nil {
			return fmt.Errorf("failed to list recent characters: %w", err)
		}
		stats.RecentCharacters = recent
		return nil
	})
	g.Go(func() error {
		recent, err := s.tournamentRepo.List(gCtx, repositories.ListTournamentsFilter{
			OwnerID: ownerID,
			Limit:   recentLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to list recent tournaments: %w", err)
		}
		stats.RecentTournaments = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return stats, nil
}
