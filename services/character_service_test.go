package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charabracket/charabracket/models"
	"github.com/charabracket/charabracket/repositories"
)

type stubCharacterRepo struct {
	repositories.CharacterRepository
	listFn func(ctx context.Context, filter repositories.ListCharactersFilter) ([]models.Character, error)
}

func (s *stubCharacterRepo) List(ctx context.Context, filter repositories.ListCharactersFilter) ([]models.Character, error) {
	return s.listFn(ctx, filter)
}

type stubTagLister struct {
	repositories.TagRepository
	listByOwnerFn func(ctx context.Context, ownerID int) ([]models.Tag, error)
}

func (s *stubTagLister) ListByOwner(ctx context.Context, ownerID int) ([]models.Tag, error) {
	return s.listByOwnerFn(ctx, ownerID)
}

func strPtr(s string) *string { return &s }

func TestWordFrequencies(t *testing.T) {
	characterRepo := &stubCharacterRepo{
		listFn: func(_ context.Context, filter repositories.ListCharactersFilter) ([]models.Character, error) {
			// Частоты считаются по всей библиотеке, без пагинации.
			assert.Equal(t, 1, filter.OwnerID)
			assert.Zero(t, filter.Limit)
			return []models.Character{
				{ID: 1, Description: strPtr("grim dark future")},
				{ID: 2, Description: strPtr("dark tower")},
				{ID: 3, Description: nil},
			}, nil
		},
	}
	svc := NewCharacterService(nil, characterRepo, nil, nil, nil, nil, nil, nil)

	frequencies, err := svc.WordFrequencies(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, frequencies, 4)
	assert.Equal(t, models.WordFrequency{Word: "dark", Count: 2}, frequencies[0])

	frequencies, err = svc.WordFrequencies(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Len(t, frequencies, 1)
	assert.Equal(t, "dark", frequencies[0].Word)
}

func TestResolveOwnedTags(t *testing.T) {
	tagRepo := &stubTagLister{
		listByOwnerFn: func(_ context.Context, ownerID int) ([]models.Tag, error) {
			return []models.Tag{
				{ID: 5, OwnerID: ownerID, Name: "artificer"},
				{ID: 3, OwnerID: ownerID, Name: "villain"},
			}, nil
		},
	}
	svc := &characterService{tagRepo: tagRepo}

	t.Run("dedupes and keeps owner order", func(t *testing.T) {
		ids, tags, err := svc.resolveOwnedTags(context.Background(), 1, []int{3, 5, 3})
		require.NoError(t, err)
		assert.Equal(t, []int{3, 5}, ids)
		require.Len(t, tags, 2)
		assert.Equal(t, "artificer", tags[0].Name)
		assert.Equal(t, "villain", tags[1].Name)
	})

	t.Run("foreign tag reads as missing", func(t *testing.T) {
		_, _, err := svc.resolveOwnedTags(context.Background(), 1, []int{3, 99})
		require.ErrorIs(t, err, ErrTagNotFound)
	})

	t.Run("no tags requested", func(t *testing.T) {
		ids, tags, err := svc.resolveOwnedTags(context.Background(), 1, nil)
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.Empty(t, tags)
	})
}
