package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charabracket/charabracket/models"
	"github.com/charabracket/charabracket/repositories"
)

type stubTagRepo struct {
	repositories.TagRepository
	createFn  func(ctx context.Context, exec repositories.SQLExecutor, tag *models.Tag) error
	getByIDFn func(ctx context.Context, id int) (*models.Tag, error)
	updateFn  func(ctx context.Context, tag *models.Tag) error
	deleteFn  func(ctx context.Context, id int) error
}

func (s *stubTagRepo) Create(ctx context.Context, exec repositories.SQLExecutor, tag *models.Tag) error {
	return s.createFn(ctx, exec, tag)
}

func (s *stubTagRepo) GetByID(ctx context.Context, id int) (*models.Tag, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubTagRepo) Update(ctx context.Context, tag *models.Tag) error {
	return s.updateFn(ctx, tag)
}

func (s *stubTagRepo) Delete(ctx context.Context, id int) error {
	return s.deleteFn(ctx, id)
}

func TestCreateTag(t *testing.T) {
	t.Run("trims name and returns stored tag", func(t *testing.T) {
		repo := &stubTagRepo{
			createFn: func(_ context.Context, _ repositories.SQLExecutor, tag *models.Tag) error {
				assert.Equal(t, 1, tag.OwnerID)
				assert.Equal(t, "villain", tag.Name)
				tag.ID = 11
				return nil
			},
		}
		svc := NewTagService(repo)

		tag, err := svc.CreateTag(context.Background(), 1, TagInput{Name: "  villain  "})
		require.NoError(t, err)
		assert.Equal(t, 11, tag.ID)
	})

	t.Run("blank name", func(t *testing.T) {
		svc := NewTagService(&stubTagRepo{})
		_, err := svc.CreateTag(context.Background(), 1, TagInput{Name: "   "})
		require.ErrorIs(t, err, ErrNameRequired)
	})

	t.Run("duplicate name", func(t *testing.T) {
		repo := &stubTagRepo{
			createFn: func(_ context.Context, _ repositories.SQLExecutor, _ *models.Tag) error {
				return repositories.ErrTagNameConflict
			},
		}
		svc := NewTagService(repo)

		_, err := svc.CreateTag(context.Background(), 1, TagInput{Name: "villain"})
		require.ErrorIs(t, err, ErrTagNameConflict)
	})
}

func TestUpdateTagOwnership(t *testing.T) {
	repo := &stubTagRepo{
		getByIDFn: func(_ context.Context, id int) (*models.Tag, error) {
			if id != 11 {
				return nil, repositories.ErrTagNotFound
			}
			return &models.Tag{ID: 11, OwnerID: 2, Name: "villain"}, nil
		},
	}
	svc := NewTagService(repo)

	// Тег существует, но принадлежит другому пользователю.
	_, err := svc.UpdateTag(context.Background(), 1, 11, TagInput{Name: "hero"})
	require.ErrorIs(t, err, ErrForbiddenOperation)

	_, err = svc.UpdateTag(context.Background(), 1, 99, TagInput{Name: "hero"})
	require.ErrorIs(t, err, ErrTagNotFound)
}

func TestUpdateTag(t *testing.T) {
	repo := &stubTagRepo{
		getByIDFn: func(_ context.Context, id int) (*models.Tag, error) {
			return &models.Tag{ID: id, OwnerID: 1, Name: "villain"}, nil
		},
		updateFn: func(_ context.Context, tag *models.Tag) error {
			assert.Equal(t, "hero", tag.Name)
			return nil
		},
	}
	svc := NewTagService(repo)

	tag, err := svc.UpdateTag(context.Background(), 1, 11, TagInput{Name: " hero "})
	require.NoError(t, err)
	assert.Equal(t, "hero", tag.Name)
}

func TestDeleteTag(t *testing.T) {
	deleted := 0
	repo := &stubTagRepo{
		getByIDFn: func(_ context.Context, id int) (*models.Tag, error) {
			return &models.Tag{ID: id, OwnerID: 1, Name: "villain"}, nil
		},
		deleteFn: func(_ context.Context, id int) error {
			deleted = id
			return nil
		},
	}
	svc := NewTagService(repo)

	require.NoError(t, svc.DeleteTag(context.Background(), 1, 11))
	assert.Equal(t, 11, deleted)
}
