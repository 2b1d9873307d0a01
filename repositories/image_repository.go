package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/charabracket/charabracket/models"
	"github.com/lib/pq"
)

var (
	ErrImageNotFound         = errors.New("image not found")
	ErrImageInvalidCharacter = errors.New("invalid character reference")
)

type CharacterImageRepository interface {
	Create(ctx context.Context, exec SQLExecutor, image *models.CharacterImage) error
	GetByID(ctx context.Context, id int) (*models.CharacterImage, error)
	ListByCharacter(ctx context.Context, characterID int) ([]models.CharacterImage, error)
	MapByCharacterIDs(ctx context.Context, characterIDs []int) (map[int][]models.CharacterImage, error)
	ListByOwner(ctx context.Context, ownerID int) ([]models.CharacterImage, error)
	FindByOwnerAndHash(ctx context.Context, ownerID int, contentHash string) (*models.CharacterImage, error)
	Delete(ctx context.Context, id int) error
	CountByOwner(ctx context.Context, ownerID int) (int, error)
}

type postgresCharacterImageRepository struct {
	db *sql.DB
}

func NewPostgresCharacterImageRepository(db *sql.DB) CharacterImageRepository {
	return &postgresCharacterImageRepository{db: db}
}

func (r *postgresCharacterImageRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresCharacterImageRepository) Create(ctx context.Context, exec SQLExecutor, image *models.CharacterImage) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO character_images (
			character_id, object_key, thumb_key, content_type, content_hash,
			width, height, size_bytes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		image.CharacterID, image.ObjectKey, image.ThumbKey, image.ContentType, image.ContentHash,
		image.Width, image.Height, image.SizeBytes,
	).Scan(&image.ID, &image.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			if pqErr.Constraint == "character_images_character_id_fkey" {
				return ErrImageInvalidCharacter
			}
		}
		return err
	}
	return nil
}

func (r *postgresCharacterImageRepository) GetByID(ctx context.Context, id int) (*models.CharacterImage, error) {
	query := `
		SELECT id, character_id, object_key, thumb_key, content_type, content_hash,
		       width, height, size_bytes, created_at
		FROM character_images
		WHERE id = $1`

	var image models.CharacterImage
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&image.ID, &image.CharacterID, &image.ObjectKey, &image.ThumbKey,
		&image.ContentType, &image.ContentHash,
		&image.Width, &image.Height, &image.SizeBytes, &image.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &image, nil
}

func (r *postgresCharacterImageRepository) ListByCharacter(ctx context.Context, characterID int) ([]models.CharacterImage, error) {
	query := `
		SELECT id, character_id, object_key, thumb_key, content_type, content_hash,
		       width, height, size_bytes, created_at
		FROM character_images
		WHERE character_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, characterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanImageRows(rows)
}

// MapByCharacterIDs загружает изображения для набора персонажей одним запросом.
func (r *postgresCharacterImageRepository) MapByCharacterIDs(ctx context.Context, characterIDs []int) (map[int][]models.CharacterImage, error) {
	result := make(map[int][]models.CharacterImage, len(characterIDs))
	if len(characterIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT id, character_id, object_key, thumb_key, content_type, content_hash,
		       width, height, size_bytes, created_at
		FROM character_images
		WHERE character_id = ANY($1)
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(characterIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to map images by character ids: %w", err)
	}
	defer rows.Close()

	images, err := scanImageRows(rows)
	if err != nil {
		return nil, err
	}
	for _, image := range images {
		result[image.CharacterID] = append(result[image.CharacterID], image)
	}
	return result, nil
}

func (r *postgresCharacterImageRepository) ListByOwner(ctx context.Context, ownerID int) ([]models.CharacterImage, error) {
	query := `
		SELECT ci.id, ci.character_id, ci.object_key, ci.thumb_key, ci.content_type, ci.content_hash,
		       ci.width, ci.height, ci.size_bytes, ci.created_at
		FROM character_images ci
		JOIN characters c ON ci.character_id = c.id
		WHERE c.owner_id = $1
		ORDER BY ci.id ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanImageRows(rows)
}

// FindByOwnerAndHash ищет уже загруженный файл с тем же содержимым у того же
// владельца. Уникального индекса здесь нет, проверка выполняется сервисом.
func (r *postgresCharacterImageRepository) FindByOwnerAndHash(ctx context.Context, ownerID int, contentHash string) (*models.CharacterImage, error) {
	query := `
		SELECT ci.id, ci.character_id, ci.object_key, ci.thumb_key, ci.content_type, ci.content_hash,
		       ci.width, ci.height, ci.size_bytes, ci.created_at
		FROM character_images ci
		JOIN characters c ON ci.character_id = c.id
		WHERE c.owner_id = $1 AND ci.content_hash = $2
		LIMIT 1`

	var image models.CharacterImage
	err := r.db.QueryRowContext(ctx, query, ownerID, contentHash).Scan(
		&image.ID, &image.CharacterID, &image.ObjectKey, &image.ThumbKey,
		&image.ContentType, &image.ContentHash,
		&image.Width, &image.Height, &image.SizeBytes, &image.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &image, nil
}

func (r *postgresCharacterImageRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM character_images WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return checkAffectedRows(result, ErrImageNotFound)
}

func (r *postgresCharacterImageRepository) CountByOwner(ctx context.Context, ownerID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM character_images ci
		JOIN characters c ON ci.character_id = c.id
		WHERE c.owner_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanImageRows(rows *sql.Rows) ([]models.CharacterImage, error) {
	images := make([]models.CharacterImage, 0)
	for rows.Next() {
		var image models.CharacterImage
		if scanErr := rows.Scan(
			&image.ID, &image.CharacterID, &image.ObjectKey, &image.ThumbKey,
			&image.ContentType, &image.ContentHash,
			&image.Width, &image.Height, &image.SizeBytes, &image.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		images = append(images, image)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return images, nil
}
