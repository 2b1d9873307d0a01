package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/charabracket/charabracket/models"
	"github.com/lib/pq"
)

var (
	ErrTagNotFound     = errors.New("tag not found")
	ErrTagNameConflict = errors.New("tag name conflict")
)

type TagRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tag *models.Tag) error
	GetByID(ctx context.Context, id int) (*models.Tag, error)
	ListByOwner(ctx context.Context, ownerID int) ([]models.Tag, error)
	Update(ctx context.Context, tag *models.Tag) error
	Delete(ctx context.Context, id int) error
	CountByOwner(ctx context.Context, ownerID int) (int, error)
}

type postgresTagRepository struct {
	db *sql.DB
}

func NewPostgresTagRepository(db *sql.DB) TagRepository {
	return &postgresTagRepository{db: db}
}

func (r *postgresTagRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTagRepository) Create(ctx context.Context, exec SQLExecutor, tag *models.Tag) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tags (owner_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, tag.OwnerID, tag.Name).
		Scan(&tag.ID, &tag.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "tags_owner_id_name_key" {
				return ErrTagNameConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresTagRepository) GetByID(ctx context.Context, id int) (*models.Tag, error) {
	query := `SELECT id, owner_id, name, created_at FROM tags WHERE id = $1`

	var tag models.Tag
	err := r.db.QueryRowContext(ctx, query, id).Scan(&tag.ID, &tag.OwnerID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}

func (r *postgresTagRepository) ListByOwner(ctx context.Context, ownerID int) ([]models.Tag, error) {
	query := `
		SELECT id, owner_id, name, created_at
		FROM tags
		WHERE owner_id = $1
		ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]models.Tag, 0)
	for rows.Next() {
		var tag models.Tag
		if scanErr := rows.Scan(&tag.ID, &tag.OwnerID, &tag.Name, &tag.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		tags = append(tags, tag)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tags, nil
}

func (r *postgresTagRepository) Update(ctx context.Context, tag *models.Tag) error {
	query := `UPDATE tags SET name = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, tag.Name, tag.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "tags_owner_id_name_key" {
				return ErrTagNameConflict
			}
		}
		return err
	}

	return checkAffectedRows(result, ErrTagNotFound)
}

func (r *postgresTagRepository) Delete(ctx context.Context, id int) error {
	// Связи в character_tags удаляются каскадно.
	query := `DELETE FROM tags WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return checkAffectedRows(result, ErrTagNotFound)
}

func (r *postgresTagRepository) CountByOwner(ctx context.Context, ownerID int) (int, error) {
	query := `SELECT COUNT(*) FROM tags WHERE owner_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
