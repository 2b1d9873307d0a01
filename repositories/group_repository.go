package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/charabracket/charabracket/models"
	"github.com/lib/pq"
)

var (
	ErrGroupNotFound     = errors.New("group not found")
	ErrGroupNameConflict = errors.New("group name conflict")
)

type GroupRepository interface {
	Create(ctx context.Context, exec SQLExecutor, group *models.Group) error
	GetByID(ctx context.Context, id int) (*models.Group, error)
	ListByOwner(ctx context.Context, ownerID int) ([]models.Group, error)
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id int) error
	CountByOwner(ctx context.Context, ownerID int) (int, error)
}

type postgresGroupRepository struct {
	db *sql.DB
}

func NewPostgresGroupRepository(db *sql.DB) GroupRepository {
	return &postgresGroupRepository{db: db}
}

func (r *postgresGroupRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGroupRepository) Create(ctx context.Context, exec SQLExecutor, group *models.Group) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO groups (owner_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query, group.OwnerID, group.Name, group.Description).
		Scan(&group.ID, &group.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "groups_owner_id_name_key" {
				return ErrGroupNameConflict
			}
		}
		return err
	}
	return nil
}

func (r *postgresGroupRepository) GetByID(ctx context.Context, id int) (*models.Group, error) {
	query := `SELECT id, owner_id, name, description, created_at FROM groups WHERE id = $1`

	var group models.Group
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.OwnerID,
		&group.Name,
		&group.Description,
		&group.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (r *postgresGroupRepository) ListByOwner(ctx context.Context, ownerID int) ([]models.Group, error) {
	query := `
		SELECT id, owner_id, name, description, created_at
		FROM groups
		WHERE owner_id = $1
		ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]models.Group, 0)
	for rows.Next() {
		var group models.Group
		if scanErr := rows.Scan(
			&group.ID,
			&group.OwnerID,
			&group.Name,
			&group.Description,
			&group.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		groups = append(groups, group)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return groups, nil
}

func (r *postgresGroupRepository) Update(ctx context.Context, group *models.Group) error {
	query := `UPDATE groups SET name = $1, description = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, group.Name, group.Description, group.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if pqErr.Constraint == "groups_owner_id_name_key" {
				return ErrGroupNameConflict
			}
		}
		return err
	}

	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) Delete(ctx context.Context, id int) error {
	// characters.group_id объявлен с ON DELETE SET NULL, персонажи остаются без группы.
	query := `DELETE FROM groups WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return checkAffectedRows(result, ErrGroupNotFound)
}

func (r *postgresGroupRepository) CountByOwner(ctx context.Context, ownerID int) (int, error) {
	query := `SELECT COUNT(*) FROM groups WHERE owner_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
