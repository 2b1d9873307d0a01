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
	ErrCharacterNotFound     = errors.New("character not found")
	ErrCharacterNameConflict = errors.New("character name conflict for this owner")
	ErrCharacterInvalidGroup = errors.New("invalid group reference")
	ErrCharacterInUse        = errors.New("character is referenced by tournament matches")
)

type ListCharactersFilter struct {
	OwnerID int
	GroupID *int
	TagID   *int
	Search  *string
	Limit   int
	Offset  int
}

type CharacterRepository interface {
	Create(ctx context.Context, exec SQLExecutor, character *models.Character) error
	GetByID(ctx context.Context, id int) (*models.Character, error)
	GetByIDs(ctx context.Context, ids []int) ([]models.Character, error)
	List(ctx context.Context, filter ListCharactersFilter) ([]models.Character, error)
	Update(ctx context.Context, exec SQLExecutor, character *models.Character) error
	Delete(ctx context.Context, id int) error
	CountByOwner(ctx context.Context, ownerID int) (int, error)
	ListRecentByOwner(ctx context.Context, ownerID, limit int) ([]models.Character, error)
}

type postgresCharacterRepository struct {
	db *sql.DB
}

func NewPostgresCharacterRepository(db *sql.DB) CharacterRepository {
	return &postgresCharacterRepository{db: db}
}

func (r *postgresCharacterRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresCharacterRepository) Create(ctx context.Context, exec SQLExecutor, c *models.Character) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO characters (owner_id, name, description, group_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		c.OwnerID, c.Name, c.Description, c.GroupID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	return r.handleCharacterError(err)
}

func (r *postgresCharacterRepository) GetByID(ctx context.Context, id int) (*models.Character, error) {
	query := `
		SELECT
			c.id, c.owner_id, c.name, c.description, c.group_id, c.created_at, c.updated_at,
			g.id, g.owner_id, g.name, g.description, g.created_at
		FROM
			characters c
		LEFT JOIN
			groups g ON c.group_id = g.id
		WHERE
			c.id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	var c models.Character
	var group models.Group

	var groupID sql.NullInt64
	var groupOwnerID sql.NullInt64
	var groupName sql.NullString
	var groupDescription sql.NullString
	var groupCreatedAt sql.NullTime

	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&c.Description,
		&c.GroupID,
		&c.CreatedAt,
		&c.UpdatedAt,
		// Поля группы (могут быть NULL)
		&groupID,
		&groupOwnerID,
		&groupName,
		&groupDescription,
		&groupCreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("failed to scan character with group: %w", err)
	}

	if groupID.Valid {
		group.ID = int(groupID.Int64)
		group.OwnerID = int(groupOwnerID.Int64)
		group.Name = groupName.String
		if groupDescription.Valid {
			group.Description = &groupDescription.String
		}
		group.CreatedAt = groupCreatedAt.Time
		c.Group = &group
	}

	return &c, nil
}

// GetByIDs возвращает персонажей по списку id. Отсутствующие id просто
// не попадают в результат, порядок не гарантируется.
func (r *postgresCharacterRepository) GetByIDs(ctx context.Context, ids []int) ([]models.Character, error) {
	if len(ids) == 0 {
		return []models.Character{}, nil
	}

	query := `
		SELECT id, owner_id, name, description, group_id, created_at, updated_at
		FROM characters
		WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCharacterRows(rows)
}

func (r *postgresCharacterRepository) List(ctx context.Context, filter ListCharactersFilter) ([]models.Character, error) {
	query := `
		SELECT id, owner_id, name, description, group_id, created_at, updated_at
		FROM characters
		WHERE owner_id = $1`

	args := []interface{}{filter.OwnerID}
	argID := 2

	if filter.GroupID != nil {
		query += fmt.Sprintf(" AND group_id = $%d", argID)
		args = append(args, *filter.GroupID)
		argID++
	}
	if filter.TagID != nil {
		query += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM character_tags ct WHERE ct.character_id = characters.id AND ct.tag_id = $%d)", argID)
		args = append(args, *filter.TagID)
		argID++
	}
	if filter.Search != nil && *filter.Search != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", argID)
		args = append(args, "%"+*filter.Search+"%")
		argID++
	}

	query += " ORDER BY name ASC, id ASC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCharacterRows(rows)
}

func (r *postgresCharacterRepository) Update(ctx context.Context, exec SQLExecutor, c *models.Character) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE characters SET
			name = $1,
			description = $2,
			group_id = $3,
			updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`

	err := executor.QueryRowContext(ctx, query,
		c.Name, c.Description, c.GroupID, c.ID,
	).Scan(&c.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrCharacterNotFound
	}
	return r.handleCharacterError(err)
}

func (r *postgresCharacterRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM characters WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleCharacterError(err)
	}

	return checkAffectedRows(result, ErrCharacterNotFound)
}

func (r *postgresCharacterRepository) CountByOwner(ctx context.Context, ownerID int) (int, error) {
	query := `SELECT COUNT(*) FROM characters WHERE owner_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresCharacterRepository) ListRecentByOwner(ctx context.Context, ownerID, limit int) ([]models.Character, error) {
	query := `
		SELECT id, owner_id, name, description, group_id, created_at, updated_at
		FROM characters
		WHERE owner_id = $1
		ORDER BY updated_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCharacterRows(rows)
}

func scanCharacterRows(rows *sql.Rows) ([]models.Character, error) {
	characters := make([]models.Character, 0)
	for rows.Next() {
		var c models.Character
		if scanErr := rows.Scan(
			&c.ID,
			&c.OwnerID,
			&c.Name,
			&c.Description,
			&c.GroupID,
			&c.CreatedAt,
			&c.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		characters = append(characters, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return characters, nil
}

func (r *postgresCharacterRepository) handleCharacterError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "characters_owner_id_name_key" {
				return ErrCharacterNameConflict
			}
		case "23503":
			switch pqErr.Constraint {
			case "characters_group_id_fkey":
				return ErrCharacterInvalidGroup
			default:
				// Матчи завершённых турниров ссылаются на персонажа с ON DELETE RESTRICT.
				return ErrCharacterInUse
			}
		}
	}
	return err
}
