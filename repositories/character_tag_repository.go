// File: repositories/character_tag_repository.go
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/charabracket/charabracket/models"
	"github.com/lib/pq"
)

type CharacterTagRepository interface {
	Set(ctx context.Context, exec SQLExecutor, characterID int, tagIDs []int) error
	ListByCharacter(ctx context.Context, characterID int) ([]models.Tag, error)
	MapByCharacterIDs(ctx context.Context, characterIDs []int) (map[int][]models.Tag, error)
}

type postgresCharacterTagRepository struct {
	db *sql.DB
}

func NewPostgresCharacterTagRepository(db *sql.DB) CharacterTagRepository {
	return &postgresCharacterTagRepository{db: db}
}

func (r *postgresCharacterTagRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// Set заменяет полный набор тегов персонажа. Удаление и вставка должны
// происходить в одной транзакции, иначе при ошибке останется пустой набор.
// Если exec не является транзакцией, открывается собственная.
func (r *postgresCharacterTagRepository) Set(ctx context.Context, exec SQLExecutor, characterID int, tagIDs []int) error {
	if tx, ok := r.getExecutor(exec).(*sql.Tx); ok {
		return r.setInTx(ctx, tx, characterID, tagIDs)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set character tags: failed to begin transaction: %w", err)
	}
	if err := r.setInTx(ctx, tx, characterID, tagIDs); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set character tags: failed to commit transaction: %w", err)
	}
	return nil
}

func (r *postgresCharacterTagRepository) setInTx(ctx context.Context, tx *sql.Tx, characterID int, tagIDs []int) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM character_tags WHERE character_id = $1`, characterID); err != nil {
		return fmt.Errorf("set character tags: failed to clear existing: %w", err)
	}

	if len(tagIDs) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO character_tags (character_id, tag_id) VALUES ($1, $2)`)
	if err != nil {
		return fmt.Errorf("set character tags: failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, tagID := range tagIDs {
		if _, err = stmt.ExecContext(ctx, characterID, tagID); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
				if pqErr.Constraint == "character_tags_tag_id_fkey" {
					return ErrTagNotFound
				}
				if pqErr.Constraint == "character_tags_character_id_fkey" {
					return ErrCharacterNotFound
				}
			}
			return fmt.Errorf("set character tags: failed for tag_id %d: %w", tagID, err)
		}
	}
	return nil
}

func (r *postgresCharacterTagRepository) ListByCharacter(ctx context.Context, characterID int) ([]models.Tag, error) {
	query := `
		SELECT t.id, t.owner_id, t.name, t.created_at
		FROM character_tags ct
		JOIN tags t ON ct.tag_id = t.id
		WHERE ct.character_id = $1
		ORDER BY t.name ASC`

	rows, err := r.db.QueryContext(ctx, query, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags for character %d: %w", characterID, err)
	}
	defer rows.Close()

	tags := make([]models.Tag, 0)
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.OwnerID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan character tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// MapByCharacterIDs загружает теги сразу для набора персонажей одним запросом.
func (r *postgresCharacterTagRepository) MapByCharacterIDs(ctx context.Context, characterIDs []int) (map[int][]models.Tag, error) {
	result := make(map[int][]models.Tag, len(characterIDs))
	if len(characterIDs) == 0 {
		return result, nil
	}

	query := `
		SELECT ct.character_id, t.id, t.owner_id, t.name, t.created_at
		FROM character_tags ct
		JOIN tags t ON ct.tag_id = t.id
		WHERE ct.character_id = ANY($1)
		ORDER BY t.name ASC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(characterIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to map tags by character ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var characterID int
		var tag models.Tag
		if err := rows.Scan(&characterID, &tag.ID, &tag.OwnerID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan character tag row: %w", err)
		}
		result[characterID] = append(result[characterID], tag)
	}
	return result, rows.Err()
}
