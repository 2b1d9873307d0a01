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
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrTournamentInvalidOwner  = errors.New("invalid owner reference")
	ErrTournamentInvalidWinner = errors.New("invalid winner reference")
)

type ListTournamentsFilter struct {
	OwnerID int
	Status  *models.TournamentStatus
	Format  *string
	Limit   int
	Offset  int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateStatusAndWinner(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus, winnerID *int) error
	Delete(ctx context.Context, id int) error
	CountByOwnerAndStatus(ctx context.Context, ownerID int, status models.TournamentStatus) (int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	// winner_id не задаётся при создании
	query := `
		INSERT INTO tournaments (owner_id, name, format, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		t.OwnerID, t.Name, t.Format, t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `
		SELECT id, owner_id, name, format, status, winner_id, created_at, updated_at
		FROM tournaments
		WHERE id = $1`

	t := &models.Tournament{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.OwnerID, &t.Name, &t.Format, &t.Status, &t.WinnerID,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `
		SELECT id, owner_id, name, format, status, winner_id, created_at, updated_at
		FROM tournaments
		WHERE owner_id = $1`

	args := []interface{}{filter.OwnerID}
	argID := 2

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Format != nil {
		query += fmt.Sprintf(" AND format = $%d", argID)
		args = append(args, *filter.Format)
		argID++
	}

	query += " ORDER BY created_at DESC, id DESC"

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

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID, &t.OwnerID, &t.Name, &t.Format, &t.Status, &t.WinnerID,
			&t.CreatedAt, &t.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tournaments, nil
}

// UpdateStatusAndWinner вызывается после каждого решения: статус и победитель
// меняются вместе с updated_at в той же транзакции, что и строки матчей.
func (r *postgresTournamentRepository) UpdateStatusAndWinner(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus, winnerID *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1, winner_id = $2, updated_at = NOW() WHERE id = $3`

	result, err := executor.ExecContext(ctx, query, status, winnerID, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	// Строки матчей удаляются каскадно.
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) CountByOwnerAndStatus(ctx context.Context, ownerID int, status models.TournamentStatus) (int, error) {
	query := `SELECT COUNT(*) FROM tournaments WHERE owner_id = $1 AND status = $2`
	var count int
	if err := r.db.QueryRowContext(ctx, query, ownerID, status).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "tournaments_owner_id_fkey":
				return ErrTournamentInvalidOwner
			case "tournaments_winner_id_fkey":
				return ErrTournamentInvalidWinner
			}
		}
	}
	return err
}
