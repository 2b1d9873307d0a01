// File: repositories/match_repository.go
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
	ErrMatchInvalidEntrant = errors.New("invalid entrant reference")
)

type MatchRepository interface {
	ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, matches []models.TournamentMatch) error
	ListByTournament(ctx context.Context, tournamentID int) ([]models.TournamentMatch, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceForTournament перезаписывает все ячейки сетки турнира целиком.
// Структура сетки детерминирована, поэтому частичные UPDATE не нужны.
// Если exec не является транзакцией, открывается собственная.
func (r *postgresMatchRepository) ReplaceForTournament(ctx context.Context, exec SQLExecutor, tournamentID int, matches []models.TournamentMatch) error {
	if tx, ok := r.getExecutor(exec).(*sql.Tx); ok {
		return r.replaceInTx(ctx, tx, tournamentID, matches)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace matches: failed to begin transaction: %w", err)
	}
	if err := r.replaceInTx(ctx, tx, tournamentID, matches); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace matches: failed to commit transaction: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) replaceInTx(ctx context.Context, tx *sql.Tx, tournamentID int, matches []models.TournamentMatch) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM tournament_matches WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("replace matches: failed to clear tournament %d: %w", tournamentID, err)
	}

	if len(matches) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tournament_matches (
			tournament_id, section, round, match_index,
			entrant1_id, entrant2_id, winner_id, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("replace matches: failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		_, err = stmt.ExecContext(ctx,
			tournamentID, m.Section, m.Round, m.MatchIndex,
			m.Entrant1ID, m.Entrant2ID, m.WinnerID, m.CompletedAt,
		)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
				switch pqErr.Constraint {
				case "tournament_matches_tournament_id_fkey":
					return ErrTournamentNotFound
				default:
					return ErrMatchInvalidEntrant
				}
			}
			return fmt.Errorf("replace matches: failed for cell %s/%d/%d: %w", m.Section, m.Round, m.MatchIndex, err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.TournamentMatch, error) {
	// Порядок соответствует обходу секций при построении сетки.
	query := `
		SELECT id, tournament_id, section, round, match_index,
		       entrant1_id, entrant2_id, winner_id, completed_at
		FROM tournament_matches
		WHERE tournament_id = $1
		ORDER BY
			CASE section
				WHEN 'winners' THEN 0
				WHEN 'losers' THEN 1
				ELSE 2
			END,
			round ASC, match_index ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]models.TournamentMatch, 0)
	for rows.Next() {
		var m models.TournamentMatch
		if scanErr := rows.Scan(
			&m.ID, &m.TournamentID, &m.Section, &m.Round, &m.MatchIndex,
			&m.Entrant1ID, &m.Entrant2ID, &m.WinnerID, &m.CompletedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return matches, nil
}
