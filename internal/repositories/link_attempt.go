package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aikosys/patronlink/internal/models"
	"github.com/aikosys/patronlink/internal/shared"
)

// LinkAttemptRepository implements [models.Repository] for [models.LinkAttempt] persistence.
type LinkAttemptRepository struct {
	db *sql.DB
}

// NewLinkAttemptRepository creates a new [LinkAttemptRepository] with the given database connection
func NewLinkAttemptRepository(db *sql.DB) *LinkAttemptRepository {
	return &LinkAttemptRepository{db: db}
}

// Create inserts a new link attempt into the database with generated ID and sequence
func (r *LinkAttemptRepository) Create(attempt *models.LinkAttempt) error {
	sequence, err := NextSequence(r.db, "link_attempts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	attempt.SetSequence(sequence)

	id := shared.GenerateID()
	attempt.SetID(id)

	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO link_attempts (id, sequence, discord_user_id, patreon_user_id, outcome, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, attempt.DiscordUserID(), attempt.PatreonUserID(),
		attempt.Outcome(), attempt.CreatedAt(), attempt.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert link attempt: %w", err)
	}

	return nil
}

// Get retrieves a link attempt by ID
func (r *LinkAttemptRepository) Get(id string) (*models.LinkAttempt, error) {
	query := `
		SELECT id, sequence, discord_user_id, patreon_user_id, outcome, created_at, updated_at
		FROM link_attempts
		WHERE id = ?
	`
	attempt, err := r.scanOne(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("link attempt not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query link attempt: %w", err)
	}
	return attempt, nil
}

// Update modifies an existing link attempt's outcome
func (r *LinkAttemptRepository) Update(attempt *models.LinkAttempt) error {
	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	attempt.SetUpdatedAt(now)

	query := `
		UPDATE link_attempts
		SET outcome = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, attempt.Outcome(), now, attempt.ID())
	if err != nil {
		return fmt.Errorf("failed to update link attempt: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("link attempt not found: %s", attempt.ID())
	}

	return nil
}

// Delete removes a link attempt by ID
func (r *LinkAttemptRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM link_attempts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete link attempt: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("link attempt not found: %s", id)
	}

	return nil
}

// List retrieves link attempts matching the given criteria, newest first.
//
// Supported criteria keys: "outcome", "discord_user_id".
func (r *LinkAttemptRepository) List(criteria map[string]any) ([]*models.LinkAttempt, error) {
	query := `
		SELECT id, sequence, discord_user_id, patreon_user_id, outcome, created_at, updated_at
		FROM link_attempts
	`

	var conditions []string
	var args []any
	for _, key := range []string{"outcome", "discord_user_id"} {
		if value, ok := criteria[key]; ok {
			conditions = append(conditions, key+" = ?")
			args = append(args, value)
		}
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query link attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.LinkAttempt
	for rows.Next() {
		attempt, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *LinkAttemptRepository) scanOne(row *sql.Row) (*models.LinkAttempt, error) {
	return scanAttempt(row)
}

func (r *LinkAttemptRepository) scanRow(rows *sql.Rows) (*models.LinkAttempt, error) {
	return scanAttempt(rows)
}

func scanAttempt(s scanner) (*models.LinkAttempt, error) {
	var (
		id            string
		sequence      int
		discordUserID string
		patreonUserID string
		outcome       string
		createdAt     time.Time
		updatedAt     time.Time
	)

	if err := s.Scan(&id, &sequence, &discordUserID, &patreonUserID, &outcome, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	attempt := models.NewLinkAttempt(sequence, discordUserID, patreonUserID, outcome)
	attempt.SetID(id)
	attempt.SetCreatedAt(createdAt)
	attempt.SetUpdatedAt(updatedAt)

	return attempt, nil
}
