package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/trainrup/billing/internal/errs"
	"github.com/trainrup/billing/internal/models"
)

// CreateClient inserts a new client for a trainer and returns its ID.
func (s *Storage) CreateClient(ctx context.Context, c models.Client) (int, error) {
	const op = "storage.CreateClient"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO clients (trainer_uid, first_name, last_name, email, phone, status)
			  VALUES ($1, $2, $3, $4, $5, 'active')
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		c.TrainerUID, c.FirstName, c.LastName, c.Email, c.Phone).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadClient returns a client owned by the given trainer. Ownership is part
// of the query, so cross-trainer reads come back as not found.
func (s *Storage) ReadClient(ctx context.Context, trainerUID string, id int) (*models.Client, error) {
	const op = "storage.ReadClient"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, trainer_uid, first_name, last_name, email, phone, status, created_at
			  FROM clients WHERE id = $1 AND trainer_uid = $2`
	var c models.Client
	var email sql.NullString
	err := s.DB.QueryRowContext(ctx, query, id, trainerUID).Scan(
		&c.ID, &c.TrainerUID, &c.FirstName, &c.LastName, &email, &c.Phone, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c.Email = email.String
	return &c, nil
}

// CountClients returns the number of clients a trainer currently has.
// The quota check reads this fresh on every onboarding attempt.
func (s *Storage) CountClients(ctx context.Context, trainerUID string) (int, error) {
	const op = "storage.CountClients"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM clients WHERE trainer_uid = $1`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, trainerUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
