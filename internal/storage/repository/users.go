package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/trainrup/billing/internal/errs"
	"github.com/trainrup/billing/internal/models"
)

const userColumns = `uid, username, email, phone_number, password_hash, role,
	subscription_status, plan_type, client_limit, trial_start_date, trial_end_date,
	account_blocked, block_reason, blocked_at, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var blockReason sql.NullString
	err := row.Scan(&u.UID, &u.Username, &u.Email, &u.PhoneNumber, &u.PasswordHash,
		&u.Role, &u.SubscriptionStatus, &u.PlanType, &u.ClientLimit,
		&u.TrialStartDate, &u.TrialEndDate, &u.AccountBlocked, &blockReason,
		&u.BlockedAt, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.BlockReason = blockReason.String
	return &u, nil
}

// RegisterUser stores a new user and returns the generated uid.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	uid := uuid.NewString()
	query := `INSERT INTO users (uid, username, email, phone_number, password_hash, role,
			      subscription_status, plan_type, client_limit, trial_start_date, trial_end_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.DB.ExecContext(ctx, query,
		uid, user.Username, user.Email, user.PhoneNumber, user.PasswordHash, user.Role,
		user.SubscriptionStatus, user.PlanType, user.ClientLimit,
		user.TrialStartDate, user.TrialEndDate)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// GetUserByUsername returns a user by login name.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByUID returns a user by uid.
func (s *Storage) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	const op = "storage.GetUserByUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, uid))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateSubscription applies a partial subscription update: nil fields
// leave the stored value unchanged, extendTrialDays adds to the current
// trial end date so repeated extensions accumulate. An extension on an
// account without a trial end date starts counting from today.
func (s *Storage) UpdateSubscription(ctx context.Context, trainerUID string, upd models.DummySubscriptionUpdate) (int, error) {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET subscription_status = COALESCE($2, subscription_status),
			      plan_type = COALESCE($3, plan_type),
			      client_limit = COALESCE($4, client_limit),
			      trial_end_date = CASE WHEN $5::int IS NULL THEN trial_end_date
			                            ELSE COALESCE(trial_end_date, CURRENT_DATE) + make_interval(days => $5) END
			  WHERE uid = $1 AND role = 'trainer'`
	result, err := s.DB.ExecContext(ctx, query, trainerUID,
		upd.Status, upd.PlanType, upd.ClientLimit, upd.ExtendTrialDays)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// BlockUser raises the blocking overlay for a trainer.
func (s *Storage) BlockUser(ctx context.Context, trainerUID, reason string) (int, error) {
	const op = "storage.BlockUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET account_blocked = TRUE, block_reason = $2, blocked_at = NOW()
			  WHERE uid = $1 AND role = 'trainer'`
	result, err := s.DB.ExecContext(ctx, query, trainerUID, reason)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// UnblockUser clears the blocking overlay: flag, reason and timestamp.
func (s *Storage) UnblockUser(ctx context.Context, trainerUID string) (int, error) {
	const op = "storage.UnblockUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET account_blocked = FALSE, block_reason = NULL, blocked_at = NULL
			  WHERE uid = $1`
	result, err := s.DB.ExecContext(ctx, query, trainerUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// FindExpiredTrials returns trainers whose trial window has passed, who
// are still in trial or expired status and not yet blocked. Used by the
// external sweep, which blocks them through the same guarded operation
// an admin would use.
func (s *Storage) FindExpiredTrials(ctx context.Context) ([]*models.User, error) {
	const op = "storage.FindExpiredTrials"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE role = 'trainer'
			    AND subscription_status IN ('trial', 'expired')
			    AND trial_end_date < CURRENT_DATE
			    AND account_blocked = FALSE`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	return result, nil
}
