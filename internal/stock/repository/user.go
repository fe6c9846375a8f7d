package repository

import (
	"context"

	"github.com/lib/pq"
	"github.com/shopstock/stock-backend/internal/stock/domain"
)

// userRow carries the groups array, which the domain type does not map.
type userRow struct {
	domain.StockUser
	Groups pq.StringArray `db:"groups"`
}

func (r userRow) user() *domain.StockUser {
	u := r.StockUser
	u.Groups = []string(r.Groups)
	if u.Groups == nil {
		u.Groups = []string{}
	}
	return &u
}

const userColumns = `user_id, username, email, groups, is_active, updated_at`

// UserRepository handles the local user cache fed by identity events
type UserRepository struct {
	q Querier
}

// NewUserRepository creates a new user repository
func NewUserRepository(q Querier) *UserRepository {
	return &UserRepository{q: q}
}

// GetUser gets a user by ID
func (r *UserRepository) GetUser(ctx context.Context, userID string) (*domain.StockUser, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM stock_users WHERE user_id = $1`
	if err := r.q.GetContext(ctx, &row, query, userID); err != nil {
		return nil, notFound(err, "user")
	}
	return row.user(), nil
}

// GetUserByUsername gets an active user by username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.StockUser, error) {
	var row userRow
	query := `SELECT ` + userColumns + ` FROM stock_users WHERE username = $1 AND is_active`
	if err := r.q.GetContext(ctx, &row, query, username); err != nil {
		return nil, notFound(err, "user")
	}
	return row.user(), nil
}

// UpsertUser creates or updates a user
func (r *UserRepository) UpsertUser(ctx context.Context, u *domain.StockUser) error {
	query := `
		INSERT INTO stock_users (user_id, username, email, groups, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			groups = EXCLUDED.groups,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
	`
	_, err := rowsAffected(r.q.ExecContext(ctx, query,
		u.UserID, u.Username, u.Email, pq.Array(u.Groups), u.IsActive,
	))
	return err
}

// DeactivateUser marks a user inactive; holdings are kept
func (r *UserRepository) DeactivateUser(ctx context.Context, userID string) error {
	query := `UPDATE stock_users SET is_active = FALSE, updated_at = NOW() WHERE user_id = $1`
	_, err := rowsAffected(r.q.ExecContext(ctx, query, userID))
	return err
}

// ListUsersInGroup lists active members of a group
func (r *UserRepository) ListUsersInGroup(ctx context.Context, group string) ([]domain.StockUser, error) {
	query := `SELECT ` + userColumns + ` FROM stock_users WHERE is_active AND $1 = ANY(groups) ORDER BY username`

	var rows []userRow
	if err := r.q.SelectContext(ctx, &rows, query, group); err != nil {
		return nil, err
	}

	users := make([]domain.StockUser, 0, len(rows))
	for _, row := range rows {
		users = append(users, *row.user())
	}
	return users, nil
}
