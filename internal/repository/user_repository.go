package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitale-labs/voucher-service/internal/model"
	"github.com/vitale-labs/voucher-service/internal/service"
)

const userColumns = `id, name, phone_no, city, role, is_verified, registered_by, created_at, updated_at`

// UserRepository provides data access for users using pgx.
type UserRepository struct {
	pool PoolInterface
}

// NewUserRepository creates a new UserRepository with the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// NewUserRepositoryWithPool creates a new UserRepository with a custom pool
// interface. This is primarily used for testing.
func NewUserRepositoryWithPool(pool PoolInterface) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.PhoneNo,
		&u.City,
		&u.Role,
		&u.IsVerified,
		&u.RegisteredBy,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Insert inserts a new user.
// Returns service.ErrPhoneExists if the phone number is already registered;
// the users table carries a UNIQUE constraint on phone_no.
func (r *UserRepository) Insert(ctx context.Context, u *model.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, phone_no, city, role, is_verified, registered_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		u.ID, u.Name, u.PhoneNo, u.City, u.Role, u.IsVerified, u.RegisteredBy, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrPhoneExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID.
// Returns nil, nil if the user is not found (service layer handles this).
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// GetByPhone retrieves a user by phone number.
// Returns nil, nil if the user is not found.
func (r *UserRepository) GetByPhone(ctx context.Context, phoneNo string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone_no = $1`, phoneNo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	return u, nil
}

// Update writes the mutable user fields.
func (r *UserRepository) Update(ctx context.Context, u *model.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $1, city = $2, role = $3, updated_at = now() WHERE id = $4`,
		u.Name, u.City, u.Role, u.ID)
	if err != nil {
		return fmt.Errorf("update user %s: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrUserNotFound
	}
	return nil
}

// MarkVerified sets is_verified after a successful OTP verification.
func (r *UserRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_verified = TRUE, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark user %s verified: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrUserNotFound
	}
	return nil
}

// List retrieves all users ordered by creation time, newest first.
func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, nil
}
