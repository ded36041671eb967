package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	conn *Connection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

const userColumns = `
	id, email, password_hash, first_name, last_name, student_id, faculty, role,
	total_points, current_streak, created_at, updated_at`

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create inserts the user and its empty statistics row in one transaction.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	const op = "CreateUser"

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	u.Email = user.NormalizeEmail(u.Email)

	err := r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (
				id, email, password_hash, first_name, last_name, student_id,
				faculty, role, total_points, current_streak, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, $9, $10)
		`,
			u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.StudentID,
			string(u.Faculty), string(u.Role), u.CreatedAt, u.UpdatedAt,
		)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO user_stats (user_id, updated_at) VALUES ($1, $2)`, u.ID, u.CreatedAt)
		return err
	})
	return storeError(op, err)
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return r.scanUser("GetUser", row)
}

// GetByEmail returns a user by normalized e-mail.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, user.NormalizeEmail(email))
	return r.scanUser("GetUserByEmail", row)
}

// List returns a page of users, newest first.
func (r *UserRepository) List(ctx context.Context, opts user.ListOptions) ([]*user.User, int, error) {
	const op = "ListUsers"

	var role *string
	if opts.Role != "" {
		s := string(opts.Role)
		role = &s
	}
	var limit *int
	if opts.Limit > 0 {
		limit = &opts.Limit
	}

	var total int
	if err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE ($1::text IS NULL OR role = $1)`, role,
	).Scan(&total); err != nil {
		return nil, 0, storeError(op, err)
	}

	rows, err := r.conn.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1::text IS NULL OR role = $1)
		ORDER BY created_at DESC, id ASC
		LIMIT $2 OFFSET $3
	`, role, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, 0, storeError(op, err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		u, err := r.scanUser(op, rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeError(op, err)
	}
	return users, total, nil
}

// UpdateRole changes the role of a user.
func (r *UserRepository) UpdateRole(ctx context.Context, id string, role user.Role) error {
	return r.update(ctx, "UpdateRole",
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(role))
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, "UpdatePassword",
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
}

// Delete removes the user. Statistics, records and challenges cascade.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.update(ctx, "DeleteUser", `DELETE FROM users WHERE id = $1`, id)
}

func (r *UserRepository) update(ctx context.Context, op, sql string, args ...any) error {
	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return storeError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *UserRepository) scanUser(op string, row pgx.Row) (*user.User, error) {
	var (
		u       user.User
		faculty string
		role    string
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.StudentID,
		&faculty, &role, &u.TotalPoints, &u.CurrentStreak, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, storeError(op, err)
	}
	u.Faculty = user.Faculty(faculty)
	u.Role = user.Role(role)
	return &u, nil
}

// userExists distinguishes "no such user" from "no row for this user".
func userExists(ctx context.Context, q Querier, id string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}
