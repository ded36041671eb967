package user

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository is the account store.
type Repository interface {
	// Create inserts a new user together with an empty statistics row.
	// Returns shared.ErrEmailTaken or shared.ErrStudentIDTaken on duplicates.
	Create(ctx context.Context, u *User) error

	// GetByID returns shared.ErrUserNotFound when no such user exists.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail looks up a user by normalized e-mail.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// List returns one page of users ordered by creation time (newest first)
	// together with the number of users matching the filter.
	List(ctx context.Context, opts ListOptions) ([]*User, int, error)

	// UpdateRole changes the role of a user.
	UpdateRole(ctx context.Context, id string, role Role) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// Delete removes a user with all score records and statistics.
	Delete(ctx context.Context, id string) error
}

// ListOptions holds pagination for the admin user listing.
type ListOptions struct {
	// Offset is the number of users to skip.
	Offset int

	// Limit is the maximum number of users to return.
	Limit int

	// Role filters by role when non-empty.
	Role Role
}

// DefaultListOptions returns the first page of 50 users.
func DefaultListOptions() ListOptions {
	return ListOptions{Offset: 0, Limit: 50}
}
