package command

import (
	"context"
	"strings"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// Creates a student account with a zeroed statistics row.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand contains the registration form.
type RegisterUserCommand struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	StudentID string
	Faculty   string
}

// RegisterUserResult describes the new account.
type RegisterUserResult struct {
	UserID  string
	Email   string
	Faculty user.Faculty
	Role    user.Role
}

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	users      user.Repository
	bcryptCost int
	hooks      Hooks
}

// NewRegisterUserHandler creates a new RegisterUserHandler. A zero bcryptCost
// selects the library default.
func NewRegisterUserHandler(users user.Repository, bcryptCost int, hooks Hooks) *RegisterUserHandler {
	return &RegisterUserHandler{users: users, bcryptCost: bcryptCost, hooks: hooks.withDefaults()}
}

// Handle validates the form and creates the account.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	faculty, err := user.Registration{
		Email:     cmd.Email,
		Password:  cmd.Password,
		FirstName: cmd.FirstName,
		LastName:  cmd.LastName,
		StudentID: cmd.StudentID,
		Faculty:   cmd.Faculty,
	}.Validate()
	if err != nil {
		return nil, err
	}

	hash, err := user.HashPassword(cmd.Password, h.bcryptCost)
	if err != nil {
		return nil, shared.WrapError("command", "RegisterUser", shared.ErrInvalidSubmission, "password cannot be hashed", err)
	}

	now := h.hooks.Now().UTC()
	u := &user.User{
		ID:           h.hooks.NewID(),
		Email:        user.NormalizeEmail(cmd.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(cmd.FirstName),
		LastName:     strings.TrimSpace(cmd.LastName),
		StudentID:    strings.TrimSpace(cmd.StudentID),
		Faculty:      faculty,
		Role:         user.RoleStudent,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.users.Create(ctx, u); err != nil {
		return nil, err
	}

	h.hooks.Logger.Info("user registered", logger.UserID(u.ID), logger.String("faculty", string(faculty)))
	h.hooks.afterCommit(ctx, shared.NewUserRegisteredEvent(u.ID, u.Email, string(faculty)))

	return &RegisterUserResult{UserID: u.ID, Email: u.Email, Faculty: faculty, Role: u.Role}, nil
}
