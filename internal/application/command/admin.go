package command

import (
	"context"

	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/shared"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/internal/domain/user"
	"github.com/KynKind/KopiO-Sustainable-Society-Project/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN COMMANDS
// The caller is authorized as admin by the interface layer.
// ══════════════════════════════════════════════════════════════════════════════

// ─────────────────────────────────────────────────────────────────────────────
// Update role
// ─────────────────────────────────────────────────────────────────────────────

// UpdateUserRoleCommand changes the role of a user.
type UpdateUserRoleCommand struct {
	ActorID string
	UserID  string
	Role    user.Role
}

// Validate validates the command.
func (c UpdateUserRoleCommand) Validate() error {
	if c.UserID == "" {
		return shared.InvalidSubmission("command", "UpdateUserRole", "user id is required")
	}
	if !c.Role.IsValid() {
		return shared.InvalidSubmission("command", "UpdateUserRole", "invalid role %q", c.Role)
	}
	return nil
}

// UpdateUserRoleHandler handles the UpdateUserRoleCommand.
type UpdateUserRoleHandler struct {
	users user.Repository
	hooks Hooks
}

// NewUpdateUserRoleHandler creates a new UpdateUserRoleHandler.
func NewUpdateUserRoleHandler(users user.Repository, hooks Hooks) *UpdateUserRoleHandler {
	return &UpdateUserRoleHandler{users: users, hooks: hooks.withDefaults()}
}

// Handle updates the role. Role changes move users in or out of the leaderboard.
func (h *UpdateUserRoleHandler) Handle(ctx context.Context, cmd UpdateUserRoleCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := h.users.UpdateRole(ctx, cmd.UserID, cmd.Role); err != nil {
		return err
	}
	h.hooks.Logger.Info("user role updated",
		logger.UserID(cmd.UserID),
		logger.String("actor_id", cmd.ActorID),
		logger.String("role", string(cmd.Role)),
	)
	h.hooks.afterCommit(ctx, shared.NewUserRoleChangedEvent(cmd.UserID, string(cmd.Role)))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete user
// ─────────────────────────────────────────────────────────────────────────────

// DeleteUserCommand removes a user and everything they own.
type DeleteUserCommand struct {
	ActorID string
	UserID  string
}

// DeleteUserHandler handles the DeleteUserCommand.
type DeleteUserHandler struct {
	users user.Repository
	hooks Hooks
}

// NewDeleteUserHandler creates a new DeleteUserHandler.
func NewDeleteUserHandler(users user.Repository, hooks Hooks) *DeleteUserHandler {
	return &DeleteUserHandler{users: users, hooks: hooks.withDefaults()}
}

// Handle deletes the user. Admins cannot delete themselves.
func (h *DeleteUserHandler) Handle(ctx context.Context, cmd DeleteUserCommand) error {
	if cmd.UserID == "" {
		return shared.InvalidSubmission("command", "DeleteUser", "user id is required")
	}
	if cmd.UserID == cmd.ActorID {
		return shared.ErrSelfDelete
	}
	if err := h.users.Delete(ctx, cmd.UserID); err != nil {
		return err
	}
	h.hooks.Logger.Info("user deleted", logger.UserID(cmd.UserID), logger.String("actor_id", cmd.ActorID))
	h.hooks.afterCommit(ctx, shared.NewUserDeletedEvent(cmd.UserID, cmd.ActorID))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reset password
// ─────────────────────────────────────────────────────────────────────────────

// ResetUserPasswordCommand sets a new password for a user.
type ResetUserPasswordCommand struct {
	ActorID     string
	UserID      string
	NewPassword string
}

// ResetUserPasswordHandler handles the ResetUserPasswordCommand.
type ResetUserPasswordHandler struct {
	users      user.Repository
	bcryptCost int
	hooks      Hooks
}

// NewResetUserPasswordHandler creates a new ResetUserPasswordHandler.
func NewResetUserPasswordHandler(users user.Repository, bcryptCost int, hooks Hooks) *ResetUserPasswordHandler {
	return &ResetUserPasswordHandler{users: users, bcryptCost: bcryptCost, hooks: hooks.withDefaults()}
}

// Handle validates the password against the policy and stores its hash.
func (h *ResetUserPasswordHandler) Handle(ctx context.Context, cmd ResetUserPasswordCommand) error {
	if cmd.UserID == "" {
		return shared.InvalidSubmission("command", "ResetUserPassword", "user id is required")
	}
	if err := user.ValidatePassword(cmd.NewPassword); err != nil {
		return err
	}
	hash, err := user.HashPassword(cmd.NewPassword, h.bcryptCost)
	if err != nil {
		return shared.WrapError("command", "ResetUserPassword", shared.ErrInvalidSubmission, "password cannot be hashed", err)
	}
	if err := h.users.UpdatePassword(ctx, cmd.UserID, hash); err != nil {
		return err
	}
	h.hooks.Logger.Info("user password reset", logger.UserID(cmd.UserID), logger.String("actor_id", cmd.ActorID))
	return nil
}
