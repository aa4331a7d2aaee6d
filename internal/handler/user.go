package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/gitgate/internal/model"
	"github.com/sakif/gitgate/internal/repository"
)

// UserHandler exposes direct user management, separate from the OAuth flow.
// Today that's a single endpoint for provisioning users out-of-band (e.g.
// seeding or admin tooling).
type UserHandler struct {
	users    repository.UserRepository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users repository.UserRepository, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:    users,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// createUserRequest is the request body for HandleCreate. Validation is
// declared as struct tags; github_id is the only required field, mirroring
// the uniqueness anchor of the user record.
type createUserRequest struct {
	GitHubID  string `json:"github_id" validate:"required"`
	Username  string `json:"username"  validate:"omitempty,max=255"`
	Email     string `json:"email"     validate:"omitempty,email"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

// HandleCreate creates a user record directly.
//
// HTTP: POST /users
// 201 with {"success": true, "user": {...}} on success, 400 on a validation
// failure or duplicate github_id.
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	user := &model.User{
		GitHubID:  req.GitHubID,
		Username:  req.Username,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		h.logger.Error("create user failed",
			slog.String("githubID", req.GitHubID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user,
	})
}
