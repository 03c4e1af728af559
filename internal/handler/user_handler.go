package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "kitchensink/internal/errors"
	"kitchensink/internal/middleware"
	"kitchensink/internal/model"
	"kitchensink/internal/service"
)

// UserHandler serves the admin user endpoints.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UserUpdateRequest is the body of PUT /admin/users/{id}.
type UserUpdateRequest struct {
	Username string       `json:"username" validate:"required,min=8,max=30,alphanum"`
	Email    string       `json:"email" validate:"omitempty,email,max=100"`
	Password string       `json:"password" validate:"omitempty,min=8,max=120"`
	Roles    []model.Role `json:"roles" validate:"omitempty,dive,role"`
}

// ListUsers godoc
// @Summary List users
// @Tags admin
// @Produce json
// @Success 200 {array} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser godoc
// @Summary Get user by id
// @Tags admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := pathID(c, apperrors.UserNotFound)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser godoc
// @Summary Update user
// @Description Admins cannot edit their own account.
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body UserUpdateRequest true "User data"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id} [put]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := pathID(c, apperrors.UserNotFound)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	actor := middleware.Caller(c).Username

	// Self-edit is refused whatever the body holds.
	if err := h.svc.EnsureNotSelf(ctx, actor, id); err != nil {
		return err
	}

	var req UserUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.svc.UpdateUser(ctx, actor, id, service.UserUpdate{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Delete user
// @Tags admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /admin/users/{id} [delete]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id, err := pathID(c, apperrors.UserNotFound)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}
