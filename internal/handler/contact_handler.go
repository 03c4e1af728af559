package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "kitchensink/internal/errors"
	"kitchensink/internal/middleware"
	"kitchensink/internal/service"
)

// ContactHandler serves the owner-scoped and admin contact endpoints.
type ContactHandler struct {
	svc service.ContactService
}

// NewContactHandler creates a contact handler.
func NewContactHandler(svc service.ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

// ContactRequest is the body of contact create and update requests.
type ContactRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100,personname"`
	Email       string `json:"email" validate:"required,email,max=100"`
	PhoneNumber string `json:"phoneNumber" validate:"required,phone"`
}

func (r ContactRequest) input() service.ContactInput {
	return service.ContactInput{Name: r.Name, Email: r.Email, PhoneNumber: r.PhoneNumber}
}

// CreateContact godoc
// @Summary Create contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param request body ContactRequest true "Contact data"
// @Success 200 {object} model.Contact
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /kitchensink/contacts [post]
func (h *ContactHandler) CreateContact(c echo.Context) error {
	var req ContactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	contact, err := h.svc.CreateContact(c.Request().Context(), req.input(), middleware.Caller(c).Username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

// ListOwnContacts godoc
// @Summary List the caller's contacts
// @Tags contacts
// @Produce json
// @Success 200 {array} model.Contact
// @Failure 401 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /kitchensink/contacts [get]
func (h *ContactHandler) ListOwnContacts(c echo.Context) error {
	contacts, err := h.svc.ListContactsByOwner(c.Request().Context(), middleware.Caller(c).Username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contacts)
}

// GetOwnContact godoc
// @Summary Get one of the caller's contacts
// @Tags contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} model.Contact
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /kitchensink/contacts/{id} [get]
func (h *ContactHandler) GetOwnContact(c echo.Context) error {
	id, err := pathID(c, apperrors.ContactNotFound)
	if err != nil {
		return err
	}
	contact, err := h.svc.GetOwnedContact(c.Request().Context(), id, middleware.Caller(c).Username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

// UpdateOwnContact godoc
// @Summary Update one of the caller's contacts
// @Tags contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param request body ContactRequest true "Contact data"
// @Success 200 {object} model.Contact
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /kitchensink/contacts/{id} [put]
func (h *ContactHandler) UpdateOwnContact(c echo.Context) error {
	id, err := pathID(c, apperrors.ContactNotFound)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.svc.GetOwnedContact(ctx, id, middleware.Caller(c).Username); err != nil {
		return err
	}

	var req ContactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	contact, err := h.svc.UpdateContact(ctx, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

// DeleteOwnContact godoc
// @Summary Delete one of the caller's contacts
// @Tags contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /kitchensink/contacts/{id} [delete]
func (h *ContactHandler) DeleteOwnContact(c echo.Context) error {
	id, err := pathID(c, apperrors.ContactNotFound)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.svc.GetOwnedContact(ctx, id, middleware.Caller(c).Username); err != nil {
		return err
	}
	if err := h.svc.DeleteContact(ctx, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Contact deleted successfully"})
}

// ListContacts godoc
// @Summary List all contacts
// @Tags admin
// @Produce json
// @Success 200 {array} model.Contact
// @Failure 403 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /admin/contacts [get]
func (h *ContactHandler) ListContacts(c echo.Context) error {
	contacts, err := h.svc.ListContacts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contacts)
}

// GetContact godoc
// @Summary Get any contact
// @Tags admin
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} model.Contact
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /admin/contacts/{id} [get]
func (h *ContactHandler) GetContact(c echo.Context) error {
	id, err := pathID(c, apperrors.ContactNotFound)
	if err != nil {
		return err
	}
	contact, err := h.svc.GetContact(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

// UpdateContact godoc
// @Summary Update any contact
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param request body ContactRequest true "Contact data"
// @Success 200 {object} model.Contact
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /admin/contacts/{id} [put]
func (h *ContactHandler) UpdateContact(c echo.Context) error {
	id, err := pathID(c, apperrors.ContactNotFound)
	if err != nil {
		return err
	}
	var req ContactRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	contact, err := h.svc.UpdateContact(c.Request().Context(), id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

// DeleteContact godoc
// @Summary Delete any contact
// @Tags admin
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Security BearerAuth
// @Router /admin/contacts/{id} [delete]
func (h *ContactHandler) DeleteContact(c echo.Context) error {
	id, err := pathID(c, apperrors.ContactNotFound)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteContact(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Contact deleted successfully"})
}
