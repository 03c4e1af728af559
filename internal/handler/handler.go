package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "kitchensink/internal/errors"
)

// bindAndValidate decodes the request body into req and runs the echo validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	return c.Validate(req)
}

// pathID parses the :id path parameter. Ids that are not UUIDs cannot name
// any record, so they are reported through notFound.
func pathID(c echo.Context, notFound func(field string, value interface{}) error) (uuid.UUID, error) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, notFound("id", raw)
	}
	return id, nil
}
