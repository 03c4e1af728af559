package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"bad credentials", ErrBadCredentials, http.StatusUnauthorized, "Invalid username or password"},
		{"wrapped bad credentials", fmt.Errorf("login: %w", ErrBadCredentials), http.StatusUnauthorized, "Invalid username or password"},
		{"invalid refresh token", ErrInvalidRefreshToken, http.StatusUnauthorized, "Invalid or expired refresh token"},
		{"unauthorized with reason", Unauthorized("token expired"), http.StatusUnauthorized, "Unauthorized: token expired"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "You don't have permission to access this resource"},
		{"username taken", ErrUsernameTaken, http.StatusBadRequest, "Username is already taken"},
		{"email taken", ErrEmailTaken, http.StatusBadRequest, "Email is already in use"},
		{"self edit", ErrSelfEditForbidden, http.StatusBadRequest, "You cannot edit your own user account."},
		{"contact email override", WithMessage(ErrDuplicateContactEmail, "Email is already in use"), http.StatusBadRequest, "Email is already in use"},
		{"user not found", UserNotFound("id", "42"), http.StatusNotFound, "User not found with id: '42'"},
		{"contact not found", ContactNotFound("id", "7"), http.StatusNotFound, "Contact not found with id: '7'"},
		{"internal", fmt.Errorf("dial tcp: refused"), http.StatusInternalServerError, "dial tcp: refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, he.StatusCode)
			assert.Equal(t, tt.wantMessage, he.Message)
			assert.Nil(t, he.Fields)
		})
	}
}

func TestMapErrorToHTTP_Validation(t *testing.T) {
	err := fmt.Errorf("bind: %w", &ValidationError{Fields: map[string]string{"email": "must be a well-formed email address"}})

	he := MapErrorToHTTP(err)
	assert.Equal(t, http.StatusBadRequest, he.StatusCode)
	assert.Equal(t, map[string]string{"email": "must be a well-formed email address"}, he.Fields)
}

func TestHTTPErrorHandler(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	e := echo.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(nil, func() time.Time { return fixed })

	tests := []struct {
		name       string
		err        error
		wantStatus int
		check      func(t *testing.T, body []byte)
	}{
		{
			name:       "domain error",
			err:        ErrBadCredentials,
			wantStatus: http.StatusUnauthorized,
			check: func(t *testing.T, body []byte) {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, ErrorResponse{
					Timestamp: fixed,
					Status:    http.StatusUnauthorized,
					Error:     "Unauthorized",
					Message:   "Invalid username or password",
					Path:      "/api/auth/login",
				}, resp)
			},
		},
		{
			name:       "validation error",
			err:        &ValidationError{Fields: map[string]string{"username": "must not be blank"}},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body []byte) {
				var resp map[string]string
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, map[string]string{"username": "must not be blank"}, resp)
			},
		},
		{
			name:       "echo error",
			err:        echo.ErrNotFound,
			wantStatus: http.StatusNotFound,
			check: func(t *testing.T, body []byte) {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "Not Found", resp.Error)
				assert.Equal(t, "Not Found", resp.Message)
			},
		},
		{
			name:       "echo error wrapping a kind",
			err:        echo.NewHTTPError(http.StatusUnauthorized).SetInternal(Unauthorized("bad token")),
			wantStatus: http.StatusUnauthorized,
			check: func(t *testing.T, body []byte) {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "Unauthorized: bad token", resp.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			e.HTTPErrorHandler(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			tt.check(t, rec.Body.Bytes())
		})
	}
}
