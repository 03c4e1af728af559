package middleware

import (
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"kitchensink/internal/auth"
	apperrors "kitchensink/internal/errors"
	"kitchensink/internal/model"
)

const claimsKey = "claims"

const (
	reasonBadToken     = "Invalid or expired access token"
	reasonUnauthorized = "Full authentication is required to access this resource"
)

// Authenticate verifies the bearer token, when one is sent, and attaches the
// caller to the request context. Requests without a bearer token continue as
// anonymous; requests with a bad token are rejected with 401.
func Authenticate(codec auth.AccessTokenCodec, logger *zap.Logger) echo.MiddlewareFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	verify := echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := codec.Verify(token)
			if err != nil {
				return nil, err
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if auth.IsTokenError(err) {
				req := c.Request()
				logger.Warn("access token rejected",
					zap.String("method", req.Method),
					zap.String("uri", req.RequestURI),
					zap.String("remote_addr", req.RemoteAddr),
					zap.Error(err),
				)
				return apperrors.Unauthorized(reasonBadToken)
			}
			// No bearer token: continue without an identity.
			return nil
		},
		ContinueOnIgnoredError: true,
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(attachIdentity(next))
	}
}

func attachIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity := auth.Anonymous
		if claims, ok := c.Get(claimsKey).(*auth.Claims); ok {
			identity = auth.CallerIdentity{
				Username:      claims.Subject,
				Roles:         claims.RoleSet(),
				Authenticated: true,
			}
		}
		req := c.Request()
		c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), identity)))
		return next(c)
	}
}

// RequireRole rejects anonymous callers with 401 and callers lacking role with 403.
func RequireRole(role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := auth.IdentityFromContext(c.Request().Context())
			if !identity.Authenticated {
				return apperrors.Unauthorized(reasonUnauthorized)
			}
			if !identity.HasRole(role) {
				return apperrors.ErrForbidden
			}
			return next(c)
		}
	}
}

// Caller returns the identity attached by Authenticate.
func Caller(c echo.Context) auth.CallerIdentity {
	return auth.IdentityFromContext(c.Request().Context())
}
