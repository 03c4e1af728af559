package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"kitchensink/internal/auth"
	"kitchensink/internal/config"
	apperrors "kitchensink/internal/errors"
	"kitchensink/internal/handler"
	"kitchensink/internal/middleware"
	"kitchensink/internal/model"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth    *handler.AuthHandler
	User    *handler.UserHandler
	Contact *handler.ContactHandler
}

// Register wires routes and middleware. A nil gatherer leaves /metrics unmounted.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *zap.Logger,
	codec auth.AccessTokenCodec,
	gatherer prometheus.Gatherer,
	h Handlers,
) {
	e.HTTPErrorHandler = apperrors.NewHTTPErrorHandler(logger, nil)
	e.Validator = NewValidator()

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())
	if len(cfg.CORSAllowedOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: cfg.CORSAllowedOrigins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api", middleware.Authenticate(codec, logger))
	if cfg.RequestTimeout > 0 {
		api.Use(echomw.ContextTimeout(cfg.RequestTimeout))
	}

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh-token", h.Auth.RefreshToken)
	api.POST("/auth/logout", h.Auth.Logout)

	// Contacts owned by the caller
	contacts := api.Group("/kitchensink/contacts", middleware.RequireRole(model.RoleUser))
	contacts.POST("", h.Contact.CreateContact)
	contacts.GET("", h.Contact.ListOwnContacts)
	contacts.GET("/:id", h.Contact.GetOwnContact)
	contacts.PUT("/:id", h.Contact.UpdateOwnContact)
	contacts.DELETE("/:id", h.Contact.DeleteOwnContact)

	// Administration
	admin := api.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/users", h.User.ListUsers)
	admin.GET("/users/:id", h.User.GetUser)
	admin.PUT("/users/:id", h.User.UpdateUser)
	admin.DELETE("/users/:id", h.User.DeleteUser)
	admin.GET("/contacts", h.Contact.ListContacts)
	admin.GET("/contacts/:id", h.Contact.GetContact)
	admin.PUT("/contacts/:id", h.Contact.UpdateContact)
	admin.DELETE("/contacts/:id", h.Contact.DeleteContact)
}
