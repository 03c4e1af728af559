package router

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "kitchensink/internal/errors"
	"kitchensink/internal/model"
)

var (
	personNamePattern = regexp.MustCompile(`^[A-Za-z]+(?: [A-Za-z]+)*$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9\s\-()]{10,11}$`)
)

// fieldMessages holds the client-facing message for a field and rule,
// keyed "field.tag". Rules sharing a message use the field name alone.
var fieldMessages = map[string]string{
	"username.required":    "Username is required",
	"username":             "Username must be between 8 and 30 characters",
	"username.alphanum":    "Username can only contain letters and numbers",
	"email.required":       "Email is required",
	"email.email":          "Email should be valid",
	"email.max":            "Email must not exceed 100 characters",
	"password.required":    "Password is required",
	"password":             "Password must be between 8 and 120 characters",
	"name.required":        "Name is required",
	"name":                 "Name must be between 2 and 100 characters",
	"name.personname":      "Name can only contain alphabets and single spaces between words",
	"phoneNumber.required": "Phone number is required",
	"phoneNumber":          "Phone number must be a valid format (digits, optional +, spaces, dashes, parentheses allowed)",
	"refreshToken":         "Refresh token is required",
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator builds the request validator with the kitchensink rules registered.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return model.Role(fl.Field().String()).Valid()
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface. Failures are returned as a
// ValidationError keyed by JSON field name.
func (cv *CustomValidator) Validate(i interface{}) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.BadRequest(err.Error())
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fe.Field()
		if _, seen := fields[name]; seen {
			continue
		}
		fields[name] = messageFor(fe)
	}
	return &apperrors.ValidationError{Fields: fields}
}

func messageFor(fe validator.FieldError) string {
	field := fe.Field()
	if msg, ok := fieldMessages[field+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := fieldMessages[field]; ok {
		return msg
	}
	if fe.Tag() == "role" {
		return fmt.Sprintf("Unknown role %q", fe.Value())
	}
	return fmt.Sprintf("%s failed on the '%s' rule", field, fe.Tag())
}
