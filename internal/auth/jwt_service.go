package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"kitchensink/internal/model"
)

// MinSecretLength is the minimum signing key length in bytes.
const MinSecretLength = 32

func init() {
	// exp is encoded with millisecond precision so tokens never expire before now+lifetime.
	jwt.TimePrecision = time.Millisecond
}

var (
	// ErrTokenExpired is returned for a correctly signed token past its exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned for tokens that cannot be parsed or lack required claims.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenBadSignature is returned when the signature or algorithm does not match.
	ErrTokenBadSignature = errors.New("token signature invalid")
)

// Claims represents JWT claims.
type Claims struct {
	Roles string `json:"roles"`
	jwt.RegisteredClaims
}

// RoleSet parses the roles claim.
func (c *Claims) RoleSet() model.RoleSet {
	return model.ParseRoleSet(c.Roles)
}

// AccessTokenCodec issues and verifies signed access tokens.
type AccessTokenCodec interface {
	Issue(username string, roles model.RoleSet) (string, error)
	Verify(token string) (*Claims, error)
	Subject(token string) (string, error)
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

var _ AccessTokenCodec = (*JWTService)(nil)

// NewJWTService creates a new JWT service with the given secret and access-token lifetime.
func NewJWTService(secret string, lifetime time.Duration) (*JWTService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("access token lifetime must be positive, got %s", lifetime)
	}
	return &JWTService{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// WithClock replaces the time source used for iat, exp and expiry checks.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

// Lifetime returns the configured access-token lifetime.
func (s *JWTService) Lifetime() time.Duration {
	return s.lifetime
}

// Issue signs a token for username carrying roles.
func (s *JWTService) Issue(username string, roles model.RoleSet) (string, error) {
	now := s.now()
	claims := &Claims{
		Roles: roles.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now.Truncate(time.Second)),
			ExpiresAt: &jwt.NumericDate{Time: ceilMillis(now.Add(s.lifetime))},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and then the expiry of tokenString. A token is
// valid strictly before its exp.
func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, fmt.Errorf("%w: %v", ErrTokenBadSignature, err)
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}
	if claims.ExpiresAt == nil {
		return nil, fmt.Errorf("%w: missing exp", ErrTokenMalformed)
	}
	// exp is decoded through a float; rounding restores the encoded millisecond.
	exp := claims.ExpiresAt.Time.Round(time.Millisecond)
	if !s.now().Before(exp) {
		return nil, ErrTokenExpired
	}
	claims.ExpiresAt = &jwt.NumericDate{Time: exp}
	return claims, nil
}

// Subject returns the sub claim of a valid token.
func (s *JWTService) Subject(tokenString string) (string, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ceilMillis rounds t up to the next whole millisecond.
func ceilMillis(t time.Time) time.Time {
	down := t.Truncate(time.Millisecond)
	if down.Equal(t) {
		return down
	}
	return down.Add(time.Millisecond)
}

// IsTokenError reports whether err came from access-token verification.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrTokenMalformed) || errors.Is(err, ErrTokenBadSignature)
}
