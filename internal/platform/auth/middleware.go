package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
	SessionIDKey contextKey = "session_id"
)

// DefaultIssuer is the iss claim placed on session tokens.
const DefaultIssuer = "hqrms"

var (
	ErrMissingToken = errors.New("missing authorization header")
	ErrInvalidToken = errors.New("invalid token")
	ErrRevokedToken = errors.New("token has been revoked")
)

// Claims carried by a session token. The JWT ID is the session id.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

type JWTConfig struct {
	Issuer     string
	SigningKey []byte
	// Revocations, when set, rejects tokens whose JTI has been revoked.
	Revocations *TokenRevocationStore
	// Skipper bypasses authentication for matching requests.
	Skipper func(c echo.Context) bool
}

// SignToken issues an HS256 token for the given claims.
func SignToken(cfg JWTConfig, claims Claims) (string, error) {
	if len(cfg.SigningKey) == 0 {
		return "", errors.New("signing key is not configured")
	}
	if claims.Issuer == "" {
		claims.Issuer = cfg.issuer()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return s, nil
}

// ParseToken verifies signature, issuer, expiry and revocation.
func ParseToken(cfg JWTConfig, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(cfg.issuer()),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if cfg.Revocations != nil && claims.ID != "" && cfg.Revocations.IsRevoked(claims.ID) {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

func (cfg JWTConfig) issuer() string {
	if cfg.Issuer == "" {
		return DefaultIssuer
	}
	return cfg.Issuer
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}
			return authenticate(cfg, c, next)
		}
	}
}

// requestToken reads the bearer token. Browsers cannot set headers on a
// websocket upgrade, so /ws may pass it as ?access_token= instead.
func requestToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get("Authorization")
	if header == "" && c.Request().URL.Path == "/ws" {
		if tok := c.QueryParam("access_token"); tok != "" {
			return tok, nil
		}
	}
	return bearerToken(header)
}

func hasCredentials(c echo.Context) bool {
	_, err := requestToken(c)
	return !errors.Is(err, ErrMissingToken)
}

func authenticate(cfg JWTConfig, c echo.Context, next echo.HandlerFunc) error {
	tokenStr, err := requestToken(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	claims, err := ParseToken(cfg, tokenStr)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	c.SetRequest(c.Request().WithContext(WithClaims(c.Request().Context(), claims)))
	return next(c)
}

// WithClaims stores the identity from claims on ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
	ctx = context.WithValue(ctx, UserRolesKey, []string{claims.Role})
	ctx = context.WithValue(ctx, SessionIDKey, claims.ID)
	return ctx
}

// DevAuthMiddleware lets requests without credentials through as an admin.
// A request that does carry a token is still verified.
func DevAuthMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}
			if !hasCredentials(c) {
				ctx := c.Request().Context()
				ctx = context.WithValue(ctx, UserIDKey, "dev-user")
				ctx = context.WithValue(ctx, UserRolesKey, []string{"admin"})
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			}
			return authenticate(cfg, c, next)
		}
	}
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}

func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(SessionIDKey).(string)
	return sid
}

// ExpiresIn is a convenience for building RegisteredClaims.
func ExpiresIn(now time.Time, ttl time.Duration) *jwt.NumericDate {
	return jwt.NewNumericDate(now.Add(ttl))
}
