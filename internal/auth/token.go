package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bikeviz/authd/internal/infrastructure/config"
)

// TokenType distinguishes the two token kinds carried in the "typ"
// claim. Access tokens authenticate requests; refresh tokens may only
// be exchanged for a new pair.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the JWT payload. Subject carries the user email.
type Claims struct {
	jwt.RegisteredClaims
	Role      Role      `json:"role"`
	TokenType TokenType `json:"typ"`
}

// Codec signs and verifies tokens with a symmetric HMAC key. Tokens are
// stateless: nothing is persisted server-side, so a role change only
// takes effect when the token is reissued.
type Codec struct {
	secret     []byte
	algorithm  string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCodec builds a Codec from validated JWT configuration.
func NewCodec(cfg config.JWTConfig) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret must not be empty")
	}

	switch cfg.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}

	return &Codec{
		secret:     []byte(cfg.Secret),
		algorithm:  cfg.Algorithm,
		accessTTL:  cfg.AccessTokenLifetime(),
		refreshTTL: cfg.RefreshTokenLifetime(),
	}, nil
}

// Encode signs a token for the given subject, role, and type. The
// expiry follows from the token type's configured lifetime.
func (c *Codec) Encode(subject string, role Role, typ TokenType) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject must not be empty")
	}
	if !IsValidRole(role) {
		return "", fmt.Errorf("unknown role %q", role)
	}

	var ttl time.Duration
	switch typ {
	case TokenTypeAccess:
		ttl = c.accessTTL
	case TokenTypeRefresh:
		ttl = c.refreshTTL
	default:
		return "", fmt.Errorf("unknown token type %q", typ)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:      role,
		TokenType: typ,
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(c.algorithm), claims)

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}

	return signed, nil
}

// Decode verifies a token string and returns its claims. It returns
// ErrTokenExpired for expired tokens and ErrTokenInvalid for every
// other failure; verification detail is never surfaced to callers.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{c.algorithm}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	if !IsValidRole(claims.Role) {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != TokenTypeAccess && claims.TokenType != TokenTypeRefresh {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
