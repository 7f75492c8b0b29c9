package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Resolver turns a bearer token into a live user record. Every failure
// mode collapses to ErrInvalidCredentials so callers present a uniform
// unauthenticated response.
type Resolver struct {
	codec *Codec
	users UserRepository
}

// NewResolver creates a Resolver.
func NewResolver(codec *Codec, users UserRepository) *Resolver {
	return &Resolver{codec: codec, users: users}
}

// ExtractBearer pulls the token out of an Authorization header value.
// The scheme comparison is case-insensitive.
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", ErrInvalidCredentials
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidCredentials
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidCredentials
	}

	return token, nil
}

// Resolve verifies an access token and loads its user. The user row is
// re-read on every call so deactivation takes effect immediately even
// though tokens themselves are stateless.
func (r *Resolver) Resolve(ctx context.Context, tokenString string) (*User, error) {
	claims, err := r.codec.Decode(tokenString)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Refresh tokens never authenticate requests directly.
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidCredentials
	}

	user, err := r.users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading user for token: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
