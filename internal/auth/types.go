package auth

import (
	"errors"
	"regexp"
	"time"
)

// emailPattern is a pragmatic shape check: local part, @, domain with a
// dot. Full RFC 5322 validation is deliberately out of scope.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// maxEmailLength is the maximum accepted email length.
const maxEmailLength = 254

// IsValidEmail checks if an email address meets format requirements.
func IsValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// GuestEmail is the fixed subject label of the single shared guest
// identity. It is deliberately not a routable address.
const GuestEmail = "guest@local"

// Role represents an authorisation tier. The set is closed: values
// outside ValidRoles are rejected at the boundary rather than passed
// through opaquely.
type Role string

const (
	// RoleUser is a registered account with password credentials.
	RoleUser Role = "user"

	// RoleGuest is the shared passwordless identity issued by guest login.
	RoleGuest Role = "guest"
)

// ValidRoles is the set of recognised roles.
var ValidRoles = []Role{RoleUser, RoleGuest}

// IsValidRole returns true if the role is recognised.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// User represents an account row.
type User struct {
	ID int64 `json:"id"`

	// Email uniquely identifies the user and is the token subject.
	Email string `json:"email"`

	// PasswordHash is empty for guest accounts (NULL in storage).
	// Never serialised.
	PasswordHash string `json:"-"`

	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TokenPair is the response payload of login, guest login, and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"` // always "bearer"
}

// AccessGrant is the response payload of the OAuth2 password grant,
// which returns only an access token.
type AccessGrant struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // always "bearer"
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrEmailExists        = errors.New("email already registered")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("invalid token")
)
