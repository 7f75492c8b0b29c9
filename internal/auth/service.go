package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bikeviz/authd/internal/audit"
	"github.com/bikeviz/authd/internal/infrastructure/logging"
)

const bearerTokenType = "bearer"

// Service implements the authentication flows: registration, password
// login, guest sessions, refresh, and the OAuth2 password grant.
type Service struct {
	users  UserRepository
	codec  *Codec
	audit  audit.Repository
	logger *logging.Logger
}

// NewService creates an authentication service. The audit repository
// may be nil, in which case no audit trail is written.
func NewService(users UserRepository, codec *Codec, auditRepo audit.Repository, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		users:  users,
		codec:  codec,
		audit:  auditRepo,
		logger: logger,
	}
}

// Register creates a new active user with the given credentials.
// Returns ErrEmailExists if the email is already taken.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if !IsValidEmail(email) {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	if password == "" {
		return nil, fmt.Errorf("password must not be empty")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.recordAudit(ctx, audit.ActionRegister, user)

	return user, nil
}

// Login authenticates with email and password and issues a token pair.
// Unknown email, wrong password, and inactive account all collapse to
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, audit.ActionLogin, user)

	return pair, nil
}

// GuestLogin issues a token pair for the shared guest identity,
// creating it on first use. No credentials are required.
func (s *Service) GuestLogin(ctx context.Context) (*TokenPair, error) {
	user, err := s.users.GetOrCreateGuest(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving guest user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, audit.ActionGuestLogin, user)

	return pair, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The
// new pair is minted from the token claims alone.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if claims.TokenType != TokenTypeRefresh {
		return nil, ErrInvalidCredentials
	}

	access, err := s.codec.Encode(claims.Subject, claims.Role, TokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	refresh, err := s.codec.Encode(claims.Subject, claims.Role, TokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}

	s.recordAuditSubject(ctx, audit.ActionRefresh, claims.Subject)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    bearerTokenType,
	}, nil
}

// PasswordGrant authenticates with email and password and issues an
// access token only, for OAuth2 form-based clients.
func (s *Service) PasswordGrant(ctx context.Context, email, password string) (*AccessGrant, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	access, err := s.codec.Encode(user.Email, user.Role, TokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}

	s.recordAudit(ctx, audit.ActionPasswordGrant, user)

	return &AccessGrant{
		AccessToken: access,
		TokenType:   bearerTokenType,
	}, nil
}

// decoyHash is a well-formed PHC string belonging to no account, using
// the production Argon2id parameters. Verifying against it on the
// unknown-email and missing-hash paths costs the same key derivation as
// a real mismatch, so login latency does not reveal whether an email is
// registered.
var decoyHash = fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$MDEyMzQ1Njc4OWFiY2RlZg$MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY",
	argonMemory, argonTime, argonThreads)

// authenticate verifies email and password against the stored hash.
// The hash is verified even when it cannot match, keeping the timing
// of unknown-email and wrong-password failures comparable.
func (s *Service) authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			VerifyPassword(password, decoyHash) //nolint:errcheck // decoy work only
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	if user.PasswordHash == "" {
		VerifyPassword(password, decoyHash) //nolint:errcheck // decoy work only
		return nil, ErrInvalidCredentials
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *Service) issuePair(user *User) (*TokenPair, error) {
	access, err := s.codec.Encode(user.Email, user.Role, TokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}
	refresh, err := s.codec.Encode(user.Email, user.Role, TokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    bearerTokenType,
	}, nil
}

// recordAudit writes an audit entry for a user action. Failures are
// logged, never surfaced: the auth flow must not fail because the
// audit trail did.
func (s *Service) recordAudit(ctx context.Context, action string, user *User) {
	if s.audit == nil {
		return
	}
	entry := &audit.Entry{
		Action:     action,
		EntityType: "user",
		EntityID:   strconv.FormatInt(user.ID, 10),
		Subject:    user.Email,
		Details:    map[string]any{"role": string(user.Role)},
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", "action", action, "error", err)
	}
}

func (s *Service) recordAuditSubject(ctx context.Context, action, subject string) {
	if s.audit == nil {
		return
	}
	entry := &audit.Entry{
		Action:     action,
		EntityType: "user",
		Subject:    subject,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", "action", action, "error", err)
	}
}
