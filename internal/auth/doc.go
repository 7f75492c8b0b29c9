// Package auth implements the authentication core of authd.
//
// It provides:
//   - Argon2id password hashing in PHC string format (parameters and salt
//     embedded, so cost upgrades need no schema change)
//   - Stateless JWT access/refresh token issuance and validation via Codec
//   - A flat two-role model (user, guest) enforced as a closed set
//   - The identity Resolver that turns a bearer token into an active user
//   - The Service orchestrating registration, login, guest sessions,
//     refresh exchange, and the OAuth2 password grant
//
// Tokens are trusted purely by signature and expiry. There is no
// revocation list: a token stays valid until its exp passes, and the role
// carried in an issued token can lag behind the database until then. The
// Resolver re-reads the user row on every protected request, so account
// deactivation takes effect immediately even while the token itself is
// still cryptographically valid.
package auth
