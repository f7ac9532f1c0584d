package auth

import "context"

// AuthService guards the API of this process. There is a single configured principal.
type AuthService interface {
	// Authenticate checks basic credentials against the configured principal.
	Authenticate(ctx context.Context, creds Credentials) error

	// IssueToken authenticates creds and returns a bearer token for the principal.
	IssueToken(ctx context.Context, creds Credentials) (TokenResponse, error)
}
