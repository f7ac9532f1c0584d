package auth

import "github.com/cmlabs-hris/attendance-sync-go/internal/pkg/validator"

type Credentials struct {
	Username string
	Password string
}

// TokenRequest is the JSON form of the token endpoint.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

const maxCredentialLen = 255

func (r *TokenRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Username) {
		errs = append(errs, validator.ValidationError{
			Field:   "username",
			Message: "username is required",
		})
	} else if !validator.MaxLen(r.Username, maxCredentialLen) {
		errs = append(errs, validator.ValidationError{
			Field:   "username",
			Message: "username must not exceed 255 characters",
		})
	}

	if r.Password == "" {
		errs = append(errs, validator.ValidationError{
			Field:   "password",
			Message: "password is required",
		})
	} else if !validator.MaxLen(r.Password, maxCredentialLen) {
		errs = append(errs, validator.ValidationError{
			Field:   "password",
			Message: "password must not exceed 255 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (r TokenRequest) Credentials() Credentials {
	return Credentials{Username: r.Username, Password: r.Password}
}

type TokenResponse struct {
	AccessToken          string `json:"access_token"`
	TokenType            string `json:"token_type"`
	AccessTokenExpiresIn int64  `json:"access_token_expires_in"`
}
