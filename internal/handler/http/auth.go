package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-sync-go/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-sync-go/internal/handler/http/response"
)

type AuthHandler interface {
	IssueToken(w http.ResponseWriter, r *http.Request)
}

type authHandlerImpl struct {
	authService auth.AuthService
}

func NewAuthHandler(authService auth.AuthService) AuthHandler {
	return &authHandlerImpl{
		authService: authService,
	}
}

// IssueToken implements AuthHandler. Credentials come from the basic auth header or a JSON
// body with username and password.
func (h *authHandlerImpl) IssueToken(w http.ResponseWriter, r *http.Request) {
	var creds auth.Credentials

	if username, password, ok := r.BasicAuth(); ok {
		creds = auth.Credentials{Username: username, Password: password}
	} else if r.Body != nil && r.ContentLength != 0 {
		var req auth.TokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Error("Failed to decode token request", "error", err)
			response.BadRequest(w, "Invalid request format", nil)
			return
		}
		if err := req.Validate(); err != nil {
			response.HandleError(w, err)
			return
		}
		creds = req.Credentials()
	}

	tokenResponse, err := h.authService.IssueToken(r.Context(), creds)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Token issued", tokenResponse)
}
