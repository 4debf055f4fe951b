package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/teamcatalog/catalog-auth/internal/errors"
	"github.com/teamcatalog/catalog-auth/security"
)

const contentTypeJSON = "application/json; charset=utf-8"

// UserInfoResponse is the public projection of the current user. The
// same shape, with loggedIn=false, answers anonymous requests.
type UserInfoResponse struct {
	LoggedIn        bool     `json:"loggedIn"`
	SecurityEnabled bool     `json:"securityEnabled"`
	Ident           string   `json:"ident,omitempty"`
	Name            string   `json:"name,omitempty"`
	Email           string   `json:"email,omitempty"`
	Roles           []string `json:"roles,omitempty"`
}

func noUserResponse(securityEnabled bool) UserInfoResponse {
	return UserInfoResponse{LoggedIn: false, SecurityEnabled: securityEnabled}
}

func newUserInfoResponse(user *security.CurrentUser) UserInfoResponse {
	return UserInfoResponse{
		LoggedIn:        true,
		SecurityEnabled: true,
		Ident:           user.Ident,
		Name:            user.Name,
		Email:           user.Email,
		Roles:           user.Roles,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

// writeError maps the error taxonomy onto HTTP statuses: bad redirect
// targets and registration ids are the caller's fault, everything else
// is internal.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if apperrors.Is(err, apperrors.ErrInvalidRequest) {
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	} else {
		log.Debug().Err(err).Msg("request rejected")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
