package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/ecochamps/ecochamps-service/internal/account"
	"github.com/ecochamps/ecochamps-service/internal/platform/apierror"
	"github.com/ecochamps/ecochamps-service/internal/platform/metrics"
)

type signupRequest struct {
	Name     string `json:"name" validate:"required,max=80"`
	School   string `json:"school" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Profile account.Profile `json:"profile"`
	Token   string          `json:"token,omitempty"`
}

func signup(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body signupRequest
		if err := decodeJSON(w, r, &body); err != nil {
			writeDecodeError(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		rec, err := deps.Accounts.Register(ctx, account.Registration{
			DisplayName:  body.Name,
			Organization: body.School,
			Identifier:   body.Email,
			Secret:       body.Password,
		})
		countAccountEvent(deps.Metrics, "signup", err)
		if err != nil {
			writeServiceError(w, r, deps.Logger, "failed to register account", err, body.Email)
			return
		}

		token, err := issueToken(ctx, deps, rec.Identifier)
		if err != nil {
			logRequestError(r.Context(), deps.Logger, "failed to issue token", err, rec.Identifier)
			writeError(w, r, http.StatusInternalServerError, apierror.CodeInternal, "failed to issue token")
			return
		}
		writeJSON(w, http.StatusCreated, sessionResponse{Profile: rec.Profile(), Token: token})
	}
}

func login(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		if err := decodeJSON(w, r, &body); err != nil {
			writeDecodeError(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		rec, err := deps.Accounts.Authenticate(ctx, body.Email, body.Password)
		countAccountEvent(deps.Metrics, "login", err)
		if err != nil {
			if errors.Is(err, account.ErrAccountNotFound) || errors.Is(err, account.ErrInvalidCredentials) {
				writeError(w, r, http.StatusUnauthorized, apierror.CodeUnauthorized, "invalid email or password")
				return
			}
			writeServiceError(w, r, deps.Logger, "failed to authenticate", err, body.Email)
			return
		}

		token, err := issueToken(ctx, deps, rec.Identifier)
		if err != nil {
			logRequestError(r.Context(), deps.Logger, "failed to issue token", err, rec.Identifier)
			writeError(w, r, http.StatusInternalServerError, apierror.CodeInternal, "failed to issue token")
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{Profile: rec.Profile(), Token: token})
	}
}

func logout(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
		defer cancel()

		err := deps.Accounts.EndSession(ctx)
		countAccountEvent(deps.Metrics, "logout", err)
		if err != nil {
			writeServiceError(w, r, deps.Logger, "failed to end session", err, "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func getSession(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := deps.Accounts.Active()
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "profile": rec.Profile()})
	}
}

func issueToken(ctx context.Context, deps Dependencies, identifier string) (string, error) {
	if deps.Tokens == nil {
		return "", nil
	}
	return deps.Tokens.Issue(ctx, identifier)
}

func countAccountEvent(m *metrics.Metrics, event string, err error) {
	if m == nil {
		return
	}
	m.AccountEvents.WithLabelValues(event, metrics.Outcome(err)).Inc()
}
