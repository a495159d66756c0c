package auth

import (
	"context"
	"errors"
)

type noopTokens struct{}

func newNoopTokens(_ Config) TokenService {
	return noopTokens{}
}

func (noopTokens) Verify(_ context.Context, token string) (AuthenticatedUser, error) {
	if token == "" {
		return AuthenticatedUser{}, errors.New("token must not be empty")
	}
	return AuthenticatedUser{UserID: token, Token: token}, nil
}

// Issue hands back the user ID itself; Verify accepts it unchanged.
func (noopTokens) Issue(_ context.Context, userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id must not be empty")
	}
	return userID, nil
}
