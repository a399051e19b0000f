package auth

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"strings"
)

// Identity is what a valid bearer credential resolves to.
type Identity struct {
	UserID   domain.UserID
	UserName string
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// BearerToken extracts the token from an Authorization header value.
// The "Bearer " scheme is optional and case-insensitive.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.ErrMissingToken
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		header = strings.TrimSpace(header[7:])
	}
	if header == "" {
		return "", errors.ErrMissingToken
	}
	return header, nil
}
