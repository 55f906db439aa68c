// Package service holds helpers shared by the domain services.
package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/oggyb/destined/internal/auth"
	svcErr "github.com/oggyb/destined/internal/errors"
)

// ParseUserID validates a path or payload supplied user id.
func ParseUserID(raw string) (uint64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, svcErr.InvalidArgument("Missing user IDs")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, svcErr.InvalidArgument("Invalid user ID format")
	}
	return id, nil
}

// Caller returns the authenticated identity carried by ctx.
func Caller(ctx context.Context) (auth.Identity, error) {
	id, ok := auth.FromContext(ctx)
	if !ok {
		return auth.Identity{}, svcErr.Unauthorized("Unauthorized Access")
	}
	return id, nil
}

// Authorize fails with msg unless the caller may act as userID.
func Authorize(ctx context.Context, userID uint64, msg string) error {
	id, err := Caller(ctx)
	if err != nil {
		return err
	}
	if !id.CanActAs(userID) {
		return svcErr.Unauthorized(msg)
	}
	return nil
}
