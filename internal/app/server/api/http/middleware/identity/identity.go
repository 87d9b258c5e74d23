package identity

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/exp/slog"

	"github.com/danielgtaylor/huma/v2"
)

// Authentication proper is an external collaborator; this middleware only
// lifts the already-established identity headers into the request context.
const (
	UserHeader   = "X-User-Id"
	DeviceHeader = "X-Device-Id"
)

type contextKey string

const (
	userIDKey   contextKey = "userID"
	deviceIDKey contextKey = "deviceID"
)

type Identity struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Identity {
	return &Identity{
		log: log.With("component", "identity_middleware"),
	}
}

// Middleware rejects requests without a user identity and stores the user and
// device ids in the context for the domain services.
func (i *Identity) Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		userID := ctx.Header(UserHeader)
		if userID == "" {
			i.log.Warn("request without user identity", "path", ctx.URL().Path)
			ctx.SetStatus(http.StatusUnauthorized)
			ctx.SetHeader("Content-Type", "application/json")

			w := ctx.BodyWriter()
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "missing user identity",
			})
			return
		}

		newCtx := context.WithValue(ctx.Context(), userIDKey, userID)
		if deviceID := ctx.Header(DeviceHeader); deviceID != "" {
			newCtx = context.WithValue(newCtx, deviceIDKey, deviceID)
		}

		next(huma.WithContext(ctx, newCtx))
	}
}

// WithUserID stores a user id in the context the way the middleware does.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithDeviceID stores a device id in the context the way the middleware does.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey, deviceID)
}

// GetUserID returns the authenticated user id stored by the middleware.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

// GetDeviceID returns the device id stored by the middleware, if any.
func GetDeviceID(ctx context.Context) (string, bool) {
	deviceID, ok := ctx.Value(deviceIDKey).(string)
	return deviceID, ok
}
