// Package requestcontext carries request-scoped values (request ID, authenticated
// principal, client metadata, request time) on context.Context.
package requestcontext

import (
	"context"
	"time"

	id "jojo/pkg/domain"
)

type (
	requestIDKey struct{}
	principalKey struct{}
	clientKey    struct{}
	timeKey      struct{}
	deviceKey    struct{}
)

// Role is the marketplace role asserted by the access token.
type Role string

const (
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
	RoleStudent    Role = "student"
)

// Principal is the authenticated caller. It is built once by the auth middleware
// from validated token claims and is the only source of identity downstream.
type Principal struct {
	UserID    id.UserID
	SessionID id.SessionID
	Email     string
	Role      Role
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role Role) bool {
	return p.Role == role
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID or "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal returns the authenticated principal, if any.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// UserID is a shortcut for the principal's user ID (zero value when unauthenticated).
func UserID(ctx context.Context) id.UserID {
	p, _ := GetPrincipal(ctx)
	return p.UserID
}

type clientMetadata struct {
	ip        string
	userAgent string
}

func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, clientMetadata{ip: ip, userAgent: userAgent})
}

func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientKey{}).(clientMetadata); ok {
		return v.ip
	}
	return ""
}

func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(clientKey{}).(clientMetadata); ok {
		return v.userAgent
	}
	return ""
}

// WithDevice stores a human readable device label ("Chrome on macOS").
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, deviceKey{}, device)
}

func Device(ctx context.Context) string {
	if v, ok := ctx.Value(deviceKey{}).(string); ok {
		return v
	}
	return ""
}

// WithTime pins "now" for the remainder of the request, worker batch, or test.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, timeKey{}, t)
}

// Now returns the request-scoped time, falling back to time.Now().
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(timeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
