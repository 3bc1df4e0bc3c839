package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "jojo/pkg/domain"
)

func TestPrincipalRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := GetPrincipal(ctx)
	assert.False(t, ok)
	assert.True(t, UserID(ctx).IsNil())

	userID := id.UserID(uuid.New())
	ctx = WithPrincipal(ctx, Principal{UserID: userID, Email: "ada@example.com", Role: RoleInstructor})

	p, ok := GetPrincipal(ctx)
	assert.True(t, ok)
	assert.True(t, p.HasRole(RoleInstructor))
	assert.False(t, p.HasRole(RoleAdmin))
	assert.Equal(t, userID, UserID(ctx))
}

func TestNowFallsBackToWallClock(t *testing.T) {
	pinned := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, pinned, Now(WithTime(context.Background(), pinned)))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}

func TestClientMetadata(t *testing.T) {
	ctx := WithClientMetadata(context.Background(), "10.0.0.7", "curl/8.0")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithDevice(ctx, "curl on Linux")

	assert.Equal(t, "10.0.0.7", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "curl on Linux", Device(ctx))
}
