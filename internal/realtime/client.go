package realtime

import (
	"github.com/google/uuid"

	"github.com/yungbote/nepq-coach-backend/internal/platform/logger"
)

// SSEClient is one open event stream of a user. Its channel set and closed
// flag belong to the hub that created it and are guarded by the hub lock.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Outbound chan SSEMessage

	channels map[string]bool
	closed   bool
	done     chan struct{}
	log      *logger.Logger
}

// Done is closed once the hub has dropped the client.
func (c *SSEClient) Done() <-chan struct{} { return c.done }
