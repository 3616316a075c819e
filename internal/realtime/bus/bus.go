package bus

import (
	"context"

	"github.com/planforge/planforge-backend/internal/realtime"
)

// Bus moves SSE messages between backend processes so that sessions connected
// to different instances still converge on the same document.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
