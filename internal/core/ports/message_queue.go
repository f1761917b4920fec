package ports

import (
	"context"

	"github.com/GoArmGo/VideoTube/internal/messaging/payloads"
)

// BlobCleanupPublisher schedules deletion of orphaned blobs.
// Used by the session use case when a registration fails after upload.
type BlobCleanupPublisher interface {
	PublishBlobCleanup(ctx context.Context, payload payloads.BlobCleanupPayload) error
}

// BlobCleanupConsumer delivers cleanup requests to the worker.
type BlobCleanupConsumer interface {
	// StartConsumingBlobCleanup listens on the queue and calls handler for
	// every message until ctx is done.
	StartConsumingBlobCleanup(ctx context.Context, handler func(context.Context, payloads.BlobCleanupPayload) error) error
}
