package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/GoArmGo/VideoTube/internal/core/ports"
	"github.com/GoArmGo/VideoTube/internal/messaging/payloads"
	"github.com/GoArmGo/VideoTube/internal/usecase"
)

// runWorker consumes blob cleanup requests until ctx is cancelled.
func runWorker(ctx context.Context, blobs usecase.BlobStore, consumer ports.BlobCleanupConsumer, logger *slog.Logger) error {
	if err := consumer.StartConsumingBlobCleanup(ctx, blobCleanupHandler(blobs, logger)); err != nil {
		return fmt.Errorf("start blob cleanup consumer: %w", err)
	}

	logger.Info("worker waiting for blob cleanup requests")
	<-ctx.Done()
	logger.Info("worker stopped")
	return nil
}

// blobCleanupHandler deletes every blob of the payload. It tries all of them
// and reports the joined failures, so the message is requeued if any remain.
func blobCleanupHandler(blobs usecase.BlobStore, logger *slog.Logger) func(context.Context, payloads.BlobCleanupPayload) error {
	return func(ctx context.Context, payload payloads.BlobCleanupPayload) error {
		var errs []error
		for _, id := range payload.PublicIDs {
			if err := blobs.Delete(ctx, id); err != nil {
				errs = append(errs, fmt.Errorf("delete %s: %w", id, err))
			}
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}
		logger.Info("orphaned blobs removed", "public_ids", payload.PublicIDs, "reason", payload.Reason)
		return nil
	}
}
