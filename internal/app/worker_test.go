package app

import (
	"context"
	"errors"
	"testing"

	"github.com/GoArmGo/VideoTube/internal/domain"
	"github.com/GoArmGo/VideoTube/internal/logger"
	"github.com/GoArmGo/VideoTube/internal/messaging/payloads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type deletingStore struct {
	deleted []string
	fail    map[string]bool
}

func (d *deletingStore) Upload(context.Context, string) (*domain.Blob, error) { return nil, nil }

func (d *deletingStore) Delete(_ context.Context, id string) error {
	if d.fail[id] {
		return errors.New("unavailable")
	}
	d.deleted = append(d.deleted, id)
	return nil
}

type capturingConsumer struct {
	handler func(context.Context, payloads.BlobCleanupPayload) error
}

func (c *capturingConsumer) StartConsumingBlobCleanup(ctx context.Context, h func(context.Context, payloads.BlobCleanupPayload) error) error {
	c.handler = h
	return nil
}

func TestBlobCleanupHandler(t *testing.T) {
	store := &deletingStore{fail: map[string]bool{"images/b.png": true}}
	h := blobCleanupHandler(store, logger.Discard())

	err := h(context.Background(), payloads.BlobCleanupPayload{PublicIDs: []string{"images/a.png", "images/b.png", "images/c.png"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "images/b.png")
	assert.Equal(t, []string{"images/a.png", "images/c.png"}, store.deleted)

	assert.NoError(t, h(context.Background(), payloads.BlobCleanupPayload{PublicIDs: []string{"images/d.png"}}))
}

func TestRunWorker_StopsOnCancel(t *testing.T) {
	store := &deletingStore{}
	consumer := &capturingConsumer{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- runWorker(ctx, store, consumer, logger.Discard()) }()

	cancel()
	require.NoError(t, <-done)
	require.NotNil(t, consumer.handler)
}
