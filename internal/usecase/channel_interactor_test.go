package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/GoArmGo/VideoTube/internal/database/memory"
	"github.com/GoArmGo/VideoTube/internal/domain"
	"github.com/GoArmGo/VideoTube/internal/logger"
	"github.com/GoArmGo/VideoTube/internal/usecase"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, s *memory.Store, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Email: username + "@example.com", FullName: username}
	require.NoError(t, s.Create(context.Background(), u))
	return u
}

func TestChannelUseCase_ChannelProfile(t *testing.T) {
	s := memory.NewStore()
	uc := usecase.NewChannelUseCase(s, logger.Discard())
	ctx := context.Background()

	channel := seedUser(t, s, "chan")
	viewer := seedUser(t, s, "viewer")
	other := seedUser(t, s, "other")

	s.Subscribe(viewer.ID, channel.ID)
	s.Subscribe(other.ID, channel.ID)
	s.Subscribe(channel.ID, other.ID)

	profile, err := uc.ChannelProfile(ctx, viewer.ID, "  CHAN ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), profile.SubscribersCount)
	assert.Equal(t, int64(1), profile.ChannelsSubscribedToCount)
	assert.True(t, profile.IsSubscribed)

	profile, err = uc.ChannelProfile(ctx, channel.ID, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile.SubscribersCount)
	assert.True(t, profile.IsSubscribed)

	profile, err = uc.ChannelProfile(ctx, other.ID, "viewer")
	require.NoError(t, err)
	assert.Zero(t, profile.SubscribersCount)
	assert.False(t, profile.IsSubscribed)
}

func TestChannelUseCase_ChannelProfile_Errors(t *testing.T) {
	uc := usecase.NewChannelUseCase(memory.NewStore(), logger.Discard())

	_, err := uc.ChannelProfile(context.Background(), uuid.New(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.ChannelProfile(context.Background(), uuid.New(), " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestChannelUseCase_WatchHistory(t *testing.T) {
	s := memory.NewStore()
	uc := usecase.NewChannelUseCase(s, logger.Discard())
	ctx := context.Background()

	owner := seedUser(t, s, "owner")
	viewer := seedUser(t, s, "viewer")

	first := domain.Video{ID: uuid.New(), OwnerID: owner.ID, Title: "first"}
	second := domain.Video{ID: uuid.New(), OwnerID: owner.ID, Title: "second"}
	require.NoError(t, s.AddVideo(first))
	require.NoError(t, s.AddVideo(second))
	require.NoError(t, s.AppendWatchHistory(viewer.ID, second.ID))
	require.NoError(t, s.AppendWatchHistory(viewer.ID, first.ID))

	history, err := uc.WatchHistory(ctx, viewer.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "second", history[0].Title)
	assert.Equal(t, "first", history[1].Title)
	assert.Equal(t, "owner", history[0].Owner.Username)

	empty, err := uc.WatchHistory(ctx, owner.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = uc.WatchHistory(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type brokenChannels struct{}

func (brokenChannels) ChannelProfile(context.Context, string, uuid.UUID) (*domain.ChannelProfile, error) {
	return nil, errors.New("query failed")
}

func (brokenChannels) WatchHistory(context.Context, uuid.UUID) ([]domain.WatchedVideo, error) {
	return nil, errors.New("query failed")
}

func TestChannelUseCase_StoreFailureIsInternal(t *testing.T) {
	uc := usecase.NewChannelUseCase(brokenChannels{}, logger.Discard())

	_, err := uc.ChannelProfile(context.Background(), uuid.New(), "chan")
	assert.ErrorIs(t, err, domain.ErrInternal)

	_, err = uc.WatchHistory(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrInternal)
}
