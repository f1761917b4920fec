package memory

import (
	"context"
	"fmt"

	"github.com/GoArmGo/VideoTube/internal/domain"
	"github.com/google/uuid"
)

// AddVideo stores a video owned by an existing user.
func (s *Store) AddVideo(video domain.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[video.OwnerID]; !ok {
		return fmt.Errorf("video owner %s not found", video.OwnerID)
	}
	if video.ID == uuid.Nil {
		video.ID = uuid.New()
	}
	s.videos[video.ID] = video
	return nil
}

// Subscribe adds a channel -> subscriber edge.
func (s *Store) Subscribe(subscriberID, channelID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions = append(s.subscriptions, domain.Subscription{
		ID:           uuid.New(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    s.now(),
	})
}

// AppendWatchHistory records that userID watched videoID.
func (s *Store) AppendWatchHistory(userID, videoID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s not found", userID)
	}
	u.WatchHistory = append(u.WatchHistory, videoID)
	s.users[userID] = u
	return nil
}

func (s *Store) ChannelProfile(ctx context.Context, username string, viewerID uuid.UUID) (*domain.ChannelProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var channel *domain.User
	for _, u := range s.users {
		if u.Username == username {
			channel = cloneUser(u)
			break
		}
	}
	if channel == nil {
		return nil, nil
	}

	profile := &domain.ChannelProfile{
		ID:         channel.ID,
		FullName:   channel.FullName,
		Username:   channel.Username,
		Email:      channel.Email,
		Avatar:     channel.Avatar,
		CoverImage: channel.CoverImage,
	}
	for _, sub := range s.subscriptions {
		if sub.ChannelID == channel.ID {
			profile.SubscribersCount++
			if sub.SubscriberID == viewerID {
				profile.IsSubscribed = true
			}
		}
		if sub.SubscriberID == channel.ID {
			profile.ChannelsSubscribedToCount++
		}
	}
	return profile, nil
}

func (s *Store) WatchHistory(ctx context.Context, userID uuid.UUID) ([]domain.WatchedVideo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}

	history := make([]domain.WatchedVideo, 0, len(u.WatchHistory))
	for _, id := range u.WatchHistory {
		v, ok := s.videos[id]
		if !ok {
			continue
		}
		owner := s.users[v.OwnerID]
		history = append(history, domain.WatchedVideo{
			Video: v,
			Owner: domain.OwnerSummary{
				FullName: owner.FullName,
				Username: owner.Username,
				Avatar:   owner.Avatar,
			},
		})
	}
	return history, nil
}
