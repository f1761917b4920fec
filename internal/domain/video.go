package domain

import (
	"time"

	"github.com/google/uuid"
)

// Video is a published video. It corresponds to the videos table.
type Video struct {
	ID          uuid.UUID `json:"_id" gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID `json:"-" gorm:"type:uuid;column:owner_id"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Video) TableName() string {
	return "videos"
}

// Subscription is a channel -> subscriber edge.
type Subscription struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	SubscriberID uuid.UUID `gorm:"type:uuid;column:subscriber_id"`
	ChannelID    uuid.UUID `gorm:"type:uuid;column:channel_id"`
	CreatedAt    time.Time
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// OwnerSummary is the short owner projection attached to watched videos.
type OwnerSummary struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// WatchedVideo is one resolved entry of a user's watch history.
type WatchedVideo struct {
	Video
	Owner OwnerSummary `json:"owner"`
}

// ChannelProfile is the public channel page of a user as seen by a viewer.
type ChannelProfile struct {
	ID                        uuid.UUID `json:"_id"`
	FullName                  string    `json:"fullName"`
	Username                  string    `json:"username"`
	Email                     string    `json:"email"`
	Avatar                    string    `json:"avatar"`
	CoverImage                string    `json:"coverImage"`
	SubscribersCount          int64     `json:"subscribersCount"`
	ChannelsSubscribedToCount int64     `json:"channelsSubscribedToCount"`
	IsSubscribed              bool      `json:"isSubscribed"`
}
