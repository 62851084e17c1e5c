package giveaway

import (
	"context"
	"time"

	"giveaway-bot/internal/domain/giveaway"
	"giveaway-bot/internal/scheduler"
)

// Presenter renders giveaway state on the chat platform. It never calls back
// into the engine.
type Presenter interface {
	// PostControl publishes the participation control and returns its message id.
	PostControl(ctx context.Context, c giveaway.Control) (string, error)
	EditControl(ctx context.Context, channelID, messageID string, c giveaway.Control) error
	SendDirect(ctx context.Context, userID string, n giveaway.Notification) error
	PostAnnouncement(ctx context.Context, channelID string, a giveaway.Announcement) error
	// ResolveChannel and ResolveMessage report false when the target is
	// inaccessible; that is not an error.
	ResolveChannel(ctx context.Context, channelID string) bool
	ResolveMessage(ctx context.Context, channelID, messageID string) bool
}

// Timers arms the expiry action of each giveaway.
type Timers interface {
	Arm(id string, fireAt time.Time, action scheduler.Action)
	Cancel(id string) bool
	Stop(ctx context.Context) error
}

var _ Timers = (*scheduler.Scheduler)(nil)
