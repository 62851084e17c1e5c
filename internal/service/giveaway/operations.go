package giveaway

import (
	"context"
	"strings"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/common/validation"
	"giveaway-bot/internal/domain/giveaway"
	"giveaway-bot/internal/metrics"
)

// CreateInput is a validated request for a new giveaway.
type CreateInput struct {
	Item        string `json:"item" validate:"required,max=256"`
	Quantity    int    `json:"quantity" validate:"min=1"`
	WinnerCount int    `json:"winners" validate:"min=1"`
	DurationMs  int64  `json:"duration" validate:"gt=0"`
	// MinParticipants of 0 means the configured default.
	MinParticipants int `json:"minParticipants" validate:"min=0"`
	// ChannelID of "" means the configured giveaways channel.
	ChannelID string `json:"channelId" validate:"omitempty,channel_id"`
	CreatedBy string `json:"createdBy" validate:"required"`
}

// Create registers a giveaway, posts its control and arms its expiry. If the
// control cannot be posted the giveaway is removed again; the consumed id is
// not reused.
func (e *Engine) Create(ctx context.Context, in CreateInput) (giveaway.Giveaway, error) {
	in.Item = strings.TrimSpace(in.Item)
	in.ChannelID = strings.TrimSpace(in.ChannelID)
	if in.ChannelID == "" {
		in.ChannelID = e.channels.Giveaways
	}
	if err := e.validate.Struct(in); err != nil {
		return giveaway.Giveaway{}, validation.AppError(err)
	}
	if in.ChannelID == "" {
		return giveaway.Giveaway{}, apperrors.NewValidationError("channelId", "is required")
	}
	if in.MinParticipants == 0 {
		in.MinParticipants = e.minimum
	}
	if !e.presenter.ResolveChannel(ctx, in.ChannelID) {
		return giveaway.Giveaway{}, apperrors.NewChannelNotFoundError(in.ChannelID)
	}

	now := e.clock.Now()

	e.mu.Lock()
	e.counter++
	g := &giveaway.Giveaway{
		ID:              giveaway.FormatID(e.counter),
		Item:            in.Item,
		Quantity:        in.Quantity,
		WinnerCount:     in.WinnerCount,
		DurationMs:      in.DurationMs,
		EndTimeMs:       now.UnixMilli() + in.DurationMs,
		Participants:    []string{},
		MinParticipants: in.MinParticipants,
		ChannelID:       in.ChannelID,
		CreatedBy:       in.CreatedBy,
		CreatedAtMs:     now.UnixMilli(),
	}
	id := g.ID
	e.registry.Insert(g)
	control := e.openControl(g)
	e.updateGauge()
	e.mu.Unlock()

	// the record exists before the message that references its id
	e.persist(ctx, "create")

	messageID, err := e.presenter.PostControl(ctx, control)
	if err != nil {
		e.mu.Lock()
		e.registry.Remove(id)
		e.updateGauge()
		e.mu.Unlock()
		e.persist(ctx, "create rollback")

		e.log.Error().Err(err).Str("giveaway_id", id).Str("channel_id", in.ChannelID).Msg("control not posted, giveaway discarded")
		return giveaway.Giveaway{}, platformError("post control", err)
	}

	e.mu.Lock()
	g.MessageID = messageID
	created := g.Clone()
	e.mu.Unlock()

	e.persist(ctx, "create")
	e.timers.Arm(id, created.EndTime(), e.expiryAction(id))
	metrics.GiveawaysCreated.Inc()

	e.log.Info().
		Str("giveaway_id", id).
		Str("item", created.Item).
		Str("channel_id", created.ChannelID).
		Str("message_id", messageID).
		Time("ends_at", created.EndTime()).
		Msg("giveaway created")
	return created, nil
}

// Join records userID as a participant. The membership check and the append
// happen under one lock hold.
func (e *Engine) Join(ctx context.Context, giveawayID, userID string) (giveaway.Giveaway, error) {
	if strings.TrimSpace(userID) == "" {
		return giveaway.Giveaway{}, apperrors.NewValidationError("userId", "is required")
	}

	e.mu.Lock()
	g, ok := e.registry.Get(giveawayID)
	// an expired giveaway whose resolution was aborted stays registered
	// without a timer until the next Restore
	if !ok || !g.Published() || e.resolving[giveawayID] || e.clock.Now().UnixMilli() >= g.EndTimeMs {
		e.mu.Unlock()
		metrics.RecordJoin("not_found")
		return giveaway.Giveaway{}, apperrors.NewGiveawayNotFoundError(giveawayID)
	}
	if g.HasParticipant(userID) {
		e.mu.Unlock()
		metrics.RecordJoin("already_joined")
		return giveaway.Giveaway{}, apperrors.NewAlreadyJoinedError(giveawayID, userID)
	}
	g.Participants = append(g.Participants, userID)
	joined := g.Clone()
	image := e.settings.ImageURL()
	e.mu.Unlock()

	e.persist(ctx, "join")
	metrics.RecordJoin("joined")
	e.log.Info().Str("giveaway_id", giveawayID).Str("user_id", userID).Int("participants", len(joined.Participants)).Msg("participant joined")

	e.refreshControl(ctx, giveawayID)
	e.notify(ctx, userID, giveaway.Notification{
		Kind:     giveaway.NotificationJoined,
		Giveaway: joined,
		ImageURL: image,
	})
	return joined, nil
}

// Edit applies patch to the giveaway matching query. The control must still
// be reachable; otherwise nothing changes. The expiry is never moved.
func (e *Engine) Edit(ctx context.Context, query string, patch giveaway.Patch) (giveaway.Giveaway, error) {
	if patch.Empty() {
		return giveaway.Giveaway{}, apperrors.NewValidationError("patch", "no fields to update")
	}
	if patch.Item != nil {
		item := strings.TrimSpace(*patch.Item)
		patch.Item = &item
	}
	if err := e.validate.Struct(patch); err != nil {
		return giveaway.Giveaway{}, validation.AppError(err)
	}

	e.mu.Lock()
	g, ok := e.registry.Resolve(query)
	if !ok || e.resolving[g.ID] {
		e.mu.Unlock()
		return giveaway.Giveaway{}, apperrors.NewGiveawayNotFoundError(query)
	}
	id, channelID, messageID := g.ID, g.ChannelID, g.MessageID
	e.mu.Unlock()

	if !e.presenter.ResolveChannel(ctx, channelID) {
		return giveaway.Giveaway{}, apperrors.NewChannelNotFoundError(channelID)
	}
	if !e.presenter.ResolveMessage(ctx, channelID, messageID) {
		return giveaway.Giveaway{}, apperrors.NewMessageNotFoundError(channelID, messageID)
	}

	e.mu.Lock()
	g, ok = e.registry.Get(id)
	if !ok || e.resolving[id] {
		// resolved while the platform was being checked
		e.mu.Unlock()
		return giveaway.Giveaway{}, apperrors.NewGiveawayNotFoundError(query)
	}
	patch.Apply(g)
	edited := g.Clone()
	e.mu.Unlock()

	e.persist(ctx, "edit")
	e.refreshControl(ctx, id)

	e.log.Info().Str("giveaway_id", id).Interface("patch", patch).Msg("giveaway edited")
	return edited, nil
}

// EditMinimum changes only the participation threshold.
func (e *Engine) EditMinimum(ctx context.Context, query string, minParticipants int) (giveaway.Giveaway, error) {
	return e.Edit(ctx, query, giveaway.Patch{MinParticipants: &minParticipants})
}

// ListParticipants returns participants in join order.
func (e *Engine) ListParticipants(query string) ([]string, error) {
	g, err := e.Find(query)
	if err != nil {
		return nil, err
	}
	return g.Participants, nil
}

// notify sends one direct message. Failures are logged and returned, never
// propagated as a failed operation.
func (e *Engine) notify(ctx context.Context, userID string, n giveaway.Notification) error {
	err := e.presenter.SendDirect(ctx, userID, n)
	metrics.RecordNotification(string(n.Kind), err == nil)
	if err != nil {
		appErr := apperrors.NewNotificationError(userID, err)
		e.log.Warn().Err(appErr).Str("giveaway_id", n.Giveaway.ID).Str("kind", string(n.Kind)).Msg("direct notification failed")
		return appErr
	}
	return nil
}
