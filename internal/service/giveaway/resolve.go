package giveaway

import (
	"context"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/domain/giveaway"
	"giveaway-bot/internal/metrics"
	"giveaway-bot/internal/utils/random"
)

type Outcome string

const (
	// OutcomeNone means the giveaway was already resolved or is being resolved.
	OutcomeNone      Outcome = "none"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeWinners   Outcome = "winners"
)

// NotificationResult is the delivery result of one winner message.
type NotificationResult struct {
	UserID string
	Err    error
}

type Resolution struct {
	GiveawayID    string
	Outcome       Outcome
	Winners       []string
	Notifications []NotificationResult
	// AnnouncementErr is set when the public announcement was skipped or failed.
	AnnouncementErr error
}

// Failed returns the notification results that did not deliver.
func (r Resolution) Failed() []NotificationResult {
	var out []NotificationResult
	for _, n := range r.Notifications {
		if n.Err != nil {
			out = append(out, n)
		}
	}
	return out
}

// Resolve ends a giveaway: below its minimum it is cancelled, otherwise
// winners are drawn. Resolving an unknown id is a no-op.
//
// Editing the control is the commit point. If the control's channel or
// message is unreachable, or the edit fails, nothing is announced and the
// giveaway stays registered; it is resolved again on the next Restore. After
// the edit every step is best-effort and the giveaway is always removed.
func (e *Engine) Resolve(ctx context.Context, id string) (Resolution, error) {
	res := Resolution{GiveawayID: id, Outcome: OutcomeNone}

	e.mu.Lock()
	g, ok := e.registry.Get(id)
	if !ok || e.resolving[id] {
		e.mu.Unlock()
		return res, nil
	}
	e.resolving[id] = true
	snap := g.Clone()
	image := e.settings.ImageURL()
	e.mu.Unlock()

	log := e.log.With().Str("giveaway_id", id).Logger()

	// waits out a refresh already editing the control; later refreshes see
	// the resolving flag and skip
	l := e.lockControl(id)
	defer l.Unlock()

	if err := e.checkControl(ctx, snap); err != nil {
		return e.abort(res, err)
	}

	if snap.BelowMinimum() {
		res.Outcome = OutcomeCancelled
		control := giveaway.Control{State: giveaway.ControlCancelled, Giveaway: snap, ImageURL: image}
		if err := e.presenter.EditControl(ctx, snap.ChannelID, snap.MessageID, control); err != nil {
			return e.abort(res, platformError("edit control", err))
		}
		res.AnnouncementErr = e.announce(ctx, e.channels.Announcements, snap, giveaway.NewCancellationAnnouncement(snap, image))
	} else {
		winners, err := random.Sample(e.random, snap.Participants, snap.WinnerCount)
		if err != nil {
			return e.abort(res, apperrors.Wrap(err, apperrors.ErrCodeInternal, "winner selection failed"))
		}
		res.Outcome = OutcomeWinners
		res.Winners = winners

		control := giveaway.Control{State: giveaway.ControlEnded, Giveaway: snap, Winners: winners, ImageURL: image}
		if err := e.presenter.EditControl(ctx, snap.ChannelID, snap.MessageID, control); err != nil {
			return e.abort(res, platformError("edit control", err))
		}

		for _, userID := range winners {
			err := e.notify(ctx, userID, giveaway.Notification{
				Kind:             giveaway.NotificationWinner,
				Giveaway:         snap,
				Winners:          winners,
				TicketsChannelID: e.channels.Tickets,
				ImageURL:         image,
			})
			res.Notifications = append(res.Notifications, NotificationResult{UserID: userID, Err: err})
		}
		res.AnnouncementErr = e.announce(ctx, e.channels.Winners, snap, giveaway.NewWinnersAnnouncement(snap, winners, image))
	}

	e.mu.Lock()
	e.registry.Remove(id)
	delete(e.resolving, id)
	delete(e.controls, id)
	e.updateGauge()
	e.mu.Unlock()

	e.persist(ctx, "resolve")
	metrics.RecordResolution(string(res.Outcome))

	log.Info().
		Str("outcome", string(res.Outcome)).
		Int("participants", len(snap.Participants)).
		Int("min_participants", snap.MinParticipants).
		Strs("winners", res.Winners).
		Int("failed_notifications", len(res.Failed())).
		Msg("giveaway resolved")
	return res, nil
}

func (e *Engine) checkControl(ctx context.Context, g giveaway.Giveaway) error {
	if !e.presenter.ResolveChannel(ctx, g.ChannelID) {
		return apperrors.NewChannelNotFoundError(g.ChannelID)
	}
	if !g.Published() || !e.presenter.ResolveMessage(ctx, g.ChannelID, g.MessageID) {
		return apperrors.NewMessageNotFoundError(g.ChannelID, g.MessageID)
	}
	return nil
}

// abort leaves the giveaway registered so the next Restore retries it.
func (e *Engine) abort(res Resolution, err error) (Resolution, error) {
	e.mu.Lock()
	delete(e.resolving, res.GiveawayID)
	e.mu.Unlock()

	metrics.RecordResolution("aborted")
	e.log.Error().Err(err).Str("giveaway_id", res.GiveawayID).Msg("resolution aborted, kept for retry on restart")

	res.Outcome = OutcomeNone
	res.Winners = nil
	return res, err
}

// announce posts to channelID, or to the giveaway's own channel when no
// channel is configured. An unreachable target is skipped.
func (e *Engine) announce(ctx context.Context, channelID string, g giveaway.Giveaway, a giveaway.Announcement) error {
	if channelID == "" {
		channelID = g.ChannelID
	}
	if !e.presenter.ResolveChannel(ctx, channelID) {
		err := apperrors.NewChannelNotFoundError(channelID)
		e.log.Warn().Err(err).Str("giveaway_id", g.ID).Str("kind", string(a.Kind)).Msg("announcement skipped")
		return err
	}
	if err := e.presenter.PostAnnouncement(ctx, channelID, a); err != nil {
		e.log.Warn().Err(err).Str("giveaway_id", g.ID).Str("kind", string(a.Kind)).Msg("announcement failed")
		return platformError("post announcement", err)
	}
	return nil
}
