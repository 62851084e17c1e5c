// Package telegram renders giveaway views as Telegram messages and delivers
// them through the Bot API.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"giveaway-bot/internal/domain/giveaway"
)

// API is the part of *bot.Bot the presenter needs.
type API interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	GetChat(ctx context.Context, params *bot.GetChatParams) (*models.ChatFullInfo, error)
}

var _ API = (*bot.Bot)(nil)

type Options struct {
	// SendRate caps outgoing API calls per second; 0 disables pacing.
	SendRate float64
	Burst    int
	Logger   zerolog.Logger
}

// Presenter implements the engine's presentation contract on Telegram.
type Presenter struct {
	api     API
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewPresenter(api API, opts Options) *Presenter {
	limit := rate.Inf
	if opts.SendRate > 0 {
		limit = rate.Limit(opts.SendRate)
	}
	if opts.Burst < 1 {
		opts.Burst = 1
	}
	return &Presenter{
		api:     api,
		limiter: rate.NewLimiter(limit, opts.Burst),
		log:     opts.Logger,
	}
}

// ChatID converts a channel id to what the Bot API accepts: numeric ids as
// int64, anything else (an @username) as-is.
func ChatID(channelID string) any {
	if n, err := strconv.ParseInt(channelID, 10, 64); err == nil {
		return n
	}
	return channelID
}

func (p *Presenter) wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func linkPreview(imageURL string) *models.LinkPreviewOptions {
	if imageURL == "" {
		disabled := true
		return &models.LinkPreviewOptions{IsDisabled: &disabled}
	}
	large, above := true, true
	return &models.LinkPreviewOptions{URL: &imageURL, PreferLargeMedia: &large, ShowAboveText: &above}
}

// PostControl sends the open control with its participate button.
func (p *Presenter) PostControl(ctx context.Context, c giveaway.Control) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	msg, err := p.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             ChatID(c.Giveaway.ChannelID),
		Text:               RenderControl(c),
		ParseMode:          models.ParseModeHTML,
		ReplyMarkup:        ParticipateKeyboard(c.Giveaway.ID),
		LinkPreviewOptions: linkPreview(c.ImageURL),
	})
	if err != nil {
		return "", fmt.Errorf("send control: %w", err)
	}
	return strconv.Itoa(msg.ID), nil
}

// EditControl rewrites the control. Closed controls lose their button.
func (p *Presenter) EditControl(ctx context.Context, channelID, messageID string, c giveaway.Control) error {
	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("invalid message id %q: %w", messageID, err)
	}
	if err := p.wait(ctx); err != nil {
		return err
	}

	params := &bot.EditMessageTextParams{
		ChatID:             ChatID(channelID),
		MessageID:          msgID,
		Text:               RenderControl(c),
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: linkPreview(c.ImageURL),
	}
	if c.State == giveaway.ControlOpen {
		params.ReplyMarkup = ParticipateKeyboard(c.Giveaway.ID)
	} else {
		params.ReplyMarkup = InlineKeyboard()
	}

	if _, err := p.api.EditMessageText(ctx, params); err != nil {
		if notModified(err) {
			return nil
		}
		return fmt.Errorf("edit control: %w", err)
	}
	return nil
}

// SendDirect messages a user privately. Telegram only allows this once the
// user has started the bot.
func (p *Presenter) SendDirect(ctx context.Context, userID string, n giveaway.Notification) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	_, err := p.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             ChatID(userID),
		Text:               RenderNotification(n),
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: linkPreview(n.ImageURL),
	})
	if err != nil {
		return fmt.Errorf("send direct message: %w", err)
	}
	return nil
}

func (p *Presenter) PostAnnouncement(ctx context.Context, channelID string, a giveaway.Announcement) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	_, err := p.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             ChatID(channelID),
		Text:               RenderAnnouncement(a),
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: linkPreview(a.ImageURL),
	})
	if err != nil {
		return fmt.Errorf("send announcement: %w", err)
	}
	return nil
}

// ResolveChannel reports whether the bot can see the chat.
func (p *Presenter) ResolveChannel(ctx context.Context, channelID string) bool {
	if strings.TrimSpace(channelID) == "" {
		return false
	}
	if err := p.wait(ctx); err != nil {
		return false
	}
	if _, err := p.api.GetChat(ctx, &bot.GetChatParams{ChatID: ChatID(channelID)}); err != nil {
		p.log.Debug().Err(err).Str("channel_id", channelID).Msg("channel not resolvable")
		return false
	}
	return true
}

// ResolveMessage checks the channel and the shape of the message id. The Bot
// API has no call to fetch a channel message, so a deleted message is only
// detected when an edit fails.
func (p *Presenter) ResolveMessage(ctx context.Context, channelID, messageID string) bool {
	n, err := strconv.Atoi(messageID)
	if err != nil || n <= 0 {
		return false
	}
	return p.ResolveChannel(ctx, channelID)
}

func notModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
