package handler

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"giveaway-bot/internal/domain/giveaway"
	"giveaway-bot/internal/platform/telegram"
	giveawaysvc "giveaway-bot/internal/service/giveaway"
	"giveaway-bot/internal/utils/duration"
)

const argSeparator = "|"

// ArgError is a command syntax problem, shown to the user verbatim.
type ArgError struct{ Text string }

func (e *ArgError) Error() string { return e.Text }

func argErr(text string) error { return &ArgError{Text: text} }

// commandRest returns everything after the command word, which may carry an
// @botname suffix.
func commandRest(text string) string {
	text = strings.TrimSpace(text)
	i := strings.IndexAny(text, " \t\n")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i+1:])
}

// splitArgs splits the command arguments on "|". Empty arguments are kept.
func splitArgs(text string) []string {
	rest := commandRest(text)
	if rest == "" {
		return nil
	}
	parts := strings.Split(rest, argSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func positive(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil && n > 0
}

const createUsage = "Usage: <code>/creategiveaway item | quantity | winners | duration | [minParticipants] | [channelId]</code>"

// ParseCreate reads /creategiveaway arguments.
func ParseCreate(text string) (giveawaysvc.CreateInput, error) {
	args := splitArgs(text)
	if len(args) < 4 || len(args) > 6 {
		return giveawaysvc.CreateInput{}, argErr(createUsage)
	}

	in := giveawaysvc.CreateInput{Item: args[0]}
	if in.Item == "" {
		return in, argErr("❌ Item name is required.")
	}

	var ok bool
	if in.Quantity, ok = positive(args[1]); !ok {
		return in, argErr("❌ Quantity must be a valid number greater than 0.")
	}
	if in.WinnerCount, ok = positive(args[2]); !ok {
		return in, argErr("❌ Number of winners must be a valid number greater than 0.")
	}
	if in.DurationMs = duration.Parse(args[3]); in.DurationMs <= 0 {
		return in, argErr(`❌ Invalid duration format. Use formats like "1h 30m" or "2d 4h".`)
	}
	if len(args) > 4 && args[4] != "" {
		if in.MinParticipants, ok = positive(args[4]); !ok {
			return in, argErr("❌ Minimum participants must be a valid number greater than 0.")
		}
	}
	if len(args) > 5 {
		in.ChannelID = args[5]
	}
	return in, nil
}

const editUsage = "Usage: <code>/editgiveaway query | item=... | quantity=N | winners=N</code>"

// ParseEdit reads /editgiveaway arguments into a lookup query and a patch.
func ParseEdit(text string) (string, giveaway.Patch, error) {
	var patch giveaway.Patch
	args := splitArgs(text)
	if len(args) < 2 || args[0] == "" {
		return "", patch, argErr(editUsage)
	}

	for _, arg := range args[1:] {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			return "", patch, argErr(editUsage)
		}
		key, value = strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)

		switch key {
		case "item":
			if value == "" {
				return "", patch, argErr("❌ Item name is required.")
			}
			patch.Item = &value
		case "quantity":
			n, ok := positive(value)
			if !ok {
				return "", patch, argErr("❌ Quantity must be a valid number greater than 0.")
			}
			patch.Quantity = &n
		case "winners":
			n, ok := positive(value)
			if !ok {
				return "", patch, argErr("❌ Number of winners must be a valid number greater than 0.")
			}
			patch.WinnerCount = &n
		default:
			return "", patch, argErr(fmt.Sprintf("❌ Unknown field %q. Editable fields: item, quantity, winners.", html.EscapeString(key)))
		}
	}
	return args[0], patch, nil
}

const editMinimumUsage = "Usage: <code>/editgmessage query | minParticipants</code>"

// ParseEditMinimum reads /editgmessage arguments.
func ParseEditMinimum(text string) (string, int, error) {
	args := splitArgs(text)
	if len(args) != 2 || args[0] == "" {
		return "", 0, argErr(editMinimumUsage)
	}
	n, ok := positive(args[1])
	if !ok {
		return "", 0, argErr("❌ Minimum participants must be a valid number greater than 0.")
	}
	return args[0], n, nil
}

func (h *Handler) handleCreate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	in, err := ParseCreate(msg.Text)
	if err != nil {
		h.reply(ctx, msg, err.Error())
		return
	}
	in.CreatedBy = strconv.FormatInt(msg.From.ID, 10)

	g, err := h.engine.Create(ctx, in)
	if err != nil {
		h.reply(ctx, msg, h.errorText(err))
		return
	}
	h.reply(ctx, msg, fmt.Sprintf("✅ Giveaway created in %s! ID: <code>%s</code>",
		telegram.ChannelRef(g.ChannelID), html.EscapeString(g.ID)))
}

func (h *Handler) handleGlobalImage(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	url := commandRest(msg.Text)
	if err := h.engine.SetGlobalImage(ctx, url); err != nil {
		h.reply(ctx, msg, h.errorText(err))
		return
	}
	if url == "" {
		h.reply(ctx, msg, "✅ Global image cleared.")
		return
	}
	h.reply(ctx, msg, "✅ Global image updated!")
}

func (h *Handler) handleEdit(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	query, patch, err := ParseEdit(msg.Text)
	if err != nil {
		h.reply(ctx, msg, err.Error())
		return
	}
	if _, err := h.engine.Edit(ctx, query, patch); err != nil {
		h.reply(ctx, msg, h.errorText(err))
		return
	}
	h.reply(ctx, msg, "✅ Giveaway updated successfully!")
}

func (h *Handler) handleEditMinimum(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	query, n, err := ParseEditMinimum(msg.Text)
	if err != nil {
		h.reply(ctx, msg, err.Error())
		return
	}
	if _, err := h.engine.EditMinimum(ctx, query, n); err != nil {
		h.reply(ctx, msg, h.errorText(err))
		return
	}
	h.reply(ctx, msg, "✅ Minimum participants message updated!")
}

func (h *Handler) handleListParticipants(ctx context.Context, _ *bot.Bot, update *models.Update) {
	msg := update.Message
	query := commandRest(msg.Text)
	if query == "" {
		h.reply(ctx, msg, "Usage: <code>/listparticipants query</code>")
		return
	}
	g, err := h.engine.Find(query)
	if err != nil {
		h.reply(ctx, msg, h.errorText(err))
		return
	}
	h.reply(ctx, msg, telegram.RenderParticipants(g))
}

const helpText = `🎁 <b>Giveaway Bot Commands</b>

<code>/creategiveaway item | quantity | winners | duration | [minParticipants] | [channelId]</code>
Create a giveaway. Duration accepts formats like "1h 30m" or "2d 4h".

<code>/globalimage url</code>
Set the image shown on every giveaway. Leave empty to clear.

<code>/editgiveaway query | item=... | quantity=N | winners=N</code>
Edit an active giveaway by ID or item name.

<code>/editgmessage query | minParticipants</code>
Change the minimum number of participants.

<code>/listparticipants query</code>
List everyone who joined.

<code>/help</code>
Show this message.`

func (h *Handler) handleHelp(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.reply(ctx, update.Message, helpText)
}
