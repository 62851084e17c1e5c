package telegram

import (
	"fmt"
	"html"
	"strings"

	"giveaway-bot/internal/domain/giveaway"
	"giveaway-bot/internal/utils/duration"
)

// Messages are rendered as Telegram HTML. Every user-supplied value goes
// through html.EscapeString.

func esc(s string) string { return html.EscapeString(s) }

// Mention links a user id to its profile.
func Mention(userID string) string {
	return fmt.Sprintf(`<a href="tg://user?id=%s">%s</a>`, esc(userID), esc(userID))
}

// ChannelRef renders a channel reference: public @usernames as-is, numeric
// ids as code.
func ChannelRef(channelID string) string {
	if strings.HasPrefix(channelID, "@") {
		return esc(channelID)
	}
	return "<code>" + esc(channelID) + "</code>"
}

func mentions(userIDs []string) string {
	parts := make([]string, len(userIDs))
	for i, id := range userIDs {
		parts[i] = Mention(id)
	}
	return strings.Join(parts, ", ")
}

// RenderControl renders the participation message in its current state.
func RenderControl(c giveaway.Control) string {
	g := c.Giveaway
	var b strings.Builder

	switch c.State {
	case giveaway.ControlCancelled:
		b.WriteString("❌ <b>Giveaway Cancelled</b>\n\n")
		fmt.Fprintf(&b, "<b>%s</b> was cancelled. The required minimum of %d participants was not reached. %d users participated.",
			esc(g.Title()), g.MinParticipants, len(g.Participants))

	case giveaway.ControlEnded:
		fmt.Fprintf(&b, "🏆 <b>%s - ENDED</b>\n\n", esc(g.Title()))
		if len(c.Winners) == 0 {
			b.WriteString("<b>Winners:</b> No winners\n")
		} else {
			fmt.Fprintf(&b, "<b>Winners:</b> %s\n", mentions(c.Winners))
		}
		fmt.Fprintf(&b, "<b>Final Participants:</b> %d", len(g.Participants))

	default:
		fmt.Fprintf(&b, "🎁 <b>%s</b>\n\n", esc(g.Title()))
		fmt.Fprintf(&b, "<b>Duration:</b> %s\n", duration.Format(g.DurationMs))
		fmt.Fprintf(&b, "<b>Winners:</b> %d\n", g.WinnerCount)
		fmt.Fprintf(&b, "<b>Participants:</b> %d\n\n", len(g.Participants))
		fmt.Fprintf(&b, "<i>This giveaway is only valid if at least %d users participate.</i>", g.MinParticipants)
	}
	return b.String()
}

// RenderNotification renders a direct message.
func RenderNotification(n giveaway.Notification) string {
	g := n.Giveaway
	var b strings.Builder

	switch n.Kind {
	case giveaway.NotificationWinner:
		b.WriteString("🏆 <b>WINNER!</b>\n\n")
		fmt.Fprintf(&b, "<b>Item:</b> %s\n", esc(g.Title()))
		fmt.Fprintf(&b, "<b>Winners:</b> %s\n", mentions(n.Winners))
		fmt.Fprintf(&b, "<b>Giveaway Duration:</b> %s\n\n", duration.Format(g.DurationMs))
		if n.TicketsChannelID != "" {
			fmt.Fprintf(&b, "<b>Next Steps:</b> Please open a ticket in this channel: %s and mention that you won to claim your item.",
				ChannelRef(n.TicketsChannelID))
		} else {
			b.WriteString("<b>Next Steps:</b> Please contact an administrator and mention that you won to claim your item.")
		}

	default:
		b.WriteString("✅ <b>Participation Confirmed</b>\n\n")
		fmt.Fprintf(&b, "You are now participating in the giveaway for <b>%s</b>!", esc(g.Title()))
	}
	return b.String()
}

// RenderAnnouncement renders a public post about a resolved giveaway.
func RenderAnnouncement(a giveaway.Announcement) string {
	g := a.Giveaway
	var b strings.Builder

	switch a.Kind {
	case giveaway.AnnouncementCancelled:
		fmt.Fprintf(&b, "❌ <b>Giveaway Cancelled: %s</b>\n\n", esc(g.Title()))
		fmt.Fprintf(&b, "The required minimum of %d participants was not reached.\n", g.MinParticipants)
		if len(a.ShownParticipants) > 0 {
			fmt.Fprintf(&b, "<b>Participants:</b> %s", mentions(a.ShownParticipants))
			if a.HiddenParticipants > 0 {
				fmt.Fprintf(&b, ", and %d more", a.HiddenParticipants)
			}
			b.WriteString("\n")
		}
		b.WriteString("\nWe’re sorry to those who joined. A new giveaway will be available soon!")

	default:
		b.WriteString("🎉 <b>Giveaway Winners</b>\n\n")
		fmt.Fprintf(&b, "<b>Item:</b> %s\n", esc(g.Title()))
		fmt.Fprintf(&b, "<b>Duration:</b> %s\n", duration.Format(g.DurationMs))
		fmt.Fprintf(&b, "<b>Winners:</b> %s", mentions(a.Winners))
	}
	return b.String()
}

// RenderParticipants renders the admin participant listing.
func RenderParticipants(g giveaway.Giveaway) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>Participants List</b>: %s\n\n", esc(g.Title()))
	if len(g.Participants) == 0 {
		b.WriteString("❌ No participants yet.\n")
	}
	for i, id := range g.Participants {
		fmt.Fprintf(&b, "%d. %s\n", i+1, Mention(id))
	}
	fmt.Fprintf(&b, "\n<b>Total:</b> %d\n<b>Minimum Required:</b> %d", len(g.Participants), g.MinParticipants)
	return b.String()
}
