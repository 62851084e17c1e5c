package giveaway

import (
	"fmt"
	"slices"
	"time"
)

// IDPrefix is prepended to the counter value to form giveaway ids.
const IDPrefix = "giveaway-"

// FormatID renders the id allocated from counter value n.
func FormatID(n int64) string {
	return fmt.Sprintf("%s%d", IDPrefix, n)
}

// Giveaway is an active, unresolved giveaway. Resolved giveaways are not
// represented at all; they are removed from the registry.
//
// JSON names match the on-disk records so existing data files keep loading.
type Giveaway struct {
	ID              string   `json:"id"`
	Item            string   `json:"item"`
	Quantity        int      `json:"quantity"`
	WinnerCount     int      `json:"winners"`
	DurationMs      int64    `json:"duration"`
	EndTimeMs       int64    `json:"endTime"`
	Participants    []string `json:"participants"`
	MinParticipants int      `json:"minParticipants"`
	ChannelID       string   `json:"channelId"`
	MessageID       string   `json:"messageId,omitempty"`
	CreatedBy       string   `json:"createdBy"`
	CreatedAtMs     int64    `json:"createdAt"`
}

// Title is the display name, e.g. "Nitro ×3".
func (g *Giveaway) Title() string {
	if g.Quantity > 1 {
		return fmt.Sprintf("%s ×%d", g.Item, g.Quantity)
	}
	return g.Item
}

func (g *Giveaway) EndTime() time.Time {
	return time.UnixMilli(g.EndTimeMs)
}

func (g *Giveaway) HasParticipant(userID string) bool {
	return slices.Contains(g.Participants, userID)
}

// BelowMinimum reports whether expiry would cancel rather than draw winners.
func (g *Giveaway) BelowMinimum() bool {
	return len(g.Participants) < g.MinParticipants
}

// Published reports whether the participation control has been posted.
func (g *Giveaway) Published() bool {
	return g.MessageID != ""
}

// Clone returns a deep copy safe to hand out of the engine.
func (g *Giveaway) Clone() Giveaway {
	c := *g
	c.Participants = slices.Clone(g.Participants)
	if c.Participants == nil {
		c.Participants = []string{}
	}
	return c
}

// Patch lists the editable fields. Nil fields are left unchanged.
type Patch struct {
	Item            *string `json:"item,omitempty" validate:"omitempty,min=1,max=256"`
	Quantity        *int    `json:"quantity,omitempty" validate:"omitempty,min=1"`
	WinnerCount     *int    `json:"winners,omitempty" validate:"omitempty,min=1"`
	MinParticipants *int    `json:"minParticipants,omitempty" validate:"omitempty,min=1"`
}

func (p Patch) Empty() bool {
	return p.Item == nil && p.Quantity == nil && p.WinnerCount == nil && p.MinParticipants == nil
}

// Apply writes the present fields onto g.
func (p Patch) Apply(g *Giveaway) {
	if p.Item != nil {
		g.Item = *p.Item
	}
	if p.Quantity != nil {
		g.Quantity = *p.Quantity
	}
	if p.WinnerCount != nil {
		g.WinnerCount = *p.WinnerCount
	}
	if p.MinParticipants != nil {
		g.MinParticipants = *p.MinParticipants
	}
}

// Settings holds process-wide presentation settings.
type Settings struct {
	GlobalImage *string `json:"globalImage"`
}

// ImageURL returns the global image or "" when unset.
func (s Settings) ImageURL() string {
	if s.GlobalImage == nil {
		return ""
	}
	return *s.GlobalImage
}

// Snapshot is everything the engine persists: giveaways in registry order,
// settings and the id counter.
type Snapshot struct {
	Giveaways []Giveaway
	Settings  Settings
	Counter   int64
}
