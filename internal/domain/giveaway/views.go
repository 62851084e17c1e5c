package giveaway

// Views handed to the presentation layer. They carry what to show, never how.

type ControlState string

const (
	ControlOpen      ControlState = "open"
	ControlCancelled ControlState = "cancelled"
	ControlEnded     ControlState = "ended"
)

// Control is the participation message of a giveaway. Only an open control
// accepts joins.
type Control struct {
	State    ControlState
	Giveaway Giveaway
	Winners  []string
	ImageURL string
}

type NotificationKind string

const (
	NotificationJoined NotificationKind = "joined"
	NotificationWinner NotificationKind = "winner"
)

// Notification is a direct message to one user.
type Notification struct {
	Kind     NotificationKind
	Giveaway Giveaway
	// Winners lists every winner of the draw, for NotificationWinner.
	Winners []string
	// TicketsChannelID is where winners claim their prize, "" if not configured.
	TicketsChannelID string
	ImageURL         string
}

type AnnouncementKind string

const (
	AnnouncementCancelled AnnouncementKind = "cancelled"
	AnnouncementWinners   AnnouncementKind = "winners"
)

// AnnouncementParticipantLimit caps the participants named in a cancellation
// notice; the rest are summarized as a count.
const AnnouncementParticipantLimit = 10

// Announcement is a public post about a resolved giveaway.
type Announcement struct {
	Kind               AnnouncementKind
	Giveaway           Giveaway
	Winners            []string
	ShownParticipants  []string
	HiddenParticipants int
	ImageURL           string
}

func NewCancellationAnnouncement(g Giveaway, imageURL string) Announcement {
	shown := g.Participants
	if len(shown) > AnnouncementParticipantLimit {
		shown = shown[:AnnouncementParticipantLimit]
	}
	return Announcement{
		Kind:               AnnouncementCancelled,
		Giveaway:           g,
		ShownParticipants:  append([]string(nil), shown...),
		HiddenParticipants: len(g.Participants) - len(shown),
		ImageURL:           imageURL,
	}
}

func NewWinnersAnnouncement(g Giveaway, winners []string, imageURL string) Announcement {
	return Announcement{
		Kind:     AnnouncementWinners,
		Giveaway: g,
		Winners:  winners,
		ImageURL: imageURL,
	}
}
