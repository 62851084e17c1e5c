package giveaway

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"giveaway-bot/internal/domain/giveaway"
)

type editCall struct {
	ChannelID string
	MessageID string
	Control   giveaway.Control
}

type directCall struct {
	UserID       string
	Notification giveaway.Notification
}

type announceCall struct {
	ChannelID    string
	Announcement giveaway.Announcement
}

// fakePresenter records every call. Function fields override the default
// behaviour when set.
type fakePresenter struct {
	mu sync.Mutex

	nextMessageID int
	posts         []giveaway.Control
	edits         []editCall
	directs       []directCall
	announcements []announceCall

	// channels reachable by ResolveChannel; nil means every channel
	channels map[string]bool
	// messages deleted from the platform, keyed by message id
	deleted map[string]bool

	PostControlFunc      func(giveaway.Control) (string, error)
	EditControlFunc      func(editCall) error
	SendDirectFunc       func(userID string, n giveaway.Notification) error
	PostAnnouncementFunc func(announceCall) error
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{nextMessageID: 100, deleted: map[string]bool{}}
}

func (p *fakePresenter) PostControl(_ context.Context, c giveaway.Control) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, c)
	if p.PostControlFunc != nil {
		return p.PostControlFunc(c)
	}
	p.nextMessageID++
	return strconv.Itoa(p.nextMessageID), nil
}

func (p *fakePresenter) EditControl(_ context.Context, channelID, messageID string, c giveaway.Control) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := editCall{ChannelID: channelID, MessageID: messageID, Control: c}
	if p.EditControlFunc != nil {
		if err := p.EditControlFunc(call); err != nil {
			return err
		}
	}
	p.edits = append(p.edits, call)
	return nil
}

func (p *fakePresenter) SendDirect(_ context.Context, userID string, n giveaway.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.directs = append(p.directs, directCall{UserID: userID, Notification: n})
	if p.SendDirectFunc != nil {
		return p.SendDirectFunc(userID, n)
	}
	return nil
}

func (p *fakePresenter) PostAnnouncement(_ context.Context, channelID string, a giveaway.Announcement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := announceCall{ChannelID: channelID, Announcement: a}
	p.announcements = append(p.announcements, call)
	if p.PostAnnouncementFunc != nil {
		return p.PostAnnouncementFunc(call)
	}
	return nil
}

func (p *fakePresenter) ResolveChannel(_ context.Context, channelID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channels == nil {
		return channelID != ""
	}
	return p.channels[channelID]
}

func (p *fakePresenter) ResolveMessage(_ context.Context, channelID, messageID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return messageID != "" && !p.deleted[messageID]
}

func (p *fakePresenter) deleteMessage(messageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted[messageID] = true
}

func (p *fakePresenter) setChannels(ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = map[string]bool{}
	for _, id := range ids {
		p.channels[id] = true
	}
}

func (p *fakePresenter) directsOfKind(kind giveaway.NotificationKind) []directCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []directCall
	for _, d := range p.directs {
		if d.Notification.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func (p *fakePresenter) lastEdit() (editCall, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.edits) == 0 {
		return editCall{}, false
	}
	return p.edits[len(p.edits)-1], true
}

func (p *fakePresenter) announcementCalls() []announceCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]announceCall(nil), p.announcements...)
}

// memStore keeps the last saved snapshot.
type memStore struct {
	mu      sync.Mutex
	snap    giveaway.Snapshot
	saves   int
	saveErr error
	loadErr error
}

func (s *memStore) Load(context.Context) (giveaway.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.loadErr
}

func (s *memStore) Save(_ context.Context, snap giveaway.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snap = snap
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) saved() giveaway.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

var errPlatform = errors.New("telegram: Bad Request: chat not found")

// gatedStore blocks the first Save after arm until release is closed.
type gatedStore struct {
	*memStore

	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{memStore: &memStore{}}
}

func (s *gatedStore) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = true
	s.entered = make(chan struct{})
	s.release = make(chan struct{})
}

func (s *gatedStore) Save(ctx context.Context, snap giveaway.Snapshot) error {
	s.mu.Lock()
	gated := s.armed
	s.armed = false
	entered, release := s.entered, s.release
	s.mu.Unlock()

	if gated {
		close(entered)
		<-release
	}
	return s.memStore.Save(ctx, snap)
}
