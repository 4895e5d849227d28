package remote

import (
	"context"

	"github.com/giantswarm/locksmith/internal/credential"
)

// ThreadInfo is a snapshot of one group as the remote service reports it.
type ThreadInfo struct {
	ThreadID string
	Title    string
	// Participants lists member IDs in the order the service returned them.
	Participants []string
	// Nicknames maps member IDs to their current nickname. Members without
	// a nickname are absent.
	Nicknames map[string]string
}

// NicknameOf returns member's current nickname, or "" when none is set.
func (t *ThreadInfo) NicknameOf(member string) string {
	return t.Nicknames[member]
}

// Options are the session switches applied right after login.
type Options struct {
	ListenEvents   bool `json:"listenEvents"`
	SelfListen     bool `json:"selfListen"`
	UpdatePresence bool `json:"updatePresence"`
}

// DefaultOptions is what the agent runs with.
var DefaultOptions = Options{ListenEvents: true, SelfListen: true, UpdatePresence: true}

// EventType names a live notification.
type EventType string

const (
	EventNicknameChanged EventType = "log:user-nickname"
	EventTitleChanged    EventType = "log:thread-name"
	EventMembersAdded    EventType = "log:subscribe"
	EventThreadCreated   EventType = "log:thread-created"
)

// Event is a live notification from the remote service.
type Event struct {
	Type     EventType
	ThreadID string
	AuthorID string

	// MemberID and Nickname are set for EventNicknameChanged.
	MemberID string
	Nickname string

	// Title is set for EventTitleChanged.
	Title string

	// AddedIDs is set for EventMembersAdded.
	AddedIDs []string
}

// Client is an authenticated session with the remote service.
type Client interface {
	// CurrentUserID returns the id of the logged-in account.
	CurrentUserID() string

	GetThreadInfo(ctx context.Context, threadID string) (*ThreadInfo, error)
	ChangeNickname(ctx context.Context, nickname, threadID, memberID string) error
	ChangeTitle(ctx context.Context, title, threadID string) error
	SendTypingIndicator(ctx context.Context, threadID string) error

	// Listen streams notifications until ctx is done or the connection
	// drops. The channel is closed in both cases.
	Listen(ctx context.Context) (<-chan Event, error)

	// SessionSnapshot returns the current credential blob, which the
	// service may have refreshed since login.
	SessionSnapshot(ctx context.Context) (credential.Blob, error)

	SetOptions(ctx context.Context, opts Options) error
	Close() error
}

// Dialer logs in with a credential blob.
type Dialer interface {
	Login(ctx context.Context, blob credential.Blob) (Client, error)
}
