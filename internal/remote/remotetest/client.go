// Package remotetest provides an in-memory remote.Client for tests.
package remotetest

import (
	"context"
	"errors"
	"sync"

	"github.com/giantswarm/locksmith/internal/credential"
	"github.com/giantswarm/locksmith/internal/remote"
)

// NicknameCall records one ChangeNickname invocation.
type NicknameCall struct {
	ThreadID string
	MemberID string
	Nickname string
}

// TitleCall records one ChangeTitle invocation.
type TitleCall struct {
	ThreadID string
	Title    string
}

// Client is a scriptable in-memory remote.Client. Successful changes are
// applied to the stored threads, so a later GetThreadInfo observes them.
type Client struct {
	mu sync.Mutex

	self    string
	threads map[string]*remote.ThreadInfo

	nicknameCalls []NicknameCall
	titleCalls    []TitleCall
	typing        []string
	infoFetches   map[string]int
	options       []remote.Options

	// Hooks may return an error to fail the call. They run before the
	// change is applied.
	NicknameHook func(call NicknameCall) error
	TitleHook    func(call TitleCall) error
	TypingHook   func(threadID string) error
	InfoHook     func(threadID string) error

	snapshot credential.Blob
	events   chan remote.Event
	closed   bool
}

// NewClient returns a Client logged in as self.
func NewClient(self string) *Client {
	return &Client{
		self:        self,
		threads:     make(map[string]*remote.ThreadInfo),
		infoFetches: make(map[string]int),
		events:      make(chan remote.Event, 64),
		snapshot:    credential.Blob{[]byte(`{"key":"c_user","value":"` + self + `"}`)},
	}
}

// AddThread stores a thread. nicknames may be nil.
func (c *Client) AddThread(threadID, title string, participants []string, nicknames map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	nicks := make(map[string]string, len(nicknames))
	for k, v := range nicknames {
		nicks[k] = v
	}
	c.threads[threadID] = &remote.ThreadInfo{
		ThreadID:     threadID,
		Title:        title,
		Participants: append([]string(nil), participants...),
		Nicknames:    nicks,
	}
}

// SetTitle changes a thread title as another member would.
func (c *Client) SetTitle(threadID, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.threads[threadID]; ok {
		t.Title = title
	}
}

// SetNickname changes a nickname as another member would.
func (c *Client) SetNickname(threadID, member, nickname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.threads[threadID]; ok {
		t.Nicknames[member] = nickname
	}
}

// AddParticipants appends members to a thread.
func (c *Client) AddParticipants(threadID string, members ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.threads[threadID]; ok {
		t.Participants = append(t.Participants, members...)
	}
}

// Emit delivers ev to the Listen channel.
func (c *Client) Emit(ev remote.Event) {
	c.events <- ev
}

// DropConnection closes the Listen channel as a lost connection would.
func (c *Client) DropConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

func (c *Client) NicknameCalls() []NicknameCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]NicknameCall(nil), c.nicknameCalls...)
}

func (c *Client) TitleCalls() []TitleCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TitleCall(nil), c.titleCalls...)
}

func (c *Client) TypingCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.typing...)
}

func (c *Client) InfoFetches(threadID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.infoFetches[threadID]
}

func (c *Client) AppliedOptions() []remote.Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]remote.Options(nil), c.options...)
}

func (c *Client) CurrentUserID() string { return c.self }

func (c *Client) GetThreadInfo(ctx context.Context, threadID string) (*remote.ThreadInfo, error) {
	if c.InfoHook != nil {
		if err := c.InfoHook(threadID); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.infoFetches[threadID]++
	t, ok := c.threads[threadID]
	if !ok {
		return nil, remote.NewError("getThreadInfo", remote.KindNotFound, errors.New("no such thread"))
	}
	nicks := make(map[string]string, len(t.Nicknames))
	for k, v := range t.Nicknames {
		nicks[k] = v
	}
	return &remote.ThreadInfo{
		ThreadID:     t.ThreadID,
		Title:        t.Title,
		Participants: append([]string(nil), t.Participants...),
		Nicknames:    nicks,
	}, nil
}

func (c *Client) ChangeNickname(ctx context.Context, nickname, threadID, memberID string) error {
	call := NicknameCall{ThreadID: threadID, MemberID: memberID, Nickname: nickname}
	if c.NicknameHook != nil {
		if err := c.NicknameHook(call); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.nicknameCalls = append(c.nicknameCalls, call)
	if t, ok := c.threads[threadID]; ok {
		t.Nicknames[memberID] = nickname
	}
	return nil
}

func (c *Client) ChangeTitle(ctx context.Context, title, threadID string) error {
	call := TitleCall{ThreadID: threadID, Title: title}
	if c.TitleHook != nil {
		if err := c.TitleHook(call); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.titleCalls = append(c.titleCalls, call)
	if t, ok := c.threads[threadID]; ok {
		t.Title = title
	}
	return nil
}

func (c *Client) SendTypingIndicator(ctx context.Context, threadID string) error {
	if c.TypingHook != nil {
		if err := c.TypingHook(threadID); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typing = append(c.typing, threadID)
	return nil
}

func (c *Client) Listen(ctx context.Context) (<-chan remote.Event, error) {
	out := make(chan remote.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-c.events:
				if !ok {
					return
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (c *Client) SessionSnapshot(ctx context.Context) (credential.Blob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(credential.Blob(nil), c.snapshot...), nil
}

func (c *Client) SetOptions(ctx context.Context, opts remote.Options) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options = append(c.options, opts)
	return nil
}

func (c *Client) Close() error { return nil }

// Dialer hands out clients in order. When Clients is exhausted the last one
// is reused.
type Dialer struct {
	mu      sync.Mutex
	Clients []*Client
	// Errs, when non-empty, fail logins in order before any client is used.
	Errs   []error
	logins int
	blobs  []credential.Blob
}

func (d *Dialer) Login(ctx context.Context, blob credential.Blob) (remote.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logins++
	d.blobs = append(d.blobs, blob)
	if len(d.Errs) > 0 {
		err := d.Errs[0]
		d.Errs = d.Errs[1:]
		return nil, err
	}
	if len(d.Clients) == 0 {
		return nil, errors.New("remotetest: no clients configured")
	}
	c := d.Clients[0]
	if len(d.Clients) > 1 {
		d.Clients = d.Clients[1:]
	}
	return c, nil
}

// Logins returns how many times Login was called.
func (d *Dialer) Logins() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logins
}

// Blobs returns the credential blobs passed to Login, in order.
func (d *Dialer) Blobs() []credential.Blob {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]credential.Blob(nil), d.blobs...)
}
