package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/giantswarm/locksmith/internal/credential"
	"github.com/giantswarm/locksmith/internal/remote"
	"github.com/giantswarm/locksmith/pkg/logging"
)

const maxErrorBody = 4096

// Config locates the bridge.
type Config struct {
	URL      string
	Timeout  time.Duration
	RetryMax int
}

// Dialer logs in through the bridge.
type Dialer struct {
	config Config
}

// NewDialer returns a Dialer for config.
func NewDialer(config Config) *Dialer {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Dialer{config: config}
}

// Login hands blob to the bridge and returns a client for the session.
func (d *Dialer) Login(ctx context.Context, blob credential.Blob) (remote.Client, error) {
	base, err := url.Parse(strings.TrimRight(d.config.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse bridge url: %w", err)
	}

	c := &Client{
		base:   base,
		reads:  newHTTPClient(d.config.Timeout, d.config.RetryMax),
		writes: newHTTPClient(d.config.Timeout, 0),
	}

	var resp loginResponse
	if err := c.call(ctx, c.writes, "login", http.MethodPost, "/login", loginRequest{AppState: blob}, &resp); err != nil {
		var re *remote.Error
		if errors.As(err, &re) && (re.Kind == remote.KindDisconnected || re.Kind == remote.KindNotFound) {
			return nil, &credential.InvalidSessionError{Source: "bridge", Reason: "login rejected", Err: err}
		}
		return nil, err
	}
	if resp.UserID == "" {
		return nil, &credential.InvalidSessionError{Source: "bridge", Reason: "login returned no user id"}
	}
	c.userID = resp.UserID
	logging.Info("Bridge", "Logged in as %s via %s", c.userID, base.Host)
	return c, nil
}

// newHTTPClient returns a retrying client. Non-2xx responses are passed
// through so the status can be classified.
func newHTTPClient(timeout time.Duration, retryMax int) *retryablehttp.Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = retryMax
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 5 * time.Second
	hc.HTTPClient.Timeout = timeout
	hc.Logger = leveledLogger{}
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return hc
}

// Client is a bridge-backed remote.Client. Reads are retried on transient
// failures; mutations are sent once.
type Client struct {
	base   *url.URL
	reads  *retryablehttp.Client
	writes *retryablehttp.Client
	userID string
}

var _ remote.Client = (*Client)(nil)

func (c *Client) CurrentUserID() string { return c.userID }

func (c *Client) GetThreadInfo(ctx context.Context, threadID string) (*remote.ThreadInfo, error) {
	var resp threadResponse
	if err := c.call(ctx, c.reads, "getThreadInfo", http.MethodGet, "/threads/"+url.PathEscape(threadID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.toThreadInfo(threadID), nil
}

func (c *Client) ChangeNickname(ctx context.Context, nickname, threadID, memberID string) error {
	body := nicknameRequest{Nickname: nickname, ParticipantID: memberID}
	return c.call(ctx, c.writes, "changeNickname", http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/nickname", body, nil)
}

func (c *Client) ChangeTitle(ctx context.Context, title, threadID string) error {
	return c.call(ctx, c.writes, "changeTitle", http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/title", titleRequest{Title: title}, nil)
}

func (c *Client) SendTypingIndicator(ctx context.Context, threadID string) error {
	return c.call(ctx, c.writes, "sendTypingIndicator", http.MethodPost, "/threads/"+url.PathEscape(threadID)+"/typing", nil, nil)
}

func (c *Client) SessionSnapshot(ctx context.Context) (credential.Blob, error) {
	var blob credential.Blob
	if err := c.call(ctx, c.reads, "sessionSnapshot", http.MethodGet, "/appstate", nil, &blob); err != nil {
		return nil, err
	}
	return blob, nil
}

func (c *Client) SetOptions(ctx context.Context, opts remote.Options) error {
	return c.call(ctx, c.writes, "setOptions", http.MethodPost, "/options", opts, nil)
}

// Close releases idle connections. The bridge session itself outlives the
// client so a reconnect can log in again.
func (c *Client) Close() error {
	c.reads.HTTPClient.CloseIdleConnections()
	c.writes.HTTPClient.CloseIdleConnections()
	return nil
}

// Listen opens the websocket event stream.
func (c *Client) Listen(ctx context.Context) (<-chan remote.Event, error) {
	wsURL := *c.base
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = strings.TrimRight(wsURL.Path, "/") + "/events"

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		kind := remote.KindTransient
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			kind = remote.KindDisconnected
		}
		return nil, remote.NewError("listen", kind, err)
	}

	events := make(chan remote.Event, 16)
	stop := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		conn.Close()
	}()

	go func() {
		defer close(events)
		defer close(stop)

		for {
			var msg wireEvent
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() == nil {
					logging.Warn("Bridge", "Event stream closed: %v", err)
				}
				return
			}
			ev, ok := msg.toEvent()
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// call performs one request. in is encoded as JSON when non-nil; out is
// decoded from the response when non-nil.
func (c *Client) call(ctx context.Context, hc *retryablehttp.Client, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return remote.NewError(op, remote.KindTransient, fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path

	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return remote.NewError(op, remote.KindTransient, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return remote.NewError(op, remote.KindTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return remote.NewError(op, remote.KindTransient, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(data))
	var er errorResponse
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		msg = er.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	err := fmt.Errorf("status %d: %s", resp.StatusCode, msg)

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return remote.NewError(op, remote.KindRateLimited, err)
	case http.StatusNotFound:
		return remote.NewError(op, remote.KindNotFound, err)
	case http.StatusUnauthorized:
		return remote.NewError(op, remote.KindDisconnected, err)
	default:
		return remote.NewError(op, remote.KindTransient, err)
	}
}
