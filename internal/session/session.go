// Package session implements the client-side chat session: a transcript
// of displayed entries, a single-exchange state machine guarding the
// gateway round trip, and persistence of the transcript after every
// mutation.
//
// File structure:
//   - session.go: controller, state machine, retry and regenerate
//   - message.go: displayed entry type and history codec
//   - transport.go: gateway HTTP client
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexuslabs/nexus/internal/chat"
	"github.com/nexuslabs/nexus/internal/log"
	"github.com/nexuslabs/nexus/internal/storage"
)

// Greeting opens every fresh session.
const Greeting = "Hi! I'm Nexus, your AI assistant. I can help you with questions, solve problems, provide explanations, assist with tasks, and much more. What can I help you with today?"

// HistoryKey is the store key the transcript lives under.
const HistoryKey = "nexus_chat_messages"

// DefaultTimeout bounds one gateway round trip.
const DefaultTimeout = 30 * time.Second

// Failure notices appended to the transcript, one per category.
const (
	noticeTimeout      = "Request timed out. The AI service is taking too long to respond. Please try again."
	noticeConnectivity = "Unable to connect to the AI service. Please check your internet connection and try again."
	noticeUpstream     = "The AI service is temporarily unavailable. Please try again in a few moments."
	noticeGeneric      = "I'm sorry, I'm experiencing some technical difficulties right now. Please try again in a moment."
)

// Controller state errors.
var (
	// ErrBusy reports a Send attempted while an exchange is in flight.
	ErrBusy = errors.New("an exchange is already in flight")
	// ErrNoValidMessages reports a transcript with nothing sendable.
	ErrNoValidMessages = errors.New("no valid messages to send")
)

// Config carries the controller dependencies.
type Config struct {
	Store     storage.Store
	Transport Transport
	Logger    log.Logger

	// Timeout bounds one exchange. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Test seams. Default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

func (c *Config) validate() error {
	if c.Store == nil {
		return errors.New("store is required")
	}
	if c.Transport == nil {
		return errors.New("transport is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	return nil
}

// Controller owns one chat session. At most one exchange is in flight
// at a time; Send returns ErrBusy until the current one settles.
type Controller struct {
	store     storage.Store
	transport Transport
	logger    log.Logger
	timeout   time.Duration
	now       func() time.Time
	newID     func() string

	mu       sync.Mutex
	messages []Displayed
	awaiting bool
	cancel   context.CancelFunc
}

// NewController restores the persisted transcript, or starts a fresh
// session with the greeting when nothing usable is stored.
func NewController(cfg Config) (*Controller, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		store:     cfg.Store,
		transport: cfg.Transport,
		logger:    cfg.Logger,
		timeout:   cfg.Timeout,
		now:       cfg.Now,
		newID:     cfg.NewID,
	}
	c.messages = c.restore()
	return c, nil
}

// restore loads the stored transcript. Corrupt or missing history is
// not fatal; the session starts over with the greeting.
func (c *Controller) restore() []Displayed {
	data, err := c.store.Get(HistoryKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("failed to load chat history", "error", err)
		}
		return []Displayed{c.greeting()}
	}

	msgs, err := decodeHistory(data)
	if err != nil || len(msgs) == 0 {
		if err != nil {
			c.logger.Warn("discarding corrupt chat history", "error", err)
		}
		return []Displayed{c.greeting()}
	}
	return msgs
}

func (c *Controller) greeting() Displayed {
	return Displayed{
		ID:        c.newID(),
		Kind:      KindBot,
		Content:   Greeting,
		Timestamp: c.now(),
	}
}

// Messages returns a copy of the transcript in display order.
func (c *Controller) Messages() []Displayed {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Displayed, len(c.messages))
	copy(out, c.messages)
	return out
}

// Awaiting reports whether an exchange is in flight.
func (c *Controller) Awaiting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.awaiting
}

// Send runs one exchange: it appends the user entry, posts the
// sendable transcript to the gateway, and appends either the reply or
// an error-flagged notice. Blank input is a no-op. Returns ErrBusy if
// an exchange is already in flight; the transcript is settled and
// persisted by the time Send returns, whatever the outcome.
func (c *Controller) Send(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	c.mu.Lock()
	if c.awaiting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.awaiting = true

	c.messages = append(c.messages, Displayed{
		ID:        c.newID(),
		Kind:      KindUser,
		Content:   trimmed,
		Timestamp: c.now(),
	})
	c.persistLocked()

	outbound := c.outboundLocked()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	if len(outbound) == 0 {
		c.settle(Displayed{}, ErrNoValidMessages)
		return ErrNoValidMessages
	}

	reply, err := c.transport.Send(ctx, chat.Request{Messages: outbound})
	if err != nil {
		c.logger.Warn("chat exchange failed", "error", err)
		c.settle(Displayed{}, err)
		return err
	}

	c.settle(Displayed{
		ID:        c.newID(),
		Kind:      KindBot,
		Content:   reply.Message,
		Timestamp: c.now(),
	}, nil)
	return nil
}

// settle appends the outcome of an exchange and returns to idle. The
// outcome is dropped if Clear reset the session while the exchange was
// in flight.
func (c *Controller) settle(botMsg Displayed, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.awaiting {
		return
	}

	if err != nil {
		botMsg = Displayed{
			ID:        c.newID(),
			Kind:      KindBot,
			Content:   noticeFor(err),
			Timestamp: c.now(),
			Error:     true,
		}
	}
	c.messages = append(c.messages, botMsg)
	c.awaiting = false
	c.cancel = nil
	c.persistLocked()
}

// noticeFor picks the transcript notice for a failed exchange.
func noticeFor(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return noticeTimeout
	case errors.Is(err, ErrServerStatus):
		return noticeUpstream
	case errors.Is(err, ErrBadReply), errors.Is(err, ErrNoValidMessages):
		return noticeGeneric
	default:
		return noticeConnectivity
	}
}

// outboundLocked builds the wire transcript: error-flagged notices and
// blank entries are dropped, the rest map to wire roles.
func (c *Controller) outboundLocked() []chat.Message {
	out := make([]chat.Message, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Kind == KindBot && m.Error {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := chat.RoleAssistant
		if m.Kind == KindUser {
			role = chat.RoleUser
		}
		out = append(out, chat.Message{Role: role, Content: content})
	}
	return out
}

// Cancel aborts the in-flight exchange, if any. The aborted Send still
// settles the transcript with a timeout notice.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// RetryLast returns the most recent user text so the caller can edit
// and resend it. A trailing error-flagged entry is removed so the next
// Send does not duplicate the failure notice; the user entry itself
// stays in the transcript.
func (c *Controller) RetryLast() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := len(c.messages); n > 0 && c.messages[n-1].Error {
		c.messages = c.messages[:n-1]
		c.persistLocked()
	}

	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Kind == KindUser {
			return c.messages[i].Content, true
		}
	}
	return "", false
}

// Regenerate removes the most recent reply and re-issues the user text
// that produced it as a fresh Send. Reports false when the transcript
// has no user turn to regenerate from.
func (c *Controller) Regenerate(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.awaiting {
		c.mu.Unlock()
		return false, ErrBusy
	}

	// Most recent non-error assistant entry.
	bot := -1
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Kind == KindBot && !c.messages[i].Error {
			bot = i
			break
		}
	}

	// Most recent user entry preceding it.
	user := -1
	limit := len(c.messages)
	if bot != -1 {
		limit = bot
	}
	for i := limit - 1; i >= 0; i-- {
		if c.messages[i].Kind == KindUser {
			user = i
			break
		}
	}
	if user == -1 {
		c.mu.Unlock()
		return false, nil
	}

	text := c.messages[user].Content
	if bot > user {
		c.messages = append(c.messages[:bot], c.messages[bot+1:]...)
		c.persistLocked()
	}
	c.mu.Unlock()

	return true, c.Send(ctx, text)
}

// Clear cancels any in-flight exchange and resets the session to a
// single greeting.
func (c *Controller) Clear() {
	c.Cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.awaiting = false
	c.cancel = nil
	c.messages = []Displayed{c.greeting()}
	c.persistLocked()
}

// persistLocked writes the transcript to the store. Persistence is
// best effort; a failing store must not break the conversation.
func (c *Controller) persistLocked() {
	data, err := encodeHistory(c.messages)
	if err != nil {
		c.logger.Warn("failed to encode chat history", "error", err)
		return
	}
	if err := c.store.Set(HistoryKey, data); err != nil {
		c.logger.Warn("failed to persist chat history", "error", err)
	}
}
