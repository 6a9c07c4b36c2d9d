package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexuslabs/nexus/internal/chat"
	"github.com/nexuslabs/nexus/internal/log"
	"github.com/nexuslabs/nexus/internal/storage"
)

// fakeTransport records requests and serves a scripted outcome. When
// block is set it holds the exchange open until the channel closes or
// the context expires.
type fakeTransport struct {
	mu       sync.Mutex
	reply    chat.Response
	err      error
	block    chan struct{}
	requests []chat.Request
}

func (f *fakeTransport) Send(ctx context.Context, req chat.Request) (chat.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block := f.block
	reply, err := f.reply, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return chat.Response{}, ctx.Err()
		}
	}
	return reply, err
}

func (f *fakeTransport) recorded() []chat.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]chat.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

func newTestController(t *testing.T, store storage.Store, transport Transport) *Controller {
	t.Helper()
	c, err := NewController(Config{
		Store:     store,
		Transport: transport,
		Logger:    log.NewNop(),
	})
	require.NoError(t, err)
	return c
}

func TestNewController_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing store", Config{Transport: &fakeTransport{}, Logger: log.NewNop()}},
		{"missing transport", Config{Store: storage.NewMemory(), Logger: log.NewNop()}},
		{"missing logger", Config{Store: storage.NewMemory(), Transport: &fakeTransport{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewController(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestController_FreshSessionStartsWithGreeting(t *testing.T) {
	t.Parallel()

	c := newTestController(t, storage.NewMemory(), &fakeTransport{})

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, KindBot, msgs[0].Kind)
	assert.Equal(t, Greeting, msgs[0].Content)
	assert.False(t, msgs[0].Error)
	assert.NotEmpty(t, msgs[0].ID)
}

func TestController_RestoresPersistedTranscript(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	transport := &fakeTransport{reply: chat.Response{Success: true, Message: "four"}}

	// Fixed clock so timestamps survive the JSON round trip unchanged.
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	first, err := NewController(Config{
		Store:     store,
		Transport: transport,
		Logger:    log.NewNop(),
		Now:       func() time.Time { return ts },
	})
	require.NoError(t, err)
	require.NoError(t, first.Send(context.Background(), "what is 2+2"))

	// A second controller over the same store sees the same transcript.
	second := newTestController(t, store, transport)
	assert.Equal(t, first.Messages(), second.Messages())
}

func TestController_CorruptHistoryFallsBackToGreeting(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	require.NoError(t, store.Set(HistoryKey, []byte("{not json")))

	c := newTestController(t, store, &fakeTransport{})

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Greeting, msgs[0].Content)
}

func TestController_BlankSendIsNoOp(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	c := newTestController(t, storage.NewMemory(), transport)
	before := c.Messages()

	require.NoError(t, c.Send(context.Background(), "   \t\n"))

	assert.Equal(t, before, c.Messages())
	assert.Empty(t, transport.recorded())
}

func TestController_SendAppendsUserAndReply(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{reply: chat.Response{Success: true, Message: "Paris."}}
	c := newTestController(t, storage.NewMemory(), transport)

	require.NoError(t, c.Send(context.Background(), "  capital of France?  "))

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, KindUser, msgs[1].Kind)
	assert.Equal(t, "capital of France?", msgs[1].Content)
	assert.Equal(t, KindBot, msgs[2].Kind)
	assert.Equal(t, "Paris.", msgs[2].Content)
	assert.False(t, msgs[2].Error)
	assert.False(t, c.Awaiting())

	reqs := transport.recorded()
	require.Len(t, reqs, 1)
	// Greeting goes out as an assistant turn, the question as a user turn.
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, chat.RoleAssistant, reqs[0].Messages[0].Role)
	assert.Equal(t, Greeting, reqs[0].Messages[0].Content)
	assert.Equal(t, chat.RoleUser, reqs[0].Messages[1].Role)
	assert.Equal(t, "capital of France?", reqs[0].Messages[1].Content)
}

func TestController_SendWhileAwaitingReturnsBusy(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{
		reply: chat.Response{Success: true, Message: "done"},
		block: make(chan struct{}),
	}
	c := newTestController(t, storage.NewMemory(), transport)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "first") }()

	require.Eventually(t, c.Awaiting, time.Second, time.Millisecond)
	assert.ErrorIs(t, c.Send(context.Background(), "second"), ErrBusy)

	close(transport.block)
	require.NoError(t, <-done)
	assert.False(t, c.Awaiting())
}

func TestController_FailureNotices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		notice string
	}{
		{"timeout", context.DeadlineExceeded, noticeTimeout},
		{"cancelled", context.Canceled, noticeTimeout},
		{"server status", ErrServerStatus, noticeUpstream},
		{"bad reply", ErrBadReply, noticeGeneric},
		{"connectivity", errors.New("dial tcp: connection refused"), noticeConnectivity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			transport := &fakeTransport{err: tt.err}
			c := newTestController(t, storage.NewMemory(), transport)

			err := c.Send(context.Background(), "hello")
			assert.ErrorIs(t, err, tt.err)

			msgs := c.Messages()
			require.Len(t, msgs, 3)
			last := msgs[2]
			assert.Equal(t, KindBot, last.Kind)
			assert.True(t, last.Error)
			assert.Equal(t, tt.notice, last.Content)
			assert.False(t, c.Awaiting())
		})
	}
}

func TestController_ErrorNoticesAreNotResent(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{err: ErrServerStatus}
	c := newTestController(t, storage.NewMemory(), transport)

	require.Error(t, c.Send(context.Background(), "first try"))

	transport.mu.Lock()
	transport.err = nil
	transport.reply = chat.Response{Success: true, Message: "recovered"}
	transport.mu.Unlock()

	require.NoError(t, c.Send(context.Background(), "second try"))

	reqs := transport.recorded()
	require.Len(t, reqs, 2)
	for _, m := range reqs[1].Messages {
		assert.NotEqual(t, noticeUpstream, m.Content)
	}
	// Greeting, first user turn, second user turn.
	require.Len(t, reqs[1].Messages, 3)
	assert.Equal(t, "first try", reqs[1].Messages[1].Content)
	assert.Equal(t, "second try", reqs[1].Messages[2].Content)
}

func TestController_TimeoutProducesNotice(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{block: make(chan struct{})}
	c, err := NewController(Config{
		Store:     storage.NewMemory(),
		Transport: transport,
		Logger:    log.NewNop(),
		Timeout:   20 * time.Millisecond,
	})
	require.NoError(t, err)

	err = c.Send(context.Background(), "slow question")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.True(t, msgs[2].Error)
	assert.Equal(t, noticeTimeout, msgs[2].Content)

	// Back to idle: a new Send is accepted, not rejected as busy.
	assert.False(t, c.Awaiting())
	err = c.Send(context.Background(), "again")
	assert.NotErrorIs(t, err, ErrBusy)
}

func TestController_CancelAbortsInFlightExchange(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{block: make(chan struct{})}
	c := newTestController(t, storage.NewMemory(), transport)

	done := make(chan error, 1)
	go func() { done <- c.Send(context.Background(), "never mind") }()

	require.Eventually(t, c.Awaiting, time.Second, time.Millisecond)
	c.Cancel()

	assert.ErrorIs(t, <-done, context.Canceled)

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.True(t, msgs[2].Error)
	assert.Equal(t, noticeTimeout, msgs[2].Content)
	assert.False(t, c.Awaiting())
}

func TestController_RetryLast(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{err: ErrServerStatus}
	c := newTestController(t, storage.NewMemory(), transport)

	_, ok := c.RetryLast()
	assert.False(t, ok, "nothing to retry in a fresh session")

	require.Error(t, c.Send(context.Background(), "flaky question"))

	text, ok := c.RetryLast()
	require.True(t, ok)
	assert.Equal(t, "flaky question", text)

	// The failure notice is removed; the user entry stays.
	msgs := c.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "flaky question", msgs[1].Content)
}

func TestController_Regenerate(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{reply: chat.Response{Success: true, Message: "first answer"}}
	c := newTestController(t, storage.NewMemory(), transport)

	require.NoError(t, c.Send(context.Background(), "question"))
	require.Len(t, c.Messages(), 3)

	transport.mu.Lock()
	transport.reply = chat.Response{Success: true, Message: "second answer"}
	transport.mu.Unlock()

	ok, err := c.Regenerate(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// The first answer is gone; the user turn is re-issued.
	msgs := c.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "question", msgs[1].Content)
	assert.Equal(t, "question", msgs[2].Content)
	assert.Equal(t, "second answer", msgs[3].Content)

	// The regenerated request must not carry the first answer.
	reqs := transport.recorded()
	require.Len(t, reqs, 2)
	for _, m := range reqs[1].Messages {
		assert.NotEqual(t, "first answer", m.Content)
	}
	require.Len(t, reqs[1].Messages, 3)
	assert.Equal(t, Greeting, reqs[1].Messages[0].Content)
	assert.Equal(t, chat.RoleUser, reqs[1].Messages[2].Role)
}

func TestController_RegenerateWithoutUserTurn(t *testing.T) {
	t.Parallel()

	c := newTestController(t, storage.NewMemory(), &fakeTransport{})

	ok, err := c.Regenerate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, c.Messages(), 1)
}

func TestController_ClearResetsToGreeting(t *testing.T) {
	t.Parallel()

	store := storage.NewMemory()
	transport := &fakeTransport{reply: chat.Response{Success: true, Message: "sure"}}
	c := newTestController(t, store, transport)

	require.NoError(t, c.Send(context.Background(), "hello"))
	require.Len(t, c.Messages(), 3)

	c.Clear()

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, Greeting, msgs[0].Content)

	// The reset is persisted too.
	restored := newTestController(t, store, transport)
	restoredMsgs := restored.Messages()
	require.Len(t, restoredMsgs, 1)
	assert.Equal(t, Greeting, restoredMsgs[0].Content)
}

func TestDisplayed_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	in := []Displayed{
		{ID: "a", Kind: KindBot, Content: Greeting, Timestamp: ts},
		{ID: "b", Kind: KindUser, Content: "hi", Timestamp: ts.Add(time.Minute)},
		{ID: "c", Kind: KindBot, Content: noticeGeneric, Timestamp: ts.Add(2 * time.Minute), Error: true},
	}

	data, err := encodeHistory(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"user"`)
	assert.Contains(t, string(data), `"2025-06-01T12:30:00Z"`)

	out, err := decodeHistory(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
