package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nexuslabs/nexus/internal/chat"
	"github.com/nexuslabs/nexus/internal/log"
)

// Transport delivers one chat exchange to the gateway. Implementations
// must honor context cancellation and return a categorizable error on
// failure so the controller can pick the right notice for the user.
type Transport interface {
	Send(ctx context.Context, req chat.Request) (chat.Response, error)
}

// Transport failure categories surfaced to the controller.
var (
	// ErrServerStatus reports a non-2xx reply from the gateway.
	ErrServerStatus = errors.New("chat service returned an error status")
	// ErrBadReply reports a 2xx reply whose body is unusable
	// (success flag unset or empty message).
	ErrBadReply = errors.New("chat service returned an unusable reply")
)

// Client is the HTTP Transport speaking to a gateway /chat endpoint.
type Client struct {
	http   *resty.Client
	logger log.Logger
}

// NewClient builds a gateway client for the given base URL,
// e.g. "http://127.0.0.1:8080".
func NewClient(baseURL string, logger log.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)

	return &Client{http: httpClient, logger: logger}
}

// Send implements Transport.
func (c *Client) Send(ctx context.Context, req chat.Request) (chat.Response, error) {
	var reply chat.Response

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&reply).
		SetError(&reply).
		Post("/chat")
	if err != nil {
		// resty wraps context errors; unwrap so callers can errors.Is
		// against context.DeadlineExceeded and context.Canceled.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return chat.Response{}, ctxErr
		}
		return chat.Response{}, fmt.Errorf("posting chat request: %w", err)
	}

	if resp.IsError() {
		c.logger.Warn("chat request rejected",
			"status", resp.StatusCode(),
			"error", reply.Error)
		return chat.Response{}, fmt.Errorf("%w: %d", ErrServerStatus, resp.StatusCode())
	}

	if !reply.Success || reply.Message == "" {
		return chat.Response{}, ErrBadReply
	}

	return reply, nil
}
