// Package host delivers storefront intents to the embedding host over HTTP.
// Delivery is best effort: one attempt, failures are logged and journaled,
// and the session never learns the outcome.
package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"blackmarket/internal/journal"
	"blackmarket/internal/logger"
	"blackmarket/internal/session"
)

var (
	// ErrTransportUnavailable means the host could not be reached at all.
	ErrTransportUnavailable = errors.New("host transport unavailable")
	// ErrRejected means the host answered with a non-2xx status.
	ErrRejected = errors.New("host rejected intent")
)

// Recorder stores delivery outcomes. *journal.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Stats counts delivery outcomes since start.
type Stats struct {
	Delivered int64 `json:"delivered"`
	Dropped   int64 `json:"dropped"`
}

// Client posts intents to <base>/<action>.
type Client struct {
	base     string
	http     *http.Client
	recorder Recorder
	wg       sync.WaitGroup

	delivered atomic.Int64
	dropped   atomic.Int64
}

// NewClient returns a client for the host callback base URL. recorder may be
// nil.
func NewClient(base string, timeout time.Duration, recorder Recorder) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base:     strings.TrimRight(base, "/"),
		http:     &http.Client{Timeout: timeout},
		recorder: recorder,
	}
}

// Emit delivers in on its own goroutine and returns immediately.
func (c *Client) Emit(in session.Intent) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := c.Deliver(context.Background(), in)
		if err != nil {
			logger.LogWarn("Intent %s (%s) dropped: %v", in.Action, in.ID, err)
		}
	}()
}

// Wait blocks until every in-flight delivery has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// Stats returns the delivery counters.
func (c *Client) Stats() Stats {
	return Stats{Delivered: c.delivered.Load(), Dropped: c.dropped.Load()}
}

// Deliver makes a single delivery attempt and records the outcome.
func (c *Client) Deliver(ctx context.Context, in session.Intent) error {
	body, err := json.Marshal(bodyOf(in))
	if err != nil {
		err = fmt.Errorf("encode %s body: %w", in.Action, err)
		c.finish(in, "{}", err)
		return err
	}

	err = c.post(ctx, in.Action, body)
	c.finish(in, string(body), err)
	return err
}

func bodyOf(in session.Intent) interface{} {
	if in.Body == nil {
		return struct{}{}
	}
	return in.Body
}

func (c *Client) post(ctx context.Context, action string, body []byte) error {
	url := c.base + "/" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned %d", ErrRejected, action, resp.StatusCode)
	}
	return nil
}

func (c *Client) finish(in session.Intent, body string, err error) {
	entry := journal.Entry{
		ID:        in.ID,
		SessionID: in.SessionID,
		Action:    in.Action,
		BodyJSON:  body,
		Outcome:   journal.OutcomeDelivered,
		CreatedAt: time.Now(),
	}
	if err != nil {
		c.dropped.Add(1)
		entry.Outcome = journal.OutcomeDropped
		entry.Error = err.Error()
	} else {
		c.delivered.Add(1)
		logger.LogDebug("Delivered intent %s (%s)", in.Action, in.ID)
	}

	if c.recorder == nil {
		return
	}
	if rerr := c.recorder.Record(context.Background(), entry); rerr != nil {
		logger.LogError("Failed to journal intent %s: %v", in.ID, rerr)
	}
}
