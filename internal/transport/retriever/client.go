// Package retriever is the HTTP transport for the retriever execute endpoint.
//
// A Client owns exactly one logical in-flight request: starting a new call
// cancels the previous one, and the previous caller observes domain.ErrCancelled.
package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mixpeek/searchkit/internal/domain"
	"github.com/mixpeek/searchkit/internal/domain/search/outcome"
	"github.com/mixpeek/searchkit/internal/domain/search/request"
	"github.com/mixpeek/searchkit/internal/transport/sse"
)

// Default timeouts.
const (
	DefaultRequestTimeout        = 30 * time.Second
	DefaultResponseHeaderTimeout = 15 * time.Second
)

const (
	maxErrorBody    = 64 << 10
	maxResponseBody = 32 << 20
	maxLoggedFrame  = 256
)

var errHeaderTimeout = errors.New("timed out waiting for response headers")

// Config holds transport parameters.
type Config struct {
	Target     Target
	HTTPClient *http.Client
	// RequestTimeout bounds a whole buffered call. Zero disables it.
	RequestTimeout time.Duration
	// ResponseHeaderTimeout bounds the wait for a streaming response to start.
	// The stream body itself is not time-bounded. Zero disables it.
	ResponseHeaderTimeout time.Duration
	Logger                *zap.Logger
	// OnSkip observes dropped SSE frames. Defaults to a debug log line.
	OnSkip sse.SkipFunc
}

// Client issues buffered and streaming execute calls.
type Client struct {
	target        Target
	http          *http.Client
	timeout       time.Duration
	headerTimeout time.Duration
	logger        *zap.Logger
	onSkip        sse.SkipFunc

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelCauseFunc
}

// New creates a transport for cfg.Target.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		target:        cfg.Target,
		http:          hc,
		timeout:       cfg.RequestTimeout,
		headerTimeout: cfg.ResponseHeaderTimeout,
		logger:        logger,
		onSkip:        cfg.OnSkip,
	}
	if c.onSkip == nil {
		c.onSkip = func(payload []byte, err error) {
			if len(payload) > maxLoggedFrame {
				payload = payload[:maxLoggedFrame]
			}
			logger.Debug("dropped sse frame", zap.ByteString("payload", payload), zap.Error(err))
		}
	}
	return c
}

// URL returns the resolved execute endpoint.
func (c *Client) URL() string { return c.target.URL }

// Cancel cancels the active request, if any. Idempotent.
func (c *Client) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel(domain.ErrCancelled)
		c.cancel = nil
	}
}

// begin supersedes the prior request and returns a context owned by the new one.
// A caller whose ctx is already done gets ErrCancelled and supersedes nothing.
func (c *Client) begin(ctx context.Context) (context.Context, func(), error) {
	reqCtx, cancel := context.WithCancelCause(ctx)

	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		cancel(domain.ErrCancelled)
		return nil, nil, domain.ErrCancelled
	}
	if c.cancel != nil {
		c.cancel(domain.ErrCancelled)
	}
	c.seq++
	seq := c.seq
	c.cancel = cancel
	c.mu.Unlock()

	release := func() {
		c.mu.Lock()
		if c.seq == seq {
			c.cancel = nil
		}
		c.mu.Unlock()
		cancel(context.Canceled)
	}
	return reqCtx, release, nil
}

// ExecuteBuffered issues a single POST and waits for the full response.
func (c *Client) ExecuteBuffered(ctx context.Context, req request.Request) (outcome.Outcome, error) {
	reqCtx, release, err := c.begin(ctx)
	if err != nil {
		return outcome.Outcome{}, err
	}
	defer release()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(reqCtx, c.timeout)
		defer cancel()
	}

	resp, err := c.post(reqCtx, req, false)
	if err != nil {
		return outcome.Outcome{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return outcome.Outcome{}, classify(reqCtx, fmt.Errorf("read response: %w", err))
	}
	o, err := decodeOutcome(body)
	if err != nil {
		return outcome.Outcome{}, &domain.RequestError{Status: resp.StatusCode, Err: err}
	}
	return o, nil
}

// ExecuteStreaming issues the POST with stream=true and returns the decoded
// event stream. The caller must Close the stream.
func (c *Client) ExecuteStreaming(ctx context.Context, req request.Request) (*Stream, error) {
	reqCtx, release, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}

	stopHeaderTimer := func() bool { return true }
	if c.headerTimeout > 0 {
		var cancel context.CancelCauseFunc
		reqCtx, cancel = context.WithCancelCause(reqCtx)
		timer := time.AfterFunc(c.headerTimeout, func() { cancel(errHeaderTimeout) })
		stopHeaderTimer = timer.Stop
		outer := release
		release = func() {
			timer.Stop()
			cancel(context.Canceled)
			outer()
		}
	}

	resp, err := c.post(reqCtx, req, true)
	if err != nil {
		release()
		return nil, err
	}
	if !stopHeaderTimer() {
		_ = resp.Body.Close()
		release()
		return nil, &domain.RequestError{Err: errHeaderTimeout}
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		release()
		return nil, &domain.RequestError{Status: resp.StatusCode, Err: domain.ErrStreamUnsupported}
	}

	dec := sse.NewDecoder(resp.Body, sse.WithSkipHandler(c.onSkip))
	return &Stream{ctx: reqCtx, dec: dec, release: release}, nil
}

func (c *Client) post(ctx context.Context, req request.Request, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(NewExecuteBody(req, stream))
	if err != nil {
		return nil, fmt.Errorf("%w: encode body: %w", domain.ErrInvalidRequest, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.RequestError{Err: err}
	}
	httpReq.Header = c.target.Header.Clone()
	if httpReq.Header == nil {
		httpReq.Header = http.Header{}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	c.logger.Debug("retriever request",
		zap.String("request_id", requestID),
		zap.Bool("stream", stream),
		zap.Int("limit", req.Limit()),
	)
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, err)
	}
	c.logger.Debug("retriever response",
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.NewStatusError(resp.StatusCode, extractDetail(body))
	}
	return resp, nil
}

// classify maps a failed call to ErrCancelled when its context was cancelled,
// and to a RequestError otherwise (timeouts included).
func classify(ctx context.Context, err error) error {
	cause := context.Cause(ctx)
	switch {
	case cause == nil:
		return &domain.RequestError{Err: err}
	case errors.Is(cause, domain.ErrCancelled), errors.Is(cause, context.Canceled):
		return domain.ErrCancelled
	default:
		return &domain.RequestError{Err: cause}
	}
}

// Stream is a forward-only sequence of decoded signals for one request.
// It is not restartable; Close releases the connection and is idempotent.
type Stream struct {
	ctx     context.Context
	dec     *sse.Decoder
	release func()

	once     sync.Once
	closeErr error
}

// Next advances to the next signal. It returns false at the end of the
// stream, on error, or as soon as the request is cancelled.
func (s *Stream) Next() bool {
	if s.ctx.Err() != nil {
		return false
	}
	return s.dec.Next()
}

// Signal returns the current signal.
func (s *Stream) Signal() sse.Signal { return s.dec.Signal() }

// Err returns domain.ErrCancelled if the request was superseded, a
// RequestError for a transport failure, or nil after a clean end of stream.
func (s *Stream) Err() error {
	if s.ctx.Err() != nil {
		return classify(s.ctx, s.ctx.Err())
	}
	if err := s.dec.Err(); err != nil {
		return classify(s.ctx, err)
	}
	return nil
}

// Close closes the body and releases the request.
func (s *Stream) Close() error {
	s.once.Do(func() {
		s.closeErr = s.dec.Close()
		s.release()
	})
	return s.closeErr
}
