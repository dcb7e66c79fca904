package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"mtrack/internal/service"
)

// RequestIDHeader carries a per-request id for correlating client and server logs.
const RequestIDHeader = "X-Request-Id"

// Request describes one backend call.
type Request struct {
	Method string
	Path   string // relative to the gate's base URL, e.g. "/categories/1"
	Body   []byte

	// ContentType defaults to application/json when Body is set.
	ContentType string
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Gate attaches the session token to outbound requests and turns
// authorization failures into a single session expiry.
type Gate struct {
	base    *url.URL
	store   *Store
	client  *http.Client
	timeout time.Duration
	log     *zap.Logger

	mu        sync.Mutex
	observers map[int]func()
	nextObs   int
}

// Option configures a Gate.
type Option func(*Gate)

// WithHTTPClient sets the underlying HTTP client. Its transport is wrapped,
// never mutated.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gate) { g.client = c }
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) { g.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) { g.log = l }
}

// NewGate creates a gate sending requests to baseURL.
func NewGate(baseURL string, store *Store, opts ...Option) (*Gate, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url: %s", baseURL)
	}
	g := &Gate{
		base:      u,
		store:     store,
		client:    http.DefaultClient,
		log:       zap.NewNop(),
		observers: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Store returns the session store behind the gate.
func (g *Gate) Store() *Store { return g.store }

// BaseURL returns the backend base URL.
func (g *Gate) BaseURL() string { return g.base.String() }

// HTTPClient returns the unauthenticated client, for calls that must not carry
// the session token (login, signup).
func (g *Gate) HTTPClient() *http.Client { return g.client }

// IsLoggedIn reports whether a session token is present.
func (g *Gate) IsLoggedIn() bool { return g.store.IsLoggedIn() }

// Login stores a freshly issued token.
func (g *Gate) Login(token string) error { return g.store.Login(token) }

// Logout ends the session explicitly. Observers are not notified: they only
// hear about expiry.
func (g *Gate) Logout() error { return g.store.Logout() }

// OnExpired registers fn to run once per expiry event. The returned func
// unregisters it.
func (g *Gate) OnExpired(fn func()) (unsubscribe func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextObs
	g.nextObs++
	g.observers[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.observers, id)
	}
}

// Do performs req. It returns service.ErrSessionExpired when the backend
// answers 401, or when the session ended while the request was in flight;
// the response is discarded in both cases. Any other status is returned as is.
func (g *Gate) Do(ctx context.Context, req Request) (*Response, error) {
	return g.do(ctx, req, true)
}

// DoPublic performs req without the session token and without expiry
// handling. Used by signup, which must work logged out.
func (g *Gate) DoPublic(ctx context.Context, req Request) (*Response, error) {
	return g.do(ctx, req, false)
}

func (g *Gate) do(ctx context.Context, req Request, gated bool) (*Response, error) {
	var (
		token string
		done  <-chan struct{}
	)
	if gated {
		token, done = g.store.current()
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		select {
		case <-done:
			cancel(service.ErrSessionExpired)
		case <-ctx.Done():
		}
	}()
	if g.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, g.timeout)
		defer cancelTimeout()
	}

	httpReq, err := g.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	reqID := httpReq.Header.Get(RequestIDHeader)

	start := time.Now()
	httpResp, err := g.clientFor(token).Do(httpReq)
	if err != nil {
		if errors.Is(context.Cause(ctx), service.ErrSessionExpired) {
			return nil, service.ErrSessionExpired
		}
		g.log.Warn("request failed",
			zap.String("id", reqID),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &service.TransportError{Op: req.Method + " " + req.Path, Err: fmt.Errorf("request timed out")}
		}
		return nil, &service.TransportError{Op: req.Method + " " + req.Path, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if errors.Is(context.Cause(ctx), service.ErrSessionExpired) {
			return nil, service.ErrSessionExpired
		}
		return nil, &service.TransportError{Op: req.Method + " " + req.Path, Err: err}
	}

	g.log.Debug("request",
		zap.String("id", reqID),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", httpResp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if gated && httpResp.StatusCode == http.StatusUnauthorized {
		if token == "" {
			return nil, service.ErrNotLoggedIn
		}
		g.expire(token)
		return nil, service.ErrSessionExpired
	}

	select {
	case <-done:
		return nil, service.ErrSessionExpired
	default:
	}

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body}, nil
}

func (g *Gate) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := g.base.JoinPath(req.Path)

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if req.Body != nil {
		ct := req.ContentType
		if ct == "" {
			ct = "application/json"
		}
		httpReq.Header.Set("Content-Type", ct)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, uuid.NewString())
	return httpReq, nil
}

// clientFor returns a client attaching token as a bearer credential, or the
// plain client when there is no token.
func (g *Gate) clientFor(token string) *http.Client {
	if token == "" {
		return g.client
	}
	c := *g.client
	c.Transport = &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
		Base:   g.client.Transport,
	}
	return &c
}

func (g *Gate) expire(token string) {
	if !g.store.Expire(token) {
		return
	}
	g.log.Info("session expired")

	g.mu.Lock()
	fns := make([]func(), 0, len(g.observers))
	for _, fn := range g.observers {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
