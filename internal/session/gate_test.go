package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"mtrack/internal/service"
	"mtrack/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorded struct {
	mu      sync.Mutex
	headers []http.Header
}

func (r *recorded) add(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headers = append(r.headers, h.Clone())
}

func (r *recorded) last() http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers[len(r.headers)-1]
}

// newGate wires a gate to srv with its own transport so idle connections are
// torn down when the test ends.
func newGate(t *testing.T, srv *httptest.Server, token string) (*session.Gate, *session.Store) {
	t.Helper()
	t.Setenv(session.TokenEnv, "")

	store := session.NewStore(filepath.Join(t.TempDir(), "token.json"))
	if token != "" {
		require.NoError(t, store.Login(token))
	}

	tr := &http.Transport{}
	t.Cleanup(tr.CloseIdleConnections)

	gate, err := session.NewGate(srv.URL, store,
		session.WithHTTPClient(&http.Client{Transport: tr}),
		session.WithLogger(zaptest.NewLogger(t)),
		session.WithTimeout(5*time.Second),
	)
	require.NoError(t, err)
	return gate, store
}

func TestGate_AttachesBearerToken(t *testing.T) {
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Header)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	gate, _ := newGate(t, srv, "secret")
	resp, err := gate.Do(context.Background(), session.Request{Method: http.MethodGet, Path: "/categories"})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Body))

	h := rec.last()
	assert.Equal(t, "Bearer secret", h.Get("Authorization"))
	assert.NotEmpty(t, h.Get(session.RequestIDHeader))
	assert.Empty(t, h.Get("Content-Type"), "no body, no content type")
}

func TestGate_OmitsAuthorizationWhenLoggedOut(t *testing.T) {
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Header)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	gate, _ := newGate(t, srv, "")
	_, err := gate.Do(context.Background(), session.Request{Method: http.MethodGet, Path: "/"})
	require.NoError(t, err)
	assert.Empty(t, rec.last().Get("Authorization"))
}

func TestGate_ContentTypeDefaults(t *testing.T) {
	rec := &recorded{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.Header)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(srv.Close)

	gate, _ := newGate(t, srv, "tok")

	_, err := gate.Do(context.Background(), session.Request{Method: http.MethodPost, Path: "/categories", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, "application/json", rec.last().Get("Content-Type"))

	_, err = gate.Do(context.Background(), session.Request{
		Method:      http.MethodPost,
		Path:        "/login",
		Body:        []byte("username=a&password=b"),
		ContentType: "application/x-www-form-urlencoded",
	})
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", rec.last().Get("Content-Type"))
}

func TestGate_NonAuthFailuresAreReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not found"}`))
	}))
	t.Cleanup(srv.Close)

	gate, store := newGate(t, srv, "tok")
	resp, err := gate.Do(context.Background(), session.Request{Method: http.MethodGet, Path: "/categories/9"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, resp.OK())
	assert.True(t, store.IsLoggedIn(), "only 401 ends the session")
}

func TestGate_UnauthorizedExpiresSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid authentication credentials"}`))
	}))
	t.Cleanup(srv.Close)

	gate, store := newGate(t, srv, "tok")
	var notified atomic.Int32
	gate.OnExpired(func() { notified.Add(1) })

	_, err := gate.Do(context.Background(), session.Request{Method: http.MethodGet, Path: "/categories"})
	assert.ErrorIs(t, err, service.ErrSessionExpired)
	assert.False(t, store.IsLoggedIn())
	assert.Equal(t, int32(1), notified.Load())
}

func TestGate_UnauthorizedWithoutTokenIsNotLoggedIn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	gate, _ := newGate(t, srv, "")
	var notified atomic.Int32
	gate.OnExpired(func() { notified.Add(1) })

	_, err := gate.Do(context.Background(), session.Request{Method: http.MethodGet, Path: "/categories"})
	assert.ErrorIs(t, err, service.ErrNotLoggedIn)
	assert.Zero(t, notified.Load())
}

func TestGate_ConcurrentUnauthorizedCollapse(t *testing.T) {
	const n = 8
	var arrivals atomic.Int32
	allArrived := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if arrivals.Add(1) == n {
			close(allArrived)
		}
		select {
		case <-allArrived:
		case <-r.Context().Done():
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	gate, store := newGate(t, srv, "tok")
	var notified atomic.Int32
	gate.OnExpired(func() { notified.Add(1) })

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = gate.Do(context.Background(), session.Request{Method: http.MethodGet, Path: "/items/1"})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, service.ErrSessionExpired)
	}
	assert.Equal(t, int32(1), notified.Load(), "one logout notice per expiry")
	assert.False(t, store.IsLoggedIn())
}

func TestGate_ExpiryDiscardsInFlightRequests(t *testing.T) {
	arrived := make(chan struct{}, 2)
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/slow":
			arrived <- struct{}{}
			select {
			case <-release:
			case <-r.Context().Done():
			}
			w.Write([]byte(`{"status":"ok"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	gate, store := newGate(t, srv, "tok")
	var notified atomic.Int32
	gate.OnExpired(func() { notified.Add(1) })

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := gate.Do(context.Background(), session.Request{Method: http.MethodGet, Path: "/slow"})
			errs <- err
		}()
	}
	<-arrived
	<-arrived

	_, err := gate.Do(context.Background(), session.Request{Method: http.MethodGet, Path: "/expire"})
	require.ErrorIs(t, err, service.ErrSessionExpired)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, <-errs, service.ErrSessionExpired)
	}
	assert.Equal(t, int32(1), notified.Load())
	assert.False(t, store.IsLoggedIn())
}

func TestGate_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	gate, store := newGate(t, srv, "tok")
	srv.Close()

	_, err := gate.Do(context.Background(), session.Request{Method: http.MethodGet, Path: "/categories"})
	require.Error(t, err)
	assert.True(t, service.IsTransport(err))
	assert.True(t, store.IsLoggedIn())
}

func TestGate_ObserverUnsubscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	gate, _ := newGate(t, srv, "tok")
	var notified atomic.Int32
	unsubscribe := gate.OnExpired(func() { notified.Add(1) })
	unsubscribe()

	_, err := gate.Do(context.Background(), session.Request{Method: http.MethodGet, Path: "/"})
	assert.ErrorIs(t, err, service.ErrSessionExpired)
	assert.Zero(t, notified.Load())
}

func TestNewGate_RejectsBadURL(t *testing.T) {
	_, err := session.NewGate("not a url", session.NewStore(""))
	assert.Error(t, err)
}
