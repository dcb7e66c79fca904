package testutil

import "sync"

// FakeSession is an in-memory session for command tests.
type FakeSession struct {
	mu        sync.Mutex
	token     string
	nextObs   int
	observers map[int]func()

	// LoginErr and LogoutErr, when set, are returned by Login and Logout.
	LoginErr  error
	LogoutErr error
}

// NewFakeSession returns a session holding token; "" means logged out.
func NewFakeSession(token string) *FakeSession {
	return &FakeSession{token: token, observers: make(map[int]func())}
}

// Token returns the current token.
func (s *FakeSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *FakeSession) IsLoggedIn() bool { return s.Token() != "" }

func (s *FakeSession) Login(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoginErr != nil {
		return s.LoginErr
	}
	s.token = token
	return nil
}

func (s *FakeSession) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LogoutErr != nil {
		return s.LogoutErr
	}
	s.token = ""
	return nil
}

func (s *FakeSession) OnExpired(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Expire clears the token and notifies observers, as the gate does on a 401.
// It does nothing when already logged out.
func (s *FakeSession) Expire() {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return
	}
	s.token = ""
	fns := make([]func(), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
