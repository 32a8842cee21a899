package kis

import (
	"sync"
	"testing"
	"time"

	"kis-gateway/internal/kistest"
	"kis-gateway/internal/models"
)

const (
	testAppKey    = "PSabcdefghijklmnopqrstuvwxyz012345"
	testAppSecret = "secret-value-that-must-never-be-logged"
	testAccount   = "5012345601"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testCredential(t *testing.T, env models.Environment) Credential {
	t.Helper()
	cred, err := NewCredential(testAppKey, testAppSecret, testAccount, env)
	if err != nil {
		t.Fatalf("NewCredential: %v", err)
	}
	return cred
}

func newTestClient(t *testing.T, env models.Environment, opts ...Option) (*Client, *kistest.Venue, *fakeClock) {
	t.Helper()
	venue := kistest.New()
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewClient(testCredential(t, env), venue, opts...), venue, clock
}

func endpointFor(t *testing.T, c *Client, class models.AssetClass) *Endpoint {
	t.Helper()
	e, err := c.Endpoint(class)
	if err != nil {
		t.Fatalf("Endpoint(%s): %v", class, err)
	}
	return e
}

func equalPaths(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
