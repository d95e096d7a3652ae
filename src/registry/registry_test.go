package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
)

const sample = `[
  {"realmId": "DPiH3H3c7t47BMxqTxLsuPQpEC6Kne8GA9VXbxpnZxFE", "symbol": "MNGO", "displayName": "Mango DAO", "ogImage": "/realms/Mango/img.png", "programId": "GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw"},
  {"realmId": "3gmcbygQUUDgmtDtx41R7xSf3K4oFXrH9icPNijyq9pS", "symbol": "MNDE", "ogImage": "https://cdn.example.org/mnde.png", "category": "defi"},
  {"symbol": "NOID"},
  {"realmId": "", "symbol": "EMPTY"},
  {"realmId": 42, "symbol": "NUMERIC"}
]`

func TestParseEntries(t *testing.T) {
	c := qt.New(t)

	entries, err := ParseEntries([]byte(sample), DefaultImageBase)
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 2)
	c.Assert(entries[0].DisplayName, qt.Equals, "Mango DAO")
	c.Assert(entries[0].OGImage, qt.Equals, "https://app.realms.today/realms/Mango/img.png")
	c.Assert(entries[1].DisplayName, qt.Equals, "MNDE")
	c.Assert(entries[1].OGImage, qt.Equals, "https://cdn.example.org/mnde.png")
	c.Assert(entries[1].Category, qt.Equals, "defi")

	_, err = ParseEntries([]byte(`{"not": "a list"}`), DefaultImageBase)
	c.Assert(errors.Is(err, errors.NotValid), qt.IsTrue)
}

func TestResolveImageURL(t *testing.T) {
	c := qt.New(t)
	c.Assert(ResolveImageURL("https://base/", "/x.png"), qt.Equals, "https://base/x.png")
	c.Assert(ResolveImageURL("https://base", "http://abs/x.png"), qt.Equals, "http://abs/x.png")
	c.Assert(ResolveImageURL("https://base", "x.png"), qt.Equals, "x.png")
	c.Assert(ResolveImageURL("https://base", ""), qt.Equals, "")
}

func TestHTTPSource(t *testing.T) {
	c := qt.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sample))
	}))
	c.Cleanup(srv.Close)

	entries, err := NewHTTPSource(srv.URL, "https://img.example", nil).Fetch(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 2)
	c.Assert(entries[0].OGImage, qt.Equals, "https://img.example/realms/Mango/img.png")
}

func TestHTTPSourceRejectsClientError(t *testing.T) {
	c := qt.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	c.Cleanup(srv.Close)

	_, err := NewHTTPSource(srv.URL, "", nil).Fetch(context.Background())
	c.Assert(err, qt.ErrorMatches, "fetch registry: registry returned status 404")
}

// gatedSource blocks every fetch until release is closed.
type gatedSource struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
	err     error
	entries []Entry
}

func newGatedSource() *gatedSource {
	return &gatedSource{
		started: make(chan struct{}),
		release: make(chan struct{}),
		entries: []Entry{{RealmID: "A", DisplayName: "Alpha"}, {RealmID: "B", DisplayName: "Beta"}},
	}
}

func (g *gatedSource) Fetch(ctx context.Context) ([]Entry, error) {
	g.calls.Add(1)
	g.once.Do(func() { close(g.started) })
	<-g.release
	if g.err != nil {
		return nil, g.err
	}
	return g.entries, nil
}

func TestConcurrentCallsShareOneFetch(t *testing.T) {
	c := qt.New(t)

	src := newGatedSource()
	cache := NewCache(src, time.Hour, testclock.NewClock(time.Now()))

	var wg sync.WaitGroup
	results := make([][]Entry, 5)
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.GetAll(context.Background())
		}(i)
	}
	<-src.started
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	c.Assert(src.calls.Load(), qt.Equals, int32(1))
	for i := range results {
		c.Check(errs[i], qt.IsNil)
		c.Check(results[i], qt.HasLen, 2)
	}
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	c := qt.New(t)

	src := newGatedSource()
	close(src.release)
	clk := testclock.NewClock(time.Now())
	cache := NewCache(src, time.Hour, clk)
	ctx := context.Background()

	m, err := cache.GetMap(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(m["B"].DisplayName, qt.Equals, "Beta")

	clk.Advance(30 * time.Minute)
	_, err = cache.GetAll(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(src.calls.Load(), qt.Equals, int32(1))

	src.entries = []Entry{{RealmID: "C", DisplayName: "Gamma"}}
	clk.Advance(31 * time.Minute)
	m, err = cache.GetMap(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(m["C"].DisplayName, qt.Equals, "Gamma")
	c.Assert(src.calls.Load(), qt.Equals, int32(2))

	_, ok := m["A"]
	c.Assert(ok, qt.IsFalse)
}

func TestFailedFetchDoesNotPoison(t *testing.T) {
	c := qt.New(t)

	src := newGatedSource()
	close(src.release)
	src.err = errors.New("registry down")
	cache := NewCache(src, time.Hour, nil)
	ctx := context.Background()

	_, err := cache.GetAll(ctx)
	c.Assert(err, qt.ErrorMatches, "registry down")

	src.err = nil
	entries, err := cache.GetAll(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 2)
	c.Assert(src.calls.Load(), qt.Equals, int32(2))
}

func TestWaiterCancellationDoesNotAbortFetch(t *testing.T) {
	c := qt.New(t)

	src := newGatedSource()
	cache := NewCache(src, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.GetAll(ctx)
		done <- err
	}()
	<-src.started
	cancel()
	c.Assert(<-done, qt.Equals, context.Canceled)

	close(src.release)
	entries, err := cache.GetAll(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 2)
}
