package records

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kingrea/mortgage-portal/internal/client"
	"github.com/kingrea/mortgage-portal/internal/portal"
	"github.com/kingrea/mortgage-portal/internal/stubserver"
)

func newStubCache(t *testing.T) (*Cache, *stubserver.Store) {
	t.Helper()
	store := stubserver.NewStore()
	store.Seed()
	srv := httptest.NewServer(stubserver.New(store).Routes())
	t.Cleanup(srv.Close)
	return New(client.New(client.SingleEndpoint(srv.URL), 5*time.Second)), store
}

func TestRefreshAllKeepsBackendOrder(t *testing.T) {
	cache, store := newStubCache(t)
	store.PutBorrower(portal.BorrowerRecord{ID: "a-001", FullName: "Aaron", Status: portal.StatusPending})
	list, err := cache.RefreshAll(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(list) != 6 || list[5].ID != "a-001" || list[0].ID != "b-100" {
		t.Fatalf("list must not be re-sorted: %+v", list)
	}
	if !cache.Loaded() || cache.Fetches() != 1 {
		t.Fatalf("loaded=%v fetches=%d", cache.Loaded(), cache.Fetches())
	}
}

func TestRefreshFailureKeepsPreviousData(t *testing.T) {
	cache, store := newStubCache(t)
	if _, err := cache.RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	store.FailNext(stubserver.RouteListBorrowers, 1)
	list, err := cache.RefreshAll(context.Background())
	var fetchErr *client.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if len(list) != 5 || len(cache.Borrowers()) != 5 {
		t.Fatalf("previous list should remain cached")
	}
	if cache.Err() == nil {
		t.Fatalf("Err should expose the failure")
	}
	if store.Calls(stubserver.RouteListBorrowers) != 2 {
		t.Fatalf("failed refresh must not be retried, calls = %d", store.Calls(stubserver.RouteListBorrowers))
	}
	if _, err := cache.RefreshAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if cache.Err() != nil {
		t.Fatalf("success should clear Err")
	}
}

func TestRefreshSelf(t *testing.T) {
	cache, store := newStubCache(t)
	rec, err := cache.RefreshSelf(context.Background(), "b-100")
	if err != nil {
		t.Fatalf("refresh self: %v", err)
	}
	if !rec.Status.IsNull() {
		t.Fatalf("status = %q", rec.Status)
	}
	store.PutBorrower(portal.BorrowerRecord{ID: "b-100", FullName: "Ana Borrower", Email: "ana@example.com", Status: portal.StatusPending})
	rec, err = cache.RefreshSelf(context.Background(), "b-100")
	if err != nil {
		t.Fatal(err)
	}
	self, ok := cache.Self()
	if !ok || self.Status != portal.StatusPending || rec.Status != portal.StatusPending {
		t.Fatalf("self = %+v", self)
	}
}

// gatedFetcher lets a test hold list calls open and release them in any order.
type gatedFetcher struct {
	mu      sync.Mutex
	calls   int
	gates   []chan []portal.BorrowerRecord
	entered chan struct{}
}

func (g *gatedFetcher) ListBorrowers(ctx context.Context) ([]portal.BorrowerRecord, error) {
	g.mu.Lock()
	gate := g.gates[g.calls]
	g.calls++
	g.mu.Unlock()
	g.entered <- struct{}{}
	return <-gate, nil
}

func (g *gatedFetcher) GetBorrower(ctx context.Context, id portal.ID) (portal.BorrowerRecord, error) {
	return portal.BorrowerRecord{}, errors.New("unused")
}

func TestOlderResponseNeverOverwritesNewer(t *testing.T) {
	fetcher := &gatedFetcher{
		gates:   []chan []portal.BorrowerRecord{make(chan []portal.BorrowerRecord, 1), make(chan []portal.BorrowerRecord, 1)},
		entered: make(chan struct{}, 2),
	}
	cache := New(fetcher)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = cache.RefreshAll(context.Background())
	}()
	<-fetcher.entered
	cache.Invalidate("")
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = cache.RefreshAll(context.Background())
	}()
	<-fetcher.entered

	fetcher.gates[1] <- []portal.BorrowerRecord{{ID: "new"}}
	// Let the newer call land before releasing the older one.
	deadline := time.Now().Add(2 * time.Second)
	for len(cache.Borrowers()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	fetcher.gates[0] <- []portal.BorrowerRecord{{ID: "old"}}
	wg.Wait()

	list := cache.Borrowers()
	if len(list) != 1 || list[0].ID != "new" {
		t.Fatalf("stale response overwrote newer data: %+v", list)
	}
	if cache.Fetches() != 2 {
		t.Fatalf("fetches = %d", cache.Fetches())
	}
}

func TestConcurrentRefreshesCollapse(t *testing.T) {
	gate := make(chan []portal.BorrowerRecord, 1)
	fetcher := &gatedFetcher{gates: []chan []portal.BorrowerRecord{gate}, entered: make(chan struct{}, 1)}
	cache := New(fetcher)

	results := make(chan []portal.BorrowerRecord, 2)
	go func() {
		list, _ := cache.RefreshAll(context.Background())
		results <- list
	}()
	<-fetcher.entered
	go func() {
		list, _ := cache.RefreshAll(context.Background())
		results <- list
	}()
	// Give the second caller time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	gate <- []portal.BorrowerRecord{{ID: "b-1"}}
	for i := 0; i < 2; i++ {
		if list := <-results; len(list) != 1 {
			t.Fatalf("result %d = %+v", i, list)
		}
	}
	if cache.Fetches() != 1 {
		t.Fatalf("fetches = %d, want a single shared call", cache.Fetches())
	}
}

func TestResetDropsInFlightResults(t *testing.T) {
	gate := make(chan []portal.BorrowerRecord, 1)
	fetcher := &gatedFetcher{gates: []chan []portal.BorrowerRecord{gate}, entered: make(chan struct{}, 1)}
	cache := New(fetcher)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cache.RefreshAll(context.Background())
	}()
	<-fetcher.entered
	cache.Reset()
	gate <- []portal.BorrowerRecord{{ID: "b-1"}}
	<-done
	if cache.Loaded() || len(cache.Borrowers()) != 0 {
		t.Fatalf("refresh started before reset must be dropped")
	}
}

func TestRefreshAfterResetStartsOwnFetch(t *testing.T) {
	fetcher := &gatedFetcher{
		gates:   []chan []portal.BorrowerRecord{make(chan []portal.BorrowerRecord, 1), make(chan []portal.BorrowerRecord, 1)},
		entered: make(chan struct{}, 2),
	}
	cache := New(fetcher)

	oldDone := make(chan struct{})
	go func() {
		defer close(oldDone)
		_, _ = cache.RefreshAll(context.Background())
	}()
	<-fetcher.entered
	cache.Reset()

	type result struct {
		list []portal.BorrowerRecord
		err  error
	}
	fresh := make(chan result, 1)
	go func() {
		list, err := cache.RefreshAll(context.Background())
		fresh <- result{list, err}
	}()
	select {
	case <-fetcher.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh after reset joined the earlier call")
	}
	fetcher.gates[1] <- []portal.BorrowerRecord{{ID: "new"}}
	got := <-fresh
	if got.err != nil || len(got.list) != 1 || got.list[0].ID != "new" {
		t.Fatalf("refresh after reset = %+v, %v", got.list, got.err)
	}
	fetcher.gates[0] <- []portal.BorrowerRecord{{ID: "old"}}
	<-oldDone
	if list := cache.Borrowers(); len(list) != 1 || list[0].ID != "new" {
		t.Fatalf("call from before reset landed: %+v", list)
	}
}

// splitFetcher holds list and self calls open independently.
type splitFetcher struct {
	list    chan []portal.BorrowerRecord
	self    chan portal.BorrowerRecord
	entered chan string
}

func (f *splitFetcher) ListBorrowers(ctx context.Context) ([]portal.BorrowerRecord, error) {
	f.entered <- "all"
	return <-f.list, nil
}

func (f *splitFetcher) GetBorrower(ctx context.Context, id portal.ID) (portal.BorrowerRecord, error) {
	f.entered <- "self"
	return <-f.self, nil
}

func TestListRefreshDoesNotSuppressSelfRefresh(t *testing.T) {
	fetcher := &splitFetcher{
		list:    make(chan []portal.BorrowerRecord, 1),
		self:    make(chan portal.BorrowerRecord, 1),
		entered: make(chan string, 2),
	}
	cache := New(fetcher)

	selfDone := make(chan struct{})
	go func() {
		defer close(selfDone)
		_, _ = cache.RefreshSelf(context.Background(), "b-100")
	}()
	<-fetcher.entered
	listDone := make(chan struct{})
	go func() {
		defer close(listDone)
		_, _ = cache.RefreshAll(context.Background())
	}()
	<-fetcher.entered

	fetcher.list <- []portal.BorrowerRecord{{ID: "b-100"}}
	<-listDone
	fetcher.self <- portal.BorrowerRecord{ID: "b-100", FullName: "Ana Borrower"}
	<-selfDone

	self, ok := cache.Self()
	if !ok || self.FullName != "Ana Borrower" {
		t.Fatalf("self refresh was dropped after a list refresh: %+v, %v", self, ok)
	}
	if len(cache.Borrowers()) != 1 {
		t.Fatalf("list = %+v", cache.Borrowers())
	}
}
