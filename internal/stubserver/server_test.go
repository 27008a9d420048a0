package stubserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kingrea/mortgage-portal/internal/portal"
)

func TestRoutesServeSeededBorrowersInOrder(t *testing.T) {
	store := NewStore()
	store.Seed()
	srv := httptest.NewServer(New(store).Routes())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/borrower-helper-service/borrowers")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	var raw []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) != 5 {
		t.Fatalf("expected 5 seeded borrowers, got %d", len(raw))
	}
	if raw[0]["id"] != "b-100" || raw[0]["status"] != nil {
		t.Fatalf("first borrower should be b-100 with null status, got %+v", raw[0])
	}
	if store.Calls(RouteListBorrowers) != 1 {
		t.Fatalf("calls = %d", store.Calls(RouteListBorrowers))
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	store := NewStore()
	store.Seed()
	srv := httptest.NewServer(New(store).Routes())
	t.Cleanup(srv.Close)

	body, _ := json.Marshal(portal.Credentials{Email: "u1", Password: "wrong"})
	resp, err := http.Post(srv.URL+"/underwriter-helper-service/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestFailNextInjectsServerErrors(t *testing.T) {
	store := NewStore()
	store.Seed()
	srv := httptest.NewServer(New(store).Routes())
	t.Cleanup(srv.Close)

	store.FailNext(RouteGetBorrower, 1)
	for i, want := range []int{http.StatusInternalServerError, http.StatusOK} {
		resp, err := http.Get(srv.URL + "/borrower-helper-service/borrower/b-100")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("call %d status = %d, want %d", i, resp.StatusCode, want)
		}
	}
}

func TestOverrideRequiresUnderwriter(t *testing.T) {
	store := NewStore()
	store.Seed()
	if _, err := store.override(portal.DecisionOverride{BorrowerID: "b-101", UnderwriterID: "b-100", NewStatus: portal.StatusRejected}); err == nil {
		t.Fatalf("borrower must not override decisions")
	}
	msg, err := store.override(portal.DecisionOverride{BorrowerID: "b-101", UnderwriterID: "1", NewStatus: portal.StatusApproved})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if msg != "Status is already 'approved'" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestStartAndShutdown(t *testing.T) {
	srv := New(nil)
	if err := srv.Start(context.Background(), "127.0.0.1:0"); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	resp, err := http.Get(srv.BaseURL() + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	if err := srv.Start(context.Background(), "127.0.0.1:0"); err == nil {
		t.Fatalf("second start should fail")
	}
}
