package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

type fakeCredential struct {
	tokens []string
	calls  atomic.Int32
	ttl    time.Duration
}

func (f *fakeCredential) GetToken(_ context.Context, _ policy.TokenRequestOptions) (azcore.AccessToken, error) {
	n := int(f.calls.Add(1)) - 1
	if n >= len(f.tokens) {
		n = len(f.tokens) - 1
	}
	ttl := f.ttl
	if ttl == 0 {
		ttl = time.Hour
	}
	return azcore.AccessToken{Token: f.tokens[n], ExpiresOn: time.Now().Add(ttl)}, nil
}

func newTestClient(t *testing.T, handler http.Handler, cred azcore.TokenCredential) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	if cred == nil {
		cred = &fakeCredential{tokens: []string{"tok-1"}}
	}
	c, err := NewClient(Credentials{}, WithBaseURL(srv.URL), WithTokenCredential(cred))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGetSendsBearerToken(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"id": "tenant-1"}`)
	}), nil)

	doc, err := c.Get(context.Background(), "/organization")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if doc["id"] != "tenant-1" {
		t.Errorf("doc = %v", doc)
	}
}

func TestGetTokenIsCached(t *testing.T) {
	cred := &fakeCredential{tokens: []string{"tok-1"}}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}), cred)

	for i := 0; i < 3; i++ {
		if _, err := c.Get(context.Background(), "/users"); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if got := cred.calls.Load(); got != 1 {
		t.Errorf("GetToken calls = %d, want 1", got)
	}
}

func TestGetRefreshesNearExpiryToken(t *testing.T) {
	cred := &fakeCredential{tokens: []string{"tok-1", "tok-2"}, ttl: time.Minute}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}), cred)

	if _, err := c.Get(context.Background(), "/users"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := c.Get(context.Background(), "/users"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := cred.calls.Load(); got != 2 {
		t.Errorf("GetToken calls = %d, want 2 (a one-minute token is inside the refresh margin)", got)
	}
}

func TestGetAllFollowsNextLink(t *testing.T) {
	// The first page carries an absolute @odata.nextLink back to the
	// same server; the linked page returns the tail without one.
	var srvURL string
	pageTwo := false
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			pageTwo = true
			fmt.Fprint(w, `{"value": [{"id": "u3"}]}`)
			return
		}
		fmt.Fprintf(w, `{"value": [{"id": "u1"}, {"id": "u2"}], "@odata.nextLink": %q}`, srvURL+"/users?page=2")
	}), nil)
	srvURL = c.baseURL

	items, err := c.GetAll(context.Background(), "/users")
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if !pageTwo {
		t.Error("nextLink was not followed")
	}
	if len(items) != 3 || items[0]["id"] != "u1" || items[2]["id"] != "u3" {
		t.Errorf("items = %v", items)
	}
}

func TestGetRetriesAfter429(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"ok": true}`)
	}), nil)

	doc, err := c.Get(context.Background(), "/users")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if doc["ok"] != true {
		t.Errorf("doc = %v", doc)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestGetRefreshesTokenOn401Once(t *testing.T) {
	cred := &fakeCredential{tokens: []string{"stale", "fresh"}}
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") == "Bearer stale" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{}`)
	}), cred)

	if _, err := c.Get(context.Background(), "/users"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestGetSecond401IsFatal(t *testing.T) {
	cred := &fakeCredential{tokens: []string{"bad"}}
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"code": "InvalidAuthenticationToken", "message": "token expired"}}`)
	}), cred)

	_, err := c.Get(context.Background(), "/users")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("status = %d", apiErr.Status)
	}
	if apiErr.Body != "InvalidAuthenticationToken: token expired" {
		t.Errorf("body = %q", apiErr.Body)
	}
}

func TestGetForbiddenIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"message": "insufficient privileges"}}`)
	}), nil)

	_, err := c.Get(context.Background(), "/users")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestResolveAbsoluteURLPassesThrough(t *testing.T) {
	c := &Client{baseURL: "https://example.test/v1.0"}
	if got := c.resolve("https://other.test/page2"); got != "https://other.test/page2" {
		t.Errorf("resolve = %q", got)
	}
	if got := c.resolve("users"); got != "https://example.test/v1.0/users" {
		t.Errorf("resolve = %q", got)
	}
}
