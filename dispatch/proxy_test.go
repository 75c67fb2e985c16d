package dispatch

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/mapy-io/mapy/repo"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestForward(t *testing.T) {
	var gotMethod, gotPath, gotQuery, gotBypass, gotConn string
	var gotBody []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotBypass = r.Header.Get("x-bypass-proxyman")
		gotConn = r.Header.Get("Connection")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(418)
		w.Write([]byte(`{"from":"upstream"}`))
	}))
	defer upstream.Close()

	store := &repo.Store{Profiles: []repo.Profile{{Name: "p", BaseURL: upstream.URL + "/"}}}
	fwd := NewForwarder()

	header := http.Header{
		"X-Keep":     []string{"kept"},
		"Connection": []string{"close"},
	}
	resp, logged := fwd.Forward(store, "p", "POST",
		mustParseURL(t, "/v1/echo?a=1&a=2&b=%20x"), header, []byte("payload"))

	if gotMethod != "POST" || gotPath != "/v1/echo" {
		t.Errorf("upstream saw %s %s", gotMethod, gotPath)
	}
	if gotQuery != "a=1&a=2&b=%20x" {
		t.Errorf("raw query must pass through verbatim, upstream saw %q", gotQuery)
	}
	if gotBypass != "true" {
		t.Error("bypass header missing on forwarded request")
	}
	if gotConn != "" {
		t.Error("hop-by-hop request header must be stripped")
	}
	if string(gotBody) != "payload" {
		t.Errorf("body mismatch: %q", gotBody)
	}

	if resp.Status != 418 {
		t.Errorf("want status 418 got %d", resp.Status)
	}
	if resp.Header.Get("X-Upstream") != "yes" {
		t.Error("upstream header lost")
	}
	if resp.Header.Get("Content-Length") != "" {
		t.Error("hop-by-hop response header must be stripped")
	}
	if string(resp.Body) != `{"from":"upstream"}` {
		t.Errorf("body mismatch: %s", resp.Body)
	}
	if logged.Status != 418 || logged.Body != `{"from":"upstream"}` {
		t.Errorf("logged projection mismatch: %+v", logged)
	}
}

func TestForwardNoProfile(t *testing.T) {
	fwd := NewForwarder()
	resp, _ := fwd.Forward(&repo.Store{}, "", "GET", mustParseURL(t, "/x"), nil, nil)

	if resp.Status != http.StatusNotFound {
		t.Fatalf("want 404 got %d", resp.Status)
	}
	assertErrorBody(t, resp.Body, "No active profile available for proxying")
}

func TestForwardNoBaseURL(t *testing.T) {
	store := &repo.Store{Profiles: []repo.Profile{{Name: "p", BaseURL: "  "}}}
	fwd := NewForwarder()
	resp, _ := fwd.Forward(store, "p", "GET", mustParseURL(t, "/x"), nil, nil)

	if resp.Status != http.StatusBadRequest {
		t.Fatalf("want 400 got %d", resp.Status)
	}
	assertErrorBody(t, resp.Body, "Active profile does not define a baseUrl")
}

func TestForwardFallsBackToFirstProfile(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	store := &repo.Store{Profiles: []repo.Profile{{Name: "first", BaseURL: upstream.URL}}}
	fwd := NewForwarder()
	resp, _ := fwd.Forward(store, "no-such-profile", "GET", mustParseURL(t, "/x"), nil, nil)

	if resp.Status != 200 || string(resp.Body) != "ok" {
		t.Errorf("expected fallback to first profile, got %d %q", resp.Status, resp.Body)
	}
}

func TestForwardTransportError(t *testing.T) {
	// a closed server guarantees a connection failure
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	store := &repo.Store{Profiles: []repo.Profile{{Name: "p", BaseURL: upstream.URL}}}
	fwd := NewForwarder()
	resp, _ := fwd.Forward(store, "p", "GET", mustParseURL(t, "/x"), nil, nil)

	if resp.Status != http.StatusBadGateway {
		t.Fatalf("want 502 got %d", resp.Status)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatalf("error body is not JSON: %s", err)
	}
	if body["error"] == "" {
		t.Error("error message missing")
	}
}

func TestBuildProxyURL(t *testing.T) {
	cases := []struct {
		baseURL string
		inbound string
		expect  string
	}{
		{"http://up.test", "/v1/x", "http://up.test/v1/x"},
		{"http://up.test/", "/v1/x", "http://up.test/v1/x"},
		{"http://up.test/api", "/v1/x?q=1", "http://up.test/api/v1/x?q=1"},
	}
	for _, c := range cases {
		got := buildProxyURL(c.baseURL, mustParseURL(t, c.inbound))
		if got != c.expect {
			t.Errorf("buildProxyURL(%q, %q): want %q got %q", c.baseURL, c.inbound, c.expect, got)
		}
	}
}

func assertErrorBody(t *testing.T, data []byte, message string) {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("error body is not JSON: %s", err)
	}
	if body["error"] != message {
		t.Errorf("error message mismatch. want: %q got: %q", message, body["error"])
	}
}
