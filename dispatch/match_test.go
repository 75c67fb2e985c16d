package dispatch

import (
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mapy-io/mapy/repo"
)

func testStore() *repo.Store {
	return &repo.Store{
		Profiles: []repo.Profile{
			{
				Name:    "shop",
				BaseURL: "/api",
				SubProfiles: []repo.SubProfile{
					{Name: "tenant-a", Params: map[string]string{"tenant": "acme"}},
					{Name: "tenant-b", Params: map[string]string{"tenant": "globex"}},
				},
				Requests: []repo.RequestConfig{
					{Name: "get catalog", Method: "GET", Path: "/{tenant}/catalog"},
					{Name: "get item", Method: "GET", Path: "/{tenant}/items/{itemId}"},
					{
						Name:    "secure ping",
						Method:  "POST",
						Path:    "/ping",
						Headers: map[string]string{"X-Api-Key": "secret"},
					},
					{
						Name:            "filtered list",
						Method:          "GET",
						Path:            "/list",
						QueryParameters: map[string]string{"page": "2"},
					},
				},
			},
		},
	}
}

func TestFindMatch(t *testing.T) {
	store := testStore()

	cases := []struct {
		description string
		method      string
		path        string
		header      http.Header
		query       map[string]string
		active      string

		subProfile string
		request    string
		params     map[string]string
	}{
		{"bound param literal", "GET", "/api/acme/catalog", nil, nil, "shop",
			"tenant-a", "get catalog", map[string]string{"tenant": "acme"}},
		{"second sub-profile binding", "GET", "/api/globex/catalog", nil, nil, "shop",
			"tenant-b", "get catalog", map[string]string{"tenant": "globex"}},
		{"unbound hole captures segment", "GET", "/api/acme/items/sku-9", nil, nil, "shop",
			"tenant-a", "get item", map[string]string{"tenant": "acme", "itemId": "sku-9"}},
		{"header gate passes", "POST", "/api/ping",
			http.Header{"X-Api-Key": []string{"secret"}}, nil, "shop",
			"tenant-a", "secure ping", map[string]string{}},
		{"query gate passes", "GET", "/api/list", nil, map[string]string{"page": "2", "extra": "ok"}, "shop",
			"tenant-a", "filtered list", map[string]string{}},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			got := FindMatch(store, c.method, c.path, c.header, c.query, c.active)
			if got == nil {
				t.Fatal("expected a match, got none")
			}
			if got.SubProfile.Name != c.subProfile {
				t.Errorf("subProfile mismatch. want: %q got: %q", c.subProfile, got.SubProfile.Name)
			}
			if got.Request.Name != c.request {
				t.Errorf("request mismatch. want: %q got: %q", c.request, got.Request.Name)
			}
			if diff := cmp.Diff(c.params, got.Params); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFindMatchMisses(t *testing.T) {
	store := testStore()

	cases := []struct {
		description string
		method      string
		path        string
		header      http.Header
		query       map[string]string
		active      string
	}{
		{"no active profile", "GET", "/api/acme/catalog", nil, nil, ""},
		{"unknown active profile", "GET", "/api/acme/catalog", nil, nil, "nope"},
		{"method gate fails", "DELETE", "/api/acme/catalog", nil, nil, "shop"},
		{"capture cannot cross a slash", "GET", "/api/acme/items/a/b", nil, nil, "shop"},
		{"header gate fails", "POST", "/api/ping", http.Header{"X-Api-Key": []string{"wrong"}}, nil, "shop"},
		{"header value is case sensitive", "POST", "/api/ping", http.Header{"X-Api-Key": []string{"SECRET"}}, nil, "shop"},
		{"query gate fails", "GET", "/api/list", nil, map[string]string{"page": "3"}, "shop"},
		{"query gate missing", "GET", "/api/list", nil, nil, "shop"},
		{"bound literal mismatch", "GET", "/api/unknown-tenant/catalog", nil, nil, "shop"},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			if got := FindMatch(store, c.method, c.path, c.header, c.query, c.active); got != nil {
				t.Errorf("expected no match, matched request %q", got.Request.Name)
			}
		})
	}
}

func TestFindMatchOrder(t *testing.T) {
	// sub-profiles are the outer loop: the first sub-profile wins even
	// when a later one also binds the path
	store := &repo.Store{
		Profiles: []repo.Profile{{
			Name: "p",
			SubProfiles: []repo.SubProfile{
				{Name: "first", Params: map[string]string{"id": "1"}},
				{Name: "second", Params: map[string]string{"id": "1"}},
			},
			Requests: []repo.RequestConfig{
				{Name: "a", Method: "GET", Path: "/things/{id}"},
				{Name: "b", Method: "GET", Path: "/things/{id}"},
			},
		}},
	}

	got := FindMatch(store, "GET", "/things/1", nil, nil, "p")
	if got == nil {
		t.Fatal("expected a match, got none")
	}
	if got.SubProfile.Name != "first" || got.Request.Name != "a" {
		t.Errorf("expected (first, a), got (%s, %s)", got.SubProfile.Name, got.Request.Name)
	}
}

func TestFindMatchRequestParamsOverrideSubProfile(t *testing.T) {
	store := &repo.Store{
		Profiles: []repo.Profile{{
			Name:        "p",
			SubProfiles: []repo.SubProfile{{Name: "s", Params: map[string]string{"id": "sub"}}},
			Requests: []repo.RequestConfig{{
				Name:   "r",
				Method: "GET",
				Path:   "/things/{id}",
				Params: map[string]string{"id": "req"},
			}},
		}},
	}

	if got := FindMatch(store, "GET", "/things/sub", nil, nil, "p"); got != nil {
		t.Error("sub-profile binding should be shadowed by the request binding")
	}
	got := FindMatch(store, "GET", "/things/req", nil, nil, "p")
	if got == nil {
		t.Fatal("expected the request-level binding to match")
	}
	if got.Params["id"] != "req" {
		t.Errorf("params mismatch. want id=req got id=%s", got.Params["id"])
	}
}

func TestBuildRequestPath(t *testing.T) {
	cases := []struct {
		baseURL string
		path    string
		expect  string
	}{
		{"", "/catalog", "/catalog"},
		{"", "catalog", "/catalog"},
		{"/api", "/catalog", "/api/catalog"},
		{"/api/", "/catalog", "/api/catalog"},
		{"api", "catalog", "/api/catalog"},
		{"/api", "", "/api/"},
	}

	for _, c := range cases {
		profile := &repo.Profile{BaseURL: c.baseURL}
		got := buildRequestPath(profile, repo.RequestConfig{Path: c.path})
		if got != c.expect {
			t.Errorf("buildRequestPath(%q, %q): want %q got %q", c.baseURL, c.path, c.expect, got)
		}
	}
}

func TestFindBlockMatch(t *testing.T) {
	store := &repo.Store{
		Profiles: []repo.Profile{{
			Name: "shop",
			ActiveBlocks: []repo.Block{
				{ID: "b1", Name: "Exact", Method: "GET", Path: "/v1/session"},
				{ID: "b2", Name: "Holed", Method: "GET", Path: "/v1/items/{itemId}"},
				{ID: "b3", Name: "Derived", Method: "POST", Description: "POST /v1/cart"},
				{ID: "b6", Name: "Chatty", Method: "PUT", Description: "PUT /v1/cart updates a cart"},
				{ID: "b4", Name: "NotDerivable", Method: "GET", Description: "just words"},
				{ID: "b5", Name: "Wildcard", Method: "*", Path: "/v1/any"},
			},
		}},
	}

	cases := []struct {
		description string
		method      string
		path        string
		blockID     string
		params      map[string]string
	}{
		{"exact path", "GET", "/v1/session", "b1", map[string]string{}},
		{"holed path captures", "GET", "/v1/items/42", "b2", map[string]string{"itemId": "42"}},
		{"path derived from description", "POST", "/v1/cart", "b3", map[string]string{}},
		{"wildcard method", "DELETE", "/v1/any", "b5", map[string]string{}},
	}

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			got := FindBlockMatch(store, "shop", c.method, c.path)
			if got == nil {
				t.Fatal("expected a block match, got none")
			}
			if got.Block.ID != c.blockID {
				t.Errorf("block mismatch. want: %s got: %s", c.blockID, got.Block.ID)
			}
			if diff := cmp.Diff(c.params, got.Params); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
		})
	}

	misses := []struct {
		description string
		method      string
		path        string
	}{
		{"method gate", "DELETE", "/v1/session"},
		{"non-derivable description is skipped", "GET", "just words"},
		{"trailing description text defeats the match", "PUT", "/v1/cart"},
		{"no such path", "GET", "/v1/nothing"},
	}
	for _, c := range misses {
		t.Run(c.description, func(t *testing.T) {
			if got := FindBlockMatch(store, "shop", c.method, c.path); got != nil {
				t.Errorf("expected no block match, matched %s", got.Block.ID)
			}
		})
	}
}

func TestFindBlockMatchSkipsNonDerivable(t *testing.T) {
	// a block with no usable path must not shadow a later matching block
	store := &repo.Store{
		Profiles: []repo.Profile{{
			Name: "p",
			ActiveBlocks: []repo.Block{
				{ID: "broken", Method: "GET", Description: "no path here"},
				{ID: "good", Method: "GET", Path: "/ok"},
			},
		}},
	}

	got := FindBlockMatch(store, "p", "GET", "/ok")
	if got == nil {
		t.Fatal("expected a block match, got none")
	}
	if got.Block.ID != "good" {
		t.Errorf("want block %q got %q", "good", got.Block.ID)
	}
}

func TestDeriveBlockPath(t *testing.T) {
	cases := []struct {
		block  repo.Block
		path   string
		wantOK bool
	}{
		{repo.Block{Path: "/explicit"}, "/explicit", true},
		{repo.Block{Description: "GET /from-description"}, "/from-description", true},
		{repo.Block{Path: "/explicit", Description: "GET /ignored"}, "/explicit", true},
		{repo.Block{Description: "GET /first /second"}, "/first /second", true},
		{repo.Block{Description: "no-space"}, "", false},
		{repo.Block{Description: "two words"}, "", false},
		{repo.Block{}, "", false},
	}

	for _, c := range cases {
		got, ok := deriveBlockPath(c.block)
		if ok != c.wantOK || got != c.path {
			t.Errorf("deriveBlockPath(%+v): want (%q, %t) got (%q, %t)", c.block, c.path, c.wantOK, got, ok)
		}
	}
}

func TestHeadersMatchRequiresPresence(t *testing.T) {
	store := &repo.Store{
		Profiles: []repo.Profile{{
			Name:        "p",
			SubProfiles: []repo.SubProfile{{Name: "s"}},
			Requests: []repo.RequestConfig{{
				Name:    "flagged",
				Method:  "GET",
				Path:    "/ping",
				Headers: map[string]string{"X-Flag": ""},
			}},
		}},
	}

	// an absent header never satisfies an expectation, even an
	// empty-valued one
	if got := FindMatch(store, "GET", "/ping", http.Header{}, nil, "p"); got != nil {
		t.Errorf("matched despite absent expected header, request %q", got.Request.Name)
	}
	if got := FindMatch(store, "GET", "/ping", nil, nil, "p"); got != nil {
		t.Errorf("matched despite nil header set, request %q", got.Request.Name)
	}

	header := http.Header{}
	header.Set("X-Flag", "")
	if got := FindMatch(store, "GET", "/ping", header, nil, "p"); got == nil {
		t.Error("a present header with the expected empty value must match")
	}
}

func TestMethodMatches(t *testing.T) {
	cases := []struct {
		configured string
		method     string
		expect     bool
	}{
		{"", "GET", true},
		{"*", "DELETE", true},
		{"get", "GET", true},
		{"GET", "GET", true},
		{"POST", "GET", false},
	}
	for _, c := range cases {
		if got := methodMatches(c.configured, c.method); got != c.expect {
			t.Errorf("methodMatches(%q, %q): want %t got %t", c.configured, c.method, c.expect, got)
		}
	}
}
