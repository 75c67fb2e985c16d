package dispatch

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mapy-io/mapy/reqlog"
	"github.com/mapy-io/mapy/repo"
)

// hopByHopHeaders are stripped from both directions of a forwarded
// exchange. Bodies are re-buffered, so framing headers from the
// upstream no longer apply
var hopByHopHeaders = []string{
	"Host",
	"Content-Length",
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

// bypassHeader marks forwarded requests so a host-level HTTP debugger
// doesn't intercept them back into this gateway
const bypassHeader = "x-bypass-proxyman"

// Forwarder relays unmatched requests to the upstream origin derived
// from the resolved profile's baseUrl. The client's connection pool is
// shared across requests
type Forwarder struct {
	Client *http.Client
}

// NewForwarder allocates a Forwarder with a default shared client
func NewForwarder() *Forwarder {
	return &Forwarder{Client: &http.Client{}}
}

// Forward buffers the inbound body to the upstream and the upstream
// body back. Transport and read failures surface as 502 responses
func (f *Forwarder) Forward(store *repo.Store, activeProfile, method string, inboundURL *url.URL, header http.Header, body []byte) (*Synthesized, *reqlog.LoggedResponse) {
	profile := resolveActiveProfile(store, activeProfile)
	if profile == nil {
		return jsonErrorResponse(http.StatusNotFound, "No active profile available for proxying")
	}
	if strings.TrimSpace(profile.BaseURL) == "" {
		return jsonErrorResponse(http.StatusBadRequest, "Active profile does not define a baseUrl")
	}

	target := buildProxyURL(profile.BaseURL, inboundURL)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	if err != nil {
		return jsonErrorResponse(http.StatusBadGateway, fmt.Sprintf("Proxy request failed: %s", err))
	}
	req.Header = filterHeaders(header)
	req.Header.Set(bypassHeader, "true")

	upstream, err := f.Client.Do(req)
	if err != nil {
		return jsonErrorResponse(http.StatusBadGateway, fmt.Sprintf("Proxy request failed: %s", err))
	}
	defer upstream.Body.Close()

	status := upstream.StatusCode
	if status < 100 || status > 999 {
		status = http.StatusBadGateway
	}

	respHeader := filterHeaders(upstream.Header)
	respBody, err := io.ReadAll(upstream.Body)
	if err != nil {
		return jsonErrorResponse(http.StatusBadGateway, fmt.Sprintf("Unable to read proxy response: %s", err))
	}

	resp := &Synthesized{Status: status, Header: respHeader, Body: respBody}
	logged := &reqlog.LoggedResponse{
		Status:  status,
		Headers: headerToStringMap(respHeader),
		Body:    string(respBody),
	}
	return resp, logged
}

// resolveActiveProfile prefers the named active profile, falling back
// to the first profile in the store
func resolveActiveProfile(store *repo.Store, activeProfile string) *repo.Profile {
	if activeProfile != "" {
		if p := store.Profile(activeProfile); p != nil {
			return p
		}
	}
	if len(store.Profiles) == 0 {
		return nil
	}
	return &store.Profiles[0]
}

// buildProxyURL splices the inbound path and raw query onto the
// profile's baseUrl. The query is appended verbatim, no re-encoding
func buildProxyURL(baseURL string, inbound *url.URL) string {
	base := strings.TrimSuffix(baseURL, "/")
	path := inbound.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	full := base + path
	if inbound.RawQuery != "" {
		full += "?" + inbound.RawQuery
	}
	return full
}

func filterHeaders(header http.Header) http.Header {
	next := http.Header{}
	for key, values := range header {
		drop := false
		for _, hop := range hopByHopHeaders {
			if strings.EqualFold(key, hop) {
				drop = true
				break
			}
		}
		if drop {
			continue
		}
		for _, value := range values {
			next.Add(key, value)
		}
	}
	return next
}

func headerToStringMap(header http.Header) map[string]string {
	next := map[string]string{}
	for key := range header {
		next[key] = header.Get(key)
	}
	return next
}
