package dispatch

import (
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mapy-io/mapy/reqlog"
	"github.com/mapy-io/mapy/repo"
)

// Handler is the top-level per-request state machine: block match, then
// rule match, then proxy fallthrough. Every request is recorded in the
// log book. The handler never mutates the store
type Handler struct {
	store  *repo.FileStore
	active *repo.ActiveProfile
	book   *reqlog.Book
	fwd    *Forwarder
}

// NewHandler wires a dispatcher over shared state
func NewHandler(store *repo.FileStore, active *repo.ActiveProfile, book *reqlog.Book, fwd *Forwarder) *Handler {
	return &Handler{store: store, active: active, book: book, fwd: fwd}
}

// ServeHTTP dispatches one inbound request against a single store
// snapshot taken at the top of the pipeline
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	timestamp := time.Now().UnixMilli()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debugf("reading inbound body: %s", err)
	}

	store := h.store.Read()
	activeProfile, _ := h.active.Get()
	path := r.URL.Path
	query := flattenQuery(r.URL)

	entry := reqlog.Entry{
		TimestampMs: timestamp,
		Method:      r.Method,
		Path:        path,
		Query:       query,
	}

	if bm := FindBlockMatch(store, activeProfile, r.Method, path); bm != nil {
		resp, logged := BuildBlockResponse(bm)
		entry.Matched = true
		entry.Profile = bm.Profile.Name
		entry.Block = bm.Block.Name
		entry.Response = logged
		h.book.Record(entry)
		resp.Write(w)
		return
	}

	if m := FindMatch(store, r.Method, path, r.Header, query, activeProfile); m != nil {
		resp, logged := BuildResponse(m, path, query)
		entry.Matched = true
		entry.Profile = m.Profile.Name
		entry.SubProfile = m.SubProfile.Name
		entry.Request = m.Request.Name
		entry.Response = logged
		h.book.Record(entry)
		resp.Write(w)
		return
	}

	resp, logged := h.fwd.Forward(store, activeProfile, r.Method, r.URL, r.Header, body)
	entry.Response = logged
	h.book.Record(entry)
	resp.Write(w)
}

// flattenQuery keeps the first value of each query parameter
func flattenQuery(u *url.URL) map[string]string {
	query := map[string]string{}
	for key, values := range u.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}
	return query
}
