package api

import (
	"net/http"

	"github.com/mapy-io/mapy/api/util"
	"github.com/mapy-io/mapy/reqlog"
)

// HealthCheckHandler is a basic ok response for the desktop shell & co
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	util.WriteResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// LogsHandler snapshots the request log ring, oldest first
func (s *Server) LogsHandler(w http.ResponseWriter, r *http.Request) {
	entries := s.book.Entries()
	if entries == nil {
		entries = []reqlog.Entry{}
	}
	util.WriteResponse(w, http.StatusOK, entries)
}

// RequestCountsHandler snapshots the per-(profile, rule) counter map
func (s *Server) RequestCountsHandler(w http.ResponseWriter, r *http.Request) {
	util.WriteResponse(w, http.StatusOK, s.book.Counts())
}
