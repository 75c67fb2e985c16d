// Package api implements the JSON control plane and mounts the request
// dispatcher as its catch-all route
package api

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
	golog "github.com/ipfs/go-log"

	"github.com/mapy-io/mapy/config"
	"github.com/mapy-io/mapy/dispatch"
	"github.com/mapy-io/mapy/reqlog"
	"github.com/mapy-io/mapy/repo"
	"github.com/mapy-io/mapy/version"
)

var log = golog.Logger("mapy.api")

func init() {
	golog.SetLogLevel("mapy.api", "info")
}

// Server owns the gateway's shared state: the profiles store, the
// active-profile pointer, the request log, and the dispatcher.
// Create one with New, start it up with Serve
type Server struct {
	cfg        *config.Config
	store      *repo.FileStore
	active     *repo.ActiveProfile
	book       *reqlog.Book
	dispatcher *dispatch.Handler
}

// New creates a server from configuration, opening (and seeding, on
// first run) the profiles document and restoring the persisted
// active-profile pointer
func New(cfg *config.Config) (*Server, error) {
	store, err := repo.NewFileStore(filepath.Join(cfg.Repo.Path, "profiles.json"))
	if err != nil {
		return nil, fmt.Errorf("opening profiles store: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		store:  store,
		active: &repo.ActiveProfile{},
		book:   reqlog.NewBook(),
	}
	s.dispatcher = dispatch.NewHandler(store, s.active, s.book, dispatch.NewForwarder())

	if snapshot := store.Read(); snapshot.ActiveProfile != nil {
		s.active.Set(*snapshot.ActiveProfile)
	}
	return s, nil
}

// Serve starts the server on 127.0.0.1. It blocks while the server is
// running and shuts down when ctx is canceled
func (s *Server) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.cfg.API.Port),
		Handler: NewServerRoutes(s),
	}

	log.Infof("mapy v%s listening on %s", version.Version, server.Addr)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		server.Close()
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// NewServerRoutes returns a muxer with all control-plane routes plus
// the dispatcher catch-all
func NewServerRoutes(s *Server) *mux.Router {
	m := mux.NewRouter()

	handle := func(path string, f http.HandlerFunc, methods ...string) {
		m.HandleFunc(path, s.middleware(f)).Methods(append(methods, http.MethodOptions)...)
	}

	handle("/api/health", HealthCheckHandler, http.MethodGet)

	handle("/api/profiles", s.ListProfilesHandler, http.MethodGet)
	handle("/api/profiles", s.CreateProfileHandler, http.MethodPost)
	handle("/api/profiles/{profile}", s.GetProfileHandler, http.MethodGet)
	handle("/api/profiles/{profile}", s.UpdateProfileHandler, http.MethodPut)
	handle("/api/profiles/{profile}", s.DeleteProfileHandler, http.MethodDelete)

	handle("/api/profiles/{profile}/subprofiles", s.CreateSubProfileHandler, http.MethodPost)
	handle("/api/profiles/{profile}/subprofiles/{subprofile}", s.UpdateSubProfileHandler, http.MethodPut)
	handle("/api/profiles/{profile}/subprofiles/{subprofile}", s.DeleteSubProfileHandler, http.MethodDelete)

	handle("/api/profiles/{profile}/requests", s.CreateRequestHandler, http.MethodPost)

	handle("/api/profiles/{profile}/libraries", s.GetLibrariesHandler, http.MethodGet)
	handle("/api/profiles/{profile}/libraries", s.AddLibraryHandler, http.MethodPost)
	handle("/api/profiles/{profile}/libraries/{library}", s.UpdateLibraryHandler, http.MethodPut)
	handle("/api/profiles/{profile}/libraries/{library}", s.DeleteLibraryHandler, http.MethodDelete)

	handle("/api/profiles/{profile}/blocks", s.GetBlocksHandler, http.MethodGet)
	handle("/api/profiles/{profile}/blocks", s.UpdateBlocksHandler, http.MethodPut)

	handle("/api/active-profile", s.GetActiveProfileHandler, http.MethodGet)
	handle("/api/active-profile", s.SetActiveProfileHandler, http.MethodPut)

	handle("/api/logs", s.LogsHandler, http.MethodGet)
	handle("/api/request-counts", s.RequestCountsHandler, http.MethodGet)

	m.PathPrefix("/").Handler(s.dispatchMiddleware(s.dispatcher))

	return m
}
