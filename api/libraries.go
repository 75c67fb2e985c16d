package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mapy-io/mapy/api/util"
	"github.com/mapy-io/mapy/repo"
)

// AddLibraryParams is the input to library creation. Only remote
// (folder) libraries can be added; the local one always exists
type AddLibraryParams struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	FolderPath string `json:"folderPath"`
}

// UpdateLibraryParams renames a library
type UpdateLibraryParams struct {
	Name *string `json:"name"`
}

// GetLibrariesHandler lists a profile's libraries
func (s *Server) GetLibrariesHandler(w http.ResponseWriter, r *http.Request) {
	store := s.store.Read()
	profile := store.Profile(mux.Vars(r)["profile"])
	if profile == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}
	util.WriteResponse(w, http.StatusOK, profile.Libraries)
}

// AddLibraryHandler registers a remote library folder: the path is
// canonicalized, must be a directory, and gets a blocks/ subdirectory
func (s *Server) AddLibraryHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["profile"]
	params := AddLibraryParams{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		util.WriteErrResponse(w, http.StatusBadRequest, err)
		return
	}

	if params.Type != "remote" {
		util.WriteMessageErrResponse(w, http.StatusBadRequest, "Only remote (folder) libraries are supported for add")
		return
	}
	folderPath := strings.TrimSpace(params.FolderPath)
	if folderPath == "" {
		util.WriteMessageErrResponse(w, http.StatusBadRequest, "folderPath is required for remote library")
		return
	}

	canonical, err := canonicalizePath(folderPath)
	if err != nil {
		util.WriteMessageErrResponse(w, http.StatusBadRequest, fmt.Sprintf("Path does not exist or is not accessible: %s", err))
		return
	}
	info, err := os.Stat(canonical)
	if err != nil {
		util.WriteErrResponse(w, http.StatusBadRequest, err)
		return
	}
	if !info.IsDir() {
		util.WriteMessageErrResponse(w, http.StatusBadRequest, "Path is not a directory")
		return
	}
	if err := os.MkdirAll(filepath.Join(canonical, "blocks"), 0755); err != nil {
		util.WriteMessageErrResponse(w, http.StatusBadRequest, fmt.Sprintf("Could not create blocks folder: %s", err))
		return
	}

	library := repo.Library{
		ID:         fmt.Sprintf("folder-%d", time.Now().UnixMilli()),
		Name:       params.Name,
		Type:       "remote",
		FolderPath: canonical,
	}

	store := s.store.Read()
	profile := store.Profile(name)
	if profile == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}
	profile.Libraries = append(profile.Libraries, library)

	if err := s.store.Write(store); err != nil {
		util.WriteErrResponse(w, http.StatusInternalServerError, err)
		return
	}
	util.WriteResponse(w, http.StatusCreated, library)
}

// UpdateLibraryHandler renames a library
func (s *Server) UpdateLibraryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	params := UpdateLibraryParams{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		util.WriteErrResponse(w, http.StatusBadRequest, err)
		return
	}

	store := s.store.Read()
	profile := store.Profile(vars["profile"])
	if profile == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}

	var library *repo.Library
	for i := range profile.Libraries {
		if profile.Libraries[i].ID == vars["library"] {
			library = &profile.Libraries[i]
			break
		}
	}
	if library == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Library not found")
		return
	}

	if params.Name != nil {
		library.Name = *params.Name
	}

	if err := s.store.Write(store); err != nil {
		util.WriteErrResponse(w, http.StatusInternalServerError, err)
		return
	}
	util.WriteResponse(w, http.StatusOK, library)
}

// DeleteLibraryHandler removes a remote library registration. The
// reserved local library cannot be deleted
func (s *Server) DeleteLibraryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if vars["library"] == repo.LocalLibraryID {
		util.WriteMessageErrResponse(w, http.StatusBadRequest, "Cannot delete local library")
		return
	}

	store := s.store.Read()
	profile := store.Profile(vars["profile"])
	if profile == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}

	kept := profile.Libraries[:0]
	for _, library := range profile.Libraries {
		if library.ID != vars["library"] {
			kept = append(kept, library)
		}
	}
	profile.Libraries = kept

	if err := s.store.Write(store); err != nil {
		util.WriteErrResponse(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// canonicalizePath resolves a folder path to an absolute, symlink-free
// form
func canonicalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
