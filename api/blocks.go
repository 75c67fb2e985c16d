package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mapy-io/mapy/api/util"
	"github.com/mapy-io/mapy/repo"
)

// GetBlocksHandler merges a profile's local library blocks with every
// remote library folder, freshly read from disk, plus the mounted
// blocks and categories
func (s *Server) GetBlocksHandler(w http.ResponseWriter, r *http.Request) {
	store := s.store.Read()
	profile := store.Profile(mux.Vars(r)["profile"])
	if profile == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}

	libraryBlocks := []repo.Block{}
	for _, block := range profile.LibraryBlocks {
		if block.SourceLibraryID == "" {
			block.SourceLibraryID = repo.LocalLibraryID
		}
		libraryBlocks = append(libraryBlocks, block)
	}

	for _, library := range profile.Libraries {
		if library.Type == "remote" && library.FolderPath != "" {
			libraryBlocks = append(libraryBlocks, repo.ReadBlocks(library.FolderPath, library.ID)...)
		}
	}

	payload := repo.BlocksPayload{
		LibraryBlocks: libraryBlocks,
		ActiveBlocks:  profile.ActiveBlocks,
		Categories:    profile.Categories,
	}
	if payload.ActiveBlocks == nil {
		payload.ActiveBlocks = []repo.Block{}
	}
	if payload.Categories == nil {
		payload.Categories = []string{}
	}
	util.WriteResponse(w, http.StatusOK, payload)
}

// UpdateBlocksHandler fully replaces a profile's blocks: the local
// partition persists inside the store document, each remote library's
// folder is rewritten, and the mounted blocks & categories swap over.
// Blocks without a sourceLibraryId are treated as local
func (s *Server) UpdateBlocksHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["profile"]
	payload := repo.BlocksPayload{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		util.WriteErrResponse(w, http.StatusBadRequest, err)
		return
	}

	store := s.store.Read()
	profile := store.Profile(name)
	if profile == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}

	localBlocks := []repo.Block{}
	remoteBlocks := map[string][]repo.Block{}
	for _, block := range payload.LibraryBlocks {
		if block.SourceLibraryID == "" || block.SourceLibraryID == repo.LocalLibraryID {
			localBlocks = append(localBlocks, block)
			continue
		}
		remoteBlocks[block.SourceLibraryID] = append(remoteBlocks[block.SourceLibraryID], block)
	}

	for _, library := range profile.Libraries {
		if library.Type != "remote" || library.FolderPath == "" {
			continue
		}
		if err := repo.WriteBlocks(library.FolderPath, remoteBlocks[library.ID]); err != nil {
			util.WriteErrResponse(w, http.StatusInternalServerError, err)
			return
		}
	}

	profile.LibraryBlocks = localBlocks
	profile.ActiveBlocks = payload.ActiveBlocks
	profile.Categories = payload.Categories

	if err := s.store.Write(store); err != nil {
		util.WriteErrResponse(w, http.StatusInternalServerError, err)
		return
	}
	util.WriteResponse(w, http.StatusOK, payload)
}
