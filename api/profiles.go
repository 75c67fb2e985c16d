package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mapy-io/mapy/api/util"
	"github.com/mapy-io/mapy/repo"
)

// CreateProfileParams is the input to profile creation
type CreateProfileParams struct {
	Name    string   `json:"name"`
	BaseURL string   `json:"baseUrl"`
	Params  []string `json:"params"`
}

// UpdateProfileParams is the partial-update input: only supplied fields
// change
type UpdateProfileParams struct {
	Name    *string   `json:"name"`
	BaseURL *string   `json:"baseUrl"`
	Params  *[]string `json:"params"`
}

// CreateSubProfileParams is the input to sub-profile creation
type CreateSubProfileParams struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params"`
}

// UpdateSubProfileParams is the sub-profile partial-update input
type UpdateSubProfileParams struct {
	Name   *string            `json:"name"`
	Params *map[string]string `json:"params"`
}

// CreateRequestParams is the input to request-rule creation
type CreateRequestParams struct {
	Name            string               `json:"name"`
	Method          string               `json:"method"`
	Path            string               `json:"path"`
	QueryParameters map[string]string    `json:"queryParameters"`
	Headers         map[string]string    `json:"headers"`
	Body            map[string]string    `json:"body"`
	Params          map[string]string    `json:"params"`
	Response        *repo.ResponseConfig `json:"response"`
}

// ActiveProfileResponse is the wire shape of the active-profile
// endpoints
type ActiveProfileResponse struct {
	Name *string `json:"name"`
}

// SetActiveProfileParams selects the active profile by name
type SetActiveProfileParams struct {
	Name string `json:"name"`
}

// ListProfilesHandler lists every profile in the store
func (s *Server) ListProfilesHandler(w http.ResponseWriter, r *http.Request) {
	store := s.store.Read()
	profiles := store.Profiles
	if profiles == nil {
		profiles = []repo.Profile{}
	}
	util.WriteResponse(w, http.StatusOK, profiles)
}

// GetProfileHandler reads a single profile by name
func (s *Server) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	store := s.store.Read()
	profile := store.Profile(mux.Vars(r)["profile"])
	if profile == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}
	util.WriteResponse(w, http.StatusOK, profile)
}

// CreateProfileHandler creates a profile, seeded with the local library
func (s *Server) CreateProfileHandler(w http.ResponseWriter, r *http.Request) {
	params := CreateProfileParams{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		util.WriteErrResponse(w, http.StatusBadRequest, err)
		return
	}
	if params.Name == "" {
		util.WriteMessageErrResponse(w, http.StatusBadRequest, "Profile name cannot be empty")
		return
	}

	store := s.store.Read()
	if store.Profile(params.Name) != nil {
		util.WriteMessageErrResponse(w, http.StatusConflict, "Profile already exists")
		return
	}

	profile := repo.Profile{
		Name:      params.Name,
		BaseURL:   params.BaseURL,
		Params:    params.Params,
		Libraries: []repo.Library{repo.LocalLibrary()},
	}
	store.Profiles = append(store.Profiles, profile)

	if err := s.store.Write(store); err != nil {
		util.WriteErrResponse(w, http.StatusInternalServerError, err)
		return
	}
	util.WriteResponse(w, http.StatusCreated, profile)
}

// UpdateProfileHandler applies a partial update. Renaming the active
// profile moves the active pointer with it
func (s *Server) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["profile"]
	params := UpdateProfileParams{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		util.WriteErrResponse(w, http.StatusBadRequest, err)
		return
	}

	store := s.store.Read()
	if params.Name != nil {
		if *params.Name == "" {
			util.WriteMessageErrResponse(w, http.StatusBadRequest, "Profile name cannot be empty")
			return
		}
		if *params.Name != name && store.Profile(*params.Name) != nil {
			util.WriteMessageErrResponse(w, http.StatusConflict, "Profile already exists")
			return
		}
	}

	profile := store.Profile(name)
	if profile == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}

	if params.Name != nil {
		profile.Name = *params.Name
	}
	if params.BaseURL != nil {
		profile.BaseURL = *params.BaseURL
	}
	if params.Params != nil {
		profile.Params = *params.Params
	}

	if active, ok := s.active.Get(); ok && active == name {
		store.ActiveProfile = &profile.Name
		s.active.Set(profile.Name)
	}

	if err := s.store.Write(store); err != nil {
		util.WriteErrResponse(w, http.StatusInternalServerError, err)
		return
	}
	util.WriteResponse(w, http.StatusOK, profile)
}

// DeleteProfileHandler removes a profile. Deleting the active profile
// falls back to the first remaining one, or none
func (s *Server) DeleteProfileHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["profile"]
	store := s.store.Read()

	wasActive := false
	if active, ok := s.active.Get(); ok && active == name {
		wasActive = true
	}

	kept := store.Profiles[:0]
	for _, p := range store.Profiles {
		if p.Name != name {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(store.Profiles) {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}
	store.Profiles = kept

	if wasActive {
		if len(store.Profiles) > 0 {
			next := store.Profiles[0].Name
			store.ActiveProfile = &next
			s.active.Set(next)
		} else {
			store.ActiveProfile = nil
			s.active.Clear()
		}
	}

	if err := s.store.Write(store); err != nil {
		util.WriteErrResponse(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateSubProfileHandler adds a sub-profile to a profile
func (s *Server) CreateSubProfileHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["profile"]
	params := CreateSubProfileParams{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		util.WriteErrResponse(w, http.StatusBadRequest, err)
		return
	}
	if params.Name == "" {
		util.WriteMessageErrResponse(w, http.StatusBadRequest, "SubProfile name cannot be empty")
		return
	}

	store := s.store.Read()
	profile := store.Profile(name)
	if profile == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}
	for _, sub := range profile.SubProfiles {
		if sub.Name == params.Name {
			util.WriteMessageErrResponse(w, http.StatusConflict, "SubProfile already exists")
			return
		}
	}

	sub := repo.SubProfile{Name: params.Name, Params: params.Params}
	if sub.Params == nil {
		sub.Params = map[string]string{}
	}
	profile.SubProfiles = append(profile.SubProfiles, sub)

	if err := s.store.Write(store); err != nil {
		util.WriteErrResponse(w, http.StatusInternalServerError, err)
		return
	}
	util.WriteResponse(w, http.StatusCreated, sub)
}

// UpdateSubProfileHandler applies a partial update to a sub-profile
func (s *Server) UpdateSubProfileHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	params := UpdateSubProfileParams{}
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

	if params.Name != nil {
		if *params.Name == "" {
			util.WriteMessageErrResponse(w, http.StatusBadRequest, "SubProfile name cannot be empty")
			return
		}
		if *params.Name != vars["subprofile"] {
			for _, sub := range profile.SubProfiles {
				if sub.Name == *params.Name {
					util.WriteMessageErrResponse(w, http.StatusConflict, "SubProfile already exists")
					return
				}
			}
		}
	}

	var sub *repo.SubProfile
	for i := range profile.SubProfiles {
		if profile.SubProfiles[i].Name == vars["subprofile"] {
			sub = &profile.SubProfiles[i]
			break
		}
	}
	if sub == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "SubProfile not found")
		return
	}

	if params.Name != nil {
		sub.Name = *params.Name
	}
	if params.Params != nil {
		sub.Params = *params.Params
	}

	if err := s.store.Write(store); err != nil {
		util.WriteErrResponse(w, http.StatusInternalServerError, err)
		return
	}
	util.WriteResponse(w, http.StatusOK, sub)
}

// DeleteSubProfileHandler removes a sub-profile
func (s *Server) DeleteSubProfileHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	store := s.store.Read()
	profile := store.Profile(vars["profile"])
	if profile == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}

	kept := profile.SubProfiles[:0]
	for _, sub := range profile.SubProfiles {
		if sub.Name != vars["subprofile"] {
			kept = append(kept, sub)
		}
	}
	if len(kept) == len(profile.SubProfiles) {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "SubProfile not found")
		return
	}
	profile.SubProfiles = kept

	if err := s.store.Write(store); err != nil {
		util.WriteErrResponse(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateRequestHandler adds a request rule to a profile. The method
// defaults to GET and is upper-cased
func (s *Server) CreateRequestHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["profile"]
	params := CreateRequestParams{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		util.WriteErrResponse(w, http.StatusBadRequest, err)
		return
	}
	if params.Name == "" {
		util.WriteMessageErrResponse(w, http.StatusBadRequest, "Request name cannot be empty")
		return
	}

	store := s.store.Read()
	profile := store.Profile(name)
	if profile == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}
	for _, request := range profile.Requests {
		if request.Name == params.Name {
			util.WriteMessageErrResponse(w, http.StatusConflict, "Request already exists")
			return
		}
	}

	method := params.Method
	if method == "" {
		method = http.MethodGet
	}
	request := repo.RequestConfig{
		Name:            params.Name,
		Method:          strings.ToUpper(method),
		Path:            params.Path,
		QueryParameters: params.QueryParameters,
		Headers:         params.Headers,
		Body:            params.Body,
		Params:          params.Params,
		Response:        params.Response,
	}
	profile.Requests = append(profile.Requests, request)

	if err := s.store.Write(store); err != nil {
		util.WriteErrResponse(w, http.StatusInternalServerError, err)
		return
	}
	util.WriteResponse(w, http.StatusCreated, request)
}

// GetActiveProfileHandler reads the active-profile pointer
func (s *Server) GetActiveProfileHandler(w http.ResponseWriter, r *http.Request) {
	res := ActiveProfileResponse{}
	if name, ok := s.active.Get(); ok {
		res.Name = &name
	}
	util.WriteResponse(w, http.StatusOK, res)
}

// SetActiveProfileHandler points the dispatcher at a named profile
func (s *Server) SetActiveProfileHandler(w http.ResponseWriter, r *http.Request) {
	params := SetActiveProfileParams{}
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		util.WriteErrResponse(w, http.StatusBadRequest, err)
		return
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		util.WriteMessageErrResponse(w, http.StatusBadRequest, "Profile name cannot be empty")
		return
	}

	store := s.store.Read()
	if store.Profile(name) == nil {
		util.WriteMessageErrResponse(w, http.StatusNotFound, "Profile not found")
		return
	}

	s.active.Set(name)
	store.ActiveProfile = &name
	if err := s.store.Write(store); err != nil {
		util.WriteErrResponse(w, http.StatusInternalServerError, err)
		return
	}
	util.WriteResponse(w, http.StatusOK, ActiveProfileResponse{Name: &name})
}
