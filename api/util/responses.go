// Package util provides the JSON response helpers shared by api
// handlers
package util

import (
	"encoding/json"
	"net/http"
)

// WriteResponse writes data as a JSON response body with the given
// status code
func WriteResponse(w http.ResponseWriter, code int, data interface{}) error {
	res, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err = w.Write(res)
	return err
}

// WriteErrResponse writes a JSON error message & HTTP status
func WriteErrResponse(w http.ResponseWriter, code int, err error) error {
	return WriteMessageErrResponse(w, code, err.Error())
}

// WriteMessageErrResponse writes the flat {"error": message} error
// shape with an HTTP status
func WriteMessageErrResponse(w http.ResponseWriter, code int, message string) error {
	env := map[string]string{"error": message}

	res, err := json.Marshal(env)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err = w.Write(res)
	return err
}

// EmptyOkHandler is an empty 200 response, used for OPTIONS preflights
func EmptyOkHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
